package resp

// Connection is the downstream side of one client connection: the thing a
// reply gets written to. resp/connection.Connection is the only real
// implementation; the interface exists so handler code can be exercised
// against a fake one in tests.
type Connection interface {
	// Write sends an encoded reply back to the client.
	Write([]byte) error
	// GetDBIndex returns the database index the client last selected.
	GetDBIndex() int
	// SelectDB records the database index the client selected.
	SelectDB(int)
}
