package connection

import (
	"net"
	"sync"
	"time"

	"redisplit/lib/sync/wait"
)

// Connection wraps a client-facing TCP connection: the downstream redis-cli
// (or any RESP client) that is talking to the proxy.
type Connection struct {
	conn net.Conn

	// waitingReply blocks Close until in-flight writes have drained.
	waitingReply wait.Wait

	// mu serializes writers, so Write is safe to call from more than one
	// goroutine.
	mu sync.Mutex

	selectedDB int
}

// NewConn creates a Connection bound to an accepted net.Conn
func NewConn(conn net.Conn) *Connection {
	return &Connection{
		conn: conn,
	}
}

// RemoteAddr returns the client's address
func (c *Connection) RemoteAddr() net.Addr {
	return c.conn.RemoteAddr()
}

// Close waits up to 10s for in-flight writes to finish, then closes the
// underlying connection.
func (c *Connection) Close() error {
	c.waitingReply.WaitWithTimeout(10 * time.Second)
	_ = c.conn.Close()
	return nil
}

// Write sends a reply to the client
func (c *Connection) Write(b []byte) error {
	if len(b) == 0 {
		return nil
	}
	c.mu.Lock()
	c.waitingReply.Add(1)
	defer func() {
		c.waitingReply.Done()
		c.mu.Unlock()
	}()

	_, err := c.conn.Write(b)
	return err
}

// GetDBIndex returns the selected database index
func (c *Connection) GetDBIndex() int {
	return c.selectedDB
}

// SelectDB records the database index selected by the client
func (c *Connection) SelectDB(dbNum int) {
	c.selectedDB = dbNum
}
