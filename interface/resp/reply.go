// Package resp defines the interfaces the RESP codec, connections and the
// splitter core are built against.
package resp

// Reply is the interface of a RESP-serializable message: every reply the
// splitter builds, and every reply an upstream sends back, implements it.
type Reply interface {
	ToBytes() []byte
}
