// Package tcp defines the interface a protocol handler must satisfy to be
// driven by the tcp server.
package tcp

import (
	"context"
	"net"
)

// Handler handles one accepted connection until it closes, and can be
// asked to shut down every connection it currently owns.
type Handler interface {
	Handle(ctx context.Context, conn net.Conn)
	Close() error
}
