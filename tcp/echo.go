package tcp

/**
 * EchoHandler is a diagnostic tcp.Handler: it echoes every line back to
 * the client, so the server framework can be exercised without a splitter
 * or upstream pool wired up.
 */

import (
	"bufio"
	"context"
	"io"
	"net"
	"sync"
	"time"

	"redisplit/lib/logger"
	"redisplit/lib/sync/atomic"
	"redisplit/lib/sync/wait"
)

// EchoHandler echoes received lines back to the client.
type EchoHandler struct {
	activeConn sync.Map
	closing    atomic.Boolean
}

// MakeHandler creates an EchoHandler
func MakeHandler() *EchoHandler {
	return &EchoHandler{}
}

// EchoClient is the per-connection state EchoHandler tracks.
type EchoClient struct {
	Conn    net.Conn
	Waiting wait.Wait
}

// Close waits up to 10s for in-flight echoes, then closes the connection.
func (c *EchoClient) Close() error {
	c.Waiting.WaitWithTimeout(10 * time.Second)
	_ = c.Conn.Close()
	return nil
}

// Handle echoes received lines to client
func (h *EchoHandler) Handle(ctx context.Context, conn net.Conn) {
	if h.closing.Get() {
		_ = conn.Close()
		return
	}

	client := &EchoClient{
		Conn: conn,
	}
	h.activeConn.Store(client, struct{}{})

	reader := bufio.NewReader(conn)
	for {
		msg, err := reader.ReadString('\n')
		if err != nil {
			if err == io.EOF {
				logger.Info("connection close")
				h.activeConn.Delete(client)
			} else {
				logger.Warn(err)
			}
			return
		}
		client.Waiting.Add(1)
		b := []byte(msg)
		_, _ = conn.Write(b)
		client.Waiting.Done()
	}
}

// Close stops the echo handler
func (h *EchoHandler) Close() error {
	logger.Info("handler shutting down...")
	h.closing.Set(true)
	h.activeConn.Range(func(key interface{}, val interface{}) bool {
		client := key.(*EchoClient)
		_ = client.Close()
		return true
	})
	return nil
}
