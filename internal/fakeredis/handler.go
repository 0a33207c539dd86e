// Package fakeredis is a minimal standalone Redis-protocol node used as a
// stand-in upstream host in splitter integration tests: it understands just
// enough of GET/SET/DEL/EXISTS/EVAL to exercise fragment routing without
// requiring a real Redis server in the test environment.
package fakeredis

import (
	"context"
	"io"
	"net"
	"sync"

	"redisplit/interface/resp"
	"redisplit/lib/casefold"
	"redisplit/lib/logger"
	"redisplit/resp/connection"
	"redisplit/resp/parser"
	"redisplit/resp/reply"
)

// Handler is a tcp.Handler standing in for a real Redis node in integration
// tests: one store shared by every connection, dispatched synchronously
// through cmdTable the way the teacher's database.DB.Exec dispatches
// through its own cmdTable.
type Handler struct {
	store      *store
	activeConn sync.Map
}

// NewHandler creates a Handler with an empty keyspace.
func NewHandler() *Handler {
	return &Handler{store: newStore()}
}

// Handle implements tcp.Handler.
func (h *Handler) Handle(ctx context.Context, conn net.Conn) {
	client := connection.NewConn(conn)
	h.activeConn.Store(client, struct{}{})

	ch := parser.ParseStream(conn)
	for payload := range ch {
		if payload.Err != nil {
			if payload.Err == io.EOF {
				h.activeConn.Delete(client)
				return
			}
			_ = client.Write(reply.MakeErrReply(payload.Err.Error()).ToBytes())
			continue
		}
		arr, ok := payload.Data.(*reply.MultiBulkReply)
		if !ok || len(arr.Args) == 0 {
			_ = client.Write(reply.MakeErrReply("ERR invalid request").ToBytes())
			continue
		}
		_ = client.Write(h.exec(arr.Args).ToBytes())
	}
}

func (h *Handler) exec(args [][]byte) resp.Reply {
	name := casefold.ToLower(string(args[0]))
	cmd, ok := cmdTable[name]
	if !ok {
		return reply.MakeErrReply("ERR unknown command '" + name + "'")
	}
	if !validateArity(cmd.arity, args) {
		return reply.MakeArgNumErrReply(name)
	}
	return cmd.executor(h.store, args[1:])
}

// Close implements tcp.Handler.
func (h *Handler) Close() error {
	h.activeConn.Range(func(key, _ interface{}) bool {
		c := key.(*connection.Connection)
		_ = c.Close()
		return true
	})
	logger.Info("fakeredis handler shutting down...")
	return nil
}
