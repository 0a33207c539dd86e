// Package handler wires the RESP wire protocol to the splitter: it decodes
// each client command, hands it to a splitter.Instance, and writes back
// whatever reply the splitter eventually produces, in the order the client
// sent the requests.
package handler

import (
	"context"
	"errors"
	"io"
	"net"
	"strings"
	"sync"

	"redisplit/interface/resp"
	"redisplit/lib/logger"
	"redisplit/lib/sync/atomic"
	"redisplit/resp/connection"
	"redisplit/resp/parser"
	"redisplit/resp/reply"
	"redisplit/splitter"
)

var unknownErrReplyBytes = []byte("-ERR unknown\r\n")

const replyQueueSize = 256

// clientState tracks the splitter requests still in flight for one
// connection, so Close can cancel them instead of leaking upstream
// fragments when a client disconnects mid-pipeline. It also owns the
// per-connection reply queue: fragment callbacks for different pipelined
// commands complete on different upstream goroutines and can finish in any
// order, so each dispatched command reserves its slot up front and a
// single drain goroutine writes replies to the wire strictly in the order
// the requests arrived, the way Envoy's redis_proxy filter holds a
// pending_requests_ queue and only flushes from the front.
type clientState struct {
	conn *connection.Connection

	mu      sync.Mutex
	pending []splitter.Request
	wg      sync.WaitGroup

	replyQueue   chan chan resp.Reply
	drainStopped chan struct{}
}

func newClientState(conn *connection.Connection) *clientState {
	s := &clientState{
		conn:         conn,
		replyQueue:   make(chan chan resp.Reply, replyQueueSize),
		drainStopped: make(chan struct{}),
	}
	go s.drainReplies()
	return s
}

// enqueue reserves this connection's next reply slot and returns the
// channel its eventual result should be sent on. Called synchronously from
// the read loop, before the command is dispatched, so slot order always
// matches request order regardless of how long each command takes.
func (s *clientState) enqueue() chan resp.Reply {
	ch := make(chan resp.Reply, 1)
	s.replyQueue <- ch
	return ch
}

// drainReplies is the connection's only writer: it blocks on each queued
// slot in turn, so a fast command dispatched after a slow one still waits
// its turn on the wire.
func (s *clientState) drainReplies() {
	defer close(s.drainStopped)
	for ch := range s.replyQueue {
		result := <-ch
		if result == nil {
			_ = s.conn.Write(unknownErrReplyBytes)
			continue
		}
		_ = s.conn.Write(result.ToBytes())
	}
}

func (s *clientState) track(req splitter.Request) {
	if req == nil {
		return
	}
	s.mu.Lock()
	s.pending = append(s.pending, req)
	s.mu.Unlock()
}

func (s *clientState) cancelAll() {
	s.mu.Lock()
	pending := s.pending
	s.pending = nil
	s.mu.Unlock()
	for _, req := range pending {
		req.Cancel()
	}
}

// RespHandler implements tcp.Handler and serves as a redis proxy handler:
// every accepted connection is a downstream client, every command it sends
// is split and routed to the upstream pool.
type RespHandler struct {
	activeConn sync.Map // *clientState -> struct{}
	splitter   *splitter.Instance
	closing    atomic.Boolean
}

// MakeHandler creates a RespHandler bound to the given splitter instance.
func MakeHandler(inst *splitter.Instance) *RespHandler {
	return &RespHandler{
		splitter: inst,
	}
}

func (h *RespHandler) closeClient(state *clientState) {
	state.cancelAll()
	state.wg.Wait()
	close(state.replyQueue)
	<-state.drainStopped
	_ = state.conn.Close()
	h.activeConn.Delete(state)
}

// Handle receives and dispatches client commands until the connection
// closes.
func (h *RespHandler) Handle(ctx context.Context, conn net.Conn) {
	if h.closing.Get() {
		_ = conn.Close()
		return
	}

	client := connection.NewConn(conn)
	state := newClientState(client)
	h.activeConn.Store(state, struct{}{})

	ch := parser.ParseStream(conn)
	for payload := range ch {
		if payload.Err != nil {
			if payload.Err == io.EOF ||
				errors.Is(payload.Err, io.ErrUnexpectedEOF) ||
				strings.Contains(payload.Err.Error(), "use of closed network connection") {
				h.closeClient(state)
				logger.Info("connection closed: " + client.RemoteAddr().String())
				return
			}
			errReply := reply.MakeErrReply(payload.Err.Error())
			replyCh := state.enqueue()
			replyCh <- errReply
			continue
		}
		if payload.Data == nil {
			logger.Error("empty payload")
			continue
		}

		r, ok := payload.Data.(*reply.MultiBulkReply)
		if !ok {
			logger.Error("require multi bulk reply")
			continue
		}

		h.dispatch(state, r)
	}
}

// dispatch reserves the next reply slot before firing the splitter
// request, so the request's eventual reply lands in the queue at the same
// position its command held in the client's pipeline, however long it
// takes to resolve relative to requests dispatched after it.
func (h *RespHandler) dispatch(state *clientState, r *reply.MultiBulkReply) {
	replyCh := state.enqueue()
	state.wg.Add(1)
	var req splitter.Request
	req = h.splitter.MakeRequest(r, func(result resp.Reply) {
		defer state.wg.Done()
		replyCh <- result
	})
	state.track(req)
}

// Close stops the handler: refuses new connections and cancels every
// in-flight request on every currently open connection.
func (h *RespHandler) Close() error {
	logger.Info("handler shutting down...")
	h.closing.Set(true)
	h.activeConn.Range(func(key interface{}, _ interface{}) bool {
		state := key.(*clientState)
		h.closeClient(state)
		return true
	})
	return nil
}
