package client

import (
	"net"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"redisplit/interface/resp"
	"redisplit/lib/logger"
	"redisplit/lib/sync/wait"
	"redisplit/resp/parser"
	"redisplit/resp/reply"
)

// Client is a pipelined connection to one upstream redis-compatible node.
// Requests queue on pendingReqs, are written to the wire by handleWrite,
// and are matched back to their caller in FIFO order by handleRead/
// finishRequest — the upstream is assumed to reply in the order it
// received requests, same as real Redis.
type Client struct {
	conn        net.Conn
	pendingReqs chan *request
	waitingReqs chan *request
	ticker      *time.Ticker
	addr        string

	working *sync.WaitGroup
}

// request is one outstanding command, sent either synchronously (Send,
// blocks the caller on waiting) or asynchronously (Go, fires callback from
// the client's own read goroutine once the reply arrives).
type request struct {
	args      [][]byte
	reply     resp.Reply
	heartbeat bool
	waiting   *wait.Wait
	callback  func(resp.Reply)
	cancelled int32
	err       error
}

// cancel marks the request so its callback is skipped once the reply
// arrives. It is safe to call concurrently with finishRequest.
func (r *request) cancel() {
	atomic.StoreInt32(&r.cancelled, 1)
}

func (r *request) isCancelled() bool {
	return atomic.LoadInt32(&r.cancelled) != 0
}

const (
	chanSize = 256
	maxWait  = 3 * time.Second
)

// MakeClient dials addr and returns a Client. Call Start to begin pumping.
func MakeClient(addr string) (*Client, error) {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return nil, err
	}
	return &Client{
		addr:        addr,
		conn:        conn,
		pendingReqs: make(chan *request, chanSize),
		waitingReqs: make(chan *request, chanSize),
		working:     &sync.WaitGroup{},
	}, nil
}

// Start launches the write pump, read pump and heartbeat goroutines.
func (client *Client) Start() {
	client.ticker = time.NewTicker(10 * time.Second)
	go client.handleWrite()

	go func() {
		err := client.handleRead()
		if err != nil {
			logger.Error(err)
		}
	}()

	go client.heartbeat()
}

// Close stops the pumps, waits for in-flight requests to drain, and closes
// the connection.
func (client *Client) Close() {
	client.ticker.Stop()
	close(client.pendingReqs)

	client.working.Wait()

	_ = client.conn.Close()
	close(client.waitingReqs)
}

func (client *Client) handleConnectionError(err error) error {
	err1 := client.conn.Close()
	if err1 != nil {
		if opErr, ok := err1.(*net.OpError); ok {
			if opErr.Err.Error() != "use of closed network connection" {
				return err1
			}
		} else {
			return err1
		}
	}
	conn, err1 := net.Dial("tcp", client.addr)
	if err1 != nil {
		logger.Error(err1)
		return err1
	}
	client.conn = conn
	go func() {
		_ = client.handleRead()
	}()
	return nil
}

func (client *Client) heartbeat() {
	for range client.ticker.C {
		client.doHeartbeat()
	}
}

func (client *Client) handleWrite() {
	for req := range client.pendingReqs {
		client.doRequest(req)
	}
}

// Send issues a request and blocks for the reply, or up to maxWait.
func (client *Client) Send(args [][]byte) resp.Reply {
	req := &request{
		args:      args,
		heartbeat: false,
		waiting:   &wait.Wait{},
	}
	req.waiting.Add(1)
	client.working.Add(1)
	defer client.working.Done()
	client.pendingReqs <- req

	timeout := req.waiting.WaitWithTimeout(maxWait)
	if timeout {
		return reply.MakeErrReply("server time out")
	}
	if req.err != nil {
		return reply.MakeErrReply("request failed")
	}
	return req.reply
}

// Handle is a cancellable handle to a request issued with Go. Cancel is
// idempotent: once the reply does arrive, the callback is simply skipped.
type Handle struct {
	req *request
}

// Go issues a request without blocking the caller. callback runs on the
// client's read goroutine once the upstream replies, unless the returned
// Handle has been cancelled first. This is the entry point the upstream
// pool uses on behalf of a splitter fragment: MakeRequest must return
// immediately with a handle the splitter can cancel.
func (client *Client) Go(args [][]byte, callback func(resp.Reply)) *Handle {
	req := &request{
		args:      args,
		heartbeat: false,
		callback:  callback,
	}
	client.working.Add(1)
	client.pendingReqs <- req
	return &Handle{req: req}
}

// Cancel marks the underlying request so its callback will not fire.
func (h *Handle) Cancel() {
	if h == nil || h.req == nil {
		return
	}
	h.req.cancel()
}

func (client *Client) doHeartbeat() {
	req := &request{
		args:      [][]byte{[]byte("PING")},
		heartbeat: true,
		waiting:   &wait.Wait{},
	}
	req.waiting.Add(1)
	client.working.Add(1)
	defer client.working.Done()
	client.pendingReqs <- req
	req.waiting.WaitWithTimeout(maxWait)
}

func (client *Client) doRequest(req *request) {
	if req == nil || len(req.args) == 0 {
		return
	}
	re := reply.MakeMultiBulkReply(req.args)
	bytes := re.ToBytes()
	_, err := client.conn.Write(bytes)
	i := 0
	for err != nil && i < 3 {
		err = client.handleConnectionError(err)
		if err == nil {
			_, err = client.conn.Write(bytes)
		}
		i++
	}
	if err == nil {
		client.waitingReqs <- req
	} else {
		req.err = err
		client.finish(req, reply.MakeConnFailureReply(err))
	}
}

// finish delivers rep to req: to a blocking Send caller via req.waiting, or
// to an async Go caller via req.callback (unless cancelled). A blocking
// caller owns its own working.Done (deferred in Send/doHeartbeat, which
// only returns once waiting is satisfied); an async caller has none, so
// finish releases it here instead.
func (client *Client) finish(req *request, rep resp.Reply) {
	if req.waiting != nil {
		req.reply = rep
		req.waiting.Done()
		return
	}
	defer client.working.Done()
	if req.callback != nil && !req.isCancelled() {
		req.callback(rep)
	}
}

func (client *Client) finishRequest(rep resp.Reply) {
	defer func() {
		if err := recover(); err != nil {
			debug.PrintStack()
			logger.Error(err)
		}
	}()
	req := <-client.waitingReqs
	if req == nil {
		return
	}
	client.finish(req, rep)
}

func (client *Client) handleRead() error {
	ch := parser.ParseStream(client.conn)
	for payload := range ch {
		if payload.Err != nil {
			client.finishRequest(reply.MakeConnFailureReply(payload.Err))
			continue
		}
		client.finishRequest(payload.Data)
	}
	return nil
}
