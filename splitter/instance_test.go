package splitter

import (
	"sync"
	"testing"

	"redisplit/interface/resp"
	"redisplit/resp/reply"
	"redisplit/upstream"
)

// fakePool is a upstream.Pool double: each key is pre-wired to either a
// scripted reply or "no host". Replies fire synchronously from within
// MakeRequest so tests don't need to sleep or poll.
type fakePool struct {
	mu       sync.Mutex
	replies  map[string]resp.Reply
	noHost   map[string]bool
	canceled map[string]int
	calls    []string
}

func newFakePool() *fakePool {
	return &fakePool{
		replies:  make(map[string]resp.Reply),
		noHost:   make(map[string]bool),
		canceled: make(map[string]int),
	}
}

type fakeHandle struct {
	pool *fakePool
	key  string
}

func (h *fakeHandle) Cancel() {
	h.pool.mu.Lock()
	defer h.pool.mu.Unlock()
	h.pool.canceled[h.key]++
}

func (p *fakePool) GetHost(hashKey string) string {
	if p.noHost[hashKey] {
		return ""
	}
	return "host-" + hashKey
}

func (p *fakePool) MakeRequest(hashKey string, args [][]byte, callback upstream.Callback) (upstream.Handle, bool) {
	p.mu.Lock()
	p.calls = append(p.calls, hashKey)
	if p.noHost[hashKey] {
		p.mu.Unlock()
		return nil, false
	}
	rep, ok := p.replies[hashKey]
	p.mu.Unlock()
	if !ok {
		rep = reply.MakeErrReply("no scripted reply for " + hashKey)
	}
	callback(rep)
	return &fakeHandle{pool: p, key: hashKey}, true
}

type fakeStats struct {
	mu                 sync.Mutex
	invalidRequest     int
	unsupportedCommand int
	commandTotal       map[string]int
}

func newFakeStats() *fakeStats {
	return &fakeStats{commandTotal: make(map[string]int)}
}

func (s *fakeStats) IncInvalidRequest() {
	s.mu.Lock()
	s.invalidRequest++
	s.mu.Unlock()
}

func (s *fakeStats) IncUnsupportedCommand() {
	s.mu.Lock()
	s.unsupportedCommand++
	s.mu.Unlock()
}

func (s *fakeStats) IncCommandTotal(name string) {
	s.mu.Lock()
	s.commandTotal[name]++
	s.mu.Unlock()
}

func cmdLine(parts ...string) *reply.MultiBulkReply {
	args := make([][]byte, len(parts))
	for i, p := range parts {
		args[i] = []byte(p)
	}
	return reply.MakeMultiBulkReply(args)
}

func awaitOne(t *testing.T, run func(done chan resp.Reply)) resp.Reply {
	t.Helper()
	done := make(chan resp.Reply, 1)
	run(done)
	select {
	case r := <-done:
		return r
	default:
		t.Fatal("expected a synchronous reply")
		return nil
	}
}

func TestSimpleCommandPassesThrough(t *testing.T) {
	pool := newFakePool()
	pool.replies["foo"] = reply.MakeBulkReply([]byte("bar"))
	stats := newFakeStats()
	inst := NewInstance(pool, stats)

	got := awaitOne(t, func(done chan resp.Reply) {
		inst.MakeRequest(cmdLine("GET", "foo"), func(r resp.Reply) { done <- r })
	})

	bulk, ok := got.(*reply.BulkReply)
	if !ok || string(bulk.Arg) != "bar" {
		t.Fatalf("expected bulk reply 'bar', got %#v", got)
	}
	if stats.commandTotal["get"] != 1 {
		t.Fatalf("expected get counter to be 1, got %d", stats.commandTotal["get"])
	}
}

func TestMGETMixesNoHostAndValues(t *testing.T) {
	pool := newFakePool()
	pool.replies["a"] = reply.MakeBulkReply([]byte("1"))
	pool.noHost["b"] = true
	pool.replies["c"] = reply.MakeBulkReply([]byte("3"))
	inst := NewInstance(pool, newFakeStats())

	got := awaitOne(t, func(done chan resp.Reply) {
		inst.MakeRequest(cmdLine("MGET", "a", "b", "c"), func(r resp.Reply) { done <- r })
	})

	multi, ok := got.(*reply.MultiRawReply)
	if !ok {
		t.Fatalf("expected MultiRawReply, got %#v", got)
	}
	if len(multi.Replies) != 3 {
		t.Fatalf("expected 3 elements, got %d", len(multi.Replies))
	}
	if bulk, ok := multi.Replies[0].(*reply.BulkReply); !ok || string(bulk.Arg) != "1" {
		t.Fatalf("element 0: expected bulk '1', got %#v", multi.Replies[0])
	}
	if errRep, ok := multi.Replies[1].(*reply.StandardErrReply); !ok || errRep.Error() != "no upstream host" {
		t.Fatalf("element 1: expected 'no upstream host' error, got %#v", multi.Replies[1])
	}
	if bulk, ok := multi.Replies[2].(*reply.BulkReply); !ok || string(bulk.Arg) != "3" {
		t.Fatalf("element 2: expected bulk '3', got %#v", multi.Replies[2])
	}
}

func TestMGETSingleKey(t *testing.T) {
	pool := newFakePool()
	pool.replies["only"] = reply.MakeBulkReply([]byte("v"))
	inst := NewInstance(pool, newFakeStats())

	got := awaitOne(t, func(done chan resp.Reply) {
		inst.MakeRequest(cmdLine("MGET", "only"), func(r resp.Reply) { done <- r })
	})

	multi, ok := got.(*reply.MultiRawReply)
	if !ok || len(multi.Replies) != 1 {
		t.Fatalf("expected one-element MultiRawReply, got %#v", got)
	}
}

func TestMSETAllOK(t *testing.T) {
	pool := newFakePool()
	pool.replies["k1"] = reply.MakeStatusReply("OK")
	pool.replies["k2"] = reply.MakeStatusReply("OK")
	inst := NewInstance(pool, newFakeStats())

	got := awaitOne(t, func(done chan resp.Reply) {
		inst.MakeRequest(cmdLine("MSET", "k1", "v1", "k2", "v2"), func(r resp.Reply) { done <- r })
	})

	status, ok := got.(*reply.StatusReply)
	if !ok || status.Status != "OK" {
		t.Fatalf("expected StatusReply OK, got %#v", got)
	}
}

func TestMSETWrongArity(t *testing.T) {
	pool := newFakePool()
	inst := NewInstance(pool, newFakeStats())

	got := awaitOne(t, func(done chan resp.Reply) {
		inst.MakeRequest(cmdLine("MSET", "k1", "v1", "k2"), func(r resp.Reply) { done <- r })
	})

	errRep, ok := got.(*reply.StandardErrReply)
	if !ok || errRep.Error() != "wrong number of arguments for 'MSET' command" {
		t.Fatalf("expected arity error, got %#v", got)
	}
	if len(pool.calls) != 0 {
		t.Fatalf("expected no pool activity, got %v", pool.calls)
	}
}

func TestDELSumsAcrossKeys(t *testing.T) {
	pool := newFakePool()
	pool.replies["a"] = reply.MakeIntReply(1)
	pool.replies["b"] = reply.MakeIntReply(0)
	inst := NewInstance(pool, newFakeStats())

	got := awaitOne(t, func(done chan resp.Reply) {
		inst.MakeRequest(cmdLine("DEL", "a", "b"), func(r resp.Reply) { done <- r })
	})

	intRep, ok := got.(*reply.IntReply)
	if !ok || intRep.Code != 1 {
		t.Fatalf("expected Integer(1), got %#v", got)
	}
}

func TestEvalRoutesBySingleKey(t *testing.T) {
	pool := newFakePool()
	pool.replies["k"] = reply.MakeIntReply(1)
	inst := NewInstance(pool, newFakeStats())

	got := awaitOne(t, func(done chan resp.Reply) {
		inst.MakeRequest(cmdLine("EVAL", "return 1", "1", "k"), func(r resp.Reply) { done <- r })
	})

	intRep, ok := got.(*reply.IntReply)
	if !ok || intRep.Code != 1 {
		t.Fatalf("expected Integer(1), got %#v", got)
	}
}

func TestEvalTooFewArgsIsArityError(t *testing.T) {
	pool := newFakePool()
	inst := NewInstance(pool, newFakeStats())

	got := awaitOne(t, func(done chan resp.Reply) {
		inst.MakeRequest(cmdLine("EVAL", "return 1", "0"), func(r resp.Reply) { done <- r })
	})

	errRep, ok := got.(*reply.StandardErrReply)
	if !ok || errRep.Error() != "wrong number of arguments for 'EVAL' command" {
		t.Fatalf("expected arity error, got %#v", got)
	}
}

func TestUnsupportedCommandIncrementsCounter(t *testing.T) {
	pool := newFakePool()
	stats := newFakeStats()
	inst := NewInstance(pool, stats)

	got := awaitOne(t, func(done chan resp.Reply) {
		inst.MakeRequest(cmdLine("FOOBAR", "x"), func(r resp.Reply) { done <- r })
	})

	errRep, ok := got.(*reply.StandardErrReply)
	if !ok || errRep.Error() != "unsupported command 'FOOBAR'" {
		t.Fatalf("expected unsupported command error, got %#v", got)
	}
	if stats.unsupportedCommand != 1 {
		t.Fatalf("expected unsupported_command counter to be 1, got %d", stats.unsupportedCommand)
	}
}

func TestInvalidRequestTooShort(t *testing.T) {
	pool := newFakePool()
	stats := newFakeStats()
	inst := NewInstance(pool, stats)

	got := awaitOne(t, func(done chan resp.Reply) {
		inst.MakeRequest(cmdLine("PING"), func(r resp.Reply) { done <- r })
	})

	errRep, ok := got.(*reply.StandardErrReply)
	if !ok || errRep.Error() != "invalid request" {
		t.Fatalf("expected invalid request error, got %#v", got)
	}
	if stats.invalidRequest != 1 {
		t.Fatalf("expected invalid_request counter to be 1, got %d", stats.invalidRequest)
	}
}

func TestLowercasingIsIdempotent(t *testing.T) {
	pool := newFakePool()
	pool.replies["foo"] = reply.MakeBulkReply([]byte("bar"))
	inst := NewInstance(pool, newFakeStats())

	lower := awaitOne(t, func(done chan resp.Reply) {
		inst.MakeRequest(cmdLine("get", "foo"), func(r resp.Reply) { done <- r })
	})
	mixed := awaitOne(t, func(done chan resp.Reply) {
		inst.MakeRequest(cmdLine("GeT", "foo"), func(r resp.Reply) { done <- r })
	})

	if string(lower.ToBytes()) != string(mixed.ToBytes()) {
		t.Fatalf("expected identical dispatch for 'get' and 'GeT', got %q vs %q", lower.ToBytes(), mixed.ToBytes())
	}
}

func TestCancelPreventsFurtherDelivery(t *testing.T) {
	// Deliberately no scripted reply for "a" or "b": MakeRequest will
	// still synchronously "complete" via the fake's default error path,
	// so drive this test through a pool that holds callbacks instead.
	holding := &holdingPool{}
	inst := NewInstance(holding, newFakeStats())

	var delivered int
	req := inst.MakeRequest(cmdLine("MGET", "a", "b"), func(r resp.Reply) { delivered++ })
	req.Cancel()
	req.Cancel() // idempotent

	holding.fireAll(reply.MakeBulkReply([]byte("late")))

	if delivered != 0 {
		t.Fatalf("expected no delivery after cancel, got %d deliveries", delivered)
	}
}

// holdingPool hands back a handle for every request but never calls the
// callback until fireAll is invoked, so tests can exercise cancellation
// before any child has answered.
type holdingPool struct {
	mu        sync.Mutex
	callbacks []upstream.Callback
}

func (p *holdingPool) GetHost(hashKey string) string { return "host" }

func (p *holdingPool) MakeRequest(hashKey string, args [][]byte, callback upstream.Callback) (upstream.Handle, bool) {
	p.mu.Lock()
	p.callbacks = append(p.callbacks, callback)
	p.mu.Unlock()
	return &fakeHandle{pool: newFakePool(), key: hashKey}, true
}

func (p *holdingPool) fireAll(rep resp.Reply) {
	p.mu.Lock()
	cbs := p.callbacks
	p.mu.Unlock()
	for _, cb := range cbs {
		cb(rep)
	}
}

// TestConnFailureBecomesUpstreamFailure drives a simple command through a
// pool that reports a connection failure (a dropped write, or a read that
// never parsed) instead of a real reply, and checks the client sees the
// spec's "upstream failure" error rather than raw transport error text.
func TestConnFailureBecomesUpstreamFailure(t *testing.T) {
	pool := newFakePool()
	pool.replies["foo"] = reply.MakeConnFailureReply(errBrokenPipe)
	inst := NewInstance(pool, newFakeStats())

	got := awaitOne(t, func(done chan resp.Reply) {
		inst.MakeRequest(cmdLine("GET", "foo"), func(r resp.Reply) { done <- r })
	})

	errRep, ok := got.(*reply.StandardErrReply)
	if !ok || errRep.Error() != "upstream failure" {
		t.Fatalf("expected 'upstream failure', got %#v", got)
	}
}

// TestMGETConnFailureChildBecomesUpstreamFailure checks the same
// normalization happens for one fragment of a fanned-out MGET: a
// connection failure on one key must not leak its raw error text into that
// key's slot.
func TestMGETConnFailureChildBecomesUpstreamFailure(t *testing.T) {
	pool := newFakePool()
	pool.replies["a"] = reply.MakeBulkReply([]byte("1"))
	pool.replies["b"] = reply.MakeConnFailureReply(errBrokenPipe)
	inst := NewInstance(pool, newFakeStats())

	got := awaitOne(t, func(done chan resp.Reply) {
		inst.MakeRequest(cmdLine("MGET", "a", "b"), func(r resp.Reply) { done <- r })
	})

	multi, ok := got.(*reply.MultiRawReply)
	if !ok || len(multi.Replies) != 2 {
		t.Fatalf("expected 2-element MultiRawReply, got %#v", got)
	}
	errRep, ok := multi.Replies[1].(*reply.StandardErrReply)
	if !ok || errRep.Error() != "upstream failure" {
		t.Fatalf("element 1: expected 'upstream failure', got %#v", multi.Replies[1])
	}
}

var errBrokenPipe = errBrokenPipeError{}

type errBrokenPipeError struct{}

func (errBrokenPipeError) Error() string { return "write tcp: broken pipe" }
