package splitter_test

import (
	"net"
	"sync"
	"testing"
	"time"

	"redisplit/internal/fakeredis"
	"redisplit/interface/resp"
	"redisplit/resp/reply"
	"redisplit/splitter"
	"redisplit/tcp"
	"redisplit/upstream"
)

// startFakeredis boots an internal/fakeredis node on an OS-assigned port
// and returns its address, tearing the listener down when the test ends.
func startFakeredis(t *testing.T) string {
	t.Helper()
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to bind fakeredis listener: %v", err)
	}
	closeChan := make(chan struct{})
	go tcp.ListenAndServe(listener, fakeredis.NewHandler(), closeChan)
	t.Cleanup(func() { close(closeChan) })
	return listener.Addr().String()
}

type countingStats struct {
	mu    sync.Mutex
	total map[string]int
}

func newCountingStats() *countingStats { return &countingStats{total: make(map[string]int)} }
func (s *countingStats) IncInvalidRequest()     {}
func (s *countingStats) IncUnsupportedCommand() {}
func (s *countingStats) IncCommandTotal(name string) {
	s.mu.Lock()
	s.total[name]++
	s.mu.Unlock()
}

func cmd(parts ...string) *reply.MultiBulkReply {
	args := make([][]byte, len(parts))
	for i, p := range parts {
		args[i] = []byte(p)
	}
	return reply.MakeMultiBulkReply(args)
}

func await(t *testing.T, inst *splitter.Instance, r *reply.MultiBulkReply) resp.Reply {
	t.Helper()
	done := make(chan resp.Reply, 1)
	inst.MakeRequest(r, func(rep resp.Reply) { done <- rep })
	select {
	case rep := <-done:
		return rep
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for splitter reply")
		return nil
	}
}

func TestSplitterAgainstRealUpstreams(t *testing.T) {
	hostA := startFakeredis(t)
	hostB := startFakeredis(t)

	pool := upstream.NewConsistentHashPool([]string{hostA, hostB})
	stats := newCountingStats()
	inst := splitter.NewInstance(pool, stats)

	// SET then GET round-trips through a real (fake) upstream node.
	setRep := await(t, inst, cmd("SET", "greeting", "hello"))
	if status, ok := setRep.(*reply.StatusReply); !ok || status.Status != "OK" {
		if _, ok := setRep.(*reply.OkReply); !ok {
			t.Fatalf("SET: expected OK, got %#v", setRep)
		}
	}

	getRep := await(t, inst, cmd("GET", "greeting"))
	bulk, ok := getRep.(*reply.BulkReply)
	if !ok || string(bulk.Arg) != "hello" {
		t.Fatalf("GET: expected bulk 'hello', got %#v", getRep)
	}

	// MSET fans out across both shards, then MGET reassembles in order.
	msetRep := await(t, inst, cmd("MSET", "k1", "v1", "k2", "v2", "k3", "v3"))
	if status, ok := msetRep.(*reply.StatusReply); !ok || status.Status != "OK" {
		t.Fatalf("MSET: expected OK, got %#v", msetRep)
	}

	mgetRep := await(t, inst, cmd("MGET", "k1", "k2", "k3", "missing"))
	multi, ok := mgetRep.(*reply.MultiRawReply)
	if !ok || len(multi.Replies) != 4 {
		t.Fatalf("MGET: expected 4-element MultiRawReply, got %#v", mgetRep)
	}
	want := []string{"v1", "v2", "v3"}
	for i, w := range want {
		b, ok := multi.Replies[i].(*reply.BulkReply)
		if !ok || string(b.Arg) != w {
			t.Errorf("MGET[%d]: expected %q, got %#v", i, w, multi.Replies[i])
		}
	}
	if b, ok := multi.Replies[3].(*reply.BulkReply); !ok || b.Arg != nil {
		t.Errorf("MGET[3] (missing key): expected a null bulk reply, got %#v", multi.Replies[3])
	}

	// DEL sums across both shards.
	delRep := await(t, inst, cmd("DEL", "k1", "k2", "k3", "missing"))
	intRep, ok := delRep.(*reply.IntReply)
	if !ok || intRep.Code != 3 {
		t.Fatalf("DEL: expected Integer(3), got %#v", delRep)
	}

	// EVAL routes by its declared single key.
	evalRep := await(t, inst, cmd("EVAL", "return 1", "1", "greeting"))
	if _, ok := evalRep.(*reply.IntReply); !ok {
		t.Fatalf("EVAL: expected an integer reply, got %#v", evalRep)
	}

	stats.mu.Lock()
	defer stats.mu.Unlock()
	for _, verb := range []string{"set", "get", "mset", "mget", "del", "eval"} {
		if stats.total[verb] == 0 {
			t.Errorf("expected command_total to have counted %q at least once", verb)
		}
	}
}
