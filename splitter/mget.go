package splitter

import (
	"sync"

	"redisplit/interface/resp"
	"redisplit/resp/reply"
	"redisplit/upstream"
)

// MGETRequest fans a multi-key MGET out to one single-key MGET per key,
// dispatched in parallel, and folds the replies back into one array in the
// caller's original key order. Unlike MSET/SumAcrossKeys it always
// delivers once every child has answered, regardless of how many of them
// were errors: that is standard MGET semantics, where individual
// positions may legitimately be errors or nulls.
type MGETRequest struct {
	mu         sync.Mutex
	fragments  []*pendingFragment
	response   []resp.Reply
	numPending int
	errorCount int
	callback   Callback
	done       bool
}

func newMGETRequest(pool upstream.Pool, args [][]byte, callback Callback) Request {
	n := len(args) - 1
	req := &MGETRequest{
		response:   make([]resp.Reply, n),
		numPending: n,
		callback:   callback,
		fragments:  make([]*pendingFragment, n),
	}
	for i := 0; i < n; i++ {
		key := args[i+1]
		frag := &pendingFragment{}
		req.fragments[i] = frag
		index := i
		h, ok := pool.MakeRequest(string(key), [][]byte{[]byte("MGET"), key}, func(value resp.Reply) {
			frag.clear()
			req.onChildResponse(index, normalizeUpstreamReply(value))
		})
		if !ok {
			req.onChildResponse(index, errNoUpstreamHost())
			continue
		}
		frag.setHandle(h)
	}
	return req
}

// reduceMGETChild implements the §4.5 per-child reduction table: a
// BulkString passes through unchanged, an Error passes through and counts
// toward error_count, an Integer or SimpleString is a protocol mismatch,
// and a one-element Array (a defensive allowance for an upstream that
// answers a single-key MGET with an array rather than a bare bulk string)
// contributes its first element.
func reduceMGETChild(value resp.Reply) (slot resp.Reply, isError bool) {
	switch v := value.(type) {
	case *reply.BulkReply:
		return v, false
	case *reply.StandardErrReply:
		return v, true
	case *reply.MultiBulkReply:
		if len(v.Args) > 0 {
			return reply.MakeBulkReply(v.Args[0]), false
		}
		return reply.MakeNullBulkReply(), false
	case *reply.MultiRawReply:
		if len(v.Replies) > 0 {
			return v.Replies[0], false
		}
		return reply.MakeNullBulkReply(), false
	case *reply.NullArrayReply:
		return reply.MakeNullBulkReply(), false
	default:
		return errUpstreamProtocol(), true
	}
}

func (r *MGETRequest) onChildResponse(index int, value resp.Reply) {
	slot, isErr := reduceMGETChild(value)

	r.mu.Lock()
	if r.done {
		r.mu.Unlock()
		return
	}
	r.response[index] = slot
	if isErr {
		r.errorCount++
	}
	r.numPending--
	finished := r.numPending == 0
	var out resp.Reply
	if finished {
		r.done = true
		out = reply.MakeMultiRawReply(r.response)
	}
	r.mu.Unlock()

	if finished {
		for _, f := range r.fragments {
			if f != nil {
				f.retire()
			}
		}
		r.callback(out)
	}
}

// Cancel implements Request.
func (r *MGETRequest) Cancel() {
	r.mu.Lock()
	if r.done {
		r.mu.Unlock()
		return
	}
	r.done = true
	fragments := r.fragments
	r.mu.Unlock()

	for _, f := range fragments {
		if f != nil {
			f.cancel()
		}
	}
}
