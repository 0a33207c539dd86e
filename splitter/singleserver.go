package splitter

import (
	"sync"

	"redisplit/interface/resp"
	"redisplit/upstream"
)

// singleServerRequest is shared by SimpleRequest and EvalRequest: both
// submit exactly one sub-request and pass its reply straight through
// unchanged, normalizing a pool rejection into "no upstream host".
type singleServerRequest struct {
	mu       sync.Mutex
	handle   upstream.Handle
	callback Callback
	done     bool
}

func (r *singleServerRequest) dispatch(pool upstream.Pool, hashKey string, args [][]byte) {
	h, ok := pool.MakeRequest(hashKey, args, r.onResponse)
	if !ok {
		r.deliver(errNoUpstreamHost())
		return
	}
	r.mu.Lock()
	if !r.done {
		r.handle = h
	} else {
		h.Cancel()
	}
	r.mu.Unlock()
}

func (r *singleServerRequest) onResponse(value resp.Reply) {
	r.mu.Lock()
	r.handle = nil
	r.mu.Unlock()
	r.deliver(normalizeUpstreamReply(value))
}

func (r *singleServerRequest) deliver(value resp.Reply) {
	r.mu.Lock()
	if r.done {
		r.mu.Unlock()
		return
	}
	r.done = true
	r.mu.Unlock()
	r.callback(value)
}

// Cancel implements Request.
func (r *singleServerRequest) Cancel() {
	r.mu.Lock()
	h := r.handle
	r.handle = nil
	already := r.done
	r.done = true
	r.mu.Unlock()
	if !already && h != nil {
		h.Cancel()
	}
}
