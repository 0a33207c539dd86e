package splitter

import (
	"sync"

	"redisplit/interface/resp"
	"redisplit/resp/reply"
	"redisplit/upstream"
)

// SumAcrossKeysRequest covers commands whose per-key reply is an integer
// and whose client-visible reply is the sum across keys: DEL, EXISTS,
// TOUCH, UNLINK. One sub-request per key, each "<verb> key_i".
type SumAcrossKeysRequest struct {
	mu         sync.Mutex
	fragments  []*pendingFragment
	numPending int
	errorCount int
	total      int64
	callback   Callback
	done       bool
}

func newSumAcrossKeysRequest(pool upstream.Pool, args [][]byte, callback Callback) Request {
	n := len(args) - 1
	verb := args[0]
	req := &SumAcrossKeysRequest{
		numPending: n,
		callback:   callback,
		fragments:  make([]*pendingFragment, n),
	}
	for i := 0; i < n; i++ {
		key := args[i+1]
		frag := &pendingFragment{}
		req.fragments[i] = frag
		h, ok := pool.MakeRequest(string(key), [][]byte{verb, key}, func(value resp.Reply) {
			frag.clear()
			req.onChildResponse(normalizeUpstreamReply(value))
		})
		if !ok {
			req.onChildResponse(errNoUpstreamHost())
			continue
		}
		frag.setHandle(h)
	}
	return req
}

func (r *SumAcrossKeysRequest) onChildResponse(value resp.Reply) {
	n, isInt := value.(*reply.IntReply)

	r.mu.Lock()
	if r.done {
		r.mu.Unlock()
		return
	}
	if isInt {
		r.total += n.Code
	} else {
		r.errorCount++
	}
	r.numPending--
	finished := r.numPending == 0
	errorCount := r.errorCount
	total := r.total
	var out resp.Reply
	if finished {
		r.done = true
		if errorCount == 0 {
			out = reply.MakeIntReply(total)
		} else {
			out = errFinishedWith(errorCount)
		}
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
func (r *SumAcrossKeysRequest) Cancel() {
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
