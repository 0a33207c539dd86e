package splitter

import (
	"sync"

	"redisplit/interface/resp"
	"redisplit/resp/reply"
	"redisplit/upstream"
)

// MSETRequest fans MSET key1 val1 ... keyN valN out to N single-pair SET
// sub-requests and folds the replies down to a single status: OK if every
// child answered SimpleString("OK"), otherwise an error naming how many
// did not.
type MSETRequest struct {
	mu         sync.Mutex
	fragments  []*pendingFragment
	numPending int
	errorCount int
	callback   Callback
	done       bool
}

func newMSETRequest(pool upstream.Pool, args [][]byte, callback Callback) Request {
	if (len(args)-1)%2 != 0 {
		callback(errArity(string(args[0])))
		return &MSETRequest{done: true}
	}

	n := (len(args) - 1) / 2
	req := &MSETRequest{
		numPending: n,
		callback:   callback,
		fragments:  make([]*pendingFragment, n),
	}
	for i := 0; i < n; i++ {
		key := args[1+2*i]
		val := args[2+2*i]
		frag := &pendingFragment{}
		req.fragments[i] = frag
		h, ok := pool.MakeRequest(string(key), [][]byte{[]byte("SET"), key, val}, func(value resp.Reply) {
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

func (r *MSETRequest) onChildResponse(value resp.Reply) {
	isOK := false
	if status, ok := value.(*reply.StatusReply); ok && status.Status == "OK" {
		isOK = true
	}
	if _, ok := value.(*reply.OkReply); ok {
		isOK = true
	}

	r.mu.Lock()
	if r.done {
		r.mu.Unlock()
		return
	}
	if !isOK {
		r.errorCount++
	}
	r.numPending--
	finished := r.numPending == 0
	errorCount := r.errorCount
	var out resp.Reply
	if finished {
		r.done = true
		if errorCount == 0 {
			out = reply.MakeStatusReply("OK")
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
func (r *MSETRequest) Cancel() {
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
