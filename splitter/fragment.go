package splitter

import (
	"sync"

	"redisplit/interface/resp"
	"redisplit/upstream"
)

// Callback is the consumer-provided completion handler for a client
// command: fired exactly once per accepted request, unless the request is
// cancelled first.
type Callback func(resp.Reply)

// Request is the lifetime handle a caller holds for an in-flight split.
// Cancel is idempotent; calling it after the reply has already been
// delivered is a no-op.
type Request interface {
	Cancel()
}

// pendingFragment is one outstanding sub-request a fragmented aggregate
// (MGET/MSET/SumAcrossKeys) has sent to one upstream. It owns a cancellable
// upstream.Handle and always hands its parent exactly one RESP value,
// turning pool failure into a synthesized upstream-failure error so the
// parent never has to tell "reply" apart from "failure".
type pendingFragment struct {
	mu      sync.Mutex
	handle  upstream.Handle
	retired bool
}

// setHandle records the handle the pool returned for this fragment's
// request. If the fragment has already produced its one response by the
// time this is called - the callback can run before MakeRequest returns
// to its caller - the handle is cancelled immediately instead of being
// stored, the same guard singleServerRequest.dispatch applies to its own
// handle.
func (f *pendingFragment) setHandle(h upstream.Handle) {
	f.mu.Lock()
	if f.retired {
		f.mu.Unlock()
		if h != nil {
			h.Cancel()
		}
		return
	}
	f.handle = h
	f.mu.Unlock()
}

// clear detaches the handle once the fragment has produced its one
// response, so a later cancel on the parent is a no-op for this fragment.
func (f *pendingFragment) clear() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handle = nil
	f.retired = true
}

// cancel asks the pool to give up on this fragment, if it is still live.
func (f *pendingFragment) cancel() {
	f.mu.Lock()
	h := f.handle
	f.handle = nil
	f.retired = true
	f.mu.Unlock()
	if h != nil {
		h.Cancel()
	}
}

// retire asserts that this fragment has already cleared its handle before
// its owning aggregate drops it. A live handle here means onChildResponse
// ran to completion without calling clear first - a bookkeeping bug, not a
// runtime condition worth tolerating, so this panics unconditionally
// rather than returning an error.
func (f *pendingFragment) retire() {
	f.mu.Lock()
	h := f.handle
	f.mu.Unlock()
	if h != nil {
		panic("splitter: pendingFragment retired with a live handle")
	}
}
