package splitter

import "redisplit/upstream"

// SimpleRequest passes a single-key command straight through to whichever
// upstream owns the key named by the command's second element (GET, SET,
// INCR, EXPIRE, and similar).
type SimpleRequest struct {
	singleServerRequest
}

func newSimpleRequest(pool upstream.Pool, args [][]byte, callback Callback) Request {
	req := &SimpleRequest{}
	req.callback = callback
	req.dispatch(pool, string(args[1]), args)
	return req
}
