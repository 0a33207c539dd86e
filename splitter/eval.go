package splitter

import "redisplit/upstream"

// EvalRequest routes EVAL/EVALSHA by the script's first declared key.
// Shape: EVAL script numkeys key [key ...] arg [arg ...]; this splitter
// only supports scripts whose keys all belong to one shard, so it hashes
// on the first key (array index 3) and forwards the command unchanged.
type EvalRequest struct {
	singleServerRequest
}

func newEvalRequest(pool upstream.Pool, args [][]byte, callback Callback) Request {
	req := &EvalRequest{}
	req.callback = callback
	if len(args) < 4 {
		req.callback(errArity(string(args[0])))
		req.done = true
		return req
	}
	req.dispatch(pool, string(args[3]), args)
	return req
}
