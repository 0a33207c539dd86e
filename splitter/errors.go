package splitter

import (
	"fmt"

	"redisplit/interface/resp"
	"redisplit/resp/reply"
)

// makeError builds the one error shape the splitter ever hands back to a
// client: a plain RESP Error carrying a short, lowercase message. It never
// reuses the RESP-layer error types in resp/reply that mimic real Redis
// server errors (those belong to a fake upstream, not to the splitter).
func makeError(text string) *reply.StandardErrReply {
	return reply.MakeErrReply(text)
}

func errArity(cmd string) *reply.StandardErrReply {
	return makeError(fmt.Sprintf("wrong number of arguments for '%s' command", cmd))
}

func errNoUpstreamHost() *reply.StandardErrReply {
	return makeError("no upstream host")
}

func errUpstreamFailure() *reply.StandardErrReply {
	return makeError("upstream failure")
}

func errUpstreamProtocol() *reply.StandardErrReply {
	return makeError("upstream protocol error")
}

func errUnsupportedCommand(cmd string) *reply.StandardErrReply {
	return makeError(fmt.Sprintf("unsupported command '%s'", cmd))
}

func errInvalidRequest() *reply.StandardErrReply {
	return makeError("invalid request")
}

func errFinishedWith(n int) *reply.StandardErrReply {
	return makeError(fmt.Sprintf("finished with %d error(s)", n))
}

// normalizeUpstreamReply recognizes a resp/client connection failure and
// folds it into the splitter's own "upstream failure" error, so a dropped
// write or an unparsable reply from the wire never reaches a caller
// wrapped in arbitrary OS/network error text. Every path that hands a pool
// callback's value to a fragment or a single-server request runs it
// through here first.
func normalizeUpstreamReply(value resp.Reply) resp.Reply {
	if _, ok := value.(*reply.ConnFailureReply); ok {
		return errUpstreamFailure()
	}
	return value
}
