package fakeredis

import (
	"redisplit/interface/resp"
	"redisplit/lib/casefold"
	"redisplit/resp/reply"
)

// execFunc is a command executor: args never include the verb itself.
type execFunc func(s *store, args [][]byte) resp.Reply

type command struct {
	executor execFunc
	arity    int // counts the verb; arity < 0 means at least -arity
}

var cmdTable = make(map[string]*command)

func registerCommand(name string, executor execFunc, arity int) {
	cmdTable[casefold.ToLower(name)] = &command{executor: executor, arity: arity}
}

func validateArity(arity int, args [][]byte) bool {
	if arity >= 0 {
		return len(args) == arity
	}
	return len(args) >= -arity
}

func execGet(s *store, args [][]byte) resp.Reply {
	val, ok := s.get(string(args[0]))
	if !ok {
		return reply.MakeNullBulkReply()
	}
	return reply.MakeBulkReply(val)
}

func execMGet(s *store, args [][]byte) resp.Reply {
	vals := make([][]byte, len(args))
	for i, a := range args {
		if val, ok := s.get(string(a)); ok {
			vals[i] = val
		}
	}
	return reply.MakeMultiBulkReply(vals)
}

func execSet(s *store, args [][]byte) resp.Reply {
	s.set(string(args[0]), args[1])
	return reply.MakeOkReply()
}

func execSetNX(s *store, args [][]byte) resp.Reply {
	return reply.MakeIntReply(int64(s.setnx(string(args[0]), args[1])))
}

func execDel(s *store, args [][]byte) resp.Reply {
	keys := make([]string, len(args))
	for i, a := range args {
		keys[i] = string(a)
	}
	return reply.MakeIntReply(int64(s.del(keys...)))
}

func execExists(s *store, args [][]byte) resp.Reply {
	keys := make([]string, len(args))
	for i, a := range args {
		keys[i] = string(a)
	}
	return reply.MakeIntReply(int64(s.exists(keys...)))
}

func execPing(s *store, args [][]byte) resp.Reply {
	return reply.MakeStatusReply("PONG")
}

// execEval is a stand-in for Lua evaluation: fakeredis has no scripting
// engine, so it just reports a constant, which is enough to exercise the
// splitter's single-key EVAL routing end to end.
func execEval(s *store, args [][]byte) resp.Reply {
	return reply.MakeIntReply(1)
}

func init() {
	registerCommand("get", execGet, 2)
	registerCommand("mget", execMGet, -2)
	registerCommand("set", execSet, 3)
	registerCommand("setnx", execSetNX, 3)
	registerCommand("del", execDel, -2)
	registerCommand("exists", execExists, -2)
	registerCommand("touch", execExists, -2)
	registerCommand("unlink", execDel, -2)
	registerCommand("ping", execPing, -1)
	registerCommand("eval", execEval, -3)
	registerCommand("evalsha", execEval, -3)
}
