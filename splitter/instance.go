// Package splitter implements the command splitter: it decides how to
// route or fragment a single client-issued Redis command across the
// upstream pool, then folds the per-shard replies into the one reply the
// client expects.
package splitter

import (
	"redisplit/interface/resp"
	"redisplit/lib/casefold"
	"redisplit/resp/reply"
	"redisplit/upstream"
)

// Stats is the counters the splitter maintains: one running total per
// registered command, plus the two failure counters that never map to a
// specific command.
type Stats interface {
	IncInvalidRequest()
	IncUnsupportedCommand()
	IncCommandTotal(name string)
}

type handlerFunc func(pool upstream.Pool, args [][]byte, callback Callback) Request

// Instance is the splitter's entry point: a command map built once at
// construction, immutable thereafter, plus the upstream pool and
// statistics sink every handler shares.
type Instance struct {
	pool       upstream.Pool
	stats      Stats
	commandMap map[string]handlerFunc
}

// NewInstance builds the command map and returns a ready Instance. The
// map is populated once here and never mutated again.
func NewInstance(pool upstream.Pool, stats Stats) *Instance {
	inst := &Instance{
		pool:       pool,
		stats:      stats,
		commandMap: make(map[string]handlerFunc),
	}

	for _, name := range simpleCommands {
		inst.commandMap[name] = newSimpleRequest
	}
	for _, name := range evalCommands {
		inst.commandMap[name] = newEvalRequest
	}
	for _, name := range sumAcrossKeysCommands {
		inst.commandMap[name] = newSumAcrossKeysRequest
	}
	inst.commandMap["mget"] = newMGETRequest
	inst.commandMap["mset"] = newMSETRequest

	return inst
}

// MakeRequest is the splitter's sole entry point. request must be the
// decoded command line; on any shape violation it replies "invalid
// request" and touches nothing else. On an unrecognized verb it replies
// "unsupported command '<verb>'". Otherwise it increments that command's
// counter and delegates to the registered handler, returning whatever
// Request the handler produced so the caller can cancel it.
func (inst *Instance) MakeRequest(request resp.Reply, callback Callback) Request {
	arr, ok := request.(*reply.MultiBulkReply)
	if !ok || len(arr.Args) < 2 {
		inst.stats.IncInvalidRequest()
		callback(errInvalidRequest())
		return nil
	}
	// Every element of a MultiBulkReply is already a bulk string by
	// construction (resp/parser never produces anything else inside one),
	// so the "every array element is a BulkString" precondition from the
	// design this splitter follows holds structurally and needs no
	// separate runtime check here.

	verb := arr.Args[0]
	lowered := casefold.ToLower(string(verb))

	handler, ok := inst.commandMap[lowered]
	if !ok {
		inst.stats.IncUnsupportedCommand()
		callback(errUnsupportedCommand(string(verb)))
		return nil
	}

	inst.stats.IncCommandTotal(lowered)
	return handler(inst.pool, arr.Args, callback)
}
