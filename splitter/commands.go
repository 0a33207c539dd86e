package splitter

// Supported commands, by fragmentation strategy. In the proxy this
// specification is based on, these lists live in a separate module owned
// by the protocol layer; the splitter only ever treats them as read-only
// input to its dispatch table.
var (
	simpleCommands = []string{
		"get", "set", "setnx", "setex", "psetex", "append", "strlen",
		"incr", "incrby", "incrbyfloat", "decr", "decrby", "getset",
		"getrange", "setrange", "expire", "pexpire", "expireat",
		"pexpireat", "persist", "ttl", "pttl", "type", "ping",
		"hget", "hset", "hsetnx", "hdel", "hexists", "hgetall", "hkeys",
		"hvals", "hlen", "hincrby", "hincrbyfloat", "hmget", "hmset",
		"lpush", "rpush", "lpop", "rpop", "lrange", "llen", "lindex",
		"lset", "ltrim", "linsert", "lrem",
		"sadd", "srem", "smembers", "sismember", "scard", "spop",
		"zadd", "zrem", "zscore", "zrank", "zrange", "zrangebyscore",
		"zcard", "zincrby",
	}

	evalCommands = []string{"eval", "evalsha"}

	sumAcrossKeysCommands = []string{"del", "exists", "touch", "unlink"}
)
