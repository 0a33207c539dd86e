package reply

// UnknownErrReply is a generic, unspecified error.
type UnknownErrReply struct{}

var unknownErrBytes = []byte("-Err unknown\r\n")

// ToBytes marshal redis.Reply
func (r *UnknownErrReply) ToBytes() []byte {
	return unknownErrBytes
}

func (r *UnknownErrReply) Error() string {
	return "Err unknown"
}

// ArgNumErrReply is the Redis-style wrong-arity error ("-ERR wrong number of
// arguments for '<cmd>' command"), as a fake upstream node would send it.
// The splitter core builds its own unprefixed arity error text directly
// (see splitter.errArity) rather than reusing this type, since the two
// error vocabularies are not the same.
type ArgNumErrReply struct {
	Cmd string
}

// ToBytes marshal redis.Reply
func (r *ArgNumErrReply) ToBytes() []byte {
	return []byte("-ERR wrong number of arguments for '" + r.Cmd + "' command\r\n")
}

func (r *ArgNumErrReply) Error() string {
	return "ERR wrong number of arguments for '" + r.Cmd + "' command"
}

// MakeArgNumErrReply creates an ArgNumErrReply
func MakeArgNumErrReply(cmd string) *ArgNumErrReply {
	return &ArgNumErrReply{
		Cmd: cmd,
	}
}

// SyntaxErrReply represents a malformed command line
type SyntaxErrReply struct{}

var syntaxErrBytes = []byte("-Err syntax error\r\n")
var theSyntaxErrReply = &SyntaxErrReply{}

// MakeSyntaxErrReply returns the shared SyntaxErrReply
func MakeSyntaxErrReply() *SyntaxErrReply {
	return theSyntaxErrReply
}

// ToBytes marshal redis.Reply
func (r *SyntaxErrReply) ToBytes() []byte {
	return syntaxErrBytes
}

func (r *SyntaxErrReply) Error() string {
	return "Err syntax error"
}

// WrongTypeErrReply represents an operation against a key holding the wrong
// kind of value
type WrongTypeErrReply struct{}

var wrongTypeErrBytes = []byte("-WRONGTYPE Operation against a key holding the wrong kind of value\r\n")

// ToBytes marshal redis.Reply
func (r *WrongTypeErrReply) ToBytes() []byte {
	return wrongTypeErrBytes
}

func (r *WrongTypeErrReply) Error() string {
	return "WRONGTYPE Operation against a key holding the wrong kind of value"
}

// ConnFailureReply marks a reply that never came from the upstream protocol
// at all: the write to the connection failed, or the connection produced
// something that didn't parse as a reply. resp/client.Client hands this to
// a fragment callback in place of a real reply so the splitter can tell a
// dead connection apart from an upstream that legitimately answered with
// an error, instead of forwarding raw OS/network error text to a client.
type ConnFailureReply struct {
	Err error
}

// ToBytes marshal redis.Reply
func (r *ConnFailureReply) ToBytes() []byte {
	return []byte("-ERR upstream connection failure\r\n")
}

func (r *ConnFailureReply) Error() string {
	return r.Err.Error()
}

// MakeConnFailureReply creates a ConnFailureReply
func MakeConnFailureReply(err error) *ConnFailureReply {
	return &ConnFailureReply{Err: err}
}

// ProtocolErrReply represents a byte sequence that does not parse as RESP
type ProtocolErrReply struct {
	Msg string
}

// ToBytes marshal redis.Reply
func (r *ProtocolErrReply) ToBytes() []byte {
	return []byte("-ERR Protocol error: '" + r.Msg + "'\r\n")
}

func (r *ProtocolErrReply) Error() string {
	return "ERR Protocol error: '" + r.Msg
}
