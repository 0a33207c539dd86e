// Package upstream provides the splitter's one external collaborator: a
// pool of connections to the real Redis nodes behind the proxy, addressed
// by consistent-hashed key. It plays the role that Envoy's
// Redis::ConnPool::Instance plays for the C++ proxy this design is based
// on - getHost and makeRequest, with a cancellable handle per in-flight
// request - adapted onto pooled, pipelined resp/client.Client connections
// instead of one connection per thread-local shard.
package upstream

import (
	"context"
	"errors"

	pool "github.com/jolestar/go-commons-pool/v2"

	"redisplit/interface/resp"
	"redisplit/lib/consistenthash"
	"redisplit/resp/client"
)

// Callback receives the reply to a request made through the pool, exactly
// once, unless the returned Handle is cancelled first.
type Callback func(resp.Reply)

// Handle lets the caller give up on a request it no longer needs the
// answer to. Cancel is idempotent and safe to call after the reply has
// already arrived.
type Handle interface {
	Cancel()
}

// Pool is the seam the splitter core depends on. It never blocks: a
// request either gets a handle immediately or fails immediately with
// ok == false, the caller's cue to synthesize a "no upstream host" error.
type Pool interface {
	// GetHost returns the address of the node responsible for hashKey, or
	// "" if the pool has no nodes configured.
	GetHost(hashKey string) string
	// MakeRequest dispatches args to the node responsible for hashKey.
	// callback fires from a private goroutine once the node replies.
	MakeRequest(hashKey string, args [][]byte, callback Callback) (Handle, bool)
}

type connectionFactory struct {
	addr string
}

func (f *connectionFactory) MakeObject(ctx context.Context) (*pool.PooledObject, error) {
	c, err := client.MakeClient(f.addr)
	if err != nil {
		return nil, err
	}
	c.Start()
	return pool.NewPooledObject(c), nil
}

func (f *connectionFactory) DestroyObject(ctx context.Context, object *pool.PooledObject) error {
	c, ok := object.Object.(*client.Client)
	if !ok {
		return errors.New("connectionFactory: unexpected pooled object type")
	}
	c.Close()
	return nil
}

func (f *connectionFactory) ValidateObject(ctx context.Context, object *pool.PooledObject) bool {
	return true
}

func (f *connectionFactory) ActivateObject(ctx context.Context, object *pool.PooledObject) error {
	return nil
}

func (f *connectionFactory) PassivateObject(ctx context.Context, object *pool.PooledObject) error {
	return nil
}

// ConsistentHashPool shards hash keys across a fixed set of upstream hosts
// with consistent hashing, and keeps one connection pool of pipelined
// clients per host.
type ConsistentHashPool struct {
	hosts   []string
	picker  *consistenthash.NodeMap
	clients map[string]*pool.ObjectPool
}

// NewConsistentHashPool builds a Pool over hosts. Each host gets its own
// go-commons-pool object pool of resp/client.Client connections, built
// lazily on first use via the default pool config (matching the teacher's
// default of up to 8 idle connections per peer).
func NewConsistentHashPool(hosts []string) *ConsistentHashPool {
	p := &ConsistentHashPool{
		hosts:   append([]string(nil), hosts...),
		picker:  consistenthash.NewNodeMap(nil),
		clients: make(map[string]*pool.ObjectPool, len(hosts)),
	}
	p.picker.AddNode(hosts...)
	ctx := context.Background()
	for _, host := range hosts {
		host := host
		p.clients[host] = pool.NewObjectPoolWithDefaultConfig(ctx, &connectionFactory{addr: host})
	}
	return p
}

// GetHost implements Pool
func (p *ConsistentHashPool) GetHost(hashKey string) string {
	if len(p.hosts) == 0 {
		return ""
	}
	return p.picker.PickNode(hashKey)
}

type handle struct {
	inner *client.Handle
}

func (h *handle) Cancel() {
	if h == nil || h.inner == nil {
		return
	}
	h.inner.Cancel()
}

// MakeRequest implements Pool. The connection is borrowed only long enough
// to queue the request: Client pipelines and matches replies internally by
// FIFO order regardless of which caller queued them, so the pool slot is
// returned immediately rather than held for the round trip.
func (p *ConsistentHashPool) MakeRequest(hashKey string, args [][]byte, callback Callback) (Handle, bool) {
	host := p.GetHost(hashKey)
	if host == "" {
		return nil, false
	}
	objPool, ok := p.clients[host]
	if !ok {
		return nil, false
	}

	ctx := context.Background()
	raw, err := objPool.BorrowObject(ctx)
	if err != nil {
		return nil, false
	}
	c, ok := raw.(*client.Client)
	if !ok {
		_ = objPool.ReturnObject(ctx, raw)
		return nil, false
	}
	defer func() {
		_ = objPool.ReturnObject(context.Background(), c)
	}()

	inner := c.Go(args, callback)
	return &handle{inner: inner}, true
}
