package memcache

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/memshard/memshard/dlog"
	"github.com/memshard/memshard/errors"
	"github.com/memshard/memshard/hash2/hashring"
	"github.com/memshard/memshard/net2"
	"github.com/memshard/memshard/stats"
	"github.com/memshard/memshard/time2"
)

// Client configuration.  The zero value of every field selects its default.
type Options struct {
	// Defaults to dlog.NoopLogger.
	Logger dlog.Logger

	// Defaults to stats.NoOpStatsFactory.
	Stats stats.StatsFactory

	// Drives the reconnect timers.  Defaults to time2.DefaultScheduler.
	Scheduler time2.Scheduler

	// Used for the wait timeout and latency stats.  Defaults to
	// time2.DefaultClock.
	Clock time2.Clock

	// Socket options.  DialTimeout defaults to DefaultConnectTimeout and
	// WriteTimeout to WaitTimeout.
	Connection net2.ConnectionOptions

	// How long a request may wait for its response before the connection is
	// reset.  Defaults to DefaultWaitTimeout.
	WaitTimeout time.Duration

	// How often dead connections are retried.  Defaults to
	// DefaultReconnectInterval.
	ReconnectInterval time.Duration

	// Ring points per server.  Defaults to hashring.DefaultPointsPerNode.
	PointsPerServer int

	// Values announced larger than this are treated as a protocol error
	// and reset the connection.  Defaults to DefaultMaxValueSize.
	MaxValueSize int
}

func (o Options) withDefaults() Options {
	if o.Logger == nil {
		o.Logger = dlog.NoopLogger
	}
	if o.Stats == nil {
		o.Stats = stats.NoOpStatsFactory
	}
	if o.Scheduler == nil {
		o.Scheduler = time2.DefaultScheduler
	}
	if o.Clock == nil {
		o.Clock = time2.DefaultClock
	}
	if o.Connection.DialTimeout <= 0 {
		o.Connection.DialTimeout = DefaultConnectTimeout
	}
	if o.WaitTimeout <= 0 {
		o.WaitTimeout = DefaultWaitTimeout
	}
	if o.ReconnectInterval <= 0 {
		o.ReconnectInterval = DefaultReconnectInterval
	}
	if o.PointsPerServer <= 0 {
		o.PointsPerServer = hashring.DefaultPointsPerNode
	}
	if o.MaxValueSize <= 0 {
		o.MaxValueSize = DefaultMaxValueSize
	}
	if o.Connection.WriteTimeout <= 0 {
		o.Connection.WriteTimeout = o.WaitTimeout
	}
	return o
}

// A sharded memcache client.  Safe for concurrent use.
type Client struct {
	logger dlog.Logger
	conns  []*Connection
	ring   *ring
	closed int32
}

var _ Cache = &Client{}

// New creates one Connection per server (host:port, or unix:/path) and
// connects them.  Servers which cannot be reached are retried in the
// background, so New only fails on an empty server list.
func New(servers []string, options Options) (*Client, error) {
	if len(servers) == 0 {
		return nil, errors.New("No memcache servers configured")
	}

	options = options.withDefaults()
	connOptions := connectionOptions{
		dial:              options.Connection,
		wait:              options.WaitTimeout,
		maxValueSize:      options.MaxValueSize,
		reconnectInterval: options.ReconnectInterval,
		logger:            options.Logger,
		clock:             options.Clock,
		scheduler:         options.Scheduler,
		stats:             options.Stats,
	}

	conns := make([]*Connection, len(servers))
	for i, server := range servers {
		conns[i] = newConnection(server, connOptions)
	}

	wg := sync.WaitGroup{}
	for _, conn := range conns {
		wg.Add(1)
		go func(conn *Connection) {
			defer wg.Done()
			_ = conn.Connect(context.Background())
		}(conn)
	}
	wg.Wait()

	return &Client{
		logger: options.Logger,
		conns:  conns,
		ring:   newRing(conns, options.PointsPerServer, options.Stats),
	}, nil
}

// The connections, in server list order.
func (c *Client) Connections() []*Connection {
	return c.conns
}

// The connection owning key, ignoring liveness.
func (c *Client) ShardFor(key string) (*Connection, error) {
	key, err := ValidateKey(key)
	if err != nil {
		return nil, err
	}
	return c.conns[c.ring.shard(key)], nil
}

func (c *Client) isClosed() bool {
	return atomic.LoadInt32(&c.closed) != 0
}

// Validates the key, then runs build(key) against the key's connection.
func (c *Client) query(
	ctx context.Context,
	key string,
	build func(key string) *Command) (Reply, error) {

	if c.isClosed() {
		return Reply{}, ErrClientClosed
	}

	key, err := ValidateKey(key)
	if err != nil {
		return Reply{}, err
	}

	conn, err := c.ring.lookup(key)
	if err != nil {
		c.logger.Debugf("Memcache no connection available for %s", key)
		return noneReply(err), nil
	}

	reply := conn.Query(ctx, build(key))
	if reply.Err != nil {
		c.logger.Debugf("Memcache %s: %v", conn.Addr(), errors.GetMessage(reply.Err))
	}
	return reply, nil
}

func replyValue(reply Reply) []byte {
	if reply.Kind != ReplyValue {
		return nil
	}
	return reply.Value
}

func replyStored(reply Reply) bool {
	return reply.Kind == ReplyStatus && reply.Stored
}

func replyCounter(reply Reply) (uint64, bool) {
	if reply.Kind != ReplyValue {
		return 0, false
	}
	return parseCounter(reply.Value)
}

// See Cache for documentation.
func (c *Client) Get(ctx context.Context, key string) ([]byte, error) {
	reply, err := c.query(ctx, key, getCommand)
	return replyValue(reply), err
}

// See Cache for documentation.
func (c *Client) Gat(ctx context.Context, key string, ttl int) ([]byte, error) {
	reply, err := c.query(ctx, key, func(key string) *Command {
		return gatCommand(key, ttl)
	})
	return replyValue(reply), err
}

// See Cache for documentation.
func (c *Client) Set(
	ctx context.Context,
	key string,
	value []byte,
	ttl int) error {

	_, err := c.query(ctx, key, func(key string) *Command {
		return metaSetCommand(key, value, "", ttl)
	})
	return err
}

// See Cache for documentation.
func (c *Client) Add(
	ctx context.Context,
	key string,
	value []byte,
	ttl int) (bool, error) {

	reply, err := c.query(ctx, key, func(key string) *Command {
		return metaSetCommand(key, value, "ME", ttl)
	})
	return replyStored(reply), err
}

// See Cache for documentation.
func (c *Client) Replace(
	ctx context.Context,
	key string,
	value []byte,
	ttl int) (bool, error) {

	reply, err := c.query(ctx, key, func(key string) *Command {
		return metaSetCommand(key, value, "MR", ttl)
	})
	return replyStored(reply), err
}

// See Cache for documentation.
func (c *Client) Delete(ctx context.Context, key string) error {
	_, err := c.query(ctx, key, deleteCommand)
	return err
}

// See Cache for documentation.
func (c *Client) Touch(ctx context.Context, key string, ttl int) error {
	_, err := c.query(ctx, key, func(key string) *Command {
		return touchCommand(key, ttl)
	})
	return err
}

// See Cache for documentation.
func (c *Client) Increment(
	ctx context.Context,
	key string,
	offset uint64,
	initial uint64,
	ttl int) (uint64, bool, error) {

	reply, err := c.query(ctx, key, func(key string) *Command {
		return incrementCommand(key, offset, initial, ttl)
	})
	value, ok := replyCounter(reply)
	return value, ok, err
}

// See Cache for documentation.
func (c *Client) Decrement(
	ctx context.Context,
	key string,
	offset uint64,
	initial uint64,
	ttl int) (uint64, bool, error) {

	reply, err := c.query(ctx, key, func(key string) *Command {
		return decrementCommand(key, offset, initial, ttl)
	})
	value, ok := replyCounter(reply)
	return value, ok, err
}

// See Cache for documentation.  flush_all is sent to every live connection
// in parallel and each response is awaited, so no stray OK is left behind
// in any queue.
func (c *Client) Flush(ctx context.Context) error {
	if c.isClosed() {
		return ErrClientClosed
	}

	wg := sync.WaitGroup{}
	for _, conn := range c.conns {
		wg.Add(1)
		go func(conn *Connection) {
			defer wg.Done()
			reply := conn.Query(ctx, flushCommand())
			if !replyStored(reply) {
				c.logger.Infof("Memcache %s flush_all failed", conn.Addr())
			}
		}(conn)
	}
	wg.Wait()

	return nil
}

// See Cache for documentation.
func (c *Client) Close() error {
	if !atomic.CompareAndSwapInt32(&c.closed, 0, 1) {
		return nil
	}

	for _, conn := range c.conns {
		conn.shutdown()
	}
	return nil
}
