package memcache

import (
	"context"
	"net"
	"sync"
	"time"

	"github.com/edwingeng/deque/v2"

	"github.com/memshard/memshard/dlog"
	"github.com/memshard/memshard/net2"
	"github.com/memshard/memshard/stats"
	"github.com/memshard/memshard/time2"
)

// A single pipelined link to one memcache server.  Requests are written in
// issue order and the server answers in the same order, so every decoded
// response belongs to the oldest pending request.
//
// The Connection object lives as long as its Client; only the socket comes
// and goes.  A repeating timer reconnects a dead socket unless the
// connection was closed on purpose.
type Connection struct {
	addr string

	dialOptions net2.ConnectionOptions
	wait        time.Duration
	logger      dlog.Logger
	clock       time2.Clock
	scheduler   time2.Scheduler
	timer       time2.Handle

	connects      stats.CounterStat
	connectErrors stats.CounterStat
	timeouts      stats.CounterStat
	pendingGauge  stats.GaugeStat
	latency       stats.SummaryStat

	// Serializes enqueue + write so that queue order matches wire order.
	writeMutex sync.Mutex

	// Guards everything below.
	mutex      sync.Mutex
	conn       net.Conn
	generation uint64
	closing    bool
	connecting bool
	pending    *deque.Deque[*Command]
	dec        *decoder
}

type connectionOptions struct {
	dial              net2.ConnectionOptions
	wait              time.Duration
	maxValueSize      int
	reconnectInterval time.Duration
	logger            dlog.Logger
	clock             time2.Clock
	scheduler         time2.Scheduler
	stats             stats.StatsFactory
}

// Builds the connection and starts its reconnect timer.  The socket is not
// opened until Connect (or the first timer tick).
func newConnection(addr string, options connectionOptions) *Connection {
	tags := map[string]string{"addr": addr}

	// A server which stops reading must not wedge the write path.
	dial := options.dial
	if dial.WriteTimeout <= 0 {
		dial.WriteTimeout = options.wait
	}

	dec := newDecoder(addr, options.maxValueSize, options.logger, options.stats)

	c := &Connection{
		addr:          addr,
		dialOptions:   dial,
		wait:          options.wait,
		logger:        options.logger,
		clock:         options.clock,
		scheduler:     options.scheduler,
		connects:      options.stats.NewCounter(statConnects, tags),
		connectErrors: options.stats.NewCounter(statConnectErrors, tags),
		timeouts:      options.stats.NewCounter(statTimeouts, tags),
		pendingGauge:  options.stats.NewGauge(statPending, tags),
		latency:       options.stats.NewSummary(statLatency, tags),
		pending:       deque.NewDeque[*Command](),
		dec:           dec,
	}

	c.timer = c.scheduler.Repeat(options.reconnectInterval, c.reconnectTick)
	return c
}

func (c *Connection) Addr() string {
	return c.addr
}

// True while the socket is open.
func (c *Connection) IsAlive() bool {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	return c.conn != nil
}

// The number of requests waiting for a response.
func (c *Connection) Pending() int {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	return c.pending.Len()
}

func (c *Connection) reconnectTick() {
	c.mutex.Lock()
	retry := c.conn == nil && !c.closing && !c.connecting
	c.mutex.Unlock()

	if retry {
		_ = c.connect(context.Background(), false)
	}
}

// Opens a fresh socket, dropping the current one (if any) first, and clears
// the closing flag.  Failures are logged and left to the reconnect timer.
func (c *Connection) Connect(ctx context.Context) error {
	return c.connect(ctx, true)
}

func (c *Connection) connect(ctx context.Context, explicit bool) error {
	c.mutex.Lock()
	if c.connecting || (c.closing && !explicit) {
		c.mutex.Unlock()
		return nil
	}
	c.connecting = true
	c.closing = false
	c.dropLocked(c.generation, ErrConnectionClosed)
	c.mutex.Unlock()

	conn, err := net2.Dial(ctx, c.addr, c.dialOptions)

	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.connecting = false

	if err != nil {
		c.connectErrors.Inc()
		connErr := newConnectionError(c.addr, err)
		c.logger.Infof("%s", connErr.GetMessage())
		return connErr
	}

	if c.closing {
		// Close was called while dialing.
		_ = conn.Close()
		return ErrConnectionClosed
	}

	c.connects.Inc()
	c.generation++
	c.conn = conn
	go c.readLoop(conn, c.generation)

	c.logger.Debugf("Memcache %s connected", c.addr)
	return nil
}

// Closes the socket and resolves every pending request with no result.
// The reconnect timer stays idle until Connect is called again.  Safe to
// call repeatedly.
func (c *Connection) Close() {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.closing = true
	c.dropLocked(c.generation, ErrConnectionClosed)
}

// Close, and stop the reconnect timer for good.
func (c *Connection) shutdown() {
	c.Close()
	c.scheduler.Cancel(c.timer)
}

// Drops the socket of the given generation (a later socket is left alone),
// fails all pending requests and clears the decoder.
func (c *Connection) drop(generation uint64, reason error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.dropLocked(generation, reason)
}

func (c *Connection) dropLocked(generation uint64, reason error) {
	if generation != c.generation {
		return
	}

	if c.conn != nil {
		_ = c.conn.Close()
		c.conn = nil
	}

	for c.pending.Len() > 0 {
		c.pending.PopBack().resolve(noneReply(reason))
		c.pendingGauge.Dec()
	}
	c.dec.reset()
}

// See replySink.
func (c *Connection) head() *Command {
	cmd, _ := c.pending.Back()
	return cmd
}

// See replySink.
func (c *Connection) answer(reply Reply) bool {
	if c.pending.Len() == 0 {
		return false
	}
	c.pending.PopBack().resolve(reply)
	c.pendingGauge.Dec()
	return true
}

func (c *Connection) readLoop(conn net.Conn, generation uint64) {
	buf := make([]byte, readBufferSize)
	for {
		n, err := conn.Read(buf)
		if n > 0 {
			c.mutex.Lock()
			if c.generation != generation {
				c.mutex.Unlock()
				return
			}

			if protoErr := c.dec.feed(buf[:n], c); protoErr != nil {
				c.logger.Warningf(
					"%s, resetting connection",
					protoErr.GetMessage())
				c.dropLocked(generation, protoErr)
				c.mutex.Unlock()
				return
			}
			c.mutex.Unlock()
		}

		if err != nil {
			c.mutex.Lock()
			if c.generation == generation && c.conn != nil {
				c.logger.Infof("Memcache %s connection lost: %v", c.addr, err)
				c.dropLocked(generation, ErrConnectionClosed)
			}
			c.mutex.Unlock()
			return
		}
	}
}

// Sends cmd and waits for its response.  No-reply commands return
// immediately after the write.  A write that cannot complete within the
// write timeout (the wait timeout unless set explicitly) resets the
// connection.  A request not answered within the wait
// timeout resets the connection (failing every other pending request) and
// returns a ReplyNone carrying a TimeoutError.  Cancelling ctx abandons only
// this caller's wait.
func (c *Connection) Query(ctx context.Context, cmd *Command) Reply {
	c.writeMutex.Lock()

	c.mutex.Lock()
	conn := c.conn
	generation := c.generation
	if conn == nil {
		c.mutex.Unlock()
		c.writeMutex.Unlock()
		c.logger.Debugf("Memcache %s not connected", c.addr)
		return noneReply(ErrNotConnected)
	}
	if !cmd.noReply {
		c.pending.PushFront(cmd)
		c.pendingGauge.Inc()
	}
	c.mutex.Unlock()

	_, err := conn.Write(cmd.buffer())
	c.writeMutex.Unlock()

	if err != nil {
		c.logger.Infof("Memcache %s query error: %v", c.addr, err)
		c.drop(generation, ErrConnectionClosed)
		return noneReply(ErrConnectionClosed)
	}

	if cmd.noReply {
		return noneReply(nil)
	}

	start := c.clock.Now()
	select {
	case reply := <-cmd.done:
		c.latency.Observe(
			float64(c.clock.Since(start)) / float64(time.Millisecond))
		return reply
	case <-c.clock.After(c.wait):
		c.timeouts.Inc()
		c.logger.Infof("Memcache %s query timeout, reconnect", c.addr)
		c.drop(generation, ErrConnectionClosed)
		return noneReply(newTimeoutError(c.addr, c.wait))
	case <-ctx.Done():
		return noneReply(ctx.Err())
	}
}
