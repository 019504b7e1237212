package memcache

import (
	"context"
	"net"
	"time"

	. "gopkg.in/check.v1"

	"github.com/memshard/memshard/dlog"
	"github.com/memshard/memshard/errors"
	. "github.com/memshard/memshard/gocheck2"
	"github.com/memshard/memshard/net2"
	"github.com/memshard/memshard/stats"
	"github.com/memshard/memshard/time2"
)

// Polls cond for up to 5 seconds.
func waitFor(c *C, what string, cond func() bool) {
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			c.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(time.Millisecond)
	}
}

func testConnectionOptions(
	clock time2.Clock,
	scheduler time2.Scheduler) connectionOptions {

	return connectionOptions{
		dial:              net2.ConnectionOptions{DialTimeout: time.Second},
		wait:              5 * time.Second,
		reconnectInterval: DefaultReconnectInterval,
		logger:            dlog.NoopLogger,
		clock:             clock,
		scheduler:         scheduler,
		stats:             stats.NoOpStatsFactory,
	}
}

type ConnectionSuite struct {
	server    *fakeServer
	scheduler *time2.ManualScheduler
	conn      *Connection
}

var _ = Suite(&ConnectionSuite{})

func (s *ConnectionSuite) SetUpTest(c *C) {
	var err error
	s.server, err = newFakeServer()
	c.Assert(err, IsNil)

	s.scheduler = time2.NewManualScheduler()
	s.conn = newConnection(
		s.server.Addr(),
		testConnectionOptions(time2.DefaultClock, s.scheduler))
}

func (s *ConnectionSuite) TearDownTest(c *C) {
	s.conn.shutdown()
	s.server.Close()
}

func (s *ConnectionSuite) TestQuery(c *C) {
	c.Assert(s.conn.Connect(context.Background()), IsNil)
	c.Assert(s.conn.IsAlive(), IsTrue)
	c.Assert(s.conn.Addr(), Equals, s.server.Addr())

	ctx := context.Background()

	reply := s.conn.Query(ctx, getCommand("k"))
	c.Assert(reply, DeepEquals, noneReply(nil))

	reply = s.conn.Query(ctx, metaSetCommand("k", []byte("v1"), "", 60))
	c.Assert(reply, DeepEquals, statusReply(true))

	reply = s.conn.Query(ctx, getCommand("k"))
	c.Assert(reply.Kind, Equals, ReplyValue)
	c.Assert(reply.Value, BytesEquals, "v1")

	c.Assert(s.conn.Pending(), Equals, 0)
	c.Assert(s.server.Lines(), DeepEquals, []string{"get k", "ms k 2 T60", "get k"})
}

func (s *ConnectionSuite) TestNotConnected(c *C) {
	reply := s.conn.Query(context.Background(), getCommand("k"))
	c.Assert(reply.Kind, Equals, ReplyNone)
	c.Assert(reply.Err, Equals, ErrNotConnected)
	c.Assert(s.server.Lines(), HasLen, 0)
}

func (s *ConnectionSuite) TestNoReply(c *C) {
	c.Assert(s.conn.Connect(context.Background()), IsNil)

	reply := s.conn.Query(context.Background(), deleteCommand("k"))
	c.Assert(reply, DeepEquals, noneReply(nil))
	c.Assert(s.conn.Pending(), Equals, 0)

	waitFor(c, "delete to arrive", func() bool {
		return len(s.server.Lines()) == 1
	})
	c.Assert(s.server.Lines()[0], Equals, "delete k noreply")
}

func (s *ConnectionSuite) TestCloseFailsPending(c *C) {
	c.Assert(s.conn.Connect(context.Background()), IsNil)
	s.server.SetBlackhole(true)

	replies := make(chan Reply, 1)
	go func() {
		replies <- s.conn.Query(context.Background(), getCommand("k"))
	}()
	waitFor(c, "pending request", func() bool {
		return s.conn.Pending() == 1
	})

	s.conn.Close()
	reply := <-replies
	c.Assert(reply.Kind, Equals, ReplyNone)
	c.Assert(reply.Err, Equals, ErrConnectionClosed)
	c.Assert(s.conn.IsAlive(), IsFalse)
	c.Assert(s.conn.Pending(), Equals, 0)

	// Idempotent.
	s.conn.Close()

	// An intentionally closed connection is left alone by the timer...
	s.scheduler.Fire()
	c.Assert(s.conn.IsAlive(), IsFalse)

	// ... until it is explicitly reopened.
	s.server.SetBlackhole(false)
	c.Assert(s.conn.Connect(context.Background()), IsNil)
	c.Assert(s.conn.IsAlive(), IsTrue)
	c.Assert(
		s.conn.Query(context.Background(), flushCommand()),
		DeepEquals,
		statusReply(true))
}

func (s *ConnectionSuite) TestContextCancelAbandonsOnlyTheWait(c *C) {
	c.Assert(s.conn.Connect(context.Background()), IsNil)
	s.server.SetBlackhole(true)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	reply := s.conn.Query(ctx, getCommand("k"))
	c.Assert(reply.Kind, Equals, ReplyNone)
	c.Assert(reply.Err, Equals, context.Canceled)

	c.Assert(s.conn.IsAlive(), IsTrue)
	c.Assert(s.conn.Pending(), Equals, 1)
}

func (s *ConnectionSuite) TestServerGoneIsReconnectedByTimer(c *C) {
	c.Assert(s.conn.Connect(context.Background()), IsNil)

	addr := s.server.Addr()
	s.server.Close()
	waitFor(c, "connection to drop", func() bool {
		return !s.conn.IsAlive()
	})

	// Still down.
	s.scheduler.Fire()
	c.Assert(s.conn.IsAlive(), IsFalse)

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		c.Skip("cannot rebind " + addr)
	}
	restarted := &fakeServer{
		listener: listener,
		data:     make(map[string][]byte),
		conns:    make(map[net.Conn]struct{}),
	}
	go restarted.serve()
	defer restarted.Close()

	s.scheduler.Fire()
	c.Assert(s.conn.IsAlive(), IsTrue)
	c.Assert(
		s.conn.Query(context.Background(), getCommand("k")),
		DeepEquals,
		noneReply(nil))
}

func (s *ConnectionSuite) TestConnectFailure(c *C) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	c.Assert(err, IsNil)
	addr := listener.Addr().String()
	listener.Close()

	conn := newConnection(addr, testConnectionOptions(time2.DefaultClock, s.scheduler))
	defer conn.shutdown()

	err = conn.Connect(context.Background())
	var connErr *ConnectionError
	c.Assert(errors.As(err, &connErr), IsTrue)
	c.Assert(connErr.Addr, Equals, addr)
	c.Assert(conn.IsAlive(), IsFalse)
}

func (s *ConnectionSuite) TestShutdownCancelsTimer(c *C) {
	c.Assert(s.scheduler.Active(), Equals, 1)
	c.Assert(s.scheduler.Interval(s.conn.timer), Equals, DefaultReconnectInterval)

	s.conn.shutdown()
	c.Assert(s.scheduler.Active(), Equals, 0)
}

type TimeoutSuite struct {
	server    *fakeServer
	clock     *time2.MockClock
	scheduler *time2.ManualScheduler
	conn      *Connection
}

var _ = Suite(&TimeoutSuite{})

func (s *TimeoutSuite) SetUpTest(c *C) {
	var err error
	s.server, err = newFakeServer()
	c.Assert(err, IsNil)

	s.clock = &time2.MockClock{}
	s.scheduler = time2.NewManualScheduler()

	options := testConnectionOptions(s.clock, s.scheduler)
	options.wait = DefaultWaitTimeout
	s.conn = newConnection(s.server.Addr(), options)
	c.Assert(s.conn.Connect(context.Background()), IsNil)
}

func (s *TimeoutSuite) TearDownTest(c *C) {
	s.conn.shutdown()
	s.server.Close()
}

func (s *TimeoutSuite) TestTimeoutResetsConnection(c *C) {
	ctx := context.Background()
	c.Assert(
		s.conn.Query(ctx, metaSetCommand("k", []byte("v"), "", 0)),
		DeepEquals,
		statusReply(true))

	s.server.SetBlackhole(true)

	replies := make(chan Reply, 1)
	go func() {
		replies <- s.conn.Query(ctx, getCommand("k"))
	}()
	// The set above left its own (unfired) waiter behind.
	waitFor(c, "query to start waiting", func() bool {
		return s.clock.NumWaiters() == 2
	})

	s.clock.Advance(DefaultWaitTimeout - time.Millisecond)
	select {
	case <-replies:
		c.Fatal("timed out early")
	default:
	}

	s.clock.Advance(time.Millisecond)
	reply := <-replies
	c.Assert(reply.Kind, Equals, ReplyNone)

	var timeoutErr *TimeoutError
	c.Assert(errors.As(reply.Err, &timeoutErr), IsTrue)
	c.Assert(timeoutErr.Wait, Equals, DefaultWaitTimeout)
	c.Assert(timeoutErr.Addr, Equals, s.server.Addr())

	c.Assert(s.conn.IsAlive(), IsFalse)
	c.Assert(s.conn.Pending(), Equals, 0)

	// The next reconnect tick restores the link.
	s.server.SetBlackhole(false)
	s.scheduler.Fire()
	c.Assert(s.conn.IsAlive(), IsTrue)

	reply = s.conn.Query(ctx, getCommand("k"))
	c.Assert(reply.Value, BytesEquals, "v")
}

// A server under test control: the test reads requests and writes raw
// responses itself.
type ScriptedSuite struct {
	listener  net.Listener
	accepted  chan net.Conn
	scheduler *time2.ManualScheduler
	conn      *Connection
	server    net.Conn
}

var _ = Suite(&ScriptedSuite{})

func (s *ScriptedSuite) SetUpTest(c *C) {
	var err error
	s.listener, err = net.Listen("tcp", "127.0.0.1:0")
	c.Assert(err, IsNil)

	s.accepted = make(chan net.Conn, 4)
	go func() {
		for {
			conn, err := s.listener.Accept()
			if err != nil {
				return
			}
			s.accepted <- conn
		}
	}()

	s.scheduler = time2.NewManualScheduler()
	s.conn = newConnection(
		s.listener.Addr().String(),
		testConnectionOptions(time2.DefaultClock, s.scheduler))
	c.Assert(s.conn.Connect(context.Background()), IsNil)
	s.server = <-s.accepted
}

func (s *ScriptedSuite) TearDownTest(c *C) {
	s.conn.shutdown()
	s.server.Close()
	s.listener.Close()
}

func (s *ScriptedSuite) write(c *C, data string) {
	_, err := s.server.Write([]byte(data))
	c.Assert(err, IsNil)
}

func (s *ScriptedSuite) TestPipelinedRepliesResolveInOrder(c *C) {
	ctx := context.Background()

	setReplies := make(chan Reply, 1)
	go func() {
		setReplies <- s.conn.Query(ctx, metaSetCommand("k", []byte("v"), "", 0))
	}()
	waitFor(c, "set to queue", func() bool {
		return s.conn.Pending() == 1
	})

	getReplies := make(chan Reply, 1)
	go func() {
		getReplies <- s.conn.Query(ctx, getCommand("k"))
	}()
	waitFor(c, "get to queue", func() bool {
		return s.conn.Pending() == 2
	})

	// Both answers in one segment.
	s.write(c, "HD\r\nVALUE k 0 1\r\nv\r\nEND\r\n")

	c.Assert(<-setReplies, DeepEquals, statusReply(true))
	c.Assert((<-getReplies).Value, BytesEquals, "v")
}

func (s *ScriptedSuite) TestSplitSegments(c *C) {
	replies := make(chan Reply, 1)
	go func() {
		replies <- s.conn.Query(context.Background(), getCommand("k"))
	}()
	waitFor(c, "get to queue", func() bool {
		return s.conn.Pending() == 1
	})

	for _, part := range []string{"VAL", "UE k 0 4\r\na\r", "\nb", "\r\nE", "ND\r\n"} {
		s.write(c, part)
		time.Sleep(2 * time.Millisecond)
	}

	c.Assert((<-replies).Value, BytesEquals, "a\r\nb")
}

func (s *ScriptedSuite) TestUnsolicitedGarbageResetsConnection(c *C) {
	s.write(c, "GARBAGE\r\n")

	waitFor(c, "connection reset", func() bool {
		return !s.conn.IsAlive()
	})

	s.scheduler.Fire()
	c.Assert(s.conn.IsAlive(), IsTrue)
	s.server.Close()
	s.server = <-s.accepted
}

func (s *ScriptedSuite) TestGarbageWithPendingFailsHeadOnly(c *C) {
	replies := make(chan Reply, 1)
	go func() {
		replies <- s.conn.Query(context.Background(), getCommand("k"))
	}()
	waitFor(c, "get to queue", func() bool {
		return s.conn.Pending() == 1
	})

	s.write(c, "GARBAGE\r\n")

	reply := <-replies
	var protoErr *ProtocolError
	c.Assert(errors.As(reply.Err, &protoErr), IsTrue)
	c.Assert(s.conn.IsAlive(), IsTrue)
}

func (s *ScriptedSuite) TestServerNotReadingTimesOutWrite(c *C) {
	options := testConnectionOptions(time2.DefaultClock, s.scheduler)
	options.wait = 200 * time.Millisecond
	conn := newConnection(s.listener.Addr().String(), options)
	defer conn.shutdown()

	c.Assert(conn.Connect(context.Background()), IsNil)
	server := <-s.accepted
	defer server.Close()

	// Far more than the socket buffers hold; the server never reads.
	value := make([]byte, 64*1024*1024)
	start := time.Now()
	reply := conn.Query(
		context.Background(),
		metaSetCommand("big", value, "", 0))

	c.Assert(time.Since(start) < 5*time.Second, IsTrue)
	c.Assert(reply.Kind, Equals, ReplyNone)
	c.Assert(reply.Err, Equals, ErrConnectionClosed)
	c.Assert(conn.IsAlive(), IsFalse)
	c.Assert(conn.Pending(), Equals, 0)
}
