package memcache

import (
	"context"
	"strings"
	"time"

	. "gopkg.in/check.v1"

	"github.com/memshard/memshard/errors"
	. "github.com/memshard/memshard/gocheck2"
	"github.com/memshard/memshard/time2"
)

type MockClientSuite struct {
	clock  *time2.MockClock
	client *MockClient
}

var _ = Suite(&MockClientSuite{})

func (s *MockClientSuite) SetUpTest(c *C) {
	s.clock = &time2.MockClock{}
	s.clock.Set(time.Unix(1700000000, 0))
	s.client = NewMockClientWithClock(s.clock)
}

func (s *MockClientSuite) TestSetGet(c *C) {
	ctx := context.Background()

	value, err := s.client.Get(ctx, "foo")
	c.Assert(err, IsNil)
	c.Assert(value, IsNil)

	input := []byte("bar")
	c.Assert(s.client.Set(ctx, "foo", input, 0), IsNil)
	input[0] = 'X'

	value, err = s.client.Get(ctx, "foo")
	c.Assert(err, IsNil)
	c.Assert(value, BytesEquals, "bar")

	c.Assert(s.client.Set(ctx, "empty", nil, 0), IsNil)
	value, err = s.client.Get(ctx, "empty")
	c.Assert(err, IsNil)
	c.Assert(value, BytesEquals, "")
}

func (s *MockClientSuite) TestAddReplace(c *C) {
	ctx := context.Background()

	stored, err := s.client.Replace(ctx, "k", []byte("1"), 0)
	c.Assert(err, IsNil)
	c.Assert(stored, IsFalse)

	value, err := s.client.Get(ctx, "k")
	c.Assert(err, IsNil)
	c.Assert(value, IsNil)

	stored, err = s.client.Add(ctx, "k", []byte("1"), 0)
	c.Assert(err, IsNil)
	c.Assert(stored, IsTrue)

	stored, err = s.client.Add(ctx, "k", []byte("2"), 0)
	c.Assert(err, IsNil)
	c.Assert(stored, IsFalse)

	stored, err = s.client.Replace(ctx, "k", []byte("3"), 0)
	c.Assert(err, IsNil)
	c.Assert(stored, IsTrue)

	value, err = s.client.Get(ctx, "k")
	c.Assert(err, IsNil)
	c.Assert(value, BytesEquals, "3")
}

func (s *MockClientSuite) TestExpiration(c *C) {
	ctx := context.Background()

	c.Assert(s.client.Set(ctx, "k", []byte("v"), 10), IsNil)
	c.Assert(s.client.Set(ctx, "forever", []byte("v"), 0), IsNil)

	s.clock.Advance(9 * time.Second)
	value, err := s.client.Get(ctx, "k")
	c.Assert(err, IsNil)
	c.Assert(value, BytesEquals, "v")

	s.clock.Advance(time.Second)
	value, err = s.client.Get(ctx, "k")
	c.Assert(err, IsNil)
	c.Assert(value, IsNil)

	value, err = s.client.Get(ctx, "forever")
	c.Assert(err, IsNil)
	c.Assert(value, BytesEquals, "v")

	// An expired entry does not block Add.
	stored, err := s.client.Add(ctx, "k", []byte("again"), 0)
	c.Assert(err, IsNil)
	c.Assert(stored, IsTrue)
}

func (s *MockClientSuite) TestGatAndTouch(c *C) {
	ctx := context.Background()

	value, err := s.client.Gat(ctx, "k", 100)
	c.Assert(err, IsNil)
	c.Assert(value, IsNil)

	c.Assert(s.client.Set(ctx, "k", []byte("v"), 10), IsNil)

	s.clock.Advance(5 * time.Second)
	value, err = s.client.Gat(ctx, "k", 10)
	c.Assert(err, IsNil)
	c.Assert(value, BytesEquals, "v")

	s.clock.Advance(8 * time.Second)
	c.Assert(s.client.Touch(ctx, "k", 60), IsNil)

	s.clock.Advance(30 * time.Second)
	value, err = s.client.Get(ctx, "k")
	c.Assert(err, IsNil)
	c.Assert(value, BytesEquals, "v")

	// Touching a missing key does not create it.
	c.Assert(s.client.Touch(ctx, "missing", 60), IsNil)
	value, err = s.client.Get(ctx, "missing")
	c.Assert(err, IsNil)
	c.Assert(value, IsNil)
}

func (s *MockClientSuite) TestDelete(c *C) {
	ctx := context.Background()

	c.Assert(s.client.Delete(ctx, "k"), IsNil)
	c.Assert(s.client.Set(ctx, "k", []byte("v"), 0), IsNil)
	c.Assert(s.client.Delete(ctx, "k"), IsNil)

	value, err := s.client.Get(ctx, "k")
	c.Assert(err, IsNil)
	c.Assert(value, IsNil)
}

func (s *MockClientSuite) TestIncrement(c *C) {
	ctx := context.Background()

	for _, expected := range []uint64{10, 11, 12, 13} {
		value, ok, err := s.client.Increment(ctx, "counter", 1, 10, 0)
		c.Assert(err, IsNil)
		c.Assert(ok, IsTrue)
		c.Assert(value, Equals, expected)
	}

	stored, err := s.client.Get(ctx, "counter")
	c.Assert(err, IsNil)
	c.Assert(stored, BytesEquals, "13")

	c.Assert(s.client.Set(ctx, "word", []byte("hello"), 0), IsNil)
	_, ok, err := s.client.Increment(ctx, "word", 1, 0, 0)
	c.Assert(err, IsNil)
	c.Assert(ok, IsFalse)
}

func (s *MockClientSuite) TestIncrementTtl(c *C) {
	ctx := context.Background()

	_, ok, err := s.client.Increment(ctx, "counter", 1, 7, 10)
	c.Assert(err, IsNil)
	c.Assert(ok, IsTrue)

	s.clock.Advance(10 * time.Second)
	value, ok, err := s.client.Increment(ctx, "counter", 1, 7, 10)
	c.Assert(err, IsNil)
	c.Assert(ok, IsTrue)
	c.Assert(value, Equals, uint64(7))
}

func (s *MockClientSuite) TestDecrement(c *C) {
	ctx := context.Background()

	_, ok, err := s.client.Decrement(ctx, "counter", 1, 5, 0)
	c.Assert(err, IsNil)
	c.Assert(ok, IsFalse)

	value, ok, err := s.client.Decrement(ctx, "counter", 1, 5, 60)
	c.Assert(err, IsNil)
	c.Assert(ok, IsTrue)
	c.Assert(value, Equals, uint64(5))

	value, ok, err = s.client.Decrement(ctx, "counter", 100, 5, 0)
	c.Assert(err, IsNil)
	c.Assert(ok, IsTrue)
	c.Assert(value, Equals, uint64(0))
}

func (s *MockClientSuite) TestKeyHandling(c *C) {
	ctx := context.Background()

	var validationErr *ValidationError
	_, err := s.client.Get(ctx, "bad key")
	c.Assert(errors.As(err, &validationErr), IsTrue)
	c.Assert(validationErr.Reason, Equals, "space not allowed in key")

	// Long keys fold to the same entry.
	long := strings.Repeat("k", 400)
	c.Assert(s.client.Set(ctx, long, []byte("v"), 0), IsNil)
	value, err := s.client.Get(ctx, long)
	c.Assert(err, IsNil)
	c.Assert(value, BytesEquals, "v")

	folded, err := ValidateKey(long)
	c.Assert(err, IsNil)
	value, err = s.client.Get(ctx, folded)
	c.Assert(err, IsNil)
	c.Assert(value, BytesEquals, "v")
}

func (s *MockClientSuite) TestFlushAndClose(c *C) {
	ctx := context.Background()

	c.Assert(s.client.Set(ctx, "a", []byte("1"), 0), IsNil)
	c.Assert(s.client.Set(ctx, "b", []byte("2"), 0), IsNil)
	c.Assert(s.client.Flush(ctx), IsNil)

	value, err := s.client.Get(ctx, "a")
	c.Assert(err, IsNil)
	c.Assert(value, IsNil)

	c.Assert(s.client.Close(), IsNil)
	_, err = s.client.Get(ctx, "a")
	c.Assert(err, Equals, ErrClientClosed)
	c.Assert(s.client.Flush(ctx), Equals, ErrClientClosed)
}
