package memcache

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/puzpuzpuz/xsync/v3"

	"github.com/memshard/memshard/time2"
)

type mockEntry struct {
	value    []byte
	expireAt time.Time
}

func (e mockEntry) expired(now time.Time) bool {
	return !e.expireAt.IsZero() && !now.Before(e.expireAt)
}

// An in-memory Cache for unit tests of code built on memcache.  Keys are
// validated (and folded) exactly like Client does; ttls are honored against
// the supplied clock.
type MockClient struct {
	clock  time2.Clock
	data   *xsync.MapOf[string, mockEntry]
	closed int32
}

var _ Cache = &MockClient{}

func NewMockClient() *MockClient {
	return NewMockClientWithClock(time2.DefaultClock)
}

func NewMockClientWithClock(clock time2.Clock) *MockClient {
	return &MockClient{
		clock: clock,
		data:  xsync.NewMapOf[string, mockEntry](),
	}
}

func (c *MockClient) expireAt(ttl int) time.Time {
	if ttl <= 0 {
		return time.Time{}
	}
	return c.clock.Now().Add(time.Duration(ttl) * time.Second)
}

func (c *MockClient) prepare(key string) (string, error) {
	if atomic.LoadInt32(&c.closed) != 0 {
		return "", ErrClientClosed
	}
	return ValidateKey(key)
}

// Runs fn on the live entry for key (loaded is false for missing or expired
// entries) and stores its result unless del is set.
func (c *MockClient) compute(
	key string,
	fn func(entry mockEntry, loaded bool) (mockEntry, bool)) {

	now := c.clock.Now()
	c.data.Compute(key, func(entry mockEntry, loaded bool) (mockEntry, bool) {
		if loaded && entry.expired(now) {
			loaded = false
			entry = mockEntry{}
		}
		return fn(entry, loaded)
	})
}

func copyBytes(value []byte) []byte {
	result := make([]byte, len(value))
	copy(result, value)
	return result
}

// See Cache for documentation.
func (c *MockClient) Get(ctx context.Context, key string) ([]byte, error) {
	key, err := c.prepare(key)
	if err != nil {
		return nil, err
	}

	entry, ok := c.data.Load(key)
	if !ok || entry.expired(c.clock.Now()) {
		return nil, nil
	}
	return copyBytes(entry.value), nil
}

// See Cache for documentation.
func (c *MockClient) Gat(ctx context.Context, key string, ttl int) ([]byte, error) {
	key, err := c.prepare(key)
	if err != nil {
		return nil, err
	}

	var result []byte
	c.compute(key, func(entry mockEntry, loaded bool) (mockEntry, bool) {
		if !loaded {
			return entry, true
		}
		result = copyBytes(entry.value)
		entry.expireAt = c.expireAt(ttl)
		return entry, false
	})
	return result, nil
}

// Shared by Set / Add / Replace.  requireLoaded is nil for an
// unconditional store.
func (c *MockClient) store(
	key string,
	value []byte,
	ttl int,
	requireLoaded *bool) bool {

	stored := false
	c.compute(key, func(entry mockEntry, loaded bool) (mockEntry, bool) {
		if requireLoaded != nil && *requireLoaded != loaded {
			return entry, !loaded
		}
		stored = true
		return mockEntry{
			value:    copyBytes(value),
			expireAt: c.expireAt(ttl),
		}, false
	})
	return stored
}

// See Cache for documentation.
func (c *MockClient) Set(
	ctx context.Context,
	key string,
	value []byte,
	ttl int) error {

	key, err := c.prepare(key)
	if err != nil {
		return err
	}
	c.store(key, value, ttl, nil)
	return nil
}

// See Cache for documentation.
func (c *MockClient) Add(
	ctx context.Context,
	key string,
	value []byte,
	ttl int) (bool, error) {

	key, err := c.prepare(key)
	if err != nil {
		return false, err
	}
	absent := false
	return c.store(key, value, ttl, &absent), nil
}

// See Cache for documentation.
func (c *MockClient) Replace(
	ctx context.Context,
	key string,
	value []byte,
	ttl int) (bool, error) {

	key, err := c.prepare(key)
	if err != nil {
		return false, err
	}
	present := true
	return c.store(key, value, ttl, &present), nil
}

// See Cache for documentation.
func (c *MockClient) Delete(ctx context.Context, key string) error {
	key, err := c.prepare(key)
	if err != nil {
		return err
	}
	c.data.Delete(key)
	return nil
}

// See Cache for documentation.
func (c *MockClient) Touch(ctx context.Context, key string, ttl int) error {
	key, err := c.prepare(key)
	if err != nil {
		return err
	}
	c.compute(key, func(entry mockEntry, loaded bool) (mockEntry, bool) {
		if !loaded {
			return entry, true
		}
		entry.expireAt = c.expireAt(ttl)
		return entry, false
	})
	return nil
}

// Shared by Increment / Decrement.  Values which are not decimal counters
// produce no result, like the server's CLIENT_ERROR.
func (c *MockClient) arithmetic(
	key string,
	initial uint64,
	ttl int,
	create bool,
	apply func(current uint64) uint64) (uint64, bool) {

	var result uint64
	ok := false
	c.compute(key, func(entry mockEntry, loaded bool) (mockEntry, bool) {
		if !loaded {
			if !create {
				return entry, true
			}
			result, ok = initial, true
			return mockEntry{
				value:    []byte(formatCounter(initial)),
				expireAt: c.expireAt(ttl),
			}, false
		}

		current, valid := parseCounter(entry.value)
		if !valid {
			return entry, false
		}
		result, ok = apply(current), true
		entry.value = []byte(formatCounter(result))
		return entry, false
	})
	return result, ok
}

// See Cache for documentation.
func (c *MockClient) Increment(
	ctx context.Context,
	key string,
	offset uint64,
	initial uint64,
	ttl int) (uint64, bool, error) {

	key, err := c.prepare(key)
	if err != nil {
		return 0, false, err
	}
	value, ok := c.arithmetic(key, initial, ttl, true, func(current uint64) uint64 {
		return current + offset
	})
	return value, ok, nil
}

// See Cache for documentation.
func (c *MockClient) Decrement(
	ctx context.Context,
	key string,
	offset uint64,
	initial uint64,
	ttl int) (uint64, bool, error) {

	key, err := c.prepare(key)
	if err != nil {
		return 0, false, err
	}
	value, ok := c.arithmetic(key, initial, ttl, ttl > 0, func(current uint64) uint64 {
		if offset > current {
			return 0
		}
		return current - offset
	})
	return value, ok, nil
}

// See Cache for documentation.
func (c *MockClient) Flush(ctx context.Context) error {
	if atomic.LoadInt32(&c.closed) != 0 {
		return ErrClientClosed
	}
	c.data.Clear()
	return nil
}

// See Cache for documentation.
func (c *MockClient) Close() error {
	atomic.StoreInt32(&c.closed, 1)
	return nil
}
