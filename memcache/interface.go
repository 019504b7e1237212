package memcache

import (
	"context"
)

// The cache verbs.  Implemented by Client and by MockClient.
//
// Only key validation failures (and use after Close) are reported as errors;
// misses, network failures and protocol errors all produce the zero result.
type Cache interface {
	// This retrieves a single entry.  Returns nil on a miss, and a non-nil
	// empty slice for an empty value.
	Get(ctx context.Context, key string) ([]byte, error)

	// Get and touch: retrieves the entry and resets its expiration to ttl
	// seconds.
	Gat(ctx context.Context, key string, ttl int) ([]byte, error)

	// Stores the value unconditionally.  A ttl <= 0 means no expiration.
	Set(ctx context.Context, key string, value []byte, ttl int) error

	// Stores the value only if the key does not exist yet.
	Add(ctx context.Context, key string, value []byte, ttl int) (bool, error)

	// Stores the value only if the key already exists.
	Replace(ctx context.Context, key string, value []byte, ttl int) (bool, error)

	// Fire and forget delete.
	Delete(ctx context.Context, key string) error

	// Fire and forget expiration update.
	Touch(ctx context.Context, key string, ttl int) error

	// Adds offset to the counter, creating it with initial (and ttl) when
	// absent.  ok is false when no value could be obtained.
	Increment(
		ctx context.Context,
		key string,
		offset uint64,
		initial uint64,
		ttl int) (value uint64, ok bool, err error)

	// Subtracts offset from the counter, flooring at zero.  The counter is
	// created with initial only when ttl > 0.
	Decrement(
		ctx context.Context,
		key string,
		offset uint64,
		initial uint64,
		ttl int) (value uint64, ok bool, err error)

	// Invalidates every entry on every server.
	Flush(ctx context.Context) error

	// Releases all connections.  Subsequent calls return ErrClientClosed.
	Close() error
}
