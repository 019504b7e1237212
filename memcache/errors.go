package memcache

import (
	"fmt"
	"time"

	"github.com/memshard/memshard/errors"
)

var (
	// No live connection could be found for the key, even after failover.
	ErrNoConnection = errors.New("No available memcache connection")

	// The connection's socket is not open.
	ErrNotConnected = errors.New("Memcache connection is not connected")

	// The command was still pending when its connection was closed or reset.
	ErrConnectionClosed = errors.New("Memcache connection closed")

	// The client has been closed.
	ErrClientClosed = errors.New("Memcache client is closed")
)

// Returned synchronously when a key cannot be sent to the server.
type ValidationError struct {
	errors.StackError

	Key    string
	Reason string
}

func newValidationError(key string, reason string) *ValidationError {
	return &ValidationError{
		StackError: errors.Newf("Invalid key %q: %s", key, reason),
		Key:        key,
		Reason:     reason,
	}
}

// A connect attempt failed.
type ConnectionError struct {
	errors.StackError

	Addr string
}

func newConnectionError(addr string, err error) *ConnectionError {
	return &ConnectionError{
		StackError: errors.Wrapf(err, "Memcache connection error (%s)", addr),
		Addr:       addr,
	}
}

// The server sent something the decoder could not match to the pending
// request.
type ProtocolError struct {
	errors.StackError

	Addr string
	Line string
}

func newProtocolError(addr string, line string, format string, args ...interface{}) *ProtocolError {
	return &ProtocolError{
		StackError: errors.Newf(
			"Memcache protocol error (%s): %s",
			addr,
			fmt.Sprintf(format, args...)),
		Addr: addr,
		Line: line,
	}
}

// A request was not answered within the wait timeout.
type TimeoutError struct {
	errors.StackError

	Addr string
	Wait time.Duration
}

func newTimeoutError(addr string, wait time.Duration) *TimeoutError {
	return &TimeoutError{
		StackError: errors.Newf(
			"Memcache query timeout after %v (%s)",
			wait,
			addr),
		Addr: addr,
		Wait: wait,
	}
}
