package dlog

// Wrap the console implementation to buffer writes, yet flush in a
// timely, deterministic fashion, either buffering up to n bytes, or
// for up to t milliseconds, whichever comes first.

import (
	"bufio"
	"io"
	"os"
	"sync"
	"time"
)

type bufferedConsoleT struct {
	mu               sync.Mutex
	wr               io.Writer
	bufferSize       int
	maxFlushInterval time.Duration
	baseWr           io.Writer
}

// The default console is assumed to be os.Stderr, but tests can override.
var bufferedConsole = bufferedConsoleT{baseWr: os.Stderr}

// ConfigureConsole sets the console buffer size and the maximum time between
// flushes.  A size of zero leaves the console unbuffered.  Must be called
// before the first log line is written.
func ConfigureConsole(bufferSize int, maxFlushInterval time.Duration) {
	bufferedConsole.mu.Lock()
	defer bufferedConsole.mu.Unlock()
	bufferedConsole.bufferSize = bufferSize
	bufferedConsole.maxFlushInterval = maxFlushInterval
}

// Flush writes out any buffered console output.
func Flush() error {
	return bufferedConsole.Flush()
}

func (cb *bufferedConsoleT) Flush() error {
	type flusher interface {
		Flush() error
	}
	cb.mu.Lock()
	defer cb.mu.Unlock()
	if fwr, ok := cb.wr.(flusher); ok {
		return fwr.Flush()
	}
	return nil
}

func (cb *bufferedConsoleT) Sync() error {
	type syncer interface {
		Sync() error
	}
	cb.mu.Lock()
	defer cb.mu.Unlock()
	if swr, ok := cb.wr.(syncer); ok {
		return swr.Sync()
	}
	return nil
}

func (cb *bufferedConsoleT) flushDaemon(interval time.Duration) {
	if interval > 0 {
		// Try to guarantee that we flush at least every maxFlushInterval.
		// This can result in a single extra queued flush if the
		// underlying writer takes longer maxFlushInterval.
		for range time.Tick(interval) {
			_ = cb.Flush() // Ignore error.
		}
	}
}

func (cb *bufferedConsoleT) Write(b []byte) (n int, err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	if cb.wr == nil {
		if cb.bufferSize > 0 {
			cb.wr = bufio.NewWriterSize(cb.baseWr, cb.bufferSize)
			go cb.flushDaemon(cb.maxFlushInterval)
		} else {
			// If logging is invoked before flags are parsed, this slower
			// code path must exist since there is no notification that
			// flags are parsed.
			return cb.baseWr.Write(b)
		}
	}
	return cb.wr.Write(b)
}
