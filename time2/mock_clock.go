package time2

import (
	"sync"
	"time"
)

type mockWaiter struct {
	deadline time.Time
	ch       chan time.Time
}

// A fake clock useful for testing timing.  Channels returned by After fire
// only when Advance / Set moves the fake time past their deadline.
type MockClock struct {
	mutex       sync.Mutex
	currentTime time.Time
	waiters     []*mockWaiter
}

// Resets the mock clock back to initial state.
func (c *MockClock) Reset() {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.currentTime = time.Time{}
	c.waiters = nil
}

// Set the mock clock to a specific time.
func (c *MockClock) Set(t time.Time) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.currentTime = t
	c.fireLocked()
}

// Advances the mock clock by the specified duration.
func (c *MockClock) Advance(delta time.Duration) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.currentTime = c.currentTime.Add(delta)
	c.fireLocked()
}

// Returns the fake current time.
func (c *MockClock) Now() time.Time {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	return c.currentTime
}

// Returns the time elapsed since the fake current time.
func (c *MockClock) Since(t time.Time) time.Duration {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	return c.currentTime.Sub(t)
}

// Returns a channel which receives the fake time once the clock has been
// advanced by at least d.
func (c *MockClock) After(d time.Duration) <-chan time.Time {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	w := &mockWaiter{
		deadline: c.currentTime.Add(d),
		ch:       make(chan time.Time, 1),
	}
	if d <= 0 {
		w.ch <- c.currentTime
		return w.ch
	}
	c.waiters = append(c.waiters, w)
	return w.ch
}

// Returns the number of After channels which have not fired yet.
func (c *MockClock) NumWaiters() int {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	return len(c.waiters)
}

func (c *MockClock) fireLocked() {
	pending := c.waiters[:0]
	for _, w := range c.waiters {
		if !c.currentTime.Before(w.deadline) {
			w.ch <- c.currentTime
			continue
		}
		pending = append(pending, w)
	}
	c.waiters = pending
}
