package time2

import (
	"sort"
	"sync"
	"time"
)

// Handle identifies a repeating task registered with a Scheduler.
type Handle uint64

// Scheduler runs callbacks at a fixed interval until cancelled.
type Scheduler interface {
	// Repeat calls fn every interval until the returned handle is cancelled.
	Repeat(interval time.Duration, fn func()) Handle

	// Cancel stops the task.  Cancelling an unknown or already cancelled
	// handle is a no-op.
	Cancel(h Handle)
}

// TickerScheduler drives each task from its own time.Ticker goroutine.
type TickerScheduler struct {
	mutex sync.Mutex
	next  Handle
	stops map[Handle]chan struct{}
}

func NewTickerScheduler() *TickerScheduler {
	return &TickerScheduler{
		stops: make(map[Handle]chan struct{}),
	}
}

func (s *TickerScheduler) Repeat(interval time.Duration, fn func()) Handle {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.next++
	h := s.next
	stop := make(chan struct{})
	s.stops[h] = stop

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				fn()
			case <-stop:
				return
			}
		}
	}()

	return h
}

func (s *TickerScheduler) Cancel(h Handle) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if stop, ok := s.stops[h]; ok {
		close(stop)
		delete(s.stops, h)
	}
}

var DefaultScheduler Scheduler = NewTickerScheduler()

// ManualScheduler never fires on its own; tests call Fire to run one round
// of every active task.
type ManualScheduler struct {
	mutex sync.Mutex
	next  Handle
	tasks map[Handle]manualTask
}

type manualTask struct {
	interval time.Duration
	fn       func()
}

func NewManualScheduler() *ManualScheduler {
	return &ManualScheduler{
		tasks: make(map[Handle]manualTask),
	}
}

func (s *ManualScheduler) Repeat(interval time.Duration, fn func()) Handle {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.next++
	s.tasks[s.next] = manualTask{interval: interval, fn: fn}
	return s.next
}

func (s *ManualScheduler) Cancel(h Handle) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	delete(s.tasks, h)
}

// Fire runs every active task once, in registration order, on the calling
// goroutine.
func (s *ManualScheduler) Fire() {
	s.mutex.Lock()
	handles := make([]Handle, 0, len(s.tasks))
	for h := range s.tasks {
		handles = append(handles, h)
	}
	s.mutex.Unlock()

	sort.Slice(handles, func(i, j int) bool {
		return handles[i] < handles[j]
	})
	for _, h := range handles {
		s.mutex.Lock()
		task, ok := s.tasks[h]
		s.mutex.Unlock()
		if ok {
			task.fn()
		}
	}
}

// Active returns the number of tasks which have not been cancelled.
func (s *ManualScheduler) Active() int {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	return len(s.tasks)
}

// Interval returns the interval h was registered with.
func (s *ManualScheduler) Interval(h Handle) time.Duration {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	return s.tasks[h].interval
}
