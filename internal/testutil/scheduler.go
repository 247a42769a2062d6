// Package testutil provides deterministic time sources for tests.
package testutil

import (
	"sort"
	"sync"
	"time"

	"bucks2bar/internal/debounce"
)

// ManualScheduler is a debounce.Scheduler driven by Advance instead of the
// wall clock. Callbacks run on the goroutine calling Advance, in deadline
// order, so tests observe exactly one event loop.
//
// Thread-safety: all methods are safe for concurrent use.
type ManualScheduler struct {
	mu     sync.Mutex
	now    time.Duration
	seq    uint64
	timers []*ManualTimer
}

// ManualTimer is a timer created by ManualScheduler.
type ManualTimer struct {
	s        *ManualScheduler
	deadline time.Duration
	seq      uint64
	f        func()
	stopped  bool
	fired    bool
}

// NewManualScheduler creates a scheduler at time zero.
func NewManualScheduler() *ManualScheduler {
	return &ManualScheduler{}
}

// AfterFunc implements debounce.Scheduler.
func (s *ManualScheduler) AfterFunc(d time.Duration, f func()) debounce.Timer {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	t := &ManualTimer{s: s, deadline: s.now + d, seq: s.seq, f: f}
	s.timers = append(s.timers, t)
	return t
}

// Stop implements debounce.Timer.
func (t *ManualTimer) Stop() bool {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	t.s.remove(t)
	return true
}

// Advance moves the clock forward by d, firing every timer that becomes due.
// Timers scheduled by callbacks fire too if their deadline is reached.
func (s *ManualScheduler) Advance(d time.Duration) {
	s.mu.Lock()
	target := s.now + d
	s.mu.Unlock()

	for {
		s.mu.Lock()
		next := s.nextDue(target)
		if next == nil {
			s.now = target
			s.mu.Unlock()
			return
		}
		s.now = next.deadline
		next.fired = true
		s.remove(next)
		s.mu.Unlock()

		next.f()
	}
}

// Now returns the elapsed virtual time.
func (s *ManualScheduler) Now() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.now
}

// Pending returns the number of timers that have neither fired nor stopped.
func (s *ManualScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}

func (s *ManualScheduler) nextDue(target time.Duration) *ManualTimer {
	if len(s.timers) == 0 {
		return nil
	}
	sort.Slice(s.timers, func(i, j int) bool {
		if s.timers[i].deadline == s.timers[j].deadline {
			return s.timers[i].seq < s.timers[j].seq
		}
		return s.timers[i].deadline < s.timers[j].deadline
	})
	if s.timers[0].deadline > target {
		return nil
	}
	return s.timers[0]
}

func (s *ManualScheduler) remove(t *ManualTimer) {
	for i, other := range s.timers {
		if other == t {
			s.timers = append(s.timers[:i], s.timers[i+1:]...)
			return
		}
	}
}
