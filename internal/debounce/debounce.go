// Package debounce collapses bursts of trigger events into a single
// trailing-edge invocation.
//
// A Func schedules its action through a Scheduler. Every Trigger restarts
// the wait; Flush runs a pending action immediately. Callers that need the
// single-threaded guarantees of the widget pass an eventloop.Loop as the
// scheduler so the action runs on the loop goroutine.
package debounce

import (
	"sync"
	"time"
)

// DefaultWait is the quiet period used by the form wiring.
const DefaultWait = 300 * time.Millisecond

// Timer is a scheduled callback that can be cancelled.
type Timer interface {
	// Stop prevents the callback from firing. It reports whether the call
	// stopped the timer before it fired.
	Stop() bool
}

// Scheduler runs f once after d has elapsed, never inline.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Timer
}

// SystemScheduler schedules on the runtime timers.
type SystemScheduler struct{}

// AfterFunc implements Scheduler.
func (SystemScheduler) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// Func debounces an action taking the argument of the latest Trigger.
type Func[T any] struct {
	action func(T)
	wait   time.Duration
	sched  Scheduler

	mu      sync.Mutex
	timer   Timer
	gen     uint64
	pending bool
	last    T
}

// NewFunc wraps action so that it runs wait after the last Trigger.
// A nil scheduler falls back to SystemScheduler.
func NewFunc[T any](action func(T), wait time.Duration, sched Scheduler) *Func[T] {
	if sched == nil {
		sched = SystemScheduler{}
	}
	if wait < 0 {
		wait = 0
	}
	return &Func[T]{action: action, wait: wait, sched: sched}
}

// Trigger records v and restarts the quiet period. It never blocks on the action.
func (d *Func[T]) Trigger(v T) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
	}
	d.gen++
	gen := d.gen
	d.pending = true
	d.last = v
	d.timer = d.sched.AfterFunc(d.wait, func() { d.fire(gen) })
}

// Flush runs the pending action now and cancels its timer. No-op when
// nothing is pending.
func (d *Func[T]) Flush() {
	v, ok := d.take(0, false)
	if ok {
		d.action(v)
	}
}

// Pending reports whether an action is scheduled.
func (d *Func[T]) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pending
}

func (d *Func[T]) fire(gen uint64) {
	v, ok := d.take(gen, true)
	if ok {
		d.action(v)
	}
}

// take clears the pending state. When fromTimer is set it only succeeds for
// the timer generation that is still current, so a stopped timer whose
// callback was already queued does nothing.
func (d *Func[T]) take(gen uint64, fromTimer bool) (T, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	var zero T
	if !d.pending || (fromTimer && gen != d.gen) {
		return zero, false
	}
	if !fromTimer && d.timer != nil {
		d.timer.Stop()
	}
	d.pending = false
	d.timer = nil
	d.gen++
	v := d.last
	d.last = zero
	return v, true
}

// Debouncer debounces an action that reads its inputs from external state.
type Debouncer struct {
	fn *Func[struct{}]
}

// New wraps a no-argument action.
func New(action func(), wait time.Duration, sched Scheduler) *Debouncer {
	return &Debouncer{fn: NewFunc(func(struct{}) { action() }, wait, sched)}
}

// Trigger restarts the quiet period.
func (d *Debouncer) Trigger() { d.fn.Trigger(struct{}{}) }

// Flush runs a pending action immediately.
func (d *Debouncer) Flush() { d.fn.Flush() }

// Pending reports whether an action is scheduled.
func (d *Debouncer) Pending() bool { return d.fn.Pending() }
