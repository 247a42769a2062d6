// Package eventloop runs the widget's work on a single goroutine.
//
// Every mutation of the form, the chart and the persisted slot is executed
// by Loop.Run in submission order, so the core needs no locking discipline
// beyond "last write wins". Timers created through AfterFunc post their
// callbacks back onto the loop, which makes the loop a debounce.Scheduler
// whose callbacks always run on a later turn.
package eventloop

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"bucks2bar/internal/debounce"
)

// DefaultQueueSize bounds the number of queued tasks.
const DefaultQueueSize = 256

var ErrStopped = errors.New("event loop stopped")

// Loop is a single-goroutine task executor.
type Loop struct {
	tasks   chan func()
	stopped chan struct{}
	once    sync.Once
	logger  *slog.Logger
}

// New creates a loop; call Run to start processing.
func New(queueSize int, logger *slog.Logger) *Loop {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Loop{
		tasks:   make(chan func(), queueSize),
		stopped: make(chan struct{}),
		logger:  logger,
	}
}

// Run executes tasks until ctx is cancelled. Tasks still queued at that
// point are drained so that nothing submitted before shutdown is lost.
func (l *Loop) Run(ctx context.Context) error {
	defer l.once.Do(func() { close(l.stopped) })

	l.logger.DebugContext(ctx, "Event loop started")
	for {
		select {
		case task := <-l.tasks:
			l.run(task)
		case <-ctx.Done():
			l.drain()
			l.logger.DebugContext(ctx, "Event loop stopped", "reason", ctx.Err())
			return nil
		}
	}
}

func (l *Loop) drain() {
	for {
		select {
		case task := <-l.tasks:
			l.run(task)
		default:
			return
		}
	}
}

func (l *Loop) run(task func()) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error("Event loop task panicked", "panic", r)
		}
	}()
	task()
}

// Post queues f without waiting. It reports false once the loop has stopped.
func (l *Loop) Post(f func()) bool {
	select {
	case <-l.stopped:
		return false
	default:
	}
	select {
	case l.tasks <- f:
		return true
	case <-l.stopped:
		return false
	}
}

// Do runs f on the loop and waits for it to finish. ctx only bounds the
// wait for a queue slot: once f is queued, Do returns after f has run or
// the loop has stopped without running it. Calling Do from a task running
// on the same loop deadlocks.
func (l *Loop) Do(ctx context.Context, f func()) error {
	done := make(chan struct{})
	task := func() {
		defer close(done)
		f()
	}
	select {
	case l.tasks <- task:
	case <-l.stopped:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-done:
		return nil
	case <-l.stopped:
		select {
		case <-done:
			return nil
		default:
			return ErrStopped
		}
	}
}

// Stopped is closed when Run returns.
func (l *Loop) Stopped() <-chan struct{} {
	return l.stopped
}

// AfterFunc implements debounce.Scheduler: f is posted to the loop after d.
func (l *Loop) AfterFunc(d time.Duration, f func()) debounce.Timer {
	return l.On(debounce.SystemScheduler{}).AfterFunc(d, f)
}

// On returns a Scheduler that waits on clock and then posts the callback
// to the loop. Tests pass a manual clock here.
func (l *Loop) On(clock debounce.Scheduler) debounce.Scheduler {
	return loopScheduler{loop: l, clock: clock}
}

type loopScheduler struct {
	loop  *Loop
	clock debounce.Scheduler
}

func (s loopScheduler) AfterFunc(d time.Duration, f func()) debounce.Timer {
	return s.clock.AfterFunc(d, func() {
		if !s.loop.Post(f) {
			s.loop.logger.Debug("Dropped timer callback, event loop stopped")
		}
	})
}
