package services

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"bucks2bar/internal/chart"
	"bucks2bar/internal/core"
	"bucks2bar/internal/debounce"
	"bucks2bar/internal/eventloop"
	"bucks2bar/internal/form"
)

// SeedMode selects how Start fills the form.
type SeedMode string

const (
	// SeedRestore restores the stored snapshot, seeding random values when
	// there is none.
	SeedRestore SeedMode = "restore"
	// SeedRandom always starts from random values.
	SeedRandom SeedMode = "random"
	// SeedBlank starts from empty fields.
	SeedBlank SeedMode = "blank"
)

func (m SeedMode) IsValid() bool {
	switch m {
	case SeedRestore, SeedRandom, SeedBlank:
		return true
	}
	return false
}

// State is a copy of the session as seen after the last loop turn.
type State struct {
	Values   map[string]string
	Invalid  []string
	Series   core.MonthlySeries
	Revision int
	LastSync time.Time
	Pending  bool
}

// IsInvalid reports whether field id carries the invalid flag.
func (st State) IsInvalid(id string) bool {
	for _, v := range st.Invalid {
		if v == id {
			return true
		}
	}
	return false
}

type SessionOptions struct {
	Wait time.Duration
	// Clock drives the debounce timer; its callbacks are posted to the loop.
	// Defaults to the runtime timers.
	Clock  debounce.Scheduler
	Now    func() time.Time
	Logger *slog.Logger
}

// Session wires field events to ChartSync. Every mutation runs on the
// event loop; exported methods block until their loop turn completes.
type Session struct {
	loop      *eventloop.Loop
	fields    *form.Store
	sync      *ChartSync
	debounced *debounce.Debouncer
	now       func() time.Time
	logger    *slog.Logger

	baseCtx  context.Context
	lastSync time.Time
}

func NewSession(ctx context.Context, loop *eventloop.Loop, fields *form.Store, sync *ChartSync, opts SessionOptions) *Session {
	if opts.Clock == nil {
		opts.Clock = debounce.SystemScheduler{}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	s := &Session{
		loop:    loop,
		fields:  fields,
		sync:    sync,
		now:     opts.Now,
		logger:  opts.Logger,
		baseCtx: context.WithoutCancel(ctx),
	}
	s.debounced = debounce.New(s.syncNow, opts.Wait, loop.On(opts.Clock))
	return s
}

// syncNow runs on the loop.
func (s *Session) syncNow() {
	s.sync.UpdateChartFromInputs(s.baseCtx)
	s.lastSync = s.now()
}

// Start fills the form according to mode and draws the first chart.
func (s *Session) Start(ctx context.Context, mode SeedMode, r *rand.Rand) error {
	return s.loop.Do(ctx, func() {
		switch mode {
		case SeedRestore:
			if !s.sync.Restore(ctx) {
				s.sync.Seed(r)
			}
		case SeedRandom:
			s.sync.Seed(r)
		case SeedBlank:
		}
		s.syncNow()
		s.logger.InfoContext(ctx, "Session started", "seed_mode", string(mode))
	})
}

// Input records a keystroke-level change and restarts the debounce wait.
func (s *Session) Input(ctx context.Context, id, value string) error {
	var setErr error
	err := s.loop.Do(ctx, func() {
		if setErr = s.fields.Set(id, value); setErr != nil {
			return
		}
		s.debounced.Trigger()
	})
	if err != nil {
		return err
	}
	return setErr
}

// Commit handles blur and Enter: a value that differs from the field counts
// as an edit, then any pending sync runs immediately. An unedited commit
// with nothing pending does nothing.
func (s *Session) Commit(ctx context.Context, id string, value *string) error {
	var setErr error
	err := s.loop.Do(ctx, func() {
		f, ok := s.fields.Field(id)
		if !ok {
			setErr = fmt.Errorf("commit %q: %w", id, form.ErrUnknownField)
			return
		}
		if value != nil && *value != f.Value() {
			f.SetValue(*value)
			s.debounced.Trigger()
		}
		s.debounced.Flush()
	})
	if err != nil {
		return err
	}
	return setErr
}

// Flush runs a pending debounced sync now.
func (s *Session) Flush(ctx context.Context) error {
	return s.loop.Do(ctx, s.debounced.Flush)
}

// Reset clears the form and leaves no stored snapshot.
func (s *Session) Reset(ctx context.Context) error {
	return s.loop.Do(ctx, func() {
		s.sync.ResetInputs(ctx)
		s.lastSync = s.now()
	})
}

// Clear deletes the stored snapshot and resets the form.
func (s *Session) Clear(ctx context.Context) error {
	return s.loop.Do(ctx, func() {
		s.sync.ClearStorage(ctx)
		s.lastSync = s.now()
	})
}

func (s *Session) State(ctx context.Context) (State, error) {
	var st State
	err := s.loop.Do(ctx, func() {
		st = State{
			Values:   s.fields.Values(),
			Invalid:  s.fields.InvalidIDs(),
			Series:   s.sync.Series(),
			LastSync: s.lastSync,
			Pending:  s.debounced.Pending(),
		}
		if w := s.sync.Chart(); w != nil {
			st.Revision = w.Revision()
		}
	})
	return st, err
}

// Chart returns the widget handle. The widget guards its own image, so the
// caller may read it outside the loop.
func (s *Session) Chart(ctx context.Context) (*chart.Widget, error) {
	var w *chart.Widget
	if err := s.loop.Do(ctx, func() { w = s.sync.Chart() }); err != nil {
		return nil, err
	}
	if w == nil {
		return nil, ErrNoChart
	}
	return w, nil
}
