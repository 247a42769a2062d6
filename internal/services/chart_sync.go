package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"strconv"

	"bucks2bar/internal/chart"
	"bucks2bar/internal/core"
	"bucks2bar/internal/form"
	"bucks2bar/internal/storage"
)

// Seeded values are whole numbers in [SeedMin, SeedMax].
const (
	SeedMin = 50
	SeedMax = 1000
)

var ErrNoChart = errors.New("no chart rendered yet")

// SnapshotStore is the persistence surface ChartSync needs.
type SnapshotStore interface {
	Save(ctx context.Context, incomes, expenses []float64)
	Load(ctx context.Context) (core.Snapshot, bool)
	Delete(ctx context.Context)
}

// ChartSync keeps the chart widget and the persisted slot in step with the
// form fields. It is not safe for concurrent use; callers confine it to
// one goroutine (the event loop).
type ChartSync struct {
	fields form.Fields
	store  SnapshotStore
	opts   chart.Options
	diag   storage.Diagnostics
	logger *slog.Logger

	widget *chart.Widget
	series core.MonthlySeries
}

type ChartSyncOption func(*ChartSync)

func WithChartOptions(opts chart.Options) ChartSyncOption {
	return func(s *ChartSync) { s.opts = opts }
}

// WithSyncDiagnostics receives render failures.
func WithSyncDiagnostics(d storage.Diagnostics) ChartSyncOption {
	return func(s *ChartSync) { s.diag = d }
}

func WithSyncLogger(l *slog.Logger) ChartSyncOption {
	return func(s *ChartSync) { s.logger = l }
}

func NewChartSync(fields form.Fields, store SnapshotStore, opts ...ChartSyncOption) *ChartSync {
	s := &ChartSync{fields: fields, store: store}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.diag == nil {
		s.diag = storage.LogDiagnostics{Logger: s.logger}
	}
	return s
}

// UpdateChartFromInputs reads the fields, creates the widget on first use or
// mutates it in place, and persists the series. A failed redraw does not
// prevent the save.
func (s *ChartSync) UpdateChartFromInputs(ctx context.Context) {
	series := form.ReadInputs(s.fields)
	s.series = series

	if err := s.render(series); err != nil {
		s.diag.Warn("render", err)
	}

	s.store.Save(ctx, series.Incomes[:], series.Expenses[:])

	income, expense := series.Totals()
	s.logger.DebugContext(ctx, "Chart synced",
		"income_total", income, "expense_total", expense, "revision", s.revision())
}

func (s *ChartSync) render(series core.MonthlySeries) error {
	if s.widget == nil {
		w, err := chart.NewBudget(series.Incomes[:], series.Expenses[:], s.opts)
		s.widget = w
		return err
	}
	if err := s.widget.SetData(0, series.Incomes[:]); err != nil {
		return err
	}
	if err := s.widget.SetData(1, series.Expenses[:]); err != nil {
		return err
	}
	return s.widget.Update()
}

// ResetInputs clears every field, syncs the all-zero state and then removes
// the stored snapshot. The slot ends up absent.
func (s *ChartSync) ResetInputs(ctx context.Context) {
	form.Clear(s.fields)
	s.UpdateChartFromInputs(ctx)
	s.store.Delete(ctx)
	s.logger.InfoContext(ctx, "Inputs reset")
}

// ClearStorage removes the stored snapshot and then resets the inputs.
func (s *ChartSync) ClearStorage(ctx context.Context) {
	s.store.Delete(ctx)
	s.ResetInputs(ctx)
}

// Restore fills the fields from the stored snapshot and reports whether
// one existed. It does not sync.
func (s *ChartSync) Restore(ctx context.Context) bool {
	snap, ok := s.store.Load(ctx)
	if !ok {
		return false
	}
	form.Populate(s.fields, snap)
	s.logger.InfoContext(ctx, "Inputs restored from storage", "updated_at", snap.UpdatedAt)
	return true
}

// Seed fills every field with a random whole number in [SeedMin, SeedMax].
// It does not sync.
func (s *ChartSync) Seed(r *rand.Rand) {
	if r == nil {
		r = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	for _, id := range core.FieldIDs() {
		f, ok := s.fields.Field(id)
		if !ok {
			continue
		}
		f.SetValue(strconv.Itoa(SeedMin + r.IntN(SeedMax-SeedMin+1)))
	}
}

// ExportChart writes the current chart image as PNG.
func (s *ChartSync) ExportChart(w io.Writer) error {
	if s.widget == nil {
		return ErrNoChart
	}
	if _, err := s.widget.WriteTo(w); err != nil {
		return fmt.Errorf("export chart: %w", err)
	}
	return nil
}

// Chart returns the widget, nil before the first sync.
func (s *ChartSync) Chart() *chart.Widget {
	return s.widget
}

// Series returns the values read by the last sync.
func (s *ChartSync) Series() core.MonthlySeries {
	return s.series
}

func (s *ChartSync) revision() int {
	if s.widget == nil {
		return 0
	}
	return s.widget.Revision()
}
