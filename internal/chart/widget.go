// Package chart renders the income/expense bar chart.
//
// A Widget is created once and then mutated in place: callers replace a
// dataset's values and call Update to redraw, mirroring how a canvas chart
// keeps its identity across data changes. The last rendered frame is kept
// as PNG bytes for image export.
package chart

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"sync"

	gochart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"bucks2bar/internal/core"
)

const (
	DefaultWidth  = 960
	DefaultHeight = 480

	IncomeColor  = "198754"
	ExpenseColor = "dc3545"
)

var ErrUnknownDataset = errors.New("unknown dataset")

// Dataset is one labeled series of the chart.
type Dataset struct {
	Label string
	Color string // hex without '#'
	Data  []float64
}

// Options configures a Widget.
type Options struct {
	Width    int
	Height   int
	Title    string
	BarWidth int
	// Format renders tooltip and axis values; defaults to core.FormatCurrency.
	Format func(float64) string
}

func (o Options) withDefaults() Options {
	if o.Width <= 0 {
		o.Width = DefaultWidth
	}
	if o.Height <= 0 {
		o.Height = DefaultHeight
	}
	if o.Title == "" {
		o.Title = "Income vs Expense"
	}
	if o.BarWidth <= 0 {
		o.BarWidth = 20
	}
	if o.Format == nil {
		o.Format = core.FormatCurrency
	}
	return o
}

// Widget is a long-lived chart handle.
//
// Thread-safety: all methods are safe for concurrent use; rendering holds the
// widget lock so readers never observe a half-updated frame.
type Widget struct {
	mu       sync.RWMutex
	opts     Options
	labels   []string
	datasets []Dataset
	png      []byte
	revision int
}

// NewBudget creates the two-series Income/Expense widget and draws the
// first frame.
func NewBudget(incomes, expenses []float64, opts Options) (*Widget, error) {
	return New(core.Months[:], []Dataset{
		{Label: "Income", Color: IncomeColor, Data: incomes},
		{Label: "Expense", Color: ExpenseColor, Data: expenses},
	}, opts)
}

// New creates a widget over labels and datasets and draws the first frame.
// The widget exists even when the first draw fails.
func New(labels []string, datasets []Dataset, opts Options) (*Widget, error) {
	w := &Widget{
		opts:   opts.withDefaults(),
		labels: append([]string(nil), labels...),
	}
	for _, ds := range datasets {
		ds.Data = append([]float64(nil), ds.Data...)
		w.datasets = append(w.datasets, ds)
	}
	return w, w.Update()
}

// SetData replaces the values of dataset i without redrawing.
func (w *Widget) SetData(i int, data []float64) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if i < 0 || i >= len(w.datasets) {
		return fmt.Errorf("set data %d: %w", i, ErrUnknownDataset)
	}
	w.datasets[i].Data = append(w.datasets[i].Data[:0], data...)
	return nil
}

// Update redraws the chart from the current datasets.
func (w *Widget) Update() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	var buf bytes.Buffer
	if err := w.barChart().Render(gochart.PNG, &buf); err != nil {
		return fmt.Errorf("render chart: %w", err)
	}
	w.png = buf.Bytes()
	w.revision++
	return nil
}

// Revision counts successful redraws.
func (w *Widget) Revision() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.revision
}

// Datasets returns a copy of the current datasets.
func (w *Widget) Datasets() []Dataset {
	w.mu.RLock()
	defer w.mu.RUnlock()
	out := make([]Dataset, len(w.datasets))
	for i, ds := range w.datasets {
		ds.Data = append([]float64(nil), ds.Data...)
		out[i] = ds
	}
	return out
}

// Labels returns the x-axis labels.
func (w *Widget) Labels() []string {
	return append([]string(nil), w.labels...)
}

// Tooltip returns the hover text for a bar, e.g. "Income: $1,000.00".
func (w *Widget) Tooltip(dataset, index int) string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if dataset < 0 || dataset >= len(w.datasets) {
		return ""
	}
	ds := w.datasets[dataset]
	var v float64
	if index >= 0 && index < len(ds.Data) {
		v = ds.Data[index]
	}
	return ds.Label + ": " + w.opts.Format(v)
}

// PNG returns the last rendered frame.
func (w *Widget) PNG() []byte {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return append([]byte(nil), w.png...)
}

// WriteTo writes the last rendered frame as a PNG image.
func (w *Widget) WriteTo(dst io.Writer) (int64, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if len(w.png) == 0 {
		return 0, errors.New("chart has not been rendered")
	}
	n, err := dst.Write(w.png)
	return int64(n), err
}

// barChart lays the datasets out as grouped bars: for every label one bar
// per dataset, the label printed under the first bar of the group.
func (w *Widget) barChart() gochart.BarChart {
	var bars []gochart.Value
	lo, hi := 0.0, 0.0
	for i, label := range w.labels {
		for j, ds := range w.datasets {
			var v float64
			if i < len(ds.Data) {
				v = ds.Data[i]
			}
			if math.IsNaN(v) || math.IsInf(v, 0) {
				v = 0
			}
			lo, hi = math.Min(lo, v), math.Max(hi, v)
			name := ""
			if j == 0 {
				name = label
			}
			color := drawing.ColorFromHex(ds.Color)
			bars = append(bars, gochart.Value{
				Label: name,
				Value: v,
				Style: gochart.Style{FillColor: color, StrokeColor: color, StrokeWidth: 1},
			})
		}
	}

	// zero-based axis; an all-zero chart still needs a non-empty range
	if hi <= 0 {
		hi = 1
	}

	return gochart.BarChart{
		Title:      w.opts.Title,
		Width:      w.opts.Width,
		Height:     w.opts.Height,
		BarWidth:   w.opts.BarWidth,
		BarSpacing: 4,
		Background: gochart.Style{Padding: gochart.Box{Top: 48, Left: 16, Right: 16, Bottom: 16}},
		YAxis: gochart.YAxis{
			Range: &gochart.ContinuousRange{Min: lo, Max: hi * 1.1},
			ValueFormatter: func(v interface{}) string {
				if f, ok := v.(float64); ok {
					return w.opts.Format(f)
				}
				return ""
			},
		},
		Bars: bars,
	}
}
