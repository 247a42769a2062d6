package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"bucks2bar/internal/core"
	"bucks2bar/internal/form"
)

// Persistence saves and loads the budget snapshot in one slot of a KV.
// Every operation is best-effort: failures go to Diagnostics and the
// caller sees absence or nothing at all.
type Persistence struct {
	kv     KV
	key    string
	diag   Diagnostics
	logger *slog.Logger
	now    func() time.Time
}

type PersistenceOption func(*Persistence)

func WithDiagnostics(d Diagnostics) PersistenceOption {
	return func(p *Persistence) { p.diag = d }
}

func WithLogger(l *slog.Logger) PersistenceOption {
	return func(p *Persistence) { p.logger = l }
}

func WithClock(now func() time.Time) PersistenceOption {
	return func(p *Persistence) { p.now = now }
}

// NewPersistence binds the adapter to key in kv. An empty key selects
// core.StorageKey.
func NewPersistence(kv KV, key string, opts ...PersistenceOption) *Persistence {
	if key == "" {
		key = core.StorageKey
	}
	p := &Persistence{kv: kv, key: key, now: time.Now}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	if p.diag == nil {
		p.diag = LogDiagnostics{Logger: p.logger}
	}
	return p
}

func (p *Persistence) Key() string { return p.key }

// Save writes {incomes, expenses, updatedAt: now} to the slot.
func (p *Persistence) Save(ctx context.Context, incomes, expenses []float64) {
	snap := core.Snapshot{
		Incomes:   nonNil(incomes),
		Expenses:  nonNil(expenses),
		UpdatedAt: p.now().UnixMilli(),
	}
	if err := checkFinite(snap); err != nil {
		p.diag.Warn("save", err)
		return
	}
	data, err := json.Marshal(snap)
	if err != nil {
		p.diag.Warn("save", fmt.Errorf("encode snapshot: %w", err))
		return
	}
	if err := p.kv.Set(ctx, p.key, data); err != nil {
		p.diag.Warn("save", err)
		return
	}
	p.logger.Debug("Snapshot saved", "key", p.key, "bytes", len(data))
}

// Load returns the persisted snapshot, or false when the slot is empty,
// unreadable, or lacks either series.
func (p *Persistence) Load(ctx context.Context) (core.Snapshot, bool) {
	data, err := p.kv.Get(ctx, p.key)
	if errors.Is(err, ErrNotFound) {
		return core.Snapshot{}, false
	}
	if err != nil {
		p.diag.Warn("load", err)
		return core.Snapshot{}, false
	}
	snap, err := DecodeSnapshot(data)
	if err != nil {
		p.diag.Warn("load", err)
		return core.Snapshot{}, false
	}
	return snap, true
}

// Delete removes the slot.
func (p *Persistence) Delete(ctx context.Context) {
	if err := p.kv.Delete(ctx, p.key); err != nil {
		p.diag.Warn("delete", err)
		return
	}
	p.logger.Debug("Snapshot deleted", "key", p.key)
}

var errMissingSeries = errors.New("snapshot lacks incomes or expenses array")

// DecodeSnapshot parses a stored slot. String elements are read as field
// text, null elements are kept as NaN so a restore skips them, and any other
// element becomes 0. The older "updated" timestamp key is accepted.
func DecodeSnapshot(data []byte) (core.Snapshot, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return core.Snapshot{}, fmt.Errorf("decode snapshot: %w", err)
	}

	incomes, okIn := decodeSeries(raw["incomes"])
	expenses, okEx := decodeSeries(raw["expenses"])
	if !okIn || !okEx {
		return core.Snapshot{}, errMissingSeries
	}

	snap := core.Snapshot{Incomes: incomes, Expenses: expenses}
	for _, k := range []string{"updatedAt", "updated"} {
		if v, ok := raw[k]; ok {
			var ts float64
			if json.Unmarshal(v, &ts) == nil {
				snap.UpdatedAt = int64(ts)
				break
			}
		}
	}
	return snap, nil
}

func decodeSeries(msg json.RawMessage) ([]float64, bool) {
	msg = bytes.TrimSpace(msg)
	if len(msg) == 0 || msg[0] != '[' {
		return nil, false
	}
	var elems []json.RawMessage
	if err := json.Unmarshal(msg, &elems); err != nil {
		return nil, false
	}
	out := make([]float64, len(elems))
	for i, e := range elems {
		var (
			v    float64
			text string
		)
		switch {
		case bytes.Equal(bytes.TrimSpace(e), []byte("null")):
			out[i] = math.NaN()
		case json.Unmarshal(e, &v) == nil:
			out[i] = v
		case json.Unmarshal(e, &text) == nil:
			out[i] = form.ParseNumber(text)
		}
	}
	return out, true
}

var errNonFinite = errors.New("snapshot holds a non-finite value")

func checkFinite(snap core.Snapshot) error {
	for _, series := range [][]float64{snap.Incomes, snap.Expenses} {
		for _, v := range series {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return fmt.Errorf("encode snapshot: %w", errNonFinite)
			}
		}
	}
	return nil
}

func nonNil(v []float64) []float64 {
	if v == nil {
		return []float64{}
	}
	return v
}
