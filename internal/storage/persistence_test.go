package storage

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bucks2bar/internal/core"
)

var fixedNow = time.UnixMilli(1_700_000_000_000)

func newTestPersistence(kv KV) (*Persistence, *Recorder) {
	rec := &Recorder{}
	p := NewPersistence(kv, "", WithDiagnostics(rec), WithClock(func() time.Time { return fixedNow }))
	return p, rec
}

func TestPersistence_SaveLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryKV(0)
	p, rec := newTestPersistence(kv)

	incomes := []float64{1000, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 2.5}
	expenses := []float64{500, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0}
	p.Save(ctx, incomes, expenses)

	snap, ok := p.Load(ctx)
	require.True(t, ok)
	assert.Equal(t, incomes, snap.Incomes)
	assert.Equal(t, expenses, snap.Expenses)
	assert.Equal(t, fixedNow.UnixMilli(), snap.UpdatedAt)
	assert.Empty(t, rec.Warnings())

	raw, err := kv.Get(ctx, core.StorageKey)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"updatedAt":1700000000000`)
}

func TestPersistence_LoadAbsent(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name    string
		stored  string
		warning bool
	}{
		{"never saved", "", false},
		{"invalid json", "{not json", true},
		{"missing expenses", `{"incomes":[1,2]}`, true},
		{"missing incomes", `{"expenses":[1,2]}`, true},
		{"incomes not an array", `{"incomes":5,"expenses":[]}`, true},
		{"json array", `[1,2,3]`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kv := NewMemoryKV(0)
			if tt.stored != "" {
				require.NoError(t, kv.Set(ctx, core.StorageKey, []byte(tt.stored)))
			}
			p, rec := newTestPersistence(kv)

			_, ok := p.Load(ctx)
			assert.False(t, ok)
			assert.Equal(t, tt.warning, len(rec.Warnings()) > 0)
		})
	}
}

func TestPersistence_LoadCoercesElements(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryKV(0)
	require.NoError(t, kv.Set(ctx, core.StorageKey,
		[]byte(`{"incomes":[1,"x",null,3.5,true],"expenses":[],"updated":42}`)))
	p, _ := newTestPersistence(kv)

	snap, ok := p.Load(ctx)
	require.True(t, ok)
	require.Len(t, snap.Incomes, 5)
	assert.Equal(t, 1.0, snap.Incomes[0])
	assert.Equal(t, 0.0, snap.Incomes[1])
	assert.True(t, math.IsNaN(snap.Incomes[2]))
	assert.Equal(t, 3.5, snap.Incomes[3])
	assert.Equal(t, 0.0, snap.Incomes[4])
	assert.Equal(t, []float64{}, snap.Expenses)
	assert.Equal(t, int64(42), snap.UpdatedAt)
}

func TestDecodeSnapshot_NumericStrings(t *testing.T) {
	snap, err := DecodeSnapshot([]byte(`{"incomes":["1000"," 250.5","12abc"],"expenses":["-3"]}`))
	require.NoError(t, err)
	assert.Equal(t, []float64{1000, 250.5, 12}, snap.Incomes)
	assert.Equal(t, []float64{-3}, snap.Expenses)
}

func TestDecodeSnapshot_NullsRoundTrip(t *testing.T) {
	snap, err := DecodeSnapshot([]byte(`{"incomes":[null,5],"expenses":[],"updatedAt":7}`))
	require.NoError(t, err)

	data, err := json.Marshal(snap)
	require.NoError(t, err)
	assert.JSONEq(t, `{"incomes":[null,5],"expenses":[],"updatedAt":7}`, string(data))
	assert.Equal(t, 0.0, snap.Series().Incomes[0])
}

func TestPersistence_SaveSoftFailures(t *testing.T) {
	ctx := context.Background()

	t.Run("quota exceeded", func(t *testing.T) {
		p, rec := newTestPersistence(NewMemoryKV(16))
		p.Save(ctx, make([]float64, 12), make([]float64, 12))

		w, ok := rec.Last()
		require.True(t, ok)
		assert.Equal(t, "save", w.Op)
		assert.ErrorIs(t, w.Err, ErrQuotaExceeded)
	})

	t.Run("non-finite value", func(t *testing.T) {
		kv := NewMemoryKV(0)
		p, rec := newTestPersistence(kv)
		p.Save(ctx, []float64{math.NaN()}, []float64{0})

		require.Len(t, rec.Warnings(), 1)
		_, err := kv.Get(ctx, core.StorageKey)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("store unavailable", func(t *testing.T) {
		kv := NewMemoryKV(0)
		require.NoError(t, kv.Close())
		p, rec := newTestPersistence(kv)

		p.Save(ctx, nil, nil)
		_, ok := p.Load(ctx)
		p.Delete(ctx)

		assert.False(t, ok)
		ops := []string{}
		for _, w := range rec.Warnings() {
			assert.True(t, errors.Is(w.Err, ErrClosed))
			ops = append(ops, w.Op)
		}
		assert.Equal(t, []string{"save", "load", "delete"}, ops)
	})
}

func TestPersistence_Delete(t *testing.T) {
	ctx := context.Background()
	p, rec := newTestPersistence(NewMemoryKV(0))

	p.Save(ctx, []float64{1}, []float64{2})
	p.Delete(ctx)
	p.Delete(ctx)

	_, ok := p.Load(ctx)
	assert.False(t, ok)
	assert.Empty(t, rec.Warnings())
}

func TestPersistence_CustomKey(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryKV(0)
	p := NewPersistence(kv, "other", WithDiagnostics(&Recorder{}))
	p.Save(ctx, []float64{1}, []float64{2})

	_, err := kv.Get(ctx, "other")
	assert.NoError(t, err)
	assert.Equal(t, "other", p.Key())
}
