package services

import (
	"context"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bucks2bar/internal/chart"
	"bucks2bar/internal/eventloop"
	"bucks2bar/internal/form"
	"bucks2bar/internal/storage"
	"bucks2bar/internal/testutil"
)

const wait = 300 * time.Millisecond

type sessionFixture struct {
	*syncFixture
	loop    *eventloop.Loop
	clock   *testutil.ManualScheduler
	session *Session
}

func newSessionFixture(t *testing.T) *sessionFixture {
	t.Helper()
	sf := newSyncFixture(t)
	loop := eventloop.New(0, nil)
	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = loop.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-loop.Stopped()
	})

	clock := testutil.NewManualScheduler()
	return &sessionFixture{
		syncFixture: sf,
		loop:        loop,
		clock:       clock,
		session: NewSession(ctx, loop, sf.fields, sf.sync, SessionOptions{
			Wait:  wait,
			Clock: clock,
			Now:   func() time.Time { return time.Unix(100, 0) },
		}),
	}
}

// advance moves the clock and waits for any posted callbacks to run.
func (f *sessionFixture) advance(t *testing.T, d time.Duration) {
	t.Helper()
	f.clock.Advance(d)
	require.NoError(t, f.loop.Do(context.Background(), func() {}))
}

func (f *sessionFixture) state(t *testing.T) State {
	t.Helper()
	st, err := f.session.State(context.Background())
	require.NoError(t, err)
	return st
}

func TestSession_InputIsDebounced(t *testing.T) {
	f := newSessionFixture(t)
	ctx := context.Background()

	require.NoError(t, f.session.Input(ctx, "income-01", "1"))
	f.advance(t, 200*time.Millisecond)
	require.NoError(t, f.session.Input(ctx, "income-01", "10"))
	f.advance(t, 200*time.Millisecond)
	require.NoError(t, f.session.Input(ctx, "income-01", "1000"))

	st := f.state(t)
	assert.True(t, st.Pending)
	assert.Equal(t, 0, st.Revision, "no sync inside the quiet period")

	f.advance(t, wait)
	st = f.state(t)
	assert.False(t, st.Pending)
	assert.Equal(t, 1, st.Revision, "burst collapses to one sync")
	assert.Equal(t, 1000.0, st.Series.Incomes[0])
	assert.Equal(t, time.Unix(100, 0), st.LastSync)

	snap, ok := f.store.Load(ctx)
	require.True(t, ok)
	assert.Equal(t, 1000.0, snap.Incomes[0])
}

func TestSession_CommitFlushes(t *testing.T) {
	f := newSessionFixture(t)
	ctx := context.Background()

	require.NoError(t, f.session.Input(ctx, "expense-02", "40"))
	require.NoError(t, f.session.Commit(ctx, "expense-02", nil))

	st := f.state(t)
	assert.Equal(t, 1, st.Revision)
	assert.Equal(t, 40.0, st.Series.Expenses[1])

	f.advance(t, time.Second)
	assert.Equal(t, 1, f.state(t).Revision, "flushed timer never fires")
}

func TestSession_CommitWithValue(t *testing.T) {
	f := newSessionFixture(t)
	v := "-100"

	require.NoError(t, f.session.Commit(context.Background(), "income-01", &v))

	st := f.state(t)
	assert.True(t, st.IsInvalid("income-01"))
	assert.Equal(t, "-100", st.Values["income-01"])
}

func TestSession_CommitWithoutPendingIsNoop(t *testing.T) {
	f := newSessionFixture(t)

	require.NoError(t, f.session.Commit(context.Background(), "income-01", nil))
	assert.Equal(t, 0, f.state(t).Revision)

	_, err := f.session.Chart(context.Background())
	assert.ErrorIs(t, err, ErrNoChart)
}

func TestSession_UnknownField(t *testing.T) {
	f := newSessionFixture(t)
	ctx := context.Background()

	assert.ErrorIs(t, f.session.Input(ctx, "income-13", "1"), form.ErrUnknownField)
	assert.ErrorIs(t, f.session.Commit(ctx, "nope", nil), form.ErrUnknownField)
	assert.False(t, f.state(t).Pending)
}

func TestSession_Reset(t *testing.T) {
	f := newSessionFixture(t)
	ctx := context.Background()
	require.NoError(t, f.session.Start(ctx, SeedRandom, rand.New(rand.NewPCG(3, 4))))

	require.NoError(t, f.session.Input(ctx, "income-05", "9"))
	require.NoError(t, f.session.Reset(ctx))

	st := f.state(t)
	for id, v := range st.Values {
		assert.Empty(t, v, id)
	}
	assert.True(t, st.Series.IsZero())
	_, ok := f.store.Load(ctx)
	assert.False(t, ok)
}

func TestSession_UneditedCommitAfterReset(t *testing.T) {
	f := newSessionFixture(t)
	ctx := context.Background()
	require.NoError(t, f.session.Start(ctx, SeedRandom, rand.New(rand.NewPCG(7, 8))))
	require.NoError(t, f.session.Reset(ctx))
	rev := f.state(t).Revision

	empty := ""
	require.NoError(t, f.session.Commit(ctx, "income-02", &empty))

	assert.Equal(t, rev, f.state(t).Revision)
	_, ok := f.store.Load(ctx)
	assert.False(t, ok, "slot stays absent")

	edited := "15"
	require.NoError(t, f.session.Commit(ctx, "income-02", &edited))
	assert.Equal(t, rev+1, f.state(t).Revision)
	_, ok = f.store.Load(ctx)
	assert.True(t, ok)
}

func TestSession_Clear(t *testing.T) {
	f := newSessionFixture(t)
	ctx := context.Background()
	require.NoError(t, f.session.Start(ctx, SeedRandom, nil))

	require.NoError(t, f.session.Clear(ctx))

	_, ok := f.store.Load(ctx)
	assert.False(t, ok)
	assert.Empty(t, f.diag.Warnings())
}

func TestSession_StartModes(t *testing.T) {
	ctx := context.Background()

	t.Run("restore existing", func(t *testing.T) {
		f := newSessionFixture(t)
		f.store.Save(ctx, []float64{11}, []float64{22})

		require.NoError(t, f.session.Start(ctx, SeedRestore, nil))
		st := f.state(t)
		assert.Equal(t, 11.0, st.Series.Incomes[0])
		assert.Equal(t, 22.0, st.Series.Expenses[0])
		assert.Equal(t, 1, st.Revision)
	})

	t.Run("restore falls back to random", func(t *testing.T) {
		f := newSessionFixture(t)
		require.NoError(t, f.session.Start(ctx, SeedRestore, rand.New(rand.NewPCG(5, 6))))

		st := f.state(t)
		for i := 0; i < 12; i++ {
			assert.GreaterOrEqual(t, st.Series.Incomes[i], float64(SeedMin))
		}
		_, ok := f.store.Load(ctx)
		assert.True(t, ok, "start syncs")
	})

	t.Run("blank", func(t *testing.T) {
		f := newSessionFixture(t)
		f.store.Save(ctx, []float64{11}, []float64{22})

		require.NoError(t, f.session.Start(ctx, SeedBlank, nil))
		st := f.state(t)
		assert.True(t, st.Series.IsZero())
		assert.Equal(t, 1, st.Revision)
	})
}

func TestSession_Chart(t *testing.T) {
	f := newSessionFixture(t)
	ctx := context.Background()
	require.NoError(t, f.session.Start(ctx, SeedBlank, nil))

	w, err := f.session.Chart(ctx)
	require.NoError(t, err)
	assert.IsType(t, &chart.Widget{}, w)
	assert.NotEmpty(t, w.PNG())
}

func TestSession_FlushOnShutdown(t *testing.T) {
	f := newSessionFixture(t)
	ctx := context.Background()

	require.NoError(t, f.session.Input(ctx, "income-07", "70"))
	require.NoError(t, f.session.Flush(ctx))

	snap, ok := f.store.Load(ctx)
	require.True(t, ok)
	assert.Equal(t, 70.0, snap.Incomes[6])
}

func TestSession_StoppedLoop(t *testing.T) {
	loop := eventloop.New(0, nil)
	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = loop.Run(ctx) }()
	cancel()
	<-loop.Stopped()

	sf := newSyncFixture(t)
	s := NewSession(context.Background(), loop, sf.fields, sf.sync, SessionOptions{})
	assert.ErrorIs(t, s.Reset(context.Background()), eventloop.ErrStopped)
}

func TestSeedMode_IsValid(t *testing.T) {
	assert.True(t, SeedRestore.IsValid())
	assert.True(t, SeedBlank.IsValid())
	assert.False(t, SeedMode("demo").IsValid())
}

var _ SnapshotStore = (*storage.Persistence)(nil)
