package ratelimit

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func TestLimiter_Window(t *testing.T) {
	c := &clock{t: time.Unix(0, 0)}
	rl := NewLimiter(Config{RequestsPerMinute: 2, Now: c.now})

	assert.True(t, rl.Allow("a"))
	assert.True(t, rl.Allow("a"))
	assert.False(t, rl.Allow("a"))
	assert.True(t, rl.Allow("b"), "clients are independent")

	c.t = c.t.Add(time.Minute)
	assert.True(t, rl.Allow("a"), "new window")
	assert.Equal(t, int64(1), rl.GetMetrics().TotalHits)
}

func TestLimiter_SteadyTrafficStillLimited(t *testing.T) {
	c := &clock{t: time.Unix(0, 0)}
	rl := NewLimiter(Config{RequestsPerMinute: 3, Now: c.now})

	allowed := 0
	for i := 0; i < 10; i++ {
		if rl.Allow("a") {
			allowed++
		}
		c.t = c.t.Add(5 * time.Second)
	}
	assert.Equal(t, 3, allowed)
}

func TestLimiter_CleanupStale(t *testing.T) {
	c := &clock{t: time.Unix(0, 0)}
	rl := NewLimiter(Config{Now: c.now})
	rl.Allow("a")
	c.t = c.t.Add(11 * time.Minute)
	rl.Allow("b")

	assert.Equal(t, 1, rl.CleanupStale())
	assert.Equal(t, 1, rl.ActiveClients())
}

func TestLimiter_MiddlewareOnlyLimitsListedMethods(t *testing.T) {
	rl := NewLimiter(Config{RequestsPerMinute: 1})
	h := rl.Middleware(func(*http.Request) string { return "ip" }, nil, http.MethodPost)(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	for i := 0; i < 3; i++ {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusOK, rr.Code)
	}

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/reset", nil))
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/reset", nil))
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.Equal(t, "60", rr.Header().Get("Retry-After"))
}

func TestLimiter_RunStops(t *testing.T) {
	rl := NewLimiter(Config{CleanupInterval: time.Millisecond})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = rl.Run(ctx)
		close(done)
	}()
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not stop")
	}
}
