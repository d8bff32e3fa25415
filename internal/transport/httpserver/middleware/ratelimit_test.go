package middleware

import (
	"io"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"personal-metrics-service/internal/transport/httpserver/dto"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestLimiter(clock *fakeClock, rate float64, burst int) *RateLimiter {
	return NewRateLimiter(RateLimiterConfig{
		Rate:  rate,
		Burst: burst,
		TTL:   10 * time.Minute,
		Now:   clock.Now,
	}, zap.NewNop())
}

// TestRateLimiter_BurstThenRefill tests bucket exhaustion and refill driven by the clock.
func TestRateLimiter_BurstThenRefill(t *testing.T) {
	clock := newFakeClock()
	l := newTestLimiter(clock, 1, 2)

	ok, _ := l.Allow("10.0.0.1")
	assert.True(t, ok)
	ok, _ = l.Allow("10.0.0.1")
	assert.True(t, ok)

	ok, wait := l.Allow("10.0.0.1")
	assert.False(t, ok)
	assert.InDelta(t, time.Second, wait, float64(time.Millisecond))

	// A rejected request does not consume a token
	clock.Advance(time.Second)
	ok, _ = l.Allow("10.0.0.1")
	assert.True(t, ok)

	ok, _ = l.Allow("10.0.0.1")
	assert.False(t, ok)
}

// TestRateLimiter_PerClient tests that buckets are tracked per key.
func TestRateLimiter_PerClient(t *testing.T) {
	l := newTestLimiter(newFakeClock(), 0.2, 1)

	ok, _ := l.Allow("10.0.0.1")
	assert.True(t, ok)
	ok, _ = l.Allow("10.0.0.1")
	assert.False(t, ok)

	ok, _ = l.Allow("10.0.0.2")
	assert.True(t, ok)
}

// TestRateLimiter_Sweep tests that idle clients are dropped after the TTL.
func TestRateLimiter_Sweep(t *testing.T) {
	clock := newFakeClock()
	store := NewMemoryStore()
	l := NewRateLimiter(RateLimiterConfig{Rate: 1, Burst: 1, TTL: 10 * time.Minute, Now: clock.Now, Store: store}, zap.NewNop())

	l.Allow("idle")
	clock.Advance(5 * time.Minute)
	l.Allow("active")
	clock.Advance(6 * time.Minute)

	assert.Equal(t, 1, l.Sweep())
	assert.Equal(t, 1, store.Len())

	// A swept client starts over with a full bucket
	l.Allow("idle")
	ok, _ := l.Allow("active")
	assert.True(t, ok)
}

// TestRateLimiter_StopWithoutStart tests that Stop returns when no sweep loop runs.
func TestRateLimiter_StopWithoutStart(t *testing.T) {
	l := newTestLimiter(newFakeClock(), 1, 1)
	l.Stop()
	l.Stop()
}

// TestRateLimiter_StartStop tests the background sweep loop.
func TestRateLimiter_StartStop(t *testing.T) {
	clock := newFakeClock()
	store := NewMemoryStore()
	l := NewRateLimiter(RateLimiterConfig{Rate: 1, Burst: 1, TTL: time.Minute, Now: clock.Now, Store: store}, zap.NewNop())

	l.Allow("10.0.0.1")
	clock.Advance(2 * time.Minute)

	l.Start(5 * time.Millisecond)
	require.Eventually(t, func() bool { return store.Len() == 0 }, time.Second, 5*time.Millisecond)
	l.Stop()
}

// TestRateLimiter_Handler tests the 429 response and Retry-After header.
func TestRateLimiter_Handler(t *testing.T) {
	l := newTestLimiter(newFakeClock(), 0.2, 1)

	app := fiber.New()
	app.Get("/sync", l.Handler("/sync"), func(c *fiber.Ctx) error {
		return c.SendString("ok")
	})

	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/sync", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest(fiber.MethodGet, "/sync", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, "5", resp.Header.Get(fiber.HeaderRetryAfter))

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var errResp dto.ErrorResponse
	require.NoError(t, json.Unmarshal(body, &errResp))
	assert.Equal(t, "RATE_LIMITED", errResp.Code)
}
