package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"personal-metrics-service/internal/domain"
)

const quotaBody = `{"error":{"code":429,"message":"Quota exceeded for quota metric 'Queries' and limit 'Queries per day' of service 'books.googleapis.com'","status":"RESOURCE_EXHAUSTED"}}`

const genericThrottleBody = `{"error":{"code":429,"message":"Too many requests, slow down","status":"RESOURCE_EXHAUSTED"}}`

// TestDecide tests the retry classification table.
func TestDecide(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		attempt   int
		max       int
		wantRetry bool
		wantDelay time.Duration
	}{
		{"quota exhausted fails immediately", domain.NewAPIError("books", 429, []byte(quotaBody)), 1, 3, false, 0},
		{"generic 429 first attempt", domain.NewAPIError("books", 429, []byte(genericThrottleBody)), 1, 3, true, 2000 * time.Millisecond},
		{"generic 429 second attempt", domain.NewAPIError("books", 429, []byte(genericThrottleBody)), 2, 3, true, 4000 * time.Millisecond},
		{"503 retried", domain.NewAPIError("books", 503, nil), 1, 5, true, 2 * time.Second},
		{"503 with quota body still retried", domain.NewAPIError("books", 503, []byte(quotaBody)), 1, 3, true, 2 * time.Second},
		{"malformed body falls back to generic", domain.NewAPIError("books", 429, []byte("<html>nope")), 1, 3, true, 2 * time.Second},
		{"attempts exhausted", domain.NewAPIError("books", 429, nil), 3, 3, false, 0},
		{"500 not retried", domain.NewAPIError("books", 500, nil), 1, 3, false, 0},
		{"404 not retried", domain.NewAPIError("books", 404, nil), 1, 3, false, 0},
		{"non-http error", errors.New("connection reset"), 1, 3, false, 0},
		{"wrapped api error", fmt.Errorf("fetch: %w", domain.NewAPIError("books", 429, nil)), 1, 3, true, 2 * time.Second},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			d := Decide(tt.err, tt.attempt, tt.max)

			if tt.wantRetry {
				assert.Equal(t, ActionRetry, d.Action)
				assert.Equal(t, tt.wantDelay, d.Delay)
			} else {
				assert.Equal(t, ActionFail, d.Action)
			}
		})
	}
}

// TestIsQuotaExhausted tests the quota body probe.
func TestIsQuotaExhausted(t *testing.T) {
	assert.True(t, IsQuotaExhausted([]byte(quotaBody)))
	assert.False(t, IsQuotaExhausted([]byte(genericThrottleBody)))
	assert.False(t, IsQuotaExhausted([]byte(`{"error":{"status":"PERMISSION_DENIED","message":"Queries per day"}}`)))
	assert.False(t, IsQuotaExhausted([]byte("not json {")))
	assert.False(t, IsQuotaExhausted(nil))
}

type recordingSleeper struct {
	delays []time.Duration
}

func (s *recordingSleeper) sleep(_ context.Context, d time.Duration) error {
	s.delays = append(s.delays, d)
	return nil
}

// TestRetrier_Do_ThrottledThenSuccess tests that backoff delays are observed between attempts.
func TestRetrier_Do_ThrottledThenSuccess(t *testing.T) {
	sleeper := &recordingSleeper{}
	r := NewRetrier("books", 3, zap.NewNop()).WithSleeper(sleeper.sleep)

	calls := 0
	err := r.Do(context.Background(), func(_ context.Context) error {
		calls++
		if calls < 3 {
			return domain.NewAPIError("books", http.StatusTooManyRequests, []byte(genericThrottleBody))
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, []time.Duration{2 * time.Second, 4 * time.Second}, sleeper.delays)
}

// TestRetrier_Do_Quota tests that a quota cap stops after one attempt.
func TestRetrier_Do_Quota(t *testing.T) {
	sleeper := &recordingSleeper{}
	r := NewRetrier("books", 3, zap.NewNop()).WithSleeper(sleeper.sleep)

	calls := 0
	err := r.Do(context.Background(), func(_ context.Context) error {
		calls++
		return domain.NewAPIError("books", http.StatusTooManyRequests, []byte(quotaBody))
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrQuotaExhausted)
	assert.Equal(t, 1, calls)
	assert.Empty(t, sleeper.delays)
}

// TestRetrier_Do_Exhausted tests that the last error is returned after max attempts.
func TestRetrier_Do_Exhausted(t *testing.T) {
	sleeper := &recordingSleeper{}
	r := NewRetrier("books", 2, zap.NewNop()).WithSleeper(sleeper.sleep)

	calls := 0
	err := r.Do(context.Background(), func(_ context.Context) error {
		calls++
		return domain.NewAPIError("books", http.StatusServiceUnavailable, nil)
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrRateLimited)
	assert.Equal(t, 2, calls)
	assert.Equal(t, []time.Duration{2 * time.Second}, sleeper.delays)
}

// TestRetrier_Do_ContextCanceled tests that a canceled wait aborts the loop.
func TestRetrier_Do_ContextCanceled(t *testing.T) {
	r := NewRetrier("books", 3, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := r.Do(ctx, func(_ context.Context) error {
		return domain.NewAPIError("books", http.StatusTooManyRequests, nil)
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}
