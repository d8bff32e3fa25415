package provider

import (
	"context"
	"errors"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"personal-metrics-service/internal/domain"
	"personal-metrics-service/internal/metrics"
)

// RetryAction is the outcome of a retry decision.
type RetryAction string

const (
	ActionRetry RetryAction = "retry"
	ActionFail  RetryAction = "fail"
)

// RetryDecision tells the caller whether to try again and how long to wait first.
type RetryDecision struct {
	Action RetryAction
	Delay  time.Duration
}

// quota-exhaustion markers in a Google-style error body
const (
	quotaStatus        = "RESOURCE_EXHAUSTED"
	quotaMessageMarker = "per day"
)

// Decide classifies a failed attempt. attempt is the 1-based number of the
// attempt that just failed. Throttling responses (429/503) are retried after
// 2^attempt seconds unless the body reports a daily quota cap or attempts are
// exhausted. Everything else fails.
func Decide(err error, attempt, maxAttempts int) RetryDecision {
	fail := RetryDecision{Action: ActionFail}

	apiErr, ok := domain.AsAPIError(err)
	if !ok {
		return fail
	}
	if apiErr.StatusCode != http.StatusTooManyRequests && apiErr.StatusCode != http.StatusServiceUnavailable {
		return fail
	}
	if apiErr.StatusCode == http.StatusTooManyRequests && IsQuotaExhausted(apiErr.Body) {
		return fail
	}
	if attempt >= maxAttempts {
		return fail
	}

	return RetryDecision{
		Action: ActionRetry,
		Delay:  time.Duration(math.Pow(2, float64(attempt))) * time.Second,
	}
}

// IsQuotaExhausted reports whether an error body describes a daily quota cap.
// Bodies that are not JSON carry no structured info and report false.
func IsQuotaExhausted(body []byte) bool {
	if len(body) == 0 || !gjson.ValidBytes(body) {
		return false
	}

	status := gjson.GetBytes(body, "error.status").String()
	message := gjson.GetBytes(body, "error.message").String()

	return status == quotaStatus && strings.Contains(strings.ToLower(message), quotaMessageMarker)
}

// Sleeper waits for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// ContextSleep is the production Sleeper.
func ContextSleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Retrier runs an operation under the retry policy.
type Retrier struct {
	upstream    string
	maxAttempts int
	sleep       Sleeper
	logger      *zap.Logger
}

// NewRetrier creates a Retrier for the named upstream.
func NewRetrier(upstream string, maxAttempts int, logger *zap.Logger) *Retrier {
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	return &Retrier{
		upstream:    upstream,
		maxAttempts: maxAttempts,
		sleep:       ContextSleep,
		logger:      logger,
	}
}

// WithSleeper replaces the wait function, e.g. to observe delays in tests.
func (r *Retrier) WithSleeper(s Sleeper) *Retrier {
	r.sleep = s
	return r
}

// MaxAttempts returns the attempt bound.
func (r *Retrier) MaxAttempts() int {
	return r.maxAttempts
}

// Do calls fn until it succeeds or the policy says to stop, and returns the
// last error. The error is wrapped with ErrQuotaExhausted when the upstream
// reported a quota cap.
func (r *Retrier) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	for attempt := 1; ; attempt++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}

		decision := Decide(err, attempt, r.maxAttempts)
		metrics.RetryDecisions.WithLabelValues(r.upstream, string(decision.Action)).Inc()

		if decision.Action == ActionFail {
			if apiErr, ok := domain.AsAPIError(err); ok && IsQuotaExhausted(apiErr.Body) {
				return errors.Join(domain.ErrQuotaExhausted, err)
			}
			return err
		}

		r.logger.Warn("upstream throttled, backing off",
			zap.String("upstream", r.upstream),
			zap.Int("attempt", attempt),
			zap.Duration("delay", decision.Delay),
			zap.Error(err),
		)

		if sleepErr := r.sleep(ctx, decision.Delay); sleepErr != nil {
			return errors.Join(sleepErr, err)
		}
	}
}
