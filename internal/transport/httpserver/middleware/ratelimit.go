package middleware

import (
	"math"
	"strconv"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"personal-metrics-service/internal/metrics"
	"personal-metrics-service/internal/transport/httpserver/dto"
)

// LimiterStore holds per-client token buckets.
// Implementations must be safe for concurrent use.
type LimiterStore interface {
	// LoadOrCreate returns the bucket of key, creating it with create when
	// absent, and marks it as seen at t.
	LoadOrCreate(key string, t time.Time, create func() *rate.Limiter) *rate.Limiter

	// Sweep drops buckets not seen since before and returns how many it dropped.
	Sweep(before time.Time) int

	// Len returns the number of tracked clients.
	Len() int
}

type storeEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// MemoryStore is an in-process LimiterStore.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]*storeEntry
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]*storeEntry)}
}

func (s *MemoryStore) LoadOrCreate(key string, t time.Time, create func() *rate.Limiter) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok {
		e = &storeEntry{limiter: create()}
		s.entries[key] = e
	}
	e.lastSeen = t

	return e.limiter
}

func (s *MemoryStore) Sweep(before time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	dropped := 0
	for key, e := range s.entries {
		if e.lastSeen.Before(before) {
			delete(s.entries, key)
			dropped++
		}
	}

	return dropped
}

func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.entries)
}

// RateLimiterConfig configures a RateLimiter.
type RateLimiterConfig struct {
	Rate  float64       // tokens per second
	Burst int           // bucket size
	TTL   time.Duration // idle clients are swept after TTL
	Now   func() time.Time
	Store LimiterStore
}

// RateLimiter is a per-client token bucket limiter. Time comes only from the
// injected clock, so tests drive it without sleeping.
type RateLimiter struct {
	limit  rate.Limit
	burst  int
	ttl    time.Duration
	now    func() time.Time
	store  LimiterStore
	logger *zap.Logger

	stopOnce sync.Once
	stop     chan struct{}
	wg       sync.WaitGroup
}

// NewRateLimiter creates a RateLimiter. Missing clock and store default to
// time.Now and a MemoryStore.
func NewRateLimiter(cfg RateLimiterConfig, logger *zap.Logger) *RateLimiter {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Store == nil {
		cfg.Store = NewMemoryStore()
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 10 * time.Minute
	}

	return &RateLimiter{
		limit:  rate.Limit(cfg.Rate),
		burst:  cfg.Burst,
		ttl:    cfg.TTL,
		now:    cfg.Now,
		store:  cfg.Store,
		logger: logger,
		stop:   make(chan struct{}),
	}
}

// Allow takes a token for key. When the bucket is empty it returns false and
// how long the client should wait.
func (l *RateLimiter) Allow(key string) (bool, time.Duration) {
	now := l.now()
	lim := l.store.LoadOrCreate(key, now, func() *rate.Limiter {
		return rate.NewLimiter(l.limit, l.burst)
	})

	r := lim.ReserveN(now, 1)
	if !r.OK() {
		return false, 0
	}
	if delay := r.DelayFrom(now); delay > 0 {
		r.CancelAt(now)
		return false, delay
	}

	return true, 0
}

// Sweep forgets clients idle for longer than the TTL.
func (l *RateLimiter) Sweep() int {
	return l.store.Sweep(l.now().Add(-l.ttl))
}

// Start sweeps idle clients every interval until Stop.
func (l *RateLimiter) Start(interval time.Duration) {
	l.wg.Add(1)
	go func() {
		defer l.wg.Done()

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-l.stop:
				return
			case <-ticker.C:
				if n := l.Sweep(); n > 0 {
					l.logger.Debug("rate limiter swept idle clients",
						zap.Int("dropped", n),
						zap.Int("tracked", l.store.Len()),
					)
				}
			}
		}
	}()
}

// Stop ends the sweep loop started by Start.
func (l *RateLimiter) Stop() {
	l.stopOnce.Do(func() {
		close(l.stop)
		l.wg.Wait()
	})
}

// Handler limits requests per client IP. Rejections get 429 with Retry-After.
func (l *RateLimiter) Handler(endpoint string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ok, wait := l.Allow(c.IP())
		if ok {
			return c.Next()
		}

		metrics.APIRateLimitHits.WithLabelValues(endpoint).Inc()
		l.logger.Warn("rate limit exceeded",
			zap.String("ip", c.IP()),
			zap.String("route", endpoint),
			zap.Duration("retry_after", wait),
		)

		if wait > 0 {
			c.Set(fiber.HeaderRetryAfter, strconv.Itoa(int(math.Ceil(wait.Seconds()))))
		}

		return c.Status(fiber.StatusTooManyRequests).JSON(dto.ErrorResponse{
			Error: "too many requests",
			Code:  "RATE_LIMITED",
		})
	}
}
