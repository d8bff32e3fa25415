package locker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redsync/redsync/v4"
	"github.com/go-redsync/redsync/v4/redis/goredis/v9"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisLocker implements DistributedLocker with Redsync (Redlock on a single
// Redis node).
type RedisLocker struct {
	rs     *redsync.Redsync
	prefix string
	logger *zap.Logger
}

var _ DistributedLocker = (*RedisLocker)(nil)

// Option configures a RedisLocker.
type Option func(*RedisLocker)

// WithKeyPrefix namespaces every lock key, e.g. per deployment.
func WithKeyPrefix(prefix string) Option {
	return func(r *RedisLocker) { r.prefix = prefix }
}

// NewRedisLocker creates a new Redis-based distributed locker.
func NewRedisLocker(client *redis.Client, logger *zap.Logger, opts ...Option) *RedisLocker {
	r := &RedisLocker{
		rs:     redsync.New(goredis.NewPool(client)),
		logger: logger,
	}
	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Acquire tries once, without blocking, to take the lock.
func (r *RedisLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (Lock, error) {
	name := key
	if r.prefix != "" {
		name = r.prefix + ":" + key
	}

	mutex := r.rs.NewMutex(name,
		redsync.WithExpiry(ttl),
		redsync.WithTries(1),
	)

	if err := mutex.LockContext(ctx); err != nil {
		if isTaken(err) {
			r.logger.Debug("lock held elsewhere", zap.String("key", key))
			return nil, nil
		}
		return nil, fmt.Errorf("acquire lock %s: %w", key, err)
	}

	r.logger.Debug("lock acquired",
		zap.String("key", key),
		zap.Duration("ttl", ttl),
	)

	return &redisLock{key: key, mutex: mutex, logger: r.logger}, nil
}

// isTaken reports whether a Redsync error means contention rather than a
// backend failure.
func isTaken(err error) bool {
	var taken *redsync.ErrTaken
	return errors.Is(err, redsync.ErrFailed) || errors.As(err, &taken)
}

type redisLock struct {
	key    string
	mutex  *redsync.Mutex
	logger *zap.Logger
}

func (l *redisLock) Key() string { return l.key }

// notHeld reports whether a Redsync error means the lock expired or changed hands.
func notHeld(err error) bool {
	return isTaken(err) ||
		errors.Is(err, redsync.ErrLockAlreadyExpired) ||
		errors.Is(err, redsync.ErrExtendFailed)
}

func (l *redisLock) Extend(ctx context.Context) error {
	ok, err := l.mutex.ExtendContext(ctx)
	if err != nil && !notHeld(err) {
		return fmt.Errorf("extend lock %s: %w", l.key, err)
	}
	if !ok {
		return fmt.Errorf("extend lock %s: %w", l.key, ErrNotHeld)
	}

	return nil
}

func (l *redisLock) Release(ctx context.Context) error {
	ok, err := l.mutex.UnlockContext(ctx)
	if err != nil && !notHeld(err) {
		return fmt.Errorf("release lock %s: %w", l.key, err)
	}
	if !ok {
		return fmt.Errorf("release lock %s: %w", l.key, ErrNotHeld)
	}

	l.logger.Debug("lock released", zap.String("key", l.key))

	return nil
}
