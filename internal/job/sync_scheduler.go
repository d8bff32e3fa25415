// Package job provides background job schedulers.
package job

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"personal-metrics-service/internal/app/service"
	"personal-metrics-service/pkg/locker"
)

// SchedulerLockKey keeps scheduled runs to one instance per interval.
const SchedulerLockKey = "sync:scheduler:lock"

// Syncer runs every provider sync.
type Syncer interface {
	SyncAll(ctx context.Context) []service.ProviderResult
}

// SyncScheduler runs every provider sync on an interval, with distributed
// locking so only one instance executes a scheduled run.
type SyncScheduler struct {
	syncer   Syncer
	interval time.Duration
	timeout  time.Duration
	logger   *zap.Logger
	locker   locker.DistributedLocker

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// SyncConfig holds sync scheduler configuration.
type SyncConfig struct {
	Interval  time.Duration
	Timeout   time.Duration
	OnStartup bool
}

// NewSyncScheduler creates a new SyncScheduler. A nil locker runs every tick
// on this instance.
func NewSyncScheduler(syncer Syncer, cfg SyncConfig, logger *zap.Logger, locker locker.DistributedLocker) *SyncScheduler {
	return &SyncScheduler{
		syncer:   syncer,
		interval: cfg.Interval,
		timeout:  cfg.Timeout,
		logger:   logger,
		locker:   locker,
	}
}

// Start begins the background sync job.
func (s *SyncScheduler) Start(runOnStartup bool) {
	s.ctx, s.cancel = context.WithCancel(context.Background())

	s.logger.Info("starting sync scheduler",
		zap.Duration("interval", s.interval),
		zap.Bool("run_on_startup", runOnStartup),
	)

	s.wg.Add(1)
	go s.run(runOnStartup)
}

// Stop cancels any in-flight run and waits for the loop to exit.
func (s *SyncScheduler) Stop() {
	s.logger.Info("stopping sync scheduler")
	s.cancel()
	s.wg.Wait()
	s.logger.Info("sync scheduler stopped")
}

func (s *SyncScheduler) run(runOnStartup bool) {
	defer s.wg.Done()

	if runOnStartup {
		s.executeSync()
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.executeSync()
		}
	}
}

// executeSync performs one scheduled run.
//
// Locking behavior:
//   - Lock TTL = interval duration (cooldown model, not timeout)
//   - Every provider succeeded: lock held for the full interval
//   - Any provider failed: lock released so another instance may retry
func (s *SyncScheduler) executeSync() {
	var lock locker.Lock
	if s.locker != nil {
		var err error
		lock, err = s.locker.Acquire(s.ctx, SchedulerLockKey, s.interval)
		if err != nil {
			s.logger.Error("failed to acquire scheduler lock", zap.Error(err))
			return
		}
		if lock == nil {
			s.logger.Debug("another instance ran the scheduled sync, skipping")
			return
		}
	}

	ctx, cancel := context.WithTimeout(s.ctx, s.timeout)
	defer cancel()

	results := s.syncer.SyncAll(ctx)

	failed, enriched, uploaded := 0, 0, 0
	for _, r := range results {
		if r.Run != nil {
			enriched += r.Run.Enriched
			uploaded += r.Run.Uploaded
		}
		if !r.Failed() {
			continue
		}
		failed++

		fields := []zap.Field{zap.String("provider", r.Provider)}
		if r.Err != nil {
			fields = append(fields, zap.Error(r.Err))
		} else {
			fields = append(fields, zap.String("error", r.Result.Error))
		}
		s.logger.Warn("scheduled provider sync failed", fields...)
	}

	if failed > 0 {
		if lock != nil {
			if err := lock.Release(context.WithoutCancel(s.ctx)); err != nil {
				s.logger.Error("failed to release scheduler lock after sync error", zap.Error(err))
			}
		}
		s.logger.Info("scheduled sync completed with errors, lock released for retry",
			zap.Int("providers_failed", failed),
			zap.Int("enriched", enriched),
			zap.Int("uploaded", uploaded),
		)
		return
	}

	// The lock expires on its own after the interval (cooldown)
	s.logger.Info("scheduled sync completed",
		zap.Int("providers", len(results)),
		zap.Int("enriched", enriched),
		zap.Int("uploaded", uploaded),
		zap.Duration("cooldown", s.interval),
	)
}
