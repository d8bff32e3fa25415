package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"personal-metrics-service/internal/domain"
	"personal-metrics-service/internal/metrics"
	"personal-metrics-service/pkg/locker"
)

// DefaultLockTTL bounds how long a provider lock outlives a crashed run.
const DefaultLockTTL = 10 * time.Minute

// MinLockTTL is the shortest lock TTL a SyncService accepts.
const MinLockTTL = time.Second

// ProviderLockKey is the lock held while a provider syncs.
func ProviderLockKey(provider string) string {
	return "sync:provider:" + provider
}

// SyncService dispatches sync runs to the provider orchestrators.
type SyncService struct {
	orchestrators map[string]Orchestrator
	names         []string
	history       domain.SyncRunRepository
	widgets       WidgetRefresher
	locker        locker.DistributedLocker
	lockTTL       time.Duration
	logger        *zap.Logger
}

// WidgetRefresher rewrites the read cache of a provider after a sync.
type WidgetRefresher interface {
	Refresh(ctx context.Context, provider string) error
}

// SyncServiceConfig holds the optional collaborators of a SyncService.
type SyncServiceConfig struct {
	History domain.SyncRunRepository // nil disables run history
	Widgets WidgetRefresher          // nil disables read cache refresh
	Locker  locker.DistributedLocker // nil disables provider locking
	LockTTL time.Duration
}

// NewSyncService creates a new SyncService.
func NewSyncService(orchestrators []Orchestrator, cfg SyncServiceConfig, logger *zap.Logger) *SyncService {
	byName := make(map[string]Orchestrator, len(orchestrators))
	names := make([]string, 0, len(orchestrators))
	for _, o := range orchestrators {
		byName[o.Provider()] = o
		names = append(names, o.Provider())
	}
	sort.Strings(names)

	if cfg.LockTTL <= 0 {
		cfg.LockTTL = DefaultLockTTL
	}
	if cfg.LockTTL < MinLockTTL {
		cfg.LockTTL = MinLockTTL
	}

	return &SyncService{
		orchestrators: byName,
		names:         names,
		history:       cfg.History,
		widgets:       cfg.Widgets,
		locker:        cfg.Locker,
		lockTTL:       cfg.LockTTL,
		logger:        logger,
	}
}

// ProviderResult is the outcome of one provider in SyncAll.
type ProviderResult struct {
	Provider string
	Result   domain.SyncResult
	Run      *domain.SyncRun
	Err      error
}

// Failed reports whether the provider run did not succeed.
func (r ProviderResult) Failed() bool {
	return r.Err != nil || !r.Result.OK()
}

// Sync runs the named provider's orchestrator. The returned error is set only
// when no run took place (unknown provider, run already in progress); a run
// that ended in FAILED is reported through the envelope.
func (s *SyncService) Sync(ctx context.Context, provider string) (domain.SyncResult, *domain.SyncRun, error) {
	o, ok := s.orchestrators[provider]
	if !ok {
		err := fmt.Errorf("%w: %s", domain.ErrUnknownProvider, provider)
		return domain.Failed(err), nil, err
	}

	release, err := s.lock(ctx, provider)
	if err != nil {
		return domain.Failed(err), nil, err
	}
	defer release()

	result, run := s.run(ctx, o)
	run.ID = uuid.NewString()

	metrics.RecordSyncRun(provider, string(run.Result), run.Duration())
	s.record(ctx, run)

	if result.OK() {
		s.refresh(ctx, provider)
	}

	return result, run, nil
}

// SyncAll runs every orchestrator concurrently. Partial failures are allowed.
func (s *SyncService) SyncAll(ctx context.Context) []ProviderResult {
	results := make([]ProviderResult, len(s.names))
	var wg sync.WaitGroup

	s.logger.Info("starting sync for all providers",
		zap.Int("provider_count", len(s.names)),
	)

	for i, name := range s.names {
		wg.Add(1)
		go func(idx int, provider string) {
			defer wg.Done()
			result, run, err := s.Sync(ctx, provider)
			results[idx] = ProviderResult{Provider: provider, Result: result, Run: run, Err: err}
		}(i, name)
	}

	wg.Wait()

	failed := 0
	for _, r := range results {
		if r.Failed() {
			failed++
		}
	}

	s.logger.Info("sync completed",
		zap.Int("providers_synced", len(results)-failed),
		zap.Int("providers_failed", failed),
	)

	return results
}

// ProviderNames returns the names of all registered providers, sorted.
func (s *SyncService) ProviderNames() []string {
	return append([]string(nil), s.names...)
}

// HasProvider reports whether provider has an orchestrator.
func (s *SyncService) HasProvider(provider string) bool {
	_, ok := s.orchestrators[provider]
	return ok
}

// Runs returns the most recent runs of a provider, newest first.
func (s *SyncService) Runs(ctx context.Context, provider string, limit int) ([]*domain.SyncRun, error) {
	if !s.HasProvider(provider) {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnknownProvider, provider)
	}
	if s.history == nil {
		return []*domain.SyncRun{}, nil
	}
	return s.history.ListByProvider(ctx, provider, limit)
}

// RecentRuns returns the most recent runs across providers, newest first.
func (s *SyncService) RecentRuns(ctx context.Context, limit int) ([]*domain.SyncRun, error) {
	if s.history == nil {
		return []*domain.SyncRun{}, nil
	}
	return s.history.Recent(ctx, limit)
}

// run calls the orchestrator, turning a panic into a failed run.
func (s *SyncService) run(ctx context.Context, o Orchestrator) (result domain.SyncResult, run *domain.SyncRun) {
	started := time.Now()

	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("sync panicked: %v", r)
			s.logger.Error("orchestrator panicked",
				zap.String("provider", o.Provider()),
				zap.Any("panic", r),
			)
			result = domain.Failed(err)
			run = &domain.SyncRun{
				Provider:   o.Provider(),
				Result:     domain.SyncFailure,
				Phase:      domain.PhaseFailed,
				Error:      err.Error(),
				StartedAt:  started,
				FinishedAt: time.Now(),
			}
		}
	}()

	return o.Sync(ctx)
}

// lock takes the provider lock. An unreachable lock backend does not block
// the run; the caller always gets a release func on success.
func (s *SyncService) lock(ctx context.Context, provider string) (func(), error) {
	if s.locker == nil {
		return func() {}, nil
	}

	key := ProviderLockKey(provider)
	lock, err := s.locker.Acquire(ctx, key, s.lockTTL)
	if err != nil {
		s.logger.Warn("provider lock unavailable, syncing unlocked",
			zap.String("provider", provider),
			zap.Error(err),
		)
		return func() {}, nil
	}
	if lock == nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrSyncInProgress, provider)
	}

	stop := make(chan struct{})
	done := make(chan struct{})
	go s.keepAlive(ctx, provider, lock, stop, done)

	return func() {
		close(stop)
		<-done
		if err := lock.Release(context.WithoutCancel(ctx)); err != nil {
			s.logger.Warn("failed to release provider lock",
				zap.String("provider", provider),
				zap.Error(err),
			)
		}
	}, nil
}

// keepAlive extends the provider lock at half its TTL until stop is closed,
// so a run longer than the TTL keeps its exclusivity.
func (s *SyncService) keepAlive(ctx context.Context, provider string, lock locker.Lock, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(s.lockTTL / 2)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if err := lock.Extend(context.WithoutCancel(ctx)); err != nil {
				s.logger.Warn("failed to extend provider lock",
					zap.String("provider", provider),
					zap.Error(err),
				)
			}
		}
	}
}

func (s *SyncService) record(ctx context.Context, run *domain.SyncRun) {
	if s.history == nil {
		return
	}
	if err := s.history.Record(context.WithoutCancel(ctx), run); err != nil {
		s.logger.Error("failed to record sync run",
			zap.String("provider", run.Provider),
			zap.String("run_id", run.ID),
			zap.Error(err),
		)
	}
}

func (s *SyncService) refresh(ctx context.Context, provider string) {
	if s.widgets == nil {
		return
	}
	if err := s.widgets.Refresh(context.WithoutCancel(ctx), provider); err != nil {
		s.logger.Warn("failed to refresh widget cache",
			zap.String("provider", provider),
			zap.Error(err),
		)
	}
}
