package job

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"personal-metrics-service/internal/app/service"
	"personal-metrics-service/internal/domain"
	"personal-metrics-service/pkg/locker"
)

type fakeSyncer struct {
	calls   atomic.Int32
	results []service.ProviderResult
}

func (f *fakeSyncer) SyncAll(context.Context) []service.ProviderResult {
	f.calls.Add(1)
	return f.results
}

func newScheduler(t *testing.T, syncer Syncer) (*SyncScheduler, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	s := NewSyncScheduler(syncer, SyncConfig{Interval: time.Hour, Timeout: time.Minute}, zap.NewNop(),
		locker.NewRedisLocker(client, zap.NewNop()))
	s.ctx, s.cancel = context.WithCancel(context.Background())
	t.Cleanup(s.cancel)

	return s, mr
}

// TestSyncScheduler_CooldownOnSuccess tests that a clean run holds the lock for the interval.
func TestSyncScheduler_CooldownOnSuccess(t *testing.T) {
	syncer := &fakeSyncer{results: []service.ProviderResult{
		{Provider: "goodreads", Result: domain.Succeeded(nil), Run: &domain.SyncRun{Enriched: 3, Uploaded: 2}},
	}}
	s, mr := newScheduler(t, syncer)

	s.executeSync()
	s.executeSync()

	assert.Equal(t, int32(1), syncer.calls.Load(), "second tick skipped during cooldown")
	assert.True(t, mr.Exists(SchedulerLockKey))

	mr.FastForward(time.Hour + time.Second)
	s.executeSync()
	assert.Equal(t, int32(2), syncer.calls.Load())
}

// TestSyncScheduler_ReleasesOnFailure tests that a failed provider allows an immediate retry.
func TestSyncScheduler_ReleasesOnFailure(t *testing.T) {
	syncer := &fakeSyncer{results: []service.ProviderResult{
		{Provider: "goodreads", Result: domain.Succeeded(nil)},
		{Provider: "discogs", Result: domain.Failed(errors.New("fetching discogs: 502"))},
	}}
	s, mr := newScheduler(t, syncer)

	s.executeSync()

	assert.False(t, mr.Exists(SchedulerLockKey))
	s.executeSync()
	assert.Equal(t, int32(2), syncer.calls.Load())
}

// TestSyncScheduler_LockBackendDown tests that no run happens without the scheduler lock.
func TestSyncScheduler_LockBackendDown(t *testing.T) {
	syncer := &fakeSyncer{}
	s, mr := newScheduler(t, syncer)
	mr.Close()

	s.executeSync()

	assert.Zero(t, syncer.calls.Load())
}

// TestSyncScheduler_StartStop tests the startup run and a clean shutdown.
func TestSyncScheduler_StartStop(t *testing.T) {
	syncer := &fakeSyncer{}
	s := NewSyncScheduler(syncer, SyncConfig{Interval: time.Hour, Timeout: time.Second}, zap.NewNop(), nil)

	s.Start(true)
	require.Eventually(t, func() bool { return syncer.calls.Load() == 1 }, time.Second, 5*time.Millisecond)
	s.Stop()
}
