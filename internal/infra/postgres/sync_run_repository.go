package postgres

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"personal-metrics-service/internal/domain"
)

// DefaultRunsLimit caps history queries without an explicit limit.
const DefaultRunsLimit = 20

// SyncRunRepository implements domain.SyncRunRepository using PostgreSQL.
type SyncRunRepository struct {
	db *gorm.DB
}

var _ domain.SyncRunRepository = (*SyncRunRepository)(nil)

// NewSyncRunRepository creates a new SyncRunRepository.
func NewSyncRunRepository(db *gorm.DB) *SyncRunRepository {
	return &SyncRunRepository{db: db}
}

// Record inserts a finished run.
func (r *SyncRunRepository) Record(ctx context.Context, run *domain.SyncRun) error {
	if err := r.db.WithContext(ctx).Create(SyncRunFromDomain(run)).Error; err != nil {
		return fmt.Errorf("recording sync run: %w", err)
	}
	return nil
}

// ListByProvider returns the most recent runs of provider, newest first.
func (r *SyncRunRepository) ListByProvider(ctx context.Context, provider string, limit int) ([]*domain.SyncRun, error) {
	query := r.db.WithContext(ctx).Where("provider = ?", provider)
	return r.list(query, limit)
}

// Recent returns the most recent runs across providers, newest first.
func (r *SyncRunRepository) Recent(ctx context.Context, limit int) ([]*domain.SyncRun, error) {
	return r.list(r.db.WithContext(ctx), limit)
}

func (r *SyncRunRepository) list(query *gorm.DB, limit int) ([]*domain.SyncRun, error) {
	if limit <= 0 {
		limit = DefaultRunsLimit
	}

	var models []SyncRunModel
	if err := query.Order("started_at DESC").Limit(limit).Find(&models).Error; err != nil {
		return nil, fmt.Errorf("listing sync runs: %w", err)
	}

	runs := make([]*domain.SyncRun, len(models))
	for i := range models {
		runs[i] = models[i].ToDomain()
	}

	return runs, nil
}
