package postgres

import (
	"time"

	"github.com/lib/pq"

	"personal-metrics-service/internal/domain"
)

// DocumentModel is the GORM model for the documents table. A document is
// addressed by its collection (the provider) and its document ID.
type DocumentModel struct {
	Collection string    `gorm:"type:varchar(50);primaryKey"`
	DocID      string    `gorm:"column:doc_id;type:varchar(100);primaryKey"`
	Body       []byte    `gorm:"type:jsonb;not null"`
	CreatedAt  time.Time `gorm:"autoCreateTime"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime"`
}

// TableName returns the table name for DocumentModel.
func (DocumentModel) TableName() string {
	return "documents"
}

// SyncRunModel is the GORM model for the sync_runs table.
type SyncRunModel struct {
	ID         string         `gorm:"type:uuid;primaryKey"`
	Provider   string         `gorm:"type:varchar(50);not null;index"`
	Result     string         `gorm:"type:varchar(20);not null"`
	Phase      string         `gorm:"type:varchar(30);not null"`
	Error      string         `gorm:"type:text"`
	Degraded   pq.StringArray `gorm:"type:text[]"`
	Enriched   int            `gorm:"default:0"`
	Uploaded   int            `gorm:"default:0"`
	StartedAt  time.Time      `gorm:"not null;index"`
	FinishedAt time.Time      `gorm:"not null"`
}

// TableName returns the table name for SyncRunModel.
func (SyncRunModel) TableName() string {
	return "sync_runs"
}

// ToDomain converts SyncRunModel to domain.SyncRun.
func (m *SyncRunModel) ToDomain() *domain.SyncRun {
	return &domain.SyncRun{
		ID:         m.ID,
		Provider:   m.Provider,
		Result:     domain.SyncOutcome(m.Result),
		Phase:      domain.SyncPhase(m.Phase),
		Error:      m.Error,
		Degraded:   m.Degraded,
		Enriched:   m.Enriched,
		Uploaded:   m.Uploaded,
		StartedAt:  m.StartedAt,
		FinishedAt: m.FinishedAt,
	}
}

// SyncRunFromDomain creates a SyncRunModel from domain.SyncRun.
func SyncRunFromDomain(r *domain.SyncRun) *SyncRunModel {
	return &SyncRunModel{
		ID:         r.ID,
		Provider:   r.Provider,
		Result:     string(r.Result),
		Phase:      string(r.Phase),
		Error:      r.Error,
		Degraded:   r.Degraded,
		Enriched:   r.Enriched,
		Uploaded:   r.Uploaded,
		StartedAt:  r.StartedAt.UTC(),
		FinishedAt: r.FinishedAt.UTC(),
	}
}
