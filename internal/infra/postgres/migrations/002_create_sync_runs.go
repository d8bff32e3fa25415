package migrations

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"
)

// createSyncRunsTable creates the sync run history table.
func createSyncRunsTable() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "002_create_sync_runs",
		Migrate: func(tx *gorm.DB) error {
			err := tx.Exec(`
				CREATE TABLE IF NOT EXISTS sync_runs (
					id UUID PRIMARY KEY,
					provider VARCHAR(50) NOT NULL,
					result VARCHAR(20) NOT NULL,
					phase VARCHAR(30) NOT NULL,
					error TEXT,
					degraded TEXT[],
					enriched INTEGER DEFAULT 0,
					uploaded INTEGER DEFAULT 0,
					started_at TIMESTAMP NOT NULL,
					finished_at TIMESTAMP NOT NULL
				);
			`).Error
			if err != nil {
				return err
			}

			indexes := []string{
				"CREATE INDEX IF NOT EXISTS idx_sync_runs_provider ON sync_runs(provider, started_at DESC);",
				"CREATE INDEX IF NOT EXISTS idx_sync_runs_started_at ON sync_runs(started_at DESC);",
			}
			for _, idx := range indexes {
				if err := tx.Exec(idx).Error; err != nil {
					return err
				}
			}

			return nil
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Exec("DROP TABLE IF EXISTS sync_runs;").Error
		},
	}
}
