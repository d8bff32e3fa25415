package migrations

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"
)

// createDocumentsTable creates the per-provider JSON document table.
func createDocumentsTable() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "001_create_documents",
		Migrate: func(tx *gorm.DB) error {
			return tx.Exec(`
				CREATE TABLE IF NOT EXISTS documents (
					collection VARCHAR(50) NOT NULL,
					doc_id VARCHAR(100) NOT NULL,
					body JSONB NOT NULL,
					created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
					updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,

					PRIMARY KEY (collection, doc_id)
				);
			`).Error
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Exec("DROP TABLE IF EXISTS documents;").Error
		},
	}
}
