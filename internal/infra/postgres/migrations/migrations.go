// Package migrations provides database migrations using gormigrate.
package migrations

import (
	"fmt"

	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"
)

var options = &gormigrate.Options{
	TableName:      "schema_migrations",
	IDColumnName:   "id",
	IDColumnSize:   255,
	UseTransaction: true,
}

// Migrations returns all database migrations, oldest first.
func Migrations() []*gormigrate.Migration {
	return []*gormigrate.Migration{
		createDocumentsTable(),
		createSyncRunsTable(),
	}
}

// Latest returns the ID of the newest migration.
func Latest() string {
	all := Migrations()
	return all[len(all)-1].ID
}

// Run applies every pending migration in one transaction.
func Run(db *gorm.DB) error {
	if err := gormigrate.New(db, options, Migrations()).Migrate(); err != nil {
		return fmt.Errorf("migrating to %s: %w", Latest(), err)
	}
	return nil
}

// Rollback reverts the most recently applied migration.
func Rollback(db *gorm.DB) error {
	if err := gormigrate.New(db, options, Migrations()).RollbackLast(); err != nil {
		return fmt.Errorf("rolling back last migration: %w", err)
	}
	return nil
}
