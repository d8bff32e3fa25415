package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	gojson "github.com/goccy/go-json"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"personal-metrics-service/internal/domain"
)

// DocumentRepository implements domain.DocumentStore on a JSONB table.
type DocumentRepository struct {
	db *gorm.DB
}

var _ domain.DocumentStore = (*DocumentRepository)(nil)

// NewDocumentRepository creates a new DocumentRepository.
func NewDocumentRepository(db *gorm.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

// Get returns the raw document, or nil if it does not exist.
func (r *DocumentRepository) Get(ctx context.Context, collection, docID string) (json.RawMessage, error) {
	var model DocumentModel
	err := r.db.WithContext(ctx).
		Where("collection = ? AND doc_id = ?", collection, docID).
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}

		return nil, fmt.Errorf("getting document %s/%s: %w", collection, docID, err)
	}

	return model.Body, nil
}

// Set replaces the document with the JSON encoding of value.
func (r *DocumentRepository) Set(ctx context.Context, collection, docID string, value any) error {
	body, err := gojson.Marshal(value)
	if err != nil {
		return fmt.Errorf("encoding document %s/%s: %w", collection, docID, err)
	}

	model := &DocumentModel{
		Collection: collection,
		DocID:      docID,
		Body:       body,
		UpdatedAt:  time.Now().UTC(),
	}

	err = r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "collection"}, {Name: "doc_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"body", "updated_at"}),
	}).Create(model).Error
	if err != nil {
		return fmt.Errorf("upserting document %s/%s: %w", collection, docID, err)
	}

	return nil
}
