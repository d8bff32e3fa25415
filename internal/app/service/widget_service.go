// Package service provides the sync pipeline and the widget use cases.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"personal-metrics-service/internal/domain"
	"personal-metrics-service/internal/metrics"
)

// WidgetCacheKey is the read-cache key of a provider's widget document.
func WidgetCacheKey(provider string) string {
	return "widget:" + provider
}

// WidgetService serves persisted widget documents.
type WidgetService struct {
	docs     domain.DocumentStore
	cache    domain.Cache // nil disables caching
	cacheTTL time.Duration
	logger   *zap.Logger
}

// NewWidgetService creates a new WidgetService.
func NewWidgetService(docs domain.DocumentStore, cache domain.Cache, cacheTTL time.Duration, logger *zap.Logger) *WidgetService {
	return &WidgetService{
		docs:     docs,
		cache:    cache,
		cacheTTL: cacheTTL,
		logger:   logger,
	}
}

// Get returns the raw widget document of provider, or ErrNotFound if it was
// never synced. Cache failures fall through to the document store. A miss
// fills the cache only if the key is still empty, so a read that raced a sync
// cannot replace the document Refresh wrote.
func (s *WidgetService) Get(ctx context.Context, provider string) (json.RawMessage, error) {
	key := WidgetCacheKey(provider)

	if s.cache != nil {
		cached, err := s.cache.Get(ctx, key)
		if err != nil {
			s.logger.Warn("widget cache read failed", zap.String("provider", provider), zap.Error(err))
		}
		if len(cached) > 0 {
			metrics.WidgetCacheHits.Inc()
			return cached, nil
		}
		metrics.WidgetCacheMisses.Inc()
	}

	doc, err := s.docs.Get(ctx, provider, domain.DocWidgetContent)
	if err != nil {
		return nil, fmt.Errorf("reading %s widget: %w", provider, err)
	}
	if len(doc) == 0 {
		return nil, fmt.Errorf("%s widget: %w", provider, domain.ErrNotFound)
	}

	if s.cache != nil {
		if _, err := s.cache.Add(ctx, key, doc, s.cacheTTL); err != nil {
			s.logger.Warn("widget cache write failed", zap.String("provider", provider), zap.Error(err))
		}
	}

	return doc, nil
}

// Refresh overwrites the cached document of provider with the stored one.
// When the store cannot be read the key is dropped instead.
func (s *WidgetService) Refresh(ctx context.Context, provider string) error {
	if s.cache == nil {
		return nil
	}
	key := WidgetCacheKey(provider)

	doc, err := s.docs.Get(ctx, provider, domain.DocWidgetContent)
	if err != nil || len(doc) == 0 {
		if delErr := s.cache.Delete(ctx, key); delErr != nil {
			return fmt.Errorf("invalidating %s widget: %w", provider, delErr)
		}
		if err != nil {
			return fmt.Errorf("reading %s widget: %w", provider, err)
		}
		return nil
	}

	if err := s.cache.Set(ctx, key, doc, s.cacheTTL); err != nil {
		return fmt.Errorf("caching %s widget: %w", provider, err)
	}

	return nil
}
