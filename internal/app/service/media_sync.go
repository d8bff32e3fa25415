package service

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"personal-metrics-service/internal/domain"
	"personal-metrics-service/internal/metrics"
)

// DefaultUploadConcurrency bounds in-flight media transfers.
const DefaultUploadConcurrency = 10

// MediaSync copies upstream images into object storage, skipping keys that
// are already stored.
type MediaSync struct {
	store       domain.ObjectStore
	downloader  domain.MediaDownloader
	concurrency int
	publicURL   string
	logger      *zap.Logger
}

// NewMediaSync creates a new MediaSync. publicURL is the base under which
// stored keys are served.
func NewMediaSync(store domain.ObjectStore, downloader domain.MediaDownloader, concurrency int, publicURL string, logger *zap.Logger) *MediaSync {
	if concurrency <= 0 {
		concurrency = DefaultUploadConcurrency
	}

	return &MediaSync{
		store:       store,
		downloader:  downloader,
		concurrency: concurrency,
		publicURL:   publicURL,
		logger:      logger,
	}
}

// PublicURL returns the served URL of a stored key.
func (m *MediaSync) PublicURL(key string) string {
	return domain.PublicURL(m.publicURL, key)
}

// StoredKeys snapshots the stored object keys under the given prefixes.
func (m *MediaSync) StoredKeys(ctx context.Context, prefixes ...string) (domain.KeySet, error) {
	var keys []string
	for _, prefix := range prefixes {
		listed, err := m.store.ListKeys(ctx, prefix)
		if err != nil {
			return nil, fmt.Errorf("listing stored keys under %q: %w", prefix, err)
		}
		keys = append(keys, listed...)
	}

	return domain.NewKeySet(keys), nil
}

// ComputeMissing returns the candidates that still need a transfer: those
// with a source URL whose key is not stored. Duplicate keys keep the first
// candidate. The input is not modified.
func ComputeMissing(candidates []domain.MediaReference, stored domain.KeySet) []domain.MediaReference {
	missing := make([]domain.MediaReference, 0, len(candidates))
	seen := make(map[string]struct{}, len(candidates))

	for _, ref := range candidates {
		if ref.SourceURL == "" || ref.DestinationKey == "" || stored.Has(ref.DestinationKey) {
			continue
		}
		if _, dup := seen[ref.DestinationKey]; dup {
			continue
		}
		seen[ref.DestinationKey] = struct{}{}
		missing = append(missing, ref)
	}

	return missing
}

// UploadAll downloads and stores every reference with bounded concurrency.
// Each failure is recorded on its own result; the batch always completes.
// If the batch itself breaks down, it is logged and no results are returned.
func (m *MediaSync) UploadAll(ctx context.Context, refs []domain.MediaReference) (results []domain.UploadResult) {
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error("media upload batch aborted", zap.Any("panic", r))
			results = nil
		}
	}()

	if len(refs) == 0 {
		return nil
	}

	results = make([]domain.UploadResult, len(refs))

	var g errgroup.Group
	g.SetLimit(m.concurrency)
	for i := range refs {
		i := i
		g.Go(func() error {
			results[i] = m.upload(ctx, refs[i])
			return nil
		})
	}
	_ = g.Wait()

	failed := 0
	for _, r := range results {
		if !r.OK() {
			failed++
		}
	}
	m.logger.Info("media upload batch completed",
		zap.Int("total", len(results)),
		zap.Int("failed", failed),
	)

	return results
}

func (m *MediaSync) upload(ctx context.Context, ref domain.MediaReference) (result domain.UploadResult) {
	start := time.Now()
	result.Ref = ref

	defer func() {
		if r := recover(); r != nil {
			result.Err = fmt.Errorf("panic: %v", r)
		}
		metrics.RecordMediaUpload(time.Since(start), result.Err)
		if result.Err != nil {
			m.logger.Warn("media upload failed",
				zap.String("key", ref.DestinationKey),
				zap.String("source", ref.SourceURL),
				zap.Error(result.Err),
			)
		}
	}()

	media, err := m.downloader.Download(ctx, ref.SourceURL)
	if err != nil {
		result.Err = fmt.Errorf("downloading %s: %w", ref.SourceURL, err)
		return result
	}

	contentType := media.ContentType
	if contentType == "" {
		contentType = "image/jpeg"
	}

	key, err := m.store.Upload(ctx, ref.DestinationKey, bytes.NewReader(media.Body), int64(len(media.Body)), contentType)
	if err != nil {
		result.Err = fmt.Errorf("uploading %s: %w", ref.DestinationKey, err)
		return result
	}

	result.Key = key
	return result
}

// SucceededKeys returns the keys of the successful uploads.
func SucceededKeys(results []domain.UploadResult) []string {
	keys := make([]string, 0, len(results))
	for _, r := range results {
		if r.OK() {
			keys = append(keys, r.Key)
		}
	}
	return keys
}
