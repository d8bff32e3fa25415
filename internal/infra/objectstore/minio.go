// Package objectstore stores widget media in an S3-compatible bucket and
// fetches it from upstream image hosts.
package objectstore

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"

	"personal-metrics-service/internal/domain"
)

// Config holds object storage settings.
type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	UseSSL    bool

	// Transport overrides the HTTP transport, nil uses the default.
	Transport http.RoundTripper
}

// MinioStore implements domain.ObjectStore on an S3-compatible bucket.
type MinioStore struct {
	client *minio.Client
	bucket string
	region string
	logger *zap.Logger
}

var _ domain.ObjectStore = (*MinioStore)(nil)

// NewMinioStore creates a new MinioStore.
func NewMinioStore(cfg Config, logger *zap.Logger) (*MinioStore, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("object store bucket: %w", domain.ErrInvalidInput)
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:     credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure:    cfg.UseSSL,
		Region:    cfg.Region,
		Transport: cfg.Transport,
	})
	if err != nil {
		return nil, fmt.Errorf("creating object store client: %w", err)
	}

	return &MinioStore{
		client: client,
		bucket: cfg.Bucket,
		region: cfg.Region,
		logger: logger,
	}, nil
}

// EnsureBucket creates the bucket if it does not exist yet.
func (s *MinioStore) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("checking bucket %s: %w", s.bucket, err)
	}
	if exists {
		return nil
	}

	if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{Region: s.region}); err != nil {
		return fmt.Errorf("creating bucket %s: %w", s.bucket, err)
	}

	s.logger.Info("object store bucket created", zap.String("bucket", s.bucket))

	return nil
}

// ListKeys returns every object key under prefix.
func (s *MinioStore) ListKeys(ctx context.Context, prefix string) ([]string, error) {
	keys := make([]string, 0)

	for object := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	}) {
		if object.Err != nil {
			return nil, fmt.Errorf("listing %s/%s: %w", s.bucket, prefix, object.Err)
		}
		keys = append(keys, object.Key)
	}

	return keys, nil
}

// Upload stores size bytes read from r under key and returns the stored key.
func (s *MinioStore) Upload(ctx context.Context, key string, r io.Reader, size int64, contentType string) (string, error) {
	info, err := s.client.PutObject(ctx, s.bucket, key, r, size, minio.PutObjectOptions{
		ContentType:  contentType,
		CacheControl: "public, max-age=31536000, immutable",
	})
	if err != nil {
		return "", fmt.Errorf("uploading %s: %w", key, err)
	}

	s.logger.Debug("object uploaded",
		zap.String("key", info.Key),
		zap.Int64("bytes", info.Size),
	)

	return info.Key, nil
}
