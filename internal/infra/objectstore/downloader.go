package objectstore

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"

	"personal-metrics-service/internal/domain"
)

// DefaultMaxBytes caps the size of a downloaded image.
const DefaultMaxBytes = 10 << 20

// DownloaderConfig holds media download settings.
type DownloaderConfig struct {
	Timeout      time.Duration
	RetryMax     int
	RetryWaitMin time.Duration
	RetryWaitMax time.Duration
	MaxBytes     int64
	UserAgent    string
}

// Downloader implements domain.MediaDownloader with transport-level retries
// on connection errors and 5xx responses.
type Downloader struct {
	client    *retryablehttp.Client
	maxBytes  int64
	userAgent string
}

var _ domain.MediaDownloader = (*Downloader)(nil)

// NewDownloader creates a new Downloader.
func NewDownloader(cfg DownloaderConfig, logger *zap.Logger) *Downloader {
	client := retryablehttp.NewClient()
	client.Logger = zapLeveledLogger{logger.With(zap.String("component", "media-downloader"))}
	client.RetryMax = cfg.RetryMax
	if cfg.RetryWaitMin > 0 {
		client.RetryWaitMin = cfg.RetryWaitMin
	}
	if cfg.RetryWaitMax > 0 {
		client.RetryWaitMax = cfg.RetryWaitMax
	}
	if cfg.Timeout > 0 {
		client.HTTPClient.Timeout = cfg.Timeout
	}

	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = DefaultMaxBytes
	}

	return &Downloader{
		client:    client,
		maxBytes:  cfg.MaxBytes,
		userAgent: cfg.UserAgent,
	}
}

// Download fetches url and returns its body and content type.
func (d *Downloader) Download(ctx context.Context, url string) (*domain.DownloadedMedia, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("building request for %s: %w", url, err)
	}
	if d.userAgent != "" {
		req.Header.Set("User-Agent", d.userAgent)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, domain.NewAPIError("media", resp.StatusCode, nil)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, d.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", url, err)
	}
	if int64(len(body)) > d.maxBytes {
		return nil, fmt.Errorf("%s exceeds %d bytes: %w", url, d.maxBytes, domain.ErrInvalidInput)
	}
	if len(body) == 0 {
		return nil, fmt.Errorf("%s returned an empty body: %w", url, domain.ErrInvalidInput)
	}

	return &domain.DownloadedMedia{
		Body:        body,
		ContentType: resp.Header.Get("Content-Type"),
	}, nil
}

// zapLeveledLogger adapts zap to retryablehttp.LeveledLogger.
type zapLeveledLogger struct {
	logger *zap.Logger
}

func (l zapLeveledLogger) Error(msg string, kv ...any) { l.logger.Sugar().Errorw(msg, kv...) }
func (l zapLeveledLogger) Info(msg string, kv ...any)  { l.logger.Sugar().Infow(msg, kv...) }
func (l zapLeveledLogger) Debug(msg string, kv ...any) { l.logger.Sugar().Debugw(msg, kv...) }
func (l zapLeveledLogger) Warn(msg string, kv ...any)  { l.logger.Sugar().Warnw(msg, kv...) }
