package domain

import (
	"context"
	"encoding/json"
	"io"
	"time"
)

// DocumentStore persists JSON documents by collection and ID.
// Implementations: internal/infra/postgres/document_repository.go
type DocumentStore interface {
	// Get returns the raw document, or nil if it does not exist.
	Get(ctx context.Context, collection, docID string) (json.RawMessage, error)

	// Set replaces the document with the JSON encoding of value.
	Set(ctx context.Context, collection, docID string, value any) error
}

// ObjectStore holds binary media.
// Implementations: internal/infra/objectstore/minio.go
type ObjectStore interface {
	// ListKeys returns every object key under prefix.
	ListKeys(ctx context.Context, prefix string) ([]string, error)

	// Upload stores size bytes read from r under key and returns the stored key.
	Upload(ctx context.Context, key string, r io.Reader, size int64, contentType string) (string, error)
}

// DownloadedMedia is a fetched binary asset.
type DownloadedMedia struct {
	Body        []byte
	ContentType string
}

// MediaDownloader fetches binary assets from source URLs.
// Implementations: internal/infra/objectstore/downloader.go
type MediaDownloader interface {
	Download(ctx context.Context, url string) (*DownloadedMedia, error)
}

// BookSource looks up book records in a secondary metadata source.
// Both methods return nil, nil when nothing matches or the lookup gave up
// after retries; an error is returned only for invalid input.
// Implementations: internal/infra/provider/googlebooks/
type BookSource interface {
	FetchByISBN(ctx context.Context, isbn string) (*Book, error)
	SearchByTitleAuthor(ctx context.Context, title, author string) (*Book, error)
}

// Fetched pairs a converted upstream payload with the decoded raw response
// kept as a snapshot document.
type Fetched[T any] struct {
	Data T
	Raw  any
}

// GoodreadsFeed is the user profile together with its recent updates.
type GoodreadsFeed struct {
	Profile GoodreadsProfile
	Updates []StatusUpdate
}

// GoodreadsSource fetches the primary Goodreads collections.
// Implementations: internal/infra/provider/goodreads/
type GoodreadsSource interface {
	FetchProfile(ctx context.Context) (*Fetched[GoodreadsFeed], error)
	FetchShelf(ctx context.Context) (*Fetched[[]ReadBook], error)
}

// DiscogsSource fetches the primary Discogs collections and release details.
// FetchRelease follows the BookSource contract: nil, nil when the release is
// unknown or the lookup gave up.
// Implementations: internal/infra/provider/discogs/
type DiscogsSource interface {
	FetchProfile(ctx context.Context) (*Fetched[DiscogsProfile], error)
	FetchCollection(ctx context.Context) (*Fetched[[]Release], error)
	FetchRelease(ctx context.Context, releaseID int) (*ReleaseDetails, error)
}

// Summarizer produces a short text summary of a widget document.
// Implementations: internal/infra/summary/
type Summarizer interface {
	Summarize(ctx context.Context, provider string, document any) (string, error)
}

// SyncRunRepository stores the sync run history.
// Implementations: internal/infra/postgres/sync_run_repository.go
type SyncRunRepository interface {
	Record(ctx context.Context, run *SyncRun) error
	ListByProvider(ctx context.Context, provider string, limit int) ([]*SyncRun, error)
	Recent(ctx context.Context, limit int) ([]*SyncRun, error)
}

// Cache is the widget read cache.
// Implementations: internal/infra/redis/cache.go (optional)
type Cache interface {
	// Get retrieves a value by key. Returns nil if not found.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores a value with the given TTL.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Add stores a value only if key is absent and reports whether it did.
	Add(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error)

	// Delete removes a value by key.
	Delete(ctx context.Context, key string) error
}
