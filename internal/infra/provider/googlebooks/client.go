// Package googlebooks implements the Google Books metadata lookups used to
// enrich synced books.
package googlebooks

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"personal-metrics-service/internal/domain"
	"personal-metrics-service/internal/infra/provider"
	"personal-metrics-service/internal/metrics"
)

const (
	// Name identifies the upstream in logs and errors.
	Name = "googlebooks"

	// Endpoint is the volumes search path.
	Endpoint = "/volumes"
)

// Config holds Google Books client settings.
type Config struct {
	Client      provider.ClientConfig
	APIKey      string
	MaxAttempts int
}

// Client implements domain.BookSource.
type Client struct {
	client  *resty.Client
	retrier *provider.Retrier
	apiKey  string
	logger  *zap.Logger
}

var _ domain.BookSource = (*Client)(nil)

// New creates a new Google Books client.
func New(cfg Config, logger *zap.Logger) *Client {
	// Throttling is handled by the retrier, not resty.
	cfg.Client.Retry.MaxAttempts = 0

	return &Client{
		client:  provider.NewRestyClient(cfg.Client),
		retrier: provider.NewRetrier(Name, cfg.MaxAttempts, logger),
		apiKey:  cfg.APIKey,
		logger:  logger,
	}
}

// WithSleeper overrides the retry wait, e.g. to record delays in tests.
func (c *Client) WithSleeper(s provider.Sleeper) *Client {
	c.retrier.WithSleeper(s)
	return c
}

// FetchByISBN returns the first volume matching isbn, or nil when nothing
// matched or the lookup gave up.
func (c *Client) FetchByISBN(ctx context.Context, isbn string) (*domain.Book, error) {
	normalized := domain.NormalizeISBN(isbn)
	if normalized == "" {
		return nil, fmt.Errorf("fetch by isbn: %w", domain.ErrInvalidInput)
	}

	book, err := c.lookup(ctx, "isbn:"+normalized, 0)
	if err != nil {
		c.logger.Warn("isbn lookup failed",
			zap.String("isbn", normalized),
			zap.Bool("quota_exhausted", errors.Is(err, domain.ErrQuotaExhausted)),
			zap.Error(err),
		)
		metrics.RecordLookup("isbn", false)
		return nil, nil
	}

	metrics.RecordLookup("isbn", book != nil)
	return book, nil
}

// SearchByTitleAuthor searches by title and author, or by title alone when
// author is empty. Returns nil when nothing matched or the lookup gave up.
func (c *Client) SearchByTitleAuthor(ctx context.Context, title, author string) (*domain.Book, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, fmt.Errorf("search by title: %w", domain.ErrInvalidInput)
	}

	book, err := c.lookup(ctx, searchQuery(title, author), 1)
	if err != nil {
		c.logger.Warn("title search failed",
			zap.String("title", title),
			zap.String("author", author),
			zap.Bool("quota_exhausted", errors.Is(err, domain.ErrQuotaExhausted)),
			zap.Error(err),
		)
		metrics.RecordLookup("search", false)
		return nil, nil
	}

	metrics.RecordLookup("search", book != nil)
	return book, nil
}

func searchQuery(title, author string) string {
	q := "intitle:" + title
	if author = strings.TrimSpace(author); author != "" {
		q += " inauthor:" + author
	}
	return q
}

// lookup runs one volumes query under the retry policy.
func (c *Client) lookup(ctx context.Context, query string, maxResults int) (*domain.Book, error) {
	var result VolumesResponse

	err := c.retrier.Do(ctx, func(ctx context.Context) error {
		req := c.client.R().
			SetContext(ctx).
			SetQueryParam("q", query).
			SetResult(&result)
		if maxResults > 0 {
			req.SetQueryParam("maxResults", fmt.Sprint(maxResults))
		}
		if c.apiKey != "" {
			req.SetQueryParam("key", c.apiKey)
		}

		r, err := req.Get(Endpoint)
		if err != nil {
			return err
		}
		if r.IsError() {
			return domain.NewAPIError(Name, r.StatusCode(), r.Body())
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	if result.TotalItems == 0 || len(result.Items) == 0 {
		return nil, nil
	}

	return result.Items[0].ToDomain(), nil
}
