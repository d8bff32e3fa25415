// Package discogs implements the Discogs JSON API client.
package discogs

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/go-resty/resty/v2"
	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"

	"personal-metrics-service/internal/domain"
	"personal-metrics-service/internal/infra/provider"
)

// Name identifies the upstream in logs and errors.
const Name = domain.ProviderDiscogs

// Config holds Discogs client settings.
type Config struct {
	Client      provider.ClientConfig
	Token       string
	Username    string
	PerPage     int
	MaxPages    int
	MaxAttempts int
}

// Client implements domain.DiscogsSource.
type Client struct {
	client  *resty.Client
	cb      *gobreaker.CircuitBreaker[*resty.Response]
	retrier *provider.Retrier
	cfg     Config
	logger  *zap.Logger
}

var _ domain.DiscogsSource = (*Client)(nil)

// New creates a new Discogs client.
func New(cfg Config, logger *zap.Logger) *Client {
	if cfg.PerPage <= 0 {
		cfg.PerPage = 50
	}
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = 20
	}
	if cfg.Client.UserAgent == "" {
		cfg.Client.UserAgent = "personal-metrics-service/1.0"
	}

	client := provider.NewRestyClient(cfg.Client)
	if cfg.Token != "" {
		client.SetHeader("Authorization", "Discogs token="+cfg.Token)
	}

	return &Client{
		client:  client,
		cb:      provider.NewCircuitBreaker[*resty.Response](Name, cfg.Client.CB, logger),
		retrier: provider.NewRetrier(Name, cfg.MaxAttempts, logger),
		cfg:     cfg,
		logger:  logger,
	}
}

// WithSleeper overrides the retry wait, e.g. to record delays in tests.
func (c *Client) WithSleeper(s provider.Sleeper) *Client {
	c.retrier.WithSleeper(s)
	return c
}

// FetchProfile retrieves the user profile.
func (c *Client) FetchProfile(ctx context.Context) (*domain.Fetched[domain.DiscogsProfile], error) {
	var user UserResponse
	if _, err := c.get(ctx, "/users/"+url.PathEscape(c.cfg.Username), nil, &user); err != nil {
		return nil, fmt.Errorf("fetching discogs profile: %w", err)
	}

	return &domain.Fetched[domain.DiscogsProfile]{Data: user.ToDomain(), Raw: user}, nil
}

// FetchCollection retrieves every page of the "All" collection folder.
func (c *Client) FetchCollection(ctx context.Context) (*domain.Fetched[[]domain.Release], error) {
	path := "/users/" + url.PathEscape(c.cfg.Username) + "/collection/folders/0/releases"

	releases := make([]domain.Release, 0, c.cfg.PerPage)
	pages := make([]CollectionResponse, 0, 1)

	for page := 1; page <= c.cfg.MaxPages; page++ {
		var result CollectionResponse
		_, err := c.get(ctx, path, map[string]string{
			"page":       strconv.Itoa(page),
			"per_page":   strconv.Itoa(c.cfg.PerPage),
			"sort":       "added",
			"sort_order": "desc",
		}, &result)
		if err != nil {
			return nil, fmt.Errorf("fetching discogs collection page %d: %w", page, err)
		}
		pages = append(pages, result)

		for i := range result.Releases {
			releases = append(releases, result.Releases[i].ToDomain())
		}

		if len(result.Releases) == 0 || page >= result.Pagination.Pages {
			break
		}
	}

	c.logger.Info("discogs collection fetch completed",
		zap.Int("count", len(releases)),
		zap.Int("pages", len(pages)),
	)

	return &domain.Fetched[[]domain.Release]{Data: releases, Raw: pages}, nil
}

// FetchRelease retrieves the full release record. Returns nil when the release
// is unknown or the lookup gave up after retries.
func (c *Client) FetchRelease(ctx context.Context, releaseID int) (*domain.ReleaseDetails, error) {
	if releaseID <= 0 {
		return nil, fmt.Errorf("fetch release %d: %w", releaseID, domain.ErrInvalidInput)
	}

	var result ReleaseResponse
	err := c.retrier.Do(ctx, func(ctx context.Context) error {
		r, err := c.client.R().
			SetContext(ctx).
			SetResult(&result).
			Get("/releases/" + strconv.Itoa(releaseID))
		if err != nil {
			return err
		}
		if r.IsError() {
			return domain.NewAPIError(Name, r.StatusCode(), r.Body())
		}
		return nil
	})
	if err != nil {
		c.logger.Warn("release lookup failed",
			zap.Int("release_id", releaseID),
			zap.Error(err),
		)
		return nil, nil
	}

	return result.ToDomain(), nil
}

func (c *Client) get(ctx context.Context, path string, query map[string]string, result any) (*resty.Response, error) {
	resp, err := c.cb.Execute(func() (*resty.Response, error) {
		r, err := c.client.R().
			SetContext(ctx).
			SetQueryParams(query).
			SetResult(result).
			Get(path)
		if err != nil {
			return nil, err
		}
		if r.IsError() {
			return nil, domain.NewAPIError(Name, r.StatusCode(), r.Body())
		}

		return r, nil
	})
	if err != nil {
		c.logger.Warn("discogs fetch failed",
			zap.String("path", path),
			zap.Error(err),
			zap.String("state", c.cb.State().String()),
		)

		return nil, err
	}

	return resp, nil
}
