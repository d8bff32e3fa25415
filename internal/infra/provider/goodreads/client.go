// Package goodreads implements the Goodreads XML API client.
package goodreads

import (
	"context"
	"encoding/xml"
	"fmt"
	"strconv"

	"github.com/go-resty/resty/v2"
	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"

	"personal-metrics-service/internal/domain"
	"personal-metrics-service/internal/infra/provider"
)

// Name identifies the upstream in logs and errors.
const Name = domain.ProviderGoodreads

// Config holds Goodreads client settings.
type Config struct {
	Client   provider.ClientConfig
	APIKey   string
	UserID   string
	Shelf    string
	PerPage  int
	MaxPages int
}

// Client implements domain.GoodreadsSource.
type Client struct {
	client *resty.Client
	cb     *gobreaker.CircuitBreaker[*resty.Response]
	cfg    Config
	logger *zap.Logger
}

var _ domain.GoodreadsSource = (*Client)(nil)

// New creates a new Goodreads client.
func New(cfg Config, logger *zap.Logger) *Client {
	if cfg.Shelf == "" {
		cfg.Shelf = "read"
	}
	if cfg.PerPage <= 0 {
		cfg.PerPage = 50
	}
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = 10
	}

	return &Client{
		client: provider.NewRestyClient(cfg.Client),
		cb:     provider.NewCircuitBreaker[*resty.Response](Name, cfg.Client.CB, logger),
		cfg:    cfg,
		logger: logger,
	}
}

// FetchProfile retrieves the user profile with its recent updates.
func (c *Client) FetchProfile(ctx context.Context) (*domain.Fetched[domain.GoodreadsFeed], error) {
	resp, err := c.get(ctx, "/user/show/"+c.cfg.UserID+".xml", nil)
	if err != nil {
		return nil, fmt.Errorf("fetching goodreads profile: %w", err)
	}

	var user UserResponse
	if err := xml.Unmarshal(resp.Body(), &user); err != nil {
		return nil, fmt.Errorf("parsing goodreads profile XML: %w", err)
	}
	if user.User.ID == "" {
		return nil, fmt.Errorf("goodreads profile: %w", domain.ErrNotFound)
	}

	updates := make([]domain.StatusUpdate, 0, len(user.User.Updates))
	for i := range user.User.Updates {
		if u, ok := user.User.Updates[i].ToDomain(); ok {
			updates = append(updates, u)
		}
	}

	c.logger.Info("goodreads profile fetch completed",
		zap.String("user", user.User.ID),
		zap.Int("updates", len(updates)),
	)

	return &domain.Fetched[domain.GoodreadsFeed]{
		Data: domain.GoodreadsFeed{Profile: user.User.ToDomain(), Updates: updates},
		Raw:  user,
	}, nil
}

// FetchShelf retrieves every page of the configured shelf.
func (c *Client) FetchShelf(ctx context.Context) (*domain.Fetched[[]domain.ReadBook], error) {
	books := make([]domain.ReadBook, 0, c.cfg.PerPage)
	pages := make([]Reviews, 0, 1)

	for page := 1; page <= c.cfg.MaxPages; page++ {
		resp, err := c.get(ctx, "/review/list/"+c.cfg.UserID+".xml", map[string]string{
			"v":        "2",
			"shelf":    c.cfg.Shelf,
			"sort":     "date_read",
			"page":     strconv.Itoa(page),
			"per_page": strconv.Itoa(c.cfg.PerPage),
		})
		if err != nil {
			return nil, fmt.Errorf("fetching goodreads shelf page %d: %w", page, err)
		}

		var list ReviewsResponse
		if err := xml.Unmarshal(resp.Body(), &list); err != nil {
			return nil, fmt.Errorf("parsing goodreads shelf XML: %w", err)
		}
		pages = append(pages, list.Reviews)

		for i := range list.Reviews.Reviews {
			books = append(books, list.Reviews.Reviews[i].ToDomain())
		}

		if len(list.Reviews.Reviews) == 0 || list.Reviews.End >= list.Reviews.Total {
			break
		}
	}

	c.logger.Info("goodreads shelf fetch completed",
		zap.String("shelf", c.cfg.Shelf),
		zap.Int("count", len(books)),
		zap.Int("pages", len(pages)),
	)

	return &domain.Fetched[[]domain.ReadBook]{Data: books, Raw: pages}, nil
}

func (c *Client) get(ctx context.Context, path string, query map[string]string) (*resty.Response, error) {
	resp, err := c.cb.Execute(func() (*resty.Response, error) {
		r, err := c.client.R().
			SetContext(ctx).
			SetHeader("Accept", "application/xml").
			SetQueryParams(query).
			SetQueryParam("key", c.cfg.APIKey).
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
		c.logger.Warn("goodreads fetch failed",
			zap.String("path", path),
			zap.Error(err),
			zap.String("state", c.cb.State().String()),
		)

		return nil, err
	}

	return resp, nil
}
