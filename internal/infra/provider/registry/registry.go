// Package registry builds the upstream API clients from configuration.
package registry

import (
	"go.uber.org/zap"

	"personal-metrics-service/internal/config"
	"personal-metrics-service/internal/domain"
	"personal-metrics-service/internal/infra/provider"
	"personal-metrics-service/internal/infra/provider/discogs"
	"personal-metrics-service/internal/infra/provider/goodreads"
	"personal-metrics-service/internal/infra/provider/googlebooks"
	"personal-metrics-service/internal/infra/summary"
)

// Clients holds the configured upstream clients. A nil source means the
// provider is not configured and gets no orchestrator.
type Clients struct {
	Goodreads  domain.GoodreadsSource
	Discogs    domain.DiscogsSource
	Books      domain.BookSource
	Summarizer domain.Summarizer
}

// NewClients creates every configured upstream client.
// This is a factory function that centralizes client initialization
// while maintaining dependency injection principles.
func NewClients(cfg config.ProviderConfig, summaryCfg config.SummaryConfig, logger *zap.Logger) Clients {
	var clients Clients

	clients.Books = googlebooks.New(googlebooks.Config{
		Client:      clientConfig(cfg.GoogleBooks.ProviderEndpoint),
		APIKey:      cfg.GoogleBooks.APIKey,
		MaxAttempts: cfg.GoogleBooks.MaxAttempts,
	}, logger)

	if cfg.Goodreads.UserID != "" {
		clients.Goodreads = goodreads.New(goodreads.Config{
			Client:   clientConfig(cfg.Goodreads.ProviderEndpoint),
			APIKey:   cfg.Goodreads.APIKey,
			UserID:   cfg.Goodreads.UserID,
			Shelf:    cfg.Goodreads.Shelf,
			PerPage:  cfg.Goodreads.PerPage,
			MaxPages: cfg.Goodreads.MaxPages,
		}, logger)
	} else {
		logger.Info("goodreads provider disabled: no user_id configured")
	}

	if cfg.Discogs.Username != "" {
		clients.Discogs = discogs.New(discogs.Config{
			Client:      clientConfig(cfg.Discogs.ProviderEndpoint),
			Token:       cfg.Discogs.Token,
			Username:    cfg.Discogs.Username,
			PerPage:     cfg.Discogs.PerPage,
			MaxPages:    cfg.Discogs.MaxPages,
			MaxAttempts: cfg.Discogs.MaxAttempts,
		}, logger)
	} else {
		logger.Info("discogs provider disabled: no username configured")
	}

	if summaryCfg.Enabled {
		clients.Summarizer = summary.New(summary.Config{
			Client:          clientConfig(summaryCfg.ProviderEndpoint),
			APIKey:          summaryCfg.APIKey,
			Model:           summaryCfg.Model,
			Prompt:          summaryCfg.Prompt,
			MaxOutputTokens: summaryCfg.MaxOutputTokens,
			MaxAttempts:     summaryCfg.MaxAttempts,
		}, logger)
	}

	return clients
}

func clientConfig(e config.ProviderEndpoint) provider.ClientConfig {
	return provider.ClientConfig{
		BaseURL:   e.BaseURL,
		Timeout:   e.Timeout,
		UserAgent: e.UserAgent,
		Retry: provider.RetryConfig{
			MaxAttempts: e.Retry.MaxAttempts,
			WaitTime:    e.Retry.WaitTime,
			MaxWaitTime: e.Retry.MaxWaitTime,
		},
		CB: provider.CBConfig{
			MaxRequests:  e.CB.MaxRequests,
			Interval:     e.CB.Interval,
			Timeout:      e.CB.Timeout,
			FailureRatio: e.CB.FailureRatio,
		},
	}
}
