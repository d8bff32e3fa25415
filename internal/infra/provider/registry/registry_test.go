package registry

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"personal-metrics-service/internal/config"
)

// TestNewClients tests that unconfigured providers stay disabled.
func TestNewClients(t *testing.T) {
	endpoint := config.ProviderEndpoint{BaseURL: "http://localhost", Timeout: time.Second}

	clients := NewClients(config.ProviderConfig{
		Goodreads:   config.GoodreadsConfig{ProviderEndpoint: endpoint},
		Discogs:     config.DiscogsConfig{ProviderEndpoint: endpoint, Username: "crate-digger"},
		GoogleBooks: config.GoogleBooksConfig{ProviderEndpoint: endpoint},
	}, config.SummaryConfig{}, zap.NewNop())

	assert.Nil(t, clients.Goodreads)
	assert.NotNil(t, clients.Discogs)
	assert.NotNil(t, clients.Books)
	assert.Nil(t, clients.Summarizer)

	clients = NewClients(config.ProviderConfig{
		Goodreads: config.GoodreadsConfig{ProviderEndpoint: endpoint, UserID: "4812"},
	}, config.SummaryConfig{ProviderEndpoint: endpoint, Enabled: true, APIKey: "k"}, zap.NewNop())

	assert.NotNil(t, clients.Goodreads)
	assert.Nil(t, clients.Discogs)
	assert.NotNil(t, clients.Summarizer)
}
