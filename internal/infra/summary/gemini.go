// Package summary produces short AI summaries of widget documents through the
// Gemini generateContent API.
package summary

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-resty/resty/v2"
	"github.com/goccy/go-json"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"personal-metrics-service/internal/domain"
	"personal-metrics-service/internal/infra/provider"
)

// Name identifies the upstream in logs and errors.
const Name = "gemini"

// ProviderPlaceholder is replaced with the provider name in a prompt.
const ProviderPlaceholder = "{provider}"

// DefaultPrompt introduces the widget document to the model.
const DefaultPrompt = "Write a two sentence, first person summary of my recent " + ProviderPlaceholder + " activity " +
	"for a personal website widget. Mention concrete titles. Plain text only.\n\nData:\n"

// Config holds Gemini client settings.
type Config struct {
	Client          provider.ClientConfig
	APIKey          string
	Model           string
	Prompt          string // ProviderPlaceholder marks where the provider name goes
	MaxOutputTokens int
	MaxAttempts     int
}

// GeminiClient implements domain.Summarizer.
type GeminiClient struct {
	client  *resty.Client
	retrier *provider.Retrier
	cfg     Config
	logger  *zap.Logger
}

var _ domain.Summarizer = (*GeminiClient)(nil)

type part struct {
	Text string `json:"text"`
}

type content struct {
	Role  string `json:"role"`
	Parts []part `json:"parts"`
}

type generationConfig struct {
	Temperature     float64 `json:"temperature"`
	MaxOutputTokens int     `json:"maxOutputTokens,omitempty"`
}

type generateRequest struct {
	Contents         []content        `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

// New creates a new GeminiClient.
func New(cfg Config, logger *zap.Logger) *GeminiClient {
	cfg.Client.Retry.MaxAttempts = 0
	if cfg.Prompt == "" {
		cfg.Prompt = DefaultPrompt
	}

	client := provider.NewRestyClient(cfg.Client).
		SetHeader("x-goog-api-key", cfg.APIKey)

	return &GeminiClient{
		client:  client,
		retrier: provider.NewRetrier(Name, cfg.MaxAttempts, logger),
		cfg:     cfg,
		logger:  logger,
	}
}

// Summarize asks the model for a summary of document.
func (c *GeminiClient) Summarize(ctx context.Context, providerName string, document any) (string, error) {
	data, err := json.Marshal(document)
	if err != nil {
		return "", fmt.Errorf("encoding %s document: %w", providerName, err)
	}

	body := generateRequest{
		Contents: []content{{
			Role:  "user",
			Parts: []part{{Text: strings.ReplaceAll(c.cfg.Prompt, ProviderPlaceholder, providerName) + string(data)}},
		}},
		GenerationConfig: generationConfig{
			Temperature:     0.4,
			MaxOutputTokens: c.cfg.MaxOutputTokens,
		},
	}

	var raw []byte
	err = c.retrier.Do(ctx, func(ctx context.Context) error {
		r, err := c.client.R().
			SetContext(ctx).
			SetBody(body).
			Post("/models/" + c.cfg.Model + ":generateContent")
		if err != nil {
			return err
		}
		if r.IsError() {
			return domain.NewAPIError(Name, r.StatusCode(), r.Body())
		}

		raw = r.Body()
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("summarizing %s: %w", providerName, err)
	}

	text := strings.TrimSpace(gjson.GetBytes(raw, "candidates.0.content.parts.0.text").String())
	if text == "" {
		reason := gjson.GetBytes(raw, "candidates.0.finishReason").String()
		if reason == "" {
			reason = gjson.GetBytes(raw, "promptFeedback.blockReason").String()
		}
		return "", fmt.Errorf("empty %s summary (reason %q): %w", providerName, reason, domain.ErrNotFound)
	}

	c.logger.Debug("summary generated",
		zap.String("provider", providerName),
		zap.Int("chars", len(text)),
	)

	return text, nil
}

// WithSleeper overrides the retry wait, e.g. to record delays in tests.
func (c *GeminiClient) WithSleeper(s provider.Sleeper) *GeminiClient {
	c.retrier.WithSleeper(s)
	return c
}
