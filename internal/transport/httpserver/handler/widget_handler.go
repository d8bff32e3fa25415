// Package handler provides HTTP handlers for the API.
package handler

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"personal-metrics-service/internal/app/service"
	"personal-metrics-service/internal/domain"
	"personal-metrics-service/internal/transport/httpserver/dto"
	"personal-metrics-service/internal/validator"
)

// HeaderSyncRunID carries the ID of the run a sync request started.
const HeaderSyncRunID = "X-Sync-Run-ID"

// Syncer runs provider syncs and reports their history.
type Syncer interface {
	Sync(ctx context.Context, provider string) (domain.SyncResult, *domain.SyncRun, error)
	SyncAll(ctx context.Context) []service.ProviderResult
	Runs(ctx context.Context, provider string, limit int) ([]*domain.SyncRun, error)
	RecentRuns(ctx context.Context, limit int) ([]*domain.SyncRun, error)
	ProviderNames() []string
	HasProvider(provider string) bool
}

// WidgetReader serves persisted widget documents.
type WidgetReader interface {
	Get(ctx context.Context, provider string) (json.RawMessage, error)
}

// WidgetHandler handles the widget sync and read routes.
type WidgetHandler struct {
	syncs     Syncer
	widgets   WidgetReader
	validator *validator.Validator
	logger    *zap.Logger
}

// NewWidgetHandler creates a new WidgetHandler.
func NewWidgetHandler(syncs Syncer, widgets WidgetReader, v *validator.Validator, logger *zap.Logger) *WidgetHandler {
	return &WidgetHandler{
		syncs:     syncs,
		widgets:   widgets,
		validator: v,
		logger:    logger,
	}
}

// Sync handles GET /api/widgets/sync/:provider
// The body is the run envelope: 200 on SUCCESS, 500 on FAILURE.
func (h *WidgetHandler) Sync(c *fiber.Ctx) error {
	provider, ok, err := h.provider(c)
	if !ok {
		return err
	}

	h.logger.Info("widget sync triggered", zap.String("provider", provider))

	result, run, err := h.syncs.Sync(c.Context(), provider)
	switch {
	case errors.Is(err, domain.ErrUnknownProvider):
		return providerNotFound(c)
	case errors.Is(err, domain.ErrSyncInProgress):
		return c.Status(fiber.StatusConflict).JSON(result)
	case err != nil:
		h.logger.Error("widget sync failed to start", zap.String("provider", provider), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(result)
	}

	if run != nil {
		c.Set(HeaderSyncRunID, run.ID)
	}
	if !result.OK() {
		return c.Status(fiber.StatusInternalServerError).JSON(result)
	}

	return c.JSON(result)
}

// SyncAll handles POST /api/widgets/sync
func (h *WidgetHandler) SyncAll(c *fiber.Ctx) error {
	h.logger.Info("sync of all providers triggered")

	resp := dto.FromProviderResults(h.syncs.SyncAll(c.Context()))
	if resp.Summary.ProvidersFail > 0 {
		return c.Status(fiber.StatusMultiStatus).JSON(resp)
	}

	return c.JSON(resp)
}

// Get handles GET /api/widgets/:provider
func (h *WidgetHandler) Get(c *fiber.Ctx) error {
	provider, ok, err := h.provider(c)
	if !ok {
		return err
	}
	if !h.syncs.HasProvider(provider) {
		return providerNotFound(c)
	}

	doc, err := h.widgets.Get(c.Context(), provider)
	if errors.Is(err, domain.ErrNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{
			Error: "widget has not been synced yet",
			Code:  "WIDGET_NOT_FOUND",
		})
	}
	if err != nil {
		h.logger.Error("widget read failed", zap.String("provider", provider), zap.Error(err))

		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: "failed to read widget",
			Code:  "INTERNAL_ERROR",
		})
	}

	c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSONCharsetUTF8)
	return c.Send(doc)
}

// Runs handles GET /api/widgets/sync/:provider/runs
func (h *WidgetHandler) Runs(c *fiber.Ctx) error {
	provider, ok, err := h.provider(c)
	if !ok {
		return err
	}

	var q dto.RunsQuery
	if err := c.QueryParser(&q); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: "invalid query parameters",
			Code:  "INVALID_PARAMS",
		})
	}
	if err := h.validator.Validate(&q); err != nil {
		return validationFailed(c, err)
	}

	runs, err := h.syncs.Runs(c.Context(), provider, q.EffectiveLimit())
	if errors.Is(err, domain.ErrUnknownProvider) {
		return providerNotFound(c)
	}
	if err != nil {
		h.logger.Error("listing sync runs failed", zap.String("provider", provider), zap.Error(err))

		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: "failed to list sync runs",
			Code:  "INTERNAL_ERROR",
		})
	}

	return c.JSON(dto.FromSyncRuns(runs))
}

// Providers handles GET /api/providers
func (h *WidgetHandler) Providers(c *fiber.Ctx) error {
	return c.JSON(dto.ProvidersResponse{Providers: h.syncs.ProviderNames()})
}

// provider parses and validates the :provider route param. When ok is false
// the 400 response has been written and err is the result of writing it.
func (h *WidgetHandler) provider(c *fiber.Ctx) (name string, ok bool, err error) {
	var p dto.ProviderParams
	if err := c.ParamsParser(&p); err != nil {
		return "", false, c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: "invalid provider",
			Code:  "INVALID_PARAMS",
		})
	}
	if err := h.validator.Validate(&p); err != nil {
		return "", false, validationFailed(c, err)
	}

	return p.Provider, true, nil
}

func providerNotFound(c *fiber.Ctx) error {
	return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{
		Error: "provider not found",
		Code:  "PROVIDER_NOT_FOUND",
	})
}

func validationFailed(c *fiber.Ctx, err error) error {
	return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
		Error:   "validation failed",
		Code:    "VALIDATION_ERROR",
		Details: err,
	})
}
