package handler

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"personal-metrics-service/internal/transport/httpserver/dto"
)

const dashboardRuns = 25

// DashboardHandler renders the sync status page.
type DashboardHandler struct {
	syncs  Syncer
	logger *zap.Logger
}

// NewDashboardHandler creates a new DashboardHandler.
func NewDashboardHandler(syncs Syncer, logger *zap.Logger) *DashboardHandler {
	return &DashboardHandler{
		syncs:  syncs,
		logger: logger,
	}
}

// Render handles GET /dashboard
func (h *DashboardHandler) Render(c *fiber.Ctx) error {
	runs, err := h.syncs.RecentRuns(c.Context(), dashboardRuns)
	if err != nil {
		// The page still lists providers without history
		h.logger.Warn("dashboard could not load sync runs", zap.Error(err))
	}

	return c.Render("pages/dashboard", fiber.Map{
		"Title":     "Personal Metrics",
		"Providers": h.syncs.ProviderNames(),
		"Runs":      dto.FromSyncRuns(runs).Runs,
	}, "layouts/base")
}
