// Package httpserver provides HTTP server and routing.
package httpserver

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"net/http"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/template/html/v2"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"personal-metrics-service/internal/transport/httpserver/dto"
	"personal-metrics-service/internal/transport/httpserver/handler"
	"personal-metrics-service/internal/transport/httpserver/middleware"
	"personal-metrics-service/internal/validator"
)

//go:embed templates
var templates embed.FS

// ServerConfig holds server configuration.
type ServerConfig struct {
	Name        string
	BodyLimit   int
	CORSOrigins string
}

// Deps holds what the routes are served from. DB and Redis back the
// readiness probe; a nil RateLimiter leaves sync routes unlimited.
type Deps struct {
	DB          *gorm.DB
	Redis       *redis.Client
	Syncs       handler.Syncer
	Widgets     handler.WidgetReader
	Validator   *validator.Validator
	RateLimiter *middleware.RateLimiter
}

// Server wraps Fiber app with handlers.
type Server struct {
	App    *fiber.App
	Logger *zap.Logger
}

// NewServer creates a new HTTP server with all routes configured.
func NewServer(cfg ServerConfig, deps Deps, logger *zap.Logger) (*Server, error) {
	views, err := fs.Sub(templates, "templates")
	if err != nil {
		return nil, fmt.Errorf("loading templates: %w", err)
	}

	app := fiber.New(fiber.Config{
		AppName:      cfg.Name,
		BodyLimit:    cfg.BodyLimit,
		ErrorHandler: errorHandler(logger),
		Views:        html.NewFileSystem(http.FS(views), ".html"),
		JSONEncoder:  json.Marshal,
		JSONDecoder:  json.Unmarshal,
	})

	// Health check middleware MUST be registered BEFORE other middleware
	// for Kubernetes probes to work even during high load
	app.Use(middleware.NewHealthCheck(deps.DB, deps.Redis))

	app.Use(requestid.New())
	app.Use(middleware.Recover(logger))
	app.Use(middleware.Logger(logger))
	app.Use(cors.New(cors.Config{AllowOrigins: cfg.CORSOrigins}))
	app.Use(compress.New())

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	widgetHandler := handler.NewWidgetHandler(deps.Syncs, deps.Widgets, deps.Validator, logger)
	dashboardHandler := handler.NewDashboardHandler(deps.Syncs, logger)

	registerRoutes(app, widgetHandler, dashboardHandler, deps.RateLimiter)

	return &Server{
		App:    app,
		Logger: logger,
	}, nil
}

// registerRoutes sets up all API routes.
func registerRoutes(
	app *fiber.App,
	widgetHandler *handler.WidgetHandler,
	dashboardHandler *handler.DashboardHandler,
	limiter *middleware.RateLimiter,
) {
	// Health checks are handled by middleware (/livez, /readyz)

	app.Get("/dashboard", dashboardHandler.Render)
	app.Get("/", func(c *fiber.Ctx) error {
		return c.Redirect("/dashboard")
	})

	api := app.Group("/api")
	api.Get("/providers", widgetHandler.Providers)

	widgets := api.Group("/widgets")
	widgets.Get("/sync/:provider", limited(limiter, "/api/widgets/sync/:provider", widgetHandler.Sync)...)
	widgets.Post("/sync", limited(limiter, "/api/widgets/sync", widgetHandler.SyncAll)...)
	widgets.Get("/sync/:provider/runs", widgetHandler.Runs)
	widgets.Get("/:provider", widgetHandler.Get)
}

// limited prepends the rate limiter to h when one is configured.
func limited(limiter *middleware.RateLimiter, route string, h fiber.Handler) []fiber.Handler {
	if limiter == nil {
		return []fiber.Handler{h}
	}
	return []fiber.Handler{limiter.Handler(route), h}
}

// errorHandler returns a custom error handler that logs based on HTTP status code.
// 404s are logged at DEBUG level (expected client behavior), 4xx at WARN, 5xx at ERROR.
func errorHandler(logger *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError

		var fe *fiber.Error
		if errors.As(err, &fe) {
			code = fe.Code
		}

		switch {
		case code == fiber.StatusNotFound:
			logger.Debug("resource not found",
				zap.String("path", c.Path()),
				zap.String("method", c.Method()),
			)
		case code >= 500:
			logger.Error("server error",
				zap.Error(err),
				zap.Int("status", code),
				zap.String("path", c.Path()),
			)
		default:
			logger.Warn("client error",
				zap.Error(err),
				zap.Int("status", code),
				zap.String("path", c.Path()),
			)
		}

		resp := dto.ErrorResponse{Error: err.Error(), Code: "UNHANDLED_ERROR"}
		if code >= 500 && fe == nil {
			resp.Error = "internal server error"
		}

		return c.Status(code).JSON(resp)
	}
}

// Start starts the HTTP server.
func (s *Server) Start(port int) error {
	s.Logger.Info("starting HTTP server", zap.Int("port", port))

	return s.App.Listen(fmt.Sprintf(":%d", port))
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown() error {
	s.Logger.Info("shutting down HTTP server")

	return s.App.Shutdown()
}
