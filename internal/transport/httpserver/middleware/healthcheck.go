// Package middleware provides HTTP middleware for the API.
package middleware

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/healthcheck"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"personal-metrics-service/internal/infra/postgres"
)

const readinessTimeout = 2 * time.Second

// NewHealthCheck creates a Fiber healthcheck middleware with Kubernetes-style endpoints.
//
// Endpoints:
//   - GET /livez  - Liveness probe (app is running)
//   - GET /readyz - Readiness probe (database reachable, redis reachable when configured)
//
// This middleware should be registered BEFORE other routes.
func NewHealthCheck(db *gorm.DB, rdb *redis.Client) fiber.Handler {
	return healthcheck.New(healthcheck.Config{
		LivenessEndpoint: "/livez",
		LivenessProbe: func(_ *fiber.Ctx) bool {
			return true
		},

		ReadinessEndpoint: "/readyz",
		ReadinessProbe: func(c *fiber.Ctx) bool {
			if db == nil {
				return false
			}

			ctx, cancel := context.WithTimeout(c.Context(), readinessTimeout)
			defer cancel()

			if err := postgres.HealthCheck(ctx, db); err != nil {
				return false
			}
			if rdb != nil && rdb.Ping(ctx).Err() != nil {
				return false
			}

			return true
		},
	})
}
