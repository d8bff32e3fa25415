package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"personal-metrics-service/internal/job"
	"personal-metrics-service/internal/transport/httpserver"
	"personal-metrics-service/internal/transport/httpserver/middleware"
	"personal-metrics-service/internal/validator"
)

const (
	shutdownTimeout = 10 * time.Second
	sweepInterval   = time.Minute
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the widget API and run the sync scheduler",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	b, err := newBase(ctx)
	if err != nil {
		return err
	}
	defer b.close()

	cfg, log := b.cfg, b.log.Logger
	log.Info("starting personal-metrics-service",
		zap.String("env", cfg.App.Env),
		zap.Int("port", cfg.App.Port),
	)

	svc, err := newServices(ctx, b)
	if err != nil {
		log.Error("startup failed", zap.Error(err))
		return err
	}
	defer svc.close()

	var limiter *middleware.RateLimiter
	if cfg.RateLimit.Enabled {
		limiter = middleware.NewRateLimiter(middleware.RateLimiterConfig{
			Rate:  cfg.RateLimit.Rate,
			Burst: cfg.RateLimit.Burst,
			TTL:   cfg.RateLimit.TTL,
		}, log)
		limiter.Start(sweepInterval)
		defer limiter.Stop()
	}

	server, err := httpserver.NewServer(
		httpserver.ServerConfig{
			Name:        cfg.App.Name,
			BodyLimit:   cfg.App.BodyLimit,
			CORSOrigins: cfg.App.CORSOrigins,
		},
		httpserver.Deps{
			DB:          b.db,
			Redis:       svc.redis,
			Syncs:       svc.syncs,
			Widgets:     svc.widgets,
			Validator:   validator.New(),
			RateLimiter: limiter,
		},
		log,
	)
	if err != nil {
		return err
	}

	var scheduler *job.SyncScheduler
	if cfg.Sync.Interval > 0 {
		scheduler = job.NewSyncScheduler(
			svc.syncs,
			job.SyncConfig{
				Interval:  cfg.Sync.Interval,
				Timeout:   cfg.Sync.Timeout,
				OnStartup: cfg.Sync.OnStartup,
			},
			log,
			svc.locker,
		)
		scheduler.Start(cfg.Sync.OnStartup)
	} else {
		log.Info("sync scheduler disabled")
	}

	// Graceful shutdown
	go func() {
		<-ctx.Done()

		log.Info("shutdown signal received")

		if scheduler != nil {
			scheduler.Stop()
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := server.App.ShutdownWithContext(shutdownCtx); err != nil {
			log.Error("server shutdown error", zap.Error(err))
		}
	}()

	if err := server.Start(cfg.App.Port); err != nil {
		log.Error("server error", zap.Error(err))
		return err
	}

	return nil
}
