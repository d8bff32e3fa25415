package main

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"personal-metrics-service/internal/app/service"
	"personal-metrics-service/internal/config"
	"personal-metrics-service/internal/domain"
	"personal-metrics-service/internal/infra/objectstore"
	"personal-metrics-service/internal/infra/postgres"
	"personal-metrics-service/internal/infra/postgres/migrations"
	"personal-metrics-service/internal/infra/provider/registry"
	rediscache "personal-metrics-service/internal/infra/redis"
	"personal-metrics-service/internal/logger"
	"personal-metrics-service/pkg/locker"
)

// base holds what every command needs: configuration, logging and the database.
type base struct {
	cfg *config.Config
	log *logger.Logger
	db  *gorm.DB
}

func (b *base) close() {
	if b.db != nil {
		_ = postgres.Close(b.db)
	}
	_ = b.log.Sync()
}

// newBase loads configuration, builds the logger and connects to the database.
func newBase(ctx context.Context) (*base, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	log, err := logger.New(
		logger.Config{
			Level:   cfg.Logger.Level,
			Format:  cfg.Logger.Format,
			Output:  cfg.Logger.Output,
			Service: cfg.App.Name,
		},
		logger.SentryConfig{
			Enabled:     cfg.Sentry.Enabled,
			DSN:         cfg.Sentry.DSN,
			Environment: cfg.Sentry.Environment,
			SampleRate:  cfg.Sentry.SampleRate,
		},
	)
	if err != nil {
		return nil, fmt.Errorf("initializing logger: %w", err)
	}

	db, err := postgres.NewConnection(ctx,
		postgres.Config{
			Host:         cfg.Database.Host,
			Port:         cfg.Database.Port,
			Name:         cfg.Database.Name,
			User:         cfg.Database.User,
			Password:     cfg.Database.Password,
			SSLMode:      cfg.Database.SSLMode,
			MaxOpenConns: cfg.Database.MaxOpenConns,
			MaxIdleConns: cfg.Database.MaxIdleConns,
			MaxLifetime:  cfg.Database.MaxLifetime,
			LogQueries:   cfg.Database.LogQueries,

			AppName:         cfg.App.Name,
			ConnectAttempts: cfg.Database.ConnectAttempts,
		},
		log.Logger,
	)
	if err != nil {
		_ = log.Sync()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	return &base{cfg: cfg, log: log, db: db}, nil
}

// services holds the wired sync pipeline.
type services struct {
	redis   *redis.Client
	locker  locker.DistributedLocker
	syncs   *service.SyncService
	widgets *service.WidgetService
}

func (s *services) close() {
	_ = s.redis.Close()
}

// newServices migrates the database and wires clients, storage and the
// provider orchestrators.
func newServices(ctx context.Context, b *base) (*services, error) {
	cfg, log := b.cfg, b.log.Logger

	if err := migrations.Run(b.db); err != nil {
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	log.Info("database migrations completed")

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	// Syncs run unlocked and reads skip the cache while Redis is down
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Warn("redis unreachable, locking and caching degraded", zap.String("addr", cfg.Redis.Addr()), zap.Error(err))
	} else {
		log.Info("connected to Redis", zap.String("addr", cfg.Redis.Addr()))
	}

	var cache domain.Cache
	if cfg.Cache.Enabled {
		cache = rediscache.NewCache(redisClient, log, cfg.Cache.KeyPrefix)
		log.Info("cache enabled",
			zap.Duration("widget_ttl", cfg.Cache.WidgetTTL),
			zap.String("key_prefix", cfg.Cache.KeyPrefix),
		)
	} else {
		log.Info("cache disabled")
	}

	distLocker := locker.NewRedisLocker(redisClient, log)

	store, err := objectstore.NewMinioStore(objectstore.Config{
		Endpoint:  cfg.Storage.Endpoint,
		AccessKey: cfg.Storage.AccessKey,
		SecretKey: cfg.Storage.SecretKey,
		Bucket:    cfg.Storage.Bucket,
		Region:    cfg.Storage.Region,
		UseSSL:    cfg.Storage.UseSSL,
	}, log)
	if err != nil {
		_ = redisClient.Close()
		return nil, fmt.Errorf("creating object store: %w", err)
	}
	if err := store.EnsureBucket(ctx); err != nil {
		_ = redisClient.Close()
		return nil, fmt.Errorf("preparing bucket %s: %w", cfg.Storage.Bucket, err)
	}

	downloader := objectstore.NewDownloader(objectstore.DownloaderConfig{
		Timeout:      cfg.Media.Timeout,
		RetryMax:     cfg.Media.RetryMax,
		RetryWaitMin: cfg.Media.RetryWaitMin,
		RetryWaitMax: cfg.Media.RetryWaitMax,
		MaxBytes:     cfg.Media.MaxBytes,
		UserAgent:    cfg.App.Name,
	}, log)
	media := service.NewMediaSync(store, downloader, cfg.Media.Concurrency, cfg.Media.PublicURL, log)

	clients := registry.NewClients(cfg.Provider, cfg.Summary, log)
	docs := postgres.NewDocumentRepository(b.db)

	pipe := &service.Pipeline{
		Docs:       docs,
		Media:      media,
		Summarizer: clients.Summarizer,
		Logger:     log,
	}

	var orchestrators []service.Orchestrator
	if clients.Goodreads != nil {
		correlator := service.NewCorrelator(clients.Books, media, cfg.Sync.DispatchInterval, log)
		orchestrators = append(orchestrators,
			service.NewGoodreadsSync(pipe, clients.Goodreads, correlator, cfg.Provider.Goodreads.RecentBooks))
	}
	if clients.Discogs != nil {
		orchestrators = append(orchestrators,
			service.NewDiscogsSync(pipe, clients.Discogs, cfg.Sync.DispatchInterval))
	}
	if len(orchestrators) == 0 {
		log.Warn("no provider configured, set provider.goodreads.user_id or provider.discogs.username")
	}

	widgets := service.NewWidgetService(docs, cache, cfg.Cache.WidgetTTL, log)
	syncSvc := service.NewSyncService(orchestrators, service.SyncServiceConfig{
		History: postgres.NewSyncRunRepository(b.db),
		Widgets: widgets,
		Locker:  distLocker,
		LockTTL: cfg.Sync.LockTTL,
	}, log)

	return &services{
		redis:   redisClient,
		locker:  distLocker,
		syncs:   syncSvc,
		widgets: widgets,
	}, nil
}
