// Package config provides application configuration management using Viper.
// Configuration is loaded from YAML files and environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Provider  ProviderConfig  `mapstructure:"provider"`
	Sync      SyncConfig      `mapstructure:"sync"`
	Logger    LoggerConfig    `mapstructure:"logger"`
	Sentry    SentryConfig    `mapstructure:"sentry"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Media     MediaConfig     `mapstructure:"media"`
	Summary   SummaryConfig   `mapstructure:"summary"`
	RateLimit RateLimitConfig `mapstructure:"ratelimit"`
}

// AppConfig holds application-level settings.
type AppConfig struct {
	Name  string `mapstructure:"name"`
	Env   string `mapstructure:"env"` // development, staging, production
	Port  int    `mapstructure:"port"`
	Debug bool   `mapstructure:"debug"`

	BodyLimit   int    `mapstructure:"body_limit"`
	CORSOrigins string `mapstructure:"cors_origins"` // comma separated
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	Name         string        `mapstructure:"name"`
	User         string        `mapstructure:"user"`
	Password     string        `mapstructure:"password"`
	SSLMode      string        `mapstructure:"ssl_mode"`
	MaxOpenConns int           `mapstructure:"max_open_conns"`
	MaxIdleConns int           `mapstructure:"max_idle_conns"`
	MaxLifetime  time.Duration `mapstructure:"max_lifetime"`
	LogQueries   bool          `mapstructure:"log_queries"`

	ConnectAttempts int `mapstructure:"connect_attempts"`
}

// ProviderConfig holds upstream API settings.
type ProviderConfig struct {
	Goodreads   GoodreadsConfig   `mapstructure:"goodreads"`
	Discogs     DiscogsConfig     `mapstructure:"discogs"`
	GoogleBooks GoogleBooksConfig `mapstructure:"googlebooks"`
}

// ProviderEndpoint holds the transport settings shared by every upstream.
type ProviderEndpoint struct {
	BaseURL   string        `mapstructure:"base_url"`
	Timeout   time.Duration `mapstructure:"timeout"`
	UserAgent string        `mapstructure:"user_agent"`
	Retry     RetryConfig   `mapstructure:"retry"`
	CB        CBConfig      `mapstructure:"circuit_breaker"`
}

// RetryConfig holds transport retry settings.
type RetryConfig struct {
	MaxAttempts int           `mapstructure:"max_attempts"`
	WaitTime    time.Duration `mapstructure:"wait_time"`
	MaxWaitTime time.Duration `mapstructure:"max_wait_time"`
}

// CBConfig holds circuit breaker settings.
type CBConfig struct {
	MaxRequests  uint32        `mapstructure:"max_requests"`
	Interval     time.Duration `mapstructure:"interval"`
	Timeout      time.Duration `mapstructure:"timeout"`
	FailureRatio float64       `mapstructure:"failure_ratio"`
}

// GoodreadsConfig holds Goodreads settings. An empty UserID disables the provider.
type GoodreadsConfig struct {
	ProviderEndpoint `mapstructure:",squash"`
	APIKey           string `mapstructure:"api_key"`
	UserID           string `mapstructure:"user_id"`
	Shelf            string `mapstructure:"shelf"`
	PerPage          int    `mapstructure:"per_page"`
	MaxPages         int    `mapstructure:"max_pages"`
	RecentBooks      int    `mapstructure:"recent_books"`
}

// DiscogsConfig holds Discogs settings. An empty Username disables the provider.
type DiscogsConfig struct {
	ProviderEndpoint `mapstructure:",squash"`
	Token            string `mapstructure:"token"`
	Username         string `mapstructure:"username"`
	PerPage          int    `mapstructure:"per_page"`
	MaxPages         int    `mapstructure:"max_pages"`
	MaxAttempts      int    `mapstructure:"max_attempts"`
}

// GoogleBooksConfig holds the book metadata lookup settings.
type GoogleBooksConfig struct {
	ProviderEndpoint `mapstructure:",squash"`
	APIKey           string `mapstructure:"api_key"`
	MaxAttempts      int    `mapstructure:"max_attempts"`
}

// SyncConfig holds sync pipeline and background worker settings.
type SyncConfig struct {
	Interval         time.Duration `mapstructure:"interval"` // 0 disables the scheduler
	OnStartup        bool          `mapstructure:"on_startup"`
	Timeout          time.Duration `mapstructure:"timeout"`
	LockTTL          time.Duration `mapstructure:"lock_ttl"`
	DispatchInterval time.Duration `mapstructure:"dispatch_interval"`
}

// LoggerConfig holds logging settings.
type LoggerConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // json, console
	Output string `mapstructure:"output"` // stdout, stderr, file path
}

// SentryConfig holds Sentry error tracking settings.
type SentryConfig struct {
	Enabled     bool    `mapstructure:"enabled"`
	DSN         string  `mapstructure:"dsn"`
	Environment string  `mapstructure:"environment"`
	SampleRate  float64 `mapstructure:"sample_rate"`
}

// RedisConfig holds Redis connection settings for locking and caching.
type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// Addr returns the host:port address.
func (c *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// CacheConfig holds widget read cache settings.
type CacheConfig struct {
	Enabled   bool          `mapstructure:"enabled"`
	WidgetTTL time.Duration `mapstructure:"widget_ttl"`
	KeyPrefix string        `mapstructure:"key_prefix"`
}

// StorageConfig holds object storage settings.
type StorageConfig struct {
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Bucket    string `mapstructure:"bucket"`
	Region    string `mapstructure:"region"`
	UseSSL    bool   `mapstructure:"use_ssl"`
}

// MediaConfig holds media mirroring settings.
type MediaConfig struct {
	PublicURL    string        `mapstructure:"public_url"` // CDN base joined with object keys
	Concurrency  int           `mapstructure:"concurrency"`
	Timeout      time.Duration `mapstructure:"timeout"`
	RetryMax     int           `mapstructure:"retry_max"`
	RetryWaitMin time.Duration `mapstructure:"retry_wait_min"`
	RetryWaitMax time.Duration `mapstructure:"retry_wait_max"`
	MaxBytes     int64         `mapstructure:"max_bytes"`
}

// SummaryConfig holds AI summary settings.
type SummaryConfig struct {
	ProviderEndpoint `mapstructure:",squash"`
	Enabled          bool   `mapstructure:"enabled"`
	APIKey           string `mapstructure:"api_key"`
	Model            string `mapstructure:"model"`
	Prompt           string `mapstructure:"prompt"` // {provider} is replaced with the provider name
	MaxOutputTokens  int    `mapstructure:"max_output_tokens"`
	MaxAttempts      int    `mapstructure:"max_attempts"`
}

// RateLimitConfig holds the per-client limit on sync endpoints.
type RateLimitConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	Rate    float64       `mapstructure:"rate"` // requests per second
	Burst   int           `mapstructure:"burst"`
	TTL     time.Duration `mapstructure:"ttl"` // idle clients are forgotten after TTL
}

// Load reads configuration from file and environment variables.
// Priority: env vars > config file > defaults
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// Config file not found, continue with defaults + env vars
	}

	v.SetEnvPrefix("APP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate rejects settings the service cannot start with.
func (c *Config) Validate() error {
	if c.App.Port <= 0 || c.App.Port > 65535 {
		return fmt.Errorf("invalid app.port %d", c.App.Port)
	}
	if c.Media.Concurrency <= 0 {
		return fmt.Errorf("media.concurrency must be positive, got %d", c.Media.Concurrency)
	}
	if c.Storage.Bucket == "" {
		return errors.New("storage.bucket is required")
	}
	if c.Summary.Enabled && c.Summary.APIKey == "" {
		return errors.New("summary.api_key is required when summary is enabled")
	}
	if c.Sync.LockTTL < time.Second {
		return fmt.Errorf("sync.lock_ttl must be at least 1s, got %s", c.Sync.LockTTL)
	}
	if c.RateLimit.Enabled && (c.RateLimit.Rate <= 0 || c.RateLimit.Burst <= 0) {
		return errors.New("ratelimit.rate and ratelimit.burst must be positive")
	}

	return nil
}

func setEndpointDefaults(v *viper.Viper, prefix, baseURL string) {
	v.SetDefault(prefix+".base_url", baseURL)
	v.SetDefault(prefix+".timeout", "10s")
	v.SetDefault(prefix+".user_agent", "personal-metrics-service/1.0")
	v.SetDefault(prefix+".retry.max_attempts", 2)
	v.SetDefault(prefix+".retry.wait_time", "1s")
	v.SetDefault(prefix+".retry.max_wait_time", "5s")
	v.SetDefault(prefix+".circuit_breaker.max_requests", 3)
	v.SetDefault(prefix+".circuit_breaker.interval", "60s")
	v.SetDefault(prefix+".circuit_breaker.timeout", "30s")
	v.SetDefault(prefix+".circuit_breaker.failure_ratio", 0.5)
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	// App defaults
	v.SetDefault("app.name", "personal-metrics-service")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", 8080)
	v.SetDefault("app.debug", true)
	v.SetDefault("app.body_limit", 1<<20)
	v.SetDefault("app.cors_origins", "*")

	// Database defaults
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "personal_metrics")
	v.SetDefault("database.user", "app")
	v.SetDefault("database.password", "secret")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.max_lifetime", "5m")
	v.SetDefault("database.log_queries", false)
	v.SetDefault("database.connect_attempts", 5)

	// Provider defaults
	setEndpointDefaults(v, "provider.goodreads", "https://www.goodreads.com")
	v.SetDefault("provider.goodreads.api_key", "")
	v.SetDefault("provider.goodreads.user_id", "")
	v.SetDefault("provider.goodreads.shelf", "read")
	v.SetDefault("provider.goodreads.per_page", 50)
	v.SetDefault("provider.goodreads.max_pages", 10)
	v.SetDefault("provider.goodreads.recent_books", 50)

	setEndpointDefaults(v, "provider.discogs", "https://api.discogs.com")
	v.SetDefault("provider.discogs.token", "")
	v.SetDefault("provider.discogs.username", "")
	v.SetDefault("provider.discogs.per_page", 50)
	v.SetDefault("provider.discogs.max_pages", 20)
	v.SetDefault("provider.discogs.max_attempts", 3)

	setEndpointDefaults(v, "provider.googlebooks", "https://www.googleapis.com/books/v1")
	v.SetDefault("provider.googlebooks.api_key", "")
	v.SetDefault("provider.googlebooks.max_attempts", 3)

	// Sync defaults
	v.SetDefault("sync.interval", "6h")
	v.SetDefault("sync.on_startup", false)
	v.SetDefault("sync.timeout", "10m")
	v.SetDefault("sync.lock_ttl", "10m")
	v.SetDefault("sync.dispatch_interval", "200ms")

	// Logger defaults
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.output", "stdout")

	// Sentry defaults
	v.SetDefault("sentry.enabled", false)
	v.SetDefault("sentry.dsn", "")
	v.SetDefault("sentry.environment", "development")
	v.SetDefault("sentry.sample_rate", 1.0)

	// Redis defaults
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	// Cache defaults
	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.widget_ttl", "15m")
	v.SetDefault("cache.key_prefix", "personal-metrics")

	// Storage defaults
	v.SetDefault("storage.endpoint", "localhost:9000")
	v.SetDefault("storage.access_key", "minioadmin")
	v.SetDefault("storage.secret_key", "minioadmin")
	v.SetDefault("storage.bucket", "personal-metrics")
	v.SetDefault("storage.region", "")
	v.SetDefault("storage.use_ssl", false)

	// Media defaults
	v.SetDefault("media.public_url", "http://localhost:9000/personal-metrics")
	v.SetDefault("media.concurrency", 10)
	v.SetDefault("media.timeout", "20s")
	v.SetDefault("media.retry_max", 2)
	v.SetDefault("media.retry_wait_min", "500ms")
	v.SetDefault("media.retry_wait_max", "5s")
	v.SetDefault("media.max_bytes", 10<<20)

	// Summary defaults
	setEndpointDefaults(v, "summary", "https://generativelanguage.googleapis.com/v1beta")
	v.SetDefault("summary.timeout", "30s")
	v.SetDefault("summary.enabled", false)
	v.SetDefault("summary.api_key", "")
	v.SetDefault("summary.model", "gemini-2.0-flash")
	v.SetDefault("summary.prompt", "")
	v.SetDefault("summary.max_output_tokens", 256)
	v.SetDefault("summary.max_attempts", 3)

	// Rate limit defaults
	v.SetDefault("ratelimit.enabled", true)
	v.SetDefault("ratelimit.rate", 0.2)
	v.SetDefault("ratelimit.burst", 3)
	v.SetDefault("ratelimit.ttl", "10m")
}
