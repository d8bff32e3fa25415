// Package metrics exposes the Prometheus instrumentation of the sync pipeline.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Sync runs
	SyncRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "widget_sync_runs_total",
			Help: "Total number of provider sync runs by result",
		},
		[]string{"provider", "result"},
	)

	SyncRunDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "widget_sync_run_duration_seconds",
			Help:    "Duration of provider sync runs in seconds",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		},
		[]string{"provider"},
	)

	SyncDegradedSteps = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "widget_sync_degraded_steps_total",
			Help: "Best-effort sync steps that failed without failing the run",
		},
		[]string{"provider", "step"},
	)

	// Enrichment
	EnrichmentLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "enrichment_lookups_total",
			Help: "Enrichment lookups by method and outcome",
		},
		[]string{"method", "outcome"}, // method: isbn|search, outcome: hit|miss
	)

	EnrichmentMatches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "enrichment_matches_total",
			Help: "Primary items matched to an external record, by matching strategy",
		},
		[]string{"strategy"},
	)

	RetryDecisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "upstream_retry_decisions_total",
			Help: "Retry policy decisions by upstream and action",
		},
		[]string{"upstream", "action"},
	)

	// Media
	MediaUploads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_uploads_total",
			Help: "Media uploads by outcome",
		},
		[]string{"outcome"},
	)

	MediaUploadDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "media_upload_duration_seconds",
			Help:    "Download plus upload time of a single media item",
			Buckets: prometheus.DefBuckets,
		},
	)

	// Read path
	WidgetCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "widget_cache_hits_total",
			Help: "Widget documents served from cache",
		},
	)

	WidgetCacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "widget_cache_misses_total",
			Help: "Widget document reads that missed the cache",
		},
	)

	// HTTP
	APIRateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_rate_limit_hits_total",
			Help: "Total number of rate limit rejections",
		},
		[]string{"endpoint"},
	)

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests by route and status class",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
)

// RecordHTTPRequest records one served request. status is the class, e.g. "2xx".
func RecordHTTPRequest(method, route, status string, duration time.Duration) {
	HTTPRequestsTotal.WithLabelValues(method, route, status).Inc()
	HTTPRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// RecordSyncRun records the outcome and duration of a sync run.
func RecordSyncRun(provider, result string, duration time.Duration) {
	SyncRunsTotal.WithLabelValues(provider, result).Inc()
	SyncRunDuration.WithLabelValues(provider).Observe(duration.Seconds())
}

// RecordLookup records an enrichment lookup.
func RecordLookup(method string, hit bool) {
	outcome := "miss"
	if hit {
		outcome = "hit"
	}
	EnrichmentLookups.WithLabelValues(method, outcome).Inc()
}

// RecordMediaUpload records a single media transfer.
func RecordMediaUpload(duration time.Duration, err error) {
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	MediaUploads.WithLabelValues(outcome).Inc()
	MediaUploadDuration.Observe(duration.Seconds())
}
