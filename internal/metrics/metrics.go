package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Pipeline stage metrics
var (
	StageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "reel_clipper_stage_duration_seconds",
			Help:    "Duration of pipeline stages in seconds",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 20, 40, 60, 120, 300, 600},
		},
		[]string{"stage"},
	)

	StageResults = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reel_clipper_stage_results_total",
			Help: "Pipeline stage outcomes",
		},
		[]string{"stage", "status"}, // status: success, error, timeout
	)
)

// Orchestrator metrics
var (
	RunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reel_clipper_runs_total",
			Help: "Completed orchestrator runs by result (succeeded or failure reason)",
		},
		[]string{"result"},
	)

	AttemptsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "reel_clipper_attempts_total",
			Help: "Clip attempts across all runs, retries included",
		},
	)

	SelectionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reel_clipper_selections_total",
			Help: "Clip selections by outcome",
		},
		[]string{"outcome"}, // selected, not_found
	)

	ClipUsesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reel_clipper_clip_uses_total",
			Help: "Successfully published clips by source",
		},
		[]string{"source"},
	)
)

// Catalog metrics, refreshed by the Collector
var (
	CatalogClips = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "reel_clipper_catalog_clips",
			Help: "Catalog clips by state",
		},
		[]string{"state"}, // total, used, leased
	)

	CatalogSources = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "reel_clipper_catalog_sources",
			Help: "Number of sources in the catalog",
		},
	)
)

// Batch metrics
var (
	BatchLastRunTimestamp = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "reel_clipper_batch_last_run_timestamp",
			Help: "Unix timestamp of the last completed batch",
		},
	)

	BatchLastRunDuration = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "reel_clipper_batch_last_run_duration_seconds",
			Help: "Duration of the last batch in seconds",
		},
	)

	BatchInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "reel_clipper_batch_runs_in_flight",
			Help: "Orchestrator runs currently executing",
		},
	)
)

// Filesystem metrics
var (
	ArtifactsLive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "reel_clipper_artifacts_live",
			Help: "Pipeline artifacts currently tracked on disk",
		},
	)

	FilesystemRetryAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reel_clipper_filesystem_retry_attempts_total",
			Help: "Filesystem operation retries after ESTALE",
		},
		[]string{"operation"},
	)

	FilesystemRetrySuccess = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reel_clipper_filesystem_retry_success_total",
			Help: "Filesystem operations that succeeded after retrying",
		},
		[]string{"operation"},
	)

	FilesystemRetryFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reel_clipper_filesystem_retry_failures_total",
			Help: "Filesystem operations that failed after exhausting retries",
		},
		[]string{"operation"},
	)

	FilesystemStaleErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reel_clipper_filesystem_stale_errors_total",
			Help: "NFS stale file handle errors",
		},
		[]string{"operation"},
	)
)

// Ledger metrics
var (
	DBQueryTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reel_clipper_db_queries_total",
			Help: "Total number of ledger queries",
		},
		[]string{"operation", "status"},
	)

	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "reel_clipper_db_query_duration_seconds",
			Help:    "Ledger query duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		},
		[]string{"operation"},
	)
)

// Memory metrics
var (
	MemoryUsageRatio = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "reel_clipper_memory_usage_ratio",
			Help: "Heap allocation as a ratio of the memory limit",
		},
	)

	MemoryPaused = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "reel_clipper_memory_paused",
			Help: "Whether new runs are held for memory pressure (1 = held)",
		},
	)
)
