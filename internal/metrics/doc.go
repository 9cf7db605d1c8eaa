/*
Package metrics defines the Prometheus metrics exported by reel-clipper and
the small HTTP server that exposes them.

All metrics use the reel_clipper_ prefix:

  - reel_clipper_stage_duration_seconds{stage}: per-stage latency
  - reel_clipper_stage_results_total{stage,status}: success, error, timeout
  - reel_clipper_runs_total{result}: orchestrator outcomes
  - reel_clipper_attempts_total: clip attempts, retries included
  - reel_clipper_selections_total{outcome}: selected, not_found
  - reel_clipper_clip_uses_total{source}: published clips by source
  - reel_clipper_catalog_clips{state}, reel_clipper_catalog_sources
  - reel_clipper_batch_*: last batch timestamp and duration, runs in flight
  - reel_clipper_artifacts_live: artifacts currently on disk
  - reel_clipper_filesystem_*: ESTALE retry counters
  - reel_clipper_db_*: ledger query counters and latency
  - reel_clipper_memory_usage_ratio, reel_clipper_memory_paused: launch gate

InitializeMetrics pre-populates label combinations so dashboards see zeros
instead of gaps. The Collector samples catalog.Store usage on an interval.

The Server routes /metrics, /healthz, /livez and /readyz with gorilla/mux.
It is only started when METRICS_ENABLED is set.
*/
package metrics
