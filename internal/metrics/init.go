package metrics

// Label values pre-populated by InitializeMetrics.
var (
	Stages         = []string{"select", "fetch", "trim", "reformat", "caption", "publish"}
	StageStatuses  = []string{"success", "error", "timeout"}
	RunResults     = []string{"succeeded", "no_candidates", "fetch_failed", "transform_failed", "publish_failed", "exhausted_retries"}
	FilesystemOps  = []string{"stat", "open", "remove"}
	LedgerQueries  = []string{"initialize_schema", "record_use", "load_usage", "save_assignments", "load_assignments", "record_run", "load_runs"}
	selectOutcomes = []string{"selected", "not_found"}
)

// InitializeMetrics pre-populates all expected label combinations so that
// every metric is exported from the first Prometheus scrape.
// Call this once at startup.
func InitializeMetrics() {
	for _, stage := range Stages {
		StageDuration.WithLabelValues(stage)
		for _, status := range StageStatuses {
			StageResults.WithLabelValues(stage, status)
		}
	}

	for _, r := range RunResults {
		RunsTotal.WithLabelValues(r)
	}

	for _, o := range selectOutcomes {
		SelectionsTotal.WithLabelValues(o)
	}

	for _, state := range []string{"total", "used", "leased"} {
		CatalogClips.WithLabelValues(state)
	}

	for _, op := range FilesystemOps {
		FilesystemRetryAttempts.WithLabelValues(op)
		FilesystemRetrySuccess.WithLabelValues(op)
		FilesystemRetryFailures.WithLabelValues(op)
		FilesystemStaleErrors.WithLabelValues(op)
	}

	for _, op := range LedgerQueries {
		DBQueryTotal.WithLabelValues(op, "success")
		DBQueryTotal.WithLabelValues(op, "error")
		DBQueryDuration.WithLabelValues(op)
	}
}
