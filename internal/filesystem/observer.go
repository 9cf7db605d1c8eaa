package filesystem

// Observer records filesystem metrics. The metrics package provides the
// implementation so this package does not import it.
type Observer interface {
	// ObserveRetryAttempt is called before each backoff sleep.
	// op is one of "stat", "open", "remove".
	ObserveRetryAttempt(op string)
	ObserveRetrySuccess(op string)
	ObserveRetryFailure(op string)
	ObserveStaleError(op string)

	// ObserveArtifacts adjusts the number of tracked artifacts on disk.
	ObserveArtifacts(delta int)
}

var defaultObserver Observer

// SetObserver sets the package-level metrics observer. Call once at startup.
func SetObserver(o Observer) {
	defaultObserver = o
}

// nopObserver keeps call sites free of nil checks.
type nopObserver struct{}

func (nopObserver) ObserveRetryAttempt(string) {}
func (nopObserver) ObserveRetrySuccess(string) {}
func (nopObserver) ObserveRetryFailure(string) {}
func (nopObserver) ObserveStaleError(string)   {}
func (nopObserver) ObserveArtifacts(int)       {}

func observe() Observer {
	if defaultObserver == nil {
		return nopObserver{}
	}
	return defaultObserver
}
