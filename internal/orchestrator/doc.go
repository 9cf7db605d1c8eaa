// Package orchestrator turns "post a clip for author X" into a bounded
// sequence of attempts.
//
// Each run is an explicit state machine:
//
//	Selecting → Fetching → Transforming → Publishing → Succeeded
//	    ↑           │            │             │
//	    └───────────┴────────────┘             └──→ Failed(PublishFailed)
//
// A fetch or transform failure releases that attempt's artifacts and the
// clip lease, excludes the clip, and selects again until MaxAttempts is
// reached (ExhaustedRetries). Selection that finds nothing ends the run
// with NoCandidates. Publish failures are not retried. Every run works in
// its own workspace directory, removed on every exit path.
package orchestrator
