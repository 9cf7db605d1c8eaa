package orchestrator

import (
	"time"

	"reel-clipper/internal/catalog"
)

// State is a step of one run.
type State int

const (
	Selecting State = iota
	Fetching
	Transforming
	Publishing
	Succeeded
	Failed
)

func (s State) String() string {
	switch s {
	case Selecting:
		return "selecting"
	case Fetching:
		return "fetching"
	case Transforming:
		return "transforming"
	case Publishing:
		return "publishing"
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether no transition leaves s.
func (s State) Terminal() bool {
	return s == Succeeded || s == Failed
}

// Failure is the typed reason a run ended in Failed.
type Failure int

const (
	// NoFailure is the zero value carried by successful results.
	NoFailure Failure = iota
	// NoCandidates means selection found nothing. Not retried.
	NoCandidates
	// FetchFailed means the download did not produce a file.
	FetchFailed
	// TransformFailed means trim, reformat or caption failed.
	TransformFailed
	// PublishFailed means upload or post creation failed. Not retried.
	PublishFailed
	// ExhaustedRetries means every allowed attempt failed.
	ExhaustedRetries
)

func (f Failure) String() string {
	switch f {
	case NoFailure:
		return "none"
	case NoCandidates:
		return "no_candidates"
	case FetchFailed:
		return "fetch_failed"
	case TransformFailed:
		return "transform_failed"
	case PublishFailed:
		return "publish_failed"
	case ExhaustedRetries:
		return "exhausted_retries"
	default:
		return "unknown"
	}
}

// Retryable reports whether a new clip should be tried after f.
func (f Failure) Retryable() bool {
	return f == FetchFailed || f == TransformFailed
}

// Result is the outcome of one run, the only thing the batch runner sees.
type Result struct {
	RunID    string
	AuthorID string
	Label    string

	Succeeded bool
	Failure   Failure
	// Err is the underlying error, kept for logging.
	Err error

	// Clip is the clip of the last attempt; on success, the one posted.
	Clip     catalog.Clip
	Attempts int
	Tried    []string

	PostID    string
	StoryID   string
	VideoURL  string
	PosterURL string

	StartedAt time.Time
	Duration  time.Duration
}

// Outcome returns "succeeded" or the failure reason, as used in metrics
// labels and the run ledger.
func (r Result) Outcome() string {
	if r.Succeeded {
		return "succeeded"
	}
	return r.Failure.String()
}
