package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"reel-clipper/internal/catalog"
	"reel-clipper/internal/database"
	"reel-clipper/internal/filesystem"
	"reel-clipper/internal/logging"
	"reel-clipper/internal/metrics"
	"reel-clipper/internal/publish"
	"reel-clipper/internal/transcoder"
)

const stagePublish = "publish"

// Catalog is the selection side of the clip store.
type Catalog interface {
	Acquire(c catalog.Constraints) (catalog.Clip, error)
	Release(id string)
	MarkUsed(id string) (catalog.Clip, error)
	Caption(cat catalog.Category) string
}

// Stages runs the transform pipeline. *transcoder.Transcoder implements it.
type Stages interface {
	Fetch(ctx context.Context, ws *filesystem.Workspace, clip catalog.Clip) (filesystem.Artifact, error)
	Trim(ctx context.Context, ws *filesystem.Workspace, clip catalog.Clip, in filesystem.Artifact) (filesystem.Artifact, error)
	Reformat(ctx context.Context, ws *filesystem.Workspace, in filesystem.Artifact) (filesystem.Artifact, error)
	Caption(ctx context.Context, ws *filesystem.Workspace, in filesystem.Artifact) (filesystem.Artifact, error)
}

// Publisher posts a finished clip.
type Publisher interface {
	Publish(ctx context.Context, req publish.Request) (publish.Result, error)
}

// Ledger persists usage and run history. *database.Database implements it.
type Ledger interface {
	RecordUse(ctx context.Context, clipID, source string, at time.Time) error
	RecordRun(ctx context.Context, r database.Run) error
}

// Config bounds a run.
type Config struct {
	WorkDir     string
	MaxAttempts int
	// StageTimeout bounds each blocking stage; zero disables it.
	StageTimeout time.Duration
	// RunTimeout bounds the whole run including retries; zero disables it.
	RunTimeout     time.Duration
	ReuseWindow    time.Duration
	PreferCategory catalog.Category
}

// DefaultConfig returns the production bounds.
func DefaultConfig() Config {
	return Config{
		WorkDir:      "/tmp/reel-clipper",
		MaxAttempts:  5,
		StageTimeout: 10 * time.Minute,
		RunTimeout:   30 * time.Minute,
		ReuseWindow:  72 * time.Hour,
	}
}

// Job asks for one posted clip for one author.
type Job struct {
	// AuthorID is the profile posts are attributed to.
	AuthorID string
	Label    string
	// Sources restricts selection to the author's assigned sources,
	// relaxed when they are exhausted.
	Sources []string
}

// Orchestrator drives Selecting → Fetching → Transforming → Publishing for
// one author at a time. It is safe for concurrent use.
type Orchestrator struct {
	catalog   Catalog
	stages    Stages
	publisher Publisher
	ledger    Ledger
	cfg       Config
	newRunID  func() string

	mu         sync.Mutex
	lastSource string
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLedger persists usage and run history.
func WithLedger(l Ledger) Option {
	return func(o *Orchestrator) { o.ledger = l }
}

// WithRunIDs replaces the run id generator.
func WithRunIDs(fn func() string) Option {
	return func(o *Orchestrator) { o.newRunID = fn }
}

// New creates an Orchestrator.
func New(cat Catalog, stages Stages, publisher Publisher, cfg Config, opts ...Option) *Orchestrator {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultConfig().MaxAttempts
	}
	o := &Orchestrator{
		catalog:   cat,
		stages:    stages,
		publisher: publisher,
		cfg:       cfg,
		newRunID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// run holds the mutable state of one Run call.
type run struct {
	result      Result
	ws          *filesystem.Workspace
	constraints catalog.Constraints
	state       State
	failure     Failure
	err         error

	clip    catalog.Clip
	fetched filesystem.Artifact
	final   filesystem.Artifact
}

// Run produces and publishes one clip for job. It never panics on stage
// errors and always removes the run's workspace before returning.
func (o *Orchestrator) Run(ctx context.Context, job Job) Result {
	r := &run{
		result: Result{
			RunID:     o.newRunID(),
			AuthorID:  job.AuthorID,
			Label:     job.Label,
			StartedAt: time.Now(),
		},
		constraints: catalog.Constraints{
			ReuseWindow:    o.cfg.ReuseWindow,
			PreferCategory: o.cfg.PreferCategory,
			OnlySources:    job.Sources,
			RotateFrom:     o.rotationSource(),
		},
		state: Selecting,
	}

	if o.cfg.RunTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.cfg.RunTimeout)
		defer cancel()
	}

	ws, err := filesystem.NewWorkspace(o.cfg.WorkDir, r.result.RunID)
	if err != nil {
		r.fail(FetchFailed, err)
		return o.finish(ctx, r)
	}
	r.ws = ws
	defer func() {
		if err := ws.Close(); err != nil {
			logging.Warn("[%s] workspace cleanup: %v", r.result.RunID, err)
		}
	}()

	for !r.state.Terminal() {
		switch r.state {
		case Selecting:
			o.selecting(r)
		case Fetching:
			o.fetching(ctx, r)
		case Transforming:
			o.transforming(ctx, r)
		case Publishing:
			o.publishing(ctx, r)
		}
	}

	return o.finish(ctx, r)
}

func (o *Orchestrator) selecting(r *run) {
	if r.result.Attempts >= o.cfg.MaxAttempts {
		r.fail(ExhaustedRetries, fmt.Errorf("%d attempts failed, last: %w", r.result.Attempts, r.err))
		return
	}

	start := time.Now()
	clip, err := o.catalog.Acquire(r.constraints)
	observeStage("select", start, err)
	if err != nil {
		metrics.SelectionsTotal.WithLabelValues("not_found").Inc()
		if r.result.Attempts > 0 && errors.Is(err, catalog.ErrNotFound) {
			err = fmt.Errorf("%w after %d attempts (last: %v)", err, r.result.Attempts, r.err)
		}
		r.fail(NoCandidates, err)
		return
	}
	metrics.SelectionsTotal.WithLabelValues("selected").Inc()
	metrics.AttemptsTotal.Inc()

	r.clip = clip
	r.result.Clip = clip
	r.result.Attempts++
	r.result.Tried = append(r.result.Tried, clip.ID)
	r.constraints = r.constraints.Exclude(clip.ID)
	r.state = Fetching

	logging.Debug("[%s] attempt %d/%d: %s (%s, %s)",
		r.result.RunID, r.result.Attempts, o.cfg.MaxAttempts, clip.ID, clip.Source, clip.Category)
}

func (o *Orchestrator) fetching(ctx context.Context, r *run) {
	fetched, err := timed(ctx, o.cfg.StageTimeout, transcoder.StageFetch, func(ctx context.Context) (filesystem.Artifact, error) {
		return o.stages.Fetch(ctx, r.ws, r.clip)
	})
	if err != nil {
		o.abandonAttempt(ctx, r, FetchFailed, err)
		return
	}
	r.fetched = fetched
	r.state = Transforming
}

func (o *Orchestrator) transforming(ctx context.Context, r *run) {
	final, err := o.transform(ctx, r.ws, r.clip, r.fetched)
	if err != nil {
		o.abandonAttempt(ctx, r, TransformFailed, err)
		return
	}
	r.final = final
	r.state = Publishing
}

// transform runs Trim, Reformat and Caption, releasing each input as soon
// as the next artifact exists.
func (o *Orchestrator) transform(ctx context.Context, ws *filesystem.Workspace, clip catalog.Clip, fetched filesystem.Artifact) (filesystem.Artifact, error) {
	trimmed, err := timed(ctx, o.cfg.StageTimeout, transcoder.StageTrim, func(ctx context.Context) (filesystem.Artifact, error) {
		return o.stages.Trim(ctx, ws, clip, fetched)
	})
	if err != nil {
		return filesystem.Artifact{}, err
	}
	release(ws, fetched)

	vertical, err := timed(ctx, o.cfg.StageTimeout, transcoder.StageReformat, func(ctx context.Context) (filesystem.Artifact, error) {
		return o.stages.Reformat(ctx, ws, trimmed)
	})
	if err != nil {
		return filesystem.Artifact{}, err
	}
	release(ws, trimmed)

	captioned, err := timed(ctx, o.cfg.StageTimeout, transcoder.StageCaption, func(ctx context.Context) (filesystem.Artifact, error) {
		return o.stages.Caption(ctx, ws, vertical)
	})
	if err != nil {
		return filesystem.Artifact{}, err
	}
	if captioned.Path != vertical.Path {
		release(ws, vertical)
	}
	return captioned, nil
}

func (o *Orchestrator) publishing(ctx context.Context, r *run) {
	r.ws.MarkFinal(r.final.Path)
	if err := r.ws.ReleaseIntermediate(); err != nil {
		logging.Warn("[%s] releasing intermediates: %v", r.result.RunID, err)
	}

	req := publish.Request{
		AuthorID:  r.result.AuthorID,
		Clip:      r.clip,
		Caption:   o.catalog.Caption(r.clip.Category),
		VideoPath: r.final.Path,
	}
	res, err := timed(ctx, o.cfg.StageTimeout, stagePublish, func(ctx context.Context) (publish.Result, error) {
		return o.publisher.Publish(ctx, req)
	})
	if err != nil {
		o.catalog.Release(r.clip.ID)
		r.fail(PublishFailed, err)
		return
	}

	used, err := o.catalog.MarkUsed(r.clip.ID)
	if err != nil {
		logging.Warn("[%s] mark used %s: %v", r.result.RunID, r.clip.ID, err)
	} else {
		r.result.Clip = used
	}
	o.catalog.Release(r.clip.ID)
	o.setRotationSource(r.clip.Source)
	metrics.ClipUsesTotal.WithLabelValues(r.clip.Source).Inc()

	if o.ledger != nil {
		if err := o.ledger.RecordUse(context.WithoutCancel(ctx), r.clip.ID, r.clip.Source, time.Now()); err != nil {
			logging.Warn("[%s] ledger: %v", r.result.RunID, err)
		}
	}

	r.result.PostID = res.PostID
	r.result.StoryID = res.StoryID
	r.result.VideoURL = res.VideoURL
	r.result.PosterURL = res.PosterURL
	r.state = Succeeded
}

// abandonAttempt cleans up after a retryable stage failure and decides
// whether to select again.
func (o *Orchestrator) abandonAttempt(ctx context.Context, r *run, reason Failure, err error) {
	logging.Warn("[%s] %s: %s: %v", r.result.RunID, r.clip.ID, reason, err)

	o.catalog.Release(r.clip.ID)
	if relErr := r.ws.ReleaseIntermediate(); relErr != nil {
		logging.Warn("[%s] cleanup after %s: %v", r.result.RunID, reason, relErr)
	}
	r.fetched = filesystem.Artifact{}
	r.failure = reason
	r.err = err

	if ctx.Err() != nil {
		r.fail(reason, fmt.Errorf("%w (run aborted: %v)", err, ctx.Err()))
		return
	}
	r.state = Selecting
}

func (r *run) fail(reason Failure, err error) {
	r.state = Failed
	r.failure = reason
	r.err = err
}

func (o *Orchestrator) finish(ctx context.Context, r *run) Result {
	res := r.result
	res.Duration = time.Since(res.StartedAt)
	res.Succeeded = r.state == Succeeded
	if !res.Succeeded {
		res.Failure = r.failure
		res.Err = r.err
	}

	metrics.RunsTotal.WithLabelValues(res.Outcome()).Inc()

	if o.ledger != nil {
		err := o.ledger.RecordRun(context.WithoutCancel(ctx), database.Run{
			ID:        res.RunID,
			AuthorID:  res.AuthorID,
			ClipID:    res.Clip.ID,
			Source:    res.Clip.Source,
			Result:    res.Outcome(),
			Attempts:  res.Attempts,
			PostID:    res.PostID,
			VideoURL:  res.VideoURL,
			StartedAt: res.StartedAt,
			Duration:  res.Duration,
		})
		if err != nil {
			logging.Warn("[%s] ledger: %v", res.RunID, err)
		}
	}

	return res
}

func (o *Orchestrator) rotationSource() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.lastSource
}

func (o *Orchestrator) setRotationSource(src string) {
	o.mu.Lock()
	o.lastSource = src
	o.mu.Unlock()
}

func release(ws *filesystem.Workspace, a filesystem.Artifact) {
	if err := ws.Release(a.Path); err != nil {
		logging.Warn("failed to release %s artifact: %v", a.Stage, err)
	}
}

// timed runs fn under the stage timeout and records its metrics. A fired
// stage timeout is returned as an ordinary error.
func timed[T any](ctx context.Context, timeout time.Duration, stage string, fn func(context.Context) (T, error)) (T, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	start := time.Now()
	v, err := fn(ctx)
	if err == nil && ctx.Err() != nil {
		err = ctx.Err()
	}
	if err != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
		err = fmt.Errorf("%s timed out: %w", stage, err)
	}
	observeStage(stage, start, err)
	return v, err
}

func observeStage(stage string, start time.Time, err error) {
	metrics.StageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
	status := "success"
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		status = "timeout"
	case err != nil:
		status = "error"
	}
	metrics.StageResults.WithLabelValues(stage, status).Inc()
}
