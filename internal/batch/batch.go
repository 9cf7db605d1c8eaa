package batch

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"reel-clipper/internal/logging"
	"reel-clipper/internal/metrics"
	"reel-clipper/internal/orchestrator"
	"reel-clipper/internal/workers"
)

// Orchestrator runs one job. *orchestrator.Orchestrator implements it.
type Orchestrator interface {
	Run(ctx context.Context, job orchestrator.Job) orchestrator.Result
}

// Gate holds launches under resource pressure. *memory.Gate implements it.
type Gate interface {
	Wait(ctx context.Context) error
}

// Config controls pacing.
type Config struct {
	// Workers is the number of concurrent runs, clamped by workers.ForPipeline.
	Workers int
	// Consecutive launches are separated by a random delay in
	// [StaggerMin, StaggerMax].
	StaggerMin time.Duration
	StaggerMax time.Duration
}

// DefaultConfig returns the production pacing.
func DefaultConfig() Config {
	return Config{
		Workers:    2,
		StaggerMin: 3 * time.Second,
		StaggerMax: 7 * time.Second,
	}
}

// Runner applies an Orchestrator to a list of authors.
type Runner struct {
	orch Orchestrator
	cfg  Config
	gate Gate

	mu  sync.Mutex
	rng *rand.Rand
}

// New creates a Runner.
func New(orch Orchestrator, cfg Config) *Runner {
	if cfg.StaggerMax < cfg.StaggerMin {
		cfg.StaggerMax = cfg.StaggerMin
	}
	cfg.Workers = workers.ForPipeline(cfg.Workers)
	return &Runner{
		orch: orch,
		cfg:  cfg,
		rng:  rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0xba7c4)),
	}
}

// WithGate makes every launch wait on gate first.
func (b *Runner) WithGate(gate Gate) *Runner {
	b.gate = gate
	return b
}

// Run executes one orchestrator run per job and aggregates the outcomes.
// A failed author never stops the batch; canceling ctx stops new launches
// and marks the remaining jobs skipped.
func (b *Runner) Run(ctx context.Context, jobs []orchestrator.Job) *Report {
	report := newReport(len(jobs))
	logging.Info("Starting batch: %d authors, %d workers, stagger %v-%v",
		len(jobs), b.cfg.Workers, b.cfg.StaggerMin, b.cfg.StaggerMax)

	var (
		g      errgroup.Group
		mu     sync.Mutex
		pacing = b.limiter()
		slots  = make(chan struct{}, b.cfg.Workers)
	)

	// Take a worker slot before pacing: the stagger separates actual launches.
	for i, job := range jobs {
		launch := b.acquire(ctx, slots)
		if launch && ((i > 0 && !b.stagger(ctx, pacing)) || !b.admit(ctx)) {
			<-slots
			launch = false
		}
		if !launch {
			mu.Lock()
			report.skipFrom(i, jobs)
			mu.Unlock()
			break
		}

		g.Go(func() error {
			defer func() { <-slots }()
			metrics.BatchInFlight.Inc()
			defer metrics.BatchInFlight.Dec()

			res := b.orch.Run(ctx, job)
			logResult(i+1, len(jobs), res)

			mu.Lock()
			report.add(i, res)
			mu.Unlock()
			return nil
		})
	}

	_ = g.Wait()

	report.Duration = time.Since(report.StartedAt)
	metrics.BatchLastRunTimestamp.Set(float64(time.Now().Unix()))
	metrics.BatchLastRunDuration.Set(report.Duration.Seconds())

	logging.Info("Batch finished in %v: %d succeeded, %d failed, %d skipped",
		report.Duration.Round(time.Second), report.Succeeded, report.Failed, report.Skipped)
	return report
}

func (b *Runner) acquire(ctx context.Context, slots chan struct{}) bool {
	if ctx.Err() != nil {
		return false
	}
	select {
	case <-ctx.Done():
		return false
	case slots <- struct{}{}:
		return true
	}
}

func (b *Runner) admit(ctx context.Context) bool {
	if b.gate == nil {
		return ctx.Err() == nil
	}
	if err := b.gate.Wait(ctx); err != nil {
		logging.Warn("Launch gate: %v", err)
		return false
	}
	return true
}

// limiter enforces the minimum gap between launches. The first launch
// holds the only token.
func (b *Runner) limiter() *rate.Limiter {
	if b.cfg.StaggerMin <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	l := rate.NewLimiter(rate.Every(b.cfg.StaggerMin), 1)
	l.Allow()
	return l
}

// stagger waits for the next launch slot plus random jitter. It returns
// false if ctx ends first.
func (b *Runner) stagger(ctx context.Context, pacing *rate.Limiter) bool {
	if err := pacing.Wait(ctx); err != nil {
		return false
	}

	jitter := b.jitter()
	if jitter <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(jitter)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func (b *Runner) jitter() time.Duration {
	span := b.cfg.StaggerMax - b.cfg.StaggerMin
	if span <= 0 {
		return 0
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return time.Duration(b.rng.Int64N(int64(span) + 1))
}

func logResult(n, total int, res orchestrator.Result) {
	name := res.Label
	if name == "" {
		name = res.AuthorID
	}
	if res.Succeeded {
		logging.Info("[%d/%d] %s: OK %s (%s) attempts=%d post=%s",
			n, total, name, res.Clip.ID, res.Clip.Source, res.Attempts, res.PostID)
		return
	}
	logging.Warn("[%d/%d] %s: FAILED %s attempts=%d: %v",
		n, total, name, res.Failure, res.Attempts, res.Err)
}
