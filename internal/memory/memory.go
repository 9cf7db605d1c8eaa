package memory

import (
	"context"
	"runtime"
	"runtime/debug"
	"sync"
	"time"

	"reel-clipper/internal/logging"
	"reel-clipper/internal/metrics"
)

// Config holds gate thresholds.
type Config struct {
	// LimitBytes is the heap budget; 0 uses GOMEMLIMIT.
	LimitBytes int64
	// ResumeMark is the usage ratio below which a paused gate reopens.
	ResumeMark float64
	// PauseMark is the usage ratio at which new runs stop launching.
	PauseMark     float64
	CheckInterval time.Duration
}

// DefaultConfig returns the default thresholds.
func DefaultConfig() Config {
	return Config{
		ResumeMark:    0.7,
		PauseMark:     0.85,
		CheckInterval: 2 * time.Second,
	}
}

// Gate holds back new pipeline runs while heap usage is critical. Runs
// already in flight are not affected.
type Gate struct {
	cfg       Config
	limit     int64
	heapAlloc func() uint64

	mu     sync.Mutex
	usage  float64
	paused bool
	resume chan struct{}

	stop     chan struct{}
	stopOnce sync.Once
}

// NewGate creates a gate. Without a limit it never pauses.
func NewGate(cfg Config) *Gate {
	limit := cfg.LimitBytes
	if limit == 0 {
		if goMemLimit := debug.SetMemoryLimit(-1); goMemLimit > 0 && goMemLimit < 1<<62 {
			limit = goMemLimit
		}
	}
	if limit == 0 {
		logging.Debug("Memory gate: no memory limit configured, backpressure disabled")
	}

	return &Gate{
		cfg:       cfg,
		limit:     limit,
		heapAlloc: readHeapAlloc,
		resume:    make(chan struct{}),
		stop:      make(chan struct{}),
	}
}

func readHeapAlloc() uint64 {
	var stats runtime.MemStats
	runtime.ReadMemStats(&stats)
	return stats.HeapAlloc
}

// Start begins periodic checks. It is a no-op without a limit.
func (g *Gate) Start() {
	if g.limit == 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(g.cfg.CheckInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				g.check()
			case <-g.stop:
				return
			}
		}
	}()
}

// Stop ends the checks and releases any waiters.
func (g *Gate) Stop() {
	g.stopOnce.Do(func() { close(g.stop) })
}

func (g *Gate) check() {
	if g.limit == 0 {
		return
	}
	usage := float64(g.heapAlloc()) / float64(g.limit)
	metrics.MemoryUsageRatio.Set(usage)

	g.mu.Lock()
	defer g.mu.Unlock()

	g.usage = usage
	switch {
	case usage >= g.cfg.PauseMark && !g.paused:
		logging.Warn("Memory critical (%.1f%% of limit), holding new runs", usage*100)
		g.paused = true
		metrics.MemoryPaused.Set(1)
		go runtime.GC()
	case usage < g.cfg.ResumeMark && g.paused:
		logging.Info("Memory recovered (%.1f%% of limit), resuming runs", usage*100)
		g.paused = false
		metrics.MemoryPaused.Set(0)
		close(g.resume)
		g.resume = make(chan struct{})
	}
}

// Wait blocks while the gate is paused. It returns ctx's error if ctx ends
// first; a stopped gate never blocks.
func (g *Gate) Wait(ctx context.Context) error {
	g.mu.Lock()
	if !g.paused {
		g.mu.Unlock()
		return nil
	}
	resume := g.resume
	g.mu.Unlock()

	logging.Debug("Memory gate closed, waiting")
	select {
	case <-resume:
		return nil
	case <-g.stop:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Paused reports whether new runs are being held.
func (g *Gate) Paused() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.paused
}

// Usage returns the last measured usage ratio, or 0 without a limit.
func (g *Gate) Usage() float64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.usage
}

// Limit returns the heap budget in bytes, 0 when disabled.
func (g *Gate) Limit() int64 {
	return g.limit
}
