package batch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reel-clipper/internal/catalog"
	"reel-clipper/internal/orchestrator"
)

type fakeOrch struct {
	mu       sync.Mutex
	delay    time.Duration
	outcomes map[string]orchestrator.Failure // by author; missing means success
	sources  map[string]string
	held     map[string]bool // these authors block until release is closed
	release  chan struct{}

	inFlight    int
	maxInFlight int
	starts      []time.Time
	seen        []string
}

func (f *fakeOrch) Run(ctx context.Context, job orchestrator.Job) orchestrator.Result {
	f.mu.Lock()
	f.inFlight++
	if f.inFlight > f.maxInFlight {
		f.maxInFlight = f.inFlight
	}
	f.starts = append(f.starts, time.Now())
	f.seen = append(f.seen, job.AuthorID)
	failure := f.outcomes[job.AuthorID]
	source := f.sources[job.AuthorID]
	f.mu.Unlock()

	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
		}
	}

	if f.held[job.AuthorID] {
		select {
		case <-f.release:
		case <-ctx.Done():
		}
	}

	f.mu.Lock()
	f.inFlight--
	f.mu.Unlock()

	res := orchestrator.Result{
		AuthorID: job.AuthorID,
		Label:    job.Label,
		Attempts: 1,
		Clip:     catalog.Clip{ID: "clip-" + job.AuthorID, Source: source},
	}
	if failure == orchestrator.NoFailure {
		res.Succeeded = true
		res.PostID = "post-" + job.AuthorID
		return res
	}
	res.Failure = failure
	res.Err = errors.New(failure.String())
	return res
}

func jobs(ids ...string) []orchestrator.Job {
	out := make([]orchestrator.Job, len(ids))
	for i, id := range ids {
		out[i] = orchestrator.Job{AuthorID: id, Label: "Author " + id}
	}
	return out
}

func fastConfig(workers int) Config {
	return Config{Workers: workers}
}

func TestRunAggregates(t *testing.T) {
	orch := &fakeOrch{
		outcomes: map[string]orchestrator.Failure{
			"b": orchestrator.FetchFailed,
			"d": orchestrator.ExhaustedRetries,
			"e": orchestrator.ExhaustedRetries,
		},
		sources: map[string]string{"a": "hcl", "c": "hcl", "f": "triton"},
	}

	report := New(orch, fastConfig(2)).Run(context.Background(), jobs("a", "b", "c", "d", "e", "f"))

	assert.Equal(t, 6, report.Total)
	assert.Equal(t, 3, report.Succeeded)
	assert.Equal(t, 3, report.Failed)
	assert.Zero(t, report.Skipped)
	assert.False(t, report.OK())
	assert.Equal(t, map[string]int{"fetch_failed": 1, "exhausted_retries": 2}, report.ByReason)
	assert.Equal(t, map[string]int{"hcl": 2, "triton": 1}, report.BySource)

	require.Len(t, report.Lines, 6)
	for i, id := range []string{"a", "b", "c", "d", "e", "f"} {
		assert.Equal(t, id, report.Lines[i].AuthorID, "lines keep job order")
	}
	assert.Equal(t, "succeeded", report.Lines[0].Outcome)
	assert.Equal(t, "post-a", report.Lines[0].PostID)
	assert.Equal(t, "fetch_failed", report.Lines[1].Outcome)
	assert.Equal(t, "fetch_failed", report.Lines[1].Error)
}

func TestRunAllSucceeded(t *testing.T) {
	report := New(&fakeOrch{}, fastConfig(3)).Run(context.Background(), jobs("a", "b"))
	assert.True(t, report.OK())
}

func TestRunEmpty(t *testing.T) {
	report := New(&fakeOrch{}, fastConfig(2)).Run(context.Background(), nil)
	assert.Zero(t, report.Total)
	assert.True(t, report.OK())
}

func TestRunBoundsConcurrency(t *testing.T) {
	orch := &fakeOrch{delay: 20 * time.Millisecond}

	report := New(orch, fastConfig(2)).Run(context.Background(), jobs("a", "b", "c", "d", "e", "f"))

	assert.Equal(t, 6, report.Succeeded)
	assert.LessOrEqual(t, orch.maxInFlight, 2)
	assert.Len(t, orch.seen, 6)
}

func TestRunStaggersLaunches(t *testing.T) {
	orch := &fakeOrch{}
	cfg := Config{Workers: 4, StaggerMin: 30 * time.Millisecond, StaggerMax: 40 * time.Millisecond}

	report := New(orch, cfg).Run(context.Background(), jobs("a", "b", "c"))
	require.Equal(t, 3, report.Succeeded)

	require.Len(t, orch.starts, 3)
	for i := 1; i < len(orch.starts); i++ {
		gap := orch.starts[i].Sub(orch.starts[i-1])
		assert.GreaterOrEqual(t, gap, 20*time.Millisecond, "gap %d too short: %v", i, gap)
	}
}

func TestRunStaggersLaunchesAfterFullPool(t *testing.T) {
	orch := &fakeOrch{
		held:    map[string]bool{"a": true, "b": true},
		release: make(chan struct{}),
	}
	cfg := Config{Workers: 2, StaggerMin: 100 * time.Millisecond, StaggerMax: 100 * time.Millisecond}
	time.AfterFunc(400*time.Millisecond, func() { close(orch.release) })

	report := New(orch, cfg).Run(context.Background(), jobs("a", "b", "c", "d"))
	require.Equal(t, 4, report.Succeeded)

	require.Len(t, orch.starts, 4)
	require.Equal(t, []string{"a", "b", "c", "d"}, orch.seen)
	gap := orch.starts[3].Sub(orch.starts[2])
	assert.GreaterOrEqual(t, gap, 80*time.Millisecond, "c and d launched %v apart", gap)
}

func TestRunCanceledSkipsRemaining(t *testing.T) {
	orch := &fakeOrch{}
	cfg := Config{Workers: 2, StaggerMin: time.Hour, StaggerMax: time.Hour}

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(20*time.Millisecond, cancel)

	report := New(orch, cfg).Run(ctx, jobs("a", "b", "c"))

	assert.Equal(t, 1, report.Succeeded)
	assert.Equal(t, 2, report.Skipped)
	assert.Equal(t, "skipped", report.Lines[1].Outcome)
	assert.Equal(t, "b", report.Lines[1].AuthorID)
	assert.Equal(t, "skipped", report.Lines[2].Outcome)
	assert.False(t, report.OK())
}

func TestNewNormalizesConfig(t *testing.T) {
	r := New(&fakeOrch{}, Config{Workers: 10, StaggerMin: 5 * time.Second, StaggerMax: time.Second})
	assert.Equal(t, 4, r.cfg.Workers)
	assert.Equal(t, 5*time.Second, r.cfg.StaggerMax)

	for i := 0; i < 100; i++ {
		assert.Zero(t, r.jitter())
	}
}

func TestJitterWithinSpan(t *testing.T) {
	r := New(&fakeOrch{}, Config{Workers: 1, StaggerMin: 3 * time.Second, StaggerMax: 7 * time.Second})
	for i := 0; i < 1000; i++ {
		j := r.jitter()
		assert.GreaterOrEqual(t, j, time.Duration(0))
		assert.LessOrEqual(t, j, 4*time.Second)
	}
}

func TestReportOutput(t *testing.T) {
	orch := &fakeOrch{
		outcomes: map[string]orchestrator.Failure{"b": orchestrator.PublishFailed},
		sources:  map[string]string{"a": "hcl"},
	}
	report := New(orch, fastConfig(1)).Run(context.Background(), jobs("a", "b"))

	var summary bytes.Buffer
	require.NoError(t, report.WriteSummary(&summary))
	out := summary.String()
	assert.Contains(t, out, "Authors:    2")
	assert.Contains(t, out, "Succeeded:  1")
	assert.Contains(t, out, "Failed:     1")
	assert.Contains(t, out, "publish_failed")
	assert.Contains(t, out, "Source distribution:")
	assert.NotContains(t, out, "Skipped")

	var table bytes.Buffer
	require.NoError(t, report.WriteTable(&table))
	lines := bytes.Split(bytes.TrimSpace(table.Bytes()), []byte("\n"))
	require.Len(t, lines, 3)
	assert.Contains(t, string(lines[0]), "AUTHOR")
	assert.Contains(t, string(lines[1]), "Author a")
	assert.Contains(t, string(lines[2]), "publish_failed")
}

func TestSortedCounts(t *testing.T) {
	got := sortedCounts(map[string]int{"b": 2, "a": 2, "c": 5})
	want := []count{{"c", 5}, {"a", 2}, {"b", 2}}
	assert.Equal(t, want, got)
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in   string
		n    int
		want string
	}{
		{"short", 10, "short"},
		{"exactly10!", 10, "exactly10!"},
		{"much-too-long", 5, "much…"},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s/%d", tt.in, tt.n), func(t *testing.T) {
			assert.Equal(t, tt.want, truncate(tt.in, tt.n))
		})
	}
}

type fakeGate struct {
	calls int
	// closeAfter is the number of launches admitted before Wait fails.
	closeAfter int
}

func (g *fakeGate) Wait(ctx context.Context) error {
	g.calls++
	if g.calls > g.closeAfter {
		return context.DeadlineExceeded
	}
	return nil
}

func TestRunWaitsOnGate(t *testing.T) {
	gate := &fakeGate{closeAfter: 2}
	orch := &fakeOrch{}

	report := New(orch, fastConfig(1)).WithGate(gate).Run(context.Background(), jobs("a", "b", "c", "d"))

	assert.Equal(t, 3, gate.calls)
	assert.Equal(t, 2, report.Succeeded)
	assert.Equal(t, 2, report.Skipped)
	assert.Equal(t, []string{"a", "b"}, orch.seen)
}

func TestRunCanceledBeforeStart(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	orch := &fakeOrch{}
	report := New(orch, fastConfig(2)).Run(ctx, jobs("a", "b"))

	assert.Equal(t, 2, report.Skipped)
	assert.Empty(t, orch.seen)
}
