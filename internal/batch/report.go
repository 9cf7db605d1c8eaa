package batch

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"reel-clipper/internal/orchestrator"
)

// Line is the per-author entry of a report.
type Line struct {
	AuthorID string
	Label    string
	Outcome  string
	ClipID   string
	Source   string
	Attempts int
	PostID   string
	VideoURL string
	Error    string
	Duration time.Duration
}

// Report aggregates one batch.
type Report struct {
	StartedAt time.Time
	Duration  time.Duration

	Total     int
	Succeeded int
	Failed    int
	// Skipped counts jobs never started because the batch was canceled.
	Skipped int

	// ByReason counts failures by reason.
	ByReason map[string]int
	// BySource counts successes by source.
	BySource map[string]int

	// Lines are in job order. Skipped jobs have Outcome "skipped".
	Lines []Line
}

// OK reports whether every author succeeded. An empty batch is OK.
func (r *Report) OK() bool {
	return r.Failed == 0 && r.Skipped == 0
}

func newReport(n int) *Report {
	return &Report{
		StartedAt: time.Now(),
		Total:     n,
		ByReason:  make(map[string]int),
		BySource:  make(map[string]int),
		Lines:     make([]Line, n),
	}
}

func (r *Report) add(i int, res orchestrator.Result) {
	line := Line{
		AuthorID: res.AuthorID,
		Label:    res.Label,
		Outcome:  res.Outcome(),
		ClipID:   res.Clip.ID,
		Source:   res.Clip.Source,
		Attempts: res.Attempts,
		PostID:   res.PostID,
		VideoURL: res.VideoURL,
		Duration: res.Duration,
	}
	if res.Err != nil {
		line.Error = res.Err.Error()
	}
	r.Lines[i] = line

	if res.Succeeded {
		r.Succeeded++
		r.BySource[res.Clip.Source]++
		return
	}
	r.Failed++
	r.ByReason[line.Outcome]++
}

// skipFrom marks jobs[i:] as never launched.
func (r *Report) skipFrom(i int, jobs []orchestrator.Job) {
	for ; i < len(jobs); i++ {
		r.Lines[i] = Line{AuthorID: jobs[i].AuthorID, Label: jobs[i].Label, Outcome: "skipped"}
		r.Skipped++
	}
}

// WriteSummary prints the aggregate section of the report.
func (r *Report) WriteSummary(w io.Writer) error {
	var b strings.Builder
	fmt.Fprintf(&b, "Authors:    %d\n", r.Total)
	fmt.Fprintf(&b, "Succeeded:  %d\n", r.Succeeded)
	fmt.Fprintf(&b, "Failed:     %d\n", r.Failed)
	if r.Skipped > 0 {
		fmt.Fprintf(&b, "Skipped:    %d\n", r.Skipped)
	}
	fmt.Fprintf(&b, "Duration:   %v\n", r.Duration.Round(time.Second))

	if len(r.ByReason) > 0 {
		b.WriteString("\nFailures by reason:\n")
		for _, kv := range sortedCounts(r.ByReason) {
			fmt.Fprintf(&b, "  %-20s %d\n", kv.key, kv.n)
		}
	}
	if len(r.BySource) > 0 {
		b.WriteString("\nSource distribution:\n")
		for _, kv := range sortedCounts(r.BySource) {
			fmt.Fprintf(&b, "  %-20s %d\n", kv.key, kv.n)
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// WriteTable prints one row per author.
func (r *Report) WriteTable(w io.Writer) error {
	var b strings.Builder
	fmt.Fprintf(&b, "%-24s %-18s %-14s %-10s %-8s %s\n", "AUTHOR", "RESULT", "CLIP", "SOURCE", "TRIES", "POST")
	for _, l := range r.Lines {
		name := l.Label
		if name == "" {
			name = l.AuthorID
		}
		fmt.Fprintf(&b, "%-24s %-18s %-14s %-10s %-8d %s\n",
			truncate(name, 24), l.Outcome, truncate(l.ClipID, 14), truncate(l.Source, 10), l.Attempts, l.PostID)
	}
	_, err := io.WriteString(w, b.String())
	return err
}

type count struct {
	key string
	n   int
}

// sortedCounts orders by count descending, then key.
func sortedCounts(m map[string]int) []count {
	out := make([]count, 0, len(m))
	for k, n := range m {
		out = append(out, count{k, n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].n != out[j].n {
			return out[i].n > out[j].n
		}
		return out[i].key < out[j].key
	})
	return out
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	if n <= 1 {
		return s[:n]
	}
	return s[:n-1] + "…"
}
