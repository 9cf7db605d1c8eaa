package database

import "time"

// ClipUsage is the persisted usage of one clip.
type ClipUsage struct {
	ClipID    string
	Source    string
	UsedCount int
	LastUsed  time.Time
}

// Assignment is one ranked author to source mapping. Rank 0 is primary.
type Assignment struct {
	AuthorID  string
	SourceKey string
	Rank      int
}

// Run is the ledger row for one orchestrator run.
type Run struct {
	ID        string
	AuthorID  string
	ClipID    string
	Source    string
	Result    string
	Attempts  int
	PostID    string
	VideoURL  string
	StartedAt time.Time
	Duration  time.Duration
}

// RunSummary counts runs by result.
type RunSummary map[string]int
