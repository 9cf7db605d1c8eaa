package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// RecordRun stores the outcome of one orchestrator run.
func (d *Database) RecordRun(ctx context.Context, r Run) (err error) {
	start := time.Now()
	defer func() { recordQuery("record_run", start, err) }()

	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err = d.db.ExecContext(ctx, `
		INSERT INTO runs (id, author_id, clip_id, source, result, attempts, post_id, video_url, started_at, duration_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		r.ID, r.AuthorID,
		nullString(r.ClipID), nullString(r.Source),
		r.Result, r.Attempts,
		nullString(r.PostID), nullString(r.VideoURL),
		r.StartedAt.Unix(), r.Duration.Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("record run %s: %w", r.ID, err)
	}
	return nil
}

// RunsSince counts runs started at or after since, grouped by result.
func (d *Database) RunsSince(ctx context.Context, since time.Time) (summary RunSummary, err error) {
	start := time.Now()
	defer func() { recordQuery("load_runs", start, err) }()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	rows, err := d.db.QueryContext(ctx, `
		SELECT result, COUNT(*) FROM runs
		WHERE started_at >= ?
		GROUP BY result
	`, since.Unix())
	if err != nil {
		return nil, fmt.Errorf("summarize runs: %w", err)
	}
	defer rows.Close()

	summary = make(RunSummary)
	for rows.Next() {
		var result string
		var n int
		if err := rows.Scan(&result, &n); err != nil {
			return nil, fmt.Errorf("scan run summary: %w", err)
		}
		summary[result] = n
	}
	return summary, rows.Err()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
