package database

import (
	"context"
	"fmt"
	"time"
)

// UsageRestorer receives persisted usage, e.g. *catalog.Store.
type UsageRestorer interface {
	Restore(id string, count int, lastUsed time.Time)
}

// RecordUse adds one use of a clip. The stored count only grows and
// last_used never moves backwards.
func (d *Database) RecordUse(ctx context.Context, clipID, source string, at time.Time) (err error) {
	start := time.Now()
	defer func() { recordQuery("record_use", start, err) }()

	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err = d.db.ExecContext(ctx, `
		INSERT INTO clip_usage (clip_id, source, used_count, last_used)
		VALUES (?, ?, 1, ?)
		ON CONFLICT(clip_id) DO UPDATE SET
			source = excluded.source,
			used_count = clip_usage.used_count + 1,
			last_used = MAX(clip_usage.last_used, excluded.last_used)
	`, clipID, source, at.Unix())
	if err != nil {
		return fmt.Errorf("record use of %s: %w", clipID, err)
	}
	return nil
}

// LoadUsage returns every usage row ordered by clip id.
func (d *Database) LoadUsage(ctx context.Context) (usage []ClipUsage, err error) {
	start := time.Now()
	defer func() { recordQuery("load_usage", start, err) }()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	rows, err := d.db.QueryContext(ctx, `
		SELECT clip_id, source, used_count, last_used
		FROM clip_usage
		ORDER BY clip_id
	`)
	if err != nil {
		return nil, fmt.Errorf("load usage: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var u ClipUsage
		var lastUsed int64
		if err := rows.Scan(&u.ClipID, &u.Source, &u.UsedCount, &lastUsed); err != nil {
			return nil, fmt.Errorf("scan usage: %w", err)
		}
		u.LastUsed = time.Unix(lastUsed, 0)
		usage = append(usage, u)
	}
	return usage, rows.Err()
}

// Hydrate loads persisted usage into r and returns the number of rows.
func (d *Database) Hydrate(ctx context.Context, r UsageRestorer) (int, error) {
	usage, err := d.LoadUsage(ctx)
	if err != nil {
		return 0, err
	}
	for _, u := range usage {
		r.Restore(u.ClipID, u.UsedCount, u.LastUsed)
	}
	return len(usage), nil
}
