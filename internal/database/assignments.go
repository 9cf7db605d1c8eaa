package database

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// SaveAssignments replaces the stored sources of each author in the map.
func (d *Database) SaveAssignments(ctx context.Context, assignments map[string][]string) (err error) {
	start := time.Now()
	defer func() { recordQuery("save_assignments", start, err) }()

	d.mu.Lock()
	defer d.mu.Unlock()

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save assignments: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				err = errors.Join(err, fmt.Errorf("rollback also failed: %w", rbErr))
			}
		}
	}()

	del, err := tx.PrepareContext(ctx, `DELETE FROM author_assignments WHERE author_id = ?`)
	if err != nil {
		return fmt.Errorf("prepare delete: %w", err)
	}
	defer del.Close()

	ins, err := tx.PrepareContext(ctx, `
		INSERT INTO author_assignments (author_id, source_key, rank)
		VALUES (?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer ins.Close()

	for author, keys := range assignments {
		if _, err = del.ExecContext(ctx, author); err != nil {
			return fmt.Errorf("clear assignments for %s: %w", author, err)
		}
		for rank, key := range keys {
			if _, err = ins.ExecContext(ctx, author, key, rank); err != nil {
				return fmt.Errorf("save assignment %s -> %s: %w", author, key, err)
			}
		}
	}

	return tx.Commit()
}

// LoadAssignments returns the stored sources for one author, primary first.
func (d *Database) LoadAssignments(ctx context.Context, authorID string) (keys []string, err error) {
	start := time.Now()
	defer func() { recordQuery("load_assignments", start, err) }()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	rows, err := d.db.QueryContext(ctx, `
		SELECT source_key FROM author_assignments
		WHERE author_id = ?
		ORDER BY rank
	`, authorID)
	if err != nil {
		return nil, fmt.Errorf("load assignments: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("scan assignment: %w", err)
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}

// PrimaryCounts returns how many authors have each source as primary.
func (d *Database) PrimaryCounts(ctx context.Context) (counts map[string]int, err error) {
	start := time.Now()
	defer func() { recordQuery("load_assignments", start, err) }()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	rows, err := d.db.QueryContext(ctx, `
		SELECT source_key, COUNT(*) FROM author_assignments
		WHERE rank = 0
		GROUP BY source_key
	`)
	if err != nil {
		return nil, fmt.Errorf("count primaries: %w", err)
	}
	defer rows.Close()

	counts = make(map[string]int)
	for rows.Next() {
		var key string
		var n int
		if err := rows.Scan(&key, &n); err != nil {
			return nil, fmt.Errorf("scan primary count: %w", err)
		}
		counts[key] = n
	}
	return counts, rows.Err()
}
