package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite3 driver

	"reel-clipper/internal/logging"
	"reel-clipper/internal/metrics"
)

// Default timeout for database operations
const defaultTimeout = 5 * time.Second

// Database is the local run ledger.
type Database struct {
	db     *sql.DB
	dbPath string
	mu     sync.Mutex // serializes writes
}

// New opens (creating if needed) the ledger at dbPath. The parent
// directory must already exist and be writable.
func New(ctx context.Context, dbPath string) (*Database, error) {
	logging.Info("Ledger path: %s", dbPath)

	if err := diagnoseDatabasePermissions(dbPath); err != nil {
		logging.Warn("Ledger permission diagnostics: %v", err)
	}

	// busy_timeout helps prevent "database is locked" errors
	connStr := fmt.Sprintf("%s?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000", dbPath)

	db, err := sql.Open("sqlite3", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			logging.Error("failed to close database after ping failure: %v", closeErr)
		}
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(time.Hour)

	d := &Database{
		db:     db,
		dbPath: dbPath,
	}

	if err := d.initialize(ctx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			logging.Error("failed to close database after initialization failure: %v", closeErr)
		}
		return nil, fmt.Errorf("failed to initialize database schema: %w", err)
	}

	logging.Info("Ledger initialized successfully at %s", dbPath)
	return d, nil
}

func (d *Database) initialize(ctx context.Context) (err error) {
	start := time.Now()
	defer func() { recordQuery("initialize_schema", start, err) }()

	schema := `
	-- Clip usage, one row per clip ever used
	CREATE TABLE IF NOT EXISTS clip_usage (
		clip_id TEXT PRIMARY KEY,
		source TEXT NOT NULL,
		used_count INTEGER NOT NULL DEFAULT 0,
		last_used INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_clip_usage_last_used ON clip_usage(last_used);

	-- Computed author to source assignments
	CREATE TABLE IF NOT EXISTS author_assignments (
		author_id TEXT NOT NULL,
		source_key TEXT NOT NULL,
		rank INTEGER NOT NULL,
		assigned_at INTEGER NOT NULL DEFAULT (strftime('%s', 'now')),
		PRIMARY KEY (author_id, rank)
	);

	CREATE INDEX IF NOT EXISTS idx_author_assignments_source ON author_assignments(source_key);

	-- Orchestrator run history
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		author_id TEXT NOT NULL,
		clip_id TEXT,
		source TEXT,
		result TEXT NOT NULL,
		attempts INTEGER NOT NULL,
		post_id TEXT,
		video_url TEXT,
		started_at INTEGER NOT NULL,
		duration_ms INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_runs_author ON runs(author_id);
	CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);
	`

	_, err = d.db.ExecContext(ctx, schema)
	return err
}

// Close closes the database connection.
func (d *Database) Close() error {
	return d.db.Close()
}

// Path returns the database file path.
func (d *Database) Path() string {
	return d.dbPath
}

// recordQuery records database query metrics
func recordQuery(operation string, start time.Time, err error) {
	duration := time.Since(start).Seconds()
	status := "success"
	if err != nil {
		status = "error"
	}
	metrics.DBQueryTotal.WithLabelValues(operation, status).Inc()
	metrics.DBQueryDuration.WithLabelValues(operation).Observe(duration)
}

// diagnoseDatabasePermissions checks database directory and file permissions
func diagnoseDatabasePermissions(dbPath string) error {
	dir := filepath.Dir(dbPath)

	dirInfo, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("cannot stat database directory: %w", err)
	}

	logging.Debug("Ledger directory: %s (mode: %v)", dir, dirInfo.Mode())

	testFile := filepath.Join(dir, ".perm-test")
	if err := os.WriteFile(testFile, []byte("test"), 0o600); err != nil {
		return fmt.Errorf("database directory not writable: %w", err)
	}
	_ = os.Remove(testFile)

	for _, path := range []string{dbPath, dbPath + "-wal", dbPath + "-shm"} {
		info, err := os.Stat(path)
		if err != nil {
			continue
		}
		logging.Debug("Ledger file exists: %s (mode: %v, size: %d bytes)", path, info.Mode(), info.Size())
		if info.Mode().Perm()&0o200 != 0 {
			continue
		}
		logging.Warn("Ledger file is read-only! Mode: %v - this will cause write failures", info.Mode())
		if path == dbPath {
			continue
		}
		if chmodErr := os.Chmod(path, 0o600); chmodErr != nil {
			logging.Error("Failed to fix %s permissions: %v", path, chmodErr)
		} else {
			logging.Info("Fixed %s permissions", path)
		}
	}

	return nil
}
