package supabase

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // Postgres driver for the direct connection
	supabase "github.com/supabase-community/supabase-go"

	"reel-clipper/internal/logging"
)

// Config holds the remote store connection settings.
type Config struct {
	// URL is the project URL, e.g. https://<ref>.supabase.co
	URL string
	// Key is the API key. Uploads and inserts need the service role key.
	Key string
	// DBURL is an optional Postgres connection string. When set, reads go
	// over SQL instead of the REST API.
	DBURL string
	// Bucket receives uploaded media.
	Bucket string

	MaxOpenConns int
	ConnMaxLife  time.Duration
}

// Client talks to the project's storage and record APIs.
type Client struct {
	sdk *supabase.Client
	db  *sql.DB
	cfg Config

	uploadMu sync.Mutex
}

// New connects to the remote store. URL and Key are required; a failed
// direct database connection falls back to REST-only mode.
func New(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.URL == "" || cfg.Key == "" {
		return nil, errors.New("supabase: URL and key are required")
	}
	if cfg.Bucket == "" {
		cfg.Bucket = DefaultBucket
	}

	sdk, err := supabase.NewClient(strings.TrimRight(cfg.URL, "/"), cfg.Key, nil)
	if err != nil {
		return nil, fmt.Errorf("initialize supabase SDK: %w", err)
	}

	c := &Client{sdk: sdk, cfg: cfg}

	if cfg.DBURL != "" {
		db, err := openDB(ctx, cfg)
		if err != nil {
			logging.Warn("Direct database connection failed, using REST API only: %v", err)
		} else {
			c.db = db
		}
	}

	return c, nil
}

func openDB(ctx context.Context, cfg Config) (*sql.DB, error) {
	// Pooled connections reject server-side prepared statements.
	connStr := addConnectionParam(cfg.DBURL, "statement_cache_capacity", "0")
	connStr = addConnectionParam(connStr, "default_query_exec_mode", "simple_protocol")

	db, err := sql.Open("pgx", connStr)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	maxOpen := cfg.MaxOpenConns
	if maxOpen <= 0 {
		maxOpen = 4
	}
	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(maxOpen)
	if cfg.ConnMaxLife > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLife)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}

// Close closes the direct database connection, if any.
func (c *Client) Close() error {
	if c.db == nil {
		return nil
	}
	return c.db.Close()
}

// HasDirectDB reports whether reads use SQL.
func (c *Client) HasDirectDB() bool {
	return c.db != nil
}

// Bucket returns the storage bucket uploads go to.
func (c *Client) Bucket() string {
	return c.cfg.Bucket
}

func addConnectionParam(connStr, key, value string) string {
	if strings.Contains(connStr, key+"=") {
		return connStr
	}
	separator := "?"
	if strings.Contains(connStr, "?") {
		separator = "&"
	}
	return connStr + separator + key + "=" + value
}
