// Package startup handles configuration loading and startup/shutdown
// logging for the clipper.
//
// # Configuration
//
// All configuration is loaded from environment variables via [LoadConfig]:
//
//   - WORK_DIR: scratch space for per-run workspaces (default: $TMPDIR/reel-clipper)
//   - DATABASE_DIR: directory of the local SQLite ledger (default: /database)
//   - CATALOG_FILE: YAML catalog; the embedded catalog is used when unset
//   - MAX_ATTEMPTS: clip attempts per author (default: 5)
//   - STAGE_TIMEOUT, RUN_TIMEOUT: Go durations (default: 10m, 30m)
//   - REUSE_WINDOW: how long a published clip stays unavailable (default: 72h)
//   - MIN_CLIP_SECONDS, MAX_CLIP_SECONDS, DEFAULT_CLIP_SECONDS: clip length bounds (15, 60, 30)
//   - MAX_OUTPUT_SECONDS: hard cap on encoded length (default: 45)
//   - OUTPUT_WIDTH, OUTPUT_HEIGHT, OUTPUT_FPS, OUTPUT_CRF: encoder settings (720, 1280, 24, 28)
//   - MAX_DOWNLOAD_HEIGHT: downloader format cap (default: 720)
//   - PIPELINE_WORKERS: concurrent runs, clamped to 1-4 (default: 2)
//   - STAGGER_MIN, STAGGER_MAX: random delay between launches (default: 3s, 7s)
//   - CAPTIONS_ENABLED, POSTERS_ENABLED, STORIES_ENABLED: optional steps (default: true)
//   - SUPABASE_URL, SUPABASE_KEY: remote store; both or neither
//   - SUPABASE_DB_URL: optional direct Postgres connection for author queries
//   - STORAGE_BUCKET, STORAGE_PATH: upload location (default: social-media, reels/clips)
//   - OPENAI_API_KEY: enables burned-in captions
//   - METRICS_ENABLED, METRICS_PORT: Prometheus endpoint (default: true, 9090)
//   - YTDLP_PATH, FFMPEG_PATH, COOKIES_FILE: external tools
//   - LOG_LEVEL: debug, info, warn, error (default: info)
//
// Memory limits (GOMEMLIMIT, MEMORY_LIMIT, MEMORY_RATIO) are handled by
// package memory before configuration is loaded.
//
// # Build Information
//
// Version, Commit and BuildTime are injected via ldflags and exposed via
// [GetBuildInfo].
package startup
