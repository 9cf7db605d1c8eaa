package startup

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"reel-clipper/internal/logging"
)

// Config holds all application configuration.
type Config struct {
	WorkDir     string
	DatabaseDir string
	// CatalogFile is optional; empty means the embedded catalog.
	CatalogFile string

	MaxAttempts  int
	StageTimeout time.Duration
	RunTimeout   time.Duration
	ReuseWindow  time.Duration

	MinClip           time.Duration
	MaxClip           time.Duration
	DefaultClip       time.Duration
	MaxOutput         time.Duration
	OutputWidth       int
	OutputHeight      int
	OutputFPS         int
	OutputCRF         int
	MaxDownloadHeight int

	PipelineWorkers int
	StaggerMin      time.Duration
	StaggerMax      time.Duration

	CaptionsEnabled bool
	PostersEnabled  bool
	StoriesEnabled  bool

	SupabaseURL   string
	SupabaseKey   string
	SupabaseDBURL string
	StorageBucket string
	StoragePath   string
	OpenAIKey     string

	MetricsEnabled bool
	MetricsPort    string

	YtDlpPath   string
	FFmpegPath  string
	CookiesFile string

	// Derived
	DatabasePath string
}

// RemoteEnabled reports whether the remote store is configured.
func (c *Config) RemoteEnabled() bool {
	return c.SupabaseURL != "" && c.SupabaseKey != ""
}

// LoadConfig loads and validates configuration from environment variables
// and prepares the work and database directories.
func LoadConfig() (*Config, error) {
	printBanner()
	logSystemInfo()

	logging.Info("------------------------------------------------------------")
	logging.Info("CONFIGURATION")
	logging.Info("------------------------------------------------------------")

	config := readEnv()
	config.log()

	if err := config.Validate(); err != nil {
		return nil, err
	}

	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("DIRECTORY SETUP")
	logging.Info("------------------------------------------------------------")

	var err error
	config.WorkDir, err = filepath.Abs(config.WorkDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve work directory path: %w", err)
	}
	logging.Info("  Work directory (absolute): %s", config.WorkDir)

	config.DatabaseDir, err = filepath.Abs(config.DatabaseDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve database directory path: %w", err)
	}
	logging.Info("  Database directory (absolute): %s", config.DatabaseDir)
	config.DatabasePath = filepath.Join(config.DatabaseDir, "reel-clipper.db")

	for _, dir := range []struct{ path, name string }{
		{config.WorkDir, "work"},
		{config.DatabaseDir, "database"},
	} {
		if err := ensureDirectory(dir.path, dir.name); err != nil {
			return nil, fmt.Errorf("%s directory error: %w", dir.name, err)
		}
		if err := testWriteAccess(dir.path); err != nil {
			return nil, fmt.Errorf("%s directory is not writable: %w", dir.name, err)
		}
		logging.Info("  [OK] %s directory is writable", dir.name)
	}

	logging.Info("")
	logging.Info("  Feature availability:")
	logging.Info("    Remote store: %s", enabledString(config.RemoteEnabled()))
	logging.Info("    Direct SQL:   %s", enabledString(config.SupabaseDBURL != ""))
	logging.Info("    Captions:     %s", enabledString(config.CaptionsEnabled && config.OpenAIKey != ""))
	logging.Info("    Posters:      %s", enabledString(config.PostersEnabled))
	logging.Info("    Stories:      %s", enabledString(config.StoriesEnabled))
	logging.Info("    Metrics:      %s", enabledString(config.MetricsEnabled))

	return config, nil
}

func readEnv() *Config {
	return &Config{
		WorkDir:     getEnv("WORK_DIR", filepath.Join(os.TempDir(), "reel-clipper")),
		DatabaseDir: getEnv("DATABASE_DIR", "/database"),
		CatalogFile: getEnv("CATALOG_FILE", ""),

		MaxAttempts:  getEnvInt("MAX_ATTEMPTS", 5),
		StageTimeout: getEnvDuration("STAGE_TIMEOUT", 10*time.Minute),
		RunTimeout:   getEnvDuration("RUN_TIMEOUT", 30*time.Minute),
		ReuseWindow:  getEnvDuration("REUSE_WINDOW", 72*time.Hour),

		MinClip:           time.Duration(getEnvInt("MIN_CLIP_SECONDS", 15)) * time.Second,
		MaxClip:           time.Duration(getEnvInt("MAX_CLIP_SECONDS", 60)) * time.Second,
		DefaultClip:       time.Duration(getEnvInt("DEFAULT_CLIP_SECONDS", 30)) * time.Second,
		MaxOutput:         time.Duration(getEnvInt("MAX_OUTPUT_SECONDS", 45)) * time.Second,
		OutputWidth:       getEnvInt("OUTPUT_WIDTH", 720),
		OutputHeight:      getEnvInt("OUTPUT_HEIGHT", 1280),
		OutputFPS:         getEnvInt("OUTPUT_FPS", 24),
		OutputCRF:         getEnvInt("OUTPUT_CRF", 28),
		MaxDownloadHeight: getEnvInt("MAX_DOWNLOAD_HEIGHT", 720),

		PipelineWorkers: getEnvInt("PIPELINE_WORKERS", 2),
		StaggerMin:      getEnvDuration("STAGGER_MIN", 3*time.Second),
		StaggerMax:      getEnvDuration("STAGGER_MAX", 7*time.Second),

		CaptionsEnabled: getEnvBool("CAPTIONS_ENABLED", true),
		PostersEnabled:  getEnvBool("POSTERS_ENABLED", true),
		StoriesEnabled:  getEnvBool("STORIES_ENABLED", true),

		SupabaseURL:   getEnv("SUPABASE_URL", ""),
		SupabaseKey:   getEnv("SUPABASE_KEY", ""),
		SupabaseDBURL: getEnv("SUPABASE_DB_URL", ""),
		StorageBucket: getEnv("STORAGE_BUCKET", "social-media"),
		StoragePath:   getEnv("STORAGE_PATH", "reels/clips"),
		OpenAIKey:     getEnv("OPENAI_API_KEY", ""),

		MetricsEnabled: getEnvBool("METRICS_ENABLED", true),
		MetricsPort:    getEnv("METRICS_PORT", "9090"),

		YtDlpPath:   getEnv("YTDLP_PATH", "yt-dlp"),
		FFmpegPath:  getEnv("FFMPEG_PATH", "ffmpeg"),
		CookiesFile: getEnv("COOKIES_FILE", ""),
	}
}

func (c *Config) log() {
	logging.Info("  WORK_DIR:            %s", c.WorkDir)
	logging.Info("  DATABASE_DIR:        %s", c.DatabaseDir)
	logging.Info("  CATALOG_FILE:        %s", valueOr(c.CatalogFile, "(embedded)"))
	logging.Info("  MAX_ATTEMPTS:        %d", c.MaxAttempts)
	logging.Info("  STAGE_TIMEOUT:       %v", c.StageTimeout)
	logging.Info("  RUN_TIMEOUT:         %v", c.RunTimeout)
	logging.Info("  REUSE_WINDOW:        %v", c.ReuseWindow)
	logging.Info("  CLIP LENGTH:         %v-%v (default %v)", c.MinClip, c.MaxClip, c.DefaultClip)
	logging.Info("  OUTPUT:              %dx%d@%dfps crf=%d max=%v", c.OutputWidth, c.OutputHeight, c.OutputFPS, c.OutputCRF, c.MaxOutput)
	logging.Info("  PIPELINE_WORKERS:    %d", c.PipelineWorkers)
	logging.Info("  STAGGER:             %v-%v", c.StaggerMin, c.StaggerMax)
	logging.Info("  SUPABASE_URL:        %s", valueOr(c.SupabaseURL, "(not set)"))
	logging.Info("  SUPABASE_KEY:        %s", maskSecret(c.SupabaseKey))
	logging.Info("  SUPABASE_DB_URL:     %s", maskSecret(c.SupabaseDBURL))
	logging.Info("  STORAGE:             %s/%s", c.StorageBucket, c.StoragePath)
	logging.Info("  OPENAI_API_KEY:      %s", maskSecret(c.OpenAIKey))
	logging.Info("  METRICS_PORT:        %s", c.MetricsPort)
	logging.Info("  YTDLP_PATH:          %s", c.YtDlpPath)
	logging.Info("  FFMPEG_PATH:         %s", c.FFmpegPath)
	if c.CookiesFile != "" {
		logging.Info("  COOKIES_FILE:        %s", c.CookiesFile)
	}
	logging.Info("  LOG_LEVEL:           %s", logging.GetLevel())
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	var errs []error
	if c.MaxAttempts < 1 {
		errs = append(errs, fmt.Errorf("MAX_ATTEMPTS must be at least 1, got %d", c.MaxAttempts))
	}
	if c.MinClip <= 0 || c.MinClip > c.MaxClip {
		errs = append(errs, fmt.Errorf("clip bounds invalid: min %v, max %v", c.MinClip, c.MaxClip))
	} else if c.DefaultClip < c.MinClip || c.DefaultClip > c.MaxClip {
		errs = append(errs, fmt.Errorf("DEFAULT_CLIP_SECONDS %v outside %v-%v", c.DefaultClip, c.MinClip, c.MaxClip))
	}
	if c.MaxOutput <= 0 {
		errs = append(errs, errors.New("MAX_OUTPUT_SECONDS must be positive"))
	}
	if c.OutputWidth <= 0 || c.OutputHeight <= 0 || c.OutputFPS <= 0 {
		errs = append(errs, fmt.Errorf("output geometry invalid: %dx%d@%d", c.OutputWidth, c.OutputHeight, c.OutputFPS))
	}
	if c.StaggerMin < 0 || c.StaggerMax < c.StaggerMin {
		errs = append(errs, fmt.Errorf("stagger range invalid: %v-%v", c.StaggerMin, c.StaggerMax))
	}
	if c.StageTimeout <= 0 || c.RunTimeout <= 0 {
		errs = append(errs, errors.New("STAGE_TIMEOUT and RUN_TIMEOUT must be positive"))
	}
	if (c.SupabaseURL == "") != (c.SupabaseKey == "") {
		errs = append(errs, errors.New("SUPABASE_URL and SUPABASE_KEY must be set together"))
	}
	return errors.Join(errs...)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		logging.Warn("Invalid boolean value for %s: %q, using default: %v", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		logging.Warn("Invalid integer value for %s: %q, using default: %d", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		logging.Warn("Invalid duration value for %s: %q, using default: %v", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}

func valueOr(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

// maskSecret keeps only a short prefix of credentials in logs.
func maskSecret(s string) string {
	switch {
	case s == "":
		return "(not set)"
	case len(s) <= 8:
		return "****"
	default:
		return s[:4] + "****"
	}
}
