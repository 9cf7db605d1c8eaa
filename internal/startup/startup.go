package startup

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"reel-clipper/internal/logging"
)

// Build-time variables (injected via -ldflags)
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
	GoVersion = runtime.Version()
)

// BuildInfo contains version and build information
type BuildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"buildTime"`
	GoVersion string `json:"goVersion"`
	OS        string `json:"os"`
	Arch      string `json:"arch"`
}

// GetBuildInfo returns the current build information
func GetBuildInfo() BuildInfo {
	return BuildInfo{
		Version:   Version,
		Commit:    Commit,
		BuildTime: BuildTime,
		GoVersion: GoVersion,
		OS:        runtime.GOOS,
		Arch:      runtime.GOARCH,
	}
}

// RouteInfo contains information about a registered route
type RouteInfo struct {
	Method string
	Path   string
	Name   string
}

func enabledString(enabled bool) string {
	if enabled {
		return "ENABLED"
	}
	return "DISABLED"
}

func section(title string) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("%s", title)
	logging.Info("------------------------------------------------------------")
}

// LogDatabaseInit logs ledger initialization
func LogDatabaseInit(duration time.Duration, restored int) {
	section("LEDGER INITIALIZATION")
	logging.Info("  [OK] Ledger opened in %v", duration)
	logging.Info("  Restored usage for %d clips", restored)
}

// LogCatalogInit logs the loaded catalog.
func LogCatalogInit(source string, clips, sources int) {
	section("CATALOG")
	logging.Info("  Loaded from:  %s", source)
	logging.Info("  Clips:        %d", clips)
	logging.Info("  Sources:      %d", sources)
}

// LogToolsInit checks the external tools the pipeline shells out to. A
// missing tool is reported but not fatal; every run would fail at Fetch.
func LogToolsInit(ytDlpPath, ffmpegPath string) bool {
	section("EXTERNAL TOOLS")

	ok := true
	for _, tool := range []struct{ name, path, versionFlag string }{
		{"yt-dlp", ytDlpPath, "--version"},
		{"ffmpeg", ffmpegPath, "-version"},
	} {
		version, err := checkTool(tool.path, tool.versionFlag)
		if err != nil {
			logging.Warn("  %s check failed: %v", tool.name, err)
			ok = false
			continue
		}
		logging.Info("  [OK] %s: %s", tool.name, version)
	}
	return ok
}

// LogPublisherInit logs where clips will be published.
func LogPublisherInit(dryRun bool, bucket, prefix string) {
	section("PUBLISHER")
	if dryRun {
		logging.Info("  Dry run: clips are produced but not uploaded")
		return
	}
	logging.Info("  Uploading to %s/%s", bucket, prefix)
}

// GetRoutes extracts all registered routes from a mux.Router
func GetRoutes(router *mux.Router) ([]RouteInfo, error) {
	var routes []RouteInfo

	err := router.Walk(func(route *mux.Route, _ *mux.Router, _ []*mux.Route) error {
		pathTemplate, err := route.GetPathTemplate()
		if err != nil {
			return err
		}

		methods, err := route.GetMethods()
		if err != nil {
			methods = []string{"*"}
		}

		for _, method := range methods {
			routes = append(routes, RouteInfo{
				Method: method,
				Path:   pathTemplate,
				Name:   route.GetName(),
			})
		}
		return nil
	})

	sort.Slice(routes, func(i, j int) bool {
		if routes[i].Path != routes[j].Path {
			return routes[i].Path < routes[j].Path
		}
		return routes[i].Method < routes[j].Method
	})
	return routes, err
}

// LogMetricsServer logs the metrics endpoint and, at debug level, its routes.
func LogMetricsServer(router *mux.Router, port string) {
	section("METRICS SERVER")
	logging.Info("  Listening on http://0.0.0.0:%s/metrics", port)

	if !logging.IsDebugEnabled() {
		return
	}
	routes, err := GetRoutes(router)
	if err != nil {
		logging.Warn("error walking routes: %v", err)
	}
	logging.Debug("  Registered routes (%d total):", len(routes))
	for _, route := range routes {
		logging.Debug("    %-6s %s", route.Method, route.Path)
	}
}

// LogBatchStart logs the batch about to run.
func LogBatchStart(authors, workers int, startupDuration time.Duration) {
	section("BATCH STARTED")
	logging.Info("  Startup time:    %v", startupDuration)
	logging.Info("  Authors:         %d", authors)
	logging.Info("  Workers:         %d", workers)
	logging.Info("")
	logging.Info("  Press Ctrl+C to stop launching new runs")
	logging.Info("------------------------------------------------------------")
	logging.Info("")
}

// LogShutdownInitiated logs shutdown start
func LogShutdownInitiated(signal string) {
	section(fmt.Sprintf("SHUTDOWN INITIATED (received %s)", signal))
}

// LogShutdownStep logs a shutdown step
func LogShutdownStep(step string) {
	logging.Debug("  %s...", step)
}

// LogShutdownStepComplete logs a completed shutdown step
func LogShutdownStepComplete(step string) {
	logging.Info("  [OK] %s", step)
}

// LogShutdownComplete logs shutdown completion
func LogShutdownComplete() {
	logging.Info("  [OK] Shutdown complete")
}

func printBanner() {
	banner := `
------------------------------------------------------------
                 __            ___
   _______  ___ / /  ____ ___ / (_)__  ___  ___ ____
  / __/ -_)/ -_) /  / __// _ \/ / / _ \/ _ \/ -_) __/
 /_/  \__/ \__/_/   \__//_//_/_/_/ .__/ .__/\__/_/
                                /_/  /_/
------------------------------------------------------------`
	fmt.Println(banner)
	logging.Info("  Version:    %s", Version)
	logging.Info("  Commit:     %s", Commit)
	logging.Info("  Build Time: %s", BuildTime)
	logging.Info("  Started:    %s", time.Now().Format(time.RFC1123))
	logging.Info("")
}

func logSystemInfo() {
	logging.Info("------------------------------------------------------------")
	logging.Info("SYSTEM INFORMATION")
	logging.Info("------------------------------------------------------------")
	logging.Info("  Go version:      %s", runtime.Version())
	logging.Info("  OS/Arch:         %s/%s", runtime.GOOS, runtime.GOARCH)
	logging.Info("  CPUs available:  %d", runtime.NumCPU())
	logging.Info("  GOMAXPROCS:      %d", runtime.GOMAXPROCS(0))

	if runtime.GOMAXPROCS(0) < runtime.NumCPU() {
		logging.Info("  (Container CPU limit detected)")
	}

	if logging.IsDebugEnabled() {
		if wd, err := os.Getwd(); err == nil {
			logging.Debug("  Working dir:     %s", wd)
		}
		if hostname, err := os.Hostname(); err == nil {
			logging.Debug("  Hostname:        %s", hostname)
		}
	}

	logging.Info("")
}

func ensureDirectory(path, name string) error {
	logging.Debug("  Checking %s directory: %s", name, path)

	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		logging.Debug("    Directory does not exist, creating...")
		if err := os.MkdirAll(path, 0o755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
		logging.Debug("    [OK] Created directory: %s", path)
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to stat directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("path exists but is not a directory")
	}

	logging.Debug("    [OK] Directory exists")
	return nil
}

func testWriteAccess(dir string) error {
	testFile := filepath.Join(dir, ".write-test")
	if err := os.WriteFile(testFile, []byte("test"), 0o644); err != nil {
		return err
	}
	if err := os.Remove(testFile); err != nil {
		logging.Warn("failed to remove write test file %s: %v", testFile, err)
	}
	return nil
}

// checkTool resolves a binary and returns the first line of its version
// output.
func checkTool(path, versionFlag string) (string, error) {
	resolved, err := exec.LookPath(path)
	if err != nil {
		return "", fmt.Errorf("%s not found in PATH", path)
	}
	logging.Debug("  %s path: %s", path, resolved)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	output, err := exec.CommandContext(ctx, resolved, versionFlag).Output()
	if err != nil {
		return "", fmt.Errorf("failed to get %s version: %w", path, err)
	}

	first, _, _ := strings.Cut(string(output), "\n")
	return strings.TrimSpace(first), nil
}
