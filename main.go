package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/term"

	"reel-clipper/internal/batch"
	"reel-clipper/internal/catalog"
	"reel-clipper/internal/database"
	"reel-clipper/internal/filesystem"
	"reel-clipper/internal/logging"
	"reel-clipper/internal/memory"
	"reel-clipper/internal/metrics"
	"reel-clipper/internal/orchestrator"
	"reel-clipper/internal/publish"
	"reel-clipper/internal/startup"
	"reel-clipper/internal/supabase"
	"reel-clipper/internal/transcoder"
	"reel-clipper/internal/transcribe"
	"reel-clipper/internal/workers"
)

// Exit codes.
const (
	exitOK          = 0
	exitRunsFailed  = 1
	exitConfigError = 2
)

const sourcesPerAuthor = 3

func main() {
	os.Exit(run())
}

func run() int {
	startTime := time.Now()

	authorsFlag := flag.String("authors", "", "comma-separated author ids (default: all active authors)")
	dryRun := flag.Bool("dry-run", false, "produce clips without uploading or posting")
	verbose := flag.Bool("v", false, "debug logging")
	flag.Parse()

	if *verbose {
		logging.SetLevel(logging.LevelDebug)
	}

	memory.ConfigureFromEnv()

	config, err := startup.LoadConfig()
	if err != nil {
		logging.Error("Configuration error: %v", err)
		return exitConfigError
	}
	if !*dryRun && !config.RemoteEnabled() {
		logging.Error("Configuration error: SUPABASE_URL and SUPABASE_KEY are required unless -dry-run is set")
		return exitConfigError
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Catalog
	cat, err := catalog.LoadFile(config.CatalogFile)
	if err != nil {
		logging.Error("Failed to load catalog: %v", err)
		return exitConfigError
	}
	store := catalog.NewStore(cat)
	stats := store.Stats()
	startup.LogCatalogInit(valueOr(config.CatalogFile, "embedded"), stats.Clips, stats.Sources)

	// Ledger
	dbStart := time.Now()
	db, err := database.New(ctx, config.DatabasePath)
	if err != nil {
		logging.Error("Failed to initialize ledger: %v", err)
		return exitConfigError
	}
	defer db.Close()
	restored, err := db.Hydrate(ctx, store)
	if err != nil {
		logging.Warn("Failed to restore clip usage, reuse window starts empty: %v", err)
	}
	startup.LogDatabaseInit(time.Since(dbStart), restored)

	// Remote store
	var remote *supabase.Client
	if config.RemoteEnabled() {
		remote, err = supabase.New(ctx, supabase.Config{
			URL:    config.SupabaseURL,
			Key:    config.SupabaseKey,
			DBURL:  config.SupabaseDBURL,
			Bucket: config.StorageBucket,
		})
		if err != nil {
			logging.Error("Failed to initialize remote store: %v", err)
			return exitConfigError
		}
		defer remote.Close()
	}

	// Pipeline
	startup.LogToolsInit(config.YtDlpPath, config.FFmpegPath)
	execRunner := transcoder.NewExecRunner()
	trans := transcoder.New(execRunner, transcoderOptions(config), newTranscriber(config))

	var publisher orchestrator.Publisher = &publish.DryRun{}
	if !*dryRun {
		var posters publish.PosterSource
		if config.PostersEnabled {
			posters = trans
		}
		publisher = publish.New(remote, remote, posters, publish.Options{
			PathPrefix: config.StoragePath,
			Stories:    config.StoriesEnabled,
			StoryTTL:   24 * time.Hour,
		})
	}
	startup.LogPublisherInit(*dryRun, config.StorageBucket, config.StoragePath)

	orch := orchestrator.New(store, trans, publisher, orchestrator.Config{
		WorkDir:      config.WorkDir,
		MaxAttempts:  config.MaxAttempts,
		StageTimeout: config.StageTimeout,
		RunTimeout:   config.RunTimeout,
		ReuseWindow:  config.ReuseWindow,
	}, orchestrator.WithLedger(db))

	// Metrics
	if config.MetricsEnabled {
		metrics.InitializeMetrics()
		filesystem.SetObserver(metrics.NewFilesystemObserver())

		srv := metrics.NewServer(config.MetricsPort)
		startup.LogMetricsServer(srv.Router(), config.MetricsPort)
		srv.Start()
		defer func() {
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer shutdownCancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logging.Warn("Metrics server shutdown error: %v", err)
			}
		}()

		collector := metrics.NewCollector(store, 15*time.Second)
		collector.Start()
		defer collector.Stop()

		srv.SetReady(true)
	}

	gate := memory.NewGate(memory.DefaultConfig())
	gate.Start()
	defer gate.Stop()

	// Jobs
	var directory authorDirectory
	if remote != nil {
		directory = remote
	}
	jobs, err := buildJobs(ctx, parseAuthorIDs(*authorsFlag), directory, db, store.SourceKeys(), sourcesPerAuthor)
	if err != nil {
		logging.Error("Failed to resolve authors: %v", err)
		return exitConfigError
	}

	go handleShutdown(cancel, execRunner)

	batchCfg := batch.Config{
		Workers:    workers.ForPipeline(config.PipelineWorkers),
		StaggerMin: config.StaggerMin,
		StaggerMax: config.StaggerMax,
	}
	startup.LogBatchStart(len(jobs), batchCfg.Workers, time.Since(startTime))

	report := batch.New(orch, batchCfg).WithGate(gate).Run(ctx, jobs)

	printReport(report)
	logRecentRuns(db)

	if !report.OK() {
		return exitRunsFailed
	}
	return exitOK
}

func transcoderOptions(config *startup.Config) transcoder.Options {
	opts := transcoder.DefaultOptions()
	opts.YtDlpPath = config.YtDlpPath
	opts.FFmpegPath = config.FFmpegPath
	opts.CookiesFile = config.CookiesFile
	opts.MaxDownloadHeight = config.MaxDownloadHeight
	opts.MinClip = config.MinClip
	opts.MaxClip = config.MaxClip
	opts.DefaultClip = config.DefaultClip
	opts.MaxOutput = config.MaxOutput
	opts.Width = config.OutputWidth
	opts.Height = config.OutputHeight
	opts.FPS = config.OutputFPS
	opts.CRF = config.OutputCRF
	return opts
}

// newTranscriber returns nil when captions are off so the Caption stage
// passes its input through.
func newTranscriber(config *startup.Config) transcoder.Transcriber {
	if !config.CaptionsEnabled || config.OpenAIKey == "" {
		logging.Info("Captions disabled")
		return nil
	}
	w, err := transcribe.New(transcribe.Config{APIKey: config.OpenAIKey})
	if err != nil {
		logging.Warn("Captions disabled: %v", err)
		return nil
	}
	return w
}

func printReport(report *batch.Report) {
	fmt.Println()
	if term.IsTerminal(int(os.Stdout.Fd())) {
		if err := report.WriteTable(os.Stdout); err != nil {
			logging.Warn("failed to write report table: %v", err)
		}
		fmt.Println()
	}
	if err := report.WriteSummary(os.Stdout); err != nil {
		logging.Warn("failed to write report summary: %v", err)
	}
}

func logRecentRuns(db *database.Database) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	summary, err := db.RunsSince(ctx, time.Now().Add(-24*time.Hour))
	if err != nil {
		logging.Debug("Could not summarize recent runs: %v", err)
		return
	}
	logging.Info("Runs in the last 24h: %d succeeded, %d total", summary["succeeded"], summaryTotal(summary))
}

func summaryTotal(s database.RunSummary) int {
	total := 0
	for _, n := range s {
		total += n
	}
	return total
}

// handleShutdown stops new launches on the first signal and kills child
// processes so in-flight runs fail fast and clean up their workspaces.
func handleShutdown(cancel context.CancelFunc, runner *transcoder.ExecRunner) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan

	startup.LogShutdownInitiated(sig.String())

	startup.LogShutdownStep("Canceling batch")
	cancel()
	startup.LogShutdownStepComplete("Batch canceled")

	startup.LogShutdownStep(fmt.Sprintf("Stopping %d external tools", runner.Running()))
	runner.Cleanup()
	startup.LogShutdownStepComplete("External tools stopped")

	startup.LogShutdownComplete()
}

func valueOr(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
