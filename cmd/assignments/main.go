package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
	"time"

	"reel-clipper/internal/catalog"
	"reel-clipper/internal/database"
	"reel-clipper/internal/supabase"
)

const (
	// Default timeout for remote and database operations
	defaultTimeout = 30 * time.Second
	// Default database directory path
	defaultDatabaseDir = "/database"
)

func main() {
	k := flag.Int("k", 3, "sources per author")
	authorsFlag := flag.String("authors", "", "comma-separated author ids (default: all active authors)")
	flag.Usage = printUsage
	flag.Parse()

	command := "compute"
	if flag.NArg() > 0 {
		command = flag.Arg(0)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Fprintln(os.Stderr, "\nInterrupted, shutting down...")
		cancel()
	}()

	databaseDir := os.Getenv("DATABASE_DIR")
	if databaseDir == "" {
		databaseDir = defaultDatabaseDir
	}
	dbPath := filepath.Join(databaseDir, "reel-clipper.db")

	db, err := database.New(ctx, dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: Failed to open ledger: %v\n", err)
		fmt.Fprintf(os.Stderr, "Make sure DATABASE_DIR is set correctly (current: %s)\n", databaseDir)
		os.Exit(1)
	}
	defer func() {
		if err := db.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to close ledger: %v\n", err)
		}
	}()

	switch command {
	case "compute":
		if !compute(ctx, db, *authorsFlag, *k) {
			os.Exit(1)
		}
	case "status":
		if !showStatus(ctx, db, os.Stdout) {
			os.Exit(1)
		}
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", sanitizeCommand(command))
		printUsage()
		os.Exit(1)
	}
}

// sanitizeCommand replaces anything outside [a-zA-Z0-9_-] with '_' before
// the command is echoed back.
func sanitizeCommand(cmd string) string {
	var b strings.Builder
	b.Grow(len(cmd))
	for _, r := range cmd {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '-' || r == '_' {
			b.WriteRune(r)
		} else {
			b.WriteRune('_')
		}
	}
	return b.String()
}

func printUsage() {
	fmt.Println("Reel Clipper Source Assignments")
	fmt.Println("")
	fmt.Println("Usage: assignments [-k N] [-authors id,id] [command]")
	fmt.Println("")
	fmt.Println("Commands:")
	fmt.Println("  compute - Assign sources to authors, print and record them (default)")
	fmt.Println("  status  - Show how many authors have each source as primary")
	fmt.Println("")
	fmt.Println("Environment:")
	fmt.Printf("  DATABASE_DIR - Path to database directory (default: %s)\n", defaultDatabaseDir)
	fmt.Println("  CATALOG_FILE - YAML catalog (default: embedded)")
	fmt.Println("  SUPABASE_URL, SUPABASE_KEY, SUPABASE_DB_URL - author directory")
}

func compute(ctx context.Context, db *database.Database, authorsFlag string, k int) bool {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	cat, err := catalog.LoadFile(os.Getenv("CATALOG_FILE"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return false
	}
	keys := catalog.NewStore(cat).SourceKeys()

	authors, err := listAuthors(ctx, authorsFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return false
	}
	if len(authors) == 0 {
		fmt.Fprintln(os.Stderr, "Error: No authors to assign")
		return false
	}

	assignments := assign(authors, keys, k)
	if err := writeAssignments(os.Stdout, authors, assignments); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return false
	}

	if err := db.SaveAssignments(ctx, assignments); err != nil {
		fmt.Fprintf(os.Stderr, "Error: Failed to record assignments: %v\n", err)
		return false
	}
	fmt.Printf("\nRecorded %d assignments in %s\n", len(assignments), db.Path())
	return true
}

// listAuthors returns the ids given on the command line, or every active
// author from the remote store.
func listAuthors(ctx context.Context, authorsFlag string) ([]supabase.Author, error) {
	if authorsFlag != "" {
		var authors []supabase.Author
		for _, id := range strings.Split(authorsFlag, ",") {
			if id = strings.TrimSpace(id); id != "" {
				authors = append(authors, supabase.Author{ProfileID: id})
			}
		}
		return authors, nil
	}

	client, err := supabase.New(ctx, supabase.Config{
		URL:   os.Getenv("SUPABASE_URL"),
		Key:   os.Getenv("SUPABASE_KEY"),
		DBURL: os.Getenv("SUPABASE_DB_URL"),
	})
	if err != nil {
		return nil, fmt.Errorf("no -authors given and remote store unavailable: %w", err)
	}
	defer client.Close()

	return client.ActiveAuthors(ctx)
}

func assign(authors []supabase.Author, keys []string, k int) map[string][]string {
	out := make(map[string][]string, len(authors))
	for _, a := range authors {
		out[a.ProfileID] = catalog.AssignSources(a.ProfileID, keys, k)
	}
	return out
}

func writeAssignments(w io.Writer, authors []supabase.Author, assignments map[string][]string) error {
	var b strings.Builder
	fmt.Fprintf(&b, "%-36s %-24s %s\n", "AUTHOR", "NAME", "SOURCES")
	for _, a := range authors {
		fmt.Fprintf(&b, "%-36s %-24s %s\n", a.ProfileID, a.Label(), strings.Join(assignments[a.ProfileID], ", "))
	}

	primaries := make(map[string]int)
	for _, keys := range assignments {
		if len(keys) > 0 {
			primaries[keys[0]]++
		}
	}
	b.WriteString("\nPrimary source distribution:\n")
	writeCounts(&b, primaries)

	_, err := io.WriteString(w, b.String())
	return err
}

func showStatus(ctx context.Context, db *database.Database, w io.Writer) bool {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	counts, err := db.PrimaryCounts(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return false
	}
	if len(counts) == 0 {
		fmt.Fprintln(w, "Status: No assignments recorded")
		return true
	}

	var b strings.Builder
	b.WriteString("Primary source distribution:\n")
	writeCounts(&b, counts)
	_, err = io.WriteString(w, b.String())
	return err == nil
}

func writeCounts(b *strings.Builder, counts map[string]int) {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(b, "  %-20s %d\n", k, counts[k])
	}
}
