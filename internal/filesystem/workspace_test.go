package filesystem

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeArtifact(t *testing.T, a Artifact) {
	t.Helper()
	if err := os.WriteFile(a.Path, []byte(a.Stage), 0o644); err != nil {
		t.Fatalf("Failed to write %s: %v", a.Path, err)
	}
}

func TestNewWorkspace(t *testing.T) {
	base := t.TempDir()

	ws, err := NewWorkspace(base, "run-1")
	if err != nil {
		t.Fatalf("NewWorkspace() error = %v", err)
	}
	if ws.Dir() != filepath.Join(base, "run-1") {
		t.Errorf("Expected dir %s, got %s", filepath.Join(base, "run-1"), ws.Dir())
	}
	if info, err := os.Stat(ws.Dir()); err != nil || !info.IsDir() {
		t.Errorf("Expected workspace directory to exist, err = %v", err)
	}

	if _, err := NewWorkspace(base, ""); err == nil {
		t.Error("Expected error for empty run id")
	}
}

func TestWorkspaceReserveIsUnique(t *testing.T) {
	ws, err := NewWorkspace(t.TempDir(), "run")
	if err != nil {
		t.Fatalf("NewWorkspace() error = %v", err)
	}

	seen := map[string]bool{}
	for i := 0; i < 10; i++ {
		a := ws.Reserve("fetch", ".mp4")
		if seen[a.Path] {
			t.Fatalf("Duplicate path %s", a.Path)
		}
		seen[a.Path] = true
		if !strings.HasPrefix(a.Path, ws.Dir()) || !strings.HasSuffix(a.Path, "-fetch.mp4") {
			t.Errorf("Unexpected path %s", a.Path)
		}
	}
	if len(ws.Live()) != 10 {
		t.Errorf("Expected 10 live artifacts, got %d", len(ws.Live()))
	}
}

func TestWorkspaceReleaseIntermediateKeepsFinal(t *testing.T) {
	obs := withObserver(t)

	ws, err := NewWorkspace(t.TempDir(), "run")
	if err != nil {
		t.Fatalf("NewWorkspace() error = %v", err)
	}

	fetched := ws.Reserve("fetch", ".mp4")
	trimmed := ws.Reserve("trim", ".mp4")
	final := ws.Reserve("reformat", ".mp4")
	never := ws.Reserve("caption", ".srt") // reserved, never written
	for _, a := range []Artifact{fetched, trimmed, final} {
		writeArtifact(t, a)
	}
	ws.MarkFinal(final.Path)

	if err := ws.ReleaseIntermediate(); err != nil {
		t.Fatalf("ReleaseIntermediate() error = %v", err)
	}

	for _, a := range []Artifact{fetched, trimmed, never} {
		if _, err := os.Stat(a.Path); !os.IsNotExist(err) {
			t.Errorf("Expected %s removed", a.Path)
		}
	}
	if _, err := os.Stat(final.Path); err != nil {
		t.Errorf("Expected final artifact kept, err = %v", err)
	}

	live := ws.Live()
	if len(live) != 1 || !live[0].Final {
		t.Errorf("Expected only the final artifact live, got %+v", live)
	}
	if obs.artifacts != 1 {
		t.Errorf("Expected artifact gauge 1, got %d", obs.artifacts)
	}
}

func TestWorkspaceReleaseSingle(t *testing.T) {
	ws, err := NewWorkspace(t.TempDir(), "run")
	if err != nil {
		t.Fatalf("NewWorkspace() error = %v", err)
	}

	a := ws.Reserve("fetch", ".mp4")
	writeArtifact(t, a)

	if err := ws.Release(a.Path); err != nil {
		t.Fatalf("Release() error = %v", err)
	}
	if _, err := os.Stat(a.Path); !os.IsNotExist(err) {
		t.Error("Expected artifact removed")
	}
	if err := ws.Release("/not/tracked"); err != nil {
		t.Errorf("Release of untracked path should be a no-op, got %v", err)
	}
}

func TestWorkspaceCloseRemovesEverything(t *testing.T) {
	obs := withObserver(t)
	base := t.TempDir()

	ws, err := NewWorkspace(base, "run")
	if err != nil {
		t.Fatalf("NewWorkspace() error = %v", err)
	}
	a := ws.Reserve("fetch", ".mp4")
	b := ws.Reserve("reformat", ".mp4")
	writeArtifact(t, a)
	writeArtifact(t, b)
	ws.MarkFinal(b.Path)

	// A stray file a tool wrote next to its output.
	if err := os.WriteFile(filepath.Join(ws.Dir(), "stray.part"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := ws.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if _, err := os.Stat(ws.Dir()); !os.IsNotExist(err) {
		t.Errorf("Expected workspace dir removed, err = %v", err)
	}
	if len(ws.Live()) != 0 {
		t.Errorf("Expected no live artifacts, got %d", len(ws.Live()))
	}
	if obs.artifacts != 0 {
		t.Errorf("Expected artifact gauge back at 0, got %d", obs.artifacts)
	}

	entries, _ := os.ReadDir(base)
	if len(entries) != 0 {
		t.Errorf("Expected empty base dir, got %d entries", len(entries))
	}
}
