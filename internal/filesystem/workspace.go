package filesystem

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"reel-clipper/internal/logging"
)

// Artifact is a file produced by one pipeline stage.
type Artifact struct {
	Path  string
	Stage string
	Final bool
}

// Workspace is the private directory of one pipeline run. Every file a
// stage writes is tracked here so the run can remove all of them on any
// exit path.
type Workspace struct {
	dir   string
	retry RetryConfig

	mu        sync.Mutex
	seq       int
	artifacts map[string]*Artifact
}

// NewWorkspace creates base/runID. runID must be unique per run.
func NewWorkspace(base, runID string) (*Workspace, error) {
	if runID == "" {
		return nil, errors.New("workspace: empty run id")
	}
	dir := filepath.Join(base, runID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create workspace %s: %w", dir, err)
	}
	return &Workspace{
		dir:       dir,
		retry:     DefaultRetryConfig(),
		artifacts: make(map[string]*Artifact),
	}, nil
}

// Dir returns the workspace directory.
func (w *Workspace) Dir() string {
	return w.dir
}

// Reserve registers and returns a fresh path for stage output. The path is
// tracked from this point whether or not the stage ever writes it.
func (w *Workspace) Reserve(stage, ext string) Artifact {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.seq++
	a := &Artifact{
		Path:  filepath.Join(w.dir, fmt.Sprintf("%02d-%s%s", w.seq, stage, ext)),
		Stage: stage,
	}
	w.artifacts[a.Path] = a
	observe().ObserveArtifacts(1)
	return *a
}

// MarkFinal flags the artifact that will be handed to Publish.
func (w *Workspace) MarkFinal(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if a, ok := w.artifacts[path]; ok {
		a.Final = true
	}
}

// Release deletes one artifact. Unknown paths are ignored.
func (w *Workspace) Release(path string) error {
	w.mu.Lock()
	_, ok := w.artifacts[path]
	if ok {
		delete(w.artifacts, path)
	}
	w.mu.Unlock()

	if !ok {
		return nil
	}
	observe().ObserveArtifacts(-1)
	return RemoveWithRetry(path, w.retry)
}

// ReleaseIntermediate deletes every artifact not marked final.
func (w *Workspace) ReleaseIntermediate() error {
	return w.release(func(a *Artifact) bool { return !a.Final })
}

// Close deletes every artifact, final included, and the directory itself.
func (w *Workspace) Close() error {
	err := w.release(func(*Artifact) bool { return true })
	if rmErr := os.RemoveAll(w.dir); rmErr != nil {
		err = errors.Join(err, rmErr)
	}
	return err
}

// Live returns the artifacts still tracked.
func (w *Workspace) Live() []Artifact {
	w.mu.Lock()
	defer w.mu.Unlock()

	out := make([]Artifact, 0, len(w.artifacts))
	for _, a := range w.artifacts {
		out = append(out, *a)
	}
	return out
}

func (w *Workspace) release(match func(*Artifact) bool) error {
	w.mu.Lock()
	var paths []string
	for p, a := range w.artifacts {
		if match(a) {
			paths = append(paths, p)
			delete(w.artifacts, p)
		}
	}
	w.mu.Unlock()

	var errs []error
	for _, p := range paths {
		observe().ObserveArtifacts(-1)
		if err := RemoveWithRetry(p, w.retry); err != nil {
			logging.Warn("failed to remove artifact %s: %v", p, err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
