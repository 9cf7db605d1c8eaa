package filesystem

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"syscall"
	"testing"
	"time"
)

type recordingObserver struct {
	mu        sync.Mutex
	attempts  map[string]int
	successes map[string]int
	failures  map[string]int
	stale     map[string]int
	artifacts int
}

func newRecordingObserver() *recordingObserver {
	return &recordingObserver{
		attempts:  map[string]int{},
		successes: map[string]int{},
		failures:  map[string]int{},
		stale:     map[string]int{},
	}
}

func (o *recordingObserver) ObserveRetryAttempt(op string) { o.bump(o.attempts, op) }
func (o *recordingObserver) ObserveRetrySuccess(op string) { o.bump(o.successes, op) }
func (o *recordingObserver) ObserveRetryFailure(op string) { o.bump(o.failures, op) }
func (o *recordingObserver) ObserveStaleError(op string)   { o.bump(o.stale, op) }

func (o *recordingObserver) ObserveArtifacts(delta int) {
	o.mu.Lock()
	o.artifacts += delta
	o.mu.Unlock()
}

func (o *recordingObserver) bump(m map[string]int, op string) {
	o.mu.Lock()
	m[op]++
	o.mu.Unlock()
}

func withObserver(t *testing.T) *recordingObserver {
	t.Helper()
	o := newRecordingObserver()
	original := defaultObserver
	SetObserver(o)
	t.Cleanup(func() { SetObserver(original) })
	return o
}

func fastRetry() RetryConfig {
	return RetryConfig{
		MaxRetries:     3,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     4 * time.Millisecond,
	}
}

func TestDefaultRetryConfig(t *testing.T) {
	config := DefaultRetryConfig()

	if config.MaxRetries != 3 {
		t.Errorf("MaxRetries = %d, want 3", config.MaxRetries)
	}
	if config.InitialBackoff != 50*time.Millisecond {
		t.Errorf("InitialBackoff = %v, want 50ms", config.InitialBackoff)
	}
	if config.MaxBackoff != 500*time.Millisecond {
		t.Errorf("MaxBackoff = %v, want 500ms", config.MaxBackoff)
	}
}

func TestIsNFSStaleError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil error", err: nil, want: false},
		{name: "ESTALE error", err: syscall.ESTALE, want: true},
		{name: "wrapped ESTALE", err: &os.PathError{Op: "stat", Path: "/x", Err: syscall.ESTALE}, want: true},
		{name: "ENOENT error", err: syscall.ENOENT, want: false},
		{name: "generic error", err: os.ErrNotExist, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isNFSStaleError(tt.err); got != tt.want {
				t.Errorf("isNFSStaleError() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestWithRetry_StaleThenSuccess(t *testing.T) {
	obs := withObserver(t)

	calls := 0
	err := withRetry("stat", "/nfs/x", fastRetry(), func() error {
		calls++
		if calls < 3 {
			return &os.PathError{Op: "stat", Path: "/nfs/x", Err: syscall.ESTALE}
		}
		return nil
	})

	if err != nil {
		t.Fatalf("withRetry() error = %v, want nil", err)
	}
	if calls != 3 {
		t.Errorf("Expected 3 calls, got %d", calls)
	}
	if obs.stale["stat"] != 2 || obs.attempts["stat"] != 2 || obs.successes["stat"] != 1 {
		t.Errorf("Unexpected observations: stale=%d attempts=%d successes=%d",
			obs.stale["stat"], obs.attempts["stat"], obs.successes["stat"])
	}
}

func TestWithRetry_StaleExhausted(t *testing.T) {
	obs := withObserver(t)

	calls := 0
	err := withRetry("open", "/nfs/x", fastRetry(), func() error {
		calls++
		return syscall.ESTALE
	})

	if !errors.Is(err, syscall.ESTALE) {
		t.Fatalf("Expected ESTALE, got %v", err)
	}
	if calls != 4 {
		t.Errorf("Expected MaxRetries+1=4 calls, got %d", calls)
	}
	if obs.failures["open"] != 1 {
		t.Errorf("Expected one failure observation, got %d", obs.failures["open"])
	}
}

func TestWithRetry_OtherErrorsNotRetried(t *testing.T) {
	calls := 0
	want := fmt.Errorf("permission denied")
	err := withRetry("remove", "/x", fastRetry(), func() error {
		calls++
		return want
	})

	if err != want {
		t.Errorf("Expected original error, got %v", err)
	}
	if calls != 1 {
		t.Errorf("Expected 1 call, got %d", calls)
	}
}

func TestStatAndOpenWithRetry(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "clip.mp4")
	if err := os.WriteFile(path, []byte("data"), 0o644); err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}

	info, err := StatWithRetry(path, fastRetry())
	if err != nil {
		t.Fatalf("StatWithRetry() error = %v", err)
	}
	if info.Size() != 4 {
		t.Errorf("FileInfo.Size() = %d, want 4", info.Size())
	}

	f, err := OpenWithRetry(path, fastRetry())
	if err != nil {
		t.Fatalf("OpenWithRetry() error = %v", err)
	}
	_ = f.Close()

	if _, err := StatWithRetry(filepath.Join(dir, "missing"), fastRetry()); !os.IsNotExist(err) {
		t.Errorf("Expected not-exist error, got %v", err)
	}
	if _, err := OpenWithRetry(filepath.Join(dir, "missing"), fastRetry()); !os.IsNotExist(err) {
		t.Errorf("Expected not-exist error, got %v", err)
	}
}

func TestRemoveWithRetry(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "x.mp4")
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}

	if err := RemoveWithRetry(path, fastRetry()); err != nil {
		t.Fatalf("RemoveWithRetry() error = %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("Expected file to be gone, stat err = %v", err)
	}
	if err := RemoveWithRetry(path, fastRetry()); err != nil {
		t.Errorf("Removing a missing file should succeed, got %v", err)
	}
}

func TestNonEmptyFile(t *testing.T) {
	dir := t.TempDir()
	full := filepath.Join(dir, "full")
	empty := filepath.Join(dir, "empty")
	_ = os.WriteFile(full, []byte("x"), 0o644)
	_ = os.WriteFile(empty, nil, 0o644)

	tests := []struct {
		name string
		path string
		want bool
	}{
		{name: "file with data", path: full, want: true},
		{name: "empty file", path: empty, want: false},
		{name: "missing file", path: filepath.Join(dir, "nope"), want: false},
		{name: "directory", path: dir, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NonEmptyFile(tt.path); got != tt.want {
				t.Errorf("NonEmptyFile(%s) = %v, want %v", tt.name, got, tt.want)
			}
		})
	}
}
