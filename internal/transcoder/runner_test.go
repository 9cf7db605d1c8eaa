package transcoder

import (
	"context"
	"errors"
	"os/exec"
	"strings"
	"testing"
	"time"
)

func TestExecRunner(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
	r := NewExecRunner()

	out, err := r.Run(context.Background(), "sh", []string{"-c", "printf hello"})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if string(out) != "hello" {
		t.Errorf("Expected stdout hello, got %q", out)
	}

	_, err = r.Run(context.Background(), "sh", []string{"-c", "echo boom >&2; exit 3"})
	if !errors.Is(err, ErrToolFailed) {
		t.Fatalf("Expected ErrToolFailed, got %v", err)
	}
	if !strings.Contains(err.Error(), "boom") {
		t.Errorf("Expected stderr in error, got %v", err)
	}
}

func TestExecRunnerMissingBinary(t *testing.T) {
	_, err := NewExecRunner().Run(context.Background(), "definitely-not-a-real-tool", nil)
	if !errors.Is(err, ErrToolFailed) {
		t.Errorf("Expected ErrToolFailed, got %v", err)
	}
}

func TestExecRunnerTimeout(t *testing.T) {
	if _, err := exec.LookPath("sleep"); err != nil {
		t.Skip("sleep not available")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := NewExecRunner().Run(ctx, "sleep", []string{"5"})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Expected deadline exceeded, got %v", err)
	}
	if !errors.Is(err, ErrToolFailed) {
		t.Errorf("Expected ErrToolFailed, got %v", err)
	}
}

func TestExecRunnerTimeoutKillsChildren(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := NewExecRunner().Run(ctx, "sh", []string{"-c", "sleep 4 & sleep 4"})
	elapsed := time.Since(start)

	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Expected deadline exceeded, got %v", err)
	}
	if elapsed > 3*time.Second {
		t.Errorf("Run returned after %v, expected the timeout to stop the background child", elapsed)
	}
}

func TestExecRunnerCleanupKillsChildren(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
	r := NewExecRunner()

	done := make(chan error, 1)
	start := time.Now()
	go func() {
		_, err := r.Run(context.Background(), "sh", []string{"-c", "sleep 4 & sleep 4"})
		done <- err
	}()

	deadline := time.Now().Add(2 * time.Second)
	for r.Running() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	r.Cleanup()

	select {
	case err := <-done:
		if !errors.Is(err, ErrToolFailed) {
			t.Errorf("Expected ErrToolFailed, got %v", err)
		}
		if elapsed := time.Since(start); elapsed > 3500*time.Millisecond {
			t.Errorf("Run returned after %v", elapsed)
		}
	case <-time.After(3500 * time.Millisecond):
		t.Fatal("Cleanup did not stop the running tool")
	}
}

func TestTail(t *testing.T) {
	in := "banner\nline1\nline2\nline3\n"
	if got := tail(in, 2); got != "line2 | line3" {
		t.Errorf("tail() = %q", got)
	}
	if got := tail("single", 5); got != "single" {
		t.Errorf("tail() = %q", got)
	}
}
