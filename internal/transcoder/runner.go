package transcoder

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"reel-clipper/internal/logging"
)

// waitDelay bounds how long Wait keeps draining output after the tool has
// been killed.
const waitDelay = 2 * time.Second

var (
	// ErrToolFailed wraps every non-zero exit or start failure of an
	// external tool.
	ErrToolFailed = errors.New("external tool failed")
	// ErrOutputMissing is returned when a tool exits 0 without writing its
	// output file.
	ErrOutputMissing = errors.New("tool produced no output")
)

// Runner executes an external program with an argument vector. No shell is
// involved. It returns the program's stdout.
type Runner interface {
	Run(ctx context.Context, name string, args []string) ([]byte, error)
}

// ExecRunner runs programs with os/exec and tracks live processes so they
// can be killed on shutdown.
type ExecRunner struct {
	processMu sync.Mutex
	processes map[int]*exec.Cmd
	seq       int
}

// NewExecRunner creates an ExecRunner.
func NewExecRunner() *ExecRunner {
	return &ExecRunner{processes: make(map[int]*exec.Cmd)}
}

// Run implements Runner.
func (r *ExecRunner) Run(ctx context.Context, name string, args []string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	setProcessGroup(cmd)
	cmd.WaitDelay = waitDelay

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	logging.Debug("exec: %s %s", name, strings.Join(args, " "))

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("%w: start %s: %v", ErrToolFailed, filepath.Base(name), err)
	}

	r.processMu.Lock()
	r.seq++
	id := r.seq
	r.processes[id] = cmd
	r.processMu.Unlock()

	defer func() {
		r.processMu.Lock()
		delete(r.processes, id)
		r.processMu.Unlock()
	}()

	if err := cmd.Wait(); err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrToolFailed, filepath.Base(name), ctx.Err())
		}
		return nil, fmt.Errorf("%w: %s: %v - %s", ErrToolFailed, filepath.Base(name), err, tail(stderr.String(), 5))
	}

	return stdout.Bytes(), nil
}

// Running reports how many tools are currently executing.
func (r *ExecRunner) Running() int {
	r.processMu.Lock()
	defer r.processMu.Unlock()
	return len(r.processes)
}

// Cleanup kills all running processes along with their children.
func (r *ExecRunner) Cleanup() {
	r.processMu.Lock()
	defer r.processMu.Unlock()

	for _, cmd := range r.processes {
		if cmd.Process != nil {
			logging.Info("Killing %s (pid %d)", filepath.Base(cmd.Path), cmd.Process.Pid)
			if err := killProcessGroup(cmd); err != nil {
				logging.Warn("failed to kill pid %d: %v", cmd.Process.Pid, err)
			}
		}
	}
}

// tail returns the last n non-empty lines of s. ffmpeg writes its banner
// first and the actual error last.
func tail(s string, n int) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, " | ")
}
