package filesystem

import (
	"errors"
	"os"
	"syscall"
	"time"

	"reel-clipper/internal/logging"
)

// RetryConfig configures retry behavior for filesystem operations
type RetryConfig struct {
	MaxRetries     int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// DefaultRetryConfig returns defaults suited to an NFS-backed work directory.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:     3,
		InitialBackoff: 50 * time.Millisecond,
		MaxBackoff:     500 * time.Millisecond,
	}
}

// isNFSStaleError checks if an error is an NFS stale file handle error
func isNFSStaleError(err error) bool {
	if err == nil {
		return false
	}

	var errno syscall.Errno
	if errors.As(err, &errno) {
		return errno == syscall.ESTALE
	}

	return false
}

// withRetry runs fn, retrying with exponential backoff only while it fails
// with ESTALE.
func withRetry(op, path string, config RetryConfig, fn func() error) error {
	var lastErr error
	backoff := config.InitialBackoff

	for attempt := 0; attempt <= config.MaxRetries; attempt++ {
		err := fn()
		if err == nil {
			if attempt > 0 {
				logging.Info("NFS %s succeeded on retry %d for %s", op, attempt, path)
				observe().ObserveRetrySuccess(op)
			}
			return nil
		}

		lastErr = err
		if !isNFSStaleError(err) {
			return err
		}

		observe().ObserveStaleError(op)

		if attempt < config.MaxRetries {
			observe().ObserveRetryAttempt(op)
			logging.Debug("NFS %s stale file handle for %s, retrying in %v (attempt %d/%d)",
				op, path, backoff, attempt+1, config.MaxRetries)
			time.Sleep(backoff)

			backoff *= 2
			if backoff > config.MaxBackoff {
				backoff = config.MaxBackoff
			}
		}
	}

	logging.Warn("NFS %s failed after %d retries for %s: %v", op, config.MaxRetries, path, lastErr)
	observe().ObserveRetryFailure(op)
	return lastErr
}

// StatWithRetry performs os.Stat with retry logic for NFS stale file handle errors
func StatWithRetry(path string, config RetryConfig) (os.FileInfo, error) {
	var info os.FileInfo
	err := withRetry("stat", path, config, func() error {
		var err error
		info, err = os.Stat(path)
		return err
	})
	if err != nil {
		return nil, err
	}
	return info, nil
}

// OpenWithRetry performs os.Open with retry logic for NFS stale file handle errors
func OpenWithRetry(path string, config RetryConfig) (*os.File, error) {
	var file *os.File
	err := withRetry("open", path, config, func() error {
		var err error
		file, err = os.Open(path)
		return err
	})
	if err != nil {
		return nil, err
	}
	return file, nil
}

// RemoveWithRetry removes path, treating a missing file as success.
func RemoveWithRetry(path string, config RetryConfig) error {
	return withRetry("remove", path, config, func() error {
		err := os.Remove(path)
		if err != nil && errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	})
}

// NonEmptyFile reports whether path exists as a regular file with data.
// External tools sometimes exit 0 without writing their output.
func NonEmptyFile(path string) bool {
	info, err := StatWithRetry(path, DefaultRetryConfig())
	if err != nil {
		return false
	}
	return info.Mode().IsRegular() && info.Size() > 0
}
