/*
Package filesystem manages the on-disk side of pipeline runs.

A Workspace is a per-run directory under WORK_DIR. Stages reserve output
paths from it, the orchestrator releases intermediates as soon as the next
stage has consumed them, and Close removes whatever is left, including the
directory. A run therefore leaves nothing behind on any exit path.

Stat, Open and Remove are wrapped with retry logic for NFS stale file
handle errors (ESTALE), using exponential backoff:

	info, err := filesystem.StatWithRetry(path, filesystem.DefaultRetryConfig())

Only ESTALE is retried; every other error returns immediately.

Metrics are reported through an Observer set with SetObserver; with none
set, recording is skipped.
*/
package filesystem
