// Package database provides the local SQLite ledger for reel-clipper.
//
// It records:
//   - Clip usage (use count and last use), so the reuse window and the
//     least-used bias hold across process runs
//   - Computed author to source assignments
//   - One row per orchestrator run with its outcome
//
// The database uses WAL mode and creates its schema on open.
package database
