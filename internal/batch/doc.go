// Package batch runs the orchestrator over a list of authors with a
// bounded worker pool and a randomized delay between launches, and
// aggregates the outcomes into a Report.
package batch
