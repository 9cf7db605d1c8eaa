// Package publish is the last pipeline stage: it uploads the finished
// vertical clip, optionally with a poster image, creates the post record
// and an expiring story, and returns the public URL.
//
// It is the only stage that touches the remote store. Storage and record
// creation are behind small interfaces so the orchestrator can be tested
// without a network.
package publish
