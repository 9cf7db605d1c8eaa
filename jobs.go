package main

import (
	"context"
	"errors"
	"strings"

	"reel-clipper/internal/catalog"
	"reel-clipper/internal/logging"
	"reel-clipper/internal/orchestrator"
	"reel-clipper/internal/supabase"
)

// authorDirectory lists authors and their exclusive sources.
// *supabase.Client implements it.
type authorDirectory interface {
	ActiveAuthors(ctx context.Context) ([]supabase.Author, error)
	SourceAssignments(ctx context.Context, authorID string) ([]string, error)
}

// assignmentLedger holds locally recorded assignments.
// *database.Database implements it.
type assignmentLedger interface {
	LoadAssignments(ctx context.Context, authorID string) ([]string, error)
}

func parseAuthorIDs(s string) []string {
	var ids []string
	seen := make(map[string]bool)
	for _, part := range strings.Split(s, ",") {
		id := strings.TrimSpace(part)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	return ids
}

// buildJobs turns author ids into orchestrator jobs. With no ids every
// active author in the directory is used. Each job carries the author's
// sources from the first place that has them: the remote assignment table,
// the local ledger, or a fresh deterministic assignment.
func buildJobs(ctx context.Context, ids []string, dir authorDirectory, ledger assignmentLedger, sourceKeys []string, k int) ([]orchestrator.Job, error) {
	labels := make(map[string]string)

	if dir != nil {
		authors, err := dir.ActiveAuthors(ctx)
		switch {
		case err != nil && len(ids) == 0:
			return nil, err
		case err != nil:
			logging.Warn("Could not list authors, using ids as labels: %v", err)
		}
		for _, a := range authors {
			labels[a.ProfileID] = a.Label()
		}
		if len(ids) == 0 {
			for _, a := range authors {
				ids = append(ids, a.ProfileID)
			}
		}
	}

	if len(ids) == 0 {
		if dir == nil {
			return nil, errors.New("no authors: pass -authors or configure the remote store")
		}
		return nil, errors.New("no active authors found")
	}

	jobs := make([]orchestrator.Job, 0, len(ids))
	for _, id := range ids {
		jobs = append(jobs, orchestrator.Job{
			AuthorID: id,
			Label:    labels[id],
			Sources:  sourcesFor(ctx, id, dir, ledger, sourceKeys, k),
		})
	}
	return jobs, nil
}

func sourcesFor(ctx context.Context, authorID string, dir authorDirectory, ledger assignmentLedger, sourceKeys []string, k int) []string {
	if dir != nil {
		keys, err := dir.SourceAssignments(ctx, authorID)
		if err != nil {
			logging.Debug("No remote assignments for %s: %v", authorID, err)
		} else if len(keys) > 0 {
			return keys
		}
	}
	if ledger != nil {
		keys, err := ledger.LoadAssignments(ctx, authorID)
		if err != nil {
			logging.Debug("No local assignments for %s: %v", authorID, err)
		} else if len(keys) > 0 {
			return keys
		}
	}
	return catalog.AssignSources(authorID, sourceKeys, k)
}
