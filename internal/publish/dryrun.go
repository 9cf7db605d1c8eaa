package publish

import (
	"context"
	"fmt"
	"sync/atomic"

	"reel-clipper/internal/filesystem"
	"reel-clipper/internal/logging"
)

// DryRun stands in for Publisher when nothing should leave the machine.
// It checks the video exists and logs what would have been posted.
type DryRun struct {
	seq atomic.Int64
}

// Publish implements the orchestrator's publisher contract.
func (d *DryRun) Publish(ctx context.Context, req Request) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	if !filesystem.NonEmptyFile(req.VideoPath) {
		return Result{}, fmt.Errorf("publish: dry run: missing video %s", req.VideoPath)
	}

	n := d.seq.Add(1)
	logging.Info("[dry-run] would post %s for %s: %q", req.Clip.ID, req.AuthorID, req.Caption)
	return Result{
		PostID:   fmt.Sprintf("dry-run-%d", n),
		VideoURL: "file://" + req.VideoPath,
	}, nil
}
