package transcoder

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"reel-clipper/internal/catalog"
	"reel-clipper/internal/filesystem"
	"reel-clipper/internal/logging"
)

// Stage names, also used as metric labels.
const (
	StageFetch    = "fetch"
	StageTrim     = "trim"
	StageReformat = "reformat"
	StageCaption  = "caption"
)

// Transcriber turns an audio file into SRT subtitles.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath string) (string, error)
}

// Transcoder runs the download and encode stages of the pipeline. Each
// stage reserves its output in the run's workspace and reports success
// only when the tool exits 0 and the output file exists.
type Transcoder struct {
	runner      Runner
	opts        Options
	transcriber Transcriber
}

// New creates a Transcoder. transcriber may be nil, in which case Caption
// passes its input through.
func New(runner Runner, opts Options, transcriber Transcriber) *Transcoder {
	return &Transcoder{
		runner:      runner,
		opts:        opts,
		transcriber: transcriber,
	}
}

// Options returns the configured options.
func (t *Transcoder) Options() Options {
	return t.opts
}

// CaptionsEnabled reports whether a transcriber is configured.
func (t *Transcoder) CaptionsEnabled() bool {
	return t.transcriber != nil
}

// section returns the download window for clip, or nil for a full download.
func (t *Transcoder) section(clip catalog.Clip) *Section {
	if !t.opts.DownloadSections || clip.Start == nil {
		return nil
	}
	start := clip.StartOffset()
	return &Section{
		Start: start,
		End:   start + t.opts.ClampDuration(clip.Length(0)),
	}
}

// Fetch downloads the clip's source video.
func (t *Transcoder) Fetch(ctx context.Context, ws *filesystem.Workspace, clip catalog.Clip) (filesystem.Artifact, error) {
	out := ws.Reserve(StageFetch, ".mp4")
	args := t.opts.DownloadArgs(clip.Locator, out.Path, t.section(clip))

	logging.Debug("Downloading %s (%s)", clip.ID, clip.Locator)
	if err := t.run(ctx, t.opts.YtDlpPath, args, out.Path); err != nil {
		return filesystem.Artifact{}, fmt.Errorf("fetch %s: %w", clip.ID, err)
	}
	return out, nil
}

// Trim cuts the clip window out of the fetched video. When the downloader
// already fetched only the window, the cut starts at zero.
func (t *Transcoder) Trim(ctx context.Context, ws *filesystem.Workspace, clip catalog.Clip, in filesystem.Artifact) (filesystem.Artifact, error) {
	start := clip.StartOffset()
	if t.section(clip) != nil {
		start = 0
	}
	length := t.opts.ClampDuration(clip.Length(0))

	out := ws.Reserve(StageTrim, ".mp4")
	if err := t.run(ctx, t.opts.FFmpegPath, t.opts.TrimArgs(in.Path, out.Path, start, length), out.Path); err != nil {
		return filesystem.Artifact{}, fmt.Errorf("trim %s: %w", clip.ID, err)
	}
	return out, nil
}

// Reformat converts the trimmed clip to the vertical output frame.
func (t *Transcoder) Reformat(ctx context.Context, ws *filesystem.Workspace, in filesystem.Artifact) (filesystem.Artifact, error) {
	out := ws.Reserve(StageReformat, ".mp4")
	if err := t.run(ctx, t.opts.FFmpegPath, t.opts.ReformatArgs(in.Path, out.Path), out.Path); err != nil {
		return filesystem.Artifact{}, fmt.Errorf("reformat: %w", err)
	}
	return out, nil
}

// Caption burns transcribed subtitles into the video. Any failure other
// than context cancellation returns the input unchanged with a nil error.
func (t *Transcoder) Caption(ctx context.Context, ws *filesystem.Workspace, in filesystem.Artifact) (filesystem.Artifact, error) {
	if t.transcriber == nil {
		return in, nil
	}

	audio := ws.Reserve("audio", ".mp3")
	srt := ws.Reserve("subtitles", ".srt")
	defer func() {
		_ = ws.Release(audio.Path)
		_ = ws.Release(srt.Path)
	}()

	degrade := func(err error) (filesystem.Artifact, error) {
		if ctx.Err() != nil {
			return filesystem.Artifact{}, fmt.Errorf("caption: %w", ctx.Err())
		}
		logging.Warn("Captioning skipped: %v", err)
		return in, nil
	}

	if err := t.run(ctx, t.opts.FFmpegPath, t.opts.ExtractAudioArgs(in.Path, audio.Path), audio.Path); err != nil {
		return degrade(fmt.Errorf("extract audio: %w", err))
	}

	text, err := t.transcriber.Transcribe(ctx, audio.Path)
	if err != nil {
		return degrade(fmt.Errorf("transcribe: %w", err))
	}
	if len(text) == 0 {
		return degrade(errors.New("transcribe: empty subtitles"))
	}
	if err := os.WriteFile(srt.Path, []byte(text), 0o644); err != nil {
		return degrade(fmt.Errorf("write subtitles: %w", err))
	}

	out := ws.Reserve(StageCaption, ".mp4")
	if err := t.run(ctx, t.opts.FFmpegPath, t.opts.BurnSubtitlesArgs(in.Path, srt.Path, out.Path), out.Path); err != nil {
		_ = ws.Release(out.Path)
		return degrade(fmt.Errorf("burn subtitles: %w", err))
	}
	return out, nil
}

// run executes one tool invocation and verifies its output file.
func (t *Transcoder) run(ctx context.Context, name string, args []string, output string) error {
	start := time.Now()
	if _, err := t.runner.Run(ctx, name, args); err != nil {
		return err
	}
	if !filesystem.NonEmptyFile(output) {
		return fmt.Errorf("%w: %s", ErrOutputMissing, output)
	}
	logging.Debug("%s finished in %v", name, time.Since(start).Round(time.Millisecond))
	return nil
}
