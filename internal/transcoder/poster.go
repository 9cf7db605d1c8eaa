package transcoder

import (
	"bytes"
	"context"
	"fmt"
	"image/jpeg"

	"github.com/disintegration/imaging"
)

// Poster extracts a cover frame from the video and returns it as a JPEG
// filling the configured poster size.
func (t *Transcoder) Poster(ctx context.Context, videoPath string) ([]byte, error) {
	out, err := t.runner.Run(ctx, t.opts.FFmpegPath, t.opts.PosterArgs(videoPath))
	if err != nil {
		return nil, fmt.Errorf("poster frame: %w", err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("poster frame: %w", ErrOutputMissing)
	}
	return EncodePoster(out, t.opts.PosterWidth, t.opts.PosterHeight)
}

// EncodePoster decodes the PNG frame from PosterArgs and re-encodes it as a
// width x height JPEG, cropping around the centre.
func EncodePoster(frame []byte, width, height int) ([]byte, error) {
	img, err := imaging.Decode(bytes.NewReader(frame))
	if err != nil {
		return nil, fmt.Errorf("decode frame: %w", err)
	}

	thumb := imaging.Fill(img, width, height, imaging.Center, imaging.Lanczos)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, thumb, &jpeg.Options{Quality: 80}); err != nil {
		return nil, fmt.Errorf("encode poster: %w", err)
	}
	return buf.Bytes(), nil
}
