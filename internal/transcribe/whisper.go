// Package transcribe produces SRT subtitles for clip audio using the OpenAI
// transcription API.
package transcribe

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"reel-clipper/internal/filesystem"
	"reel-clipper/internal/logging"
)

// Config configures the transcription client.
type Config struct {
	APIKey   string
	BaseURL  string
	Model    string
	Language string
	// MaxRetries is passed to the SDK; nil keeps its default.
	MaxRetries *int
}

// Whisper implements transcoder.Transcriber.
type Whisper struct {
	client   openai.Client
	model    openai.AudioModel
	language string
}

// New creates a Whisper transcriber. An empty APIKey is an error; callers
// treat that as "captions disabled".
func New(cfg Config) (*Whisper, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("transcribe: missing API key")
	}

	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.MaxRetries != nil {
		opts = append(opts, option.WithMaxRetries(*cfg.MaxRetries))
	}

	model := openai.AudioModelWhisper1
	if cfg.Model != "" {
		model = openai.AudioModel(cfg.Model)
	}

	return &Whisper{
		client:   openai.NewClient(opts...),
		model:    model,
		language: cfg.Language,
	}, nil
}

// Transcribe uploads the audio file and returns the SRT body.
func (w *Whisper) Transcribe(ctx context.Context, audioPath string) (string, error) {
	f, err := filesystem.OpenWithRetry(audioPath, filesystem.DefaultRetryConfig())
	if err != nil {
		return "", fmt.Errorf("open audio: %w", err)
	}
	defer f.Close()

	params := openai.AudioTranscriptionNewParams{
		File:           openai.File(f, filepath.Base(audioPath), "audio/mpeg"),
		Model:          w.model,
		ResponseFormat: openai.AudioResponseFormatSRT,
	}
	if w.language != "" {
		params.Language = openai.String(w.language)
	}

	// SRT is returned as plain text, not JSON.
	var raw []byte
	if _, err := w.client.Audio.Transcriptions.New(ctx, params, option.WithResponseBodyInto(&raw)); err != nil {
		return "", fmt.Errorf("transcription request: %w", err)
	}

	srt := strings.TrimSpace(string(raw))
	logging.Debug("Transcribed %s: %d bytes of subtitles", filepath.Base(audioPath), len(srt))
	return srt, nil
}
