package transcoder

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"reel-clipper/internal/catalog"
)

// Options holds encoder and downloader parameters. Zero values are not
// valid; start from DefaultOptions.
type Options struct {
	YtDlpPath   string
	FFmpegPath  string
	CookiesFile string

	// DownloadSections asks the downloader for just the clip window when
	// the clip has a start offset.
	DownloadSections  bool
	MaxDownloadHeight int

	MinClip     time.Duration
	MaxClip     time.Duration
	DefaultClip time.Duration

	Width     int
	Height    int
	FPS       int
	CRF       int
	MaxOutput time.Duration

	PosterWidth  int
	PosterHeight int
}

// DefaultOptions returns 720x1280 output at 24fps, clips clamped to 15-60s.
func DefaultOptions() Options {
	return Options{
		YtDlpPath:         "yt-dlp",
		FFmpegPath:        "ffmpeg",
		DownloadSections:  true,
		MaxDownloadHeight: 720,
		MinClip:           15 * time.Second,
		MaxClip:           60 * time.Second,
		DefaultClip:       30 * time.Second,
		Width:             720,
		Height:            1280,
		FPS:               24,
		CRF:               28,
		MaxOutput:         45 * time.Second,
		PosterWidth:       540,
		PosterHeight:      960,
	}
}

// ClampDuration bounds d to [MinClip, MaxClip]; non-positive d means
// DefaultClip.
func (o Options) ClampDuration(d time.Duration) time.Duration {
	if d <= 0 {
		d = o.DefaultClip
	}
	if d < o.MinClip {
		return o.MinClip
	}
	if d > o.MaxClip {
		return o.MaxClip
	}
	return d
}

// Section is a time window of the remote video.
type Section struct {
	Start time.Duration
	End   time.Duration
}

func (s Section) String() string {
	return "*" + catalog.FormatTimestamp(s.Start) + "-" + catalog.FormatTimestamp(s.End)
}

// DownloadArgs builds the downloader argument vector. section may be nil.
func (o Options) DownloadArgs(locator, output string, section *Section) []string {
	args := []string{
		"--extractor-args", "youtube:player_client=web",
		"-f", fmt.Sprintf("best[height<=%d]", o.MaxDownloadHeight),
		"--merge-output-format", "mp4",
		"-o", output,
		"--no-playlist",
	}
	if section != nil {
		args = append(args, "--download-sections", section.String())
	}
	if o.CookiesFile != "" {
		args = append(args, "--cookies", o.CookiesFile)
	}
	return append(args, "--", locator)
}

// TrimArgs cuts [start, start+length) and re-encodes it.
func (o Options) TrimArgs(input, output string, start, length time.Duration) []string {
	return []string{
		"-y",
		"-ss", catalog.FormatTimestamp(start),
		"-i", input,
		"-t", seconds(length),
		"-c:v", "libx264",
		"-preset", "fast",
		"-crf", "23",
		"-c:a", "aac",
		"-b:a", "192k",
		"-movflags", "+faststart",
		output,
	}
}

// VerticalFilter fills the frame with a blurred, cropped copy of the input
// and overlays the aspect-preserved input centred on top.
func (o Options) VerticalFilter() string {
	w, h := o.Width, o.Height
	return fmt.Sprintf(
		"[0:v]scale=%d:%d:force_original_aspect_ratio=increase,crop=%d:%d,boxblur=15:8[bg];"+
			"[0:v]scale=%d:-2:force_original_aspect_ratio=decrease[fg];"+
			"[bg][fg]overlay=(W-w)/2:(H-h)/2",
		w, h, w, h, w)
}

// ReformatArgs converts any aspect ratio to the fixed vertical frame.
func (o Options) ReformatArgs(input, output string) []string {
	return []string{
		"-y",
		"-i", input,
		"-t", seconds(o.MaxOutput),
		"-filter_complex", o.VerticalFilter(),
		"-c:v", "libx264",
		"-preset", "fast",
		"-crf", strconv.Itoa(o.CRF),
		"-c:a", "aac",
		"-b:a", "128k",
		"-r", strconv.Itoa(o.FPS),
		"-movflags", "+faststart",
		output,
	}
}

// ExtractAudioArgs writes a 16kHz mp3 for transcription.
func (o Options) ExtractAudioArgs(input, output string) []string {
	return []string{
		"-y",
		"-i", input,
		"-vn",
		"-acodec", "mp3",
		"-ar", "16000",
		output,
	}
}

const subtitleStyle = "FontName=Arial,FontSize=24,PrimaryColour=&Hffffff&," +
	"OutlineColour=&H000000&,Outline=2,Alignment=2"

// BurnSubtitlesArgs renders an SRT file into the video stream.
func (o Options) BurnSubtitlesArgs(input, srt, output string) []string {
	return []string{
		"-y",
		"-i", input,
		"-vf", fmt.Sprintf("subtitles=%s:force_style='%s'", escapeFilterPath(srt), subtitleStyle),
		"-c:v", "libx264",
		"-preset", "fast",
		"-crf", "23",
		"-c:a", "copy",
		output,
	}
}

// PosterArgs grabs one frame at 1s as PNG on stdout.
func (o Options) PosterArgs(input string) []string {
	return []string{
		"-ss", "00:00:01",
		"-i", input,
		"-vframes", "1",
		"-f", "image2pipe",
		"-vcodec", "png",
		"-",
	}
}

// escapeFilterPath escapes characters that end a filter option value.
func escapeFilterPath(p string) string {
	r := strings.NewReplacer(`\`, `\\`, `:`, `\:`, `'`, `\'`, `,`, `\,`)
	return r.Replace(p)
}

func seconds(d time.Duration) string {
	return strconv.Itoa(int(d / time.Second))
}
