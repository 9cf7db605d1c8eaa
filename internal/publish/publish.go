package publish

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"reel-clipper/internal/catalog"
	"reel-clipper/internal/filesystem"
	"reel-clipper/internal/logging"
	"reel-clipper/internal/supabase"
)

// Record field values.
const (
	ContentTypeVideo = "video"
	VisibilityPublic = "public"
	MediaTypeVideo   = "video"
)

// Storage uploads bytes and returns their public URL.
type Storage interface {
	Upload(ctx context.Context, path string, r io.Reader, contentType string) (string, error)
}

// Records creates post and story rows.
type Records interface {
	CreatePost(ctx context.Context, p supabase.Post) (string, error)
	CreateStory(ctx context.Context, s supabase.Story) (string, error)
}

// PosterSource renders a cover image for a video.
type PosterSource interface {
	Poster(ctx context.Context, videoPath string) ([]byte, error)
}

// Request is one clip ready to post.
type Request struct {
	AuthorID  string
	Clip      catalog.Clip
	Caption   string
	VideoPath string
}

// Result describes what Publish created.
type Result struct {
	PostID     string
	StoryID    string
	VideoURL   string
	PosterURL  string
	ObjectPath string
}

// Options configures a Publisher.
type Options struct {
	// PathPrefix is the object key prefix inside the bucket.
	PathPrefix string
	// Stories creates a story next to every post.
	Stories  bool
	StoryTTL time.Duration
}

// DefaultOptions returns the production layout.
func DefaultOptions() Options {
	return Options{
		PathPrefix: "reels/clips",
		Stories:    true,
		StoryTTL:   24 * time.Hour,
	}
}

// Publisher uploads a finished clip and creates its records.
type Publisher struct {
	storage Storage
	records Records
	posters PosterSource
	opts    Options
	now     func() time.Time
}

// New creates a Publisher. posters may be nil to skip cover images.
func New(storage Storage, records Records, posters PosterSource, opts Options) *Publisher {
	if opts.StoryTTL <= 0 {
		opts.StoryTTL = 24 * time.Hour
	}
	return &Publisher{
		storage: storage,
		records: records,
		posters: posters,
		opts:    opts,
		now:     time.Now,
	}
}

// Publish uploads the video and creates the post. Poster and story
// failures are logged and do not fail the call.
func (p *Publisher) Publish(ctx context.Context, req Request) (Result, error) {
	if req.AuthorID == "" {
		return Result{}, errors.New("publish: empty author id")
	}

	data, err := readVideo(req.VideoPath)
	if err != nil {
		return Result{}, err
	}

	base := p.objectBase()
	res := Result{ObjectPath: base + ".mp4"}

	res.VideoURL, err = p.storage.Upload(ctx, res.ObjectPath, bytes.NewReader(data), "video/mp4")
	if err != nil {
		return Result{}, fmt.Errorf("publish: %w", err)
	}
	logging.Debug("Uploaded %s (%d bytes)", res.ObjectPath, len(data))

	if p.posters != nil {
		res.PosterURL = p.uploadPoster(ctx, req.VideoPath, base+".jpg")
	}

	res.PostID, err = p.records.CreatePost(ctx, supabase.Post{
		AuthorID:    req.AuthorID,
		Content:     req.Caption,
		ContentType: ContentTypeVideo,
		MediaURLs:   []string{res.VideoURL},
		Visibility:  VisibilityPublic,
	})
	if err != nil {
		return Result{}, fmt.Errorf("publish: %w", err)
	}

	if p.opts.Stories {
		story, err := p.records.CreateStory(ctx, supabase.Story{
			AuthorID:  req.AuthorID,
			MediaURL:  res.VideoURL,
			MediaType: MediaTypeVideo,
			ExpiresAt: p.now().Add(p.opts.StoryTTL).UTC(),
		})
		if err != nil {
			logging.Warn("Story for post %s failed: %v", res.PostID, err)
		} else {
			res.StoryID = story
		}
	}

	return res, nil
}

func (p *Publisher) uploadPoster(ctx context.Context, videoPath, objectPath string) string {
	img, err := p.posters.Poster(ctx, videoPath)
	if err != nil {
		logging.Warn("Poster skipped: %v", err)
		return ""
	}
	url, err := p.storage.Upload(ctx, objectPath, bytes.NewReader(img), "image/jpeg")
	if err != nil {
		logging.Warn("Poster upload failed: %v", err)
		return ""
	}
	return url
}

// objectBase returns a unique key without extension, e.g.
// reels/clips/clip_1760870400000_1b4e28ba.
func (p *Publisher) objectBase() string {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	name := fmt.Sprintf("clip_%d_%s", p.now().UnixMilli(), id)
	return path.Join(p.opts.PathPrefix, name)
}

func readVideo(videoPath string) ([]byte, error) {
	f, err := filesystem.OpenWithRetry(videoPath, filesystem.DefaultRetryConfig())
	if err != nil {
		return nil, fmt.Errorf("publish: open video: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("publish: read video: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("publish: empty video %s", videoPath)
	}
	return data, nil
}
