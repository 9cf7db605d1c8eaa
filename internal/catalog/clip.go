package catalog

import (
	"errors"
	"fmt"
	"net/url"
	"time"
)

// Category labels what happens in a clip. Caption templates are keyed by it.
type Category string

// Known categories. Catalog files may use others; they simply get the
// fallback caption set.
const (
	CategoryMassivePot  Category = "massive_pot"
	CategoryBluff       Category = "bluff"
	CategoryBadBeat     Category = "bad_beat"
	CategorySoulRead    Category = "soul_read"
	CategoryTableDrama  Category = "table_drama"
	CategoryCelebrity   Category = "celebrity"
	CategoryFunny       Category = "funny"
	CategoryEducational Category = "educational"
	CategoryVlog        Category = "vlog"
	CategoryHighStakes  Category = "high_stakes"
	CategoryTournament  Category = "tournament"
)

const watchURLPrefix = "https://www.youtube.com/watch?v="

var (
	// ErrInvalid is wrapped by every catalog validation error.
	ErrInvalid = errors.New("invalid catalog")
	// ErrNotFound is returned when no clip satisfies the constraints.
	ErrNotFound = errors.New("no candidate clip")
	// ErrUnknownClip is returned for operations on ids the store never loaded.
	ErrUnknownClip = errors.New("unknown clip")
)

// Source is an upstream channel that clips are taken from.
type Source struct {
	Key     string `yaml:"key"`
	Name    string `yaml:"name"`
	Channel string `yaml:"channel,omitempty"`
	Region  string `yaml:"region,omitempty"`
	Type    string `yaml:"type,omitempty"`
}

// Clip is one candidate piece of source material.
//
// Start and Duration are optional and expressed in whole seconds in the
// catalog file. UsedCount and LastUsed are runtime state owned by Store.
type Clip struct {
	ID       string   `yaml:"id"`
	VideoID  string   `yaml:"video_id,omitempty"`
	Locator  string   `yaml:"source_url,omitempty"`
	Source   string   `yaml:"source"`
	Title    string   `yaml:"title"`
	Category Category `yaml:"category"`
	Tags     []string `yaml:"tags,omitempty"`
	Start    *int     `yaml:"start,omitempty"`
	Duration *int     `yaml:"duration,omitempty"`

	UsedCount int        `yaml:"-"`
	LastUsed  *time.Time `yaml:"-"`
}

// StartOffset returns the configured start offset, or zero.
func (c Clip) StartOffset() time.Duration {
	if c.Start == nil {
		return 0
	}
	return time.Duration(*c.Start) * time.Second
}

// Length returns the configured duration, or def when the clip has none.
func (c Clip) Length(def time.Duration) time.Duration {
	if c.Duration == nil {
		return def
	}
	return time.Duration(*c.Duration) * time.Second
}

// normalize derives the locator from the video id when only the id is given.
func (c *Clip) normalize() {
	if c.Locator == "" && c.VideoID != "" {
		c.Locator = watchURLPrefix + c.VideoID
	}
}

func (c *Clip) validate(sources map[string]Source) error {
	if c.ID == "" {
		return fmt.Errorf("%w: clip with empty id", ErrInvalid)
	}
	if c.Source == "" {
		return fmt.Errorf("%w: clip %q has no source", ErrInvalid, c.ID)
	}
	if _, ok := sources[c.Source]; !ok {
		return fmt.Errorf("%w: clip %q references unknown source %q", ErrInvalid, c.ID, c.Source)
	}
	if c.Category == "" {
		return fmt.Errorf("%w: clip %q has no category", ErrInvalid, c.ID)
	}
	if c.Locator == "" {
		return fmt.Errorf("%w: clip %q needs source_url or video_id", ErrInvalid, c.ID)
	}
	u, err := url.Parse(c.Locator)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: clip %q has malformed locator %q", ErrInvalid, c.ID, c.Locator)
	}
	if c.Start != nil && *c.Start < 0 {
		return fmt.Errorf("%w: clip %q has negative start", ErrInvalid, c.ID)
	}
	if c.Duration != nil && *c.Duration <= 0 {
		return fmt.Errorf("%w: clip %q has non-positive duration", ErrInvalid, c.ID)
	}
	return nil
}
