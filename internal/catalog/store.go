package catalog

import (
	"math/rand/v2"
	"sort"
	"sync"
	"time"
)

// Constraints narrow a selection. The zero value selects from everything.
type Constraints struct {
	// ExcludeIDs are never returned.
	ExcludeIDs map[string]struct{}
	// ReuseWindow drops clips used more recently than this.
	ReuseWindow time.Duration
	// PreferCategory narrows to one category, falling back when empty.
	PreferCategory Category
	// RotateFrom narrows to clips from any other source, falling back when
	// that leaves nothing.
	RotateFrom string
	// OnlySources narrows to a source subset, falling back when empty.
	OnlySources []string
}

// Exclude returns a copy of c with id added to the exclusion set.
func (c Constraints) Exclude(id string) Constraints {
	ids := make(map[string]struct{}, len(c.ExcludeIDs)+1)
	for k := range c.ExcludeIDs {
		ids[k] = struct{}{}
	}
	ids[id] = struct{}{}
	c.ExcludeIDs = ids
	return c
}

// Stats is a point-in-time summary of catalog usage.
type Stats struct {
	Clips   int
	Used    int
	Leased  int
	Sources int
}

// Store owns the clip set and its usage counters. All reads and writes go
// through its mutex; callers receive copies.
type Store struct {
	mu       sync.Mutex
	clips    []*Clip
	byID     map[string]*Clip
	leased   map[string]struct{}
	sources  []Source
	captions map[Category][]string
	rng      *rand.Rand
	now      func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithRand makes selection deterministic. The generator is only used under
// the store lock.
func WithRand(r *rand.Rand) Option {
	return func(s *Store) { s.rng = r }
}

// NewStore builds a store from a validated catalog.
func NewStore(c *Catalog, opts ...Option) *Store {
	s := &Store{
		byID:     make(map[string]*Clip, len(c.Clips)),
		leased:   make(map[string]struct{}),
		sources:  append([]Source(nil), c.Sources...),
		captions: c.Captions,
		rng:      rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0x5eed)),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	for i := range c.Clips {
		clip := c.Clips[i]
		clip.Tags = append([]string(nil), clip.Tags...)
		s.clips = append(s.clips, &clip)
		s.byID[clip.ID] = &clip
	}
	return s
}

// Select picks a clip without changing any state. Repeated calls may return
// the same clip.
func (s *Store) Select(c Constraints) (Clip, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	clip, err := s.selectLocked(c, false)
	if err != nil {
		return Clip{}, err
	}
	return clip.snapshot(), nil
}

// Acquire selects a clip and leases it so concurrent callers cannot pick the
// same id until Release.
func (s *Store) Acquire(c Constraints) (Clip, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	clip, err := s.selectLocked(c, true)
	if err != nil {
		return Clip{}, err
	}
	s.leased[clip.ID] = struct{}{}
	return clip.snapshot(), nil
}

// Release drops a lease taken by Acquire. Releasing an unleased id is a no-op.
func (s *Store) Release(id string) {
	s.mu.Lock()
	delete(s.leased, id)
	s.mu.Unlock()
}

// MarkUsed records one consumption of the clip at the current time.
func (s *Store) MarkUsed(id string) (Clip, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	clip, ok := s.byID[id]
	if !ok {
		return Clip{}, ErrUnknownClip
	}
	now := s.now()
	clip.UsedCount++
	clip.LastUsed = &now
	return clip.snapshot(), nil
}

// Restore applies usage persisted by an earlier process. Counts never go
// down and last-used never moves backwards. Unknown ids are ignored so a
// ledger can outlive catalog edits.
func (s *Store) Restore(id string, count int, lastUsed time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	clip, ok := s.byID[id]
	if !ok {
		return
	}
	if count > clip.UsedCount {
		clip.UsedCount = count
	}
	if !lastUsed.IsZero() && (clip.LastUsed == nil || lastUsed.After(*clip.LastUsed)) {
		t := lastUsed
		clip.LastUsed = &t
	}
}

// Get returns a copy of a clip by id.
func (s *Store) Get(id string) (Clip, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	clip, ok := s.byID[id]
	if !ok {
		return Clip{}, false
	}
	return clip.snapshot(), true
}

// Source returns the source definition for key.
func (s *Store) Source(key string) (Source, bool) {
	for _, src := range s.sources {
		if src.Key == key {
			return src, true
		}
	}
	return Source{}, false
}

// SourceKeys returns source keys in catalog order.
func (s *Store) SourceKeys() []string {
	keys := make([]string, len(s.sources))
	for i, src := range s.sources {
		keys[i] = src.Key
	}
	return keys
}

// Stats implements the metrics collector's provider.
func (s *Store) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := Stats{Clips: len(s.clips), Leased: len(s.leased), Sources: len(s.sources)}
	for _, c := range s.clips {
		if c.UsedCount > 0 {
			st.Used++
		}
	}
	return st
}

// Caption picks a post caption for the category, falling back to the
// massive_pot set and finally to the empty string.
func (s *Store) Caption(cat Category) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	templates := s.captions[cat]
	if len(templates) == 0 {
		templates = s.captions[CategoryMassivePot]
	}
	if len(templates) == 0 {
		return ""
	}
	return templates[s.rng.IntN(len(templates))]
}

func (s *Store) selectLocked(c Constraints, skipLeased bool) (*Clip, error) {
	now := s.now()

	candidates := make([]*Clip, 0, len(s.clips))
	for _, clip := range s.clips {
		if _, excluded := c.ExcludeIDs[clip.ID]; excluded {
			continue
		}
		if skipLeased {
			if _, leased := s.leased[clip.ID]; leased {
				continue
			}
		}
		if c.ReuseWindow > 0 && clip.LastUsed != nil && now.Sub(*clip.LastUsed) < c.ReuseWindow {
			continue
		}
		candidates = append(candidates, clip)
	}

	if len(c.OnlySources) > 0 {
		allowed := make(map[string]struct{}, len(c.OnlySources))
		for _, k := range c.OnlySources {
			allowed[k] = struct{}{}
		}
		candidates = narrow(candidates, func(clip *Clip) bool {
			_, ok := allowed[clip.Source]
			return ok
		})
	}
	if c.PreferCategory != "" {
		candidates = narrow(candidates, func(clip *Clip) bool {
			return clip.Category == c.PreferCategory
		})
	}
	if c.RotateFrom != "" {
		candidates = narrow(candidates, func(clip *Clip) bool {
			return clip.Source != c.RotateFrom
		})
	}

	if len(candidates) == 0 {
		return nil, ErrNotFound
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].UsedCount != candidates[j].UsedCount {
			return candidates[i].UsedCount < candidates[j].UsedCount
		}
		return candidates[i].ID < candidates[j].ID
	})

	half := (len(candidates) + 1) / 2
	return candidates[s.rng.IntN(half)], nil
}

// narrow keeps the clips matching keep, or returns the input unchanged when
// nothing matches.
func narrow(clips []*Clip, keep func(*Clip) bool) []*Clip {
	var out []*Clip
	for _, clip := range clips {
		if keep(clip) {
			out = append(out, clip)
		}
	}
	if len(out) == 0 {
		return clips
	}
	return out
}

func (c *Clip) snapshot() Clip {
	out := *c
	out.Tags = append([]string(nil), c.Tags...)
	if c.LastUsed != nil {
		t := *c.LastUsed
		out.LastUsed = &t
	}
	return out
}
