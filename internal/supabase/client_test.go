package supabase

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedRequest struct {
	Method string
	Path   string
	Query  map[string]string
	Prefer string
	Body   []byte
}

// fakeProject serves the subset of the storage and REST APIs the client uses.
type fakeProject struct {
	mu       sync.Mutex
	requests []recordedRequest
	handler  func(w http.ResponseWriter, r *http.Request, body []byte)
}

func (f *fakeProject) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	q := make(map[string]string)
	for k, v := range r.URL.Query() {
		q[k] = strings.Join(v, ",")
	}

	f.mu.Lock()
	f.requests = append(f.requests, recordedRequest{
		Method: r.Method,
		Path:   r.URL.Path,
		Query:  q,
		Prefer: r.Header.Get("Prefer"),
		Body:   body,
	})
	f.mu.Unlock()

	f.handler(w, r, body)
}

func (f *fakeProject) last(t *testing.T) recordedRequest {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.requests)
	return f.requests[len(f.requests)-1]
}

func newTestClient(t *testing.T, handler func(w http.ResponseWriter, r *http.Request, body []byte)) (*Client, *fakeProject) {
	t.Helper()
	fake := &fakeProject{handler: handler}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	c, err := New(context.Background(), Config{URL: srv.URL, Key: "service-key"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c, fake
}

func writeJSONBody(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestNewRequiresURLAndKey(t *testing.T) {
	_, err := New(context.Background(), Config{URL: "https://example.supabase.co"})
	assert.Error(t, err)

	_, err = New(context.Background(), Config{Key: "k"})
	assert.Error(t, err)
}

func TestNewDefaultsBucket(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request, _ []byte) {
		w.WriteHeader(http.StatusOK)
	})
	assert.Equal(t, DefaultBucket, c.Bucket())
	assert.False(t, c.HasDirectDB())
}

func TestUpload(t *testing.T) {
	c, fake := newTestClient(t, func(w http.ResponseWriter, _ *http.Request, _ []byte) {
		writeJSONBody(w, http.StatusOK, map[string]string{"Key": "social-media/reels/clips/a.mp4"})
	})

	url, err := c.Upload(context.Background(), "reels/clips/a.mp4", strings.NewReader("mp4-bytes"), "video/mp4")
	require.NoError(t, err)

	req := fake.last(t)
	assert.Equal(t, http.MethodPost, req.Method)
	assert.Equal(t, "/storage/v1/object/social-media/reels/clips/a.mp4", req.Path)
	assert.Contains(t, url, "/object/public/social-media/reels/clips/a.mp4")
}

func TestUploadCanceledContext(t *testing.T) {
	c, fake := newTestClient(t, func(w http.ResponseWriter, _ *http.Request, _ []byte) {
		w.WriteHeader(http.StatusOK)
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Upload(ctx, "reels/clips/a.mp4", strings.NewReader("x"), "video/mp4")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, fake.requests)
}

func TestUploadReturnsWhenContextEnds(t *testing.T) {
	release := make(chan struct{})
	c, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request, _ []byte) {
		<-release
		w.WriteHeader(http.StatusOK)
	})
	t.Cleanup(func() { close(release) })

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := c.Upload(ctx, "reels/clips/a.mp4", strings.NewReader("x"), "video/mp4")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestCreatePost(t *testing.T) {
	c, fake := newTestClient(t, func(w http.ResponseWriter, _ *http.Request, _ []byte) {
		writeJSONBody(w, http.StatusCreated, []map[string]string{{"id": "post-1"}})
	})

	id, err := c.CreatePost(context.Background(), Post{
		AuthorID:    "profile-1",
		Content:     "Hero call of the year",
		ContentType: "video",
		MediaURLs:   []string{"https://cdn/x.mp4"},
		Visibility:  "public",
	})
	require.NoError(t, err)
	assert.Equal(t, "post-1", id)

	req := fake.last(t)
	assert.Equal(t, http.MethodPost, req.Method)
	assert.Equal(t, "/rest/v1/social_posts", req.Path)
	assert.Contains(t, req.Prefer, "return=representation")

	var sent map[string]interface{}
	require.NoError(t, json.Unmarshal(req.Body, &sent))
	assert.Equal(t, "profile-1", sent["author_id"])
	assert.Equal(t, "video", sent["content_type"])
	assert.Equal(t, "public", sent["visibility"])
	assert.Equal(t, []interface{}{"https://cdn/x.mp4"}, sent["media_urls"])
}

func TestCreatePostError(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request, _ []byte) {
		writeJSONBody(w, http.StatusBadRequest, map[string]string{
			"code":    "23502",
			"message": "null value in column \"author_id\"",
		})
	})

	_, err := c.CreatePost(context.Background(), Post{Content: "x"})
	assert.Error(t, err)
}

func TestCreateStory(t *testing.T) {
	c, fake := newTestClient(t, func(w http.ResponseWriter, _ *http.Request, _ []byte) {
		writeJSONBody(w, http.StatusCreated, []map[string]string{{"id": "story-9"}})
	})

	expires := time.Date(2026, 10, 20, 12, 0, 0, 0, time.UTC)
	id, err := c.CreateStory(context.Background(), Story{
		AuthorID:  "profile-1",
		MediaURL:  "https://cdn/x.mp4",
		MediaType: "video",
		ExpiresAt: expires,
	})
	require.NoError(t, err)
	assert.Equal(t, "story-9", id)

	req := fake.last(t)
	assert.Equal(t, "/rest/v1/stories", req.Path)

	var sent map[string]interface{}
	require.NoError(t, json.Unmarshal(req.Body, &sent))
	assert.Equal(t, "2026-10-20T12:00:00Z", sent["expires_at"])
}

func TestActiveAuthorsREST(t *testing.T) {
	c, fake := newTestClient(t, func(w http.ResponseWriter, _ *http.Request, _ []byte) {
		writeJSONBody(w, http.StatusOK, []map[string]interface{}{
			{"id": "a2", "profile_id": "p-b", "name": "River Rat", "username": nil},
			{"id": "a1", "profile_id": "p-a", "name": nil, "username": "nitdog"},
		})
	})

	authors, err := c.ActiveAuthors(context.Background())
	require.NoError(t, err)
	require.Len(t, authors, 2)
	assert.Equal(t, "p-a", authors[0].ProfileID)
	assert.Equal(t, "@nitdog", authors[0].Label())
	assert.Equal(t, "River Rat", authors[1].Label())

	req := fake.last(t)
	assert.Equal(t, http.MethodGet, req.Method)
	assert.Equal(t, "/rest/v1/content_authors", req.Path)
	assert.Equal(t, "eq.true", req.Query["is_active"])
	assert.Equal(t, "not.is.null", req.Query["profile_id"])
}

func TestSourceAssignmentsREST(t *testing.T) {
	c, fake := newTestClient(t, func(w http.ResponseWriter, _ *http.Request, _ []byte) {
		writeJSONBody(w, http.StatusOK, []map[string]interface{}{
			{"source_key": "lodge", "rank": 2},
			{"source_key": "hcl", "rank": 0},
			{"source_key": "triton", "rank": 1},
		})
	})

	keys, err := c.SourceAssignments(context.Background(), "p-a")
	require.NoError(t, err)
	assert.Equal(t, []string{"hcl", "triton", "lodge"}, keys)

	req := fake.last(t)
	assert.Equal(t, "/rest/v1/author_source_assignments", req.Path)
	assert.Equal(t, "eq.p-a", req.Query["author_id"])
}

func TestAuthorLabel(t *testing.T) {
	tests := []struct {
		name   string
		author Author
		want   string
	}{
		{"name wins", Author{Name: "Doyle", Username: "tx", ProfileID: "p"}, "Doyle"},
		{"username", Author{Username: "tx", ProfileID: "p"}, "@tx"},
		{"profile id", Author{ProfileID: "p"}, "p"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.author.Label())
		})
	}
}

func TestAddConnectionParam(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"postgres://h/db", "postgres://h/db?statement_cache_capacity=0"},
		{"postgres://h/db?sslmode=require", "postgres://h/db?sslmode=require&statement_cache_capacity=0"},
		{"postgres://h/db?statement_cache_capacity=5", "postgres://h/db?statement_cache_capacity=5"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, addConnectionParam(tt.in, "statement_cache_capacity", "0"))
	}
}
