package supabase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"reel-clipper/internal/logging"
)

// Table names.
const (
	TablePosts       = "social_posts"
	TableStories     = "stories"
	TableAuthors     = "content_authors"
	TableAssignments = "author_source_assignments"
)

// Post is a row in social_posts.
type Post struct {
	AuthorID    string   `json:"author_id"`
	Content     string   `json:"content"`
	ContentType string   `json:"content_type"`
	MediaURLs   []string `json:"media_urls"`
	Visibility  string   `json:"visibility"`
}

// Story is a row in stories.
type Story struct {
	AuthorID  string    `json:"author_id"`
	MediaURL  string    `json:"media_url"`
	MediaType string    `json:"media_type"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Author is an active content author. ProfileID is the id posts are
// attributed to.
type Author struct {
	ID        string `json:"id"`
	ProfileID string `json:"profile_id"`
	Name      string `json:"name"`
	Username  string `json:"username"`
}

// Label returns the most readable name available for log lines.
func (a Author) Label() string {
	switch {
	case a.Name != "":
		return a.Name
	case a.Username != "":
		return "@" + a.Username
	default:
		return a.ProfileID
	}
}

type insertedRow struct {
	ID string `json:"id"`
}

// CreatePost inserts a post and returns its id.
func (c *Client) CreatePost(ctx context.Context, p Post) (string, error) {
	id, err := c.insert(ctx, TablePosts, p)
	if err != nil {
		return "", fmt.Errorf("create post: %w", err)
	}
	return id, nil
}

// CreateStory inserts a story and returns its id.
func (c *Client) CreateStory(ctx context.Context, s Story) (string, error) {
	id, err := c.insert(ctx, TableStories, s)
	if err != nil {
		return "", fmt.Errorf("create story: %w", err)
	}
	return id, nil
}

func (c *Client) insert(ctx context.Context, table string, row interface{}) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	var rows []insertedRow
	if _, err := c.sdk.From(table).Insert(row, false, "", "representation", "").ExecuteTo(&rows); err != nil {
		return "", err
	}
	if len(rows) == 0 {
		return "", errors.New("insert returned no rows")
	}
	return rows[0].ID, nil
}

// ActiveAuthors lists authors that are active and linked to a profile.
func (c *Client) ActiveAuthors(ctx context.Context) ([]Author, error) {
	if c.db != nil {
		return c.activeAuthorsSQL(ctx)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var authors []Author
	_, err := c.sdk.From(TableAuthors).
		Select("id,profile_id,name,username", "", false).
		Eq("is_active", "true").
		Not("profile_id", "is", "null").
		ExecuteTo(&authors)
	if err != nil {
		return nil, fmt.Errorf("list active authors: %w", err)
	}

	sortAuthors(authors)
	logging.Debug("Loaded %d active authors over REST", len(authors))
	return authors, nil
}

func (c *Client) activeAuthorsSQL(ctx context.Context) ([]Author, error) {
	rows, err := c.db.QueryContext(ctx, `
		SELECT id::text, profile_id::text, COALESCE(name, ''), COALESCE(username, '')
		FROM content_authors
		WHERE is_active = true AND profile_id IS NOT NULL
	`)
	if err != nil {
		return nil, fmt.Errorf("list active authors: %w", err)
	}
	defer rows.Close()

	var authors []Author
	for rows.Next() {
		var a Author
		if err := rows.Scan(&a.ID, &a.ProfileID, &a.Name, &a.Username); err != nil {
			return nil, fmt.Errorf("scan author: %w", err)
		}
		authors = append(authors, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list active authors: %w", err)
	}

	sortAuthors(authors)
	logging.Debug("Loaded %d active authors over SQL", len(authors))
	return authors, nil
}

func sortAuthors(authors []Author) {
	sort.Slice(authors, func(i, j int) bool {
		return authors[i].ProfileID < authors[j].ProfileID
	})
}

type assignmentRow struct {
	SourceKey string `json:"source_key"`
	Rank      int    `json:"rank"`
}

// SourceAssignments returns the exclusive sources recorded for an author,
// primary first. An empty result means no row exists and the caller
// should fall back to computed assignments.
func (c *Client) SourceAssignments(ctx context.Context, authorID string) ([]string, error) {
	var rows []assignmentRow

	if c.db != nil {
		sqlRows, err := c.db.QueryContext(ctx,
			`SELECT source_key, rank FROM author_source_assignments WHERE author_id::text = $1`, authorID)
		if err != nil {
			return nil, fmt.Errorf("load source assignments: %w", err)
		}
		defer sqlRows.Close()
		for sqlRows.Next() {
			var r assignmentRow
			if err := sqlRows.Scan(&r.SourceKey, &r.Rank); err != nil {
				return nil, fmt.Errorf("scan source assignment: %w", err)
			}
			rows = append(rows, r)
		}
		if err := sqlRows.Err(); err != nil {
			return nil, fmt.Errorf("load source assignments: %w", err)
		}
	} else {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		_, err := c.sdk.From(TableAssignments).
			Select("source_key,rank", "", false).
			Eq("author_id", authorID).
			ExecuteTo(&rows)
		if err != nil {
			return nil, fmt.Errorf("load source assignments: %w", err)
		}
	}

	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Rank < rows[j].Rank })
	keys := make([]string, 0, len(rows))
	for _, r := range rows {
		keys = append(keys, r.SourceKey)
	}
	return keys, nil
}
