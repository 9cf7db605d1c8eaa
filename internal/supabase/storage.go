package supabase

import (
	"context"
	"fmt"
	"io"

	storage_go "github.com/supabase-community/storage-go"
)

// DefaultBucket is the media bucket used when none is configured.
const DefaultBucket = "social-media"

// Upload stores r at path inside the configured bucket and returns the
// object's public URL. Existing objects are never overwritten.
//
// The storage SDK takes no context, so the call runs in its own goroutine
// and Upload returns as soon as ctx ends. An abandoned request finishes in
// the background; with upsert off it can at worst leave an orphan object.
func (c *Client) Upload(ctx context.Context, path string, r io.Reader, contentType string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	done := make(chan error, 1)
	go func() {
		// The SDK keeps upload options in headers shared by every call.
		c.uploadMu.Lock()
		defer c.uploadMu.Unlock()

		upsert := false
		_, err := c.sdk.Storage.UploadFile(c.cfg.Bucket, path, r, storage_go.FileOptions{
			ContentType: &contentType,
			Upsert:      &upsert,
		})
		done <- err
	}()

	select {
	case <-ctx.Done():
		return "", fmt.Errorf("upload %s/%s: %w", c.cfg.Bucket, path, ctx.Err())
	case err := <-done:
		if err != nil {
			return "", fmt.Errorf("upload %s/%s: %w", c.cfg.Bucket, path, err)
		}
	}

	return c.PublicURL(path), nil
}

// PublicURL returns the public URL of an object in the configured bucket.
func (c *Client) PublicURL(path string) string {
	return c.sdk.Storage.GetPublicUrl(c.cfg.Bucket, path).SignedURL
}
