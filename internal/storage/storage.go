package storage

import (
	"context"
	"io"
)

// ImageStore persists product images and serves back a public URL for
// each saved file.
type ImageStore interface {
	// Save writes the image under filename and returns the URL clients
	// should use to fetch it.
	Save(ctx context.Context, filename string, r io.Reader, contentType string) (string, error)
	// Delete removes a previously saved image given the URL returned by
	// Save. Deleting an unknown URL is not an error.
	Delete(ctx context.Context, url string) error
}
