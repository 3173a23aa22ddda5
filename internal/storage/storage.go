// Package storage persists corrected images.
package storage

import (
	"context"
	"image"
	"io"
)

// Writer stores encoded images under a key.
type Writer interface {
	// Save encodes img in the format implied by name's extension and
	// returns the path it was written to.
	Save(ctx context.Context, name string, img image.Image) (string, error)
}

// Reader provides read access to stored images.
type Reader interface {
	// GetReader returns a reader for the image at the given key
	GetReader(ctx context.Context, key string) (io.ReadCloser, error)

	// Exists checks if an image exists at the given key
	Exists(ctx context.Context, key string) (bool, error)
}

// Store is a Writer whose results can be read back.
type Store interface {
	Writer
	Reader
}
