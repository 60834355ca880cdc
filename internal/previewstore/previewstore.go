// Package previewstore holds the display copies of images a session has
// selected. A key returned by Save is a preview reference; Delete releases it.
package previewstore

import (
	"context"
	"errors"
	"io"
)

var ErrNotFound = errors.New("preview not found")

type PreviewStore interface {
	Save(ctx context.Context, prefix, mimeType string, r io.Reader) (key string, err error)
	Get(ctx context.Context, key string) (io.ReadCloser, string, error)
	Delete(ctx context.Context, key string) error
}
