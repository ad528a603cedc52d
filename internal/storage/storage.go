// Package storage holds uploaded files: CSV import files and campaign
// images. Backends are local disk for development and S3 for production.
package storage

import (
	"context"
	"fmt"
	"io"

	"github.com/ignite/courier/internal/config"
)

// FileStore abstracts blob storage. Keys are slash-separated relative
// paths, e.g. "imports/3f2a.csv".
type FileStore interface {
	// Save writes the full reader contents under key, overwriting any
	// previous object.
	Save(ctx context.Context, key string, r io.Reader) error
	// Open returns a reader for the object. The caller closes it.
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	// Delete removes the object. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	// Exists reports whether the object is present.
	Exists(ctx context.Context, key string) (bool, error)
}

// New builds the configured backend.
func New(ctx context.Context, cfg config.StorageConfig) (FileStore, error) {
	switch cfg.Backend {
	case "local", "":
		return NewLocalStore(cfg.LocalPath)
	case "s3":
		return NewS3Store(ctx, cfg)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}
