// Package storage holds attachment bytes in a flat keyspace. The path returned
// by Save is recorded verbatim on the attachment and is the only handle used
// to read the bytes back.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spec-kit/helpdesk/internal/config"
)

// ErrNotFound is returned by Open and Remove for unknown paths.
var ErrNotFound = errors.New("stored object not found")

// Store persists and serves attachment bytes.
type Store interface {
	Save(ctx context.Context, name string, r io.Reader, size int64, contentType string) (string, error)
	Open(ctx context.Context, path string) (io.ReadCloser, error)
	Remove(ctx context.Context, path string) error
}

// New builds the store selected by cfg.Backend.
func New(ctx context.Context, cfg config.StorageConfig) (Store, error) {
	switch strings.ToLower(cfg.Backend) {
	case "", "local":
		return NewLocalStore(cfg.UploadDir)
	case "s3":
		return NewS3Store(ctx, cfg)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}

func validName(name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("invalid object name %q", name)
	}
	return nil
}
