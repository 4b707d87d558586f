// Package storage provides object storage operations with Azure Blob Storage
// and Amazon S3 implementations behind a single System interface.
package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/JaimeStill/tally/pkg/lifecycle"
)

// System manages object storage operations and lifecycle coordination.
type System interface {
	// Start registers a startup hook that verifies or creates the container.
	Start(lc *lifecycle.Coordinator) error
	// Upload streams data to the object at key with the given content type,
	// replacing any existing object.
	Upload(ctx context.Context, key string, reader io.Reader, contentType string) error
	// Download returns a stream for the object at key. The caller must close the reader.
	// Returns ErrNotFound if the object does not exist.
	Download(ctx context.Context, key string) (io.ReadCloser, error)
	// Delete removes the object at key. Returns ErrNotFound if the object does not exist.
	Delete(ctx context.Context, key string) error
	// Exists reports whether an object exists at key.
	Exists(ctx context.Context, key string) (bool, error)
}

// Uploader writes objects.
type Uploader interface {
	Upload(ctx context.Context, key string, reader io.Reader, contentType string) error
}

// Downloader reads objects.
type Downloader interface {
	Download(ctx context.Context, key string) (io.ReadCloser, error)
}

// New creates the storage system selected by cfg.Provider.
// Clients are constructed eagerly; no network call happens until Start.
func New(cfg *Config, logger *slog.Logger) (System, error) {
	logger = logger.With("system", "storage", "provider", cfg.Provider)

	switch cfg.Provider {
	case ProviderAzure:
		return newAzure(cfg, logger)
	case ProviderS3:
		return newS3(cfg, logger)
	default:
		return nil, fmt.Errorf("unknown storage provider %q", cfg.Provider)
	}
}

// Put uploads data in full.
func Put(ctx context.Context, s Uploader, key string, data []byte, contentType string) error {
	return s.Upload(ctx, key, bytes.NewReader(data), contentType)
}

// Get downloads the object at key in full.
func Get(ctx context.Context, s Downloader, key string) ([]byte, error) {
	body, err := s.Download(ctx, key)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	data, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("read object %s: %w", key, err)
	}
	return data, nil
}

// Join builds a storage key from path segments, skipping empty ones.
func Join(segments ...string) string {
	parts := make([]string, 0, len(segments))
	for _, s := range segments {
		if s = strings.Trim(s, "/"); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, "/")
}

func validateKey(key string) error {
	if key == "" {
		return ErrEmptyKey
	}
	if strings.Contains(key, "..") {
		return ErrInvalidKey
	}
	return nil
}
