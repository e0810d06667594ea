// Package file provides a filesystem-backed blob store for vault records.
package file

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/guichet-dev/guichet/pkg/domain"
)

// BlobStore implements ports.BlobStore on the local filesystem, one file per
// record. Writes go through a temp file, fsync and rename, so a crash can
// never leave a partial record behind.
type BlobStore struct {
	BasePath string
}

// New creates a BlobStore rooted at basePath.
// If basePath is empty, it defaults to ".guichet/vault".
func New(basePath string) *BlobStore {
	if basePath == "" {
		basePath = filepath.Join(".guichet", "vault")
	}
	return &BlobStore{BasePath: basePath}
}

func (s *BlobStore) path(id string) string {
	return filepath.Join(s.BasePath, id+".json")
}

// Put persists a blob atomically.
func (s *BlobStore) Put(ctx context.Context, id string, blob []byte) error {
	if id == "" {
		return fmt.Errorf("blob id cannot be empty")
	}
	if err := os.MkdirAll(s.BasePath, 0o700); err != nil {
		return fmt.Errorf("failed to ensure vault directory: %w", err)
	}

	// Same directory as the destination so the rename stays on one filesystem.
	tmp, err := os.CreateTemp(s.BasePath, "tmp-"+id+"-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(blob); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write blob: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync blob: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Rename(tmpPath, s.path(id)); err != nil {
		return fmt.Errorf("failed to finalize blob: %w", err)
	}
	return nil
}

// Get retrieves a blob.
func (s *BlobStore) Get(ctx context.Context, id string) ([]byte, error) {
	blob, err := os.ReadFile(s.path(id))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, domain.ErrRecordNotFound
		}
		return nil, fmt.Errorf("failed to read blob: %w", err)
	}
	return blob, nil
}

// Delete removes a blob. Absent ids are not an error.
func (s *BlobStore) Delete(ctx context.Context, id string) error {
	if err := os.Remove(s.path(id)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to delete blob: %w", err)
	}
	return nil
}
