package redis

import (
	"context"
	"fmt"

	backend "github.com/redis/go-redis/v9"

	"github.com/guichet-dev/guichet/pkg/domain"
)

// BlobStore implements ports.BlobStore on Redis. A blob is one SET, which is
// atomic on the server side: readers observe the previous value or the full
// new one, never a torn write.
type BlobStore struct {
	client *backend.Client
	prefix string
}

// BlobStoreOption configures the BlobStore.
type BlobStoreOption func(*BlobStore)

// WithBlobPrefix overrides the key prefix.
func WithBlobPrefix(prefix string) BlobStoreOption {
	return func(s *BlobStore) {
		s.prefix = prefix
	}
}

// NewBlobStoreFromClient creates a BlobStore from an existing client.
func NewBlobStoreFromClient(client *backend.Client, opts ...BlobStoreOption) *BlobStore {
	s := &BlobStore{
		client: client,
		prefix: "guichet:vault:",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *BlobStore) key(id string) string {
	return s.prefix + id
}

// Put stores a blob.
func (s *BlobStore) Put(ctx context.Context, id string, blob []byte) error {
	if err := s.client.Set(ctx, s.key(id), blob, 0).Err(); err != nil {
		return fmt.Errorf("failed to store blob: %w", err)
	}
	return nil
}

// Get retrieves a blob.
func (s *BlobStore) Get(ctx context.Context, id string) ([]byte, error) {
	val, err := s.client.Get(ctx, s.key(id)).Bytes()
	if err != nil {
		if err == backend.Nil {
			return nil, domain.ErrRecordNotFound
		}
		return nil, fmt.Errorf("failed to get blob: %w", err)
	}
	return val, nil
}

// Delete removes a blob.
func (s *BlobStore) Delete(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, s.key(id)).Err(); err != nil {
		return fmt.Errorf("failed to delete blob: %w", err)
	}
	return nil
}
