package memory

import (
	"context"

	cache "github.com/patrickmn/go-cache"

	"github.com/guichet-dev/guichet/pkg/domain"
)

// BlobStore implements ports.BlobStore over an in-process cache.
// Vault records live until explicitly erased; an optional TTL supports
// retention-limited deployments.
type BlobStore struct {
	c *cache.Cache
}

// NewBlobStore creates a store whose blobs never expire.
func NewBlobStore() *BlobStore {
	return &BlobStore{c: cache.New(cache.NoExpiration, 0)}
}

// Put stores a blob. The write is a single map assignment, so readers see
// either the previous blob or the full new one, never a partial record.
func (s *BlobStore) Put(ctx context.Context, id string, blob []byte) error {
	s.c.Set(id, append([]byte(nil), blob...), cache.DefaultExpiration)
	return nil
}

// Get retrieves a blob.
func (s *BlobStore) Get(ctx context.Context, id string) ([]byte, error) {
	v, ok := s.c.Get(id)
	if !ok {
		return nil, domain.ErrRecordNotFound
	}
	blob := v.([]byte)
	return append([]byte(nil), blob...), nil
}

// Delete removes a blob.
func (s *BlobStore) Delete(ctx context.Context, id string) error {
	s.c.Delete(id)
	return nil
}
