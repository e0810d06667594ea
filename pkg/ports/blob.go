package ports

import "context"

// BlobStore is opaque storage for encrypted vault records, keyed by record
// id. It is written and read only by the vault.
type BlobStore interface {
	// Put stores a blob atomically: either the full blob is stored or
	// nothing is.
	Put(ctx context.Context, id string, blob []byte) error

	// Get retrieves a blob. Returns domain.ErrRecordNotFound if absent.
	Get(ctx context.Context, id string) ([]byte, error)

	// Delete permanently removes a blob. Deleting an absent id is not an
	// error.
	Delete(ctx context.Context, id string) error
}
