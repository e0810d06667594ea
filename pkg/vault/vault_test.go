package vault

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guichet-dev/guichet/pkg/adapters/memory"
	"github.com/guichet-dev/guichet/pkg/domain"
)

func newTestVault(t *testing.T) (*Vault, *memory.BlobStore) {
	t.Helper()
	blobs := memory.NewBlobStore()
	v, err := New(blobs)
	require.NoError(t, err)
	return v, blobs
}

func TestStoreRetrieveRoundtrip(t *testing.T) {
	ctx := context.Background()
	v, _ := newTestVault(t)

	payload := []byte(`{"numero_fiscal":"1234567890123"}`)
	id, err := v.Store(ctx, "owner-a", payload, ClassConfidential)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(id, "VLT-"), "record id should carry the vault prefix, got %s", id)

	got, err := v.Retrieve(ctx, id, "owner-a")
	require.NoError(t, err)
	assert.Equal(t, payload, got)
}

func TestStoreValidation(t *testing.T) {
	ctx := context.Background()
	v, _ := newTestVault(t)

	_, err := v.Store(ctx, "", []byte("x"), ClassInternal)
	var vErr *domain.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "owner_id", vErr.Key)

	_, err = v.Store(ctx, "owner-a", []byte("x"), Classification("top-secret"))
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "classification", vErr.Key)
}

func TestRetrieveDeniedForNonOwner(t *testing.T) {
	ctx := context.Background()
	v, _ := newTestVault(t)

	id, err := v.Store(ctx, "owner-a", []byte("secret"), ClassSecret)
	require.NoError(t, err)

	_, err = v.Retrieve(ctx, id, "owner-b")
	assert.ErrorIs(t, err, domain.ErrAccessDenied)
}

func TestRetrieveUnknownRecord(t *testing.T) {
	ctx := context.Background()
	v, _ := newTestVault(t)

	_, err := v.Retrieve(ctx, "VLT-DOESNOTEXIST", "owner-a")
	assert.ErrorIs(t, err, domain.ErrRecordNotFound)
}

func TestRetrieveTamperedCiphertext(t *testing.T) {
	ctx := context.Background()
	v, blobs := newTestVault(t)

	id, err := v.Store(ctx, "owner-a", []byte("authentic payload"), ClassConfidential)
	require.NoError(t, err)

	blob, err := blobs.Get(ctx, id)
	require.NoError(t, err)
	var rec Record
	require.NoError(t, json.Unmarshal(blob, &rec))

	rec.Ciphertext[0] ^= 0xFF
	tampered, err := json.Marshal(&rec)
	require.NoError(t, err)
	require.NoError(t, blobs.Put(ctx, id, tampered))

	_, err = v.Retrieve(ctx, id, "owner-a")
	assert.ErrorIs(t, err, domain.ErrEncryption)
	assert.False(t, domain.IsTransientSubmission(err))
}

func TestRetrieveRejectsSwappedOwner(t *testing.T) {
	ctx := context.Background()
	v, blobs := newTestVault(t)

	id, err := v.Store(ctx, "owner-a", []byte("bound to a"), ClassConfidential)
	require.NoError(t, err)

	// Rewriting the stored owner must not grant the new owner access:
	// the ciphertext is bound to the original owner through the AEAD's
	// associated data.
	blob, err := blobs.Get(ctx, id)
	require.NoError(t, err)
	var rec Record
	require.NoError(t, json.Unmarshal(blob, &rec))
	rec.OwnerID = "owner-b"
	forged, err := json.Marshal(&rec)
	require.NoError(t, err)
	require.NoError(t, blobs.Put(ctx, id, forged))

	_, err = v.Retrieve(ctx, id, "owner-b")
	assert.ErrorIs(t, err, domain.ErrEncryption)
}

func TestErase(t *testing.T) {
	ctx := context.Background()
	v, _ := newTestVault(t)

	id, err := v.Store(ctx, "owner-a", []byte("to erase"), ClassInternal)
	require.NoError(t, err)

	assert.ErrorIs(t, v.Erase(ctx, id, "owner-b"), domain.ErrAccessDenied)

	require.NoError(t, v.Erase(ctx, id, "owner-a"))
	_, err = v.Retrieve(ctx, id, "owner-a")
	assert.ErrorIs(t, err, domain.ErrRecordNotFound)
}

func TestRotateKeepsOldRecordsReadable(t *testing.T) {
	ctx := context.Background()
	v, _ := newTestVault(t)

	before := []byte("written under v1")
	id, err := v.Store(ctx, "owner-a", before, ClassSecret)
	require.NoError(t, err)

	version, err := v.RotateKeys()
	require.NoError(t, err)
	assert.Equal(t, 2, version)

	got, err := v.Retrieve(ctx, id, "owner-a")
	require.NoError(t, err)
	assert.Equal(t, before, got)

	// New writes use the new version.
	id2, err := v.Store(ctx, "owner-a", []byte("written under v2"), ClassSecret)
	require.NoError(t, err)
	got2, err := v.Retrieve(ctx, id2, "owner-a")
	require.NoError(t, err)
	assert.Equal(t, []byte("written under v2"), got2)
}

func TestReEncrypt(t *testing.T) {
	ctx := context.Background()
	v, blobs := newTestVault(t)

	payload := []byte("migrate me")
	id, err := v.Store(ctx, "owner-a", payload, ClassConfidential)
	require.NoError(t, err)

	_, err = v.RotateKeys()
	require.NoError(t, err)

	assert.ErrorIs(t, v.ReEncrypt(ctx, id, "owner-b"), domain.ErrAccessDenied)
	require.NoError(t, v.ReEncrypt(ctx, id, "owner-a"))

	blob, err := blobs.Get(ctx, id)
	require.NoError(t, err)
	var rec Record
	require.NoError(t, json.Unmarshal(blob, &rec))
	assert.Equal(t, 2, rec.KeyVersion)
	assert.Equal(t, id, rec.ID)

	got, err := v.Retrieve(ctx, id, "owner-a")
	require.NoError(t, err)
	assert.Equal(t, payload, got)

	// Re-encrypting an already-current record is a no-op.
	require.NoError(t, v.ReEncrypt(ctx, id, "owner-a"))
}

func TestChaCha20Suite(t *testing.T) {
	ctx := context.Background()
	keyring, err := NewKeyring(CipherChaCha20)
	require.NoError(t, err)

	v, err := New(memory.NewBlobStore(), WithKeyring(keyring))
	require.NoError(t, err)

	payload := []byte("chacha payload")
	id, err := v.Store(ctx, "owner-a", payload, ClassInternal)
	require.NoError(t, err)

	got, err := v.Retrieve(ctx, id, "owner-a")
	require.NoError(t, err)
	assert.Equal(t, payload, got)
}

func TestUnknownCipherSuite(t *testing.T) {
	_, err := NewKeyring(CipherSuite("rot13"))
	assert.Error(t, err)
}

func TestClassificationTiersUseDistinctKeys(t *testing.T) {
	keyring, err := NewKeyring(CipherAESGCM)
	require.NoError(t, err)

	a, err := keyring.aead(1, ClassPublic)
	require.NoError(t, err)
	b, err := keyring.aead(1, ClassSecret)
	require.NoError(t, err)

	nonce := make([]byte, a.NonceSize())
	sealed := a.Seal(nil, nonce, []byte("cross-tier"), nil)
	_, err = b.Open(nil, nonce, sealed, nil)
	assert.Error(t, err, "a secret-tier key must not open public-tier ciphertext")
}

func TestConcurrentRetrieveDuringRotation(t *testing.T) {
	ctx := context.Background()
	v, _ := newTestVault(t)

	payload := []byte("stable under rotation")
	id, err := v.Store(ctx, "owner-a", payload, ClassConfidential)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := v.Retrieve(ctx, id, "owner-a")
			assert.NoError(t, err)
			assert.Equal(t, payload, got)
		}()
	}
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := v.RotateKeys()
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
}
