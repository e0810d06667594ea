// Package vault encrypts and stores sensitive payloads keyed by owner,
// independent of task logic. Records are sealed with authenticated
// encryption; key material is versioned so rotation never strands old data.
package vault

import (
	"crypto/rand"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"time"

	"context"

	"github.com/guichet-dev/guichet/internal/logging"
	"github.com/guichet-dev/guichet/pkg/domain"
	"github.com/guichet-dev/guichet/pkg/ports"
)

// Vault stores and retrieves encrypted payloads through an opaque blob
// store. Payloads are bound to their owner and classification via the AEAD's
// associated data, so a record cannot be replayed under a different owner
// even if the blob store is compromised.
type Vault struct {
	keyring *Keyring
	blobs   ports.BlobStore
	logger  *slog.Logger
	now     func() time.Time
}

// Option configures the Vault.
type Option func(*Vault)

// WithLogger sets the structured logger. The vault logs access decisions and
// integrity failures, never payloads.
func WithLogger(logger *slog.Logger) Option {
	return func(v *Vault) {
		v.logger = logger
	}
}

// WithKeyring injects pre-built key material (e.g. restored from a KMS).
func WithKeyring(k *Keyring) Option {
	return func(v *Vault) {
		v.keyring = k
	}
}

// WithClock overrides the record timestamp source.
func WithClock(now func() time.Time) Option {
	return func(v *Vault) {
		v.now = now
	}
}

// New creates a Vault over the given blob store. Without WithKeyring a fresh
// AES-256-GCM keyring is generated.
func New(blobs ports.BlobStore, opts ...Option) (*Vault, error) {
	v := &Vault{
		blobs:  blobs,
		logger: logging.NewNop(),
		now:    func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(v)
	}

	if v.keyring == nil {
		keyring, err := NewKeyring(CipherAESGCM)
		if err != nil {
			return nil, err
		}
		v.keyring = keyring
	}
	return v, nil
}

// aad binds a ciphertext to its owner and tier.
func aad(ownerID string, class Classification) []byte {
	return []byte(ownerID + ":" + string(class))
}

// Store encrypts payload under the active key of the classification tier and
// persists the record. Returns the new record id.
func (v *Vault) Store(ctx context.Context, ownerID string, payload []byte, class Classification) (string, error) {
	if ownerID == "" {
		return "", &domain.ValidationError{Key: "owner_id", Reason: "must not be empty"}
	}
	if !class.Valid() {
		return "", &domain.ValidationError{Key: "classification", Reason: "unknown tier", Value: string(class)}
	}

	version := v.keyring.ActiveVersion()
	aead, err := v.keyring.aead(version, class)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	id, err := newRecordID()
	if err != nil {
		return "", err
	}

	rec := &Record{
		ID:             id,
		OwnerID:        ownerID,
		Classification: class,
		Cipher:         v.keyring.Suite(),
		Ciphertext:     aead.Seal(nil, nonce, payload, aad(ownerID, class)),
		Nonce:          nonce,
		KeyVersion:     version,
		CreatedAt:      v.now(),
	}

	blob, err := json.Marshal(rec)
	if err != nil {
		return "", fmt.Errorf("failed to encode record: %w", err)
	}
	if err := v.blobs.Put(ctx, id, blob); err != nil {
		return "", fmt.Errorf("failed to persist record: %w", err)
	}

	v.logger.Info("vault record stored",
		"record_id", id,
		"classification", class,
		"key_version", version,
	)
	return id, nil
}

// Retrieve loads, authorizes and decrypts a record. The ownership check runs
// before any decryption attempt; an authentication-tag mismatch surfaces as
// domain.ErrEncryption and is a data-integrity failure, not retriable.
func (v *Vault) Retrieve(ctx context.Context, recordID, requesterID string) ([]byte, error) {
	rec, err := v.load(ctx, recordID)
	if err != nil {
		return nil, err
	}

	if rec.OwnerID != requesterID {
		v.logger.Warn("vault access denied",
			"record_id", recordID,
			"requester_id", requesterID,
		)
		return nil, domain.ErrAccessDenied
	}

	aead, err := v.keyring.aead(rec.KeyVersion, rec.Classification)
	if err != nil {
		return nil, err
	}

	plaintext, err := aead.Open(nil, rec.Nonce, rec.Ciphertext, aad(rec.OwnerID, rec.Classification))
	if err != nil {
		v.logger.Error("vault integrity failure", "record_id", recordID)
		return nil, fmt.Errorf("%w: record %s", domain.ErrEncryption, recordID)
	}
	return plaintext, nil
}

// Erase permanently deletes a record's ciphertext after an ownership check.
// Used to satisfy data-subject erasure requests.
func (v *Vault) Erase(ctx context.Context, recordID, requesterID string) error {
	rec, err := v.load(ctx, recordID)
	if err != nil {
		return err
	}
	if rec.OwnerID != requesterID {
		v.logger.Warn("vault erase denied",
			"record_id", recordID,
			"requester_id", requesterID,
		)
		return domain.ErrAccessDenied
	}

	if err := v.blobs.Delete(ctx, recordID); err != nil {
		return fmt.Errorf("failed to erase record: %w", err)
	}
	v.logger.Info("vault record erased", "record_id", recordID)
	return nil
}

// RotateKeys introduces a new key version for future writes and returns it.
// Existing records stay decryptable under their stored version; migration is
// lazy (ReEncrypt) or an out-of-band maintenance pass.
func (v *Vault) RotateKeys() (int, error) {
	version, err := v.keyring.Rotate()
	if err != nil {
		return 0, err
	}
	v.logger.Info("vault keys rotated", "active_version", version)
	return version, nil
}

// ReEncrypt migrates one record to the active key version, keeping its id.
// Intended for the maintenance pass after a rotation; never called
// mid-dispatch.
func (v *Vault) ReEncrypt(ctx context.Context, recordID, ownerID string) error {
	rec, err := v.load(ctx, recordID)
	if err != nil {
		return err
	}
	if rec.OwnerID != ownerID {
		return domain.ErrAccessDenied
	}

	active := v.keyring.ActiveVersion()
	if rec.KeyVersion == active {
		return nil
	}

	oldAEAD, err := v.keyring.aead(rec.KeyVersion, rec.Classification)
	if err != nil {
		return err
	}
	plaintext, err := oldAEAD.Open(nil, rec.Nonce, rec.Ciphertext, aad(rec.OwnerID, rec.Classification))
	if err != nil {
		return fmt.Errorf("%w: record %s", domain.ErrEncryption, recordID)
	}

	newAEAD, err := v.keyring.aead(active, rec.Classification)
	if err != nil {
		return err
	}
	nonce := make([]byte, newAEAD.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return fmt.Errorf("failed to generate nonce: %w", err)
	}

	rec.Ciphertext = newAEAD.Seal(nil, nonce, plaintext, aad(rec.OwnerID, rec.Classification))
	rec.Nonce = nonce
	rec.KeyVersion = active
	rec.Cipher = v.keyring.Suite()

	blob, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to encode record: %w", err)
	}
	if err := v.blobs.Put(ctx, rec.ID, blob); err != nil {
		return fmt.Errorf("failed to persist re-encrypted record: %w", err)
	}

	v.logger.Info("vault record re-encrypted",
		"record_id", recordID,
		"key_version", active,
	)
	return nil
}

func (v *Vault) load(ctx context.Context, recordID string) (*Record, error) {
	blob, err := v.blobs.Get(ctx, recordID)
	if err != nil {
		return nil, err
	}
	var rec Record
	if err := json.Unmarshal(blob, &rec); err != nil {
		return nil, fmt.Errorf("failed to decode record %s: %w", recordID, err)
	}
	return &rec, nil
}
