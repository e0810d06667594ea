package vault

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"io"
	"sync"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"
)

// Classification is the sensitivity tier governing which derived key
// protects a record.
type Classification string

const (
	ClassPublic       Classification = "public"
	ClassInternal     Classification = "internal"
	ClassConfidential Classification = "confidential"
	ClassSecret       Classification = "secret"
)

// Valid reports whether the classification is a known tier.
func (c Classification) Valid() bool {
	switch c {
	case ClassPublic, ClassInternal, ClassConfidential, ClassSecret:
		return true
	}
	return false
}

// CipherSuite selects the authenticated-encryption algorithm.
type CipherSuite string

const (
	CipherAESGCM   CipherSuite = "aes-256-gcm"
	CipherChaCha20 CipherSuite = "chacha20-poly1305"
)

const masterKeySize = 32

// Keyring holds the versioned master keys. Per-tier encryption keys are
// derived with HKDF-SHA256 so records of different classifications never
// share key material, and rotation only changes the key used for new writes:
// every historical version stays available for decryption.
//
// The active version reference is guarded by a read/write lock; concurrent
// decryptions referencing older versions never block on rotation.
type Keyring struct {
	mu      sync.RWMutex
	masters [][]byte // index i holds version i+1
	suite   CipherSuite
}

// NewKeyring creates a keyring with a fresh random version-1 master key.
func NewKeyring(suite CipherSuite) (*Keyring, error) {
	switch suite {
	case CipherAESGCM, CipherChaCha20:
	default:
		return nil, fmt.Errorf("unsupported cipher suite %q", suite)
	}

	master, err := newMasterKey()
	if err != nil {
		return nil, err
	}
	return &Keyring{masters: [][]byte{master}, suite: suite}, nil
}

func newMasterKey() ([]byte, error) {
	key := make([]byte, masterKeySize)
	if _, err := io.ReadFull(rand.Reader, key); err != nil {
		return nil, fmt.Errorf("failed to generate master key: %w", err)
	}
	return key, nil
}

// Suite returns the cipher suite used for new writes.
func (k *Keyring) Suite() CipherSuite {
	return k.suite
}

// ActiveVersion returns the key version used for new writes.
func (k *Keyring) ActiveVersion() int {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return len(k.masters)
}

// Rotate introduces a new master key version for future writes and returns
// its version number. Existing versions remain decryptable.
func (k *Keyring) Rotate() (int, error) {
	master, err := newMasterKey()
	if err != nil {
		return 0, err
	}

	k.mu.Lock()
	k.masters = append(k.masters, master)
	version := len(k.masters)
	k.mu.Unlock()
	return version, nil
}

// aead builds the AEAD for a given key version and classification tier.
func (k *Keyring) aead(version int, class Classification) (cipher.AEAD, error) {
	k.mu.RLock()
	if version < 1 || version > len(k.masters) {
		k.mu.RUnlock()
		return nil, fmt.Errorf("unknown key version %d", version)
	}
	master := k.masters[version-1]
	k.mu.RUnlock()

	key := make([]byte, masterKeySize)
	kdf := hkdf.New(sha256.New, master, nil, []byte("guichet/vault/"+string(class)))
	if _, err := io.ReadFull(kdf, key); err != nil {
		return nil, fmt.Errorf("failed to derive tier key: %w", err)
	}

	switch k.suite {
	case CipherChaCha20:
		return chacha20poly1305.New(key)
	default:
		block, err := aes.NewCipher(key)
		if err != nil {
			return nil, err
		}
		return cipher.NewGCM(block)
	}
}
