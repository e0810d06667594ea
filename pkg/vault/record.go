package vault

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"strings"
	"time"
)

// Record is the persisted form of a vault entry. It never carries plaintext:
// only the vault itself can turn Ciphertext back into a payload, and only
// for the matching owner.
type Record struct {
	ID             string         `json:"id"`
	OwnerID        string         `json:"owner_id"`
	Classification Classification `json:"classification"`
	Cipher         CipherSuite    `json:"cipher"`
	Ciphertext     []byte         `json:"ciphertext"`
	Nonce          []byte         `json:"nonce"`
	KeyVersion     int            `json:"key_version"`
	CreatedAt      time.Time      `json:"created_at"`
}

// newRecordID generates a vault record identifier.
func newRecordID() (string, error) {
	raw := make([]byte, 16)
	if _, err := io.ReadFull(rand.Reader, raw); err != nil {
		return "", fmt.Errorf("failed to generate record id: %w", err)
	}
	return "VLT-" + strings.ToUpper(hex.EncodeToString(raw)), nil
}
