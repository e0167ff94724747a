package model

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// APIKey is a credential for the public /apis/v1 surface. Only the argon2id
// hash is stored; the raw key is shown once at creation.
type APIKey struct {
	ID         uuid.UUID  `json:"id"`
	Prefix     string     `json:"prefix"`
	KeyHash    string     `json:"-"`
	Label      string     `json:"label"`
	CreatedBy  string     `json:"created_by"`
	CreatedAt  time.Time  `json:"created_at"`
	LastUsedAt *time.Time `json:"last_used_at,omitempty"`
	RevokedAt  *time.Time `json:"revoked_at,omitempty"`
}

// APIKeyWithRawKey is returned only on creation.
type APIKeyWithRawKey struct {
	APIKey
	RawKey string `json:"raw_key"`
}

const (
	keyPrefixLen    = 4
	keySecretLen    = 16
	keyFormatPrefix = "wv_"
)

// GenerateRawKey produces a key in the format wv_<8-char-prefix>_<32-char-secret>.
func GenerateRawKey() (rawKey, prefix string, err error) {
	prefixBytes := make([]byte, keyPrefixLen)
	if _, err := rand.Read(prefixBytes); err != nil {
		return "", "", fmt.Errorf("model: generate key prefix: %w", err)
	}
	secretBytes := make([]byte, keySecretLen)
	if _, err := rand.Read(secretBytes); err != nil {
		return "", "", fmt.Errorf("model: generate key secret: %w", err)
	}
	prefix = hex.EncodeToString(prefixBytes)
	rawKey = keyFormatPrefix + prefix + "_" + hex.EncodeToString(secretBytes)
	return rawKey, prefix, nil
}

// ParseRawKey extracts the lookup prefix from a raw key.
func ParseRawKey(rawKey string) (prefix string, err error) {
	if !strings.HasPrefix(rawKey, keyFormatPrefix) {
		return "", fmt.Errorf("model: invalid key format: missing %s prefix", keyFormatPrefix)
	}
	rest := rawKey[len(keyFormatPrefix):]
	underIdx := strings.IndexByte(rest, '_')
	if underIdx < 1 || underIdx == len(rest)-1 {
		return "", fmt.Errorf("model: invalid key format: expected wv_<prefix>_<secret>")
	}
	return rest[:underIdx], nil
}

// ValidateKeyLabel checks that a key label is reasonable.
func ValidateKeyLabel(label string) error {
	if len(label) > 255 {
		return fmt.Errorf("label must be at most 255 characters")
	}
	return nil
}
