// Package authz decides who may call what: API key checks for the public
// /apis/v1 surface and role checks for the admin surface.
//
// Both the HTTP server and the MCP server import this package; neither
// imports the other.
package authz

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/wevote/wevoteserver/internal/auth"
	"github.com/wevote/wevoteserver/internal/model"
)

// KeyStore looks up API keys. *storage.DB implements it.
type KeyStore interface {
	GetActiveAPIKeysByPrefix(ctx context.Context, prefix string) ([]model.APIKey, error)
	TouchAPIKey(ctx context.Context, id uuid.UUID) error
}

// KeyVerifier checks raw API keys against the api_keys table, with an
// optional bootstrap key taken from configuration.
type KeyVerifier struct {
	store     KeyStore
	cache     *KeyCache
	bootstrap string
	logger    *slog.Logger
}

// NewKeyVerifier creates a KeyVerifier. cache may be nil.
func NewKeyVerifier(store KeyStore, cache *KeyCache, bootstrapKey string, logger *slog.Logger) *KeyVerifier {
	return &KeyVerifier{store: store, cache: cache, bootstrap: bootstrapKey, logger: logger}
}

func fingerprint(rawKey string) string {
	sum := sha256.Sum256([]byte(rawKey))
	return hex.EncodeToString(sum[:])
}

// Verify reports whether rawKey is the bootstrap key or an unrevoked stored key.
func (v *KeyVerifier) Verify(ctx context.Context, rawKey string) (bool, error) {
	if rawKey == "" {
		return false, nil
	}
	fp := fingerprint(rawKey)
	if v.cache != nil {
		if _, ok := v.cache.Get(fp); ok {
			return true, nil
		}
	}
	if v.bootstrap != "" && subtle.ConstantTimeCompare([]byte(rawKey), []byte(v.bootstrap)) == 1 {
		v.remember(fp, uuid.Nil)
		return true, nil
	}

	prefix, err := model.ParseRawKey(rawKey)
	if err != nil {
		auth.DummyVerify()
		return false, nil
	}
	keys, err := v.store.GetActiveAPIKeysByPrefix(ctx, prefix)
	if err != nil {
		return false, fmt.Errorf("authz: lookup api key: %w", err)
	}
	if len(keys) == 0 {
		auth.DummyVerify()
		return false, nil
	}
	for _, k := range keys {
		ok, err := auth.VerifyAPIKey(rawKey, k.KeyHash)
		if err != nil {
			v.logger.Warn("authz: stored api key hash is malformed", "api_key_id", k.ID, "error", err)
			continue
		}
		if !ok {
			continue
		}
		if err := v.store.TouchAPIKey(ctx, k.ID); err != nil {
			v.logger.Warn("authz: touch api key failed", "api_key_id", k.ID, "error", err)
		}
		v.remember(fp, k.ID)
		return true, nil
	}
	return false, nil
}

// Forget evicts a revoked key from the cache.
func (v *KeyVerifier) Forget(keyID uuid.UUID) {
	if v.cache != nil {
		v.cache.Forget(keyID)
	}
}

func (v *KeyVerifier) remember(fp string, id uuid.UUID) {
	if v.cache != nil {
		v.cache.Set(fp, id)
	}
}

// Allowed reports whether claims carry a role ranked at or above min.
// Nil claims are never allowed.
func Allowed(claims *auth.Claims, min model.VoterRole) bool {
	return claims != nil && claims.HasRoleAtLeast(min)
}
