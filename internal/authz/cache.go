package authz

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// KeyCache is a short-TTL in-memory cache of verified API keys. It spares a
// DB lookup and an Argon2id hash on every /apis/v1 request.
//
// Key: SHA-256 fingerprint of the raw key. Value: the api_keys row id, or
// uuid.Nil for the bootstrap key.
type KeyCache struct {
	mu      sync.RWMutex
	entries map[string]cachedEntry
	ttl     time.Duration
	done    chan struct{}
	once    sync.Once
}

type cachedEntry struct {
	keyID     uuid.UUID
	expiresAt time.Time
}

// NewKeyCache creates a cache with the given TTL.
// Call Close to stop the background eviction goroutine.
func NewKeyCache(ttl time.Duration) *KeyCache {
	c := &KeyCache{
		entries: make(map[string]cachedEntry),
		ttl:     ttl,
		done:    make(chan struct{}),
	}
	go c.evictLoop()
	return c
}

// Get returns the cached key id for a fingerprint.
func (c *KeyCache) Get(fingerprint string) (uuid.UUID, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[fingerprint]
	if !ok || time.Now().After(entry.expiresAt) {
		return uuid.Nil, false
	}
	return entry.keyID, true
}

// Set stores a verified key id with the configured TTL.
func (c *KeyCache) Set(fingerprint string, keyID uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[fingerprint] = cachedEntry{keyID: keyID, expiresAt: time.Now().Add(c.ttl)}
}

// Forget drops every entry for keyID, e.g. after it is revoked.
func (c *KeyCache) Forget(keyID uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k, v := range c.entries {
		if v.keyID == keyID {
			delete(c.entries, k)
		}
	}
}

// Len returns the number of entries, expired ones included.
func (c *KeyCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Close stops the background eviction goroutine. Safe to call twice.
func (c *KeyCache) Close() {
	c.once.Do(func() { close(c.done) })
}

func (c *KeyCache) evictLoop() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			c.evictExpired()
		}
	}
}

func (c *KeyCache) evictExpired() {
	now := time.Now()
	c.mu.Lock()
	defer c.mu.Unlock()

	for k, v := range c.entries {
		if now.After(v.expiresAt) {
			delete(c.entries, k)
		}
	}
}
