package authz

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyCache_GetSet(t *testing.T) {
	c := NewKeyCache(time.Second)
	defer c.Close()

	_, ok := c.Get("fp")
	assert.False(t, ok)

	id := uuid.New()
	c.Set("fp", id)
	got, ok := c.Get("fp")
	require.True(t, ok)
	assert.Equal(t, id, got)
}

func TestKeyCache_BootstrapEntryIsHit(t *testing.T) {
	c := NewKeyCache(time.Second)
	defer c.Close()

	c.Set("bootstrap", uuid.Nil)
	got, ok := c.Get("bootstrap")
	assert.True(t, ok, "uuid.Nil must be distinguishable from a miss")
	assert.Equal(t, uuid.Nil, got)
}

func TestKeyCache_Expiry(t *testing.T) {
	c := NewKeyCache(50 * time.Millisecond)
	defer c.Close()

	c.Set("fp", uuid.New())
	_, ok := c.Get("fp")
	require.True(t, ok)

	time.Sleep(60 * time.Millisecond)
	_, ok = c.Get("fp")
	assert.False(t, ok, "entry should have expired")
}

func TestKeyCache_EvictExpired(t *testing.T) {
	c := NewKeyCache(10 * time.Millisecond)
	defer c.Close()

	c.Set("a", uuid.New())
	c.Set("b", uuid.New())
	time.Sleep(20 * time.Millisecond)
	c.evictExpired()
	assert.Equal(t, 0, c.Len())
}

func TestKeyCache_Forget(t *testing.T) {
	c := NewKeyCache(time.Minute)
	defer c.Close()

	revoked, kept := uuid.New(), uuid.New()
	c.Set("one", revoked)
	c.Set("two", kept)
	c.Forget(revoked)

	_, ok := c.Get("one")
	assert.False(t, ok)
	_, ok = c.Get("two")
	assert.True(t, ok)
}

func TestKeyCache_CloseTwice(t *testing.T) {
	c := NewKeyCache(time.Minute)
	c.Close()
	assert.NotPanics(t, c.Close)
}
