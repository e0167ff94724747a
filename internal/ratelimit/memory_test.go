package ratelimit

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLimiter(t *testing.T, rps float64, burst int) *MemoryLimiter {
	t.Helper()
	m := NewMemoryLimiter(rps, burst)
	t.Cleanup(func() { require.NoError(t, m.Close()) })
	return m
}

func allowN(t *testing.T, m *MemoryLimiter, key string, n int) int {
	t.Helper()
	allowed := 0
	for range n {
		ok, err := m.Allow(context.Background(), key)
		require.NoError(t, err)
		if ok {
			allowed++
		}
	}
	return allowed
}

func TestMemoryLimiterBurst(t *testing.T) {
	m := newLimiter(t, 1, 3)
	assert.Equal(t, 3, allowN(t, m, "k1", 5))
}

func TestMemoryLimiterRefill(t *testing.T) {
	m := newLimiter(t, 1000, 2)
	require.Equal(t, 2, allowN(t, m, "k1", 3))

	time.Sleep(5 * time.Millisecond)
	assert.Equal(t, 1, allowN(t, m, "k1", 1))
}

func TestMemoryLimiterIndependentKeys(t *testing.T) {
	m := newLimiter(t, 1, 1)
	assert.Equal(t, 1, allowN(t, m, "a", 2))
	assert.Equal(t, 1, allowN(t, m, "b", 1), "key b has its own bucket")
}

func TestMemoryLimiterConcurrent(t *testing.T) {
	m := newLimiter(t, 0.001, 50)

	var allowed atomic.Int64
	var wg sync.WaitGroup
	for range 100 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if ok, _ := m.Allow(context.Background(), "shared"); ok {
				allowed.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int64(50), allowed.Load())
}

func TestMemoryLimiterEviction(t *testing.T) {
	m := newLimiter(t, 10, 5)
	allowN(t, m, "stale", 1)
	allowN(t, m, "recent", 1)

	m.mu.Lock()
	m.entries["stale"].lastAccess = time.Now().Add(-15 * time.Minute)
	m.mu.Unlock()

	m.evictStale()

	m.mu.Lock()
	defer m.mu.Unlock()
	assert.NotContains(t, m.entries, "stale")
	assert.Contains(t, m.entries, "recent")
}

func TestMemoryLimiterCloseIdempotent(t *testing.T) {
	m := NewMemoryLimiter(10, 5)
	require.NoError(t, m.Close())
	require.NoError(t, m.Close())
}

func TestNoopLimiterAlwaysAllows(t *testing.T) {
	var l NoopLimiter
	for range 1000 {
		ok, err := l.Allow(context.Background(), "anything")
		require.NoError(t, err)
		require.True(t, ok)
	}
	assert.NoError(t, l.Close())
}
