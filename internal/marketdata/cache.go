package marketdata

import (
	"sync"
	"time"
)

// Clock supplies the current time. Injected so tests can drive expiry.
type Clock func() time.Time

// TTLCache is a small in-process cache with per-entry expiry. It backs the
// momentum and sector enrichment lookups; staleness only degrades enrichment
// quality, so no cross-process invalidation is needed.
type TTLCache struct {
	mu      sync.RWMutex
	entries map[string]cacheEntry
	clock   Clock
}

type cacheEntry struct {
	value     float64
	expiresAt time.Time
}

// NewTTLCache creates a cache using the given clock. A nil clock defaults
// to time.Now.
func NewTTLCache(clock Clock) *TTLCache {
	if clock == nil {
		clock = time.Now
	}
	return &TTLCache{
		entries: make(map[string]cacheEntry),
		clock:   clock,
	}
}

// Get returns the cached value if present and unexpired.
func (c *TTLCache) Get(key string) (float64, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return 0, false
	}
	if c.clock().After(e.expiresAt) {
		c.mu.Lock()
		delete(c.entries, key)
		c.mu.Unlock()
		return 0, false
	}
	return e.value, true
}

// Set stores a value with the given TTL.
func (c *TTLCache) Set(key string, value float64, ttl time.Duration) {
	c.mu.Lock()
	c.entries[key] = cacheEntry{value: value, expiresAt: c.clock().Add(ttl)}
	c.mu.Unlock()
}

// Len returns the number of entries, expired or not.
func (c *TTLCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
