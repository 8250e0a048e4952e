// Package dedup provides the time-windowed idempotency guard that gives
// notification delivery its at-most-once-per-window semantics.
package dedup

import (
	"sync"
	"time"
)

// Cache answers whether a notification identified by a key should still be
// sent. The first call within a TTL window records the key and returns true;
// subsequent calls return false until the window expires.
//
// The in-memory implementation is process-local; running multiple instances
// requires a shared TTL store behind this interface.
type Cache interface {
	// ShouldSend returns true and records the key when it is absent or
	// expired; returns false otherwise.
	ShouldSend(key string, ttl time.Duration) bool

	// Forget drops a key, re-arming it immediately.
	Forget(key string)

	// Len returns the number of live entries.
	Len() int
}

type memoryCache struct {
	mu      sync.Mutex
	entries map[string]time.Time // key -> expiry
	now     func() time.Time
}

// Option configures the in-memory cache.
type Option func(*memoryCache)

// WithNow overrides the time source, for deterministic tests.
func WithNow(now func() time.Time) Option {
	return func(c *memoryCache) {
		c.now = now
	}
}

// NewMemoryCache creates a process-local TTL cache.
func NewMemoryCache(opts ...Option) Cache {
	c := &memoryCache{
		entries: make(map[string]time.Time),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ShouldSend returns true and records the key when it is absent or expired.
func (c *memoryCache) ShouldSend(key string, ttl time.Duration) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if expiry, ok := c.entries[key]; ok && now.Before(expiry) {
		return false
	}

	c.entries[key] = now.Add(ttl)

	// Opportunistic sweep keeps the map from accumulating dead windows.
	if len(c.entries) > 1024 {
		for k, exp := range c.entries {
			if !now.Before(exp) {
				delete(c.entries, k)
			}
		}
	}

	return true
}

// Forget drops a key.
func (c *memoryCache) Forget(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// Len returns the number of live entries.
func (c *memoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	n := 0
	for _, exp := range c.entries {
		if now.Before(exp) {
			n++
		}
	}
	return n
}

var _ Cache = (*memoryCache)(nil)
