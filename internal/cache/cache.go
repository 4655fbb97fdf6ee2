// Package cache provides the shared key/value cache used by the feed
// pipeline, with TTL support and prefix-pattern deletion for targeted
// invalidation.
package cache

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/fxamacker/cbor/v2"
)

// Cache defines the interface for cache backends.
// Values are serialized with CBOR so that Redis and in-memory backends
// behave identically with respect to type fidelity.
type Cache interface {
	// Get retrieves the value stored under key into dest.
	// Returns false if the key is absent or expired (not an error).
	Get(ctx context.Context, key string, dest any) (bool, error)

	// Set stores value under key with the given TTL.
	// A TTL of zero means the entry does not expire.
	Set(ctx context.Context, key string, value any, ttl time.Duration) error

	// Remove deletes a single key. Removing an absent key is not an error.
	Remove(ctx context.Context, key string) error

	// RemoveByPattern deletes all keys beginning with prefix.
	// Returns the number of keys removed.
	RemoveByPattern(ctx context.Context, prefix string) (int, error)

	// Exists reports whether key is present and not expired.
	Exists(ctx context.Context, key string) (bool, error)
}

// entry is a single in-memory cache entry holding the encoded payload.
type entry struct {
	data      []byte
	expiresAt time.Time // zero means no expiry
}

// expired reports whether the entry has passed its TTL at time now.
func (e entry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && now.After(e.expiresAt)
}

// InMemoryCache is an in-memory implementation of Cache.
// Thread-safe via RWMutex. Expired entries are dropped lazily on read
// and eagerly by Cleanup.
type InMemoryCache struct {
	mu      sync.RWMutex
	entries map[string]entry
}

// NewInMemoryCache creates a new in-memory cache.
func NewInMemoryCache() *InMemoryCache {
	return &InMemoryCache{
		entries: make(map[string]entry),
	}
}

// Get retrieves the value stored under key into dest.
func (c *InMemoryCache) Get(ctx context.Context, key string, dest any) (bool, error) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok {
		return false, nil
	}
	if e.expired(time.Now()) {
		c.mu.Lock()
		delete(c.entries, key)
		c.mu.Unlock()
		return false, nil
	}

	if err := cbor.Unmarshal(e.data, dest); err != nil {
		return false, err
	}
	return true, nil
}

// Set stores value under key with the given TTL.
func (c *InMemoryCache) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	data, err := cbor.Marshal(value)
	if err != nil {
		return err
	}

	var expiresAt time.Time
	if ttl > 0 {
		expiresAt = time.Now().Add(ttl)
	}

	c.mu.Lock()
	c.entries[key] = entry{data: data, expiresAt: expiresAt}
	c.mu.Unlock()
	return nil
}

// Remove deletes a single key.
func (c *InMemoryCache) Remove(ctx context.Context, key string) error {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
	return nil
}

// RemoveByPattern deletes all keys beginning with prefix.
func (c *InMemoryCache) RemoveByPattern(ctx context.Context, prefix string) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	count := 0
	for key := range c.entries {
		if strings.HasPrefix(key, prefix) {
			delete(c.entries, key)
			count++
		}
	}
	return count, nil
}

// Exists reports whether key is present and not expired.
func (c *InMemoryCache) Exists(ctx context.Context, key string) (bool, error) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok {
		return false, nil
	}
	if e.expired(time.Now()) {
		return false, nil
	}
	return true, nil
}

// Cleanup removes expired entries to prevent unbounded growth.
// This should be called periodically in production.
func (c *InMemoryCache) Cleanup() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	for key, e := range c.entries {
		if e.expired(now) {
			delete(c.entries, key)
		}
	}
}

// Len returns the number of entries, including not-yet-collected expired
// ones (for testing).
func (c *InMemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
