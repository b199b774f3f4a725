// cache.go defines the discovery result cache. The cache is an explicit
// interface injected into the Service — never a hidden package-level map —
// so tests can substitute a fixture cache or drive expiry via a fake clock.
package discovery

import (
	"strings"
	"sync"
	"time"

	"github.com/devforge-io/devforge/internal/model"
)

// DefaultTTL is the cache lifetime applied when the caller does not
// configure one.
const DefaultTTL = 24 * time.Hour

// Cache stores discovery results per (source, query, tag) key with a TTL.
// Implementations must be safe for concurrent use.
type Cache interface {
	// Get returns the cached packages and the per-package warnings
	// recorded when the entry was filled, or false when the key is
	// absent or its entry has expired. Warnings are part of the entry so
	// a cache hit reports the same skipped packages the fill did.
	Get(key string) ([]model.PackageSummary, []SourceError, bool)

	// Put stores packages and their warnings for the key, timestamped now.
	Put(key string, packages []model.PackageSummary, warnings []SourceError)

	// Invalidate removes the key's entry if present.
	Invalidate(key string)

	// InvalidatePrefix removes every entry whose key starts with prefix.
	// Used to drop all of one source's entries across queries and tags.
	InvalidatePrefix(prefix string)
}

// cacheEntry pairs a result with its storage timestamp.
type cacheEntry struct {
	packages []model.PackageSummary
	warnings []SourceError
	storedAt time.Time
}

// MemoryCache is the default in-memory Cache with TTL expiry. Reads take
// the read lock only; expired entries are dropped lazily on access.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]cacheEntry
	ttl     time.Duration

	// now is the clock. Injected so tests can advance time explicitly.
	now func() time.Time
}

// NewMemoryCache creates a MemoryCache with the given TTL. A nil clock
// uses time.Now; a non-positive TTL uses DefaultTTL.
func NewMemoryCache(ttl time.Duration, now func() time.Time) *MemoryCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if now == nil {
		now = time.Now
	}
	return &MemoryCache{
		entries: make(map[string]cacheEntry),
		ttl:     ttl,
		now:     now,
	}
}

// Get returns the cached packages and warnings for key, treating entries
// older than the TTL as absent.
func (c *MemoryCache) Get(key string) ([]model.PackageSummary, []SourceError, bool) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok {
		return nil, nil, false
	}
	if c.now().Sub(entry.storedAt) >= c.ttl {
		// Expired. Removal happens here rather than on a timer so the
		// cache needs no background goroutine.
		c.mu.Lock()
		// Re-check under the write lock: a concurrent Put may have
		// refreshed the entry.
		if current, still := c.entries[key]; still && current.storedAt.Equal(entry.storedAt) {
			delete(c.entries, key)
		}
		c.mu.Unlock()
		return nil, nil, false
	}
	return entry.packages, entry.warnings, true
}

// Put stores packages and warnings for key, timestamped with the cache's
// clock.
func (c *MemoryCache) Put(key string, packages []model.PackageSummary, warnings []SourceError) {
	c.mu.Lock()
	c.entries[key] = cacheEntry{packages: packages, warnings: warnings, storedAt: c.now()}
	c.mu.Unlock()
}

// Invalidate removes the key's entry.
func (c *MemoryCache) Invalidate(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}

// InvalidatePrefix removes every entry whose key starts with prefix.
func (c *MemoryCache) InvalidatePrefix(prefix string) {
	c.mu.Lock()
	for key := range c.entries {
		if strings.HasPrefix(key, prefix) {
			delete(c.entries, key)
		}
	}
	c.mu.Unlock()
}
