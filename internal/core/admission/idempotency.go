package admission

import (
	"sync"
	"time"

	"github.com/solatis/canvasagent/internal/types"
)

type cacheEntry struct {
	result    *types.CommandResult
	expiresAt time.Time
}

// IdempotencyCache stores results by request key for a fixed TTL.
type IdempotencyCache struct {
	clock Clock
	ttl   time.Duration

	mu      sync.Mutex
	entries map[string]cacheEntry
}

// NewIdempotencyCache returns an empty cache.
func NewIdempotencyCache(ttl time.Duration, clock Clock) *IdempotencyCache {
	if clock == nil {
		clock = SystemClock()
	}
	return &IdempotencyCache{clock: clock, ttl: ttl, entries: make(map[string]cacheEntry)}
}

// Get returns a copy of the stored result. Expired entries are removed on read.
func (c *IdempotencyCache) Get(key string) (*types.CommandResult, bool) {
	now := c.clock.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if !now.Before(e.expiresAt) {
		delete(c.entries, key)
		return nil, false
	}
	return e.result.Clone(), true
}

// Put stores a copy of result, replacing any previous entry.
func (c *IdempotencyCache) Put(key string, result *types.CommandResult) {
	e := cacheEntry{result: result.Clone(), expiresAt: c.clock.Now().Add(c.ttl)}

	c.mu.Lock()
	c.entries[key] = e
	c.mu.Unlock()
}

// Sweep removes expired entries and returns how many were removed.
func (c *IdempotencyCache) Sweep() int {
	now := c.clock.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for key, e := range c.entries {
		if !now.Before(e.expiresAt) {
			delete(c.entries, key)
			removed++
		}
	}
	return removed
}

// Len returns the number of stored entries, expired or not.
func (c *IdempotencyCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
