package winsys

import (
	"sync"
	"time"

	"github.com/timvw/term-courier/internal/model"
)

// AttrCache caches window metadata keyed by window id. Every metadata
// probe execs an external tool, and a single dispatch touches the same
// window several times (liveness, focus verification, classification), so
// a short TTL saves a burst of subprocesses without letting answers go
// stale for long.
//
// Entries expire after the TTL; expired windows are re-probed, which is
// how closed windows are eventually noticed. A TTL of 0 disables caching.
type AttrCache struct {
	mu      sync.RWMutex
	entries map[string]*attrEntry
	ttl     time.Duration
}

type attrEntry struct {
	window   model.Window
	cachedAt time.Time
	hitCount int
}

// NewAttrCache creates a cache with the given TTL.
func NewAttrCache(ttl time.Duration) *AttrCache {
	return &AttrCache{
		entries: make(map[string]*attrEntry),
		ttl:     ttl,
	}
}

// Lookup returns the cached window and true when a fresh entry exists.
func (c *AttrCache) Lookup(id string) (model.Window, bool) {
	if c.ttl <= 0 {
		return model.Window{}, false
	}

	c.mu.RLock()
	entry, ok := c.entries[id]
	c.mu.RUnlock()

	if !ok {
		return model.Window{}, false
	}
	if time.Since(entry.cachedAt) > c.ttl {
		return model.Window{}, false
	}

	c.mu.Lock()
	entry.hitCount++
	c.mu.Unlock()

	return entry.window, true
}

// Store saves window metadata for the given id.
func (c *AttrCache) Store(id string, w model.Window) {
	if c.ttl <= 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[id] = &attrEntry{
		window:   w,
		cachedAt: time.Now(),
	}
}

// Invalidate removes the entry for the given id, forcing a re-probe on
// the next lookup. Called when a target is lost so stale metadata cannot
// shadow a dead window.
func (c *AttrCache) Invalidate(id string) {
	c.mu.Lock()
	delete(c.entries, id)
	c.mu.Unlock()
}

// Hits returns the accumulated hit count for the given id.
func (c *AttrCache) Hits(id string) int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if entry, ok := c.entries[id]; ok {
		return entry.hitCount
	}
	return 0
}
