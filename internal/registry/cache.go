package registry

import (
	"sync"
	"time"
)

// DefaultTreeTTL is how long a scanned tree stays fresh.
const DefaultTreeTTL = 5 * time.Minute

// TreeCache holds the last scanned identifier list for a freshness window.
// Entries are never evicted early except through Invalidate.
//
// Every Invalidate starts a new generation. A load begun in an earlier
// generation cannot repopulate the cache (see Store).
type TreeCache struct {
	ttl time.Duration
	now func() time.Time

	mu        sync.RWMutex
	ids       []Identifier
	sha       string
	fetchedAt time.Time
	valid     bool
	gen       uint64
}

// NewTreeCache creates a cache with the given TTL. A nil clock uses time.Now.
func NewTreeCache(ttl time.Duration, now func() time.Time) *TreeCache {
	if now == nil {
		now = time.Now
	}
	return &TreeCache{ttl: ttl, now: now}
}

// Get returns the cached identifiers and the tree SHA they were read from,
// if they are still fresh.
func (c *TreeCache) Get() ([]Identifier, string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if !c.valid || c.now().Sub(c.fetchedAt) >= c.ttl {
		return nil, "", false
	}
	return c.ids, c.sha, true
}

// Set replaces the cached identifiers and restarts the freshness window.
func (c *TreeCache) Set(ids []Identifier, sha string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.set(ids, sha)
}

// Generation returns the current generation.
func (c *TreeCache) Generation() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.gen
}

// Store is Set for a load that started in generation gen. It reports false
// and leaves the cache untouched when Invalidate ran since then.
func (c *TreeCache) Store(gen uint64, ids []Identifier, sha string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != c.gen {
		return false
	}
	c.set(ids, sha)
	return true
}

func (c *TreeCache) set(ids []Identifier, sha string) {
	c.ids = ids
	c.sha = sha
	c.fetchedAt = c.now()
	c.valid = true
}

// Invalidate forces the next Get to miss and starts a new generation.
func (c *TreeCache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.valid = false
	c.gen++
}

// Age returns how old the cached entry is, or 0 when empty.
func (c *TreeCache) Age() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if !c.valid {
		return 0
	}
	return c.now().Sub(c.fetchedAt)
}
