package llm

import (
	"sync"
	"time"
)

type cacheEntry struct {
	expiry  time.Time
	verdict string
}

// verdictCache remembers verdicts per input until their TTL passes. Expired
// entries are dropped on access.
type verdictCache struct {
	entries map[string]cacheEntry
	now     func() time.Time
	ttl     time.Duration
	mu      sync.Mutex
}

func newVerdictCache(ttl time.Duration) *verdictCache {
	if ttl == 0 {
		ttl = 15 * time.Minute
	}
	return &verdictCache{
		entries: make(map[string]cacheEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

func (c *verdictCache) get(key string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		return "", false
	}
	if c.now().After(entry.expiry) {
		delete(c.entries, key)
		return "", false
	}
	return entry.verdict, true
}

func (c *verdictCache) set(key, verdict string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = cacheEntry{verdict: verdict, expiry: c.now().Add(c.ttl)}
}

func (c *verdictCache) size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
