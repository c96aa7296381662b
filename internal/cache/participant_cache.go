package cache

import (
	"sync"
	"time"
)

// ParticipantCache shields the oracle backends from repeated lookups of the
// same identifier. Implementations must be safe for concurrent use and must
// never block on I/O.
type ParticipantCache interface {
	Get(key string) (string, bool)
	Set(key, fspID string)
	Delete(key string)
	Destroy()
}

type entry struct {
	fspID     string
	expiresAt time.Time
}

// TTLCache is an in-memory ParticipantCache with per-entry expiry. Expired
// entries are evicted lazily on read; there is no background sweeper. A TTL
// of 0 means entries never expire.
type TTLCache struct {
	mu      sync.RWMutex
	ttl     time.Duration
	entries map[string]entry
}

func NewTTLCache(ttl time.Duration) *TTLCache {
	return &TTLCache{
		ttl:     ttl,
		entries: make(map[string]entry),
	}
}

func (c *TTLCache) Get(key string) (string, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return "", false
	}

	if !e.expiresAt.IsZero() && time.Now().After(e.expiresAt) {
		// A just-expired read counts as a removal.
		c.mu.Lock()
		if cur, still := c.entries[key]; still && cur.expiresAt.Equal(e.expiresAt) {
			delete(c.entries, key)
		}
		c.mu.Unlock()
		return "", false
	}

	return e.fspID, true
}

func (c *TTLCache) Set(key, fspID string) {
	e := entry{fspID: fspID}
	if c.ttl > 0 {
		e.expiresAt = time.Now().Add(c.ttl)
	}

	c.mu.Lock()
	c.entries[key] = e
	c.mu.Unlock()
}

func (c *TTLCache) Delete(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}

func (c *TTLCache) Destroy() {
	c.mu.Lock()
	c.entries = make(map[string]entry)
	c.mu.Unlock()
}

// Len reports the number of entries currently held, expired or not. Used by
// health reporting.
func (c *TTLCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
