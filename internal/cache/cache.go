// Package cache is an expiring key/value store used to stage onboarding
// answers before an authenticated plan exists. Entries are TTL-boxed; there
// is no background sweep — expired entries are evicted lazily on read.
package cache

import (
	"sync"
	"time"
)

// DefaultTTL boxes onboarding drafts for a week.
const DefaultTTL = 7 * 24 * time.Hour

// Well-known draft keys bridged from the unauthenticated onboarding screens.
const (
	KeyQuestionnaire = "questionnaire-data"
	KeyBigRocksOrder = "big-rocks-order"
	KeyOnboarding    = "focus-tracker-onboarding"
)

type entry struct {
	value  []byte
	expiry time.Time
}

// Cache is a concurrency-safe TTL map.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]entry
	now     func() time.Time
}

func New() *Cache {
	return &Cache{
		entries: make(map[string]entry),
		now:     time.Now,
	}
}

// Save stores value under key until ttl elapses. Non-positive ttl uses
// DefaultTTL.
func (c *Cache) Save(key string, value []byte, ttl time.Duration) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	v := make([]byte, len(value))
	copy(v, value)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = entry{value: v, expiry: c.now().Add(ttl)}
}

// Load returns the stored value when present and unexpired. An expired entry
// is evicted and reported as absent, not as an error.
func (c *Cache) Load(key string) ([]byte, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if c.now().After(e.expiry) {
		c.mu.Lock()
		// Re-check under the write lock; Save may have refreshed the entry.
		if cur, ok := c.entries[key]; ok && c.now().After(cur.expiry) {
			delete(c.entries, key)
		}
		c.mu.Unlock()
		return nil, false
	}
	v := make([]byte, len(e.value))
	copy(v, e.value)
	return v, true
}

// Delete removes key if present.
func (c *Cache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}
