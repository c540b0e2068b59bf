/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package wiki

import (
	"sync"
	"time"
)

type cacheEntry[V any] struct {
	value   V
	expires time.Time
}

// cache is a size-bounded map whose entries expire after ttl.
type cache[V any] struct {
	mu      sync.Mutex
	ttl     time.Duration
	size    int
	entries map[string]cacheEntry[V]
}

func newCache[V any](ttl time.Duration, size int) *cache[V] {
	return &cache[V]{
		ttl:     ttl,
		size:    size,
		entries: make(map[string]cacheEntry[V]),
	}
}

func (c *cache[V]) get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok || time.Now().After(e.expires) {
		var zero V

		return zero, false
	}

	return e.value, true
}

func (c *cache[V]) put(key string, value V) {
	if c.ttl <= 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()

	if len(c.entries) >= c.size {
		for k, e := range c.entries {
			if now.After(e.expires) {
				delete(c.entries, k)
			}
		}
	}

	// Still full: drop an arbitrary entry.
	if len(c.entries) >= c.size {
		for k := range c.entries {
			delete(c.entries, k)

			break
		}
	}

	c.entries[key] = cacheEntry[V]{value: value, expires: now.Add(c.ttl)}
}
