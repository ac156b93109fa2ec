package cache

import (
	"sync"
	"time"
)

// TTL expires entries a fixed duration after insertion. Stale entries are
// removed when read; Purge sweeps the rest.
type TTL[V any] struct {
	mu    sync.Mutex
	ttl   time.Duration
	now   func() time.Time
	items map[string]ttlEntry[V]
}

type ttlEntry[V any] struct {
	value     V
	expiresAt time.Time
}

type TTLOption func(*ttlConfig)

type ttlConfig struct {
	now func() time.Time
}

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) TTLOption {
	return func(c *ttlConfig) { c.now = now }
}

func NewTTL[V any](ttl time.Duration, opts ...TTLOption) *TTL[V] {
	cfg := ttlConfig{now: time.Now}
	for _, o := range opts {
		o(&cfg)
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &TTL[V]{ttl: ttl, now: cfg.now, items: make(map[string]ttlEntry[V])}
}

func (c *TTL[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var zero V
	e, ok := c.items[key]
	if !ok {
		return zero, false
	}
	if !c.now().Before(e.expiresAt) {
		delete(c.items, key)
		return zero, false
	}
	return e.value, true
}

func (c *TTL[V]) Set(key string, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[key] = ttlEntry[V]{value: value, expiresAt: c.now().Add(c.ttl)}
}

// Purge drops every expired entry and reports how many went.
func (c *TTL[V]) Purge() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	n := 0
	for k, e := range c.items {
		if !now.Before(e.expiresAt) {
			delete(c.items, k)
			n++
		}
	}
	return n
}

func (c *TTL[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}
