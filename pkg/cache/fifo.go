package cache

import (
	"container/list"
	"sync"
)

// FIFO is bounded by count. When full, the oldest inserted entry is evicted
// regardless of how recently it was read.
type FIFO[V any] struct {
	mu    sync.Mutex
	max   int
	order *list.List
	items map[string]*list.Element
}

type fifoEntry[V any] struct {
	key   string
	value V
}

func NewFIFO[V any](max int) *FIFO[V] {
	if max <= 0 {
		max = 100
	}
	return &FIFO[V]{
		max:   max,
		order: list.New(),
		items: make(map[string]*list.Element, max),
	}
}

func (c *FIFO[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.items[key]; ok {
		return el.Value.(*fifoEntry[V]).value, true
	}
	var zero V
	return zero, false
}

// Set on an existing key replaces the value and keeps its queue position.
func (c *FIFO[V]) Set(key string, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.items[key]; ok {
		el.Value.(*fifoEntry[V]).value = value
		return
	}
	if c.order.Len() >= c.max {
		oldest := c.order.Front()
		c.order.Remove(oldest)
		delete(c.items, oldest.Value.(*fifoEntry[V]).key)
	}
	c.items[key] = c.order.PushBack(&fifoEntry[V]{key: key, value: value})
}

func (c *FIFO[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}
