package cache

import (
	"container/list"
	"context"
	"sync"
)

// MemoryCache is an in-process LRU cache bounded by entry count and/or a
// byte budget. TTL is checked lazily on Get; there is no background sweep.
type MemoryCache[V any] struct {
	mutex      sync.Mutex
	items      map[string]*list.Element
	order      *list.List // front is most recently used
	totalBytes int64
	cfg        config
}

type memoryItem[V any] struct {
	key   string
	entry Entry[V]
	cost  int64
}

var _ Cache[string] = (*MemoryCache[string])(nil)

// NewMemory returns an empty MemoryCache. WithTTL, WithMaxCount and
// WithMaxBytes set its limits; all default to unlimited.
func NewMemory[V any](opts ...Option) *MemoryCache[V] {
	cfg := applyOptions(opts)
	return &MemoryCache[V]{
		items: make(map[string]*list.Element),
		order: list.New(),
		cfg:   cfg,
	}
}

func (c *MemoryCache[V]) Get(_ context.Context, key string) (V, bool) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	var zero V
	el, ok := c.items[key]
	if !ok {
		return zero, false
	}
	item := el.Value.(*memoryItem[V])
	if item.entry.Expired(c.cfg.now()) {
		c.cfg.logger.Trace("expired %s", key)
		c.removeElement(el)
		return zero, false
	}
	c.order.MoveToFront(el)
	return item.entry.Value, true
}

func (c *MemoryCache[V]) Set(_ context.Context, key string, val V) {
	cost := int64(EstimateSize(val))
	c.mutex.Lock()
	defer c.mutex.Unlock()
	if el, ok := c.items[key]; ok {
		c.removeElement(el)
	}
	if c.cfg.maxBytes > 0 {
		for c.totalBytes+cost > c.cfg.maxBytes && c.order.Len() > 0 {
			c.evictOldest()
		}
	}
	if c.cfg.maxCount > 0 {
		for c.order.Len() >= c.cfg.maxCount && c.order.Len() > 0 {
			c.evictOldest()
		}
	}
	item := &memoryItem[V]{
		key:   key,
		entry: NewEntry(val, c.cfg.now(), c.cfg.ttl),
		cost:  cost,
	}
	c.items[key] = c.order.PushFront(item)
	c.totalBytes += cost
}

func (c *MemoryCache[V]) Remove(_ context.Context, key string) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	if el, ok := c.items[key]; ok {
		c.removeElement(el)
	}
}

func (c *MemoryCache[V]) Clear(_ context.Context) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.items = make(map[string]*list.Element)
	c.order.Init()
	c.totalBytes = 0
}

// Len returns the number of entries currently held, expired ones included.
func (c *MemoryCache[V]) Len() int {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.order.Len()
}

// Bytes returns the summed cost of all held entries.
func (c *MemoryCache[V]) Bytes() int64 {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.totalBytes
}

// Contains reports whether key is held without touching its recency.
func (c *MemoryCache[V]) Contains(key string) bool {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	_, ok := c.items[key]
	return ok
}

func (c *MemoryCache[V]) evictOldest() {
	el := c.order.Back()
	if el == nil {
		return
	}
	item := el.Value.(*memoryItem[V])
	c.removeElement(el)
	c.cfg.logger.Trace("evicted %s (%d bytes)", item.key, item.cost)
	if c.cfg.onEvict != nil {
		c.cfg.onEvict(item.key)
	}
}

// removeElement must be called with the mutex held.
func (c *MemoryCache[V]) removeElement(el *list.Element) {
	item := el.Value.(*memoryItem[V])
	c.order.Remove(el)
	delete(c.items, item.key)
	c.totalBytes -= item.cost
}
