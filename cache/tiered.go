package cache

import "context"

// TieredCache checks a MemoryCache first and falls back to a DiskCache,
// promoting disk hits into memory. The two tiers are updated one after the
// other and are not kept transactionally consistent.
type TieredCache[V any] struct {
	memory *MemoryCache[V]
	disk   *DiskCache[V]
}

var _ Cache[string] = (*TieredCache[string])(nil)

// NewTiered returns a cache over the given tiers. Both must be non-nil.
func NewTiered[V any](memory *MemoryCache[V], disk *DiskCache[V]) *TieredCache[V] {
	if memory == nil || disk == nil {
		panic("cache: NewTiered requires a memory and a disk tier")
	}
	return &TieredCache[V]{memory: memory, disk: disk}
}

// Memory returns the memory tier.
func (c *TieredCache[V]) Memory() *MemoryCache[V] { return c.memory }

// Disk returns the disk tier.
func (c *TieredCache[V]) Disk() *DiskCache[V] { return c.disk }

func (c *TieredCache[V]) Get(ctx context.Context, key string) (V, bool) {
	if val, ok := c.memory.Get(ctx, key); ok {
		return val, true
	}
	val, ok := c.disk.Get(ctx, key)
	if !ok {
		return val, false
	}
	c.memory.Set(ctx, key, val)
	return val, true
}

func (c *TieredCache[V]) Set(ctx context.Context, key string, val V) {
	c.memory.Set(ctx, key, val)
	c.disk.Set(ctx, key, val)
}

func (c *TieredCache[V]) Remove(ctx context.Context, key string) {
	c.memory.Remove(ctx, key)
	c.disk.Remove(ctx, key)
}

func (c *TieredCache[V]) Clear(ctx context.Context) {
	c.memory.Clear(ctx)
	c.disk.Clear(ctx)
}
