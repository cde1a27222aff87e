package cache

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTiered[V any](t *testing.T, opts ...Option) *TieredCache[V] {
	t.Helper()
	return NewTiered(NewMemory[V](opts...), newTestDisk[V](t, opts...))
}

func TestTieredSetGet(t *testing.T) {
	ctx := context.Background()
	c := newTestTiered[string](t)
	c.Set(ctx, "k", "v")

	val, found := c.Get(ctx, "k")
	assert.True(t, found)
	assert.Equal(t, "v", val)

	_, found = c.Memory().Get(ctx, "k")
	assert.True(t, found)
	_, found = c.Disk().Get(ctx, "k")
	assert.True(t, found)
}

func TestTieredPromotesDiskHits(t *testing.T) {
	ctx := context.Background()
	c := newTestTiered[pageMeta](t)
	meta := pageMeta{Title: "from disk"}
	c.Disk().Set(ctx, "k", meta)
	assert.False(t, c.Memory().Contains("k"))

	val, found := c.Get(ctx, "k")
	assert.True(t, found)
	assert.Equal(t, meta, val)
	assert.True(t, c.Memory().Contains("k"))

	// the memory tier now answers on its own
	c.Disk().Remove(ctx, "k")
	val, found = c.Get(ctx, "k")
	assert.True(t, found)
	assert.Equal(t, meta, val)
}

func TestTieredPromotionUsesMemoryBudget(t *testing.T) {
	ctx := context.Background()
	c := NewTiered(NewMemory[string](WithMaxCount(1)), newTestDisk[string](t))
	c.Set(ctx, "a", "1")
	c.Set(ctx, "b", "2")
	assert.False(t, c.Memory().Contains("a"))

	_, found := c.Get(ctx, "a")
	assert.True(t, found)
	assert.True(t, c.Memory().Contains("a"))
	assert.False(t, c.Memory().Contains("b"))
}

func TestTieredMemoryHitSkipsDisk(t *testing.T) {
	ctx := context.Background()
	c := newTestTiered[string](t)
	c.Memory().Set(ctx, "k", "memory")
	c.Disk().Set(ctx, "k", "disk")
	val, found := c.Get(ctx, "k")
	assert.True(t, found)
	assert.Equal(t, "memory", val)
}

func TestTieredMiss(t *testing.T) {
	ctx := context.Background()
	c := newTestTiered[string](t)
	_, found := c.Get(ctx, "nope")
	assert.False(t, found)
	assert.Equal(t, 0, c.Memory().Len())
}

func TestTieredRemoveClear(t *testing.T) {
	ctx := context.Background()
	c := newTestTiered[string](t)
	for _, k := range []string{"a", "b", "c"} {
		c.Set(ctx, k, k)
	}
	c.Remove(ctx, "a")
	_, found := c.Get(ctx, "a")
	assert.False(t, found)
	_, found = c.Disk().Get(ctx, "a")
	assert.False(t, found)

	c.Clear(ctx)
	for _, k := range []string{"a", "b", "c"} {
		_, found := c.Get(ctx, k)
		assert.False(t, found)
	}
	assert.Equal(t, 0, c.Memory().Len())
	assert.Equal(t, int64(0), c.Disk().Size())
}

func TestTieredDiskFailureKeepsMemory(t *testing.T) {
	ctx := context.Background()
	c := newTestTiered[string](t)
	require.NoError(t, os.RemoveAll(c.Disk().Dir()))
	require.NoError(t, os.WriteFile(c.Disk().Dir(), nil, 0o600))

	c.Set(ctx, "k", "v")
	val, found := c.Get(ctx, "k")
	assert.True(t, found)
	assert.Equal(t, "v", val)
	_, found = c.Disk().Get(ctx, "k")
	assert.False(t, found)
}

func TestTieredTTL(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	c := NewTiered(
		NewMemory[string](WithTTL(time.Minute), WithClock(clock.Now)),
		newTestDisk[string](t, WithTTL(time.Minute), WithClock(clock.Now)),
	)
	c.Set(ctx, "k", "v")
	clock.Advance(2 * time.Minute)
	_, found := c.Get(ctx, "k")
	assert.False(t, found)
	assert.NoFileExists(t, filepath.Join(c.Disk().Dir(), encodeKey("k")))
}

func TestNewTieredPanicsOnNil(t *testing.T) {
	assert.Panics(t, func() {
		NewTiered[string](nil, nil)
	})
}
