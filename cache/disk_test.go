package cache

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/agentuity/go-ogcache/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDisk[V any](t *testing.T, opts ...Option) *DiskCache[V] {
	t.Helper()
	c, err := NewDisk[V](filepath.Join(t.TempDir(), "disk"), opts...)
	require.NoError(t, err)
	return c
}

func TestDiskSetGet(t *testing.T) {
	ctx := context.Background()
	c := newTestDisk[pageMeta](t)
	key := "https://example.com/articles/1?ref=home"

	_, found := c.Get(ctx, key)
	assert.False(t, found)

	meta := pageMeta{Title: "Article", Description: "An article", Tags: []string{"news"}}
	c.Set(ctx, key, meta)
	val, found := c.Get(ctx, key)
	assert.True(t, found)
	assert.Equal(t, meta, val)
}

func TestDiskPersistsAcrossInstances(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "images")
	c1, err := NewDisk[[]byte](dir)
	require.NoError(t, err)
	c1.Set(ctx, "https://example.com/logo.png", []byte{1, 2, 3})

	c2, err := NewDisk[[]byte](dir)
	require.NoError(t, err)
	val, found := c2.Get(ctx, "https://example.com/logo.png")
	assert.True(t, found)
	assert.Equal(t, []byte{1, 2, 3}, val)
}

func TestDiskTTL(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	c := newTestDisk[string](t, WithTTL(time.Hour), WithClock(clock.Now))
	c.Set(ctx, "k", "v")
	path := c.path("k")
	assert.FileExists(t, path)

	clock.Advance(59 * time.Minute)
	val, found := c.Get(ctx, "k")
	assert.True(t, found)
	assert.Equal(t, "v", val)

	clock.Advance(2 * time.Minute)
	_, found = c.Get(ctx, "k")
	assert.False(t, found)
	assert.NoFileExists(t, path, "expired file is deleted on access")
}

func TestDiskTTLRealClock(t *testing.T) {
	ctx := context.Background()
	c := newTestDisk[string](t, WithTTL(100*time.Millisecond))
	c.Set(ctx, "k", "v")
	time.Sleep(150 * time.Millisecond)
	_, found := c.Get(ctx, "k")
	assert.False(t, found)
}

func TestDiskKeyEncoding(t *testing.T) {
	keys := []string{
		"",
		"a/b",
		"a_b",
		"https://example.com/?q=1&r=2#frag",
		"https://例え.jp/パス",
		strings.Repeat("x", 1000),
		strings.Repeat("y", 150),
	}
	seen := map[string]string{}
	for _, k := range keys {
		name := encodeKey(k)
		assert.Equal(t, name, encodeKey(k), "deterministic")
		for _, part := range strings.Split(filepath.ToSlash(name), "/") {
			assert.LessOrEqual(t, len(part), maxNameChunk+len(entrySuffix))
			assert.NotContains(t, part, ":")
		}
		if other, dup := seen[name]; dup {
			t.Fatalf("keys %q and %q share file %q", k, other, name)
		}
		seen[name] = k
		decoded, err := decodeKey(name)
		require.NoError(t, err)
		assert.Equal(t, k, decoded)
	}
}

func TestDiskLongKeys(t *testing.T) {
	ctx := context.Background()
	c := newTestDisk[int](t)
	long := "https://example.com/" + strings.Repeat("segment/", 120)
	c.Set(ctx, long, 7)
	c.Set(ctx, long+"x", 8)

	val, found := c.Get(ctx, long)
	assert.True(t, found)
	assert.Equal(t, 7, val)
	val, found = c.Get(ctx, long+"x")
	assert.True(t, found)
	assert.Equal(t, 8, val)

	keys := []string{}
	for _, e := range c.Entries(ctx) {
		keys = append(keys, e.Key)
	}
	assert.ElementsMatch(t, []string{long, long + "x"}, keys)

	c.Remove(ctx, long)
	c.Remove(ctx, long+"x")
	des, err := os.ReadDir(c.Dir())
	require.NoError(t, err)
	assert.Empty(t, des, "nested directories are cleaned up")
}

func TestDiskCorruptEntryIsMiss(t *testing.T) {
	ctx := context.Background()
	c := newTestDisk[string](t)
	c.Set(ctx, "k", "v")
	require.NoError(t, os.WriteFile(c.path("k"), []byte("garbage"), 0o600))

	_, found := c.Get(ctx, "k")
	assert.False(t, found)

	entries := c.Entries(ctx)
	require.Len(t, entries, 1)
	assert.True(t, entries[0].Corrupt)
}

func TestDiskByteBudgetEvictsOldestModified(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	entry, err := EncodeEntry(NewEntry("value-1", clock.Now(), 0))
	require.NoError(t, err)
	size := int64(len(entry))

	c := newTestDisk[string](t, WithMaxBytes(2*size+size/2), WithClock(clock.Now))
	c.Set(ctx, "k1", "value-1")
	clock.Advance(time.Second)
	c.Set(ctx, "k2", "value-2")
	clock.Advance(time.Second)

	// reads do not refresh the modification time
	_, found := c.Get(ctx, "k1")
	assert.True(t, found)

	c.Set(ctx, "k3", "value-3")

	_, found = c.Get(ctx, "k1")
	assert.False(t, found)
	_, found = c.Get(ctx, "k2")
	assert.True(t, found)
	_, found = c.Get(ctx, "k3")
	assert.True(t, found)
	assert.LessOrEqual(t, c.Size(), 2*size+size/2)
}

func TestDiskOverwriteDoesNotEvictItself(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	entry, err := EncodeEntry(NewEntry("value-1", clock.Now(), 0))
	require.NoError(t, err)
	size := int64(len(entry))

	c := newTestDisk[string](t, WithMaxBytes(2*size), WithClock(clock.Now))
	c.Set(ctx, "k1", "value-1")
	clock.Advance(time.Second)
	c.Set(ctx, "k2", "value-2")
	clock.Advance(time.Second)
	c.Set(ctx, "k2", "value-3")

	_, found := c.Get(ctx, "k1")
	assert.True(t, found)
	val, _ := c.Get(ctx, "k2")
	assert.Equal(t, "value-3", val)
}

func TestDiskRemoveClear(t *testing.T) {
	ctx := context.Background()
	c := newTestDisk[string](t)
	keys := []string{"a", "b", "https://example.com/c"}
	for _, k := range keys {
		c.Set(ctx, k, k)
	}
	c.Remove(ctx, "a")
	c.Remove(ctx, "never-set")
	_, found := c.Get(ctx, "a")
	assert.False(t, found)

	c.Clear(ctx)
	for _, k := range keys {
		_, found := c.Get(ctx, k)
		assert.False(t, found)
	}
	assert.DirExists(t, c.Dir())
	assert.Equal(t, int64(0), c.Size())

	c.Set(ctx, "d", "d")
	_, found = c.Get(ctx, "d")
	assert.True(t, found)
}

func TestDiskWriteFailureIsSilent(t *testing.T) {
	ctx := context.Background()
	log := logger.NewTestLogger()
	c := newTestDisk[string](t, WithLogger(log))
	require.NoError(t, os.RemoveAll(c.Dir()))
	require.NoError(t, os.WriteFile(c.Dir(), []byte("not a directory"), 0o600))

	c.Set(ctx, "k", "v")
	_, found := c.Get(ctx, "k")
	assert.False(t, found)
	c.Remove(ctx, "k")
	c.Clear(ctx)
	assert.NotEmpty(t, log.Messages("WARNING"))
}

func TestDiskPrune(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	c := newTestDisk[string](t, WithTTL(time.Minute), WithClock(clock.Now))
	c.Set(ctx, "old", "1")
	clock.Advance(2 * time.Minute)
	c.Set(ctx, "fresh", "2")
	c.Set(ctx, "broken", "3")
	require.NoError(t, os.WriteFile(c.path("broken"), []byte{0xc1}, 0o600))

	entries := c.Entries(ctx)
	require.Len(t, entries, 3)
	assert.Equal(t, "old", entries[0].Key)
	assert.True(t, entries[0].Expired)

	assert.Equal(t, 2, c.Prune(ctx))
	entries = c.Entries(ctx)
	require.Len(t, entries, 1)
	assert.Equal(t, "fresh", entries[0].Key)
	assert.Equal(t, time.Minute, entries[0].TTL)
}

func TestNewDiskFailure(t *testing.T) {
	file := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(file, nil, 0o600))
	_, err := NewDisk[string](filepath.Join(file, "cache"))
	assert.Error(t, err)
}

func TestDiskPruneKeepsConcurrentRefresh(t *testing.T) {
	ctx := context.Background()
	for i := 0; i < 50; i++ {
		clock := newFakeClock()
		c := newTestDisk[string](t, WithClock(clock.Now), WithTTL(time.Minute))
		c.Set(ctx, "https://example.com/", "stale")
		clock.Advance(2 * time.Minute)

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			c.Prune(ctx)
		}()
		go func() {
			defer wg.Done()
			c.Set(ctx, "https://example.com/", "fresh")
		}()
		wg.Wait()

		val, found := c.Get(ctx, "https://example.com/")
		require.True(t, found, "iteration %d", i)
		assert.Equal(t, "fresh", val)
	}
}
