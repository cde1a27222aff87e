package config

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentuity/go-ogcache/cache"
)

func TestBuildNone(t *testing.T) {
	p, closer, err := Build[string](context.Background(), Config{})
	require.NoError(t, err)
	require.NotNil(t, closer)
	assert.NoError(t, closer.Close())
	assert.False(t, p.Enabled())

	_, ok := cache.New("none", p)
	assert.False(t, ok)
}

func TestBuildMemory(t *testing.T) {
	p, closer, err := Build[string](context.Background(), Config{
		Backend:  "memory",
		TTL:      "5m",
		MaxCount: 3,
		MaxSize:  "1KiB",
	})
	require.NoError(t, err)
	defer closer.Close()

	assert.Equal(t, cache.BackendMemory, p.Backend.Kind)
	assert.Equal(t, 5*time.Minute, p.TTL.Duration())
	assert.Equal(t, 3, p.MaxCount.Value())
	assert.Equal(t, int64(1024), p.MaxSize.Bytes())

	c, ok := cache.New("mem", p)
	require.True(t, ok)
	c.Set(context.Background(), "https://example.com/", "hello")
	val, ok := c.Get(context.Background(), "https://example.com/")
	assert.True(t, ok)
	assert.Equal(t, "hello", val)
}

func TestBuildDisk(t *testing.T) {
	dir := t.TempDir()
	p, closer, err := Build[string](context.Background(), Config{Backend: "memory+disk", Directory: dir})
	require.NoError(t, err)
	defer closer.Close()

	assert.Equal(t, cache.MemoryAndDisk(dir), p.Backend)
	c, ok := cache.New("pages", p)
	require.True(t, ok)
	tiered, ok := c.(*cache.TieredCache[string])
	require.True(t, ok)
	assert.Equal(t, cache.DiskDir("pages", dir, ""), tiered.Disk().Dir())
}

func TestBuildRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	p, closer, err := Build[string](context.Background(), Config{
		Backend:     "redis",
		RedisURL:    "redis://" + mr.Addr() + "/0",
		RedisPrefix: "previews",
		TTL:         "1h",
	})
	require.NoError(t, err)
	defer closer.Close()
	require.NotNil(t, p.Custom)

	c, ok := cache.New("shared", p)
	require.True(t, ok)
	ctx := context.Background()
	c.Set(ctx, "https://example.com/", "cached")
	val, ok := c.Get(ctx, "https://example.com/")
	assert.True(t, ok)
	assert.Equal(t, "cached", val)
	assert.True(t, mr.Exists("previews:https://example.com/"))
	assert.Equal(t, time.Hour, mr.TTL("previews:https://example.com/"))
}

func TestBuildRedisBadURL(t *testing.T) {
	_, _, err := Build[string](context.Background(), Config{Backend: "redis", RedisURL: "http://nope"})
	assert.ErrorContains(t, err, "redis_url")
}

func TestBuildSQLite(t *testing.T) {
	p, closer, err := Build[int](context.Background(), Config{Backend: "sqlite"})
	require.NoError(t, err)
	defer closer.Close()

	c, ok := cache.New("embedded", p)
	require.True(t, ok)
	ctx := context.Background()
	c.Set(ctx, "k", 7)
	val, ok := c.Get(ctx, "k")
	assert.True(t, ok)
	assert.Equal(t, 7, val)
}

func TestBuildInvalid(t *testing.T) {
	_, _, err := Build[string](context.Background(), Config{Backend: "memory", MaxSize: "heaps"})
	assert.ErrorContains(t, err, "invalid size")
}
