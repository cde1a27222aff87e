package config

import (
	"context"
	"io"

	"github.com/cockroachdb/errors"
	"github.com/redis/go-redis/v9"

	"github.com/agentuity/go-ogcache/cache"
)

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// Build turns a Config into a cache.Policy ready for cache.New. The returned
// Closer releases the resources of a Redis or SQLite backend and must be
// closed once the cache is no longer used. opts are passed to those backends.
func Build[V any](ctx context.Context, c Config, opts ...cache.Option) (cache.Policy[V], io.Closer, error) {
	var p cache.Policy[V]
	if err := c.Validate(); err != nil {
		return p, nil, err
	}
	backend, _ := ParseBackend(c.Backend)
	ttl, _ := ParseTTL(c.TTL)
	size, _ := ParseSize(c.MaxSize)

	p.TTL = cache.TTL(ttl)
	p.MaxCount = cache.Count(c.MaxCount)
	p.MaxSize = cache.Bytes(size)

	switch backend {
	case BackendNone:
		return cache.Policy[V]{}, nopCloser{}, nil
	case BackendMemory:
		p.Backend = cache.Memory()
	case BackendDisk:
		p.Backend = cache.Disk(c.Directory)
	case BackendMemoryAndDisk:
		p.Backend = cache.MemoryAndDisk(c.Directory)
	case BackendRedis:
		ropts, err := redis.ParseURL(c.RedisURL)
		if err != nil {
			return p, nil, errors.Wrap(err, "parsing redis_url")
		}
		client := redis.NewClient(ropts)
		opts = append(opts, cache.WithTTL(ttl))
		if c.RedisPrefix != "" {
			opts = append(opts, cache.WithPrefix(c.RedisPrefix))
		}
		return cache.CustomPolicy[V](cache.NewRedis[V](client, opts...)), client, nil
	case BackendSQLite:
		opts = append(opts, cache.WithTTL(ttl))
		sc, err := cache.NewSQLite[V](ctx, c.SQLitePath, opts...)
		if err != nil {
			return p, nil, errors.Wrap(err, "opening sqlite cache")
		}
		return cache.CustomPolicy[V](sc), sc, nil
	}
	return p, nopCloser{}, nil
}
