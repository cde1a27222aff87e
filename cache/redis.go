package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisCache stores encoded entries as plain Redis strings and relies on
// native key expiry for the TTL. It is meant to be injected with
// CustomPolicy when several processes share a cache.
type RedisCache[V any] struct {
	client  redis.UniversalClient
	cfg     config
	breaker *breaker
}

var _ Cache[string] = (*RedisCache[string])(nil)

// NewRedis returns a new Cache backed by Redis.
// The caller owns the client lifecycle.
func NewRedis[V any](client redis.UniversalClient, opts ...Option) *RedisCache[V] {
	cfg := applyOptions(opts)
	return &RedisCache[V]{
		client:  client,
		cfg:     cfg,
		breaker: newBreaker(cfg.maxFailures, cfg.cooldown, cfg.now),
	}
}

// BreakerState reports whether calls to Redis are currently short-circuited.
func (c *RedisCache[V]) BreakerState() BreakerState {
	return c.breaker.State()
}

// call runs fn unless the breaker is open and records its outcome. redis.Nil
// is a miss, not a failure.
func (c *RedisCache[V]) call(op string, fn func() error) error {
	if !c.breaker.allow() {
		c.cfg.logger.Trace("redis %s skipped, breaker open", op)
		return errBreakerOpen
	}
	err := fn()
	if err == redis.Nil {
		c.breaker.record(nil)
		return err
	}
	c.breaker.record(err)
	return err
}

func (c *RedisCache[V]) queryCtx(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, c.cfg.queryTimeout)
}

func (c *RedisCache[V]) prefixKey(key string) string {
	if c.cfg.prefix == "" {
		return key
	}
	return c.cfg.prefix + ":" + key
}

func (c *RedisCache[V]) Get(ctx context.Context, key string) (V, bool) {
	var zero V
	qctx, cancel := c.queryCtx(ctx)
	defer cancel()
	var data []byte
	err := c.call("get", func() (err error) {
		data, err = c.client.Get(qctx, c.prefixKey(key)).Bytes()
		return err
	})
	if err == redis.Nil || err == errBreakerOpen {
		return zero, false
	}
	if err != nil {
		c.cfg.logger.Warn("redis get %s: %s", key, err)
		return zero, false
	}
	entry, err := DecodeEntry[V](data)
	if err != nil {
		c.cfg.logger.Debug("ignoring unreadable entry %s: %s", key, err)
		return zero, false
	}
	if entry.Expired(c.cfg.now()) {
		err := c.call("del", func() error {
			return c.client.Del(qctx, c.prefixKey(key)).Err()
		})
		if err != nil && err != errBreakerOpen {
			c.cfg.logger.Warn("redis del %s: %s", key, err)
		}
		return zero, false
	}
	return entry.Value, true
}

func (c *RedisCache[V]) Set(ctx context.Context, key string, val V) {
	data, err := EncodeEntry(NewEntry(val, c.cfg.now(), c.cfg.ttl))
	if err != nil {
		c.cfg.logger.Warn("encode %s: %s", key, err)
		return
	}
	qctx, cancel := c.queryCtx(ctx)
	defer cancel()
	// a zero expiration keeps the key forever
	err = c.call("set", func() error {
		return c.client.Set(qctx, c.prefixKey(key), data, c.cfg.ttl).Err()
	})
	if err != nil && err != errBreakerOpen {
		c.cfg.logger.Warn("redis set %s: %s", key, err)
	}
}

func (c *RedisCache[V]) Remove(ctx context.Context, key string) {
	qctx, cancel := c.queryCtx(ctx)
	defer cancel()
	err := c.call("del", func() error {
		return c.client.Del(qctx, c.prefixKey(key)).Err()
	})
	if err != nil && err != errBreakerOpen {
		c.cfg.logger.Warn("redis del %s: %s", key, err)
	}
}

// Clear deletes every key under the configured prefix. Without a prefix it
// flushes the whole database.
func (c *RedisCache[V]) Clear(ctx context.Context) {
	qctx, cancel := c.queryCtx(ctx)
	defer cancel()
	err := c.call("clear", func() error {
		if c.cfg.prefix == "" {
			return c.client.FlushDB(qctx).Err()
		}
		return c.clearPrefix(qctx)
	})
	if err != nil && err != errBreakerOpen {
		c.cfg.logger.Warn("redis clear: %s", err)
	}
}

func (c *RedisCache[V]) clearPrefix(ctx context.Context) error {
	iter := c.client.Scan(ctx, 0, c.cfg.prefix+":*", 100).Iterator()
	keys := make([]string, 0, 100)
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
		if len(keys) == cap(keys) {
			if err := c.client.Del(ctx, keys...).Err(); err != nil {
				return err
			}
			keys = keys[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(keys) > 0 {
		return c.client.Del(ctx, keys...).Err()
	}
	return nil
}

// TTL returns the remaining Redis expiry of key, or -1 when it has none.
func (c *RedisCache[V]) TTL(ctx context.Context, key string) time.Duration {
	qctx, cancel := c.queryCtx(ctx)
	defer cancel()
	d, err := c.client.TTL(qctx, c.prefixKey(key)).Result()
	if err != nil {
		return -1
	}
	return d
}
