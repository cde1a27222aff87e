package cache

import (
	"context"
	"time"

	"github.com/agentuity/go-ogcache/logger"
)

// Cache is the capability every backend implements. Keys are opaque strings,
// in practice normalized absolute URLs (see NormalizeURL).
//
// Operations never return errors. Storage failures are absorbed by the
// backend and surface as a miss on Get or a no-op on Set, Remove and Clear.
type Cache[V any] interface {
	// Get returns the value for key if present and not expired.
	Get(ctx context.Context, key string) (V, bool)
	// Set inserts or overwrites key.
	Set(ctx context.Context, key string, val V)
	// Remove deletes key. Removing a missing key is not an error.
	Remove(ctx context.Context, key string)
	// Clear empties the cache but keeps the instance usable.
	Clear(ctx context.Context)
}

// DefaultQueryTimeout is the per-operation timeout for the network and
// database backed caches (Redis, SQLite).
const DefaultQueryTimeout = 5 * time.Second

// config holds the resolved configuration for a cache implementation.
type config struct {
	ttl          time.Duration
	maxCount     int
	maxBytes     int64
	logger       logger.Logger
	now          func() time.Time
	onEvict      func(key string)
	queryTimeout time.Duration
	expiryCheck  time.Duration
	prefix       string
	baseDir      string
	metrics      *Metrics
	maxFailures  int
	cooldown     time.Duration
}

// Option configures a Cache implementation.
type Option func(*config)

func defaultConfig() config {
	return config{
		logger:       logger.Discard(),
		now:          time.Now,
		queryTimeout: DefaultQueryTimeout,
		expiryCheck:  time.Minute,
		prefix:       "ogcache",
		maxFailures:  DefaultBreakerFailures,
		cooldown:     DefaultBreakerCooldown,
	}
}

func applyOptions(opts []Option) config {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// WithTTL sets the lifetime of entries written by the cache. Zero or a
// negative duration disables expiry.
func WithTTL(d time.Duration) Option {
	return func(c *config) {
		if d < 0 {
			d = 0
		}
		c.ttl = d
	}
}

// WithMaxCount bounds the number of entries held by a MemoryCache.
// Zero means unlimited.
func WithMaxCount(n int) Option {
	return func(c *config) {
		if n < 0 {
			n = 0
		}
		c.maxCount = n
	}
}

// WithMaxBytes sets the byte budget of a MemoryCache or DiskCache.
// Zero means unlimited.
func WithMaxBytes(n int64) Option {
	return func(c *config) {
		if n < 0 {
			n = 0
		}
		c.maxBytes = n
	}
}

// WithLogger sets the logger used to report soft failures and evictions.
func WithLogger(l logger.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithClock replaces time.Now. Used by tests to control expiry.
func WithClock(now func() time.Time) Option {
	return func(c *config) {
		if now != nil {
			c.now = now
		}
	}
}

// WithOnEvict registers a callback invoked with the key of every entry a
// MemoryCache evicts to honour its budgets. It runs with the cache lock held
// and must not call back into the cache.
func WithOnEvict(fn func(key string)) Option {
	return func(c *config) { c.onEvict = fn }
}

// WithQueryTimeout sets the per-operation timeout for I/O-backed caches
// (SQLite, Redis). Defaults to DefaultQueryTimeout (5 seconds).
func WithQueryTimeout(d time.Duration) Option {
	return func(c *config) { c.queryTimeout = d }
}

// WithExpiryCheck sets the interval for background expired entry cleanup.
// Applies to the SQLite backend. Defaults to 1 minute.
func WithExpiryCheck(d time.Duration) Option {
	return func(c *config) { c.expiryCheck = d }
}

// WithPrefix sets the key prefix for namespacing cache keys.
// Applies to the Redis backend. Defaults to "ogcache".
func WithPrefix(p string) Option {
	return func(c *config) { c.prefix = p }
}

// WithBaseDir overrides the platform cache directory New uses for disk
// backends whose policy does not name a directory.
func WithBaseDir(dir string) Option {
	return func(c *config) { c.baseDir = dir }
}

// WithMetrics makes New wrap the cache it builds with Instrument and count
// memory evictions.
func WithMetrics(m *Metrics) Option {
	return func(c *config) { c.metrics = m }
}

// WithBreaker configures the circuit breaker of the Redis backend: after
// maxFailures consecutive errors, calls are skipped for cooldown. A
// maxFailures of zero disables the breaker.
func WithBreaker(maxFailures int, cooldown time.Duration) Option {
	return func(c *config) {
		c.maxFailures = maxFailures
		c.cooldown = cooldown
	}
}
