package cache

import (
	"context"
	"net/url"
	"strings"

	"github.com/cockroachdb/errors"
	"golang.org/x/sync/singleflight"
)

// ErrInvalidURL is returned by NormalizeURL for keys that are not absolute
// http(s) URLs.
var ErrInvalidURL = errors.New("cache: invalid url")

// NormalizeURL returns the canonical cache key for rawURL: an absolute
// http or https URL with a lower-case scheme and host, no default port, no
// fragment and a path of at least "/".
func NormalizeURL(rawURL string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return "", errors.Wrapf(ErrInvalidURL, "parsing %q: %s", rawURL, err)
	}
	u.Scheme = strings.ToLower(u.Scheme)
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", errors.Wrapf(ErrInvalidURL, "unsupported scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return "", errors.Wrapf(ErrInvalidURL, "missing host in %q", rawURL)
	}
	host := strings.ToLower(u.Hostname())
	port := u.Port()
	if (u.Scheme == "http" && port == "80") || (u.Scheme == "https" && port == "443") {
		port = ""
	}
	if strings.Contains(host, ":") {
		host = "[" + host + "]"
	}
	if port != "" {
		host += ":" + port
	}
	u.Host = host
	u.Fragment = ""
	u.RawFragment = ""
	if u.Path == "" {
		u.Path = "/"
		u.RawPath = ""
	}
	return u.String(), nil
}

// FetchFunc produces the value for key on a cache miss. The bool reports
// whether a value was found; nothing is cached when it is false.
type FetchFunc[V any] func(ctx context.Context, key string) (V, bool, error)

// Load is a cache-aside helper. It returns the cached value for key if
// present; otherwise it calls fetch and caches a found result. A nil cache
// always fetches.
//
// Concurrent misses on the same key each call fetch and the last Set wins.
// Use a Loader to coalesce them.
func Load[V any](ctx context.Context, c Cache[V], key string, fetch FetchFunc[V]) (V, bool, error) {
	if c != nil {
		if val, ok := c.Get(ctx, key); ok {
			return val, true, nil
		}
	}
	val, ok, err := fetch(ctx, key)
	if err != nil || !ok {
		var zero V
		return zero, false, err
	}
	if c != nil {
		c.Set(ctx, key, val)
	}
	return val, true, nil
}

// Loader fronts a fetch function with a cache keyed by normalized URL and
// lets only one fetch per key run at a time; concurrent callers for the same
// key share its result.
type Loader[V any] struct {
	cache Cache[V]
	fetch FetchFunc[V]
	group singleflight.Group
}

// NewLoader returns a Loader. c may be nil to disable caching.
func NewLoader[V any](c Cache[V], fetch FetchFunc[V]) *Loader[V] {
	return &Loader[V]{cache: c, fetch: fetch}
}

type loadResult[V any] struct {
	val   V
	found bool
}

// Load normalizes rawURL and returns its value from the cache or the fetch
// function. The shared fetch is detached from the cancellation of whichever
// caller started it; a caller whose ctx ends stops waiting and gets
// ctx.Err() while the others keep waiting for the result.
func (l *Loader[V]) Load(ctx context.Context, rawURL string) (V, bool, error) {
	var zero V
	key, err := NormalizeURL(rawURL)
	if err != nil {
		return zero, false, err
	}
	if l.cache != nil {
		if val, ok := l.cache.Get(ctx, key); ok {
			return val, true, nil
		}
	}
	ch := l.group.DoChan(key, func() (interface{}, error) {
		fctx := context.WithoutCancel(ctx)
		val, found, err := l.fetch(fctx, key)
		if err != nil || !found {
			return loadResult[V]{}, err
		}
		if l.cache != nil {
			l.cache.Set(fctx, key, val)
		}
		return loadResult[V]{val, true}, nil
	})
	select {
	case <-ctx.Done():
		return zero, false, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return zero, false, res.Err
		}
		r := res.Val.(loadResult[V])
		return r.val, r.found, nil
	}
}
