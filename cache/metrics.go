package cache

import (
	"context"

	"github.com/cockroachdb/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/agentuity/go-ogcache/cache"

// Metrics holds the OpenTelemetry counters recorded for one named cache.
type Metrics struct {
	hits      metric.Int64Counter
	misses    metric.Int64Counter
	sets      metric.Int64Counter
	removes   metric.Int64Counter
	clears    metric.Int64Counter
	evictions metric.Int64Counter
	attrs     metric.MeasurementOption
}

// NewMetrics creates the counters on meter, or on the global meter provider
// when meter is nil. Every measurement carries a cache.name attribute.
func NewMetrics(name string, meter metric.Meter) (*Metrics, error) {
	if meter == nil {
		meter = otel.Meter(instrumentationName)
	}
	m := &Metrics{
		attrs: metric.WithAttributeSet(attribute.NewSet(attribute.String("cache.name", name))),
	}
	counters := []struct {
		dst  *metric.Int64Counter
		name string
		desc string
	}{
		{&m.hits, "ogcache.hits", "Cache lookups that returned a value"},
		{&m.misses, "ogcache.misses", "Cache lookups that found nothing"},
		{&m.sets, "ogcache.sets", "Values written to the cache"},
		{&m.removes, "ogcache.removes", "Keys removed from the cache"},
		{&m.clears, "ogcache.clears", "Times the cache was cleared"},
		{&m.evictions, "ogcache.evictions", "Entries evicted to honour a budget"},
	}
	for _, c := range counters {
		counter, err := meter.Int64Counter(c.name, metric.WithDescription(c.desc))
		if err != nil {
			return nil, errors.Wrapf(err, "creating counter %s", c.name)
		}
		*c.dst = counter
	}
	return m, nil
}

// OnEvict counts an eviction. It matches the WithOnEvict callback signature.
func (m *Metrics) OnEvict(string) {
	m.evictions.Add(context.Background(), 1, m.attrs)
}

type instrumentedCache[V any] struct {
	next    Cache[V]
	metrics *Metrics
}

// Instrument wraps c so every operation is counted on m.
func Instrument[V any](c Cache[V], m *Metrics) Cache[V] {
	return &instrumentedCache[V]{next: c, metrics: m}
}

func (c *instrumentedCache[V]) Get(ctx context.Context, key string) (V, bool) {
	val, ok := c.next.Get(ctx, key)
	if ok {
		c.metrics.hits.Add(ctx, 1, c.metrics.attrs)
	} else {
		c.metrics.misses.Add(ctx, 1, c.metrics.attrs)
	}
	return val, ok
}

func (c *instrumentedCache[V]) Set(ctx context.Context, key string, val V) {
	c.next.Set(ctx, key, val)
	c.metrics.sets.Add(ctx, 1, c.metrics.attrs)
}

func (c *instrumentedCache[V]) Remove(ctx context.Context, key string) {
	c.next.Remove(ctx, key)
	c.metrics.removes.Add(ctx, 1, c.metrics.attrs)
}

func (c *instrumentedCache[V]) Clear(ctx context.Context) {
	c.next.Clear(ctx)
	c.metrics.clears.Add(ctx, 1, c.metrics.attrs)
}
