package cache

import (
	"fmt"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/vmihailenco/msgpack/v5"
)

// Entry is a cached value with its creation time and optional lifetime.
// Entries are never mutated; an overwrite replaces the whole entry.
type Entry[V any] struct {
	Value     V             `msgpack:"v"`
	CreatedAt time.Time     `msgpack:"c"`
	TTL       time.Duration `msgpack:"t"`
}

// NewEntry returns an entry created at now. A ttl of zero never expires.
func NewEntry[V any](val V, now time.Time, ttl time.Duration) Entry[V] {
	if ttl < 0 {
		ttl = 0
	}
	return Entry[V]{Value: val, CreatedAt: now, TTL: ttl}
}

// Expired reports whether the entry has a TTL and more than TTL has elapsed
// between CreatedAt and now.
func (e Entry[V]) Expired(now time.Time) bool {
	return e.TTL > 0 && now.Sub(e.CreatedAt) > e.TTL
}

// ExpiresAt returns the expiry instant, or false if the entry never expires.
func (e Entry[V]) ExpiresAt() (time.Time, bool) {
	if e.TTL <= 0 {
		return time.Time{}, false
	}
	return e.CreatedAt.Add(e.TTL), true
}

// record is the persisted form of an Entry. The value is kept as raw msgpack
// so its checksum can be verified before it is decoded into V.
type record struct {
	Value     msgpack.RawMessage `msgpack:"v"`
	CreatedAt time.Time          `msgpack:"c"`
	TTL       time.Duration      `msgpack:"t"`
	Checksum  uint64             `msgpack:"x"`
}

// EncodeEntry serializes e in the format used by the disk, Redis and SQLite
// backends.
func EncodeEntry[V any](e Entry[V]) ([]byte, error) {
	val, err := msgpack.Marshal(e.Value)
	if err != nil {
		return nil, fmt.Errorf("cache: failed to marshal value: %w", err)
	}
	return msgpack.Marshal(&record{
		Value:     val,
		CreatedAt: e.CreatedAt,
		TTL:       e.TTL,
		Checksum:  xxhash.Sum64(val),
	})
}

// DecodeEntry is the inverse of EncodeEntry. Data whose checksum does not
// match is rejected as corrupt.
func DecodeEntry[V any](data []byte) (Entry[V], error) {
	var rec record
	if err := msgpack.Unmarshal(data, &rec); err != nil {
		return Entry[V]{}, fmt.Errorf("cache: failed to unmarshal entry: %w", err)
	}
	if sum := xxhash.Sum64(rec.Value); sum != rec.Checksum {
		return Entry[V]{}, fmt.Errorf("cache: checksum mismatch (%x != %x)", sum, rec.Checksum)
	}
	var val V
	if err := msgpack.Unmarshal(rec.Value, &val); err != nil {
		return Entry[V]{}, fmt.Errorf("cache: failed to unmarshal value: %w", err)
	}
	return Entry[V]{Value: val, CreatedAt: rec.CreatedAt, TTL: rec.TTL}, nil
}
