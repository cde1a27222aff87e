// Package cache memoizes expensive fetch-and-parse results, such as page
// metadata or downloaded image bytes, keyed by normalized URL.
//
// # Cache Interface
//
// [Cache] defines four operations: [Cache.Get], [Cache.Set], [Cache.Remove]
// and [Cache.Clear]. The interface is generic over the value type, so a
// metadata pipeline and an image pipeline each get a typed cache.
//
// None of the operations return errors. Every backend treats storage
// problems (a missing or corrupt file, a failed write, an unreachable Redis)
// as soft failures: Get reports a miss and the mutating calls become no-ops.
// Failures are reported through the configured [logger.Logger] instead.
//
// # Implementations
//
//   - [NewMemory]: In-process map plus a recency list guarded by a mutex.
//     Bounded by entry count ([WithMaxCount]) and/or a byte budget
//     ([WithMaxBytes]); both evict in least-recently-used order. Each value is
//     charged the cost reported by [EstimateSize]. TTL is checked lazily on
//     Get; there is no background sweep.
//
//   - [NewDisk]: One file per key in a directory. File names are the URL-safe
//     base64 encoding of the key, so distinct keys never share a file. Files
//     hold a msgpack record with an xxhash checksum of the value. The byte
//     budget is enforced on Set by deleting the files with the oldest
//     modification time. Survives process restarts.
//
//   - [NewTiered]: Memory first, disk second. Disk hits are promoted into the
//     memory tier through its normal Set path.
//
//   - [NewRedis] and [NewSQLite]: Shared and embedded backends for injection
//     through [CustomPolicy]. Redis calls go through a circuit breaker
//     ([WithBreaker]) so an unreachable server costs one timeout per cooldown
//     instead of one per lookup.
//
// # Policies
//
// Callers usually describe a cache declaratively and let [New] build it:
//
//	c, ok := cache.New("og-metadata", cache.Policy[Metadata]{
//	    Backend:  cache.MemoryAndDisk(""),
//	    TTL:      cache.Hours(6),
//	    MaxCount: cache.Count(500),
//	    MaxSize:  cache.Megabytes(20),
//	})
//
// The zero [Policy] disables caching and New returns false. New also
// returns false when a disk backed policy cannot create its directory.
//
// # Loading
//
// [Load] is a cache-aside helper. Concurrent misses for the same key are not
// coalesced: each one calls the fetch function and the last Set wins. A
// [Loader] adds URL normalization and per-key coalescing on top of it.
//
// # Serialization
//
// Disk, Redis and SQLite serialize values with msgpack
// ([github.com/vmihailenco/msgpack/v5]). Struct fields must be exported to
// survive the round trip. The memory backend stores values as-is; mutations
// to stored pointers are visible through the cache.
package cache
