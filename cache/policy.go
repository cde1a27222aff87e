package cache

import (
	"fmt"
	"time"
)

// BackendKind selects one of the built-in storage backends.
type BackendKind int

const (
	BackendNone BackendKind = iota
	BackendMemory
	BackendDisk
	BackendMemoryAndDisk
)

func (k BackendKind) String() string {
	switch k {
	case BackendNone:
		return "none"
	case BackendMemory:
		return "memory"
	case BackendDisk:
		return "disk"
	case BackendMemoryAndDisk:
		return "memory+disk"
	}
	return fmt.Sprintf("BackendKind(%d)", int(k))
}

// Backend describes a built-in backend. Directory only applies to the disk
// backed kinds; empty means the platform cache directory.
type Backend struct {
	Kind      BackendKind
	Directory string
}

// Memory selects the in-process cache.
func Memory() Backend { return Backend{Kind: BackendMemory} }

// Disk selects the file-backed cache rooted at dir.
func Disk(dir string) Backend { return Backend{Kind: BackendDisk, Directory: dir} }

// MemoryAndDisk selects the memory-first, disk-fallback cache.
func MemoryAndDisk(dir string) Backend { return Backend{Kind: BackendMemoryAndDisk, Directory: dir} }

// TTL is an entry lifetime. The zero value is Unlimited.
type TTL time.Duration

// Unlimited entries never expire.
const Unlimited TTL = 0

func Seconds(n int) TTL { return TTL(time.Duration(n) * time.Second) }
func Minutes(n int) TTL { return TTL(time.Duration(n) * time.Minute) }
func Hours(n int) TTL   { return TTL(time.Duration(n) * time.Hour) }
func Days(n int) TTL    { return TTL(time.Duration(n) * 24 * time.Hour) }

// Duration normalizes the TTL; zero means no expiry.
func (t TTL) Duration() time.Duration {
	if t < 0 {
		return 0
	}
	return time.Duration(t)
}

// CountLimit bounds the number of entries. The zero value is UnlimitedCount.
type CountLimit int

const UnlimitedCount CountLimit = 0

// Count limits a cache to n entries. n <= 0 means unlimited.
func Count(n int) CountLimit { return CountLimit(n) }

// Value normalizes the limit; zero means unlimited.
func (c CountLimit) Value() int {
	if c < 0 {
		return 0
	}
	return int(c)
}

// SizeLimit is a byte budget. The zero value is UnlimitedSize.
type SizeLimit int64

const UnlimitedSize SizeLimit = 0

func Bytes(n int64) SizeLimit     { return SizeLimit(n) }
func Kilobytes(n int64) SizeLimit { return SizeLimit(n * 1024) }
func Megabytes(n int64) SizeLimit { return SizeLimit(n * 1024 * 1024) }

// Bytes normalizes the limit; zero means unlimited.
func (s SizeLimit) Bytes() int64 {
	if s < 0 {
		return 0
	}
	return int64(s)
}

// Policy declares how New should build a cache. The zero value means no
// caching. When Custom is set it is returned as-is and the other fields are
// ignored.
type Policy[V any] struct {
	Backend  Backend
	Custom   Cache[V]
	TTL      TTL
	MaxCount CountLimit
	MaxSize  SizeLimit
}

// CustomPolicy returns a policy that injects c.
func CustomPolicy[V any](c Cache[V]) Policy[V] {
	return Policy[V]{Custom: c}
}

// Enabled reports whether the policy asks for any caching at all.
func (p Policy[V]) Enabled() bool {
	return p.Custom != nil || p.Backend.Kind != BackendNone
}

func (p Policy[V]) String() string {
	if p.Custom != nil {
		return fmt.Sprintf("custom(%T)", p.Custom)
	}
	if p.Backend.Kind == BackendNone {
		return "none"
	}
	return fmt.Sprintf("%s ttl=%s count=%d size=%d", p.Backend.Kind, p.TTL.Duration(), p.MaxCount.Value(), p.MaxSize.Bytes())
}

// options translates the policy limits into cache options.
func (p Policy[V]) options() []Option {
	return []Option{
		WithTTL(p.TTL.Duration()),
		WithMaxCount(p.MaxCount.Value()),
		WithMaxBytes(p.MaxSize.Bytes()),
	}
}
