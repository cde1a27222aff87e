package cache

import (
	"context"
	"encoding/base64"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	entrySuffix = ".entry"
	tempPrefix  = ".tmp-"
	// maxNameChunk keeps every path component well under the 255 byte limit
	// most filesystems impose.
	maxNameChunk = 200
)

// DiskCache stores one file per key in a directory. It is best-effort: every
// filesystem error is logged and treated as a miss or a no-op.
//
// The byte budget is enforced on Set by summing file sizes on demand and
// deleting the files with the oldest modification time first.
type DiskCache[V any] struct {
	mutex sync.Mutex
	dir   string
	cfg   config
}

var _ Cache[string] = (*DiskCache[string])(nil)

// NewDisk returns a DiskCache rooted at dir, creating it if needed. The only
// error returned is a failure to create the directory.
func NewDisk[V any](dir string, opts ...Option) (*DiskCache[V], error) {
	cfg := applyOptions(opts)
	dir = filepath.Clean(dir)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, err
	}
	return &DiskCache[V]{dir: dir, cfg: cfg}, nil
}

// Dir returns the directory the cache writes to.
func (c *DiskCache[V]) Dir() string {
	return c.dir
}

func (c *DiskCache[V]) Get(_ context.Context, key string) (V, bool) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	var zero V
	path := c.path(key)
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			c.cfg.logger.Warn("read %s: %s", path, err)
		}
		return zero, false
	}
	entry, err := DecodeEntry[V](data)
	if err != nil {
		c.cfg.logger.Debug("ignoring unreadable entry %s: %s", path, err)
		return zero, false
	}
	if entry.Expired(c.cfg.now()) {
		c.cfg.logger.Trace("expired %s", key)
		c.removeFile(path)
		return zero, false
	}
	return entry.Value, true
}

func (c *DiskCache[V]) Set(_ context.Context, key string, val V) {
	now := c.cfg.now()
	data, err := EncodeEntry(NewEntry(val, now, c.cfg.ttl))
	if err != nil {
		c.cfg.logger.Warn("encode %s: %s", key, err)
		return
	}
	c.mutex.Lock()
	defer c.mutex.Unlock()
	path := c.path(key)
	if c.cfg.maxBytes > 0 {
		c.makeRoom(path, int64(len(data)))
	}
	if err := c.writeFile(path, data, now); err != nil {
		c.cfg.logger.Warn("write %s: %s", path, err)
	}
}

func (c *DiskCache[V]) Remove(_ context.Context, key string) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.removeFile(c.path(key))
}

func (c *DiskCache[V]) Clear(_ context.Context) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	des, err := os.ReadDir(c.dir)
	if err != nil {
		c.cfg.logger.Warn("clear %s: %s", c.dir, err)
		return
	}
	for _, de := range des {
		if err := os.RemoveAll(filepath.Join(c.dir, de.Name())); err != nil {
			c.cfg.logger.Warn("clear %s: %s", de.Name(), err)
		}
	}
}

// DiskEntry describes one file of a DiskCache.
type DiskEntry struct {
	Key       string
	Path      string
	Size      int64
	ModTime   time.Time
	CreatedAt time.Time
	TTL       time.Duration
	Expired   bool
	// Corrupt is set when the file could not be decoded; the other
	// entry fields are then zero.
	Corrupt bool
}

// Entries lists every file in the cache, ordered by modification time
// (oldest first).
func (c *DiskCache[V]) Entries(_ context.Context) []DiskEntry {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.entries()
}

// entries must be called with the mutex held.
func (c *DiskCache[V]) entries() []DiskEntry {
	files := c.files()
	now := c.cfg.now()
	out := make([]DiskEntry, 0, len(files))
	for _, f := range files {
		de := DiskEntry{Key: f.key, Path: f.path, Size: f.size, ModTime: f.modTime}
		data, err := os.ReadFile(f.path)
		if err != nil {
			continue
		}
		entry, err := DecodeEntry[V](data)
		if err != nil {
			de.Corrupt = true
		} else {
			de.CreatedAt = entry.CreatedAt
			de.TTL = entry.TTL
			de.Expired = entry.Expired(now)
		}
		out = append(out, de)
	}
	return out
}

// Size returns the summed size in bytes of all entry files.
func (c *DiskCache[V]) Size() int64 {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	var total int64
	for _, f := range c.files() {
		total += f.size
	}
	return total
}

// Prune deletes expired and undecodable entries and returns how many files
// were removed. The whole pass runs under the cache lock so a concurrent Set
// cannot be undone by it.
func (c *DiskCache[V]) Prune(_ context.Context) int {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	var removed int
	for _, de := range c.entries() {
		if !de.Expired && !de.Corrupt {
			continue
		}
		c.removeFile(de.Path)
		removed++
	}
	if removed > 0 {
		c.cfg.logger.Debug("pruned %d entries from %s", removed, c.dir)
	}
	return removed
}

type diskFile struct {
	key     string
	path    string
	size    int64
	modTime time.Time
}

// files walks the cache directory and returns the entry files sorted by
// modification time, oldest first.
func (c *DiskCache[V]) files() []diskFile {
	var files []diskFile
	err := filepath.WalkDir(c.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == c.dir {
				return err
			}
			return nil
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), entrySuffix) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		rel, err := filepath.Rel(c.dir, path)
		if err != nil {
			return nil
		}
		key, err := decodeKey(rel)
		if err != nil {
			return nil
		}
		files = append(files, diskFile{key: key, path: path, size: info.Size(), modTime: info.ModTime()})
		return nil
	})
	if err != nil {
		c.cfg.logger.Warn("scan %s: %s", c.dir, err)
	}
	sort.SliceStable(files, func(i, j int) bool {
		return files[i].modTime.Before(files[j].modTime)
	})
	return files
}

// makeRoom deletes the oldest files until size more bytes fit within the
// budget. The file being replaced is not counted.
func (c *DiskCache[V]) makeRoom(replacing string, size int64) {
	files := c.files()
	var total int64
	candidates := files[:0]
	for _, f := range files {
		if f.path == replacing {
			continue
		}
		total += f.size
		candidates = append(candidates, f)
	}
	for _, f := range candidates {
		if total+size <= c.cfg.maxBytes {
			return
		}
		c.removeFile(f.path)
		total -= f.size
		c.cfg.logger.Trace("evicted %s (%d bytes)", f.key, f.size)
		if c.cfg.onEvict != nil {
			c.cfg.onEvict(f.key)
		}
	}
}

func (c *DiskCache[V]) writeFile(path string, data []byte, now time.Time) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	// write to a temporary file first, then rename (atomic replace)
	tmp := filepath.Join(c.dir, tempPrefix+uuid.NewString())
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return err
	}
	// the eviction order follows the cache clock, not the filesystem's
	return os.Chtimes(path, now, now)
}

// removeFile deletes path and any directories left empty between it and
// the cache root.
func (c *DiskCache[V]) removeFile(path string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		c.cfg.logger.Warn("remove %s: %s", path, err)
		return
	}
	for dir := filepath.Dir(path); dir != c.dir && strings.HasPrefix(dir, c.dir); dir = filepath.Dir(dir) {
		if os.Remove(dir) != nil {
			return
		}
	}
}

func (c *DiskCache[V]) path(key string) string {
	return filepath.Join(c.dir, encodeKey(key))
}

// encodeKey maps a key to a relative file path. The mapping is the URL-safe
// base64 encoding of the key, split into components of at most maxNameChunk
// characters, so it is deterministic and reversible.
func encodeKey(key string) string {
	name := base64.RawURLEncoding.EncodeToString([]byte(key))
	if len(name) <= maxNameChunk {
		return name + entrySuffix
	}
	parts := make([]string, 0, len(name)/maxNameChunk+1)
	for len(name) > maxNameChunk {
		parts = append(parts, name[:maxNameChunk])
		name = name[maxNameChunk:]
	}
	parts = append(parts, name)
	return filepath.Join(parts...) + entrySuffix
}

func decodeKey(rel string) (string, error) {
	name := strings.TrimSuffix(rel, entrySuffix)
	name = strings.ReplaceAll(filepath.ToSlash(name), "/", "")
	buf, err := base64.RawURLEncoding.DecodeString(name)
	if err != nil {
		return "", err
	}
	return string(buf), nil
}
