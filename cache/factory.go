package cache

import (
	"os"
	"path/filepath"
)

// DefaultDirName is the directory created under the platform cache
// directory for disk caches without an explicit location.
const DefaultDirName = "ogcache"

// New builds the cache described by p. The name namespaces the disk
// directory. It returns false when the policy disables caching or when a disk
// backed policy cannot create its directory; a MemoryAndDisk policy then
// yields no cache at all rather than a memory-only one.
func New[V any](name string, p Policy[V], opts ...Option) (Cache[V], bool) {
	cfg := applyOptions(opts)
	log := cfg.logger.With(map[string]interface{}{"cache": name})
	if p.Custom != nil {
		return instrument(p.Custom, cfg.metrics), true
	}
	if cfg.metrics != nil {
		opts = append(opts, WithOnEvict(cfg.metrics.OnEvict))
	}
	opts = append(opts, p.options()...)
	opts = append(opts, WithLogger(log))

	switch p.Backend.Kind {
	case BackendMemory:
		return instrument[V](NewMemory[V](opts...), cfg.metrics), true
	case BackendDisk:
		disk, err := NewDisk[V](DiskDir(name, p.Backend.Directory, cfg.baseDir), opts...)
		if err != nil {
			log.Warn("disk cache disabled: %s", err)
			return nil, false
		}
		return instrument[V](disk, cfg.metrics), true
	case BackendMemoryAndDisk:
		disk, err := NewDisk[V](DiskDir(name, p.Backend.Directory, cfg.baseDir), opts...)
		if err != nil {
			log.Warn("tiered cache disabled: %s", err)
			return nil, false
		}
		return instrument[V](NewTiered(NewMemory[V](opts...), disk), cfg.metrics), true
	}
	return nil, false
}

// DiskDir resolves the directory of the disk cache called name. An explicit
// dir wins over baseDir, which wins over the platform cache directory.
func DiskDir(name, dir, baseDir string) string {
	if name == "" {
		name = "default"
	}
	if dir != "" {
		return filepath.Join(dir, name)
	}
	if baseDir == "" {
		if ucd, err := os.UserCacheDir(); err == nil {
			baseDir = filepath.Join(ucd, DefaultDirName)
		} else {
			baseDir = filepath.Join(os.TempDir(), DefaultDirName)
		}
	}
	return filepath.Join(baseDir, name)
}

func instrument[V any](c Cache[V], m *Metrics) Cache[V] {
	if m == nil {
		return c
	}
	return Instrument(c, m)
}
