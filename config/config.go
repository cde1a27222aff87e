// Package config decodes cache policies from YAML files and environment
// variables.
//
// A file names one or more caches:
//
//	dir: ${env:HOME}/.cache/ogcache
//	caches:
//	  og-metadata:
//	    backend: memory+disk
//	    ttl: 6h
//	    max_count: 500
//	    max_size: 20MiB
//	  og-images:
//	    backend: redis
//	    redis_url: ${env:REDIS_URL:-redis://localhost:6379/0}
//	    ttl: 1d
//
// Every field of a cache can be overridden with OGCACHE_<NAME>_<FIELD>, for
// example OGCACHE_OG_METADATA_TTL=30m.
package config

import (
	"os"
	"strings"
	"time"

	envparse "github.com/caarlos0/env/v11"
	"github.com/cockroachdb/errors"
	"github.com/dustin/go-humanize"
	"github.com/xhit/go-str2duration/v2"
	"gopkg.in/yaml.v3"

	"github.com/agentuity/go-ogcache/env"
)

// ErrUnknownBackend is returned for a backend name that is not recognized.
var ErrUnknownBackend = errors.New("unknown cache backend")

// EnvPrefix prefixes every environment override.
const EnvPrefix = "OGCACHE_"

// Backend names accepted in Config.Backend.
const (
	BackendNone          = "none"
	BackendMemory        = "memory"
	BackendDisk          = "disk"
	BackendMemoryAndDisk = "memory+disk"
	BackendRedis         = "redis"
	BackendSQLite        = "sqlite"
)

// Config describes a single cache.
type Config struct {
	Backend     string `yaml:"backend" env:"BACKEND"`
	Directory   string `yaml:"directory" env:"DIR"`
	TTL         string `yaml:"ttl" env:"TTL"`
	MaxCount    int    `yaml:"max_count" env:"MAX_COUNT"`
	MaxSize     string `yaml:"max_size" env:"MAX_SIZE"`
	RedisURL    string `yaml:"redis_url" env:"REDIS_URL"`
	RedisPrefix string `yaml:"redis_prefix" env:"REDIS_PREFIX"`
	SQLitePath  string `yaml:"sqlite_path" env:"SQLITE_PATH"`
}

// File is the top level of a configuration file.
type File struct {
	// Dir is the base directory for disk caches without their own directory.
	Dir    string            `yaml:"dir"`
	Caches map[string]Config `yaml:"caches"`
}

// LoadFile reads and parses the configuration file at path.
func LoadFile(path string) (*File, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading config %s", path)
	}
	f, err := Parse(buf)
	if err != nil {
		return nil, errors.Wrapf(err, "config %s", path)
	}
	return f, nil
}

// Parse expands ${env:VAR} references in buf, decodes it and validates
// every cache.
func Parse(buf []byte) (*File, error) {
	var f File
	if err := yaml.Unmarshal([]byte(env.Interpolate(string(buf), nil)), &f); err != nil {
		return nil, errors.Wrap(err, "decoding yaml")
	}
	if f.Caches == nil {
		f.Caches = map[string]Config{}
	}
	for name, cfg := range f.Caches {
		if err := cfg.Validate(); err != nil {
			return nil, errors.Wrapf(err, "cache %q", name)
		}
	}
	return &f, nil
}

// Cache returns the configuration of the named cache with environment
// overrides applied. A cache missing from the file starts from the zero
// Config, so it can be configured from the environment alone.
func (f *File) Cache(name string) (Config, error) {
	var cfg Config
	if f != nil {
		cfg = f.Caches[name]
		if cfg.Directory == "" {
			cfg.Directory = f.Dir
		}
	}
	if err := ApplyEnv(name, &cfg); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

// EnvName returns the environment prefix for the named cache. An empty name
// yields the bare OGCACHE_ prefix.
func EnvName(name string) string {
	if name == "" {
		return EnvPrefix
	}
	upper := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r - 'a' + 'A'
		case r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		}
		return '_'
	}, name)
	return EnvPrefix + upper + "_"
}

// ApplyEnv overwrites the fields of cfg that have a matching environment
// variable set.
func ApplyEnv(name string, cfg *Config) error {
	if err := envparse.ParseWithOptions(cfg, envparse.Options{Prefix: EnvName(name)}); err != nil {
		return errors.Wrap(err, "parsing environment")
	}
	return nil
}

// Validate checks that every field parses.
func (c Config) Validate() error {
	backend, err := ParseBackend(c.Backend)
	if err != nil {
		return err
	}
	if _, err := ParseTTL(c.TTL); err != nil {
		return err
	}
	if _, err := ParseSize(c.MaxSize); err != nil {
		return err
	}
	if c.MaxCount < 0 {
		return errors.Newf("max_count must not be negative, got %d", c.MaxCount)
	}
	if backend == BackendRedis && c.RedisURL == "" {
		return errors.New("redis backend requires redis_url")
	}
	return nil
}

// ParseBackend normalizes a backend name. The empty string means none.
func ParseBackend(s string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none", "off":
		return BackendNone, nil
	case "memory", "mem":
		return BackendMemory, nil
	case "disk", "file":
		return BackendDisk, nil
	case "memory+disk", "memory_and_disk", "tiered":
		return BackendMemoryAndDisk, nil
	case "redis":
		return BackendRedis, nil
	case "sqlite":
		return BackendSQLite, nil
	}
	return "", errors.Wrapf(ErrUnknownBackend, "%q", s)
}

// ParseTTL parses a lifetime such as "90s", "6h" or "1w2d". The empty
// string, "0", "none" and "unlimited" disable expiry.
func ParseTTL(s string) (time.Duration, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "0", "none", "unlimited":
		return 0, nil
	}
	d, err := str2duration.ParseDuration(strings.TrimSpace(s))
	if err != nil {
		return 0, errors.Wrapf(err, "invalid ttl %q", s)
	}
	if d < 0 {
		return 0, errors.Newf("ttl must not be negative, got %q", s)
	}
	return d, nil
}

// ParseSize parses a byte budget such as "512KiB" or "20MB". The empty
// string, "0" and "unlimited" mean no budget.
func ParseSize(s string) (int64, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "0", "none", "unlimited":
		return 0, nil
	}
	n, err := humanize.ParseBytes(s)
	if err != nil {
		return 0, errors.Wrapf(err, "invalid size %q", s)
	}
	if n > 1<<62 {
		return 0, errors.Newf("size %q is too large", s)
	}
	return int64(n), nil
}
