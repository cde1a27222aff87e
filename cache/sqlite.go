package cache

import (
	"context"
	"database/sql"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteCache stores encoded entries in a SQLite table. Expired rows are
// removed lazily on Get and by a background goroutine every expiry check
// interval. Call Close to stop it.
type SQLiteCache[V any] struct {
	db        *sql.DB
	ctx       context.Context
	cancel    context.CancelFunc
	waitGroup sync.WaitGroup
	once      sync.Once
	cfg       config
}

var _ Cache[string] = (*SQLiteCache[string])(nil)

// NewSQLite returns a new Cache backed by SQLite.
// If dbPath is empty or ":memory:", an in-memory database is used.
func NewSQLite[V any](ctx context.Context, dbPath string, opts ...Option) (*SQLiteCache[V], error) {
	cfg := applyOptions(opts)
	if dbPath == "" {
		dbPath = ":memory:"
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	// a single connection keeps ":memory:" databases shared
	db.SetMaxOpenConns(1)

	for _, stmt := range []string{
		`PRAGMA journal_mode=WAL`,
		`CREATE TABLE IF NOT EXISTS entries (
			key TEXT PRIMARY KEY,
			value BLOB NOT NULL,
			expires_at INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_entries_expires_at ON entries(expires_at)`,
	} {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			db.Close()
			return nil, err
		}
	}

	childCtx, cancel := context.WithCancel(ctx)
	c := &SQLiteCache[V]{
		db:     db,
		ctx:    childCtx,
		cancel: cancel,
		cfg:    cfg,
	}
	if c.cfg.expiryCheck <= 0 {
		c.cfg.expiryCheck = time.Minute
	}
	c.waitGroup.Add(1)
	go c.run()
	return c, nil
}

func (c *SQLiteCache[V]) queryCtx(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, c.cfg.queryTimeout)
}

func (c *SQLiteCache[V]) Get(ctx context.Context, key string) (V, bool) {
	var zero V
	qctx, cancel := c.queryCtx(ctx)
	defer cancel()
	var data []byte
	err := c.db.QueryRowContext(qctx, `SELECT value FROM entries WHERE key = ?`, key).Scan(&data)
	if err == sql.ErrNoRows {
		return zero, false
	}
	if err != nil {
		c.cfg.logger.Warn("sqlite get %s: %s", key, err)
		return zero, false
	}
	entry, err := DecodeEntry[V](data)
	if err != nil {
		c.cfg.logger.Debug("ignoring unreadable entry %s: %s", key, err)
		return zero, false
	}
	if entry.Expired(c.cfg.now()) {
		_, _ = c.db.ExecContext(qctx, `DELETE FROM entries WHERE key = ?`, key)
		return zero, false
	}
	return entry.Value, true
}

func (c *SQLiteCache[V]) Set(ctx context.Context, key string, val V) {
	entry := NewEntry(val, c.cfg.now(), c.cfg.ttl)
	data, err := EncodeEntry(entry)
	if err != nil {
		c.cfg.logger.Warn("encode %s: %s", key, err)
		return
	}
	var expiresAt int64
	if at, ok := entry.ExpiresAt(); ok {
		expiresAt = at.UnixNano()
	}
	qctx, cancel := c.queryCtx(ctx)
	defer cancel()
	_, err = c.db.ExecContext(qctx,
		`INSERT INTO entries (key, value, expires_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, expires_at = excluded.expires_at`,
		key, data, expiresAt,
	)
	if err != nil {
		c.cfg.logger.Warn("sqlite set %s: %s", key, err)
	}
}

func (c *SQLiteCache[V]) Remove(ctx context.Context, key string) {
	qctx, cancel := c.queryCtx(ctx)
	defer cancel()
	if _, err := c.db.ExecContext(qctx, `DELETE FROM entries WHERE key = ?`, key); err != nil {
		c.cfg.logger.Warn("sqlite delete %s: %s", key, err)
	}
}

func (c *SQLiteCache[V]) Clear(ctx context.Context) {
	qctx, cancel := c.queryCtx(ctx)
	defer cancel()
	if _, err := c.db.ExecContext(qctx, `DELETE FROM entries`); err != nil {
		c.cfg.logger.Warn("sqlite clear: %s", err)
	}
}

// Len returns the number of stored rows, expired ones included.
func (c *SQLiteCache[V]) Len(ctx context.Context) int {
	qctx, cancel := c.queryCtx(ctx)
	defer cancel()
	var n int
	if err := c.db.QueryRowContext(qctx, `SELECT COUNT(*) FROM entries`).Scan(&n); err != nil {
		return 0
	}
	return n
}

// Close stops the expiry goroutine and closes the database.
func (c *SQLiteCache[V]) Close() error {
	var dbErr error
	c.once.Do(func() {
		c.cancel()
		c.waitGroup.Wait()
		dbErr = c.db.Close()
	})
	return dbErr
}

func (c *SQLiteCache[V]) run() {
	defer c.waitGroup.Done()
	ticker := time.NewTicker(c.cfg.expiryCheck)
	defer ticker.Stop()
	for {
		select {
		case <-c.ctx.Done():
			return
		case <-ticker.C:
			now := c.cfg.now().UnixNano()
			_, _ = c.db.ExecContext(c.ctx, `DELETE FROM entries WHERE expires_at > 0 AND expires_at < ?`, now)
		}
	}
}
