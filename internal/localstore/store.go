// Package localstore persists client state in a single SQLite file: the
// session key-value pairs, the TTL response cache, the offline queue and the
// temporary-to-server id map used by the sync.
package localstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/goliatone/go-farmform/pkg/client"
	"github.com/goliatone/go-farmform/pkg/session"
)

var (
	// ErrClosed is returned after Close.
	ErrClosed = errors.New("localstore: closed")
	// ErrNotQueued is returned when discarding an unknown queued request.
	ErrNotQueued = errors.New("localstore: request not queued")
)

var (
	_ session.Store = KV{}
	_ client.Cache  = Cache{}
)

// Store is the SQLite backed local state.
type Store struct {
	mu     sync.RWMutex
	db     *sql.DB
	path   string
	now    func() time.Time
	logger *zap.Logger
	closed bool
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the time source used for expiry and timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger attaches a logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

const schema = `
CREATE TABLE IF NOT EXISTS kv (
	key TEXT PRIMARY KEY,
	value BLOB NOT NULL,
	updated_at INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS cache (
	key TEXT PRIMARY KEY,
	value BLOB NOT NULL,
	expires_at INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS queue (
	id TEXT PRIMARY KEY,
	method TEXT NOT NULL,
	path TEXT NOT NULL,
	body BLOB,
	entity TEXT NOT NULL,
	temp_id TEXT NOT NULL DEFAULT '',
	user_id TEXT NOT NULL DEFAULT '',
	created_at INTEGER NOT NULL,
	attempts INTEGER NOT NULL DEFAULT 0,
	last_error TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_queue_created ON queue(created_at);
CREATE TABLE IF NOT EXISTS id_map (
	temp_id TEXT PRIMARY KEY,
	server_id TEXT NOT NULL,
	created_at INTEGER NOT NULL
);
`

// Open opens or creates the database at path. The parent directory is
// created when missing.
func Open(path string, opts ...Option) (*Store, error) {
	if path == "" {
		return nil, errors.New("localstore: empty path")
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("localstore: create directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("localstore: open database: %w", err)
	}
	// A single connection keeps :memory: databases shared and serialises
	// writers.
	db.SetMaxOpenConns(1)

	s := &Store{db: db, path: path, now: time.Now, logger: zap.NewNop()}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("localstore: create tables: %w", err)
	}
	if err := addColumn(db, "queue", "user_id", `TEXT NOT NULL DEFAULT ''`); err != nil {
		db.Close()
		return nil, err
	}
	s.logger.Debug("localstore: opened", zap.String("path", path))
	return s, nil
}

// addColumn adds column to table when a database created by an older
// version lacks it.
func addColumn(db *sql.DB, table, column, decl string) error {
	rows, err := db.Query(`SELECT name FROM pragma_table_info(?)`, table)
	if err != nil {
		return fmt.Errorf("localstore: inspect %s: %w", table, err)
	}
	defer rows.Close()
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return fmt.Errorf("localstore: inspect %s: %w", table, err)
		}
		if name == column {
			return nil
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("localstore: inspect %s: %w", table, err)
	}
	rows.Close()
	if _, err := db.Exec(fmt.Sprintf(`ALTER TABLE %s ADD COLUMN %s %s`, table, column, decl)); err != nil {
		return fmt.Errorf("localstore: add %s.%s: %w", table, column, err)
	}
	return nil
}

// Path returns the database location.
func (s *Store) Path() string { return s.path }

// Close releases the database.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

func (s *Store) check() error {
	if s.closed {
		return ErrClosed
	}
	return nil
}

// KV returns the key-value view used for the session.
func (s *Store) KV() KV { return KV{s: s} }

// Cache returns the TTL response cache view.
func (s *Store) Cache() Cache { return Cache{s: s} }

// Queue returns the offline queue view.
func (s *Store) Queue() Queue { return Queue{s: s} }

// KV stores opaque values by key.
type KV struct{ s *Store }

// Get returns the value for key.
func (kv KV) Get(ctx context.Context, key string) ([]byte, bool, error) {
	kv.s.mu.RLock()
	defer kv.s.mu.RUnlock()
	if err := kv.s.check(); err != nil {
		return nil, false, err
	}
	var value []byte
	err := kv.s.db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("localstore: get %q: %w", key, err)
	}
	return value, true, nil
}

// Put stores value under key.
func (kv KV) Put(ctx context.Context, key string, value []byte) error {
	kv.s.mu.Lock()
	defer kv.s.mu.Unlock()
	if err := kv.s.check(); err != nil {
		return err
	}
	if value == nil {
		value = []byte{}
	}
	_, err := kv.s.db.ExecContext(ctx,
		`INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, kv.s.now().UnixNano())
	if err != nil {
		return fmt.Errorf("localstore: put %q: %w", key, err)
	}
	return nil
}

// Delete removes key. Missing keys are not an error.
func (kv KV) Delete(ctx context.Context, key string) error {
	kv.s.mu.Lock()
	defer kv.s.mu.Unlock()
	if err := kv.s.check(); err != nil {
		return err
	}
	if _, err := kv.s.db.ExecContext(ctx, `DELETE FROM kv WHERE key = ?`, key); err != nil {
		return fmt.Errorf("localstore: delete %q: %w", key, err)
	}
	return nil
}

// Cache stores raw responses with an expiry.
type Cache struct{ s *Store }

// Get returns a fresh entry. Expired entries are removed and reported as a
// miss.
func (c Cache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	if err := c.s.check(); err != nil {
		return nil, false, err
	}
	var value []byte
	var expires int64
	err := c.s.db.QueryRowContext(ctx, `SELECT value, expires_at FROM cache WHERE key = ?`, key).Scan(&value, &expires)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("localstore: cache get %q: %w", key, err)
	}
	if c.s.now().UnixNano() >= expires {
		if _, err := c.s.db.ExecContext(ctx, `DELETE FROM cache WHERE key = ?`, key); err != nil {
			return nil, false, fmt.Errorf("localstore: cache evict %q: %w", key, err)
		}
		return nil, false, nil
	}
	return value, true, nil
}

// Set stores value for ttl.
func (c Cache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	if err := c.s.check(); err != nil {
		return err
	}
	_, err := c.s.db.ExecContext(ctx,
		`INSERT INTO cache (key, value, expires_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, expires_at = excluded.expires_at`,
		key, value, c.s.now().Add(ttl).UnixNano())
	if err != nil {
		return fmt.Errorf("localstore: cache set %q: %w", key, err)
	}
	return nil
}

// InvalidatePrefix drops every entry whose key starts with prefix.
func (c Cache) InvalidatePrefix(ctx context.Context, prefix string) error {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	if err := c.s.check(); err != nil {
		return err
	}
	_, err := c.s.db.ExecContext(ctx, `DELETE FROM cache WHERE substr(key, 1, length(?)) = ?`, prefix, prefix)
	if err != nil {
		return fmt.Errorf("localstore: cache invalidate %q: %w", prefix, err)
	}
	return nil
}

// Clear drops every cached response.
func (c Cache) Clear(ctx context.Context) error {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	if err := c.s.check(); err != nil {
		return err
	}
	if _, err := c.s.db.ExecContext(ctx, `DELETE FROM cache`); err != nil {
		return fmt.Errorf("localstore: cache clear: %w", err)
	}
	return nil
}

// Purge drops expired entries and returns how many were removed.
func (c Cache) Purge(ctx context.Context) (int64, error) {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	if err := c.s.check(); err != nil {
		return 0, err
	}
	res, err := c.s.db.ExecContext(ctx, `DELETE FROM cache WHERE expires_at <= ?`, c.s.now().UnixNano())
	if err != nil {
		return 0, fmt.Errorf("localstore: cache purge: %w", err)
	}
	return res.RowsAffected()
}
