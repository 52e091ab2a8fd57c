// Package store persists items, accounts and fetch requests in SQLite and
// serves the page, item and reply queries the timeline and conversation
// engines need.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"

	"github.com/tOgg1/threadline/internal/logging"
	"github.com/tOgg1/threadline/internal/models"
)

const (
	// DefaultBusyTimeoutMs is how long SQLite waits on a locked database.
	DefaultBusyTimeoutMs = 5000
	// DefaultCacheSize is the number of items kept in the read cache.
	DefaultCacheSize = 2048
)

// ErrNotFound is returned when an item does not exist locally.
var ErrNotFound = errors.New("item not found")

// Store is the SQLite-backed local store. It is safe for concurrent use.
type Store struct {
	db    *sql.DB
	cache *lru.Cache[int64, models.Item]
	log   zerolog.Logger

	busyTimeoutMs int
	cacheSize     int
}

// Option configures a Store.
type Option func(*Store)

// WithBusyTimeout sets the SQLite busy timeout in milliseconds.
func WithBusyTimeout(ms int) Option {
	return func(s *Store) {
		if ms > 0 {
			s.busyTimeoutMs = ms
		}
	}
}

// WithCacheSize sets the number of items kept in the read cache.
func WithCacheSize(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.cacheSize = n
		}
	}
}

// Open opens (creating if needed) the database at path.
func Open(path string, opts ...Option) (*Store, error) {
	s := newStore(opts)
	dsn := fmt.Sprintf("%s?_pragma=busy_timeout(%d)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)&_pragma=synchronous(NORMAL)", path, s.busyTimeoutMs)
	return s.open(dsn, 0)
}

// OpenInMemory opens a private in-memory database, mainly for tests.
func OpenInMemory(opts ...Option) (*Store, error) {
	s := newStore(opts)
	// Every connection to :memory: is a separate database.
	return s.open(":memory:?_pragma=foreign_keys(ON)", 1)
}

func newStore(opts []Option) *Store {
	s := &Store{
		busyTimeoutMs: DefaultBusyTimeoutMs,
		cacheSize:     DefaultCacheSize,
		log:           logging.Component("store"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) open(dsn string, maxConns int) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if maxConns > 0 {
		db.SetMaxOpenConns(maxConns)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	cache, err := lru.New[int64, models.Item](s.cacheSize)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create item cache: %w", err)
	}
	s.db = db
	s.cache = cache

	if err := s.ensureSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) ensureSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS accounts (
			id INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			preferred INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS actors (
			id INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			known INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS items (
			id INTEGER PRIMARY KEY,
			actor_id INTEGER NOT NULL,
			account_id INTEGER NOT NULL,
			created_at INTEGER NOT NULL,
			sent_at INTEGER NOT NULL,
			reply_to_id INTEGER NOT NULL DEFAULT 0,
			recipient_id INTEGER NOT NULL DEFAULT 0,
			body TEXT NOT NULL,
			status TEXT NOT NULL,
			favorited INTEGER NOT NULL DEFAULT 0,
			reblogged INTEGER NOT NULL DEFAULT 0,
			favoriting_action INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS rebloggers (
			item_id INTEGER NOT NULL REFERENCES items(id) ON DELETE CASCADE,
			actor_id INTEGER NOT NULL,
			name TEXT NOT NULL,
			PRIMARY KEY (item_id, actor_id)
		)`,
		`CREATE TABLE IF NOT EXISTS fetch_requests (
			id TEXT PRIMARY KEY,
			item_id INTEGER NOT NULL UNIQUE,
			requested_at INTEGER NOT NULL,
			completed_at INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS items_sent_idx ON items(sent_at, id)`,
		`CREATE INDEX IF NOT EXISTS items_reply_idx ON items(reply_to_id)`,
		`CREATE INDEX IF NOT EXISTS fetch_requests_pending_idx ON fetch_requests(completed_at, requested_at)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to initialize schema: %w", err)
		}
	}
	return nil
}
