// Package store implements the State Store (spec.md §4.1): the persistent
// catalogue of files, volumes, and products, and the small set of atomic
// transitions the three workers use to exchange work without direct
// coupling.
package store

import (
	"database/sql"
	"log/slog"

	"github.com/jonboulle/clockwork"

	"github.com/fly-io/162719/pkg/errors"

	_ "modernc.org/sqlite"
)

// Store is a transactional key/value-with-SQL-like catalogue backed by
// SQLite, following the teacher's single-file *sql.DB repository shape.
type Store struct {
	db    *sql.DB
	clock clockwork.Clock
}

// Option configures a Store at construction time.
type Option func(*Store)

// WithClock overrides the time source; tests inject a fake clock to make
// stuck-timeout comparisons deterministic.
func WithClock(c clockwork.Clock) Option {
	return func(s *Store) { s.clock = c }
}

// Open creates (or attaches to) the catalogue at dbPath and ensures the
// schema exists.
func Open(dbPath string, opts ...Option) (*Store, error) {
	slog.Info("store_init", "db_path", dbPath)

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		slog.Error("store_open_failed", "db_path", dbPath, "error", err)
		return nil, errors.Wrap(err, "failed to open state store")
	}

	// The catalogue serializes conflicting claim transactions on a single
	// connection rather than relying on SQLite's coarse database lock
	// racing across a pool.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		slog.Error("store_schema_failed", "db_path", dbPath, "error", err)
		return nil, errors.Wrap(err, "failed to create schema")
	}

	s := &Store{db: db, clock: clockwork.NewRealClock()}
	for _, opt := range opts {
		opt(s)
	}

	slog.Info("store_ready", "db_path", dbPath)
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}
