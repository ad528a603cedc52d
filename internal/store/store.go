// Package store provides PostgreSQL persistence for lists, subscribers,
// campaigns, imports and open tracking.
package store

import (
	"database/sql"
	"time"

	_ "github.com/lib/pq"

	"github.com/ignite/courier/internal/config"
)

// Store provides database operations for all entities.
type Store struct {
	db *sql.DB
}

// NewStore creates a store on an existing connection pool.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Open connects to PostgreSQL using the given settings and verifies the
// connection with a ping.
func Open(cfg config.DatabaseConfig) (*Store, error) {
	db, err := sql.Open("postgres", cfg.URL)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetime) * time.Minute)
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

// DB exposes the underlying pool for advisory locks and migrations.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Close closes the underlying pool.
func (s *Store) Close() error {
	return s.db.Close()
}
