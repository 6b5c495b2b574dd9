// Package postgres implements the store interfaces using PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

// Default retry policy.
const (
	DefaultMaxAttempts  = 5
	DefaultLeaseTimeout = 5 * time.Minute
)

// Options tune the queue behavior of a Store.
type Options struct {
	// MaxAttempts is the attempt ceiling before an entry is dead-lettered.
	MaxAttempts int
	// LeaseTimeout is how long a lease lasts before the entry can be
	// reclaimed by another worker.
	LeaseTimeout time.Duration
}

// Store provides PostgreSQL-backed implementations of all repositories.
type Store struct {
	db           *sql.DB
	maxAttempts  int
	leaseTimeout time.Duration
}

// New opens a PostgreSQL connection pool and verifies it.
func New(ctx context.Context, databaseURL string, opts Options) (*Store, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = DefaultMaxAttempts
	}
	if opts.LeaseTimeout <= 0 {
		opts.LeaseTimeout = DefaultLeaseTimeout
	}

	return &Store{
		db:           db,
		maxAttempts:  opts.MaxAttempts,
		leaseTimeout: opts.LeaseTimeout,
	}, nil
}

// DB exposes the underlying pool for migrations.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
