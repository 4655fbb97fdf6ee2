// Package db provides database utilities and connection handling for Trailfeed.
package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	// Postgres driver registration.
	_ "github.com/lib/pq"
)

// Connection pool defaults sized for a single API instance.
const (
	DefaultMaxOpenConns    = 25
	DefaultMaxIdleConns    = 5
	DefaultConnMaxLifetime = 5 * time.Minute
)

// ErrEmptyURL is returned when no database URL is configured.
var ErrEmptyURL = errors.New("database URL is empty")

// Open creates a connection pool for the given Postgres URL. The connection
// is not verified; call Ping before serving traffic.
func Open(databaseURL string) (*sql.DB, error) {
	if databaseURL == "" {
		return nil, ErrEmptyURL
	}

	pool, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	pool.SetMaxOpenConns(DefaultMaxOpenConns)
	pool.SetMaxIdleConns(DefaultMaxIdleConns)
	pool.SetConnMaxLifetime(DefaultConnMaxLifetime)

	return pool, nil
}

// Ping verifies the connection with a bounded timeout.
func Ping(ctx context.Context, pool *sql.DB, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := pool.PingContext(ctx); err != nil {
		return fmt.Errorf("ping database: %w", err)
	}
	return nil
}
