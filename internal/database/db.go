package database

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // PostgreSQL driver
)

const (
	maxOpenConns    = 25
	maxIdleConns    = 10
	connMaxLifetime = time.Hour
	pingTimeout     = 5 * time.Second
)

// validateURL rejects anything that is not a PostgreSQL connection URL.
// The store depends on ON CONFLICT and RETURNING, so other engines would
// fail at runtime in ways a startup check catches earlier and cheaper.
func validateURL(databaseURL string) error {
	if databaseURL == "" {
		return fmt.Errorf("DATABASE_URL environment variable not set")
	}
	if !strings.HasPrefix(databaseURL, "postgres://") && !strings.HasPrefix(databaseURL, "postgresql://") {
		return fmt.Errorf("unsupported database URL: only postgres:// URLs are accepted")
	}
	return nil
}

// New opens the inventory database and verifies the connection.
func New(databaseURL string) (*sqlx.DB, error) {
	if err := validateURL(databaseURL); err != nil {
		return nil, err
	}

	db, err := sqlx.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(maxOpenConns)
	db.SetMaxIdleConns(maxIdleConns)
	db.SetConnMaxLifetime(connMaxLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}
