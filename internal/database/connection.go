package database

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/triplink/triplink-backend/internal/config"
)

// DB is the part of the connection the health check needs
type DB interface {
	PingContext(ctx context.Context) error
	Close() error
}

// PostgresDB wraps the sqlx connection pool
type PostgresDB struct {
	*sqlx.DB
}

// NewConnection creates a new database connection
func NewConnection(cfg config.DatabaseConfig) (*PostgresDB, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("database URL is required")
	}

	db, err := sqlx.Connect("postgres", poolerSafeURL(cfg.URL))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxConnections)
	db.SetMaxIdleConns(cfg.MaxIdleConnections)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.ConnMaxLifetime / 2)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresDB{DB: db}, nil
}

// noopDB reports healthy when the server runs on the in-memory store
type noopDB struct{}

// NoopDB returns a DB used for health checks without Postgres
func NoopDB() DB { return noopDB{} }

func (noopDB) PingContext(context.Context) error { return nil }
func (noopDB) Close() error                      { return nil }

// poolerSafeURL turns on lib/pq's binary_parameters for transaction poolers
// (pgbouncer, Supavisor), which cannot keep unnamed prepared statements
// between round trips. The option is read by the driver, not sent to the server.
func poolerSafeURL(url string) string {
	if !strings.Contains(url, "pooler") || strings.Contains(url, "binary_parameters") {
		return url
	}
	separator := "?"
	if strings.Contains(url, "?") {
		separator = "&"
	}
	return url + separator + "binary_parameters=yes"
}
