package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/lib/pq"
)

// Connect opens a PostgreSQL pool and verifies it with a ping.
func Connect(ctx context.Context, dsn string) (*sql.DB, error) {
	if dsn == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable is required")
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetConnMaxIdleTime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	slog.Info("Successfully connected to database")
	return db, nil
}

// CreateTables creates the schema if it does not exist.
func CreateTables(ctx context.Context, db *sql.DB) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS tracked_items (
			id TEXT PRIMARY KEY,
			url TEXT NOT NULL,
			email TEXT NOT NULL,
			title TEXT NOT NULL DEFAULT '',
			image_url TEXT NOT NULL DEFAULT '',
			price_at_add NUMERIC(12,2) NOT NULL,
			last_known_price NUMERIC(12,2) NOT NULL,
			lowest_30d NUMERIC(12,2) NOT NULL,
			currency VARCHAR(3) NOT NULL DEFAULT 'PLN',
			status VARCHAR(10) NOT NULL,
			created_at TIMESTAMPTZ NOT NULL,
			last_checked TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_tracked_items_created_at ON tracked_items(created_at)`,
	}

	for _, query := range queries {
		if _, err := db.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to create tables: %w", err)
		}
	}

	slog.Info("Database tables created successfully")
	return nil
}
