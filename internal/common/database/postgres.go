package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"startup-match-workers/internal/common/config"

	_ "github.com/lib/pq"
)

// PostgresClient wraps the pool shared by the catalog source and the transaction repository.
type PostgresClient struct {
	DB *sql.DB
}

// NewPostgres opens the pool. It does not dial; call Ping to verify connectivity.
func NewPostgres(cfg config.PostgresConfig) (*PostgresClient, error) {
	db, err := sql.Open("postgres", cfg.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxConnections)
	db.SetMaxIdleConns(cfg.MaxIdle)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)

	return &PostgresClient{DB: db}, nil
}

// Transactions and startups are owned by the web application. Only the
// matching run audit table belongs to the workers.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS matching_runs (
		id             UUID PRIMARY KEY,
		transaction_id TEXT NOT NULL,
		status         TEXT NOT NULL,
		match_count    INTEGER NOT NULL DEFAULT 0,
		dropped_count  INTEGER NOT NULL DEFAULT 0,
		leak_count     INTEGER NOT NULL DEFAULT 0,
		llm_latency_ms BIGINT NOT NULL DEFAULT 0,
		error_code     TEXT NOT NULL DEFAULT '',
		created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_matching_runs_transaction ON matching_runs (transaction_id, created_at DESC)`,
}

// EnsureSchema creates the worker-owned tables if they are missing.
func (c *PostgresClient) EnsureSchema(ctx context.Context) error {
	for i, stmt := range migrations {
		if _, err := c.DB.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}
	return nil
}

func (c *PostgresClient) Ping(ctx context.Context) error {
	if err := c.DB.PingContext(ctx); err != nil {
		return fmt.Errorf("postgres ping failed: %w", err)
	}
	return nil
}

func (c *PostgresClient) Close() error {
	if c.DB != nil {
		return c.DB.Close()
	}
	return nil
}
