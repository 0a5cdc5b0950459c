// Package postgres opens the shared database handle and bootstraps the
// schema. Stores receive the *sql.DB and never manage DDL themselves.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

func Open(url string) (*sql.DB, error) {
	db, err := sql.Open("postgres", url)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS accounts (
		identity TEXT PRIMARY KEY,
		balance BIGINT NOT NULL DEFAULT 0,
		staked BIGINT NOT NULL DEFAULT 0,
		stake_started_at TIMESTAMPTZ,
		reputation DOUBLE PRECISION NOT NULL DEFAULT 0,
		created_at TIMESTAMPTZ NOT NULL,
		last_activity_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS transactions (
		id TEXT PRIMARY KEY,
		actor TEXT NOT NULL,
		kind TEXT NOT NULL,
		amount BIGINT NOT NULL,
		balance BIGINT NOT NULL,
		note TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS transactions_actor_idx ON transactions (actor, created_at DESC)`,
	`CREATE INDEX IF NOT EXISTS transactions_created_at_idx ON transactions (created_at DESC)`,
	`CREATE TABLE IF NOT EXISTS proposals (
		id TEXT PRIMARY KEY,
		creator TEXT NOT NULL,
		description TEXT NOT NULL,
		parameters JSONB NOT NULL DEFAULT '{}',
		yes_weight BIGINT NOT NULL DEFAULT 0,
		no_weight BIGINT NOT NULL DEFAULT 0,
		status TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL,
		expires_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS proposal_votes (
		proposal_id TEXT NOT NULL REFERENCES proposals (id),
		voter TEXT NOT NULL,
		choice TEXT NOT NULL,
		weight BIGINT NOT NULL,
		cast_at TIMESTAMPTZ NOT NULL,
		PRIMARY KEY (proposal_id, voter)
	)`,
	`CREATE TABLE IF NOT EXISTS reserve (
		id INT PRIMARY KEY,
		units BIGINT NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE IF NOT EXISTS audit_events (
		id TEXT PRIMARY KEY,
		occurred_at TIMESTAMPTZ NOT NULL,
		actor TEXT NOT NULL DEFAULT '',
		action TEXT NOT NULL,
		decision TEXT NOT NULL DEFAULT '',
		reason TEXT NOT NULL DEFAULT '',
		amount BIGINT NOT NULL DEFAULT 0,
		details JSONB NOT NULL DEFAULT '{}'
	)`,
	`CREATE INDEX IF NOT EXISTS audit_events_actor_idx ON audit_events (actor, occurred_at DESC)`,
}

// EnsureSchema applies the idempotent DDL set.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}
