package sqlstore

import (
	"context"

	"gobunch/internal/errors"

	"github.com/jmoiron/sqlx"
)

// The DDL sticks to types PostgreSQL and SQLite both accept.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS scenario_results (
		run_id       TEXT NOT NULL,
		scenario_key TEXT NOT NULL,
		degree       INTEGER NOT NULL,
		seed         BIGINT NOT NULL,
		iterations   INTEGER NOT NULL,
		fingerprint  TEXT NOT NULL,
		midpoints    TEXT NOT NULL,
		mean         TEXT NOT NULL,
		std_dev      TEXT NOT NULL,
		created_at   TIMESTAMP NOT NULL,
		PRIMARY KEY (run_id, scenario_key)
	)`,
	`CREATE TABLE IF NOT EXISTS dominance_results (
		run_id         TEXT NOT NULL,
		comparison_key TEXT NOT NULL,
		statistic      DOUBLE PRECISION NOT NULL,
		critical_value DOUBLE PRECISION NOT NULL,
		reject         BOOLEAN NOT NULL,
		direction      TEXT NOT NULL,
		result         TEXT NOT NULL,
		created_at     TIMESTAMP NOT NULL,
		PRIMARY KEY (run_id, comparison_key)
	)`,
}

// Migrate creates the result tables when they do not exist.
func Migrate(ctx context.Context, db *sqlx.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return errors.DatabaseError("failed to apply schema", err)
		}
	}
	return nil
}
