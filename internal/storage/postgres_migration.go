package storage

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// migrations are applied in order at startup. Each statement must be
// idempotent; there is no version table for a schema this small.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS documents (
		collection TEXT NOT NULL,
		key        TEXT NOT NULL,
		doc        JSONB NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		PRIMARY KEY (collection, key)
	)`,
	`CREATE INDEX IF NOT EXISTS documents_collection_idx ON documents (collection)`,
}

func applyMigrations(ctx context.Context, pool *pgxpool.Pool) error {
	for _, stmt := range migrations {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("apply migration: %w", err)
		}
	}
	return nil
}
