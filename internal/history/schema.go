package history

import (
	"context"
	"database/sql"
	"fmt"
)

// EnsureSchema creates the history tables.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	statements := []string{
		`CREATE SCHEMA IF NOT EXISTS scrivener`,
		`CREATE TABLE IF NOT EXISTS scrivener.posts (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			topic TEXT NOT NULL,
			variants JSONB NOT NULL,
			best_variant TEXT NOT NULL DEFAULT '',
			hashtags TEXT[] NOT NULL DEFAULT '{}',
			sources TEXT[] NOT NULL DEFAULT '{}',
			published BOOLEAN NOT NULL DEFAULT FALSE,
			published_id TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			published_at TIMESTAMPTZ
		)`,
		`CREATE INDEX IF NOT EXISTS posts_created_at_idx
			ON scrivener.posts (created_at DESC)`,
		`CREATE TABLE IF NOT EXISTS scrivener.brand_profiles (
			user_id TEXT PRIMARY KEY,
			profile JSONB NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
	}

	for _, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure history schema: %w", err)
		}
	}
	return nil
}
