package knowledge

import (
	"context"
	"database/sql"
	"fmt"
)

// EnsureSchema creates the knowledge tables. Embedding dimensions vary by
// model, so the vector column width is set at startup from a probe.
func EnsureSchema(ctx context.Context, db *sql.DB, dimensions int) error {
	if dimensions <= 0 {
		return fmt.Errorf("invalid embedding dimensions %d", dimensions)
	}

	statements := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		`CREATE SCHEMA IF NOT EXISTS scrivener`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS scrivener.knowledge_chunks (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			collection TEXT NOT NULL,
			source_url TEXT NOT NULL,
			source_title TEXT NOT NULL DEFAULT '',
			source_kind TEXT NOT NULL DEFAULT '',
			chunk_text TEXT NOT NULL,
			chunk_index INT NOT NULL,
			embedding vector(%d) NOT NULL,
			indexed_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`, dimensions),
		`CREATE INDEX IF NOT EXISTS knowledge_chunks_collection_idx
			ON scrivener.knowledge_chunks (collection, source_url)`,
	}

	for _, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure knowledge schema: %w", err)
		}
	}
	return nil
}
