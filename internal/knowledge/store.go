// Package knowledge stores embedded grounding documents in Postgres with
// pgvector, so generation can pull semantic context for a topic or repo.
package knowledge

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/pgvector/pgvector-go"
)

// Chunk is one embedded slice of a grounding document. Collection groups
// chunks per repository or topic.
type Chunk struct {
	ID          string
	Collection  string
	SourceURL   string
	SourceTitle string
	SourceKind  string
	Text        string
	Index       int
	Embedding   []float32
	Similarity  float64
}

type Store struct {
	db *sql.DB
}

type SourceSummary struct {
	SourceURL     string
	ChunkCount    int
	LastIndexedAt *time.Time
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Search returns the most similar chunks in a collection by cosine distance.
func (s *Store) Search(ctx context.Context, collection string, embedding []float32, limit int) ([]Chunk, error) {
	if collection == "" {
		return nil, errors.New("collection is required")
	}
	if len(embedding) == 0 {
		return nil, errors.New("embedding is required")
	}
	if limit <= 0 {
		limit = 5
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id,
			collection,
			source_url,
			source_title,
			source_kind,
			chunk_text,
			chunk_index,
			1 - (embedding <=> $2) AS similarity
		FROM scrivener.knowledge_chunks
		WHERE collection = $1
		ORDER BY embedding <=> $2
		LIMIT $3
	`, collection, pgvector.NewVector(embedding), limit)
	if err != nil {
		return nil, fmt.Errorf("search knowledge: %w", err)
	}
	defer rows.Close()

	var chunks []Chunk
	for rows.Next() {
		var chunk Chunk
		if err := rows.Scan(
			&chunk.ID,
			&chunk.Collection,
			&chunk.SourceURL,
			&chunk.SourceTitle,
			&chunk.SourceKind,
			&chunk.Text,
			&chunk.Index,
			&chunk.Similarity,
		); err != nil {
			return nil, fmt.Errorf("scan knowledge chunk: %w", err)
		}
		chunks = append(chunks, chunk)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate knowledge chunks: %w", err)
	}

	return chunks, nil
}

// Upsert replaces all chunks for each (collection, source_url) pair in a
// single transaction, so a re-indexed source never mixes old and new text.
func (s *Store) Upsert(ctx context.Context, chunks []Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	bySource := make(map[string]string)
	for _, chunk := range chunks {
		if chunk.Collection == "" {
			return errors.New("collection is required for chunk")
		}
		if chunk.SourceURL == "" {
			return errors.New("source url is required for chunk")
		}
		bySource[chunk.SourceURL] = chunk.Collection
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	for sourceURL, collection := range bySource {
		if _, execErr := tx.ExecContext(ctx, `
			DELETE FROM scrivener.knowledge_chunks
			WHERE collection = $1 AND source_url = $2
		`, collection, sourceURL); execErr != nil {
			return fmt.Errorf("delete existing chunks: %w", execErr)
		}
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO scrivener.knowledge_chunks (
			collection,
			source_url,
			source_title,
			source_kind,
			chunk_text,
			chunk_index,
			embedding,
			indexed_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
	`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, chunk := range chunks {
		if _, err := stmt.ExecContext(
			ctx,
			chunk.Collection,
			chunk.SourceURL,
			chunk.SourceTitle,
			chunk.SourceKind,
			chunk.Text,
			chunk.Index,
			pgvector.NewVector(chunk.Embedding),
		); err != nil {
			return fmt.Errorf("insert chunk: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	return nil
}

func (s *Store) DeleteBySource(ctx context.Context, collection, sourceURL string) error {
	if collection == "" {
		return errors.New("collection is required")
	}
	if sourceURL == "" {
		return errors.New("source url is required")
	}
	if _, err := s.db.ExecContext(ctx, `
		DELETE FROM scrivener.knowledge_chunks
		WHERE collection = $1 AND source_url = $2
	`, collection, sourceURL); err != nil {
		return fmt.Errorf("delete by source: %w", err)
	}
	return nil
}

func (s *Store) ListSources(ctx context.Context, collection string) ([]SourceSummary, error) {
	if collection == "" {
		return nil, errors.New("collection is required")
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT source_url,
			COUNT(*) AS chunk_count,
			MAX(indexed_at) AS last_indexed_at
		FROM scrivener.knowledge_chunks
		WHERE collection = $1
		GROUP BY source_url
		ORDER BY source_url
	`, collection)
	if err != nil {
		return nil, fmt.Errorf("list sources: %w", err)
	}
	defer rows.Close()

	var sources []SourceSummary
	for rows.Next() {
		var source SourceSummary
		var lastIndexed sql.NullTime
		if err := rows.Scan(&source.SourceURL, &source.ChunkCount, &lastIndexed); err != nil {
			return nil, fmt.Errorf("scan source: %w", err)
		}
		if lastIndexed.Valid {
			t := lastIndexed.Time
			source.LastIndexedAt = &t
		}
		sources = append(sources, source)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sources: %w", err)
	}

	return sources, nil
}
