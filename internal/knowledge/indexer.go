package knowledge

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/draftdeck/scrivener/internal/grounding"
	"github.com/draftdeck/scrivener/pkg/logging"
)

const indexConcurrency = 3

// DocumentEmbedder is what the indexer needs from an embedder.
type DocumentEmbedder interface {
	EmbedDocument(ctx context.Context, url, title, kind, content string) ([]Chunk, error)
	EmbedQuery(ctx context.Context, query string) ([]float32, error)
}

// ChunkStore is what the indexer needs from a store.
type ChunkStore interface {
	Upsert(ctx context.Context, chunks []Chunk) error
	Search(ctx context.Context, collection string, embedding []float32, limit int) ([]Chunk, error)
}

type IndexerConfig struct {
	Embedder DocumentEmbedder
	Store    ChunkStore
	Logger   logging.Logger
}

// Indexer embeds grounding documents in parallel and persists the chunks.
type Indexer struct {
	embedder DocumentEmbedder
	store    ChunkStore
	logger   logging.Logger
}

func NewIndexer(cfg IndexerConfig) (*Indexer, error) {
	if cfg.Embedder == nil {
		return nil, errors.New("embedder is required")
	}
	if cfg.Store == nil {
		return nil, errors.New("store is required")
	}
	return &Indexer{embedder: cfg.Embedder, store: cfg.Store, logger: cfg.Logger}, nil
}

// IndexDocuments embeds each document concurrently and upserts the combined
// chunk set in one transaction. A document that yields no chunks is skipped,
// not fatal; embedding errors abort the whole index run.
func (ix *Indexer) IndexDocuments(ctx context.Context, collection string, docs []grounding.Document) (int, error) {
	if collection == "" {
		return 0, errors.New("collection is required")
	}
	if len(docs) == 0 {
		return 0, nil
	}

	var mu sync.Mutex
	var all []Chunk

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(indexConcurrency)
	for _, doc := range docs {
		doc := doc
		g.Go(func() error {
			sourceURL := doc.Source + "#" + doc.Kind
			chunks, err := ix.embedder.EmbedDocument(gctx, sourceURL, doc.File, doc.Kind, doc.Content)
			if err != nil {
				if errors.Is(err, ErrNoChunks) {
					if ix.logger != nil {
						ix.logger.WithField("source", sourceURL).Debug("Document produced no chunks, skipping")
					}
					return nil
				}
				return fmt.Errorf("embed %s: %w", sourceURL, err)
			}
			for i := range chunks {
				chunks[i].Collection = collection
			}
			mu.Lock()
			all = append(all, chunks...)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}

	if len(all) == 0 {
		return 0, nil
	}
	if err := ix.store.Upsert(ctx, all); err != nil {
		return 0, fmt.Errorf("persist chunks: %w", err)
	}
	if ix.logger != nil {
		ix.logger.WithFields(logging.Fields{
			"collection": collection,
			"documents":  len(docs),
			"chunks":     len(all),
		}).Info("Indexed grounding documents")
	}
	return len(all), nil
}

// SearchContext embeds the query and returns matching chunk texts.
func (ix *Indexer) SearchContext(ctx context.Context, collection, query string, limit int) ([]Chunk, error) {
	embedding, err := ix.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	return ix.store.Search(ctx, collection, embedding, limit)
}
