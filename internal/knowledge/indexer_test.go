package knowledge

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/draftdeck/scrivener/internal/grounding"
)

type fakeDocEmbedder struct {
	mu       sync.Mutex
	embedded []string
	fail     map[string]error
	noChunks map[string]bool
}

func (f *fakeDocEmbedder) EmbedDocument(_ context.Context, url, title, kind, content string) ([]Chunk, error) {
	f.mu.Lock()
	f.embedded = append(f.embedded, url)
	f.mu.Unlock()
	if err, ok := f.fail[url]; ok {
		return nil, err
	}
	if f.noChunks[url] {
		return nil, ErrNoChunks
	}
	return []Chunk{{SourceURL: url, SourceTitle: title, SourceKind: kind, Text: content, Embedding: []float32{1}}}, nil
}

func (f *fakeDocEmbedder) EmbedQuery(_ context.Context, _ string) ([]float32, error) {
	return []float32{0.5, 0.5}, nil
}

type fakeChunkStore struct {
	mu       sync.Mutex
	upserted []Chunk
	results  []Chunk
}

func (f *fakeChunkStore) Upsert(_ context.Context, chunks []Chunk) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.upserted = append(f.upserted, chunks...)
	return nil
}

func (f *fakeChunkStore) Search(_ context.Context, _ string, _ []float32, _ int) ([]Chunk, error) {
	return f.results, nil
}

func TestIndexDocuments(t *testing.T) {
	embedder := &fakeDocEmbedder{}
	store := &fakeChunkStore{}
	ix, err := NewIndexer(IndexerConfig{Embedder: embedder, Store: store})
	if err != nil {
		t.Fatal(err)
	}

	docs := []grounding.Document{
		{Source: "github://a/b", Kind: "readme", File: "README.md", Content: "readme text"},
		{Source: "github://a/b", Kind: "metadata", Content: "metadata text"},
	}
	n, err := ix.IndexDocuments(context.Background(), "a/b", docs)
	if err != nil {
		t.Fatalf("IndexDocuments: %v", err)
	}
	if n != 2 {
		t.Errorf("indexed %d chunks, want 2", n)
	}
	for _, chunk := range store.upserted {
		if chunk.Collection != "a/b" {
			t.Errorf("chunk collection = %q", chunk.Collection)
		}
		if !strings.Contains(chunk.SourceURL, "#") {
			t.Errorf("source url should carry the kind suffix: %q", chunk.SourceURL)
		}
	}
}

func TestIndexDocumentsSkipsEmptySources(t *testing.T) {
	embedder := &fakeDocEmbedder{noChunks: map[string]bool{"github://a/b#issues": true}}
	store := &fakeChunkStore{}
	ix, _ := NewIndexer(IndexerConfig{Embedder: embedder, Store: store})

	docs := []grounding.Document{
		{Source: "github://a/b", Kind: "readme", Content: "real content"},
		{Source: "github://a/b", Kind: "issues", Content: "nav nav nav"},
	}
	n, err := ix.IndexDocuments(context.Background(), "a/b", docs)
	if err != nil {
		t.Fatalf("IndexDocuments: %v", err)
	}
	if n != 1 {
		t.Errorf("indexed %d chunks, want 1 (issues doc skipped)", n)
	}
}

func TestIndexDocumentsEmbedErrorIsFatal(t *testing.T) {
	embedder := &fakeDocEmbedder{fail: map[string]error{"github://a/b#readme": errors.New("backend down")}}
	store := &fakeChunkStore{}
	ix, _ := NewIndexer(IndexerConfig{Embedder: embedder, Store: store})

	docs := []grounding.Document{{Source: "github://a/b", Kind: "readme", Content: "text"}}
	if _, err := ix.IndexDocuments(context.Background(), "a/b", docs); err == nil {
		t.Fatal("expected error when embedding fails")
	}
	if len(store.upserted) != 0 {
		t.Error("nothing should be persisted after an embed failure")
	}
}

func TestSearchContext(t *testing.T) {
	store := &fakeChunkStore{results: []Chunk{{Text: "relevant chunk", Similarity: 0.88}}}
	ix, _ := NewIndexer(IndexerConfig{Embedder: &fakeDocEmbedder{}, Store: store})

	chunks, err := ix.SearchContext(context.Background(), "a/b", "what is this", 5)
	if err != nil {
		t.Fatalf("SearchContext: %v", err)
	}
	if len(chunks) != 1 || chunks[0].Text != "relevant chunk" {
		t.Errorf("chunks = %+v", chunks)
	}
}
