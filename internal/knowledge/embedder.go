package knowledge

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"

	"github.com/draftdeck/scrivener/pkg/llm"
)

// ErrNoChunks is returned when content is entirely filtered out (too short,
// navigation-only, or all duplicates).
var ErrNoChunks = errors.New("content produced no chunks")

const (
	// Token limits are approximate BPE tokens: word count * 1.3.
	defaultTokenLimit   = 500
	defaultTokenOverlap = 50
	minChunkTokens      = 20
	bpeMultiplier       = 1.3

	// Hard character cap for cases where the word-based estimator
	// underestimates badly (base64 blobs, minified text).
	maxChunkChars = 24000
)

type EmbedderOption func(*Embedder)

// Embedder splits documents into overlapping chunks and embeds them.
type Embedder struct {
	client       llm.EmbeddingClient
	tokenLimit   int
	tokenOverlap int
}

func NewEmbedder(client llm.EmbeddingClient, opts ...EmbedderOption) (*Embedder, error) {
	if client == nil {
		return nil, errors.New("embedding client is required")
	}
	embedder := &Embedder{
		client:       client,
		tokenLimit:   defaultTokenLimit,
		tokenOverlap: defaultTokenOverlap,
	}
	for _, opt := range opts {
		opt(embedder)
	}
	if embedder.tokenLimit <= 0 {
		return nil, errors.New("token limit must be positive")
	}
	if embedder.tokenOverlap < 0 || embedder.tokenOverlap >= embedder.tokenLimit {
		return nil, errors.New("token overlap must be in [0, token limit)")
	}
	return embedder, nil
}

func WithTokenLimit(limit int) EmbedderOption {
	return func(e *Embedder) { e.tokenLimit = limit }
}

func WithTokenOverlap(overlap int) EmbedderOption {
	return func(e *Embedder) { e.tokenOverlap = overlap }
}

// LazyEmbedder defers construction of the embedding client until first use,
// so the service starts even when the embedding backend is down. The
// initializer runs exactly once; concurrent callers share its outcome.
type LazyEmbedder struct {
	init func() (*Embedder, error)

	once     sync.Once
	embedder *Embedder
	initErr  error
}

func NewLazyEmbedder(init func() (*Embedder, error)) *LazyEmbedder {
	return &LazyEmbedder{init: init}
}

func (l *LazyEmbedder) get() (*Embedder, error) {
	l.once.Do(func() {
		l.embedder, l.initErr = l.init()
	})
	return l.embedder, l.initErr
}

func (l *LazyEmbedder) EmbedDocument(ctx context.Context, url, title, kind, content string) ([]Chunk, error) {
	e, err := l.get()
	if err != nil {
		return nil, fmt.Errorf("embedder unavailable: %w", err)
	}
	return e.EmbedDocument(ctx, url, title, kind, content)
}

func (l *LazyEmbedder) EmbedQuery(ctx context.Context, query string) ([]float32, error) {
	e, err := l.get()
	if err != nil {
		return nil, fmt.Errorf("embedder unavailable: %w", err)
	}
	return e.EmbedQuery(ctx, query)
}

// EmbedDocument chunks content and embeds every chunk in one batch call.
func (e *Embedder) EmbedDocument(ctx context.Context, url, title, kind, content string) ([]Chunk, error) {
	if content == "" {
		return nil, errors.New("content is required")
	}
	allChunks := e.chunkContent(content)

	minTokens := minChunkTokens
	if e.tokenLimit < minTokens {
		minTokens = 1
	}
	var chunks []string
	seen := make(map[string]bool)
	for _, chunk := range allChunks {
		if estimateBPETokens(chunk) < minTokens {
			continue
		}
		if isNavigationChunk(chunk) {
			continue
		}
		normalized := normalizeForDedup(chunk)
		if seen[normalized] {
			continue
		}
		seen[normalized] = true
		chunks = append(chunks, chunk)
	}
	if len(chunks) == 0 {
		return nil, ErrNoChunks
	}

	vectors, err := e.client.Embed(ctx, chunks)
	if err != nil {
		return nil, fmt.Errorf("embed document: %w", err)
	}
	if len(vectors) != len(chunks) {
		return nil, fmt.Errorf("embedding mismatch: %d chunks, %d vectors", len(chunks), len(vectors))
	}

	result := make([]Chunk, 0, len(chunks))
	for i, chunkText := range chunks {
		result = append(result, Chunk{
			SourceURL:   url,
			SourceTitle: title,
			SourceKind:  kind,
			Text:        chunkText,
			Index:       i,
			Embedding:   vectors[i],
		})
	}
	return result, nil
}

func (e *Embedder) EmbedQuery(ctx context.Context, query string) ([]float32, error) {
	if query == "" {
		return nil, errors.New("query is required")
	}
	vectors, err := e.client.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(vectors) == 0 {
		return nil, errors.New("no embedding returned")
	}
	return vectors[0], nil
}

func (e *Embedder) chunkContent(content string) []string {
	blocks := splitBlocks(content)
	var chunks []string
	var current []string
	currentTokens := 0

	flushCurrent := func() {
		if currentTokens == 0 {
			return
		}
		chunks = append(chunks, strings.Join(current, "\n\n"))
		current = nil
		currentTokens = 0
	}

	for _, block := range blocks {
		blockTokens := estimateBPETokens(block)
		if blockTokens == 0 {
			continue
		}
		if blockTokens > e.tokenLimit || len(block) > maxChunkChars {
			flushCurrent()
			wordLimit := int(float64(e.tokenLimit) / bpeMultiplier)
			wordOverlap := int(float64(e.tokenOverlap) / bpeMultiplier)
			chunks = append(chunks, splitLargeBlock(strings.Fields(block), wordLimit, wordOverlap)...)
			continue
		}

		if currentTokens+blockTokens <= e.tokenLimit {
			current = append(current, block)
			currentTokens += blockTokens
			continue
		}

		flushCurrent()
		overlapText := overlapTokens(chunks[len(chunks)-1], e.tokenOverlap)
		if overlapText != "" {
			overlapToks := estimateBPETokens(overlapText)
			if overlapToks+blockTokens <= e.tokenLimit {
				current = append(current, overlapText)
				currentTokens = overlapToks
			}
		}
		current = append(current, block)
		currentTokens += blockTokens
	}

	flushCurrent()
	return enforceCharLimit(chunks, maxChunkChars)
}

// splitBlocks groups lines into paragraph blocks, attaching the nearest
// markdown heading to each block and keeping code fences intact.
func splitBlocks(content string) []string {
	raw := strings.Split(content, "\n")
	var blocks []string
	var current []string
	var currentHeading string
	inCodeFence := false

	flush := func() {
		if len(current) == 0 {
			return
		}
		block := strings.TrimSpace(strings.Join(current, " "))
		if block != "" {
			if currentHeading != "" {
				block = currentHeading + "\n\n" + block
			}
			blocks = append(blocks, block)
		}
		current = nil
	}

	for _, line := range raw {
		trimmed := strings.TrimSpace(line)

		if strings.HasPrefix(trimmed, "```") || strings.HasPrefix(trimmed, "~~~") {
			flush()
			inCodeFence = !inCodeFence
			continue
		}
		if inCodeFence {
			current = append(current, trimmed)
			continue
		}

		if trimmed == "" {
			flush()
			continue
		}
		if strings.HasPrefix(trimmed, "#") {
			flush()
			currentHeading = trimmed
			continue
		}
		if isHorizontalRule(trimmed) {
			flush()
			continue
		}
		current = append(current, trimmed)
	}
	flush()

	return blocks
}

func isHorizontalRule(line string) bool {
	clean := strings.ReplaceAll(line, " ", "")
	if len(clean) < 3 {
		return false
	}
	switch clean[0] {
	case '-', '*', '_':
		for i := 1; i < len(clean); i++ {
			if clean[i] != clean[0] {
				return false
			}
		}
		return true
	}
	return false
}

// estimateBPETokens approximates BPE token count as word count * 1.3.
func estimateBPETokens(text string) int {
	return int(math.Ceil(float64(len(strings.Fields(text))) * bpeMultiplier))
}

func splitLargeBlock(words []string, limit, overlap int) []string {
	if limit <= 0 {
		return nil
	}
	if overlap >= limit {
		overlap = limit - 1
	}
	step := limit - overlap
	var chunks []string
	for start := 0; start < len(words); start += step {
		end := start + limit
		if end > len(words) {
			end = len(words)
		}
		chunks = append(chunks, strings.Join(words[start:end], " "))
		if end == len(words) {
			break
		}
	}
	return chunks
}

func overlapTokens(text string, overlap int) string {
	if overlap <= 0 {
		return ""
	}
	words := strings.Fields(text)
	if len(words) <= overlap {
		return text
	}
	return strings.Join(words[len(words)-overlap:], " ")
}

func enforceCharLimit(chunks []string, maxChars int) []string {
	var result []string
	for _, chunk := range chunks {
		if len(chunk) <= maxChars {
			result = append(result, chunk)
			continue
		}
		words := strings.Fields(chunk)
		var buf strings.Builder
		for _, w := range words {
			if buf.Len() > 0 && buf.Len()+1+len(w) > maxChars {
				result = append(result, buf.String())
				buf.Reset()
			}
			if buf.Len() > 0 {
				buf.WriteByte(' ')
			}
			buf.WriteString(w)
		}
		if buf.Len() > 0 {
			result = append(result, buf.String())
		}
	}
	return result
}

// isNavigationChunk flags chunks that are mostly short link-like words.
func isNavigationChunk(chunk string) bool {
	words := strings.Fields(chunk)
	if len(words) < 5 {
		return false
	}
	short := 0
	for _, w := range words {
		if len(w) <= 3 {
			short++
		}
	}
	return float64(short)/float64(len(words)) > 0.5
}

func normalizeForDedup(chunk string) string {
	return strings.ToLower(strings.Join(strings.Fields(chunk), " "))
}
