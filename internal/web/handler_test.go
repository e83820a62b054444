package web

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/draftdeck/scrivener/internal/agents"
	"github.com/draftdeck/scrivener/internal/grounding"
	"github.com/draftdeck/scrivener/internal/history"
	"github.com/draftdeck/scrivener/internal/knowledge"
	"github.com/draftdeck/scrivener/internal/tools"
	"github.com/draftdeck/scrivener/pkg/logging"
)

type fakeWorkflow struct {
	result    agents.OrchestratorResult
	lastInput agents.UserInput
}

func (f *fakeWorkflow) ExecuteWorkflow(_ context.Context, input agents.UserInput) agents.OrchestratorResult {
	f.lastInput = input
	return f.result
}

type fakePoster struct {
	outcome agents.PostOutcome
	err     error
	lastReq agents.PostRequest
}

func (f *fakePoster) Publish(_ context.Context, req agents.PostRequest) (agents.PostOutcome, error) {
	f.lastReq = req
	if f.err != nil {
		return agents.PostOutcome{}, f.err
	}
	return f.outcome, nil
}

type fakePostStore struct {
	saved     []history.PostRecord
	records   map[string]history.PostRecord
	published map[string]string
}

func newFakePostStore() *fakePostStore {
	return &fakePostStore{
		records:   map[string]history.PostRecord{},
		published: map[string]string{},
	}
}

func (f *fakePostStore) SavePost(_ context.Context, record history.PostRecord) (history.PostRecord, error) {
	record.ID = "post-1"
	f.saved = append(f.saved, record)
	f.records[record.ID] = record
	return record, nil
}

func (f *fakePostStore) GetPost(_ context.Context, id string) (history.PostRecord, error) {
	record, ok := f.records[id]
	if !ok {
		return history.PostRecord{}, history.ErrNotFound
	}
	return record, nil
}

func (f *fakePostStore) ListRecent(_ context.Context, limit int) ([]history.PostRecord, error) {
	out := make([]history.PostRecord, 0, len(f.records))
	for _, r := range f.records {
		out = append(out, r)
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakePostStore) MarkPublished(_ context.Context, id, publishedID string) error {
	f.published[id] = publishedID
	return nil
}

type fakeRetriever struct {
	docs   []grounding.Document
	status grounding.RetrievalStatus
	err    error
}

func (f *fakeRetriever) Retrieve(_ context.Context, _ string) ([]grounding.Document, grounding.RetrievalStatus, error) {
	if f.err != nil {
		return nil, grounding.RetrievalStatus{}, f.err
	}
	return f.docs, f.status, nil
}

func testLogger() logging.Logger {
	logger := logging.NewLogger()
	logger.SetOutput(io.Discard)
	return logger
}

func setupRouter(handler *Handler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	RegisterRoutes(router.Group("/api/v1"), handler)
	return router
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(payload)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func successResult() agents.OrchestratorResult {
	return agents.OrchestratorResult{
		Success: true,
		Variants: map[string]string{
			"storyteller": "story",
			"strategist":  "strategy",
			"provocateur": "bold take",
		},
		Hashtags:    "#Go #Backend",
		BestVariant: "strategist",
		AgentsRun:   []string{"InputProcessor", "Research", "ContentIntelligence", "Generation", "BrandVoice", "Optimization"},
	}
}

func TestGenerateSavesAndReturnsResult(t *testing.T) {
	workflow := &fakeWorkflow{result: successResult()}
	store := newFakePostStore()
	handler := NewHandler(workflow, nil, store, nil, testLogger())
	router := setupRouter(handler)

	w := doJSON(t, router, http.MethodPost, "/api/v1/generate", GenerateRequest{
		Text: "shipping fast", Tone: "bold",
	})

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var resp GenerateResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.PostID != "post-1" {
		t.Errorf("expected saved post id, got %q", resp.PostID)
	}
	if resp.Result.BestVariant != "strategist" {
		t.Errorf("unexpected best variant %q", resp.Result.BestVariant)
	}
	if len(store.saved) != 1 {
		t.Fatalf("expected 1 saved post, got %d", len(store.saved))
	}
	if store.saved[0].Topic != "shipping fast" {
		t.Errorf("unexpected saved topic %q", store.saved[0].Topic)
	}
	if len(store.saved[0].Hashtags) != 2 {
		t.Errorf("expected hashtags split into fields, got %v", store.saved[0].Hashtags)
	}
}

func TestGenerateRejectsEmptyInput(t *testing.T) {
	handler := NewHandler(&fakeWorkflow{}, nil, nil, nil, testLogger())
	router := setupRouter(handler)

	w := doJSON(t, router, http.MethodPost, "/api/v1/generate", GenerateRequest{})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestGenerateFailedWorkflowIs422(t *testing.T) {
	workflow := &fakeWorkflow{result: agents.OrchestratorResult{
		ErrorMessage: "No post variants were generated",
	}}
	handler := NewHandler(workflow, nil, newFakePostStore(), nil, testLogger())
	router := setupRouter(handler)

	w := doJSON(t, router, http.MethodPost, "/api/v1/generate", GenerateRequest{Text: "x"})
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", w.Code)
	}
}

func TestGenerateMergesRepositoryGrounding(t *testing.T) {
	workflow := &fakeWorkflow{result: successResult()}
	retriever := &fakeRetriever{
		docs: []grounding.Document{{Kind: "readme", Content: "A build tool.", Confidence: "high"}},
		status: grounding.RetrievalStatus{
			Repo:             "octo/tool",
			ReadmeFound:      true,
			SourcesUsed:      []string{"readme"},
			SourceCount:      1,
			DataCompleteness: "high",
		},
	}
	handler := NewHandler(workflow, nil, newFakePostStore(), retriever, testLogger())
	router := setupRouter(handler)

	w := doJSON(t, router, http.MethodPost, "/api/v1/generate", GenerateRequest{
		Text: "lessons from my project", RepoURL: "https://github.com/octo/tool",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if !strings.Contains(workflow.lastInput.Text, "[REPOSITORY README]") {
		t.Errorf("grounding not merged into input text: %q", workflow.lastInput.Text)
	}
	if !strings.Contains(workflow.lastInput.Text, "A build tool.") {
		t.Error("grounding content missing from input text")
	}
}

type fakeIndexer struct {
	collections []string
	indexed     int
	chunks      []knowledge.Chunk
	searchErr   error
	lastQuery   string
	lastLimit   int
}

func (f *fakeIndexer) IndexDocuments(_ context.Context, collection string, docs []grounding.Document) (int, error) {
	f.collections = append(f.collections, collection)
	f.indexed += len(docs)
	return len(docs), nil
}

func (f *fakeIndexer) SearchContext(_ context.Context, collection, query string, limit int) ([]knowledge.Chunk, error) {
	f.collections = append(f.collections, collection)
	f.lastQuery = query
	f.lastLimit = limit
	return f.chunks, f.searchErr
}

func TestGenerateIndexesGroundingDocuments(t *testing.T) {
	workflow := &fakeWorkflow{result: successResult()}
	retriever := &fakeRetriever{
		docs:   []grounding.Document{{Kind: "readme", Content: "docs"}},
		status: grounding.RetrievalStatus{Repo: "octo/tool", SourcesUsed: []string{"readme"}, DataCompleteness: "high"},
	}
	indexer := &fakeIndexer{}
	handler := NewHandler(workflow, nil, newFakePostStore(), retriever, testLogger())
	handler.Knowledge = indexer
	router := setupRouter(handler)

	w := doJSON(t, router, http.MethodPost, "/api/v1/generate", GenerateRequest{
		Text: "x", RepoURL: "https://github.com/octo/tool",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if indexer.indexed != 1 || len(indexer.collections) != 1 || indexer.collections[0] != "octo/tool" {
		t.Errorf("grounding documents not indexed: %+v", indexer)
	}
}

func TestGenerateInsufficientGroundingIs422(t *testing.T) {
	handler := NewHandler(&fakeWorkflow{}, nil, nil, &fakeRetriever{err: grounding.ErrInsufficientData}, testLogger())
	router := setupRouter(handler)

	w := doJSON(t, router, http.MethodPost, "/api/v1/generate", GenerateRequest{
		Text: "x", RepoURL: "https://github.com/octo/empty",
	})
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", w.Code)
	}
}

func TestListPostsRespectsLimit(t *testing.T) {
	store := newFakePostStore()
	for _, id := range []string{"a", "b", "c"} {
		store.records[id] = history.PostRecord{ID: id}
	}
	handler := NewHandler(nil, nil, store, nil, testLogger())
	router := setupRouter(handler)

	w := doJSON(t, router, http.MethodGet, "/api/v1/posts?limit=2", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var resp struct {
		Posts []history.PostRecord `json:"posts"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Posts) != 2 {
		t.Errorf("expected 2 posts, got %d", len(resp.Posts))
	}

	if w := doJSON(t, router, http.MethodGet, "/api/v1/posts?limit=zero", nil); w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for invalid limit, got %d", w.Code)
	}
}

func TestGetPostNotFound(t *testing.T) {
	handler := NewHandler(nil, nil, newFakePostStore(), nil, testLogger())
	router := setupRouter(handler)

	w := doJSON(t, router, http.MethodGet, "/api/v1/posts/missing", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestPublishUsesStoredVariantAndMarks(t *testing.T) {
	store := newFakePostStore()
	store.records["post-1"] = history.PostRecord{
		ID:          "post-1",
		Variants:    map[string]string{"storyteller": "the story", "strategist": "the plan"},
		BestVariant: "storyteller",
		Hashtags:    []string{"#Go"},
	}
	poster := &fakePoster{outcome: agents.PostOutcome{PostID: "li-9", PostURL: "https://www.linkedin.com/feed/update/li-9", Action: "posted"}}
	handler := NewHandler(nil, poster, store, nil, testLogger())
	router := setupRouter(handler)

	w := doJSON(t, router, http.MethodPost, "/api/v1/posts/post-1/publish", PublishRequest{Variant: "strategist"})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if poster.lastReq.Text != "the plan" {
		t.Errorf("expected strategist text, got %q", poster.lastReq.Text)
	}
	if store.published["post-1"] != "li-9" {
		t.Errorf("post not marked published: %v", store.published)
	}
}

func TestPublishDefaultsToBestVariant(t *testing.T) {
	store := newFakePostStore()
	store.records["post-1"] = history.PostRecord{
		ID:          "post-1",
		Variants:    map[string]string{"storyteller": "the story"},
		BestVariant: "storyteller",
	}
	poster := &fakePoster{}
	handler := NewHandler(nil, poster, store, nil, testLogger())
	router := setupRouter(handler)

	w := doJSON(t, router, http.MethodPost, "/api/v1/posts/post-1/publish", PublishRequest{})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if poster.lastReq.Text != "the story" {
		t.Errorf("expected best variant text, got %q", poster.lastReq.Text)
	}
}

func TestPublishUnconfiguredLinkedInIs503(t *testing.T) {
	store := newFakePostStore()
	store.records["post-1"] = history.PostRecord{
		ID:          "post-1",
		Variants:    map[string]string{"storyteller": "text"},
		BestVariant: "storyteller",
	}
	poster := &fakePoster{err: tools.ErrLinkedInNotConfigured}
	handler := NewHandler(nil, poster, store, nil, testLogger())
	router := setupRouter(handler)

	w := doJSON(t, router, http.MethodPost, "/api/v1/posts/post-1/publish", PublishRequest{})
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", w.Code)
	}
}

func TestGroundingPreview(t *testing.T) {
	retriever := &fakeRetriever{
		docs: []grounding.Document{{Kind: "metadata", Content: strings.Repeat("x", 400), Confidence: "high"}},
		status: grounding.RetrievalStatus{
			Repo:             "octo/tool",
			SourcesUsed:      []string{"metadata"},
			SourceCount:      1,
			DataCompleteness: "low",
		},
	}
	handler := NewHandler(nil, nil, nil, retriever, testLogger())
	router := setupRouter(handler)

	w := doJSON(t, router, http.MethodPost, "/api/v1/grounding/preview", GroundingPreviewRequest{RepoURL: "https://github.com/octo/tool"})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var resp GroundingPreviewResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Completeness != "low" {
		t.Errorf("unexpected completeness %q", resp.Completeness)
	}
	if len(resp.Documents) != 1 || len([]rune(resp.Documents[0].Preview)) != 300 {
		t.Errorf("expected 300-rune preview, got %d documents", len(resp.Documents))
	}

	if w := doJSON(t, router, http.MethodPost, "/api/v1/grounding/preview", GroundingPreviewRequest{}); w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for missing repo_url, got %d", w.Code)
	}
}

func TestKnowledgeSearchReturnsChunks(t *testing.T) {
	indexer := &fakeIndexer{chunks: []knowledge.Chunk{
		{SourceURL: "github://octo/tool#readme", SourceTitle: "README.md", SourceKind: "readme", Text: "Tool does things.", Similarity: 0.93},
	}}
	handler := NewHandler(nil, nil, nil, nil, testLogger())
	handler.Knowledge = indexer
	handler.SearchLimit = 8
	router := setupRouter(handler)

	w := doJSON(t, router, http.MethodPost, "/api/v1/knowledge/search", KnowledgeSearchRequest{
		Collection: "octo/tool", Query: "what does it do",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if indexer.lastLimit != 8 {
		t.Errorf("expected configured limit 8, got %d", indexer.lastLimit)
	}
	var resp struct {
		Results []KnowledgeSearchResult `json:"results"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Results) != 1 || resp.Results[0].Text != "Tool does things." {
		t.Errorf("unexpected results: %+v", resp.Results)
	}

	if w := doJSON(t, router, http.MethodPost, "/api/v1/knowledge/search", KnowledgeSearchRequest{Query: "x"}); w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for missing collection, got %d", w.Code)
	}
}

func TestKnowledgeSearchUnconfiguredIs503(t *testing.T) {
	handler := NewHandler(nil, nil, nil, nil, testLogger())
	router := setupRouter(handler)

	w := doJSON(t, router, http.MethodPost, "/api/v1/knowledge/search", KnowledgeSearchRequest{
		Collection: "octo/tool", Query: "anything",
	})
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %d", w.Code)
	}
}
