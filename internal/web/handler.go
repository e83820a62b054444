package web

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/draftdeck/scrivener/internal/agents"
	"github.com/draftdeck/scrivener/internal/grounding"
	"github.com/draftdeck/scrivener/internal/history"
	"github.com/draftdeck/scrivener/internal/knowledge"
	"github.com/draftdeck/scrivener/internal/tools"
	"github.com/draftdeck/scrivener/pkg/logging"
)

const (
	maxTopicRunes    = 4000
	defaultListLimit = 20
	maxListLimit     = 100
)

// WorkflowRunner runs the generation pipeline.
type WorkflowRunner interface {
	ExecuteWorkflow(ctx context.Context, input agents.UserInput) agents.OrchestratorResult
}

// Publisher posts a finished variant to LinkedIn.
type Publisher interface {
	Publish(ctx context.Context, req agents.PostRequest) (agents.PostOutcome, error)
}

// PostStore persists generated posts.
type PostStore interface {
	SavePost(ctx context.Context, record history.PostRecord) (history.PostRecord, error)
	GetPost(ctx context.Context, id string) (history.PostRecord, error)
	ListRecent(ctx context.Context, limit int) ([]history.PostRecord, error)
	MarkPublished(ctx context.Context, id, publishedID string) error
}

// ContextRetriever fetches grounding documents for a repository.
type ContextRetriever interface {
	Retrieve(ctx context.Context, repoURL string) ([]grounding.Document, grounding.RetrievalStatus, error)
}

// KnowledgeIndexer persists grounding documents and serves semantic search
// over previously indexed collections.
type KnowledgeIndexer interface {
	IndexDocuments(ctx context.Context, collection string, docs []grounding.Document) (int, error)
	SearchContext(ctx context.Context, collection, query string, limit int) ([]knowledge.Chunk, error)
}

type Handler struct {
	Workflow    WorkflowRunner
	Poster      Publisher
	Posts       PostStore
	Retriever   ContextRetriever
	Knowledge   KnowledgeIndexer
	SearchLimit int
	Logger      logging.Logger
}

func NewHandler(workflow WorkflowRunner, poster Publisher, posts PostStore, retriever ContextRetriever, logger logging.Logger) *Handler {
	return &Handler{
		Workflow:  workflow,
		Poster:    poster,
		Posts:     posts,
		Retriever: retriever,
		Logger:    logger,
	}
}

func RegisterRoutes(router gin.IRoutes, handler *Handler) {
	router.POST("/generate", handler.HandleGenerate)
	router.GET("/posts", handler.HandleListPosts)
	router.GET("/posts/:id", handler.HandleGetPost)
	router.POST("/posts/:id/publish", handler.HandlePublish)
	router.POST("/grounding/preview", handler.HandleGroundingPreview)
	router.POST("/knowledge/search", handler.HandleKnowledgeSearch)
}

type GenerateRequest struct {
	Text          string   `json:"text"`
	Topic         string   `json:"topic"`
	ImagePaths    []string `json:"image_paths"`
	DocumentPaths []string `json:"document_paths"`
	URLs          []string `json:"urls"`
	PastPosts     []string `json:"past_posts"`
	Tone          string   `json:"tone"`
	Audience      string   `json:"audience"`
	RepoURL       string   `json:"repo_url"`
}

type GenerateResponse struct {
	PostID    string                    `json:"post_id,omitempty"`
	Result    agents.OrchestratorResult `json:"result"`
	Grounding *GroundingPreviewResponse `json:"grounding,omitempty"`
}

func (h *Handler) HandleGenerate(c *gin.Context) {
	if h.Workflow == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "workflow unavailable"})
		return
	}

	var req GenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request payload"})
		return
	}
	req.Text = strings.TrimSpace(req.Text)
	if len([]rune(req.Text)) > maxTopicRunes {
		c.JSON(http.StatusBadRequest, gin.H{"error": "text too long"})
		return
	}

	input := agents.UserInput{
		Text:          req.Text,
		Topic:         req.Topic,
		ImagePaths:    req.ImagePaths,
		DocumentPaths: req.DocumentPaths,
		URLs:          req.URLs,
		PastPosts:     req.PastPosts,
		Tone:          req.Tone,
		Audience:      req.Audience,
	}

	// Repository grounding enriches the input text before the pipeline runs.
	var preview *GroundingPreviewResponse
	if req.RepoURL != "" && h.Retriever != nil {
		docs, status, err := h.Retriever.Retrieve(c.Request.Context(), req.RepoURL)
		if err != nil {
			if errors.Is(err, grounding.ErrInsufficientData) {
				c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "no grounding data could be retrieved for the repository"})
				return
			}
			c.JSON(http.StatusBadGateway, gin.H{"error": "repository retrieval failed"})
			return
		}
		preview = groundingPreview(docs, status)
		input.Text = mergeGrounding(input.Text, docs)

		// Indexing failures never block generation.
		if h.Knowledge != nil {
			if _, err := h.Knowledge.IndexDocuments(c.Request.Context(), status.Repo, docs); err != nil {
				if h.Logger != nil {
					h.Logger.WithError(err).Warn("Failed to index grounding documents")
				}
			}
		}
	}

	if !input.HasContent() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "at least one of text, image_paths, document_paths, or urls is required"})
		return
	}

	result := h.Workflow.ExecuteWorkflow(c.Request.Context(), input)

	resp := GenerateResponse{Result: result, Grounding: preview}
	if result.Success && h.Posts != nil {
		record, err := h.Posts.SavePost(c.Request.Context(), history.PostRecord{
			Topic:       firstNonEmpty(req.Topic, req.Text),
			Variants:    result.Variants,
			BestVariant: result.BestVariant,
			Hashtags:    strings.Fields(result.Hashtags),
			Sources:     groundingSources(preview),
		})
		if err != nil {
			if h.Logger != nil {
				h.Logger.WithError(err).Warn("Failed to persist generated post")
			}
		} else {
			resp.PostID = record.ID
		}
	}

	status := http.StatusOK
	if !result.Success {
		status = http.StatusUnprocessableEntity
	}
	c.JSON(status, resp)
}

func (h *Handler) HandleListPosts(c *gin.Context) {
	if h.Posts == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "post store unavailable"})
		return
	}

	limit := defaultListLimit
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		if parsed > maxListLimit {
			parsed = maxListLimit
		}
		limit = parsed
	}

	records, err := h.Posts.ListRecent(c.Request.Context(), limit)
	if err != nil {
		if h.Logger != nil {
			h.Logger.WithError(err).Error("Failed to list posts")
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list posts"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"posts": records})
}

func (h *Handler) HandleGetPost(c *gin.Context) {
	if h.Posts == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "post store unavailable"})
		return
	}

	record, err := h.Posts.GetPost(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, history.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "post not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load post"})
		return
	}
	c.JSON(http.StatusOK, record)
}

type PublishRequest struct {
	Variant    string `json:"variant"`
	Visibility string `json:"visibility"`
	Scheduled  bool   `json:"scheduled"`
}

func (h *Handler) HandlePublish(c *gin.Context) {
	if h.Posts == nil || h.Poster == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "publishing unavailable"})
		return
	}

	var req PublishRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request payload"})
		return
	}

	record, err := h.Posts.GetPost(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, history.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "post not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load post"})
		return
	}

	variant := req.Variant
	if variant == "" {
		variant = record.BestVariant
	}
	text, ok := record.Variants[variant]
	if !ok || text == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown variant"})
		return
	}

	outcome, err := h.Poster.Publish(c.Request.Context(), agents.PostRequest{
		Text:       text,
		Hashtags:   record.Hashtags,
		Visibility: req.Visibility,
		Scheduled:  req.Scheduled,
	})
	if err != nil {
		if errors.Is(err, tools.ErrLinkedInNotConfigured) {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "linkedin credentials not configured"})
			return
		}
		if h.Logger != nil {
			h.Logger.WithError(err).Error("LinkedIn publish failed")
		}
		c.JSON(http.StatusBadGateway, gin.H{"error": "publishing failed"})
		return
	}

	if err := h.Posts.MarkPublished(c.Request.Context(), record.ID, outcome.PostID); err != nil {
		if h.Logger != nil {
			h.Logger.WithError(err).Warn("Failed to mark post published")
		}
	}
	c.JSON(http.StatusOK, outcome)
}

type GroundingPreviewRequest struct {
	RepoURL string `json:"repo_url"`
}

type GroundingPreviewResponse struct {
	Repo         string            `json:"repo"`
	SourcesUsed  []string          `json:"sources_used"`
	Completeness string            `json:"data_completeness"`
	Transparency string            `json:"transparency"`
	Documents    []GroundedDocInfo `json:"documents"`
}

type GroundedDocInfo struct {
	Kind       string `json:"kind"`
	File       string `json:"file,omitempty"`
	Branch     string `json:"branch,omitempty"`
	Confidence string `json:"confidence"`
	Preview    string `json:"preview"`
}

func (h *Handler) HandleGroundingPreview(c *gin.Context) {
	if h.Retriever == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "retriever unavailable"})
		return
	}

	var req GroundingPreviewRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.RepoURL) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "repo_url is required"})
		return
	}

	docs, status, err := h.Retriever.Retrieve(c.Request.Context(), req.RepoURL)
	if err != nil {
		if errors.Is(err, grounding.ErrInsufficientData) {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "no grounding data could be retrieved for the repository"})
			return
		}
		c.JSON(http.StatusBadGateway, gin.H{"error": "repository retrieval failed"})
		return
	}
	c.JSON(http.StatusOK, groundingPreview(docs, status))
}

type KnowledgeSearchRequest struct {
	Collection string `json:"collection"`
	Query      string `json:"query"`
	Limit      int    `json:"limit"`
}

type KnowledgeSearchResult struct {
	SourceURL   string  `json:"source_url"`
	SourceTitle string  `json:"source_title,omitempty"`
	SourceKind  string  `json:"source_kind"`
	Text        string  `json:"text"`
	Similarity  float64 `json:"similarity"`
}

func (h *Handler) HandleKnowledgeSearch(c *gin.Context) {
	if h.Knowledge == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "knowledge indexing is not configured"})
		return
	}

	var req KnowledgeSearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request payload"})
		return
	}
	if strings.TrimSpace(req.Collection) == "" || strings.TrimSpace(req.Query) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "collection and query are required"})
		return
	}

	limit := req.Limit
	if limit < 1 {
		limit = h.SearchLimit
	}
	if limit < 1 {
		limit = defaultListLimit
	}

	chunks, err := h.Knowledge.SearchContext(c.Request.Context(), req.Collection, req.Query, limit)
	if err != nil {
		if h.Logger != nil {
			h.Logger.WithError(err).Error("Knowledge search failed")
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "knowledge search failed"})
		return
	}

	results := make([]KnowledgeSearchResult, 0, len(chunks))
	for _, chunk := range chunks {
		results = append(results, KnowledgeSearchResult{
			SourceURL:   chunk.SourceURL,
			SourceTitle: chunk.SourceTitle,
			SourceKind:  chunk.SourceKind,
			Text:        chunk.Text,
			Similarity:  chunk.Similarity,
		})
	}
	c.JSON(http.StatusOK, gin.H{"results": results})
}

func groundingPreview(docs []grounding.Document, status grounding.RetrievalStatus) *GroundingPreviewResponse {
	resp := &GroundingPreviewResponse{
		Repo:         status.Repo,
		SourcesUsed:  status.SourcesUsed,
		Completeness: status.DataCompleteness,
		Transparency: grounding.TransparencyMessage(status),
	}
	for _, doc := range docs {
		preview := doc.Content
		if runes := []rune(preview); len(runes) > 300 {
			preview = string(runes[:300])
		}
		resp.Documents = append(resp.Documents, GroundedDocInfo{
			Kind:       doc.Kind,
			File:       doc.File,
			Branch:     doc.Branch,
			Confidence: doc.Confidence,
			Preview:    preview,
		})
	}
	return resp
}

// mergeGrounding appends retrieved repository context to the user text so
// the input stage treats it as source material.
func mergeGrounding(text string, docs []grounding.Document) string {
	var b strings.Builder
	b.WriteString(text)
	for _, doc := range docs {
		b.WriteString("\n\n[REPOSITORY ")
		b.WriteString(strings.ToUpper(doc.Kind))
		b.WriteString("]\n")
		b.WriteString(doc.Content)
	}
	return strings.TrimSpace(b.String())
}

func groundingSources(preview *GroundingPreviewResponse) []string {
	if preview == nil {
		return nil
	}
	return preview.SourcesUsed
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
