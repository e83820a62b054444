package main

import (
	"context"
	"time"

	"github.com/draftdeck/scrivener/internal/agents"
	scrivenerconfig "github.com/draftdeck/scrivener/internal/config"
	"github.com/draftdeck/scrivener/internal/grounding"
	"github.com/draftdeck/scrivener/internal/history"
	"github.com/draftdeck/scrivener/internal/knowledge"
	"github.com/draftdeck/scrivener/internal/tools"
	"github.com/draftdeck/scrivener/internal/web"
	"github.com/draftdeck/scrivener/pkg/config"
	"github.com/draftdeck/scrivener/pkg/database"
	"github.com/draftdeck/scrivener/pkg/llm"
	"github.com/draftdeck/scrivener/pkg/logging"
	"github.com/draftdeck/scrivener/pkg/middleware"
	"github.com/draftdeck/scrivener/pkg/monitoring"
	"github.com/draftdeck/scrivener/pkg/search"
	"github.com/draftdeck/scrivener/pkg/server"
)

const serviceVersion = "dev"

func main() {
	// Setup logger
	logger := logging.NewLoggerWithService("scrivener")

	// Load environment variables
	config.LoadEnv(logger)

	logger.Info("Starting Scrivener (LinkedIn content generation service)")

	cfg := scrivenerconfig.LoadConfig()

	// Connect to database
	dbConfig := database.DefaultConfig()
	dbConfig.URL = cfg.DatabaseURL
	db := database.MustConnect(dbConfig, logger)
	defer func() { _ = db.Close() }()

	startupCtx, startupCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer startupCancel()

	if err := history.EnsureSchema(startupCtx, db); err != nil {
		logger.WithError(err).Fatal("Failed to ensure history schema")
	}

	// Setup monitoring
	healthChecker := monitoring.NewHealthChecker("scrivener", serviceVersion)
	metricsCollector := monitoring.NewMetricsCollector("scrivener", serviceVersion, "")

	healthChecker.AddCheck("database", monitoring.DatabaseHealthCheck(db))
	healthChecker.AddCheck("config", monitoring.ConfigurationHealthCheck(map[string]string{
		"DATABASE_URL": cfg.DatabaseURL,
	}))

	llmProvider, err := llm.NewProvider(llm.Config{
		Provider:  cfg.LLMProvider,
		Model:     cfg.LLMModel,
		APIKey:    cfg.LLMAPIKey,
		APIURL:    cfg.LLMAPIURL,
		MaxTokens: cfg.LLMMaxTokens,
	})
	if err != nil {
		logger.WithError(err).Warn("Failed to initialize LLM provider - running in heuristic mode")
		llmProvider = nil
	}

	searchProvider, err := search.NewProvider(search.Config{
		Provider: cfg.SearchProvider,
		APIKey:   cfg.SearchAPIKey,
		APIURL:   cfg.SearchAPIURL,
	})
	if err != nil {
		logger.WithError(err).Warn("Failed to initialize search provider - live trend research disabled")
		searchProvider = nil
	}

	// Knowledge indexing is optional; the embedder initializes lazily on
	// first use so a slow embedding endpoint never delays startup.
	var indexer *knowledge.Indexer
	embeddingClient, err := llm.NewEmbeddingClient(llm.Config{
		Provider: cfg.EmbeddingProvider,
		Model:    cfg.EmbeddingModel,
		APIKey:   cfg.EmbeddingAPIKey,
		APIURL:   cfg.EmbeddingAPIURL,
	})
	if err != nil {
		logger.WithError(err).Warn("Failed to initialize embedding client - knowledge indexing disabled")
	} else {
		dimensions := cfg.EmbeddingDimensions
		if dimensions == 0 {
			dimensions, err = llm.ProbeEmbeddingDimensions(startupCtx, embeddingClient)
			if err != nil {
				logger.WithError(err).Warn("Failed to probe embedding dimensions - knowledge indexing disabled")
			}
		}
		if dimensions > 0 {
			if err := knowledge.EnsureSchema(startupCtx, db, dimensions); err != nil {
				logger.WithError(err).Warn("Failed to ensure knowledge schema - knowledge indexing disabled")
			} else {
				embedder := knowledge.NewLazyEmbedder(func() (*knowledge.Embedder, error) {
					return knowledge.NewEmbedder(embeddingClient,
						knowledge.WithTokenLimit(cfg.ChunkTokenLimit),
						knowledge.WithTokenOverlap(cfg.ChunkTokenOverlap),
					)
				})
				indexer, err = knowledge.NewIndexer(knowledge.IndexerConfig{
					Embedder: embedder,
					Store:    knowledge.NewStore(db),
					Logger:   logger,
				})
				if err != nil {
					logger.WithError(err).Warn("Failed to initialize knowledge indexer")
				}
			}
		}
	}

	retriever := grounding.NewRetriever(grounding.RetrieverConfig{
		Token:   cfg.GitHubToken,
		APIBase: cfg.GitHubAPIBase,
		RawBase: cfg.GitHubRawBase,
		Logger:  logger,
	})

	orchestrator := agents.NewOrchestrator(agents.OrchestratorConfig{
		LLM:    llmProvider,
		Search: searchProvider,
		Logger: logger,
	})

	linkedin := tools.NewLinkedInClient(tools.LinkedInClientConfig{
		AccessToken: cfg.LinkedInAccessToken,
		UserID:      cfg.LinkedInUserID,
		APIBase:     cfg.LinkedInAPIBase,
		Logger:      logger,
	})
	if !linkedin.Configured() {
		logger.Warn("LINKEDIN_ACCESS_TOKEN/LINKEDIN_USER_ID not set - publishing disabled")
	}
	poster := agents.NewPoster(agents.PosterConfig{LinkedIn: linkedin, Logger: logger})

	postStore := history.NewStore(db)

	// Seed the brand voice from previously generated posts so the first
	// request of the day is already personalized.
	if texts, err := postStore.RecentPostTexts(startupCtx, cfg.RecentPostsLimit); err != nil {
		logger.WithError(err).Warn("Failed to load recent posts for brand profile")
	} else if len(texts) > 0 {
		analyzer := tools.NewBrandAnalyzer(tools.BrandAnalyzerConfig{LLM: llmProvider, Logger: logger})
		orchestrator.SetBrandProfile(analyzer.BuildProfile(startupCtx, texts))
		logger.WithField("posts", len(texts)).Info("Brand profile seeded from post history")
	}

	handler := web.NewHandler(orchestrator, poster, postStore, retriever, logger)
	handler.SearchLimit = cfg.KnowledgeSearchLim
	if indexer != nil {
		handler.Knowledge = indexer
	}

	router := server.SetupServiceRouter(logger, "scrivener", healthChecker, metricsCollector)
	api := router.Group("/api/v1", middleware.TimeoutMiddleware(cfg.RequestTimeout))
	web.RegisterRoutes(api, handler)

	srvConfig := server.DefaultConfig("scrivener", cfg.Port)
	if err := server.Start(srvConfig, router, logger); err != nil {
		logger.WithError(err).Fatal("Server exited with error")
	}
}
