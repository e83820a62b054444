package config

import (
	"time"

	"github.com/draftdeck/scrivener/pkg/config"
)

// Config stores environment configuration for Scrivener.
type Config struct {
	Port                string
	DatabaseURL         string
	LLMProvider         string
	LLMModel            string
	LLMAPIKey           string
	LLMAPIURL           string
	LLMMaxTokens        int
	EmbeddingProvider   string
	EmbeddingModel      string
	EmbeddingAPIKey     string
	EmbeddingAPIURL     string
	EmbeddingDimensions int
	SearchProvider      string
	SearchAPIKey        string
	SearchAPIURL        string
	GitHubToken         string
	GitHubAPIBase       string
	GitHubRawBase       string
	LinkedInAccessToken string
	LinkedInUserID      string
	LinkedInAPIBase     string
	ChunkTokenLimit     int
	ChunkTokenOverlap   int
	KnowledgeSearchLim  int
	RequestTimeout      time.Duration
	RecentPostsLimit    int
}

// LoadConfig loads the Scrivener configuration from environment variables.
func LoadConfig() Config {
	return Config{
		Port:                config.GetEnv("PORT", "18030"),
		DatabaseURL:         config.RequireEnv("DATABASE_URL"),
		LLMProvider:         config.GetEnv("LLM_PROVIDER", ""),
		LLMModel:            config.GetEnv("LLM_MODEL", ""),
		LLMAPIKey:           config.GetEnv("LLM_API_KEY", ""),
		LLMAPIURL:           config.GetEnv("LLM_API_URL", ""),
		LLMMaxTokens:        config.GetEnvInt("LLM_MAX_TOKENS", 4096),
		EmbeddingProvider:   config.GetEnv("EMBEDDING_PROVIDER", config.GetEnv("LLM_PROVIDER", "")),
		EmbeddingModel:      config.GetEnv("EMBEDDING_MODEL", config.GetEnv("LLM_MODEL", "")),
		EmbeddingAPIKey:     config.GetEnv("EMBEDDING_API_KEY", config.GetEnv("LLM_API_KEY", "")),
		EmbeddingAPIURL:     config.GetEnv("EMBEDDING_API_URL", config.GetEnv("LLM_API_URL", "")),
		EmbeddingDimensions: config.GetEnvInt("EMBEDDING_DIMENSIONS", 0),
		SearchProvider:      config.GetEnv("SEARCH_PROVIDER", ""),
		SearchAPIKey:        config.GetEnv("SEARCH_API_KEY", ""),
		SearchAPIURL:        config.GetEnv("SEARCH_API_URL", ""),
		GitHubToken:         config.GetEnv("GITHUB_TOKEN", ""),
		GitHubAPIBase:       config.GetEnv("GITHUB_API_URL", ""),
		GitHubRawBase:       config.GetEnv("GITHUB_RAW_URL", ""),
		LinkedInAccessToken: config.GetEnv("LINKEDIN_ACCESS_TOKEN", ""),
		LinkedInUserID:      config.GetEnv("LINKEDIN_USER_ID", ""),
		LinkedInAPIBase:     config.GetEnv("LINKEDIN_API_URL", ""),
		ChunkTokenLimit:     config.GetEnvInt("CHUNK_TOKEN_LIMIT", 500),
		ChunkTokenOverlap:   config.GetEnvInt("CHUNK_TOKEN_OVERLAP", 50),
		KnowledgeSearchLim:  config.GetEnvInt("SCRIVENER_SEARCH_LIMIT", 8),
		RequestTimeout:      config.GetEnvDuration("SCRIVENER_REQUEST_TIMEOUT", 120*time.Second),
		RecentPostsLimit:    config.GetEnvInt("SCRIVENER_RECENT_POSTS", 20),
	}
}
