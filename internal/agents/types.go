package agents

import (
	"context"
	"errors"
	"time"
)

// Variant names produced by the Generation stage.
const (
	VariantStoryteller = "storyteller"
	VariantStrategist  = "strategist"
	VariantProvocateur = "provocateur"
)

var variantNames = []string{VariantStoryteller, VariantStrategist, VariantProvocateur}

// ErrNoVariants is the terminal pipeline failure: the run ended with no
// post variants in the workflow state.
var ErrNoVariants = errors.New("no post variants were generated")

const noVariantsMessage = "No post variants were generated"

// Stage statuses reported through the status callback.
const (
	StatusRunning  = "running"
	StatusComplete = "complete"
	StatusError    = "error"
)

// UserInput is everything the caller can hand to the pipeline. At least one
// of Text, ImagePaths, DocumentPaths, or URLs must be non-empty.
type UserInput struct {
	Text          string   `json:"text"`
	Topic         string   `json:"topic"`
	ImagePaths    []string `json:"image_paths"`
	DocumentPaths []string `json:"document_paths"`
	URLs          []string `json:"urls"`
	PastPosts     []string `json:"past_posts"`
	Tone          string   `json:"tone"`
	Audience      string   `json:"audience"`
}

// HasContent reports whether any content-bearing field is set.
func (in UserInput) HasContent() bool {
	return in.Text != "" || len(in.ImagePaths) > 0 || len(in.DocumentPaths) > 0 || len(in.URLs) > 0
}

// WorkflowStatus is a real-time progress event handed to the status callback.
type WorkflowStatus struct {
	AgentName string        `json:"agent_name"`
	Status    string        `json:"status"`
	Message   string        `json:"message"`
	Progress  float64       `json:"progress"`
	Elapsed   time.Duration `json:"elapsed"`
}

// StageOutput is a stage's typed contribution, merged into the workflow
// state by the orchestrator.
type StageOutput interface {
	Apply(*State)
}

// StageResult is the standardized outcome of one stage run. A failed stage
// reports through ErrorMessage and never panics; the orchestrator logs it
// and moves on.
type StageResult struct {
	Success        bool
	AgentName      string
	Output         StageOutput
	Summary        string
	ProcessingTime time.Duration
	ErrorMessage   string
}

// Stage is one step of the pipeline.
type Stage interface {
	Name() string
	Run(ctx context.Context, state *State) StageResult
}

// ResearchSummary groups the research fields surfaced in the final result.
type ResearchSummary struct {
	TrendingHashtags     []string `json:"trending_hashtags"`
	RelatedTopics        []string `json:"related_topics"`
	ContentOpportunities []string `json:"content_opportunities"`
	MarketIntelligence   string   `json:"market_intelligence"`
}

// OrchestratorResult is the final output of a workflow run.
type OrchestratorResult struct {
	Success                bool                           `json:"success"`
	Variants               map[string]string              `json:"variants"`
	Hashtags               string                         `json:"hashtags"`
	Strategy               Strategy                       `json:"strategy"`
	Research               ResearchSummary                `json:"research"`
	BrandFeedback          map[string]BrandFeedback       `json:"brand_feedback"`
	Optimization           map[string]VariantOptimization `json:"optimization"`
	OverallRecommendations []string                       `json:"overall_recommendations"`
	BestVariant            string                         `json:"best_variant"`
	TotalTime              time.Duration                  `json:"total_time"`
	AgentsRun              []string                       `json:"agents_run"`
	ErrorMessage           string                         `json:"error_message,omitempty"`
}

func success(name, summary string, output StageOutput, elapsed time.Duration) StageResult {
	return StageResult{
		Success:        true,
		AgentName:      name,
		Output:         output,
		Summary:        summary,
		ProcessingTime: elapsed,
	}
}

func failure(name, message string, elapsed time.Duration) StageResult {
	return StageResult{
		AgentName:      name,
		ErrorMessage:   message,
		ProcessingTime: elapsed,
	}
}
