package agents

import (
	"context"
	"fmt"
	"time"

	"github.com/draftdeck/scrivener/internal/tools"
	"github.com/draftdeck/scrivener/pkg/llm"
	"github.com/draftdeck/scrivener/pkg/logging"
	"github.com/draftdeck/scrivener/pkg/search"
)

// pipelineEntry pairs a stage with the progress fraction reported while it
// runs. The order is fixed; no stage is ever skipped or reordered.
type pipelineEntry struct {
	name     string
	progress float64
	stage    Stage
}

// StatusCallback receives progress events during a workflow run. A panic in
// the callback is recovered and logged; observability never breaks the
// pipeline.
type StatusCallback func(WorkflowStatus)

type OrchestratorConfig struct {
	LLM            llm.Provider
	Search         search.Provider
	Logger         logging.Logger
	StatusCallback StatusCallback
}

// Orchestrator drives the six-stage generation pipeline. Individual stage
// failures are logged and the run continues; the only terminal condition is
// ending with no variants.
type Orchestrator struct {
	pipeline []pipelineEntry
	brand    *BrandVoice
	callback StatusCallback
	logger   logging.Logger
}

// instrumentedProvider counts completions so operators can see LLM traffic
// and error rates per pipeline run.
type instrumentedProvider struct {
	inner llm.Provider
}

func (p instrumentedProvider) Complete(ctx context.Context, messages []llm.Message) (string, error) {
	resp, err := p.inner.Complete(ctx, messages)
	if err != nil {
		llmRequestsTotal.WithLabelValues("error").Inc()
		return resp, err
	}
	llmRequestsTotal.WithLabelValues("success").Inc()
	return resp, nil
}

func NewOrchestrator(cfg OrchestratorConfig) *Orchestrator {
	log := cfg.Logger
	provider := cfg.LLM
	if provider != nil {
		provider = instrumentedProvider{inner: provider}
	}

	input := NewInputProcessor(InputProcessorConfig{
		LLM:     provider,
		Scraper: tools.NewWebScraper(tools.WebScraperConfig{Logger: log}),
		Images:  tools.NewImageDescriber(tools.ImageDescriberConfig{LLM: provider, Logger: log}),
		Logger:  log,
	})
	research := NewResearch(ResearchConfig{
		LLM:    provider,
		Trends: tools.NewTrendAnalyzer(tools.TrendAnalyzerConfig{LLM: provider, Search: cfg.Search, Logger: log}),
		Logger: log,
	})
	intelligence := NewContentIntelligence(ContentIntelligenceConfig{LLM: provider, Logger: log})
	generation := NewGeneration(GenerationConfig{LLM: provider, Logger: log})
	brand := NewBrandVoice(BrandVoiceConfig{
		Analyzer: tools.NewBrandAnalyzer(tools.BrandAnalyzerConfig{LLM: provider, Logger: log}),
		Logger:   log,
	})
	optimization := NewOptimization(OptimizationConfig{
		Engagement: tools.NewEngagementPredictor(tools.EngagementPredictorConfig{LLM: provider, Logger: log}),
		Sentiment:  tools.NewSentimentAnalyzer(tools.SentimentAnalyzerConfig{LLM: provider, Logger: log}),
		Logger:     log,
	})

	o := &Orchestrator{
		pipeline: []pipelineEntry{
			{"InputProcessor", 0.10, input},
			{"Research", 0.20, research},
			{"ContentIntelligence", 0.30, intelligence},
			{"Generation", 0.55, generation},
			{"BrandVoice", 0.75, brand},
			{"Optimization", 0.95, optimization},
		},
		brand:    brand,
		callback: cfg.StatusCallback,
		logger:   log,
	}
	if log != nil {
		log.Info("Agent orchestrator initialized (6-stage pipeline)")
	}
	return o
}

// SetBrandProfile seeds a previously persisted brand profile so the
// BrandVoice stage does not have to rebuild it from past posts every run.
func (o *Orchestrator) SetBrandProfile(profile tools.BrandProfile) {
	o.brand.SetProfile(profile)
}

// ExecuteWorkflow runs the full pipeline over the given input. It always
// returns a structurally complete result; Success is false only when the
// run ended with no post variants.
func (o *Orchestrator) ExecuteWorkflow(ctx context.Context, input UserInput) OrchestratorResult {
	start := time.Now()
	state := NewState(input)
	agentsRun := make([]string, 0, len(o.pipeline))

	if o.logger != nil {
		o.logger.WithFields(logging.Fields{
			"images":    len(input.ImagePaths),
			"documents": len(input.DocumentPaths),
			"urls":      len(input.URLs),
		}).Info("Starting content generation workflow")
	}

	for _, entry := range o.pipeline {
		o.emit(WorkflowStatus{
			AgentName: entry.name,
			Status:    StatusRunning,
			Message:   fmt.Sprintf("Running %s...", entry.name),
			Progress:  entry.progress,
		})

		stageStart := time.Now()
		result := entry.stage.Run(ctx, state)
		stageDuration.WithLabelValues(entry.name).Observe(time.Since(stageStart).Seconds())
		agentsRun = append(agentsRun, entry.name)

		if !result.Success {
			stageFailuresTotal.WithLabelValues(entry.name).Inc()
			if o.logger != nil {
				o.logger.WithFields(logging.Fields{
					"stage": entry.name,
					"error": result.ErrorMessage,
				}).Warn("Stage failed, continuing workflow")
			}
			o.emit(WorkflowStatus{
				AgentName: entry.name,
				Status:    StatusError,
				Message:   result.ErrorMessage,
				Progress:  entry.progress,
			})
			continue
		}

		if result.Output != nil {
			result.Output.Apply(state)
		}
		o.emit(WorkflowStatus{
			AgentName: entry.name,
			Status:    StatusComplete,
			Message:   result.Summary,
			Progress:  entry.progress,
			Elapsed:   result.ProcessingTime,
		})
		if o.logger != nil {
			o.logger.WithFields(logging.Fields{"stage": entry.name}).Info(result.Summary)
		}
	}

	totalTime := time.Since(start)
	o.emit(WorkflowStatus{
		AgentName: "Orchestrator",
		Status:    StatusComplete,
		Message:   fmt.Sprintf("Workflow complete in %.1fs", totalTime.Seconds()),
		Progress:  1.0,
		Elapsed:   totalTime,
	})

	if len(state.Variants) == 0 {
		workflowRunsTotal.WithLabelValues("no_variants").Inc()
		return OrchestratorResult{
			ErrorMessage: noVariantsMessage,
			TotalTime:    totalTime,
			AgentsRun:    agentsRun,
		}
	}

	workflowRunsTotal.WithLabelValues("success").Inc()
	workflowDuration.Observe(totalTime.Seconds())

	best := state.BestVariant
	if best == "" {
		best = VariantStoryteller
	}

	return OrchestratorResult{
		Success:  true,
		Variants: state.Variants,
		Hashtags: state.Hashtags,
		Strategy: state.Strategy,
		Research: ResearchSummary{
			TrendingHashtags:     state.TrendingHashtags,
			RelatedTopics:        state.RelatedTopics,
			ContentOpportunities: state.ContentOpportunities,
			MarketIntelligence:   state.MarketIntelligence,
		},
		BrandFeedback:          state.BrandFeedback,
		Optimization:           state.Optimization,
		OverallRecommendations: state.OverallRecommendations,
		BestVariant:            best,
		TotalTime:              totalTime,
		AgentsRun:              agentsRun,
	}
}

// emit delivers a status event to the callback. This is the one place in
// the pipeline where a panic is recovered: a broken UI callback must not
// take the workflow down with it.
func (o *Orchestrator) emit(status WorkflowStatus) {
	if o.callback == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil && o.logger != nil {
			o.logger.WithFields(logging.Fields{
				"stage": status.AgentName,
				"panic": r,
			}).Warn("Status callback panicked")
		}
	}()
	o.callback(status)
}
