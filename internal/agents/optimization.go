package agents

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/draftdeck/scrivener/internal/tools"
	"github.com/draftdeck/scrivener/pkg/logging"
)

const maxFinalHashtags = 8

type OptimizationConfig struct {
	Engagement *tools.EngagementPredictor
	Sentiment  *tools.SentimentAnalyzer
	Logger     logging.Logger
}

// Optimization is the sixth and final pipeline stage: it forecasts
// engagement per variant, picks the best one, trims the hashtag set, and
// assembles the overall recommendations.
type Optimization struct {
	engagement *tools.EngagementPredictor
	sentiment  *tools.SentimentAnalyzer
	logger     logging.Logger
}

func NewOptimization(cfg OptimizationConfig) *Optimization {
	return &Optimization{
		engagement: cfg.Engagement,
		sentiment:  cfg.Sentiment,
		logger:     cfg.Logger,
	}
}

func (a *Optimization) Name() string { return "Optimization" }

func (a *Optimization) Run(ctx context.Context, state *State) StageResult {
	start := time.Now()

	if len(state.Variants) == 0 {
		return failure(a.Name(), "No variants to optimize", time.Since(start))
	}

	data := make(map[string]VariantOptimization, len(state.Variants))
	best := VariantStoryteller
	bestScore := 0.0

	// Iterate in fixed variant order so ties resolve the same way every run.
	for _, key := range variantNames {
		text, ok := state.Variants[key]
		if !ok {
			continue
		}

		forecast := a.engagement.Predict(ctx, text)
		report := a.sentiment.Analyze(ctx, text)

		tips := append([]string{}, forecast.ImprovementTips...)
		tips = append(tips, report.Improvements...)
		tips = tools.DedupeStrings(tips)
		if len(tips) > 5 {
			tips = tips[:5]
		}

		data[key] = VariantOptimization{
			Engagement: EngagementSummary{
				Impressions:    forecast.PredictedImpressions,
				Likes:          forecast.PredictedLikes,
				Comments:       forecast.PredictedComments,
				EngagementRate: forecast.EngagementRate,
				ViralityScore:  forecast.EngagementScore,
				ReachTier:      forecast.ViralityAssessment,
				BestTimes:      forecast.BestPostingTimes,
				BestDays:       forecast.BestPostingDays,
			},
			Sentiment: SentimentSummary{
				Tone:               report.EmotionalTone,
				Sentiment:          report.OverallSentiment,
				AudiencePerception: report.AudiencePerception,
			},
			OptimizationTips: tips,
			ViralityScore:    forecast.EngagementScore,
		}

		if forecast.EngagementScore > bestScore {
			bestScore = forecast.EngagementScore
			best = key
		}
	}

	hashtags := optimizeHashtags(state.Hashtags, state.Strategy)

	output := OptimizationOutput{
		Hashtags:        hashtags,
		Optimization:    data,
		BestVariant:     best,
		BestScore:       bestScore,
		Recommendations: a.buildRecommendations(data, best, state.Strategy),
	}
	summary := fmt.Sprintf("Optimization complete. Best variant: %s (score %.1f), %d hashtags",
		best, bestScore, len(strings.Fields(hashtags)))
	return success(a.Name(), summary, output, time.Since(start))
}

// optimizeHashtags appends up to two pillar-derived tags and caps the set.
func optimizeHashtags(hashtags string, strategy Strategy) string {
	tags := strings.Fields(hashtags)
	seen := make(map[string]struct{}, len(tags))
	for _, tag := range tags {
		seen[tag] = struct{}{}
	}

	pillars := strategy.ContentPillars
	if len(pillars) > 2 {
		pillars = pillars[:2]
	}
	for _, pillar := range pillars {
		compact := strings.ReplaceAll(strings.TrimSpace(pillar), " ", "")
		if compact == "" {
			continue
		}
		runes := []rune(compact)
		tag := tools.EnsureHashtag(strings.ToUpper(string(runes[0])) + string(runes[1:]))
		if _, dup := seen[tag]; !dup {
			tags = append(tags, tag)
			seen[tag] = struct{}{}
		}
	}

	if len(tags) > maxFinalHashtags {
		tags = tags[:maxFinalHashtags]
	}
	return strings.Join(tags, " ")
}

func (a *Optimization) buildRecommendations(data map[string]VariantOptimization, best string, strategy Strategy) []string {
	recs := []string{
		fmt.Sprintf("Use the '%s' variant for best expected engagement", best),
		"Post on " + strings.Join(bestDaysLine(data, best), ", ") + " for peak reach",
	}
	if opt, ok := data[best]; ok {
		tips := opt.OptimizationTips
		if len(tips) > 3 {
			tips = tips[:3]
		}
		recs = append(recs, tips...)
	}
	if strategy.CallToAction != "" {
		recs = append(recs, "CTA: "+strategy.CallToAction)
	}
	return recs
}

func bestDaysLine(data map[string]VariantOptimization, best string) []string {
	if opt, ok := data[best]; ok && len(opt.Engagement.BestDays) > 0 {
		return opt.Engagement.BestDays
	}
	return []string{"Tuesday", "Wednesday", "Thursday"}
}
