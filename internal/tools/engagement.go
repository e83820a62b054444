package tools

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/draftdeck/scrivener/pkg/llm"
	"github.com/draftdeck/scrivener/pkg/logging"
)

// EngagementForecast predicts how a post will perform.
type EngagementForecast struct {
	EngagementScore     float64
	PredictedImpressions string
	PredictedLikes      string
	PredictedComments   string
	EngagementRate      string
	ViralityAssessment  string
	SignalsDetected     []string
	SignalsMissing      []string
	BestPostingTimes    []string
	BestPostingDays     []string
	ImprovementTips     []string
}

var bestPostingTimes = []string{
	"Tuesday 8-10 AM",
	"Wednesday 12-1 PM",
	"Thursday 9-11 AM",
	"Friday 7-9 AM",
}

var bestPostingDays = []string{"Tuesday", "Wednesday", "Thursday"}

var (
	questionPattern = regexp.MustCompile(`\?`)
	emojiPattern    = regexp.MustCompile(`[\x{1F300}-\x{1FAFF}\x{2600}-\x{27BF}]`)
	numberPattern   = regexp.MustCompile(`\b\d[\d,.]*%?\b`)
	listPattern     = regexp.MustCompile(`(?m)^\s*(?:[-•*]|\d+[.)])\s+`)
	hashtagPattern  = regexp.MustCompile(`#\w+`)
	storyPattern    = regexp.MustCompile(`(?i)\b(i |my |we |our |when i|years ago|last year|last week)\b`)
	ctaPattern      = regexp.MustCompile(`(?i)\b(comment|share|follow|agree|thoughts|what do you|let me know|dm me)\b`)
)

type viralitySignal struct {
	name   string
	weight float64
	detect func(text string) bool
}

var viralitySignals = []viralitySignal{
	{"question", 0.15, func(t string) bool { return questionPattern.MatchString(t) }},
	{"personal story", 0.12, func(t string) bool { return storyPattern.MatchString(t) }},
	{"list format", 0.10, func(t string) bool { return listPattern.MatchString(t) }},
	{"emoji", 0.05, func(t string) bool { return emojiPattern.MatchString(t) }},
	{"data point", 0.07, func(t string) bool { return numberPattern.MatchString(t) }},
	{"call to action", 0.10, func(t string) bool { return ctaPattern.MatchString(t) }},
	{"hashtags (3-8)", 0.08, func(t string) bool {
		n := len(hashtagPattern.FindAllString(t, -1))
		return n >= 3 && n <= 8
	}},
}

type EngagementPredictorConfig struct {
	LLM    llm.Provider
	Logger logging.Logger
}

// EngagementPredictor estimates reach from structural signals in the
// text, optionally asking the LLM for improvement tips.
type EngagementPredictor struct {
	llm    llm.Provider
	logger logging.Logger
}

func NewEngagementPredictor(cfg EngagementPredictorConfig) *EngagementPredictor {
	return &EngagementPredictor{llm: cfg.LLM, logger: cfg.Logger}
}

// Predict never fails; the signal tables always produce a forecast.
func (p *EngagementPredictor) Predict(ctx context.Context, text string) EngagementForecast {
	score := 0.30
	var detected, missing []string
	for _, sig := range viralitySignals {
		if sig.detect(text) {
			score += sig.weight
			detected = append(detected, sig.name)
		} else {
			missing = append(missing, sig.name)
		}
	}
	if score > 1.0 {
		score = 1.0
	}

	forecast := EngagementForecast{
		EngagementScore:  score,
		SignalsDetected:  detected,
		SignalsMissing:   missing,
		BestPostingTimes: bestPostingTimes,
		BestPostingDays:  bestPostingDays,
		EngagementRate:   fmt.Sprintf("%.1f-%.1f%%", score*6, score*10),
	}

	switch {
	case score >= 0.7:
		forecast.ViralityAssessment = "high"
		forecast.PredictedImpressions = "5,000-20,000"
		forecast.PredictedLikes = "200-800"
		forecast.PredictedComments = "20-100"
	case score >= 0.45:
		forecast.ViralityAssessment = "moderate"
		forecast.PredictedImpressions = "1,000-5,000"
		forecast.PredictedLikes = "50-200"
		forecast.PredictedComments = "5-20"
	default:
		forecast.ViralityAssessment = "low"
		forecast.PredictedImpressions = "200-1,000"
		forecast.PredictedLikes = "10-50"
		forecast.PredictedComments = "0-5"
	}

	forecast.ImprovementTips = p.improvementTips(ctx, text, missing)
	return forecast
}

func (p *EngagementPredictor) improvementTips(ctx context.Context, text string, missing []string) []string {
	if p.llm != nil {
		sample := text
		if len(sample) > 1500 {
			sample = sample[:1500]
		}
		prompt := fmt.Sprintf(`This LinkedIn post is missing these engagement signals: %s.

Post:
%s

Give 3 specific improvements, pipe-separated on a single line as:
TIPS: tip one | tip two | tip three`, strings.Join(missing, ", "), sample)

		callCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
		defer cancel()
		out, err := p.llm.Complete(callCtx, []llm.Message{
			llm.SystemMessage("You are a LinkedIn growth strategist."),
			llm.UserMessage(prompt),
		})
		if err == nil {
			if tips := SplitList(ParseKeyValues(out)["TIPS"], "|"); len(tips) > 0 {
				return tips
			}
		} else if p.logger != nil {
			p.logger.WithError(err).Debug("Engagement tips LLM call failed, using defaults")
		}
	}

	tips := make([]string, 0, 3)
	for _, m := range missing {
		switch m {
		case "question":
			tips = append(tips, "End with a question to invite comments")
		case "personal story":
			tips = append(tips, "Open with a short personal anecdote")
		case "call to action":
			tips = append(tips, "Add a clear call to action in the closing line")
		case "hashtags (3-8)":
			tips = append(tips, "Use 3-8 relevant hashtags")
		case "data point":
			tips = append(tips, "Include a concrete number or statistic")
		}
		if len(tips) == 3 {
			break
		}
	}
	if len(tips) == 0 {
		tips = append(tips, "Post during Tuesday-Thursday morning hours for best reach")
	}
	return tips
}
