package agents

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/draftdeck/scrivener/internal/tools"
	"github.com/draftdeck/scrivener/pkg/llm"
	"github.com/draftdeck/scrivener/pkg/logging"
)

type ResearchConfig struct {
	LLM    llm.Provider
	Trends *tools.TrendAnalyzer
	Logger logging.Logger
}

// Research is the second pipeline stage: trend analysis, hashtag
// recommendations, and market intelligence for the detected topic.
type Research struct {
	llm    llm.Provider
	trends *tools.TrendAnalyzer
	logger logging.Logger
}

func NewResearch(cfg ResearchConfig) *Research {
	return &Research{llm: cfg.LLM, trends: cfg.Trends, logger: cfg.Logger}
}

func (a *Research) Name() string { return "Research" }

func (a *Research) Run(ctx context.Context, state *State) StageResult {
	start := time.Now()

	topic := state.Topic
	if topic == "" {
		topic = state.Text
	}
	if topic == "" {
		topic = clip(state.Synthesis, 100)
	}
	if strings.TrimSpace(topic) == "" {
		return failure(a.Name(), "No topic available for research", time.Since(start))
	}

	report := a.trends.Analyze(ctx, topic)
	gaps := a.contentGaps(ctx, topic)

	top := report.TrendingHashtags
	if len(top) > 8 {
		top = top[:8]
	}

	output := ResearchOutput{
		Topic:    topic,
		Report:   report,
		Hashtags: strings.Join(top, " "),
		Gaps:     gaps,
		Intel:    report.MarketIntelligence,
	}
	summary := fmt.Sprintf("Research complete for '%s': %d hashtags, trend score %.1f",
		clip(topic, 60), len(report.TrendingHashtags), report.TrendScore)
	return success(a.Name(), summary, output, time.Since(start))
}

// contentGaps asks for under-represented angles. Optional enrichment; an
// error just leaves the field empty.
func (a *Research) contentGaps(ctx context.Context, topic string) string {
	if a.llm == nil {
		return ""
	}
	callCtx, cancel := context.WithTimeout(ctx, 20*time.Second)
	defer cancel()

	prompt := fmt.Sprintf(`Topic: %s
What angles or perspectives are under-represented on LinkedIn for this topic? Give 3 content gap opportunities.`, topic)
	resp, err := a.llm.Complete(callCtx, []llm.Message{
		llm.SystemMessage("You are a content strategy expert."),
		llm.UserMessage(prompt),
	})
	if err != nil {
		if a.logger != nil {
			a.logger.WithFields(logging.Fields{"error": err.Error()}).Debug("Content gap lookup failed")
		}
		return ""
	}
	return strings.TrimSpace(resp)
}
