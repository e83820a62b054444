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

type ContentIntelligenceConfig struct {
	LLM    llm.Provider
	Logger logging.Logger
}

// ContentIntelligence is the third pipeline stage: it turns the research
// brief into a content strategy and three post angles for the generator.
type ContentIntelligence struct {
	llm    llm.Provider
	logger logging.Logger
}

func NewContentIntelligence(cfg ContentIntelligenceConfig) *ContentIntelligence {
	return &ContentIntelligence{llm: cfg.LLM, logger: cfg.Logger}
}

func (a *ContentIntelligence) Name() string { return "ContentIntelligence" }

func (a *ContentIntelligence) Run(ctx context.Context, state *State) StageResult {
	start := time.Now()

	if state.Synthesis == "" && state.CombinedContent == "" {
		return failure(a.Name(), "No content to strategize", time.Since(start))
	}

	tone := state.Tone
	if tone == "" {
		tone = state.RecommendedTone
	}
	if tone == "" {
		tone = "professional"
	}
	audience := state.Audience
	if audience == "" {
		audience = "professionals"
	}

	strategy, angles := a.buildStrategy(ctx, state, tone, audience)

	output := IntelligenceOutput{
		Strategy: strategy,
		Angles:   angles,
		Tone:     tone,
		Audience: audience,
	}
	summary := fmt.Sprintf("Strategy built: 3 angles identified | Key message: %s",
		clip(strategy.KeyMessage, 80))
	return success(a.Name(), summary, output, time.Since(start))
}

func (a *ContentIntelligence) buildStrategy(ctx context.Context, state *State, tone, audience string) (Strategy, map[string]string) {
	angles := defaultAngles()

	if a.llm == nil {
		return Strategy{
			KeyMessage:     clip(state.Synthesis, 150),
			TargetAudience: audience,
			EmotionalHook:  "Share your authentic experience",
			ContentPillars: []string{"leadership", "innovation", "growth"},
			CallToAction:   "What's your experience? Share in the comments.",
		}, angles
	}

	callCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	prompt := fmt.Sprintf(`Build a LinkedIn content strategy for this topic.

CONTENT:
%s

MARKET INTELLIGENCE:
%s

CONTENT GAPS:
%s

Tone preference: %s | Audience: %s

Return:
KEY_MESSAGE: [the single most important thing to communicate]
TARGET_AUDIENCE: [specific audience description]
EMOTIONAL_HOOK: [the emotional angle to lead with]
ANGLE_1_STORYTELLER: [narrative-driven post angle in 2 sentences]
ANGLE_2_STRATEGIST: [data/insight-driven angle in 2 sentences]
ANGLE_3_PROVOCATEUR: [contrarian/bold angle in 2 sentences]
CONTENT_PILLARS: [3 content pillars, comma-separated]
CALL_TO_ACTION: [best CTA for this content]`,
		clip(state.Synthesis, 2000), state.MarketIntelligence, state.ContentGaps, tone, audience)

	resp, err := a.llm.Complete(callCtx, []llm.Message{
		llm.SystemMessage("You are a senior LinkedIn content strategist."),
		llm.UserMessage(prompt),
	})
	if err != nil {
		if a.logger != nil {
			a.logger.WithFields(logging.Fields{"error": err.Error()}).Warn("Strategy call failed, using defaults")
		}
		return Strategy{
			KeyMessage:     clip(state.Synthesis, 150),
			TargetAudience: audience,
			EmotionalHook:  "Share your authentic experience",
			ContentPillars: []string{"leadership", "innovation", "growth"},
			CallToAction:   "What's your experience? Share in the comments.",
		}, angles
	}

	kv := tools.ParseKeyValues(resp)
	strategy := Strategy{
		KeyMessage:     kv["KEY_MESSAGE"],
		TargetAudience: valueOrDefault(kv["TARGET_AUDIENCE"], audience),
		EmotionalHook:  kv["EMOTIONAL_HOOK"],
		ContentPillars: tools.SplitList(kv["CONTENT_PILLARS"], ","),
		CallToAction:   kv["CALL_TO_ACTION"],
	}
	if v := kv["ANGLE_1_STORYTELLER"]; v != "" {
		angles[VariantStoryteller] = v
	}
	if v := kv["ANGLE_2_STRATEGIST"]; v != "" {
		angles[VariantStrategist] = v
	}
	if v := kv["ANGLE_3_PROVOCATEUR"]; v != "" {
		angles[VariantProvocateur] = v
	}
	return strategy, angles
}

func defaultAngles() map[string]string {
	return map[string]string{
		VariantStoryteller: "Share a personal narrative around the topic.",
		VariantStrategist:  "Present data-driven insights and frameworks.",
		VariantProvocateur: "Challenge conventional wisdom with a bold take.",
	}
}

func valueOrDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}
