package agents

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/draftdeck/scrivener/pkg/llm"
	"github.com/draftdeck/scrivener/pkg/logging"
)

// Per-variant system prompts. Each variant has a distinct authorial persona.
var variantSystemPrompts = map[string]string{
	VariantStoryteller: "You are a master LinkedIn storyteller. Write narrative-driven posts that " +
		"open with a personal hook, build tension, deliver insight, and end with a " +
		"genuine question. Sound like a real human, not a content machine.",
	VariantStrategist: "You are a sharp LinkedIn strategist. Write data-driven, insight-led posts " +
		"that open with a bold fact or framework, deliver structured value (lists/steps), " +
		"and close with a discussion-provoking question.",
	VariantProvocateur: "You are a bold LinkedIn thought leader. Write contrarian posts that challenge " +
		"conventional wisdom, open with an opinion that makes people stop scrolling, " +
		"argue your position with evidence, and invite debate.",
}

type GenerationConfig struct {
	LLM    llm.Provider
	Logger logging.Logger
}

// Generation is the fourth pipeline stage: it writes the three post
// variants from the strategy. Without an LLM it emits fixed templates so
// the workflow always has something to optimize downstream.
type Generation struct {
	llm    llm.Provider
	logger logging.Logger
}

func NewGeneration(cfg GenerationConfig) *Generation {
	return &Generation{llm: cfg.LLM, logger: cfg.Logger}
}

func (a *Generation) Name() string { return "Generation" }

func (a *Generation) Run(ctx context.Context, state *State) StageResult {
	start := time.Now()

	content := state.CombinedContent
	if content == "" {
		content = state.Synthesis
	}
	if content == "" {
		return failure(a.Name(), "No content available for generation", time.Since(start))
	}

	variants := make(map[string]string, len(variantNames))
	for _, variant := range variantNames {
		post := a.generateVariant(ctx, variant, state.Angles[variant], clip(content, 2500), state)
		variants[variant] = post
	}

	summary := fmt.Sprintf("Generated 3 variants: storyteller (%d chars), strategist (%d chars), provocateur (%d chars)",
		len(variants[VariantStoryteller]), len(variants[VariantStrategist]), len(variants[VariantProvocateur]))
	return success(a.Name(), summary, GenerationOutput{Variants: variants}, time.Since(start))
}

func (a *Generation) generateVariant(ctx context.Context, variant, angle, content string, state *State) string {
	if a.llm == nil {
		return fallbackVariant(variant, content)
	}

	callCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	cta := state.Strategy.CallToAction
	if cta == "" {
		cta = "What do you think? Share in the comments."
	}

	prompt := fmt.Sprintf(`Write a LinkedIn post using the '%s' style.

CONTENT TO USE:
%s

POST ANGLE: %s
KEY MESSAGE: %s
TONE: %s
TARGET AUDIENCE: %s
CALL TO ACTION: %s

RULES:
- Max 1500 characters (ideal LinkedIn length)
- No fake statistics unless from the source content
- End with a genuine question
- Use line breaks for mobile readability
- DO NOT include hashtags (handled separately)
- Return ONLY the post text, no labels or explanations`,
		variant, content, angle, state.Strategy.KeyMessage, state.Tone, state.Audience, cta)

	resp, err := a.llm.Complete(callCtx, []llm.Message{
		llm.SystemMessage(variantSystemPrompts[variant]),
		llm.UserMessage(prompt),
	})
	if err != nil {
		if a.logger != nil {
			a.logger.WithFields(logging.Fields{
				"variant": variant,
				"error":   err.Error(),
			}).Warn("Variant generation failed, using template")
		}
		return fallbackVariant(variant, content)
	}
	return strings.TrimSpace(resp)
}

// fallbackVariant is the deterministic template used when no LLM is
// configured or the call failed. Topic is the first line of the content.
func fallbackVariant(variant, content string) string {
	topic := strings.ReplaceAll(clip(content, 80), "\n", " ")

	switch variant {
	case VariantStrategist:
		return fmt.Sprintf("Most people overlook this about %s.\n\n"+
			"Here's a framework that actually works:\n\n"+
			"• Start with the outcome\n"+
			"• Remove friction at every step\n"+
			"• Measure what matters\n\n"+
			"Which step matters most to you?", topic)
	case VariantProvocateur:
		return fmt.Sprintf("Unpopular opinion: %s is misunderstood.\n\n"+
			"Everyone talks about the 'right way'.\n"+
			"No one talks about the cost.\n\n"+
			"Maybe it's time to challenge the default.\n\n"+
			"Do you agree — or am I wrong?", topic)
	default:
		return fmt.Sprintf("Here's what changed my perspective on %s...\n\n"+
			"Three years ago I wouldn't have believed it.\n"+
			"Now it's how I approach everything.\n\n"+
			"The journey matters more than the destination.\n\n"+
			"What has shifted your perspective recently?", topic)
	}
}
