package tools

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/draftdeck/scrivener/pkg/llm"
	"github.com/draftdeck/scrivener/pkg/logging"
)

// BrandProfile captures the recurring voice traits of a writer's past posts.
type BrandProfile struct {
	DominantTone     string
	KeyThemes        []string
	UsesEmoji        bool
	AsksQuestions    bool
	UsesLists        bool
	HashtagStyle     string // heavy / moderate / light
	AvgPostLength    int
	SignaturePhrases []string
}

// BrandCheck is the result of comparing a draft against a profile.
type BrandCheck struct {
	ConsistencyScore float64
	Aligned          []string
	Misaligned       []string
	AdjustedText     string
	WasAdjusted      bool
}

type BrandAnalyzerConfig struct {
	LLM    llm.Provider
	Logger logging.Logger
}

// BrandAnalyzer builds a voice profile from writing samples and aligns
// drafts to it.
type BrandAnalyzer struct {
	llm    llm.Provider
	logger logging.Logger
}

func NewBrandAnalyzer(cfg BrandAnalyzerConfig) *BrandAnalyzer {
	return &BrandAnalyzer{llm: cfg.LLM, logger: cfg.Logger}
}

// BuildProfile derives a BrandProfile from past posts. With no samples it
// returns a generic professional profile.
func (b *BrandAnalyzer) BuildProfile(ctx context.Context, pastPosts []string) BrandProfile {
	if len(pastPosts) == 0 {
		return BrandProfile{
			DominantTone:  "professional",
			KeyThemes:     []string{"industry insights"},
			HashtagStyle:  "moderate",
			AvgPostLength: 800,
		}
	}

	profile := heuristicProfile(pastPosts)

	if b.llm != nil {
		samples := pastPosts
		if len(samples) > 5 {
			samples = samples[:5]
		}
		prompt := fmt.Sprintf(`Analyze the voice of these LinkedIn posts by one author.

Posts:
%s

Return:
DOMINANT_TONE: [one of: inspiring/educational/professional/conversational/bold]
KEY_THEMES: [comma-separated themes]
SIGNATURE_PHRASES: [recurring phrases, pipe-separated, or "none"]`, strings.Join(samples, "\n---\n"))

		callCtx, cancel := context.WithTimeout(ctx, 20*time.Second)
		defer cancel()
		out, err := b.llm.Complete(callCtx, []llm.Message{
			llm.SystemMessage("You are a brand voice analyst."),
			llm.UserMessage(prompt),
		})
		if err == nil {
			kv := ParseKeyValues(out)
			if tone := strings.ToLower(strings.TrimSpace(kv["DOMINANT_TONE"])); tone != "" {
				profile.DominantTone = tone
			}
			if themes := SplitList(kv["KEY_THEMES"], ","); len(themes) > 0 {
				profile.KeyThemes = themes
			}
			if phrases := SplitList(kv["SIGNATURE_PHRASES"], "|"); len(phrases) > 0 && !strings.EqualFold(phrases[0], "none") {
				profile.SignaturePhrases = phrases
			}
		} else if b.logger != nil {
			b.logger.WithError(err).Debug("Brand profile LLM call failed, keeping heuristic profile")
		}
	}

	return profile
}

// CheckConsistency scores a draft against the profile and, when the score
// falls below 0.7 and an LLM is available, rewrites the draft in the
// profile's voice.
func (b *BrandAnalyzer) CheckConsistency(ctx context.Context, draft string, profile BrandProfile) BrandCheck {
	score := 0.5
	var aligned, misaligned []string

	signals := []struct {
		name     string
		expected bool
		actual   bool
	}{
		{"emoji usage", profile.UsesEmoji, emojiPattern.MatchString(draft)},
		{"question usage", profile.AsksQuestions, questionPattern.MatchString(draft)},
		{"list format", profile.UsesLists, listPattern.MatchString(draft)},
	}
	for _, sig := range signals {
		if sig.expected == sig.actual {
			score += 0.1
			aligned = append(aligned, sig.name)
		} else {
			score -= 0.1
			misaligned = append(misaligned, sig.name)
		}
	}

	draftTags := len(hashtagPattern.FindAllString(draft, -1))
	if hashtagStyleFor(draftTags) == profile.HashtagStyle {
		score += 0.1
		aligned = append(aligned, "hashtag density")
	} else {
		score -= 0.1
		misaligned = append(misaligned, "hashtag density")
	}

	if score > 1.0 {
		score = 1.0
	}
	if score < 0.0 {
		score = 0.0
	}

	check := BrandCheck{
		ConsistencyScore: score,
		Aligned:          aligned,
		Misaligned:       misaligned,
		AdjustedText:     draft,
	}

	if score < 0.7 && b.llm != nil {
		if adjusted, ok := b.personalize(ctx, draft, profile, misaligned); ok {
			check.AdjustedText = adjusted
			check.WasAdjusted = true
		}
	}
	return check
}

func (b *BrandAnalyzer) personalize(ctx context.Context, draft string, profile BrandProfile, misaligned []string) (string, bool) {
	prompt := fmt.Sprintf(`Rewrite this LinkedIn post to match the author's established voice.

Voice profile:
- Dominant tone: %s
- Uses emoji: %t
- Asks questions: %t
- Uses lists: %t
- Hashtag style: %s

Misaligned traits to fix: %s

Post:
%s

Return only the rewritten post, nothing else.`,
		profile.DominantTone, profile.UsesEmoji, profile.AsksQuestions,
		profile.UsesLists, profile.HashtagStyle,
		strings.Join(misaligned, ", "), draft)

	callCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	out, err := b.llm.Complete(callCtx, []llm.Message{
		llm.SystemMessage("You are a ghostwriter who matches an author's voice exactly."),
		llm.UserMessage(prompt),
	})
	if err != nil || strings.TrimSpace(out) == "" {
		if err != nil && b.logger != nil {
			b.logger.WithError(err).Debug("Brand personalization failed, keeping draft")
		}
		return "", false
	}
	return strings.TrimSpace(out), true
}

func heuristicProfile(posts []string) BrandProfile {
	var emojiCount, questionCount, listCount, totalTags, totalLen int
	for _, p := range posts {
		if emojiPattern.MatchString(p) {
			emojiCount++
		}
		if questionPattern.MatchString(p) {
			questionCount++
		}
		if listPattern.MatchString(p) {
			listCount++
		}
		totalTags += len(hashtagPattern.FindAllString(p, -1))
		totalLen += len(p)
	}
	n := len(posts)
	return BrandProfile{
		DominantTone:  "professional",
		KeyThemes:     []string{"industry insights"},
		UsesEmoji:     float64(emojiCount)/float64(n) > 0.4,
		AsksQuestions: float64(questionCount)/float64(n) > 0.3,
		UsesLists:     float64(listCount)/float64(n) > 0.3,
		HashtagStyle:  hashtagStyleFor(totalTags / n),
		AvgPostLength: totalLen / n,
	}
}

func hashtagStyleFor(avgTags int) string {
	switch {
	case avgTags > 8:
		return "heavy"
	case avgTags > 3:
		return "moderate"
	default:
		return "light"
	}
}
