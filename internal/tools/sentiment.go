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

// SentimentReport describes the emotional tone of post text.
type SentimentReport struct {
	OverallSentiment    string // positive / neutral / negative
	EmotionalTone       string // inspiring, educational, urgent, ...
	Confidence          float64
	DominantEmotions    []string
	AudiencePerception  string
	SuggestedFraming    string
	EngagementPotential string // low / medium / high
	Improvements        []string
}

var positiveWords = wordSet(
	"excited", "thrilled", "amazing", "incredible", "awesome", "love", "proud",
	"achieved", "won", "launched", "built", "shipped", "success", "milestone",
	"grateful", "inspired", "growth", "opportunity", "powerful", "breakthrough",
	"innovative", "game-changing", "transformative", "celebrate",
)

var negativeWords = wordSet(
	"failed", "mistake", "wrong", "lost", "struggle", "difficult", "hard",
	"rejected", "quit", "impossible", "depressed", "frustrated",
	"broken", "worst", "mess", "disaster",
)

var engagingWords = wordSet(
	"you", "your", "we", "our", "imagine", "how", "why",
	"question", "think", "believe", "share", "comment", "story",
)

var wordPattern = regexp.MustCompile(`\b[\w-]+\b`)

func wordSet(words ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}

type SentimentAnalyzerConfig struct {
	LLM    llm.Provider
	Logger logging.Logger
}

// SentimentAnalyzer scores the emotional tone of text, via LLM when
// configured, word tables otherwise.
type SentimentAnalyzer struct {
	llm    llm.Provider
	logger logging.Logger
}

func NewSentimentAnalyzer(cfg SentimentAnalyzerConfig) *SentimentAnalyzer {
	return &SentimentAnalyzer{llm: cfg.LLM, logger: cfg.Logger}
}

// Analyze never fails: an LLM error falls back to the heuristic path.
func (s *SentimentAnalyzer) Analyze(ctx context.Context, text string) SentimentReport {
	if s.llm != nil {
		if report, ok := s.llmAnalyze(ctx, text); ok {
			return report
		}
	}
	return heuristicSentiment(text)
}

func (s *SentimentAnalyzer) llmAnalyze(ctx context.Context, text string) (SentimentReport, bool) {
	sample := text
	if len(sample) > 2000 {
		sample = sample[:2000]
	}
	prompt := fmt.Sprintf(`Analyze the sentiment and emotional tone of this LinkedIn post text.

Text:
%s

Return your analysis in this exact format:
SENTIMENT: [positive/neutral/negative]
TONE: [one of: inspiring/educational/professional/urgent/celebratory/conversational/bold]
DOMINANT_EMOTIONS: [comma-separated emotions]
AUDIENCE_PERCEPTION: [one sentence how audience will perceive this]
SUGGESTED_FRAMING: [one sentence on how to improve framing]
ENGAGEMENT_POTENTIAL: [low/medium/high]
IMPROVEMENTS: [2-3 concrete improvements, pipe-separated]`, sample)

	callCtx, cancel := context.WithTimeout(ctx, 20*time.Second)
	defer cancel()
	out, err := s.llm.Complete(callCtx, []llm.Message{
		llm.SystemMessage("You are a LinkedIn content psychologist."),
		llm.UserMessage(prompt),
	})
	if err != nil {
		if s.logger != nil {
			s.logger.WithError(err).Debug("Sentiment LLM call failed, using heuristics")
		}
		return SentimentReport{}, false
	}

	kv := ParseKeyValues(out)
	report := SentimentReport{
		OverallSentiment:    strings.ToLower(valueOr(kv, "SENTIMENT", "neutral")),
		EmotionalTone:       strings.ToLower(valueOr(kv, "TONE", "professional")),
		DominantEmotions:    SplitList(kv["DOMINANT_EMOTIONS"], ","),
		AudiencePerception:  kv["AUDIENCE_PERCEPTION"],
		SuggestedFraming:    kv["SUGGESTED_FRAMING"],
		EngagementPotential: strings.ToLower(valueOr(kv, "ENGAGEMENT_POTENTIAL", "medium")),
		Improvements:        SplitList(kv["IMPROVEMENTS"], "|"),
		Confidence:          0.85,
	}
	return report, true
}

func heuristicSentiment(text string) SentimentReport {
	words := make(map[string]struct{})
	for _, w := range wordPattern.FindAllString(strings.ToLower(text), -1) {
		words[w] = struct{}{}
	}

	posCount := intersectCount(words, positiveWords)
	negCount := intersectCount(words, negativeWords)
	engCount := intersectCount(words, engagingWords)

	sentiment, tone := "neutral", "professional"
	switch {
	case posCount > negCount+2:
		sentiment, tone = "positive", "inspiring"
	case negCount > posCount:
		sentiment, tone = "negative", "reflective"
	}

	engagement := "low"
	switch {
	case engCount >= 3:
		engagement = "high"
	case engCount >= 1:
		engagement = "medium"
	}

	return SentimentReport{
		OverallSentiment:    sentiment,
		EmotionalTone:       tone,
		DominantEmotions:    []string{sentiment, "authentic"},
		AudiencePerception:  fmt.Sprintf("Audience will find this %s.", tone),
		SuggestedFraming:    "Add a personal story element to increase authenticity.",
		EngagementPotential: engagement,
		Improvements:        []string{"Add a question to invite discussion", "Use more personal pronouns"},
		Confidence:          0.6,
	}
}

func intersectCount(words map[string]struct{}, set map[string]struct{}) int {
	count := 0
	for w := range words {
		if _, ok := set[w]; ok {
			count++
		}
	}
	return count
}

func valueOr(kv map[string]string, key, def string) string {
	if v, ok := kv[key]; ok && strings.TrimSpace(v) != "" {
		return v
	}
	return def
}
