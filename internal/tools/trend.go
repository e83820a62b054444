package tools

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/draftdeck/scrivener/pkg/llm"
	"github.com/draftdeck/scrivener/pkg/logging"
	"github.com/draftdeck/scrivener/pkg/search"
)

// TrendReport describes trending hashtags and content opportunities for a topic.
type TrendReport struct {
	Topic                string
	TrendingHashtags     []string
	RelatedTopics        []string
	ContentOpportunities []string
	AudienceInterests    []string
	RecommendedTone      string
	BestContentType      string
	TrendScore           float64
	MarketIntelligence   string
}

// Curated evergreen hashtag map, supplemented by the LLM when available.
var hashtagMap = map[string][]string{
	"ai":               {"#AI", "#ArtificialIntelligence", "#MachineLearning", "#DeepLearning", "#GenAI"},
	"machine learning": {"#MachineLearning", "#ML", "#DataScience", "#AI", "#DeepLearning"},
	"startup":          {"#Startup", "#Entrepreneurship", "#Founder", "#Building", "#TechStartup"},
	"python":           {"#Python", "#Programming", "#Coding", "#SoftwareDevelopment", "#Developer"},
	"cloud":            {"#Cloud", "#AWS", "#Azure", "#GCP", "#CloudComputing", "#DevOps"},
	"web":              {"#WebDev", "#Frontend", "#FullStack", "#JavaScript", "#React"},
	"data":             {"#DataScience", "#Analytics", "#BigData", "#DataEngineering", "#SQL"},
	"career":           {"#CareerGrowth", "#JobSearch", "#ProfessionalDevelopment", "#LinkedIn"},
	"leadership":       {"#Leadership", "#Management", "#CXO", "#ExecutiveCoach"},
	"product":          {"#ProductManagement", "#ProductDesign", "#UX", "#AgileProduct"},
	"finance":          {"#FinTech", "#Finance", "#Investing", "#Blockchain", "#Crypto"},
	"marketing":        {"#DigitalMarketing", "#ContentMarketing", "#SEO", "#GrowthHacking"},
	"ux":               {"#UX", "#UIDesign", "#UserExperience", "#Figma", "#DesignThinking"},
	"open source":      {"#OpenSource", "#GitHub", "#DevCommunity", "#Contributors"},
	"llm":              {"#LLM", "#GenAI", "#ChatGPT", "#PromptEngineering", "#AI"},
	"devops":           {"#DevOps", "#CI_CD", "#Docker", "#Kubernetes", "#SRE"},
	"security":         {"#CyberSecurity", "#InfoSec", "#ZeroTrust", "#SIEM"},
}

var genericHashtags = []string{"#Innovation", "#Tech", "#FutureOfWork", "#Learning", "#GrowthMindset"}

var hotKeywords = []string{"ai", "llm", "genai", "gpt", "startup", "saas", "cloud native"}

const maxHashtags = 12

// TrendAnalyzerConfig configures a TrendAnalyzer. LLM and Search are both
// optional; with neither the analyzer runs on the curated tables alone.
type TrendAnalyzerConfig struct {
	LLM    llm.Provider
	Search search.Provider
	Logger logging.Logger
}

// TrendAnalyzer recommends hashtags, tone, and content opportunities
// for a topic.
type TrendAnalyzer struct {
	llm    llm.Provider
	search search.Provider
	logger logging.Logger
}

func NewTrendAnalyzer(cfg TrendAnalyzerConfig) *TrendAnalyzer {
	return &TrendAnalyzer{
		llm:    cfg.LLM,
		search: cfg.Search,
		logger: cfg.Logger,
	}
}

// Analyze builds a trend report for the topic. It never returns an error:
// every signal has a deterministic fallback.
func (t *TrendAnalyzer) Analyze(ctx context.Context, topic string) TrendReport {
	report := TrendReport{
		Topic:                topic,
		TrendingHashtags:     t.hashtagsFor(ctx, topic),
		RelatedTopics:        t.relatedTopics(ctx, topic),
		ContentOpportunities: contentOpportunities(topic),
		AudienceInterests:    []string{"practical tips", "real-world examples", "career impact", "tools & resources"},
		RecommendedTone:      recommendTone(topic),
		BestContentType:      recommendContentType(topic),
		TrendScore:           estimateTrendScore(topic),
	}
	report.MarketIntelligence = t.marketIntelligence(ctx, topic)
	return report
}

func (t *TrendAnalyzer) hashtagsFor(ctx context.Context, topic string) []string {
	var base []string
	topicLower := strings.ToLower(topic)
	for key, tags := range hashtagMap {
		if strings.Contains(topicLower, key) || strings.Contains(key, topicLower) {
			base = append(base, tags...)
		}
	}
	if len(base) == 0 {
		base = append(base, genericHashtags...)
	}

	if t.llm != nil && len(base) < 5 {
		callCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
		defer cancel()
		out, err := t.llm.Complete(callCtx, []llm.Message{
			llm.SystemMessage("You are a LinkedIn hashtag expert."),
			llm.UserMessage(fmt.Sprintf("Suggest 8 relevant LinkedIn hashtags for the topic: %s. Return one per line.", topic)),
		})
		if err != nil {
			if t.logger != nil {
				t.logger.WithError(err).Debug("Hashtag suggestion call failed, using curated set")
			}
		} else {
			for _, line := range SplitLines(out) {
				if tag := EnsureHashtag(line); tag != "" {
					base = append(base, tag)
				}
			}
		}
	}

	unique := DedupeStrings(base)
	if len(unique) > maxHashtags {
		unique = unique[:maxHashtags]
	}
	return unique
}

func (t *TrendAnalyzer) relatedTopics(ctx context.Context, topic string) []string {
	if t.llm != nil {
		callCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
		defer cancel()
		out, err := t.llm.Complete(callCtx, []llm.Message{
			llm.SystemMessage("Be concise."),
			llm.UserMessage(fmt.Sprintf("List 5 related topics to '%s' for LinkedIn content. One per line.", topic)),
		})
		if err == nil {
			lines := SplitLines(out)
			if len(lines) > 5 {
				lines = lines[:5]
			}
			if len(lines) > 0 {
				return lines
			}
		}
	}
	return []string{
		topic + " best practices",
		topic + " trends 2025",
		topic + " for beginners",
	}
}

// marketIntelligence pulls a few live search results for context. Empty
// string when no search provider is configured or the query fails.
func (t *TrendAnalyzer) marketIntelligence(ctx context.Context, topic string) string {
	if t.search == nil {
		return ""
	}
	callCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	results, err := t.search.Search(callCtx, topic+" linkedin trends", search.SearchOptions{Limit: 3, Recency: search.RecencyWeek})
	if err != nil {
		if t.logger != nil {
			t.logger.WithError(err).Debug("Market intelligence search failed")
		}
		return ""
	}
	var lines []string
	for _, r := range results {
		snippet := r.Content
		if len(snippet) > 200 {
			snippet = snippet[:200]
		}
		lines = append(lines, fmt.Sprintf("- %s: %s", r.Title, snippet))
	}
	return strings.Join(lines, "\n")
}

func contentOpportunities(topic string) []string {
	return []string{
		fmt.Sprintf("Share your %s journey", topic),
		fmt.Sprintf("Debunk common %s myths", topic),
		fmt.Sprintf("Teach a %s framework", topic),
		fmt.Sprintf("Celebrate a %s win", topic),
		fmt.Sprintf("Start a %s discussion", topic),
	}
}

func recommendTone(topic string) string {
	topicLower := strings.ToLower(topic)
	switch {
	case containsAny(topicLower, "startup", "founder", "build"):
		return "enthusiastic"
	case containsAny(topicLower, "leadership", "management", "career"):
		return "thoughtful"
	case containsAny(topicLower, "hot take", "opinion", "debate"):
		return "bold"
	default:
		return "professional"
	}
}

func recommendContentType(topic string) string {
	topicLower := strings.ToLower(topic)
	switch {
	case containsAny(topicLower, "learn", "how to", "guide", "tutorial"):
		return "educational"
	case containsAny(topicLower, "built", "launched", "shipped"):
		return "build_in_public"
	case containsAny(topicLower, "opinion", "hot take", "unpopular"):
		return "hot_take"
	default:
		return "educational"
	}
}

func estimateTrendScore(topic string) float64 {
	topicLower := strings.ToLower(topic)
	matches := 0
	for _, k := range hotKeywords {
		if strings.Contains(topicLower, k) {
			matches++
		}
	}
	score := 0.4 + float64(matches)*0.15
	if score > 1.0 {
		score = 1.0
	}
	return score
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
