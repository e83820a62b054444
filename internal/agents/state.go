package agents

import (
	"github.com/draftdeck/scrivener/internal/tools"
)

// Strategy is the content plan produced by the ContentIntelligence stage.
type Strategy struct {
	KeyMessage     string   `json:"key_message"`
	TargetAudience string   `json:"target_audience"`
	EmotionalHook  string   `json:"emotional_hook"`
	ContentPillars []string `json:"content_pillars"`
	CallToAction   string   `json:"call_to_action"`
}

// BrandFeedback is the per-variant outcome of the brand-voice check.
type BrandFeedback struct {
	ConsistencyScore float64  `json:"consistency_score"`
	Aligned          []string `json:"aligned"`
	Deviations       []string `json:"deviations"`
	Suggestions      []string `json:"suggestions"`
	BrandAligned     bool     `json:"brand_aligned"`
}

// EngagementSummary is the per-variant engagement forecast.
type EngagementSummary struct {
	Impressions    string   `json:"impressions"`
	Likes          string   `json:"likes"`
	Comments       string   `json:"comments"`
	EngagementRate string   `json:"engagement_rate"`
	ViralityScore  float64  `json:"virality_score"`
	ReachTier      string   `json:"reach_tier"`
	BestTimes      []string `json:"best_times"`
	BestDays       []string `json:"best_days"`
}

// SentimentSummary is the per-variant sentiment read.
type SentimentSummary struct {
	Tone               string `json:"tone"`
	Sentiment          string `json:"sentiment"`
	AudiencePerception string `json:"audience_perception"`
}

// VariantOptimization bundles engagement, sentiment, and tips for one variant.
type VariantOptimization struct {
	Engagement       EngagementSummary `json:"engagement"`
	Sentiment        SentimentSummary  `json:"sentiment"`
	OptimizationTips []string          `json:"optimization_tips"`
	ViralityScore    float64           `json:"virality_score"`
}

// State is the workflow state threaded through the pipeline. Stages never
// touch it directly: each returns a typed output whose Apply method merges
// into the state. Fields a stage is authoritative on are overwritten
// unconditionally; enrichment fields are set only when currently empty, so
// a later stage never clobbers an established value with a weaker one.
type State struct {
	// Seeded from user input.
	Text          string
	Topic         string
	ImagePaths    []string
	DocumentPaths []string
	URLs          []string
	PastPosts     []string
	Tone          string
	Audience      string

	// InputProcessor.
	CombinedContent  string
	ExtractedContent string
	Synthesis        string
	ContentTypes     []string
	Themes           []string

	// Research.
	Hashtags             string
	RecommendedTone      string
	BestContentType      string
	MarketIntelligence   string
	TrendingHashtags     []string
	RelatedTopics        []string
	ContentOpportunities []string
	AudienceInterests    []string
	ContentGaps          string
	TrendScore           float64

	// ContentIntelligence.
	Strategy Strategy
	Angles   map[string]string

	// Generation and BrandVoice.
	Variants            map[string]string
	BrandFeedback       map[string]BrandFeedback
	BrandConsistencyAvg float64

	// Optimization.
	Optimization           map[string]VariantOptimization
	BestVariant            string
	BestVariantScore       float64
	OverallRecommendations []string
}

// NewState seeds a workflow state from user input.
func NewState(input UserInput) *State {
	return &State{
		Text:          input.Text,
		Topic:         input.Topic,
		ImagePaths:    input.ImagePaths,
		DocumentPaths: input.DocumentPaths,
		URLs:          input.URLs,
		PastPosts:     input.PastPosts,
		Tone:          input.Tone,
		Audience:      input.Audience,
	}
}

func fillString(dst *string, v string) {
	if *dst == "" && v != "" {
		*dst = v
	}
}

func fillStrings(dst *[]string, v []string) {
	if len(*dst) == 0 && len(v) > 0 {
		*dst = v
	}
}

func fillFloat(dst *float64, v float64) {
	if *dst == 0 && v != 0 {
		*dst = v
	}
}

// InputOutput is what the InputProcessor stage contributes.
type InputOutput struct {
	CombinedContent string
	Synthesis       string
	ContentTypes    []string
	Themes          []string
}

func (o InputOutput) Apply(s *State) {
	// The processor owns the synthesis and the clipped extract.
	s.Synthesis = o.Synthesis
	s.ExtractedContent = clip(o.CombinedContent, 2000)
	fillString(&s.CombinedContent, o.CombinedContent)
	fillStrings(&s.ContentTypes, o.ContentTypes)
	fillStrings(&s.Themes, o.Themes)
}

// ResearchOutput is what the Research stage contributes.
type ResearchOutput struct {
	Topic    string
	Report   tools.TrendReport
	Hashtags string
	Gaps     string
	Intel    string
}

func (o ResearchOutput) Apply(s *State) {
	// Research is the authority on hashtags, tone, and market intel.
	s.Hashtags = o.Hashtags
	s.RecommendedTone = o.Report.RecommendedTone
	s.BestContentType = o.Report.BestContentType
	s.MarketIntelligence = o.Intel
	fillString(&s.Topic, o.Topic)
	fillStrings(&s.TrendingHashtags, o.Report.TrendingHashtags)
	fillStrings(&s.RelatedTopics, o.Report.RelatedTopics)
	fillStrings(&s.ContentOpportunities, o.Report.ContentOpportunities)
	fillStrings(&s.AudienceInterests, o.Report.AudienceInterests)
	fillString(&s.ContentGaps, o.Gaps)
	fillFloat(&s.TrendScore, o.Report.TrendScore)
}

// IntelligenceOutput is what the ContentIntelligence stage contributes.
type IntelligenceOutput struct {
	Strategy Strategy
	Angles   map[string]string
	Tone     string
	Audience string
}

func (o IntelligenceOutput) Apply(s *State) {
	s.Strategy = o.Strategy
	s.Angles = o.Angles
	s.Tone = o.Tone
	s.Audience = o.Audience
}

// GenerationOutput is what the Generation stage contributes.
type GenerationOutput struct {
	Variants map[string]string
}

func (o GenerationOutput) Apply(s *State) {
	s.Variants = o.Variants
}

// BrandOutput is what the BrandVoice stage contributes.
type BrandOutput struct {
	Variants       map[string]string
	Feedback       map[string]BrandFeedback
	ConsistencyAvg float64
}

func (o BrandOutput) Apply(s *State) {
	s.Variants = o.Variants
	s.BrandFeedback = o.Feedback
	s.BrandConsistencyAvg = o.ConsistencyAvg
}

// OptimizationOutput is what the Optimization stage contributes.
type OptimizationOutput struct {
	Hashtags        string
	Optimization    map[string]VariantOptimization
	BestVariant     string
	BestScore       float64
	Recommendations []string
}

func (o OptimizationOutput) Apply(s *State) {
	s.Hashtags = o.Hashtags
	s.Optimization = o.Optimization
	s.BestVariant = o.BestVariant
	s.BestVariantScore = o.BestScore
	s.OverallRecommendations = o.Recommendations
}

// clip truncates s to at most n runes.
func clip(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
