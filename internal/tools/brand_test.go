package tools

import (
	"context"
	"testing"
)

func TestBuildProfileNoSamples(t *testing.T) {
	b := NewBrandAnalyzer(BrandAnalyzerConfig{})
	profile := b.BuildProfile(context.Background(), nil)

	if profile.DominantTone != "professional" {
		t.Errorf("tone = %q", profile.DominantTone)
	}
	if profile.HashtagStyle != "moderate" {
		t.Errorf("hashtag style = %q", profile.HashtagStyle)
	}
}

func TestBuildProfileHeuristics(t *testing.T) {
	posts := []string{
		"What do you think about this? #AI #ML #Data #Tech #Cloud",
		"Another thought on shipping fast. How do you decide? #Startup #Founder #Build #Growth",
		"Lessons from the week. Which one resonates? #Leadership #Career #Work #Team",
	}
	b := NewBrandAnalyzer(BrandAnalyzerConfig{})
	profile := b.BuildProfile(context.Background(), posts)

	if !profile.AsksQuestions {
		t.Error("every sample asks a question, AsksQuestions should be true")
	}
	if profile.UsesEmoji {
		t.Error("no sample uses emoji")
	}
	if profile.HashtagStyle != "moderate" {
		t.Errorf("avg 4 hashtags should be moderate, got %q", profile.HashtagStyle)
	}
}

func TestBuildProfileLLMEnrichment(t *testing.T) {
	provider := &fakeLLM{response: `DOMINANT_TONE: Bold
KEY_THEMES: product strategy, hiring
SIGNATURE_PHRASES: here's the thing | ship it`}

	b := NewBrandAnalyzer(BrandAnalyzerConfig{LLM: provider})
	profile := b.BuildProfile(context.Background(), []string{"Ship it. #Build"})

	if profile.DominantTone != "bold" {
		t.Errorf("tone = %q, want bold", profile.DominantTone)
	}
	if len(profile.KeyThemes) != 2 {
		t.Errorf("themes = %v", profile.KeyThemes)
	}
	if len(profile.SignaturePhrases) != 2 {
		t.Errorf("phrases = %v", profile.SignaturePhrases)
	}
}

func TestCheckConsistencyAligned(t *testing.T) {
	profile := BrandProfile{
		AsksQuestions: true,
		HashtagStyle:  "moderate",
	}
	draft := "Does this match the voice? Probably. #One #Two #Three #Four"

	b := NewBrandAnalyzer(BrandAnalyzerConfig{})
	check := b.CheckConsistency(context.Background(), draft, profile)

	if check.ConsistencyScore < 0.7 {
		t.Errorf("score = %.2f, want >= 0.7 for an aligned draft", check.ConsistencyScore)
	}
	if check.WasAdjusted {
		t.Error("aligned draft should not be rewritten")
	}
	if check.AdjustedText != draft {
		t.Error("aligned draft text should pass through unchanged")
	}
}

func TestCheckConsistencyPersonalizes(t *testing.T) {
	profile := BrandProfile{
		UsesEmoji:     true,
		AsksQuestions: true,
		UsesLists:     true,
		HashtagStyle:  "heavy",
	}
	provider := &fakeLLM{response: "Rewritten in the author's voice \U0001F680"}

	b := NewBrandAnalyzer(BrandAnalyzerConfig{LLM: provider})
	check := b.CheckConsistency(context.Background(), "A flat corporate statement.", profile)

	if check.ConsistencyScore >= 0.7 {
		t.Fatalf("score = %.2f, expected misaligned draft below threshold", check.ConsistencyScore)
	}
	if !check.WasAdjusted {
		t.Fatal("misaligned draft should be personalized when an LLM is available")
	}
	if check.AdjustedText == "A flat corporate statement." {
		t.Error("adjusted text should differ from the draft")
	}
	if provider.calls != 1 {
		t.Errorf("LLM calls = %d, want 1", provider.calls)
	}
}

func TestHashtagStyleFor(t *testing.T) {
	cases := []struct {
		avg  int
		want string
	}{
		{0, "light"}, {3, "light"}, {4, "moderate"}, {8, "moderate"}, {9, "heavy"},
	}
	for _, tc := range cases {
		if got := hashtagStyleFor(tc.avg); got != tc.want {
			t.Errorf("hashtagStyleFor(%d) = %q, want %q", tc.avg, got, tc.want)
		}
	}
}
