package agents

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/draftdeck/scrivener/internal/tools"
	"github.com/draftdeck/scrivener/pkg/logging"
)

type BrandVoiceConfig struct {
	Analyzer *tools.BrandAnalyzer
	Logger   logging.Logger
}

// BrandVoice is the fifth pipeline stage: it scores each variant against
// the user's brand profile and rewrites low-scoring ones in the profiled
// voice. With no profile and no past posts it passes variants through with
// neutral feedback.
//
// The stage is shared across concurrent workflow runs. The seeded profile
// is the only shared state, guarded by mu; a profile built from a request's
// own past posts lives on the stack of that Run and is never persisted.
type BrandVoice struct {
	analyzer *tools.BrandAnalyzer
	logger   logging.Logger

	mu         sync.RWMutex
	profile    tools.BrandProfile
	hasProfile bool
}

func NewBrandVoice(cfg BrandVoiceConfig) *BrandVoice {
	return &BrandVoice{analyzer: cfg.Analyzer, logger: cfg.Logger}
}

// SetProfile seeds a previously persisted brand profile.
func (a *BrandVoice) SetProfile(profile tools.BrandProfile) {
	a.mu.Lock()
	a.profile = profile
	a.hasProfile = true
	a.mu.Unlock()
}

func (a *BrandVoice) seededProfile() (tools.BrandProfile, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.profile, a.hasProfile
}

func (a *BrandVoice) Name() string { return "BrandVoice" }

func (a *BrandVoice) Run(ctx context.Context, state *State) StageResult {
	start := time.Now()

	if len(state.Variants) == 0 {
		return failure(a.Name(), "No variants to brand-check", time.Since(start))
	}

	profile, hasProfile := a.seededProfile()
	if !hasProfile && len(state.PastPosts) > 0 {
		profile = a.analyzer.BuildProfile(ctx, state.PastPosts)
		hasProfile = true
		if a.logger != nil {
			a.logger.WithFields(logging.Fields{"posts": len(state.PastPosts)}).Info("Brand profile built from past posts")
		}
	}

	adjusted := make(map[string]string, len(state.Variants))
	feedback := make(map[string]BrandFeedback, len(state.Variants))
	var totalScore float64

	for key, text := range state.Variants {
		adjusted[key] = text

		if !hasProfile {
			feedback[key] = BrandFeedback{
				ConsistencyScore: 0.7,
				Aligned:          []string{"No brand profile available, post is ready to use"},
				Suggestions:      []string{"Add past posts to build your brand profile for better personalization"},
				BrandAligned:     true,
			}
			totalScore += 0.7
			continue
		}

		check := a.analyzer.CheckConsistency(ctx, text, profile)
		feedback[key] = BrandFeedback{
			ConsistencyScore: check.ConsistencyScore,
			Aligned:          check.Aligned,
			Deviations:       check.Misaligned,
			BrandAligned:     check.ConsistencyScore >= 0.7,
		}
		if check.WasAdjusted {
			adjusted[key] = check.AdjustedText
		}
		totalScore += check.ConsistencyScore
	}

	avg := totalScore / float64(len(feedback))

	output := BrandOutput{
		Variants:       adjusted,
		Feedback:       feedback,
		ConsistencyAvg: avg,
	}
	summary := fmt.Sprintf("Brand check complete, avg consistency %.0f%%", avg*100)
	return success(a.Name(), summary, output, time.Since(start))
}
