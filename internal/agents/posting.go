package agents

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/draftdeck/scrivener/internal/tools"
	"github.com/draftdeck/scrivener/pkg/logging"
)

// PostRequest is the input to the posting side-agent.
type PostRequest struct {
	Text       string   `json:"text"`
	Hashtags   []string `json:"hashtags"`
	Visibility string   `json:"visibility"` // PUBLIC or CONNECTIONS
	Scheduled  bool     `json:"scheduled"`
}

// PostOutcome reports a successful publish.
type PostOutcome struct {
	PostID    string    `json:"post_id"`
	PostURL   string    `json:"post_url"`
	Action    string    `json:"action"` // "posted" or "scheduled"
	Timestamp time.Time `json:"timestamp"`
}

type PosterConfig struct {
	LinkedIn *tools.LinkedInClient
	Logger   logging.Logger
}

// Poster publishes a chosen variant to LinkedIn. It sits outside the
// six-stage pipeline and is invoked after the caller has reviewed the
// generated variants.
type Poster struct {
	linkedin *tools.LinkedInClient
	logger   logging.Logger
}

func NewPoster(cfg PosterConfig) *Poster {
	return &Poster{linkedin: cfg.LinkedIn, logger: cfg.Logger}
}

// Publish sends the post to LinkedIn. Unlike the pipeline stages it
// returns an error: publishing is a user-triggered action and the caller
// needs the real reason when it fails.
func (p *Poster) Publish(ctx context.Context, req PostRequest) (PostOutcome, error) {
	if strings.TrimSpace(req.Text) == "" {
		return PostOutcome{}, fmt.Errorf("no post content provided")
	}
	if p.linkedin == nil || !p.linkedin.Configured() {
		return PostOutcome{}, tools.ErrLinkedInNotConfigured
	}

	result, err := p.linkedin.Publish(ctx, req.Text, req.Hashtags, req.Visibility, req.Scheduled)
	if err != nil {
		return PostOutcome{}, fmt.Errorf("publishing to linkedin: %w", err)
	}

	action := "posted"
	if req.Scheduled {
		action = "scheduled"
	}
	if p.logger != nil {
		p.logger.WithFields(logging.Fields{
			"post_id": result.PostID,
			"action":  action,
		}).Info("Post published to LinkedIn")
	}
	return PostOutcome{
		PostID:    result.PostID,
		PostURL:   result.PostURL,
		Action:    action,
		Timestamp: time.Now().UTC(),
	}, nil
}
