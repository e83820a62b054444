package tools

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/draftdeck/scrivener/pkg/llm"
	"github.com/draftdeck/scrivener/pkg/logging"
)

// ImageInsight is what an image reference contributes to post content.
type ImageInsight struct {
	Reference      string
	Description    string
	SuggestedAngle string
}

type ImageDescriberConfig struct {
	LLM    llm.Provider
	Logger logging.Logger
}

// ImageDescriber turns image references (paths or URLs) into content hints.
// The reference name and any caption are all the describer sees; a
// vision-capable provider is not required.
type ImageDescriber struct {
	llm    llm.Provider
	logger logging.Logger
}

func NewImageDescriber(cfg ImageDescriberConfig) *ImageDescriber {
	return &ImageDescriber{llm: cfg.LLM, logger: cfg.Logger}
}

func (d *ImageDescriber) Describe(ctx context.Context, ref, caption string) ImageInsight {
	insight := ImageInsight{
		Reference:      ref,
		Description:    fallbackDescription(ref, caption),
		SuggestedAngle: "Reference the visual when opening the post.",
	}
	if d.llm == nil {
		return insight
	}

	prompt := fmt.Sprintf(`A LinkedIn post will include an image.
Image reference: %s
Caption: %s

Based on the reference and caption, return:
DESCRIPTION: [one sentence describing what the image likely shows]
ANGLE: [one sentence on how the post should use it]`, ref, caption)

	callCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	out, err := d.llm.Complete(callCtx, []llm.Message{
		llm.SystemMessage("You are a visual content strategist."),
		llm.UserMessage(prompt),
	})
	if err != nil {
		if d.logger != nil {
			d.logger.WithError(err).Debug("Image description LLM call failed, using reference name")
		}
		return insight
	}

	kv := ParseKeyValues(out)
	if desc := strings.TrimSpace(kv["DESCRIPTION"]); desc != "" {
		insight.Description = desc
	}
	if angle := strings.TrimSpace(kv["ANGLE"]); angle != "" {
		insight.SuggestedAngle = angle
	}
	return insight
}

func fallbackDescription(ref, caption string) string {
	if caption != "" {
		return caption
	}
	name := strings.TrimSuffix(path.Base(ref), path.Ext(ref))
	name = strings.NewReplacer("-", " ", "_", " ").Replace(name)
	if name == "" {
		return "Attached visual content"
	}
	return "Image: " + name
}
