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

type InputProcessorConfig struct {
	LLM     llm.Provider
	Scraper *tools.WebScraper
	Images  *tools.ImageDescriber
	Logger  logging.Logger
}

// InputProcessor is the first pipeline stage. It folds every input
// modality (raw text, image references, documents, URLs) into a single
// combined extract and, when an LLM is available, a synthesized brief for
// the downstream stages.
type InputProcessor struct {
	llm     llm.Provider
	scraper *tools.WebScraper
	images  *tools.ImageDescriber
	logger  logging.Logger
}

func NewInputProcessor(cfg InputProcessorConfig) *InputProcessor {
	return &InputProcessor{
		llm:     cfg.LLM,
		scraper: cfg.Scraper,
		images:  cfg.Images,
		logger:  cfg.Logger,
	}
}

func (a *InputProcessor) Name() string { return "InputProcessor" }

func (a *InputProcessor) Run(ctx context.Context, state *State) StageResult {
	start := time.Now()

	if state.Text == "" && len(state.ImagePaths) == 0 && len(state.DocumentPaths) == 0 && len(state.URLs) == 0 {
		return failure(a.Name(), "No input provided", time.Since(start))
	}

	var pieces []string
	var contentTypes []string
	var themes []string

	if state.Text != "" {
		pieces = append(pieces, "[TEXT INPUT]\n"+state.Text)
		contentTypes = append(contentTypes, "text")
	}

	for _, ref := range state.ImagePaths {
		insight := a.images.Describe(ctx, ref, "")
		pieces = append(pieces, fmt.Sprintf(
			"[IMAGE: %s]\nDescription: %s\nContent angle: %s",
			ref, insight.Description, insight.SuggestedAngle,
		))
		contentTypes = append(contentTypes, "image")
	}

	for _, path := range state.DocumentPaths {
		doc, err := tools.LoadDocument(path)
		if err != nil {
			if a.logger != nil {
				a.logger.WithFields(logging.Fields{"path": path, "error": err.Error()}).Warn("Skipping unreadable document")
			}
			continue
		}
		pieces = append(pieces, fmt.Sprintf("[DOCUMENT: %s]\n%s", doc.Name, doc.Content))
		contentTypes = append(contentTypes, "document")
	}

	for _, pageURL := range state.URLs {
		page, err := a.scraper.Scrape(ctx, pageURL)
		if err != nil {
			if a.logger != nil {
				a.logger.WithFields(logging.Fields{"url": pageURL, "error": err.Error()}).Warn("Skipping unreachable URL")
			}
			continue
		}
		pieces = append(pieces, fmt.Sprintf(
			"[URL: %s]\nTitle: %s\n%s",
			pageURL, page.Title, clip(page.Content, 2000),
		))
		contentTypes = append(contentTypes, "url")
		themes = append(themes, page.Title)
	}

	if len(pieces) == 0 {
		return failure(a.Name(), "No usable content could be extracted from the input", time.Since(start))
	}

	combined := strings.Join(pieces, "\n\n")
	synthesis := a.synthesize(ctx, combined)

	output := InputOutput{
		CombinedContent: combined,
		Synthesis:       synthesis,
		ContentTypes:    tools.DedupeStrings(contentTypes),
		Themes:          tools.DedupeStrings(themes),
	}
	summary := fmt.Sprintf("Processed %d input sources (%s)",
		len(pieces), strings.Join(output.ContentTypes, ", "))
	return success(a.Name(), summary, output, time.Since(start))
}

func (a *InputProcessor) synthesize(ctx context.Context, combined string) string {
	if a.llm == nil || combined == "" {
		return clip(combined, 500)
	}

	callCtx, cancel := context.WithTimeout(ctx, 20*time.Second)
	defer cancel()

	prompt := fmt.Sprintf(`From the following multi-modal content, extract:
1. Core topic / main theme
2. Key messages (up to 5)
3. Target audience
4. Best LinkedIn post angle

Content:
%s`, clip(combined, 3000))

	resp, err := a.llm.Complete(callCtx, []llm.Message{
		llm.SystemMessage("You are an expert content strategist."),
		llm.UserMessage(prompt),
	})
	if err != nil {
		if a.logger != nil {
			a.logger.WithFields(logging.Fields{"error": err.Error()}).Warn("Synthesis call failed, using raw extract")
		}
		return clip(combined, 500)
	}
	return strings.TrimSpace(resp)
}
