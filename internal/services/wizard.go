package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"adtrend/internal/llm"
	"adtrend/internal/metrics"
)

// ErrNoAnalyses is returned when a trends mode finds an empty analysis
// corpus. Calling the LLM with no content would only hallucinate.
var ErrNoAnalyses = errors.New("no stored analyses to synthesize trends from")

// Wizard modes, selected by which inputs are present.
const (
	ModeIdeaOnly   = "idea-only"
	ModeAllTrends  = "all-trends"
	ModePageScoped = "page-scoped"
)

// TextGenerator is the text-generation surface the wizard needs.
// Implemented by llm.Client.
type TextGenerator interface {
	Generate(ctx context.Context, req llm.GenerateRequest) (string, error)
}

// WizardStore reads the analysis corpus.
type WizardStore interface {
	ListAnalyses(ctx context.Context, pageID string) ([]string, error)
}

// PromptSet is the structured three-part generation prompt. When the
// model's output cannot be parsed into the named sections, the raw
// text is preserved instead of being discarded.
type PromptSet struct {
	StartingFrame string `json:"startingFrame,omitempty"`
	FinalFrame    string `json:"finalFrame,omitempty"`
	KlingPrompt   string `json:"klingPrompt,omitempty"`
	Explanation   string `json:"explanation,omitempty"`
	Raw           string `json:"raw,omitempty"`
}

// WizardResult mirrors the shape the front end consumes.
type WizardResult struct {
	TrendAnalysis *string   `json:"trendAnalysis"`
	Prompts       PromptSet `json:"prompts"`
	AdsAnalyzed   int       `json:"adsAnalyzed"`
	Mode          string    `json:"mode"`
}

// WizardService aggregates stored analyses into a trend summary and a
// structured creative-generation prompt.
type WizardService struct {
	store  WizardStore
	gen    TextGenerator
	logger *slog.Logger
}

func NewWizardService(st WizardStore, gen TextGenerator, logger *slog.Logger) *WizardService {
	return &WizardService{store: st, gen: gen, logger: logger}
}

const trendSystem = `You are a marketing analyst. You are given AI-written analyses of
competitor ad creatives. Identify recurring emotional triggers, customer pains being
addressed, visual and textual hooks, dominant visual styles, call-to-action strategies,
and motion patterns. Answer with short, concrete theses and examples.`

const promptSystem = `You convert advertising concepts into prompts for a video
generation tool that animates a start frame into an end frame with one simple motion.
Respond with exactly these sections, each introduced by its header on its own line:

STARTING FRAME:
<50-80 word photorealistic description of the opening frame, 9:16 vertical>

FINAL FRAME:
<50-80 word description of the closing frame, same composition, only the key element changed>

KLING PROMPT:
<20-40 words describing one single smooth motion over 3-4 seconds, no camera shake>

EXPLANATION:
<one or two sentences on how the concept was preserved>`

// Generate runs the wizard in one of three modes:
// idea-only (user idea, no page filter), all-trends (no page filter),
// or page-scoped. The trends modes run a two-stage flow: trend
// extraction over the corpus, then prompt generation seeded by the
// summary and the idea when present.
func (s *WizardService) Generate(ctx context.Context, pageID, userIdea string) (*WizardResult, error) {
	pageID = strings.TrimSpace(pageID)
	userIdea = strings.TrimSpace(userIdea)

	mode := ModePageScoped
	if pageID == "" {
		if userIdea != "" {
			mode = ModeIdeaOnly
		} else {
			mode = ModeAllTrends
		}
	}

	result := &WizardResult{Mode: mode}

	if mode == ModeIdeaOnly {
		prompts, err := s.generatePrompts(ctx, "", userIdea)
		if err != nil {
			metrics.RecordWizard(mode, false)
			return nil, err
		}
		metrics.RecordWizard(mode, true)
		result.Prompts = prompts
		return result, nil
	}

	analyses, err := s.store.ListAnalyses(ctx, pageID)
	if err != nil {
		return nil, fmt.Errorf("load analysis corpus: %w", err)
	}
	if len(analyses) == 0 {
		metrics.RecordWizard(mode, false)
		return nil, ErrNoAnalyses
	}

	trends, err := s.extractTrends(ctx, analyses)
	if err != nil {
		metrics.RecordWizard(mode, false)
		return nil, err
	}

	prompts, err := s.generatePrompts(ctx, trends, userIdea)
	if err != nil {
		metrics.RecordWizard(mode, false)
		return nil, err
	}
	metrics.RecordWizard(mode, true)

	result.TrendAnalysis = &trends
	result.AdsAnalyzed = len(analyses)
	result.Prompts = prompts
	return result, nil
}

func (s *WizardService) extractTrends(ctx context.Context, analyses []string) (string, error) {
	var sb strings.Builder
	for i, a := range analyses {
		fmt.Fprintf(&sb, "--- Creative analysis %d ---\n%s\n\n", i+1, a)
	}

	text, err := s.gen.Generate(ctx, llm.GenerateRequest{
		System: trendSystem,
		Prompt: sb.String(),
	})
	if err != nil {
		return "", fmt.Errorf("trend extraction: %w", err)
	}
	return text, nil
}

func (s *WizardService) generatePrompts(ctx context.Context, trends, userIdea string) (PromptSet, error) {
	var sb strings.Builder
	if trends != "" {
		sb.WriteString("Trend summary of competitor creatives:\n")
		sb.WriteString(trends)
		sb.WriteString("\n\n")
	}
	if userIdea != "" {
		sb.WriteString("Creative idea to build on:\n")
		sb.WriteString(userIdea)
		sb.WriteString("\n\n")
	}
	sb.WriteString("Generate the three prompts.")

	text, err := s.gen.Generate(ctx, llm.GenerateRequest{
		System: promptSystem,
		Prompt: sb.String(),
	})
	if err != nil {
		return PromptSet{}, fmt.Errorf("prompt generation: %w", err)
	}

	return ParsePromptSections(text), nil
}

// ParsePromptSections splits the model's output into the named
// sections. Output that matches none of the headers comes back whole
// under Raw.
func ParsePromptSections(text string) PromptSet {
	var ps PromptSet
	var current *string

	headers := []struct {
		name   string
		target func(*PromptSet) *string
	}{
		{"STARTING FRAME", func(p *PromptSet) *string { return &p.StartingFrame }},
		{"FINAL FRAME", func(p *PromptSet) *string { return &p.FinalFrame }},
		{"KLING PROMPT", func(p *PromptSet) *string { return &p.KlingPrompt }},
		{"EXPLANATION", func(p *PromptSet) *string { return &p.Explanation }},
	}

lines:
	for _, line := range strings.Split(text, "\n") {
		stripped := strings.Trim(strings.TrimSpace(line), "#* ")
		upper := strings.ToUpper(stripped)

		for _, h := range headers {
			if !strings.HasPrefix(upper, h.name) {
				continue
			}
			current = h.target(&ps)
			// Content may follow the header on the same line.
			if i := strings.Index(stripped, ":"); i >= 0 {
				if rest := strings.Trim(stripped[i+1:], "#* "); rest != "" {
					*current += rest + "\n"
				}
			}
			continue lines
		}

		if current != nil {
			*current += line + "\n"
		}
	}

	ps.StartingFrame = strings.TrimSpace(ps.StartingFrame)
	ps.FinalFrame = strings.TrimSpace(ps.FinalFrame)
	ps.KlingPrompt = strings.TrimSpace(ps.KlingPrompt)
	ps.Explanation = strings.TrimSpace(ps.Explanation)

	if ps.StartingFrame == "" && ps.FinalFrame == "" && ps.KlingPrompt == "" {
		return PromptSet{Raw: strings.TrimSpace(text)}
	}
	return ps
}
