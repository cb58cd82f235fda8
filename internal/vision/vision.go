package vision

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"adtrend/internal/config"
	"adtrend/internal/model"
)

// ErrNotConfigured is returned when no vision backend has usable
// credentials. The message names what is missing.
var ErrNotConfigured = errors.New("no vision backend configured: set vision.vertex.credentialsFile, vision.gemini.apiKey, or vision.claude.apiKey")

// ErrInvalidResponse marks a 200 response whose payload carried no
// usable analysis text.
var ErrInvalidResponse = errors.New("vision backend returned no analysis text")

// Media is one downloaded creative ready for analysis.
type Media struct {
	URL      string
	Kind     model.MediaType
	MIMEType string
	Bytes    []byte
	// Title is the stored display text, used as extra context when
	// analyzing images.
	Title string
}

// Backend is one vision-capable provider. Exactly one backend handles
// any given analysis call.
type Backend interface {
	Name() string
	Supports(kind model.MediaType) bool
	Analyze(ctx context.Context, media Media, prompt string) (string, error)
}

// Dispatcher downloads media and routes it to the first configured
// backend that supports its kind. The backend list is probed once at
// startup, not re-checked per call.
type Dispatcher struct {
	backends   []Backend
	downloader *Downloader
	logger     *slog.Logger
}

// NewDispatcherFromConfig probes vision credentials in fixed priority
// order: vertex (service account) first, gemini (API key) next, claude
// (API key, images only) last. It fails when none is configured.
func NewDispatcherFromConfig(cfg *config.Config, logger *slog.Logger) (*Dispatcher, error) {
	var backends []Backend

	if cfg.Vision.Vertex.CredentialsFile != "" {
		vb, err := NewVertexBackend(cfg.Vision.Vertex, logger)
		if err != nil {
			return nil, fmt.Errorf("vertex backend: %w", err)
		}
		backends = append(backends, vb)
	}
	if cfg.Vision.Gemini.APIKey != "" {
		backends = append(backends, NewGeminiBackend(cfg.Vision.Gemini, logger))
	}
	if cfg.Vision.Claude.APIKey != "" {
		backends = append(backends, NewClaudeBackend(cfg.Vision.Claude))
	}

	if len(backends) == 0 {
		return nil, ErrNotConfigured
	}

	return &Dispatcher{
		backends:   backends,
		downloader: NewDownloader(),
		logger:     logger,
	}, nil
}

// NewDispatcher builds a dispatcher over explicit backends. Used by tests.
func NewDispatcher(backends []Backend, downloader *Downloader, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{backends: backends, downloader: downloader, logger: logger}
}

// Analyze downloads the creative's media and produces analysis text
// via the first backend that supports its media kind. It returns the
// text and the name of the backend that produced it.
func (d *Dispatcher) Analyze(ctx context.Context, mediaURL string, kind model.MediaType, title string) (string, string, error) {
	var backend Backend
	for _, b := range d.backends {
		if b.Supports(kind) {
			backend = b
			break
		}
	}
	if backend == nil {
		return "", "", fmt.Errorf("no configured vision backend supports %s media", kind)
	}

	media, err := d.downloader.Download(ctx, mediaURL, kind)
	if err != nil {
		return "", backend.Name(), fmt.Errorf("download media: %w", err)
	}
	media.Title = title

	text, err := backend.Analyze(ctx, media, analysisPrompt(kind, title))
	if err != nil {
		return "", backend.Name(), err
	}
	if strings.TrimSpace(text) == "" {
		return "", backend.Name(), ErrInvalidResponse
	}
	return text, backend.Name(), nil
}

const videoPrompt = `Analyze this video ad creative in detail:
1. Visual style and aesthetics
2. Pacing and editing (transitions, tempo)
3. On-screen text and typography
4. Emotional tone and mood
5. Call-to-action elements
6. Target audience
7. Distinctive features

Give specific, practical observations.`

const imagePromptHeader = `Analyze this image ad creative in detail:
1. Visual style and composition
2. On-image text and typography
3. Emotional tone and mood
4. Call-to-action elements
5. Target audience
6. Distinctive features

Give specific, practical observations.`

// analysisPrompt builds the fixed per-kind prompt. The image prompt
// also embeds the row's caption as context.
func analysisPrompt(kind model.MediaType, title string) string {
	if kind == model.MediaTypeVideo {
		return videoPrompt
	}
	prompt := imagePromptHeader
	if title != "" {
		prompt += "\n\nAd caption for context: " + title
	}
	return prompt
}
