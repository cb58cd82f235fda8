package vision

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"adtrend/internal/config"
	"adtrend/internal/model"
)

// ClaudeBackend analyzes image creatives via Anthropic's Messages API
// with inline base64 content. It does not accept video, so it sits
// last in the dispatch order as an image-only fallback.
type ClaudeBackend struct {
	apiKey  string
	model   string
	baseURL string
	http    *http.Client
}

func NewClaudeBackend(cfg config.ClaudeConfig) *ClaudeBackend {
	modelName := cfg.Model
	if modelName == "" {
		modelName = "claude-sonnet-4-20250514"
	}
	return &ClaudeBackend{
		apiKey:  cfg.APIKey,
		model:   modelName,
		baseURL: "https://api.anthropic.com",
		http:    &http.Client{Timeout: 120 * time.Second},
	}
}

func (b *ClaudeBackend) Name() string { return "claude" }

func (b *ClaudeBackend) Supports(kind model.MediaType) bool {
	return kind == model.MediaTypeImage
}

type claudeRequest struct {
	Model     string          `json:"model"`
	MaxTokens int             `json:"max_tokens"`
	Messages  []claudeMessage `json:"messages"`
}

type claudeMessage struct {
	Role    string        `json:"role"`
	Content []claudeBlock `json:"content"`
}

type claudeBlock struct {
	Type   string        `json:"type"`
	Text   string        `json:"text,omitempty"`
	Source *claudeSource `json:"source,omitempty"`
}

type claudeSource struct {
	Type      string `json:"type"`
	MediaType string `json:"media_type"`
	Data      string `json:"data"`
}

type claudeResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

func (b *ClaudeBackend) Analyze(ctx context.Context, media Media, prompt string) (string, error) {
	if media.Kind != model.MediaTypeImage {
		return "", errors.New("claude backend only analyzes images")
	}

	payload, err := json.Marshal(claudeRequest{
		Model:     b.model,
		MaxTokens: 2048,
		Messages: []claudeMessage{
			{
				Role: "user",
				Content: []claudeBlock{
					{
						Type: "image",
						Source: &claudeSource{
							Type:      "base64",
							MediaType: media.MIMEType,
							Data:      base64.StdEncoding.EncodeToString(media.Bytes),
						},
					},
					{Type: "text", Text: prompt},
				},
			},
		},
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+"/v1/messages", bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", b.apiKey)
	req.Header.Set("anthropic-version", "2023-06-01")

	resp, err := b.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("anthropic messages request failed with status %d: %s", resp.StatusCode, string(body))
	}

	var parsed claudeResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", err
	}
	if len(parsed.Content) == 0 {
		return "", ErrInvalidResponse
	}
	return parsed.Content[0].Text, nil
}
