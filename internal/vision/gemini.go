package vision

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"adtrend/internal/config"
	"adtrend/internal/model"
)

const (
	geminiDefaultBase = "https://generativelanguage.googleapis.com"

	geminiFileStateActive     = "ACTIVE"
	geminiFileStateProcessing = "PROCESSING"
	geminiFileStateFailed     = "FAILED"

	// File-processing polling: images settle quickly, video takes longer.
	geminiPollInterval     = time.Second
	geminiImageMaxAttempts = 10
	geminiVideoMaxAttempts = 30
)

// GeminiBackend analyzes media via the Generative Language API. Media
// is staged through the Files API, which requires polling until the
// uploaded file leaves the PROCESSING state.
type GeminiBackend struct {
	apiKey  string
	model   string
	baseURL string
	logger  *slog.Logger
	http    *http.Client
}

func NewGeminiBackend(cfg config.GeminiConfig, logger *slog.Logger) *GeminiBackend {
	modelName := cfg.Model
	if modelName == "" {
		modelName = "gemini-2.5-flash"
	}
	return &GeminiBackend{
		apiKey:  cfg.APIKey,
		model:   modelName,
		baseURL: geminiDefaultBase,
		logger:  logger,
		http:    &http.Client{Timeout: 180 * time.Second},
	}
}

func (b *GeminiBackend) Name() string { return "gemini" }

func (b *GeminiBackend) Supports(model.MediaType) bool { return true }

type geminiFile struct {
	Name     string `json:"name"`
	URI      string `json:"uri"`
	State    string `json:"state"`
	MIMEType string `json:"mimeType"`
}

type geminiFileEnvelope struct {
	File geminiFile `json:"file"`
}

type geminiGenerateRequest struct {
	Contents []geminiContent `json:"contents"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text     string          `json:"text,omitempty"`
	FileData *geminiFileData `json:"file_data,omitempty"`
}

type geminiFileData struct {
	MIMEType string `json:"mime_type"`
	FileURI  string `json:"file_uri"`
}

type geminiGenerateResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
}

// Analyze uploads the media through the Files API, waits for it to
// become ACTIVE, runs generateContent against the file URI, and
// deletes the staged file best-effort.
func (b *GeminiBackend) Analyze(ctx context.Context, media Media, prompt string) (string, error) {
	file, err := b.uploadFile(ctx, media)
	if err != nil {
		return "", fmt.Errorf("upload media: %w", err)
	}

	defer func() {
		if delErr := b.deleteFile(context.WithoutCancel(ctx), file.Name); delErr != nil {
			b.logger.Warn("failed to delete staged file", "file", file.Name, "error", delErr)
		}
	}()

	file, err = b.waitForActive(ctx, file, media.Kind)
	if err != nil {
		return "", err
	}

	return b.generate(ctx, file, media.MIMEType, prompt)
}

// uploadFile runs the resumable upload protocol: start a session, then
// upload and finalize in one shot.
func (b *GeminiBackend) uploadFile(ctx context.Context, media Media) (geminiFile, error) {
	startURL := fmt.Sprintf("%s/upload/v1beta/files?key=%s", b.baseURL, url.QueryEscape(b.apiKey))

	meta, err := json.Marshal(map[string]any{
		"file": map[string]string{"display_name": "ad-media"},
	})
	if err != nil {
		return geminiFile{}, err
	}

	start, err := http.NewRequestWithContext(ctx, http.MethodPost, startURL, bytes.NewReader(meta))
	if err != nil {
		return geminiFile{}, err
	}
	start.Header.Set("Content-Type", "application/json")
	start.Header.Set("X-Goog-Upload-Protocol", "resumable")
	start.Header.Set("X-Goog-Upload-Command", "start")
	start.Header.Set("X-Goog-Upload-Header-Content-Length", fmt.Sprint(len(media.Bytes)))
	start.Header.Set("X-Goog-Upload-Header-Content-Type", media.MIMEType)

	resp, err := b.http.Do(start)
	if err != nil {
		return geminiFile{}, err
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return geminiFile{}, fmt.Errorf("start upload failed with status %d", resp.StatusCode)
	}

	sessionURL := resp.Header.Get("X-Goog-Upload-URL")
	if sessionURL == "" {
		return geminiFile{}, errors.New("start upload returned no session url")
	}

	upload, err := http.NewRequestWithContext(ctx, http.MethodPost, sessionURL, bytes.NewReader(media.Bytes))
	if err != nil {
		return geminiFile{}, err
	}
	upload.Header.Set("X-Goog-Upload-Command", "upload, finalize")
	upload.Header.Set("X-Goog-Upload-Offset", "0")
	upload.ContentLength = int64(len(media.Bytes))

	upResp, err := b.http.Do(upload)
	if err != nil {
		return geminiFile{}, err
	}
	defer upResp.Body.Close()

	if upResp.StatusCode < 200 || upResp.StatusCode >= 300 {
		return geminiFile{}, fmt.Errorf("upload failed with status %d", upResp.StatusCode)
	}

	var envelope geminiFileEnvelope
	if err := json.NewDecoder(upResp.Body).Decode(&envelope); err != nil {
		return geminiFile{}, err
	}
	if envelope.File.Name == "" {
		return geminiFile{}, errors.New("upload response missing file name")
	}
	return envelope.File, nil
}

// waitForActive polls the staged file until it leaves PROCESSING. The
// attempt ceiling depends on media kind.
func (b *GeminiBackend) waitForActive(ctx context.Context, file geminiFile, kind model.MediaType) (geminiFile, error) {
	maxAttempts := geminiImageMaxAttempts
	if kind == model.MediaTypeVideo {
		maxAttempts = geminiVideoMaxAttempts
	}

	for attempt := 0; attempt < maxAttempts; attempt++ {
		switch file.State {
		case geminiFileStateActive:
			return file, nil
		case geminiFileStateFailed:
			return geminiFile{}, fmt.Errorf("file processing failed for %s", file.Name)
		}

		select {
		case <-ctx.Done():
			return geminiFile{}, ctx.Err()
		case <-time.After(geminiPollInterval):
		}

		statusURL := fmt.Sprintf("%s/v1beta/%s?key=%s", b.baseURL, file.Name, url.QueryEscape(b.apiKey))
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, statusURL, nil)
		if err != nil {
			return geminiFile{}, err
		}

		resp, err := b.http.Do(req)
		if err != nil {
			return geminiFile{}, err
		}
		var updated geminiFile
		decodeErr := json.NewDecoder(resp.Body).Decode(&updated)
		resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return geminiFile{}, fmt.Errorf("file status check failed with status %d", resp.StatusCode)
		}
		if decodeErr != nil {
			return geminiFile{}, decodeErr
		}
		file = updated
	}

	return geminiFile{}, fmt.Errorf("file %s still %s after %d attempts", file.Name, file.State, maxAttempts)
}

func (b *GeminiBackend) generate(ctx context.Context, file geminiFile, mimeType, prompt string) (string, error) {
	payload, err := json.Marshal(geminiGenerateRequest{
		Contents: []geminiContent{
			{
				Parts: []geminiPart{
					{FileData: &geminiFileData{MIMEType: mimeType, FileURI: file.URI}},
					{Text: prompt},
				},
			},
		},
	})
	if err != nil {
		return "", err
	}

	endpoint := fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s", b.baseURL, b.model, url.QueryEscape(b.apiKey))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("gemini generateContent failed with status %d: %s", resp.StatusCode, string(body))
	}

	var parsed geminiGenerateResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", err
	}
	if len(parsed.Candidates) == 0 || len(parsed.Candidates[0].Content.Parts) == 0 {
		return "", ErrInvalidResponse
	}

	var sb strings.Builder
	for _, part := range parsed.Candidates[0].Content.Parts {
		sb.WriteString(part.Text)
	}
	return sb.String(), nil
}

func (b *GeminiBackend) deleteFile(ctx context.Context, name string) error {
	endpoint := fmt.Sprintf("%s/v1beta/%s?key=%s", b.baseURL, name, url.QueryEscape(b.apiKey))
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, endpoint, nil)
	if err != nil {
		return err
	}

	resp, err := b.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("delete file failed with status %d", resp.StatusCode)
	}
	return nil
}
