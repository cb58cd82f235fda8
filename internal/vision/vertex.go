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
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"adtrend/internal/config"
	"adtrend/internal/gcs"
	"adtrend/internal/model"
)

const vertexScope = "https://www.googleapis.com/auth/cloud-platform"

// VertexBackend analyzes media through a Vertex publisher model. Media
// is staged in a GCS bucket first because the endpoint takes file URIs
// rather than inline payloads for video.
type VertexBackend struct {
	project  string
	location string
	model    string
	bucket   string
	ts       oauth2.TokenSource
	storage  *gcs.Client
	logger   *slog.Logger
	endpoint string
	http     *http.Client
}

// NewVertexBackend reads the service-account credentials file and
// builds an OAuth2 token source via signed-assertion exchange.
func NewVertexBackend(cfg config.VertexConfig, logger *slog.Logger) (*VertexBackend, error) {
	if cfg.Project == "" || cfg.Bucket == "" {
		return nil, errors.New("vertex backend requires project and bucket")
	}

	creds, err := os.ReadFile(cfg.CredentialsFile)
	if err != nil {
		return nil, fmt.Errorf("read credentials file: %w", err)
	}

	jwtCfg, err := google.JWTConfigFromJSON(creds, vertexScope)
	if err != nil {
		return nil, fmt.Errorf("parse service account credentials: %w", err)
	}
	ts := jwtCfg.TokenSource(context.Background())

	location := cfg.Location
	if location == "" {
		location = "us-central1"
	}
	modelName := cfg.Model
	if modelName == "" {
		modelName = "gemini-2.0-flash"
	}

	return &VertexBackend{
		project:  cfg.Project,
		location: location,
		model:    modelName,
		bucket:   cfg.Bucket,
		ts:       ts,
		storage:  gcs.New(ts, cfg.Project),
		logger:   logger,
		endpoint: fmt.Sprintf("https://%s-aiplatform.googleapis.com/v1/projects/%s/locations/%s/publishers/google/models/%s:generateContent",
			location, cfg.Project, location, modelName),
		http: &http.Client{Timeout: 180 * time.Second},
	}, nil
}

func (b *VertexBackend) Name() string { return "vertex" }

func (b *VertexBackend) Supports(model.MediaType) bool { return true }

type vertexRequest struct {
	Contents []vertexContent `json:"contents"`
}

type vertexContent struct {
	Role  string       `json:"role"`
	Parts []vertexPart `json:"parts"`
}

type vertexPart struct {
	Text     string          `json:"text,omitempty"`
	FileData *vertexFileData `json:"fileData,omitempty"`
}

type vertexFileData struct {
	MIMEType string `json:"mimeType"`
	FileURI  string `json:"fileUri"`
}

type vertexResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// Analyze stages the media in GCS, runs generateContent against the
// staged URI, then deletes the staged object best-effort.
func (b *VertexBackend) Analyze(ctx context.Context, media Media, prompt string) (string, error) {
	object := "staging/" + uuid.New().String() + objectExt(media.MIMEType)

	uri, err := b.storage.Upload(ctx, b.bucket, object, media.MIMEType, media.Bytes)
	if errors.Is(err, gcs.ErrBucketNotFound) {
		// First use of a fresh project: create the bucket and retry once.
		if createErr := b.storage.CreateBucket(ctx, b.bucket); createErr != nil {
			return "", fmt.Errorf("create staging bucket: %w", createErr)
		}
		uri, err = b.storage.Upload(ctx, b.bucket, object, media.MIMEType, media.Bytes)
	}
	if err != nil {
		return "", fmt.Errorf("stage media: %w", err)
	}

	defer func() {
		if delErr := b.storage.Delete(context.WithoutCancel(ctx), b.bucket, object); delErr != nil {
			b.logger.Warn("failed to delete staged media", "object", object, "error", delErr)
		}
	}()

	payload, err := json.Marshal(vertexRequest{
		Contents: []vertexContent{
			{
				Role: "user",
				Parts: []vertexPart{
					{FileData: &vertexFileData{MIMEType: media.MIMEType, FileURI: uri}},
					{Text: prompt},
				},
			},
		},
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	tok, err := b.ts.Token()
	if err != nil {
		return "", err
	}
	tok.SetAuthHeader(req)

	resp, err := b.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("vertex generateContent failed with status %d: %s", resp.StatusCode, string(body))
	}

	var parsed vertexResponse
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

func objectExt(mimeType string) string {
	switch mimeType {
	case "image/png":
		return ".png"
	case "image/webp":
		return ".webp"
	case "image/gif":
		return ".gif"
	case "video/webm":
		return ".webm"
	case "video/quicktime":
		return ".mov"
	case "video/mp4":
		return ".mp4"
	}
	return ".jpg"
}
