package http

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"adtrend/internal/apify"
	"adtrend/internal/config"
	"adtrend/internal/model"
	"adtrend/internal/services"
	"adtrend/internal/store"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestServer(cfg *config.Config, svcs Services, targets proxyTargets) *Server {
	if targets.AnthropicMessages == "" {
		targets = defaultProxyTargets()
	}
	return newServer(cfg, &store.Store{}, svcs, testLogger(), targets)
}

func postJSON(t *testing.T, s *Server, path string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	resp, err := s.app.Test(req, -1)
	if err != nil {
		t.Fatalf("app.Test error: %v", err)
	}
	return resp
}

func decodeError(t *testing.T, resp *http.Response) ErrorResponse {
	t.Helper()
	var er ErrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&er); err != nil {
		t.Fatalf("decode error response: %v", err)
	}
	return er
}

// --- fakes for the service interfaces ---

type stubIngestStore struct{}

func (stubIngestStore) CreateScrapeRequest(context.Context, model.ScrapeRequest) error {
	return nil
}

func (stubIngestStore) InsertAdCreatives(_ context.Context, rows []model.AdCreative) ([]model.AdCreative, int, error) {
	for i := range rows {
		rows[i].ID = uuid.New()
	}
	return rows, 0, nil
}

func (stubIngestStore) ListArchiveIDs(context.Context, string) (map[string]struct{}, error) {
	return map[string]struct{}{}, nil
}

type stubScraper struct{}

func (stubScraper) ScrapeAds(context.Context, string, string, int) ([]apify.RawAd, error) {
	return nil, nil
}

type stubAnalyzeStore struct {
	ad     model.StoredAd
	getErr error
}

func (s stubAnalyzeStore) GetAdCreative(context.Context, uuid.UUID) (model.StoredAd, error) {
	return s.ad, s.getErr
}

func (stubAnalyzeStore) UpdateAdCreativeAnalysis(context.Context, uuid.UUID, string, time.Time) error {
	return nil
}

type stubWizardStore struct {
	analyses []string
}

func (s stubWizardStore) ListAnalyses(context.Context, string) ([]string, error) {
	return s.analyses, nil
}

// --- tests ---

func TestIngestHandler_MissingPageID(t *testing.T) {
	svcs := Services{Ingest: services.NewIngestService(stubIngestStore{}, stubScraper{}, testLogger())}
	s := newTestServer(&config.Config{}, svcs, proxyTargets{})

	resp := postJSON(t, s, "/api/apify/facebook-ads", map[string]any{"country": "US"})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
	if er := decodeError(t, resp); !strings.Contains(er.Error, "pageId") {
		t.Fatalf("expected pageId error, got %q", er.Error)
	}
}

func TestIngestHandler_MockFlow(t *testing.T) {
	svcs := Services{Ingest: services.NewIngestService(stubIngestStore{}, stubScraper{}, testLogger())}
	s := newTestServer(&config.Config{}, svcs, proxyTargets{})

	resp := postJSON(t, s, "/api/apify/facebook-ads", map[string]any{"pageId": "123", "useMock": true})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var res services.IngestResult
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !res.Success {
		t.Error("expected success")
	}
	if res.Source != "mock" {
		t.Errorf("Source = %q, want mock", res.Source)
	}
	if res.SavedCount == 0 {
		t.Error("mock flow should save creatives")
	}
}

func TestAnalyzeHandler_InvalidID(t *testing.T) {
	svcs := Services{Analyze: services.NewAnalyzeService(stubAnalyzeStore{}, nil, testLogger())}
	s := newTestServer(&config.Config{}, svcs, proxyTargets{})

	resp := postJSON(t, s, "/api/facebook-ads/not-a-uuid/analyze", nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestAnalyzeHandler_NotFound(t *testing.T) {
	svcs := Services{Analyze: services.NewAnalyzeService(stubAnalyzeStore{getErr: sql.ErrNoRows}, nil, testLogger())}
	s := newTestServer(&config.Config{}, svcs, proxyTargets{})

	resp := postJSON(t, s, "/api/facebook-ads/"+uuid.NewString()+"/analyze", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

func TestAnalyzeHandler_NoMediaURL(t *testing.T) {
	ad := model.StoredAd{AdCreative: model.AdCreative{ID: uuid.New()}}
	svcs := Services{Analyze: services.NewAnalyzeService(stubAnalyzeStore{ad: ad}, nil, testLogger())}
	s := newTestServer(&config.Config{}, svcs, proxyTargets{})

	resp := postJSON(t, s, "/api/facebook-ads/"+ad.ID.String()+"/analyze", nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
	if er := decodeError(t, resp); !strings.Contains(er.Error, "media URL") {
		t.Fatalf("unexpected error %q", er.Error)
	}
}

func TestWizardHandler_NoAnalyses(t *testing.T) {
	svcs := Services{Wizard: services.NewWizardService(stubWizardStore{}, nil, testLogger())}
	s := newTestServer(&config.Config{}, svcs, proxyTargets{})

	resp := postJSON(t, s, "/api/prompt-wizard/generate", map[string]any{"pageId": "123"})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
	if er := decodeError(t, resp); !strings.Contains(er.Error, "No analyzed ads") {
		t.Fatalf("unexpected error %q", er.Error)
	}
}

func TestClaudeProxy_MissingKey(t *testing.T) {
	s := newTestServer(&config.Config{}, Services{}, proxyTargets{})

	resp := postJSON(t, s, "/api/claude", map[string]any{"model": "x"})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
}

func TestClaudeProxy_ForwardsRequest(t *testing.T) {
	var gotKey, gotVersion, gotBody string
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("x-api-key")
		gotVersion = r.Header.Get("anthropic-version")
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"content":[{"type":"text","text":"ok"}]}`))
	}))
	defer upstream.Close()

	cfg := &config.Config{}
	cfg.Vision.Claude.APIKey = "sk-test"
	s := newTestServer(cfg, Services{}, proxyTargets{AnthropicMessages: upstream.URL})

	resp := postJSON(t, s, "/api/claude", map[string]any{"model": "m", "max_tokens": 16})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if gotKey != "sk-test" {
		t.Errorf("x-api-key = %q, want sk-test", gotKey)
	}
	if gotVersion == "" {
		t.Error("anthropic-version header missing")
	}
	if !strings.Contains(gotBody, "max_tokens") {
		t.Errorf("request body not forwarded: %q", gotBody)
	}

	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "ok") {
		t.Errorf("upstream body not passed through: %q", body)
	}
}

func TestGeminiVideoHandler_MissingKey(t *testing.T) {
	s := newTestServer(&config.Config{}, Services{}, proxyTargets{})

	resp := postJSON(t, s, "/api/gemini/analyze-video", map[string]any{"mediaUrl": "https://x/y.mp4"})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
}

func TestVertexVideoHandler_MissingCredentials(t *testing.T) {
	s := newTestServer(&config.Config{}, Services{}, proxyTargets{})

	resp := postJSON(t, s, "/api/vertex/analyze-video", map[string]any{"mediaUrl": "https://x/y.mp4"})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
}

func TestCheckKeyHandler_PresenceOnly(t *testing.T) {
	cfg := &config.Config{}
	cfg.Apify.Token = "secret-token-value"
	s := newTestServer(cfg, Services{}, proxyTargets{})

	req := httptest.NewRequest(http.MethodGet, "/api/check-key", nil)
	resp, err := s.app.Test(req, -1)
	if err != nil {
		t.Fatalf("app.Test error: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	body, _ := io.ReadAll(resp.Body)
	if strings.Contains(string(body), "secret-token-value") {
		t.Fatal("credential value leaked in diagnostics response")
	}
	if !strings.Contains(string(body), "apify.token") {
		t.Fatalf("expected apify.token entry, got %s", body)
	}
}
