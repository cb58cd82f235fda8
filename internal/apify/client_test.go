package apify

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"adtrend/internal/config"
)

func TestScrapeAds_MissingToken(t *testing.T) {
	c := NewClient(config.ApifyConfig{})

	_, err := c.ScrapeAds(context.Background(), "123", "US", 10)
	if err != ErrNotConfigured {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}

func TestScrapeAds_SyncReturnsItems(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/run-sync-get-dataset-items") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-token" {
			t.Errorf("unexpected auth header %q", got)
		}
		w.Write([]byte(`[{"ad_archive_id":"a1","page_name":"P","snapshot":{"cards":[]}}]`))
	}))
	defer srv.Close()

	c := NewClient(config.ApifyConfig{Token: "test-token", BaseURL: srv.URL, Sync: true})

	items, err := c.ScrapeAds(context.Background(), "123", "US", 10)
	if err != nil {
		t.Fatalf("ScrapeAds returned error: %v", err)
	}
	if len(items) != 1 || items[0].AdArchiveID != "a1" {
		t.Fatalf("unexpected items: %+v", items)
	}
}

func TestScrapeAds_SyncEmptyDatasetIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	c := NewClient(config.ApifyConfig{Token: "test-token", BaseURL: srv.URL, Sync: true})

	_, err := c.ScrapeAds(context.Background(), "123", "US", 10)
	if err == nil {
		t.Fatal("expected error for empty dataset, got nil")
	}
	if !strings.Contains(err.Error(), "no ads found") {
		t.Fatalf("expected no-ads error, got %v", err)
	}
}

func TestScrapeAds_PerItemErrorsAreSkipped(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[
			{"ad_archive_id":"bad","error":"blocked"},
			{"ad_archive_id":"good","snapshot":{"cards":[]}}
		]`))
	}))
	defer srv.Close()

	c := NewClient(config.ApifyConfig{Token: "test-token", BaseURL: srv.URL, Sync: true})

	items, err := c.ScrapeAds(context.Background(), "123", "US", 10)
	if err != nil {
		t.Fatalf("ScrapeAds returned error: %v", err)
	}
	if len(items) != 1 || items[0].AdArchiveID != "good" {
		t.Fatalf("expected only the good item, got %+v", items)
	}
}

func TestScrapeAds_AsyncPollUntilSucceeded(t *testing.T) {
	polls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && strings.Contains(r.URL.Path, "/runs"):
			w.Write([]byte(`{"data":{"id":"run-1","status":"READY","defaultDatasetId":"ds-1"}}`))
		case strings.Contains(r.URL.Path, "/actor-runs/run-1"):
			polls++
			status := "RUNNING"
			if polls >= 2 {
				status = "SUCCEEDED"
			}
			w.Write([]byte(`{"data":{"status":"` + status + `"}}`))
		case strings.Contains(r.URL.Path, "/datasets/ds-1/items"):
			w.Write([]byte(`[{"ad_archive_id":"a1","snapshot":{"cards":[]}}]`))
		default:
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
	}))
	defer srv.Close()

	c := NewClient(config.ApifyConfig{
		Token:           "test-token",
		BaseURL:         srv.URL,
		PollIntervalMs:  1,
		MaxPollAttempts: 5,
	})

	items, err := c.ScrapeAds(context.Background(), "123", "US", 10)
	if err != nil {
		t.Fatalf("ScrapeAds returned error: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(items))
	}
	if polls < 2 {
		t.Fatalf("expected at least 2 polls, got %d", polls)
	}
}

func TestScrapeAds_AsyncPollExhaustedNamesLastStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && strings.Contains(r.URL.Path, "/runs"):
			w.Write([]byte(`{"data":{"id":"run-1","status":"READY","defaultDatasetId":"ds-1"}}`))
		case strings.Contains(r.URL.Path, "/actor-runs/run-1"):
			w.Write([]byte(`{"data":{"status":"RUNNING"}}`))
		default:
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
	}))
	defer srv.Close()

	c := NewClient(config.ApifyConfig{
		Token:           "test-token",
		BaseURL:         srv.URL,
		PollIntervalMs:  1,
		MaxPollAttempts: 3,
	})

	_, err := c.ScrapeAds(context.Background(), "123", "US", 10)
	if err == nil {
		t.Fatal("expected polling exhaustion error, got nil")
	}
	if !strings.Contains(err.Error(), "RUNNING") {
		t.Fatalf("expected error to name last observed status, got %v", err)
	}
	if !strings.Contains(err.Error(), "3 attempts") {
		t.Fatalf("expected error to name attempt ceiling, got %v", err)
	}
}

func TestScrapeAds_AsyncTerminalFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && strings.Contains(r.URL.Path, "/runs"):
			w.Write([]byte(`{"data":{"id":"run-1","status":"READY","defaultDatasetId":"ds-1"}}`))
		case strings.Contains(r.URL.Path, "/actor-runs/run-1"):
			w.Write([]byte(`{"data":{"status":"ABORTED"}}`))
		default:
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
	}))
	defer srv.Close()

	c := NewClient(config.ApifyConfig{
		Token:           "test-token",
		BaseURL:         srv.URL,
		PollIntervalMs:  1,
		MaxPollAttempts: 5,
	})

	_, err := c.ScrapeAds(context.Background(), "123", "US", 10)
	if err == nil {
		t.Fatal("expected terminal failure error, got nil")
	}
	if !strings.Contains(err.Error(), "ABORTED") {
		t.Fatalf("expected error to carry terminal status, got %v", err)
	}
}

func TestBuildInput_ClampsCount(t *testing.T) {
	c := NewClient(config.ApifyConfig{Token: "t"})

	in := c.buildInput("123", "", 3)
	if in.Limit != defaultMinCount {
		t.Fatalf("expected limit clamped to %d, got %d", defaultMinCount, in.Limit)
	}
	if in.Countries[0] != "US" {
		t.Fatalf("expected default country US, got %s", in.Countries[0])
	}

	in = c.buildInput("123", "DE", 25)
	if in.Limit != 25 {
		t.Fatalf("expected limit 25 kept, got %d", in.Limit)
	}
}
