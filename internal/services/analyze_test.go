package services

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"adtrend/internal/model"
)

type fakeAnalyzeStore struct {
	ad        model.StoredAd
	getErr    error
	updateErr error
	updates   int
	lastText  string
}

func (f *fakeAnalyzeStore) GetAdCreative(_ context.Context, _ uuid.UUID) (model.StoredAd, error) {
	return f.ad, f.getErr
}

func (f *fakeAnalyzeStore) UpdateAdCreativeAnalysis(_ context.Context, _ uuid.UUID, analysis string, _ time.Time) error {
	f.updates++
	f.lastText = analysis
	return f.updateErr
}

type fakeAnalyzer struct {
	text    string
	backend string
	err     error
	calls   int
}

func (f *fakeAnalyzer) Analyze(_ context.Context, _ string, _ model.MediaType, _ string) (string, string, error) {
	f.calls++
	return f.text, f.backend, f.err
}

func storedAd(analysis *string, mediaURL string) model.StoredAd {
	return model.StoredAd{
		AdCreative: model.AdCreative{
			ID:        uuid.New(),
			MediaURL:  mediaURL,
			MediaType: model.MediaTypeImage,
			Analysis:  analysis,
		},
	}
}

func TestAnalyze_CachedSkipsBackend(t *testing.T) {
	cached := "previously computed"
	store := &fakeAnalyzeStore{ad: storedAd(&cached, "https://cdn.example/a.jpg")}
	analyzer := &fakeAnalyzer{text: "fresh", backend: "gemini"}

	svc := NewAnalyzeService(store, analyzer, quietLogger())
	res, err := svc.Analyze(context.Background(), store.ad.ID, false)
	if err != nil {
		t.Fatalf("Analyze returned error: %v", err)
	}
	if !res.Cached {
		t.Error("expected cached result")
	}
	if res.Analysis != cached {
		t.Errorf("Analysis = %q, want cached text", res.Analysis)
	}
	if analyzer.calls != 0 {
		t.Errorf("backend was called %d times for a cached row", analyzer.calls)
	}
	if store.updates != 0 {
		t.Error("cached path should not rewrite the row")
	}
}

func TestAnalyze_ForceBypassesCache(t *testing.T) {
	cached := "stale"
	store := &fakeAnalyzeStore{ad: storedAd(&cached, "https://cdn.example/a.jpg")}
	analyzer := &fakeAnalyzer{text: "fresh", backend: "vertex"}

	svc := NewAnalyzeService(store, analyzer, quietLogger())
	res, err := svc.Analyze(context.Background(), store.ad.ID, true)
	if err != nil {
		t.Fatalf("Analyze returned error: %v", err)
	}
	if res.Cached {
		t.Error("forced reanalysis must not report cached")
	}
	if analyzer.calls != 1 {
		t.Errorf("backend calls = %d, want 1", analyzer.calls)
	}
	if res.Analysis != "fresh" || res.Backend != "vertex" {
		t.Errorf("unexpected result %+v", res)
	}
	if store.lastText != "fresh" {
		t.Errorf("persisted text = %q, want fresh", store.lastText)
	}
}

func TestAnalyze_MissingMediaURL(t *testing.T) {
	store := &fakeAnalyzeStore{ad: storedAd(nil, "")}
	analyzer := &fakeAnalyzer{text: "x"}

	svc := NewAnalyzeService(store, analyzer, quietLogger())
	_, err := svc.Analyze(context.Background(), store.ad.ID, false)
	if !errors.Is(err, ErrNoMediaURL) {
		t.Fatalf("expected ErrNoMediaURL, got %v", err)
	}
	if analyzer.calls != 0 {
		t.Error("backend must not be called for a medialess row")
	}
}

func TestAnalyze_UnknownRowPassesThrough(t *testing.T) {
	store := &fakeAnalyzeStore{getErr: sql.ErrNoRows}
	svc := NewAnalyzeService(store, &fakeAnalyzer{}, quietLogger())

	_, err := svc.Analyze(context.Background(), uuid.New(), false)
	if !errors.Is(err, sql.ErrNoRows) {
		t.Fatalf("expected sql.ErrNoRows passthrough, got %v", err)
	}
}

func TestAnalyze_PersistFailureStillReturnsText(t *testing.T) {
	store := &fakeAnalyzeStore{
		ad:        storedAd(nil, "https://cdn.example/a.jpg"),
		updateErr: errors.New("db offline"),
	}
	analyzer := &fakeAnalyzer{text: "computed", backend: "claude"}

	svc := NewAnalyzeService(store, analyzer, quietLogger())
	res, err := svc.Analyze(context.Background(), store.ad.ID, false)
	if err != nil {
		t.Fatalf("persist failure should not fail the call: %v", err)
	}
	if res.Analysis != "computed" {
		t.Errorf("Analysis = %q, want computed", res.Analysis)
	}
	if res.Saved {
		t.Error("Saved should be false when the write fails")
	}
}
