package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"adtrend/internal/metrics"
	"adtrend/internal/model"
)

// ErrNoMediaURL is returned when an analysis is requested for a row
// without a usable media URL. Handlers map it to a 400.
var ErrNoMediaURL = errors.New("ad creative has no valid media URL")

// Analyzer produces analysis text for one piece of media. Implemented
// by vision.Dispatcher.
type Analyzer interface {
	Analyze(ctx context.Context, mediaURL string, kind model.MediaType, title string) (string, string, error)
}

// AnalyzeStore is the persistence surface the analysis flow needs.
type AnalyzeStore interface {
	GetAdCreative(ctx context.Context, id uuid.UUID) (model.StoredAd, error)
	UpdateAdCreativeAnalysis(ctx context.Context, id uuid.UUID, analysis string, at time.Time) error
}

// AnalyzeResult carries the analysis text plus how it was obtained.
type AnalyzeResult struct {
	Analysis string `json:"analysis"`
	Cached   bool   `json:"cached"`
	Backend  string `json:"backend,omitempty"`
	Saved    bool   `json:"saved"`
}

// AnalyzeService runs the media-analysis flow for one stored creative.
type AnalyzeService struct {
	store    AnalyzeStore
	analyzer Analyzer
	logger   *slog.Logger
}

func NewAnalyzeService(st AnalyzeStore, analyzer Analyzer, logger *slog.Logger) *AnalyzeService {
	return &AnalyzeService{store: st, analyzer: analyzer, logger: logger}
}

// Analyze returns cached analysis when present unless force is set;
// otherwise it dispatches to a vision backend and persists the result.
// A persistence failure after a successful analysis is logged but does
// not fail the call: the caller still gets the freshly computed text.
func (s *AnalyzeService) Analyze(ctx context.Context, id uuid.UUID, force bool) (*AnalyzeResult, error) {
	ad, err := s.store.GetAdCreative(ctx, id)
	if err != nil {
		return nil, err
	}

	if ad.HasAnalysis() && !force {
		return &AnalyzeResult{Analysis: *ad.Analysis, Cached: true, Saved: true}, nil
	}

	if ad.MediaURL == "" {
		return nil, ErrNoMediaURL
	}

	text, backend, err := s.analyzer.Analyze(ctx, ad.MediaURL, ad.MediaType, ad.Title)
	if err != nil {
		metrics.RecordAnalysis(backend, string(ad.MediaType), false)
		return nil, fmt.Errorf("analyze media: %w", err)
	}
	metrics.RecordAnalysis(backend, string(ad.MediaType), true)

	result := &AnalyzeResult{Analysis: text, Backend: backend, Saved: true}
	if err := s.store.UpdateAdCreativeAnalysis(ctx, id, text, time.Now().UTC()); err != nil {
		// Best-effort persistence: the analysis was already computed, so
		// return it to the caller and only log the failed write.
		s.logger.Warn("failed to persist analysis", "ad_id", id, "error", err)
		result.Saved = false
	}

	return result, nil
}
