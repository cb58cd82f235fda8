package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"adtrend/internal/adutil"
	"adtrend/internal/apify"
	"adtrend/internal/metrics"
	"adtrend/internal/model"
)

// AdScraper obtains raw ad records from the scraping provider.
type AdScraper interface {
	ScrapeAds(ctx context.Context, pageID, country string, count int) ([]apify.RawAd, error)
}

// IngestStore is the persistence surface the ingest flow needs.
type IngestStore interface {
	CreateScrapeRequest(ctx context.Context, req model.ScrapeRequest) error
	InsertAdCreatives(ctx context.Context, rows []model.AdCreative) ([]model.AdCreative, int, error)
	ListArchiveIDs(ctx context.Context, pageID string) (map[string]struct{}, error)
}

// IngestRequest describes one scrape invocation.
type IngestRequest struct {
	PageID  string
	Country string
	Count   int
	UseMock bool
}

// IngestResult is the orchestrator's outcome. All-duplicate and
// no-media outcomes are successes with zero counts and an explanatory
// message, not errors.
type IngestResult struct {
	Success           bool               `json:"success"`
	Ads               []model.AdCreative `json:"ads"`
	RequestID         uuid.UUID          `json:"requestId"`
	SavedCount        int                `json:"savedCount"`
	DuplicatesCount   int                `json:"duplicatesCount"`
	TotalScraped      int                `json:"totalScraped"`
	NewAdsForAnalysis []uuid.UUID        `json:"newAdsForAnalysis"`
	Message           string             `json:"message,omitempty"`
	Source            string             `json:"source"`
}

// IngestService drives a scrape to completion: scrape, dedup against
// stored archive ids, flatten cards, persist new rows.
type IngestService struct {
	store   IngestStore
	scraper AdScraper
	logger  *slog.Logger
}

func NewIngestService(st IngestStore, scraper AdScraper, logger *slog.Logger) *IngestService {
	return &IngestService{store: st, scraper: scraper, logger: logger}
}

// Ingest runs one scrape-dedup-store pass for a source page.
func (s *IngestService) Ingest(ctx context.Context, req IngestRequest) (*IngestResult, error) {
	country := req.Country
	if country == "" {
		country = "US"
	}
	count := req.Count
	if count <= 0 {
		count = 10
	}

	var (
		raw    []apify.RawAd
		source string
		err    error
	)
	if req.UseMock {
		raw = apify.MockAds(req.PageID)
		source = "mock"
	} else {
		raw, err = s.scraper.ScrapeAds(ctx, req.PageID, country, count)
		if err != nil {
			return nil, fmt.Errorf("scrape ads: %w", err)
		}
		source = "apify"
	}

	known, err := s.store.ListArchiveIDs(ctx, req.PageID)
	if err != nil {
		return nil, fmt.Errorf("list known archive ids: %w", err)
	}

	requestID := uuid.New()
	rows, stats := adutil.Transform(requestID, raw, known)

	if err := s.store.CreateScrapeRequest(ctx, model.ScrapeRequest{
		ID:             requestID,
		PageID:         req.PageID,
		Country:        country,
		RequestedCount: count,
		CreatedAt:      time.Now().UTC(),
	}); err != nil {
		return nil, fmt.Errorf("create scrape request: %w", err)
	}

	saved, raceSkipped, err := s.store.InsertAdCreatives(ctx, rows)
	if err != nil {
		return nil, fmt.Errorf("insert ad creatives: %w", err)
	}

	duplicates := stats.DuplicatesSkipped + raceSkipped
	metrics.RecordIngest(source, stats.TotalScraped, duplicates, len(saved))

	result := &IngestResult{
		Success:         true,
		Ads:             saved,
		RequestID:       requestID,
		SavedCount:      len(saved),
		DuplicatesCount: duplicates,
		TotalScraped:    stats.TotalScraped,
		Source:          source,
	}
	for _, ad := range saved {
		result.NewAdsForAnalysis = append(result.NewAdsForAnalysis, ad.ID)
	}

	switch {
	case len(saved) > 0:
		result.Message = fmt.Sprintf("Saved %d new creatives (%d duplicates skipped)", len(saved), duplicates)
	case duplicates > 0:
		result.Message = fmt.Sprintf("All %d scraped ads were already stored; nothing new to save", stats.TotalScraped)
	default:
		result.Message = "Scraped ads carried no usable media; nothing to save"
	}

	s.logger.Info("ingest completed",
		"page_id", req.PageID,
		"source", source,
		"total_scraped", stats.TotalScraped,
		"duplicates", duplicates,
		"saved", len(saved))

	return result, nil
}
