package model

import (
	"time"

	"github.com/google/uuid"
)

// MediaType classifies the media attached to a stored creative.
type MediaType string

const (
	MediaTypeImage MediaType = "image"
	MediaTypeVideo MediaType = "video"
)

// ScrapeRequest records one scrape invocation against the ad library.
// Rows are immutable after creation.
type ScrapeRequest struct {
	ID             uuid.UUID `json:"id"`
	PageID         string    `json:"pageId"`
	Country        string    `json:"country"`
	RequestedCount int       `json:"requestedCount"`
	CreatedAt      time.Time `json:"createdAt"`
}

// AdCreative is one stored media card from a scraped ad. A source ad
// with multiple cards is flattened into one AdCreative per card.
type AdCreative struct {
	ID         uuid.UUID  `json:"id"`
	RequestID  uuid.UUID  `json:"requestId"`
	ArchiveID  string     `json:"archiveId"`
	MediaURL   string     `json:"mediaUrl"`
	MediaType  MediaType  `json:"mediaType"`
	Title      string     `json:"title"`
	CTAText    string     `json:"ctaText,omitempty"`
	LinkURL    string     `json:"linkUrl,omitempty"`
	PageName   string     `json:"pageName"`
	CardIndex  int        `json:"cardIndex"`
	Analysis   *string    `json:"analysis,omitempty"`
	AnalyzedAt *time.Time `json:"analyzedAt,omitempty"`
	CreatedAt  time.Time  `json:"createdAt"`
}

// HasAnalysis reports whether analysis text has been attached to the row.
func (a *AdCreative) HasAnalysis() bool {
	return a.Analysis != nil && *a.Analysis != ""
}

// StoredAd is an AdCreative joined with the metadata of the scrape
// request that produced it, as returned by list endpoints.
type StoredAd struct {
	AdCreative
	PageID  string `json:"pageId"`
	Country string `json:"country"`
}
