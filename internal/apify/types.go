package apify

// RawAd is one dataset item as produced by the facebook-ads-scraper
// actor. Only the fields the transform stage consumes are declared;
// the actor emits many more.
type RawAd struct {
	AdArchiveID string   `json:"ad_archive_id"`
	PageID      string   `json:"page_id"`
	PageName    string   `json:"page_name"`
	StartDate   int64    `json:"start_date"`
	IsActive    bool     `json:"is_active"`
	Snapshot    Snapshot `json:"snapshot"`
	// Error is set per item when the actor failed to scrape this ad.
	Error string `json:"error,omitempty"`
}

// Snapshot is the creative payload of one ad. Multi-asset ads carry
// one Card per media unit; single-asset ads may carry card-level
// fields directly on the snapshot with an empty Cards list.
type Snapshot struct {
	Title    string `json:"title"`
	Body     Body   `json:"body"`
	PageName string `json:"page_name"`
	CTAText  string `json:"cta_text"`
	LinkURL  string `json:"link_url"`
	Cards    []Card `json:"cards"`
}

type Body struct {
	Text string `json:"text"`
}

// Card is one media+text unit within an ad.
type Card struct {
	Title            string `json:"title"`
	Body             string `json:"body"`
	CTAText          string `json:"cta_text"`
	LinkURL          string `json:"link_url"`
	VideoHDURL       string `json:"video_hd_url"`
	VideoSDURL       string `json:"video_sd_url"`
	ResizedImageURL  string `json:"resized_image_url"`
	OriginalImageURL string `json:"original_image_url"`
}
