package http

import "adtrend/internal/model"

// IngestBody is the scrape-trigger request shape.
type IngestBody struct {
	PageID  string `json:"pageId"`
	Country string `json:"country,omitempty"`
	Count   int    `json:"count,omitempty"`
	UseMock bool   `json:"useMock,omitempty"`
}

// AnalyzeBody carries the optional cache-bypass flag.
type AnalyzeBody struct {
	ForceReanalyze bool `json:"forceReanalyze,omitempty"`
}

// WizardBody selects the wizard mode by which fields are present.
type WizardBody struct {
	PageID   string `json:"pageId,omitempty"`
	UserIdea string `json:"userIdea,omitempty"`
}

// VideoAnalyzeBody is the input of the single-provider analysis proxies.
type VideoAnalyzeBody struct {
	MediaURL string `json:"mediaUrl"`
	Title    string `json:"title,omitempty"`
}

// ListAdsResponse wraps the stored-creatives listing.
type ListAdsResponse struct {
	Success bool             `json:"success"`
	Ads     []model.StoredAd `json:"ads"`
	Count   int              `json:"count"`
}

// VideoAnalyzeResponse is the output of the single-provider proxies.
type VideoAnalyzeResponse struct {
	Analysis string `json:"analysis"`
	Backend  string `json:"backend"`
}

// ErrorResponse is the error envelope for every failing route.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
