package apify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"adtrend/internal/config"
)

// ErrNotConfigured is returned before any network call when the Apify
// token is missing from configuration.
var ErrNotConfigured = errors.New("apify token is not configured")

const (
	defaultBaseURL      = "https://api.apify.com/v2"
	defaultActorID      = "apify~facebook-ads-scraper"
	defaultPollInterval = 5 * time.Second
	defaultMaxAttempts  = 30
	defaultMinCount     = 10
)

// runState models the lifecycle of an asynchronous actor run as the
// client observes it: Submitted -> Polling -> Succeeded | Failed | TimedOut.
type runState int

const (
	stateSubmitted runState = iota
	statePolling
	stateSucceeded
	stateFailed
	stateTimedOut
)

// Terminal actor statuses as reported by the platform. Anything else
// (READY, RUNNING) means the run is still in flight.
const (
	statusSucceeded = "SUCCEEDED"
	statusFailed    = "FAILED"
	statusAborted   = "ABORTED"
	statusTimedOut  = "TIMED-OUT"
)

func isTerminalStatus(status string) bool {
	switch status {
	case statusSucceeded, statusFailed, statusAborted, statusTimedOut:
		return true
	}
	return false
}

// Client calls the Apify actor platform to scrape the ad library. It
// hides whether the actor runs synchronously or via start/poll/fetch
// behind ScrapeAds.
type Client struct {
	token        string
	baseURL      string
	actorID      string
	sync         bool
	pollInterval time.Duration
	maxAttempts  int
	minCount     int
	http         *http.Client
}

// NewClient builds a Client from configuration. The returned client
// fails fast from ScrapeAds when no token is configured.
func NewClient(cfg config.ApifyConfig) *Client {
	c := &Client{
		token:        cfg.Token,
		baseURL:      cfg.BaseURL,
		actorID:      cfg.ActorID,
		sync:         cfg.Sync,
		pollInterval: time.Duration(cfg.PollIntervalMs) * time.Millisecond,
		maxAttempts:  cfg.MaxPollAttempts,
		minCount:     cfg.MinCount,
		http:         &http.Client{Timeout: 120 * time.Second},
	}
	if c.baseURL == "" {
		c.baseURL = defaultBaseURL
	}
	if c.actorID == "" {
		c.actorID = defaultActorID
	}
	if c.pollInterval <= 0 {
		c.pollInterval = defaultPollInterval
	}
	if c.maxAttempts <= 0 {
		c.maxAttempts = defaultMaxAttempts
	}
	if c.minCount <= 0 {
		c.minCount = defaultMinCount
	}
	return c
}

// actorInput is the facebook-ads-scraper input document.
type actorInput struct {
	PageIDs   []string `json:"pageIds"`
	Countries []string `json:"countries"`
	AdStatus  string   `json:"adStatus"`
	AdType    string   `json:"adType"`
	MediaType string   `json:"mediaType"`
	Limit     int      `json:"limit"`
	MaxAge    int      `json:"maxAge"`
}

func (c *Client) buildInput(pageID, country string, count int) actorInput {
	if country == "" {
		country = "US"
	}
	if count < c.minCount {
		// The actor rejects very small limits; clamp to its minimum.
		count = c.minCount
	}
	return actorInput{
		PageIDs:   []string{pageID},
		Countries: []string{country},
		AdStatus:  "ACTIVE",
		AdType:    "ALL",
		MediaType: "ALL",
		Limit:     count,
		MaxAge:    30,
	}
}

// ScrapeAds obtains a bounded list of raw ad records for one source
// page. An empty result set is surfaced as an error, never as a
// silent empty success.
func (c *Client) ScrapeAds(ctx context.Context, pageID, country string, count int) ([]RawAd, error) {
	if c.token == "" {
		return nil, ErrNotConfigured
	}

	input := c.buildInput(pageID, country, count)

	var (
		items []RawAd
		err   error
	)
	if c.sync {
		items, err = c.runSync(ctx, input)
	} else {
		items, err = c.runAsync(ctx, input)
	}
	if err != nil {
		return nil, err
	}

	usable := items[:0]
	for _, item := range items {
		if item.Error != "" {
			continue
		}
		usable = append(usable, item)
	}
	if len(usable) == 0 {
		return nil, fmt.Errorf("no ads found for page %s", pageID)
	}
	return usable, nil
}

// runSync invokes the actor's blocking endpoint and decodes the
// dataset items from the response body directly.
func (c *Client) runSync(ctx context.Context, input actorInput) ([]RawAd, error) {
	endpoint := fmt.Sprintf("%s/acts/%s/run-sync-get-dataset-items", c.baseURL, c.actorID)

	body, err := c.doJSON(ctx, http.MethodPost, endpoint, input)
	if err != nil {
		return nil, err
	}

	var items []RawAd
	if err := json.Unmarshal(body, &items); err != nil {
		return nil, fmt.Errorf("decode dataset items: %w", err)
	}
	return items, nil
}

// startRunResponse is the envelope returned when submitting a run.
type startRunResponse struct {
	Data struct {
		ID               string `json:"id"`
		Status           string `json:"status"`
		DefaultDatasetID string `json:"defaultDatasetId"`
	} `json:"data"`
}

type runStatusResponse struct {
	Data struct {
		Status string `json:"status"`
	} `json:"data"`
}

// runAsync drives the start/poll/fetch strategy: submit a run, poll
// its status on a fixed interval up to maxAttempts, then fetch the
// dataset on success. The loop is an explicit state machine so the
// attempt ceiling and terminal transitions stay visible.
func (c *Client) runAsync(ctx context.Context, input actorInput) ([]RawAd, error) {
	endpoint := fmt.Sprintf("%s/acts/%s/runs", c.baseURL, c.actorID)

	body, err := c.doJSON(ctx, http.MethodPost, endpoint, input)
	if err != nil {
		return nil, err
	}

	var started startRunResponse
	if err := json.Unmarshal(body, &started); err != nil {
		return nil, fmt.Errorf("decode run response: %w", err)
	}
	if started.Data.ID == "" {
		return nil, errors.New("actor run response missing run id")
	}

	state := stateSubmitted
	lastStatus := started.Data.Status

	for attempt := 0; attempt < c.maxAttempts; attempt++ {
		state = statePolling

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(c.pollInterval):
		}

		statusURL := fmt.Sprintf("%s/actor-runs/%s", c.baseURL, started.Data.ID)
		body, err := c.doJSON(ctx, http.MethodGet, statusURL, nil)
		if err != nil {
			return nil, err
		}

		var status runStatusResponse
		if err := json.Unmarshal(body, &status); err != nil {
			return nil, fmt.Errorf("decode run status: %w", err)
		}
		lastStatus = status.Data.Status

		if !isTerminalStatus(lastStatus) {
			continue
		}
		if lastStatus == statusSucceeded {
			state = stateSucceeded
			break
		}
		state = stateFailed
		return nil, fmt.Errorf("actor run %s ended with status %s", started.Data.ID, lastStatus)
	}

	if state != stateSucceeded {
		state = stateTimedOut
		return nil, fmt.Errorf("actor run %s did not finish after %d attempts (last status %s)",
			started.Data.ID, c.maxAttempts, lastStatus)
	}

	return c.fetchDataset(ctx, started.Data.DefaultDatasetID)
}

func (c *Client) fetchDataset(ctx context.Context, datasetID string) ([]RawAd, error) {
	if datasetID == "" {
		return nil, errors.New("actor run has no dataset id")
	}

	endpoint := fmt.Sprintf("%s/datasets/%s/items", c.baseURL, datasetID)
	body, err := c.doJSON(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	var items []RawAd
	if err := json.Unmarshal(body, &items); err != nil {
		return nil, fmt.Errorf("decode dataset items: %w", err)
	}
	return items, nil
}

// doJSON performs one authenticated request and returns the response
// body. Non-2xx responses become errors carrying the provider's status
// and body text.
func (c *Client) doJSON(ctx context.Context, method, endpoint string, payload any) ([]byte, error) {
	var reqBody io.Reader
	if payload != nil {
		buf, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		reqBody = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reqBody)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("apify request %s failed with status %d: %s", endpoint, resp.StatusCode, string(body))
	}
	return body, nil
}
