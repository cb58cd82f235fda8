package gcs

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/oauth2"
)

// ErrBucketNotFound is returned by Upload when the destination bucket
// does not exist yet, so callers can create it and retry once.
var ErrBucketNotFound = errors.New("gcs bucket not found")

const (
	defaultAPIBase    = "https://storage.googleapis.com/storage/v1"
	defaultUploadBase = "https://storage.googleapis.com/upload/storage/v1"
)

// Client is a thin object-storage client over the GCS JSON API using
// resumable uploads. It stages media objects for Vertex analysis.
type Client struct {
	ts         oauth2.TokenSource
	project    string
	apiBase    string
	uploadBase string
	http       *http.Client
}

// New builds a Client on a token source obtained from service-account
// credentials.
func New(ts oauth2.TokenSource, project string) *Client {
	return &Client{
		ts:         ts,
		project:    project,
		apiBase:    defaultAPIBase,
		uploadBase: defaultUploadBase,
		http:       &http.Client{Timeout: 120 * time.Second},
	}
}

// NewWithBase is New with overridable endpoints. Used by tests.
func NewWithBase(ts oauth2.TokenSource, project, apiBase, uploadBase string) *Client {
	c := New(ts, project)
	c.apiBase = apiBase
	c.uploadBase = uploadBase
	return c
}

func (c *Client) authorize(req *http.Request) error {
	tok, err := c.ts.Token()
	if err != nil {
		return fmt.Errorf("gcs token: %w", err)
	}
	tok.SetAuthHeader(req)
	return nil
}

// Upload stores data under bucket/object via a resumable upload
// session and returns the gs:// URI. A missing bucket surfaces as
// ErrBucketNotFound.
func (c *Client) Upload(ctx context.Context, bucket, object, contentType string, data []byte) (string, error) {
	initiateURL := fmt.Sprintf("%s/b/%s/o?uploadType=resumable&name=%s",
		c.uploadBase, url.PathEscape(bucket), url.QueryEscape(object))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, initiateURL, nil)
	if err != nil {
		return "", err
	}
	if err := c.authorize(req); err != nil {
		return "", err
	}
	req.Header.Set("X-Upload-Content-Type", contentType)
	req.Header.Set("X-Upload-Content-Length", fmt.Sprint(len(data)))

	resp, err := c.http.Do(req)
	if err != nil {
		return "", err
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return "", fmt.Errorf("%w: %s", ErrBucketNotFound, bucket)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("initiate upload failed with status %d: %s", resp.StatusCode, string(body))
	}

	sessionURL := resp.Header.Get("Location")
	if sessionURL == "" {
		return "", errors.New("initiate upload returned no session url")
	}

	put, err := http.NewRequestWithContext(ctx, http.MethodPut, sessionURL, bytes.NewReader(data))
	if err != nil {
		return "", err
	}
	put.Header.Set("Content-Type", contentType)
	put.ContentLength = int64(len(data))

	putResp, err := c.http.Do(put)
	if err != nil {
		return "", err
	}
	putBody, _ := io.ReadAll(putResp.Body)
	putResp.Body.Close()

	if putResp.StatusCode < 200 || putResp.StatusCode >= 300 {
		return "", fmt.Errorf("upload failed with status %d: %s", putResp.StatusCode, string(putBody))
	}

	return fmt.Sprintf("gs://%s/%s", bucket, object), nil
}

// CreateBucket creates the bucket in the client's project. Called once
// when Upload reports ErrBucketNotFound.
func (c *Client) CreateBucket(ctx context.Context, bucket string) error {
	payload, err := json.Marshal(map[string]string{"name": bucket})
	if err != nil {
		return err
	}

	endpoint := fmt.Sprintf("%s/b?project=%s", c.apiBase, url.QueryEscape(c.project))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	if err := c.authorize(req); err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("create bucket failed with status %d: %s", resp.StatusCode, string(body))
	}
	return nil
}

// Delete removes a staged object. Callers treat failures as
// best-effort and only log them.
func (c *Client) Delete(ctx context.Context, bucket, object string) error {
	endpoint := fmt.Sprintf("%s/b/%s/o/%s", c.apiBase, url.PathEscape(bucket), url.PathEscape(object))
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, endpoint, nil)
	if err != nil {
		return err
	}
	if err := c.authorize(req); err != nil {
		return err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("delete object failed with status %d", resp.StatusCode)
	}
	return nil
}
