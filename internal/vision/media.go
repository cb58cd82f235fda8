package vision

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"adtrend/internal/model"
)

// maxMediaBytes caps downloads; ad library media is far smaller than
// this in practice.
const maxMediaBytes = 100 << 20

// Downloader fetches media bytes for analysis.
type Downloader struct {
	http *http.Client
}

func NewDownloader() *Downloader {
	return &Downloader{http: &http.Client{Timeout: 60 * time.Second}}
}

// Download fetches the media at url and fills in its MIME type from
// the response header, falling back to the URL extension and finally
// to a generic default for the media kind.
func (d *Downloader) Download(ctx context.Context, url string, kind model.MediaType) (Media, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Media{}, err
	}

	resp, err := d.http.Do(req)
	if err != nil {
		return Media{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Media{}, fmt.Errorf("media download failed with status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxMediaBytes))
	if err != nil {
		return Media{}, err
	}

	return Media{
		URL:      url,
		Kind:     kind,
		MIMEType: mimeType(resp.Header.Get("Content-Type"), url, kind),
		Bytes:    data,
	}, nil
}

func mimeType(header, url string, kind model.MediaType) string {
	if header != "" && !strings.HasPrefix(header, "application/octet-stream") {
		if i := strings.Index(header, ";"); i >= 0 {
			header = header[:i]
		}
		return strings.TrimSpace(header)
	}

	lower := strings.ToLower(url)
	switch {
	case strings.Contains(lower, ".png"):
		return "image/png"
	case strings.Contains(lower, ".webp"):
		return "image/webp"
	case strings.Contains(lower, ".gif"):
		return "image/gif"
	case strings.Contains(lower, ".jpg"), strings.Contains(lower, ".jpeg"):
		return "image/jpeg"
	case strings.Contains(lower, ".webm"):
		return "video/webm"
	case strings.Contains(lower, ".mov"):
		return "video/quicktime"
	case strings.Contains(lower, ".mp4"):
		return "video/mp4"
	}

	if kind == model.MediaTypeVideo {
		return "video/mp4"
	}
	return "image/jpeg"
}
