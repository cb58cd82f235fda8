package adutil

import (
	"strings"
	"time"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/google/uuid"

	"adtrend/internal/apify"
	"adtrend/internal/model"
)

// Stats counts the outcome of one transform pass.
type Stats struct {
	TotalScraped      int
	DuplicatesSkipped int
	Saved             int
}

var bodyConverter = md.NewConverter("", true, nil)

// CleanText normalizes ad copy for storage: snapshot bodies sometimes
// arrive as HTML fragments, which are converted to markdown-ish plain
// text; everything else is just trimmed.
func CleanText(text string) string {
	text = strings.TrimSpace(text)
	if !strings.Contains(text, "<") {
		return text
	}
	converted, err := bodyConverter.ConvertString(text)
	if err != nil {
		return text
	}
	return strings.TrimSpace(converted)
}

// mediaURL picks the card's media by fixed priority: video HD, video
// SD, resized image, original image. The media type is video iff a
// video URL matched.
func mediaURL(card apify.Card) (string, model.MediaType) {
	switch {
	case card.VideoHDURL != "":
		return card.VideoHDURL, model.MediaTypeVideo
	case card.VideoSDURL != "":
		return card.VideoSDURL, model.MediaTypeVideo
	case card.ResizedImageURL != "":
		return card.ResizedImageURL, model.MediaTypeImage
	case card.OriginalImageURL != "":
		return card.OriginalImageURL, model.MediaTypeImage
	}
	return "", ""
}

// displayText falls through card and snapshot text fields in a fixed
// priority order so every stored row has a human-readable title.
func displayText(card apify.Card, snap apify.Snapshot) string {
	for _, candidate := range []string{card.Title, card.Body, snap.Title, snap.Body.Text, snap.PageName} {
		if s := CleanText(candidate); s != "" {
			return s
		}
	}
	return ""
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// Transform converts provider-shaped records into storage-ready
// AdCreative rows, enforcing the no-duplicate-archive-id invariant and
// discarding media-less entries.
//
// A record whose archive id is in known is skipped whole, including
// all of its cards: partial duplicates are not allowed. A record with
// zero media-bearing cards contributes nothing.
func Transform(requestID uuid.UUID, raw []apify.RawAd, known map[string]struct{}) ([]model.AdCreative, Stats) {
	stats := Stats{TotalScraped: len(raw)}
	now := time.Now().UTC()

	var rows []model.AdCreative
	for _, ad := range raw {
		if _, dup := known[ad.AdArchiveID]; dup {
			stats.DuplicatesSkipped++
			continue
		}

		cards := ad.Snapshot.Cards
		if len(cards) == 0 {
			// Cardless records carry nothing to show or analyze.
			continue
		}

		pageName := firstNonEmpty(ad.PageName, ad.Snapshot.PageName)

		for idx, card := range cards {
			url, kind := mediaURL(card)
			if url == "" {
				continue
			}

			rows = append(rows, model.AdCreative{
				ID:        uuid.New(),
				RequestID: requestID,
				ArchiveID: ad.AdArchiveID,
				MediaURL:  url,
				MediaType: kind,
				Title:     displayText(card, ad.Snapshot),
				CTAText:   firstNonEmpty(card.CTAText, ad.Snapshot.CTAText),
				LinkURL:   firstNonEmpty(card.LinkURL, ad.Snapshot.LinkURL),
				PageName:  pageName,
				CardIndex: idx,
				CreatedAt: now,
			})
		}
	}

	stats.Saved = len(rows)
	return rows, stats
}
