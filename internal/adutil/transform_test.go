package adutil

import (
	"testing"

	"github.com/google/uuid"

	"adtrend/internal/apify"
	"adtrend/internal/model"
)

func TestTransform_DedupSkipsWholeRecord(t *testing.T) {
	raw := []apify.RawAd{
		{
			AdArchiveID: "known-1",
			Snapshot: apify.Snapshot{Cards: []apify.Card{
				{OriginalImageURL: "https://cdn.example/a.jpg"},
				{OriginalImageURL: "https://cdn.example/b.jpg"},
			}},
		},
		{
			AdArchiveID: "fresh-1",
			Snapshot: apify.Snapshot{Cards: []apify.Card{
				{OriginalImageURL: "https://cdn.example/c.jpg"},
			}},
		},
	}
	known := map[string]struct{}{"known-1": {}}

	rows, stats := Transform(uuid.New(), raw, known)

	if stats.DuplicatesSkipped != 1 {
		t.Fatalf("expected 1 duplicate skipped, got %d", stats.DuplicatesSkipped)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 row (partial duplicates not allowed), got %d", len(rows))
	}
	if rows[0].ArchiveID != "fresh-1" {
		t.Fatalf("expected fresh-1, got %s", rows[0].ArchiveID)
	}
}

func TestTransform_NoDuplicateArchiveCardPairs(t *testing.T) {
	raw := []apify.RawAd{
		{
			AdArchiveID: "ad-1",
			Snapshot: apify.Snapshot{Cards: []apify.Card{
				{OriginalImageURL: "https://cdn.example/a.jpg"},
				{OriginalImageURL: "https://cdn.example/b.jpg"},
			}},
		},
		{
			AdArchiveID: "ad-2",
			Snapshot: apify.Snapshot{Cards: []apify.Card{
				{OriginalImageURL: "https://cdn.example/c.jpg"},
			}},
		},
	}

	rows, _ := Transform(uuid.New(), raw, nil)

	seen := make(map[[2]any]bool)
	for _, r := range rows {
		key := [2]any{r.ArchiveID, r.CardIndex}
		if seen[key] {
			t.Fatalf("duplicate (archive_id, card_index) pair: %v", key)
		}
		seen[key] = true
	}
}

func TestTransform_ZeroCardsDropped(t *testing.T) {
	raw := []apify.RawAd{
		{AdArchiveID: "empty-1", Snapshot: apify.Snapshot{}},
	}

	rows, stats := Transform(uuid.New(), raw, nil)

	if len(rows) != 0 {
		t.Fatalf("expected 0 rows from cardless record, got %d", len(rows))
	}
	if stats.TotalScraped != 1 || stats.Saved != 0 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}

func TestTransform_MediaLessCardsDropped(t *testing.T) {
	raw := []apify.RawAd{
		{
			AdArchiveID: "ad-1",
			Snapshot: apify.Snapshot{Cards: []apify.Card{
				{Title: "text only, no media"},
				{OriginalImageURL: "https://cdn.example/a.jpg"},
			}},
		},
	}

	rows, _ := Transform(uuid.New(), raw, nil)

	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
	if rows[0].CardIndex != 1 {
		t.Fatalf("expected surviving card to keep its source index 1, got %d", rows[0].CardIndex)
	}
}

func TestTransform_MediaTypeDerivation(t *testing.T) {
	cases := []struct {
		name string
		card apify.Card
		url  string
		kind model.MediaType
	}{
		{"video hd wins", apify.Card{VideoHDURL: "hd.mp4", VideoSDURL: "sd.mp4", OriginalImageURL: "a.jpg"}, "hd.mp4", model.MediaTypeVideo},
		{"video sd next", apify.Card{VideoSDURL: "sd.mp4", ResizedImageURL: "r.jpg"}, "sd.mp4", model.MediaTypeVideo},
		{"resized image before original", apify.Card{ResizedImageURL: "r.jpg", OriginalImageURL: "o.jpg"}, "r.jpg", model.MediaTypeImage},
		{"original image last", apify.Card{OriginalImageURL: "o.jpg"}, "o.jpg", model.MediaTypeImage},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			raw := []apify.RawAd{{AdArchiveID: "ad", Snapshot: apify.Snapshot{Cards: []apify.Card{tc.card}}}}
			rows, _ := Transform(uuid.New(), raw, nil)
			if len(rows) != 1 {
				t.Fatalf("expected 1 row, got %d", len(rows))
			}
			if rows[0].MediaURL != tc.url {
				t.Fatalf("expected media url %q, got %q", tc.url, rows[0].MediaURL)
			}
			if rows[0].MediaType != tc.kind {
				t.Fatalf("expected media type %q, got %q", tc.kind, rows[0].MediaType)
			}
		})
	}
}

func TestTransform_DisplayTextFallback(t *testing.T) {
	raw := []apify.RawAd{
		{
			AdArchiveID: "ad-1",
			PageName:    "Brand",
			Snapshot: apify.Snapshot{
				Body:  apify.Body{Text: "snapshot body"},
				Cards: []apify.Card{{OriginalImageURL: "a.jpg"}},
			},
		},
		{
			AdArchiveID: "ad-2",
			Snapshot: apify.Snapshot{
				Cards: []apify.Card{{Title: "card title", Body: "card body", OriginalImageURL: "b.jpg"}},
			},
		},
	}

	rows, _ := Transform(uuid.New(), raw, nil)

	if rows[0].Title != "snapshot body" {
		t.Fatalf("expected fallback to snapshot body, got %q", rows[0].Title)
	}
	if rows[1].Title != "card title" {
		t.Fatalf("expected card title to win, got %q", rows[1].Title)
	}
}

func TestTransform_MixedBatchCounts(t *testing.T) {
	// 3 records: 1 already known, the other 2 having 2 and 1
	// media-bearing cards respectively.
	raw := []apify.RawAd{
		{AdArchiveID: "dup", Snapshot: apify.Snapshot{Cards: []apify.Card{{OriginalImageURL: "x.jpg"}}}},
		{AdArchiveID: "new-a", Snapshot: apify.Snapshot{Cards: []apify.Card{
			{OriginalImageURL: "a1.jpg"},
			{VideoHDURL: "a2.mp4"},
		}}},
		{AdArchiveID: "new-b", Snapshot: apify.Snapshot{Cards: []apify.Card{
			{ResizedImageURL: "b1.jpg"},
		}}},
	}
	known := map[string]struct{}{"dup": {}}

	rows, stats := Transform(uuid.New(), raw, known)

	if stats.TotalScraped != 3 {
		t.Fatalf("expected totalScraped=3, got %d", stats.TotalScraped)
	}
	if stats.DuplicatesSkipped != 1 {
		t.Fatalf("expected duplicatesCount=1, got %d", stats.DuplicatesSkipped)
	}
	if stats.Saved != 3 || len(rows) != 3 {
		t.Fatalf("expected savedCount=3, got %d (%d rows)", stats.Saved, len(rows))
	}
}

func TestCleanText_HTMLBody(t *testing.T) {
	got := CleanText("<p>Big <b>sale</b> today</p>")
	if got != "Big **sale** today" {
		t.Fatalf("unexpected conversion: %q", got)
	}

	if got := CleanText("  plain text  "); got != "plain text" {
		t.Fatalf("expected trimmed plain text, got %q", got)
	}
}
