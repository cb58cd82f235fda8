package apify

import "fmt"

// MockAds returns a small canned dataset in the actor's shape. It
// backs the useMock request flag so the ingest path can be exercised
// end to end without spending actor credits.
func MockAds(pageID string) []RawAd {
	card := func(n int, video bool) Card {
		c := Card{
			Title:   fmt.Sprintf("Sample creative %d", n),
			Body:    fmt.Sprintf("Limited offer %d: order now and save.", n),
			CTAText: "Shop Now",
			LinkURL: "https://example.com/offer",
		}
		if video {
			c.VideoHDURL = fmt.Sprintf("https://example.com/media/ad-%d-hd.mp4", n)
			c.VideoSDURL = fmt.Sprintf("https://example.com/media/ad-%d-sd.mp4", n)
		} else {
			c.OriginalImageURL = fmt.Sprintf("https://example.com/media/ad-%d.jpg", n)
		}
		return c
	}

	return []RawAd{
		{
			AdArchiveID: fmt.Sprintf("mock-%s-1", pageID),
			PageID:      pageID,
			PageName:    "Competitor Brand",
			IsActive:    true,
			Snapshot: Snapshot{
				PageName: "Competitor Brand",
				Body:     Body{Text: "New product launch with 50% off."},
				Cards:    []Card{card(1, false), card(2, false)},
			},
		},
		{
			AdArchiveID: fmt.Sprintf("mock-%s-2", pageID),
			PageID:      pageID,
			PageName:    "Competitor Brand",
			IsActive:    true,
			Snapshot: Snapshot{
				PageName: "Competitor Brand",
				Body:     Body{Text: "Watch how the product works."},
				Cards:    []Card{card(3, true)},
			},
		},
		{
			AdArchiveID: fmt.Sprintf("mock-%s-3", pageID),
			PageID:      pageID,
			PageName:    "Competitor Brand",
			IsActive:    true,
			Snapshot: Snapshot{
				PageName: "Competitor Brand",
				Body:     Body{Text: "Customer testimonials."},
				Cards:    []Card{card(4, false)},
			},
		},
	}
}
