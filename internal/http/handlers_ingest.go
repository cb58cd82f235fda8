package http

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"adtrend/internal/services"
)

// ingestAdsHandler triggers one scrape-dedup-store pass for a page.
func ingestAdsHandler(c *fiber.Ctx) error {
	var body IngestBody
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error: "Bad request, malformed JSON",
		})
	}

	body.PageID = strings.TrimSpace(body.PageID)
	if body.PageID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error: "Missing required field 'pageId'",
		})
	}

	svcs := c.Locals("services").(Services)
	res, err := svcs.Ingest.Ingest(c.Context(), services.IngestRequest{
		PageID:  body.PageID,
		Country: body.Country,
		Count:   body.Count,
		UseMock: body.UseMock,
	})
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
			Error:   "Scrape failed",
			Details: err.Error(),
		})
	}

	return c.JSON(res)
}
