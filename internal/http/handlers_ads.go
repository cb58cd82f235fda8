package http

import (
	"database/sql"
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"adtrend/internal/services"
	"adtrend/internal/store"
)

// listAdsHandler returns stored creatives, newest first, optionally
// filtered by page id.
func listAdsHandler(c *fiber.Ctx) error {
	pageID := c.Query("page_id")
	limit := queryInt(c, "limit", 50)
	offset := queryInt(c, "offset", 0)

	st := c.Locals("store").(*store.Store)
	ads, err := st.ListAdCreatives(c.Context(), pageID, limit, offset)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
			Error:   "Failed to list ad creatives",
			Details: err.Error(),
		})
	}

	return c.JSON(ListAdsResponse{
		Success: true,
		Ads:     ads,
		Count:   len(ads),
	})
}

// analyzeAdHandler runs (or returns the cached) media analysis for one
// stored creative.
func analyzeAdHandler(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error: "Invalid ad creative id",
		})
	}

	var body AnalyzeBody
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&body); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
				Error: "Bad request, malformed JSON",
			})
		}
	}

	svcs := c.Locals("services").(Services)
	res, err := svcs.Analyze.Analyze(c.Context(), id, body.ForceReanalyze)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{
				Error: "Ad creative not found",
			})
		case errors.Is(err, services.ErrNoMediaURL):
			return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
				Error: services.ErrNoMediaURL.Error(),
			})
		default:
			return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
				Error:   "Analysis failed",
				Details: err.Error(),
			})
		}
	}

	return c.JSON(res)
}

func queryInt(c *fiber.Ctx, name string, def int) int {
	raw := c.Query(name)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return def
	}
	return n
}
