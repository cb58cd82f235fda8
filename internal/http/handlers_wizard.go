package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"adtrend/internal/services"
)

// wizardHandler runs trend synthesis and prompt generation. The mode is
// chosen by which of pageId and userIdea are present.
func wizardHandler(c *fiber.Ctx) error {
	var body WizardBody
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&body); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
				Error: "Bad request, malformed JSON",
			})
		}
	}

	svcs := c.Locals("services").(Services)
	res, err := svcs.Wizard.Generate(c.Context(), body.PageID, body.UserIdea)
	if err != nil {
		if errors.Is(err, services.ErrNoAnalyses) {
			return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
				Error:   "No analyzed ads available",
				Details: "Scrape and analyze some creatives first, or pass a userIdea to skip trend extraction",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
			Error:   "Prompt generation failed",
			Details: err.Error(),
		})
	}

	return c.JSON(res)
}
