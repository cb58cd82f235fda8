package http

import (
	"github.com/gofiber/fiber/v2"

	"adtrend/internal/config"
)

// checkKeyHandler reports which provider credentials are configured.
// Presence and length only, never the values themselves.
func checkKeyHandler(c *fiber.Ctx) error {
	cfg := c.Locals("config").(*config.Config)
	return c.JSON(fiber.Map{
		"credentials": config.Diagnostics(cfg),
	})
}
