package http

import (
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"

	"adtrend/internal/config"
)

// authMiddleware validates the Authorization: Bearer <key> header against
// the static key list in the config and attaches the accepted key to the
// context as "apiKey".
func authMiddleware(cfg *config.Config) fiber.Handler {
	allowed := make(map[string]struct{}, len(cfg.Auth.APIKeys))
	for _, k := range cfg.Auth.APIKeys {
		if k != "" {
			allowed[k] = struct{}{}
		}
	}

	return func(c *fiber.Ctx) error {
		if !cfg.Auth.Enabled {
			return c.Next()
		}

		rawAuth := c.Get("Authorization")
		if rawAuth == "" || !strings.HasPrefix(rawAuth, "Bearer ") {
			return c.Status(fiber.StatusUnauthorized).JSON(ErrorResponse{
				Error: "Missing Authorization Bearer token",
			})
		}

		token := strings.TrimSpace(strings.TrimPrefix(rawAuth, "Bearer "))
		if _, ok := allowed[token]; !ok {
			return c.Status(fiber.StatusUnauthorized).JSON(ErrorResponse{
				Error: "Invalid API key",
			})
		}

		c.Locals("apiKey", token)
		return c.Next()
	}
}

// rateLimitMiddleware enforces a per-minute fixed-window rate limit per
// caller using Redis. The window key is the API key when auth is on,
// the client IP otherwise.
func rateLimitMiddleware(cfg *config.Config, rdb *redis.Client) fiber.Handler {
	return func(c *fiber.Ctx) error {
		limit := cfg.RateLimit.DefaultPerMinute
		if limit <= 0 {
			return c.Next()
		}

		caller := c.IP()
		if val := c.Locals("apiKey"); val != nil {
			if key, ok := val.(string); ok && key != "" {
				caller = key
			}
		}

		now := time.Now().UTC()
		window := now.Format("200601021504") // YYYYMMDDHHMM minute window
		key := fmt.Sprintf("adtrend:rl:%s:%s", caller, window)

		ctx := c.Context()
		count, err := rdb.Incr(ctx, key).Result()
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
				Error:   "rate limit check failed",
				Details: err.Error(),
			})
		}
		if count == 1 {
			// First hit in this window; set TTL
			_ = rdb.Expire(ctx, key, time.Minute)
		}

		if count > int64(limit) {
			return c.Status(fiber.StatusTooManyRequests).JSON(ErrorResponse{
				Error: "Rate limit exceeded, try again later",
			})
		}

		return c.Next()
	}
}
