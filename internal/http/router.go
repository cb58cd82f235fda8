package http

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"adtrend/internal/config"
	"adtrend/internal/metrics"
	"adtrend/internal/services"
	"adtrend/internal/store"
)

// Services bundles the orchestrators the handlers dispatch to.
type Services struct {
	Ingest  *services.IngestService
	Analyze *services.AnalyzeService
	Wizard  *services.WizardService
}

type Server struct {
	app    *fiber.App
	config *config.Config
	store  *store.Store
	logger *slog.Logger
}

// proxyTargets holds upstream URLs for the pass-through routes.
// Overridable in tests.
type proxyTargets struct {
	AnthropicMessages string
}

func defaultProxyTargets() proxyTargets {
	return proxyTargets{
		AnthropicMessages: "https://api.anthropic.com/v1/messages",
	}
}

func NewServer(cfg *config.Config, st *store.Store, svcs Services, logger *slog.Logger) *Server {
	return newServer(cfg, st, svcs, logger, defaultProxyTargets())
}

func newServer(cfg *config.Config, st *store.Store, svcs Services, logger *slog.Logger, targets proxyTargets) *Server {
	app := fiber.New(fiber.Config{
		BodyLimit: 32 * 1024 * 1024,
	})

	// Inject config, store, and services into context for handlers
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("config", cfg)
		c.Locals("store", st)
		c.Locals("services", svcs)
		c.Locals("proxy", targets)
		return c.Next()
	})

	// Request logging + metrics middleware
	app.Use(func(c *fiber.Ctx) error {
		start := time.Now()

		// Ensure a request ID exists
		reqID := c.Get("X-Request-Id")
		if reqID == "" {
			reqID = uuid.New().String()
		}
		c.Locals("request_id", reqID)
		if logger != nil {
			c.Locals("logger", logger)
		}

		err := c.Next()

		latency := time.Since(start)
		status := c.Response().StatusCode()
		method := c.Method()
		path := c.Path()

		metrics.RecordRequest(method, path, status, latency.Milliseconds())

		if logger != nil {
			logger.Info("request",
				"request_id", reqID,
				"method", method,
				"path", path,
				"status", status,
				"latency_ms", latency.Milliseconds(),
			)
		}

		return err
	})

	// Redis client for rate limiting and health checks
	var rdb *redis.Client
	if cfg.Redis.URL != "" {
		if opt, err := redis.ParseURL(cfg.Redis.URL); err == nil {
			rdb = redis.NewClient(opt)
		}
	}

	// Health endpoint
	app.Get("/health", func(c *fiber.Ctx) error {
		// Shallow health: process is up
		if c.Query("deep") != "true" {
			return c.JSON(fiber.Map{"status": "ok"})
		}

		// Deep health: check DB and Redis connectivity.
		ctx, cancel := context.WithTimeout(c.Context(), 2*time.Second)
		defer cancel()

		dbStatus := "ok"
		if err := st.DB.PingContext(ctx); err != nil {
			dbStatus = "error"
		}

		redisStatus := "disabled"
		if rdb != nil {
			if err := rdb.Ping(ctx).Err(); err != nil {
				redisStatus = "error"
			} else {
				redisStatus = "ok"
			}
		}

		status := "ok"
		if dbStatus != "ok" || redisStatus == "error" {
			status = "error"
		}

		return c.JSON(fiber.Map{
			"status": status,
			"db":     dbStatus,
			"redis":  redisStatus,
		})
	})

	// Prometheus-style metrics endpoint
	app.Get("/metrics", func(c *fiber.Ctx) error {
		c.Type("text/plain")
		return c.SendString(metrics.Export())
	})

	authMw := authMiddleware(cfg)
	var rateMw fiber.Handler
	if rdb != nil {
		rateMw = rateLimitMiddleware(cfg, rdb)
	} else {
		rateMw = func(c *fiber.Ctx) error { return c.Next() }
	}

	api := app.Group("/api", authMw, rateMw)
	registerAPIRoutes(api)

	return &Server{
		app:    app,
		config: cfg,
		store:  st,
		logger: logger,
	}
}

func (s *Server) Listen() error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
	return s.app.Listen(addr)
}

func registerAPIRoutes(group fiber.Router) {
	group.Get("/check-key", checkKeyHandler)

	group.Post("/apify/facebook-ads", ingestAdsHandler)
	group.Get("/facebook-ads", listAdsHandler)
	group.Post("/facebook-ads/:id/analyze", analyzeAdHandler)

	group.Post("/prompt-wizard/generate", wizardHandler)

	group.Post("/claude", claudeProxyHandler)
	group.Post("/gemini/analyze-video", geminiVideoHandler)
	group.Post("/vertex/analyze-video", vertexVideoHandler)
}
