package http

import (
	"bytes"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"adtrend/internal/config"
	"adtrend/internal/model"
	"adtrend/internal/vision"
)

var proxyHTTPClient = &http.Client{Timeout: 120 * time.Second}

// claudeProxyHandler forwards the request body to the Anthropic messages
// API with the server-held key. The client never sees the credential.
func claudeProxyHandler(c *fiber.Ctx) error {
	cfg := c.Locals("config").(*config.Config)

	apiKey := cfg.Vision.Claude.APIKey
	if apiKey == "" {
		apiKey = cfg.LLM.Anthropic.APIKey
	}
	if apiKey == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(ErrorResponse{
			Error: "Anthropic API key is not configured on the server",
		})
	}

	targets := c.Locals("proxy").(proxyTargets)

	req, err := http.NewRequestWithContext(c.Context(), http.MethodPost,
		targets.AnthropicMessages, bytes.NewReader(c.Body()))
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
			Error:   "Failed to build upstream request",
			Details: err.Error(),
		})
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", apiKey)
	req.Header.Set("anthropic-version", "2023-06-01")

	resp, err := proxyHTTPClient.Do(req)
	if err != nil {
		return c.Status(fiber.StatusBadGateway).JSON(ErrorResponse{
			Error:   "Upstream request failed",
			Details: err.Error(),
		})
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return c.Status(fiber.StatusBadGateway).JSON(ErrorResponse{
			Error:   "Failed to read upstream response",
			Details: err.Error(),
		})
	}

	c.Status(resp.StatusCode)
	if ct := resp.Header.Get("Content-Type"); ct != "" {
		c.Set("Content-Type", ct)
	}
	return c.Send(body)
}

// geminiVideoHandler analyzes one video URL with the Gemini backend
// only, bypassing the dispatcher's provider priority.
func geminiVideoHandler(c *fiber.Ctx) error {
	cfg := c.Locals("config").(*config.Config)
	if cfg.Vision.Gemini.APIKey == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(ErrorResponse{
			Error: "Gemini API key is not configured on the server",
		})
	}

	backend := vision.NewGeminiBackend(cfg.Vision.Gemini, requestLogger(c))
	return runVideoAnalysis(c, backend)
}

// vertexVideoHandler analyzes one video URL with the Vertex backend only.
func vertexVideoHandler(c *fiber.Ctx) error {
	cfg := c.Locals("config").(*config.Config)
	if cfg.Vision.Vertex.CredentialsFile == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(ErrorResponse{
			Error: "Vertex credentials are not configured on the server",
		})
	}

	backend, err := vision.NewVertexBackend(cfg.Vision.Vertex, requestLogger(c))
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
			Error:   "Failed to initialize Vertex backend",
			Details: err.Error(),
		})
	}
	return runVideoAnalysis(c, backend)
}

func runVideoAnalysis(c *fiber.Ctx, backend vision.Backend) error {
	var body VideoAnalyzeBody
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error: "Bad request, malformed JSON",
		})
	}
	body.MediaURL = strings.TrimSpace(body.MediaURL)
	if body.MediaURL == "" {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error: "Missing required field 'mediaUrl'",
		})
	}

	d := vision.NewDispatcher([]vision.Backend{backend}, vision.NewDownloader(), requestLogger(c))
	text, name, err := d.Analyze(c.Context(), body.MediaURL, model.MediaTypeVideo, body.Title)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
			Error:   "Video analysis failed",
			Details: err.Error(),
		})
	}

	return c.JSON(VideoAnalyzeResponse{Analysis: text, Backend: name})
}

func requestLogger(c *fiber.Ctx) *slog.Logger {
	if val := c.Locals("logger"); val != nil {
		if l, ok := val.(*slog.Logger); ok {
			return l
		}
	}
	return slog.Default()
}
