package main

import (
	"context"
	"database/sql"
	"flag"
	"log"
	"log/slog"
	"os"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"adtrend/internal/apify"
	"adtrend/internal/config"
	server "adtrend/internal/http"
	"adtrend/internal/llm"
	"adtrend/internal/migrate"
	"adtrend/internal/services"
	"adtrend/internal/store"
	"adtrend/internal/vision"
)

// errGenerator stands in for the wizard's LLM client when no text
// provider is configured, so the server can still boot.
type errGenerator struct{ err error }

func (g errGenerator) Generate(context.Context, llm.GenerateRequest) (string, error) {
	return "", g.err
}

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config file")
	flag.Parse()

	cfg := config.Load(*configPath)

	// Run migrations on a short-lived connection
	if err := migrate.Run(cfg.Database.DSN); err != nil {
		log.Fatalf("migrations failed: %v", err)
	}

	// Create a shared *sql.DB with pooling for the Store
	db, err := sql.Open("pgx", cfg.Database.DSN)
	if err != nil {
		log.Fatalf("open db failed: %v", err)
	}
	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	st := store.New(db)

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{}))

	// One-time boot record of which credentials are configured.
	// Presence and length only.
	for _, cs := range config.Diagnostics(cfg) {
		logger.Info("credential", "name", cs.Name, "present", cs.Present, "length", cs.Length)
	}

	scraper := apify.NewClient(cfg.Apify)

	dispatcher, err := vision.NewDispatcherFromConfig(cfg, logger)
	if err != nil {
		logger.Warn("media analysis disabled", "error", err)
		dispatcher = vision.NewDispatcher(nil, vision.NewDownloader(), logger)
	}

	var gen services.TextGenerator
	client, provider, model, err := llm.NewClientFromConfig(cfg, "", "")
	if err != nil {
		logger.Warn("prompt wizard disabled", "error", err)
		gen = errGenerator{err: err}
	} else {
		logger.Info("llm client ready", "provider", provider, "model", model)
		gen = client
	}

	svcs := server.Services{
		Ingest:  services.NewIngestService(st, scraper, logger),
		Analyze: services.NewAnalyzeService(st, dispatcher, logger),
		Wizard:  services.NewWizardService(st, gen, logger),
	}

	s := server.NewServer(cfg, st, svcs, logger)
	if err := s.Listen(); err != nil {
		log.Fatalf("server failed: %v", err)
	}
}
