package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"webstar/fundraise-enrichment-worker/internal/api"
	"webstar/fundraise-enrichment-worker/internal/api/controllers"
	"webstar/fundraise-enrichment-worker/internal/config"
	"webstar/fundraise-enrichment-worker/internal/handlers"
	"webstar/fundraise-enrichment-worker/internal/logging"
	"webstar/fundraise-enrichment-worker/internal/services"
	"webstar/fundraise-enrichment-worker/internal/storage/badger"

	_ "webstar/fundraise-enrichment-worker/docs" // Swagger generated docs
)

// @title Fundraise Enrichment Worker API
// @version 1.0
// @description Enriches funding-round records with press-release URLs, the amount raised and investor contacts.

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8080
// @BasePath /

// @schemes http https
func main() {
	// Load configuration from environment variables
	cfg := config.Load()
	logging.Setup(cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Records live in Supabase when configured, otherwise in the local store
	var store services.RecordStore
	var supabaseHandler *handlers.SupabaseHandler
	if cfg.SupabaseURL != "" && cfg.SupabaseKey != "" {
		var err error
		supabaseHandler, err = handlers.NewSupabaseHandler(cfg.SupabaseURL, cfg.SupabaseKey)
		if err != nil {
			log.Warn().Err(err).Msg("failed to initialize SupabaseHandler - falling back to local store")
		} else {
			store = supabaseHandler
			log.Info().Msg("SupabaseHandler initialized - records stored in Supabase")
		}
	} else {
		log.Info().Msg("SUPABASE_URL or SUPABASE_SECRET_KEY not set - records stored locally")
	}

	if store == nil {
		db, err := badger.NewBadgerDB(cfg.LocalStorePath)
		if err != nil {
			log.Fatal().Err(err).Str("path", cfg.LocalStorePath).Msg("failed to open local record store")
		}
		defer db.Close()
		store = badger.NewRecordStorage(db)
		log.Info().Str("path", cfg.LocalStorePath).Msg("local record store opened")
	}

	// Usage tracking requires Supabase
	var usageTracker *handlers.UsageTrackerHandler
	if supabaseHandler != nil {
		usageTracker = handlers.NewUsageTrackerHandler(supabaseHandler)
		log.Info().Msg("UsageTrackerHandler initialized - usage tracking enabled")
	} else {
		log.Info().Msg("UsageTrackerHandler not initialized - usage tracking disabled (requires Supabase)")
	}

	pipeline := services.NewPipeline(ctx, cfg, store, usageTracker)

	routes := api.Controllers{
		Records: controllers.NewRecordsController(store, pipeline.Processor),
	}
	if pipeline.Search != nil {
		routes.Search = controllers.NewSearchController(pipeline.Search)
	}
	if cfg.WebhookSecret != "" {
		routes.Webhook = controllers.NewWebhookController(cfg.WebhookSecret, pipeline.Processor)
		routes.Batch = controllers.NewBatchController(cfg.WebhookSecret, pipeline.Batch)
		log.Info().Msg("webhook and batch endpoints enabled")
	} else {
		log.Info().Msg("WEBHOOK_SECRET not set - webhook and batch endpoints disabled")
	}

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           api.NewRouter(routes),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.Port).Msg("server starting")
		log.Info().Msgf("Swagger UI available at http://localhost:%s/swagger/index.html", cfg.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
}
