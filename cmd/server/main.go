// Command server runs the analog retrieval and ensemble learning engine.
//
// It wires configuration, logging, the cache database, and the HTTP server,
// then blocks until SIGINT/SIGTERM and shuts down gracefully.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/aristath/precedent/internal/config"
	"github.com/aristath/precedent/internal/database"
	"github.com/aristath/precedent/internal/modules/similarity"
	"github.com/aristath/precedent/internal/server"
	"github.com/aristath/precedent/pkg/logger"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		// Can't use configured logger yet, use a basic one
		fallbackLog := logger.New(logger.Config{Level: "info", Pretty: true})
		fallbackLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Initialize logger with config level
	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.DevMode,
	})
	logger.SetGlobalLogger(log)

	log.Info().Msg("Starting Precedent")

	// Open the cache database. Query results are regenerable, so the cache
	// profile trades durability for speed.
	cacheDB, err := database.New(database.Config{
		Path:    filepath.Join(cfg.DataDir, "cache.db"),
		Profile: database.ProfileCache,
		Name:    "cache",
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open cache database")
	}
	defer cacheDB.Close()

	// Initialize HTTP server with all engine services wired
	srv, err := server.New(server.Config{
		Log:      log,
		CacheDB:  cacheDB,
		Port:     cfg.Port,
		DevMode:  cfg.DevMode,
		CacheTTL: cfg.CacheTTL,
		Similarity: similarity.Config{
			HalfLifeDays:        cfg.HalfLifeDays,
			OutcomeHalfLifeDays: cfg.OutcomeHalfLifeDays,
		},
		EmbeddingURL: cfg.EmbeddingServiceURL,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize server")
	}

	// Scheduled maintenance: evict expired cache rows hourly and checkpoint
	// the WAL nightly so the cache file doesn't grow unbounded.
	scheduler := cron.New()
	if _, err := scheduler.AddFunc("@hourly", func() {
		srv.Cache().EvictExpired()
	}); err != nil {
		log.Fatal().Err(err).Msg("Failed to schedule cache eviction")
	}
	if _, err := scheduler.AddFunc("@daily", func() {
		if err := cacheDB.WALCheckpoint("TRUNCATE"); err != nil {
			log.Warn().Err(err).Msg("Cache database WAL checkpoint failed")
		}
	}); err != nil {
		log.Fatal().Err(err).Msg("Failed to schedule WAL checkpoint")
	}
	scheduler.Start()
	defer scheduler.Stop()

	// Start server in goroutine so main can block on signals. ErrServerClosed
	// is the normal result of a graceful Shutdown, not a startup failure.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	log.Info().Int("port", cfg.Port).Msg("Server started successfully")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	// Give in-flight requests up to 10 seconds to complete
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server stopped")
}
