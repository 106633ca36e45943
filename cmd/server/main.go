/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the content access ledger server. Handles
  configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load configuration from environment (.env honored locally)
  2. Initialize SQLite store
  3. Wire catalog, code registry, balance ledger and access manager
  4. Configure HTTP router
  5. Start server with graceful shutdown

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Close database connection
  4. Exit

CONFIGURATION:
  All via CONTENT_* environment variables; see config/config.go.

EXAMPLES:
  # Run with file database
  CONTENT_DB_PATH="./data/content.db" ./server

  # Run ephemeral
  CONTENT_DB_PATH=":memory:" ./server

SEE ALSO:
  - config/config.go: Settings
  - api/server.go: Router configuration
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/warp/content-ledger/api"
	"github.com/warp/content-ledger/config"
	"github.com/warp/content-ledger/ledger"
	"github.com/warp/content-ledger/store/sqlite"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	log := zerolog.New(os.Stdout).Level(level).With().Timestamp().Logger()

	// Initialize store
	store, err := sqlite.New(cfg.DBPath)
	if err != nil {
		log.Fatal().Err(err).Str("db_path", cfg.DBPath).Msg("failed to initialize database")
	}
	defer store.Close()

	// Wire components; all share the same store.
	catalog := ledger.NewCatalog(store, cfg.LinkBase)
	registry := ledger.NewRegistry(store, ledger.RegistryConfig{
		DefaultMaxUses:  cfg.CodeDefaultMaxUses,
		DeleteExhausted: cfg.CodeDeleteExhausted,
	})
	balances := ledger.NewBalanceLedger(store)
	access := ledger.NewAccessManager(store, catalog, balances, registry, ledger.ManagerConfig{
		RefundDuplicateUse: cfg.CodeRefundDuplicate,
	})

	handler := api.NewHandler(catalog, registry, balances, access)
	router := api.NewRouter(handler, log)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info().Int("port", cfg.Port).Msg("server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}
