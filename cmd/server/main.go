/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the budget ledger server.
  Handles configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load configuration (.env, config file, BUDGET_* env, flags)
  2. Build the slog logger
  3. Initialize SQLite store (runs migrations)
  4. Create ledger and auth services
  5. Configure HTTP router
  6. Run server and repair scheduler until a signal arrives

COMMAND-LINE FLAGS:
  -port    HTTP server port, overrides server.port
  -db      SQLite database path, overrides database.path
           Use ":memory:" for in-memory database

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Stop the repair scheduler
  4. Close database connection

EXAMPLES:
  BUDGET_AUTH_JWT_SECRET=dev ./server -db="./data/budget.db"
  BUDGET_AUTH_JWT_SECRET=dev ./server -db=":memory:" -port=3000

SEE ALSO:
  - config/config.go: Configuration keys
  - api/server.go: Router configuration
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/homebudget/budget-engine/api"
	"github.com/homebudget/budget-engine/auth"
	"github.com/homebudget/budget-engine/config"
	"github.com/homebudget/budget-engine/ledger"
	"github.com/homebudget/budget-engine/store/sqlite"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	// Flags
	port := flag.Int("port", cfg.Server.Port, "HTTP server port")
	dbPath := flag.String("db", cfg.Database.Path, "SQLite database path")
	flag.Parse()
	cfg.Server.Port = *port
	cfg.Database.Path = *dbPath

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger := cfg.Log.NewLogger()
	slog.SetDefault(logger)

	// Initialize store
	if cfg.Database.Path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
			return fmt.Errorf("create data dir: %w", err)
		}
	}
	store, err := sqlite.New(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("initialize database: %w", err)
	}
	defer store.Close()

	// Services
	tokens := auth.NewIssuer(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	users := auth.NewService(store, tokens, cfg.Auth.DefaultCountryCode, logger)
	svc := ledger.NewService(store, logger)

	handler := api.NewHandler(svc, users, logger)
	handler.Ping = store.Ping
	router := api.NewRouter(handler, api.RouterOptions{
		Tokens:      tokens,
		CORSOrigins: cfg.Server.CORSOrigins,
	})

	scheduler := api.NewRepairScheduler(svc, logger)
	scheduler.Enabled = cfg.Repair.Enabled
	scheduler.CheckInterval = cfg.Repair.Interval
	scheduler.BatchSize = cfg.Repair.BatchSize

	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("server starting", "addr", server.Addr, "db", cfg.Database.Path)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		scheduler.Start()
		<-gctx.Done()
		scheduler.Stop()
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server forced to shutdown: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("server stopped")
	return nil
}
