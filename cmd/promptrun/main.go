// Package main is the entry point for the promptrun server.
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"promptrun/config"
	"promptrun/internal/dispatch"
	"promptrun/internal/logging"
	"promptrun/internal/observability"
	"promptrun/internal/server"
	"promptrun/internal/store"

	// Import provider packages to trigger their init() registration
	_ "promptrun/internal/providers/anthropic"
	_ "promptrun/internal/providers/google"
	_ "promptrun/internal/providers/openai"
)

func main() {
	configPath := flag.String("config", "", "Path to YAML config file (optional)")
	flag.Parse()

	// Load .env before anything reads the environment (optional file).
	_ = godotenv.Load() //nolint:errcheck

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := logging.New(os.Stdout, cfg.Logging.Format, logging.ParseLevel(cfg.Logging.Level))
	slog.SetDefault(logger)

	if len(cfg.Providers) == 0 {
		slog.Error("at least one provider must be configured")
		os.Exit(1)
	}

	providerSet := cfg.ProviderSet()
	slog.Info("providers configured", "providers", providerSet.IDs())

	runs, err := store.New(context.Background(), cfg.Store)
	if err != nil {
		slog.Error("failed to initialize run store", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := runs.Close(); err != nil {
			slog.Error("failed to close run store", "error", err)
		}
	}()
	slog.Info("run store initialized", "type", cfg.Store.Type)

	opts := []dispatch.Option{dispatch.WithLogger(logger)}
	if cfg.Metrics.Enabled {
		metrics := observability.NewMetrics(prometheus.DefaultRegisterer)
		opts = append(opts, dispatch.WithObserver(metrics))
		slog.Info("prometheus metrics enabled", "endpoint", "/metrics")
	}
	dispatcher := dispatch.New(providerSet, opts...)

	if cfg.Server.MasterKey == "" {
		slog.Warn("PROMPTRUN_MASTER_KEY not set, API routes are unauthenticated")
	} else {
		slog.Info("authentication enabled", "mode", "master_key")
	}

	srv := server.New(dispatcher, runs, &server.Config{
		MasterKey:      cfg.Server.MasterKey,
		MetricsEnabled: cfg.Metrics.Enabled,
	})

	// Handle graceful shutdown
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit

		slog.Info("shutting down server...")

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
	}()

	addr := ":" + cfg.Server.Port
	slog.Info("starting server", "address", addr)

	if err := srv.Start(addr); err != nil {
		if errors.Is(err, http.ErrServerClosed) {
			slog.Info("server stopped gracefully")
		} else {
			slog.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}
}
