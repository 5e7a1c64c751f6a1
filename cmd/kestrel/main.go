// Kestrel - Complaint triage that hovers over every upload.
// Copyright (c) 2025 opensource.finance
// Licensed under the Apache License 2.0

package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/opensource-finance/kestrel/internal/api"
	"github.com/opensource-finance/kestrel/internal/bus"
	"github.com/opensource-finance/kestrel/internal/cache"
	"github.com/opensource-finance/kestrel/internal/classifier"
	"github.com/opensource-finance/kestrel/internal/domain"
	"github.com/opensource-finance/kestrel/internal/reference"
	"github.com/opensource-finance/kestrel/internal/session"
)

// Version information (set via ldflags)
var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

func main() {
	// .env is optional; real environments set variables directly.
	_ = godotenv.Load()

	// Initialize structured logger
	logLevel := slog.LevelInfo
	if os.Getenv("KESTREL_DEBUG") == "true" {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	slog.Info("starting kestrel",
		"version", Version,
		"commit", Commit,
		"build_date", BuildDate,
	)

	cfg := domain.LoadConfig()

	slog.Info("configuration loaded",
		"cache", cfg.Cache.Type,
		"eventbus", cfg.EventBus.Type,
		"model", cfg.Classifier.Model,
		"throttle_ms", cfg.Processing.ThrottleMS,
	)

	if cfg.Classifier.APIKey == "" {
		slog.Warn("OPENAI_API_KEY is not set, classification calls will fail")
	}

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		slog.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	// Initialize Cache
	cacheImpl, err := cache.New(cfg.Cache)
	if err != nil {
		slog.Error("failed to initialize cache", "error", err)
		os.Exit(1)
	}
	defer cacheImpl.Close()
	slog.Info("cache initialized", "type", cfg.Cache.Type)

	// Initialize EventBus
	busImpl, err := bus.New(cfg.EventBus)
	if err != nil {
		slog.Error("failed to initialize event bus", "error", err)
		os.Exit(1)
	}
	defer busImpl.Close()
	slog.Info("event bus initialized", "type", cfg.EventBus.Type)

	// Load reference tables (scoring scales plus the risk taxonomy)
	tables, err := reference.Load(cfg.DataDir)
	if err != nil {
		slog.Error("failed to load reference tables", "error", err, "dir", cfg.DataDir)
		os.Exit(1)
	}
	slog.Info("reference tables loaded",
		"dir", cfg.DataDir,
		"categories", len(tables.Categories),
		"subcategories", len(tables.Subcategories),
	)

	// Initialize Classifier
	llm := classifier.NewOpenAIClient(cfg.Classifier)
	clf := classifier.New(llm, tables.Scales)
	slog.Info("classifier initialized", "model", cfg.Classifier.Model)

	// Initialize session store and runner
	store := session.NewStore()
	runner := session.NewRunner(clf, cacheImpl, busImpl,
		time.Duration(cfg.Processing.ThrottleMS)*time.Millisecond)

	// Initialize Server
	srv := api.NewServer(cfg.Server, store, runner, cacheImpl, busImpl, Version)

	// Start Server in goroutine
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	slog.Info("kestrel is ready",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
	)

	printBanner(cfg, Version)

	// Wait for shutdown signal
	<-ctx.Done()
	slog.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
	}

	slog.Info("kestrel shutdown complete")
}

func printBanner(cfg *domain.Config, version string) {
	fmt.Println()
	fmt.Println("  ╔═══════════════════════════════════════════╗")
	fmt.Println("  ║               🪶 KESTREL                  ║")
	fmt.Println("  ║      Complaint Classification Engine      ║")
	fmt.Println("  ║       Every complaint, prioritized.       ║")
	fmt.Println("  ╚═══════════════════════════════════════════╝")
	fmt.Println()
	fmt.Printf("  Version:  %s\n", version)
	fmt.Printf("  Server:   http://%s:%d\n", cfg.Server.Host, cfg.Server.Port)
	fmt.Println()
	fmt.Println("  Endpoints:")
	fmt.Println("    POST   /upload                  - Upload complaints and risk table")
	fmt.Println("    POST   /sessions/{id}/process   - Start classification run")
	fmt.Println("    GET    /sessions/{id}/progress  - Poll run progress")
	fmt.Println("    GET    /sessions/{id}/results   - Fetch classified results")
	fmt.Println("    GET    /sessions/{id}/export    - Download results as CSV")
	fmt.Println("    POST   /sessions/{id}/feedback  - Reprocess with feedback")
	fmt.Println("    DELETE /sessions/{id}           - Delete a session")
	fmt.Println("    GET    /cache/stats             - Cache statistics")
	fmt.Println("    DELETE /cache/clear             - Clear the cache")
	fmt.Println("    GET    /health                  - Health check")
	fmt.Println()
}
