// Command api is the Quizify notification and quiz API server.
//
// Usage:
//
//	quizify-api
//	API_PORT=8080 quizify-api

// @title Quizify API
// @version 1.0.0
// @description Spaced-repetition quiz API: question selection, attempt recording, stats, and notification settings. Push delivery runs on a background scheduler.
// @host localhost:8000
// @BasePath /api/v1
// @schemes http https
// @contact.name Quizify
// @license.name MIT
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"

	"github.com/quizify/quizify-server/internal/api"
	"github.com/quizify/quizify-server/internal/cache"
	"github.com/quizify/quizify-server/internal/config"
	"github.com/quizify/quizify-server/internal/db"
	"github.com/quizify/quizify-server/internal/push"
	"github.com/quizify/quizify-server/internal/scheduler"
	"github.com/quizify/quizify-server/internal/store"

	_ "github.com/quizify/quizify-server/docs" // swagger docs
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	// Load .env if present
	_ = godotenv.Load(".env")

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Context with signal handling
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	// Connect to database
	logger.Info("Connecting to database...")
	pool, err := db.New(ctx, cfg)
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()
	logger.Info("Database connected",
		"min_conns", cfg.DBPoolMinConns,
		"max_conns", cfg.DBPoolMaxConns)

	st := store.New(pool.Pool)

	// Initialize cache
	appCache := cache.New(cfg.CacheEnabled)
	logger.Info("Cache initialized", "enabled", cfg.CacheEnabled)

	// Start the notification scheduler
	if cfg.SchedulerEnabled {
		sender := push.NewExpoSender(cfg.ExpoPushURL, logger)
		sched := scheduler.New(st, sender, cfg.SchedulerTick, logger)
		go sched.Run(ctx)
		logger.Info("Notification scheduler started", "tick", cfg.SchedulerTick)
	} else {
		logger.Info("Notification scheduler disabled (SCHEDULER_ENABLED=false)")
	}

	// Create router
	router := api.NewRouter(pool, st, appCache, cfg)

	// Create HTTP server
	addr := fmt.Sprintf("%s:%d", cfg.APIHost, cfg.APIPort)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in background
	go func() {
		logger.Info("Starting Quizify API",
			"addr", addr,
			"environment", cfg.Environment,
			"docs", fmt.Sprintf("http://localhost:%d/docs/", cfg.APIPort))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt
	<-ctx.Done()
	logger.Info("Shutting down...")

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Shutdown error", "error", err)
	}
	logger.Info("Server stopped")
}
