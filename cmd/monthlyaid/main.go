package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"monthlyaid/internal/amqp"
	"monthlyaid/internal/auth"
	"monthlyaid/internal/config"
	apphttp "monthlyaid/internal/http"
	"monthlyaid/internal/ledger"
	"monthlyaid/internal/memory"
	"monthlyaid/internal/payment"
	"monthlyaid/internal/services"
	"monthlyaid/internal/storage"
	"monthlyaid/internal/summarize"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	// Setup structured logging
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	// Choose data backend (default: memory).
	var store ledger.Store
	switch cfg.DataBackend {
	case "sqlite":
		repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
		if err != nil {
			logger.Error("Failed to initialize SQLite repository", "error", err, "path", cfg.SQLiteDBPath)
			os.Exit(1)
		}
		defer repo.Close()
		store = repo
		logger.Info("Initialized sqlite backend", "path", cfg.SQLiteDBPath)
	default:
		store = memory.NewSeeded()
		logger.Info("Initialized memory backend")
	}

	// AMQP is optional; without it the sweep worker still exports rows.
	var amqpClient *amqp.Client
	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("AMQP unavailable, continuing without export queue", "error", err)
		} else {
			amqpClient = client
			defer amqpClient.Close()
		}
	}

	var summarizer services.Summarizer
	if cfg.SummarizerURL != "" {
		summarizer = summarize.NewClient(cfg.SummarizerURL)
		logger.Info("Summarizer configured", "url", cfg.SummarizerURL)
	}

	var paymentClient *payment.Client
	if client, err := payment.NewFromEnv(); err == nil {
		paymentClient = client
		logger.Info("Payment client configured")
	} else {
		logger.Info("Payments disabled", "reason", err)
	}

	tokens := auth.NewTokenIssuer(cfg.JWTSecret, cfg.TokenTTL)
	donationSvc := services.NewDonationService(store, amqpClient)
	beneficiarySvc := services.NewBeneficiaryService(store, summarizer)

	srv := apphttp.NewServer(":"+cfg.Port, store, donationSvc, beneficiarySvc, paymentClient, tokens)

	// Configure server timeouts and limits
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 10 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	// Graceful shutdown handling
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		cancel()
	}()

	logger.Info("Starting monthlyaid server", "port", cfg.Port, "backend", cfg.DataBackend)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	<-ctx.Done()
	logger.Info("Server stopped gracefully")
}
