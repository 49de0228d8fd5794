// Command seed-villages inserts the initial village dataset. It is a no-op
// when the villages table already has rows.
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	"monthlyaid/internal/config"
	"monthlyaid/internal/ledger"
	"monthlyaid/internal/storage"
)

func main() {
	_ = godotenv.Load()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg := config.Load()

	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository", "error", err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer repo.Close()

	n, err := repo.SeedVillages(context.Background(), ledger.VillageSeed())
	if err != nil {
		logger.Error("Seeding failed", "error", err)
		os.Exit(1)
	}

	if n == 0 {
		logger.Info("Villages already present, nothing seeded")
		return
	}
	logger.Info("Villages seeded", "count", n)
}
