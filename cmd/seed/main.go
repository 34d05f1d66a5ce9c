package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/zfogg/showcase/internal/config"
	"github.com/zfogg/showcase/internal/database"
	"github.com/zfogg/showcase/internal/logger"
	"github.com/zfogg/showcase/internal/seed"
	"go.uber.org/zap"
)

func main() {
	_ = godotenv.Load()
	if err := logger.Initialize(logger.Options{Level: "info"}); err != nil {
		fmt.Fprintln(os.Stderr, "logger:", err)
		os.Exit(1)
	}
	defer logger.Close()

	command := "dev"
	if len(os.Args) > 1 {
		command = os.Args[1]
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Log.Fatal("Invalid configuration", zap.Error(err))
	}
	if err := database.Initialize(cfg.DatabaseURL, false); err != nil {
		logger.Log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer database.Close()
	if err := database.Migrate(database.DB); err != nil {
		logger.Log.Fatal("Migration failed", zap.Error(err))
	}

	ctx := context.Background()
	seeder := seed.NewSeeder(database.DB, time.Now().UnixNano())
	start := time.Now()

	switch command {
	case "dev":
		err = seeder.SeedDev(ctx, seed.DevSizes)
	case "test":
		err = seeder.SeedTest(ctx)
	case "clean":
		err = seeder.Clean(ctx)
	case "recount":
		err = seeder.Recount(ctx)
	default:
		fmt.Println("Usage: seed [dev|test|clean|recount]")
		fmt.Println("  dev     - Seed development database with realistic data")
		fmt.Println("  test    - Seed fixed test accounts (password: " + seed.DefaultPassword + ")")
		fmt.Println("  clean   - Remove all rows (use with caution)")
		fmt.Println("  recount - Rebuild cached counters from relationship rows")
		os.Exit(1)
	}
	if err != nil {
		logger.Log.Fatal("Seeding failed", zap.String("command", command), zap.Error(err))
	}
	logger.Log.Info("Seeding complete", zap.String("command", command), zap.Duration("took", time.Since(start)))
}
