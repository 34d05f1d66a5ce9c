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
	"github.com/zfogg/showcase/internal/models"
	"github.com/zfogg/showcase/internal/search"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func main() {
	_ = godotenv.Load()
	if err := logger.Initialize(logger.Options{Level: "info"}); err != nil {
		fmt.Fprintln(os.Stderr, "logger:", err)
		os.Exit(1)
	}
	defer logger.Close()

	command := "up"
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

	switch command {
	case "up":
		runMigrationsUp()
	case "reindex":
		reindex(cfg)
	default:
		fmt.Println("Usage: migrate [up|reindex]")
		fmt.Println("  up      - Create or update every table and index")
		fmt.Println("  reindex - Rebuild the Elasticsearch indices from the database")
		os.Exit(1)
	}
}

func runMigrationsUp() {
	start := time.Now()
	if err := database.Migrate(database.DB); err != nil {
		logger.Log.Fatal("Migration failed", zap.Error(err))
	}
	logger.Log.Info("All migrations completed", zap.Duration("took", time.Since(start)))
}

func reindex(cfg *config.Config) {
	if cfg.ElasticsearchURL == "" {
		logger.Log.Fatal("ELASTICSEARCH_URL is not set")
	}
	ctx := context.Background()
	client, err := search.NewClient(ctx, cfg.ElasticsearchURL)
	if err != nil {
		logger.Log.Fatal("Failed to connect to Elasticsearch", zap.Error(err))
	}
	if err := client.InitializeIndices(ctx); err != nil {
		logger.Log.Fatal("Failed to create indices", zap.Error(err))
	}

	var projects []*models.Project
	if err := database.DB.WithContext(ctx).FindInBatches(&projects, 200, func(_ *gorm.DB, _ int) error {
		for _, p := range projects {
			if err := client.IndexProject(ctx, p); err != nil {
				logger.WarnWithFields("Failed to index project", err, logger.WithProjectID(p.ID))
			}
		}
		return nil
	}).Error; err != nil {
		logger.Log.Fatal("Project reindex failed", zap.Error(err))
	}

	var users []*models.User
	if err := database.DB.WithContext(ctx).FindInBatches(&users, 200, func(_ *gorm.DB, _ int) error {
		for _, u := range users {
			if err := client.IndexUser(ctx, u); err != nil {
				logger.WarnWithFields("Failed to index user", err, logger.WithUserID(u.ID))
			}
		}
		return nil
	}).Error; err != nil {
		logger.Log.Fatal("User reindex failed", zap.Error(err))
	}
	logger.Log.Info("Reindex complete")
}
