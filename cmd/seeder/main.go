// cmd/seeder/main.go
package main

import (
	"context"
	"log"

	"go.uber.org/zap"

	"github.com/unclebandit/campaign-dispatch/internal/config"
	"github.com/unclebandit/campaign-dispatch/internal/db"
	"github.com/unclebandit/campaign-dispatch/internal/logging"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load(ctx)
	if err != nil {
		log.Fatal(err)
	}
	logger, err := logging.New(cfg.App.LogLevel, cfg.App.IsProduction())
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	conn, err := db.Connect(ctx, cfg.Database, logger)
	if err != nil {
		logger.Fatal("database unavailable", zap.Error(err))
	}
	defer conn.Close()

	if err := db.Migrate(ctx, conn); err != nil {
		logger.Fatal("migration failed", zap.Error(err))
	}
	if _, err := conn.ExecContext(ctx, db.Seed); err != nil {
		logger.Fatal("failed to seed database", zap.Error(err))
	}

	logger.Info("database seeding completed successfully")
}
