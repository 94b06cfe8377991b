package main

import (
	"context"
	"os"

	"github.com/safar/storefront/internal/config"
	"github.com/safar/storefront/internal/database"
	"github.com/safar/storefront/internal/logger"
	"go.uber.org/zap"
)

func main() {
	if len(os.Args) < 2 {
		zap.NewExample().Fatal("usage: migrate [up|down]")
	}

	direction := database.Direction(os.Args[1])
	if direction != database.Up && direction != database.Down {
		zap.NewExample().Fatal("direction must be 'up' or 'down'", zap.String("direction", os.Args[1]))
	}

	cfg, err := config.Load()
	if err != nil {
		zap.NewExample().Fatal("load config", zap.Error(err))
	}

	log := logger.New(cfg.Log)
	defer log.Sync()

	db, err := database.NewConnection(context.Background(), cfg.Database, log)
	if err != nil {
		log.Fatal("connect to database", zap.Error(err))
	}
	defer db.Close()

	if err := database.Migrate(db, direction); err != nil {
		log.Fatal("run migrations", zap.Error(err))
	}

	log.Info("migrations applied", zap.String("direction", string(direction)))
}
