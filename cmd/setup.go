package cmd

import (
	"fmt"

	"apptrack/core/config"
	"apptrack/core/database"
	"apptrack/core/logger"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// runtime bundles the pieces every subcommand needs.
type runtime struct {
	cfg    *config.Config
	logger *zap.Logger
	db     *gorm.DB
}

// bootstrap loads configuration, builds the logger and connects to the
// database. The caller owns logger.Sync.
func bootstrap() (*runtime, error) {
	cfg, err := config.LoadConfig(".")
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}

	logg, err := logger.New(&cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("initialize logger: %w", err)
	}
	zap.ReplaceGlobals(logg)

	db, err := database.Connect(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	return &runtime{cfg: cfg, logger: logg, db: db}, nil
}
