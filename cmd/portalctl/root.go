package main

import (
	"context"
	"fmt"
	"os"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/portal/backend/internal/infrastructure/config"
	"github.com/portal/backend/internal/infrastructure/logger"
	"github.com/portal/backend/internal/infrastructure/persistence"
	"github.com/portal/backend/internal/infrastructure/queue"
)

var version = "dev"

var logLevel string

var rootCmd = &cobra.Command{
	Use:   "portalctl",
	Short: "Operator tooling for the supplier portal",
	Long: `portalctl runs maintenance tasks against the supplier portal database,
queue and ERP account. Configuration is read the same way as the server:
config.toml, a local .env file and PORTAL_* environment variables.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command and exits non-zero on failure
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
}

// env holds the connections a command opened; close releases them
type env struct {
	cfg   *config.Config
	log   *zap.Logger
	db    *persistence.Database
	redis *redis.Client
}

func loadEnv() (*env, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}
	logCfg := cfg.Log
	logCfg.Level = logLevel
	logCfg.Format = "console"
	return &env{cfg: cfg, log: logger.New(logCfg)}, nil
}

func (e *env) openDB() (*persistence.Database, error) {
	if e.db != nil {
		return e.db, nil
	}
	db, err := persistence.NewDatabase(&e.cfg.Database, logger.NewGormLogger(e.log, logger.GormLevel(logLevel), 0))
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	e.db = db
	return db, nil
}

func (e *env) openQueue(ctx context.Context) (*queue.RedisQueue, error) {
	if e.redis == nil {
		client, err := queue.NewRedisClient(ctx, e.cfg.Redis)
		if err != nil {
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		e.redis = client
	}
	return queue.NewRedisQueue(e.redis, e.cfg.Queue, e.log), nil
}

func (e *env) close() {
	if e.redis != nil {
		_ = e.redis.Close()
	}
	if e.db != nil {
		if err := e.db.Close(); err != nil {
			e.log.Warn("Error closing database", zap.Error(err))
		}
	}
	_ = e.log.Sync()
}
