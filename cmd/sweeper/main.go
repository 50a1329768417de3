package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	appconfig "github.com/bookline-ai/bookline/internal/config"
	"github.com/bookline-ai/bookline/internal/flow"
	"github.com/bookline-ai/bookline/internal/observability/metrics"
	"github.com/bookline-ai/bookline/pkg/logging"
)

func main() {
	_ = godotenv.Load()
	cfg := appconfig.Load()

	logger := logging.New(cfg.LogLevel)
	logger.Info("starting flow abandonment sweeper",
		"timeout", cfg.AbandonTimeout.String(),
		"interval", cfg.SweepInterval.String(),
	)

	if cfg.DatabaseURL == "" {
		logger.Error("DATABASE_URL is required")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to create pg pool", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	sweeper := flow.NewSweeper(
		flow.NewStore(pool),
		cfg.AbandonTimeout,
		cfg.SweepInterval,
		metrics.NewRouterMetrics(nil),
		logger,
	)

	// One pass up front so a restart catches up immediately.
	if _, err := sweeper.SweepOnce(ctx); err != nil {
		logger.Error("initial sweep failed", "error", err)
	}
	sweeper.Run(ctx)
	logger.Info("sweeper stopped")
}
