package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"liquidityCore/internal/config"
	"liquidityCore/internal/model"
	"liquidityCore/internal/scenario"
	"liquidityCore/internal/storage"
	"liquidityCore/internal/storage/postgres"
)

func runScenario(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.Scenario == "" {
		return fmt.Errorf("scenario path is required")
	}

	scn, err := scenario.Load(cfg.Scenario)
	if err != nil {
		return err
	}

	runID := cfg.RunID
	if runID == "" {
		runID = fmt.Sprintf("%s-%d", scn.Name, time.Now().Unix())
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	storageSink := storage.NewJsonlStorage(cfg.Out)

	runner, err := scenario.NewRunner(scn, scenario.RunConfig{
		RunID:     runID,
		BatchSize: cfg.BatchSize,
	}, storageSink, logger)
	if err != nil {
		return err
	}

	logger.Info("run start",
		zap.String("scenario", scn.Name),
		zap.String("run_id", runID),
		zap.Int("steps", len(scn.Steps)),
		zap.String("out", cfg.Out),
	)

	summary, err := runner.Run(ctx)
	if err != nil {
		return err
	}

	logger.Info("run complete",
		zap.Uint64("steps", summary.Steps),
		zap.Uint64("events", summary.Events),
		zap.String("final_sqrt_price_x96", summary.FinalState.SqrtPriceX96),
		zap.Int("final_tick", summary.FinalState.Tick),
		zap.String("final_liquidity", summary.FinalState.Liquidity),
	)

	if cfg.PgDSN != "" {
		return persistRun(ctx, cfg, summary, logger)
	}
	return nil
}

func persistRun(ctx context.Context, cfg config.Config, summary model.RunSummary, logger *zap.Logger) error {
	store, err := postgres.NewStore(ctx, cfg.PgDSN)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer store.Close()

	if err := store.UpsertRun(ctx, summary); err != nil {
		return fmt.Errorf("upsert run: %w", err)
	}

	records, err := storage.ReadEventBatch(cfg.Out)
	if err != nil {
		return fmt.Errorf("read events: %w", err)
	}
	mine := records[:0:0]
	for _, record := range records {
		if record.RunID == summary.RunID {
			mine = append(mine, record)
		}
	}
	if err := store.InsertEventBatch(ctx, mine); err != nil {
		return fmt.Errorf("insert events: %w", err)
	}

	logger.Info("run persisted", zap.String("run_id", summary.RunID), zap.Int("events", len(mine)))
	return nil
}
