package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"liquidityCore/internal/aggregate"
	"liquidityCore/internal/config"
	"liquidityCore/internal/storage"
	"liquidityCore/internal/storage/postgres"
)

func runStats(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadStats(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.In == "" {
		return fmt.Errorf("input path is required")
	}

	window, err := time.ParseDuration(cfg.Window)
	if err != nil || window <= 0 {
		return fmt.Errorf("invalid window %q", cfg.Window)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	records, err := storage.ReadEventBatch(cfg.In)
	if err != nil {
		return err
	}
	if cfg.RunID != "" {
		filtered := records[:0:0]
		for _, record := range records {
			if record.RunID == cfg.RunID {
				filtered = append(filtered, record)
			}
		}
		records = filtered
	}

	var store *postgres.Store
	if cfg.PgDSN != "" {
		if store, err = postgres.NewStore(ctx, cfg.PgDSN); err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer store.Close()
	}

	var stateStore aggregate.StateStore
	switch {
	case store != nil && cfg.RunID != "":
		stateStore = &aggregate.DBStateStore{Store: store, RunID: cfg.RunID}
	case cfg.StateFile != "":
		stateStore = &aggregate.FileStateStore{Path: cfg.StateFile}
	}

	aggregator := aggregate.NewAggregator(aggregate.Config{
		WindowSeconds: uint32(window / time.Second),
		FeePips:       cfg.FeePips,
		StateStore:    stateStore,
	}, logger)

	metrics, err := aggregator.Run(ctx, records)
	if err != nil {
		return err
	}

	encoder := json.NewEncoder(os.Stdout)
	for _, m := range metrics {
		if err := encoder.Encode(m); err != nil {
			return fmt.Errorf("encode metrics: %w", err)
		}
	}

	if store != nil {
		if err := store.UpsertWindowMetrics(ctx, metrics); err != nil {
			return fmt.Errorf("upsert metrics: %w", err)
		}
		logger.Info("metrics persisted", zap.Int("windows", len(metrics)))
	}
	return nil
}
