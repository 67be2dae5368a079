package main

import (
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	root := &cobra.Command{
		Use:          "poolsim",
		Short:        "Concentrated liquidity pool simulator",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Run a scenario against a fresh pool",
		RunE:  runScenario,
	}

	runCmd.Flags().String("scenario", "", "scenario JSON path")
	runCmd.Flags().String("run-id", "", "run identifier (defaults to scenario name plus timestamp)")
	runCmd.Flags().String("out", "./data/events.jsonl", "output events JSONL path")
	runCmd.Flags().Int("batch-size", 100, "events per storage batch")
	runCmd.Flags().String("pg-dsn", "", "optional Postgres DSN for run and event persistence")
	runCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(runCmd)

	statsCmd := &cobra.Command{
		Use:   "stats",
		Short: "Aggregate recorded events into window metrics",
		RunE:  runStats,
	}

	statsCmd.Flags().String("in", "", "input events JSONL path")
	statsCmd.Flags().String("run-id", "", "only aggregate records of this run")
	statsCmd.Flags().String("window", "5m", "aggregation window (e.g. 1m, 5m, 1h)")
	statsCmd.Flags().Uint32("fee-pips", 0, "pool fee rate for swap fee estimates")
	statsCmd.Flags().String("pg-dsn", "", "optional Postgres DSN for metrics persistence")
	statsCmd.Flags().String("state-file", "", "optional local state file for progress tracking")
	statsCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(statsCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}
