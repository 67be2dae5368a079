package config

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config holds configuration for the run command, loaded from flags,
// environment variables, or a config file.
type Config struct {
	Scenario  string
	RunID     string
	Out       string
	BatchSize int
	PgDSN     string
	LogLevel  string
}

// Load merges config file, environment variables, and flags into Config.
func Load(cfgFile string, flags *pflag.FlagSet) (Config, error) {
	v, err := newViper(cfgFile, flags)
	if err != nil {
		return Config{}, err
	}

	v.SetDefault("out", "./data/events.jsonl")
	v.SetDefault("batch-size", 100)
	v.SetDefault("log-level", "info")

	cfg := Config{
		Scenario:  v.GetString("scenario"),
		RunID:     v.GetString("run-id"),
		Out:       v.GetString("out"),
		BatchSize: v.GetInt("batch-size"),
		PgDSN:     v.GetString("pg-dsn"),
		LogLevel:  v.GetString("log-level"),
	}
	return cfg, nil
}

// StatsConfig holds configuration for the stats command.
type StatsConfig struct {
	In        string
	RunID     string
	Window    string
	FeePips   uint32
	PgDSN     string
	StateFile string
	LogLevel  string
}

// LoadStats merges config file, environment variables, and flags into
// StatsConfig.
func LoadStats(cfgFile string, flags *pflag.FlagSet) (StatsConfig, error) {
	v, err := newViper(cfgFile, flags)
	if err != nil {
		return StatsConfig{}, err
	}

	v.SetDefault("window", "5m")
	v.SetDefault("log-level", "info")

	cfg := StatsConfig{
		In:        v.GetString("in"),
		RunID:     v.GetString("run-id"),
		Window:    v.GetString("window"),
		FeePips:   v.GetUint32("fee-pips"),
		PgDSN:     v.GetString("pg-dsn"),
		StateFile: v.GetString("state-file"),
		LogLevel:  v.GetString("log-level"),
	}
	return cfg, nil
}

func newViper(cfgFile string, flags *pflag.FlagSet) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix("POOLSIM")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return nil, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}
	return v, nil
}
