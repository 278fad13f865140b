// Package config loads the platform's YAML configuration and applies
// environment variable overrides.
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// ---------------------------------------------------------------------------
// Configuration structs
// ---------------------------------------------------------------------------

// Config is the top-level configuration for the nivesh platform.
type Config struct {
	Storage   Storage         `yaml:"storage"`
	Server    Server          `yaml:"server"`
	Logging   Logging         `yaml:"logging"`
	Universe  Universe        `yaml:"universe"`
	Consensus ConsensusConfig `yaml:"consensus"`
	Backtest  BacktestConfig  `yaml:"backtest"`
}

// Storage holds paths for data persistence.
type Storage struct {
	DataDir    string `yaml:"data_dir"`
	SQLitePath string `yaml:"sqlite_path"`
}

// Server holds network listener configuration.
type Server struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// Logging configures the application logger.
type Logging struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Universe names the market and the symbols a scan covers. An empty
// Symbols list means every symbol with stored bar data.
type Universe struct {
	Market  string   `yaml:"market"`
	Symbols []string `yaml:"symbols"`
}

// ConsensusConfig tunes the consensus builder.
type ConsensusConfig struct {
	MinStrategies   int                `yaml:"min_strategies"`
	HighThreshold   float64            `yaml:"high_threshold"`
	MediumThreshold float64            `yaml:"medium_threshold"`
	ScoreFloor      float64            `yaml:"score_floor"`
	MaxSignals      int                `yaml:"max_signals"`
	Weights         map[string]float64 `yaml:"weights"`
}

// BacktestConfig holds simulation cost and sizing parameters.
type BacktestConfig struct {
	InitialCapital float64 `yaml:"initial_capital"`
	CommissionRate float64 `yaml:"commission_rate"`
	SlippageRate   float64 `yaml:"slippage_rate"`
	MaxPositionPct float64 `yaml:"max_position_pct"`
}

// ---------------------------------------------------------------------------
// Loading
// ---------------------------------------------------------------------------

// Default returns a Config populated with the platform defaults. Loading a
// file overlays it; fields the file omits keep these values.
func Default() *Config {
	return &Config{
		Storage: Storage{
			DataDir:    "data",
			SQLitePath: "data/nivesh.db",
		},
		Server: Server{
			Host: "0.0.0.0",
			Port: 8080,
		},
		Logging: Logging{
			Level:  "info",
			Format: "text",
		},
		Universe: Universe{
			Market: "nse",
		},
		Consensus: ConsensusConfig{
			MinStrategies:   3,
			HighThreshold:   0.75,
			MediumThreshold: 0.60,
			ScoreFloor:      0.45,
			MaxSignals:      20,
		},
		Backtest: BacktestConfig{
			InitialCapital: 100000,
			CommissionRate: 0.001,
			SlippageRate:   0.0005,
			MaxPositionPct: 0.10,
		},
	}
}

// Load reads the YAML configuration file at the given path, overlays it on
// the defaults, applies environment variable overrides, and validates the
// result. An empty path skips the file and uses defaults plus environment.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, err
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations that would make a scan or backtest
// meaningless.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	if c.Consensus.MinStrategies < 1 {
		return fmt.Errorf("consensus.min_strategies must be >= 1, got %d", c.Consensus.MinStrategies)
	}
	if c.Consensus.MediumThreshold > c.Consensus.HighThreshold {
		return fmt.Errorf("consensus.medium_threshold %v exceeds high_threshold %v",
			c.Consensus.MediumThreshold, c.Consensus.HighThreshold)
	}
	if c.Backtest.InitialCapital <= 0 {
		return fmt.Errorf("backtest.initial_capital must be positive, got %v", c.Backtest.InitialCapital)
	}
	if c.Backtest.CommissionRate < 0 || c.Backtest.SlippageRate < 0 {
		return fmt.Errorf("backtest rates must be non-negative (commission %v, slippage %v)",
			c.Backtest.CommissionRate, c.Backtest.SlippageRate)
	}
	if c.Backtest.MaxPositionPct <= 0 || c.Backtest.MaxPositionPct > 1 {
		return fmt.Errorf("backtest.max_position_pct must be in (0,1], got %v", c.Backtest.MaxPositionPct)
	}
	return nil
}

// applyEnvOverrides checks well-known environment variables and overrides the
// corresponding configuration fields when they are set.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("NIVESH_DATA_DIR"); v != "" {
		cfg.Storage.DataDir = v
	}
	if v := os.Getenv("NIVESH_SQLITE_PATH"); v != "" {
		cfg.Storage.SQLitePath = v
	}
	if v := os.Getenv("NIVESH_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("NIVESH_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("NIVESH_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("NIVESH_LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
	if v := os.Getenv("NIVESH_INITIAL_CAPITAL"); v != "" {
		if cap, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Backtest.InitialCapital = cap
		}
	}
}
