package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "nivesh.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing config file: %v", err)
	}
	return path
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
storage:
  data_dir: "/tmp/nivesh/data"
  sqlite_path: "/tmp/nivesh/nivesh.db"
server:
  host: "127.0.0.1"
  port: 9000
logging:
  level: "debug"
  format: "json"
universe:
  market: "nse"
  symbols: ["RELIANCE", "TCS", "INFY"]
consensus:
  min_strategies: 2
  high_threshold: 0.8
  medium_threshold: 0.65
  score_floor: 0.5
  max_signals: 10
  weights:
    momentum: 0.2
    breakout: 0.1
backtest:
  initial_capital: 500000
  commission_rate: 0.002
  slippage_rate: 0.001
  max_position_pct: 0.05
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Storage.DataDir != "/tmp/nivesh/data" {
		t.Errorf("Storage.DataDir = %q, want %q", cfg.Storage.DataDir, "/tmp/nivesh/data")
	}
	if cfg.Server.Host != "127.0.0.1" || cfg.Server.Port != 9000 {
		t.Errorf("Server = %+v, want 127.0.0.1:9000", cfg.Server)
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.Format != "json" {
		t.Errorf("Logging = %+v, want debug/json", cfg.Logging)
	}
	if len(cfg.Universe.Symbols) != 3 || cfg.Universe.Symbols[0] != "RELIANCE" {
		t.Errorf("Universe.Symbols = %v, want [RELIANCE TCS INFY]", cfg.Universe.Symbols)
	}
	if cfg.Consensus.MinStrategies != 2 {
		t.Errorf("Consensus.MinStrategies = %d, want 2", cfg.Consensus.MinStrategies)
	}
	if cfg.Consensus.Weights["momentum"] != 0.2 {
		t.Errorf("Consensus.Weights[momentum] = %v, want 0.2", cfg.Consensus.Weights["momentum"])
	}
	if cfg.Backtest.InitialCapital != 500000 {
		t.Errorf("Backtest.InitialCapital = %v, want 500000", cfg.Backtest.InitialCapital)
	}
	if cfg.Backtest.CommissionRate != 0.002 {
		t.Errorf("Backtest.CommissionRate = %v, want 0.002", cfg.Backtest.CommissionRate)
	}
}

func TestLoadDefaults(t *testing.T) {
	// A file that sets almost nothing keeps the platform defaults.
	path := writeConfig(t, `
logging:
  level: "warn"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Logging.Level != "warn" {
		t.Errorf("Logging.Level = %q, want %q", cfg.Logging.Level, "warn")
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want default 8080", cfg.Server.Port)
	}
	if cfg.Consensus.MinStrategies != 3 {
		t.Errorf("Consensus.MinStrategies = %d, want default 3", cfg.Consensus.MinStrategies)
	}
	if cfg.Consensus.HighThreshold != 0.75 || cfg.Consensus.MediumThreshold != 0.60 {
		t.Errorf("tier thresholds = %v/%v, want defaults 0.75/0.60",
			cfg.Consensus.HighThreshold, cfg.Consensus.MediumThreshold)
	}
	if cfg.Backtest.InitialCapital != 100000 {
		t.Errorf("Backtest.InitialCapital = %v, want default 100000", cfg.Backtest.InitialCapital)
	}
	if cfg.Backtest.CommissionRate != 0.001 || cfg.Backtest.SlippageRate != 0.0005 {
		t.Errorf("cost rates = %v/%v, want defaults 0.001/0.0005",
			cfg.Backtest.CommissionRate, cfg.Backtest.SlippageRate)
	}
	if cfg.Universe.Market != "nse" {
		t.Errorf("Universe.Market = %q, want default %q", cfg.Universe.Market, "nse")
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	path := writeConfig(t, `
storage:
  data_dir: "/original/data"
logging:
  level: "info"
`)

	t.Setenv("NIVESH_DATA_DIR", "/env/data")
	t.Setenv("NIVESH_LOG_LEVEL", "debug")
	t.Setenv("NIVESH_PORT", "9999")
	t.Setenv("NIVESH_INITIAL_CAPITAL", "250000")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Storage.DataDir != "/env/data" {
		t.Errorf("Storage.DataDir = %q, want env override %q", cfg.Storage.DataDir, "/env/data")
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want env override %q", cfg.Logging.Level, "debug")
	}
	if cfg.Server.Port != 9999 {
		t.Errorf("Server.Port = %d, want env override 9999", cfg.Server.Port)
	}
	if cfg.Backtest.InitialCapital != 250000 {
		t.Errorf("Backtest.InitialCapital = %v, want env override 250000", cfg.Backtest.InitialCapital)
	}
	// SQLitePath had no override and no file value, so the default stays.
	if cfg.Storage.SQLitePath != "data/nivesh.db" {
		t.Errorf("Storage.SQLitePath = %q, want default", cfg.Storage.SQLitePath)
	}
}

func TestLoadEmptyPath(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load(\"\"): %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want default 8080", cfg.Server.Port)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero capital", func(c *Config) { c.Backtest.InitialCapital = 0 }},
		{"negative commission", func(c *Config) { c.Backtest.CommissionRate = -0.001 }},
		{"position pct above one", func(c *Config) { c.Backtest.MaxPositionPct = 1.5 }},
		{"inverted tier thresholds", func(c *Config) { c.Consensus.MediumThreshold = 0.9 }},
		{"zero min strategies", func(c *Config) { c.Consensus.MinStrategies = 0 }},
		{"bad port", func(c *Config) { c.Server.Port = -1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("Validate() = nil, want error")
			}
		})
	}

	if err := Default().Validate(); err != nil {
		t.Errorf("Validate() on defaults = %v, want nil", err)
	}
}
