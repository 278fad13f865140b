// Package app wires the stores, strategy registry, consensus builder, and
// orchestration service shared by the nivesh binaries.
package app

import (
	"fmt"
	"log/slog"

	"nivesh/internal/config"
	"nivesh/internal/consensus"
	"nivesh/internal/domain"
	"nivesh/internal/engine"
	"nivesh/internal/store"
	"nivesh/internal/strategy"
	"nivesh/internal/strategy/builtins"
	"nivesh/internal/util"
)

// App holds the assembled dependencies of a nivesh binary.
type App struct {
	Config  *config.Config
	Logger  *slog.Logger
	Bars    *store.ParquetStore
	DB      *store.SQLiteStore
	Service *engine.Service
}

// New loads configuration from cfgPath (empty means defaults plus env
// overrides), opens the stores, and wires the orchestration service.
func New(cfgPath string) (*App, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	logger := util.NewLogger(cfg.Logging.Level, cfg.Logging.Format)
	util.SetDefault(logger)

	pstore := store.NewParquetStore(cfg.Storage.DataDir)
	sstore, err := store.NewSQLiteStore(cfg.Storage.SQLitePath)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite store: %w", err)
	}

	svc, err := buildService(cfg, pstore, sstore, logger)
	if err != nil {
		sstore.Close()
		return nil, err
	}

	return &App{
		Config:  cfg,
		Logger:  logger,
		Bars:    pstore,
		DB:      sstore,
		Service: svc,
	}, nil
}

// Close releases the app's resources.
func (a *App) Close() error {
	return a.DB.Close()
}

func buildService(cfg *config.Config, pstore *store.ParquetStore, sstore *store.SQLiteStore, logger *slog.Logger) (*engine.Service, error) {
	reg := strategy.NewRegistry()
	reg.Register(builtins.NewMomentum(20, 0.05))
	reg.Register(builtins.NewBreakout(55))
	reg.Register(builtins.NewMeanReversion(20, 0.08))
	reg.Register(builtins.NewMultibagger(250, 2.0, 0.20))

	ccfg := consensus.DefaultConfig()
	if cfg.Consensus.MinStrategies > 0 {
		ccfg.MinStrategies = cfg.Consensus.MinStrategies
	}
	if cfg.Consensus.HighThreshold > 0 {
		ccfg.HighThreshold = cfg.Consensus.HighThreshold
	}
	if cfg.Consensus.MediumThreshold > 0 {
		ccfg.MediumThreshold = cfg.Consensus.MediumThreshold
	}
	if cfg.Consensus.ScoreFloor > 0 {
		ccfg.ScoreFloor = cfg.Consensus.ScoreFloor
	}
	if cfg.Consensus.MaxSignals > 0 {
		ccfg.MaxSignals = cfg.Consensus.MaxSignals
	}
	if len(cfg.Consensus.Weights) > 0 {
		ccfg.Weights = cfg.Consensus.Weights
	}

	builder, err := consensus.NewBuilder(ccfg, logger)
	if err != nil {
		return nil, err
	}

	cal := util.NewTradingCalendar(domain.Market(cfg.Universe.Market))
	return engine.NewService(reg, builder, pstore, sstore, sstore, sstore, cal, cfg, logger), nil
}
