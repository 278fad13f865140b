// Package engine coordinates the platform's two workflows: universe scans
// (strategies → consensus → persistence) and backtest runs (signal replay
// against stored history).
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"nivesh/internal/backtest"
	"nivesh/internal/config"
	"nivesh/internal/consensus"
	"nivesh/internal/domain"
	"nivesh/internal/metrics"
	"nivesh/internal/pricedata"
	"nivesh/internal/store"
	"nivesh/internal/strategy"
	"nivesh/internal/util"
)

// lookbackDays is how much history a scan hands each strategy. Long enough
// for the multibagger horizon plus indicator warm-up.
const lookbackDays = 400

// Service orchestrates scans and backtest runs by delegating to the
// strategy registry, the consensus builder, the backtest engine, and the
// stores.
type Service struct {
	registry  *strategy.Registry
	builder   *consensus.Builder
	bars      store.BarStore
	signals   store.SignalStore
	consensus store.ConsensusStore
	results   store.ResultStore
	calendar  *util.TradingCalendar
	cfg       *config.Config
	log       *slog.Logger
}

// NewService creates a Service wired with the given dependencies.
func NewService(
	registry *strategy.Registry,
	builder *consensus.Builder,
	bars store.BarStore,
	signals store.SignalStore,
	consensusStore store.ConsensusStore,
	results store.ResultStore,
	calendar *util.TradingCalendar,
	cfg *config.Config,
	log *slog.Logger,
) *Service {
	return &Service{
		registry:  registry,
		builder:   builder,
		bars:      bars,
		signals:   signals,
		consensus: consensusStore,
		results:   results,
		calendar:  calendar,
		cfg:       cfg,
		log:       log,
	}
}

// ---------------------------------------------------------------------------
// Scan
// ---------------------------------------------------------------------------

// Scan runs every registered strategy over the configured universe, builds
// the consensus set, persists both, and returns the consensus signals.
func (s *Service) Scan(ctx context.Context) ([]domain.ConsensusSignal, error) {
	symbols, err := s.universe(ctx)
	if err != nil {
		return nil, err
	}
	if len(symbols) == 0 {
		return nil, fmt.Errorf("scan universe is empty")
	}

	end := time.Now().UTC()
	start := end.AddDate(0, 0, -lookbackDays)

	bars := make(map[string][]domain.Bar, len(symbols))
	for _, sym := range symbols {
		history, err := s.bars.ReadBars(ctx, sym, s.cfg.Universe.Market, start, end)
		if err != nil {
			return nil, fmt.Errorf("reading bars for %s: %w", sym, err)
		}
		if len(history) == 0 {
			s.log.Warn("no bar history, skipping symbol", "symbol", sym)
			continue
		}
		bars[sym] = history
	}

	perStrategy := strategy.RunAll(ctx, s.registry, bars, s.log)

	var flat []domain.Signal
	for _, bySymbol := range perStrategy {
		for _, sig := range bySymbol {
			metrics.SignalsTotal.WithLabelValues(sig.Strategy, string(sig.Type)).Inc()
			flat = append(flat, sig)
		}
	}
	if err := s.signals.SaveSignals(ctx, flat); err != nil {
		return nil, fmt.Errorf("saving signals: %w", err)
	}

	consensusSignals, err := s.builder.Build(perStrategy)
	if err != nil {
		return nil, fmt.Errorf("building consensus: %w", err)
	}
	for _, cs := range consensusSignals {
		metrics.ConsensusTotal.WithLabelValues(string(cs.QualityTier)).Inc()
	}
	if err := s.consensus.SaveConsensus(ctx, consensusSignals); err != nil {
		return nil, fmt.Errorf("saving consensus: %w", err)
	}

	metrics.ScansTotal.Inc()
	s.log.Info("scan complete",
		"symbols", len(bars),
		"signals", len(flat),
		"consensus", len(consensusSignals))
	return consensusSignals, nil
}

// universe returns the configured symbol list, or every symbol with stored
// bar data when the list is empty.
func (s *Service) universe(ctx context.Context) ([]string, error) {
	if len(s.cfg.Universe.Symbols) > 0 {
		return s.cfg.Universe.Symbols, nil
	}
	return s.bars.ListSymbols(ctx, s.cfg.Universe.Market)
}

// ---------------------------------------------------------------------------
// Backtest
// ---------------------------------------------------------------------------

// BacktestRequest describes one backtest run. Zero-valued fields fall back
// to the configured defaults.
type BacktestRequest struct {
	StartDate      time.Time `json:"start_date"`
	EndDate        time.Time `json:"end_date"`
	Symbols        []string  `json:"symbols,omitempty"`
	InitialCapital float64   `json:"initial_capital,omitempty"`
}

// RunBacktest replays the consensus workflow over the requested period: for
// each trading day it evaluates the strategies on the history available up
// to that day, feeds the consensus buys and sells to the backtest engine,
// and persists the finished result.
func (s *Service) RunBacktest(ctx context.Context, req BacktestRequest) (*backtest.Result, error) {
	if req.StartDate.IsZero() || req.EndDate.IsZero() {
		return nil, fmt.Errorf("start_date and end_date are required")
	}
	capital := req.InitialCapital
	if capital == 0 {
		capital = s.cfg.Backtest.InitialCapital
	}

	symbols := req.Symbols
	if len(symbols) == 0 {
		var err error
		if symbols, err = s.universe(ctx); err != nil {
			return nil, err
		}
	}
	if len(symbols) == 0 {
		return nil, fmt.Errorf("backtest universe is empty")
	}

	// Preload each symbol's history once; the per-day loop slices it.
	loadStart := req.StartDate.AddDate(0, 0, -lookbackDays)
	history := make(map[string][]domain.Bar, len(symbols))
	for _, sym := range symbols {
		bars, err := s.bars.ReadBars(ctx, sym, s.cfg.Universe.Market, loadStart, req.EndDate)
		if err != nil {
			return nil, fmt.Errorf("reading bars for %s: %w", sym, err)
		}
		if len(bars) > 0 {
			history[sym] = bars
		}
	}
	if len(history) == 0 {
		return nil, fmt.Errorf("no bar history for any requested symbol")
	}

	signals, err := s.replaySignals(ctx, history, req.StartDate, req.EndDate)
	if err != nil {
		return nil, err
	}

	portfolio, err := backtest.NewPortfolio(capital, s.cfg.Backtest.CommissionRate, s.cfg.Backtest.SlippageRate)
	if err != nil {
		return nil, err
	}
	sizer, err := backtest.NewSizer(s.cfg.Backtest.MaxPositionPct)
	if err != nil {
		return nil, err
	}

	prices := pricedata.NewCache(func(_ context.Context, symbol string) ([]domain.Bar, error) {
		bars, ok := history[symbol]
		if !ok {
			return nil, fmt.Errorf("no history for %s", symbol)
		}
		return bars, nil
	}, time.Hour, s.log)

	eng := backtest.NewEngine(prices, s.calendar, sizer, s.log)
	result, err := eng.Run(ctx, portfolio, signals, req.StartDate, req.EndDate)
	if err != nil {
		return nil, err
	}

	metrics.BacktestsTotal.Inc()
	for _, tr := range result.Trades {
		metrics.BacktestTrades.WithLabelValues(string(tr.Action)).Inc()
	}

	if err := s.results.SaveResult(ctx, result); err != nil {
		return nil, fmt.Errorf("saving result: %w", err)
	}
	s.log.Info("backtest complete",
		"run_id", result.RunID,
		"trades", len(result.Trades),
		"final_capital", result.FinalCapital)
	return result, nil
}

// replaySignals walks the trading days in [start, end] and rebuilds the
// consensus as it would have looked on each day, using only bars at or
// before that day. Consensus buys and sells become engine signals dated to
// the day they formed.
func (s *Service) replaySignals(ctx context.Context, history map[string][]domain.Bar, start, end time.Time) ([]domain.Signal, error) {
	var out []domain.Signal
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		if !s.calendar.IsTradingDay(d) {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		dayBars := make(map[string][]domain.Bar, len(history))
		for sym, bars := range history {
			n := sort.Search(len(bars), func(i int) bool { return bars[i].Timestamp.After(d) })
			if n > 0 {
				dayBars[sym] = bars[:n]
			}
		}
		if len(dayBars) == 0 {
			continue
		}

		perStrategy := strategy.RunAll(ctx, s.registry, dayBars, s.log)
		consensusSignals, err := s.builder.Build(perStrategy)
		if err != nil {
			return nil, fmt.Errorf("building consensus for %s: %w", d.Format("2006-01-02"), err)
		}
		for _, cs := range consensusSignals {
			out = append(out, domain.Signal{
				Symbol:      cs.Symbol,
				Strategy:    "consensus",
				Type:        cs.Type,
				Confidence:  cs.ConsensusConfidence,
				EntryPrice:  cs.EntryPrice,
				TargetPrice: cs.TargetPrice,
				StopLoss:    cs.StopLoss,
				GeneratedAt: d,
			})
		}
	}
	return out, nil
}
