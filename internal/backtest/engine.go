package backtest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"nivesh/internal/domain"
)

// Run errors.
var (
	ErrDateRange    = errors.New("end date precedes start date")
	ErrNilPortfolio = errors.New("portfolio must not be nil")
)

// PriceSource supplies the latest known bar at or before a date. Missing
// trading days are expected: lookups fall back to the most recent prior
// bar rather than failing.
type PriceSource interface {
	AsOf(ctx context.Context, symbol string, date time.Time) (domain.Bar, bool)
}

// Calendar reports which dates are trading days.
type Calendar interface {
	IsTradingDay(t time.Time) bool
}

// Result is the terminal output of a backtest run, suitable for JSON
// serialization and persistence by the caller.
type Result struct {
	RunID          string            `json:"run_id"`
	StartDate      time.Time         `json:"start_date"`
	EndDate        time.Time         `json:"end_date"`
	InitialCapital float64           `json:"initial_capital"`
	FinalCapital   float64           `json:"final_capital"`
	Trades         []domain.Trade    `json:"trades"`
	EquityCurve    []domain.Snapshot `json:"equity_curve"`
	Performance    Performance       `json:"performance"`
}

// Engine replays a signal stream against historical prices one trading
// day at a time. The engine itself is stateless across runs; all run
// state lives in the portfolio it is handed.
type Engine struct {
	prices   PriceSource
	calendar Calendar
	sizer    *Sizer
	log      *slog.Logger
}

// NewEngine creates an Engine that reads prices from the given source,
// steps days with the given calendar, and sizes entries with sizer.
func NewEngine(prices PriceSource, calendar Calendar, sizer *Sizer, log *slog.Logger) *Engine {
	if log == nil {
		log = slog.Default()
	}
	return &Engine{prices: prices, calendar: calendar, sizer: sizer, log: log}
}

// Run replays signals from start to end inclusive against the supplied
// portfolio. Each trading day it applies exit conditions for open
// positions before executing that day's entry signals, then records one
// equity snapshot. A fatal setup problem aborts the run with an error;
// a single signal that cannot execute is logged and skipped.
func (e *Engine) Run(ctx context.Context, p *Portfolio, signals []domain.Signal, start, end time.Time) (*Result, error) {
	if p == nil {
		return nil, ErrNilPortfolio
	}
	start, end = dateOnly(start), dateOnly(end)
	if end.Before(start) {
		return nil, fmt.Errorf("%w: %s > %s", ErrDateRange,
			start.Format("2006-01-02"), end.Format("2006-01-02"))
	}

	byDay := groupSignalsByDay(signals)

	for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("backtest aborted: %w", err)
		}
		if e.calendar != nil && !e.calendar.IsTradingDay(day) {
			continue
		}
		e.step(ctx, p, day, byDay[day])
	}

	res := &Result{
		RunID:          uuid.NewString(),
		StartDate:      start,
		EndDate:        end,
		InitialCapital: p.InitialCapital(),
		FinalCapital:   p.cash,
		Trades:         p.Trades(),
		EquityCurve:    p.Equity(),
		Performance:    Analyze(p.InitialCapital(), p.Equity(), p.Trades()),
	}
	if curve := p.Equity(); len(curve) > 0 {
		res.FinalCapital = curve[len(curve)-1].TotalValue
	}
	return res, nil
}

// step processes one simulated trading day.
func (e *Engine) step(ctx context.Context, p *Portfolio, day time.Time, todays []domain.Signal) {
	prices := e.currentPrices(ctx, p, day, todays)

	// Exit phase: close stopped or completed positions before any new
	// entries, so a just-closed position cannot reopen the same day.
	var exits []ExitSignal
	held := p.Positions()
	sort.Strings(held)
	for _, sym := range held {
		price, ok := prices[sym]
		if !ok {
			continue
		}
		if exit := p.CheckExitConditions(sym, price); exit != nil {
			exits = append(exits, *exit)
		}
	}
	for _, exit := range exits {
		if !p.ExecuteExit(exit, day, prices[exit.Symbol]) {
			e.log.Warn("exit did not execute", "symbol", exit.Symbol, "reason", exit.Reason)
		}
	}

	// Entry phase: execute today's signals at today's known price.
	for _, sig := range todays {
		price, ok := prices[sig.Symbol]
		if !ok {
			e.log.Warn("no price for signal, skipping",
				"symbol", sig.Symbol, "date", day.Format("2006-01-02"))
			continue
		}
		qty := e.quantityFor(p, sig, price, prices)
		if qty <= 0 {
			continue
		}
		if !p.ExecuteTrade(sig, day, price, qty) {
			e.log.Debug("trade did not execute",
				"symbol", sig.Symbol, "type", sig.Type, "qty", qty)
		}
	}

	p.RecordSnapshot(day, prices)
}

// quantityFor sizes an entry, or returns the held quantity for a sell.
func (e *Engine) quantityFor(p *Portfolio, sig domain.Signal, price float64, prices map[string]float64) int64 {
	switch sig.Type {
	case domain.SignalBuy:
		if e.sizer == nil {
			return 0
		}
		return e.sizer.Quantity(p.Value(prices), price)
	case domain.SignalSell:
		if pos := p.Position(sig.Symbol); pos != nil {
			return pos.Quantity
		}
	}
	return 0
}

// currentPrices resolves the latest known close for every symbol with an
// open position or a signal due today.
func (e *Engine) currentPrices(ctx context.Context, p *Portfolio, day time.Time, todays []domain.Signal) map[string]float64 {
	need := make(map[string]struct{})
	for _, sym := range p.Positions() {
		need[sym] = struct{}{}
	}
	for _, sig := range todays {
		need[sig.Symbol] = struct{}{}
	}

	prices := make(map[string]float64, len(need))
	for sym := range need {
		bar, ok := e.prices.AsOf(ctx, sym, day)
		if !ok {
			continue
		}
		prices[sym] = bar.Close
	}
	return prices
}

func groupSignalsByDay(signals []domain.Signal) map[time.Time][]domain.Signal {
	byDay := make(map[time.Time][]domain.Signal)
	for _, sig := range signals {
		d := dateOnly(sig.GeneratedAt)
		byDay[d] = append(byDay[d], sig)
	}
	return byDay
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
