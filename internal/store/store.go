// Package store defines storage interfaces for persisting and retrieving
// domain objects such as bars, signals, consensus signals, and backtest
// results.
package store

import (
	"context"
	"time"

	"nivesh/internal/backtest"
	"nivesh/internal/domain"
)

// BarStore persists and retrieves OHLCV bar data.
type BarStore interface {
	// WriteBars persists a batch of bars under the given market.
	WriteBars(ctx context.Context, market string, bars []domain.Bar) error

	// ReadBars returns bars for the given symbol and market within [start, end].
	ReadBars(ctx context.Context, symbol string, market string, start, end time.Time) ([]domain.Bar, error)

	// ListSymbols returns all distinct symbols available in the given market.
	ListSymbols(ctx context.Context, market string) ([]string, error)
}

// SignalStore persists and retrieves raw strategy signals.
type SignalStore interface {
	// SaveSignals inserts a batch of signals.
	SaveSignals(ctx context.Context, signals []domain.Signal) error

	// ListSignals returns the most recent signals for a strategy, up to
	// limit. An empty strategy matches all strategies.
	ListSignals(ctx context.Context, strategy string, limit int) ([]domain.Signal, error)
}

// ConsensusStore persists and retrieves consensus signals.
type ConsensusStore interface {
	// SaveConsensus replaces the stored consensus set for the given
	// generation time.
	SaveConsensus(ctx context.Context, signals []domain.ConsensusSignal) error

	// LatestConsensus returns the most recently saved consensus set,
	// ordered by descending composite score.
	LatestConsensus(ctx context.Context) ([]domain.ConsensusSignal, error)
}

// ResultStore persists and retrieves backtest results.
type ResultStore interface {
	// SaveResult inserts a completed backtest result.
	SaveResult(ctx context.Context, result *backtest.Result) error

	// GetResult retrieves a backtest result by its run ID.
	GetResult(ctx context.Context, runID string) (*backtest.Result, error)

	// ListResults returns summaries of the most recent runs, up to limit.
	ListResults(ctx context.Context, limit int) ([]backtest.Result, error)
}
