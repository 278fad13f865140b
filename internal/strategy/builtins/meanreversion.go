package builtins

import (
	"context"

	"nivesh/internal/domain"
	"nivesh/internal/strategy"
)

// Compile-time interface check.
var _ strategy.Strategy = (*MeanReversion)(nil)

// MeanReversion buys when price has stretched below its moving average
// by more than the configured deviation and sells when it has stretched
// above, betting on a return to the mean.
type MeanReversion struct {
	period       int
	minDeviation float64 // e.g. 0.08 for 8% from the SMA
}

// NewMeanReversion creates a MeanReversion strategy around an SMA of
// the given period.
func NewMeanReversion(period int, minDeviation float64) *MeanReversion {
	return &MeanReversion{period: period, minDeviation: minDeviation}
}

// Name returns "mean-reversion".
func (m *MeanReversion) Name() string { return "mean-reversion" }

// Evaluate measures the latest close's deviation from the SMA.
func (m *MeanReversion) Evaluate(_ context.Context, symbol string, bars []domain.Bar) (*domain.Signal, error) {
	avg := sma(bars, m.period)
	if avg <= 0 {
		return nil, nil
	}

	last := bars[len(bars)-1]
	deviation := (last.Close - avg) / avg

	meta := map[string]any{
		"sma_period":    m.period,
		"sma":           avg,
		"deviation_pct": deviation * 100,
	}

	switch {
	case deviation <= -m.minDeviation:
		confidence := clamp(0.5-2*deviation, 0.5, 0.9)
		entry := last.Close
		return newSignal(m.Name(), symbol, domain.SignalBuy, confidence,
			entry, avg, entry*0.93, meta), nil

	case deviation >= m.minDeviation:
		confidence := clamp(0.5+2*deviation, 0.5, 0.9)
		return newSignal(m.Name(), symbol, domain.SignalSell, confidence,
			last.Close, 0, 0, meta), nil
	}
	return nil, nil
}
