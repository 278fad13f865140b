package builtins

import (
	"context"

	"nivesh/internal/domain"
	"nivesh/internal/strategy"
)

// Compile-time interface check.
var _ strategy.Strategy = (*Multibagger)(nil)

// Multibagger looks for stocks that have multiplied over a long horizon
// and are consolidating rather than collapsing: price at a multiple of
// its level one horizon ago, with the current close holding within a
// tolerable pullback from the horizon high.
type Multibagger struct {
	horizon     int     // trading days, e.g. 250 for roughly a year
	minMultiple float64 // e.g. 2.0 for a two-bagger
	maxPullback float64 // e.g. 0.20 for 20% off the horizon high
}

// NewMultibagger creates a Multibagger strategy.
func NewMultibagger(horizon int, minMultiple, maxPullback float64) *Multibagger {
	return &Multibagger{horizon: horizon, minMultiple: minMultiple, maxPullback: maxPullback}
}

// Name returns "multibagger".
func (m *Multibagger) Name() string { return "multibagger" }

// Evaluate checks the long-horizon multiple and the pullback from the
// horizon high.
func (m *Multibagger) Evaluate(_ context.Context, symbol string, bars []domain.Bar) (*domain.Signal, error) {
	if len(bars) < m.horizon+1 {
		return nil, nil
	}

	last := bars[len(bars)-1]
	base := bars[len(bars)-1-m.horizon].Close
	if base <= 0 {
		return nil, nil
	}
	multiple := last.Close / base
	if multiple < m.minMultiple {
		return nil, nil
	}

	high := highestHigh(bars, m.horizon)
	if high <= 0 {
		return nil, nil
	}
	pullback := (high - last.Close) / high
	if pullback > m.maxPullback {
		return nil, nil
	}

	confidence := clamp(0.55+0.1*(multiple-m.minMultiple), 0.55, 0.9)
	entry := last.Close

	return newSignal(m.Name(), symbol, domain.SignalBuy, confidence,
		entry, entry*1.25, entry*(1-m.maxPullback),
		map[string]any{
			"horizon":      m.horizon,
			"multiple":     multiple,
			"pullback_pct": pullback * 100,
		}), nil
}
