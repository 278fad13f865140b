package builtins

import (
	"context"

	"nivesh/internal/domain"
	"nivesh/internal/strategy"
)

// Compile-time interface check.
var _ strategy.Strategy = (*Breakout)(nil)

// Breakout signals a buy when the latest close clears the highest high
// of the preceding window, sized by how decisively it broke out.
type Breakout struct {
	window int
}

// NewBreakout creates a Breakout strategy over the given window of
// trading days.
func NewBreakout(window int) *Breakout {
	return &Breakout{window: window}
}

// Name returns "breakout".
func (b *Breakout) Name() string { return "breakout" }

// Evaluate checks the latest close against the prior window's high.
func (b *Breakout) Evaluate(_ context.Context, symbol string, bars []domain.Bar) (*domain.Signal, error) {
	high := highestHigh(bars, b.window)
	if high <= 0 {
		return nil, nil
	}

	last := bars[len(bars)-1]
	if last.Close <= high {
		return nil, nil
	}

	margin := (last.Close - high) / high
	confidence := clamp(0.55+5*margin, 0.55, 0.95)
	entry := last.Close

	return newSignal(b.Name(), symbol, domain.SignalBuy, confidence,
		entry, entry*1.10, high*0.97,
		map[string]any{
			"window":       b.window,
			"breakout_ref": high,
			"margin_pct":   margin * 100,
		}), nil
}
