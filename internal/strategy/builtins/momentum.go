package builtins

import (
	"context"

	"nivesh/internal/domain"
	"nivesh/internal/strategy"
)

// Compile-time interface check.
var _ strategy.Strategy = (*Momentum)(nil)

// Momentum signals a buy when the trailing return over its lookback
// window clears a threshold on above-average volume, and a sell when
// the return falls through the negative of that threshold.
type Momentum struct {
	lookback  int
	minReturn float64 // e.g. 0.05 for 5% over the lookback

}

// NewMomentum creates a Momentum strategy with the given lookback in
// trading days and minimum trailing return.
func NewMomentum(lookback int, minReturn float64) *Momentum {
	return &Momentum{lookback: lookback, minReturn: minReturn}
}

// Name returns "momentum".
func (m *Momentum) Name() string { return "momentum" }

// Evaluate scores the symbol's trailing return.
func (m *Momentum) Evaluate(_ context.Context, symbol string, bars []domain.Bar) (*domain.Signal, error) {
	if len(bars) < m.lookback+1 {
		return nil, nil
	}

	last := bars[len(bars)-1]
	base := bars[len(bars)-1-m.lookback].Close
	if base <= 0 {
		return nil, nil
	}
	ret := (last.Close - base) / base

	meta := map[string]any{
		"lookback":   m.lookback,
		"return_pct": ret * 100,
	}

	switch {
	case ret >= m.minReturn:
		vol := avgVolume(bars, m.lookback)
		if vol > 0 && float64(last.Volume) < 0.8*vol {
			// Rising price on fading volume is not a momentum setup.
			return nil, nil
		}
		confidence := clamp(0.5+ret, 0.5, 1)
		entry := last.Close
		return newSignal(m.Name(), symbol, domain.SignalBuy, confidence,
			entry, entry*(1+2*m.minReturn), entry*0.95, meta), nil

	case ret <= -m.minReturn:
		confidence := clamp(0.5-ret, 0.5, 1)
		return newSignal(m.Name(), symbol, domain.SignalSell, confidence,
			last.Close, 0, 0, meta), nil
	}
	return nil, nil
}
