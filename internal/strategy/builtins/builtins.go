// Package builtins provides the rule-based strategies that ship with
// the nivesh platform. Each one is a simple threshold scorer over daily
// bars: it sets a confidence, price levels, and the indicator values
// that drove the decision in the signal's metadata.
package builtins

import (
	"time"

	"nivesh/internal/domain"
)

// sma returns the simple moving average of the last period closes, or 0
// when there is not enough history.
func sma(bars []domain.Bar, period int) float64 {
	if period <= 0 || len(bars) < period {
		return 0
	}
	var sum float64
	for _, b := range bars[len(bars)-period:] {
		sum += b.Close
	}
	return sum / float64(period)
}

// highestHigh returns the maximum high over the last period bars
// excluding the final bar, or 0 when there is not enough history.
func highestHigh(bars []domain.Bar, period int) float64 {
	if period <= 0 || len(bars) < period+1 {
		return 0
	}
	window := bars[len(bars)-period-1 : len(bars)-1]
	high := window[0].High
	for _, b := range window[1:] {
		if b.High > high {
			high = b.High
		}
	}
	return high
}

// avgVolume returns the mean volume over the last period bars excluding
// the final bar.
func avgVolume(bars []domain.Bar, period int) float64 {
	if period <= 0 || len(bars) < period+1 {
		return 0
	}
	var sum float64
	for _, b := range bars[len(bars)-period-1 : len(bars)-1] {
		sum += float64(b.Volume)
	}
	return sum / float64(period)
}

// clamp bounds v to [lo, hi].
func clamp(v, lo, hi float64) float64 {
	switch {
	case v < lo:
		return lo
	case v > hi:
		return hi
	default:
		return v
	}
}

// newSignal fills the fields common to every builtin's output.
func newSignal(strategy, symbol string, typ domain.SignalType, confidence, entry, target, stop float64, meta map[string]any) *domain.Signal {
	return &domain.Signal{
		Symbol:      symbol,
		Strategy:    strategy,
		Type:        typ,
		Confidence:  confidence,
		EntryPrice:  entry,
		TargetPrice: target,
		StopLoss:    stop,
		GeneratedAt: time.Now().UTC(),
		Metadata:    meta,
	}
}
