package backtest

import (
	"errors"
	"math"
)

// ErrPositionPct reports an out-of-range position sizing fraction.
var ErrPositionPct = errors.New("max position pct must be in (0,1]")

// Sizer allocates share quantities for entry signals, capping each
// position at a fraction of current portfolio equity.
type Sizer struct {
	maxPositionPct float64
}

// NewSizer creates a Sizer capping single positions at maxPositionPct of
// equity (e.g. 0.10 for 10%).
func NewSizer(maxPositionPct float64) (*Sizer, error) {
	if maxPositionPct <= 0 || maxPositionPct > 1 {
		return nil, ErrPositionPct
	}
	return &Sizer{maxPositionPct: maxPositionPct}, nil
}

// Quantity returns the number of shares to buy at price given current
// equity. It returns 0 when the budget does not cover a single share.
func (s *Sizer) Quantity(equity, price float64) int64 {
	if price <= 0 || equity <= 0 {
		return 0
	}
	budget := equity * s.maxPositionPct
	return int64(math.Floor(budget / price))
}
