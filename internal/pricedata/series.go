// Package pricedata serves per-symbol daily price series to the
// backtest engine, with an explicit caller-owned cache in front of the
// bar store.
package pricedata

import (
	"context"
	"sort"
	"time"

	"nivesh/internal/domain"
)

// Series is one symbol's daily bars, held sorted by timestamp ascending
// for binary-search lookups.
type Series struct {
	symbol string
	bars   []domain.Bar
}

// NewSeries builds a Series from bars in any order. Bars are copied and
// sorted; the input slice is not retained.
func NewSeries(symbol string, bars []domain.Bar) *Series {
	sorted := make([]domain.Bar, len(bars))
	copy(sorted, bars)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.Before(sorted[j].Timestamp)
	})
	return &Series{symbol: symbol, bars: sorted}
}

// Symbol returns the symbol this series covers.
func (s *Series) Symbol() string { return s.symbol }

// Len returns the number of bars.
func (s *Series) Len() int { return len(s.bars) }

// Bars returns the sorted bars.
func (s *Series) Bars() []domain.Bar { return s.bars }

// AsOf returns the latest bar at or before date. Missing trading days
// resolve to the most recent prior bar; dates before the first bar
// return false.
func (s *Series) AsOf(date time.Time) (domain.Bar, bool) {
	// First index strictly after date.
	i := sort.Search(len(s.bars), func(i int) bool {
		return s.bars[i].Timestamp.After(date)
	})
	if i == 0 {
		return domain.Bar{}, false
	}
	return s.bars[i-1], true
}

// Close returns the latest known close at or before date.
func (s *Series) Close(date time.Time) (float64, bool) {
	bar, ok := s.AsOf(date)
	if !ok {
		return 0, false
	}
	return bar.Close, true
}

// Loader fetches the full daily history for a symbol, typically backed
// by a BarStore.
type Loader func(ctx context.Context, symbol string) ([]domain.Bar, error)

// Provider resolves the latest bar at or before a date for a symbol.
type Provider interface {
	AsOf(ctx context.Context, symbol string, date time.Time) (domain.Bar, bool)
}
