package backtest

import (
	"encoding/json"
	"math"

	"nivesh/internal/domain"
)

// Performance holds the aggregate statistics derived from a finished
// run's equity curve and trade history. These figures are illustrative
// research metrics, not audited risk numbers.
type Performance struct {
	TotalReturn      float64 `json:"total_return"`
	AnnualizedReturn float64 `json:"annualized_return"`
	Volatility       float64 `json:"volatility"`
	SharpeRatio      float64 `json:"sharpe_ratio"`
	MaxDrawdown      float64 `json:"max_drawdown"`
	TotalTrades      int     `json:"total_trades"`
	PairedTrades     int     `json:"paired_trades"`
	WinRate          float64 `json:"win_rate"`
	ProfitFactor     float64 `json:"profit_factor"`
}

// MarshalJSON renders a non-finite profit factor (no losing trades) as
// null so results stay serializable.
func (p Performance) MarshalJSON() ([]byte, error) {
	type alias Performance
	out := struct {
		alias
		ProfitFactor any `json:"profit_factor"`
	}{alias: alias(p)}
	if math.IsInf(p.ProfitFactor, 0) || math.IsNaN(p.ProfitFactor) {
		out.ProfitFactor = nil
	} else {
		out.ProfitFactor = p.ProfitFactor
	}
	return json.Marshal(out)
}

// Analyze derives performance statistics from a run's recorded history.
// It is a pure function: it never mutates its inputs and can be called
// independently of the engine.
func Analyze(initialCapital float64, equity []domain.Snapshot, trades []domain.Trade) Performance {
	perf := Performance{TotalTrades: len(trades)}
	perf.PairedTrades, perf.WinRate, perf.ProfitFactor = pairTrades(trades)
	if initialCapital <= 0 || len(equity) == 0 {
		return perf
	}

	final := equity[len(equity)-1].TotalValue
	perf.TotalReturn = (final - initialCapital) / initialCapital

	days := equity[len(equity)-1].Date.Sub(equity[0].Date).Hours() / 24
	if days > 0 {
		perf.AnnualizedReturn = math.Pow(1+perf.TotalReturn, 365.25/days) - 1
	}

	perf.Volatility = stdev(dailyReturns(equity)) * math.Sqrt(252)
	if perf.Volatility != 0 {
		perf.SharpeRatio = perf.AnnualizedReturn / perf.Volatility
	}

	perf.MaxDrawdown = maxDrawdown(equity)
	return perf
}

func dailyReturns(equity []domain.Snapshot) []float64 {
	if len(equity) < 2 {
		return nil
	}
	rets := make([]float64, 0, len(equity)-1)
	for i := 1; i < len(equity); i++ {
		prev := equity[i-1].TotalValue
		if prev == 0 {
			continue
		}
		rets = append(rets, (equity[i].TotalValue-prev)/prev)
	}
	return rets
}

// stdev returns the sample standard deviation of vs.
func stdev(vs []float64) float64 {
	if len(vs) < 2 {
		return 0
	}
	var sum float64
	for _, v := range vs {
		sum += v
	}
	mean := sum / float64(len(vs))

	var ss float64
	for _, v := range vs {
		d := v - mean
		ss += d * d
	}
	return math.Sqrt(ss / float64(len(vs)-1))
}

// maxDrawdown returns the deepest fall from a running peak over the
// equity curve, expressed as a fraction. It is always <= 0.
func maxDrawdown(equity []domain.Snapshot) float64 {
	var maxDD float64
	peak := equity[0].TotalValue
	for _, snap := range equity {
		if snap.TotalValue > peak {
			peak = snap.TotalValue
		}
		if peak <= 0 {
			continue
		}
		dd := (snap.TotalValue - peak) / peak
		if dd < maxDD {
			maxDD = dd
		}
	}
	return maxDD
}

// pairTrades matches each sell to the most recent prior buy of the same
// symbol and computes the win rate and profit factor over the pairs.
// This is recency pairing, not lot-level FIFO accounting: a deliberate
// simplification for research use.
func pairTrades(trades []domain.Trade) (paired int, winRate, profitFactor float64) {
	var winners int
	var winSum, lossSum float64

	for i, t := range trades {
		if t.Action != domain.ActionSell {
			continue
		}
		buy, ok := priorBuy(trades, i)
		if !ok {
			continue
		}
		pnl := float64(t.Quantity)*(t.Price-buy.Price) - t.Commission - buy.Commission
		paired++
		if pnl > 0 {
			winners++
			winSum += pnl
		} else {
			lossSum += pnl
		}
	}

	if paired == 0 {
		return 0, 0, 0
	}
	winRate = float64(winners) / float64(paired)
	switch {
	case lossSum == 0 && winSum > 0:
		profitFactor = math.Inf(1)
	case lossSum == 0:
		profitFactor = 0
	default:
		profitFactor = winSum / math.Abs(lossSum)
	}
	return paired, winRate, profitFactor
}

// priorBuy finds the most recent buy of the same symbol before index i.
func priorBuy(trades []domain.Trade, i int) (domain.Trade, bool) {
	sell := trades[i]
	for j := i - 1; j >= 0; j-- {
		t := trades[j]
		if t.Symbol == sell.Symbol && t.Action == domain.ActionBuy && !t.Date.After(sell.Date) {
			return t, true
		}
	}
	return domain.Trade{}, false
}
