// Package backtest replays historical signals against stored price
// series under simplified portfolio, commission, and slippage
// accounting, and derives performance statistics from the result.
package backtest

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"nivesh/internal/domain"
)

// Configuration errors.
var (
	ErrInitialCapital = errors.New("initial capital must be positive")
	ErrNegativeRate   = errors.New("commission and slippage rates must not be negative")
)

// Exit reasons recorded on sells triggered by an exit condition.
const (
	ReasonStopLoss = "stop_loss_hit"
	ReasonTarget   = "target_hit"
)

// ExitSignal describes a position that should be closed because its
// stop-loss or target level was crossed.
type ExitSignal struct {
	Symbol   string
	Quantity int64
	Reason   string
}

// Portfolio tracks cash, open positions, executed trades, and the daily
// equity curve for one backtest run. A Portfolio is owned exclusively by
// a single run; construct a fresh one (or call Reset) before reuse.
type Portfolio struct {
	initialCapital float64
	commissionRate float64
	slippageRate   float64

	cash      float64
	positions map[string]*domain.Position
	trades    []domain.Trade
	equity    []domain.Snapshot
}

// NewPortfolio creates a portfolio with the given starting capital and
// fractional commission and slippage rates.
func NewPortfolio(initialCapital, commissionRate, slippageRate float64) (*Portfolio, error) {
	if initialCapital <= 0 {
		return nil, ErrInitialCapital
	}
	if commissionRate < 0 || slippageRate < 0 {
		return nil, ErrNegativeRate
	}
	return &Portfolio{
		initialCapital: initialCapital,
		commissionRate: commissionRate,
		slippageRate:   slippageRate,
		cash:           initialCapital,
		positions:      make(map[string]*domain.Position),
	}, nil
}

// Reset restores the portfolio to its initial state so it can be reused
// for another run.
func (p *Portfolio) Reset() {
	p.cash = p.initialCapital
	p.positions = make(map[string]*domain.Position)
	p.trades = nil
	p.equity = nil
}

// Cash returns the current free cash balance.
func (p *Portfolio) Cash() float64 { return p.cash }

// InitialCapital returns the starting capital.
func (p *Portfolio) InitialCapital() float64 { return p.initialCapital }

// Position returns the open position for symbol, or nil.
func (p *Portfolio) Position(symbol string) *domain.Position {
	return p.positions[symbol]
}

// Positions returns the symbols with open positions.
func (p *Portfolio) Positions() []string {
	syms := make([]string, 0, len(p.positions))
	for s := range p.positions {
		syms = append(syms, s)
	}
	return syms
}

// Trades returns the executed trade history in execution order.
func (p *Portfolio) Trades() []domain.Trade { return p.trades }

// Equity returns the recorded daily snapshots in chronological order.
func (p *Portfolio) Equity() []domain.Snapshot { return p.equity }

// ExecuteTrade executes a buy or sell from the given signal at the given
// market price. It returns false when the trade cannot execute:
// insufficient cash for a buy, no open position for a sell, a
// non-positive quantity, or a hold signal. Those are filtering outcomes,
// not errors; cash and position quantities never go negative.
func (p *Portfolio) ExecuteTrade(sig domain.Signal, date time.Time, marketPrice float64, qty int64) bool {
	switch sig.Type {
	case domain.SignalBuy:
		return p.buy(sig, date, marketPrice, qty)
	case domain.SignalSell:
		return p.sell(sig.Symbol, sig.Strategy, "", date, marketPrice, qty)
	default:
		return false
	}
}

// ExecuteExit closes (part of) a position in response to an exit
// condition, recording the reason on the trade.
func (p *Portfolio) ExecuteExit(exit ExitSignal, date time.Time, marketPrice float64) bool {
	return p.sell(exit.Symbol, "", exit.Reason, date, marketPrice, exit.Quantity)
}

func (p *Portfolio) buy(sig domain.Signal, date time.Time, marketPrice float64, qty int64) bool {
	if qty <= 0 || marketPrice <= 0 {
		return false
	}
	execPrice := marketPrice * (1 + p.slippageRate)
	value := float64(qty) * execPrice
	commission := value * p.commissionRate
	total := value + commission
	if p.cash < total {
		return false
	}

	p.cash -= total
	pos, ok := p.positions[sig.Symbol]
	if !ok {
		pos = &domain.Position{Symbol: sig.Symbol}
		p.positions[sig.Symbol] = pos
	}
	// Position cost tracks trade value only; commission is paid from cash
	// but does not inflate the average price.
	pos.Quantity += qty
	pos.TotalCost += value
	pos.AvgPrice = pos.TotalCost / float64(pos.Quantity)

	p.trades = append(p.trades, domain.Trade{
		ID:          uuid.NewString(),
		Symbol:      sig.Symbol,
		Action:      domain.ActionBuy,
		Quantity:    qty,
		Price:       execPrice,
		Commission:  commission,
		Value:       value,
		Date:        date,
		Strategy:    sig.Strategy,
		TargetPrice: sig.TargetPrice,
		StopLoss:    sig.StopLoss,
	})
	return true
}

func (p *Portfolio) sell(symbol, strategy, reason string, date time.Time, marketPrice float64, qty int64) bool {
	if qty <= 0 || marketPrice <= 0 {
		return false
	}
	pos, ok := p.positions[symbol]
	if !ok || pos.Quantity <= 0 {
		return false
	}

	sellQty := qty
	if sellQty > pos.Quantity {
		sellQty = pos.Quantity
	}

	execPrice := marketPrice * (1 - p.slippageRate)
	value := float64(sellQty) * execPrice
	commission := value * p.commissionRate
	p.cash += value - commission

	costReleased := pos.AvgPrice * float64(sellQty)
	pos.Quantity -= sellQty
	pos.TotalCost -= costReleased
	if pos.Quantity == 0 {
		delete(p.positions, symbol)
	} else {
		pos.AvgPrice = pos.TotalCost / float64(pos.Quantity)
	}

	p.trades = append(p.trades, domain.Trade{
		ID:         uuid.NewString(),
		Symbol:     symbol,
		Action:     domain.ActionSell,
		Quantity:   sellQty,
		Price:      execPrice,
		Commission: commission,
		Value:      value,
		Date:       date,
		Strategy:   strategy,
		ExitReason: reason,
	})
	return true
}

// CheckExitConditions inspects the most recent buy for symbol that
// carries stop-loss or target levels. Stop-loss is checked before
// target, so when a single bar crosses both only the stop fires.
func (p *Portfolio) CheckExitConditions(symbol string, currentPrice float64) *ExitSignal {
	pos, ok := p.positions[symbol]
	if !ok || pos.Quantity <= 0 {
		return nil
	}

	for i := len(p.trades) - 1; i >= 0; i-- {
		t := p.trades[i]
		if t.Symbol != symbol || t.Action != domain.ActionBuy {
			continue
		}
		if t.StopLoss <= 0 && t.TargetPrice <= 0 {
			continue
		}
		if t.StopLoss > 0 && currentPrice <= t.StopLoss {
			return &ExitSignal{Symbol: symbol, Quantity: pos.Quantity, Reason: ReasonStopLoss}
		}
		if t.TargetPrice > 0 && currentPrice >= t.TargetPrice {
			return &ExitSignal{Symbol: symbol, Quantity: pos.Quantity, Reason: ReasonTarget}
		}
		return nil
	}
	return nil
}

// Value returns cash plus the marked value of all open positions. A
// position without a current price is valued at its average cost.
func (p *Portfolio) Value(prices map[string]float64) float64 {
	total := p.cash
	for sym, pos := range p.positions {
		if price, ok := prices[sym]; ok {
			total += float64(pos.Quantity) * price
		} else {
			total += float64(pos.Quantity) * pos.AvgPrice
		}
	}
	return total
}

// RecordSnapshot appends one day's valuation to the equity curve.
func (p *Portfolio) RecordSnapshot(date time.Time, prices map[string]float64) domain.Snapshot {
	total := p.Value(prices)
	snap := domain.Snapshot{
		Date:           date,
		TotalValue:     total,
		Cash:           p.cash,
		PositionsValue: total - p.cash,
	}
	p.equity = append(p.equity, snap)
	return snap
}
