// Package domain defines the core value types shared across the nivesh
// platform: daily bars, strategy signals, consensus signals, and the
// portfolio records produced by backtest runs.
package domain

import "time"

// Market identifies the market a symbol trades on.
type Market string

// Supported markets.
const (
	MarketNSE Market = "nse"
)

// Bar is one day of OHLCV data for a symbol.
type Bar struct {
	Symbol    string    `json:"symbol"`
	Timestamp time.Time `json:"timestamp"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    int64     `json:"volume"`
}

// SignalType classifies the direction of a trading signal.
type SignalType string

// Signal types.
const (
	SignalBuy  SignalType = "buy"
	SignalSell SignalType = "sell"
	SignalHold SignalType = "hold"
)

// Signal is one strategy's opinion on one symbol at one point in time.
// It is immutable once created: the consensus layer reads signals but
// never mutates them. Metadata carries strategy-specific extras (RSI,
// growth %, etc.) and is opaque to everything downstream of the strategy.
type Signal struct {
	Symbol      string         `json:"symbol"`
	Strategy    string         `json:"strategy"`
	Type        SignalType     `json:"type"`
	Confidence  float64        `json:"confidence"` // [0,1]
	EntryPrice  float64        `json:"entry_price"`
	TargetPrice float64        `json:"target_price"`
	StopLoss    float64        `json:"stop_loss"` // 0 means unset
	GeneratedAt time.Time      `json:"generated_at"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// QualityTier is the platform's confidence classification for a
// consensus signal, derived from its composite score.
type QualityTier string

// Quality tiers.
const (
	TierHigh   QualityTier = "high"
	TierMedium QualityTier = "medium"
	TierLow    QualityTier = "low"
)

// ConsensusSignal is the aggregated recommendation for one symbol,
// formed from the signals of several independent strategies.
type ConsensusSignal struct {
	Symbol               string      `json:"symbol"`
	Type                 SignalType  `json:"type"`
	ConsensusConfidence  float64     `json:"consensus_confidence"` // [0,1]
	AgreementRatio       float64     `json:"agreement_ratio"`      // [0.5,1]
	SupportingStrategies int         `json:"supporting_strategies"`
	TotalStrategies      int         `json:"total_strategies"`
	EntryPrice           float64     `json:"entry_price"`
	TargetPrice          float64     `json:"target_price"`
	StopLoss             float64     `json:"stop_loss"`
	CompositeScore       float64     `json:"composite_score"`
	QualityTier          QualityTier `json:"quality_tier"`
	GeneratedAt          time.Time   `json:"generated_at"`
}

// Position is one open holding inside a backtest portfolio.
// AvgPrice * Quantity == TotalCost holds after every mutation.
type Position struct {
	Symbol    string  `json:"symbol"`
	Quantity  int64   `json:"quantity"`
	AvgPrice  float64 `json:"avg_price"`
	TotalCost float64 `json:"total_cost"`
}

// TradeAction distinguishes executed buys from sells.
type TradeAction string

// Trade actions.
const (
	ActionBuy  TradeAction = "buy"
	ActionSell TradeAction = "sell"
)

// Trade is an immutable record of one executed buy or sell in a
// backtest. ExitReason is set on sells triggered by an exit condition
// ("stop_loss_hit" or "target_hit").
type Trade struct {
	ID         string      `json:"id"`
	Symbol     string      `json:"symbol"`
	Action     TradeAction `json:"action"`
	Quantity   int64       `json:"quantity"`
	Price      float64     `json:"price"` // execution price after slippage
	Commission float64     `json:"commission"`
	Value      float64     `json:"value"` // quantity * price
	Date       time.Time   `json:"date"`
	Strategy   string      `json:"strategy,omitempty"`
	ExitReason string      `json:"exit_reason,omitempty"`

	// Levels carried from the originating signal, consulted by exit checks.
	TargetPrice float64 `json:"target_price,omitempty"`
	StopLoss    float64 `json:"stop_loss,omitempty"`
}

// Snapshot is one simulated day's portfolio valuation.
type Snapshot struct {
	Date           time.Time `json:"date"`
	TotalValue     float64   `json:"total_value"`
	Cash           float64   `json:"cash"`
	PositionsValue float64   `json:"positions_value"`
}
