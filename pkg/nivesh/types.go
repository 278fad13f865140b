package nivesh

import "time"

// Wire types for the nivesh-server API. These mirror the server's JSON
// payloads so importers of the SDK never depend on server packages.

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

// ConsensusSignal is one symbol's aggregated multi-strategy signal.
type ConsensusSignal struct {
	Symbol               string    `json:"symbol"`
	Type                 string    `json:"type"`
	ConsensusConfidence  float64   `json:"consensus_confidence"`
	AgreementRatio       float64   `json:"agreement_ratio"`
	SupportingStrategies int       `json:"supporting_strategies"`
	TotalStrategies      int       `json:"total_strategies"`
	EntryPrice           float64   `json:"entry_price"`
	TargetPrice          float64   `json:"target_price"`
	StopLoss             float64   `json:"stop_loss"`
	CompositeScore       float64   `json:"composite_score"`
	QualityTier          string    `json:"quality_tier"`
	GeneratedAt          time.Time `json:"generated_at"`
}

// Trade is one executed backtest fill.
type Trade struct {
	ID          string    `json:"id"`
	Symbol      string    `json:"symbol"`
	Action      string    `json:"action"`
	Quantity    int64     `json:"quantity"`
	Price       float64   `json:"price"`
	Commission  float64   `json:"commission"`
	Value       float64   `json:"value"`
	Date        time.Time `json:"date"`
	Strategy    string    `json:"strategy,omitempty"`
	ExitReason  string    `json:"exit_reason,omitempty"`
	TargetPrice float64   `json:"target_price,omitempty"`
	StopLoss    float64   `json:"stop_loss,omitempty"`
}

// Snapshot is one day's portfolio valuation.
type Snapshot struct {
	Date           time.Time `json:"date"`
	TotalValue     float64   `json:"total_value"`
	Cash           float64   `json:"cash"`
	PositionsValue float64   `json:"positions_value"`
}

// Performance summarizes a backtest run. ProfitFactor is nil when the run
// had no losing trades (the server encodes it as null).
type Performance struct {
	TotalReturn      float64  `json:"total_return"`
	AnnualizedReturn float64  `json:"annualized_return"`
	Volatility       float64  `json:"volatility"`
	SharpeRatio      float64  `json:"sharpe_ratio"`
	MaxDrawdown      float64  `json:"max_drawdown"`
	TotalTrades      int      `json:"total_trades"`
	PairedTrades     int      `json:"paired_trades"`
	WinRate          float64  `json:"win_rate"`
	ProfitFactor     *float64 `json:"profit_factor"`
}

// BacktestResult is a completed backtest run. List responses carry the
// summary fields only, with empty trades and equity curve.
type BacktestResult struct {
	RunID          string      `json:"run_id"`
	StartDate      time.Time   `json:"start_date"`
	EndDate        time.Time   `json:"end_date"`
	InitialCapital float64     `json:"initial_capital"`
	FinalCapital   float64     `json:"final_capital"`
	Trades         []Trade     `json:"trades"`
	EquityCurve    []Snapshot  `json:"equity_curve"`
	Performance    Performance `json:"performance"`
}

// BacktestRequest asks the server to run a backtest. Symbols defaults to
// the configured universe and InitialCapital to the configured default
// when left zero.
type BacktestRequest struct {
	StartDate      time.Time `json:"start_date"`
	EndDate        time.Time `json:"end_date"`
	Symbols        []string  `json:"symbols,omitempty"`
	InitialCapital float64   `json:"initial_capital,omitempty"`
}
