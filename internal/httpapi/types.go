// Package httpapi provides the platform's HTTP REST API: consensus
// queries, universe scans, backtest runs, and bar history in JSON.
package httpapi

import (
	"nivesh/internal/backtest"
	"nivesh/internal/domain"
)

// ConsensusResponse wraps the latest consensus set.
type ConsensusResponse struct {
	Count   int                      `json:"count"`
	Signals []domain.ConsensusSignal `json:"signals"`
}

// ScanResponse reports the outcome of a scan run.
type ScanResponse struct {
	Success bool                     `json:"success"`
	Count   int                      `json:"count"`
	Signals []domain.ConsensusSignal `json:"signals"`
}

// BacktestResponse wraps a completed backtest run.
type BacktestResponse struct {
	Success bool             `json:"success"`
	Result  *backtest.Result `json:"result"`
}

// BacktestListResponse lists recent run summaries.
type BacktestListResponse struct {
	Count   int               `json:"count"`
	Results []backtest.Result `json:"results"`
}

// BarsResponse holds bar history for one symbol.
type BarsResponse struct {
	Symbol string       `json:"symbol"`
	Count  int          `json:"count"`
	Bars   []domain.Bar `json:"bars"`
}
