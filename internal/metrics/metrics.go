// Package metrics exposes the platform's Prometheus instrumentation.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	ScansTotal = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "nivesh_scans_total", Help: "Universe scans executed"},
	)
	SignalsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "nivesh_signals_total", Help: "Raw strategy signals generated"},
		[]string{"strategy", "type"},
	)
	ConsensusTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "nivesh_consensus_signals_total", Help: "Consensus signals emitted"},
		[]string{"tier"},
	)
	BacktestsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "nivesh_backtests_total", Help: "Backtest runs completed"},
	)
	BacktestTrades = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "nivesh_backtest_trades_total", Help: "Trades executed inside backtest runs"},
		[]string{"action"},
	)
)

func init() {
	prometheus.MustRegister(ScansTotal, SignalsTotal, ConsensusTotal, BacktestsTotal, BacktestTrades)
}

// Handler returns the HTTP handler serving the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
