package httpapi

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"nivesh/internal/engine"
	"nivesh/internal/metrics"
	"nivesh/internal/store"
	"nivesh/internal/util"
)

// Server serves the platform's REST API.
type Server struct {
	svc       *engine.Service
	bars      store.BarStore
	consensus store.ConsensusStore
	results   store.ResultStore
	market    string
	log       *slog.Logger

	// Scans are expensive; one per minute is plenty.
	scanLimiter *util.RateLimiter
}

// NewServer creates a Server wired with the orchestration service and the
// stores it reads from.
func NewServer(
	svc *engine.Service,
	bars store.BarStore,
	consensusStore store.ConsensusStore,
	results store.ResultStore,
	market string,
	log *slog.Logger,
) *Server {
	return &Server{
		svc:         svc,
		bars:        bars,
		consensus:   consensusStore,
		results:     results,
		market:      market,
		log:         log,
		scanLimiter: util.NewRateLimiter(1),
	}
}

// RegisterRoutes registers all API routes on the given mux.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/consensus", s.handleConsensus)
	mux.HandleFunc("POST /api/v1/scan", s.handleScan)
	mux.HandleFunc("POST /api/v1/backtests", s.handleRunBacktest)
	mux.HandleFunc("GET /api/v1/backtests", s.handleListBacktests)
	mux.HandleFunc("GET /api/v1/backtests/{id}", s.handleGetBacktest)
	mux.HandleFunc("GET /api/v1/bars/{symbol}", s.handleBars)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.Handle("GET /metrics", metrics.Handler())
}

// Handler returns an http.Handler with CORS middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.RegisterRoutes(mux)
	return corsMiddleware(mux)
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encoding JSON response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, map[string]string{"status": "ok"})
}

func (s *Server) handleConsensus(w http.ResponseWriter, r *http.Request) {
	signals, err := s.consensus.LatestConsensus(r.Context())
	if err != nil {
		s.log.Error("loading consensus", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load consensus")
		return
	}
	writeJSON(w, ConsensusResponse{Count: len(signals), Signals: signals})
}

func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	limitCtx, cancel := context.WithTimeout(r.Context(), 100*time.Millisecond)
	defer cancel()
	if err := s.scanLimiter.Wait(limitCtx); err != nil {
		writeError(w, http.StatusTooManyRequests, "scan rate limit exceeded")
		return
	}

	signals, err := s.svc.Scan(r.Context())
	if err != nil {
		s.log.Error("scan failed", "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, ScanResponse{Success: true, Count: len(signals), Signals: signals})
}

func (s *Server) handleRunBacktest(w http.ResponseWriter, r *http.Request) {
	var req engine.BacktestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}

	result, err := s.svc.RunBacktest(r.Context(), req)
	if err != nil {
		s.log.Error("backtest failed", "error", err)
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	writeJSON(w, BacktestResponse{Success: true, Result: result})
}

func (s *Server) handleListBacktests(w http.ResponseWriter, r *http.Request) {
	results, err := s.results.ListResults(r.Context(), 50)
	if err != nil {
		s.log.Error("listing backtests", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list backtests")
		return
	}
	writeJSON(w, BacktestListResponse{Count: len(results), Results: results})
}

func (s *Server) handleGetBacktest(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	result, err := s.results.GetResult(r.Context(), id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			writeError(w, http.StatusNotFound, fmt.Sprintf("backtest %s not found", id))
			return
		}
		s.log.Error("loading backtest", "run_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load backtest")
		return
	}
	if result == nil {
		writeError(w, http.StatusNotFound, fmt.Sprintf("backtest %s not found", id))
		return
	}
	writeJSON(w, BacktestResponse{Success: true, Result: result})
}

func (s *Server) handleBars(w http.ResponseWriter, r *http.Request) {
	symbol := strings.ToUpper(r.PathValue("symbol"))

	end := time.Now().UTC()
	start := end.AddDate(-1, 0, 0)
	if v := r.URL.Query().Get("start"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "start must be YYYY-MM-DD")
			return
		}
		start = t
	}
	if v := r.URL.Query().Get("end"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "end must be YYYY-MM-DD")
			return
		}
		end = t
	}

	bars, err := s.bars.ReadBars(r.Context(), symbol, s.market, start, end)
	if err != nil {
		s.log.Error("reading bars", "symbol", symbol, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to read bars")
		return
	}
	writeJSON(w, BarsResponse{Symbol: symbol, Count: len(bars), Bars: bars})
}
