package httpapi

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"nivesh/internal/backtest"
	"nivesh/internal/config"
	"nivesh/internal/consensus"
	"nivesh/internal/domain"
	"nivesh/internal/engine"
	"nivesh/internal/store"
	"nivesh/internal/strategy"
	"nivesh/internal/util"
)

// fakeStore backs the server with in-memory data.
type fakeStore struct {
	bars      map[string][]domain.Bar
	signals   []domain.Signal
	consensus []domain.ConsensusSignal
	results   map[string]*backtest.Result
}

var _ store.BarStore = (*fakeStore)(nil)
var _ store.SignalStore = (*fakeStore)(nil)
var _ store.ConsensusStore = (*fakeStore)(nil)
var _ store.ResultStore = (*fakeStore)(nil)

func newFakeStore() *fakeStore {
	return &fakeStore{
		bars:    make(map[string][]domain.Bar),
		results: make(map[string]*backtest.Result),
	}
}

func (f *fakeStore) WriteBars(_ context.Context, _ string, bars []domain.Bar) error {
	for _, b := range bars {
		f.bars[b.Symbol] = append(f.bars[b.Symbol], b)
	}
	return nil
}

func (f *fakeStore) ReadBars(_ context.Context, symbol, _ string, start, end time.Time) ([]domain.Bar, error) {
	var out []domain.Bar
	for _, b := range f.bars[symbol] {
		if !b.Timestamp.Before(start) && !b.Timestamp.After(end) {
			out = append(out, b)
		}
	}
	return out, nil
}

func (f *fakeStore) ListSymbols(_ context.Context, _ string) ([]string, error) {
	var symbols []string
	for sym := range f.bars {
		symbols = append(symbols, sym)
	}
	return symbols, nil
}

func (f *fakeStore) SaveSignals(_ context.Context, signals []domain.Signal) error {
	f.signals = append(f.signals, signals...)
	return nil
}

func (f *fakeStore) ListSignals(_ context.Context, _ string, _ int) ([]domain.Signal, error) {
	return f.signals, nil
}

func (f *fakeStore) SaveConsensus(_ context.Context, signals []domain.ConsensusSignal) error {
	f.consensus = append(f.consensus, signals...)
	return nil
}

func (f *fakeStore) LatestConsensus(_ context.Context) ([]domain.ConsensusSignal, error) {
	return f.consensus, nil
}

func (f *fakeStore) SaveResult(_ context.Context, result *backtest.Result) error {
	f.results[result.RunID] = result
	return nil
}

func (f *fakeStore) GetResult(_ context.Context, runID string) (*backtest.Result, error) {
	return f.results[runID], nil
}

func (f *fakeStore) ListResults(_ context.Context, _ int) ([]backtest.Result, error) {
	var out []backtest.Result
	for _, r := range f.results {
		out = append(out, *r)
	}
	return out, nil
}

// steadyBuy emits a buy at the last close on every evaluation.
type steadyBuy struct{ name string }

func (s steadyBuy) Name() string { return s.name }

func (s steadyBuy) Evaluate(_ context.Context, symbol string, bars []domain.Bar) (*domain.Signal, error) {
	last := bars[len(bars)-1]
	return &domain.Signal{
		Symbol: symbol, Strategy: s.name, Type: domain.SignalBuy,
		Confidence: 0.8, EntryPrice: last.Close,
		TargetPrice: last.Close * 10, StopLoss: last.Close / 10,
		GeneratedAt: last.Timestamp,
	}, nil
}

func testHandler(t *testing.T, st *fakeStore) http.Handler {
	t.Helper()

	log := slog.Default()
	reg := strategy.NewRegistry()
	reg.Register(steadyBuy{"alpha"})
	reg.Register(steadyBuy{"beta"})
	reg.Register(steadyBuy{"gamma"})

	builder, err := consensus.NewBuilder(consensus.DefaultConfig(), log)
	if err != nil {
		t.Fatalf("NewBuilder: %v", err)
	}

	cfg := config.Default()
	cal := util.NewTradingCalendar(domain.MarketNSE)
	svc := engine.NewService(reg, builder, st, st, st, st, cal, cfg, log)

	return NewServer(svc, st, st, st, "nse", log).Handler()
}

func addBars(st *fakeStore, symbol string, start time.Time, closes ...float64) {
	cal := util.NewTradingCalendar(domain.MarketNSE)
	d := start
	for _, c := range closes {
		for !cal.IsTradingDay(d) {
			d = d.AddDate(0, 0, 1)
		}
		st.bars[symbol] = append(st.bars[symbol], domain.Bar{
			Symbol: symbol, Timestamp: d,
			Open: c, High: c, Low: c, Close: c, Volume: 1000,
		})
		d = d.AddDate(0, 0, 1)
	}
}

func TestHealthz(t *testing.T) {
	h := testHandler(t, newFakeStore())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /healthz = %d, want 200", rec.Code)
	}
}

func TestGetConsensus(t *testing.T) {
	st := newFakeStore()
	st.consensus = []domain.ConsensusSignal{
		{Symbol: "RELIANCE", Type: domain.SignalBuy, ConsensusConfidence: 0.8,
			CompositeScore: 0.7, QualityTier: domain.TierMedium},
	}
	h := testHandler(t, st)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/api/v1/consensus", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /api/v1/consensus = %d, want 200", rec.Code)
	}

	var resp ConsensusResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.Count != 1 || resp.Signals[0].Symbol != "RELIANCE" {
		t.Errorf("response = %+v, want the RELIANCE signal", resp)
	}
}

func TestScanEndpoint(t *testing.T) {
	st := newFakeStore()
	start := time.Now().UTC().AddDate(0, 0, -30)
	addBars(st, "RELIANCE", start, 100, 101, 102, 103, 104)
	h := testHandler(t, st)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("POST", "/api/v1/scan", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("POST /api/v1/scan = %d, want 200, body %s", rec.Code, rec.Body)
	}

	var resp ScanResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if !resp.Success || resp.Count != 1 {
		t.Errorf("response = %+v, want success with one consensus signal", resp)
	}

	// An immediate second scan hits the rate limit.
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("POST", "/api/v1/scan", nil))
	if rec.Code != http.StatusTooManyRequests {
		t.Errorf("second POST /api/v1/scan = %d, want 429", rec.Code)
	}
}

func TestBacktestEndpoints(t *testing.T) {
	st := newFakeStore()
	addBars(st, "INFY", time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC),
		100, 102, 104, 106, 108, 110, 112, 114, 116, 118)
	h := testHandler(t, st)

	body := `{"start_date":"2025-06-02T00:00:00Z","end_date":"2025-06-13T00:00:00Z","symbols":["INFY"]}`
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("POST", "/api/v1/backtests", strings.NewReader(body)))
	if rec.Code != http.StatusOK {
		t.Fatalf("POST /api/v1/backtests = %d, want 200, body %s", rec.Code, rec.Body)
	}

	var resp BacktestResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if !resp.Success || resp.Result == nil || resp.Result.RunID == "" {
		t.Fatalf("response = %+v, want a result with a run ID", resp)
	}

	// Fetch the run back by ID.
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/api/v1/backtests/"+resp.Result.RunID, nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /api/v1/backtests/{id} = %d, want 200", rec.Code)
	}

	// Unknown ID is a 404.
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/api/v1/backtests/no-such-run", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("GET unknown backtest = %d, want 404", rec.Code)
	}

	// Listing includes the run.
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/api/v1/backtests", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /api/v1/backtests = %d, want 200", rec.Code)
	}
	var list BacktestListResponse
	if err := json.NewDecoder(rec.Body).Decode(&list); err != nil {
		t.Fatalf("decoding list: %v", err)
	}
	if list.Count != 1 {
		t.Errorf("list count = %d, want 1", list.Count)
	}
}

func TestBacktestBadRequest(t *testing.T) {
	h := testHandler(t, newFakeStore())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("POST", "/api/v1/backtests", strings.NewReader("{not json")))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("malformed body = %d, want 400", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("POST", "/api/v1/backtests", strings.NewReader("{}")))
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("missing dates = %d, want 422", rec.Code)
	}

	var errResp map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&errResp); err != nil {
		t.Fatalf("decoding error body: %v", err)
	}
	if errResp["error"] == "" {
		t.Error("error responses should carry an error message")
	}
}

func TestGetBars(t *testing.T) {
	st := newFakeStore()
	addBars(st, "TCS", time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC), 3900, 3910, 3920)
	h := testHandler(t, st)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/api/v1/bars/tcs?start=2025-06-01&end=2025-06-30", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /api/v1/bars/tcs = %d, want 200", rec.Code)
	}

	var resp BarsResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.Symbol != "TCS" {
		t.Errorf("symbol = %s, want uppercased TCS", resp.Symbol)
	}
	if resp.Count != 3 {
		t.Errorf("count = %d, want 3", resp.Count)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/api/v1/bars/TCS?start=junk", nil))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad start date = %d, want 400", rec.Code)
	}
}
