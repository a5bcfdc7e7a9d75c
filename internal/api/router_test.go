package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"stockscan/internal/fetch"
	"stockscan/internal/model"
	"stockscan/internal/scan"
	"stockscan/internal/sim"
	"stockscan/internal/universe"
)

func decliningBars(n int) []model.Bar {
	bars := make([]model.Bar, n)
	ts := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := range bars {
		c := 200 - float64(i)
		bars[i] = model.Bar{TS: ts.AddDate(0, 0, i), Open: c, High: c + 1, Low: c - 1, Close: c, Volume: 1000}
	}
	return bars
}

func testServer() *Server {
	fetcher := &fetch.Mock{Bars: map[string][]model.Bar{"aaa": decliningBars(60)}}
	simulator := sim.New(10000, 0.001)
	scanner := scan.New(fetcher, universe.Static([]string{"aaa"}), simulator, nil, scan.Config{
		Delay:      time.Millisecond,
		BatchPause: time.Millisecond,
		RetryDelay: time.Millisecond,
	})
	return &Server{
		Scanner:   scanner,
		Fetcher:   fetcher,
		Simulator: simulator,
	}
}

func TestHandleScan(t *testing.T) {
	mux := testServer().NewRouter()

	body := `{"buy_indicator":"kdj","sell_indicator":"kdj"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/scan", strings.NewReader(body))
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var resp scan.Response
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid response JSON: %v", err)
	}
	if resp.Summary.Successful != 1 || len(resp.TopStocks) != 1 || resp.TopStocks[0] != "AAA" {
		t.Errorf("unexpected scan response: %+v", resp.Summary)
	}
}

func TestHandleScan_BadIndicator(t *testing.T) {
	mux := testServer().NewRouter()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/scan",
		strings.NewReader(`{"buy_indicator":"rsi","sell_indicator":"macd"}`))
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestHandleScan_RequiresPost(t *testing.T) {
	mux := testServer().NewRouter()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/scan", nil)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	if w.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", w.Code)
	}
}

func TestHandleBacktest(t *testing.T) {
	mux := testServer().NewRouter()

	body := `{"symbol":"aaa","buy_indicator":"kdj","sell_indicator":"kdj"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/backtest", strings.NewReader(body))
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var res sim.Result
	if err := json.Unmarshal(w.Body.Bytes(), &res); err != nil {
		t.Fatalf("invalid response JSON: %v", err)
	}
	// Unlike /scan, the single-symbol backtest keeps the trade log.
	if len(res.Trades) == 0 {
		t.Error("expected the trade log in a backtest response")
	}
	if res.Summary.TotalTrades != len(res.Trades) {
		t.Errorf("summary total %d != %d entries", res.Summary.TotalTrades, len(res.Trades))
	}
}

func TestHandleBacktest_UnknownSymbol(t *testing.T) {
	mux := testServer().NewRouter()

	body := `{"symbol":"nope","buy_indicator":"macd","sell_indicator":"macd"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/backtest", strings.NewReader(body))
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown symbol, got %d", w.Code)
	}
}

func TestHandleSignal(t *testing.T) {
	mux := testServer().NewRouter()

	req := httptest.NewRequest(http.MethodGet,
		"/api/v1/signal?symbol=aaa&buy_indicator=kdj&sell_indicator=kdj", nil)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var resp struct {
		Stock     string `json:"stock"`
		Signal    string `json:"signal"`
		Reasoning string `json:"reasoning"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid response JSON: %v", err)
	}
	if resp.Stock != "AAA" {
		t.Errorf("expected uppercased symbol, got %q", resp.Stock)
	}
	// Steady decline: the KDJ side is deeply oversold.
	if resp.Signal != "BUY" {
		t.Errorf("expected BUY, got %q (%s)", resp.Signal, resp.Reasoning)
	}
}

func TestHandleScanOptions(t *testing.T) {
	mux := testServer().NewRouter()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/scan/options", nil)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var opts scan.Options
	if err := json.Unmarshal(w.Body.Bytes(), &opts); err != nil {
		t.Fatalf("invalid response JSON: %v", err)
	}
	if len(opts.Indicators) != 2 || len(opts.ExcludeOperators) == 0 {
		t.Errorf("unexpected options: %+v", opts)
	}
}

func TestHandleUniverse_Unconfigured(t *testing.T) {
	mux := testServer().NewRouter()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/universe", nil)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 without a universe store, got %d", w.Code)
	}
}
