// Package api provides the HTTP handlers for the scan service.
package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"stockscan/internal/fetch"
	"stockscan/internal/scan"
	"stockscan/internal/signal"
	"stockscan/internal/sim"
	"stockscan/internal/universe"
)

// Server holds the dependencies the handlers need. Resolver may be nil when
// no universe store is configured; the /universe endpoint then returns 503.
type Server struct {
	Scanner   *scan.Scanner
	Fetcher   fetch.Fetcher
	Simulator *sim.Simulator
	Resolver  *universe.Resolver
}

// NewRouter sets up HTTP routes for the API server.
func (s *Server) NewRouter() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/v1/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	mux.HandleFunc("/api/v1/scan", s.handleScan)
	mux.HandleFunc("/api/v1/scan/options", s.handleScanOptions)
	mux.HandleFunc("/api/v1/backtest", s.handleBacktest)
	mux.HandleFunc("/api/v1/signal", s.handleSignal)
	mux.HandleFunc("/api/v1/universe", s.handleUniverse)

	return mux
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[api] encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

// handleScan runs a market scan. POST only; the request body is a
// scan.Request. The response is the aggregate scan output.
func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "use POST")
		return
	}

	var req scan.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	resp, err := s.Scanner.Scan(r.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, scan.ErrInvalidParameter),
			errors.Is(err, scan.ErrEmptyCandidateSet):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			log.Printf("[api] scan failed: %v", err)
			writeError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleScanOptions returns the fixed vocabularies a scan request accepts.
func (s *Server) handleScanOptions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scan.CriteriaOptions())
}

type backtestRequest struct {
	Symbol        string   `json:"symbol"`
	Period        string   `json:"period"`
	Interval      string   `json:"interval"`
	BuyIndicator  string   `json:"buy_indicator"`
	SellIndicator string   `json:"sell_indicator"`
	BuyThreshold  *float64 `json:"buy_threshold,omitempty"`
	SellThreshold *float64 `json:"sell_threshold,omitempty"`
}

// handleBacktest runs a single-symbol simulation and returns the full result
// including the trade log.
func (s *Server) handleBacktest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "use POST")
		return
	}

	var req backtestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.Symbol == "" {
		writeError(w, http.StatusBadRequest, "symbol is required")
		return
	}
	buyInd := strings.ToLower(req.BuyIndicator)
	sellInd := strings.ToLower(req.SellIndicator)
	if !signal.ValidIndicator(buyInd) || !signal.ValidIndicator(sellInd) {
		writeError(w, http.StatusBadRequest, "unknown indicator")
		return
	}
	period := req.Period
	if period == "" {
		period = "6mo"
	}
	interval := req.Interval
	if interval == "" {
		interval = "1d"
	}

	bars, err := s.Fetcher.History(r.Context(), req.Symbol, period, interval)
	if err != nil {
		writeError(w, http.StatusBadGateway, "fetch failed: "+err.Error())
		return
	}
	if len(bars) == 0 {
		writeError(w, http.StatusNotFound, "no data for symbol "+req.Symbol)
		return
	}

	cfg := signal.NewConfig(buyInd, sellInd)
	if req.BuyThreshold != nil {
		cfg.BuyThreshold = *req.BuyThreshold
	}
	if req.SellThreshold != nil {
		cfg.SellThreshold = *req.SellThreshold
	}

	res, err := s.Simulator.Run(bars, cfg)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// handleSignal reports the current signal for one symbol.
// GET /api/v1/signal?symbol=AAPL&buy_indicator=macd&sell_indicator=kdj
func (s *Server) handleSignal(w http.ResponseWriter, r *http.Request) {
	symbol := r.URL.Query().Get("symbol")
	if symbol == "" {
		writeError(w, http.StatusBadRequest, "symbol is required")
		return
	}
	buyInd := strings.ToLower(r.URL.Query().Get("buy_indicator"))
	if buyInd == "" {
		buyInd = signal.IndicatorMACD
	}
	sellInd := strings.ToLower(r.URL.Query().Get("sell_indicator"))
	if sellInd == "" {
		sellInd = signal.IndicatorMACD
	}
	if !signal.ValidIndicator(buyInd) || !signal.ValidIndicator(sellInd) {
		writeError(w, http.StatusBadRequest, "unknown indicator")
		return
	}
	period := r.URL.Query().Get("period")
	if period == "" {
		period = "6mo"
	}
	interval := r.URL.Query().Get("interval")
	if interval == "" {
		interval = "1d"
	}

	bars, err := s.Fetcher.History(r.Context(), symbol, period, interval)
	if err != nil {
		writeError(w, http.StatusBadGateway, "fetch failed: "+err.Error())
		return
	}
	if len(bars) == 0 {
		writeError(w, http.StatusNotFound, "no data for symbol "+symbol)
		return
	}

	typ, reasoning, snap := signal.Current(bars, signal.NewConfig(buyInd, sellInd))
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"stock":      strings.ToUpper(symbol),
		"signal":     typ,
		"reasoning":  reasoning,
		"indicators": snap,
	})
}

// handleUniverse reports the stored symbol universe summary.
func (s *Server) handleUniverse(w http.ResponseWriter, r *http.Request) {
	if s.Resolver == nil {
		writeError(w, http.StatusServiceUnavailable, "no universe store configured")
		return
	}
	summary, err := s.Resolver.Summarize(r.Context())
	if err != nil {
		log.Printf("[api] universe summary failed: %v", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, summary)
}
