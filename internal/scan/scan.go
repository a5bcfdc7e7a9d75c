// Package scan orchestrates market-wide backtest scans: it resolves a
// candidate symbol set, fetches bars and runs the simulator per symbol under
// bounded concurrency with retry and pacing, then filters, sorts and
// truncates the aggregated results.
package scan

import (
	"errors"
	"time"

	"stockscan/internal/sim"
)

var (
	// ErrInvalidParameter rejects a request before any computation.
	ErrInvalidParameter = errors.New("invalid parameter")
	// ErrEmptyCandidateSet means symbol resolution produced nothing to scan.
	ErrEmptyCandidateSet = errors.New("no stocks to scan")
)

// Request describes one scan.
type Request struct {
	BuyIndicator  string   `json:"buy_indicator"`
	SellIndicator string   `json:"sell_indicator"`
	Period        string   `json:"period"`
	Interval      string   `json:"interval"`
	BuyThreshold  *float64 `json:"buy_threshold,omitempty"`
	SellThreshold *float64 `json:"sell_threshold,omitempty"`
	MinTrades     int      `json:"min_trades"`

	Symbols             []string `json:"symbols,omitempty"`
	MarketCapCategories []string `json:"market_cap_categories,omitempty"`

	TopN         int           `json:"top_n"`
	ExcludeRules []ExcludeRule `json:"exclude_rules,omitempty"`
	SortRules    []SortRule    `json:"sort_rules,omitempty"`
}

// Criteria echoes the effective scan parameters back to the caller.
type Criteria struct {
	BuyIndicator  string `json:"buy_indicator"`
	SellIndicator string `json:"sell_indicator"`
	Period        string `json:"period"`
	Interval      string `json:"interval"`
	MinTrades     int    `json:"min_trades"`
}

// Summary holds the aggregate counters for a scan.
type Summary struct {
	TotalScanned int      `json:"total_stocks_scanned"`
	Successful   int      `json:"successful_scans"`
	Failed       int      `json:"failed_scans"`
	AfterFilters int      `json:"stocks_after_filters"`
	Criteria     Criteria `json:"scan_criteria"`
}

// StockResult is one symbol's simulation outcome. The detailed trade log is
// stripped before aggregation.
type StockResult struct {
	Symbol string `json:"stock"`
	sim.Result
}

// Response is the full scan output.
type Response struct {
	Summary    Summary       `json:"scan_summary"`
	TopStocks  []string      `json:"top_stocks"`
	TopResults []StockResult `json:"top_results"`
}

// Tier holds the concurrency parameters for one scan-size band. Larger
// candidate sets trade per-request gentleness for throughput.
type Tier struct {
	Workers   int
	BatchSize int
	Delay     time.Duration // pre-fetch pacing per request
}

// TierFor selects concurrency parameters from the candidate set size.
func TierFor(numSymbols int, defaults Tier) Tier {
	switch {
	case numSymbols > 1000:
		return Tier{Workers: 10, BatchSize: 25, Delay: 200 * time.Millisecond}
	case numSymbols > 500:
		return Tier{Workers: 15, BatchSize: 35, Delay: 150 * time.Millisecond}
	default:
		return defaults
	}
}

// Options is the fixed vocabulary callers can validate requests against.
type Options struct {
	Indicators       []string `json:"indicators"`
	Periods          []string `json:"periods"`
	Intervals        []string `json:"intervals"`
	MarketCapOptions []string `json:"market_cap_options"`
	SortableFields   []string `json:"sortable_fields"`
	ExcludeOperators []string `json:"exclude_operators"`
}

// CriteriaOptions returns the supported scan vocabularies.
func CriteriaOptions() Options {
	return Options{
		Indicators:       []string{"macd", "kdj"},
		Periods:          []string{"1mo", "3mo", "6mo", "1y", "2y"},
		Intervals:        []string{"1d", "1wk"},
		MarketCapOptions: []string{"mega_cap", "large_cap", "mid_cap", "small_cap", "micro_cap", "all"},
		SortableFields: []string{
			"return_percentage",
			"success_rate",
			"total_trades",
			"avg_days_between_trades",
			"final_balance",
			"total_return",
			"avg_profit",
			"avg_loss",
			"max_profit",
			"max_loss",
		},
		ExcludeOperators: []string{"<", ">", "<=", ">=", "==", "!="},
	}
}
