// Package sim runs a paper-trading simulation over signal and bar series.
//
// Execution is deferred: a signal on bar N fills at bar N+1's open. At most
// one position is open at a time and the whole balance is committed to it.
// A position still open at the end of the series is force-closed at the last
// bar's close price.
package sim

import (
	"math"
	"time"
)

// EndOfPeriod tags the signal date of a forced final close, which has no
// signal bar of its own.
const EndOfPeriod = "End of period"

// MinBars is the simulation floor. It is deliberately larger than any
// indicator warm-up so a run can contain at least one realistic trade cycle.
const MinBars = 50

// Trade side labels.
const (
	TradeBuy  = "BUY"
	TradeSell = "SELL"
)

// Trade is one executed order. SELL trades additionally carry proceeds,
// realized profit/loss and hold duration.
type Trade struct {
	Type           string  `json:"type"`
	SignalDate     string  `json:"signal_date"`
	ExecutionDate  string  `json:"execution_date"`
	SignalPrice    float64 `json:"signal_price"`
	ExecutionPrice float64 `json:"execution_price"`
	Shares         float64 `json:"shares"`
	Commission     float64 `json:"commission"`
	BalanceAfter   float64 `json:"balance_after"`

	// SELL only
	Proceeds      float64 `json:"proceeds,omitempty"`
	NetProceeds   float64 `json:"net_proceeds,omitempty"`
	ProfitLoss    float64 `json:"profit_loss,omitempty"`
	ProfitLossPct float64 `json:"profit_loss_percentage,omitempty"`
	HoldDays      int     `json:"hold_days,omitempty"`
}

// Summary aggregates a simulation run.
type Summary struct {
	InitialBalance       float64 `json:"initial_balance"`
	FinalBalance         float64 `json:"final_balance"`
	TotalReturn          float64 `json:"total_return"`
	ReturnPercentage     float64 `json:"return_percentage"`
	TotalTrades          int     `json:"total_trades"` // BUY and SELL entries both
	SuccessRate          float64 `json:"success_rate"`
	AvgDaysBetweenTrades float64 `json:"avg_days_between_trades"`
	BuyIndicator         string  `json:"buy_indicator"`
	SellIndicator        string  `json:"sell_indicator"`
}

// Statistics describes the profit/loss distribution over completed (SELL)
// trades. A run with no trades yields the zero value, never an error.
type Statistics struct {
	SuccessRate       float64 `json:"success_rate"`
	AvgTradeFrequency float64 `json:"avg_trade_frequency"`
	TotalProfit       float64 `json:"total_profit"`
	TotalLoss         float64 `json:"total_loss"`
	AvgProfit         float64 `json:"avg_profit"`
	AvgLoss           float64 `json:"avg_loss"`
	MaxProfit         float64 `json:"max_profit"`
	MaxLoss           float64 `json:"max_loss"`
	AvgHoldDays       float64 `json:"avg_hold_days"`
}

// Result is the full output of one simulation.
type Result struct {
	Summary    Summary    `json:"trading_summary"`
	Trades     []Trade    `json:"trades,omitempty"`
	Statistics Statistics `json:"statistics"`
}

const dateLayout = "2006-01-02 15:04:05"

func formatDate(ts time.Time) string {
	return ts.Format(dateLayout)
}

func round1(v float64) float64 { return math.Round(v*10) / 10 }

func round2(v float64) float64 { return math.Round(v*100) / 100 }

func round4(v float64) float64 { return math.Round(v*10000) / 10000 }
