package sim

import (
	"errors"
	"math"
	"testing"
	"time"

	"stockscan/internal/indicator"
	"stockscan/internal/model"
	"stockscan/internal/signal"
)

// rampBars builds n daily bars with Open=100+i and Close=100+i+0.5, so fill
// prices are easy to predict.
func rampBars(n int) []model.Bar {
	bars := make([]model.Bar, n)
	ts := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := range bars {
		o := 100 + float64(i)
		bars[i] = model.Bar{
			TS:     ts.AddDate(0, 0, i),
			Open:   o,
			High:   o + 1,
			Low:    o - 1,
			Close:  o + 0.5,
			Volume: 1000,
		}
	}
	return bars
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestRun_TooFewBars(t *testing.T) {
	s := New(10000, 0.001)
	_, err := s.Run(rampBars(49), signal.NewConfig("macd", "macd"))
	if !errors.Is(err, indicator.ErrInsufficientData) {
		t.Fatalf("expected ErrInsufficientData for 49 bars, got %v", err)
	}
}

func TestExecute_NextBarFill(t *testing.T) {
	s := New(10000, 0.001)
	bars := rampBars(50)
	buy := make([]bool, 50)
	sell := make([]bool, 50)
	buy[10] = true
	sell[20] = true

	trades, balance := s.execute(bars, buy, sell)
	if len(trades) != 2 {
		t.Fatalf("expected 2 trades, got %d", len(trades))
	}

	// BUY: signal on bar 10, filled at bar 11's open (111).
	b := trades[0]
	if b.Type != TradeBuy {
		t.Fatalf("expected BUY first, got %s", b.Type)
	}
	if b.SignalDate != "2024-01-11 00:00:00" || b.ExecutionDate != "2024-01-12 00:00:00" {
		t.Errorf("wrong dates: signal=%s execution=%s", b.SignalDate, b.ExecutionDate)
	}
	if !almostEqual(b.SignalPrice, 110.5) {
		t.Errorf("expected signal price 110.5 (bar 10 close), got %v", b.SignalPrice)
	}
	if !almostEqual(b.ExecutionPrice, 111) {
		t.Errorf("expected execution price 111 (bar 11 open), got %v", b.ExecutionPrice)
	}
	// commission = 10000*0.001 = 10, shares = 9990/111 = 90
	if !almostEqual(b.Commission, 10) || !almostEqual(b.Shares, 90) || !almostEqual(b.BalanceAfter, 9990) {
		t.Errorf("wrong buy economics: commission=%v shares=%v balance=%v", b.Commission, b.Shares, b.BalanceAfter)
	}

	// SELL: signal on bar 20, filled at bar 21's open (121).
	sl := trades[1]
	if sl.Type != TradeSell {
		t.Fatalf("expected SELL second, got %s", sl.Type)
	}
	if !almostEqual(sl.ExecutionPrice, 121) {
		t.Errorf("expected execution price 121 (bar 21 open), got %v", sl.ExecutionPrice)
	}
	// proceeds = 90*121 = 10890, commission = 10.89, net = 10879.11
	// cost basis = 90*111 + 10 (buy commission) = 10000
	if !almostEqual(sl.Proceeds, 10890) || !almostEqual(sl.NetProceeds, 10879.11) {
		t.Errorf("wrong sell proceeds: %v net %v", sl.Proceeds, sl.NetProceeds)
	}
	if !almostEqual(sl.ProfitLoss, 879.11) || !almostEqual(sl.ProfitLossPct, 8.79) {
		t.Errorf("wrong P/L: %v (%v%%)", sl.ProfitLoss, sl.ProfitLossPct)
	}
	if sl.HoldDays != 10 {
		t.Errorf("expected 10 hold days, got %d", sl.HoldDays)
	}
	if !almostEqual(balance, 10879.11) {
		t.Errorf("expected final balance 10879.11, got %v", balance)
	}
}

func TestExecute_ForcedCloseAtEnd(t *testing.T) {
	s := New(10000, 0.001)
	bars := rampBars(50)
	buy := make([]bool, 50)
	sell := make([]bool, 50)
	buy[45] = true // fills at bar 46, never sold

	trades, _ := s.execute(bars, buy, sell)
	if len(trades) != 2 {
		t.Fatalf("expected forced close, got %d trades", len(trades))
	}

	fc := trades[1]
	if fc.Type != TradeSell {
		t.Fatalf("expected SELL, got %s", fc.Type)
	}
	if fc.SignalDate != EndOfPeriod {
		t.Errorf("expected signal date %q, got %q", EndOfPeriod, fc.SignalDate)
	}
	// Forced close fills at the LAST bar's close (149.5), not an open.
	if !almostEqual(fc.ExecutionPrice, 149.5) || !almostEqual(fc.SignalPrice, 149.5) {
		t.Errorf("expected forced close at 149.5, got exec=%v signal=%v", fc.ExecutionPrice, fc.SignalPrice)
	}
	if fc.ExecutionDate != "2024-02-19 00:00:00" {
		t.Errorf("expected execution on the last bar, got %s", fc.ExecutionDate)
	}
}

func TestExecute_SignalBarNeverFills(t *testing.T) {
	s := New(10000, 0.001)
	bars := rampBars(50)
	buy := make([]bool, 50)
	sell := make([]bool, 50)
	buy[0] = true

	trades, _ := s.execute(bars, buy, sell)
	if len(trades) < 1 {
		t.Fatal("expected a buy fill")
	}
	// Signal on bar 0 fills at bar 1, never on its own bar.
	if trades[0].ExecutionDate != "2024-01-02 00:00:00" {
		t.Errorf("expected fill on bar 1, got %s", trades[0].ExecutionDate)
	}
	if !almostEqual(trades[0].ExecutionPrice, 101) {
		t.Errorf("expected fill at bar 1 open 101, got %v", trades[0].ExecutionPrice)
	}
}

func TestExecute_SignalsAgainstPreFillState(t *testing.T) {
	s := New(10000, 0.001)
	bars := rampBars(50)
	buy := make([]bool, 50)
	sell := make([]bool, 50)
	buy[10] = true
	sell[11] = true // sell signal on the fill bar: position not yet open when checked

	trades, _ := s.execute(bars, buy, sell)
	// The sell on bar 11 is checked against the pre-fill state (still flat),
	// so it is dropped. The buy fills on bar 11 and the position stays open
	// until the forced close.
	if len(trades) != 2 {
		t.Fatalf("expected buy fill plus forced close, got %d trades", len(trades))
	}
	if trades[0].Type != TradeBuy || trades[0].ExecutionDate != "2024-01-12 00:00:00" {
		t.Errorf("expected buy fill on bar 11, got %s on %s", trades[0].Type, trades[0].ExecutionDate)
	}
	if trades[1].SignalDate != EndOfPeriod {
		t.Errorf("expected forced close, got signal date %q", trades[1].SignalDate)
	}
}

func TestExecute_IgnoresRedundantSignals(t *testing.T) {
	s := New(10000, 0.001)
	bars := rampBars(50)
	buy := make([]bool, 50)
	sell := make([]bool, 50)
	sell[5] = true  // sell while flat: no-op
	buy[10] = true  // opens
	buy[20] = true  // buy while long: no-op
	sell[30] = true // closes

	trades, _ := s.execute(bars, buy, sell)
	if len(trades) != 2 {
		t.Fatalf("expected exactly one round trip, got %d trades", len(trades))
	}

	// Trade entries always pair up BUY then SELL.
	if trades[0].Type != TradeBuy || trades[1].Type != TradeSell {
		t.Errorf("expected BUY,SELL got %s,%s", trades[0].Type, trades[1].Type)
	}
}

func TestRun_SummaryCountsBothSides(t *testing.T) {
	// Declining closes drive KDJ oversold: one buy fill, no sell signal,
	// forced close at the end. total_trades counts BUY and SELL entries.
	n := 60
	bars := make([]model.Bar, n)
	ts := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := range bars {
		c := 200 - float64(i)
		bars[i] = model.Bar{TS: ts.AddDate(0, 0, i), Open: c, High: c + 1, Low: c - 1, Close: c, Volume: 1000}
	}

	s := New(10000, 0.001)
	res, err := s.Run(bars, signal.NewConfig("kdj", "kdj"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if res.Summary.TotalTrades != len(res.Trades) {
		t.Errorf("summary total_trades %d != %d trade entries", res.Summary.TotalTrades, len(res.Trades))
	}
	if res.Summary.TotalTrades != 2 {
		t.Fatalf("expected one round trip (2 entries), got %d", res.Summary.TotalTrades)
	}
	if res.Trades[1].SignalDate != EndOfPeriod {
		t.Errorf("expected forced close, got %q", res.Trades[1].SignalDate)
	}
	if res.Summary.FinalBalance >= res.Summary.InitialBalance {
		t.Errorf("expected a loss on declining prices, balance %v", res.Summary.FinalBalance)
	}
	if !almostEqual(res.Summary.TotalReturn, res.Summary.FinalBalance-res.Summary.InitialBalance) {
		t.Errorf("total return inconsistent: %v", res.Summary.TotalReturn)
	}
}

func TestComputeStatistics_Partitions(t *testing.T) {
	trades := []Trade{
		{Type: TradeBuy, ExecutionDate: "2024-01-01 00:00:00"},
		{Type: TradeSell, ExecutionDate: "2024-01-06 00:00:00", ProfitLoss: 10, HoldDays: 5},
		{Type: TradeBuy, ExecutionDate: "2024-01-10 00:00:00"},
		{Type: TradeSell, ExecutionDate: "2024-01-10 00:00:00", ProfitLoss: -5, HoldDays: 0},
		{Type: TradeBuy, ExecutionDate: "2024-01-15 00:00:00"},
		{Type: TradeSell, ExecutionDate: "2024-01-31 00:00:00", ProfitLoss: 30, HoldDays: 10},
	}

	stats := computeStatistics(trades)

	if !almostEqual(stats.SuccessRate, 66.67) {
		t.Errorf("expected success rate 66.67 (2 of 3 sells), got %v", stats.SuccessRate)
	}
	if !almostEqual(stats.TotalProfit, 40) || !almostEqual(stats.TotalLoss, -5) {
		t.Errorf("wrong totals: profit=%v loss=%v", stats.TotalProfit, stats.TotalLoss)
	}
	if !almostEqual(stats.AvgProfit, 20) || !almostEqual(stats.AvgLoss, -5) {
		t.Errorf("wrong averages: profit=%v loss=%v", stats.AvgProfit, stats.AvgLoss)
	}
	if !almostEqual(stats.MaxProfit, 30) || !almostEqual(stats.MaxLoss, -5) {
		t.Errorf("wrong extremes: profit=%v loss=%v", stats.MaxProfit, stats.MaxLoss)
	}
	// 30 days first-to-last over 3 sells = 10.
	if !almostEqual(stats.AvgTradeFrequency, 10) {
		t.Errorf("expected trade frequency 10, got %v", stats.AvgTradeFrequency)
	}
	// Only positive hold days count: (5+10)/2 = 7.5.
	if !almostEqual(stats.AvgHoldDays, 7.5) {
		t.Errorf("expected avg hold 7.5, got %v", stats.AvgHoldDays)
	}
}

func TestComputeStatistics_BreakEvenBelongsToNeither(t *testing.T) {
	trades := []Trade{
		{Type: TradeBuy, ExecutionDate: "2024-01-01 00:00:00"},
		{Type: TradeSell, ExecutionDate: "2024-01-05 00:00:00", ProfitLoss: 0, HoldDays: 4},
	}
	stats := computeStatistics(trades)
	if stats.SuccessRate != 0 {
		t.Errorf("break-even trade must not count as a win, got rate %v", stats.SuccessRate)
	}
	if stats.TotalProfit != 0 || stats.TotalLoss != 0 {
		t.Errorf("break-even trade leaked into a partition: profit=%v loss=%v", stats.TotalProfit, stats.TotalLoss)
	}
}

func TestComputeStatistics_NoTrades(t *testing.T) {
	stats := computeStatistics(nil)
	if stats != (Statistics{}) {
		t.Errorf("expected zero statistics for no trades, got %+v", stats)
	}
}
