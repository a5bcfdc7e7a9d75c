package signal

import (
	"fmt"
	"strings"

	"stockscan/internal/indicator"
	"stockscan/internal/model"
)

// Config selects which indicator drives each side and the KDJ thresholds.
type Config struct {
	BuyIndicator  string
	SellIndicator string
	BuyThreshold  float64 // KDJ oversold level
	SellThreshold float64 // KDJ overbought level
	MACD          indicator.MACDParams
	KDJ           indicator.KDJParams
}

// NewConfig returns a Config with default thresholds and indicator parameters.
func NewConfig(buyIndicator, sellIndicator string) Config {
	return Config{
		BuyIndicator:  strings.ToLower(buyIndicator),
		SellIndicator: strings.ToLower(sellIndicator),
		BuyThreshold:  DefaultBuyThreshold,
		SellThreshold: DefaultSellThreshold,
		MACD:          indicator.DefaultMACDParams(),
		KDJ:           indicator.DefaultKDJParams(),
	}
}

// series bundles the indicator outputs both sides evaluate against.
// A failed indicator contributes all-NaN values, so its checks never fire.
type series struct {
	hist []float64
	k    []float64
	d    []float64
}

func computeSeries(bars []model.Bar, cfg Config) series {
	s := series{
		hist: nanSeries(len(bars)),
		k:    nanSeries(len(bars)),
		d:    nanSeries(len(bars)),
	}
	if macd, err := indicator.ComputeMACD(bars, cfg.MACD); err == nil {
		s.hist = macd.Histogram
	}
	if kdj, err := indicator.ComputeKDJ(bars, cfg.KDJ); err == nil {
		s.k, s.d = kdj.K, kdj.D
	}
	return s
}

func nanSeries(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = model.Undefined()
	}
	return out
}

// buyAt checks the buy rule at index i.
//
// MACD: histogram zero crossing (yesterday < 0, today > 0). Needs i >= 1.
// KDJ: K and D both below the buy threshold.
func buyAt(i int, ind string, s series, threshold float64) bool {
	switch ind {
	case IndicatorMACD:
		if i < 1 {
			return false
		}
		prev, cur := s.hist[i-1], s.hist[i]
		if !model.Defined(prev) || !model.Defined(cur) {
			return false
		}
		return prev < 0 && cur > 0
	case IndicatorKDJ:
		k, d := s.k[i], s.d[i]
		if !model.Defined(k) || !model.Defined(d) {
			return false
		}
		return k < threshold && d < threshold
	}
	return false
}

// sellAt checks the sell rule at index i.
//
// MACD uses peak detection rather than a death cross: the histogram was
// rising two bars back, is now falling, and the middle bar is positive.
// The look-back is exactly two bars; a flat plateau before the decline never
// fires. Needs i >= 2.
// KDJ: K and D both above the sell threshold.
func sellAt(i int, ind string, s series, threshold float64) bool {
	switch ind {
	case IndicatorMACD:
		if i < 2 {
			return false
		}
		older, prev, cur := s.hist[i-2], s.hist[i-1], s.hist[i]
		if !model.Defined(older) || !model.Defined(prev) || !model.Defined(cur) {
			return false
		}
		return older < prev && prev > cur && prev > 0
	case IndicatorKDJ:
		k, d := s.k[i], s.d[i]
		if !model.Defined(k) || !model.Defined(d) {
			return false
		}
		return k > threshold && d > threshold
	}
	return false
}

// Generate evaluates every bar independently and returns the parallel
// buy/sell flag series. Deterministic: identical input yields identical
// output.
func Generate(bars []model.Bar, cfg Config) (buy, sell []bool) {
	s := computeSeries(bars, cfg)
	buy = make([]bool, len(bars))
	sell = make([]bool, len(bars))
	for i := range bars {
		buy[i] = buyAt(i, cfg.BuyIndicator, s, cfg.BuyThreshold)
		sell[i] = sellAt(i, cfg.SellIndicator, s, cfg.SellThreshold)
	}
	return buy, sell
}

// Current evaluates only the last bar and resolves it to a single signal
// with a human-readable reasoning string and the indicator snapshot the
// decision was based on.
func Current(bars []model.Bar, cfg Config) (Type, string, Snapshot) {
	if len(bars) < 3 {
		return Hold, "Insufficient data for signal detection", Snapshot{}
	}

	macd, errM := indicator.ComputeMACD(bars, cfg.MACD)
	kdj, errK := indicator.ComputeKDJ(bars, cfg.KDJ)
	if errM != nil || errK != nil {
		return Hold, "Error calculating indicators", Snapshot{}
	}

	s := series{hist: macd.Histogram, k: kdj.K, d: kdj.D}
	last := len(bars) - 1

	snap := Snapshot{
		MACDHistToday:     roundedOrNil(s.hist[last], 4),
		MACDHistYesterday: roundedOrNil(s.hist[last-1], 4),
		KDJK:              roundedOrNil(s.k[last], 2),
		KDJD:              roundedOrNil(s.d[last], 2),
	}
	if last >= 2 {
		snap.MACDHistDayBefore = roundedOrNil(s.hist[last-2], 4)
	}

	isBuy := buyAt(last, cfg.BuyIndicator, s, cfg.BuyThreshold)
	isSell := sellAt(last, cfg.SellIndicator, s, cfg.SellThreshold)

	switch {
	case isBuy && isSell:
		return Hold, "Conflicting signals from buy and sell indicators", snap
	case isBuy:
		return Buy, buyReasoning(cfg.BuyIndicator, snap, cfg.BuyThreshold), snap
	case isSell:
		return Sell, sellReasoning(cfg.SellIndicator, snap, cfg.SellThreshold), snap
	default:
		return Hold, holdReasoning(cfg, snap), snap
	}
}

func buyReasoning(ind string, snap Snapshot, threshold float64) string {
	switch ind {
	case IndicatorMACD:
		return fmt.Sprintf("MACD golden cross: histogram crossed above zero (yesterday: %s, today: %s)",
			fmtVal(snap.MACDHistYesterday), fmtVal(snap.MACDHistToday))
	case IndicatorKDJ:
		return fmt.Sprintf("KDJ oversold: K=%s, D=%s (both below %g)",
			fmtVal(snap.KDJK), fmtVal(snap.KDJD), threshold)
	}
	return "Buy signal detected"
}

func sellReasoning(ind string, snap Snapshot, threshold float64) string {
	switch ind {
	case IndicatorMACD:
		return fmt.Sprintf("MACD peak detected: histogram peaked and declining (day before: %s, yesterday: %s, today: %s)",
			fmtVal(snap.MACDHistDayBefore), fmtVal(snap.MACDHistYesterday), fmtVal(snap.MACDHistToday))
	case IndicatorKDJ:
		return fmt.Sprintf("KDJ overbought: K=%s, D=%s (both above %g)",
			fmtVal(snap.KDJK), fmtVal(snap.KDJD), threshold)
	}
	return "Sell signal detected"
}

func holdReasoning(cfg Config, snap Snapshot) string {
	var parts []string
	if cfg.BuyIndicator == IndicatorMACD || cfg.SellIndicator == IndicatorMACD {
		parts = append(parts, fmt.Sprintf("MACD histogram: yesterday=%s, today=%s",
			fmtVal(snap.MACDHistYesterday), fmtVal(snap.MACDHistToday)))
	}
	if cfg.BuyIndicator == IndicatorKDJ || cfg.SellIndicator == IndicatorKDJ {
		parts = append(parts, fmt.Sprintf("KDJ: K=%s, D=%s", fmtVal(snap.KDJK), fmtVal(snap.KDJD)))
	}
	return "No clear signal. " + strings.Join(parts, ", ")
}
