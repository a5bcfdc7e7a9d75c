// Package signal derives buy/sell signals from indicator series.
//
// Buy and sell sides are evaluated independently and may be driven by
// different indicators; a bar can carry both flags. Resolution of a
// simultaneous buy+sell is left to the consumer (the whole-series API) or
// collapsed to HOLD (the current-signal API).
package signal

import (
	"math"
	"strconv"
)

// Type is a resolved trading signal.
type Type string

const (
	Buy   Type = "BUY"
	Sell  Type = "SELL"
	Hold  Type = "HOLD"
	Error Type = "ERROR"
)

// Supported indicator names for buy/sell sides.
const (
	IndicatorMACD = "macd"
	IndicatorKDJ  = "kdj"
)

// Default KDJ signal thresholds.
const (
	DefaultBuyThreshold  = 20
	DefaultSellThreshold = 80
)

// ValidIndicator reports whether name is a supported indicator.
func ValidIndicator(name string) bool {
	return name == IndicatorMACD || name == IndicatorKDJ
}

// Snapshot carries the rounded indicator values a signal decision was based
// on. Nil fields were undefined at decision time.
type Snapshot struct {
	MACDHistToday     *float64 `json:"macd_histogram_today,omitempty"`
	MACDHistYesterday *float64 `json:"macd_histogram_yesterday,omitempty"`
	MACDHistDayBefore *float64 `json:"macd_histogram_day_before,omitempty"`
	KDJK              *float64 `json:"kdj_k,omitempty"`
	KDJD              *float64 `json:"kdj_d,omitempty"`
}

func roundTo(v float64, places int) float64 {
	scale := math.Pow(10, float64(places))
	return math.Round(v*scale) / scale
}

// roundedOrNil rounds a defined value to the given number of decimal places,
// or returns nil for NaN.
func roundedOrNil(v float64, places int) *float64 {
	if math.IsNaN(v) {
		return nil
	}
	r := roundTo(v, places)
	return &r
}

// fmtVal renders an optional snapshot value for reasoning strings.
func fmtVal(v *float64) string {
	if v == nil {
		return "N/A"
	}
	return strconv.FormatFloat(*v, 'g', -1, 64)
}
