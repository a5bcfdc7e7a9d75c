package indicator

import (
	"fmt"

	"stockscan/internal/model"
)

// MACD holds the three index-aligned MACD series.
type MACD struct {
	Line      []float64 // fast EMA - slow EMA
	Signal    []float64 // EMA of Line
	Histogram []float64 // Line - Signal
}

// MACDParams configures a MACD computation.
type MACDParams struct {
	Fast   int
	Slow   int
	Signal int
}

// DefaultMACDParams returns the standard 12/26/9 configuration.
func DefaultMACDParams() MACDParams {
	return MACDParams{Fast: DefaultMACDFast, Slow: DefaultMACDSlow, Signal: DefaultMACDSignal}
}

// ComputeMACD calculates MACD over the close series of bars.
// Returns ErrInsufficientData when len(bars) < Slow.
func ComputeMACD(bars []model.Bar, p MACDParams) (*MACD, error) {
	if len(bars) < p.Slow {
		return nil, fmt.Errorf("macd: need %d bars, have %d: %w", p.Slow, len(bars), ErrInsufficientData)
	}

	closes := model.Closes(bars)
	fast := ema(closes, p.Fast)
	slow := ema(closes, p.Slow)

	line := make([]float64, len(bars))
	for i := range line {
		if model.Defined(fast[i]) && model.Defined(slow[i]) {
			line[i] = fast[i] - slow[i]
		} else {
			line[i] = model.Undefined()
		}
	}

	signal := ema(line, p.Signal)

	hist := make([]float64, len(bars))
	for i := range hist {
		if model.Defined(line[i]) && model.Defined(signal[i]) {
			hist[i] = line[i] - signal[i]
		} else {
			hist[i] = model.Undefined()
		}
	}

	return &MACD{Line: line, Signal: signal, Histogram: hist}, nil
}
