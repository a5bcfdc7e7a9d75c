// Package model defines the shared market data types.
package model

import (
	"encoding/json"
	"math"
	"time"
)

// Bar represents a single OHLCV sample for a fixed interval.
// Prices are float64; a missing value is represented as NaN so that
// downstream recurrences can skip it without corrupting state.
type Bar struct {
	TS     time.Time `json:"ts"` // bar start time (UTC), ascending order
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// barJSON is the wire form of Bar. NaN is not representable in JSON, so
// missing values round-trip as null.
type barJSON struct {
	TS     time.Time `json:"ts"`
	Open   *float64  `json:"open"`
	High   *float64  `json:"high"`
	Low    *float64  `json:"low"`
	Close  *float64  `json:"close"`
	Volume *float64  `json:"volume"`
}

func toPtr(v float64) *float64 {
	if math.IsNaN(v) {
		return nil
	}
	return &v
}

func fromPtr(p *float64) float64 {
	if p == nil {
		return math.NaN()
	}
	return *p
}

// MarshalJSON encodes missing (NaN) values as null.
func (b Bar) MarshalJSON() ([]byte, error) {
	return json.Marshal(barJSON{
		TS:     b.TS,
		Open:   toPtr(b.Open),
		High:   toPtr(b.High),
		Low:    toPtr(b.Low),
		Close:  toPtr(b.Close),
		Volume: toPtr(b.Volume),
	})
}

// UnmarshalJSON decodes null values back to NaN.
func (b *Bar) UnmarshalJSON(data []byte) error {
	var w barJSON
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	b.TS = w.TS
	b.Open = fromPtr(w.Open)
	b.High = fromPtr(w.High)
	b.Low = fromPtr(w.Low)
	b.Close = fromPtr(w.Close)
	b.Volume = fromPtr(w.Volume)
	return nil
}

// Defined reports whether v carries a usable value.
func Defined(v float64) bool {
	return !math.IsNaN(v)
}

// Undefined is the marker for a missing or not-yet-warm value.
func Undefined() float64 {
	return math.NaN()
}

// Closes extracts the close series from bars.
func Closes(bars []Bar) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.Close
	}
	return out
}
