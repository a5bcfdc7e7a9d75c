// Package indicator computes technical indicator series over OHLCV bars.
//
// All computations are whole-series: a call either returns a complete,
// index-aligned result or an error, never a partial one. Values before an
// indicator's warm-up point are NaN.
package indicator

import "errors"

// ErrInsufficientData is returned when the input series is shorter than the
// indicator's minimum length.
var ErrInsufficientData = errors.New("insufficient data")

// Default parameters, matching the charting-app conventions this engine is
// calibrated against.
const (
	DefaultMACDFast   = 12
	DefaultMACDSlow   = 26
	DefaultMACDSignal = 9

	DefaultKDJPeriod  = 9
	DefaultKDJDSmooth = 3
	DefaultKDJJSmooth = 3
)
