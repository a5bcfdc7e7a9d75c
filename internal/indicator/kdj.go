package indicator

import (
	"fmt"

	"stockscan/internal/model"
)

// KDJ holds the three index-aligned stochastic series.
type KDJ struct {
	K []float64
	D []float64
	J []float64
}

// KDJParams configures a KDJ computation.
type KDJParams struct {
	Period  int // RSV trailing window
	DSmooth int
	JSmooth int
}

// DefaultKDJParams returns the standard 9/3/3 configuration.
func DefaultKDJParams() KDJParams {
	return KDJParams{Period: DefaultKDJPeriod, DSmooth: DefaultKDJDSmooth, JSmooth: DefaultKDJJSmooth}
}

// ComputeKDJ calculates KDJ over bars.
//
//	RSV = (close - lowest low) / (highest high - lowest low) * 100
//	K   = 2/3*K_prev + 1/3*RSV
//	D   = 2/3*D_prev + 1/3*K
//	J   = 3K - 2D
//
// K and D are seeded at 50 on the first bar with a defined RSV. The 2/3-1/3
// smoothing is the reverse of the textbook stochastic formula; it is an
// intentional compatibility choice and must be preserved exactly.
//
// The trailing window allows partial (<Period) samples; only the total bar
// count is gated. Returns ErrInsufficientData when len(bars) < Period.
func ComputeKDJ(bars []model.Bar, p KDJParams) (*KDJ, error) {
	if len(bars) < p.Period {
		return nil, fmt.Errorf("kdj: need %d bars, have %d: %w", p.Period, len(bars), ErrInsufficientData)
	}

	n := len(bars)
	rsv := make([]float64, n)
	for i := 0; i < n; i++ {
		rsv[i] = rawStochastic(bars, i, p.Period)
	}

	k := make([]float64, n)
	d := make([]float64, n)
	j := make([]float64, n)
	seeded := false
	for i := 0; i < n; i++ {
		if !seeded {
			if model.Defined(rsv[i]) {
				k[i], d[i] = 50, 50
				seeded = true
			} else {
				k[i], d[i], j[i] = model.Undefined(), model.Undefined(), model.Undefined()
				continue
			}
		} else if model.Defined(rsv[i]) {
			k[i] = 2.0/3.0*k[i-1] + 1.0/3.0*rsv[i]
			d[i] = 2.0/3.0*d[i-1] + 1.0/3.0*k[i]
		} else {
			// gap in the data: carry the smoothed state forward
			k[i], d[i] = k[i-1], d[i-1]
		}
		j[i] = 3*k[i] - 2*d[i]
	}

	return &KDJ{K: k, D: d, J: j}, nil
}

// rawStochastic computes RSV at index i over the trailing window, skipping
// undefined samples. The denominator is clamped to 1 when the window is flat.
func rawStochastic(bars []model.Bar, i, period int) float64 {
	if !model.Defined(bars[i].Close) {
		return model.Undefined()
	}

	lo, hi := model.Undefined(), model.Undefined()
	start := i - period + 1
	if start < 0 {
		start = 0
	}
	for j := start; j <= i; j++ {
		if model.Defined(bars[j].Low) && (!model.Defined(lo) || bars[j].Low < lo) {
			lo = bars[j].Low
		}
		if model.Defined(bars[j].High) && (!model.Defined(hi) || bars[j].High > hi) {
			hi = bars[j].High
		}
	}
	if !model.Defined(lo) || !model.Defined(hi) {
		return model.Undefined()
	}

	denom := hi - lo
	if denom == 0 {
		denom = 1
	}
	return (bars[i].Close - lo) / denom * 100
}
