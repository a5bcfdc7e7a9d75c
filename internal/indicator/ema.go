package indicator

import "stockscan/internal/model"

// ema computes an exponential moving average over values with the given span.
// alpha = 2/(span+1). The recurrence is seeded with the first defined input
// value, NOT a simple-average seed — this matches the upstream charting app
// and must not be changed.
//
// Undefined (NaN) inputs emit the previous EMA value and leave the recurrence
// state untouched, so a gap in the data does not corrupt later values.
// Outputs before the first defined input are NaN.
func ema(values []float64, span int) []float64 {
	out := make([]float64, len(values))
	alpha := 2.0 / float64(span+1)

	prev := model.Undefined()
	for i, v := range values {
		if !model.Defined(v) {
			out[i] = prev
			continue
		}
		if !model.Defined(prev) {
			prev = v // first-value seed
		} else {
			prev = alpha*v + (1-alpha)*prev
		}
		out[i] = prev
	}
	return out
}
