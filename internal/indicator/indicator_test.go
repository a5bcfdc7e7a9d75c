package indicator

import (
	"errors"
	"math"
	"testing"
	"time"

	"stockscan/internal/model"
)

func makeBars(closes ...float64) []model.Bar {
	bars := make([]model.Bar, len(closes))
	ts := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, c := range closes {
		bars[i] = model.Bar{
			TS:     ts.AddDate(0, 0, i),
			Open:   c,
			High:   c + 1,
			Low:    c - 1,
			Close:  c,
			Volume: 1000,
		}
	}
	return bars
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestEMA_FirstValueSeed(t *testing.T) {
	// span=3 → alpha=0.5. Seed is the first value itself, not an average.
	out := ema([]float64{10, 20}, 3)
	if !almostEqual(out[0], 10) {
		t.Errorf("expected seed=10, got %v", out[0])
	}
	if !almostEqual(out[1], 15) { // 0.5*20 + 0.5*10
		t.Errorf("expected 15, got %v", out[1])
	}
}

func TestEMA_NaNGapCarriesState(t *testing.T) {
	nan := model.Undefined()
	out := ema([]float64{nan, 10, nan, 20}, 3)

	if !math.IsNaN(out[0]) {
		t.Errorf("expected NaN before first defined value, got %v", out[0])
	}
	if !almostEqual(out[1], 10) {
		t.Errorf("expected seed=10, got %v", out[1])
	}
	// Gap emits the previous value and leaves state untouched...
	if !almostEqual(out[2], 10) {
		t.Errorf("expected carried value 10 over gap, got %v", out[2])
	}
	// ...so the next defined value smooths against 10, not a corrupted state.
	if !almostEqual(out[3], 15) {
		t.Errorf("expected 15 after gap, got %v", out[3])
	}
}

func TestComputeMACD_InsufficientData(t *testing.T) {
	bars := makeBars(make([]float64, 25)...)
	_, err := ComputeMACD(bars, DefaultMACDParams())
	if !errors.Is(err, ErrInsufficientData) {
		t.Fatalf("expected ErrInsufficientData for 25 bars, got %v", err)
	}
}

func TestComputeMACD_HistogramIdentity(t *testing.T) {
	closes := make([]float64, 40)
	for i := range closes {
		closes[i] = 100 + float64(i)*0.7 + math.Sin(float64(i))*3
	}
	m, err := ComputeMACD(makeBars(closes...), DefaultMACDParams())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for i := range m.Histogram {
		if !model.Defined(m.Histogram[i]) {
			t.Fatalf("bar %d: histogram undefined", i)
		}
		if !almostEqual(m.Histogram[i], m.Line[i]-m.Signal[i]) {
			t.Errorf("bar %d: histogram %v != line-signal %v", i, m.Histogram[i], m.Line[i]-m.Signal[i])
		}
	}
}

func TestComputeMACD_ConstantCloses(t *testing.T) {
	closes := make([]float64, 30)
	for i := range closes {
		closes[i] = 50
	}
	m, err := ComputeMACD(makeBars(closes...), DefaultMACDParams())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i := range m.Histogram {
		if !almostEqual(m.Line[i], 0) || !almostEqual(m.Histogram[i], 0) {
			t.Errorf("bar %d: expected flat MACD on constant closes, line=%v hist=%v", i, m.Line[i], m.Histogram[i])
		}
	}
}

func TestComputeKDJ_InsufficientData(t *testing.T) {
	bars := makeBars(1, 2, 3, 4, 5, 6, 7, 8)
	_, err := ComputeKDJ(bars, DefaultKDJParams())
	if !errors.Is(err, ErrInsufficientData) {
		t.Fatalf("expected ErrInsufficientData for 8 bars, got %v", err)
	}
}

func TestComputeKDJ_SeedAndRecurrence(t *testing.T) {
	// Hand-built bars: bar 0 H=10 L=0 C=5 → RSV=50, bar 1 H=10 L=0 C=10 → RSV=100.
	ts := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := []model.Bar{
		{TS: ts, Open: 5, High: 10, Low: 0, Close: 5},
		{TS: ts.AddDate(0, 0, 1), Open: 10, High: 10, Low: 0, Close: 10},
	}
	for i := 2; i < 9; i++ {
		bars = append(bars, model.Bar{TS: ts.AddDate(0, 0, i), Open: 5, High: 10, Low: 0, Close: 5})
	}

	kdj, err := ComputeKDJ(bars, DefaultKDJParams())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// First defined RSV seeds K=D=50, so J = 3*50 - 2*50 = 50.
	if !almostEqual(kdj.K[0], 50) || !almostEqual(kdj.D[0], 50) || !almostEqual(kdj.J[0], 50) {
		t.Errorf("expected K=D=J=50 at seed, got K=%v D=%v J=%v", kdj.K[0], kdj.D[0], kdj.J[0])
	}

	// K1 = 2/3*50 + 1/3*100 = 66.666..., D1 = 2/3*50 + 1/3*K1 = 55.555...
	wantK := 2.0/3.0*50 + 1.0/3.0*100
	wantD := 2.0/3.0*50 + 1.0/3.0*wantK
	if !almostEqual(kdj.K[1], wantK) {
		t.Errorf("expected K1=%v, got %v", wantK, kdj.K[1])
	}
	if !almostEqual(kdj.D[1], wantD) {
		t.Errorf("expected D1=%v, got %v", wantD, kdj.D[1])
	}
}

func TestComputeKDJ_JIdentity(t *testing.T) {
	closes := make([]float64, 30)
	for i := range closes {
		closes[i] = 100 + 10*math.Sin(float64(i)/3)
	}
	kdj, err := ComputeKDJ(makeBars(closes...), DefaultKDJParams())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i := range kdj.J {
		if !almostEqual(kdj.J[i], 3*kdj.K[i]-2*kdj.D[i]) {
			t.Errorf("bar %d: J=%v != 3K-2D=%v", i, kdj.J[i], 3*kdj.K[i]-2*kdj.D[i])
		}
	}
}

func TestComputeKDJ_FlatWindowClamp(t *testing.T) {
	// High == Low on every bar: the RSV denominator is clamped to 1 instead
	// of dividing by zero, giving RSV=0 and K decaying from the seed.
	ts := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	var bars []model.Bar
	for i := 0; i < 12; i++ {
		bars = append(bars, model.Bar{TS: ts.AddDate(0, 0, i), Open: 5, High: 5, Low: 5, Close: 5})
	}

	kdj, err := ComputeKDJ(bars, DefaultKDJParams())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i, k := range kdj.K {
		if math.IsNaN(k) {
			t.Fatalf("bar %d: K is NaN on flat window", i)
		}
	}
	// K1 = 2/3*50 + 1/3*0
	if !almostEqual(kdj.K[1], 100.0/3.0) {
		t.Errorf("expected K1=33.33 on flat window, got %v", kdj.K[1])
	}
}

func TestComputeKDJ_GapCarriesState(t *testing.T) {
	ts := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	var bars []model.Bar
	for i := 0; i < 12; i++ {
		c := 5.0
		if i == 4 {
			c = model.Undefined()
		}
		bars = append(bars, model.Bar{TS: ts.AddDate(0, 0, i), Open: c, High: 10, Low: 0, Close: c})
	}

	kdj, err := ComputeKDJ(bars, DefaultKDJParams())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !almostEqual(kdj.K[4], kdj.K[3]) || !almostEqual(kdj.D[4], kdj.D[3]) {
		t.Errorf("expected K/D carried over gap, got K=%v/%v D=%v/%v",
			kdj.K[3], kdj.K[4], kdj.D[3], kdj.D[4])
	}
}
