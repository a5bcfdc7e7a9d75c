// Package fetch retrieves OHLCV bars from an upstream market data source.
package fetch

import (
	"context"
	"sync"

	"stockscan/internal/model"
)

// Fetcher returns ascending-time-ordered bars for (symbol, period, interval).
// An unknown symbol may yield an empty slice without error.
type Fetcher interface {
	History(ctx context.Context, symbol, period, interval string) ([]model.Bar, error)
	Name() string
}

// Mock returns canned data for development and testing. Safe for use from
// concurrent fetch workers.
type Mock struct {
	Bars   map[string][]model.Bar // keyed by symbol
	Err    error
	ErrFor map[string]error // per-symbol failures

	mu    sync.Mutex
	calls int
}

func (m *Mock) Name() string { return "mock" }

// Calls reports how many History calls were made.
func (m *Mock) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func (m *Mock) History(_ context.Context, symbol, _, _ string) ([]model.Bar, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	if err, ok := m.ErrFor[symbol]; ok && err != nil {
		return nil, err
	}
	return m.Bars[symbol], nil
}
