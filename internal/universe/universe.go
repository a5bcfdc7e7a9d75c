// Package universe resolves scan candidates: an explicit symbol list, or
// market-cap category tags backed by the persisted symbol universe.
package universe

import (
	"context"
	"fmt"
	"time"

	"stockscan/internal/store/sqlite"
)

// Market-cap category tags.
const (
	MegaCap  = "mega_cap"
	LargeCap = "large_cap"
	MidCap   = "mid_cap"
	SmallCap = "small_cap"
	MicroCap = "micro_cap"
	All      = "all"
)

// Categorize maps a market cap in dollars to its category tag.
func Categorize(marketCap float64) string {
	switch {
	case marketCap >= 200e9:
		return MegaCap
	case marketCap >= 10e9:
		return LargeCap
	case marketCap >= 2e9:
		return MidCap
	case marketCap >= 300e6:
		return SmallCap
	default:
		return MicroCap
	}
}

// Resolver resolves symbols against the SQLite-backed universe.
type Resolver struct {
	store *sqlite.Store
}

// NewResolver creates a Resolver over the given store.
func NewResolver(store *sqlite.Store) *Resolver {
	return &Resolver{store: store}
}

// Resolve returns the candidate set for a scan. An explicit symbol list wins;
// otherwise category tags are expanded and de-duplicated preserving order;
// with neither, the default universe is the large caps (mega + large).
func (r *Resolver) Resolve(ctx context.Context, symbols, categories []string) ([]string, error) {
	if len(symbols) > 0 {
		return symbols, nil
	}
	if len(categories) == 0 {
		categories = []string{LargeCap}
	}

	var out []string
	seen := make(map[string]struct{})
	for _, category := range categories {
		var (
			batch []string
			err   error
		)
		switch category {
		case All:
			batch, err = r.store.AllSymbols(ctx)
		case LargeCap:
			// large_cap has always meant "mega and large combined" here
			batch, err = r.combined(ctx, MegaCap, LargeCap)
		default:
			batch, err = r.store.SymbolsByCategory(ctx, category)
		}
		if err != nil {
			return nil, fmt.Errorf("resolve category %s: %w", category, err)
		}
		for _, sym := range batch {
			if _, ok := seen[sym]; ok {
				continue
			}
			seen[sym] = struct{}{}
			out = append(out, sym)
		}
	}
	return out, nil
}

func (r *Resolver) combined(ctx context.Context, categories ...string) ([]string, error) {
	var out []string
	for _, c := range categories {
		symbols, err := r.store.SymbolsByCategory(ctx, c)
		if err != nil {
			return nil, err
		}
		out = append(out, symbols...)
	}
	return out, nil
}

// Summary describes the stored universe.
type Summary struct {
	Total       int            `json:"total_symbols"`
	Categories  map[string]int `json:"categories"`
	LastUpdated time.Time      `json:"last_updated"`
}

// Summarize reports per-category counts and the last refresh time.
func (r *Resolver) Summarize(ctx context.Context) (*Summary, error) {
	counts, err := r.store.CategoryCounts(ctx)
	if err != nil {
		return nil, err
	}
	updated, err := r.store.LastUpdated(ctx)
	if err != nil {
		return nil, err
	}
	total := 0
	for _, n := range counts {
		total += n
	}
	return &Summary{Total: total, Categories: counts, LastUpdated: updated}, nil
}

// Static is a fixed-list resolver for tests and one-shot CLI runs.
type Static []string

// Resolve returns the explicit list when given, else the static set.
func (s Static) Resolve(_ context.Context, symbols, _ []string) ([]string, error) {
	if len(symbols) > 0 {
		return symbols, nil
	}
	return s, nil
}
