package universe

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"stockscan/internal/store/sqlite"
)

// DirectoryURL is the exchange symbol directory: pipe-delimited, one symbol
// per line, header first.
const DirectoryURL = "https://www.nasdaqtrader.com/dynamic/SymDir/nasdaqlisted.txt"

// MarketCapLookup fetches market cap and display name for one symbol.
// Implemented by an upstream quote client; tests use a fake.
type MarketCapLookup interface {
	MarketCap(ctx context.Context, symbol string) (marketCap float64, name string, err error)
}

// Refresher rebuilds the symbol universe from the exchange directory.
type Refresher struct {
	Store     *sqlite.Store
	Lookup    MarketCapLookup
	Client    *http.Client
	Directory string
	Workers   int
}

// NewRefresher creates a Refresher with sensible defaults.
func NewRefresher(store *sqlite.Store, lookup MarketCapLookup) *Refresher {
	return &Refresher{
		Store:     store,
		Lookup:    lookup,
		Client:    &http.Client{Timeout: 30 * time.Second},
		Directory: DirectoryURL,
		Workers:   20,
	}
}

// Refresh fetches the symbol directory, categorizes every non-ETF listing by
// market cap, and replaces the stored universe. Symbols whose lookup fails
// are skipped with a counter, not an error.
func (r *Refresher) Refresh(ctx context.Context) error {
	symbols, err := r.fetchDirectory(ctx)
	if err != nil {
		return fmt.Errorf("fetch symbol directory: %w", err)
	}
	log.Printf("[universe] directory listed %d symbols", len(symbols))

	entries, skipped := r.categorize(ctx, symbols)
	if len(entries) == 0 {
		return fmt.Errorf("universe refresh: no symbols categorized (%d skipped)", skipped)
	}

	if err := r.Store.Replace(ctx, entries); err != nil {
		return fmt.Errorf("store universe: %w", err)
	}
	log.Printf("[universe] refreshed: %d categorized, %d skipped", len(entries), skipped)
	return nil
}

// fetchDirectory downloads and parses the listing, excluding ETFs.
func (r *Refresher) fetchDirectory(ctx context.Context) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.Directory, nil)
	if err != nil {
		return nil, err
	}
	resp, err := r.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("directory: status %d", resp.StatusCode)
	}

	var symbols []string
	scanner := bufio.NewScanner(resp.Body)
	first := true
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if first { // header
			first = false
			continue
		}
		if line == "" {
			continue
		}
		parts := strings.Split(line, "|")
		if len(parts) < 8 {
			continue
		}
		symbol := strings.TrimSpace(parts[0])
		etfFlag := strings.TrimSpace(parts[6])
		if etfFlag == "N" && symbol != "" {
			symbols = append(symbols, symbol)
		}
	}
	return symbols, scanner.Err()
}

// categorize looks up market caps under a bounded worker pool.
func (r *Refresher) categorize(ctx context.Context, symbols []string) ([]sqlite.SymbolInfo, int) {
	type outcome struct {
		info sqlite.SymbolInfo
		ok   bool
	}

	workers := r.Workers
	if workers <= 0 {
		workers = 20
	}

	in := make(chan string)
	out := make(chan outcome, len(symbols))

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for symbol := range in {
				mcap, name, err := r.Lookup.MarketCap(ctx, symbol)
				if err != nil || mcap <= 0 {
					out <- outcome{}
					continue
				}
				out <- outcome{
					info: sqlite.SymbolInfo{
						Symbol:    symbol,
						Category:  Categorize(mcap),
						Name:      name,
						MarketCap: mcap,
					},
					ok: true,
				}
			}
		}()
	}

	go func() {
		defer close(in)
		for _, symbol := range symbols {
			select {
			case <-ctx.Done():
				return
			case in <- symbol:
			}
		}
	}()

	go func() {
		wg.Wait()
		close(out)
	}()

	var entries []sqlite.SymbolInfo
	skipped := 0
	for o := range out {
		if o.ok {
			entries = append(entries, o.info)
		} else {
			skipped++
		}
	}
	return entries, skipped
}
