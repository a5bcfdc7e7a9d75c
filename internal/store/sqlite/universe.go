// Package sqlite persists the symbol universe: every known symbol with its
// market-cap category. Single-writer with batched transactions.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// SymbolInfo is one categorized symbol.
type SymbolInfo struct {
	Symbol    string
	Category  string // mega_cap, large_cap, mid_cap, small_cap, micro_cap
	Name      string
	MarketCap float64
}

// StoreConfig configures the universe store.
type StoreConfig struct {
	DBPath string // path to SQLite database file, e.g. "data/universe.db"
}

// Store is the SQLite-backed symbol universe.
type Store struct {
	db *sql.DB
}

// DB returns the underlying sql.DB for health checks.
func (s *Store) DB() *sql.DB { return s.db }

// New opens the database with WAL mode and ensures the schema exists.
func New(cfg StoreConfig) (*Store, error) {
	db, err := sql.Open("sqlite3", cfg.DBPath+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("sqlite open: %w", err)
	}

	// Single writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := createSchema(db); err != nil {
		return nil, fmt.Errorf("sqlite schema: %w", err)
	}

	log.Printf("[sqlite] opened universe database at %s", cfg.DBPath)
	return &Store{db: db}, nil
}

func createSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS symbols (
			symbol     TEXT    NOT NULL PRIMARY KEY,
			category   TEXT    NOT NULL,
			name       TEXT,
			market_cap REAL,
			updated_at INTEGER NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_symbols_category ON symbols(category);
	`)
	return err
}

// Replace swaps the whole universe for the given entries in one transaction.
func (s *Store) Replace(ctx context.Context, entries []SymbolInfo) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM symbols`); err != nil {
		return fmt.Errorf("clear symbols: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO symbols (symbol, category, name, market_cap, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(symbol) DO UPDATE SET
			category = excluded.category,
			name = excluded.name,
			market_cap = excluded.market_cap,
			updated_at = excluded.updated_at
	`)
	if err != nil {
		return fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()

	now := time.Now().Unix()
	for _, e := range entries {
		if _, err := stmt.ExecContext(ctx, e.Symbol, e.Category, e.Name, e.MarketCap, now); err != nil {
			return fmt.Errorf("insert %s: %w", e.Symbol, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	log.Printf("[sqlite] universe replaced: %d symbols", len(entries))
	return nil
}

// SymbolsByCategory returns the symbols in one category, insertion order.
func (s *Store) SymbolsByCategory(ctx context.Context, category string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT symbol FROM symbols WHERE category = ? ORDER BY rowid`, category)
	if err != nil {
		return nil, fmt.Errorf("query category %s: %w", category, err)
	}
	defer rows.Close()
	return collectSymbols(rows)
}

// AllSymbols returns every known symbol.
func (s *Store) AllSymbols(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT symbol FROM symbols ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("query all symbols: %w", err)
	}
	defer rows.Close()
	return collectSymbols(rows)
}

func collectSymbols(rows *sql.Rows) ([]string, error) {
	var out []string
	for rows.Next() {
		var sym string
		if err := rows.Scan(&sym); err != nil {
			return nil, err
		}
		out = append(out, sym)
	}
	return out, rows.Err()
}

// CategoryCounts returns the number of symbols per category.
func (s *Store) CategoryCounts(ctx context.Context) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT category, COUNT(*) FROM symbols GROUP BY category`)
	if err != nil {
		return nil, fmt.Errorf("query counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var cat string
		var n int
		if err := rows.Scan(&cat, &n); err != nil {
			return nil, err
		}
		counts[cat] = n
	}
	return counts, rows.Err()
}

// LastUpdated returns the most recent refresh time, zero when empty.
func (s *Store) LastUpdated(ctx context.Context) (time.Time, error) {
	var ts sql.NullInt64
	err := s.db.QueryRowContext(ctx, `SELECT MAX(updated_at) FROM symbols`).Scan(&ts)
	if err != nil {
		return time.Time{}, fmt.Errorf("query last updated: %w", err)
	}
	if !ts.Valid {
		return time.Time{}, nil
	}
	return time.Unix(ts.Int64, 0), nil
}

// Close closes the database.
func (s *Store) Close() error { return s.db.Close() }
