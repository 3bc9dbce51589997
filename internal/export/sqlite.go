// Package export persists a finished run's histories to SQLite for
// plotting and offline analysis. It only reads the market's accessors and
// never mutates simulation state.
package export

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/glebarez/go-sqlite"

	"github.com/efreitasn/marketsim/internal/market"
)

// Writer owns the export database handle.
type Writer struct {
	db *sql.DB
}

// NewWriter opens (or creates) the SQLite file at path and ensures the
// export schema exists.
func NewWriter(path string) (*Writer, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return nil, fmt.Errorf("failed to set pragma %s: %w", pragma, err)
		}
	}

	schema := []string{
		`CREATE TABLE IF NOT EXISTS prices (
			round INTEGER NOT NULL,
			symbol TEXT NOT NULL,
			price TEXT NOT NULL,
			PRIMARY KEY (round, symbol)
		);`,
		`CREATE TABLE IF NOT EXISTS net_worth (
			round INTEGER NOT NULL,
			agent_id TEXT NOT NULL,
			value TEXT NOT NULL,
			PRIMARY KEY (round, agent_id)
		);`,
		`CREATE TABLE IF NOT EXISTS transactions (
			seq INTEGER PRIMARY KEY,
			transaction_id TEXT NOT NULL,
			round INTEGER NOT NULL,
			symbol TEXT NOT NULL,
			price TEXT NOT NULL,
			quantity INTEGER NOT NULL,
			buyer_id TEXT NOT NULL,
			seller_id TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS inflation (
			round INTEGER PRIMARY KEY,
			rate REAL NOT NULL
		);`,
	}
	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			return nil, fmt.Errorf("failed to create schema: %w", err)
		}
	}

	return &Writer{db: db}, nil
}

// Close releases the database handle.
func (w *Writer) Close() error {
	return w.db.Close()
}

// Export writes the run's price history, net-worth history, transaction
// log, and inflation series in one transaction. Prices and cash amounts
// are stored as decimal strings to keep them exact.
func (w *Writer) Export(ctx context.Context, m *market.Market) error {
	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin export: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for symbol, series := range m.PriceHistory() {
		for i, price := range series {
			if _, err := tx.ExecContext(ctx,
				"INSERT OR REPLACE INTO prices (round, symbol, price) VALUES (?, ?, ?)",
				i+1, symbol, price.String(),
			); err != nil {
				return fmt.Errorf("failed to insert price: %w", err)
			}
		}
	}

	for agentID, series := range m.NetWorthHistory() {
		for i, value := range series {
			if _, err := tx.ExecContext(ctx,
				"INSERT OR REPLACE INTO net_worth (round, agent_id, value) VALUES (?, ?, ?)",
				i+1, agentID, value.String(),
			); err != nil {
				return fmt.Errorf("failed to insert net worth: %w", err)
			}
		}
	}

	for i, t := range m.Transactions() {
		if _, err := tx.ExecContext(ctx,
			"INSERT OR REPLACE INTO transactions (seq, transaction_id, round, symbol, price, quantity, buyer_id, seller_id) VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
			i+1, t.TransactionID, t.Round, t.Symbol, t.Price.String(), t.Quantity, t.BuyerID, t.SellerID,
		); err != nil {
			return fmt.Errorf("failed to insert transaction: %w", err)
		}
	}

	for i, rate := range m.InflationHistory() {
		if _, err := tx.ExecContext(ctx,
			"INSERT OR REPLACE INTO inflation (round, rate) VALUES (?, ?)",
			i+1, rate,
		); err != nil {
			return fmt.Errorf("failed to insert inflation rate: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit export: %w", err)
	}
	return nil
}
