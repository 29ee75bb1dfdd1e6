// Package sqlstore persists portfolio time series in SQLite and serves
// them through the portfolio.TimeSeriesStore interface.
package sqlstore

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// DB wraps the database connection.
type DB struct {
	conn *sql.DB
	path string
}

// Open opens (creating if needed) the database at dbPath. WAL mode keeps
// concurrent readers cheap while the ETL writer appends.
func Open(dbPath string) (*DB, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	conn, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := conn.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	conn.SetMaxOpenConns(25)
	conn.SetMaxIdleConns(5)

	db := &DB{conn: conn, path: dbPath}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, err
	}
	return db, nil
}

// OpenMemory opens a private in-memory database, used in tests.
func OpenMemory() (*DB, error) {
	conn, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// The in-memory database lives per connection.
	conn.SetMaxOpenConns(1)
	db := &DB{conn: conn, path: ":memory:"}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, err
	}
	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Conn returns the underlying sql.DB connection.
func (db *DB) Conn() *sql.DB {
	return db.conn
}

const schema = `
CREATE TABLE IF NOT EXISTS portfolios (
	id       INTEGER PRIMARY KEY,
	name     TEXT NOT NULL,
	currency TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS assets (
	id          INTEGER PRIMARY KEY,
	ticker      TEXT NOT NULL,
	name        TEXT NOT NULL DEFAULT '',
	asset_class TEXT NOT NULL DEFAULT 'unknown',
	region      TEXT NOT NULL DEFAULT 'domestic',
	currency    TEXT NOT NULL DEFAULT ''
);
CREATE TABLE IF NOT EXISTS portfolio_nav_daily (
	portfolio_id INTEGER NOT NULL,
	date         TEXT NOT NULL,
	nav          TEXT NOT NULL,
	cash         TEXT NOT NULL,
	currency     TEXT NOT NULL,
	PRIMARY KEY (portfolio_id, date)
);
CREATE TABLE IF NOT EXISTS portfolio_positions_daily (
	portfolio_id INTEGER NOT NULL,
	date         TEXT NOT NULL,
	asset_id     INTEGER NOT NULL,
	quantity     TEXT NOT NULL,
	avg_cost     TEXT NOT NULL,
	price        TEXT NOT NULL,
	market_value TEXT NOT NULL,
	currency     TEXT NOT NULL,
	PRIMARY KEY (portfolio_id, date, asset_id)
);
CREATE TABLE IF NOT EXISTS portfolio_flows_daily (
	portfolio_id INTEGER NOT NULL,
	date         TEXT NOT NULL,
	amount       REAL NOT NULL,
	PRIMARY KEY (portfolio_id, date)
);
CREATE TABLE IF NOT EXISTS market_instruments (
	symbol      TEXT PRIMARY KEY,
	name        TEXT NOT NULL DEFAULT '',
	market_type TEXT NOT NULL DEFAULT 'STOCK_INDEX',
	country     TEXT NOT NULL DEFAULT '',
	currency    TEXT NOT NULL DEFAULT ''
);
CREATE TABLE IF NOT EXISTS market_prices_daily (
	symbol TEXT NOT NULL,
	date   TEXT NOT NULL,
	close  REAL NOT NULL,
	PRIMARY KEY (symbol, date)
);
`

// Amounts are stored as decimal TEXT, never floats: valuations must
// survive a round trip unchanged.
func (db *DB) migrate() error {
	if _, err := db.conn.Exec(schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}
