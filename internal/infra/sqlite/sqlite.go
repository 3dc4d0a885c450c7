// Package sqlite provides SQLite-backed persistence for wallets, the block
// archive and the trade log, using the pure-Go modernc.org/sqlite driver.
package sqlite

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// FileName is the database file created inside the data directory.
const FileName = "riti.db"

// DB wraps a SQLite connection with the application schema applied.
type DB struct {
	db   *sql.DB
	path string
}

// Open opens (or creates) the database in dir and runs migrations.
func Open(dir string) (*DB, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}
	path := filepath.Join(dir, FileName)
	dsn := path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)"

	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// SQLite allows one writer; a single connection keeps writes ordered.
	conn.SetMaxOpenConns(1)

	db := &DB{db: conn, path: path}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, err
	}
	return db, nil
}

// Path returns the database file path.
func (db *DB) Path() string { return db.path }

// Close closes the database.
func (db *DB) Close() error {
	return db.db.Close()
}

// ─── Schema ─────────────────────────────────────────────────────────────────

// Migrations returns the schema migration statements.
// Each string is a single SQL statement (SQLite executes one at a time).
func Migrations() []string {
	return []string{
		// Wallet balances, one row per account
		`CREATE TABLE IF NOT EXISTS wallets (
			id           TEXT PRIMARY KEY,
			balance_yuki INTEGER NOT NULL DEFAULT 0 CHECK(balance_yuki >= 0),
			balance_yg   INTEGER NOT NULL DEFAULT 0 CHECK(balance_yg >= 0),
			balance_yt   INTEGER NOT NULL DEFAULT 0 CHECK(balance_yt >= 0),
			updated_at   TEXT NOT NULL DEFAULT (datetime('now'))
		)`,

		// Block archive, append-only
		`CREATE TABLE IF NOT EXISTS blocks (
			idx               INTEGER PRIMARY KEY,
			timestamp         INTEGER NOT NULL,
			transactions_json TEXT NOT NULL DEFAULT '[]',
			previous_hash     TEXT NOT NULL,
			hash              TEXT NOT NULL UNIQUE
		)`,

		// Executed marketplace trades
		`CREATE TABLE IF NOT EXISTS trades (
			id              TEXT PRIMARY KEY,
			listing_id      TEXT NOT NULL,
			buyer           TEXT NOT NULL,
			seller          TEXT NOT NULL,
			quantity        INTEGER NOT NULL,
			price_per_token INTEGER NOT NULL,
			total           INTEGER NOT NULL,
			exhausted       INTEGER NOT NULL DEFAULT 0,
			executed_at     TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_trades_executed ON trades(executed_at)`,
		`CREATE INDEX IF NOT EXISTS idx_trades_buyer ON trades(buyer)`,
		`CREATE INDEX IF NOT EXISTS idx_trades_seller ON trades(seller)`,
	}
}

func (db *DB) migrate() error {
	for _, stmt := range Migrations() {
		if _, err := db.db.Exec(stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}
