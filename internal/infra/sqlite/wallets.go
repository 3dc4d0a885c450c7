package sqlite

import (
	"fmt"
	"math"

	"github.com/riti-network/riti/internal/domain"
)

// ─── Wallet Operations ──────────────────────────────────────────────────────

// LoadWallets returns every stored wallet.
func (db *DB) LoadWallets() (map[string]domain.Wallet, error) {
	rows, err := db.db.Query(`SELECT id, balance_yuki, balance_yg, balance_yt FROM wallets`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	wallets := make(map[string]domain.Wallet)
	for rows.Next() {
		var id string
		var yuki, yg, yt int64
		if err := rows.Scan(&id, &yuki, &yg, &yt); err != nil {
			return nil, err
		}
		wallets[id] = domain.Wallet{Yuki: uint64(yuki), YG: uint64(yg), YT: uint64(yt)}
	}
	return wallets, rows.Err()
}

// SaveWallets replaces the stored mapping in a single transaction.
// SQLite integers are signed, so balances above math.MaxInt64 are refused.
func (db *DB) SaveWallets(wallets map[string]domain.Wallet) error {
	tx, err := db.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM wallets`); err != nil {
		return err
	}
	stmt, err := tx.Prepare(`
		INSERT INTO wallets (id, balance_yuki, balance_yg, balance_yt, updated_at)
		VALUES (?, ?, ?, ?, datetime('now'))
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for id, w := range wallets {
		yuki, yg, yt, err := signed(w)
		if err != nil {
			return fmt.Errorf("wallet %q: %w", id, err)
		}
		if _, err := stmt.Exec(id, yuki, yg, yt); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func signed(w domain.Wallet) (yuki, yg, yt int64, err error) {
	if w.Yuki > math.MaxInt64 || w.YG > math.MaxInt64 || w.YT > math.MaxInt64 {
		return 0, 0, 0, fmt.Errorf("balance exceeds storage range: %w", domain.ErrOverflow)
	}
	return int64(w.Yuki), int64(w.YG), int64(w.YT), nil
}
