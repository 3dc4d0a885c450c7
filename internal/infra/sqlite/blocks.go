package sqlite

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/riti-network/riti/internal/domain"
)

// ─── Block Archive Operations ───────────────────────────────────────────────

// AppendBlock archives one block. Indices are unique, so re-appending an
// archived index fails.
func (db *DB) AppendBlock(b domain.Block) error {
	if b.Index > math.MaxInt64 {
		return fmt.Errorf("block index %d: %w", b.Index, domain.ErrOverflow)
	}
	txs := b.Transactions
	if txs == nil {
		txs = []domain.Transaction{}
	}
	txJSON, err := json.Marshal(txs)
	if err != nil {
		return fmt.Errorf("encode transactions: %w", err)
	}
	_, err = db.db.Exec(`
		INSERT INTO blocks (idx, timestamp, transactions_json, previous_hash, hash)
		VALUES (?, ?, ?, ?, ?)
	`, int64(b.Index), b.Timestamp, string(txJSON), b.PreviousHash, b.Hash)
	return err
}

// Blocks returns the archived chain ordered by index.
func (db *DB) Blocks() ([]domain.Block, error) {
	rows, err := db.db.Query(`
		SELECT idx, timestamp, transactions_json, previous_hash, hash
		FROM blocks ORDER BY idx
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var blocks []domain.Block
	for rows.Next() {
		var b domain.Block
		var idx int64
		var txJSON string
		if err := rows.Scan(&idx, &b.Timestamp, &txJSON, &b.PreviousHash, &b.Hash); err != nil {
			return nil, err
		}
		b.Index = uint64(idx)
		if err := json.Unmarshal([]byte(txJSON), &b.Transactions); err != nil {
			return nil, fmt.Errorf("block %d: decode transactions: %w", idx, err)
		}
		blocks = append(blocks, b)
	}
	return blocks, rows.Err()
}
