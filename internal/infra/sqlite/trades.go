package sqlite

import (
	"fmt"
	"math"
	"time"

	"github.com/riti-network/riti/internal/domain"
)

// ─── Trade Log Operations ───────────────────────────────────────────────────

// tradeTimeLayout is fixed-width so executed_at sorts lexically.
const tradeTimeLayout = "2006-01-02T15:04:05.000000000Z"

// RecordTrade stores an executed trade.
func (db *DB) RecordTrade(t domain.Trade) error {
	if t.Quantity > math.MaxInt64 || t.PricePerToken > math.MaxInt64 || t.Total > math.MaxInt64 {
		return fmt.Errorf("trade %s: %w", t.ID, domain.ErrOverflow)
	}
	exhausted := 0
	if t.Exhausted {
		exhausted = 1
	}
	_, err := db.db.Exec(`
		INSERT INTO trades (id, listing_id, buyer, seller, quantity, price_per_token, total, exhausted, executed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, t.ID, t.ListingID, t.Buyer, t.Seller, int64(t.Quantity), int64(t.PricePerToken), int64(t.Total),
		exhausted, t.ExecutedAt.UTC().Format(tradeTimeLayout))
	return err
}

// RecentTrades returns up to limit trades, newest first.
func (db *DB) RecentTrades(limit int) ([]domain.Trade, error) {
	rows, err := db.db.Query(`
		SELECT id, listing_id, buyer, seller, quantity, price_per_token, total, exhausted, executed_at
		FROM trades ORDER BY executed_at DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Trade
	for rows.Next() {
		var t domain.Trade
		var qty, price, total int64
		var exhausted int
		var executedStr string
		if err := rows.Scan(&t.ID, &t.ListingID, &t.Buyer, &t.Seller, &qty, &price, &total, &exhausted, &executedStr); err != nil {
			return nil, err
		}
		t.Quantity, t.PricePerToken, t.Total = uint64(qty), uint64(price), uint64(total)
		t.Exhausted = exhausted == 1
		executed, err := time.Parse(tradeTimeLayout, executedStr)
		if err != nil {
			return nil, fmt.Errorf("trade %s: parse executed_at: %w", t.ID, err)
		}
		t.ExecutedAt = executed
		result = append(result, t)
	}
	return result, rows.Err()
}
