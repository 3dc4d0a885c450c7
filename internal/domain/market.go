package domain

import "time"

// ─── Marketplace Types ──────────────────────────────────────────────────────

// Listing is an open offer to sell tradable tokens at a fixed unit price.
// TokensAvailable is held in escrow by the marketplace until sold or restored.
type Listing struct {
	ID              string    `json:"id"`
	Seller          string    `json:"seller"`
	PricePerToken   uint64    `json:"price_per_token"`
	TokensAvailable uint64    `json:"tokens_available"`
	CreatedAt       time.Time `json:"created_at"`
}

// Trade is the receipt of one executed purchase against a listing.
type Trade struct {
	ID            string    `json:"id"`
	ListingID     string    `json:"listing_id"`
	Buyer         string    `json:"buyer"`
	Seller        string    `json:"seller"`
	Quantity      uint64    `json:"quantity"`
	PricePerToken uint64    `json:"price_per_token"`
	Total         uint64    `json:"total"`
	ExecutedAt    time.Time `json:"executed_at"`
	Exhausted     bool      `json:"exhausted"` // listing removed by this trade
}
