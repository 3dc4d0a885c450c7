// Package market implements the tradable-token marketplace.
//
// Sellers escrow YT into listings priced in Yuki. Buyers fill listings,
// fully or partially, by 1-based position in insertion order. Every trade
// moves balances for both parties in one atomic wallet update while the
// marketplace lock is held, so no partial trade is ever observable.
package market

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/riti-network/riti/internal/app/wallet"
	"github.com/riti-network/riti/internal/domain"
	"github.com/riti-network/riti/internal/infra/observability"
)

// Option customizes a Market.
type Option func(*Market)

// WithTradeLog reports every executed trade to log.
func WithTradeLog(log domain.TradeLog) Option {
	return func(m *Market) { m.trades = log }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Market) { m.logger = logger }
}

// WithClock overrides the listing and trade timestamp source.
func WithClock(now func() time.Time) Option {
	return func(m *Market) { m.now = now }
}

// Market holds the active listings.
type Market struct {
	mu       sync.Mutex
	listings []domain.Listing
	wallets  *wallet.Store
	trades   domain.TradeLog
	logger   *slog.Logger
	now      func() time.Time
}

// New creates an empty marketplace over wallets.
func New(wallets *wallet.Store, opts ...Option) *Market {
	m := &Market{
		wallets: wallets,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.logger == nil {
		m.logger = slog.Default()
	}
	m.logger = m.logger.With("component", "market")
	return m
}

// ─── Listing ────────────────────────────────────────────────────────────────

// List escrows qty tradable tokens from seller and opens a listing at price
// Yuki per token. Zero price or quantity is rejected as invalid input.
func (m *Market) List(ctx context.Context, seller string, price, qty uint64) (domain.Listing, error) {
	l, err := m.list(seller, price, qty)
	if err != nil {
		observability.MarketRejections.WithLabelValues("list", observability.Reason(err)).Inc()
	}
	return l, err
}

func (m *Market) list(seller string, price, qty uint64) (domain.Listing, error) {
	if price == 0 {
		return domain.Listing{}, fmt.Errorf("price per token must be positive: %w", domain.ErrInvalidInput)
	}
	if qty == 0 {
		return domain.Listing{}, fmt.Errorf("quantity must be positive: %w", domain.ErrInvalidInput)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	err := m.wallets.Update(func(tx *wallet.Tx) error {
		w, err := tx.Get(seller)
		if err != nil {
			return err
		}
		if w.YT < qty {
			return fmt.Errorf("%w: %q has %d YT, listing %d", domain.ErrInsufficientTokens, seller, w.YT, qty)
		}
		return tx.DebitTradable(seller, qty)
	})
	if err != nil {
		return domain.Listing{}, err
	}

	listing := domain.Listing{
		ID:              uuid.NewString(),
		Seller:          seller,
		PricePerToken:   price,
		TokensAvailable: qty,
		CreatedAt:       m.now(),
	}
	m.listings = append(m.listings, listing)

	observability.ListingsCreated.Inc()
	observability.ListingsActive.Set(float64(len(m.listings)))
	m.logger.Info("tokens listed for sale", "listing", listing.ID, "seller", seller, "price", price, "quantity", qty)

	return listing, m.wallets.Persist()
}

// Listings returns the active listings in insertion order.
// Position i in the result is listing number i+1.
func (m *Market) Listings() []domain.Listing {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.listings)
}

// Len returns the number of active listings.
func (m *Market) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.listings)
}

// ─── Trading ────────────────────────────────────────────────────────────────

// Buy purchases qty tokens from the listing at 1-based position.
// Checks run in order: buyer exists, listing exists, quantity available,
// total price fits in 64 bits, buyer can pay. Any failure leaves every
// balance and listing unchanged. A listing filled to zero is removed.
func (m *Market) Buy(ctx context.Context, buyer string, position int, qty uint64) (domain.Trade, error) {
	return m.BuyListing(ctx, buyer, position, "", qty)
}

// BuyListing is Buy with a guard against shifted positions: when listingID is
// non-empty the listing at position must carry that ID, otherwise the call
// fails with domain.ErrInvalidListing and nothing changes.
func (m *Market) BuyListing(ctx context.Context, buyer string, position int, listingID string, qty uint64) (domain.Trade, error) {
	t, err := m.buy(buyer, position, listingID, qty)
	if err != nil {
		observability.MarketRejections.WithLabelValues("buy", observability.Reason(err)).Inc()
	}
	return t, err
}

func (m *Market) buy(buyer string, position int, listingID string, qty uint64) (domain.Trade, error) {
	if qty == 0 {
		return domain.Trade{}, fmt.Errorf("quantity must be positive: %w", domain.ErrInvalidInput)
	}
	if !m.wallets.Exists(buyer) {
		return domain.Trade{}, fmt.Errorf("%w: %q", domain.ErrWalletNotFound, buyer)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	idx, err := m.resolve(position, listingID)
	if err != nil {
		return domain.Trade{}, err
	}
	listing := m.listings[idx]

	if qty > listing.TokensAvailable {
		return domain.Trade{}, fmt.Errorf("%w: requested %d, available %d",
			domain.ErrInsufficientListingQuantity, qty, listing.TokensAvailable)
	}
	total, err := domain.CheckedMul(listing.PricePerToken, qty)
	if err != nil {
		return domain.Trade{}, fmt.Errorf("total price: %w", err)
	}

	err = m.wallets.Update(func(tx *wallet.Tx) error {
		w, err := tx.Get(buyer)
		if err != nil {
			return err
		}
		if w.Yuki < total {
			return fmt.Errorf("%w: %q has %d Yuki, total is %d", domain.ErrInsufficientFunds, buyer, w.Yuki, total)
		}
		if err := tx.DebitSpendable(buyer, total); err != nil {
			return err
		}
		if err := tx.CreditTradable(buyer, qty); err != nil {
			return err
		}
		return tx.CreditSpendable(listing.Seller, total)
	})
	if err != nil {
		return domain.Trade{}, err
	}

	m.listings[idx].TokensAvailable -= qty
	exhausted := m.listings[idx].TokensAvailable == 0
	if exhausted {
		m.listings = slices.Delete(m.listings, idx, idx+1)
	}

	trade := domain.Trade{
		ID:            uuid.NewString(),
		ListingID:     listing.ID,
		Buyer:         buyer,
		Seller:        listing.Seller,
		Quantity:      qty,
		PricePerToken: listing.PricePerToken,
		Total:         total,
		ExecutedAt:    m.now(),
		Exhausted:     exhausted,
	}

	observability.TradesExecuted.Inc()
	observability.TradeVolume.Add(float64(total))
	observability.ListingsActive.Set(float64(len(m.listings)))
	m.logger.Info("tokens purchased",
		"trade", trade.ID, "listing", listing.ID, "buyer", buyer, "seller", listing.Seller,
		"quantity", qty, "total", total, "exhausted", exhausted)

	if m.trades != nil {
		if err := m.trades.RecordTrade(trade); err != nil {
			m.logger.Warn("record trade", "trade", trade.ID, "error", err)
		}
	}
	return trade, m.wallets.Persist()
}

// ─── Cancellation ───────────────────────────────────────────────────────────

// Cancel closes the listing at position and returns its escrow to seller.
// Only the listing's seller may cancel it.
func (m *Market) Cancel(ctx context.Context, seller string, position int) (domain.Listing, error) {
	return m.CancelListing(ctx, seller, position, "")
}

// CancelListing is Cancel guarded by listingID, as in BuyListing.
func (m *Market) CancelListing(ctx context.Context, seller string, position int, listingID string) (domain.Listing, error) {
	l, err := m.cancel(seller, position, listingID)
	if err != nil {
		observability.MarketRejections.WithLabelValues("cancel", observability.Reason(err)).Inc()
	}
	return l, err
}

func (m *Market) cancel(seller string, position int, listingID string) (domain.Listing, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	idx, err := m.resolve(position, listingID)
	if err != nil {
		return domain.Listing{}, err
	}
	listing := m.listings[idx]
	if listing.Seller != seller {
		return domain.Listing{}, fmt.Errorf("%w: listing %d", domain.ErrNotListingOwner, position)
	}

	if err := m.wallets.CreditTradable(seller, listing.TokensAvailable); err != nil {
		return domain.Listing{}, err
	}
	m.listings = slices.Delete(m.listings, idx, idx+1)

	observability.ListingsActive.Set(float64(len(m.listings)))
	m.logger.Info("listing cancelled", "listing", listing.ID, "seller", seller, "restored", listing.TokensAvailable)

	return listing, m.wallets.Persist()
}

// RestoreAll returns every outstanding escrow to its seller and clears the
// marketplace. Listings live only in memory, so this runs at shutdown.
// Escrow owed to a wallet that no longer exists is dropped with a warning.
func (m *Market) RestoreAll(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.listings) == 0 {
		return nil
	}
	for _, l := range m.listings {
		if err := m.wallets.CreditTradable(l.Seller, l.TokensAvailable); err != nil {
			m.logger.Warn("escrow not restored", "listing", l.ID, "seller", l.Seller, "error", err)
		}
	}
	m.logger.Info("escrow restored", "listings", len(m.listings))
	m.listings = nil
	observability.ListingsActive.Set(0)

	return m.wallets.Persist()
}

// resolve maps a 1-based position to a slice index, checking the listing ID
// when one is given. Callers hold m.mu.
func (m *Market) resolve(position int, listingID string) (int, error) {
	if position < 1 || position > len(m.listings) {
		return 0, fmt.Errorf("%w: %d (have %d listings)", domain.ErrInvalidListing, position, len(m.listings))
	}
	idx := position - 1
	if listingID != "" && m.listings[idx].ID != listingID {
		return 0, fmt.Errorf("%w: listing %d is no longer %s", domain.ErrInvalidListing, position, listingID)
	}
	return idx, nil
}
