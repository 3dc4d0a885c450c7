// Package wallet implements the process-wide balance store.
//
// Every mutation goes through Update, which stages changes on copies of the
// touched records and commits them together only when the callback returns
// nil. Multi-account operations (task rewards, marketplace trades) therefore
// never leave a partially applied state behind.
package wallet

import (
	"fmt"
	"log/slog"
	"maps"
	"sort"
	"strings"
	"sync"

	"github.com/riti-network/riti/internal/domain"
	"github.com/riti-network/riti/internal/infra/observability"
)

// Config controls store behavior.
type Config struct {
	StartingBalance uint64 // spendable balance of a freshly created wallet
}

// DefaultConfig returns the stock economy: new wallets start with 10 Yuki.
func DefaultConfig() Config {
	return Config{StartingBalance: 10}
}

// Store maps account identifiers to balance records.
type Store struct {
	mu        sync.RWMutex
	persistMu sync.Mutex // serializes snapshots so saves land in order
	config    Config
	wallets   map[string]domain.Wallet
	persister domain.WalletPersister
	logger    *slog.Logger
}

// New creates an empty store backed by p. Call Load to read persisted state.
func New(cfg Config, p domain.WalletPersister, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		config:    cfg,
		wallets:   make(map[string]domain.Wallet),
		persister: p,
		logger:    logger.With("component", "wallet"),
	}
}

// ─── Persistence ────────────────────────────────────────────────────────────

// Load replaces the in-memory mapping with the persisted one.
// An absent, unreadable or corrupt store is treated as empty: the failure is
// logged as a warning and the process starts fresh. This is a deliberate
// leniency, not a validation guarantee.
func (s *Store) Load() int {
	loaded, err := s.persister.LoadWallets()
	if err != nil {
		s.logger.Warn("wallet store unreadable, starting with an empty store", "error", err)
		loaded = nil
	}
	if loaded == nil {
		loaded = make(map[string]domain.Wallet)
	}

	s.mu.Lock()
	s.wallets = loaded
	s.mu.Unlock()

	s.logger.Debug("wallet store loaded", "wallets", len(loaded))
	return len(loaded)
}

// Persist writes the full mapping to the external store. Failures wrap
// domain.ErrPersistence and must be treated as fatal by the caller.
func (s *Store) Persist() error {
	s.persistMu.Lock()
	defer s.persistMu.Unlock()

	s.mu.RLock()
	snapshot := maps.Clone(s.wallets)
	s.mu.RUnlock()

	if err := s.persister.SaveWallets(snapshot); err != nil {
		observability.StoreSaveFailures.Inc()
		s.logger.Error("persist wallet store", "error", err)
		return fmt.Errorf("%w: %w", domain.ErrPersistence, err)
	}
	return nil
}

// ─── Reads ──────────────────────────────────────────────────────────────────

// Get returns the balance record of id.
func (s *Store) Get(id string) (domain.Wallet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	w, ok := s.wallets[id]
	if !ok {
		return domain.Wallet{}, fmt.Errorf("%w: %q", domain.ErrWalletNotFound, id)
	}
	return w, nil
}

// Exists reports whether id has a wallet.
func (s *Store) Exists(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.wallets[id]
	return ok
}

// Len returns the number of wallets.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.wallets)
}

// List returns every account sorted by identifier.
func (s *Store) List() []domain.Account {
	s.mu.RLock()
	out := make([]domain.Account, 0, len(s.wallets))
	for id, w := range s.wallets {
		out = append(out, domain.Account{ID: id, Wallet: w})
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// ─── Mutations ──────────────────────────────────────────────────────────────

// Update runs fn against a staging transaction. If fn returns nil every
// staged record is committed at once; otherwise the store is left untouched.
// fn must not call back into the Store.
func (s *Store) Update(fn func(tx *Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &Tx{base: s.wallets, staged: make(map[string]domain.Wallet), starting: s.config.StartingBalance}
	if err := fn(tx); err != nil {
		return err
	}
	for id, w := range tx.staged {
		s.wallets[id] = w
	}
	return nil
}

// Create inserts a fresh wallet for id. An existing record is silently
// overwritten; check Exists first if that is undesired.
func (s *Store) Create(id string) (domain.Wallet, error) {
	var w domain.Wallet
	err := s.Update(func(tx *Tx) error {
		var err error
		w, err = tx.Create(id)
		return err
	})
	return w, err
}

// DebitSpendable removes amount Yuki from id.
func (s *Store) DebitSpendable(id string, amount uint64) error {
	return s.Update(func(tx *Tx) error { return tx.DebitSpendable(id, amount) })
}

// CreditSpendable adds amount Yuki to id.
func (s *Store) CreditSpendable(id string, amount uint64) error {
	return s.Update(func(tx *Tx) error { return tx.CreditSpendable(id, amount) })
}

// DebitTradable removes amount YT from id.
func (s *Store) DebitTradable(id string, amount uint64) error {
	return s.Update(func(tx *Tx) error { return tx.DebitTradable(id, amount) })
}

// CreditTradable adds amount YT to id.
func (s *Store) CreditTradable(id string, amount uint64) error {
	return s.Update(func(tx *Tx) error { return tx.CreditTradable(id, amount) })
}

// CreditGovernance adds amount YG to id.
func (s *Store) CreditGovernance(id string, amount uint64) error {
	return s.Update(func(tx *Tx) error { return tx.CreditGovernance(id, amount) })
}

// ─── Transaction ────────────────────────────────────────────────────────────

// Tx is a staging view over the store used inside Update.
// Reads see staged writes first, then committed state.
type Tx struct {
	base     map[string]domain.Wallet
	staged   map[string]domain.Wallet
	starting uint64
}

// Get returns id's wallet as seen by this transaction.
func (tx *Tx) Get(id string) (domain.Wallet, error) {
	if w, ok := tx.staged[id]; ok {
		return w, nil
	}
	if w, ok := tx.base[id]; ok {
		return w, nil
	}
	return domain.Wallet{}, fmt.Errorf("%w: %q", domain.ErrWalletNotFound, id)
}

// Create stages a fresh wallet for id, replacing any existing one.
func (tx *Tx) Create(id string) (domain.Wallet, error) {
	if strings.TrimSpace(id) == "" {
		return domain.Wallet{}, fmt.Errorf("wallet id must not be empty: %w", domain.ErrInvalidInput)
	}
	if err := domain.ValidText("wallet id", id); err != nil {
		return domain.Wallet{}, err
	}
	w := domain.NewWallet(tx.starting)
	tx.staged[id] = w
	return w, nil
}

func (tx *Tx) modify(id string, fn func(w *domain.Wallet) error) error {
	w, err := tx.Get(id)
	if err != nil {
		return err
	}
	if err := fn(&w); err != nil {
		return err
	}
	tx.staged[id] = w
	return nil
}

// DebitSpendable stages a Yuki debit.
func (tx *Tx) DebitSpendable(id string, amount uint64) error {
	return tx.modify(id, func(w *domain.Wallet) error {
		if w.Yuki < amount {
			return fmt.Errorf("%w: %q has %d Yuki, needs %d", domain.ErrInsufficientFunds, id, w.Yuki, amount)
		}
		w.Yuki -= amount
		return nil
	})
}

// CreditSpendable stages a Yuki credit.
func (tx *Tx) CreditSpendable(id string, amount uint64) error {
	return tx.modify(id, func(w *domain.Wallet) (err error) {
		w.Yuki, err = domain.CheckedAdd(w.Yuki, amount)
		return err
	})
}

// DebitTradable stages a YT debit.
func (tx *Tx) DebitTradable(id string, amount uint64) error {
	return tx.modify(id, func(w *domain.Wallet) error {
		if w.YT < amount {
			return fmt.Errorf("%w: %q has %d YT, needs %d", domain.ErrInsufficientFunds, id, w.YT, amount)
		}
		w.YT -= amount
		return nil
	})
}

// CreditTradable stages a YT credit.
func (tx *Tx) CreditTradable(id string, amount uint64) error {
	return tx.modify(id, func(w *domain.Wallet) (err error) {
		w.YT, err = domain.CheckedAdd(w.YT, amount)
		return err
	})
}

// CreditGovernance stages a YG credit.
func (tx *Tx) CreditGovernance(id string, amount uint64) error {
	return tx.modify(id, func(w *domain.Wallet) (err error) {
		w.YG, err = domain.CheckedAdd(w.YG, amount)
		return err
	})
}
