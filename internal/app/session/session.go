// Package session wires the wallet store, ledger and marketplace over one
// persistence backend. A Session is the single owner of that state for the
// lifetime of a CLI command, shell or server.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/riti-network/riti/internal/app/ledger"
	"github.com/riti-network/riti/internal/app/market"
	"github.com/riti-network/riti/internal/app/wallet"
	"github.com/riti-network/riti/internal/domain"
	"github.com/riti-network/riti/internal/infra/jsonfile"
	"github.com/riti-network/riti/internal/infra/sqlite"
)

// Storage backends.
const (
	BackendJSON   = "json"
	BackendSQLite = "sqlite"
)

// Options configures a Session.
type Options struct {
	Backend    string // BackendJSON or BackendSQLite
	WalletFile string // JSON backend; relative paths resolve against DataDir
	DataDir    string

	Wallet wallet.Config
	Ledger ledger.Config

	Verifier domain.ProofVerifier // optional
	Logger   *slog.Logger
}

// Session owns the process state.
type Session struct {
	Wallets *wallet.Store
	Ledger  *ledger.Ledger
	Market  *market.Market

	db     *sqlite.DB // nil for the JSON backend
	logger *slog.Logger
}

// Open builds the backend, loads the wallet store and restores the chain.
func Open(opts Options) (*Session, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &Session{logger: logger.With("component", "session")}

	var (
		persister  domain.WalletPersister
		ledgerOpts = []ledger.Option{ledger.WithLogger(logger)}
		marketOpts = []market.Option{market.WithLogger(logger)}
	)
	if opts.Verifier != nil {
		ledgerOpts = append(ledgerOpts, ledger.WithVerifier(opts.Verifier))
	}

	switch opts.Backend {
	case BackendJSON, "":
		path := opts.WalletFile
		if path == "" {
			path = "wallets.json"
		}
		if !filepath.IsAbs(path) {
			path = filepath.Join(opts.DataDir, path)
		}
		persister = jsonfile.New(path)
	case BackendSQLite:
		db, err := sqlite.Open(opts.DataDir)
		if err != nil {
			return nil, fmt.Errorf("open database: %w", err)
		}
		s.db = db
		persister = db
		ledgerOpts = append(ledgerOpts, ledger.WithArchive(db))
		marketOpts = append(marketOpts, market.WithTradeLog(db))
	default:
		return nil, fmt.Errorf("unknown storage backend %q: %w", opts.Backend, domain.ErrInvalidInput)
	}

	s.Wallets = wallet.New(opts.Wallet, persister, logger)
	n := s.Wallets.Load()

	l, err := ledger.New(opts.Ledger, s.Wallets, ledgerOpts...)
	if err != nil {
		s.closeDB()
		return nil, err
	}
	s.Ledger = l
	s.Market = market.New(s.Wallets, marketOpts...)

	s.logger.Info("session opened", "backend", backendName(opts.Backend), "wallets", n, "height", l.Len())
	return s, nil
}

// CreateWallet creates (or resets) id and persists the store.
func (s *Session) CreateWallet(id string) (domain.Wallet, error) {
	w, err := s.Wallets.Create(id)
	if err != nil {
		return domain.Wallet{}, err
	}
	s.logger.Info("wallet created", "wallet", id, "yuki", w.Yuki)
	return w, s.Wallets.Persist()
}

// RecentTrades returns the latest executed trades. Only the SQLite backend
// keeps a trade log; the JSON backend returns nil.
func (s *Session) RecentTrades(limit int) ([]domain.Trade, error) {
	if s.db == nil {
		return nil, nil
	}
	return s.db.RecentTrades(limit)
}

// Close returns outstanding escrow to sellers, persists, and releases the
// backend.
func (s *Session) Close(ctx context.Context) error {
	err := s.Market.RestoreAll(ctx)
	if cerr := s.closeDB(); cerr != nil {
		err = errors.Join(err, cerr)
	}
	return err
}

func (s *Session) closeDB() error {
	if s.db == nil {
		return nil
	}
	db := s.db
	s.db = nil
	return db.Close()
}

func backendName(b string) string {
	if b == "" {
		return BackendJSON
	}
	return b
}
