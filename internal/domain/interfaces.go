package domain

import "context"

// ─── Service Interfaces ─────────────────────────────────────────────────────
// These interfaces define boundaries between layers.
// Infrastructure implements them; application layer depends on them.

// WalletPersister abstracts the external wallet store. The format is opaque
// to the application layer: it loads and saves the whole mapping at once.
type WalletPersister interface {
	// LoadWallets returns the persisted mapping. A store that has never been
	// written returns an empty map and no error.
	LoadWallets() (map[string]Wallet, error)

	// SaveWallets replaces the persisted mapping with wallets.
	SaveWallets(wallets map[string]Wallet) error
}

// BlockArchive persists appended blocks so the chain survives restarts.
type BlockArchive interface {
	AppendBlock(b Block) error
	Blocks() ([]Block, error) // ordered by index
}

// TradeLog records executed trades.
type TradeLog interface {
	RecordTrade(t Trade) error
}

// ProofVerifier checks a proof-of-completion before a reward is minted.
// Without one, the ledger trusts the caller and marks every transaction verified.
type ProofVerifier interface {
	Verify(ctx context.Context, account, task, proof string) (bool, error)
}
