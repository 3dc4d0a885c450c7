// Package ledger owns the hash-linked chain and the task-reward flow.
//
// A task submission:
//  1. Looks up the wallet
//  2. Checks the spendable balance covers the stake
//  3. Burns the stake and credits the mining reward (one atomic update)
//  4. Records a reward transaction in a new block linked to the tip
//  5. Appends the block and persists the wallet store
package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/riti-network/riti/internal/app/wallet"
	"github.com/riti-network/riti/internal/domain"
	"github.com/riti-network/riti/internal/infra/observability"
)

// Config holds the economy constants. They are fixed for the lifetime of a
// ledger and never chosen per call.
type Config struct {
	StakeAmount  uint64 // Yuki burned per submission
	MiningReward uint64 // Yuki minted per submission
}

// DefaultConfig returns stake 5, reward 10.
func DefaultConfig() Config {
	return Config{
		StakeAmount:  5,
		MiningReward: 10,
	}
}

// Option customizes a Ledger.
type Option func(*Ledger)

// WithArchive persists every block to a and restores the chain from it.
func WithArchive(a domain.BlockArchive) Option {
	return func(l *Ledger) { l.archive = a }
}

// WithVerifier checks proofs before rewarding. Without one every
// transaction is recorded as verified on the caller's word.
func WithVerifier(v domain.ProofVerifier) Option {
	return func(l *Ledger) { l.verifier = v }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Ledger) { l.logger = logger }
}

// WithClock overrides the block timestamp source.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

// Ledger is the append-only chain of blocks.
type Ledger struct {
	mu       sync.RWMutex
	config   Config
	chain    []domain.Block
	wallets  *wallet.Store
	archive  domain.BlockArchive
	verifier domain.ProofVerifier
	logger   *slog.Logger
	now      func() time.Time

	accepted uint64
	rejected uint64
}

// New creates a ledger. Without an archive, or with an empty one, the chain
// starts at a fresh genesis block. A non-empty archive is restored and must
// pass Verify, otherwise domain.ErrChainCorrupted is returned.
func New(cfg Config, wallets *wallet.Store, opts ...Option) (*Ledger, error) {
	l := &Ledger{
		config:  cfg,
		wallets: wallets,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.logger == nil {
		l.logger = slog.Default()
	}
	l.logger = l.logger.With("component", "ledger")

	if l.archive != nil {
		blocks, err := l.archive.Blocks()
		if err != nil {
			return nil, fmt.Errorf("load block archive: %w", err)
		}
		if len(blocks) > 0 {
			if err := VerifyChain(blocks); err != nil {
				return nil, err
			}
			l.chain = blocks
			l.logger.Info("chain restored from archive", "height", len(blocks))
			observability.ChainHeight.Set(float64(len(blocks)))
			return l, nil
		}
	}

	genesis := domain.GenesisBlock(l.now())
	if l.archive != nil {
		if err := l.archive.AppendBlock(genesis); err != nil {
			return nil, fmt.Errorf("%w: archive genesis block: %w", domain.ErrPersistence, err)
		}
	}
	l.chain = []domain.Block{genesis}
	observability.ChainHeight.Set(1)
	return l, nil
}

// Config returns the economy constants.
func (l *Ledger) Config() Config { return l.config }

// ─── Task Submission ────────────────────────────────────────────────────────

// SubmitTask stakes, rewards and records a task completed by account.
// Balance failures leave all state unchanged. A failure to persist after the
// block is appended is returned wrapped in domain.ErrPersistence and is not
// rolled back; callers must treat it as fatal.
// Text that is not valid UTF-8 is rejected with domain.ErrInvalidInput
// before anything changes.
func (l *Ledger) SubmitTask(ctx context.Context, account, task, proof string) (domain.Block, error) {
	block, err := l.submit(ctx, account, task, proof)
	if err != nil && block.Hash == "" {
		// Failures after the block is appended were already counted as
		// submissions and surface through the persistence counters.
		observability.TasksRejected.WithLabelValues(observability.Reason(err)).Inc()
	}
	return block, err
}

func (l *Ledger) submit(ctx context.Context, account, task, proof string) (domain.Block, error) {
	err := errors.Join(
		domain.ValidText("wallet", account),
		domain.ValidText("task", task),
		domain.ValidText("proof metadata", proof),
	)
	if err != nil {
		l.countRejected()
		return domain.Block{}, err
	}
	if !l.wallets.Exists(account) {
		l.countRejected()
		return domain.Block{}, fmt.Errorf("%w: %q", domain.ErrWalletNotFound, account)
	}

	if l.verifier != nil {
		ok, err := l.verifier.Verify(ctx, account, task, proof)
		if err != nil {
			l.countRejected()
			return domain.Block{}, fmt.Errorf("verify proof: %w", err)
		}
		if !ok {
			l.countRejected()
			return domain.Block{}, fmt.Errorf("%w: task %q", domain.ErrProofRejected, task)
		}
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	stake, reward := l.config.StakeAmount, l.config.MiningReward
	err = l.wallets.Update(func(tx *wallet.Tx) error {
		w, err := tx.Get(account)
		if err != nil {
			return err
		}
		if w.Yuki < stake {
			return fmt.Errorf("%w: %q has %d Yuki, stake is %d", domain.ErrInsufficientStake, account, w.Yuki, stake)
		}
		if err := tx.DebitSpendable(account, stake); err != nil {
			return err
		}
		return tx.CreditSpendable(account, reward)
	})
	if err != nil {
		l.rejected++
		return domain.Block{}, err
	}

	txn := domain.Transaction{
		Sender:        domain.SystemSender,
		Receiver:      account,
		Amount:        reward,
		Task:          task,
		ProofMetadata: proof,
		Verified:      true,
	}
	prev := l.chain[len(l.chain)-1]
	block := domain.NewBlock(prev.Index+1, l.now(), []domain.Transaction{txn}, prev.Hash)
	l.chain = append(l.chain, block)
	l.accepted++

	observability.TasksSubmitted.Inc()
	observability.StakeBurned.Add(float64(stake))
	observability.RewardsMinted.Add(float64(reward))
	observability.ChainHeight.Set(float64(len(l.chain)))

	l.logger.Info("task verified, block added",
		"wallet", account, "task", task, "index", block.Index, "hash", block.Hash[:16])

	if l.archive != nil {
		if err := l.archive.AppendBlock(block); err != nil {
			observability.ArchiveFailures.Inc()
			return block, fmt.Errorf("%w: archive block %d: %w", domain.ErrPersistence, block.Index, err)
		}
	}
	if err := l.wallets.Persist(); err != nil {
		return block, err
	}
	return block, nil
}

func (l *Ledger) countRejected() {
	l.mu.Lock()
	l.rejected++
	l.mu.Unlock()
}

// ─── Chain Access ───────────────────────────────────────────────────────────

// Blocks returns a deep copy of the chain, genesis first.
func (l *Ledger) Blocks() []domain.Block {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]domain.Block, len(l.chain))
	for i, b := range l.chain {
		out[i] = cloneBlock(b)
	}
	return out
}

// Len returns the number of blocks, genesis included.
func (l *Ledger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.chain)
}

// Tip returns the most recently appended block.
func (l *Ledger) Tip() domain.Block {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return cloneBlock(l.chain[len(l.chain)-1])
}

func cloneBlock(b domain.Block) domain.Block {
	b.Transactions = append([]domain.Transaction{}, b.Transactions...)
	return b
}

// Verify checks the integrity of the whole chain.
func (l *Ledger) Verify() error {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return VerifyChain(l.chain)
}

// VerifyChain checks the genesis block, then every block's index continuity,
// previous-hash linkage and recomputed digest.
func VerifyChain(blocks []domain.Block) error {
	if len(blocks) == 0 {
		return fmt.Errorf("%w: empty chain", domain.ErrChainCorrupted)
	}

	g := blocks[0]
	if g.Index != 0 || g.PreviousHash != domain.GenesisPreviousHash || len(g.Transactions) != 0 {
		return fmt.Errorf("%w: invalid genesis block", domain.ErrChainCorrupted)
	}
	if !g.Sealed() {
		return fmt.Errorf("%w: genesis hash mismatch", domain.ErrChainCorrupted)
	}

	for i := 1; i < len(blocks); i++ {
		cur, prev := blocks[i], blocks[i-1]
		if cur.Index != prev.Index+1 {
			return fmt.Errorf("%w: block %d has index %d, want %d", domain.ErrChainCorrupted, i, cur.Index, prev.Index+1)
		}
		if cur.PreviousHash != prev.Hash {
			return fmt.Errorf("%w: block %d does not link to block %d", domain.ErrChainCorrupted, cur.Index, prev.Index)
		}
		if !cur.Sealed() {
			return fmt.Errorf("%w: block %d hash mismatch", domain.ErrChainCorrupted, cur.Index)
		}
	}
	return nil
}

// ─── Stats ──────────────────────────────────────────────────────────────────

// Stats summarizes ledger activity since the process started.
type Stats struct {
	Height       int    `json:"height"`
	TipHash      string `json:"tip_hash"`
	Accepted     uint64 `json:"accepted"`
	Rejected     uint64 `json:"rejected"`
	StakeAmount  uint64 `json:"stake_amount"`
	MiningReward uint64 `json:"mining_reward"`
}

// Stats returns current ledger statistics.
func (l *Ledger) Stats() Stats {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return Stats{
		Height:       len(l.chain),
		TipHash:      l.chain[len(l.chain)-1].Hash,
		Accepted:     l.accepted,
		Rejected:     l.rejected,
		StakeAmount:  l.config.StakeAmount,
		MiningReward: l.config.MiningReward,
	}
}
