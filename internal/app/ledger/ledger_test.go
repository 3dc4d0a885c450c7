package ledger

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/riti-network/riti/internal/app/wallet"
	"github.com/riti-network/riti/internal/domain"
	"github.com/riti-network/riti/internal/infra/observability"
)

// memPersister implements domain.WalletPersister for testing.
type memPersister struct {
	data    map[string]domain.Wallet
	saveErr error
}

func (m *memPersister) LoadWallets() (map[string]domain.Wallet, error) { return m.data, nil }

func (m *memPersister) SaveWallets(w map[string]domain.Wallet) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.data = w
	return nil
}

// memArchive implements domain.BlockArchive for testing.
type memArchive struct {
	blocks    []domain.Block
	appendErr error
}

func (a *memArchive) AppendBlock(b domain.Block) error {
	if a.appendErr != nil {
		return a.appendErr
	}
	a.blocks = append(a.blocks, b)
	return nil
}

func (a *memArchive) Blocks() ([]domain.Block, error) { return a.blocks, nil }

// stubVerifier implements domain.ProofVerifier for testing.
type stubVerifier struct {
	ok  bool
	err error
}

func (v stubVerifier) Verify(ctx context.Context, account, task, proof string) (bool, error) {
	return v.ok, v.err
}

func fixedClock() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) }

func newTestLedger(t *testing.T, opts ...Option) (*Ledger, *wallet.Store, *memPersister) {
	t.Helper()
	p := &memPersister{}
	ws := wallet.New(wallet.DefaultConfig(), p, nil)
	ws.Load()
	opts = append([]Option{WithClock(fixedClock)}, opts...)
	l, err := New(DefaultConfig(), ws, opts...)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	return l, ws, p
}

// ─── Config Tests ───────────────────────────────────────────────────────────

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.StakeAmount != 5 {
		t.Errorf("StakeAmount = %d, want 5", cfg.StakeAmount)
	}
	if cfg.MiningReward != 10 {
		t.Errorf("MiningReward = %d, want 10", cfg.MiningReward)
	}
}

// ─── Genesis Tests ──────────────────────────────────────────────────────────

func TestNew_Genesis(t *testing.T) {
	l, _, _ := newTestLedger(t)

	if l.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", l.Len())
	}
	g := l.Tip()
	if g.Index != 0 || g.PreviousHash != "0" || len(g.Transactions) != 0 {
		t.Errorf("genesis = %+v", g)
	}
	if err := l.Verify(); err != nil {
		t.Errorf("Verify() error: %v", err)
	}
}

// ─── SubmitTask Tests ───────────────────────────────────────────────────────

func TestSubmitTask(t *testing.T) {
	l, ws, p := newTestLedger(t)
	ws.Create("alice")

	block, err := l.SubmitTask(context.Background(), "alice", "t1", "m1")
	if err != nil {
		t.Fatalf("SubmitTask() error: %v", err)
	}

	// 10 − 5 stake + 10 reward
	w, _ := ws.Get("alice")
	if w.Yuki != 15 {
		t.Errorf("Yuki = %d, want 15", w.Yuki)
	}
	if l.Len() != 2 {
		t.Errorf("Len() = %d, want 2", l.Len())
	}
	if block.Index != 1 {
		t.Errorf("Index = %d, want 1", block.Index)
	}
	if len(block.Transactions) != 1 {
		t.Fatalf("len(Transactions) = %d, want 1", len(block.Transactions))
	}
	tx := block.Transactions[0]
	want := domain.Transaction{
		Sender: "System", Receiver: "alice", Amount: 10,
		Task: "t1", ProofMetadata: "m1", Verified: true,
	}
	if tx != want {
		t.Errorf("transaction = %+v, want %+v", tx, want)
	}
	if block.Timestamp != fixedClock().Unix() {
		t.Errorf("Timestamp = %d, want %d", block.Timestamp, fixedClock().Unix())
	}
	if p.data["alice"].Yuki != 15 {
		t.Errorf("persisted Yuki = %d, want 15", p.data["alice"].Yuki)
	}
}

func TestSubmitTask_WalletNotFound(t *testing.T) {
	l, _, _ := newTestLedger(t)

	_, err := l.SubmitTask(context.Background(), "ghost", "t1", "m1")
	if !errors.Is(err, domain.ErrWalletNotFound) {
		t.Fatalf("error = %v, want ErrWalletNotFound", err)
	}
	if l.Len() != 1 {
		t.Errorf("Len() = %d, want 1", l.Len())
	}
}

func TestSubmitTask_InsufficientStake(t *testing.T) {
	l, ws, p := newTestLedger(t)
	ws.Create("alice")
	ws.DebitSpendable("alice", 6) // 4 left, stake is 5

	_, err := l.SubmitTask(context.Background(), "alice", "t1", "m1")
	if !errors.Is(err, domain.ErrInsufficientStake) {
		t.Fatalf("error = %v, want ErrInsufficientStake", err)
	}
	w, _ := ws.Get("alice")
	if w.Yuki != 4 {
		t.Errorf("Yuki = %d after rejected stake, want 4", w.Yuki)
	}
	if l.Len() != 1 {
		t.Errorf("Len() = %d, want 1", l.Len())
	}
	if p.data != nil {
		t.Error("rejected submission should not persist")
	}
	if got := l.Stats().Rejected; got != 1 {
		t.Errorf("Stats().Rejected = %d, want 1", got)
	}
}

func TestSubmitTask_ExactStake(t *testing.T) {
	l, ws, _ := newTestLedger(t)
	ws.Create("alice")
	ws.DebitSpendable("alice", 5) // exactly the stake left

	if _, err := l.SubmitTask(context.Background(), "alice", "t", "p"); err != nil {
		t.Fatalf("SubmitTask() error: %v", err)
	}
	w, _ := ws.Get("alice")
	if w.Yuki != 10 {
		t.Errorf("Yuki = %d, want 10", w.Yuki)
	}
}

func TestSubmitTask_ChainLinkage(t *testing.T) {
	l, ws, _ := newTestLedger(t)
	ws.Create("alice")
	ws.Create("bob")

	for i := 0; i < 5; i++ {
		who := "alice"
		if i%2 == 1 {
			who = "bob"
		}
		if _, err := l.SubmitTask(context.Background(), who, "task", "proof"); err != nil {
			t.Fatalf("SubmitTask #%d error: %v", i, err)
		}
	}

	blocks := l.Blocks()
	if len(blocks) != 6 {
		t.Fatalf("len(Blocks()) = %d, want 6", len(blocks))
	}
	for i, b := range blocks {
		if b.Index != uint64(i) {
			t.Errorf("block %d has index %d", i, b.Index)
		}
		if b.Hash != domain.HashBlock(b.Index, b.Timestamp, b.Transactions, b.PreviousHash) {
			t.Errorf("block %d hash does not match its fields", i)
		}
		if i > 0 && b.PreviousHash != blocks[i-1].Hash {
			t.Errorf("block %d previous hash does not link", i)
		}
	}
	if err := l.Verify(); err != nil {
		t.Errorf("Verify() error: %v", err)
	}
}

func TestSubmitTask_PersistFailure(t *testing.T) {
	l, ws, p := newTestLedger(t)
	ws.Create("alice")
	p.saveErr = errors.New("read-only filesystem")

	block, err := l.SubmitTask(context.Background(), "alice", "t1", "m1")
	if !errors.Is(err, domain.ErrPersistence) {
		t.Fatalf("error = %v, want ErrPersistence", err)
	}
	// The block stays appended; there is no rollback path.
	if l.Len() != 2 || block.Index != 1 {
		t.Errorf("Len() = %d, block.Index = %d; want 2, 1", l.Len(), block.Index)
	}
}

func TestSubmitTask_PersistFailureCountedOnce(t *testing.T) {
	l, ws, p := newTestLedger(t)
	ws.Create("alice")
	p.saveErr = errors.New("read-only filesystem")

	rejected := observability.TasksRejected.WithLabelValues("persistence")
	rejectedBefore := testutil.ToFloat64(rejected)
	submittedBefore := testutil.ToFloat64(observability.TasksSubmitted)

	if _, err := l.SubmitTask(context.Background(), "alice", "t1", "m1"); err == nil {
		t.Fatal("expected persistence error")
	}
	if got := testutil.ToFloat64(observability.TasksSubmitted) - submittedBefore; got != 1 {
		t.Errorf("submitted delta = %v, want 1", got)
	}
	if got := testutil.ToFloat64(rejected) - rejectedBefore; got != 0 {
		t.Errorf("rejected{persistence} delta = %v, want 0", got)
	}
}

func TestSubmitTask_InvalidUTF8(t *testing.T) {
	tests := []struct {
		name                 string
		account, task, proof string
	}{
		{"task", "alice", "\xff", "m1"},
		{"proof", "alice", "t1", "ok\xfe"},
		{"wallet", "al\xc3", "t1", "m1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, ws, p := newTestLedger(t)
			ws.Create("alice")

			_, err := l.SubmitTask(context.Background(), tt.account, tt.task, tt.proof)
			if !errors.Is(err, domain.ErrInvalidInput) {
				t.Fatalf("error = %v, want ErrInvalidInput", err)
			}
			if l.Len() != 1 {
				t.Errorf("Len() = %d, want 1", l.Len())
			}
			if w, _ := ws.Get("alice"); w.Yuki != 10 {
				t.Errorf("alice.Yuki = %d, want 10", w.Yuki)
			}
			if p.data != nil {
				t.Error("store persisted after rejected submission")
			}
		})
	}
}

func TestSubmitTask_Concurrent(t *testing.T) {
	archive := &lockedArchive{}
	l, ws, _ := newTestLedger(t, WithArchive(archive))

	const workers, perWorker = 8, 25
	for i := 0; i < workers; i++ {
		ws.Create(fmt.Sprintf("w%d", i))
	}

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				if _, err := l.SubmitTask(context.Background(), id, "t", fmt.Sprint(j)); err != nil {
					t.Errorf("SubmitTask(%s) error: %v", id, err)
					return
				}
			}
		}(fmt.Sprintf("w%d", i))
	}
	wg.Wait()

	if want := 1 + workers*perWorker; l.Len() != want {
		t.Fatalf("Len() = %d, want %d", l.Len(), want)
	}
	if err := l.Verify(); err != nil {
		t.Errorf("Verify() error: %v", err)
	}
	if err := VerifyChain(archive.snapshot()); err != nil {
		t.Errorf("archived chain: %v", err)
	}
	for i := 0; i < workers; i++ {
		w, _ := ws.Get(fmt.Sprintf("w%d", i))
		if want := uint64(10 + 5*perWorker); w.Yuki != want {
			t.Errorf("w%d.Yuki = %d, want %d", i, w.Yuki, want)
		}
	}
}

// lockedArchive is a memArchive safe for concurrent appends.
type lockedArchive struct {
	mu     sync.Mutex
	blocks []domain.Block
}

func (a *lockedArchive) AppendBlock(b domain.Block) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.blocks = append(a.blocks, b)
	return nil
}

func (a *lockedArchive) Blocks() ([]domain.Block, error) { return a.snapshot(), nil }

func (a *lockedArchive) snapshot() []domain.Block {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]domain.Block(nil), a.blocks...)
}

func TestSubmitTask_VerifierRejects(t *testing.T) {
	l, ws, _ := newTestLedger(t, WithVerifier(stubVerifier{ok: false}))
	ws.Create("alice")

	_, err := l.SubmitTask(context.Background(), "alice", "t1", "bogus")
	if !errors.Is(err, domain.ErrProofRejected) {
		t.Fatalf("error = %v, want ErrProofRejected", err)
	}
	w, _ := ws.Get("alice")
	if w.Yuki != 10 {
		t.Errorf("Yuki = %d, want 10", w.Yuki)
	}
}

func TestSubmitTask_VerifierError(t *testing.T) {
	boom := errors.New("verifier offline")
	l, ws, _ := newTestLedger(t, WithVerifier(stubVerifier{err: boom}))
	ws.Create("alice")

	if _, err := l.SubmitTask(context.Background(), "alice", "t1", "m1"); !errors.Is(err, boom) {
		t.Errorf("error = %v, want %v", err, boom)
	}
}

// ─── Verify Tests ───────────────────────────────────────────────────────────

func TestVerifyChain_DetectsTampering(t *testing.T) {
	l, ws, _ := newTestLedger(t)
	ws.Create("alice")
	l.SubmitTask(context.Background(), "alice", "t1", "m1")
	l.SubmitTask(context.Background(), "alice", "t2", "m2")

	tests := []struct {
		name   string
		tamper func(b []domain.Block)
	}{
		{"amount", func(b []domain.Block) { b[1].Transactions = []domain.Transaction{{Amount: 999}} }},
		{"previous hash", func(b []domain.Block) { b[2].PreviousHash = "deadbeef" }},
		{"index gap", func(b []domain.Block) { b[2].Index = 5; b[2].Hash = b[2].ComputeHash() }},
		{"genesis", func(b []domain.Block) { b[0].PreviousHash = "1" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			blocks := l.Blocks()
			tt.tamper(blocks)
			if err := VerifyChain(blocks); !errors.Is(err, domain.ErrChainCorrupted) {
				t.Errorf("VerifyChain() error = %v, want ErrChainCorrupted", err)
			}
		})
	}

	if err := VerifyChain(nil); !errors.Is(err, domain.ErrChainCorrupted) {
		t.Errorf("VerifyChain(nil) error = %v, want ErrChainCorrupted", err)
	}
}

// ─── Archive Tests ──────────────────────────────────────────────────────────

func TestArchive_WritesAndRestores(t *testing.T) {
	archive := &memArchive{}
	l, ws, p := newTestLedger(t, WithArchive(archive))
	ws.Create("alice")
	l.SubmitTask(context.Background(), "alice", "t1", "m1")

	if len(archive.blocks) != 2 {
		t.Fatalf("archived %d blocks, want 2", len(archive.blocks))
	}

	ws2 := wallet.New(wallet.DefaultConfig(), p, nil)
	ws2.Load()
	restored, err := New(DefaultConfig(), ws2, WithArchive(archive))
	if err != nil {
		t.Fatalf("New(restored) error: %v", err)
	}
	if restored.Len() != 2 || restored.Tip().Hash != l.Tip().Hash {
		t.Errorf("restored chain height %d tip %s, want 2 %s", restored.Len(), restored.Tip().Hash, l.Tip().Hash)
	}
}

func TestArchive_CorruptedRefused(t *testing.T) {
	archive := &memArchive{}
	l, ws, _ := newTestLedger(t, WithArchive(archive))
	ws.Create("alice")
	l.SubmitTask(context.Background(), "alice", "t1", "m1")

	archive.blocks[1].Transactions[0].Amount = 1_000_000

	if _, err := New(DefaultConfig(), ws, WithArchive(archive)); !errors.Is(err, domain.ErrChainCorrupted) {
		t.Errorf("New() error = %v, want ErrChainCorrupted", err)
	}
}

func TestArchive_AppendFailure(t *testing.T) {
	archive := &memArchive{}
	l, ws, _ := newTestLedger(t, WithArchive(archive))
	ws.Create("alice")
	archive.appendErr = errors.New("disk full")

	if _, err := l.SubmitTask(context.Background(), "alice", "t1", "m1"); !errors.Is(err, domain.ErrPersistence) {
		t.Errorf("error = %v, want ErrPersistence", err)
	}
}

// ─── Stats Tests ────────────────────────────────────────────────────────────

func TestStats(t *testing.T) {
	l, ws, _ := newTestLedger(t)
	ws.Create("alice")
	l.SubmitTask(context.Background(), "alice", "t1", "m1")
	l.SubmitTask(context.Background(), "ghost", "t1", "m1")

	s := l.Stats()
	if s.Height != 2 || s.Accepted != 1 || s.Rejected != 1 {
		t.Errorf("Stats() = %+v, want height 2, accepted 1, rejected 1", s)
	}
	if s.TipHash != l.Tip().Hash {
		t.Errorf("TipHash = %s, want %s", s.TipHash, l.Tip().Hash)
	}
}
