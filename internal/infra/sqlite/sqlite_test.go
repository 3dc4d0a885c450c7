package sqlite

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/riti-network/riti/internal/domain"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// ─── Schema ─────────────────────────────────────────────────────────────────

func TestOpen_Reopen(t *testing.T) {
	dir := t.TempDir()
	db, err := Open(dir)
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	if err := db.SaveWallets(map[string]domain.Wallet{"alice": {Yuki: 7}}); err != nil {
		t.Fatal(err)
	}
	db.Close()

	db, err = Open(dir)
	if err != nil {
		t.Fatalf("second Open() error: %v", err)
	}
	defer db.Close()
	got, err := db.LoadWallets()
	if err != nil {
		t.Fatal(err)
	}
	if got["alice"].Yuki != 7 {
		t.Errorf("alice.Yuki = %d, want 7", got["alice"].Yuki)
	}
}

// ─── Wallets ────────────────────────────────────────────────────────────────

func TestWallets_EmptyDatabase(t *testing.T) {
	db := newTestDB(t)
	got, err := db.LoadWallets()
	if err != nil {
		t.Fatalf("LoadWallets() error: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("len = %d, want 0", len(got))
	}
}

func TestWallets_SaveReplacesWholeMapping(t *testing.T) {
	db := newTestDB(t)
	first := map[string]domain.Wallet{
		"alice": {Yuki: 10},
		"bob":   {Yuki: 3, YG: 1, YT: 4},
	}
	if err := db.SaveWallets(first); err != nil {
		t.Fatalf("SaveWallets() error: %v", err)
	}
	if err := db.SaveWallets(map[string]domain.Wallet{"bob": {Yuki: 15, YT: 2}}); err != nil {
		t.Fatalf("SaveWallets() error: %v", err)
	}

	got, err := db.LoadWallets()
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 {
		t.Fatalf("len = %d, want 1", len(got))
	}
	if _, ok := got["alice"]; ok {
		t.Error("alice should be gone after a full replace")
	}
	if got["bob"] != (domain.Wallet{Yuki: 15, YT: 2}) {
		t.Errorf("bob = %+v, want {Yuki:15 YT:2}", got["bob"])
	}
}

func TestWallets_OutOfRangeRollsBack(t *testing.T) {
	db := newTestDB(t)
	if err := db.SaveWallets(map[string]domain.Wallet{"alice": {Yuki: 10}}); err != nil {
		t.Fatal(err)
	}

	err := db.SaveWallets(map[string]domain.Wallet{"whale": {Yuki: math.MaxUint64}})
	if !errors.Is(err, domain.ErrOverflow) {
		t.Fatalf("err = %v, want ErrOverflow", err)
	}

	got, _ := db.LoadWallets()
	if got["alice"].Yuki != 10 {
		t.Errorf("alice.Yuki = %d, want 10 (failed save must roll back)", got["alice"].Yuki)
	}
}

// ─── Blocks ─────────────────────────────────────────────────────────────────

func TestBlocks_AppendAndLoad(t *testing.T) {
	db := newTestDB(t)
	at := time.Unix(1700000000, 0)
	genesis := domain.GenesisBlock(at)
	txn := domain.Transaction{
		Sender:        domain.SystemSender,
		Receiver:      "alice",
		Amount:        10,
		Task:          "label images",
		ProofMetadata: "batch-7",
		Verified:      true,
	}
	next := domain.NewBlock(1, at.Add(time.Second), []domain.Transaction{txn}, genesis.Hash)

	for _, b := range []domain.Block{genesis, next} {
		if err := db.AppendBlock(b); err != nil {
			t.Fatalf("AppendBlock(%d) error: %v", b.Index, err)
		}
	}

	blocks, err := db.Blocks()
	if err != nil {
		t.Fatalf("Blocks() error: %v", err)
	}
	if len(blocks) != 2 {
		t.Fatalf("len = %d, want 2", len(blocks))
	}
	if blocks[0].Hash != genesis.Hash {
		t.Errorf("genesis hash = %s, want %s", blocks[0].Hash, genesis.Hash)
	}
	if len(blocks[0].Transactions) != 0 {
		t.Errorf("genesis transactions = %d, want 0", len(blocks[0].Transactions))
	}
	got := blocks[1]
	if !got.Sealed() {
		t.Error("restored block does not match its own hash")
	}
	if len(got.Transactions) != 1 || got.Transactions[0] != txn {
		t.Errorf("transactions = %+v, want [%+v]", got.Transactions, txn)
	}
}

func TestBlocks_DuplicateIndexRejected(t *testing.T) {
	db := newTestDB(t)
	genesis := domain.GenesisBlock(time.Unix(1, 0))
	if err := db.AppendBlock(genesis); err != nil {
		t.Fatal(err)
	}
	if err := db.AppendBlock(domain.GenesisBlock(time.Unix(2, 0))); err == nil {
		t.Error("expected error re-appending index 0")
	}
}

// ─── Trades ─────────────────────────────────────────────────────────────────

func TestTrades_RecordAndList(t *testing.T) {
	db := newTestDB(t)
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	for i, id := range []string{"t1", "t2", "t3"} {
		err := db.RecordTrade(domain.Trade{
			ID:            id,
			ListingID:     "l1",
			Buyer:         "bob",
			Seller:        "alice",
			Quantity:      uint64(i + 1),
			PricePerToken: 3,
			Total:         uint64(3 * (i + 1)),
			ExecutedAt:    base.Add(time.Duration(i) * time.Minute),
			Exhausted:     i == 2,
		})
		if err != nil {
			t.Fatalf("RecordTrade(%s) error: %v", id, err)
		}
	}

	trades, err := db.RecentTrades(2)
	if err != nil {
		t.Fatalf("RecentTrades() error: %v", err)
	}
	if len(trades) != 2 {
		t.Fatalf("len = %d, want 2", len(trades))
	}
	if trades[0].ID != "t3" || trades[1].ID != "t2" {
		t.Errorf("order = %s,%s, want t3,t2", trades[0].ID, trades[1].ID)
	}
	if !trades[0].Exhausted {
		t.Error("t3 should be exhausted")
	}
	if trades[0].Total != 9 {
		t.Errorf("total = %d, want 9", trades[0].Total)
	}
	if !trades[0].ExecutedAt.Equal(base.Add(2 * time.Minute)) {
		t.Errorf("executed_at = %v", trades[0].ExecutedAt)
	}
}

func TestTrades_DuplicateID(t *testing.T) {
	db := newTestDB(t)
	tr := domain.Trade{ID: "t1", ListingID: "l1", Buyer: "b", Seller: "s", Quantity: 1, PricePerToken: 1, Total: 1, ExecutedAt: time.Now()}
	if err := db.RecordTrade(tr); err != nil {
		t.Fatal(err)
	}
	if err := db.RecordTrade(tr); err == nil {
		t.Error("expected error recording the same trade twice")
	}
}

func TestTrades_BadTimestampReported(t *testing.T) {
	db := newTestDB(t)
	_, err := db.db.Exec(`
		INSERT INTO trades (id, listing_id, buyer, seller, quantity, price_per_token, total, executed_at)
		VALUES ('t1', 'l1', 'b', 's', 1, 1, 1, 'yesterday')
	`)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := db.RecentTrades(10); err == nil {
		t.Error("expected error for unparsable executed_at")
	}
}

// Compile-time interface checks.
var (
	_ domain.WalletPersister = (*DB)(nil)
	_ domain.BlockArchive    = (*DB)(nil)
	_ domain.TradeLog        = (*DB)(nil)
)
