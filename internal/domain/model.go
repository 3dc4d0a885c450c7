// Package domain contains pure business types with ZERO infrastructure imports.
// This is the innermost ring of clean architecture: it depends on nothing.
package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

// ─── Ledger Types ───────────────────────────────────────────────────────────

const (
	// SystemSender is the sender label of every system-issued reward.
	SystemSender = "System"

	// GenesisPreviousHash is the previous-hash value carried by block 0.
	GenesisPreviousHash = "0"
)

// Transaction records one reward event. It is immutable once embedded in a block.
type Transaction struct {
	Sender        string `json:"sender"`
	Receiver      string `json:"receiver"`
	Amount        uint64 `json:"amount"`
	Task          string `json:"task"`
	ProofMetadata string `json:"proof_metadata"`
	Verified      bool   `json:"verified"`
}

// Block is one link of the chain.
type Block struct {
	Index        uint64        `json:"index"`
	Timestamp    int64         `json:"timestamp"` // unix seconds
	Transactions []Transaction `json:"transactions"`
	PreviousHash string        `json:"previous_hash"`
	Hash         string        `json:"hash"`
}

// NewBlock builds a block at the given time and seals it with its digest.
func NewBlock(index uint64, at time.Time, txs []Transaction, previousHash string) Block {
	if txs == nil {
		txs = []Transaction{}
	}
	b := Block{
		Index:        index,
		Timestamp:    at.Unix(),
		Transactions: txs,
		PreviousHash: previousHash,
	}
	b.Hash = b.ComputeHash()
	return b
}

// GenesisBlock returns block 0: no transactions, previous hash "0".
func GenesisBlock(at time.Time) Block {
	return NewBlock(0, at, nil, GenesisPreviousHash)
}

// ComputeHash recomputes the digest from the block's fields.
func (b Block) ComputeHash() string {
	return HashBlock(b.Index, b.Timestamp, b.Transactions, b.PreviousHash)
}

// Sealed reports whether the stored digest matches the block's fields.
// A block carrying text that is not valid UTF-8 is never sealed: the JSON
// preimage would not distinguish it from other invalid byte strings.
func (b Block) Sealed() bool {
	for _, tx := range b.Transactions {
		if tx.Validate() != nil {
			return false
		}
	}
	return b.Hash == b.ComputeHash()
}

// Validate checks that every text field is valid UTF-8.
func (tx Transaction) Validate() error {
	fields := []struct{ name, value string }{
		{"sender", tx.Sender},
		{"receiver", tx.Receiver},
		{"task", tx.Task},
		{"proof metadata", tx.ProofMetadata},
	}
	for _, f := range fields {
		if err := ValidText(f.name, f.value); err != nil {
			return err
		}
	}
	return nil
}

// ValidText rejects s unless it is valid UTF-8.
func ValidText(field, s string) error {
	if !utf8.ValidString(s) {
		return fmt.Errorf("%s is not valid UTF-8: %w", field, ErrInvalidInput)
	}
	return nil
}

// ─── Hash Linking ───────────────────────────────────────────────────────────

// HashBlock is the chain's digest function. The preimage is the decimal
// index, the decimal timestamp, the canonical JSON array of transactions and
// the previous hash, concatenated in that order. The field order is part of
// the on-disk contract: changing it invalidates every archived chain.
func HashBlock(index uint64, timestamp int64, txs []Transaction, previousHash string) string {
	var sb strings.Builder
	sb.WriteString(strconv.FormatUint(index, 10))
	sb.WriteString(strconv.FormatInt(timestamp, 10))
	sb.Write(canonicalTransactions(txs))
	sb.WriteString(previousHash)
	return SHA256Hex([]byte(sb.String()))
}

// canonicalTransactions encodes txs as a JSON array, "[]" when empty.
// Struct fields encode in declaration order, so the output is deterministic.
// Marshal rewrites invalid UTF-8 to U+FFFD, so the encoding is only
// injective over valid text; Sealed and the ledger enforce that.
func canonicalTransactions(txs []Transaction) []byte {
	if len(txs) == 0 {
		return []byte("[]")
	}
	// Marshal cannot fail: Transaction holds only strings, ints and bools.
	data, _ := json.Marshal(txs)
	return data
}

// ─── Utility ────────────────────────────────────────────────────────────────

// SHA256Hex returns the hex-encoded SHA-256 hash of data.
func SHA256Hex(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}
