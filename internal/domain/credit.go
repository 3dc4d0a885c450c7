package domain

import (
	"fmt"
	"math"
	"math/bits"
	"strconv"
	"strings"
)

// ─── Wallet Types ───────────────────────────────────────────────────────────
// A wallet holds three independent counters. All are unsigned, so a counter
// can never go negative; debits are pre-checked and overflow is rejected.

// Wallet is the balance record of one account.
type Wallet struct {
	Yuki uint64 `json:"balance_yuki"` // spendable currency
	YG   uint64 `json:"balance_yg"`   // governance tokens
	YT   uint64 `json:"balance_yt"`   // tradable tokens
}

// NewWallet returns a fresh wallet holding the starting spendable balance.
func NewWallet(startingBalance uint64) Wallet {
	return Wallet{Yuki: startingBalance}
}

// Account pairs a wallet with its identifier, for listings and display.
type Account struct {
	ID     string `json:"id"`
	Wallet Wallet `json:"wallet"`
}

// ─── Checked Arithmetic ─────────────────────────────────────────────────────

// CheckedAdd returns a+b or ErrOverflow.
func CheckedAdd(a, b uint64) (uint64, error) {
	sum, carry := bits.Add64(a, b, 0)
	if carry != 0 {
		return 0, fmt.Errorf("%d + %d: %w", a, b, ErrOverflow)
	}
	return sum, nil
}

// CheckedMul returns a×b or ErrOverflow.
func CheckedMul(a, b uint64) (uint64, error) {
	hi, lo := bits.Mul64(a, b)
	if hi != 0 {
		return 0, fmt.Errorf("%d × %d: %w", a, b, ErrOverflow)
	}
	return lo, nil
}

// ParseAmount parses a non-negative decimal integer typed by a user.
// Unlike a silent fallback to zero, garbage input is an ErrInvalidInput.
func ParseAmount(s string) (uint64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty amount: %w", ErrInvalidInput)
	}
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("amount %q: %w", s, ErrInvalidInput)
	}
	return n, nil
}

// ParsePosition parses a 1-based listing position.
func ParsePosition(s string) (int, error) {
	n, err := ParseAmount(s)
	if err != nil {
		return 0, err
	}
	if n == 0 || n > math.MaxInt32 {
		return 0, fmt.Errorf("position %q: %w", s, ErrInvalidListing)
	}
	return int(n), nil
}
