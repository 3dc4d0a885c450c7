package domain

import "errors"

// ─── Sentinel Errors ────────────────────────────────────────────────────────
// Domain errors are pure: no infrastructure dependency.

var (
	// Wallet errors
	ErrWalletNotFound    = errors.New("wallet not found")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrOverflow          = errors.New("balance arithmetic overflow")

	// Ledger errors
	ErrInsufficientStake = errors.New("insufficient balance to stake")
	ErrProofRejected     = errors.New("proof of completion rejected")
	ErrChainCorrupted    = errors.New("chain integrity check failed")

	// Marketplace errors
	ErrInsufficientTokens          = errors.New("insufficient tokens to list")
	ErrInsufficientListingQuantity = errors.New("not enough tokens available in the listing")
	ErrInvalidListing              = errors.New("invalid listing number")
	ErrNotListingOwner             = errors.New("listing belongs to another seller")

	// Input errors
	ErrInvalidInput = errors.New("invalid input")

	// Storage errors
	ErrPersistence = errors.New("wallet store could not be persisted")
)
