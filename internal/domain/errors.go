package domain

import "errors"

var (
	// Deal errors
	ErrDealNotFound        = errors.New("deal not found")
	ErrInvalidDealState    = errors.New("deal is not in a state that allows this action")
	ErrConcurrentDealLimit = errors.New("recipient already holds an active deal")
	ErrOwnDeal             = errors.New("cannot accept own deal")
	ErrInsufficientFunds   = errors.New("not enough money on balance")
	ErrInvalidAmount       = errors.New("amount must be positive")
	ErrInvalidPercent      = errors.New("percent and fine must not be negative")
	ErrInvalidTerm         = errors.New("term must be positive")
	ErrInvalidInterval     = errors.New("unknown payment interval")
	ErrIDAlreadySet        = errors.New("id must not be set on create")

	// Ledger errors
	ErrLedgerOwnerNotFound  = errors.New("ledger owner has no entries")
	ErrInvalidLedgerEvent   = errors.New("unknown ledger event")
	ErrAmbiguousLedgerOwner = errors.New("entry must belong to exactly one of account or deal")
	ErrBrokenChain          = errors.New("ledger chain invariant violated")

	// User errors
	ErrUserNotFound = errors.New("user not found")
)
