package usecase

import "time"

const (
	// DefaultTransactionTimeout is the maximum duration for a database transaction
	// This prevents long-running transactions from blocking tables
	DefaultTransactionTimeout = 10 * time.Second

	// IdempotencyKeyTTL is how long idempotency keys are cached
	IdempotencyKeyTTL = 24 * time.Hour

	// SettlementLockTTL is how long a settlement run lock is held at most.
	// A crashed run frees the interval after this window.
	SettlementLockTTL = 1 * time.Hour

	// StatsCacheTTL is how long account stats stay cached before a re-read.
	StatsCacheTTL = 30 * time.Second
)
