package domain

import "github.com/shopspring/decimal"

// AccountStats aggregates a user's ledger activity.
type AccountStats struct {
	AccountID string
	// Incoming is the sum of all positive entries: loans received,
	// payments received, refunds.
	Incoming decimal.Decimal
	// Payments is the signed sum of DEAL_PAYMENT entries, negative for a
	// debtor who has been paying.
	Payments decimal.Decimal
	// Balance is the current account balance.
	Balance decimal.Decimal
}
