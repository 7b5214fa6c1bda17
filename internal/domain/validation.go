package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Validation constants
const (
	MaxDealAmount = "1000000000000" // 1 trillion
	MinDealAmount = "0.01"
	MaxDealTerm   = 36500
)

// ValidateDealAmount validates a deal principal against system-wide bounds.
func ValidateDealAmount(amount decimal.Decimal) error {
	if amount.LessThanOrEqual(decimal.Zero) {
		return ErrInvalidAmount
	}

	minAmount, _ := decimal.NewFromString(MinDealAmount)
	if amount.LessThan(minAmount) {
		return fmt.Errorf("%w: minimum amount is %s", ErrInvalidAmount, MinDealAmount)
	}

	maxAmount, _ := decimal.NewFromString(MaxDealAmount)
	if amount.GreaterThan(maxAmount) {
		return fmt.Errorf("%w: maximum amount is %s", ErrInvalidAmount, MaxDealAmount)
	}

	return nil
}

// ValidateTerm validates a deal term in periods.
func ValidateTerm(term int) error {
	if term < 0 || term > MaxDealTerm {
		return fmt.Errorf("%w: term must be between 0 and %d", ErrInvalidTerm, MaxDealTerm)
	}

	return nil
}

// ValidatePagination validates and limits pagination parameters
func ValidatePagination(limit, offset int) (int, int, error) {
	const MaxPageSize = 1000
	const DefaultPageSize = 50

	if limit <= 0 {
		limit = DefaultPageSize
	}

	if limit > MaxPageSize {
		limit = MaxPageSize
	}

	if offset < 0 {
		offset = 0
	}

	return limit, offset, nil
}
