package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// DealStatus is the lifecycle state of a deal.
type DealStatus string

const (
	StatusPending DealStatus = "PENDING"
	StatusActive  DealStatus = "ACTIVE"
	StatusSuccess DealStatus = "SUCCESS"
	StatusClosed  DealStatus = "CLOSED"
)

// IsTerminal reports whether no further transitions are possible.
func (s DealStatus) IsTerminal() bool {
	return s == StatusSuccess || s == StatusClosed
}

// CanTransitionTo checks the deal state machine:
// PENDING -> ACTIVE, PENDING -> CLOSED (cancellation), ACTIVE -> SUCCESS, ACTIVE -> CLOSED.
func (s DealStatus) CanTransitionTo(next DealStatus) bool {
	switch s {
	case StatusPending:
		return next == StatusActive || next == StatusClosed
	case StatusActive:
		return next == StatusSuccess || next == StatusClosed
	default:
		return false
	}
}

// PaymentInterval is how often a deal is settled.
type PaymentInterval string

const (
	IntervalDay     PaymentInterval = "DAY"
	IntervalMonth   PaymentInterval = "MONTH"
	IntervalYear    PaymentInterval = "YEAR"
	IntervalOneTime PaymentInterval = "ONE_TIME"
)

var validIntervals = map[PaymentInterval]bool{
	IntervalDay:     true,
	IntervalMonth:   true,
	IntervalYear:    true,
	IntervalOneTime: true,
}

// IsValid checks if the interval is a known payment interval.
func (p PaymentInterval) IsValid() bool {
	return validIntervals[p]
}

// Deal is a loan agreement between an emitter (creditor) and a recipient
// (debtor). A deal owns a private ledger tracking the outstanding
// principal+interest; that balance must reach exactly zero for the deal to
// finish with StatusSuccess.
type Deal struct {
	ID                  string
	DateOpen            time.Time
	DateBecomeActive    *time.Time
	EndDate             *time.Time
	LastSettledAt       *time.Time
	StartBalance        decimal.Decimal
	Percent             decimal.Decimal
	Fine                decimal.Decimal
	SuccessRate         int
	Term                int
	PaymentEvery        PaymentInterval
	Status              DealStatus
	EmitterID           string
	RecipientID         string
	AllowEarlyPayment   bool
	AllowCapitalization bool
}

var one = decimal.NewFromInt(1)

// PercentCharge is the interest charged per period, always computed on the
// original principal rather than the remaining deal balance.
func (d *Deal) PercentCharge() decimal.Decimal {
	return d.StartBalance.Mul(d.Percent)
}

// AveragePayment is the lump sum moved from debtor to creditor each period.
// One-time deals pay principal plus a single interest charge in one balloon;
// fixed-term deals spread principal plus all interest evenly over the term.
// Division rounds half to even at scale 2.
func (d *Deal) AveragePayment() decimal.Decimal {
	if d.PaymentEvery == IntervalOneTime {
		return d.StartBalance.Mul(d.Percent.Add(one))
	}

	term := decimal.NewFromInt(int64(d.Term))
	overallCharged := d.PercentCharge().Mul(term).Add(d.StartBalance)

	return overallCharged.Div(term).RoundBank(2)
}

// TermDays converts the term to days for end-date computation.
func (d *Deal) TermDays() int {
	switch d.PaymentEvery {
	case IntervalMonth:
		return d.Term * 30
	case IntervalYear:
		return d.Term * 365
	default:
		return d.Term
	}
}

// Validate checks a deal proposal before it is persisted.
func (d *Deal) Validate() error {
	if d.StartBalance.LessThanOrEqual(decimal.Zero) {
		return ErrInvalidAmount
	}

	if d.Percent.IsNegative() || d.Fine.IsNegative() {
		return ErrInvalidPercent
	}

	if !d.PaymentEvery.IsValid() {
		return ErrInvalidInterval
	}

	if d.Term < 0 || (d.PaymentEvery != IntervalOneTime && d.Term == 0) {
		return ErrInvalidTerm
	}

	return nil
}
