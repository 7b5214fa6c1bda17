package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// LedgerEvent classifies what caused a balance change.
type LedgerEvent string

const (
	EventNewDealOpen   LedgerEvent = "NEW_DEAL_OPEN"
	EventLoanTaken     LedgerEvent = "LOAN_TAKEN"
	EventPercentCharge LedgerEvent = "PERCENT_CHARGE"
	EventDealPayment   LedgerEvent = "DEAL_PAYMENT"
	EventDealClosed    LedgerEvent = "DEAL_CLOSED"
)

var validEvents = map[LedgerEvent]bool{
	EventNewDealOpen:   true,
	EventLoanTaken:     true,
	EventPercentCharge: true,
	EventDealPayment:   true,
	EventDealClosed:    true,
}

// IsValid checks if the event is a known ledger event.
func (e LedgerEvent) IsValid() bool {
	return validEvents[e]
}

// OpensLedger reports whether this event may start a ledger chain for the
// given owner kind. A deal ledger opens with the principal deposit; a user
// ledger opens when the first loan lands on it.
func (e LedgerEvent) OpensLedger(kind OwnerKind) bool {
	if kind == OwnerDeal {
		return e == EventNewDealOpen
	}

	return e == EventLoanTaken
}

// OwnerKind says which ledger a log entry belongs to.
type OwnerKind string

const (
	OwnerAccount OwnerKind = "account"
	OwnerDeal    OwnerKind = "deal"
)

// LedgerOwner identifies a single ledger: a user account or a deal.
type LedgerOwner struct {
	Kind OwnerKind
	ID   string
}

// AccountOwner returns the ledger owner for a user's personal ledger.
func AccountOwner(userID string) LedgerOwner {
	return LedgerOwner{Kind: OwnerAccount, ID: userID}
}

// DealOwner returns the ledger owner for a deal's internal ledger.
func DealOwner(dealID string) LedgerOwner {
	return LedgerOwner{Kind: OwnerDeal, ID: dealID}
}

// BalanceLog is one immutable balance-change record. Entries form a chain per
// owner: each entry's OldValue equals the previous entry's current balance.
type BalanceLog struct {
	ID            string
	Date          time.Time
	OldValue      decimal.Decimal
	AmountChanged decimal.Decimal
	Event         LedgerEvent
	AccountID     string
	DealID        string
}

// CurrentBalance is the owner's balance after this entry.
func (l *BalanceLog) CurrentBalance() decimal.Decimal {
	return l.OldValue.Add(l.AmountChanged)
}

// Owner returns which ledger this entry belongs to.
func (l *BalanceLog) Owner() LedgerOwner {
	if l.DealID != "" {
		return DealOwner(l.DealID)
	}

	return AccountOwner(l.AccountID)
}

// Validate checks structural invariants of the entry.
func (l *BalanceLog) Validate() error {
	if !l.Event.IsValid() {
		return ErrInvalidLedgerEvent
	}

	if (l.AccountID == "") == (l.DealID == "") {
		return ErrAmbiguousLedgerOwner
	}

	return nil
}

// ChainedAfter reports whether this entry correctly continues the chain after prev.
// A nil prev means the entry opens the ledger and must start from zero.
func (l *BalanceLog) ChainedAfter(prev *BalanceLog) bool {
	if prev == nil {
		return l.OldValue.IsZero()
	}

	return l.OldValue.Equal(prev.CurrentBalance())
}
