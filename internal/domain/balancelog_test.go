package domain

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestBalanceLog_CurrentBalance(t *testing.T) {
	log := &BalanceLog{
		OldValue:      decimal.NewFromInt(1000),
		AmountChanged: decimal.RequireFromString("-150"),
	}

	if got := log.CurrentBalance(); !got.Equal(decimal.NewFromInt(850)) {
		t.Errorf("CurrentBalance() = %s, want 850", got)
	}
}

func TestBalanceLog_Validate(t *testing.T) {
	tests := []struct {
		name    string
		log     BalanceLog
		wantErr error
	}{
		{
			name: "valid account entry",
			log:  BalanceLog{Event: EventLoanTaken, AccountID: "user-1"},
		},
		{
			name: "valid deal entry",
			log:  BalanceLog{Event: EventNewDealOpen, DealID: "deal-1"},
		},
		{
			name:    "unknown event",
			log:     BalanceLog{Event: "REFUND", AccountID: "user-1"},
			wantErr: ErrInvalidLedgerEvent,
		},
		{
			name:    "no owner",
			log:     BalanceLog{Event: EventDealPayment},
			wantErr: ErrAmbiguousLedgerOwner,
		},
		{
			name:    "both owners",
			log:     BalanceLog{Event: EventDealPayment, AccountID: "user-1", DealID: "deal-1"},
			wantErr: ErrAmbiguousLedgerOwner,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.log.Validate(); err != tt.wantErr {
				t.Errorf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestBalanceLog_Owner(t *testing.T) {
	account := BalanceLog{AccountID: "user-1"}
	if got := account.Owner(); got != AccountOwner("user-1") {
		t.Errorf("Owner() = %+v, want account owner", got)
	}

	deal := BalanceLog{DealID: "deal-1"}
	if got := deal.Owner(); got != DealOwner("deal-1") {
		t.Errorf("Owner() = %+v, want deal owner", got)
	}
}

func TestBalanceLog_ChainedAfter(t *testing.T) {
	prev := &BalanceLog{
		OldValue:      decimal.NewFromInt(100),
		AmountChanged: decimal.NewFromInt(50),
	}

	t.Run("continues chain", func(t *testing.T) {
		next := &BalanceLog{OldValue: decimal.NewFromInt(150)}
		if !next.ChainedAfter(prev) {
			t.Error("expected entry to chain after prev")
		}
	})

	t.Run("breaks chain", func(t *testing.T) {
		next := &BalanceLog{OldValue: decimal.NewFromInt(100)}
		if next.ChainedAfter(prev) {
			t.Error("expected chain break to be detected")
		}
	})

	t.Run("opening entry starts from zero", func(t *testing.T) {
		opening := &BalanceLog{OldValue: decimal.Zero}
		if !opening.ChainedAfter(nil) {
			t.Error("expected zero OldValue to open a ledger")
		}

		nonZero := &BalanceLog{OldValue: decimal.NewFromInt(1)}
		if nonZero.ChainedAfter(nil) {
			t.Error("expected non-zero OldValue to be rejected as opening entry")
		}
	})
}

func TestLedgerEvent_OpensLedger(t *testing.T) {
	tests := []struct {
		event LedgerEvent
		kind  OwnerKind
		want  bool
	}{
		{EventNewDealOpen, OwnerDeal, true},
		{EventNewDealOpen, OwnerAccount, false},
		{EventLoanTaken, OwnerAccount, true},
		{EventLoanTaken, OwnerDeal, false},
		{EventDealPayment, OwnerDeal, false},
		{EventDealPayment, OwnerAccount, false},
	}

	for _, tt := range tests {
		if got := tt.event.OpensLedger(tt.kind); got != tt.want {
			t.Errorf("%s.OpensLedger(%s) = %v, want %v", tt.event, tt.kind, got, tt.want)
		}
	}
}
