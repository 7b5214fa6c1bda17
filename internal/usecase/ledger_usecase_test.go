package usecase_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/loanex/internal/domain"
	"github.com/iho/loanex/internal/usecase"
	"github.com/iho/loanex/internal/usecase/mocks"
)

type ledgerFixture struct {
	logs  *mocks.MockBalanceLogRepository
	deals *mocks.MockDealRepository
	cache *mocks.MockCache
	uc    *usecase.LedgerUseCase
}

func newLedgerFixture() *ledgerFixture {
	logs := mocks.NewMockBalanceLogRepository()
	deals := mocks.NewMockDealRepository()
	cache := mocks.NewMockCache()

	uc := usecase.NewLedgerUseCase(
		mocks.NewMockTransactionManager(),
		logs,
		deals,
		mocks.NewMockRetrier(),
		mocks.NewMockIDGenerator(),
		cache,
	)

	return &ledgerFixture{logs: logs, deals: deals, cache: cache, uc: uc}
}

func admin() *domain.User {
	return &domain.User{ID: "admin-1", Role: domain.RoleAdmin, Active: true}
}

func TestLedgerUseCase_AppendTx(t *testing.T) {
	ctx := context.Background()
	owner := domain.AccountOwner("user-1")

	t.Run("chains entries", func(t *testing.T) {
		f := newLedgerFixture()

		first, err := f.uc.AppendTx(ctx, nil, owner, domain.EventLoanTaken, decimal.NewFromInt(1000), time.Now().UTC())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if !first.OldValue.IsZero() {
			t.Errorf("opening OldValue = %s, want 0", first.OldValue)
		}

		second, err := f.uc.AppendTx(ctx, nil, owner, domain.EventDealPayment, decimal.NewFromInt(-150), time.Now().UTC())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if !second.OldValue.Equal(decimal.NewFromInt(1000)) {
			t.Errorf("OldValue = %s, want 1000", second.OldValue)
		}

		if !second.CurrentBalance().Equal(decimal.NewFromInt(850)) {
			t.Errorf("CurrentBalance = %s, want 850", second.CurrentBalance())
		}
	})

	t.Run("rejects non-opening event on empty ledger", func(t *testing.T) {
		f := newLedgerFixture()

		_, err := f.uc.AppendTx(ctx, nil, owner, domain.EventDealPayment, decimal.NewFromInt(-10), time.Now().UTC())
		if !errors.Is(err, domain.ErrLedgerOwnerNotFound) {
			t.Errorf("expected ErrLedgerOwnerNotFound, got %v", err)
		}
	})

	t.Run("deal ledger opens with deal open event", func(t *testing.T) {
		f := newLedgerFixture()
		dealOwner := domain.DealOwner("deal-1")

		if _, err := f.uc.AppendTx(ctx, nil, dealOwner, domain.EventNewDealOpen, decimal.NewFromInt(1000), time.Now().UTC()); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})
}

func TestLedgerUseCase_AdminAppend(t *testing.T) {
	ctx := context.Background()

	t.Run("admin funds an empty account", func(t *testing.T) {
		f := newLedgerFixture()

		log, err := f.uc.AdminAppend(ctx, admin(), usecase.AdminAppendInput{
			AccountID: "user-1",
			Event:     domain.EventDealPayment,
			Amount:    decimal.NewFromInt(500),
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if !log.CurrentBalance().Equal(decimal.NewFromInt(500)) {
			t.Errorf("balance = %s, want 500", log.CurrentBalance())
		}
	})

	t.Run("non-admin is rejected", func(t *testing.T) {
		f := newLedgerFixture()

		_, err := f.uc.AdminAppend(ctx, creditor("creditor-1"), usecase.AdminAppendInput{
			AccountID: "user-1",
			Event:     domain.EventLoanTaken,
			Amount:    decimal.NewFromInt(500),
		})
		if !errors.Is(err, domain.ErrInsufficientRole) {
			t.Errorf("expected ErrInsufficientRole, got %v", err)
		}
	})

	t.Run("exactly one owner required", func(t *testing.T) {
		f := newLedgerFixture()

		_, err := f.uc.AdminAppend(ctx, admin(), usecase.AdminAppendInput{
			AccountID: "user-1",
			DealID:    "deal-1",
			Event:     domain.EventLoanTaken,
			Amount:    decimal.NewFromInt(500),
		})
		if !errors.Is(err, domain.ErrAmbiguousLedgerOwner) {
			t.Errorf("expected ErrAmbiguousLedgerOwner, got %v", err)
		}
	})
}

func TestLedgerUseCase_AccountStats(t *testing.T) {
	ctx := context.Background()
	f := newLedgerFixture()

	entries := []struct {
		amount string
		event  domain.LedgerEvent
	}{
		{"1000", domain.EventLoanTaken},
		{"-150", domain.EventDealPayment},
		{"-150", domain.EventDealPayment},
	}

	for _, e := range entries {
		if _, err := f.uc.AppendTx(ctx, nil, domain.AccountOwner("user-1"),
			e.event, decimal.RequireFromString(e.amount), time.Now().UTC()); err != nil {
			t.Fatalf("failed to seed ledger: %v", err)
		}
	}

	stats, err := f.uc.AccountStats(ctx, admin(), "user-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !stats.Incoming.Equal(decimal.NewFromInt(1000)) {
		t.Errorf("incoming = %s, want 1000", stats.Incoming)
	}

	if !stats.Payments.Equal(decimal.NewFromInt(-300)) {
		t.Errorf("payments = %s, want -300", stats.Payments)
	}

	if !stats.Balance.Equal(decimal.NewFromInt(700)) {
		t.Errorf("balance = %s, want 700", stats.Balance)
	}

	t.Run("served from cache on repeat reads", func(t *testing.T) {
		f.logs.LastForOwnerFunc = func(ctx context.Context, owner domain.LedgerOwner) (*domain.BalanceLog, error) {
			t.Error("expected cached stats, repo was queried")
			return nil, nil
		}
		defer func() { f.logs.LastForOwnerFunc = nil }()

		cached, err := f.uc.AccountStats(ctx, admin(), "user-1")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if !cached.Balance.Equal(stats.Balance) {
			t.Errorf("cached balance = %s, want %s", cached.Balance, stats.Balance)
		}
	})

	t.Run("users cannot read other users' stats", func(t *testing.T) {
		_, err := f.uc.AccountStats(ctx, debtor("debtor-9"), "user-1")
		if !errors.Is(err, domain.ErrInsufficientRole) {
			t.Errorf("expected ErrInsufficientRole, got %v", err)
		}
	})
}

func TestLedgerUseCase_ListLogs(t *testing.T) {
	ctx := context.Background()
	f := newLedgerFixture()

	for _, accountID := range []string{"user-1", "user-2"} {
		if _, err := f.uc.AppendTx(ctx, nil, domain.AccountOwner(accountID),
			domain.EventLoanTaken, decimal.NewFromInt(100), time.Now().UTC()); err != nil {
			t.Fatalf("failed to seed ledger: %v", err)
		}
	}

	t.Run("regular users see only their own entries", func(t *testing.T) {
		logs, err := f.uc.ListLogs(ctx, debtor("user-1"), usecase.ListLogsInput{
			Filter: usecase.LogFilter{AccountID: "user-2"},
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		for _, log := range logs {
			if log.AccountID != "user-1" {
				t.Errorf("leaked entry for account %s", log.AccountID)
			}
		}
	})

	t.Run("admin reads any ledger", func(t *testing.T) {
		logs, err := f.uc.ListLogs(ctx, admin(), usecase.ListLogsInput{
			Filter: usecase.LogFilter{AccountID: "user-2"},
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if len(logs) != 1 {
			t.Errorf("expected 1 entry, got %d", len(logs))
		}
	})

	t.Run("deal participants read the deal ledger", func(t *testing.T) {
		if err := f.deals.Create(ctx, nil, &domain.Deal{
			ID:          "deal-1",
			EmitterID:   "user-1",
			RecipientID: "user-2",
			Status:      domain.StatusActive,
		}); err != nil {
			t.Fatalf("failed to seed deal: %v", err)
		}

		if _, err := f.uc.AppendTx(ctx, nil, domain.DealOwner("deal-1"),
			domain.EventNewDealOpen, decimal.NewFromInt(100), time.Now().UTC()); err != nil {
			t.Fatalf("failed to seed deal ledger: %v", err)
		}

		logs, err := f.uc.ListLogs(ctx, debtor("user-2"), usecase.ListLogsInput{
			Filter: usecase.LogFilter{DealID: "deal-1"},
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if len(logs) != 1 {
			t.Errorf("expected 1 entry, got %d", len(logs))
		}

		_, err = f.uc.ListLogs(ctx, debtor("user-3"), usecase.ListLogsInput{
			Filter: usecase.LogFilter{DealID: "deal-1"},
		})
		if !errors.Is(err, domain.ErrInsufficientRole) {
			t.Errorf("expected ErrInsufficientRole, got %v", err)
		}
	})
}

func TestLedgerUseCase_VerifyChain(t *testing.T) {
	ctx := context.Background()
	owner := domain.AccountOwner("user-1")

	t.Run("valid chain", func(t *testing.T) {
		f := newLedgerFixture()

		amounts := []string{"1000", "-150", "-150", "300"}
		for _, a := range amounts {
			event := domain.EventDealPayment
			if a == "1000" {
				event = domain.EventLoanTaken
			}

			if _, err := f.uc.AppendTx(ctx, nil, owner, event, decimal.RequireFromString(a), time.Now().UTC()); err != nil {
				t.Fatalf("failed to seed ledger: %v", err)
			}
		}

		if err := f.uc.VerifyChain(ctx, owner); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})

	t.Run("detects a broken chain", func(t *testing.T) {
		f := newLedgerFixture()

		seed := []*domain.BalanceLog{
			{ID: "a", OldValue: decimal.Zero, AmountChanged: decimal.NewFromInt(1000), Event: domain.EventLoanTaken, AccountID: "user-1"},
			{ID: "b", OldValue: decimal.NewFromInt(900), AmountChanged: decimal.NewFromInt(-150), Event: domain.EventDealPayment, AccountID: "user-1"},
		}

		for _, log := range seed {
			if err := f.logs.Create(ctx, nil, log); err != nil {
				t.Fatalf("failed to seed ledger: %v", err)
			}
		}

		if err := f.uc.VerifyChain(ctx, owner); !errors.Is(err, domain.ErrBrokenChain) {
			t.Errorf("expected ErrBrokenChain, got %v", err)
		}
	})

	t.Run("verify all reports broken owners", func(t *testing.T) {
		f := newLedgerFixture()

		if err := f.logs.Create(ctx, nil, &domain.BalanceLog{
			ID: "bad", OldValue: decimal.NewFromInt(5), AmountChanged: decimal.NewFromInt(1),
			Event: domain.EventLoanTaken, AccountID: "user-9",
		}); err != nil {
			t.Fatalf("failed to seed ledger: %v", err)
		}

		report, err := f.uc.VerifyAll(ctx, admin())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if report.Owners != 1 || len(report.Broken) != 1 {
			t.Errorf("report = %+v, want one broken owner", report)
		}
	})
}
