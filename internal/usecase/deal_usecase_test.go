package usecase_test

import (
	"context"
	"errors"
	"testing"
	"time"

	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"

	"github.com/iho/loanex/internal/domain"
	"github.com/iho/loanex/internal/infrastructure/metrics"
	"github.com/iho/loanex/internal/usecase"
	"github.com/iho/loanex/internal/usecase/mocks"
)

type dealFixture struct {
	deals  *mocks.MockDealRepository
	logs   *mocks.MockBalanceLogRepository
	notifs *mocks.MockNotificationRepository
	ledger *usecase.LedgerUseCase
	uc     *usecase.DealUseCase
}

func newDealFixture() *dealFixture {
	deals := mocks.NewMockDealRepository()
	logs := mocks.NewMockBalanceLogRepository()
	notifs := mocks.NewMockNotificationRepository()
	txManager := mocks.NewMockTransactionManager()
	retrier := mocks.NewMockRetrier()
	idGen := mocks.NewMockIDGenerator()

	ledger := usecase.NewLedgerUseCase(txManager, logs, deals, retrier, idGen, nil)
	uc := usecase.NewDealUseCase(txManager, deals, logs, notifs, ledger, retrier, idGen, nil)

	return &dealFixture{
		deals:  deals,
		logs:   logs,
		notifs: notifs,
		ledger: ledger,
		uc:     uc,
	}
}

// fund seeds an account ledger with an opening loan entry.
func (f *dealFixture) fund(t *testing.T, accountID string, amount string) {
	t.Helper()

	err := f.logs.Create(context.Background(), nil, &domain.BalanceLog{
		ID:            "seed-" + accountID,
		Date:          time.Now().UTC(),
		OldValue:      decimal.Zero,
		AmountChanged: decimal.RequireFromString(amount),
		Event:         domain.EventLoanTaken,
		AccountID:     accountID,
	})
	if err != nil {
		t.Fatalf("failed to seed account %s: %v", accountID, err)
	}
}

func (f *dealFixture) balance(t *testing.T, owner domain.LedgerOwner) decimal.Decimal {
	t.Helper()

	balance, err := f.ledger.CurrentBalance(context.Background(), owner)
	if err != nil {
		t.Fatalf("failed to read balance: %v", err)
	}

	return balance
}

func creditor(id string) *domain.User {
	return &domain.User{ID: id, Role: domain.RoleCreditor, Active: true}
}

func debtor(id string) *domain.User {
	return &domain.User{ID: id, Role: domain.RoleDebtor, Active: true}
}

func proposal() usecase.CreateDealInput {
	return usecase.CreateDealInput{
		StartBalance:        decimal.NewFromInt(1000),
		Percent:             decimal.RequireFromString("0.05"),
		Term:                10,
		PaymentEvery:        domain.IntervalDay,
		AllowEarlyPayment:   true,
		AllowCapitalization: true,
	}
}

func TestDealUseCase_CreateDeal(t *testing.T) {
	ctx := context.Background()

	t.Run("reserves principal on the deal ledger", func(t *testing.T) {
		f := newDealFixture()
		f.fund(t, "creditor-1", "5000")

		deal, err := f.uc.CreateDeal(ctx, creditor("creditor-1"), proposal())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if deal.Status != domain.StatusPending {
			t.Errorf("status = %s, want PENDING", deal.Status)
		}

		if deal.SuccessRate < 1 || deal.SuccessRate > 100 {
			t.Errorf("success rate %d outside [1,100]", deal.SuccessRate)
		}

		if got := f.balance(t, domain.AccountOwner("creditor-1")); !got.Equal(decimal.NewFromInt(4000)) {
			t.Errorf("creditor balance = %s, want 4000", got)
		}

		if got := f.balance(t, domain.DealOwner(deal.ID)); !got.Equal(decimal.NewFromInt(1000)) {
			t.Errorf("deal balance = %s, want 1000", got)
		}
	})

	t.Run("insufficient funds", func(t *testing.T) {
		f := newDealFixture()
		f.fund(t, "creditor-1", "999.99")

		_, err := f.uc.CreateDeal(ctx, creditor("creditor-1"), proposal())
		if !errors.Is(err, domain.ErrInsufficientFunds) {
			t.Errorf("expected ErrInsufficientFunds, got %v", err)
		}
	})

	t.Run("empty ledger counts as zero balance", func(t *testing.T) {
		f := newDealFixture()

		_, err := f.uc.CreateDeal(ctx, creditor("creditor-1"), proposal())
		if !errors.Is(err, domain.ErrInsufficientFunds) {
			t.Errorf("expected ErrInsufficientFunds, got %v", err)
		}
	})

	t.Run("debtor cannot open deals", func(t *testing.T) {
		f := newDealFixture()
		f.fund(t, "debtor-1", "5000")

		_, err := f.uc.CreateDeal(ctx, debtor("debtor-1"), proposal())
		if !errors.Is(err, domain.ErrInsufficientRole) {
			t.Errorf("expected ErrInsufficientRole, got %v", err)
		}
	})

	t.Run("rejects invalid amount", func(t *testing.T) {
		f := newDealFixture()
		f.fund(t, "creditor-1", "5000")

		input := proposal()
		input.StartBalance = decimal.Zero

		_, err := f.uc.CreateDeal(ctx, creditor("creditor-1"), input)
		if !errors.Is(err, domain.ErrInvalidAmount) {
			t.Errorf("expected ErrInvalidAmount, got %v", err)
		}
	})
}

func TestDealUseCase_AcceptDeal(t *testing.T) {
	ctx := context.Background()

	open := func(t *testing.T, f *dealFixture) *domain.Deal {
		t.Helper()
		f.fund(t, "creditor-1", "5000")

		deal, err := f.uc.CreateDeal(ctx, creditor("creditor-1"), proposal())
		if err != nil {
			t.Fatalf("failed to open deal: %v", err)
		}

		return deal
	}

	t.Run("activates deal and credits debtor", func(t *testing.T) {
		f := newDealFixture()
		deal := open(t, f)

		accepted, err := f.uc.AcceptDeal(ctx, debtor("debtor-1"), deal.ID)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if accepted.Status != domain.StatusActive {
			t.Errorf("status = %s, want ACTIVE", accepted.Status)
		}

		if accepted.RecipientID != "debtor-1" {
			t.Errorf("recipient = %s, want debtor-1", accepted.RecipientID)
		}

		if accepted.DateBecomeActive == nil || accepted.EndDate == nil {
			t.Fatal("activation dates not set")
		}

		wantEnd := accepted.DateBecomeActive.AddDate(0, 0, 10)
		if !accepted.EndDate.Equal(wantEnd) {
			t.Errorf("end date = %s, want %s", accepted.EndDate, wantEnd)
		}

		if got := f.balance(t, domain.AccountOwner("debtor-1")); !got.Equal(decimal.NewFromInt(1000)) {
			t.Errorf("debtor balance = %s, want 1000", got)
		}

		// The deal ledger keeps tracking the outstanding debt.
		if got := f.balance(t, domain.DealOwner(deal.ID)); !got.Equal(decimal.NewFromInt(1000)) {
			t.Errorf("deal balance = %s, want 1000", got)
		}

		notifs := f.notifs.All()
		if len(notifs) != 1 || notifs[0].RecipientID != "creditor-1" || notifs[0].Event != domain.EventLoanTaken {
			t.Errorf("expected one LOAN_TAKEN notification to the emitter, got %+v", notifs)
		}
	})

	t.Run("emitter cannot accept own deal", func(t *testing.T) {
		f := newDealFixture()
		deal := open(t, f)

		_, err := f.uc.AcceptDeal(ctx, creditor("creditor-1"), deal.ID)
		if !errors.Is(err, domain.ErrOwnDeal) {
			t.Errorf("expected ErrOwnDeal, got %v", err)
		}
	})

	t.Run("one active deal per debtor", func(t *testing.T) {
		f := newDealFixture()
		first := open(t, f)

		second, err := f.uc.CreateDeal(ctx, creditor("creditor-1"), proposal())
		if err != nil {
			t.Fatalf("failed to open second deal: %v", err)
		}

		if _, err := f.uc.AcceptDeal(ctx, debtor("debtor-1"), first.ID); err != nil {
			t.Fatalf("failed to accept first deal: %v", err)
		}

		_, err = f.uc.AcceptDeal(ctx, debtor("debtor-1"), second.ID)
		if !errors.Is(err, domain.ErrConcurrentDealLimit) {
			t.Errorf("expected ErrConcurrentDealLimit, got %v", err)
		}
	})

	t.Run("system user bypasses the deal limit", func(t *testing.T) {
		f := newDealFixture()
		first := open(t, f)

		second, err := f.uc.CreateDeal(ctx, creditor("creditor-1"), proposal())
		if err != nil {
			t.Fatalf("failed to open second deal: %v", err)
		}

		system := &domain.User{ID: "system-1", Role: domain.RoleSystem, Active: true}

		if _, err := f.uc.AcceptDeal(ctx, system, first.ID); err != nil {
			t.Fatalf("failed to accept first deal: %v", err)
		}

		if _, err := f.uc.AcceptDeal(ctx, system, second.ID); err != nil {
			t.Errorf("expected system user to bypass limit, got %v", err)
		}
	})

	t.Run("only pending deals can be accepted", func(t *testing.T) {
		f := newDealFixture()
		deal := open(t, f)

		if _, err := f.uc.AcceptDeal(ctx, debtor("debtor-1"), deal.ID); err != nil {
			t.Fatalf("failed to accept deal: %v", err)
		}

		_, err := f.uc.AcceptDeal(ctx, debtor("debtor-2"), deal.ID)
		if !errors.Is(err, domain.ErrInvalidDealState) {
			t.Errorf("expected ErrInvalidDealState, got %v", err)
		}
	})

	t.Run("unknown deal", func(t *testing.T) {
		f := newDealFixture()

		_, err := f.uc.AcceptDeal(ctx, debtor("debtor-1"), "missing")
		if !errors.Is(err, domain.ErrDealNotFound) {
			t.Errorf("expected ErrDealNotFound, got %v", err)
		}
	})
}

func TestDealUseCase_CloseDeal(t *testing.T) {
	ctx := context.Background()

	t.Run("cancelling a pending deal refunds the emitter", func(t *testing.T) {
		f := newDealFixture()
		f.fund(t, "creditor-1", "5000")

		deal, err := f.uc.CreateDeal(ctx, creditor("creditor-1"), proposal())
		if err != nil {
			t.Fatalf("failed to open deal: %v", err)
		}

		closed, err := f.uc.CloseDeal(ctx, creditor("creditor-1"), deal.ID)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if closed.Status != domain.StatusClosed {
			t.Errorf("status = %s, want CLOSED", closed.Status)
		}

		if got := f.balance(t, domain.AccountOwner("creditor-1")); !got.Equal(decimal.NewFromInt(5000)) {
			t.Errorf("creditor balance = %s, want 5000", got)
		}

		if got := f.balance(t, domain.DealOwner(deal.ID)); !got.IsZero() {
			t.Errorf("deal balance = %s, want 0", got)
		}
	})

	t.Run("active deal is left unchanged", func(t *testing.T) {
		f := newDealFixture()
		f.fund(t, "creditor-1", "5000")

		deal, err := f.uc.CreateDeal(ctx, creditor("creditor-1"), proposal())
		if err != nil {
			t.Fatalf("failed to open deal: %v", err)
		}

		if _, err := f.uc.AcceptDeal(ctx, debtor("debtor-1"), deal.ID); err != nil {
			t.Fatalf("failed to accept deal: %v", err)
		}

		result, err := f.uc.CloseDeal(ctx, creditor("creditor-1"), deal.ID)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if result.Status != domain.StatusActive {
			t.Errorf("status = %s, want ACTIVE", result.Status)
		}
	})

	t.Run("strangers cannot close a deal", func(t *testing.T) {
		f := newDealFixture()
		f.fund(t, "creditor-1", "5000")

		deal, err := f.uc.CreateDeal(ctx, creditor("creditor-1"), proposal())
		if err != nil {
			t.Fatalf("failed to open deal: %v", err)
		}

		_, err = f.uc.CloseDeal(ctx, creditor("creditor-2"), deal.ID)
		if !errors.Is(err, domain.ErrInsufficientRole) {
			t.Errorf("expected ErrInsufficientRole, got %v", err)
		}
	})
}

func TestDealUseCase_CloseDealCountsCancellationOnce(t *testing.T) {
	ctx := context.Background()

	deals := mocks.NewMockDealRepository()
	logs := mocks.NewMockBalanceLogRepository()
	txManager := mocks.NewMockTransactionManager()
	retrier := mocks.NewMockRetrier()
	idGen := mocks.NewMockIDGenerator()
	appMetrics := metrics.New()

	ledger := usecase.NewLedgerUseCase(txManager, logs, deals, retrier, idGen, nil)
	uc := usecase.NewDealUseCase(txManager, deals, logs, mocks.NewMockNotificationRepository(),
		ledger, retrier, idGen, appMetrics)

	if err := logs.Create(ctx, nil, &domain.BalanceLog{
		ID:            "seed-creditor-1",
		Date:          time.Now().UTC(),
		OldValue:      decimal.Zero,
		AmountChanged: decimal.NewFromInt(5000),
		Event:         domain.EventLoanTaken,
		AccountID:     "creditor-1",
	}); err != nil {
		t.Fatalf("failed to seed account: %v", err)
	}

	deal, err := uc.CreateDeal(ctx, creditor("creditor-1"), proposal())
	if err != nil {
		t.Fatalf("failed to open deal: %v", err)
	}

	// Closing twice is a no-op the second time and must not inflate the counter.
	for i := 0; i < 2; i++ {
		closed, err := uc.CloseDeal(ctx, creditor("creditor-1"), deal.ID)
		if err != nil {
			t.Fatalf("close %d: unexpected error: %v", i+1, err)
		}
		if closed.Status != domain.StatusClosed {
			t.Fatalf("close %d: status = %s, want CLOSED", i+1, closed.Status)
		}
	}

	counter := appMetrics.DealsClosed.WithLabelValues(string(domain.StatusClosed))
	if got := promtestutil.ToFloat64(counter); got != 1 {
		t.Errorf("closed counter = %v, want 1", got)
	}
}

func TestDealUseCase_ListDeals(t *testing.T) {
	ctx := context.Background()

	f := newDealFixture()
	f.fund(t, "creditor-1", "10000")
	f.fund(t, "creditor-2", "10000")

	first, err := f.uc.CreateDeal(ctx, creditor("creditor-1"), proposal())
	if err != nil {
		t.Fatalf("failed to open deal: %v", err)
	}

	if _, err := f.uc.CreateDeal(ctx, creditor("creditor-2"), proposal()); err != nil {
		t.Fatalf("failed to open deal: %v", err)
	}

	t.Run("creditor sees only own deals", func(t *testing.T) {
		deals, err := f.uc.ListDeals(ctx, creditor("creditor-1"), usecase.ListDealsInput{})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if len(deals) != 1 || deals[0].ID != first.ID {
			t.Errorf("expected only creditor-1 deals, got %d", len(deals))
		}
	})

	t.Run("debtor sees open proposals from others", func(t *testing.T) {
		deals, err := f.uc.ListDeals(ctx, debtor("debtor-1"), usecase.ListDealsInput{})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if len(deals) != 2 {
			t.Errorf("expected 2 open proposals, got %d", len(deals))
		}
	})

	t.Run("admin sees everything", func(t *testing.T) {
		admin := &domain.User{ID: "admin-1", Role: domain.RoleAdmin, Active: true}

		deals, err := f.uc.ListDeals(ctx, admin, usecase.ListDealsInput{})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if len(deals) != 2 {
			t.Errorf("expected 2 deals, got %d", len(deals))
		}
	})
}
