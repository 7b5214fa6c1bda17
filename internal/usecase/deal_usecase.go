package usecase

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/loanex/internal/domain"
	"github.com/iho/loanex/internal/infrastructure/metrics"
)

// LedgerAppender appends chained ledger entries inside a caller-owned
// transaction.
type LedgerAppender interface {
	AppendTx(ctx context.Context, tx Transaction, owner domain.LedgerOwner, event domain.LedgerEvent, amount decimal.Decimal, at time.Time) (*domain.BalanceLog, error)
}

// DealUseCase handles the deal lifecycle: proposal, acceptance and
// cancellation. All money movements go through the ledger appender so the
// per-owner chain invariant holds.
type DealUseCase struct {
	txManager TransactionManager
	dealRepo  DealRepository
	logRepo   BalanceLogRepository
	notifRepo NotificationRepository
	ledger    LedgerAppender
	retrier   Retrier
	idGen     IDGenerator
	metrics   *metrics.Metrics
}

// NewDealUseCase creates a new DealUseCase. metrics may be nil.
func NewDealUseCase(
	txManager TransactionManager,
	dealRepo DealRepository,
	logRepo BalanceLogRepository,
	notifRepo NotificationRepository,
	ledger LedgerAppender,
	retrier Retrier,
	idGen IDGenerator,
	metrics *metrics.Metrics,
) *DealUseCase {
	return &DealUseCase{
		txManager: txManager,
		dealRepo:  dealRepo,
		logRepo:   logRepo,
		notifRepo: notifRepo,
		ledger:    ledger,
		retrier:   retrier,
		idGen:     idGen,
		metrics:   metrics,
	}
}

// CreateDealInput represents input for proposing a deal.
type CreateDealInput struct {
	StartBalance        decimal.Decimal
	Percent             decimal.Decimal
	Fine                decimal.Decimal
	Term                int
	PaymentEvery        domain.PaymentInterval
	AllowEarlyPayment   bool
	AllowCapitalization bool
}

// CreateDeal proposes a new deal. The principal is debited from the
// emitter's account into the deal's own ledger immediately, so an open
// proposal cannot be double-spent.
func (uc *DealUseCase) CreateDeal(ctx context.Context, actor *domain.User, input CreateDealInput) (*domain.Deal, error) {
	if !actor.Role.CanOpenDeals() {
		return nil, domain.ErrInsufficientRole
	}

	if err := domain.ValidateDealAmount(input.StartBalance); err != nil {
		return nil, err
	}

	if err := domain.ValidateTerm(input.Term); err != nil {
		return nil, err
	}

	deal := &domain.Deal{
		ID:                  uc.idGen.Generate(),
		DateOpen:            time.Now().UTC(),
		StartBalance:        input.StartBalance,
		Percent:             input.Percent,
		Fine:                input.Fine,
		Term:                input.Term,
		PaymentEvery:        input.PaymentEvery,
		Status:              domain.StatusPending,
		EmitterID:           actor.ID,
		AllowEarlyPayment:   input.AllowEarlyPayment,
		AllowCapitalization: input.AllowCapitalization,
	}

	if err := deal.Validate(); err != nil {
		return nil, err
	}

	deal.SuccessRate = domain.ComputeSuccessRate(deal)

	err := uc.retrier.Retry(ctx, func() error {
		tx, err := uc.txManager.BeginSerializable(ctx)
		if err != nil {
			return err
		}
		defer tx.Rollback(ctx)

		// Lock the emitter's ledger tail before checking funds.
		last, err := uc.logRepo.LastForOwnerForUpdate(ctx, tx, domain.AccountOwner(actor.ID))
		if err != nil {
			return err
		}

		balance := decimal.Zero
		if last != nil {
			balance = last.CurrentBalance()
		}

		if balance.LessThan(deal.StartBalance) {
			return domain.ErrInsufficientFunds
		}

		if err := uc.dealRepo.Create(ctx, tx, deal); err != nil {
			return err
		}

		if _, err := uc.ledger.AppendTx(ctx, tx, domain.AccountOwner(actor.ID),
			domain.EventNewDealOpen, deal.StartBalance.Neg(), deal.DateOpen); err != nil {
			return err
		}

		if _, err := uc.ledger.AppendTx(ctx, tx, domain.DealOwner(deal.ID),
			domain.EventNewDealOpen, deal.StartBalance, deal.DateOpen); err != nil {
			return err
		}

		return tx.Commit(ctx)
	})
	if err != nil {
		return nil, err
	}

	if uc.metrics != nil {
		uc.metrics.DealsCreated.Inc()
		uc.metrics.DealAmount.Observe(deal.StartBalance.InexactFloat64())
	}

	return deal, nil
}

// AcceptDeal activates a pending deal for the calling debtor. The loan lands
// on the debtor's account ledger; the deal ledger keeps tracking the
// outstanding debt until settlement brings it to zero.
func (uc *DealUseCase) AcceptDeal(ctx context.Context, actor *domain.User, dealID string) (*domain.Deal, error) {
	var deal *domain.Deal

	err := uc.retrier.Retry(ctx, func() error {
		tx, err := uc.txManager.BeginSerializable(ctx)
		if err != nil {
			return err
		}
		defer tx.Rollback(ctx)

		deal, err = uc.dealRepo.GetByIDForUpdate(ctx, tx, dealID)
		if err != nil {
			return err
		}

		if deal.Status != domain.StatusPending {
			return domain.ErrInvalidDealState
		}

		if deal.EmitterID == actor.ID {
			return domain.ErrOwnDeal
		}

		if !actor.Role.BypassesDealLimit() {
			active, err := uc.dealRepo.CountActiveForRecipient(ctx, tx, actor.ID)
			if err != nil {
				return err
			}

			if active > 0 {
				return domain.ErrConcurrentDealLimit
			}
		}

		now := time.Now().UTC()
		endDate := now.AddDate(0, 0, deal.TermDays())

		deal.Status = domain.StatusActive
		deal.RecipientID = actor.ID
		deal.DateBecomeActive = &now
		deal.EndDate = &endDate

		if err := uc.dealRepo.Update(ctx, tx, deal); err != nil {
			return err
		}

		principal, err := uc.dealBalanceTx(ctx, tx, deal.ID)
		if err != nil {
			return err
		}

		if _, err := uc.ledger.AppendTx(ctx, tx, domain.AccountOwner(actor.ID),
			domain.EventLoanTaken, principal, now); err != nil {
			return err
		}

		notification := &domain.Notification{
			ID:          uc.idGen.Generate(),
			Date:        now,
			Event:       domain.EventLoanTaken,
			RecipientID: deal.EmitterID,
			DealID:      deal.ID,
		}

		if err := uc.notifRepo.CreateTx(ctx, tx, notification); err != nil {
			return err
		}

		return tx.Commit(ctx)
	})
	if err != nil {
		return nil, err
	}

	if uc.metrics != nil {
		uc.metrics.DealsAccepted.Inc()
	}

	return deal, nil
}

// CloseDeal cancels a pending deal and refunds the reserved principal to the
// emitter. Closing is allowed for the emitter and for admins. Deals in any
// other state are returned unchanged.
func (uc *DealUseCase) CloseDeal(ctx context.Context, actor *domain.User, dealID string) (*domain.Deal, error) {
	var (
		deal         *domain.Deal
		transitioned bool
	)

	err := uc.retrier.Retry(ctx, func() error {
		transitioned = false

		tx, err := uc.txManager.BeginSerializable(ctx)
		if err != nil {
			return err
		}
		defer tx.Rollback(ctx)

		deal, err = uc.dealRepo.GetByIDForUpdate(ctx, tx, dealID)
		if err != nil {
			return err
		}

		if deal.EmitterID != actor.ID && !actor.Role.CanManageLedger() {
			return domain.ErrInsufficientRole
		}

		if deal.Status != domain.StatusPending {
			return tx.Commit(ctx)
		}

		now := time.Now().UTC()

		reserved, err := uc.dealBalanceTx(ctx, tx, deal.ID)
		if err != nil {
			return err
		}

		if reserved.IsPositive() {
			if _, err := uc.ledger.AppendTx(ctx, tx, domain.DealOwner(deal.ID),
				domain.EventDealClosed, reserved.Neg(), now); err != nil {
				return err
			}

			if _, err := uc.ledger.AppendTx(ctx, tx, domain.AccountOwner(deal.EmitterID),
				domain.EventDealClosed, reserved, now); err != nil {
				return err
			}
		}

		deal.Status = domain.StatusClosed
		transitioned = true

		if err := uc.dealRepo.Update(ctx, tx, deal); err != nil {
			return err
		}

		return tx.Commit(ctx)
	})
	if err != nil {
		return nil, err
	}

	if uc.metrics != nil && transitioned {
		uc.metrics.DealsClosed.WithLabelValues(string(domain.StatusClosed)).Inc()
	}

	return deal, nil
}

// GetDeal retrieves a deal by ID.
func (uc *DealUseCase) GetDeal(ctx context.Context, id string) (*domain.Deal, error) {
	return uc.dealRepo.GetByID(ctx, id)
}

// ListDealsInput represents input for listing deals.
type ListDealsInput struct {
	Filter DealFilter
	Limit  int
	Offset int
}

// ListDeals lists deals visible to the actor. Creditors see their own deals,
// debtors see open proposals from other users plus deals they hold; admins
// and the system see everything.
func (uc *DealUseCase) ListDeals(ctx context.Context, actor *domain.User, input ListDealsInput) ([]*domain.Deal, error) {
	limit, offset, err := domain.ValidatePagination(input.Limit, input.Offset)
	if err != nil {
		return nil, err
	}

	filter := input.Filter

	switch {
	case actor.Role.CanViewAllLedgers():
		// no narrowing
	case actor.Role == domain.RoleCreditor:
		filter.EmitterID = actor.ID
	default:
		if filter.RecipientID == actor.ID {
			break
		}

		filter.AvailableToDebtor = true
		filter.ExcludeEmitterID = actor.ID
	}

	return uc.dealRepo.List(ctx, filter, limit, offset)
}

func (uc *DealUseCase) dealBalanceTx(ctx context.Context, tx Transaction, dealID string) (decimal.Decimal, error) {
	last, err := uc.logRepo.LastForOwnerForUpdate(ctx, tx, domain.DealOwner(dealID))
	if err != nil {
		return decimal.Zero, err
	}

	if last == nil {
		return decimal.Zero, nil
	}

	return last.CurrentBalance(), nil
}
