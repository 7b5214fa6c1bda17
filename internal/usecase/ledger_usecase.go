package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/loanex/internal/domain"
)

// LedgerUseCase handles balance log chains: reads, admin adjustments and
// chain verification. Chained appends for deal flows are exposed to the
// other use cases through AppendTx.
type LedgerUseCase struct {
	txManager TransactionManager
	logRepo   BalanceLogRepository
	dealRepo  DealRepository
	retrier   Retrier
	idGen     IDGenerator
	cache     Cache
}

// NewLedgerUseCase creates a new LedgerUseCase.
func NewLedgerUseCase(
	txManager TransactionManager,
	logRepo BalanceLogRepository,
	dealRepo DealRepository,
	retrier Retrier,
	idGen IDGenerator,
	cache Cache,
) *LedgerUseCase {
	return &LedgerUseCase{
		txManager: txManager,
		logRepo:   logRepo,
		dealRepo:  dealRepo,
		retrier:   retrier,
		idGen:     idGen,
		cache:     cache,
	}
}

// AppendTx appends a chained entry to the owner's ledger inside tx. It locks
// the tail entry, derives OldValue from it and rejects events that may not
// open an empty ledger. Returns the created entry.
func (uc *LedgerUseCase) AppendTx(
	ctx context.Context,
	tx Transaction,
	owner domain.LedgerOwner,
	event domain.LedgerEvent,
	amount decimal.Decimal,
	at time.Time,
) (*domain.BalanceLog, error) {
	return uc.appendTx(ctx, tx, owner, event, amount, at, false)
}

func (uc *LedgerUseCase) appendTx(
	ctx context.Context,
	tx Transaction,
	owner domain.LedgerOwner,
	event domain.LedgerEvent,
	amount decimal.Decimal,
	at time.Time,
	allowOpen bool,
) (*domain.BalanceLog, error) {
	last, err := uc.logRepo.LastForOwnerForUpdate(ctx, tx, owner)
	if err != nil {
		return nil, err
	}

	oldValue := decimal.Zero
	if last != nil {
		oldValue = last.CurrentBalance()
	} else if !allowOpen && !event.OpensLedger(owner.Kind) {
		return nil, domain.ErrLedgerOwnerNotFound
	}

	log := &domain.BalanceLog{
		ID:            uc.idGen.Generate(),
		Date:          at,
		OldValue:      oldValue,
		AmountChanged: amount,
		Event:         event,
	}

	switch owner.Kind {
	case domain.OwnerDeal:
		log.DealID = owner.ID
	default:
		log.AccountID = owner.ID
	}

	if err := log.Validate(); err != nil {
		return nil, err
	}

	if err := uc.logRepo.Create(ctx, tx, log); err != nil {
		return nil, err
	}

	return log, nil
}

// AdminAppendInput represents input for a manual ledger adjustment.
type AdminAppendInput struct {
	AccountID string
	DealID    string
	Event     domain.LedgerEvent
	Amount    decimal.Decimal
}

// AdminAppend appends a manual entry to any ledger. This is the funding
// path: only admins may call it, and unlike deal flows it may open an
// account ledger with any event.
func (uc *LedgerUseCase) AdminAppend(ctx context.Context, actor *domain.User, input AdminAppendInput) (*domain.BalanceLog, error) {
	if !actor.Role.CanManageLedger() {
		return nil, domain.ErrInsufficientRole
	}

	if !input.Event.IsValid() {
		return nil, domain.ErrInvalidLedgerEvent
	}

	if (input.AccountID == "") == (input.DealID == "") {
		return nil, domain.ErrAmbiguousLedgerOwner
	}

	owner := domain.AccountOwner(input.AccountID)
	if input.DealID != "" {
		owner = domain.DealOwner(input.DealID)
	}

	var log *domain.BalanceLog

	err := uc.retrier.Retry(ctx, func() error {
		tx, err := uc.txManager.BeginSerializable(ctx)
		if err != nil {
			return err
		}
		defer tx.Rollback(ctx)

		log, err = uc.appendTx(ctx, tx, owner, input.Event, input.Amount, time.Now().UTC(), true)
		if err != nil {
			return err
		}

		return tx.Commit(ctx)
	})
	if err != nil {
		return nil, err
	}

	uc.invalidateStats(ctx, owner)

	return log, nil
}

// CurrentBalance returns the owner's balance. An empty ledger reads as zero.
func (uc *LedgerUseCase) CurrentBalance(ctx context.Context, owner domain.LedgerOwner) (decimal.Decimal, error) {
	last, err := uc.logRepo.LastForOwner(ctx, owner)
	if err != nil {
		return decimal.Zero, err
	}

	if last == nil {
		return decimal.Zero, nil
	}

	return last.CurrentBalance(), nil
}

// AccountStats aggregates a user's ledger activity. Results are cached
// briefly since stats back dashboard views and tolerate slight staleness.
func (uc *LedgerUseCase) AccountStats(ctx context.Context, actor *domain.User, accountID string) (*domain.AccountStats, error) {
	if actor.ID != accountID && !actor.Role.CanViewAllLedgers() {
		return nil, domain.ErrInsufficientRole
	}

	cacheKey := statsCacheKey(accountID)

	if uc.cache != nil {
		if data, err := uc.cache.Get(ctx, cacheKey); err == nil && data != nil {
			var stats domain.AccountStats
			if err := json.Unmarshal(data, &stats); err == nil {
				return &stats, nil
			}
		}
	}

	incoming, err := uc.logRepo.SumPositiveForAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}

	payments, err := uc.logRepo.SumByEventForAccount(ctx, accountID, domain.EventDealPayment)
	if err != nil {
		return nil, err
	}

	balance, err := uc.CurrentBalance(ctx, domain.AccountOwner(accountID))
	if err != nil {
		return nil, err
	}

	stats := &domain.AccountStats{
		AccountID: accountID,
		Incoming:  incoming,
		Payments:  payments,
		Balance:   balance,
	}

	if uc.cache != nil {
		if data, err := json.Marshal(stats); err == nil {
			_ = uc.cache.Set(ctx, cacheKey, data, StatsCacheTTL)
		}
	}

	return stats, nil
}

// ListLogsInput represents input for listing balance log entries.
type ListLogsInput struct {
	Filter LogFilter
	Limit  int
	Offset int
}

// ListLogs lists balance log entries visible to the actor. Regular users see
// their own account ledger and the ledgers of deals they participate in.
func (uc *LedgerUseCase) ListLogs(ctx context.Context, actor *domain.User, input ListLogsInput) ([]*domain.BalanceLog, error) {
	limit, offset, err := domain.ValidatePagination(input.Limit, input.Offset)
	if err != nil {
		return nil, err
	}

	filter := input.Filter

	if !actor.Role.CanViewAllLedgers() {
		if filter.DealID != "" {
			deal, err := uc.dealRepo.GetByID(ctx, filter.DealID)
			if err != nil {
				return nil, err
			}

			if deal.EmitterID != actor.ID && deal.RecipientID != actor.ID {
				return nil, domain.ErrInsufficientRole
			}
		} else {
			filter.AccountID = actor.ID
		}
	}

	return uc.logRepo.List(ctx, filter, limit, offset)
}

// VerifyChain walks the owner's ledger and checks the chain invariant: the
// first entry starts at zero and every entry's OldValue equals the previous
// entry's balance.
func (uc *LedgerUseCase) VerifyChain(ctx context.Context, owner domain.LedgerOwner) error {
	logs, err := uc.logRepo.ListForOwner(ctx, owner)
	if err != nil {
		return err
	}

	var prev *domain.BalanceLog
	for _, log := range logs {
		if !log.ChainedAfter(prev) {
			return fmt.Errorf("%w: %s %s at entry %s", domain.ErrBrokenChain, owner.Kind, owner.ID, log.ID)
		}

		prev = log
	}

	return nil
}

// VerifyAllReport summarizes a full ledger verification.
type VerifyAllReport struct {
	Owners int
	Broken []domain.LedgerOwner
}

// VerifyAll verifies every ledger chain in the system. Admin only.
func (uc *LedgerUseCase) VerifyAll(ctx context.Context, actor *domain.User) (*VerifyAllReport, error) {
	if !actor.Role.CanManageLedger() {
		return nil, domain.ErrInsufficientRole
	}

	owners, err := uc.logRepo.ListOwners(ctx)
	if err != nil {
		return nil, err
	}

	report := &VerifyAllReport{Owners: len(owners)}

	for _, owner := range owners {
		if err := uc.VerifyChain(ctx, owner); err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}

			report.Broken = append(report.Broken, owner)
		}
	}

	return report, nil
}

func (uc *LedgerUseCase) invalidateStats(ctx context.Context, owner domain.LedgerOwner) {
	if uc.cache == nil || owner.Kind != domain.OwnerAccount {
		return
	}

	_ = uc.cache.Delete(ctx, statsCacheKey(owner.ID))
}

func statsCacheKey(accountID string) string {
	return "stats:account:" + accountID
}
