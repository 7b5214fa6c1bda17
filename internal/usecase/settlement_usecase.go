package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/iho/loanex/internal/domain"
	"github.com/iho/loanex/internal/infrastructure/metrics"
)

var (
	// ErrSettlementRunning is returned when another instance holds the run
	// lock for the same interval and period.
	ErrSettlementRunning = errors.New("settlement run already in progress")

	// errDealNotDue marks a deal that stopped being due between listing and
	// locking. Counted as skipped, not failed.
	errDealNotDue = errors.New("deal no longer due")
)

// SettlementUseCase runs the scheduled interest and payment batches. Each
// due deal is settled in its own serializable transaction so one broken deal
// cannot poison the whole run.
type SettlementUseCase struct {
	txManager TransactionManager
	dealRepo  DealRepository
	notifRepo NotificationRepository
	ledger    LedgerAppender
	retrier   Retrier
	locker    RunLocker
	idGen     IDGenerator
	logger    zerolog.Logger
	loc       *time.Location
	metrics   *metrics.Metrics
}

// NewSettlementUseCase creates a new SettlementUseCase. loc is the business
// timezone used to draw period boundaries. metrics may be nil.
func NewSettlementUseCase(
	txManager TransactionManager,
	dealRepo DealRepository,
	notifRepo NotificationRepository,
	ledger LedgerAppender,
	retrier Retrier,
	locker RunLocker,
	idGen IDGenerator,
	logger zerolog.Logger,
	loc *time.Location,
	metrics *metrics.Metrics,
) *SettlementUseCase {
	if loc == nil {
		loc = time.UTC
	}

	return &SettlementUseCase{
		txManager: txManager,
		dealRepo:  dealRepo,
		notifRepo: notifRepo,
		ledger:    ledger,
		retrier:   retrier,
		locker:    locker,
		idGen:     idGen,
		logger:    logger,
		loc:       loc,
		metrics:   metrics,
	}
}

// RunReport summarizes a settlement run.
type RunReport struct {
	Interval domain.PaymentInterval
	Matched  int
	Settled  int
	Closed   int
	Skipped  int
	Failed   int
}

// RunDaily settles all active daily deals once per calendar day.
func (uc *SettlementUseCase) RunDaily(ctx context.Context) (*RunReport, error) {
	periodStart := uc.startOfDay(time.Now().UTC())

	return uc.run(ctx, domain.IntervalDay, nil, periodStart)
}

// RunMonthly settles all active monthly deals once per calendar month.
func (uc *SettlementUseCase) RunMonthly(ctx context.Context) (*RunReport, error) {
	now := time.Now().In(uc.loc)
	periodStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, uc.loc)

	return uc.run(ctx, domain.IntervalMonth, nil, periodStart)
}

// RunOneTime settles one-time deals whose end date falls within the next
// day. Checked daily so a balloon payment lands on its due date.
func (uc *SettlementUseCase) RunOneTime(ctx context.Context) (*RunReport, error) {
	now := time.Now().UTC()
	endBefore := now.Add(24 * time.Hour)
	periodStart := uc.startOfDay(now)

	return uc.run(ctx, domain.IntervalOneTime, &endBefore, periodStart)
}

func (uc *SettlementUseCase) run(ctx context.Context, interval domain.PaymentInterval, endBefore *time.Time, periodStart time.Time) (*RunReport, error) {
	start := time.Now()
	lockKey := fmt.Sprintf("settlement:%s:%s", interval, periodStart.Format("2006-01-02"))

	acquired, err := uc.locker.Acquire(ctx, lockKey, SettlementLockTTL)
	if err != nil {
		return nil, err
	}

	if !acquired {
		return nil, ErrSettlementRunning
	}

	deals, err := uc.dealRepo.ListDue(ctx, interval, endBefore, periodStart)
	if err != nil {
		return nil, err
	}

	report := &RunReport{Interval: interval, Matched: len(deals)}

	for _, deal := range deals {
		if ctx.Err() != nil {
			return report, ctx.Err()
		}

		closed, err := uc.settleDeal(ctx, deal.ID, periodStart)

		switch {
		case errors.Is(err, errDealNotDue):
			report.Skipped++
		case err != nil:
			report.Failed++
			uc.logger.Error().Err(err).
				Str("deal_id", deal.ID).
				Str("interval", string(interval)).
				Msg("deal settlement failed")
		default:
			report.Settled++
			if closed {
				report.Closed++
			}
		}
	}

	uc.logger.Info().
		Str("interval", string(interval)).
		Int("matched", report.Matched).
		Int("settled", report.Settled).
		Int("closed", report.Closed).
		Int("skipped", report.Skipped).
		Int("failed", report.Failed).
		Msg("settlement run finished")

	if uc.metrics != nil {
		result := "ok"
		if report.Failed > 0 {
			result = "partial"
		}

		uc.metrics.SettlementRuns.WithLabelValues(string(interval), result).Inc()
		uc.metrics.SettlementDeals.WithLabelValues(string(interval), "settled").Add(float64(report.Settled))
		uc.metrics.SettlementDeals.WithLabelValues(string(interval), "failed").Add(float64(report.Failed))
		uc.metrics.SettlementDuration.WithLabelValues(string(interval)).Observe(time.Since(start).Seconds())
	}

	return report, nil
}

// settleDeal applies one settlement period to a single deal: charge interest
// on the deal ledger, then move the average payment from the debtor through
// the deal ledger to the creditor. When the payment brings the deal ledger
// to zero the deal finishes with SUCCESS.
func (uc *SettlementUseCase) settleDeal(ctx context.Context, dealID string, periodStart time.Time) (bool, error) {
	closed := false

	err := uc.retrier.Retry(ctx, func() error {
		closed = false

		tx, err := uc.txManager.BeginSerializable(ctx)
		if err != nil {
			return err
		}
		defer tx.Rollback(ctx)

		deal, err := uc.dealRepo.GetByIDForUpdate(ctx, tx, dealID)
		if err != nil {
			return err
		}

		// Re-check under lock: the deal may have been settled or closed
		// by a concurrent run since it was listed.
		if deal.Status != domain.StatusActive {
			return errDealNotDue
		}

		if deal.LastSettledAt != nil && !deal.LastSettledAt.Before(periodStart) {
			return errDealNotDue
		}

		now := time.Now().UTC()
		dealOwner := domain.DealOwner(deal.ID)
		payment := deal.AveragePayment()

		if _, err := uc.ledger.AppendTx(ctx, tx, dealOwner,
			domain.EventPercentCharge, deal.PercentCharge(), now); err != nil {
			return err
		}

		if _, err := uc.ledger.AppendTx(ctx, tx, domain.AccountOwner(deal.RecipientID),
			domain.EventDealPayment, payment.Neg(), now); err != nil {
			return err
		}

		dealEntry, err := uc.ledger.AppendTx(ctx, tx, dealOwner,
			domain.EventDealPayment, payment.Neg(), now)
		if err != nil {
			return err
		}

		if _, err := uc.ledger.AppendTx(ctx, tx, domain.AccountOwner(deal.EmitterID),
			domain.EventDealPayment, payment, now); err != nil {
			return err
		}

		deal.LastSettledAt = &now

		if dealEntry.CurrentBalance().IsZero() {
			deal.Status = domain.StatusSuccess
			closed = true

			for _, recipient := range []string{deal.EmitterID, deal.RecipientID} {
				notification := &domain.Notification{
					ID:          uc.idGen.Generate(),
					Date:        now,
					Event:       domain.EventDealClosed,
					RecipientID: recipient,
					DealID:      deal.ID,
				}

				if err := uc.notifRepo.CreateTx(ctx, tx, notification); err != nil {
					return err
				}
			}
		}

		if err := uc.dealRepo.Update(ctx, tx, deal); err != nil {
			return err
		}

		return tx.Commit(ctx)
	})

	return closed, err
}

func (uc *SettlementUseCase) startOfDay(t time.Time) time.Time {
	local := t.In(uc.loc)

	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, uc.loc)
}
