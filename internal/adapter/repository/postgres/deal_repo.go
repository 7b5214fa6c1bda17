package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/iho/loanex/internal/domain"
	"github.com/iho/loanex/internal/usecase"
)

const dealColumns = `id, date_open, date_become_active, end_date, last_settled_at,
	start_balance, percent, fine, success_rate, term, payment_every, status,
	emitter_id, recipient_id, allow_early_payment, allow_capitalization`

// DealRepository implements usecase.DealRepository.
type DealRepository struct {
	pool *pgxpool.Pool
}

// NewDealRepository creates a new DealRepository.
func NewDealRepository(pool *pgxpool.Pool) *DealRepository {
	return &DealRepository{pool: pool}
}

// Create inserts a new deal inside tx.
func (r *DealRepository) Create(ctx context.Context, tx usecase.Transaction, deal *domain.Deal) error {
	pgxTx := tx.(*Tx).PgxTx()

	query := `
		INSERT INTO deals (
			id, date_open, date_become_active, end_date, last_settled_at,
			start_balance, percent, fine, success_rate, term, payment_every, status,
			emitter_id, recipient_id, allow_early_payment, allow_capitalization
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`

	_, err := pgxTx.Exec(ctx, query,
		deal.ID,
		timeToPgTimestamptz(deal.DateOpen),
		timePtrToPgTimestamptz(deal.DateBecomeActive),
		timePtrToPgTimestamptz(deal.EndDate),
		timePtrToPgTimestamptz(deal.LastSettledAt),
		decimalToNumeric(deal.StartBalance),
		decimalToNumeric(deal.Percent),
		decimalToNumeric(deal.Fine),
		deal.SuccessRate,
		deal.Term,
		deal.PaymentEvery,
		deal.Status,
		deal.EmitterID,
		textToPg(deal.RecipientID),
		deal.AllowEarlyPayment,
		deal.AllowCapitalization,
	)

	return err
}

// GetByID retrieves a deal by ID.
func (r *DealRepository) GetByID(ctx context.Context, id string) (*domain.Deal, error) {
	query := fmt.Sprintf(`SELECT %s FROM deals WHERE id = $1`, dealColumns)

	return scanDealRow(r.pool.QueryRow(ctx, query, id))
}

// GetByIDForUpdate locks and retrieves a deal by ID inside tx.
func (r *DealRepository) GetByIDForUpdate(ctx context.Context, tx usecase.Transaction, id string) (*domain.Deal, error) {
	pgxTx := tx.(*Tx).PgxTx()

	query := fmt.Sprintf(`SELECT %s FROM deals WHERE id = $1 FOR UPDATE`, dealColumns)

	return scanDealRow(pgxTx.QueryRow(ctx, query, id))
}

// Update persists deal state inside tx.
func (r *DealRepository) Update(ctx context.Context, tx usecase.Transaction, deal *domain.Deal) error {
	pgxTx := tx.(*Tx).PgxTx()

	query := `
		UPDATE deals
		SET date_become_active = $2, end_date = $3, last_settled_at = $4,
			success_rate = $5, status = $6, recipient_id = $7
		WHERE id = $1
	`

	_, err := pgxTx.Exec(ctx, query,
		deal.ID,
		timePtrToPgTimestamptz(deal.DateBecomeActive),
		timePtrToPgTimestamptz(deal.EndDate),
		timePtrToPgTimestamptz(deal.LastSettledAt),
		deal.SuccessRate,
		deal.Status,
		textToPg(deal.RecipientID),
	)

	return err
}

// CountActiveForRecipient counts active deals held by a recipient, inside tx
// so the one-active-deal rule is checked under lock.
func (r *DealRepository) CountActiveForRecipient(ctx context.Context, tx usecase.Transaction, recipientID string) (int, error) {
	pgxTx := tx.(*Tx).PgxTx()

	query := `SELECT COUNT(*) FROM deals WHERE recipient_id = $1 AND status = $2`

	var count int
	err := pgxTx.QueryRow(ctx, query, recipientID, domain.StatusActive).Scan(&count)

	return count, err
}

// ListDue returns active deals of the given interval not yet settled in the
// current period, oldest first.
func (r *DealRepository) ListDue(ctx context.Context, interval domain.PaymentInterval, endBefore *time.Time, settledBefore time.Time) ([]*domain.Deal, error) {
	conditions := []string{
		"status = $1",
		"payment_every = $2",
		"(last_settled_at IS NULL OR last_settled_at < $3)",
	}
	args := []any{domain.StatusActive, interval, timeToPgTimestamptz(settledBefore)}

	if endBefore != nil {
		args = append(args, timeToPgTimestamptz(*endBefore))
		conditions = append(conditions, fmt.Sprintf("end_date <= $%d", len(args)))
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM deals
		WHERE %s
		ORDER BY id ASC
	`, dealColumns, strings.Join(conditions, " AND "))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanDealRows(rows)
}

// List retrieves deals matching the filter, newest first.
func (r *DealRepository) List(ctx context.Context, filter usecase.DealFilter, limit, offset int) ([]*domain.Deal, error) {
	conditions := []string{"1 = 1"}
	args := []any{}

	if filter.EmitterID != "" {
		args = append(args, filter.EmitterID)
		conditions = append(conditions, fmt.Sprintf("emitter_id = $%d", len(args)))
	}

	if filter.ExcludeEmitterID != "" {
		args = append(args, filter.ExcludeEmitterID)
		conditions = append(conditions, fmt.Sprintf("emitter_id <> $%d", len(args)))
	}

	if filter.RecipientID != "" {
		args = append(args, filter.RecipientID)
		conditions = append(conditions, fmt.Sprintf("recipient_id = $%d", len(args)))
	}

	if filter.Status != "" {
		args = append(args, filter.Status)
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}

	if filter.PaymentEvery != "" {
		args = append(args, filter.PaymentEvery)
		conditions = append(conditions, fmt.Sprintf("payment_every = $%d", len(args)))
	}

	if filter.AvailableToDebtor {
		args = append(args, domain.StatusPending)
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}

	if filter.EndDateFrom != nil {
		args = append(args, timeToPgTimestamptz(*filter.EndDateFrom))
		conditions = append(conditions, fmt.Sprintf("end_date >= $%d", len(args)))
	}

	if filter.EndDateTo != nil {
		args = append(args, timeToPgTimestamptz(*filter.EndDateTo))
		conditions = append(conditions, fmt.Sprintf("end_date <= $%d", len(args)))
	}

	if filter.MinTerm > 0 {
		args = append(args, filter.MinTerm)
		conditions = append(conditions, fmt.Sprintf("term >= $%d", len(args)))
	}

	if filter.MinSuccessRate > 0 {
		args = append(args, filter.MinSuccessRate)
		conditions = append(conditions, fmt.Sprintf("success_rate >= $%d", len(args)))
	}

	if filter.MinStartBalance.IsPositive() {
		args = append(args, decimalToNumeric(filter.MinStartBalance))
		conditions = append(conditions, fmt.Sprintf("start_balance >= $%d", len(args)))
	}

	args = append(args, limit, offset)

	query := fmt.Sprintf(`
		SELECT %s
		FROM deals
		WHERE %s
		ORDER BY id DESC
		LIMIT $%d OFFSET $%d
	`, dealColumns, strings.Join(conditions, " AND "), len(args)-1, len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanDealRows(rows)
}

func scanDealRow(row pgx.Row) (*domain.Deal, error) {
	deal, err := scanDeal(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrDealNotFound
	}

	return deal, err
}

func scanDealRows(rows pgx.Rows) ([]*domain.Deal, error) {
	var deals []*domain.Deal
	for rows.Next() {
		deal, err := scanDeal(rows)
		if err != nil {
			return nil, err
		}
		deals = append(deals, deal)
	}

	return deals, rows.Err()
}

func scanDeal(row pgx.Row) (*domain.Deal, error) {
	var (
		deal          domain.Deal
		dateOpen      pgtype.Timestamptz
		becomeActive  pgtype.Timestamptz
		endDate       pgtype.Timestamptz
		lastSettledAt pgtype.Timestamptz
		startBalance  pgtype.Numeric
		percent       pgtype.Numeric
		fine          pgtype.Numeric
		recipientID   pgtype.Text
	)

	err := row.Scan(
		&deal.ID,
		&dateOpen,
		&becomeActive,
		&endDate,
		&lastSettledAt,
		&startBalance,
		&percent,
		&fine,
		&deal.SuccessRate,
		&deal.Term,
		&deal.PaymentEvery,
		&deal.Status,
		&deal.EmitterID,
		&recipientID,
		&deal.AllowEarlyPayment,
		&deal.AllowCapitalization,
	)
	if err != nil {
		return nil, err
	}

	deal.DateOpen = dateOpen.Time
	deal.DateBecomeActive = pgTimestamptzToTimePtr(becomeActive)
	deal.EndDate = pgTimestamptzToTimePtr(endDate)
	deal.LastSettledAt = pgTimestamptzToTimePtr(lastSettledAt)
	deal.StartBalance = numericToDecimal(startBalance)
	deal.Percent = numericToDecimal(percent)
	deal.Fine = numericToDecimal(fine)
	deal.RecipientID = recipientID.String

	return &deal, nil
}
