package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/iho/loanex/internal/domain"
	"github.com/iho/loanex/internal/usecase"
)

const balanceLogColumns = "id, date, old_value, amount_changed, event, account_id, deal_id"

// BalanceLogRepository implements usecase.BalanceLogRepository.
type BalanceLogRepository struct {
	pool *pgxpool.Pool
}

// NewBalanceLogRepository creates a new BalanceLogRepository.
func NewBalanceLogRepository(pool *pgxpool.Pool) *BalanceLogRepository {
	return &BalanceLogRepository{pool: pool}
}

// Create inserts a new balance log entry inside tx.
func (r *BalanceLogRepository) Create(ctx context.Context, tx usecase.Transaction, log *domain.BalanceLog) error {
	pgxTx := tx.(*Tx).PgxTx()

	query := `
		INSERT INTO balance_logs (id, date, old_value, amount_changed, event, account_id, deal_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := pgxTx.Exec(ctx, query,
		log.ID,
		timeToPgTimestamptz(log.Date),
		decimalToNumeric(log.OldValue),
		decimalToNumeric(log.AmountChanged),
		log.Event,
		textToPg(log.AccountID),
		textToPg(log.DealID),
	)

	return err
}

// LastForOwner returns the owner's tail entry, or nil when the ledger is empty.
func (r *BalanceLogRepository) LastForOwner(ctx context.Context, owner domain.LedgerOwner) (*domain.BalanceLog, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM balance_logs
		WHERE %s = $1
		ORDER BY id DESC
		LIMIT 1
	`, balanceLogColumns, ownerColumn(owner.Kind))

	return r.scanOne(r.pool.QueryRow(ctx, query, owner.ID))
}

// LastForOwnerForUpdate locks and returns the owner's tail entry inside tx.
func (r *BalanceLogRepository) LastForOwnerForUpdate(ctx context.Context, tx usecase.Transaction, owner domain.LedgerOwner) (*domain.BalanceLog, error) {
	pgxTx := tx.(*Tx).PgxTx()

	query := fmt.Sprintf(`
		SELECT %s
		FROM balance_logs
		WHERE %s = $1
		ORDER BY id DESC
		LIMIT 1
		FOR UPDATE
	`, balanceLogColumns, ownerColumn(owner.Kind))

	return r.scanOne(pgxTx.QueryRow(ctx, query, owner.ID))
}

// List retrieves entries matching the filter, newest first.
func (r *BalanceLogRepository) List(ctx context.Context, filter usecase.LogFilter, limit, offset int) ([]*domain.BalanceLog, error) {
	conditions := []string{"1 = 1"}
	args := []any{}

	if filter.AccountID != "" {
		args = append(args, filter.AccountID)
		conditions = append(conditions, fmt.Sprintf("account_id = $%d", len(args)))
	}

	if filter.DealID != "" {
		args = append(args, filter.DealID)
		conditions = append(conditions, fmt.Sprintf("deal_id = $%d", len(args)))
	}

	if filter.From != nil {
		args = append(args, timeToPgTimestamptz(*filter.From))
		conditions = append(conditions, fmt.Sprintf("date >= $%d", len(args)))
	}

	if filter.To != nil {
		args = append(args, timeToPgTimestamptz(*filter.To))
		conditions = append(conditions, fmt.Sprintf("date <= $%d", len(args)))
	}

	args = append(args, limit, offset)

	query := fmt.Sprintf(`
		SELECT %s
		FROM balance_logs
		WHERE %s
		ORDER BY id DESC
		LIMIT $%d OFFSET $%d
	`, balanceLogColumns, strings.Join(conditions, " AND "), len(args)-1, len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return r.scanAll(rows)
}

// ListForOwner returns the owner's full chain in append order.
func (r *BalanceLogRepository) ListForOwner(ctx context.Context, owner domain.LedgerOwner) ([]*domain.BalanceLog, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM balance_logs
		WHERE %s = $1
		ORDER BY id ASC
	`, balanceLogColumns, ownerColumn(owner.Kind))

	rows, err := r.pool.Query(ctx, query, owner.ID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return r.scanAll(rows)
}

// ListOwners returns every distinct ledger owner with at least one entry.
func (r *BalanceLogRepository) ListOwners(ctx context.Context) ([]domain.LedgerOwner, error) {
	query := `
		SELECT 'account' AS kind, account_id AS owner_id FROM balance_logs WHERE account_id IS NOT NULL
		UNION
		SELECT 'deal' AS kind, deal_id AS owner_id FROM balance_logs WHERE deal_id IS NOT NULL
		ORDER BY kind, owner_id
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var owners []domain.LedgerOwner
	for rows.Next() {
		var owner domain.LedgerOwner
		if err := rows.Scan(&owner.Kind, &owner.ID); err != nil {
			return nil, err
		}
		owners = append(owners, owner)
	}

	return owners, rows.Err()
}

// SumPositiveForAccount sums all positive entries on a user's ledger.
func (r *BalanceLogRepository) SumPositiveForAccount(ctx context.Context, accountID string) (decimal.Decimal, error) {
	query := `
		SELECT COALESCE(SUM(amount_changed), 0)
		FROM balance_logs
		WHERE account_id = $1 AND amount_changed > 0
	`

	var sum pgtype.Numeric
	if err := r.pool.QueryRow(ctx, query, accountID).Scan(&sum); err != nil {
		return decimal.Zero, err
	}

	return numericToDecimal(sum), nil
}

// SumByEventForAccount sums a user's entries of one event type.
func (r *BalanceLogRepository) SumByEventForAccount(ctx context.Context, accountID string, event domain.LedgerEvent) (decimal.Decimal, error) {
	query := `
		SELECT COALESCE(SUM(amount_changed), 0)
		FROM balance_logs
		WHERE account_id = $1 AND event = $2
	`

	var sum pgtype.Numeric
	if err := r.pool.QueryRow(ctx, query, accountID, event).Scan(&sum); err != nil {
		return decimal.Zero, err
	}

	return numericToDecimal(sum), nil
}

func (r *BalanceLogRepository) scanOne(row pgx.Row) (*domain.BalanceLog, error) {
	log, err := scanBalanceLog(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}

	return log, err
}

func (r *BalanceLogRepository) scanAll(rows pgx.Rows) ([]*domain.BalanceLog, error) {
	var logs []*domain.BalanceLog
	for rows.Next() {
		log, err := scanBalanceLog(rows)
		if err != nil {
			return nil, err
		}
		logs = append(logs, log)
	}

	return logs, rows.Err()
}

func scanBalanceLog(row pgx.Row) (*domain.BalanceLog, error) {
	var (
		log       domain.BalanceLog
		date      pgtype.Timestamptz
		oldValue  pgtype.Numeric
		amount    pgtype.Numeric
		accountID pgtype.Text
		dealID    pgtype.Text
	)

	err := row.Scan(&log.ID, &date, &oldValue, &amount, &log.Event, &accountID, &dealID)
	if err != nil {
		return nil, err
	}

	log.Date = date.Time
	log.OldValue = numericToDecimal(oldValue)
	log.AmountChanged = numericToDecimal(amount)
	log.AccountID = accountID.String
	log.DealID = dealID.String

	return &log, nil
}

func ownerColumn(kind domain.OwnerKind) string {
	if kind == domain.OwnerDeal {
		return "deal_id"
	}

	return "account_id"
}
