package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/iho/loanex/internal/domain"
	"github.com/iho/loanex/internal/usecase"
)

const notificationColumns = "id, date, event, recipient_id, deal_id, delivered_at"

// NotificationRepository implements usecase.NotificationRepository.
type NotificationRepository struct {
	pool *pgxpool.Pool
}

// NewNotificationRepository creates a new NotificationRepository.
func NewNotificationRepository(pool *pgxpool.Pool) *NotificationRepository {
	return &NotificationRepository{pool: pool}
}

// Create inserts a notification outside any transaction.
func (r *NotificationRepository) Create(ctx context.Context, notification *domain.Notification) error {
	return r.create(ctx, r.pool, notification)
}

// CreateTx inserts a notification inside tx, so it commits or rolls back
// together with the deal change that caused it.
func (r *NotificationRepository) CreateTx(ctx context.Context, tx usecase.Transaction, notification *domain.Notification) error {
	return r.create(ctx, tx.(*Tx).PgxTx(), notification)
}

type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

func (r *NotificationRepository) create(ctx context.Context, db execer, notification *domain.Notification) error {
	query := `
		INSERT INTO notifications (id, date, event, recipient_id, deal_id, delivered_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := db.Exec(ctx, query,
		notification.ID,
		timeToPgTimestamptz(notification.Date),
		notification.Event,
		notification.RecipientID,
		notification.DealID,
		timePtrToPgTimestamptz(notification.DeliveredAt),
	)

	return err
}

// GetUndelivered returns notifications awaiting delivery, oldest first.
func (r *NotificationRepository) GetUndelivered(ctx context.Context, limit int) ([]*domain.Notification, error) {
	query := `
		SELECT ` + notificationColumns + `
		FROM notifications
		WHERE delivered_at IS NULL
		ORDER BY id ASC
		LIMIT $1
	`

	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanNotifications(rows)
}

// MarkDelivered stamps a notification as delivered.
func (r *NotificationRepository) MarkDelivered(ctx context.Context, id string, deliveredAt time.Time) error {
	query := `UPDATE notifications SET delivered_at = $2 WHERE id = $1 AND delivered_at IS NULL`

	_, err := r.pool.Exec(ctx, query, id, timeToPgTimestamptz(deliveredAt))

	return err
}

// ListByRecipient lists a user's notifications, newest first.
func (r *NotificationRepository) ListByRecipient(ctx context.Context, recipientID string, limit, offset int) ([]*domain.Notification, error) {
	query := `
		SELECT ` + notificationColumns + `
		FROM notifications
		WHERE recipient_id = $1
		ORDER BY id DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.pool.Query(ctx, query, recipientID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanNotifications(rows)
}

func scanNotifications(rows pgx.Rows) ([]*domain.Notification, error) {
	var notifications []*domain.Notification
	for rows.Next() {
		var (
			n           domain.Notification
			date        pgtype.Timestamptz
			deliveredAt pgtype.Timestamptz
		)

		if err := rows.Scan(&n.ID, &date, &n.Event, &n.RecipientID, &n.DealID, &deliveredAt); err != nil {
			return nil, err
		}

		n.Date = date.Time
		n.DeliveredAt = pgTimestamptzToTimePtr(deliveredAt)
		notifications = append(notifications, &n)
	}

	return notifications, rows.Err()
}
