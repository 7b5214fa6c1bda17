package usecase

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/loanex/internal/domain"
)

// DealFilter narrows deal listings.
type DealFilter struct {
	EmitterID         string
	ExcludeEmitterID  string
	RecipientID       string
	Status            domain.DealStatus
	PaymentEvery      domain.PaymentInterval
	EndDateFrom       *time.Time
	EndDateTo         *time.Time
	MinTerm           int
	MinSuccessRate    int
	MinStartBalance   decimal.Decimal
	AvailableToDebtor bool
}

// LogFilter narrows balance log listings.
type LogFilter struct {
	AccountID string
	DealID    string
	From      *time.Time
	To        *time.Time
}

// DealRepository defines data access for deals.
type DealRepository interface {
	Create(ctx context.Context, tx Transaction, deal *domain.Deal) error
	GetByID(ctx context.Context, id string) (*domain.Deal, error)
	GetByIDForUpdate(ctx context.Context, tx Transaction, id string) (*domain.Deal, error)
	Update(ctx context.Context, tx Transaction, deal *domain.Deal) error
	CountActiveForRecipient(ctx context.Context, tx Transaction, recipientID string) (int, error)
	// ListDue returns active deals of the given interval not yet settled in the
	// current period. endBefore, when set, additionally filters on end date.
	ListDue(ctx context.Context, interval domain.PaymentInterval, endBefore *time.Time, settledBefore time.Time) ([]*domain.Deal, error)
	List(ctx context.Context, filter DealFilter, limit, offset int) ([]*domain.Deal, error)
}

// BalanceLogRepository defines data access for balance log entries.
type BalanceLogRepository interface {
	Create(ctx context.Context, tx Transaction, log *domain.BalanceLog) error
	// LastForOwner returns the owner's tail entry, or (nil, nil) when the
	// ledger has no entries yet.
	LastForOwner(ctx context.Context, owner domain.LedgerOwner) (*domain.BalanceLog, error)
	// LastForOwnerForUpdate locks the owner's tail entry for the duration of tx.
	LastForOwnerForUpdate(ctx context.Context, tx Transaction, owner domain.LedgerOwner) (*domain.BalanceLog, error)
	List(ctx context.Context, filter LogFilter, limit, offset int) ([]*domain.BalanceLog, error)
	ListForOwner(ctx context.Context, owner domain.LedgerOwner) ([]*domain.BalanceLog, error)
	ListOwners(ctx context.Context) ([]domain.LedgerOwner, error)
	SumPositiveForAccount(ctx context.Context, accountID string) (decimal.Decimal, error)
	SumByEventForAccount(ctx context.Context, accountID string, event domain.LedgerEvent) (decimal.Decimal, error)
}

// NotificationRepository defines data access for notifications.
type NotificationRepository interface {
	Create(ctx context.Context, notification *domain.Notification) error
	CreateTx(ctx context.Context, tx Transaction, notification *domain.Notification) error
	GetUndelivered(ctx context.Context, limit int) ([]*domain.Notification, error)
	MarkDelivered(ctx context.Context, id string, deliveredAt time.Time) error
	ListByRecipient(ctx context.Context, recipientID string, limit, offset int) ([]*domain.Notification, error)
}

// UserRepository defines data access for users.
type UserRepository interface {
	GetByID(ctx context.Context, id string) (*domain.User, error)
}

// Transaction represents a database transaction.
type Transaction interface {
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// TransactionManager handles transaction lifecycle.
type TransactionManager interface {
	Begin(ctx context.Context) (Transaction, error)
	// BeginSerializable starts a transaction at serializable isolation.
	// Callers must pair it with a Retrier to absorb serialization failures.
	BeginSerializable(ctx context.Context) (Transaction, error)
}

// Retrier retries an operation on transient database errors.
type Retrier interface {
	Retry(ctx context.Context, operation func() error) error
}

// IDGenerator generates unique IDs.
type IDGenerator interface {
	Generate() string
}

// Cache defines caching operations.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// IdempotencyStore handles idempotency key storage.
type IdempotencyStore interface {
	// CheckAndSet atomically checks if key exists, sets if not.
	// Returns (exists, existingValue, error).
	CheckAndSet(ctx context.Context, key string, response []byte, ttl time.Duration) (bool, []byte, error)
	// Update updates an existing key with the final response.
	Update(ctx context.Context, key string, response []byte, ttl time.Duration) error
}

// RunLocker guards scheduled runs against concurrent execution across
// instances. Acquire returns false when another holder owns the lock.
type RunLocker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error)
}
