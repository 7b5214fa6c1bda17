package mocks

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/loanex/internal/domain"
	"github.com/iho/loanex/internal/usecase"
)

// MockDealRepository is a mock implementation of DealRepository.
type MockDealRepository struct {
	mu    sync.RWMutex
	deals map[string]*domain.Deal

	CreateFunc                  func(ctx context.Context, tx usecase.Transaction, deal *domain.Deal) error
	GetByIDFunc                 func(ctx context.Context, id string) (*domain.Deal, error)
	GetByIDForUpdateFunc        func(ctx context.Context, tx usecase.Transaction, id string) (*domain.Deal, error)
	UpdateFunc                  func(ctx context.Context, tx usecase.Transaction, deal *domain.Deal) error
	CountActiveForRecipientFunc func(ctx context.Context, tx usecase.Transaction, recipientID string) (int, error)
	ListDueFunc                 func(ctx context.Context, interval domain.PaymentInterval, endBefore *time.Time, settledBefore time.Time) ([]*domain.Deal, error)
	ListFunc                    func(ctx context.Context, filter usecase.DealFilter, limit, offset int) ([]*domain.Deal, error)
}

func NewMockDealRepository() *MockDealRepository {
	return &MockDealRepository{
		deals: make(map[string]*domain.Deal),
	}
}

func (m *MockDealRepository) Create(ctx context.Context, tx usecase.Transaction, deal *domain.Deal) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, tx, deal)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deals[deal.ID] = deal
	return nil
}

func (m *MockDealRepository) GetByID(ctx context.Context, id string) (*domain.Deal, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if d, ok := m.deals[id]; ok {
		return d, nil
	}
	return nil, domain.ErrDealNotFound
}

func (m *MockDealRepository) GetByIDForUpdate(ctx context.Context, tx usecase.Transaction, id string) (*domain.Deal, error) {
	if m.GetByIDForUpdateFunc != nil {
		return m.GetByIDForUpdateFunc(ctx, tx, id)
	}
	return m.GetByID(ctx, id)
}

func (m *MockDealRepository) Update(ctx context.Context, tx usecase.Transaction, deal *domain.Deal) error {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, tx, deal)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deals[deal.ID] = deal
	return nil
}

func (m *MockDealRepository) CountActiveForRecipient(ctx context.Context, tx usecase.Transaction, recipientID string) (int, error) {
	if m.CountActiveForRecipientFunc != nil {
		return m.CountActiveForRecipientFunc(ctx, tx, recipientID)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	count := 0
	for _, d := range m.deals {
		if d.Status == domain.StatusActive && d.RecipientID == recipientID {
			count++
		}
	}
	return count, nil
}

func (m *MockDealRepository) ListDue(ctx context.Context, interval domain.PaymentInterval, endBefore *time.Time, settledBefore time.Time) ([]*domain.Deal, error) {
	if m.ListDueFunc != nil {
		return m.ListDueFunc(ctx, interval, endBefore, settledBefore)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var due []*domain.Deal
	for _, d := range m.deals {
		if d.Status != domain.StatusActive || d.PaymentEvery != interval {
			continue
		}
		if d.LastSettledAt != nil && !d.LastSettledAt.Before(settledBefore) {
			continue
		}
		if endBefore != nil && (d.EndDate == nil || d.EndDate.After(*endBefore)) {
			continue
		}
		due = append(due, d)
	}
	sort.Slice(due, func(i, j int) bool { return due[i].ID < due[j].ID })
	return due, nil
}

func (m *MockDealRepository) List(ctx context.Context, filter usecase.DealFilter, limit, offset int) ([]*domain.Deal, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, filter, limit, offset)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var deals []*domain.Deal
	for _, d := range m.deals {
		if filter.EmitterID != "" && d.EmitterID != filter.EmitterID {
			continue
		}
		if filter.ExcludeEmitterID != "" && d.EmitterID == filter.ExcludeEmitterID {
			continue
		}
		if filter.RecipientID != "" && d.RecipientID != filter.RecipientID {
			continue
		}
		if filter.Status != "" && d.Status != filter.Status {
			continue
		}
		if filter.PaymentEvery != "" && d.PaymentEvery != filter.PaymentEvery {
			continue
		}
		if filter.AvailableToDebtor && d.Status != domain.StatusPending {
			continue
		}
		if filter.MinSuccessRate > 0 && d.SuccessRate < filter.MinSuccessRate {
			continue
		}
		deals = append(deals, d)
	}
	sort.Slice(deals, func(i, j int) bool { return deals[i].ID < deals[j].ID })
	return deals, nil
}

// MockBalanceLogRepository is an in-memory mock of BalanceLogRepository.
// Entries are stored per owner in append order, matching how real chains grow.
type MockBalanceLogRepository struct {
	mu     sync.RWMutex
	chains map[domain.LedgerOwner][]*domain.BalanceLog

	CreateFunc                func(ctx context.Context, tx usecase.Transaction, log *domain.BalanceLog) error
	LastForOwnerFunc          func(ctx context.Context, owner domain.LedgerOwner) (*domain.BalanceLog, error)
	LastForOwnerForUpdateFunc func(ctx context.Context, tx usecase.Transaction, owner domain.LedgerOwner) (*domain.BalanceLog, error)
	ListFunc                  func(ctx context.Context, filter usecase.LogFilter, limit, offset int) ([]*domain.BalanceLog, error)
}

func NewMockBalanceLogRepository() *MockBalanceLogRepository {
	return &MockBalanceLogRepository{
		chains: make(map[domain.LedgerOwner][]*domain.BalanceLog),
	}
}

func (m *MockBalanceLogRepository) Create(ctx context.Context, tx usecase.Transaction, log *domain.BalanceLog) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, tx, log)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	owner := log.Owner()
	m.chains[owner] = append(m.chains[owner], log)
	return nil
}

func (m *MockBalanceLogRepository) LastForOwner(ctx context.Context, owner domain.LedgerOwner) (*domain.BalanceLog, error) {
	if m.LastForOwnerFunc != nil {
		return m.LastForOwnerFunc(ctx, owner)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	chain := m.chains[owner]
	if len(chain) == 0 {
		return nil, nil
	}
	return chain[len(chain)-1], nil
}

func (m *MockBalanceLogRepository) LastForOwnerForUpdate(ctx context.Context, tx usecase.Transaction, owner domain.LedgerOwner) (*domain.BalanceLog, error) {
	if m.LastForOwnerForUpdateFunc != nil {
		return m.LastForOwnerForUpdateFunc(ctx, tx, owner)
	}
	return m.LastForOwner(ctx, owner)
}

func (m *MockBalanceLogRepository) List(ctx context.Context, filter usecase.LogFilter, limit, offset int) ([]*domain.BalanceLog, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, filter, limit, offset)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var logs []*domain.BalanceLog
	for _, chain := range m.chains {
		for _, log := range chain {
			if filter.AccountID != "" && log.AccountID != filter.AccountID {
				continue
			}
			if filter.DealID != "" && log.DealID != filter.DealID {
				continue
			}
			logs = append(logs, log)
		}
	}
	sort.Slice(logs, func(i, j int) bool { return logs[i].ID < logs[j].ID })
	return logs, nil
}

func (m *MockBalanceLogRepository) ListForOwner(ctx context.Context, owner domain.LedgerOwner) ([]*domain.BalanceLog, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]*domain.BalanceLog(nil), m.chains[owner]...), nil
}

func (m *MockBalanceLogRepository) ListOwners(ctx context.Context) ([]domain.LedgerOwner, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	owners := make([]domain.LedgerOwner, 0, len(m.chains))
	for owner := range m.chains {
		owners = append(owners, owner)
	}
	sort.Slice(owners, func(i, j int) bool {
		if owners[i].Kind != owners[j].Kind {
			return owners[i].Kind < owners[j].Kind
		}
		return owners[i].ID < owners[j].ID
	})
	return owners, nil
}

func (m *MockBalanceLogRepository) SumPositiveForAccount(ctx context.Context, accountID string) (decimal.Decimal, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sum := decimal.Zero
	for _, log := range m.chains[domain.AccountOwner(accountID)] {
		if log.AmountChanged.IsPositive() {
			sum = sum.Add(log.AmountChanged)
		}
	}
	return sum, nil
}

func (m *MockBalanceLogRepository) SumByEventForAccount(ctx context.Context, accountID string, event domain.LedgerEvent) (decimal.Decimal, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sum := decimal.Zero
	for _, log := range m.chains[domain.AccountOwner(accountID)] {
		if log.Event == event {
			sum = sum.Add(log.AmountChanged)
		}
	}
	return sum, nil
}

// MockNotificationRepository is a mock implementation of NotificationRepository.
type MockNotificationRepository struct {
	mu            sync.RWMutex
	notifications []*domain.Notification

	CreateFunc         func(ctx context.Context, notification *domain.Notification) error
	CreateTxFunc       func(ctx context.Context, tx usecase.Transaction, notification *domain.Notification) error
	GetUndeliveredFunc func(ctx context.Context, limit int) ([]*domain.Notification, error)
}

func NewMockNotificationRepository() *MockNotificationRepository {
	return &MockNotificationRepository{}
}

func (m *MockNotificationRepository) Create(ctx context.Context, notification *domain.Notification) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, notification)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notifications = append(m.notifications, notification)
	return nil
}

func (m *MockNotificationRepository) CreateTx(ctx context.Context, tx usecase.Transaction, notification *domain.Notification) error {
	if m.CreateTxFunc != nil {
		return m.CreateTxFunc(ctx, tx, notification)
	}
	return m.Create(ctx, notification)
}

func (m *MockNotificationRepository) GetUndelivered(ctx context.Context, limit int) ([]*domain.Notification, error) {
	if m.GetUndeliveredFunc != nil {
		return m.GetUndeliveredFunc(ctx, limit)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*domain.Notification
	for _, n := range m.notifications {
		if n.DeliveredAt == nil {
			out = append(out, n)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (m *MockNotificationRepository) MarkDelivered(ctx context.Context, id string, deliveredAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, n := range m.notifications {
		if n.ID == id {
			at := deliveredAt
			n.DeliveredAt = &at
			return nil
		}
	}
	return nil
}

func (m *MockNotificationRepository) ListByRecipient(ctx context.Context, recipientID string, limit, offset int) ([]*domain.Notification, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*domain.Notification
	for _, n := range m.notifications {
		if n.RecipientID == recipientID {
			out = append(out, n)
		}
	}
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// All returns every stored notification, for assertions.
func (m *MockNotificationRepository) All() []*domain.Notification {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]*domain.Notification(nil), m.notifications...)
}

// MockUserRepository is a mock implementation of UserRepository.
type MockUserRepository struct {
	mu    sync.RWMutex
	users map[string]*domain.User

	GetByIDFunc func(ctx context.Context, id string) (*domain.User, error)
}

func NewMockUserRepository() *MockUserRepository {
	return &MockUserRepository{
		users: make(map[string]*domain.User),
	}
}

func (m *MockUserRepository) Add(user *domain.User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[user.ID] = user
}

func (m *MockUserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if u, ok := m.users[id]; ok {
		return u, nil
	}
	return nil, domain.ErrUserNotFound
}

// MockTransactionManager is a mock implementation of TransactionManager.
type MockTransactionManager struct {
	BeginFunc             func(ctx context.Context) (usecase.Transaction, error)
	BeginSerializableFunc func(ctx context.Context) (usecase.Transaction, error)
}

func NewMockTransactionManager() *MockTransactionManager {
	return &MockTransactionManager{}
}

func (m *MockTransactionManager) Begin(ctx context.Context) (usecase.Transaction, error) {
	if m.BeginFunc != nil {
		return m.BeginFunc(ctx)
	}
	return &MockTransaction{}, nil
}

func (m *MockTransactionManager) BeginSerializable(ctx context.Context) (usecase.Transaction, error) {
	if m.BeginSerializableFunc != nil {
		return m.BeginSerializableFunc(ctx)
	}
	return &MockTransaction{}, nil
}

// MockTransaction is a mock implementation of Transaction.
type MockTransaction struct {
	CommitFunc   func(ctx context.Context) error
	RollbackFunc func(ctx context.Context) error
}

func (m *MockTransaction) Commit(ctx context.Context) error {
	if m.CommitFunc != nil {
		return m.CommitFunc(ctx)
	}
	return nil
}

func (m *MockTransaction) Rollback(ctx context.Context) error {
	if m.RollbackFunc != nil {
		return m.RollbackFunc(ctx)
	}
	return nil
}

// MockRetrier is a mock implementation of Retrier that runs the operation once.
type MockRetrier struct {
	RetryFunc func(ctx context.Context, operation func() error) error
}

func NewMockRetrier() *MockRetrier {
	return &MockRetrier{}
}

func (m *MockRetrier) Retry(ctx context.Context, operation func() error) error {
	if m.RetryFunc != nil {
		return m.RetryFunc(ctx, operation)
	}
	return operation()
}

// MockIDGenerator is a mock implementation of IDGenerator.
type MockIDGenerator struct {
	GenerateFunc func() string
	counter      int
	mu           sync.Mutex
}

func NewMockIDGenerator() *MockIDGenerator {
	return &MockIDGenerator{}
}

func (m *MockIDGenerator) Generate() string {
	if m.GenerateFunc != nil {
		return m.GenerateFunc()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counter++
	return "mock-id-" + padCounter(m.counter)
}

// padCounter keeps generated IDs lexically sortable in insertion order.
func padCounter(n int) string {
	digits := "0123456789"
	out := make([]byte, 6)
	for i := 5; i >= 0; i-- {
		out[i] = digits[n%10]
		n /= 10
	}
	return string(out)
}

// MockCache is a mock implementation of Cache.
type MockCache struct {
	mu   sync.RWMutex
	data map[string][]byte

	GetFunc    func(ctx context.Context, key string) ([]byte, error)
	SetFunc    func(ctx context.Context, key string, value []byte, ttl time.Duration) error
	DeleteFunc func(ctx context.Context, key string) error
}

func NewMockCache() *MockCache {
	return &MockCache{
		data: make(map[string][]byte),
	}
}

func (m *MockCache) Get(ctx context.Context, key string) ([]byte, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, key)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.data[key], nil
}

func (m *MockCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if m.SetFunc != nil {
		return m.SetFunc(ctx, key, value, ttl)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *MockCache) Delete(ctx context.Context, key string) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, key)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

// MockRunLocker is a mock implementation of RunLocker.
type MockRunLocker struct {
	mu    sync.Mutex
	locks map[string]bool

	AcquireFunc func(ctx context.Context, key string, ttl time.Duration) (bool, error)
}

func NewMockRunLocker() *MockRunLocker {
	return &MockRunLocker{
		locks: make(map[string]bool),
	}
}

func (m *MockRunLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	if m.AcquireFunc != nil {
		return m.AcquireFunc(ctx, key, ttl)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.locks[key] {
		return false, nil
	}
	m.locks[key] = true
	return true, nil
}

// Release frees a lock, letting tests simulate a new period.
func (m *MockRunLocker) Release(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.locks, key)
}

// MockIdempotencyStore is a mock implementation of IdempotencyStore.
type MockIdempotencyStore struct {
	mu   sync.RWMutex
	data map[string][]byte

	CheckAndSetFunc func(ctx context.Context, key string, response []byte, ttl time.Duration) (bool, []byte, error)
	UpdateFunc      func(ctx context.Context, key string, response []byte, ttl time.Duration) error
}

func NewMockIdempotencyStore() *MockIdempotencyStore {
	return &MockIdempotencyStore{
		data: make(map[string][]byte),
	}
}

func (m *MockIdempotencyStore) CheckAndSet(ctx context.Context, key string, response []byte, ttl time.Duration) (bool, []byte, error) {
	if m.CheckAndSetFunc != nil {
		return m.CheckAndSetFunc(ctx, key, response, ttl)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.data[key]; ok {
		return true, existing, nil
	}
	if response != nil {
		m.data[key] = response
	} else {
		m.data[key] = []byte("processing")
	}
	return false, nil, nil
}

func (m *MockIdempotencyStore) Update(ctx context.Context, key string, response []byte, ttl time.Duration) error {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, key, response, ttl)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = response
	return nil
}
