package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/iho/loanex/internal/adapter/http/handler"
	apimiddleware "github.com/iho/loanex/internal/adapter/http/middleware"
	"github.com/iho/loanex/internal/domain"
	"github.com/iho/loanex/internal/usecase"
)

func TestNewRouter_HealthEndpointAvailable(t *testing.T) {
	router := NewRouter(newRouterConfig())

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected /health to return 200, got %d", rec.Code)
	}
}

func TestNewRouter_RateLimiterBlocksExcessRequests(t *testing.T) {
	rl := apimiddleware.NewRateLimiter(1, 1)
	router := NewRouter(newRouterConfig(func(cfg *RouterConfig) {
		cfg.RateLimiter = rl
	}))

	req1 := httptest.NewRequest(http.MethodGet, "/api/v1/deals/", nil)
	req1.RemoteAddr = "1.2.3.4:1234"
	rec1 := httptest.NewRecorder()
	router.ServeHTTP(rec1, req1)
	if rec1.Code != http.StatusOK {
		t.Fatalf("expected first request to succeed, got %d", rec1.Code)
	}

	req2 := httptest.NewRequest(http.MethodGet, "/api/v1/deals/", nil)
	req2.RemoteAddr = "1.2.3.4:1234"
	rec2 := httptest.NewRecorder()
	router.ServeHTTP(rec2, req2)
	if rec2.Code != http.StatusTooManyRequests {
		t.Fatalf("expected second request to be throttled, got %d", rec2.Code)
	}
}

func TestNewRouter_IdempotencyMiddlewareInvokesStore(t *testing.T) {
	store := &stubIdempotencyStore{}
	router := NewRouter(newRouterConfig(func(cfg *RouterConfig) {
		cfg.IdempotencyStore = store
	}))

	body := `{"start_balance":"1000","percent":"0.05","term":10,"payment_every":"DAY"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/deals/", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(apimiddleware.IdempotencyKeyHeader, "key-123")
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if !store.checkCalled {
		t.Fatalf("expected idempotency store to be used")
	}
}

func TestNewRouter_AdminRoutesRejectNonAdmins(t *testing.T) {
	router := NewRouter(newRouterConfig(func(cfg *RouterConfig) {
		cfg.AuthMiddleware = apimiddleware.StaticUser(&domain.User{ID: "debtor-1", Role: domain.RoleDebtor, Active: true})
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/settlements/DAY/run", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for non-admin settlement trigger, got %d", rec.Code)
	}
}

func TestNewRouter_RegistersKeyRoutes(t *testing.T) {
	router := NewRouter(newRouterConfig())

	chiRoutes, ok := router.(chi.Router)
	if !ok {
		t.Fatal("router does not implement chi.Routes")
	}

	seen := map[string]bool{}
	if err := chi.Walk(chiRoutes, func(method string, route string, _ http.Handler, _ ...func(http.Handler) http.Handler) error {
		seen[method+" "+route] = true
		return nil
	}); err != nil {
		t.Fatalf("walk failed: %v", err)
	}

	expected := []string{
		"GET /health",
		"GET /ready",
		"POST /api/v1/deals/",
		"GET /api/v1/deals/",
		"GET /api/v1/deals/{id}",
		"POST /api/v1/deals/{id}/accept",
		"POST /api/v1/deals/{id}/close",
		"GET /api/v1/balance-logs/",
		"POST /api/v1/balance-logs/",
		"GET /api/v1/accounts/{id}/stats",
		"GET /api/v1/notifications",
		"POST /api/v1/settlements/{interval}/run",
		"POST /api/v1/ledger/verify",
	}

	for _, route := range expected {
		if !seen[route] {
			t.Fatalf("expected route %s to be registered", route)
		}
	}
}

func newRouterConfig(opts ...func(*RouterConfig)) RouterConfig {
	cfg := RouterConfig{
		HealthHandler:       &handler.HealthHandler{},
		DealHandler:         handler.NewDealHandler(&stubDealService{}),
		LedgerHandler:       handler.NewLedgerHandler(&stubLedgerService{}),
		NotificationHandler: handler.NewNotificationHandler(&stubNotificationService{}),
		SettlementHandler:   handler.NewSettlementHandler(&stubSettlementService{}),
		AuthMiddleware:      apimiddleware.StaticUser(&domain.User{ID: "admin-1", Role: domain.RoleAdmin, Active: true}),
	}

	for _, opt := range opts {
		opt(&cfg)
	}

	return cfg
}

type stubDealService struct{}

func (stubDealService) CreateDeal(ctx context.Context, actor *domain.User, input usecase.CreateDealInput) (*domain.Deal, error) {
	return &domain.Deal{ID: "deal-1", EmitterID: actor.ID}, nil
}

func (stubDealService) AcceptDeal(ctx context.Context, actor *domain.User, dealID string) (*domain.Deal, error) {
	return &domain.Deal{ID: dealID}, nil
}

func (stubDealService) CloseDeal(ctx context.Context, actor *domain.User, dealID string) (*domain.Deal, error) {
	return &domain.Deal{ID: dealID}, nil
}

func (stubDealService) GetDeal(ctx context.Context, id string) (*domain.Deal, error) {
	return &domain.Deal{ID: id}, nil
}

func (stubDealService) ListDeals(ctx context.Context, actor *domain.User, input usecase.ListDealsInput) ([]*domain.Deal, error) {
	return []*domain.Deal{}, nil
}

type stubLedgerService struct{}

func (stubLedgerService) ListLogs(ctx context.Context, actor *domain.User, input usecase.ListLogsInput) ([]*domain.BalanceLog, error) {
	return []*domain.BalanceLog{}, nil
}

func (stubLedgerService) AdminAppend(ctx context.Context, actor *domain.User, input usecase.AdminAppendInput) (*domain.BalanceLog, error) {
	return &domain.BalanceLog{ID: "log-1"}, nil
}

func (stubLedgerService) AccountStats(ctx context.Context, actor *domain.User, accountID string) (*domain.AccountStats, error) {
	return &domain.AccountStats{AccountID: accountID}, nil
}

func (stubLedgerService) VerifyAll(ctx context.Context, actor *domain.User) (*usecase.VerifyAllReport, error) {
	return &usecase.VerifyAllReport{}, nil
}

type stubNotificationService struct{}

func (stubNotificationService) ListNotifications(ctx context.Context, actor *domain.User, input usecase.ListNotificationsInput) ([]*domain.Notification, error) {
	return []*domain.Notification{}, nil
}

type stubSettlementService struct{}

func (stubSettlementService) RunDaily(ctx context.Context) (*usecase.RunReport, error) {
	return &usecase.RunReport{Interval: domain.IntervalDay}, nil
}

func (stubSettlementService) RunMonthly(ctx context.Context) (*usecase.RunReport, error) {
	return &usecase.RunReport{Interval: domain.IntervalMonth}, nil
}

func (stubSettlementService) RunOneTime(ctx context.Context) (*usecase.RunReport, error) {
	return &usecase.RunReport{Interval: domain.IntervalOneTime}, nil
}

type stubIdempotencyStore struct {
	checkCalled bool
}

func (s *stubIdempotencyStore) CheckAndSet(ctx context.Context, key string, response []byte, ttl time.Duration) (bool, []byte, error) {
	s.checkCalled = true
	return false, nil, nil
}

func (s *stubIdempotencyStore) Update(ctx context.Context, key string, response []byte, ttl time.Duration) error {
	return nil
}
