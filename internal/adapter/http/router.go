package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/iho/loanex/internal/adapter/http/handler"
	"github.com/iho/loanex/internal/adapter/http/middleware"
	"github.com/iho/loanex/internal/domain"
	"github.com/iho/loanex/internal/usecase"
)

// RouterConfig holds dependencies for the router.
type RouterConfig struct {
	DealHandler         *handler.DealHandler
	LedgerHandler       *handler.LedgerHandler
	NotificationHandler *handler.NotificationHandler
	SettlementHandler   *handler.SettlementHandler
	HealthHandler       *handler.HealthHandler
	IdempotencyStore    usecase.IdempotencyStore
	// AuthMiddleware resolves the calling user; use middleware.AuthMiddleware
	// in production or middleware.StaticUser when auth is disabled.
	AuthMiddleware func(http.Handler) http.Handler
	RateLimiter    *middleware.RateLimiter
	RequestLogger  *middleware.LoggingMiddleware
}

// NewRouter creates a new HTTP router.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Recovery)
	r.Use(middleware.Metrics)

	if cfg.RequestLogger != nil {
		r.Use(cfg.RequestLogger.Wrap)
	}

	// Health endpoints
	r.Get("/health", cfg.HealthHandler.Liveness)
	r.Get("/ready", cfg.HealthHandler.Readiness)
	r.Handle("/metrics", promhttp.Handler())

	// API v1
	r.Route("/api/v1", func(r chi.Router) {
		if cfg.RateLimiter != nil {
			r.Use(cfg.RateLimiter.Limit)
		}

		if cfg.AuthMiddleware != nil {
			r.Use(cfg.AuthMiddleware)
		}

		// Idempotency middleware for mutating requests
		if cfg.IdempotencyStore != nil {
			idempotencyMiddleware := middleware.NewIdempotencyMiddleware(cfg.IdempotencyStore)
			r.Use(idempotencyMiddleware.Wrap)
		}

		// Deals
		r.Route("/deals", func(r chi.Router) {
			r.Post("/", cfg.DealHandler.Create)
			r.Get("/", cfg.DealHandler.List)
			r.Get("/{id}", cfg.DealHandler.Get)
			r.Post("/{id}/accept", cfg.DealHandler.Accept)
			r.Post("/{id}/close", cfg.DealHandler.Close)
		})

		// Balance logs
		r.Route("/balance-logs", func(r chi.Router) {
			r.Get("/", cfg.LedgerHandler.List)
			r.With(middleware.RequireRole(domain.RoleAdmin)).
				Post("/", cfg.LedgerHandler.AdminAppend)
		})

		// Accounts
		r.Get("/accounts/{id}/stats", cfg.LedgerHandler.AccountStats)

		// Notifications
		r.Get("/notifications", cfg.NotificationHandler.List)

		// Admin operations
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireRole(domain.RoleAdmin, domain.RoleSystem))
			r.Post("/settlements/{interval}/run", cfg.SettlementHandler.Run)
			r.Post("/ledger/verify", cfg.LedgerHandler.Verify)
		})
	})

	return r
}
