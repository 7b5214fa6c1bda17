package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/iho/loanex/internal/adapter/http/dto"
	"github.com/iho/loanex/internal/domain"
	"github.com/iho/loanex/internal/usecase"
)

// DealService is the deal lifecycle surface the handler needs.
type DealService interface {
	CreateDeal(ctx context.Context, actor *domain.User, input usecase.CreateDealInput) (*domain.Deal, error)
	AcceptDeal(ctx context.Context, actor *domain.User, dealID string) (*domain.Deal, error)
	CloseDeal(ctx context.Context, actor *domain.User, dealID string) (*domain.Deal, error)
	GetDeal(ctx context.Context, id string) (*domain.Deal, error)
	ListDeals(ctx context.Context, actor *domain.User, input usecase.ListDealsInput) ([]*domain.Deal, error)
}

// DealHandler handles deal-related HTTP requests.
type DealHandler struct {
	dealUC DealService
}

// NewDealHandler creates a new DealHandler.
func NewDealHandler(dealUC DealService) *DealHandler {
	return &DealHandler{dealUC: dealUC}
}

// Create proposes a new deal.
func (h *DealHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentUser(w, r)
	if !ok {
		return
	}

	var req dto.CreateDealRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	deal, err := h.dealUC.CreateDeal(r.Context(), actor, req.ToUseCaseInput())
	if err != nil {
		status := mapDomainError(err)
		writeError(w, status, "failed to create deal", err.Error())

		return
	}

	writeJSON(w, http.StatusCreated, dto.DealFromDomain(deal))
}

// Accept accepts a pending deal as the calling debtor.
func (h *DealHandler) Accept(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentUser(w, r)
	if !ok {
		return
	}

	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing deal ID", "")
		return
	}

	deal, err := h.dealUC.AcceptDeal(r.Context(), actor, id)
	if err != nil {
		status := mapDomainError(err)
		writeError(w, status, "failed to accept deal", err.Error())

		return
	}

	writeJSON(w, http.StatusOK, dto.DealFromDomain(deal))
}

// Close withdraws a pending proposal and refunds the reserved principal.
func (h *DealHandler) Close(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentUser(w, r)
	if !ok {
		return
	}

	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing deal ID", "")
		return
	}

	deal, err := h.dealUC.CloseDeal(r.Context(), actor, id)
	if err != nil {
		status := mapDomainError(err)
		writeError(w, status, "failed to close deal", err.Error())

		return
	}

	writeJSON(w, http.StatusOK, dto.DealFromDomain(deal))
}

// Get retrieves a deal by ID.
func (h *DealHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing deal ID", "")
		return
	}

	deal, err := h.dealUC.GetDeal(r.Context(), id)
	if err != nil {
		status := mapDomainError(err)
		writeError(w, status, "failed to get deal", err.Error())

		return
	}

	writeJSON(w, http.StatusOK, dto.DealFromDomain(deal))
}

// List lists deals visible to the caller, with optional marketplace filters.
func (h *DealHandler) List(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentUser(w, r)
	if !ok {
		return
	}

	filter := usecase.DealFilter{
		Status:         domain.DealStatus(r.URL.Query().Get("status")),
		PaymentEvery:   domain.PaymentInterval(r.URL.Query().Get("payment_every")),
		MinTerm:        parseIntQuery(r, "min_term", 0),
		MinSuccessRate: parseIntQuery(r, "min_success_rate", 0),
	}

	if raw := r.URL.Query().Get("min_amount"); raw != "" {
		if amount, err := decimal.NewFromString(raw); err == nil {
			filter.MinStartBalance = amount
		}
	}

	if r.URL.Query().Get("available") == "true" {
		filter.AvailableToDebtor = true
	}

	deals, err := h.dealUC.ListDeals(r.Context(), actor, usecase.ListDealsInput{
		Filter: filter,
		Limit:  parseIntQuery(r, "limit", 0),
		Offset: parseIntQuery(r, "offset", 0),
	})
	if err != nil {
		status := mapDomainError(err)
		writeError(w, status, "failed to list deals", err.Error())

		return
	}

	writeJSON(w, http.StatusOK, dto.DealsFromDomain(deals))
}
