package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/iho/loanex/internal/adapter/http/dto"
	"github.com/iho/loanex/internal/domain"
	"github.com/iho/loanex/internal/usecase"
)

// LedgerService is the balance log surface the handler needs.
type LedgerService interface {
	ListLogs(ctx context.Context, actor *domain.User, input usecase.ListLogsInput) ([]*domain.BalanceLog, error)
	AdminAppend(ctx context.Context, actor *domain.User, input usecase.AdminAppendInput) (*domain.BalanceLog, error)
	AccountStats(ctx context.Context, actor *domain.User, accountID string) (*domain.AccountStats, error)
	VerifyAll(ctx context.Context, actor *domain.User) (*usecase.VerifyAllReport, error)
}

// LedgerHandler handles balance log HTTP requests.
type LedgerHandler struct {
	ledgerUC LedgerService
}

// NewLedgerHandler creates a new LedgerHandler.
func NewLedgerHandler(ledgerUC LedgerService) *LedgerHandler {
	return &LedgerHandler{ledgerUC: ledgerUC}
}

// List lists balance log entries visible to the caller.
func (h *LedgerHandler) List(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentUser(w, r)
	if !ok {
		return
	}

	input := usecase.ListLogsInput{
		Filter: usecase.LogFilter{
			AccountID: r.URL.Query().Get("account_id"),
			DealID:    r.URL.Query().Get("deal_id"),
			From:      parseTimeQuery(r, "from"),
			To:        parseTimeQuery(r, "to"),
		},
		Limit:  parseIntQuery(r, "limit", 0),
		Offset: parseIntQuery(r, "offset", 0),
	}

	logs, err := h.ledgerUC.ListLogs(r.Context(), actor, input)
	if err != nil {
		status := mapDomainError(err)
		writeError(w, status, "failed to list balance logs", err.Error())

		return
	}

	writeJSON(w, http.StatusOK, dto.BalanceLogsFromDomain(logs))
}

// AdminAppend appends a manual ledger entry. Admin only; this is how
// accounts get funded.
func (h *LedgerHandler) AdminAppend(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentUser(w, r)
	if !ok {
		return
	}

	var req dto.AdminAppendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	log, err := h.ledgerUC.AdminAppend(r.Context(), actor, req.ToUseCaseInput())
	if err != nil {
		status := mapDomainError(err)
		writeError(w, status, "failed to append balance log", err.Error())

		return
	}

	writeJSON(w, http.StatusCreated, dto.BalanceLogFromDomain(log))
}

// AccountStats returns aggregated figures for an account.
func (h *LedgerHandler) AccountStats(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentUser(w, r)
	if !ok {
		return
	}

	accountID := chi.URLParam(r, "id")
	if accountID == "" {
		writeError(w, http.StatusBadRequest, "missing account ID", "")
		return
	}

	stats, err := h.ledgerUC.AccountStats(r.Context(), actor, accountID)
	if err != nil {
		status := mapDomainError(err)
		writeError(w, status, "failed to get account stats", err.Error())

		return
	}

	writeJSON(w, http.StatusOK, dto.AccountStatsFromDomain(stats))
}

// Verify walks every ledger chain and reports broken ones. Admin only.
func (h *LedgerHandler) Verify(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentUser(w, r)
	if !ok {
		return
	}

	report, err := h.ledgerUC.VerifyAll(r.Context(), actor)
	if err != nil {
		status := mapDomainError(err)
		writeError(w, status, "failed to verify ledgers", err.Error())

		return
	}

	writeJSON(w, http.StatusOK, dto.VerifyReportFromUseCase(report))
}
