package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/iho/loanex/internal/adapter/http/dto"
	"github.com/iho/loanex/internal/domain"
	"github.com/iho/loanex/internal/usecase"
)

// SettlementService triggers settlement batches.
type SettlementService interface {
	RunDaily(ctx context.Context) (*usecase.RunReport, error)
	RunMonthly(ctx context.Context) (*usecase.RunReport, error)
	RunOneTime(ctx context.Context) (*usecase.RunReport, error)
}

// SettlementHandler handles manual settlement trigger requests.
type SettlementHandler struct {
	settlementUC SettlementService
}

// NewSettlementHandler creates a new SettlementHandler.
func NewSettlementHandler(settlementUC SettlementService) *SettlementHandler {
	return &SettlementHandler{settlementUC: settlementUC}
}

// Run triggers the settlement batch for the interval in the URL. The
// scheduler normally does this; the endpoint exists for operators.
func (h *SettlementHandler) Run(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentUser(w, r)
	if !ok {
		return
	}

	if !actor.Role.CanRunSettlements() {
		writeError(w, http.StatusForbidden, "insufficient permissions", domain.ErrInsufficientRole.Error())
		return
	}

	var report *usecase.RunReport
	var err error

	switch domain.PaymentInterval(chi.URLParam(r, "interval")) {
	case domain.IntervalDay:
		report, err = h.settlementUC.RunDaily(r.Context())
	case domain.IntervalMonth:
		report, err = h.settlementUC.RunMonthly(r.Context())
	case domain.IntervalOneTime:
		report, err = h.settlementUC.RunOneTime(r.Context())
	default:
		writeError(w, http.StatusBadRequest, "unknown settlement interval", "use DAY, MONTH or ONE_TIME")
		return
	}

	if err != nil {
		status := mapDomainError(err)
		writeError(w, status, "settlement run failed", err.Error())

		return
	}

	writeJSON(w, http.StatusOK, dto.RunReportFromUseCase(report))
}
