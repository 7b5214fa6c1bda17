package dto

import (
	"github.com/shopspring/decimal"

	"github.com/iho/loanex/internal/domain"
	"github.com/iho/loanex/internal/usecase"
)

// CreateDealRequest represents a request to propose a deal.
type CreateDealRequest struct {
	StartBalance        decimal.Decimal `json:"start_balance"`
	Percent             decimal.Decimal `json:"percent"`
	Fine                decimal.Decimal `json:"fine"`
	Term                int             `json:"term"`
	PaymentEvery        string          `json:"payment_every"`
	AllowEarlyPayment   bool            `json:"allow_early_payment"`
	AllowCapitalization bool            `json:"allow_capitalization"`
}

// ToUseCaseInput converts to use case input.
func (r *CreateDealRequest) ToUseCaseInput() usecase.CreateDealInput {
	return usecase.CreateDealInput{
		StartBalance:        r.StartBalance,
		Percent:             r.Percent,
		Fine:                r.Fine,
		Term:                r.Term,
		PaymentEvery:        domain.PaymentInterval(r.PaymentEvery),
		AllowEarlyPayment:   r.AllowEarlyPayment,
		AllowCapitalization: r.AllowCapitalization,
	}
}

// AdminAppendRequest represents a manual ledger adjustment. Exactly one of
// account_id and deal_id must be set.
type AdminAppendRequest struct {
	AccountID string          `json:"account_id,omitempty"`
	DealID    string          `json:"deal_id,omitempty"`
	Event     string          `json:"event"`
	Amount    decimal.Decimal `json:"amount"`
}

// ToUseCaseInput converts to use case input.
func (r *AdminAppendRequest) ToUseCaseInput() usecase.AdminAppendInput {
	return usecase.AdminAppendInput{
		AccountID: r.AccountID,
		DealID:    r.DealID,
		Event:     domain.LedgerEvent(r.Event),
		Amount:    r.Amount,
	}
}
