package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/loanex/internal/domain"
	"github.com/iho/loanex/internal/usecase"
)

// DealResponse represents a deal in API responses.
type DealResponse struct {
	ID                  string          `json:"id"`
	DateOpen            time.Time       `json:"date_open"`
	DateBecomeActive    *time.Time      `json:"date_become_active,omitempty"`
	EndDate             *time.Time      `json:"end_date,omitempty"`
	LastSettledAt       *time.Time      `json:"last_settled_at,omitempty"`
	StartBalance        decimal.Decimal `json:"start_balance"`
	Percent             decimal.Decimal `json:"percent"`
	Fine                decimal.Decimal `json:"fine"`
	SuccessRate         int             `json:"success_rate"`
	Term                int             `json:"term"`
	PaymentEvery        string          `json:"payment_every"`
	Status              string          `json:"status"`
	EmitterID           string          `json:"emitter_id"`
	RecipientID         string          `json:"recipient_id,omitempty"`
	AveragePayment      decimal.Decimal `json:"average_payment"`
	AllowEarlyPayment   bool            `json:"allow_early_payment"`
	AllowCapitalization bool            `json:"allow_capitalization"`
}

// DealFromDomain converts a domain deal to a response.
func DealFromDomain(d *domain.Deal) *DealResponse {
	return &DealResponse{
		ID:                  d.ID,
		DateOpen:            d.DateOpen,
		DateBecomeActive:    d.DateBecomeActive,
		EndDate:             d.EndDate,
		LastSettledAt:       d.LastSettledAt,
		StartBalance:        d.StartBalance,
		Percent:             d.Percent,
		Fine:                d.Fine,
		SuccessRate:         d.SuccessRate,
		Term:                d.Term,
		PaymentEvery:        string(d.PaymentEvery),
		Status:              string(d.Status),
		EmitterID:           d.EmitterID,
		RecipientID:         d.RecipientID,
		AveragePayment:      d.AveragePayment(),
		AllowEarlyPayment:   d.AllowEarlyPayment,
		AllowCapitalization: d.AllowCapitalization,
	}
}

// DealsFromDomain converts domain deals to responses.
func DealsFromDomain(deals []*domain.Deal) []*DealResponse {
	result := make([]*DealResponse, len(deals))
	for i, d := range deals {
		result[i] = DealFromDomain(d)
	}
	return result
}

// BalanceLogResponse represents a balance log entry in API responses.
type BalanceLogResponse struct {
	ID             string          `json:"id"`
	Date           time.Time       `json:"date"`
	OldValue       decimal.Decimal `json:"old_value"`
	AmountChanged  decimal.Decimal `json:"amount_changed"`
	CurrentBalance decimal.Decimal `json:"current_balance"`
	Event          string          `json:"event"`
	AccountID      string          `json:"account_id,omitempty"`
	DealID         string          `json:"deal_id,omitempty"`
}

// BalanceLogFromDomain converts a domain balance log entry to a response.
func BalanceLogFromDomain(l *domain.BalanceLog) *BalanceLogResponse {
	return &BalanceLogResponse{
		ID:             l.ID,
		Date:           l.Date,
		OldValue:       l.OldValue,
		AmountChanged:  l.AmountChanged,
		CurrentBalance: l.CurrentBalance(),
		Event:          string(l.Event),
		AccountID:      l.AccountID,
		DealID:         l.DealID,
	}
}

// BalanceLogsFromDomain converts domain balance log entries to responses.
func BalanceLogsFromDomain(logs []*domain.BalanceLog) []*BalanceLogResponse {
	result := make([]*BalanceLogResponse, len(logs))
	for i, l := range logs {
		result[i] = BalanceLogFromDomain(l)
	}
	return result
}

// NotificationResponse represents a notification in API responses.
type NotificationResponse struct {
	ID          string     `json:"id"`
	Date        time.Time  `json:"date"`
	Event       string     `json:"event"`
	RecipientID string     `json:"recipient_id"`
	DealID      string     `json:"deal_id,omitempty"`
	DeliveredAt *time.Time `json:"delivered_at,omitempty"`
}

// NotificationFromDomain converts a domain notification to a response.
func NotificationFromDomain(n *domain.Notification) *NotificationResponse {
	return &NotificationResponse{
		ID:          n.ID,
		Date:        n.Date,
		Event:       string(n.Event),
		RecipientID: n.RecipientID,
		DealID:      n.DealID,
		DeliveredAt: n.DeliveredAt,
	}
}

// NotificationsFromDomain converts domain notifications to responses.
func NotificationsFromDomain(notifications []*domain.Notification) []*NotificationResponse {
	result := make([]*NotificationResponse, len(notifications))
	for i, n := range notifications {
		result[i] = NotificationFromDomain(n)
	}
	return result
}

// AccountStatsResponse represents aggregated account figures.
type AccountStatsResponse struct {
	AccountID string          `json:"account_id"`
	Incoming  decimal.Decimal `json:"incoming"`
	Payments  decimal.Decimal `json:"payments"`
	Balance   decimal.Decimal `json:"balance"`
}

// AccountStatsFromDomain converts domain account stats to a response.
func AccountStatsFromDomain(s *domain.AccountStats) *AccountStatsResponse {
	return &AccountStatsResponse{
		AccountID: s.AccountID,
		Incoming:  s.Incoming,
		Payments:  s.Payments,
		Balance:   s.Balance,
	}
}

// RunReportResponse summarizes a settlement run in API responses.
type RunReportResponse struct {
	Interval string `json:"interval"`
	Matched  int    `json:"matched"`
	Settled  int    `json:"settled"`
	Closed   int    `json:"closed"`
	Skipped  int    `json:"skipped"`
	Failed   int    `json:"failed"`
}

// RunReportFromUseCase converts a settlement run report to a response.
func RunReportFromUseCase(r *usecase.RunReport) *RunReportResponse {
	return &RunReportResponse{
		Interval: string(r.Interval),
		Matched:  r.Matched,
		Settled:  r.Settled,
		Closed:   r.Closed,
		Skipped:  r.Skipped,
		Failed:   r.Failed,
	}
}

// VerifyReportResponse summarizes a full ledger verification.
type VerifyReportResponse struct {
	Owners int      `json:"owners"`
	Broken []string `json:"broken,omitempty"`
}

// VerifyReportFromUseCase converts a verification report to a response.
func VerifyReportFromUseCase(r *usecase.VerifyAllReport) *VerifyReportResponse {
	broken := make([]string, len(r.Broken))
	for i, owner := range r.Broken {
		broken[i] = string(owner.Kind) + ":" + owner.ID
	}
	return &VerifyReportResponse{
		Owners: r.Owners,
		Broken: broken,
	}
}

// ErrorResponse represents an error in API responses.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
