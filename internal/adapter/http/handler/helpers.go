package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/iho/loanex/internal/adapter/http/dto"
	"github.com/iho/loanex/internal/adapter/http/middleware"
	"github.com/iho/loanex/internal/domain"
	"github.com/iho/loanex/internal/usecase"
)

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeError writes an error response.
func writeError(w http.ResponseWriter, status int, message, details string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(dto.ErrorResponse{
		Error:   message,
		Message: details,
	})
}

// mapDomainError maps domain errors to HTTP status codes.
func mapDomainError(err error) int {
	switch {
	case errors.Is(err, domain.ErrDealNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrUserNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrLedgerOwnerNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidDealState):
		return http.StatusConflict
	case errors.Is(err, domain.ErrOwnDeal):
		return http.StatusConflict
	case errors.Is(err, domain.ErrConcurrentDealLimit):
		return http.StatusConflict
	case errors.Is(err, usecase.ErrSettlementRunning):
		return http.StatusConflict
	case errors.Is(err, domain.ErrInsufficientFunds):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrInvalidAmount):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrInvalidPercent):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrInvalidTerm):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrInvalidInterval):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrInvalidLedgerEvent):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrAmbiguousLedgerOwner):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrInsufficientRole):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// currentUser extracts the authenticated user or writes a 401.
func currentUser(w http.ResponseWriter, r *http.Request) (*domain.User, bool) {
	user, ok := middleware.GetUserFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "no authenticated user")
		return nil, false
	}
	return user, true
}

// parseIntQuery parses an integer query parameter with a default value.
func parseIntQuery(r *http.Request, key string, defaultValue int) int {
	val := r.URL.Query().Get(key)
	if val == "" {
		return defaultValue
	}
	i, err := strconv.Atoi(val)
	if err != nil {
		return defaultValue
	}
	return i
}

// parseTimeQuery parses an RFC 3339 query parameter, nil when absent or bad.
func parseTimeQuery(r *http.Request, key string) *time.Time {
	val := r.URL.Query().Get(key)
	if val == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, val)
	if err != nil {
		return nil
	}
	return &t
}
