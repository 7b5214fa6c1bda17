package handler

import (
	"context"
	"net/http"

	"github.com/iho/loanex/internal/adapter/http/dto"
	"github.com/iho/loanex/internal/domain"
	"github.com/iho/loanex/internal/usecase"
)

// NotificationService is the notification surface the handler needs.
type NotificationService interface {
	ListNotifications(ctx context.Context, actor *domain.User, input usecase.ListNotificationsInput) ([]*domain.Notification, error)
}

// NotificationHandler handles notification HTTP requests.
type NotificationHandler struct {
	notifUC NotificationService
}

// NewNotificationHandler creates a new NotificationHandler.
func NewNotificationHandler(notifUC NotificationService) *NotificationHandler {
	return &NotificationHandler{notifUC: notifUC}
}

// List lists the caller's notifications, newest first.
func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentUser(w, r)
	if !ok {
		return
	}

	notifications, err := h.notifUC.ListNotifications(r.Context(), actor, usecase.ListNotificationsInput{
		Limit:  parseIntQuery(r, "limit", 0),
		Offset: parseIntQuery(r, "offset", 0),
	})
	if err != nil {
		status := mapDomainError(err)
		writeError(w, status, "failed to list notifications", err.Error())

		return
	}

	writeJSON(w, http.StatusOK, dto.NotificationsFromDomain(notifications))
}
