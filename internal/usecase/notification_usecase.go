package usecase

import (
	"context"

	"github.com/iho/loanex/internal/domain"
)

// NotificationUseCase exposes a user's notification feed. Creation happens
// inside the deal and settlement transactions; delivery runs in the
// background notifier.
type NotificationUseCase struct {
	notifRepo NotificationRepository
}

// NewNotificationUseCase creates a new NotificationUseCase.
func NewNotificationUseCase(notifRepo NotificationRepository) *NotificationUseCase {
	return &NotificationUseCase{notifRepo: notifRepo}
}

// ListNotificationsInput represents input for listing notifications.
type ListNotificationsInput struct {
	Limit  int
	Offset int
}

// ListNotifications lists the actor's notifications, newest first.
func (uc *NotificationUseCase) ListNotifications(ctx context.Context, actor *domain.User, input ListNotificationsInput) ([]*domain.Notification, error) {
	limit, offset, err := domain.ValidatePagination(input.Limit, input.Offset)
	if err != nil {
		return nil, err
	}

	return uc.notifRepo.ListByRecipient(ctx, actor.ID, limit, offset)
}
