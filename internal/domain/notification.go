package domain

import "time"

// Notification tells a user something happened to one of their deals.
// Created by the lifecycle service and the settlement engine; delivery is
// handled asynchronously and is fire-and-forget.
type Notification struct {
	ID          string
	Date        time.Time
	Event       LedgerEvent
	RecipientID string
	DealID      string
	DeliveredAt *time.Time
}
