package model

import (
	"time"

	"github.com/google/uuid"
)

// SubscriptionStatus is the lifecycle state of a subscription.
type SubscriptionStatus string

const (
	// StatusPendingConfirmation marks a subscriber who registered but has not
	// followed the confirmation link yet.
	StatusPendingConfirmation SubscriptionStatus = "pending_confirmation"
	// StatusConfirmed marks a subscriber eligible for newsletter delivery.
	// The transition is monotonic; a confirmed subscriber never reverts.
	StatusConfirmed SubscriptionStatus = "confirmed"
)

// Subscription represents a persisted subscriber record.
type Subscription struct {
	ID           uuid.UUID          `json:"id"`
	Email        string             `json:"email"`
	Name         string             `json:"name"`
	SubscribedAt time.Time          `json:"subscribed_at"`
	Status       SubscriptionStatus `json:"status"`
}

// ConfirmedSubscriber is a fan-out recipient row. Email is the raw stored
// value; it is re-validated before any send.
type ConfirmedSubscriber struct {
	ID    uuid.UUID
	Email string
}
