// Package repository provides data access interfaces and implementations.
package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/lettermill/lettermill/internal/model"
)

// SubscriptionRepository defines methods for subscription data access.
type SubscriptionRepository interface {
	// InsertPending inserts a pending subscription for a new email, or
	// returns the existing row's id for a re-registration. It never changes
	// the status or subscribed_at of an existing row.
	InsertPending(ctx context.Context, sub model.NewSubscriber) (uuid.UUID, error)
	// StoreToken maps a confirmation token to its owning subscriber.
	StoreToken(ctx context.Context, token string, subscriberID uuid.UUID) error
	// SubscriberIDByToken resolves a confirmation token. It returns
	// model.ErrTokenNotFound when the token was never issued.
	SubscriberIDByToken(ctx context.Context, token string) (uuid.UUID, error)
	// Confirm transitions a subscriber to confirmed. It reports whether the
	// row transitioned now; confirming an already-confirmed subscriber is a
	// no-op success.
	Confirm(ctx context.Context, subscriberID uuid.UUID) (bool, error)
	// ListConfirmed returns up to limit confirmed subscribers with an id
	// greater than afterID, ordered by id. Pass uuid.Nil to start from the
	// beginning.
	ListConfirmed(ctx context.Context, afterID uuid.UUID, limit int) ([]model.ConfirmedSubscriber, error)
}

// OutboxRepository defines methods for lifecycle event data access.
type OutboxRepository interface {
	CreateEvent(ctx context.Context, params *model.CreateOutboxEventParams) (*model.OutboxEvent, error)
	GetUnpublishedEvents(ctx context.Context, limit int) ([]*model.OutboxEvent, error)
	MarkAsPublished(ctx context.Context, id int64) error
}

// TransactionManager defines methods for database transaction management.
type TransactionManager interface {
	// WithTransaction runs fn inside a transaction carried by the returned
	// context. Repository calls made with that context join the transaction.
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
