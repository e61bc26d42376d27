// Package service provides business logic layer implementations.
package service

import (
	"context"

	"github.com/lettermill/lettermill/internal/model"
)

// SubscriptionService defines business logic methods for the subscriber lifecycle.
type SubscriptionService interface {
	// Register validates raw input, persists a pending subscription with a
	// fresh confirmation token, and sends the confirmation email.
	Register(ctx context.Context, rawEmail, rawName string) error
	// Confirm resolves a confirmation token and transitions its subscriber
	// to confirmed. Repeated calls with a valid token succeed.
	Confirm(ctx context.Context, token string) error
}

// NewsletterService defines business logic methods for newsletter delivery.
type NewsletterService interface {
	// Publish fans an issue out to every confirmed subscriber. Individual
	// send failures are logged and do not abort delivery to the rest.
	Publish(ctx context.Context, issue *model.NewsletterIssue) error
}

// OutboxService defines business logic methods for lifecycle event publication.
type OutboxService interface {
	ProcessUnpublishedEvents(ctx context.Context, limit int) error
}

// TokenGenerator produces confirmation tokens.
type TokenGenerator interface {
	Generate() (string, error)
}
