package model

import (
	"time"

	"github.com/google/uuid"
)

// OutboxEvent represents a subscriber lifecycle event awaiting publication to
// the event stream. Rows are written in the same transaction as the domain
// change they describe.
type OutboxEvent struct {
	ID          int64      `json:"id"`
	AggregateID string     `json:"aggregate_id"`
	EventType   string     `json:"event_type"`
	Payload     []byte     `json:"payload"`
	CreatedAt   time.Time  `json:"created_at"`
	PublishedAt *time.Time `json:"published_at"`
}

// CreateOutboxEventParams represents parameters for recording a new lifecycle event.
type CreateOutboxEventParams struct {
	AggregateID string
	EventType   string
	Payload     []byte
}

// EventAction represents the type of lifecycle event action.
type EventAction string

const (
	// EventActionSubscriberRegistered is recorded when a registration commits.
	EventActionSubscriberRegistered EventAction = "subscriber_registered"
	// EventActionSubscriberConfirmed is recorded when a subscriber transitions to confirmed.
	EventActionSubscriberConfirmed EventAction = "subscriber_confirmed"
	// EventActionNewsletterPublished is recorded after a newsletter fan-out completes.
	EventActionNewsletterPublished EventAction = "newsletter_published"
)

// SubscriberRegisteredEvent is the payload for registration events.
type SubscriberRegisteredEvent struct {
	SubscriberID uuid.UUID   `json:"subscriber_id"`
	Email        string      `json:"email"`
	Name         string      `json:"name"`
	Action       EventAction `json:"action"`
}

// SubscriberConfirmedEvent is the payload for confirmation events.
type SubscriberConfirmedEvent struct {
	SubscriberID uuid.UUID   `json:"subscriber_id"`
	Action       EventAction `json:"action"`
}

// NewsletterPublishedEvent is the payload for newsletter fan-out events.
type NewsletterPublishedEvent struct {
	Title     string      `json:"title"`
	Targeted  int         `json:"targeted"`
	Delivered int         `json:"delivered"`
	Failed    int         `json:"failed"`
	Action    EventAction `json:"action"`
}
