// Package email sends transactional and newsletter email through the
// provider's REST API.
package email

import (
	"context"

	"github.com/lettermill/lettermill/internal/model"
)

// Sender delivers a single email. Implementations must be safe for concurrent
// use; the dispatcher calls Send from multiple requests at once.
type Sender interface {
	Send(ctx context.Context, recipient model.SubscriberEmail, subject, htmlBody, textBody string) error
}
