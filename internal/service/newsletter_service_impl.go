package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/lettermill/lettermill/internal/email"
	"github.com/lettermill/lettermill/internal/model"
	"github.com/lettermill/lettermill/internal/repository"
)

// NewsletterServiceImpl implements NewsletterService.
type NewsletterServiceImpl struct {
	subscriptionRepo repository.SubscriptionRepository
	outboxRepo       repository.OutboxRepository
	emailSender      email.Sender
	batchSize        int
	logger           *slog.Logger
}

// NewNewsletterServiceImpl creates a new NewsletterService implementation.
func NewNewsletterServiceImpl(
	subscriptionRepo repository.SubscriptionRepository,
	outboxRepo repository.OutboxRepository,
	emailSender email.Sender,
	batchSize int,
	logger *slog.Logger,
) NewsletterService {
	return &NewsletterServiceImpl{
		subscriptionRepo: subscriptionRepo,
		outboxRepo:       outboxRepo,
		emailSender:      emailSender,
		batchSize:        batchSize,
		logger:           logger,
	}
}

// Publish fans the issue out to every confirmed subscriber in keyset batches.
// A listing failure aborts the publish; a per-recipient send failure is
// logged and counted but never stops delivery to the remaining recipients.
func (s *NewsletterServiceImpl) Publish(ctx context.Context, issue *model.NewsletterIssue) error {
	if err := issue.Validate(); err != nil {
		return err
	}

	var targeted, delivered, failed int

	afterID := uuid.Nil

	for {
		batch, err := s.subscriptionRepo.ListConfirmed(ctx, afterID, s.batchSize)
		if err != nil {
			return fmt.Errorf("failed to list confirmed subscribers: %w", err)
		}

		if len(batch) == 0 {
			break
		}

		for _, sub := range batch {
			recipient, err := model.ParseSubscriberEmail(sub.Email)
			if err != nil {
				// The stored address passed validation once; a row that no
				// longer parses is skipped rather than aborting the issue.
				s.logger.Warn("skipping confirmed subscriber with invalid stored email",
					slog.String("subscriber_id", sub.ID.String()),
					slog.String("error", err.Error()),
				)

				continue
			}

			targeted++

			if err := s.emailSender.Send(
				ctx, recipient, issue.Title, issue.Content.HTML, issue.Content.Text,
			); err != nil {
				failed++
				s.logger.Error("failed to deliver newsletter issue",
					slog.String("subscriber_id", sub.ID.String()),
					slog.String("error", err.Error()),
				)

				continue
			}

			delivered++
		}

		afterID = batch[len(batch)-1].ID

		if len(batch) < s.batchSize {
			break
		}
	}

	s.recordPublishedEvent(ctx, issue.Title, targeted, delivered, failed)

	s.logger.Info("newsletter issue published",
		slog.String("title", issue.Title),
		slog.Int("targeted", targeted),
		slog.Int("delivered", delivered),
		slog.Int("failed", failed),
	)

	return nil
}

// recordPublishedEvent is best effort: the fan-out already happened, so an
// event-store failure only gets logged.
func (s *NewsletterServiceImpl) recordPublishedEvent(
	ctx context.Context, title string, targeted, delivered, failed int,
) {
	payload, err := json.Marshal(model.NewsletterPublishedEvent{
		Title:     title,
		Targeted:  targeted,
		Delivered: delivered,
		Failed:    failed,
		Action:    model.EventActionNewsletterPublished,
	})
	if err != nil {
		s.logger.Error("failed to marshal newsletter event payload", slog.String("error", err.Error()))
		return
	}

	if _, err := s.outboxRepo.CreateEvent(ctx, &model.CreateOutboxEventParams{
		AggregateID: "newsletter",
		EventType:   string(model.EventActionNewsletterPublished),
		Payload:     payload,
	}); err != nil {
		s.logger.Error("failed to record newsletter event", slog.String("error", err.Error()))
	}
}
