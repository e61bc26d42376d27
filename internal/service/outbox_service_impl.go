package service

import (
	"context"
	"log/slog"

	"github.com/redis/rueidis"

	"github.com/lettermill/lettermill/internal/repository"
)

// StreamKey is the Redis stream lifecycle events are published to.
const StreamKey = "subscriber:events"

// OutboxServiceImpl implements OutboxService for publishing lifecycle events
// to Redis Streams.
type OutboxServiceImpl struct {
	outboxRepo  repository.OutboxRepository
	redisClient rueidis.Client
	logger      *slog.Logger
}

// NewOutboxServiceImpl creates a new OutboxService implementation.
func NewOutboxServiceImpl(
	outboxRepo repository.OutboxRepository, redisClient rueidis.Client, logger *slog.Logger,
) OutboxService {
	return &OutboxServiceImpl{
		outboxRepo:  outboxRepo,
		redisClient: redisClient,
		logger:      logger,
	}
}

// ProcessUnpublishedEvents publishes pending lifecycle events to the stream.
// Delivery is at-least-once: an event that reaches Redis but fails the
// published-mark is re-sent on the next pass, so consumers must tolerate
// duplicates.
func (s *OutboxServiceImpl) ProcessUnpublishedEvents(ctx context.Context, limit int) error {
	events, err := s.outboxRepo.GetUnpublishedEvents(ctx, limit)
	if err != nil {
		return err
	}

	for _, event := range events {
		cmd := s.redisClient.B().Xadd().Key(StreamKey).Id("*").
			FieldValue().FieldValue("event_type", event.EventType).
			FieldValue("aggregate_id", event.AggregateID).
			FieldValue("payload", string(event.Payload)).
			Build()

		if err := s.redisClient.Do(ctx, cmd).Error(); err != nil {
			s.logger.Error("failed to publish event to stream",
				slog.Int64("event_id", event.ID),
				slog.String("error", err.Error()),
			)

			continue
		}

		if err := s.outboxRepo.MarkAsPublished(ctx, event.ID); err != nil {
			s.logger.Error("failed to mark event as published",
				slog.Int64("event_id", event.ID),
				slog.String("error", err.Error()),
			)

			continue
		}

		s.logger.Debug("published lifecycle event",
			slog.Int64("event_id", event.ID),
			slog.String("event_type", event.EventType),
		)
	}

	return nil
}
