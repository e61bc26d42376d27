// Package main provides the Redis Streams consumer that tails subscriber
// lifecycle events and writes an audit log of the double-opt-in funnel.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/rueidis"

	"github.com/lettermill/lettermill/internal/config"
	"github.com/lettermill/lettermill/internal/logger"
	"github.com/lettermill/lettermill/internal/model"
	"github.com/lettermill/lettermill/internal/service"
)

const (
	redisBlockTimeout = 1000 // milliseconds
	errorRetryDelay   = 1 * time.Second
	exitCode          = 1

	groupName = "lifecycle-audit"
)

// EventHandler processes lifecycle events from the stream.
type EventHandler struct {
	redisClient rueidis.Client
}

// NewEventHandler creates a new event handler instance.
func NewEventHandler(redisClient rueidis.Client) *EventHandler {
	return &EventHandler{
		redisClient: redisClient,
	}
}

func (h *EventHandler) handleRegistered(event *model.SubscriberRegisteredEvent) {
	slog.Info("audit: subscriber registered",
		slog.String("subscriber_id", event.SubscriberID.String()),
		slog.String("email", event.Email),
		slog.String("name", event.Name),
	)
}

func (h *EventHandler) handleConfirmed(event *model.SubscriberConfirmedEvent) {
	slog.Info("audit: subscriber confirmed",
		slog.String("subscriber_id", event.SubscriberID.String()),
	)
}

func (h *EventHandler) handlePublished(event *model.NewsletterPublishedEvent) {
	slog.Info("audit: newsletter published",
		slog.String("title", event.Title),
		slog.Int("targeted", event.Targeted),
		slog.Int("delivered", event.Delivered),
		slog.Int("failed", event.Failed),
	)
}

func (h *EventHandler) readMessages(
	ctx context.Context, consumerName string,
) (map[string][]rueidis.XRangeEntry, error) {
	readCmd := h.redisClient.B().Xreadgroup().Group(groupName, consumerName).
		Count(1).
		Block(redisBlockTimeout).
		Streams().
		Key(service.StreamKey).
		Id(">").
		Build()

	result := h.redisClient.Do(ctx, readCmd)
	if err := result.Error(); err != nil {
		if rueidis.IsRedisNil(err) {
			// Block timeout with no new messages.
			return nil, nil
		}

		return nil, err
	}

	return result.AsXRead()
}

func (h *EventHandler) acknowledgeMessage(ctx context.Context, messageID string) {
	ackCmd := h.redisClient.B().Xack().Key(service.StreamKey).Group(groupName).Id(messageID).Build()
	if err := h.redisClient.Do(ctx, ackCmd).Error(); err != nil {
		slog.Error("failed to ACK message",
			slog.String("message_id", messageID),
			slog.String("error", err.Error()),
		)
	}
}

func (h *EventHandler) processMessage(message rueidis.XRangeEntry) error {
	eventType, ok := message.FieldValues["event_type"]
	if !ok {
		return errors.New("missing event_type in message")
	}

	payload, ok := message.FieldValues["payload"]
	if !ok {
		return errors.New("missing payload in message")
	}

	switch model.EventAction(eventType) {
	case model.EventActionSubscriberRegistered:
		var event model.SubscriberRegisteredEvent
		if err := json.Unmarshal([]byte(payload), &event); err != nil {
			return fmt.Errorf("failed to parse %s payload: %w", eventType, err)
		}

		h.handleRegistered(&event)
	case model.EventActionSubscriberConfirmed:
		var event model.SubscriberConfirmedEvent
		if err := json.Unmarshal([]byte(payload), &event); err != nil {
			return fmt.Errorf("failed to parse %s payload: %w", eventType, err)
		}

		h.handleConfirmed(&event)
	case model.EventActionNewsletterPublished:
		var event model.NewsletterPublishedEvent
		if err := json.Unmarshal([]byte(payload), &event); err != nil {
			return fmt.Errorf("failed to parse %s payload: %w", eventType, err)
		}

		h.handlePublished(&event)
	default:
		// Unknown event types are skipped, not failed; the stream may grow
		// new producers before this consumer learns about them.
		slog.Warn("unknown event type", slog.String("event_type", eventType))
	}

	return nil
}

func (h *EventHandler) consumeMessages(ctx context.Context, consumerName string) error {
	streams, err := h.readMessages(ctx, consumerName)
	if err != nil {
		return err
	}

	for _, messages := range streams {
		for _, message := range messages {
			if err := h.processMessage(message); err != nil {
				slog.Error("failed to process message",
					slog.String("message_id", message.ID),
					slog.String("error", err.Error()),
				)

				continue
			}

			h.acknowledgeMessage(ctx, message.ID)
		}
	}

	return nil
}

func createConsumerGroup(ctx context.Context, redisClient rueidis.Client) {
	createGroupCmd := redisClient.B().XgroupCreate().
		Key(service.StreamKey).Group(groupName).Id("0").Mkstream().Build()
	if err := redisClient.Do(ctx, createGroupCmd).Error(); err != nil {
		slog.Info("consumer group creation result (may already exist)", slog.String("error", err.Error()))
	}
}

func runConsumerLoop(ctx context.Context, handler *EventHandler, consumerName string) {
	for {
		select {
		case <-ctx.Done():
			slog.Info("consumer stopped")
			return
		default:
			if err := handler.consumeMessages(ctx, consumerName); err != nil {
				slog.Error("error consuming messages", slog.String("error", err.Error()))
				time.Sleep(errorRetryDelay)
			}
		}
	}
}

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(exitCode)
	}

	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(log)

	redisClient, err := rueidis.NewClient(rueidis.ClientOption{
		InitAddress: []string{cfg.RedisAddr},
	})
	if err != nil {
		log.Error("failed to connect to Redis", slog.String("error", err.Error()))
		os.Exit(exitCode)
	}
	defer redisClient.Close()

	handler := NewEventHandler(redisClient)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	createConsumerGroup(ctx, redisClient)

	log.Info("starting lifecycle event consumer",
		slog.String("stream", service.StreamKey),
		slog.String("group", groupName),
		slog.String("consumer", cfg.ConsumerName),
	)

	runConsumerLoop(ctx, handler, cfg.ConsumerName)
}
