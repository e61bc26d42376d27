package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/lettermill/lettermill/internal/email"
	"github.com/lettermill/lettermill/internal/model"
	"github.com/lettermill/lettermill/internal/repository"
)

// SubscriptionServiceImpl implements SubscriptionService.
type SubscriptionServiceImpl struct {
	subscriptionRepo repository.SubscriptionRepository
	outboxRepo       repository.OutboxRepository
	transactionMgr   repository.TransactionManager
	tokens           TokenGenerator
	emailSender      email.Sender
	baseURL          string
	logger           *slog.Logger
}

// NewSubscriptionServiceImpl creates a new SubscriptionService implementation.
// baseURL is the public address confirmation links point at.
func NewSubscriptionServiceImpl(
	subscriptionRepo repository.SubscriptionRepository,
	outboxRepo repository.OutboxRepository,
	transactionMgr repository.TransactionManager,
	tokens TokenGenerator,
	emailSender email.Sender,
	baseURL string,
	logger *slog.Logger,
) SubscriptionService {
	return &SubscriptionServiceImpl{
		subscriptionRepo: subscriptionRepo,
		outboxRepo:       outboxRepo,
		transactionMgr:   transactionMgr,
		tokens:           tokens,
		emailSender:      emailSender,
		baseURL:          strings.TrimRight(baseURL, "/"),
		logger:           logger,
	}
}

// Register persists a pending subscription and emails its confirmation link.
// The pending row, the token mapping and the lifecycle event commit in one
// transaction; the email send happens after the commit, so a send failure
// leaves a pending subscriber holding a valid token that never arrived.
func (s *SubscriptionServiceImpl) Register(ctx context.Context, rawEmail, rawName string) error {
	sub, err := model.ParseNewSubscriber(rawEmail, rawName)
	if err != nil {
		return err
	}

	var (
		subscriberID uuid.UUID
		confirmToken string
	)

	err = s.transactionMgr.WithTransaction(ctx, func(ctx context.Context) error {
		id, err := s.subscriptionRepo.InsertPending(ctx, sub)
		if err != nil {
			return err
		}

		subscriberID = id

		confirmToken, err = s.tokens.Generate()
		if err != nil {
			return fmt.Errorf("failed to generate confirmation token: %w", err)
		}

		if err := s.subscriptionRepo.StoreToken(ctx, confirmToken, id); err != nil {
			return err
		}

		return s.recordRegisteredEvent(ctx, id, sub)
	})
	if err != nil {
		return fmt.Errorf("failed to persist subscription: %w", err)
	}

	s.logger.Info("saved new pending subscriber",
		slog.String("subscriber_id", subscriberID.String()),
	)

	if err := s.sendConfirmationEmail(ctx, sub.Email, confirmToken); err != nil {
		return fmt.Errorf("failed to send confirmation email: %w", err)
	}

	return nil
}

// Confirm transitions the token's subscriber to confirmed. Unknown tokens
// surface model.ErrTokenNotFound; re-confirming a subscriber is a no-op.
func (s *SubscriptionServiceImpl) Confirm(ctx context.Context, token string) error {
	subscriberID, err := s.subscriptionRepo.SubscriberIDByToken(ctx, token)
	if err != nil {
		return err
	}

	return s.transactionMgr.WithTransaction(ctx, func(ctx context.Context) error {
		transitioned, err := s.subscriptionRepo.Confirm(ctx, subscriberID)
		if err != nil {
			return err
		}

		if !transitioned {
			return nil
		}

		return s.recordConfirmedEvent(ctx, subscriberID)
	})
}

func (s *SubscriptionServiceImpl) sendConfirmationEmail(
	ctx context.Context, recipient model.SubscriberEmail, token string,
) error {
	link := fmt.Sprintf("%s/subscriptions/confirm?subscription_token=%s", s.baseURL, token)

	htmlBody := fmt.Sprintf(
		"Welcome to our newsletter!<br/>Click <a href=\"%s\">here</a> to confirm your subscription.", link,
	)
	textBody := fmt.Sprintf(
		"Welcome to our newsletter!\nVisit %s to confirm your subscription.", link,
	)

	return s.emailSender.Send(ctx, recipient, "Welcome!", htmlBody, textBody)
}

func (s *SubscriptionServiceImpl) recordRegisteredEvent(
	ctx context.Context, subscriberID uuid.UUID, sub model.NewSubscriber,
) error {
	payload, err := json.Marshal(model.SubscriberRegisteredEvent{
		SubscriberID: subscriberID,
		Email:        sub.Email.String(),
		Name:         sub.Name.String(),
		Action:       model.EventActionSubscriberRegistered,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal event payload: %w", err)
	}

	_, err = s.outboxRepo.CreateEvent(ctx, &model.CreateOutboxEventParams{
		AggregateID: subscriberAggregateID(subscriberID),
		EventType:   string(model.EventActionSubscriberRegistered),
		Payload:     payload,
	})
	if err != nil {
		return fmt.Errorf("failed to record registration event: %w", err)
	}

	return nil
}

func (s *SubscriptionServiceImpl) recordConfirmedEvent(ctx context.Context, subscriberID uuid.UUID) error {
	payload, err := json.Marshal(model.SubscriberConfirmedEvent{
		SubscriberID: subscriberID,
		Action:       model.EventActionSubscriberConfirmed,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal event payload: %w", err)
	}

	_, err = s.outboxRepo.CreateEvent(ctx, &model.CreateOutboxEventParams{
		AggregateID: subscriberAggregateID(subscriberID),
		EventType:   string(model.EventActionSubscriberConfirmed),
		Payload:     payload,
	})
	if err != nil {
		return fmt.Errorf("failed to record confirmation event: %w", err)
	}

	return nil
}

func subscriberAggregateID(id uuid.UUID) string {
	return "subscriber_" + id.String()
}
