package service

import (
	"bytes"
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/google/uuid"

	"github.com/lettermill/lettermill/internal/model"
)

// fakeSubscriptionRepo is an in-memory SubscriptionRepository for service tests.
type fakeSubscriptionRepo struct {
	mu            sync.Mutex
	byEmail       map[string]uuid.UUID
	statuses      map[uuid.UUID]model.SubscriptionStatus
	emails        map[uuid.UUID]string
	tokens        map[string]uuid.UUID
	insertErr     error
	storeTokenErr error
	confirmErr    error
	listErr       error
}

func newFakeSubscriptionRepo() *fakeSubscriptionRepo {
	return &fakeSubscriptionRepo{
		byEmail:  make(map[string]uuid.UUID),
		statuses: make(map[uuid.UUID]model.SubscriptionStatus),
		emails:   make(map[uuid.UUID]string),
		tokens:   make(map[string]uuid.UUID),
	}
}

func (f *fakeSubscriptionRepo) InsertPending(_ context.Context, sub model.NewSubscriber) (uuid.UUID, error) {
	if f.insertErr != nil {
		return uuid.Nil, f.insertErr
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if id, ok := f.byEmail[sub.Email.String()]; ok {
		return id, nil
	}

	id := uuid.New()
	f.byEmail[sub.Email.String()] = id
	f.statuses[id] = model.StatusPendingConfirmation
	f.emails[id] = sub.Email.String()

	return id, nil
}

func (f *fakeSubscriptionRepo) StoreToken(_ context.Context, token string, subscriberID uuid.UUID) error {
	if f.storeTokenErr != nil {
		return f.storeTokenErr
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.tokens[token] = subscriberID

	return nil
}

func (f *fakeSubscriptionRepo) SubscriberIDByToken(_ context.Context, token string) (uuid.UUID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	id, ok := f.tokens[token]
	if !ok {
		return uuid.Nil, model.ErrTokenNotFound
	}

	return id, nil
}

func (f *fakeSubscriptionRepo) Confirm(_ context.Context, subscriberID uuid.UUID) (bool, error) {
	if f.confirmErr != nil {
		return false, f.confirmErr
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.statuses[subscriberID] != model.StatusPendingConfirmation {
		return false, nil
	}

	f.statuses[subscriberID] = model.StatusConfirmed

	return true, nil
}

func (f *fakeSubscriptionRepo) ListConfirmed(
	_ context.Context, afterID uuid.UUID, limit int,
) ([]model.ConfirmedSubscriber, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	var confirmed []model.ConfirmedSubscriber

	for id, status := range f.statuses {
		if status == model.StatusConfirmed && bytes.Compare(id[:], afterID[:]) > 0 {
			confirmed = append(confirmed, model.ConfirmedSubscriber{ID: id, Email: f.emails[id]})
		}
	}

	slices.SortFunc(confirmed, func(a, b model.ConfirmedSubscriber) int {
		return bytes.Compare(a.ID[:], b.ID[:])
	})

	if len(confirmed) > limit {
		confirmed = confirmed[:limit]
	}

	return confirmed, nil
}

// seedConfirmed inserts a confirmed subscriber directly, bypassing the workflow.
func (f *fakeSubscriptionRepo) seedConfirmed(email string) uuid.UUID {
	f.mu.Lock()
	defer f.mu.Unlock()

	id := uuid.New()
	f.byEmail[email] = id
	f.statuses[id] = model.StatusConfirmed
	f.emails[id] = email

	return id
}

func (f *fakeSubscriptionRepo) seedPending(email string) uuid.UUID {
	f.mu.Lock()
	defer f.mu.Unlock()

	id := uuid.New()
	f.byEmail[email] = id
	f.statuses[id] = model.StatusPendingConfirmation
	f.emails[id] = email

	return id
}

// fakeOutboxRepo records lifecycle events in memory.
type fakeOutboxRepo struct {
	mu        sync.Mutex
	events    []*model.OutboxEvent
	createErr error
}

func (f *fakeOutboxRepo) CreateEvent(
	_ context.Context, params *model.CreateOutboxEventParams,
) (*model.OutboxEvent, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	event := &model.OutboxEvent{
		ID:          int64(len(f.events) + 1),
		AggregateID: params.AggregateID,
		EventType:   params.EventType,
		Payload:     params.Payload,
	}
	f.events = append(f.events, event)

	return event, nil
}

func (f *fakeOutboxRepo) GetUnpublishedEvents(_ context.Context, limit int) ([]*model.OutboxEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var unpublished []*model.OutboxEvent

	for _, event := range f.events {
		if event.PublishedAt == nil {
			unpublished = append(unpublished, event)
		}

		if len(unpublished) == limit {
			break
		}
	}

	return unpublished, nil
}

func (f *fakeOutboxRepo) MarkAsPublished(_ context.Context, id int64) error {
	return nil
}

func (f *fakeOutboxRepo) eventTypes() []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	types := make([]string, 0, len(f.events))
	for _, event := range f.events {
		types = append(types, event.EventType)
	}

	return types
}

// fakeTxManager runs the closure directly; rollback semantics belong to the
// real database and are not simulated here.
type fakeTxManager struct{}

func (fakeTxManager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type sentEmail struct {
	to       string
	subject  string
	htmlBody string
	textBody string
}

// fakeSender captures outgoing emails and can fail selectively per recipient.
type fakeSender struct {
	mu      sync.Mutex
	sent    []sentEmail
	err     error
	failFor map[string]error
}

func (f *fakeSender) Send(
	_ context.Context, recipient model.SubscriberEmail, subject, htmlBody, textBody string,
) error {
	if f.err != nil {
		return f.err
	}

	if err, ok := f.failFor[recipient.String()]; ok {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.sent = append(f.sent, sentEmail{
		to:       recipient.String(),
		subject:  subject,
		htmlBody: htmlBody,
		textBody: textBody,
	})

	return nil
}

// seqTokens hands out a deterministic token sequence.
type seqTokens struct {
	n int
}

func (s *seqTokens) Generate() (string, error) {
	s.n++

	return fmt.Sprintf("testtoken%022d", s.n), nil
}
