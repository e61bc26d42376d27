package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lettermill/lettermill/internal/model"
)

const testBaseURL = "https://newsletter.example.com"

func newSubscriptionFixture() (*fakeSubscriptionRepo, *fakeOutboxRepo, *fakeSender, SubscriptionService) {
	repo := newFakeSubscriptionRepo()
	outbox := &fakeOutboxRepo{}
	sender := &fakeSender{}
	svc := NewSubscriptionServiceImpl(
		repo, outbox, fakeTxManager{}, &seqTokens{}, sender, testBaseURL, slog.Default(),
	)

	return repo, outbox, sender, svc
}

func TestRegisterSavesPendingSubscriberAndSendsConfirmation(t *testing.T) {
	repo, outbox, sender, svc := newSubscriptionFixture()

	require.NoError(t, svc.Register(context.Background(), "jane@mail.com", "jane doe"))

	id, ok := repo.byEmail["jane@mail.com"]
	require.True(t, ok, "subscription was not persisted")
	assert.Equal(t, model.StatusPendingConfirmation, repo.statuses[id])

	// The issued token resolves back to the subscriber.
	require.Len(t, repo.tokens, 1)

	var issued string
	for tok, owner := range repo.tokens {
		issued = tok
		assert.Equal(t, id, owner)
	}

	// Exactly one confirmation email carrying exactly one link.
	require.Len(t, sender.sent, 1)
	msg := sender.sent[0]
	assert.Equal(t, "jane@mail.com", msg.to)
	assert.Equal(t, "Welcome!", msg.subject)

	link := testBaseURL + "/subscriptions/confirm?subscription_token=" + issued
	assert.Equal(t, 1, strings.Count(msg.htmlBody, link))
	assert.Equal(t, 1, strings.Count(msg.textBody, link))

	assert.Equal(t, []string{string(model.EventActionSubscriberRegistered)}, outbox.eventTypes())
}

func TestRegisterRejectsInvalidInput(t *testing.T) {
	repo, _, sender, svc := newSubscriptionFixture()

	err := svc.Register(context.Background(), "not-an-email", "jane doe")
	assert.ErrorIs(t, err, model.ErrInvalidEmail)

	err = svc.Register(context.Background(), "jane@mail.com", "")
	assert.ErrorIs(t, err, model.ErrInvalidName)

	assert.Empty(t, repo.byEmail, "invalid input must not be persisted")
	assert.Empty(t, sender.sent, "invalid input must not trigger email")
}

func TestRegisterStorageFailure(t *testing.T) {
	repo, _, sender, svc := newSubscriptionFixture()
	repo.insertErr = errors.New("connection refused")

	err := svc.Register(context.Background(), "jane@mail.com", "jane doe")
	require.Error(t, err)
	assert.NotErrorIs(t, err, model.ErrInvalidEmail)
	assert.Empty(t, sender.sent, "no email may be sent when the transaction fails")
}

func TestRegisterEmailFailureKeepsPendingRow(t *testing.T) {
	repo, _, sender, svc := newSubscriptionFixture()
	sender.err = errors.New("email provider timeout")

	err := svc.Register(context.Background(), "jane@mail.com", "jane doe")
	require.Error(t, err)

	// The committed row and its token survive the failed send.
	id, ok := repo.byEmail["jane@mail.com"]
	require.True(t, ok)
	assert.Equal(t, model.StatusPendingConfirmation, repo.statuses[id])
	assert.Len(t, repo.tokens, 1)
}

func TestRegisterTwiceIssuesDistinctTokens(t *testing.T) {
	repo, _, sender, svc := newSubscriptionFixture()

	require.NoError(t, svc.Register(context.Background(), "jane@mail.com", "jane doe"))
	require.NoError(t, svc.Register(context.Background(), "jane@mail.com", "Jane Doe"))

	// Same subscriber, two live tokens, both resolving to it.
	id := repo.byEmail["jane@mail.com"]
	require.Len(t, repo.tokens, 2)
	for _, owner := range repo.tokens {
		assert.Equal(t, id, owner)
	}

	require.Len(t, sender.sent, 2)
	assert.NotEqual(t, sender.sent[0].htmlBody, sender.sent[1].htmlBody,
		"re-registration must carry a fresh confirmation link")
	assert.Equal(t, model.StatusPendingConfirmation, repo.statuses[id])
}

func TestConfirmTransitionsSubscriber(t *testing.T) {
	repo, outbox, _, svc := newSubscriptionFixture()

	require.NoError(t, svc.Register(context.Background(), "jane@mail.com", "jane doe"))

	var issued string
	for tok := range repo.tokens {
		issued = tok
	}

	require.NoError(t, svc.Confirm(context.Background(), issued))

	id := repo.byEmail["jane@mail.com"]
	assert.Equal(t, model.StatusConfirmed, repo.statuses[id])
	assert.Equal(t, []string{
		string(model.EventActionSubscriberRegistered),
		string(model.EventActionSubscriberConfirmed),
	}, outbox.eventTypes())
}

func TestConfirmIsIdempotent(t *testing.T) {
	repo, outbox, _, svc := newSubscriptionFixture()

	require.NoError(t, svc.Register(context.Background(), "jane@mail.com", "jane doe"))

	var issued string
	for tok := range repo.tokens {
		issued = tok
	}

	require.NoError(t, svc.Confirm(context.Background(), issued))
	require.NoError(t, svc.Confirm(context.Background(), issued))

	id := repo.byEmail["jane@mail.com"]
	assert.Equal(t, model.StatusConfirmed, repo.statuses[id])

	// Only the first confirmation records an event.
	assert.Equal(t, []string{
		string(model.EventActionSubscriberRegistered),
		string(model.EventActionSubscriberConfirmed),
	}, outbox.eventTypes())
}

func TestConfirmUnknownToken(t *testing.T) {
	repo, _, _, svc := newSubscriptionFixture()

	id := repo.seedPending("jane@mail.com")

	err := svc.Confirm(context.Background(), "neverissuedtoken123456789")
	assert.ErrorIs(t, err, model.ErrTokenNotFound)
	assert.Equal(t, model.StatusPendingConfirmation, repo.statuses[id],
		"an unknown token must not change any subscription")
}
