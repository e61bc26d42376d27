package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lettermill/lettermill/internal/model"
)

// SubscriptionRepositoryImpl implements SubscriptionRepository using PostgreSQL.
type SubscriptionRepositoryImpl struct {
	pool *pgxpool.Pool
}

// NewSubscriptionRepositoryImpl creates a new SubscriptionRepository implementation.
func NewSubscriptionRepositoryImpl(pool *pgxpool.Pool) SubscriptionRepository {
	return &SubscriptionRepositoryImpl{pool: pool}
}

// InsertPending inserts a pending subscription, or resolves the id of an
// existing row when the email was registered before. The conflict branch only
// refreshes the name; status and subscribed_at are owned by the first insert.
func (r *SubscriptionRepositoryImpl) InsertPending(
	ctx context.Context, sub model.NewSubscriber,
) (uuid.UUID, error) {
	var id uuid.UUID

	err := queryTarget(ctx, r.pool).QueryRow(ctx,
		`INSERT INTO subscriptions (id, email, name, subscribed_at, status)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (email) DO UPDATE SET name = EXCLUDED.name
		 RETURNING id`,
		uuid.New(), sub.Email.String(), sub.Name.String(), time.Now().UTC(), model.StatusPendingConfirmation,
	).Scan(&id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to insert pending subscription: %w", err)
	}

	return id, nil
}

// StoreToken maps a confirmation token to its owning subscriber.
func (r *SubscriptionRepositoryImpl) StoreToken(ctx context.Context, token string, subscriberID uuid.UUID) error {
	_, err := queryTarget(ctx, r.pool).Exec(ctx,
		`INSERT INTO subscription_tokens (subscription_token, subscriber_id)
		 VALUES ($1, $2)`,
		token, subscriberID,
	)
	if err != nil {
		return fmt.Errorf("failed to store subscription token: %w", err)
	}

	return nil
}

// SubscriberIDByToken resolves a confirmation token to its subscriber id.
func (r *SubscriptionRepositoryImpl) SubscriberIDByToken(ctx context.Context, token string) (uuid.UUID, error) {
	var id uuid.UUID

	err := queryTarget(ctx, r.pool).QueryRow(ctx,
		`SELECT subscriber_id FROM subscription_tokens WHERE subscription_token = $1`,
		token,
	).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return uuid.Nil, model.ErrTokenNotFound
		}

		return uuid.Nil, fmt.Errorf("failed to resolve subscription token: %w", err)
	}

	return id, nil
}

// Confirm transitions a subscriber to confirmed. The update is guarded on the
// pending status so repeated confirmations are no-ops and the transition stays
// monotonic under concurrent requests.
func (r *SubscriptionRepositoryImpl) Confirm(ctx context.Context, subscriberID uuid.UUID) (bool, error) {
	tag, err := queryTarget(ctx, r.pool).Exec(ctx,
		`UPDATE subscriptions SET status = $1 WHERE id = $2 AND status = $3`,
		model.StatusConfirmed, subscriberID, model.StatusPendingConfirmation,
	)
	if err != nil {
		return false, fmt.Errorf("failed to confirm subscription: %w", err)
	}

	return tag.RowsAffected() > 0, nil
}

// ListConfirmed returns a batch of confirmed subscribers keyed after afterID.
// Batches are fetched eagerly so callers never hold a pool connection across
// their own I/O.
func (r *SubscriptionRepositoryImpl) ListConfirmed(
	ctx context.Context, afterID uuid.UUID, limit int,
) ([]model.ConfirmedSubscriber, error) {
	rows, err := queryTarget(ctx, r.pool).Query(ctx,
		`SELECT id, email FROM subscriptions
		 WHERE status = $1 AND id > $2
		 ORDER BY id
		 LIMIT $3`,
		model.StatusConfirmed, afterID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list confirmed subscribers: %w", err)
	}
	defer rows.Close()

	var subscribers []model.ConfirmedSubscriber

	for rows.Next() {
		var sub model.ConfirmedSubscriber
		if err := rows.Scan(&sub.ID, &sub.Email); err != nil {
			return nil, fmt.Errorf("failed to scan confirmed subscriber: %w", err)
		}

		subscribers = append(subscribers, sub)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read confirmed subscribers: %w", err)
	}

	return subscribers, nil
}
