package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lettermill/lettermill/internal/model"
)

// OutboxRepositoryImpl implements OutboxRepository using PostgreSQL.
type OutboxRepositoryImpl struct {
	pool *pgxpool.Pool
}

// NewOutboxRepositoryImpl creates a new OutboxRepository implementation.
func NewOutboxRepositoryImpl(pool *pgxpool.Pool) OutboxRepository {
	return &OutboxRepositoryImpl{pool: pool}
}

// CreateEvent records a new lifecycle event. When called inside
// TransactionManager.WithTransaction, the event commits atomically with the
// domain write it describes.
func (r *OutboxRepositoryImpl) CreateEvent(
	ctx context.Context, params *model.CreateOutboxEventParams,
) (*model.OutboxEvent, error) {
	event := &model.OutboxEvent{
		AggregateID: params.AggregateID,
		EventType:   params.EventType,
		Payload:     params.Payload,
	}

	err := queryTarget(ctx, r.pool).QueryRow(ctx,
		`INSERT INTO subscriber_events (aggregate_id, event_type, payload)
		 VALUES ($1, $2, $3)
		 RETURNING id, created_at`,
		params.AggregateID, params.EventType, params.Payload,
	).Scan(&event.ID, &event.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create lifecycle event: %w", err)
	}

	return event, nil
}

// GetUnpublishedEvents retrieves lifecycle events not yet published to the stream.
func (r *OutboxRepositoryImpl) GetUnpublishedEvents(ctx context.Context, limit int) ([]*model.OutboxEvent, error) {
	rows, err := queryTarget(ctx, r.pool).Query(ctx,
		`SELECT id, aggregate_id, event_type, payload, created_at, published_at
		 FROM subscriber_events
		 WHERE published_at IS NULL
		 ORDER BY id
		 LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query unpublished events: %w", err)
	}
	defer rows.Close()

	var events []*model.OutboxEvent

	for rows.Next() {
		event := &model.OutboxEvent{}
		if err := rows.Scan(
			&event.ID, &event.AggregateID, &event.EventType,
			&event.Payload, &event.CreatedAt, &event.PublishedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan lifecycle event: %w", err)
		}

		events = append(events, event)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read unpublished events: %w", err)
	}

	return events, nil
}

// MarkAsPublished marks a lifecycle event as published.
func (r *OutboxRepositoryImpl) MarkAsPublished(ctx context.Context, id int64) error {
	_, err := queryTarget(ctx, r.pool).Exec(ctx,
		`UPDATE subscriber_events SET published_at = $1 WHERE id = $2`,
		time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("failed to mark event %d as published: %w", id, err)
	}

	return nil
}
