package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/iho/postingledger/internal/domain"
	"github.com/iho/postingledger/internal/infrastructure/postgres/generated"
	"github.com/iho/postingledger/internal/usecase"
)

// OutboxRepository stores ledger events next to the postings that raise them
// and serves them to the publisher.
type OutboxRepository struct {
	db      generated.DBTX
	queries *generated.Queries
}

// NewOutboxRepository creates a new OutboxRepository.
func NewOutboxRepository(db generated.DBTX) *OutboxRepository {
	return &OutboxRepository{
		db:      db,
		queries: generated.New(db),
	}
}

// Create writes event inside tx, so it commits or rolls back with the posting.
func (r *OutboxRepository) Create(ctx context.Context, tx usecase.Transaction, event *domain.OutboxEvent) error {
	payload, err := json.Marshal(event.Payload)
	if err != nil {
		return fmt.Errorf("encode %s payload: %w", event.EventType, err)
	}

	return queriesFor(r.db, tx).CreateOutboxEvent(ctx, generated.CreateOutboxEventParams{
		ID:            event.ID,
		AggregateID:   event.AggregateID,
		AggregateType: event.AggregateType,
		EventType:     event.EventType,
		Payload:       payload,
		CreatedAt:     timeToPgTimestamptz(event.CreatedAt),
		Published:     event.Published,
	})
}

// GetUnpublished returns up to limit pending events in creation order.
func (r *OutboxRepository) GetUnpublished(ctx context.Context, limit int) ([]*domain.OutboxEvent, error) {
	if limit <= 0 {
		return nil, nil
	}
	limit = min(limit, math.MaxInt32)

	rows, err := r.queries.GetUnpublishedEvents(ctx, int32(limit))
	if err != nil {
		return nil, fmt.Errorf("load outbox batch: %w", err)
	}

	events := make([]*domain.OutboxEvent, len(rows))
	for i, row := range rows {
		if events[i], err = outboxEventFromRow(row); err != nil {
			return nil, err
		}
	}

	return events, nil
}

// MarkPublished records delivery of one event.
func (r *OutboxRepository) MarkPublished(ctx context.Context, id string, publishedAt time.Time) error {
	return r.queries.MarkEventPublished(ctx, generated.MarkEventPublishedParams{
		ID:          id,
		PublishedAt: timeToPgTimestamptz(publishedAt),
	})
}

// CountUnpublished returns the size of the publish backlog.
func (r *OutboxRepository) CountUnpublished(ctx context.Context) (int64, error) {
	return r.queries.CountUnpublishedEvents(ctx)
}

// DeletePublished prunes delivered events published before the cutoff.
func (r *OutboxRepository) DeletePublished(ctx context.Context, before time.Time) error {
	return r.queries.DeletePublishedEvents(ctx, timeToPgTimestamptz(before))
}

func outboxEventFromRow(row generated.OutboxEvent) (*domain.OutboxEvent, error) {
	event := &domain.OutboxEvent{
		ID:            row.ID,
		AggregateID:   row.AggregateID,
		AggregateType: row.AggregateType,
		EventType:     row.EventType,
		CreatedAt:     row.CreatedAt.Time,
		PublishedAt:   ptrFromTimestamptz(row.PublishedAt),
		Published:     row.Published,
	}

	if len(row.Payload) > 0 {
		if err := json.Unmarshal(row.Payload, &event.Payload); err != nil {
			return nil, fmt.Errorf("decode outbox event %s: %w", row.ID, err)
		}
	}

	return event, nil
}
