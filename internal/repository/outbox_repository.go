package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/Manoj-git-hub/ecommerce-project/internal/domain"
)

// OutboxRepository stores events written alongside order changes until the
// relay has published them.
type OutboxRepository interface {
	Insert(ctx context.Context, record *domain.OutboxRecord) error
	// FetchPending returns up to limit unsent records in insertion order.
	// Inside a transaction the rows stay locked and concurrent relays skip them.
	FetchPending(ctx context.Context, limit int) ([]*domain.OutboxRecord, error)
	MarkSent(ctx context.Context, id int64, sentAt time.Time) error
}

type outboxRepository struct {
	db DBTX
}

func NewOutboxRepository(db DBTX) OutboxRepository {
	return &outboxRepository{db: db}
}

func (r *outboxRepository) Insert(ctx context.Context, record *domain.OutboxRecord) error {
	query := `
		INSERT INTO outbox_events (event_id, topic, event_key, payload, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`

	err := r.db.QueryRowContext(ctx, query,
		record.EventID,
		record.Topic,
		record.Key,
		[]byte(record.Payload),
		record.CreatedAt,
	).Scan(&record.ID)
	if err != nil {
		return fmt.Errorf("failed to insert outbox event: %w", err)
	}
	return nil
}

func (r *outboxRepository) FetchPending(ctx context.Context, limit int) ([]*domain.OutboxRecord, error) {
	query := `
		SELECT id, event_id, topic, event_key, payload, created_at
		FROM outbox_events
		WHERE sent_at IS NULL
		ORDER BY id
		LIMIT $1
		FOR UPDATE SKIP LOCKED
	`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch outbox events: %w", err)
	}
	defer rows.Close()

	records := []*domain.OutboxRecord{}
	for rows.Next() {
		record := &domain.OutboxRecord{}
		var payload []byte
		if err := rows.Scan(&record.ID, &record.EventID, &record.Topic, &record.Key, &payload, &record.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan outbox event: %w", err)
		}
		record.Payload = payload
		records = append(records, record)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating outbox events: %w", err)
	}
	return records, nil
}

func (r *outboxRepository) MarkSent(ctx context.Context, id int64, sentAt time.Time) error {
	result, err := r.db.ExecContext(ctx, `UPDATE outbox_events SET sent_at = $2 WHERE id = $1`, id, sentAt)
	if err != nil {
		return fmt.Errorf("failed to mark outbox event sent: %w", err)
	}
	return expectOneRow(result, domain.ErrNotFound)
}
