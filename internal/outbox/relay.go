// Package outbox relays order events recorded in the outbox table to the
// message broker.
package outbox

import (
	"context"
	"time"

	"github.com/Manoj-git-hub/ecommerce-project/internal/domain"
	"github.com/Manoj-git-hub/ecommerce-project/internal/metrics"
	"github.com/Manoj-git-hub/ecommerce-project/internal/repository"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("github.com/Manoj-git-hub/ecommerce-project/internal/outbox")

// Publisher delivers one record to the broker.
type Publisher interface {
	Publish(ctx context.Context, record *domain.OutboxRecord) error
}

type Relay struct {
	store     repository.Store
	publisher Publisher
	logger    *zap.Logger
	metrics   *metrics.Metrics
	interval  time.Duration
	batch     int
	now       func() time.Time
}

func NewRelay(store repository.Store, publisher Publisher, logger *zap.Logger, m *metrics.Metrics, interval time.Duration, batch int) *Relay {
	if interval <= 0 {
		interval = time.Second
	}
	if batch <= 0 {
		batch = 100
	}
	return &Relay{
		store:     store,
		publisher: publisher,
		logger:    logger.With(zap.String("component", "outbox_relay")),
		metrics:   m,
		interval:  interval,
		batch:     batch,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Run flushes the outbox every interval until ctx is cancelled. Delivery is
// at least once: a record is marked sent only after the broker accepted it.
func (r *Relay) Run(ctx context.Context) error {
	r.logger.Info("Outbox relay started",
		zap.Duration("interval", r.interval),
		zap.Int("batch", r.batch),
	)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("Outbox relay stopped")
			return nil
		case <-ticker.C:
			// Drain full batches before waiting for the next tick.
			for {
				sent, err := r.Flush(ctx)
				if err != nil {
					if ctx.Err() == nil {
						r.logger.Warn("Outbox flush failed", zap.Error(err))
					}
					break
				}
				if sent < r.batch {
					break
				}
			}
		}
	}
}

// Flush publishes one batch of pending records in insertion order and
// returns how many were marked sent. It stops at the first publish failure
// so that later events of the same order are not delivered ahead of it.
func (r *Relay) Flush(ctx context.Context) (int, error) {
	ctx, span := tracer.Start(ctx, "outbox.Flush")
	defer span.End()

	sent := 0
	var publishErr error
	err := r.store.WithinTx(ctx, func(tx repository.Store) error {
		records, err := tx.Outbox().FetchPending(ctx, r.batch)
		if err != nil {
			return err
		}

		for _, record := range records {
			if err := r.publisher.Publish(ctx, record); err != nil {
				publishErr = err
				return nil
			}
			if err := tx.Outbox().MarkSent(ctx, record.ID, r.now()); err != nil {
				return err
			}
			sent++
		}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return 0, err
	}

	r.metrics.OutboxEvents("published", sent)
	span.SetAttributes(attribute.Int("outbox.sent", sent))

	if publishErr != nil {
		r.metrics.OutboxEvents("failed", 1)
		span.RecordError(publishErr)
		span.SetStatus(codes.Error, publishErr.Error())
		return sent, publishErr
	}
	if sent > 0 {
		r.logger.Debug("Outbox flushed", zap.Int("sent", sent))
	}
	return sent, nil
}
