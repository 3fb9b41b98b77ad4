package messaging

import (
	"context"
	"fmt"
	"time"

	"github.com/Manoj-git-hub/ecommerce-project/internal/domain"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.uber.org/zap"
)

// MessageWriter is the subset of *kafka.Writer the publisher needs.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher publishes outbox records to the topic each record names.
type KafkaPublisher struct {
	writer MessageWriter
	logger *zap.Logger
}

// NewKafkaWriter returns a writer without a default topic; every message
// carries its own. Keys hash to partitions so one order's events stay ordered.
func NewKafkaWriter(brokers []string) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		BatchTimeout: 50 * time.Millisecond,
	}
}

func NewKafkaPublisher(writer MessageWriter, logger *zap.Logger) *KafkaPublisher {
	return &KafkaPublisher{writer: writer, logger: logger}
}

// Publish writes one record, carrying the current trace context in the
// message headers.
func (p *KafkaPublisher) Publish(ctx context.Context, record *domain.OutboxRecord) error {
	carrier := propagation.MapCarrier{}
	otel.GetTextMapPropagator().Inject(ctx, carrier)

	headers := []kafka.Header{{Key: "event_id", Value: []byte(record.EventID)}}
	for k, v := range carrier {
		headers = append(headers, kafka.Header{Key: k, Value: []byte(v)})
	}

	msg := kafka.Message{
		Topic:   record.Topic,
		Key:     []byte(record.Key),
		Value:   record.Payload,
		Headers: headers,
		Time:    record.CreatedAt,
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to publish event %s to %s: %w", record.EventID, record.Topic, err)
	}

	p.logger.Debug("Event published",
		zap.String("event_id", record.EventID),
		zap.String("topic", record.Topic),
		zap.String("key", record.Key),
	)
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
