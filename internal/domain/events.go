package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

const (
	EventOrderCreated       = "order.created"
	EventOrderConfirmed     = "order.confirmed"
	EventOrderStatusChanged = "order.status_changed"
)

// OrderEvent is the payload published for every order lifecycle change.
type OrderEvent struct {
	EventID         string      `json:"event_id"`
	Type            string      `json:"type"`
	OrderID         string      `json:"order_id"`
	UserID          string      `json:"user_id"`
	PaymentIntentID string      `json:"payment_intent_id"`
	Status          OrderStatus `json:"status"`
	PreviousStatus  OrderStatus `json:"previous_status,omitempty"`
	TotalAmount     string      `json:"total_amount"`
	OccurredAt      time.Time   `json:"occurred_at"`
}

func NewOrderEvent(eventType string, order *Order, previous OrderStatus, now time.Time) OrderEvent {
	return OrderEvent{
		EventID:         uuid.NewString(),
		Type:            eventType,
		OrderID:         order.ID.String(),
		UserID:          order.UserID.String(),
		PaymentIntentID: order.PaymentIntentID,
		Status:          order.Status,
		PreviousStatus:  previous,
		TotalAmount:     order.TotalAmount.StringFixed(minorUnitExponent),
		OccurredAt:      now.UTC(),
	}
}

// OutboxRecord is an event persisted in the same transaction as the change it
// describes, waiting to be relayed to the message broker.
type OutboxRecord struct {
	ID        int64           `json:"id"`
	EventID   string          `json:"event_id"`
	Topic     string          `json:"topic"`
	Key       string          `json:"key"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"created_at"`
	SentAt    *time.Time      `json:"sent_at"`
}

// NewOutboxRecord keys the record by order id so one order's events stay ordered.
func NewOutboxRecord(topic string, event OrderEvent) (*OutboxRecord, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return nil, err
	}
	return &OutboxRecord{
		EventID:   event.EventID,
		Topic:     topic,
		Key:       event.OrderID,
		Payload:   payload,
		CreatedAt: event.OccurredAt,
	}, nil
}
