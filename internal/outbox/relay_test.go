package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Manoj-git-hub/ecommerce-project/internal/domain"
	"github.com/Manoj-git-hub/ecommerce-project/internal/metrics"
	"github.com/Manoj-git-hub/ecommerce-project/internal/repository/memory"

	"github.com/google/uuid"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type fakePublisher struct {
	mu        sync.Mutex
	published []*domain.OutboxRecord
	failOn    map[string]bool
}

func (p *fakePublisher) Publish(ctx context.Context, record *domain.OutboxRecord) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failOn[record.EventID] {
		return errors.New("broker unavailable")
	}
	p.published = append(p.published, record)
	return nil
}

func (p *fakePublisher) eventIDs() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	ids := make([]string, 0, len(p.published))
	for _, r := range p.published {
		ids = append(ids, r.EventID)
	}
	return ids
}

func insertEvents(t *testing.T, store *memory.Store, n int) []string {
	t.Helper()
	order := &domain.Order{
		ID:          uuid.New(),
		UserID:      uuid.New(),
		Status:      domain.OrderStatusPending,
		TotalAmount: decimal.RequireFromString("10.00"),
	}
	var ids []string
	for i := 0; i < n; i++ {
		record, err := domain.NewOutboxRecord("orders.events", domain.NewOrderEvent(domain.EventOrderStatusChanged, order, "", time.Now()))
		if err != nil {
			t.Fatalf("NewOutboxRecord: %v", err)
		}
		if err := store.Outbox().Insert(context.Background(), record); err != nil {
			t.Fatalf("Insert: %v", err)
		}
		ids = append(ids, record.EventID)
	}
	return ids
}

func pending(t *testing.T, store *memory.Store) int {
	t.Helper()
	records, err := store.Outbox().FetchPending(context.Background(), 1000)
	if err != nil {
		t.Fatalf("FetchPending: %v", err)
	}
	return len(records)
}

func TestFlushPublishesInOrderAndMarksSent(t *testing.T) {
	store := memory.New()
	ids := insertEvents(t, store, 3)
	publisher := &fakePublisher{}
	relay := NewRelay(store, publisher, zap.NewNop(), nil, time.Second, 10)

	sent, err := relay.Flush(context.Background())
	if err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if sent != 3 {
		t.Errorf("expected 3 sent, got %d", sent)
	}
	got := publisher.eventIDs()
	for i := range ids {
		if got[i] != ids[i] {
			t.Fatalf("out of order: %v vs %v", got, ids)
		}
	}
	if pending(t, store) != 0 {
		t.Error("records not marked sent")
	}

	if sent, _ := relay.Flush(context.Background()); sent != 0 {
		t.Errorf("expected nothing left to send, got %d", sent)
	}
}

func TestFlushStopsAtFirstFailure(t *testing.T) {
	store := memory.New()
	ids := insertEvents(t, store, 4)
	publisher := &fakePublisher{failOn: map[string]bool{ids[2]: true}}
	reg := prometheus.NewRegistry()
	relay := NewRelay(store, publisher, zap.NewNop(), metrics.New(reg), time.Second, 10)

	sent, err := relay.Flush(context.Background())
	if err == nil {
		t.Fatal("expected publish error")
	}
	if sent != 2 {
		t.Errorf("expected the 2 records before the failure to be sent, got %d", sent)
	}
	if pending(t, store) != 2 {
		t.Errorf("expected 2 pending, got %d", pending(t, store))
	}

	// Once the broker recovers the remaining records go out in order.
	publisher.failOn = nil
	if _, err := relay.Flush(context.Background()); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	got := publisher.eventIDs()
	if len(got) != 4 || got[2] != ids[2] || got[3] != ids[3] {
		t.Errorf("unexpected delivery: %v", got)
	}
}

func TestRunDrainsUntilCancelled(t *testing.T) {
	store := memory.New()
	insertEvents(t, store, 25)
	publisher := &fakePublisher{}
	relay := NewRelay(store, publisher, zap.NewNop(), nil, 10*time.Millisecond, 10)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- relay.Run(ctx) }()

	deadline := time.Now().Add(2 * time.Second)
	for len(publisher.eventIDs()) < 25 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	cancel()

	if err := <-done; err != nil {
		t.Errorf("Run returned %v", err)
	}
	if got := len(publisher.eventIDs()); got != 25 {
		t.Errorf("expected 25 published, got %d", got)
	}
}

// Property: every recorded event is published exactly once across flushes
func TestProperty_EventsPublishedOnce(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("flushing until empty publishes each event once", prop.ForAll(
		func(n, batch int) bool {
			store := memory.New()
			ids := insertEvents(t, store, n)
			publisher := &fakePublisher{}
			relay := NewRelay(store, publisher, zap.NewNop(), nil, time.Second, batch)

			for i := 0; i <= n; i++ {
				sent, err := relay.Flush(context.Background())
				if err != nil {
					t.Logf("FAIL: Flush: %v", err)
					return false
				}
				if sent == 0 {
					break
				}
			}

			seen := map[string]int{}
			for _, id := range publisher.eventIDs() {
				seen[id]++
			}
			for _, id := range ids {
				if seen[id] != 1 {
					t.Logf("FAIL: event %s published %d times", id, seen[id])
					return false
				}
			}
			return len(seen) == n
		},
		gen.IntRange(0, 30),
		gen.IntRange(1, 7),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestRecordPayloadIsOrderEvent(t *testing.T) {
	store := memory.New()
	insertEvents(t, store, 1)
	publisher := &fakePublisher{}
	if _, err := NewRelay(store, publisher, zap.NewNop(), nil, 0, 0).Flush(context.Background()); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	var event domain.OrderEvent
	if err := json.Unmarshal(publisher.published[0].Payload, &event); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if event.Type != domain.EventOrderStatusChanged || event.TotalAmount != "10.00" {
		t.Errorf("unexpected event: %+v", event)
	}
}
