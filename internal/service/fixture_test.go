package service

import (
	"context"
	"testing"
	"time"

	"github.com/Manoj-git-hub/ecommerce-project/internal/domain"
	"github.com/Manoj-git-hub/ecommerce-project/internal/metrics"
	"github.com/Manoj-git-hub/ecommerce-project/internal/payment"
	"github.com/Manoj-git-hub/ecommerce-project/internal/repository"
	"github.com/Manoj-git-hub/ecommerce-project/internal/repository/memory"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const testTopic = "orders.events"

type fixture struct {
	store     repository.Store
	registry  *prometheus.Registry
	users     UserService
	carts     CartService
	checkout  CheckoutService
	addresses AddressService
}

func newFixture(t *testing.T) *fixture {
	return newFixtureWithOptions(t, CheckoutOptions{EventsTopic: testTopic})
}

func newFixtureWithOptions(t *testing.T, opts CheckoutOptions) *fixture {
	t.Helper()
	return newFixtureOnStore(t, memory.New(), opts)
}

func newFixtureOnStore(t *testing.T, store repository.Store, opts CheckoutOptions) *fixture {
	t.Helper()
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	log := zap.NewNop()

	return &fixture{
		store:     store,
		registry:  reg,
		users:     NewUserService(store.Users(), "test-secret"),
		carts:     NewCartService(store, log, m),
		checkout:  NewCheckoutService(store, payment.NewStubProvider(), log, m, opts),
		addresses: NewAddressService(store),
	}
}

func (f *fixture) user(t *testing.T) *domain.User {
	t.Helper()
	user, err := f.users.Provision(context.Background(), "user-"+uuid.NewString()[:8], "", domain.RoleUser)
	if err != nil {
		t.Fatalf("Provision: %v", err)
	}
	return user
}

func (f *fixture) product(t *testing.T, price string, stock int) *domain.Product {
	t.Helper()
	now := time.Now().UTC()
	p := &domain.Product{
		ID:        uuid.New(),
		Name:      "Product " + uuid.NewString()[:8],
		Price:     decimal.RequireFromString(price),
		Stock:     stock,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := f.store.Products().Create(context.Background(), p); err != nil {
		t.Fatalf("create product: %v", err)
	}
	return p
}

func (f *fixture) address(t *testing.T, username string) *domain.Address {
	t.Helper()
	address, err := f.addresses.AddAddress(context.Background(), username, AddressInput{
		Street:     "1 Main St",
		City:       "Springfield",
		PostalCode: "12345",
		Country:    "US",
	})
	if err != nil {
		t.Fatalf("AddAddress: %v", err)
	}
	return address
}

// setStock changes stock the way a catalogue edit would, outside checkout.
func (f *fixture) setStock(t *testing.T, productID uuid.UUID, stock int) {
	t.Helper()
	ctx := context.Background()
	p, err := f.store.Products().FindByID(ctx, productID)
	if err != nil {
		t.Fatalf("find product: %v", err)
	}
	p.Stock = stock
	if err := f.store.Products().Update(ctx, p); err != nil {
		t.Fatalf("update product: %v", err)
	}
}

func (f *fixture) setPrice(t *testing.T, productID uuid.UUID, price string) {
	t.Helper()
	ctx := context.Background()
	p, err := f.store.Products().FindByID(ctx, productID)
	if err != nil {
		t.Fatalf("find product: %v", err)
	}
	p.Price = decimal.RequireFromString(price)
	if err := f.store.Products().Update(ctx, p); err != nil {
		t.Fatalf("update product: %v", err)
	}
}

func (f *fixture) stock(t *testing.T, productID uuid.UUID) int {
	t.Helper()
	stock, err := f.store.Inventory().StockOf(context.Background(), productID)
	if err != nil {
		t.Fatalf("StockOf: %v", err)
	}
	return stock
}

// counter reads a counter from the fixture's registry; absent series read 0.
func (f *fixture) counter(t *testing.T, name string, labels map[string]string) float64 {
	t.Helper()
	families, err := f.registry.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	for _, family := range families {
		if family.GetName() != name {
			continue
		}
	metricLoop:
		for _, m := range family.GetMetric() {
			for _, pair := range m.GetLabel() {
				if labels[pair.GetName()] != pair.GetValue() {
					continue metricLoop
				}
			}
			return m.GetCounter().GetValue()
		}
	}
	return 0
}
