// Package memory is an in-process implementation of repository.Store. A
// transaction works on a private copy of the data that replaces the shared
// copy only when the transaction succeeds.
package memory

import (
	"context"
	"sync"

	"github.com/Manoj-git-hub/ecommerce-project/internal/domain"
	"github.com/Manoj-git-hub/ecommerce-project/internal/repository"

	"github.com/google/uuid"
)

type data struct {
	users      map[uuid.UUID]*domain.User
	categories map[uuid.UUID]*domain.Category
	products   map[uuid.UUID]*domain.Product
	carts      map[uuid.UUID]*domain.Cart // keyed by user id
	addresses  map[uuid.UUID]*domain.Address
	orders     map[uuid.UUID]*domain.Order
	outbox     []*domain.OutboxRecord
	outboxSeq  int64
}

func newData() *data {
	return &data{
		users:      make(map[uuid.UUID]*domain.User),
		categories: make(map[uuid.UUID]*domain.Category),
		products:   make(map[uuid.UUID]*domain.Product),
		carts:      make(map[uuid.UUID]*domain.Cart),
		addresses:  make(map[uuid.UUID]*domain.Address),
		orders:     make(map[uuid.UUID]*domain.Order),
	}
}

func (d *data) clone() *data {
	c := newData()
	for k, v := range d.users {
		u := *v
		c.users[k] = &u
	}
	for k, v := range d.categories {
		cat := *v
		c.categories[k] = &cat
	}
	for k, v := range d.products {
		p := *v
		c.products[k] = &p
	}
	for k, v := range d.carts {
		c.carts[k] = v.Clone()
	}
	for k, v := range d.addresses {
		a := *v
		c.addresses[k] = &a
	}
	for k, v := range d.orders {
		c.orders[k] = v.Clone()
	}
	c.outbox = make([]*domain.OutboxRecord, len(d.outbox))
	for i, r := range d.outbox {
		c.outbox[i] = cloneRecord(r)
	}
	c.outboxSeq = d.outboxSeq
	return c
}

// Store implements repository.Store in memory.
type Store struct {
	mu   *sync.Mutex
	db   *data
	inTx bool
}

var _ repository.Store = (*Store)(nil)

func New() *Store {
	return &Store{mu: &sync.Mutex{}, db: newData()}
}

func (s *Store) Users() repository.UserRepository          { return &userRepository{s} }
func (s *Store) Categories() repository.CategoryRepository { return &categoryRepository{s} }
func (s *Store) Products() repository.ProductRepository    { return &productRepository{s} }
func (s *Store) Inventory() repository.InventoryRepository { return &inventoryRepository{s} }
func (s *Store) Carts() repository.CartRepository          { return &cartRepository{s} }
func (s *Store) Addresses() repository.AddressRepository   { return &addressRepository{s} }
func (s *Store) Orders() repository.OrderRepository        { return &orderRepository{s} }
func (s *Store) Outbox() repository.OutboxRepository       { return &outboxRepository{s} }

func (s *Store) WithinTx(ctx context.Context, fn func(tx repository.Store) error) error {
	if s.inTx {
		return fn(s)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &Store{mu: s.mu, db: s.db.clone(), inTx: true}
	if err := fn(tx); err != nil {
		return err
	}
	*s.db = *tx.db
	return nil
}

// run executes fn under the store lock, unless the caller already holds it
// through WithinTx.
func (s *Store) run(fn func(d *data) error) error {
	if !s.inTx {
		s.mu.Lock()
		defer s.mu.Unlock()
	}
	return fn(s.db)
}

func cloneRecord(r *domain.OutboxRecord) *domain.OutboxRecord {
	c := *r
	c.Payload = append([]byte(nil), r.Payload...)
	if r.SentAt != nil {
		sent := *r.SentAt
		c.SentAt = &sent
	}
	return &c
}
