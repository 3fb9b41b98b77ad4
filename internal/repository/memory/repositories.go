package memory

import (
	"context"
	"sort"
	"time"

	"github.com/Manoj-git-hub/ecommerce-project/internal/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type userRepository struct{ s *Store }

func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	return r.s.run(func(d *data) error {
		for _, u := range d.users {
			if u.Username == user.Username || u.Email == user.Email {
				return domain.ErrUserAlreadyExists
			}
		}
		u := *user
		d.users[user.ID] = &u
		return nil
	})
}

func (r *userRepository) FindByUsername(ctx context.Context, username string) (*domain.User, error) {
	var out *domain.User
	err := r.s.run(func(d *data) error {
		for _, u := range d.users {
			if u.Username == username {
				c := *u
				out = &c
				return nil
			}
		}
		return domain.ErrUserNotFound
	})
	return out, err
}

func (r *userRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	var out *domain.User
	err := r.s.run(func(d *data) error {
		u, ok := d.users[id]
		if !ok {
			return domain.ErrUserNotFound
		}
		c := *u
		out = &c
		return nil
	})
	return out, err
}

type categoryRepository struct{ s *Store }

func (r *categoryRepository) Create(ctx context.Context, category *domain.Category) error {
	return r.s.run(func(d *data) error {
		for _, c := range d.categories {
			if c.Name == category.Name {
				return domain.ErrCategoryAlreadyExists
			}
		}
		c := *category
		d.categories[category.ID] = &c
		return nil
	})
}

func (r *categoryRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Category, error) {
	var out *domain.Category
	err := r.s.run(func(d *data) error {
		c, ok := d.categories[id]
		if !ok {
			return domain.ErrCategoryNotFound
		}
		cp := *c
		out = &cp
		return nil
	})
	return out, err
}

type productRepository struct{ s *Store }

func (r *productRepository) Create(ctx context.Context, product *domain.Product) error {
	return r.s.run(func(d *data) error {
		p := *product
		d.products[product.ID] = &p
		return nil
	})
}

func (r *productRepository) Update(ctx context.Context, product *domain.Product) error {
	return r.s.run(func(d *data) error {
		if _, ok := d.products[product.ID]; !ok {
			return domain.ErrProductNotFound
		}
		p := *product
		d.products[product.ID] = &p
		return nil
	})
}

func (r *productRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.s.run(func(d *data) error {
		if _, ok := d.products[id]; !ok {
			return domain.ErrProductNotFound
		}
		delete(d.products, id)
		return nil
	})
}

func (r *productRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	var out *domain.Product
	err := r.s.run(func(d *data) error {
		p, ok := d.products[id]
		if !ok {
			return domain.ErrProductNotFound
		}
		cp := *p
		out = &cp
		return nil
	})
	return out, err
}

type inventoryRepository struct{ s *Store }

func (r *inventoryRepository) StockOf(ctx context.Context, productID uuid.UUID) (int, error) {
	var stock int
	err := r.s.run(func(d *data) error {
		p, ok := d.products[productID]
		if !ok {
			return domain.ErrProductNotFound
		}
		stock = p.Stock
		return nil
	})
	return stock, err
}

func (r *inventoryRepository) Decrement(ctx context.Context, productID uuid.UUID, quantity int) error {
	if quantity <= 0 {
		return domain.ErrInvalidQuantity
	}
	return r.s.run(func(d *data) error {
		p, ok := d.products[productID]
		if !ok {
			return domain.ErrProductNotFound
		}
		if p.Stock < quantity {
			return domain.ErrInsufficientStock.WithDetails(map[string]interface{}{
				"product_id": productID.String(),
				"requested":  quantity,
				"available":  p.Stock,
			})
		}
		p.Stock -= quantity
		p.UpdatedAt = time.Now().UTC()
		return nil
	})
}

type cartRepository struct{ s *Store }

func (d *data) cartByID(cartID uuid.UUID) (*domain.Cart, bool) {
	for _, c := range d.carts {
		if c.ID == cartID {
			return c, true
		}
	}
	return nil, false
}

func (r *cartRepository) FindByUserID(ctx context.Context, userID uuid.UUID) (*domain.Cart, error) {
	var out *domain.Cart
	err := r.s.run(func(d *data) error {
		c, ok := d.carts[userID]
		if !ok {
			return domain.ErrCartNotFound
		}
		out = c.Clone()
		return nil
	})
	return out, err
}

func (r *cartRepository) GetOrCreate(ctx context.Context, userID uuid.UUID) (*domain.Cart, error) {
	var out *domain.Cart
	err := r.s.run(func(d *data) error {
		c, ok := d.carts[userID]
		if !ok {
			now := time.Now().UTC()
			c = &domain.Cart{ID: uuid.New(), UserID: userID, Items: []domain.CartItem{}, CreatedAt: now, UpdatedAt: now}
			d.carts[userID] = c
		}
		out = c.Clone()
		return nil
	})
	return out, err
}

func (r *cartRepository) AddItemQuantity(ctx context.Context, cartID, productID uuid.UUID, quantity int, price decimal.Decimal) (*domain.CartItem, error) {
	var out domain.CartItem
	err := r.s.run(func(d *data) error {
		c, ok := d.cartByID(cartID)
		if !ok {
			return domain.ErrCartNotFound
		}
		if item, ok := c.Item(productID); ok {
			item.Quantity += quantity
			out = *item
		} else {
			out = domain.CartItem{ID: uuid.New(), ProductID: productID, Quantity: quantity, PriceAtAddition: price}
			c.Items = append(c.Items, out)
		}
		c.UpdatedAt = time.Now().UTC()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *cartRepository) SetItemQuantity(ctx context.Context, cartID, productID uuid.UUID, quantity int) error {
	return r.s.run(func(d *data) error {
		c, ok := d.cartByID(cartID)
		if !ok {
			return domain.ErrItemNotInCart
		}
		item, ok := c.Item(productID)
		if !ok {
			return domain.ErrItemNotInCart
		}
		item.Quantity = quantity
		c.UpdatedAt = time.Now().UTC()
		return nil
	})
}

func (r *cartRepository) DeleteItem(ctx context.Context, cartID, productID uuid.UUID) error {
	return r.s.run(func(d *data) error {
		c, ok := d.cartByID(cartID)
		if !ok {
			return domain.ErrItemNotInCart
		}
		for i := range c.Items {
			if c.Items[i].ProductID == productID {
				c.Items = append(c.Items[:i], c.Items[i+1:]...)
				c.UpdatedAt = time.Now().UTC()
				return nil
			}
		}
		return domain.ErrItemNotInCart
	})
}

func (r *cartRepository) DeleteByUserID(ctx context.Context, userID uuid.UUID) error {
	return r.s.run(func(d *data) error {
		if _, ok := d.carts[userID]; !ok {
			return domain.ErrCartNotFound
		}
		delete(d.carts, userID)
		return nil
	})
}

type addressRepository struct{ s *Store }

func (r *addressRepository) Create(ctx context.Context, address *domain.Address) error {
	return r.s.run(func(d *data) error {
		a := *address
		d.addresses[address.ID] = &a
		return nil
	})
}

func (r *addressRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*domain.Address, error) {
	out := []*domain.Address{}
	err := r.s.run(func(d *data) error {
		for _, a := range d.addresses {
			if a.UserID == userID {
				c := *a
				out = append(out, &c)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, err
}

func (r *addressRepository) FindByIDAndUser(ctx context.Context, id, userID uuid.UUID) (*domain.Address, error) {
	var out *domain.Address
	err := r.s.run(func(d *data) error {
		a, ok := d.addresses[id]
		if !ok || a.UserID != userID {
			return domain.ErrAddressNotFound
		}
		c := *a
		out = &c
		return nil
	})
	return out, err
}

type orderRepository struct{ s *Store }

func (r *orderRepository) Create(ctx context.Context, order *domain.Order) error {
	return r.s.run(func(d *data) error {
		for _, o := range d.orders {
			if o.PaymentIntentID == order.PaymentIntentID {
				return domain.ErrPaymentIntentConflict
			}
		}
		d.orders[order.ID] = order.Clone()
		return nil
	})
}

func (r *orderRepository) find(match func(o *domain.Order) bool) (*domain.Order, error) {
	var out *domain.Order
	err := r.s.run(func(d *data) error {
		for _, o := range d.orders {
			if match(o) {
				out = o.Clone()
				return nil
			}
		}
		return domain.ErrOrderNotFound
	})
	return out, err
}

func (r *orderRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	return r.find(func(o *domain.Order) bool { return o.ID == id })
}

func (r *orderRepository) FindByIDAndUser(ctx context.Context, id, userID uuid.UUID) (*domain.Order, error) {
	return r.find(func(o *domain.Order) bool { return o.ID == id && o.UserID == userID })
}

// LockByID is FindByID: transactions already hold the store lock.
func (r *orderRepository) LockByID(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	return r.FindByID(ctx, id)
}

func (r *orderRepository) LockByPaymentIntentID(ctx context.Context, paymentIntentID string) (*domain.Order, error) {
	return r.find(func(o *domain.Order) bool { return o.PaymentIntentID == paymentIntentID })
}

func (r *orderRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*domain.Order, error) {
	out := []*domain.Order{}
	err := r.s.run(func(d *data) error {
		for _, o := range d.orders {
			if o.UserID == userID {
				out = append(out, o.Clone())
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		if out[i].OrderDate.Equal(out[j].OrderDate) {
			return out[i].ID.String() > out[j].ID.String()
		}
		return out[i].OrderDate.After(out[j].OrderDate)
	})
	return out, err
}

func (r *orderRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.OrderStatus, updatedAt time.Time) error {
	return r.s.run(func(d *data) error {
		o, ok := d.orders[id]
		if !ok {
			return domain.ErrOrderNotFound
		}
		o.Status = status
		o.UpdatedAt = updatedAt
		return nil
	})
}

type outboxRepository struct{ s *Store }

func (r *outboxRepository) Insert(ctx context.Context, record *domain.OutboxRecord) error {
	return r.s.run(func(d *data) error {
		d.outboxSeq++
		record.ID = d.outboxSeq
		d.outbox = append(d.outbox, cloneRecord(record))
		return nil
	})
}

func (r *outboxRepository) FetchPending(ctx context.Context, limit int) ([]*domain.OutboxRecord, error) {
	out := []*domain.OutboxRecord{}
	err := r.s.run(func(d *data) error {
		for _, rec := range d.outbox {
			if len(out) == limit {
				break
			}
			if rec.SentAt == nil {
				out = append(out, cloneRecord(rec))
			}
		}
		return nil
	})
	return out, err
}

func (r *outboxRepository) MarkSent(ctx context.Context, id int64, sentAt time.Time) error {
	return r.s.run(func(d *data) error {
		for _, rec := range d.outbox {
			if rec.ID == id {
				t := sentAt
				rec.SentAt = &t
				return nil
			}
		}
		return domain.ErrNotFound
	})
}
