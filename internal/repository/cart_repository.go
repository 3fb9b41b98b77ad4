package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Manoj-git-hub/ecommerce-project/internal/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CartRepository defines the interface for cart data access
type CartRepository interface {
	// FindByUserID returns the user's cart with its items, or
	// domain.ErrCartNotFound.
	FindByUserID(ctx context.Context, userID uuid.UUID) (*domain.Cart, error)
	// GetOrCreate returns the user's cart, creating an empty one if needed.
	// Concurrent callers for the same user observe the same cart.
	GetOrCreate(ctx context.Context, userID uuid.UUID) (*domain.Cart, error)
	// AddItemQuantity inserts a line or, when the product is already in the
	// cart, adds quantity to it. The price is only recorded on insert.
	AddItemQuantity(ctx context.Context, cartID, productID uuid.UUID, quantity int, price decimal.Decimal) (*domain.CartItem, error)
	SetItemQuantity(ctx context.Context, cartID, productID uuid.UUID, quantity int) error
	DeleteItem(ctx context.Context, cartID, productID uuid.UUID) error
	// DeleteByUserID removes the cart and, by cascade, its items.
	DeleteByUserID(ctx context.Context, userID uuid.UUID) error
}

type cartRepository struct {
	db DBTX
}

func NewCartRepository(db DBTX) CartRepository {
	return &cartRepository{db: db}
}

func (r *cartRepository) FindByUserID(ctx context.Context, userID uuid.UUID) (*domain.Cart, error) {
	query := `
		SELECT id, user_id, created_at, updated_at
		FROM carts
		WHERE user_id = $1
	`

	cart := &domain.Cart{}
	err := r.db.QueryRowContext(ctx, query, userID).Scan(
		&cart.ID,
		&cart.UserID,
		&cart.CreatedAt,
		&cart.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrCartNotFound
		}
		return nil, fmt.Errorf("failed to find cart: %w", err)
	}

	items, err := r.items(ctx, cart.ID)
	if err != nil {
		return nil, err
	}
	cart.Items = items

	return cart, nil
}

func (r *cartRepository) items(ctx context.Context, cartID uuid.UUID) ([]domain.CartItem, error) {
	query := `
		SELECT id, product_id, quantity, price_at_addition
		FROM cart_items
		WHERE cart_id = $1
		ORDER BY created_at ASC, id ASC
	`

	rows, err := r.db.QueryContext(ctx, query, cartID)
	if err != nil {
		return nil, fmt.Errorf("failed to list cart items: %w", err)
	}
	defer rows.Close()

	items := []domain.CartItem{}
	for rows.Next() {
		var item domain.CartItem
		if err := rows.Scan(&item.ID, &item.ProductID, &item.Quantity, &item.PriceAtAddition); err != nil {
			return nil, fmt.Errorf("failed to scan cart item: %w", err)
		}
		items = append(items, item)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating cart items: %w", err)
	}

	return items, nil
}

func (r *cartRepository) GetOrCreate(ctx context.Context, userID uuid.UUID) (*domain.Cart, error) {
	now := time.Now().UTC()
	query := `
		INSERT INTO carts (id, user_id, created_at, updated_at)
		VALUES ($1, $2, $3, $3)
		ON CONFLICT (user_id) DO NOTHING
	`

	if _, err := r.db.ExecContext(ctx, query, uuid.New(), userID, now); err != nil {
		return nil, fmt.Errorf("failed to create cart: %w", err)
	}

	return r.FindByUserID(ctx, userID)
}

func (r *cartRepository) AddItemQuantity(ctx context.Context, cartID, productID uuid.UUID, quantity int, price decimal.Decimal) (*domain.CartItem, error) {
	query := `
		INSERT INTO cart_items (id, cart_id, product_id, quantity, price_at_addition, created_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		ON CONFLICT (cart_id, product_id)
		DO UPDATE SET quantity = cart_items.quantity + EXCLUDED.quantity
		RETURNING id, product_id, quantity, price_at_addition
	`

	item := &domain.CartItem{}
	err := r.db.QueryRowContext(ctx, query, uuid.New(), cartID, productID, quantity, price).Scan(
		&item.ID,
		&item.ProductID,
		&item.Quantity,
		&item.PriceAtAddition,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to add cart item: %w", err)
	}

	if err := r.touch(ctx, cartID); err != nil {
		return nil, err
	}
	return item, nil
}

func (r *cartRepository) SetItemQuantity(ctx context.Context, cartID, productID uuid.UUID, quantity int) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE cart_items SET quantity = $3 WHERE cart_id = $1 AND product_id = $2`,
		cartID, productID, quantity,
	)
	if err != nil {
		return fmt.Errorf("failed to update cart item: %w", err)
	}
	if err := expectOneRow(result, domain.ErrItemNotInCart); err != nil {
		return err
	}
	return r.touch(ctx, cartID)
}

func (r *cartRepository) DeleteItem(ctx context.Context, cartID, productID uuid.UUID) error {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM cart_items WHERE cart_id = $1 AND product_id = $2`,
		cartID, productID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete cart item: %w", err)
	}
	if err := expectOneRow(result, domain.ErrItemNotInCart); err != nil {
		return err
	}
	return r.touch(ctx, cartID)
}

func (r *cartRepository) DeleteByUserID(ctx context.Context, userID uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM carts WHERE user_id = $1`, userID)
	if err != nil {
		return fmt.Errorf("failed to delete cart: %w", err)
	}
	return expectOneRow(result, domain.ErrCartNotFound)
}

func (r *cartRepository) touch(ctx context.Context, cartID uuid.UUID) error {
	if _, err := r.db.ExecContext(ctx, `UPDATE carts SET updated_at = NOW() WHERE id = $1`, cartID); err != nil {
		return fmt.Errorf("failed to touch cart: %w", err)
	}
	return nil
}
