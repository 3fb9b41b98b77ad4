package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Manoj-git-hub/ecommerce-project/internal/domain"

	"github.com/google/uuid"
)

// InventoryRepository is the only path through which checkout changes stock.
type InventoryRepository interface {
	// StockOf returns the units on hand for productID.
	StockOf(ctx context.Context, productID uuid.UUID) (int, error)
	// Decrement removes quantity units in a single conditional statement, so
	// concurrent callers can never drive stock below zero.
	Decrement(ctx context.Context, productID uuid.UUID, quantity int) error
}

type inventoryRepository struct {
	db DBTX
}

func NewInventoryRepository(db DBTX) InventoryRepository {
	return &inventoryRepository{db: db}
}

func (r *inventoryRepository) StockOf(ctx context.Context, productID uuid.UUID) (int, error) {
	var stock int
	err := r.db.QueryRowContext(ctx, `SELECT stock FROM products WHERE id = $1`, productID).Scan(&stock)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, domain.ErrProductNotFound
		}
		return 0, fmt.Errorf("failed to read stock: %w", err)
	}
	return stock, nil
}

func (r *inventoryRepository) Decrement(ctx context.Context, productID uuid.UUID, quantity int) error {
	if quantity <= 0 {
		return domain.ErrInvalidQuantity
	}

	query := `
		UPDATE products
		SET stock = stock - $2, updated_at = NOW()
		WHERE id = $1 AND stock >= $2
	`

	result, err := r.db.ExecContext(ctx, query, productID, quantity)
	if err != nil {
		return fmt.Errorf("failed to decrement stock: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 1 {
		return nil
	}

	// Nothing updated: either the product is gone or it is short.
	stock, err := r.StockOf(ctx, productID)
	if err != nil {
		return err
	}
	return domain.ErrInsufficientStock.WithDetails(map[string]interface{}{
		"product_id": productID.String(),
		"requested":  quantity,
		"available":  stock,
	})
}
