package service

import (
	"context"

	"github.com/Manoj-git-hub/ecommerce-project/internal/domain"
	"github.com/Manoj-git-hub/ecommerce-project/internal/repository"

	"github.com/google/uuid"
)

// InventoryLedger is the authority on stock. Decrement is the only operation
// in the application that lowers stock; CheckAvailable is an advisory read.
type InventoryLedger interface {
	CheckAvailable(ctx context.Context, productID uuid.UUID, quantity int) (bool, error)
	Decrement(ctx context.Context, productID uuid.UUID, quantity int) error
}

type inventoryLedger struct {
	inventory repository.InventoryRepository
}

// NewInventoryLedger binds a ledger to inventory. Bind it to a transactional
// store's repository to make decrements part of that transaction.
func NewInventoryLedger(inventory repository.InventoryRepository) InventoryLedger {
	return &inventoryLedger{inventory: inventory}
}

func (l *inventoryLedger) CheckAvailable(ctx context.Context, productID uuid.UUID, quantity int) (bool, error) {
	stock, err := l.inventory.StockOf(ctx, productID)
	if err != nil {
		return false, err
	}
	return stock >= quantity, nil
}

func (l *inventoryLedger) Decrement(ctx context.Context, productID uuid.UUID, quantity int) error {
	if quantity <= 0 {
		return domain.ErrInvalidQuantity.WithDetails(map[string]interface{}{"quantity": quantity})
	}
	return l.inventory.Decrement(ctx, productID, quantity)
}
