package service

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/Manoj-git-hub/ecommerce-project/internal/domain"
	"github.com/Manoj-git-hub/ecommerce-project/internal/logger"
	"github.com/Manoj-git-hub/ecommerce-project/internal/metrics"
	"github.com/Manoj-git-hub/ecommerce-project/internal/repository"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// CartService manages the single active cart of each user. Stock checks made
// here are advisory; nothing is reserved until an order is confirmed.
type CartService interface {
	GetOrCreateCart(ctx context.Context, username string) (*domain.Cart, error)
	// GetCart never creates a cart and returns domain.ErrCartNotFound instead.
	GetCart(ctx context.Context, username string) (*domain.Cart, error)
	AddItem(ctx context.Context, username string, productID uuid.UUID, quantity int) (*domain.CartItem, error)
	// UpdateQuantity with quantity <= 0 removes the line.
	UpdateQuantity(ctx context.Context, username string, productID uuid.UUID, quantity int) (*domain.CartItem, error)
	// RemoveItem returns the line that was removed.
	RemoveItem(ctx context.Context, username string, productID uuid.UUID) (*domain.CartItem, error)
}

type cartService struct {
	store   repository.Store
	ledger  InventoryLedger
	logger  *zap.Logger
	metrics *metrics.Metrics
}

func NewCartService(store repository.Store, logger *zap.Logger, m *metrics.Metrics) CartService {
	return &cartService{
		store:   store,
		ledger:  NewInventoryLedger(store.Inventory()),
		logger:  logger,
		metrics: m,
	}
}

func (s *cartService) GetOrCreateCart(ctx context.Context, username string) (*domain.Cart, error) {
	user, err := resolveUser(ctx, s.store.Users(), username)
	if err != nil {
		return nil, err
	}
	return s.store.Carts().GetOrCreate(ctx, user.ID)
}

func (s *cartService) GetCart(ctx context.Context, username string) (*domain.Cart, error) {
	user, err := resolveUser(ctx, s.store.Users(), username)
	if err != nil {
		return nil, err
	}
	return s.store.Carts().FindByUserID(ctx, user.ID)
}

func (s *cartService) AddItem(ctx context.Context, username string, productID uuid.UUID, quantity int) (item *domain.CartItem, err error) {
	ctx, span := tracer.Start(ctx, "CartService.AddItem", trace.WithAttributes(
		attribute.String("product_id", productID.String()),
		attribute.Int("quantity", quantity),
	))
	defer func() { endSpan(span, err) }()

	if quantity <= 0 {
		return nil, domain.ErrInvalidQuantity.WithDetails(map[string]interface{}{"quantity": quantity})
	}

	user, err := resolveUser(ctx, s.store.Users(), username)
	if err != nil {
		return nil, err
	}

	product, err := s.store.Products().FindByID(ctx, productID)
	if err != nil {
		return nil, err
	}

	cart, err := s.store.Carts().GetOrCreate(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	requested := quantity
	if existing, ok := cart.Item(productID); ok {
		requested = addQuantities(existing.Quantity, quantity)
	}
	if err := s.checkStock(ctx, product, requested); err != nil {
		return nil, err
	}

	item, err = s.store.Carts().AddItemQuantity(ctx, cart.ID, productID, quantity, product.Price)
	if err != nil {
		return nil, err
	}

	logger.WithTrace(ctx, s.logger).Debug("Cart item added",
		zap.String("username", username),
		zap.String("product_id", productID.String()),
		zap.Int("quantity", item.Quantity),
	)
	return item, nil
}

func (s *cartService) UpdateQuantity(ctx context.Context, username string, productID uuid.UUID, quantity int) (*domain.CartItem, error) {
	if quantity <= 0 {
		return s.RemoveItem(ctx, username, productID)
	}

	user, err := resolveUser(ctx, s.store.Users(), username)
	if err != nil {
		return nil, err
	}

	product, err := s.store.Products().FindByID(ctx, productID)
	if err != nil {
		return nil, err
	}

	cart, item, err := s.findLine(ctx, user.ID, productID)
	if err != nil {
		return nil, err
	}

	if err := s.checkStock(ctx, product, quantity); err != nil {
		return nil, err
	}

	if err := s.store.Carts().SetItemQuantity(ctx, cart.ID, productID, quantity); err != nil {
		return nil, err
	}

	updated := *item
	updated.Quantity = quantity
	return &updated, nil
}

func (s *cartService) RemoveItem(ctx context.Context, username string, productID uuid.UUID) (*domain.CartItem, error) {
	user, err := resolveUser(ctx, s.store.Users(), username)
	if err != nil {
		return nil, err
	}

	if _, err := s.store.Products().FindByID(ctx, productID); err != nil {
		return nil, err
	}

	cart, item, err := s.findLine(ctx, user.ID, productID)
	if err != nil {
		return nil, err
	}

	if err := s.store.Carts().DeleteItem(ctx, cart.ID, productID); err != nil {
		return nil, err
	}

	removed := *item
	return &removed, nil
}

// findLine returns domain.ErrItemNotInCart when the user has no cart or the
// cart has no line for productID.
func (s *cartService) findLine(ctx context.Context, userID, productID uuid.UUID) (*domain.Cart, *domain.CartItem, error) {
	cart, err := s.store.Carts().FindByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrCartNotFound) {
			return nil, nil, itemNotInCart(productID)
		}
		return nil, nil, err
	}

	item, ok := cart.Item(productID)
	if !ok {
		return nil, nil, itemNotInCart(productID)
	}
	return cart, item, nil
}

// addQuantities saturates at math.MaxInt so an overflowing sum still fails
// the stock check.
func addQuantities(a, b int) int {
	if a > math.MaxInt-b {
		return math.MaxInt
	}
	return a + b
}

func (s *cartService) checkStock(ctx context.Context, product *domain.Product, requested int) error {
	ok, err := s.ledger.CheckAvailable(ctx, product.ID, requested)
	if err != nil {
		return fmt.Errorf("failed to check stock: %w", err)
	}
	if ok {
		return nil
	}

	s.metrics.StockShortfall(metrics.ShortfallAdvisory)
	return domain.ErrInsufficientStock.WithDetails(map[string]interface{}{
		"product_id":   product.ID.String(),
		"product_name": product.Name,
		"requested":    requested,
		"available":    product.Stock,
	})
}

func itemNotInCart(productID uuid.UUID) error {
	return domain.ErrItemNotInCart.WithDetails(map[string]interface{}{"product_id": productID.String()})
}
