package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/Manoj-git-hub/ecommerce-project/internal/domain"
	"github.com/Manoj-git-hub/ecommerce-project/internal/logger"
	"github.com/Manoj-git-hub/ecommerce-project/internal/metrics"
	"github.com/Manoj-git-hub/ecommerce-project/internal/payment"
	"github.com/Manoj-git-hub/ecommerce-project/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// PaymentIntentHandle is returned to the client to complete payment and later
// confirm the order.
type PaymentIntentHandle struct {
	OrderID         uuid.UUID       `json:"order_id"`
	PaymentIntentID string          `json:"payment_intent_id"`
	ClientSecret    string          `json:"client_secret"`
	TotalAmount     decimal.Decimal `json:"total_amount"`
}

// CheckoutService turns carts into orders and drives orders through their
// lifecycle.
type CheckoutService interface {
	// CreatePaymentIntent snapshots the cart into a PENDING order. Cart and
	// stock are left untouched.
	CreatePaymentIntent(ctx context.Context, username string, addressID uuid.UUID) (*PaymentIntentHandle, error)
	// ConfirmOrder decrements stock for every item, deletes the cart and moves
	// the order to PROCESSING, all or nothing. A second confirm of the same
	// intent fails with domain.ErrInvalidTransition.
	ConfirmOrder(ctx context.Context, paymentIntentID string) (*domain.Order, error)
	// UpdateOrderStatus is the administrative path. Unless
	// CheckoutOptions.EnforceAdminTransitions is set it overrides the status
	// from any status.
	UpdateOrderStatus(ctx context.Context, orderID uuid.UUID, status domain.OrderStatus) (*domain.Order, error)
	ListUserOrders(ctx context.Context, username string) ([]*domain.Order, error)
	GetUserOrder(ctx context.Context, username string, orderID uuid.UUID) (*domain.Order, error)
}

type CheckoutOptions struct {
	// EventsTopic enables outbox events for order changes when non-empty.
	EventsTopic             string
	Currency                string
	EnforceAdminTransitions bool
}

type checkoutService struct {
	store    repository.Store
	payments payment.Provider
	logger   *zap.Logger
	metrics  *metrics.Metrics
	opts     CheckoutOptions
	now      func() time.Time
}

func NewCheckoutService(
	store repository.Store,
	payments payment.Provider,
	logger *zap.Logger,
	m *metrics.Metrics,
	opts CheckoutOptions,
) CheckoutService {
	if opts.Currency == "" {
		opts.Currency = "usd"
	}
	return &checkoutService{
		store:    store,
		payments: payments,
		logger:   logger,
		metrics:  m,
		opts:     opts,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (s *checkoutService) CreatePaymentIntent(ctx context.Context, username string, addressID uuid.UUID) (handle *PaymentIntentHandle, err error) {
	ctx, span := tracer.Start(ctx, "CheckoutService.CreatePaymentIntent", trace.WithAttributes(
		attribute.String("address_id", addressID.String()),
	))
	defer func() {
		s.metrics.CheckoutOutcome("create_payment_intent", outcome(err))
		endSpan(span, err)
	}()

	user, err := resolveUser(ctx, s.store.Users(), username)
	if err != nil {
		return nil, err
	}

	cart, err := s.store.Carts().FindByUserID(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	if cart.IsEmpty() {
		return nil, domain.ErrEmptyCart.WithDetails(map[string]interface{}{"cart_id": cart.ID.String()})
	}

	address, err := s.store.Addresses().FindByIDAndUser(ctx, addressID, user.ID)
	if err != nil {
		return nil, err
	}

	ledger := NewInventoryLedger(s.store.Inventory())
	for _, item := range cart.Items {
		product, err := s.store.Products().FindByID(ctx, item.ProductID)
		if err != nil {
			return nil, err
		}
		ok, err := ledger.CheckAvailable(ctx, item.ProductID, item.Quantity)
		if err != nil {
			return nil, fmt.Errorf("failed to check stock: %w", err)
		}
		if !ok {
			s.metrics.StockShortfall(metrics.ShortfallAdvisory)
			return nil, domain.ErrInsufficientStock.WithDetails(map[string]interface{}{
				"product_id":   product.ID.String(),
				"product_name": product.Name,
				"requested":    item.Quantity,
				"available":    product.Stock,
			})
		}
	}

	total := domain.CartTotalMinorUnits(cart)
	intent, err := s.payments.CreateIntent(ctx, total, s.opts.Currency)
	if err != nil {
		return nil, fmt.Errorf("failed to create payment intent: %w", err)
	}

	order := domain.NewOrderFromCart(cart, address.ID, intent.ID, s.now())
	err = s.store.WithinTx(ctx, func(tx repository.Store) error {
		if err := tx.Orders().Create(ctx, order); err != nil {
			return err
		}
		return s.recordEvent(ctx, tx, domain.EventOrderCreated, order, "")
	})
	if err != nil {
		return nil, err
	}

	span.SetAttributes(attribute.String("order_id", order.ID.String()))
	logger.WithTrace(ctx, s.logger).Info("Payment intent created",
		zap.String("order_id", order.ID.String()),
		zap.String("payment_intent_id", intent.ID),
		zap.String("total", order.TotalAmount.StringFixed(2)),
	)

	return &PaymentIntentHandle{
		OrderID:         order.ID,
		PaymentIntentID: intent.ID,
		ClientSecret:    intent.ClientSecret,
		TotalAmount:     order.TotalAmount,
	}, nil
}

func (s *checkoutService) ConfirmOrder(ctx context.Context, paymentIntentID string) (confirmed *domain.Order, err error) {
	ctx, span := tracer.Start(ctx, "CheckoutService.ConfirmOrder", trace.WithAttributes(
		attribute.String("payment_intent_id", paymentIntentID),
	))
	defer func() {
		s.metrics.CheckoutOutcome("confirm_order", outcome(err))
		endSpan(span, err)
	}()

	err = s.store.WithinTx(ctx, func(tx repository.Store) error {
		order, err := tx.Orders().LockByPaymentIntentID(ctx, paymentIntentID)
		if err != nil {
			return err
		}

		if order.Status != domain.OrderStatusPending {
			return domain.ErrInvalidTransition.WithDetails(map[string]interface{}{
				"order_id":        order.ID.String(),
				"current_status":  string(order.Status),
				"required_status": string(domain.OrderStatusPending),
			})
		}

		ledger := NewInventoryLedger(tx.Inventory())
		for _, item := range itemsInLockOrder(order.Items) {
			if err := ledger.Decrement(ctx, item.ProductID, item.Quantity); err != nil {
				if errors.Is(err, domain.ErrInsufficientStock) {
					s.metrics.StockShortfall(metrics.ShortfallCritical)
					return domain.ErrCriticalInsufficientStock.WithDetails(map[string]interface{}{
						"order_id":   order.ID.String(),
						"product_id": item.ProductID.String(),
						"requested":  item.Quantity,
					}).Wrap(err)
				}
				return err
			}
		}

		// A cart already emptied by the user is not an error.
		if err := tx.Carts().DeleteByUserID(ctx, order.UserID); err != nil && !errors.Is(err, domain.ErrCartNotFound) {
			return err
		}

		if err := order.TransitionTo(domain.OrderStatusProcessing, s.now()); err != nil {
			return err
		}
		if err := tx.Orders().UpdateStatus(ctx, order.ID, order.Status, order.UpdatedAt); err != nil {
			return err
		}
		if err := s.recordEvent(ctx, tx, domain.EventOrderConfirmed, order, domain.OrderStatusPending); err != nil {
			return err
		}

		confirmed = order
		return nil
	})
	if err != nil {
		if domain.KindOf(err) == domain.KindCriticalInsufficientStock {
			logger.WithTrace(ctx, s.logger).Error("Order confirmation failed on stock",
				zap.String("payment_intent_id", paymentIntentID),
				zap.Error(err),
			)
		}
		return nil, err
	}

	logger.WithTrace(ctx, s.logger).Info("Order confirmed",
		zap.String("order_id", confirmed.ID.String()),
		zap.String("payment_intent_id", paymentIntentID),
	)
	return confirmed, nil
}

// itemsInLockOrder sorts a copy of items by product id. Every confirmation
// takes product row locks in this order, so overlapping orders cannot deadlock.
func itemsInLockOrder(items []domain.OrderItem) []domain.OrderItem {
	sorted := slices.Clone(items)
	slices.SortFunc(sorted, func(a, b domain.OrderItem) int {
		return bytes.Compare(a.ProductID[:], b.ProductID[:])
	})
	return sorted
}

func (s *checkoutService) UpdateOrderStatus(ctx context.Context, orderID uuid.UUID, status domain.OrderStatus) (updated *domain.Order, err error) {
	ctx, span := tracer.Start(ctx, "CheckoutService.UpdateOrderStatus", trace.WithAttributes(
		attribute.String("order_id", orderID.String()),
		attribute.String("status", string(status)),
	))
	defer func() {
		s.metrics.CheckoutOutcome("update_order_status", outcome(err))
		endSpan(span, err)
	}()

	if !status.IsValid() {
		return nil, domain.ErrInvalidArgument.WithDetails(map[string]interface{}{"status": string(status)})
	}

	err = s.store.WithinTx(ctx, func(tx repository.Store) error {
		order, err := tx.Orders().LockByID(ctx, orderID)
		if err != nil {
			return err
		}

		previous := order.Status
		if s.opts.EnforceAdminTransitions {
			if err := order.TransitionTo(status, s.now()); err != nil {
				return err
			}
		} else {
			if !previous.CanTransitionTo(status) {
				logger.WithTrace(ctx, s.logger).Warn("Admin status override outside transition table",
					zap.String("order_id", order.ID.String()),
					zap.String("from", string(previous)),
					zap.String("to", string(status)),
				)
			}
			order.OverrideStatus(status, s.now())
		}

		if err := tx.Orders().UpdateStatus(ctx, order.ID, order.Status, order.UpdatedAt); err != nil {
			return err
		}
		if err := s.recordEvent(ctx, tx, domain.EventOrderStatusChanged, order, previous); err != nil {
			return err
		}

		updated = order
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *checkoutService) ListUserOrders(ctx context.Context, username string) ([]*domain.Order, error) {
	user, err := resolveUser(ctx, s.store.Users(), username)
	if err != nil {
		return nil, err
	}
	return s.store.Orders().ListByUser(ctx, user.ID)
}

func (s *checkoutService) GetUserOrder(ctx context.Context, username string, orderID uuid.UUID) (*domain.Order, error) {
	user, err := resolveUser(ctx, s.store.Users(), username)
	if err != nil {
		return nil, err
	}
	return s.store.Orders().FindByIDAndUser(ctx, orderID, user.ID)
}

func (s *checkoutService) recordEvent(ctx context.Context, tx repository.Store, eventType string, order *domain.Order, previous domain.OrderStatus) error {
	if s.opts.EventsTopic == "" {
		return nil
	}
	record, err := domain.NewOutboxRecord(s.opts.EventsTopic, domain.NewOrderEvent(eventType, order, previous, s.now()))
	if err != nil {
		return fmt.Errorf("failed to encode %s event: %w", eventType, err)
	}
	return tx.Outbox().Insert(ctx, record)
}
