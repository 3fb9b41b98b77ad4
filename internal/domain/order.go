package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// minorUnitExponent is the number of decimal places in one minor currency unit.
const minorUnitExponent = 2

// Order is the snapshot of a cart taken when a payment intent is created.
// Only its status changes after creation.
type Order struct {
	ID                uuid.UUID       `json:"id"`
	UserID            uuid.UUID       `json:"user_id"`
	ShippingAddressID uuid.UUID       `json:"shipping_address_id"`
	PaymentIntentID   string          `json:"payment_intent_id"`
	TotalAmount       decimal.Decimal `json:"total_amount"`
	Status            OrderStatus     `json:"status"`
	OrderDate         time.Time       `json:"order_date"`
	UpdatedAt         time.Time       `json:"updated_at"`
	Items             []OrderItem     `json:"items"`
}

// OrderItem is the permanent price and quantity record of one purchased product.
type OrderItem struct {
	ID           uuid.UUID       `json:"id"`
	ProductID    uuid.UUID       `json:"product_id"`
	Quantity     int             `json:"quantity"`
	PriceAtOrder decimal.Decimal `json:"price_at_order"`
}

// NewOrderFromCart snapshots cart into a PENDING order. Quantities and prices
// are copied verbatim so later cart mutation cannot affect the order.
func NewOrderFromCart(cart *Cart, addressID uuid.UUID, paymentIntentID string, now time.Time) *Order {
	order := &Order{
		ID:                uuid.New(),
		UserID:            cart.UserID,
		ShippingAddressID: addressID,
		PaymentIntentID:   paymentIntentID,
		TotalAmount:       CartTotalMinorUnits(cart),
		Status:            OrderStatusPending,
		OrderDate:         now,
		UpdatedAt:         now,
		Items:             make([]OrderItem, 0, len(cart.Items)),
	}
	for _, item := range cart.Items {
		order.Items = append(order.Items, OrderItem{
			ID:           uuid.New(),
			ProductID:    item.ProductID,
			Quantity:     item.Quantity,
			PriceAtOrder: item.PriceAtAddition,
		})
	}
	return order
}

// CartTotalMinorUnits sums the cart in integer minor units and converts the
// result back to a two-place decimal.
func CartTotalMinorUnits(cart *Cart) decimal.Decimal {
	var cents int64
	for _, item := range cart.Items {
		cents += ToMinorUnits(item.Subtotal())
	}
	return FromMinorUnits(cents)
}

// ToMinorUnits truncates amount to whole minor units.
func ToMinorUnits(amount decimal.Decimal) int64 {
	return amount.Shift(minorUnitExponent).IntPart()
}

// FromMinorUnits converts an integer minor-unit amount to a decimal.
func FromMinorUnits(units int64) decimal.Decimal {
	return decimal.New(units, -minorUnitExponent)
}

// Clone returns a deep copy of the order.
func (o *Order) Clone() *Order {
	if o == nil {
		return nil
	}
	clone := *o
	clone.Items = append([]OrderItem(nil), o.Items...)
	return &clone
}
