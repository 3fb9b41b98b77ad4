package service

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/Manoj-git-hub/ecommerce-project/internal/domain"
	"github.com/Manoj-git-hub/ecommerce-project/internal/metrics"

	"github.com/google/uuid"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/shopspring/decimal"
)

func TestAddItemCreatesCartWithoutTouchingStock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.user(t)
	product := f.product(t, "9.99", 10)

	if _, err := f.carts.GetCart(ctx, user.Username); !errors.Is(err, domain.ErrCartNotFound) {
		t.Fatalf("expected no cart yet, got %v", err)
	}

	item, err := f.carts.AddItem(ctx, user.Username, product.ID, 2)
	if err != nil {
		t.Fatalf("AddItem: %v", err)
	}
	if item.Quantity != 2 {
		t.Errorf("expected quantity 2, got %d", item.Quantity)
	}
	if f.stock(t, product.ID) != 10 {
		t.Errorf("stock changed before confirmation: %d", f.stock(t, product.ID))
	}

	cart, err := f.carts.GetCart(ctx, user.Username)
	if err != nil {
		t.Fatalf("GetCart: %v", err)
	}
	if len(cart.Items) != 1 {
		t.Errorf("expected 1 line, got %d", len(cart.Items))
	}
}

func TestAddItemMergesQuantityAndKeepsPrice(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.user(t)
	product := f.product(t, "9.99", 10)

	if _, err := f.carts.AddItem(ctx, user.Username, product.ID, 2); err != nil {
		t.Fatalf("AddItem: %v", err)
	}
	f.setPrice(t, product.ID, "14.50")

	item, err := f.carts.AddItem(ctx, user.Username, product.ID, 3)
	if err != nil {
		t.Fatalf("AddItem: %v", err)
	}
	if item.Quantity != 5 {
		t.Errorf("expected merged quantity 5, got %d", item.Quantity)
	}
	if !item.PriceAtAddition.Equal(decimal.RequireFromString("9.99")) {
		t.Errorf("price re-captured: %s", item.PriceAtAddition)
	}
}

func TestAddItemValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.user(t)
	product := f.product(t, "1.00", 10)

	tests := []struct {
		name      string
		username  string
		productID uuid.UUID
		quantity  int
		want      error
	}{
		{"zero quantity", user.Username, product.ID, 0, domain.ErrInvalidQuantity},
		{"negative quantity", user.Username, product.ID, -3, domain.ErrInvalidQuantity},
		{"unknown product", user.Username, uuid.New(), 1, domain.ErrProductNotFound},
		{"unknown user", "nobody", product.ID, 1, domain.ErrUserNotFound},
		{"over stock", user.Username, product.ID, 11, domain.ErrInsufficientStock},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.carts.AddItem(ctx, tt.username, tt.productID, tt.quantity)
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestAddItemChecksMergedQuantityAgainstStock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.user(t)
	product := f.product(t, "1.00", 10)

	if _, err := f.carts.AddItem(ctx, user.Username, product.ID, 6); err != nil {
		t.Fatalf("AddItem: %v", err)
	}

	_, err := f.carts.AddItem(ctx, user.Username, product.ID, 5)
	if !errors.Is(err, domain.ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock, got %v", err)
	}

	var de *domain.Error
	if !errors.As(err, &de) || de.Details["requested"] != 11 || de.Details["product_name"] != product.Name {
		t.Errorf("shortfall details missing: %+v", de)
	}
	if got := f.counter(t, "shop_inventory_stock_shortfalls_total", map[string]string{"severity": metrics.ShortfallAdvisory}); got != 1 {
		t.Errorf("expected 1 advisory shortfall, got %v", got)
	}

	cart, _ := f.carts.GetCart(ctx, user.Username)
	if line, _ := cart.Item(product.ID); line.Quantity != 6 {
		t.Errorf("rejected add changed the line: %d", line.Quantity)
	}
}

func TestAddItemRejectsOverflowingMergedQuantity(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.user(t)
	product := f.product(t, "1.00", 10)

	if _, err := f.carts.AddItem(ctx, user.Username, product.ID, 2); err != nil {
		t.Fatalf("AddItem: %v", err)
	}

	_, err := f.carts.AddItem(ctx, user.Username, product.ID, math.MaxInt-1)
	if !errors.Is(err, domain.ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock, got %v", err)
	}

	cart, err := f.carts.GetCart(ctx, user.Username)
	if err != nil {
		t.Fatalf("GetCart: %v", err)
	}
	if line, _ := cart.Item(product.ID); line.Quantity != 2 {
		t.Errorf("expected quantity 2, got %d", line.Quantity)
	}
	if cart.Total().StringFixed(2) != "2.00" {
		t.Errorf("expected total 2.00, got %s", cart.Total().StringFixed(2))
	}
}

func TestUpdateQuantityZeroEqualsRemove(t *testing.T) {
	ctx := context.Background()

	run := func(useUpdate bool) (*domain.CartItem, *domain.Cart) {
		f := newFixture(t)
		user := f.user(t)
		product := f.product(t, "2.00", 10)
		other := f.product(t, "3.00", 10)
		for _, id := range []uuid.UUID{product.ID, other.ID} {
			if _, err := f.carts.AddItem(ctx, user.Username, id, 2); err != nil {
				t.Fatalf("AddItem: %v", err)
			}
		}

		var removed *domain.CartItem
		var err error
		if useUpdate {
			removed, err = f.carts.UpdateQuantity(ctx, user.Username, product.ID, 0)
		} else {
			removed, err = f.carts.RemoveItem(ctx, user.Username, product.ID)
		}
		if err != nil {
			t.Fatalf("remove: %v", err)
		}
		cart, _ := f.carts.GetCart(ctx, user.Username)
		return removed, cart
	}

	updatedItem, updatedCart := run(true)
	removedItem, removedCart := run(false)

	if updatedItem.Quantity != removedItem.Quantity {
		t.Errorf("returned lines differ: %d vs %d", updatedItem.Quantity, removedItem.Quantity)
	}
	if len(updatedCart.Items) != 1 || len(removedCart.Items) != 1 {
		t.Errorf("expected one remaining line in both carts, got %d and %d", len(updatedCart.Items), len(removedCart.Items))
	}
	if !updatedCart.Total().Equal(removedCart.Total()) {
		t.Errorf("totals differ: %s vs %s", updatedCart.Total(), removedCart.Total())
	}
}

func TestUpdateQuantity(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.user(t)
	product := f.product(t, "2.00", 5)
	absent := f.product(t, "2.00", 5)

	if _, err := f.carts.UpdateQuantity(ctx, user.Username, product.ID, 1); !errors.Is(err, domain.ErrItemNotInCart) {
		t.Errorf("expected ErrItemNotInCart without a cart, got %v", err)
	}

	if _, err := f.carts.AddItem(ctx, user.Username, product.ID, 1); err != nil {
		t.Fatalf("AddItem: %v", err)
	}

	item, err := f.carts.UpdateQuantity(ctx, user.Username, product.ID, 4)
	if err != nil {
		t.Fatalf("UpdateQuantity: %v", err)
	}
	if item.Quantity != 4 {
		t.Errorf("expected 4, got %d", item.Quantity)
	}

	if _, err := f.carts.UpdateQuantity(ctx, user.Username, product.ID, 6); !errors.Is(err, domain.ErrInsufficientStock) {
		t.Errorf("expected ErrInsufficientStock, got %v", err)
	}
	if _, err := f.carts.UpdateQuantity(ctx, user.Username, absent.ID, 1); !errors.Is(err, domain.ErrItemNotInCart) {
		t.Errorf("expected ErrItemNotInCart, got %v", err)
	}
}

func TestRemoveItemErrors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.user(t)
	product := f.product(t, "2.00", 5)

	if _, err := f.carts.RemoveItem(ctx, user.Username, uuid.New()); !errors.Is(err, domain.ErrProductNotFound) {
		t.Errorf("expected ErrProductNotFound, got %v", err)
	}
	if _, err := f.carts.RemoveItem(ctx, user.Username, product.ID); !errors.Is(err, domain.ErrItemNotInCart) {
		t.Errorf("expected ErrItemNotInCart, got %v", err)
	}
}

func TestGetOrCreateCartIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.user(t)

	first, err := f.carts.GetOrCreateCart(ctx, user.Username)
	if err != nil {
		t.Fatalf("GetOrCreateCart: %v", err)
	}
	second, err := f.carts.GetOrCreateCart(ctx, user.Username)
	if err != nil {
		t.Fatalf("GetOrCreateCart: %v", err)
	}
	if first.ID != second.ID {
		t.Errorf("expected the same cart, got %s and %s", first.ID, second.ID)
	}
}

// Property: a cart's total always equals the sum of price × quantity of its lines
func TestProperty_CartTotalInvariant(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("cart total equals sum of line subtotals after any add/update sequence", prop.ForAll(
		func(quantities []int, updates []int) bool {
			f := newFixture(t)
			ctx := context.Background()
			user := f.user(t)

			products := make([]*domain.Product, 3)
			for i := range products {
				products[i] = f.product(t, []string{"0.10", "9.99", "3.33"}[i], 1000)
			}

			for i, q := range quantities {
				_, _ = f.carts.AddItem(ctx, user.Username, products[i%3].ID, q)
			}
			for i, q := range updates {
				_, _ = f.carts.UpdateQuantity(ctx, user.Username, products[i%3].ID, q)
			}

			cart, err := f.carts.GetOrCreateCart(ctx, user.Username)
			if err != nil {
				t.Logf("FAIL: GetOrCreateCart: %v", err)
				return false
			}

			var cents int64
			for _, item := range cart.Items {
				if item.Quantity <= 0 {
					t.Logf("FAIL: non-positive line quantity %d", item.Quantity)
					return false
				}
				cents += domain.ToMinorUnits(item.PriceAtAddition) * int64(item.Quantity)
			}
			return cart.Total().Equal(domain.FromMinorUnits(cents))
		},
		gen.SliceOfN(6, gen.IntRange(-1, 20)),
		gen.SliceOfN(3, gen.IntRange(-1, 20)),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}
