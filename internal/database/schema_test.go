package database

import (
	"io/fs"
	"strings"
	"testing"

	"github.com/Manoj-git-hub/ecommerce-project/internal/domain"
	"github.com/Manoj-git-hub/ecommerce-project/migrations"
)

func readMigration(t *testing.T, name string) string {
	t.Helper()
	content, err := fs.ReadFile(migrations.FS, name)
	if err != nil {
		t.Fatalf("Failed to read migration %s: %v", name, err)
	}
	return string(content)
}

func TestMigrationFilesExist(t *testing.T) {
	expectedMigrations := []string{
		"00001_create_users_table.sql",
		"00002_create_categories_table.sql",
		"00003_create_products_table.sql",
		"00004_create_addresses_table.sql",
		"00005_create_carts_table.sql",
		"00006_create_cart_items_table.sql",
		"00007_create_orders_table.sql",
		"00008_create_order_items_table.sql",
		"00009_create_outbox_events_table.sql",
		"00010_create_updated_at_trigger.sql",
	}

	for _, migration := range expectedMigrations {
		if _, err := fs.Stat(migrations.FS, migration); err != nil {
			t.Errorf("Migration file %s is not embedded: %v", migration, err)
		}
	}
}

func TestMigrationFilesHaveUpAndDown(t *testing.T) {
	files, err := fs.Glob(migrations.FS, "*.sql")
	if err != nil {
		t.Fatalf("Failed to list migrations: %v", err)
	}
	if len(files) == 0 {
		t.Fatal("No SQL migration files found")
	}

	directives := []string{
		"-- +goose Up",
		"-- +goose Down",
		"-- +goose StatementBegin",
		"-- +goose StatementEnd",
	}
	for _, name := range files {
		content := readMigration(t, name)
		for _, directive := range directives {
			if !strings.Contains(content, directive) {
				t.Errorf("Migration file %s missing '%s' directive", name, directive)
			}
		}
	}
}

func TestMigrationFilesCreateExpectedTables(t *testing.T) {
	expectedTables := map[string]string{
		"users":         "00001_create_users_table.sql",
		"categories":    "00002_create_categories_table.sql",
		"products":      "00003_create_products_table.sql",
		"addresses":     "00004_create_addresses_table.sql",
		"carts":         "00005_create_carts_table.sql",
		"cart_items":    "00006_create_cart_items_table.sql",
		"orders":        "00007_create_orders_table.sql",
		"order_items":   "00008_create_order_items_table.sql",
		"outbox_events": "00009_create_outbox_events_table.sql",
	}

	for tableName, migrationFile := range expectedTables {
		content := readMigration(t, migrationFile)

		if !strings.Contains(content, "CREATE TABLE IF NOT EXISTS "+tableName+" (") {
			t.Errorf("Migration file %s does not create table %s", migrationFile, tableName)
		}
		if !strings.Contains(content, "DROP TABLE IF EXISTS "+tableName) {
			t.Errorf("Migration file %s does not drop table %s in down section", migrationFile, tableName)
		}
	}
}

func TestProductsStockCannotGoNegative(t *testing.T) {
	content := readMigration(t, "00003_create_products_table.sql")

	if !strings.Contains(content, "CHECK (stock >= 0)") {
		t.Error("Products table missing non-negative stock constraint")
	}
	if !strings.Contains(content, "price DECIMAL(10, 2)") {
		t.Error("Products price must be a two-place decimal")
	}
}

func TestOrdersTableHasStatusConstraint(t *testing.T) {
	content := readMigration(t, "00007_create_orders_table.sql")

	for _, status := range domain.AllOrderStatuses {
		if !strings.Contains(content, "'"+string(status)+"'") {
			t.Errorf("Orders table status constraint missing value: %s", status)
		}
	}
	if !strings.Contains(content, "payment_intent_id VARCHAR(255) UNIQUE NOT NULL") {
		t.Error("Orders table must link each payment intent to at most one order")
	}
}

func TestCartUniqueness(t *testing.T) {
	carts := readMigration(t, "00005_create_carts_table.sql")
	if !strings.Contains(carts, "user_id UUID UNIQUE NOT NULL") {
		t.Error("Carts table must allow one cart per user")
	}

	items := readMigration(t, "00006_create_cart_items_table.sql")
	if !strings.Contains(items, "UNIQUE (cart_id, product_id)") {
		t.Error("Cart items table missing unique constraint on (cart_id, product_id)")
	}
	if !strings.Contains(items, "ON DELETE CASCADE") {
		t.Error("Cart items must be deleted with their cart")
	}
}
