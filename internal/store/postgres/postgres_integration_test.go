package postgres

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"latiafanny/backend/internal/domain"
	"latiafanny/backend/internal/store"
)

func TestSaleDecrementsLinkedStockAndCategoryDeleteCascades(t *testing.T) {
	databaseURL := os.Getenv("LATIAFANNY_TEST_DATABASE_URL")
	if databaseURL == "" {
		t.Skip("set LATIAFANNY_TEST_DATABASE_URL to run postgres integration test")
	}

	ctx := context.Background()
	s, err := New(ctx, databaseURL)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = s.Close()
	})
	require.NoError(t, s.Migrate(ctx))

	stamp := time.Now().UnixNano()
	category, err := s.CreateCategory(ctx, domain.Category{Name: fmt.Sprintf("IT Category %d", stamp)})
	require.NoError(t, err)

	sku := fmt.Sprintf("IT-SKU-%d", stamp)
	product, err := s.CreateProduct(ctx, domain.Product{
		SKU:        &sku,
		Name:       "Integration Tapsilog",
		CategoryID: category.ID,
		Cost:       decimal.RequireFromString("65.00"),
		Price:      decimal.RequireFromString("145.00"),
		IsActive:   true,
	})
	require.NoError(t, err)
	assert.Equal(t, category.Name, product.Category.Name)

	item, err := s.CreateInventoryItem(ctx, domain.InventoryItem{
		Name:      "Integration Tapa",
		Quantity:  decimal.NewFromInt(3),
		Unit:      "kg",
		ProductID: &product.ID,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = s.DeleteInventoryItem(ctx, item.ID)
	})

	saleID := "it-" + uuid.NewString()
	t.Cleanup(func() {
		_, _ = s.db.ExecContext(ctx, `DELETE FROM sales WHERE id = $1`, saleID)
	})
	_, err = s.CreateSale(ctx, domain.Sale{
		ID:        saleID,
		Items:     []domain.SaleItem{{ProductID: product.ID, Name: product.Name, Quantity: 5, Price: decimal.RequireFromString("725.00"), Cost: decimal.RequireFromString("325.00")}},
		Payments:  []domain.SalePayment{{Method: "cash", Amount: decimal.RequireFromString("725.00")}},
		Total:     decimal.RequireFromString("725.00"),
		Cashier:   "it",
		CreatedAt: time.Now().UTC(),
	})
	require.NoError(t, err)

	stock, err := s.GetInventoryItem(ctx, item.ID)
	require.NoError(t, err)
	assert.True(t, stock.Quantity.IsZero(), "stock should floor at zero, got %s", stock.Quantity)

	sale, err := s.GetSale(ctx, saleID)
	require.NoError(t, err)
	require.Len(t, sale.Items, 1)
	require.Len(t, sale.Payments, 1)

	require.NoError(t, s.DeleteCategory(ctx, category.ID))
	_, err = s.GetProduct(ctx, product.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)

	stock, err = s.GetInventoryItem(ctx, item.ID)
	require.NoError(t, err)
	assert.Nil(t, stock.ProductID)
}
