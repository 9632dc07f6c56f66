package postgres

import (
	"context"
	"database/sql/driver"
	"fmt"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"latiafanny/backend/internal/domain"
	"latiafanny/backend/internal/store"
)

// textArrayConverter passes []string through the way the pgx driver does.
type textArrayConverter struct{}

func (textArrayConverter) ConvertValue(v any) (driver.Value, error) {
	if ids, ok := v.([]string); ok {
		return ids, nil
	}
	return driver.DefaultParameterConverter.ConvertValue(v)
}

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.ValueConverterOption(textArrayConverter{}))
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		_ = db.Close()
	})
	return NewFromDB(db), mock
}

func TestMigrateRunsEverySchemaStatement(t *testing.T) {
	s, mock := newMockStore(t)

	stmts := schemaStatements()
	require.NotEmpty(t, stmts)
	for _, stmt := range stmts {
		mock.ExpectExec(regexp.QuoteMeta(stmt)).WillReturnResult(sqlmock.NewResult(0, 0))
	}

	require.NoError(t, s.Migrate(context.Background()))
}

func TestListCategories(t *testing.T) {
	s, mock := newMockStore(t)
	at := time.Date(2026, 10, 1, 8, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, name, description, created_at, updated_at FROM categories ORDER BY id`)).
		WillReturnRows(sqlmock.NewRows(categoryColumns).
			AddRow(1, "Silog Meals", nil, at, at).
			AddRow(2, "Drinks", "Cold ones", at, at))

	categories, err := s.ListCategories(context.Background())
	require.NoError(t, err)
	require.Len(t, categories, 2)
	assert.Nil(t, categories[0].Description)
	require.NotNil(t, categories[1].Description)
	assert.Equal(t, "Cold ones", *categories[1].Description)
}

func TestCreateCategoryMapsUniqueViolationToConflict(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO categories (name,description) VALUES ($1,$2) RETURNING id, created_at, updated_at`)).
		WithArgs("Drinks", nil).
		WillReturnError(&pgconn.PgError{Code: "23505"})

	_, err := s.CreateCategory(context.Background(), domain.Category{Name: "Drinks"})
	assert.ErrorIs(t, err, store.ErrConflict)
}

func TestDeleteCategoryReportsMissingRow(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM categories WHERE id = $1`)).
		WithArgs(7).
		WillReturnResult(sqlmock.NewResult(0, 0))

	assert.ErrorIs(t, s.DeleteCategory(context.Background(), 7), store.ErrNotFound)
}

func TestGetProductJoinsCategory(t *testing.T) {
	s, mock := newMockStore(t)
	at := time.Date(2026, 10, 1, 8, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT p.id, p.sku, p.name, p.category_id, c.name, p.cost, p.price, p.description, p.is_active, p.created_at, p.updated_at FROM products p JOIN categories c ON c.id = p.category_id WHERE p.id = $1`)).
		WithArgs(3).
		WillReturnRows(sqlmock.NewRows([]string{"id", "sku", "name", "category_id", "category", "cost", "price", "description", "is_active", "created_at", "updated_at"}).
			AddRow(3, "SIL-TAPA", "Tapsilog", 1, "Silog Meals", "65.00", "145.00", nil, true, at, at))

	p, err := s.GetProduct(context.Background(), 3)
	require.NoError(t, err)
	require.NotNil(t, p.SKU)
	assert.Equal(t, "SIL-TAPA", *p.SKU)
	assert.Equal(t, &domain.CategoryRef{ID: 1, Name: "Silog Meals"}, p.Category)
	assert.True(t, p.Price.Equal(decimal.RequireFromString("145")))
}

func TestGetProductNotFound(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta(`FROM products p JOIN categories c ON c.id = p.category_id WHERE p.id = $1`)).
		WithArgs(99).
		WillReturnRows(sqlmock.NewRows(productColumns))

	_, err := s.GetProduct(context.Background(), 99)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestCreateProductMapsMissingCategoryToInvalidInput(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO products (sku,name,category_id,cost,price,description,is_active) VALUES ($1,$2,$3,$4,$5,$6,$7) RETURNING id`)).
		WillReturnError(&pgconn.PgError{Code: "23503"})

	_, err := s.CreateProduct(context.Background(), domain.Product{Name: "Ghost", CategoryID: 42, IsActive: true})
	assert.ErrorIs(t, err, store.ErrInvalidInput)
}

func TestListLowStockUsesReorderLevel(t *testing.T) {
	s, mock := newMockStore(t)
	at := time.Date(2026, 10, 1, 8, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, name, quantity, unit, product_id, reorder_level, created_at, updated_at FROM inventory_items WHERE quantity < COALESCE(reorder_level, 10) ORDER BY id`)).
		WillReturnRows(sqlmock.NewRows(inventoryColumns).
			AddRow(1, "Rice", "4.500", "kg", nil, nil, at, at).
			AddRow(2, "Garlic", "15", "kg", 8, "20", at, at))

	items, err := s.ListLowStock(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Nil(t, items[0].ProductID)
	assert.Nil(t, items[0].ReorderLevel)
	assert.True(t, items[0].Quantity.Equal(decimal.RequireFromString("4.5")))
	require.NotNil(t, items[1].ProductID)
	assert.Equal(t, int64(8), *items[1].ProductID)
	require.NotNil(t, items[1].ReorderLevel)
	assert.True(t, items[1].ReorderLevel.Equal(decimal.NewFromInt(20)))
}

func TestCreateSaleWritesLinesAndDecrementsInventoryInOneTransaction(t *testing.T) {
	s, mock := newMockStore(t)
	at := time.Date(2026, 10, 17, 12, 30, 0, 0, time.UTC)

	sale := domain.Sale{
		ID: "sale-1",
		Items: []domain.SaleItem{
			{ProductID: 1, Name: "Tapsilog", Quantity: 2, Price: decimal.NewFromInt(290), Cost: decimal.NewFromInt(130)},
			{ProductID: 2, Name: "Calamansi Juice", Quantity: 1, Price: decimal.NewFromInt(45), Cost: decimal.NewFromInt(15)},
			{ProductID: 1, Name: "Tapsilog", Quantity: 1, Price: decimal.NewFromInt(145), Cost: decimal.NewFromInt(65)},
		},
		Payments:  []domain.SalePayment{{Method: "gcash", Amount: decimal.NewFromInt(480)}},
		Total:     decimal.NewFromInt(480),
		Cashier:   "cashier",
		CreatedAt: at,
	}

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO sales (id,total,cashier,created_at) VALUES ($1,$2,$3,$4)`)).
		WithArgs("sale-1", "480", "cashier", at).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO sale_items (sale_id,line_no,product_id,name,quantity,price,cost) VALUES ($1,$2,$3,$4,$5,$6,$7),($8,$9,$10,$11,$12,$13,$14),($15,$16,$17,$18,$19,$20,$21)`)).
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO sale_payments (sale_id,line_no,method,amount) VALUES ($1,$2,$3,$4)`)).
		WithArgs("sale-1", 1, "gcash", "480").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE inventory_items SET quantity = GREATEST(quantity - $1, 0), updated_at = now() WHERE product_id = $2`)).
		WithArgs("3", 1).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE inventory_items SET quantity = GREATEST(quantity - $1, 0), updated_at = now() WHERE product_id = $2`)).
		WithArgs("1", 2).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	created, err := s.CreateSale(context.Background(), sale)
	require.NoError(t, err)
	assert.Equal(t, "sale-1", created.ID)
}

func TestCreateSaleRollsBackOnDuplicateID(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO sales`)).
		WillReturnError(&pgconn.PgError{Code: "23505"})
	mock.ExpectRollback()

	_, err := s.CreateSale(context.Background(), domain.Sale{
		ID:    "dup",
		Items: []domain.SaleItem{{ProductID: 1, Name: "Halo-Halo", Quantity: 1}},
	})
	assert.ErrorIs(t, err, store.ErrConflict)
}

func TestListSalesAttachesItemsAndPayments(t *testing.T) {
	s, mock := newMockStore(t)
	from := time.Date(2026, 10, 17, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 0, 1)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, total, cashier, created_at FROM sales WHERE created_at >= $1 AND created_at < $2 ORDER BY created_at, id`)).
		WithArgs(from, to).
		WillReturnRows(sqlmock.NewRows([]string{"id", "total", "cashier", "created_at"}).
			AddRow("a", "145.00", "cashier", from.Add(9*time.Hour)).
			AddRow("b", "45.00", "admin", from.Add(10*time.Hour)))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT sale_id, product_id, name, quantity, price, cost FROM sale_items WHERE sale_id = ANY($1) ORDER BY sale_id, line_no`)).
		WithArgs([]string{"a", "b"}).
		WillReturnRows(sqlmock.NewRows([]string{"sale_id", "product_id", "name", "quantity", "price", "cost"}).
			AddRow("a", 1, "Tapsilog", 1, "145.00", "65.00").
			AddRow("b", 2, "Calamansi Juice", 1, "45.00", "15.00"))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT sale_id, method, amount FROM sale_payments WHERE sale_id = ANY($1) ORDER BY sale_id, line_no`)).
		WithArgs([]string{"a", "b"}).
		WillReturnRows(sqlmock.NewRows([]string{"sale_id", "method", "amount"}).
			AddRow("b", "maya", "45.00"))

	sales, err := s.ListSales(context.Background(), domain.SaleFilter{From: from, To: to})
	require.NoError(t, err)
	require.Len(t, sales, 2)
	require.Len(t, sales[0].Items, 1)
	assert.Equal(t, "Tapsilog", sales[0].Items[0].Name)
	assert.Empty(t, sales[0].Payments)
	require.Len(t, sales[1].Payments, 1)
	assert.Equal(t, "maya", sales[1].Payments[0].Method)
}

func TestFullHistoryBindsSaleIDsAsOneParameter(t *testing.T) {
	s, mock := newMockStore(t)
	at := time.Date(2026, 10, 17, 9, 0, 0, 0, time.UTC)

	const count = 70000
	rows := sqlmock.NewRows([]string{"id", "total", "cashier", "created_at"})
	ids := make([]string, 0, count)
	for i := 0; i < count; i++ {
		id := fmt.Sprintf("sale-%05d", i)
		ids = append(ids, id)
		rows.AddRow(id, "45.00", "cashier", at)
	}

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, total, cashier, created_at FROM sales ORDER BY created_at, id`)).
		WillReturnRows(rows)
	mock.ExpectQuery(regexp.QuoteMeta(`FROM sale_items WHERE sale_id = ANY($1) ORDER BY`)).
		WithArgs(ids).
		WillReturnRows(sqlmock.NewRows([]string{"sale_id", "product_id", "name", "quantity", "price", "cost"}))
	mock.ExpectQuery(regexp.QuoteMeta(`FROM sale_payments WHERE sale_id = ANY($1) ORDER BY`)).
		WithArgs(ids).
		WillReturnRows(sqlmock.NewRows([]string{"sale_id", "method", "amount"}))

	sales, err := s.ListSales(context.Background(), domain.SaleFilter{})
	require.NoError(t, err)
	assert.Len(t, sales, count)

	_, args, err := saleIDsIn(ids).ToSql()
	require.NoError(t, err)
	assert.Len(t, args, 1)
}

func TestGetSaleNotFound(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, total, cashier, created_at FROM sales WHERE id = $1`)).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"id", "total", "cashier", "created_at"}))

	_, err := s.GetSale(context.Background(), "missing")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestUpdateUserKeepsPasswordWhenEmpty(t *testing.T) {
	s, mock := newMockStore(t)
	at := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE app_users SET username = $1, name = $2, role = $3, active = $4, updated_at = now() WHERE id = $5`)).
		WithArgs("maria", "Maria C.", "admin", true, 4).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, username, name, password, role, active, created_at FROM app_users WHERE id = $1`)).
		WithArgs(4).
		WillReturnRows(sqlmock.NewRows(userColumns).AddRow(4, "maria", "Maria C.", "$2a$hash", "admin", true, at))

	user, err := s.UpdateUser(context.Background(), domain.UserAccount{
		ID: 4, Username: " Maria ", Name: "Maria C.", Role: domain.RoleAdmin, Active: true,
	})
	require.NoError(t, err)
	assert.Equal(t, "$2a$hash", user.Password)
}

func TestSoldByProductFoldsRepeatedLines(t *testing.T) {
	got := soldByProduct([]domain.SaleItem{
		{ProductID: 5, Quantity: 1},
		{ProductID: 3, Quantity: 2},
		{ProductID: 5, Quantity: 4},
	})
	require.Len(t, got, 2)
	assert.Equal(t, int64(5), got[0].productID)
	assert.True(t, got[0].quantity.Equal(decimal.NewFromInt(5)))
	assert.Equal(t, int64(3), got[1].productID)
}
