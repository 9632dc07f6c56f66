package postgres

import (
	"context"
	"database/sql"

	"github.com/Masterminds/squirrel"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"latiafanny/backend/internal/domain"
	"latiafanny/backend/internal/store"
)

func (s *Store) CreateSale(ctx context.Context, sale domain.Sale) (*domain.Sale, error) {
	if sale.ID == "" || len(sale.Items) == 0 {
		return nil, store.ErrInvalidInput
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, errors.Wrap(err, "begin sale")
	}
	defer func() {
		_ = tx.Rollback()
	}()

	query, args, err := psql.Insert("sales").
		Columns("id", "total", "cashier", "created_at").
		Values(sale.ID, sale.Total, sale.Cashier, sale.CreatedAt).
		ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "insert sale")
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return nil, mapError(err, "insert sale")
	}

	items := psql.Insert("sale_items").Columns("sale_id", "line_no", "product_id", "name", "quantity", "price", "cost")
	for i, item := range sale.Items {
		items = items.Values(sale.ID, i+1, item.ProductID, item.Name, item.Quantity, item.Price, item.Cost)
	}
	if query, args, err = items.ToSql(); err != nil {
		return nil, errors.Wrap(err, "insert sale items")
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return nil, mapError(err, "insert sale items")
	}

	if len(sale.Payments) > 0 {
		payments := psql.Insert("sale_payments").Columns("sale_id", "line_no", "method", "amount")
		for i, p := range sale.Payments {
			payments = payments.Values(sale.ID, i+1, p.Method, p.Amount)
		}
		if query, args, err = payments.ToSql(); err != nil {
			return nil, errors.Wrap(err, "insert sale payments")
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return nil, mapError(err, "insert sale payments")
		}
	}

	for _, sold := range soldByProduct(sale.Items) {
		query, args, err := psql.Update("inventory_items").
			Set("quantity", squirrel.Expr("GREATEST(quantity - ?, 0)", sold.quantity)).
			Set("updated_at", squirrel.Expr("now()")).
			Where(squirrel.Eq{"product_id": sold.productID}).
			ToSql()
		if err != nil {
			return nil, errors.Wrap(err, "decrement inventory")
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return nil, mapError(err, "decrement inventory")
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, errors.Wrap(err, "commit sale")
	}
	created := sale
	return &created, nil
}

type productQuantity struct {
	productID int64
	quantity  decimal.Decimal
}

// soldByProduct folds line items per product in first-appearance order.
func soldByProduct(items []domain.SaleItem) []productQuantity {
	out := make([]productQuantity, 0, len(items))
	index := make(map[int64]int, len(items))
	for _, item := range items {
		qty := decimal.NewFromInt(int64(item.Quantity))
		if i, ok := index[item.ProductID]; ok {
			out[i].quantity = out[i].quantity.Add(qty)
			continue
		}
		index[item.ProductID] = len(out)
		out = append(out, productQuantity{productID: item.ProductID, quantity: qty})
	}
	return out
}

func (s *Store) GetSale(ctx context.Context, id string) (*domain.Sale, error) {
	sales, err := s.loadSales(ctx, psql.Select("id", "total", "cashier", "created_at").
		From("sales").
		Where(squirrel.Eq{"id": id}))
	if err != nil {
		return nil, err
	}
	if len(sales) == 0 {
		return nil, store.ErrNotFound
	}
	return &sales[0], nil
}

func (s *Store) ListSales(ctx context.Context, filter domain.SaleFilter) ([]domain.Sale, error) {
	b := psql.Select("id", "total", "cashier", "created_at").From("sales")
	if !filter.From.IsZero() {
		b = b.Where(squirrel.GtOrEq{"created_at": filter.From})
	}
	if !filter.To.IsZero() {
		b = b.Where(squirrel.Lt{"created_at": filter.To})
	}
	return s.loadSales(ctx, b.OrderBy("created_at", "id"))
}

func (s *Store) loadSales(ctx context.Context, b squirrel.SelectBuilder) ([]domain.Sale, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "list sales")
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapError(err, "list sales")
	}
	defer rows.Close()

	sales := make([]domain.Sale, 0, 64)
	index := make(map[string]int)
	ids := make([]string, 0, 64)
	for rows.Next() {
		var sale domain.Sale
		if err := rows.Scan(&sale.ID, &sale.Total, &sale.Cashier, &sale.CreatedAt); err != nil {
			return nil, errors.Wrap(err, "scan sale")
		}
		index[sale.ID] = len(sales)
		ids = append(ids, sale.ID)
		sales = append(sales, sale)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "list sales")
	}
	if len(ids) == 0 {
		return sales, nil
	}

	if err := s.loadSaleItems(ctx, ids, func(id string, item domain.SaleItem) {
		sales[index[id]].Items = append(sales[index[id]].Items, item)
	}); err != nil {
		return nil, err
	}
	if err := s.loadSalePayments(ctx, ids, func(id string, p domain.SalePayment) {
		sales[index[id]].Payments = append(sales[index[id]].Payments, p)
	}); err != nil {
		return nil, err
	}
	return sales, nil
}

// saleIDsIn matches sale_id against one text[] parameter. The pgx driver
// encodes the slice, so the statement stays within the bind limit however
// many sales are listed.
func saleIDsIn(ids []string) squirrel.Sqlizer {
	return squirrel.Expr("sale_id = ANY(?)", ids)
}

func (s *Store) loadSaleItems(ctx context.Context, ids []string, add func(string, domain.SaleItem)) error {
	query, args, err := psql.Select("sale_id", "product_id", "name", "quantity", "price", "cost").
		From("sale_items").
		Where(saleIDsIn(ids)).
		OrderBy("sale_id", "line_no").
		ToSql()
	if err != nil {
		return errors.Wrap(err, "list sale items")
	}
	return s.eachRow(ctx, query, args, "list sale items", func(rows *sql.Rows) error {
		var (
			saleID string
			item   domain.SaleItem
		)
		if err := rows.Scan(&saleID, &item.ProductID, &item.Name, &item.Quantity, &item.Price, &item.Cost); err != nil {
			return err
		}
		add(saleID, item)
		return nil
	})
}

func (s *Store) loadSalePayments(ctx context.Context, ids []string, add func(string, domain.SalePayment)) error {
	query, args, err := psql.Select("sale_id", "method", "amount").
		From("sale_payments").
		Where(saleIDsIn(ids)).
		OrderBy("sale_id", "line_no").
		ToSql()
	if err != nil {
		return errors.Wrap(err, "list sale payments")
	}
	return s.eachRow(ctx, query, args, "list sale payments", func(rows *sql.Rows) error {
		var (
			saleID  string
			payment domain.SalePayment
		)
		if err := rows.Scan(&saleID, &payment.Method, &payment.Amount); err != nil {
			return err
		}
		add(saleID, payment)
		return nil
	})
}

func (s *Store) eachRow(ctx context.Context, query string, args []any, op string, fn func(*sql.Rows) error) error {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return mapError(err, op)
	}
	defer rows.Close()

	for rows.Next() {
		if err := fn(rows); err != nil {
			return errors.Wrap(err, op)
		}
	}
	return errors.Wrap(rows.Err(), op)
}
