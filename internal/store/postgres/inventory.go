package postgres

import (
	"context"

	"github.com/Masterminds/squirrel"
	"github.com/pkg/errors"

	"latiafanny/backend/internal/domain"
)

var inventoryColumns = []string{
	"id", "name", "quantity", "unit", "product_id", "reorder_level", "created_at", "updated_at",
}

func scanInventoryItem(row rowScanner) (domain.InventoryItem, error) {
	var item domain.InventoryItem
	err := row.Scan(&item.ID, &item.Name, &item.Quantity, &item.Unit,
		&item.ProductID, &item.ReorderLevel, &item.CreatedAt, &item.UpdatedAt)
	return item, err
}

func (s *Store) queryInventory(ctx context.Context, b squirrel.SelectBuilder, op string) ([]domain.InventoryItem, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return nil, errors.Wrap(err, op)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapError(err, op)
	}
	defer rows.Close()

	items := make([]domain.InventoryItem, 0, 64)
	for rows.Next() {
		item, err := scanInventoryItem(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scan inventory item")
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, op)
	}
	return items, nil
}

func (s *Store) selectInventory() squirrel.SelectBuilder {
	return psql.Select(inventoryColumns...).From("inventory_items")
}

func (s *Store) ListInventory(ctx context.Context) ([]domain.InventoryItem, error) {
	return s.queryInventory(ctx, s.selectInventory().OrderBy("id"), "list inventory")
}

func (s *Store) ListLowStock(ctx context.Context) ([]domain.InventoryItem, error) {
	b := s.selectInventory().Where("quantity < COALESCE(reorder_level, 10)").OrderBy("id")
	return s.queryInventory(ctx, b, "list low stock")
}

func (s *Store) ListOutOfStock(ctx context.Context) ([]domain.InventoryItem, error) {
	b := s.selectInventory().Where(squirrel.Eq{"quantity": 0}).OrderBy("id")
	return s.queryInventory(ctx, b, "list out of stock")
}

func (s *Store) GetInventoryItem(ctx context.Context, id int64) (*domain.InventoryItem, error) {
	query, args, err := s.selectInventory().Where(squirrel.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "get inventory item")
	}
	item, err := scanInventoryItem(s.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		return nil, mapError(err, "get inventory item")
	}
	return &item, nil
}

func (s *Store) CreateInventoryItem(ctx context.Context, item domain.InventoryItem) (*domain.InventoryItem, error) {
	query, args, err := psql.Insert("inventory_items").
		Columns("name", "quantity", "unit", "product_id", "reorder_level").
		Values(item.Name, item.Quantity, item.Unit, item.ProductID, item.ReorderLevel).
		Suffix("RETURNING id, created_at, updated_at").
		ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "create inventory item")
	}
	err = s.db.QueryRowContext(ctx, query, args...).Scan(&item.ID, &item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		return nil, mapError(err, "create inventory item")
	}
	return &item, nil
}

func (s *Store) UpdateInventoryItem(ctx context.Context, item domain.InventoryItem) (*domain.InventoryItem, error) {
	query, args, err := psql.Update("inventory_items").
		Set("name", item.Name).
		Set("quantity", item.Quantity).
		Set("unit", item.Unit).
		Set("product_id", item.ProductID).
		Set("reorder_level", item.ReorderLevel).
		Set("updated_at", squirrel.Expr("now()")).
		Where(squirrel.Eq{"id": item.ID}).
		Suffix("RETURNING created_at, updated_at").
		ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "update inventory item")
	}
	err = s.db.QueryRowContext(ctx, query, args...).Scan(&item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		return nil, mapError(err, "update inventory item")
	}
	return &item, nil
}

func (s *Store) DeleteInventoryItem(ctx context.Context, id int64) error {
	return execAffecting(ctx, s.db, psql.Delete("inventory_items").Where(squirrel.Eq{"id": id}), "delete inventory item")
}
