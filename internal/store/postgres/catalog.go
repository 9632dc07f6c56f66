package postgres

import (
	"context"

	"github.com/Masterminds/squirrel"
	"github.com/pkg/errors"

	"latiafanny/backend/internal/domain"
)

var categoryColumns = []string{"id", "name", "description", "created_at", "updated_at"}

var productColumns = []string{
	"p.id", "p.sku", "p.name", "p.category_id", "c.name",
	"p.cost", "p.price", "p.description", "p.is_active", "p.created_at", "p.updated_at",
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCategory(row rowScanner) (domain.Category, error) {
	var c domain.Category
	err := row.Scan(&c.ID, &c.Name, &c.Description, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

func scanProduct(row rowScanner) (domain.Product, error) {
	var (
		p            domain.Product
		categoryName string
	)
	err := row.Scan(&p.ID, &p.SKU, &p.Name, &p.CategoryID, &categoryName,
		&p.Cost, &p.Price, &p.Description, &p.IsActive, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return p, err
	}
	p.Category = &domain.CategoryRef{ID: p.CategoryID, Name: categoryName}
	return p, nil
}

func (s *Store) ListCategories(ctx context.Context) ([]domain.Category, error) {
	query, args, err := psql.Select(categoryColumns...).From("categories").OrderBy("id").ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "list categories")
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapError(err, "list categories")
	}
	defer rows.Close()

	categories := make([]domain.Category, 0, 16)
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scan category")
		}
		categories = append(categories, c)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "list categories")
	}
	return categories, nil
}

func (s *Store) GetCategory(ctx context.Context, id int64) (*domain.Category, error) {
	query, args, err := psql.Select(categoryColumns...).From("categories").Where(squirrel.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "get category")
	}
	c, err := scanCategory(s.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		return nil, mapError(err, "get category")
	}
	return &c, nil
}

func (s *Store) CreateCategory(ctx context.Context, category domain.Category) (*domain.Category, error) {
	query, args, err := psql.Insert("categories").
		Columns("name", "description").
		Values(category.Name, category.Description).
		Suffix("RETURNING id, created_at, updated_at").
		ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "create category")
	}
	err = s.db.QueryRowContext(ctx, query, args...).Scan(&category.ID, &category.CreatedAt, &category.UpdatedAt)
	if err != nil {
		return nil, mapError(err, "create category")
	}
	return &category, nil
}

func (s *Store) UpdateCategory(ctx context.Context, category domain.Category) (*domain.Category, error) {
	query, args, err := psql.Update("categories").
		Set("name", category.Name).
		Set("description", category.Description).
		Set("updated_at", squirrel.Expr("now()")).
		Where(squirrel.Eq{"id": category.ID}).
		Suffix("RETURNING created_at, updated_at").
		ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "update category")
	}
	err = s.db.QueryRowContext(ctx, query, args...).Scan(&category.CreatedAt, &category.UpdatedAt)
	if err != nil {
		return nil, mapError(err, "update category")
	}
	return &category, nil
}

// DeleteCategory relies on ON DELETE CASCADE for products and ON DELETE SET
// NULL for inventory rows linked to those products.
func (s *Store) DeleteCategory(ctx context.Context, id int64) error {
	return execAffecting(ctx, s.db, psql.Delete("categories").Where(squirrel.Eq{"id": id}), "delete category")
}

func (s *Store) selectProducts() squirrel.SelectBuilder {
	return psql.Select(productColumns...).
		From("products p").
		Join("categories c ON c.id = p.category_id")
}

func (s *Store) queryProducts(ctx context.Context, b squirrel.SelectBuilder, op string) ([]domain.Product, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return nil, errors.Wrap(err, op)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapError(err, op)
	}
	defer rows.Close()

	products := make([]domain.Product, 0, 64)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scan product")
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, op)
	}
	return products, nil
}

func (s *Store) ListProducts(ctx context.Context) ([]domain.Product, error) {
	return s.queryProducts(ctx, s.selectProducts().OrderBy("p.id"), "list products")
}

func (s *Store) ListProductsByCategory(ctx context.Context, categoryID int64) ([]domain.Product, error) {
	b := s.selectProducts().Where(squirrel.Eq{"p.category_id": categoryID}).OrderBy("p.id")
	return s.queryProducts(ctx, b, "list products by category")
}

func (s *Store) GetProduct(ctx context.Context, id int64) (*domain.Product, error) {
	query, args, err := s.selectProducts().Where(squirrel.Eq{"p.id": id}).ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "get product")
	}
	p, err := scanProduct(s.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		return nil, mapError(err, "get product")
	}
	return &p, nil
}

func (s *Store) GetProductsByIDs(ctx context.Context, ids []int64) (map[int64]domain.Product, error) {
	out := make(map[int64]domain.Product, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	products, err := s.queryProducts(ctx, s.selectProducts().Where(squirrel.Eq{"p.id": ids}), "get products by ids")
	if err != nil {
		return nil, err
	}
	for _, p := range products {
		out[p.ID] = p
	}
	return out, nil
}

func (s *Store) CreateProduct(ctx context.Context, product domain.Product) (*domain.Product, error) {
	query, args, err := psql.Insert("products").
		Columns("sku", "name", "category_id", "cost", "price", "description", "is_active").
		Values(product.SKU, product.Name, product.CategoryID, product.Cost, product.Price, product.Description, product.IsActive).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "create product")
	}
	var id int64
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&id); err != nil {
		return nil, mapError(err, "create product")
	}
	return s.GetProduct(ctx, id)
}

func (s *Store) UpdateProduct(ctx context.Context, product domain.Product) (*domain.Product, error) {
	b := psql.Update("products").
		Set("sku", product.SKU).
		Set("name", product.Name).
		Set("category_id", product.CategoryID).
		Set("cost", product.Cost).
		Set("price", product.Price).
		Set("description", product.Description).
		Set("is_active", product.IsActive).
		Set("updated_at", squirrel.Expr("now()")).
		Where(squirrel.Eq{"id": product.ID})
	if err := execAffecting(ctx, s.db, b, "update product"); err != nil {
		return nil, err
	}
	return s.GetProduct(ctx, product.ID)
}

func (s *Store) DeleteProduct(ctx context.Context, id int64) error {
	return execAffecting(ctx, s.db, psql.Delete("products").Where(squirrel.Eq{"id": id}), "delete product")
}
