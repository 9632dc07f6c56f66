package service

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"latiafanny/backend/internal/domain"
)

const (
	maxCategoryName = 120
	maxProductName  = 255
	maxSKU          = 64
)

func (s *Service) ListCategories(ctx context.Context) ([]domain.Category, error) {
	return s.repo.ListCategories(ctx)
}

func (s *Service) GetCategory(ctx context.Context, id int64) (domain.Category, error) {
	c, err := s.repo.GetCategory(ctx, id)
	if err != nil {
		return domain.Category{}, err
	}
	return *c, nil
}

func (s *Service) CreateCategory(ctx context.Context, req domain.CategoryRequest) (domain.Category, error) {
	if err := requireRole(ctx, domain.RoleAdmin); err != nil {
		return domain.Category{}, err
	}
	category, err := categoryFromRequest(req)
	if err != nil {
		return domain.Category{}, err
	}
	created, err := s.repo.CreateCategory(ctx, category)
	if err != nil {
		return domain.Category{}, err
	}
	zerolog.Ctx(ctx).Info().Int64("category_id", created.ID).Str("name", created.Name).Msg("category created")
	return *created, nil
}

func (s *Service) UpdateCategory(ctx context.Context, id int64, req domain.CategoryRequest) (domain.Category, error) {
	if err := requireRole(ctx, domain.RoleAdmin); err != nil {
		return domain.Category{}, err
	}
	category, err := categoryFromRequest(req)
	if err != nil {
		return domain.Category{}, err
	}
	category.ID = id
	updated, err := s.repo.UpdateCategory(ctx, category)
	if err != nil {
		return domain.Category{}, err
	}
	s.invalidateSnapshot(ctx)
	return *updated, nil
}

// DeleteCategory also removes the category's products.
func (s *Service) DeleteCategory(ctx context.Context, id int64) error {
	if err := requireRole(ctx, domain.RoleAdmin); err != nil {
		return err
	}
	if err := s.repo.DeleteCategory(ctx, id); err != nil {
		return err
	}
	zerolog.Ctx(ctx).Info().Int64("category_id", id).Msg("category deleted with its products")
	s.invalidateSnapshot(ctx)
	return nil
}

func categoryFromRequest(req domain.CategoryRequest) (domain.Category, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.Category{}, invalid("name", "is required")
	}
	if utf8.RuneCountInString(name) > maxCategoryName {
		return domain.Category{}, invalid("name", "must not exceed %d characters", maxCategoryName)
	}
	return domain.Category{Name: name, Description: trimmedOrNil(req.Description)}, nil
}

func (s *Service) ListProducts(ctx context.Context) ([]domain.Product, error) {
	return s.repo.ListProducts(ctx)
}

func (s *Service) ListProductsByCategory(ctx context.Context, categoryID int64) ([]domain.Product, error) {
	if _, err := s.repo.GetCategory(ctx, categoryID); err != nil {
		return nil, err
	}
	return s.repo.ListProductsByCategory(ctx, categoryID)
}

func (s *Service) GetProduct(ctx context.Context, id int64) (domain.Product, error) {
	p, err := s.repo.GetProduct(ctx, id)
	if err != nil {
		return domain.Product{}, err
	}
	return *p, nil
}

func (s *Service) CreateProduct(ctx context.Context, req domain.ProductRequest) (domain.Product, error) {
	if err := requireRole(ctx, domain.RoleAdmin); err != nil {
		return domain.Product{}, err
	}
	switch {
	case req.Name == nil:
		return domain.Product{}, invalid("name", "is required")
	case req.CategoryID == nil:
		return domain.Product{}, invalid("category_id", "is required")
	case req.Cost == nil:
		return domain.Product{}, invalid("cost", "is required")
	case req.Price == nil:
		return domain.Product{}, invalid("price", "is required")
	}

	product := domain.Product{IsActive: true}
	if err := applyProductRequest(&product, req); err != nil {
		return domain.Product{}, err
	}
	if err := s.ensureCategory(ctx, product.CategoryID); err != nil {
		return domain.Product{}, err
	}

	created, err := s.repo.CreateProduct(ctx, product)
	if err != nil {
		return domain.Product{}, err
	}
	zerolog.Ctx(ctx).Info().Int64("product_id", created.ID).Str("name", created.Name).Msg("product created")
	s.invalidateSnapshot(ctx)
	return *created, nil
}

func (s *Service) UpdateProduct(ctx context.Context, id int64, req domain.ProductRequest) (domain.Product, error) {
	if err := requireRole(ctx, domain.RoleAdmin); err != nil {
		return domain.Product{}, err
	}
	existing, err := s.repo.GetProduct(ctx, id)
	if err != nil {
		return domain.Product{}, err
	}

	updated := *existing
	if err := applyProductRequest(&updated, req); err != nil {
		return domain.Product{}, err
	}
	if req.CategoryID != nil {
		if err := s.ensureCategory(ctx, updated.CategoryID); err != nil {
			return domain.Product{}, err
		}
	}

	saved, err := s.repo.UpdateProduct(ctx, updated)
	if err != nil {
		return domain.Product{}, err
	}
	if !existing.Price.Equal(saved.Price) || !existing.Cost.Equal(saved.Cost) {
		zerolog.Ctx(ctx).Info().
			Int64("product_id", saved.ID).
			Str("old_price", existing.Price.StringFixed(2)).
			Str("new_price", saved.Price.StringFixed(2)).
			Str("old_cost", existing.Cost.StringFixed(2)).
			Str("new_cost", saved.Cost.StringFixed(2)).
			Msg("product pricing changed")
	}
	s.invalidateSnapshot(ctx)
	return *saved, nil
}

func (s *Service) DeleteProduct(ctx context.Context, id int64) error {
	if err := requireRole(ctx, domain.RoleAdmin); err != nil {
		return err
	}
	if err := s.repo.DeleteProduct(ctx, id); err != nil {
		return err
	}
	s.invalidateSnapshot(ctx)
	return nil
}

func (s *Service) ensureCategory(ctx context.Context, id int64) error {
	if _, err := s.repo.GetCategory(ctx, id); err != nil {
		if isNotFound(err) {
			return invalid("category_id", "category %d does not exist", id)
		}
		return err
	}
	return nil
}

// applyProductRequest copies the non-nil request fields onto p.
func applyProductRequest(p *domain.Product, req domain.ProductRequest) error {
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return invalid("name", "is required")
		}
		if utf8.RuneCountInString(name) > maxProductName {
			return invalid("name", "must not exceed %d characters", maxProductName)
		}
		p.Name = name
	}
	if req.SKU != nil {
		sku := strings.ToUpper(strings.TrimSpace(*req.SKU))
		if len(sku) > maxSKU {
			return invalid("sku", "must not exceed %d characters", maxSKU)
		}
		if sku == "" {
			p.SKU = nil
		} else {
			p.SKU = &sku
		}
	}
	if req.CategoryID != nil {
		if *req.CategoryID < 1 {
			return invalid("category_id", "must be a positive id")
		}
		p.CategoryID = *req.CategoryID
	}
	if req.Cost != nil {
		if req.Cost.IsNegative() {
			return invalid("cost", "must be at least 0")
		}
		p.Cost = req.Cost.Round(2)
	}
	if req.Price != nil {
		if req.Price.IsNegative() {
			return invalid("price", "must be at least 0")
		}
		p.Price = req.Price.Round(2)
	}
	if req.Description != nil {
		p.Description = trimmedOrNil(req.Description)
	}
	if req.IsActive != nil {
		p.IsActive = *req.IsActive
	}
	return nil
}

func trimmedOrNil(v *string) *string {
	if v == nil {
		return nil
	}
	t := strings.TrimSpace(*v)
	if t == "" {
		return nil
	}
	return &t
}
