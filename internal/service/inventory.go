package service

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"latiafanny/backend/internal/domain"
)

const (
	maxInventoryName = 255
	maxUnit          = 32
)

func (s *Service) ListInventory(ctx context.Context) ([]domain.InventoryItem, error) {
	return s.repo.ListInventory(ctx)
}

func (s *Service) GetInventoryItem(ctx context.Context, id int64) (domain.InventoryItem, error) {
	item, err := s.repo.GetInventoryItem(ctx, id)
	if err != nil {
		return domain.InventoryItem{}, err
	}
	return *item, nil
}

// ListLowStock applies each row's reorder level (10 when unset), unlike the
// report view which always uses the fixed threshold.
func (s *Service) ListLowStock(ctx context.Context) ([]domain.InventoryItem, error) {
	return s.repo.ListLowStock(ctx)
}

func (s *Service) ListOutOfStock(ctx context.Context) ([]domain.InventoryItem, error) {
	return s.repo.ListOutOfStock(ctx)
}

func (s *Service) CreateInventoryItem(ctx context.Context, req domain.InventoryRequest) (domain.InventoryItem, error) {
	if err := requireRole(ctx, domain.RoleAdmin); err != nil {
		return domain.InventoryItem{}, err
	}
	switch {
	case req.Name == nil:
		return domain.InventoryItem{}, invalid("name", "is required")
	case req.Quantity == nil:
		return domain.InventoryItem{}, invalid("quantity", "is required")
	case req.Unit == nil:
		return domain.InventoryItem{}, invalid("unit", "is required")
	}

	var item domain.InventoryItem
	if err := s.applyInventoryRequest(ctx, &item, req); err != nil {
		return domain.InventoryItem{}, err
	}
	created, err := s.repo.CreateInventoryItem(ctx, item)
	if err != nil {
		return domain.InventoryItem{}, err
	}
	zerolog.Ctx(ctx).Info().Int64("inventory_id", created.ID).Str("name", created.Name).Msg("inventory item created")
	s.invalidateSnapshot(ctx)
	return *created, nil
}

func (s *Service) UpdateInventoryItem(ctx context.Context, id int64, req domain.InventoryRequest) (domain.InventoryItem, error) {
	if err := requireRole(ctx, domain.RoleAdmin); err != nil {
		return domain.InventoryItem{}, err
	}
	existing, err := s.repo.GetInventoryItem(ctx, id)
	if err != nil {
		return domain.InventoryItem{}, err
	}
	updated := *existing
	if err := s.applyInventoryRequest(ctx, &updated, req); err != nil {
		return domain.InventoryItem{}, err
	}
	saved, err := s.repo.UpdateInventoryItem(ctx, updated)
	if err != nil {
		return domain.InventoryItem{}, err
	}
	if !existing.Quantity.Equal(saved.Quantity) {
		zerolog.Ctx(ctx).Info().
			Int64("inventory_id", saved.ID).
			Str("from", existing.Quantity.String()).
			Str("to", saved.Quantity.String()).
			Msg("stock adjusted")
	}
	s.invalidateSnapshot(ctx)
	return *saved, nil
}

func (s *Service) DeleteInventoryItem(ctx context.Context, id int64) error {
	if err := requireRole(ctx, domain.RoleAdmin); err != nil {
		return err
	}
	if err := s.repo.DeleteInventoryItem(ctx, id); err != nil {
		return err
	}
	s.invalidateSnapshot(ctx)
	return nil
}

func (s *Service) applyInventoryRequest(ctx context.Context, item *domain.InventoryItem, req domain.InventoryRequest) error {
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return invalid("name", "is required")
		}
		if utf8.RuneCountInString(name) > maxInventoryName {
			return invalid("name", "must not exceed %d characters", maxInventoryName)
		}
		item.Name = name
	}
	if req.Quantity != nil {
		if req.Quantity.IsNegative() {
			return invalid("quantity", "must be at least 0")
		}
		item.Quantity = req.Quantity.Round(3)
	}
	if req.Unit != nil {
		unit := strings.TrimSpace(*req.Unit)
		if unit == "" {
			return invalid("unit", "is required")
		}
		if utf8.RuneCountInString(unit) > maxUnit {
			return invalid("unit", "must not exceed %d characters", maxUnit)
		}
		item.Unit = unit
	}
	if req.ProductID != nil {
		if _, err := s.repo.GetProduct(ctx, *req.ProductID); err != nil {
			if isNotFound(err) {
				return invalid("product_id", "product %d does not exist", *req.ProductID)
			}
			return err
		}
		productID := *req.ProductID
		item.ProductID = &productID
	}
	if req.ReorderLevel != nil {
		if req.ReorderLevel.IsNegative() {
			return invalid("reorder_level", "must be at least 0")
		}
		level := req.ReorderLevel.Round(3)
		item.ReorderLevel = &level
	}
	return nil
}
