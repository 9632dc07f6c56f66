package store

import (
	"context"
	"errors"

	"latiafanny/backend/internal/domain"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrConflict     = errors.New("conflict")
	ErrForbidden    = errors.New("forbidden")
)

type CategoryRepository interface {
	ListCategories(ctx context.Context) ([]domain.Category, error)
	GetCategory(ctx context.Context, id int64) (*domain.Category, error)
	CreateCategory(ctx context.Context, category domain.Category) (*domain.Category, error)
	UpdateCategory(ctx context.Context, category domain.Category) (*domain.Category, error)
	// DeleteCategory removes the category together with its products.
	DeleteCategory(ctx context.Context, id int64) error
}

type ProductRepository interface {
	ListProducts(ctx context.Context) ([]domain.Product, error)
	ListProductsByCategory(ctx context.Context, categoryID int64) ([]domain.Product, error)
	GetProduct(ctx context.Context, id int64) (*domain.Product, error)
	GetProductsByIDs(ctx context.Context, ids []int64) (map[int64]domain.Product, error)
	CreateProduct(ctx context.Context, product domain.Product) (*domain.Product, error)
	UpdateProduct(ctx context.Context, product domain.Product) (*domain.Product, error)
	DeleteProduct(ctx context.Context, id int64) error
}

type InventoryRepository interface {
	ListInventory(ctx context.Context) ([]domain.InventoryItem, error)
	GetInventoryItem(ctx context.Context, id int64) (*domain.InventoryItem, error)
	CreateInventoryItem(ctx context.Context, item domain.InventoryItem) (*domain.InventoryItem, error)
	UpdateInventoryItem(ctx context.Context, item domain.InventoryItem) (*domain.InventoryItem, error)
	DeleteInventoryItem(ctx context.Context, id int64) error
	// ListLowStock uses each row's reorder level, 10 when unset.
	ListLowStock(ctx context.Context) ([]domain.InventoryItem, error)
	ListOutOfStock(ctx context.Context) ([]domain.InventoryItem, error)
}

type SaleRepository interface {
	// CreateSale stores the sale and decrements inventory rows linked to the
	// sold products, never below zero.
	CreateSale(ctx context.Context, sale domain.Sale) (*domain.Sale, error)
	GetSale(ctx context.Context, id string) (*domain.Sale, error)
	ListSales(ctx context.Context, filter domain.SaleFilter) ([]domain.Sale, error)
}

type UserRepository interface {
	CreateUser(ctx context.Context, user domain.UserAccount) (*domain.UserAccount, error)
	ListUsers(ctx context.Context) ([]domain.UserAccount, error)
	GetUser(ctx context.Context, id int64) (*domain.UserAccount, error)
	UpdateUser(ctx context.Context, user domain.UserAccount) (*domain.UserAccount, error)
	DeleteUser(ctx context.Context, id int64) error
	UpdateUserPassword(ctx context.Context, username string, password string) error
}

type Repository interface {
	CategoryRepository
	ProductRepository
	InventoryRepository
	SaleRepository
	UserRepository
}
