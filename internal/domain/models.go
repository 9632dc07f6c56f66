package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	RoleAdmin   = "admin"
	RoleCashier = "cashier"
)

type Category struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description *string   `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type CategoryRequest struct {
	Name        string  `json:"name"`
	Description *string `json:"description"`
}

// CategoryRef is the category embedded in product reads.
type CategoryRef struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type Product struct {
	ID          int64           `json:"id"`
	SKU         *string         `json:"sku"`
	Name        string          `json:"name"`
	CategoryID  int64           `json:"category_id"`
	Category    *CategoryRef    `json:"category,omitempty"`
	Cost        decimal.Decimal `json:"cost"`
	Price       decimal.Decimal `json:"price"`
	Description *string         `json:"description"`
	IsActive    bool            `json:"is_active"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// ProductRequest serves create and update. On update nil fields are left as they are.
type ProductRequest struct {
	SKU         *string          `json:"sku"`
	Name        *string          `json:"name"`
	CategoryID  *int64           `json:"category_id"`
	Cost        *decimal.Decimal `json:"cost"`
	Price       *decimal.Decimal `json:"price"`
	Description *string          `json:"description"`
	IsActive    *bool            `json:"is_active"`
}

type InventoryItem struct {
	ID           int64            `json:"id"`
	Name         string           `json:"name"`
	Quantity     decimal.Decimal  `json:"quantity"`
	Unit         string           `json:"unit"`
	ProductID    *int64           `json:"product_id"`
	ReorderLevel *decimal.Decimal `json:"reorder_level"`
	CreatedAt    time.Time        `json:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at"`
}

type InventoryRequest struct {
	Name         *string          `json:"name"`
	Quantity     *decimal.Decimal `json:"quantity"`
	Unit         *string          `json:"unit"`
	ProductID    *int64           `json:"product_id"`
	ReorderLevel *decimal.Decimal `json:"reorder_level"`
}

type SaleItem struct {
	ProductID int64           `json:"product_id"`
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
	Cost      decimal.Decimal `json:"cost"`
}

type SalePayment struct {
	Method string          `json:"method"`
	Amount decimal.Decimal `json:"amount"`
}

type Sale struct {
	ID        string          `json:"id"`
	Items     []SaleItem      `json:"saleItems"`
	Payments  []SalePayment   `json:"payments"`
	Total     decimal.Decimal `json:"total"`
	Cashier   string          `json:"cashier"`
	CreatedAt time.Time       `json:"created_at"`
}

type SaleItemRequest struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}

type SaleCreateRequest struct {
	Items    []SaleItemRequest `json:"items"`
	Payments []SalePayment     `json:"payments"`
}

// SaleFilter bounds a sale listing by created_at. Zero values are open ends.
type SaleFilter struct {
	From time.Time
	To   time.Time
}

type Actor struct {
	Username string `json:"username"`
	Role     string `json:"role"`
}

type LoginRequest struct {
	Username     string `json:"username"`
	Password     string `json:"password,omitempty"`
	PasswordHash string `json:"password_hash,omitempty"`
}

type LoginResponse struct {
	AccessToken string `json:"access_token"`
	Role        string `json:"role"`
	ExpiresAt   string `json:"expires_at"`
}

type UserAccount struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	Name      string    `json:"name"`
	Password  string    `json:"-"`
	Role      string    `json:"role"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

type UserRequest struct {
	Username *string `json:"username"`
	Name     *string `json:"name"`
	Password *string `json:"password"`
	Role     *string `json:"role"`
	Active   *bool   `json:"active"`
}
