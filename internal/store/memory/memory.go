package memory

import (
	"context"
	"os"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"latiafanny/backend/internal/domain"
	"latiafanny/backend/internal/store"
)

var defaultReorderLevel = decimal.NewFromInt(10)

type Store struct {
	mu         sync.RWMutex
	categories map[int64]domain.Category
	products   map[int64]domain.Product
	inventory  map[int64]domain.InventoryItem
	sales      []domain.Sale
	salesByID  map[string]int
	users      map[int64]domain.UserAccount

	lastCategoryID  int64
	lastProductID   int64
	lastInventoryID int64
	lastUserID      int64

	now func() time.Time
}

func New() *Store {
	return &Store{
		categories: make(map[int64]domain.Category),
		products:   make(map[int64]domain.Product),
		inventory:  make(map[int64]domain.InventoryItem),
		sales:      make([]domain.Sale, 0, 64),
		salesByID:  make(map[string]int),
		users:      make(map[int64]domain.UserAccount),
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// NewSeeded returns a store holding the demo menu, its stock and the two
// default accounts. Seed passwords come from SEED_ADMIN_PASSWORD and
// SEED_CASHIER_PASSWORD; the dev defaults are only used when those are unset.
func NewSeeded() *Store {
	s := New()
	ctx := context.Background()

	menu := []struct {
		category string
		items    []seedProduct
	}{
		{"Silog Meals", []seedProduct{
			{"SIL-TAPA", "Tapsilog", "65.00", "145.00", "Kilo"},
			{"SIL-LONG", "Longsilog", "55.00", "125.00", "Pack"},
			{"SIL-TOCI", "Tocilog", "55.00", "125.00", "Pack"},
		}},
		{"Rice Bowls", []seedProduct{
			{"BWL-ADOB", "Chicken Adobo", "70.00", "160.00", "Kilo"},
			{"BWL-SISG", "Pork Sisig", "80.00", "175.00", "Kilo"},
		}},
		{"Drinks", []seedProduct{
			{"DRK-CALA", "Calamansi Juice", "15.00", "45.00", "Liter"},
			{"DRK-SAGO", "Sago't Gulaman", "18.00", "50.00", "Liter"},
			{"DRK-COKE", "Coke Mismo", "17.00", "30.00", "Bottle"},
		}},
		{"Desserts", []seedProduct{
			{"DST-HALO", "Halo-Halo", "45.00", "120.00", "Cup"},
			{"DST-LECH", "Leche Flan", "30.00", "75.00", "Llanera"},
		}},
	}

	stockLevels := []string{"25", "8", "0", "40", "12", "6", "30", "48", "9", "15"}
	n := 0
	for _, group := range menu {
		category, err := s.CreateCategory(ctx, domain.Category{Name: group.category})
		if err != nil {
			log.Fatal().Err(err).Str("category", group.category).Msg("memory store: seed category")
		}
		for _, item := range group.items {
			sku := item.sku
			product, err := s.CreateProduct(ctx, domain.Product{
				SKU:        &sku,
				Name:       item.name,
				CategoryID: category.ID,
				Cost:       decimal.RequireFromString(item.cost),
				Price:      decimal.RequireFromString(item.price),
				IsActive:   true,
			})
			if err != nil {
				log.Fatal().Err(err).Str("product", item.name).Msg("memory store: seed product")
			}
			productID := product.ID
			if _, err := s.CreateInventoryItem(ctx, domain.InventoryItem{
				Name:      item.name,
				Quantity:  decimal.RequireFromString(stockLevels[n%len(stockLevels)]),
				Unit:      item.unit,
				ProductID: &productID,
			}); err != nil {
				log.Fatal().Err(err).Str("item", item.name).Msg("memory store: seed inventory")
			}
			n++
		}
	}

	for _, u := range seedUsers() {
		if _, err := s.CreateUser(ctx, u); err != nil {
			log.Fatal().Err(err).Str("username", u.Username).Msg("memory store: seed user")
		}
	}
	return s
}

type seedProduct struct {
	sku   string
	name  string
	cost  string
	price string
	unit  string
}

func seedUsers() []domain.UserAccount {
	adminPwd := envOr("SEED_ADMIN_PASSWORD", "admin123")
	cashierPwd := envOr("SEED_CASHIER_PASSWORD", "cashier123")
	if os.Getenv("SEED_ADMIN_PASSWORD") == "" || os.Getenv("SEED_CASHIER_PASSWORD") == "" {
		log.Warn().Msg("memory store: using default dev credentials, set SEED_ADMIN_PASSWORD and SEED_CASHIER_PASSWORD to override")
	}

	users := make([]domain.UserAccount, 0, 2)
	for _, u := range []struct {
		username string
		name     string
		password string
		role     string
	}{
		{"admin", "Fanny Reyes", adminPwd, domain.RoleAdmin},
		{"cashier", "Front Counter", cashierPwd, domain.RoleCashier},
	} {
		hash, err := bcrypt.GenerateFromPassword([]byte(u.password), bcrypt.DefaultCost)
		if err != nil {
			log.Fatal().Err(err).Str("username", u.username).Msg("memory store: hash seed password")
		}
		users = append(users, domain.UserAccount{
			Username: u.username,
			Name:     u.name,
			Password: string(hash),
			Role:     u.role,
			Active:   true,
		})
	}
	return users
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func (s *Store) ListCategories(_ context.Context) ([]domain.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	categories := make([]domain.Category, 0, len(s.categories))
	for _, c := range s.categories {
		categories = append(categories, c)
	}
	slices.SortFunc(categories, func(a, b domain.Category) int {
		return cmpInt64(a.ID, b.ID)
	})
	return categories, nil
}

func (s *Store) GetCategory(_ context.Context, id int64) (*domain.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	category, exists := s.categories[id]
	if !exists {
		return nil, store.ErrNotFound
	}
	return &category, nil
}

func (s *Store) CreateCategory(_ context.Context, category domain.Category) (*domain.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.categoryNameTaken(category.Name, 0) {
		return nil, store.ErrConflict
	}
	s.lastCategoryID++
	now := s.now()
	category.ID = s.lastCategoryID
	category.CreatedAt = now
	category.UpdatedAt = now
	s.categories[category.ID] = category
	return &category, nil
}

func (s *Store) UpdateCategory(_ context.Context, category domain.Category) (*domain.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, exists := s.categories[category.ID]
	if !exists {
		return nil, store.ErrNotFound
	}
	if s.categoryNameTaken(category.Name, category.ID) {
		return nil, store.ErrConflict
	}
	existing.Name = category.Name
	existing.Description = category.Description
	existing.UpdatedAt = s.now()
	s.categories[existing.ID] = existing

	for id, p := range s.products {
		if p.CategoryID == existing.ID {
			p.Category = &domain.CategoryRef{ID: existing.ID, Name: existing.Name}
			s.products[id] = p
		}
	}
	return &existing, nil
}

func (s *Store) DeleteCategory(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.categories[id]; !exists {
		return store.ErrNotFound
	}
	delete(s.categories, id)
	for productID, p := range s.products {
		if p.CategoryID == id {
			s.deleteProductLocked(productID)
		}
	}
	return nil
}

func (s *Store) categoryNameTaken(name string, exceptID int64) bool {
	for _, c := range s.categories {
		if c.ID != exceptID && strings.EqualFold(c.Name, name) {
			return true
		}
	}
	return false
}

func (s *Store) ListProducts(_ context.Context) ([]domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.sortedProducts(func(domain.Product) bool { return true }), nil
}

func (s *Store) ListProductsByCategory(_ context.Context, categoryID int64) ([]domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.sortedProducts(func(p domain.Product) bool { return p.CategoryID == categoryID }), nil
}

func (s *Store) sortedProducts(keep func(domain.Product) bool) []domain.Product {
	products := make([]domain.Product, 0, len(s.products))
	for _, p := range s.products {
		if keep(p) {
			products = append(products, p)
		}
	}
	slices.SortFunc(products, func(a, b domain.Product) int {
		return cmpInt64(a.ID, b.ID)
	})
	return products
}

func (s *Store) GetProduct(_ context.Context, id int64) (*domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	product, exists := s.products[id]
	if !exists {
		return nil, store.ErrNotFound
	}
	return &product, nil
}

func (s *Store) GetProductsByIDs(_ context.Context, ids []int64) (map[int64]domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[int64]domain.Product, len(ids))
	for _, id := range ids {
		if p, exists := s.products[id]; exists {
			out[id] = p
		}
	}
	return out, nil
}

func (s *Store) CreateProduct(_ context.Context, product domain.Product) (*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	category, exists := s.categories[product.CategoryID]
	if !exists {
		return nil, store.ErrInvalidInput
	}
	if s.skuTaken(product.SKU, 0) {
		return nil, store.ErrConflict
	}
	s.lastProductID++
	now := s.now()
	product.ID = s.lastProductID
	product.Category = &domain.CategoryRef{ID: category.ID, Name: category.Name}
	product.CreatedAt = now
	product.UpdatedAt = now
	s.products[product.ID] = product
	return &product, nil
}

func (s *Store) UpdateProduct(_ context.Context, product domain.Product) (*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, exists := s.products[product.ID]
	if !exists {
		return nil, store.ErrNotFound
	}
	category, exists := s.categories[product.CategoryID]
	if !exists {
		return nil, store.ErrInvalidInput
	}
	if s.skuTaken(product.SKU, product.ID) {
		return nil, store.ErrConflict
	}
	product.Category = &domain.CategoryRef{ID: category.ID, Name: category.Name}
	product.CreatedAt = existing.CreatedAt
	product.UpdatedAt = s.now()
	s.products[product.ID] = product
	return &product, nil
}

func (s *Store) DeleteProduct(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.products[id]; !exists {
		return store.ErrNotFound
	}
	s.deleteProductLocked(id)
	return nil
}

// deleteProductLocked mirrors ON DELETE SET NULL on inventory.product_id.
func (s *Store) deleteProductLocked(id int64) {
	delete(s.products, id)
	for invID, item := range s.inventory {
		if item.ProductID != nil && *item.ProductID == id {
			item.ProductID = nil
			s.inventory[invID] = item
		}
	}
}

func (s *Store) skuTaken(sku *string, exceptID int64) bool {
	if sku == nil {
		return false
	}
	for _, p := range s.products {
		if p.ID != exceptID && p.SKU != nil && *p.SKU == *sku {
			return true
		}
	}
	return false
}

func (s *Store) ListInventory(_ context.Context) ([]domain.InventoryItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.sortedInventory(func(domain.InventoryItem) bool { return true }), nil
}

func (s *Store) ListLowStock(_ context.Context) ([]domain.InventoryItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.sortedInventory(func(item domain.InventoryItem) bool {
		level := defaultReorderLevel
		if item.ReorderLevel != nil {
			level = *item.ReorderLevel
		}
		return item.Quantity.LessThan(level)
	}), nil
}

func (s *Store) ListOutOfStock(_ context.Context) ([]domain.InventoryItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.sortedInventory(func(item domain.InventoryItem) bool { return item.Quantity.IsZero() }), nil
}

func (s *Store) sortedInventory(keep func(domain.InventoryItem) bool) []domain.InventoryItem {
	items := make([]domain.InventoryItem, 0, len(s.inventory))
	for _, item := range s.inventory {
		if keep(item) {
			items = append(items, item)
		}
	}
	slices.SortFunc(items, func(a, b domain.InventoryItem) int {
		return cmpInt64(a.ID, b.ID)
	})
	return items
}

func (s *Store) GetInventoryItem(_ context.Context, id int64) (*domain.InventoryItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	item, exists := s.inventory[id]
	if !exists {
		return nil, store.ErrNotFound
	}
	return &item, nil
}

func (s *Store) CreateInventoryItem(_ context.Context, item domain.InventoryItem) (*domain.InventoryItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if item.ProductID != nil {
		if _, exists := s.products[*item.ProductID]; !exists {
			return nil, store.ErrInvalidInput
		}
	}
	s.lastInventoryID++
	now := s.now()
	item.ID = s.lastInventoryID
	item.CreatedAt = now
	item.UpdatedAt = now
	s.inventory[item.ID] = item
	return &item, nil
}

func (s *Store) UpdateInventoryItem(_ context.Context, item domain.InventoryItem) (*domain.InventoryItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, exists := s.inventory[item.ID]
	if !exists {
		return nil, store.ErrNotFound
	}
	if item.ProductID != nil {
		if _, exists := s.products[*item.ProductID]; !exists {
			return nil, store.ErrInvalidInput
		}
	}
	item.CreatedAt = existing.CreatedAt
	item.UpdatedAt = s.now()
	s.inventory[item.ID] = item
	return &item, nil
}

func (s *Store) DeleteInventoryItem(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.inventory[id]; !exists {
		return store.ErrNotFound
	}
	delete(s.inventory, id)
	return nil
}

func (s *Store) CreateSale(_ context.Context, sale domain.Sale) (*domain.Sale, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sale.ID == "" || len(sale.Items) == 0 {
		return nil, store.ErrInvalidInput
	}
	if _, exists := s.salesByID[sale.ID]; exists {
		return nil, store.ErrConflict
	}
	if sale.CreatedAt.IsZero() {
		sale.CreatedAt = s.now()
	}

	sold := make(map[int64]decimal.Decimal, len(sale.Items))
	for _, item := range sale.Items {
		sold[item.ProductID] = sold[item.ProductID].Add(decimal.NewFromInt(int64(item.Quantity)))
	}
	now := s.now()
	for id, item := range s.inventory {
		if item.ProductID == nil {
			continue
		}
		qty, ok := sold[*item.ProductID]
		if !ok {
			continue
		}
		item.Quantity = decimal.Max(item.Quantity.Sub(qty), decimal.Zero)
		item.UpdatedAt = now
		s.inventory[id] = item
	}

	stored := cloneSale(sale)
	s.salesByID[stored.ID] = len(s.sales)
	s.sales = append(s.sales, stored)
	out := cloneSale(stored)
	return &out, nil
}

func (s *Store) GetSale(_ context.Context, id string) (*domain.Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	idx, exists := s.salesByID[id]
	if !exists {
		return nil, store.ErrNotFound
	}
	out := cloneSale(s.sales[idx])
	return &out, nil
}

// ListSales returns sales in insertion order, which is creation order.
func (s *Store) ListSales(_ context.Context, filter domain.SaleFilter) ([]domain.Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Sale, 0, len(s.sales))
	for _, sale := range s.sales {
		if !filter.From.IsZero() && sale.CreatedAt.Before(filter.From) {
			continue
		}
		if !filter.To.IsZero() && !sale.CreatedAt.Before(filter.To) {
			continue
		}
		out = append(out, cloneSale(sale))
	}
	return out, nil
}

func (s *Store) CreateUser(_ context.Context, user domain.UserAccount) (*domain.UserAccount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user.Username = strings.ToLower(strings.TrimSpace(user.Username))
	if user.Username == "" || strings.TrimSpace(user.Password) == "" {
		return nil, store.ErrInvalidInput
	}
	if s.usernameTaken(user.Username, 0) {
		return nil, store.ErrConflict
	}
	if user.Role == "" {
		user.Role = domain.RoleCashier
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = s.now()
	}
	s.lastUserID++
	user.ID = s.lastUserID
	s.users[user.ID] = user
	return &user, nil
}

func (s *Store) ListUsers(_ context.Context) ([]domain.UserAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]domain.UserAccount, 0, len(s.users))
	for _, user := range s.users {
		users = append(users, user)
	}
	slices.SortFunc(users, func(a, b domain.UserAccount) int {
		return strings.Compare(a.Username, b.Username)
	})
	return users, nil
}

func (s *Store) GetUser(_ context.Context, id int64) (*domain.UserAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, exists := s.users[id]
	if !exists {
		return nil, store.ErrNotFound
	}
	return &user, nil
}

func (s *Store) UpdateUser(_ context.Context, user domain.UserAccount) (*domain.UserAccount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, exists := s.users[user.ID]
	if !exists {
		return nil, store.ErrNotFound
	}
	user.Username = strings.ToLower(strings.TrimSpace(user.Username))
	if s.usernameTaken(user.Username, user.ID) {
		return nil, store.ErrConflict
	}
	if user.Password == "" {
		user.Password = existing.Password
	}
	user.CreatedAt = existing.CreatedAt
	s.users[user.ID] = user
	return &user, nil
}

func (s *Store) DeleteUser(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.users[id]; !exists {
		return store.ErrNotFound
	}
	delete(s.users, id)
	return nil
}

func (s *Store) UpdateUserPassword(_ context.Context, username string, password string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	username = strings.ToLower(strings.TrimSpace(username))
	if username == "" || strings.TrimSpace(password) == "" {
		return store.ErrInvalidInput
	}
	for id, user := range s.users {
		if user.Username == username {
			user.Password = password
			s.users[id] = user
			return nil
		}
	}
	return store.ErrNotFound
}

func (s *Store) usernameTaken(username string, exceptID int64) bool {
	for _, u := range s.users {
		if u.ID != exceptID && u.Username == username {
			return true
		}
	}
	return false
}

func cmpInt64(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func cloneSale(src domain.Sale) domain.Sale {
	dst := src
	dst.Items = slices.Clone(src.Items)
	dst.Payments = slices.Clone(src.Payments)
	return dst
}
