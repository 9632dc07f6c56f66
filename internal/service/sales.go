package service

import (
	"context"
	"slices"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"latiafanny/backend/internal/domain"
	"latiafanny/backend/internal/report"
	"latiafanny/backend/internal/xid"
)

const (
	defaultBestSellingLimit = 5
	maxBestSellingLimit     = 50
)

var paymentMethods = []string{
	"cash", "card", "gcash", "maya", "bank_transfer", "credit", "food_panda", "grab",
}

// TodaySales is the payload of the till's end-of-day screen.
type TodaySales struct {
	Sales   []domain.Sale       `json:"sales"`
	Summary report.DailySummary `json:"summary"`
}

func (s *Service) CreateSale(ctx context.Context, req domain.SaleCreateRequest) (domain.Sale, error) {
	if err := requireRole(ctx, domain.RoleAdmin, domain.RoleCashier); err != nil {
		return domain.Sale{}, err
	}
	actor, _ := ActorFromContext(ctx)

	lines, err := normalizeItems(req.Items)
	if err != nil {
		return domain.Sale{}, err
	}
	ids := make([]int64, 0, len(lines))
	for _, line := range lines {
		ids = append(ids, line.ProductID)
	}
	products, err := s.repo.GetProductsByIDs(ctx, ids)
	if err != nil {
		return domain.Sale{}, err
	}

	now := s.Now()
	sale := domain.Sale{
		ID:        xid.New("sale", now),
		Items:     make([]domain.SaleItem, 0, len(lines)),
		Total:     decimal.Zero,
		Cashier:   actor.Username,
		CreatedAt: now,
	}
	for _, line := range lines {
		product, ok := products[line.ProductID]
		if !ok {
			return domain.Sale{}, invalid("items", "product %d does not exist", line.ProductID)
		}
		if !product.IsActive {
			return domain.Sale{}, invalid("items", "product %q is not available", product.Name)
		}
		qty := decimal.NewFromInt(int64(line.Quantity))
		item := domain.SaleItem{
			ProductID: product.ID,
			Name:      product.Name,
			Quantity:  line.Quantity,
			Price:     product.Price.Mul(qty),
			Cost:      product.Cost.Mul(qty),
		}
		sale.Total = sale.Total.Add(item.Price)
		sale.Items = append(sale.Items, item)
	}

	payments, err := normalizePayments(req.Payments, sale.Total)
	if err != nil {
		return domain.Sale{}, err
	}
	sale.Payments = payments

	created, err := s.repo.CreateSale(ctx, sale)
	if err != nil {
		return domain.Sale{}, err
	}
	zerolog.Ctx(ctx).Info().
		Str("sale_id", created.ID).
		Str("cashier", created.Cashier).
		Str("total", created.Total.StringFixed(2)).
		Int("lines", len(created.Items)).
		Msg("sale recorded")
	s.invalidateSnapshot(ctx)
	return *created, nil
}

// normalizeItems merges repeated products into one line, keeping the order
// in which they were first rung up.
func normalizeItems(items []domain.SaleItemRequest) ([]domain.SaleItemRequest, error) {
	if len(items) == 0 {
		return nil, invalid("items", "at least one item is required")
	}
	out := make([]domain.SaleItemRequest, 0, len(items))
	index := make(map[int64]int, len(items))
	for _, item := range items {
		if item.ProductID < 1 {
			return nil, invalid("items", "product_id must be a positive id")
		}
		if item.Quantity < 1 {
			return nil, invalid("items", "quantity must be at least 1")
		}
		if i, ok := index[item.ProductID]; ok {
			out[i].Quantity += item.Quantity
			continue
		}
		index[item.ProductID] = len(out)
		out = append(out, item)
	}
	return out, nil
}

func normalizePayments(payments []domain.SalePayment, total decimal.Decimal) ([]domain.SalePayment, error) {
	if len(payments) == 0 {
		return []domain.SalePayment{{Method: "cash", Amount: total}}, nil
	}
	out := make([]domain.SalePayment, 0, len(payments))
	paid := decimal.Zero
	for _, p := range payments {
		method := strings.ToLower(strings.TrimSpace(p.Method))
		if !slices.Contains(paymentMethods, method) {
			return nil, invalid("payments", "unsupported payment method %q", p.Method)
		}
		if !p.Amount.IsPositive() {
			return nil, invalid("payments", "amount must be greater than 0")
		}
		amount := p.Amount.Round(2)
		paid = paid.Add(amount)
		out = append(out, domain.SalePayment{Method: method, Amount: amount})
	}
	if paid.LessThan(total) {
		return nil, invalid("payments", "payments of %s do not cover the total of %s",
			paid.StringFixed(2), total.StringFixed(2))
	}
	return out, nil
}

func (s *Service) GetSale(ctx context.Context, id string) (domain.Sale, error) {
	if err := requireRole(ctx, domain.RoleAdmin, domain.RoleCashier); err != nil {
		return domain.Sale{}, err
	}
	sale, err := s.repo.GetSale(ctx, strings.TrimSpace(id))
	if err != nil {
		return domain.Sale{}, err
	}
	return *sale, nil
}

func (s *Service) ListSales(ctx context.Context, filter domain.SaleFilter) ([]domain.Sale, error) {
	if err := requireRole(ctx, domain.RoleAdmin, domain.RoleCashier); err != nil {
		return nil, err
	}
	if !filter.From.IsZero() && !filter.To.IsZero() && !filter.From.Before(filter.To) {
		return nil, invalid("to", "must be after from")
	}
	return s.repo.ListSales(ctx, filter)
}

// DayRange is the half-open [start of day, next midnight) window around t in
// the reporting location.
func (s *Service) DayRange(t time.Time) domain.SaleFilter {
	local := t.In(s.Location())
	from := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, local.Location())
	return domain.SaleFilter{From: from, To: from.AddDate(0, 0, 1)}
}

func (s *Service) TodaySales(ctx context.Context) (TodaySales, error) {
	if err := requireRole(ctx, domain.RoleAdmin, domain.RoleCashier); err != nil {
		return TodaySales{}, err
	}
	now := s.Now()
	sales, err := s.repo.ListSales(ctx, s.DayRange(now))
	if err != nil {
		return TodaySales{}, err
	}
	summary, err := s.DailyReport(ctx, now)
	if err != nil {
		return TodaySales{}, err
	}
	return TodaySales{Sales: sales, Summary: summary}, nil
}

func (s *Service) PaymentBreakdown(ctx context.Context, day time.Time) ([]report.PaymentTotal, error) {
	if err := requireRole(ctx, domain.RoleAdmin, domain.RoleCashier); err != nil {
		return nil, err
	}
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return report.PaymentBreakdown(day.In(s.Location()), snap.Transactions), nil
}

// BestSelling ranks items over the whole sales history. A limit of 0 means
// the default.
func (s *Service) BestSelling(ctx context.Context, limit int) ([]report.ItemQuantity, error) {
	if err := requireRole(ctx, domain.RoleAdmin, domain.RoleCashier); err != nil {
		return nil, err
	}
	if limit == 0 {
		limit = defaultBestSellingLimit
	}
	if limit < 1 || limit > maxBestSellingLimit {
		return nil, invalid("limit", "must be between 1 and %d", maxBestSellingLimit)
	}
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return report.TopSellingItems(snap.Transactions, limit), nil
}
