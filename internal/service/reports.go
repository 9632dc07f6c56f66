package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"latiafanny/backend/internal/domain"
	"latiafanny/backend/internal/report"
	"latiafanny/backend/internal/store"
)

const (
	FormatJSON = "json"
	FormatCSV  = "csv"
	FormatHTML = "html"

	dayLayout   = "2006-01-02"
	monthLayout = "2006-01"
)

func isNotFound(err error) bool {
	return errors.Is(err, store.ErrNotFound)
}

// invalidateSnapshot drops the cached report input after a write. A cache
// failure only costs a stale read until the TTL runs out.
func (s *Service) invalidateSnapshot(ctx context.Context) {
	if err := s.snapshots.Invalidate(ctx); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Msg("snapshot invalidation failed")
	}
}

// Snapshot returns the report input: every sale, the inventory and the catalog.
// A freshly loaded snapshot is cached under the generation read before the
// load, so a write that lands mid-load makes it unreachable.
func (s *Service) Snapshot(ctx context.Context) (report.Snapshot, error) {
	logger := zerolog.Ctx(ctx)
	cached, generation, ok, readErr := s.snapshots.Get(ctx)
	if readErr != nil {
		logger.Warn().Err(readErr).Msg("snapshot cache read failed")
	}
	if ok && cached != nil {
		return *cached, nil
	}

	snap, err := s.loadSnapshot(ctx)
	if err != nil {
		return report.Snapshot{}, err
	}
	// Without a known generation the snapshot cannot be cached safely.
	if s.snapshotTTL > 0 && readErr == nil {
		if err := s.snapshots.Set(ctx, generation, &snap, s.snapshotTTL); err != nil {
			logger.Warn().Err(err).Msg("snapshot cache write failed")
		}
	}
	return snap, nil
}

func (s *Service) loadSnapshot(ctx context.Context) (report.Snapshot, error) {
	sales, err := s.repo.ListSales(ctx, domain.SaleFilter{})
	if err != nil {
		return report.Snapshot{}, err
	}
	inventory, err := s.repo.ListInventory(ctx)
	if err != nil {
		return report.Snapshot{}, err
	}
	products, err := s.repo.ListProducts(ctx)
	if err != nil {
		return report.Snapshot{}, err
	}

	snap := report.Snapshot{
		Transactions: make([]report.Transaction, 0, len(sales)),
		Inventory:    make([]report.InventoryItem, 0, len(inventory)),
		Catalog:      make([]report.CatalogItem, 0, len(products)),
	}
	for _, sale := range sales {
		snap.Transactions = append(snap.Transactions, toReportTransaction(sale))
	}
	for _, item := range inventory {
		snap.Inventory = append(snap.Inventory, report.InventoryItem{
			ID:       item.ID,
			Name:     item.Name,
			Quantity: item.Quantity,
			Unit:     item.Unit,
		})
	}
	for _, p := range products {
		snap.Catalog = append(snap.Catalog, report.CatalogItem{Name: p.Name, Price: p.Price, Cost: p.Cost})
	}
	return snap, nil
}

// toReportTransaction flattens a sale into the single-line shape the report
// engine works with. The first line names the sale and the first payment
// decides its method.
func toReportTransaction(sale domain.Sale) report.Transaction {
	tx := report.Transaction{
		ID:            sale.ID,
		ItemName:      "Sale",
		Amount:        sale.Total,
		Cost:          decimal.Zero,
		PaymentMethod: report.UnknownPaymentMethod,
		Date:          sale.CreatedAt,
	}
	if len(sale.Items) > 0 && sale.Items[0].Name != "" {
		tx.ItemName = sale.Items[0].Name
	}
	for _, item := range sale.Items {
		tx.Quantity += item.Quantity
		tx.Cost = tx.Cost.Add(item.Cost)
	}
	if len(sale.Payments) > 0 && sale.Payments[0].Method != "" {
		tx.PaymentMethod = sale.Payments[0].Method
	}
	return tx
}

// ParseDay reads YYYY-MM-DD in the reporting location. Empty means today.
func (s *Service) ParseDay(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return s.Now(), nil
	}
	day, err := time.ParseInLocation(dayLayout, value, s.Location())
	if err != nil {
		return time.Time{}, invalid("date", "must be formatted as YYYY-MM-DD")
	}
	return day, nil
}

// ParseMonth reads YYYY-MM in the reporting location. Empty means this month.
func (s *Service) ParseMonth(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return s.Now(), nil
	}
	month, err := time.ParseInLocation(monthLayout, value, s.Location())
	if err != nil {
		return time.Time{}, invalid("month", "must be formatted as YYYY-MM")
	}
	return month, nil
}

func (s *Service) DailyReport(ctx context.Context, day time.Time) (report.DailySummary, error) {
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return report.DailySummary{}, err
	}
	return report.BuildDaily(day.In(s.Location()), snap), nil
}

func (s *Service) MonthlyReport(ctx context.Context, month time.Time) (report.MonthlySummary, error) {
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return report.MonthlySummary{}, err
	}
	return report.BuildMonthly(month.In(s.Location()), snap), nil
}

// StockAlerts uses the fixed report threshold, not per-item reorder levels.
func (s *Service) StockAlerts(ctx context.Context) (report.StockAlerts, error) {
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return report.StockAlerts{}, err
	}
	return report.EvaluateStock(snap.Inventory), nil
}

func (s *Service) ExportDaily(ctx context.Context, day time.Time, format string) (report.Document, error) {
	summary, err := s.DailyReport(ctx, day)
	if err != nil {
		return report.Document{}, err
	}
	switch strings.ToLower(format) {
	case FormatCSV:
		return report.DailyCSV(summary), nil
	case FormatHTML:
		return report.DailyHTML(summary)
	default:
		return report.Document{}, invalid("format", "must be csv or html")
	}
}

func (s *Service) ExportMonthly(ctx context.Context, month time.Time, format string) (report.Document, error) {
	summary, err := s.MonthlyReport(ctx, month)
	if err != nil {
		return report.Document{}, err
	}
	switch strings.ToLower(format) {
	case FormatCSV:
		return report.MonthlyCSV(summary), nil
	case FormatHTML:
		return report.MonthlyHTML(summary)
	default:
		return report.Document{}, invalid("format", "must be csv or html")
	}
}
