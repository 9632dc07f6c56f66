package report

import "github.com/shopspring/decimal"

var lowStockLimit = decimal.NewFromInt(LowStockThreshold)

// LowStock ignores per-item reorder levels; the threshold is always LowStockThreshold.
func LowStock(items []InventoryItem) []InventoryItem {
	out := make([]InventoryItem, 0)
	for _, item := range items {
		if item.Quantity.IsPositive() && item.Quantity.LessThan(lowStockLimit) {
			out = append(out, item)
		}
	}
	return out
}

func OutOfStock(items []InventoryItem) []InventoryItem {
	out := make([]InventoryItem, 0)
	for _, item := range items {
		if item.Quantity.IsZero() {
			out = append(out, item)
		}
	}
	return out
}

func EvaluateStock(items []InventoryItem) StockAlerts {
	return StockAlerts{
		LowStock:   LowStock(items),
		OutOfStock: OutOfStock(items),
	}
}
