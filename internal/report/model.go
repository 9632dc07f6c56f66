package report

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	UnknownPaymentMethod = "unknown"
	LowStockThreshold    = 10
)

// Transaction is one completed sale flattened for reporting.
type Transaction struct {
	ID            string          `json:"id"`
	ItemName      string          `json:"item_name"`
	Quantity      int             `json:"quantity"`
	Amount        decimal.Decimal `json:"amount"`
	Cost          decimal.Decimal `json:"cost"`
	PaymentMethod string          `json:"payment_method"`
	Date          time.Time       `json:"date"`
}

func (t Transaction) paymentMethod() string {
	if t.PaymentMethod == "" {
		return UnknownPaymentMethod
	}
	return t.PaymentMethod
}

type InventoryItem struct {
	ID       int64           `json:"id"`
	Name     string          `json:"name"`
	Quantity decimal.Decimal `json:"quantity"`
	Unit     string          `json:"unit"`
}

type CatalogItem struct {
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
	Cost  decimal.Decimal `json:"cost"`
}

// Snapshot is the read-only input every report is computed from.
type Snapshot struct {
	Transactions []Transaction   `json:"transactions"`
	Inventory    []InventoryItem `json:"inventory"`
	Catalog      []CatalogItem   `json:"catalog"`
}

type ItemQuantity struct {
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
}

type PaymentTotal struct {
	Method string          `json:"method"`
	Amount decimal.Decimal `json:"amount"`
}

type ItemProfit struct {
	Name   string          `json:"name"`
	Profit decimal.Decimal `json:"profit"`
}

type DayAmount struct {
	Day    int             `json:"day"`
	Amount decimal.Decimal `json:"amount"`
}

type DayBar struct {
	Day    int             `json:"day"`
	Amount decimal.Decimal `json:"amount"`
	Ratio  float64         `json:"ratio"`
}

type DailySummary struct {
	Date              time.Time       `json:"date"`
	TotalRevenue      decimal.Decimal `json:"total_revenue"`
	TotalTransactions int             `json:"total_transactions"`
	BestSellingItem   *ItemQuantity   `json:"best_selling_item"`
	PaymentBreakdown  []PaymentTotal  `json:"payment_breakdown"`
	Transactions      []Transaction   `json:"transactions"`
}

type MonthlySummary struct {
	Month              time.Time       `json:"month"`
	DaysInMonth        int             `json:"days_in_month"`
	TotalRevenue       decimal.Decimal `json:"total_revenue"`
	TotalTransactions  int             `json:"total_transactions"`
	AverageDailySales  decimal.Decimal `json:"average_daily_sales"`
	MostProfitableItem *ItemProfit     `json:"most_profitable_item"`
	Performance        []DayBar        `json:"performance"`
}

type StockAlerts struct {
	LowStock   []InventoryItem `json:"low_stock"`
	OutOfStock []InventoryItem `json:"out_of_stock"`
}
