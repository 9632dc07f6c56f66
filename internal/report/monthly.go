package report

import (
	"time"

	"github.com/shopspring/decimal"
)

func MonthlyTotalRevenue(now time.Time, txs []Transaction) decimal.Decimal {
	return sumAmount(MonthlyFilter(now, txs))
}

func MonthlyTotalTransactionCount(now time.Time, txs []Transaction) int {
	return len(MonthlyFilter(now, txs))
}

func AverageDailySales(now time.Time, txs []Transaction) decimal.Decimal {
	days := decimal.NewFromInt(int64(DaysInMonth(now)))
	return MonthlyTotalRevenue(now, txs).Div(days)
}

// MostProfitableItem scores every catalog item by (price - cost) times the
// units sold across all transactions. Items without sales score zero and
// still compete. Nil when the catalog is empty.
func MostProfitableItem(catalog []CatalogItem, txs []Transaction) *ItemProfit {
	sold := make(map[string]int)
	for _, t := range txs {
		sold[t.ItemName] += t.Quantity
	}

	profits := NewOrderedMap[string, decimal.Decimal]()
	for _, item := range catalog {
		perUnit := item.Price.Sub(item.Cost)
		profits.Set(item.Name, perUnit.Mul(decimal.NewFromInt(int64(sold[item.Name]))))
	}

	var best *ItemProfit
	profits.Each(func(name string, profit decimal.Decimal) {
		if best == nil || profit.GreaterThan(best.Profit) {
			best = &ItemProfit{Name: name, Profit: profit}
		}
	})
	return best
}

// MonthlyPerformance returns one entry per calendar day of now's month.
func MonthlyPerformance(now time.Time, txs []Transaction) []DayAmount {
	days := DaysInMonth(now)
	perDay := make([]DayAmount, days)
	for i := range perDay {
		perDay[i] = DayAmount{Day: i + 1, Amount: decimal.Zero}
	}

	for _, t := range txs {
		if !sameMonth(now, t.Date) {
			continue
		}
		day := t.Date.In(now.Location()).Day()
		perDay[day-1].Amount = perDay[day-1].Amount.Add(t.Amount)
	}
	return perDay
}

// BarRatio is amount/max, or 0 when max is zero.
func BarRatio(amount decimal.Decimal, max decimal.Decimal) float64 {
	if max.IsZero() {
		return 0
	}
	return amount.Div(max).InexactFloat64()
}

func PerformanceBars(perDay []DayAmount) []DayBar {
	max := decimal.Zero
	for _, d := range perDay {
		if d.Amount.GreaterThan(max) {
			max = d.Amount
		}
	}

	bars := make([]DayBar, 0, len(perDay))
	for _, d := range perDay {
		bars = append(bars, DayBar{Day: d.Day, Amount: d.Amount, Ratio: BarRatio(d.Amount, max)})
	}
	return bars
}

func BuildMonthly(now time.Time, snap Snapshot) MonthlySummary {
	monthly := MonthlyFilter(now, snap.Transactions)
	revenue := sumAmount(monthly)
	days := DaysInMonth(now)
	return MonthlySummary{
		Month:              time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location()),
		DaysInMonth:        days,
		TotalRevenue:       revenue,
		TotalTransactions:  len(monthly),
		AverageDailySales:  revenue.Div(decimal.NewFromInt(int64(days))),
		MostProfitableItem: MostProfitableItem(snap.Catalog, snap.Transactions),
		Performance:        PerformanceBars(MonthlyPerformance(now, snap.Transactions)),
	}
}
