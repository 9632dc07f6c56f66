package report

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

func sumAmount(txs []Transaction) decimal.Decimal {
	total := decimal.Zero
	for _, t := range txs {
		total = total.Add(t.Amount)
	}
	return total
}

func DailyTotalRevenue(now time.Time, txs []Transaction) decimal.Decimal {
	return sumAmount(DailyFilter(now, txs))
}

func DailyTotalTransactions(now time.Time, txs []Transaction) int {
	return len(DailyFilter(now, txs))
}

// DailyTransactionsSorted returns today's transactions, most recent first.
func DailyTransactionsSorted(now time.Time, txs []Transaction) []Transaction {
	daily := DailyFilter(now, txs)
	sort.SliceStable(daily, func(i, j int) bool {
		return daily[i].Date.After(daily[j].Date)
	})
	return daily
}

// TopSellingItems groups every transaction by item name and orders the groups
// by summed quantity. Equal quantities keep first-seen order.
func TopSellingItems(txs []Transaction, limit int) []ItemQuantity {
	counts := NewOrderedMap[string, int]()
	for _, t := range txs {
		counts.Update(t.ItemName, func(q int) int { return q + t.Quantity })
	}

	items := make([]ItemQuantity, 0, counts.Len())
	counts.Each(func(name string, qty int) {
		items = append(items, ItemQuantity{Name: name, Quantity: qty})
	})
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Quantity > items[j].Quantity
	})

	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items
}

// BestSellingItem looks at the whole history, not only today. Nil when there
// are no transactions.
func BestSellingItem(txs []Transaction) *ItemQuantity {
	top := TopSellingItems(txs, 1)
	if len(top) == 0 {
		return nil
	}
	best := top[0]
	return &best
}

func PaymentBreakdown(now time.Time, txs []Transaction) []PaymentTotal {
	totals := NewOrderedMap[string, decimal.Decimal]()
	for _, t := range DailyFilter(now, txs) {
		totals.Update(t.paymentMethod(), func(sum decimal.Decimal) decimal.Decimal {
			return sum.Add(t.Amount)
		})
	}

	out := make([]PaymentTotal, 0, totals.Len())
	totals.Each(func(method string, amount decimal.Decimal) {
		out = append(out, PaymentTotal{Method: method, Amount: amount})
	})
	return out
}

func BuildDaily(now time.Time, snap Snapshot) DailySummary {
	sorted := DailyTransactionsSorted(now, snap.Transactions)
	for i := range sorted {
		sorted[i].PaymentMethod = sorted[i].paymentMethod()
	}
	return DailySummary{
		Date:              startOfDay(now),
		TotalRevenue:      sumAmount(sorted),
		TotalTransactions: len(sorted),
		BestSellingItem:   BestSellingItem(snap.Transactions),
		PaymentBreakdown:  PaymentBreakdown(now, snap.Transactions),
		Transactions:      sorted,
	}
}
