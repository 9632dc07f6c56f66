package report

import "time"

type Clock interface {
	Now() time.Time
}

// SystemClock reads the host clock in a fixed reporting location.
type SystemClock struct {
	Location *time.Location
}

func (c SystemClock) Now() time.Time {
	loc := c.Location
	if loc == nil {
		loc = time.UTC
	}
	return time.Now().In(loc)
}

type FixedClock time.Time

func (c FixedClock) Now() time.Time {
	return time.Time(c)
}

// Transaction dates are always compared in the location carried by now.

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func sameDay(now time.Time, t time.Time) bool {
	return startOfDay(t.In(now.Location())).Equal(startOfDay(now))
}

func sameMonth(now time.Time, t time.Time) bool {
	local := t.In(now.Location())
	return local.Month() == now.Month() && local.Year() == now.Year()
}

func DaysInMonth(now time.Time) int {
	return time.Date(now.Year(), now.Month()+1, 0, 0, 0, 0, 0, now.Location()).Day()
}

func DailyFilter(now time.Time, txs []Transaction) []Transaction {
	out := make([]Transaction, 0, len(txs))
	for _, t := range txs {
		if sameDay(now, t.Date) {
			out = append(out, t)
		}
	}
	return out
}

func MonthlyFilter(now time.Time, txs []Transaction) []Transaction {
	out := make([]Transaction, 0, len(txs))
	for _, t := range txs {
		if sameMonth(now, t.Date) {
			out = append(out, t)
		}
	}
	return out
}
