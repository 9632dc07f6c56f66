package report

import (
	"bytes"
	"fmt"
	"html/template"
	"regexp"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	CSVMimeType  = "text/csv"
	HTMLMimeType = "text/html"

	storeTitle = "La Tia Fanny POS"
)

type Document struct {
	Filename string
	MIMEType string
	Content  []byte
}

var whitespaceRun = regexp.MustCompile(`\s+`)

func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}

// quoted always wraps the value, doubling embedded quotes.
func quoted(value string) string {
	return `"` + strings.ReplaceAll(value, `"`, `""`) + `"`
}

// field quotes only when the value would otherwise break the row.
func field(value string) string {
	if strings.ContainsAny(value, ",\"\r\n") {
		return quoted(value)
	}
	return value
}

func DailyCSV(s DailySummary) Document {
	date := s.Date.Format("1/2/2006")

	var b strings.Builder
	fmt.Fprintf(&b, "%s - Daily Sales Report\n", storeTitle)
	fmt.Fprintf(&b, "Date: %s\n\n", date)
	b.WriteString("SUMMARY\n")
	fmt.Fprintf(&b, "Total Revenue (₱),%s\n", money(s.TotalRevenue))
	fmt.Fprintf(&b, "Total Transactions,%d\n", s.TotalTransactions)
	best := "N/A (0 units)"
	if s.BestSellingItem != nil {
		best = fmt.Sprintf("%s (%d units)", s.BestSellingItem.Name, s.BestSellingItem.Quantity)
	}
	fmt.Fprintf(&b, "Best Selling Item,%s\n\n", quoted(best))

	b.WriteString("PAYMENT BREAKDOWN\n")
	b.WriteString("Payment Method,Amount (₱)\n")
	for _, pb := range s.PaymentBreakdown {
		fmt.Fprintf(&b, "%s,%s\n", field(pb.Method), money(pb.Amount))
	}

	b.WriteString("\nTRANSACTION DETAILS\n")
	b.WriteString("No.,Time,Total (₱),Payment Method\n")
	for i, t := range s.Transactions {
		at := t.Date.In(s.Date.Location()).Format("3:04:05 PM")
		fmt.Fprintf(&b, "%d,%s,%s,%s\n", i+1, at, money(t.Amount), field(t.paymentMethod()))
	}

	return Document{
		Filename: "Daily_Report_" + strings.ReplaceAll(date, "/", "-") + ".csv",
		MIMEType: CSVMimeType,
		Content:  []byte(b.String()),
	}
}

func MonthlyCSV(s MonthlySummary) Document {
	monthYear := s.Month.Format("January 2006")

	var b strings.Builder
	fmt.Fprintf(&b, "%s - Monthly Sales Report\n", storeTitle)
	fmt.Fprintf(&b, "Month: %s\n\n", monthYear)
	b.WriteString("SUMMARY\n")
	fmt.Fprintf(&b, "Total Monthly Revenue (₱),%s\n", money(s.TotalRevenue))
	fmt.Fprintf(&b, "Total Transactions,%d\n", s.TotalTransactions)
	fmt.Fprintf(&b, "Average Daily Sales (₱),%s\n", money(s.AverageDailySales))
	name, profit := "N/A", "0.00"
	if s.MostProfitableItem != nil {
		name = s.MostProfitableItem.Name
		profit = money(s.MostProfitableItem.Profit)
	}
	fmt.Fprintf(&b, "Most Profitable Item,%s\n", quoted(name))
	fmt.Fprintf(&b, "Total Profit (₱),%s\n\n", profit)

	b.WriteString("SALES PER DAY\n")
	b.WriteString("Day,Revenue (₱)\n")
	for _, day := range s.Performance {
		if day.Amount.IsPositive() {
			fmt.Fprintf(&b, "Day %d,%s\n", day.Day, money(day.Amount))
		}
	}

	return Document{
		Filename: "Monthly_Report_" + whitespaceRun.ReplaceAllString(monthYear, "_") + ".csv",
		MIMEType: CSVMimeType,
		Content:  []byte(b.String()),
	}
}

var printFuncs = template.FuncMap{
	"money": money,
	"percent": func(ratio float64) string {
		return strconv.FormatFloat(ratio*100, 'f', 1, 64)
	},
	"clock": func(s DailySummary, t Transaction) string {
		return t.Date.In(s.Date.Location()).Format("3:04:05 PM")
	},
	"inc": func(i int) int { return i + 1 },
}

var dailyHTML = template.Must(template.New("daily").Funcs(printFuncs).Parse(`<!doctype html>
<html>
<head>
  <meta charset="utf-8" />
  <title>Daily Sales Report {{.Date.Format "1/2/2006"}}</title>
  <style>
    body { font-family: sans-serif; margin: 24px; }
    table { width: 100%; border-collapse: collapse; margin-top: 8px; }
    th, td { border: 1px solid #ddd; padding: 6px; font-size: 13px; }
    td.num { text-align: right; }
  </style>
</head>
<body onload="window.print()">
  <h2>La Tia Fanny POS - Daily Sales Report</h2>
  <p>Date: {{.Date.Format "1/2/2006"}}</p>
  <p>Total Revenue: &#8369;{{money .TotalRevenue}} | Total Transactions: {{.TotalTransactions}}</p>
  <p>Best Selling Item: {{with .BestSellingItem}}{{.Name}} ({{.Quantity}} units){{else}}N/A (0 units){{end}}</p>

  <h3>Payment Breakdown</h3>
  <table>
    <thead><tr><th>Payment Method</th><th>Amount (&#8369;)</th></tr></thead>
    <tbody>{{range .PaymentBreakdown}}<tr><td>{{.Method}}</td><td class="num">{{money .Amount}}</td></tr>{{end}}</tbody>
  </table>

  <h3>Transaction Details</h3>
  {{if .Transactions}}<table>
    <thead><tr><th>No.</th><th>Time</th><th>Total (&#8369;)</th><th>Payment Method</th></tr></thead>
    <tbody>{{$s := .}}{{range $i, $t := .Transactions}}<tr><td>{{inc $i}}</td><td>{{clock $s $t}}</td><td class="num">{{money $t.Amount}}</td><td>{{$t.PaymentMethod}}</td></tr>{{end}}</tbody>
  </table>{{else}}<p>No transactions today</p>{{end}}
</body>
</html>
`))

var monthlyHTML = template.Must(template.New("monthly").Funcs(printFuncs).Parse(`<!doctype html>
<html>
<head>
  <meta charset="utf-8" />
  <title>Monthly Sales Report {{.Month.Format "January 2006"}}</title>
  <style>
    body { font-family: sans-serif; margin: 24px; }
    .bar { background: #4a7; height: 12px; }
    table { width: 100%; border-collapse: collapse; margin-top: 8px; }
    th, td { border: 1px solid #ddd; padding: 4px; font-size: 12px; }
  </style>
</head>
<body onload="window.print()">
  <h2>La Tia Fanny POS - Monthly Sales Report</h2>
  <p>Month: {{.Month.Format "January 2006"}}</p>
  <p>Total Monthly Revenue: &#8369;{{money .TotalRevenue}} | Total Transactions: {{.TotalTransactions}} | Average Daily Sales: &#8369;{{money .AverageDailySales}}</p>
  <p>Most Profitable Item: {{with .MostProfitableItem}}{{.Name}} (&#8369;{{money .Profit}}){{else}}N/A{{end}}</p>

  <h3>Sales Per Day</h3>
  <table>
    <thead><tr><th>Day</th><th>Revenue (&#8369;)</th><th></th></tr></thead>
    <tbody>{{range .Performance}}<tr><td>{{.Day}}</td><td>{{money .Amount}}</td><td><div class="bar" style="width: {{percent .Ratio}}%"></div></td></tr>{{end}}</tbody>
  </table>
</body>
</html>
`))

func render(tmpl *template.Template, filename string, data any) (Document, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return Document{}, err
	}
	return Document{Filename: filename, MIMEType: HTMLMimeType, Content: buf.Bytes()}, nil
}

func DailyHTML(s DailySummary) (Document, error) {
	name := "Daily_Report_" + strings.ReplaceAll(s.Date.Format("1/2/2006"), "/", "-") + ".html"
	return render(dailyHTML, name, s)
}

func MonthlyHTML(s MonthlySummary) (Document, error) {
	name := "Monthly_Report_" + whitespaceRun.ReplaceAllString(s.Month.Format("January 2006"), "_") + ".html"
	return render(monthlyHTML, name, s)
}
