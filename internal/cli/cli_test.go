package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"latiafanny/backend/internal/domain"
	"latiafanny/backend/internal/report"
	"latiafanny/backend/internal/service"
	"latiafanny/backend/internal/store/memory"
)

var manila = time.FixedZone("PHT", 8*60*60)

func newService(t *testing.T) *service.Service {
	t.Helper()
	clock := report.FixedClock(time.Date(2026, time.March, 15, 12, 0, 0, 0, manila))
	svc := service.New(memory.NewSeeded(), nil, clock, 0)

	ctx := service.WithActor(context.Background(), domain.Actor{Username: "counter", Role: domain.RoleCashier})
	_, err := svc.CreateSale(ctx, domain.SaleCreateRequest{
		Items: []domain.SaleItemRequest{{ProductID: 1, Quantity: 2}},
	})
	require.NoError(t, err)
	return svc
}

func run(t *testing.T, svc *service.Service, args ...string) (string, string, error) {
	t.Helper()
	released := false
	open := func(context.Context) (Reports, func(), error) {
		return svc, func() { released = true }, nil
	}

	cmd := NewRootCmd(open)
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	if err == nil {
		assert.True(t, released, "store was not released")
	}
	return stdout.String(), stderr.String(), err
}

func TestDailyReportToStdout(t *testing.T) {
	out, _, err := run(t, newService(t), "report", "daily", "--date", "2026-03-15", "-o", "-")
	require.NoError(t, err)

	assert.Contains(t, out, "La Tia Fanny POS - Daily Sales Report")
	assert.Contains(t, out, "Date: 3/15/2026")
	assert.Contains(t, out, "Total Revenue (₱),290.00")
	assert.Contains(t, out, `Best Selling Item,"Tapsilog (2 units)"`)
}

func TestDailyReportWritesDefaultFilename(t *testing.T) {
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	_, stderr, err := run(t, newService(t), "report", "daily")
	require.NoError(t, err)

	content, err := os.ReadFile(filepath.Join(dir, "Daily_Report_3-15-2026.csv"))
	require.NoError(t, err)
	assert.Contains(t, string(content), "Total Transactions,1")
	assert.Contains(t, stderr, "wrote Daily_Report_3-15-2026.csv")
}

func TestMonthlyReportToExplicitPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "march.html")

	_, _, err := run(t, newService(t), "report", "monthly", "--month", "2026-03", "--format", "html", "--output", path)
	require.NoError(t, err)

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(content), "March 2026")
}

func TestMonthlyReportAsJSON(t *testing.T) {
	out, _, err := run(t, newService(t), "report", "monthly", "-f", "json")
	require.NoError(t, err)

	assert.Contains(t, out, `"days_in_month": 31`)
	assert.Contains(t, out, `"total_transactions": 1`)
}

func TestReportRejectsBadInput(t *testing.T) {
	svc := newService(t)

	_, _, err := run(t, svc, "report", "daily", "--date", "15/03/2026")
	var verr *service.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "date", verr.Field)

	_, _, err = run(t, svc, "report", "monthly", "--format", "pdf", "-o", "-")
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "format", verr.Field)
}

func TestAlertsListsStock(t *testing.T) {
	out, _, err := run(t, newService(t), "alerts")
	require.NoError(t, err)

	assert.Contains(t, out, "STATUS")
	assert.Regexp(t, `OUT\s+Tocilog\s+0\s+Pack`, out)
	assert.Regexp(t, `LOW\s+Longsilog\s+8\s+Pack`, out)
	assert.NotContains(t, out, "Chicken Adobo")
}

func TestPrintAlertsWhenStocked(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, printAlerts(&buf, report.StockAlerts{}))
	assert.Equal(t, "All items are sufficiently stocked.\n", buf.String())
}

func TestOpenerFailureIsReturned(t *testing.T) {
	cmd := NewRootCmd(func(context.Context) (Reports, func(), error) {
		return nil, nil, errors.New("postgres unavailable")
	})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{"alerts"})

	assert.EqualError(t, cmd.Execute(), "postgres unavailable")
}
