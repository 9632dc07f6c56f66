// Package cli holds the posctl commands: offline report exports and the stock
// alert listing, run against the same store the server uses.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"latiafanny/backend/internal/report"
	"latiafanny/backend/internal/service"
)

const commandTimeout = 60 * time.Second

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Reports is the slice of the service the commands need.
type Reports interface {
	ParseDay(value string) (time.Time, error)
	ParseMonth(value string) (time.Time, error)
	DailyReport(ctx context.Context, day time.Time) (report.DailySummary, error)
	MonthlyReport(ctx context.Context, month time.Time) (report.MonthlySummary, error)
	ExportDaily(ctx context.Context, day time.Time, format string) (report.Document, error)
	ExportMonthly(ctx context.Context, month time.Time, format string) (report.Document, error)
	StockAlerts(ctx context.Context) (report.StockAlerts, error)
}

// Opener connects to the backing store. The returned func releases it.
type Opener func(ctx context.Context) (Reports, func(), error)

func NewRootCmd(open Opener) *cobra.Command {
	root := &cobra.Command{
		Use:           "posctl",
		Short:         "La Tia Fanny POS maintenance commands",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newReportCmd(open), newAlertsCmd(open))
	return root
}

func newReportCmd(open Opener) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Build sales reports",
	}
	cmd.AddCommand(newDailyCmd(open), newMonthlyCmd(open))
	return cmd
}

type exportCmd struct {
	open   Opener
	period string
	format string
	output string
}

func newDailyCmd(open Opener) *cobra.Command {
	ec := &exportCmd{open: open}
	cmd := &cobra.Command{
		Use:   "daily",
		Short: "Daily sales report",
		Args:  cobra.NoArgs,
		RunE:  ec.runDaily,
	}
	cmd.Flags().StringVar(&ec.period, "date", "", "Day to report as YYYY-MM-DD (default today)")
	ec.bindOutput(cmd)
	return cmd
}

func newMonthlyCmd(open Opener) *cobra.Command {
	ec := &exportCmd{open: open}
	cmd := &cobra.Command{
		Use:   "monthly",
		Short: "Monthly sales report",
		Args:  cobra.NoArgs,
		RunE:  ec.runMonthly,
	}
	cmd.Flags().StringVar(&ec.period, "month", "", "Month to report as YYYY-MM (default this month)")
	ec.bindOutput(cmd)
	return cmd
}

func (ec *exportCmd) bindOutput(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&ec.format, "format", "f", service.FormatCSV, "Output format: csv, html or json")
	cmd.Flags().StringVarP(&ec.output, "output", "o", "", "Write to this path, or - for stdout (default: the report's own filename)")
}

func (ec *exportCmd) runDaily(cmd *cobra.Command, _ []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), commandTimeout)
	defer cancel()

	reports, release, err := ec.open(ctx)
	if err != nil {
		return err
	}
	defer release()

	day, err := reports.ParseDay(ec.period)
	if err != nil {
		return err
	}
	if ec.format == service.FormatJSON {
		summary, err := reports.DailyReport(ctx, day)
		if err != nil {
			return err
		}
		return writeIndented(cmd.OutOrStdout(), summary)
	}
	doc, err := reports.ExportDaily(ctx, day, ec.format)
	if err != nil {
		return err
	}
	return ec.write(cmd, doc)
}

func (ec *exportCmd) runMonthly(cmd *cobra.Command, _ []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), commandTimeout)
	defer cancel()

	reports, release, err := ec.open(ctx)
	if err != nil {
		return err
	}
	defer release()

	month, err := reports.ParseMonth(ec.period)
	if err != nil {
		return err
	}
	if ec.format == service.FormatJSON {
		summary, err := reports.MonthlyReport(ctx, month)
		if err != nil {
			return err
		}
		return writeIndented(cmd.OutOrStdout(), summary)
	}
	doc, err := reports.ExportMonthly(ctx, month, ec.format)
	if err != nil {
		return err
	}
	return ec.write(cmd, doc)
}

func (ec *exportCmd) write(cmd *cobra.Command, doc report.Document) error {
	if ec.output == "-" {
		_, err := cmd.OutOrStdout().Write(doc.Content)
		return err
	}

	path := ec.output
	if path == "" {
		path = filepath.Base(doc.Filename)
	}
	if err := os.WriteFile(path, doc.Content, 0o644); err != nil {
		return errors.Wrapf(err, "write %s", path)
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "wrote %s (%d bytes)\n", path, len(doc.Content))
	return nil
}

func writeIndented(w io.Writer, v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "%s\n", out)
	return err
}

func newAlertsCmd(open Opener) *cobra.Command {
	return &cobra.Command{
		Use:   "alerts",
		Short: "List low and out-of-stock inventory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), commandTimeout)
			defer cancel()

			reports, release, err := open(ctx)
			if err != nil {
				return err
			}
			defer release()

			alerts, err := reports.StockAlerts(ctx)
			if err != nil {
				return err
			}
			return printAlerts(cmd.OutOrStdout(), alerts)
		},
	}
}

func printAlerts(w io.Writer, alerts report.StockAlerts) error {
	if len(alerts.LowStock) == 0 && len(alerts.OutOfStock) == 0 {
		_, err := fmt.Fprintln(w, "All items are sufficiently stocked.")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "STATUS\tITEM\tQUANTITY\tUNIT")
	for _, item := range alerts.OutOfStock {
		fmt.Fprintf(tw, "OUT\t%s\t%s\t%s\n", item.Name, item.Quantity.String(), item.Unit)
	}
	for _, item := range alerts.LowStock {
		fmt.Fprintf(tw, "LOW\t%s\t%s\t%s\n", item.Name, item.Quantity.String(), item.Unit)
	}
	return tw.Flush()
}
