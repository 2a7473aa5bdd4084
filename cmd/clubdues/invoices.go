package main

import (
	"fmt"
	"time"

	"github.com/artpar/clubdues/domain/billing"
	"github.com/artpar/clubdues/ports"
	"github.com/spf13/cobra"
)

var invoicesCmd = &cobra.Command{
	Use:   "invoices",
	Short: "List and settle invoices",
	Long: `List and settle invoices.

Examples:
  clubdues invoices list --player p_1
  clubdues invoices list --month 3 --year 2024 --status pending
  clubdues invoices pay inv_123
  clubdues invoices pay inv_123 --date 2024-03-02`,
}

var invoicesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List invoices, newest period first",
	RunE:  runInvoicesList,
}

var invoicesPayCmd = &cobra.Command{
	Use:   "pay <invoice-id>",
	Short: "Mark an invoice as paid",
	Args:  cobra.ExactArgs(1),
	RunE:  runInvoicesPay,
}

var (
	invoicePlayer string
	invoicePlan   string
	invoiceType   string
	invoiceStatus string
	invoiceMonth  int
	invoiceYear   int
	invoiceLimit  int
	invoicePaidOn string
)

func init() {
	rootCmd.AddCommand(invoicesCmd)

	invoicesCmd.AddCommand(invoicesListCmd)
	invoicesCmd.AddCommand(invoicesPayCmd)

	invoicesListCmd.Flags().StringVar(&invoicePlayer, "player", "", "filter by player ID")
	invoicesListCmd.Flags().StringVar(&invoicePlan, "plan", "", "filter by plan ID")
	invoicesListCmd.Flags().StringVar(&invoiceType, "type", "", "filter by payment type")
	invoicesListCmd.Flags().StringVar(&invoiceStatus, "status", "", "filter by status")
	invoicesListCmd.Flags().IntVar(&invoiceMonth, "month", 0, "filter by month (1-12)")
	invoicesListCmd.Flags().IntVar(&invoiceYear, "year", 0, "filter by year")
	invoicesListCmd.Flags().IntVar(&invoiceLimit, "limit", 100, "maximum invoices to show")

	invoicesPayCmd.Flags().StringVar(&invoicePaidOn, "date", "", "payment date YYYY-MM-DD (default: now)")
}

func runInvoicesList(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Shutdown()

	invoices, err := a.Plans.ListInvoices(cmd.Context(), ports.InvoiceFilter{
		PaymentType: billing.PaymentType(invoiceType),
		PlanID:      invoicePlan,
		PlayerID:    invoicePlayer,
		Month:       invoiceMonth,
		Year:        invoiceYear,
		Status:      billing.InvoiceStatus(invoiceStatus),
		Limit:       invoiceLimit,
	})
	if err != nil {
		return fmt.Errorf("failed to list invoices: %w", err)
	}

	out := cmd.OutOrStdout()
	if len(invoices) == 0 {
		fmt.Fprintln(out, "No invoices found.")
		return nil
	}
	printInvoices(out, invoices)
	return nil
}

func runInvoicesPay(cmd *cobra.Command, args []string) error {
	update := billing.InvoiceUpdate{}
	paid := billing.InvoiceStatusPaid
	update.Status = &paid
	if invoicePaidOn != "" {
		d, err := time.Parse(time.DateOnly, invoicePaidOn)
		if err != nil {
			return fmt.Errorf("invalid --date: %w", err)
		}
		update.PaidDate = &d
	}

	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Shutdown()

	inv, err := a.Plans.UpdateInvoice(cmd.Context(), args[0], update)
	if err != nil {
		return fmt.Errorf("failed to update invoice: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Invoice %s marked paid (%s)\n", inv.ID, billing.FormatAmount(inv.Amount))
	return nil
}
