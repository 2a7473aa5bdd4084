package main

import (
	"fmt"
	"time"

	"github.com/artpar/clubdues/app"
	"github.com/artpar/clubdues/domain/billing"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

var plansCmd = &cobra.Command{
	Use:   "plans",
	Short: "Manage billing plans",
	Long: `Manage player billing plans.

An installment plan splits the total into a fixed number of invoices that
are all created up front. A monthly plan bills the total once per calendar
month between the start and end dates; its first invoice is created now
and the rest by the sweep.

Examples:
  clubdues plans create --player p_1 --type installment --start 2024-01-15 --end 2024-04-15 --amount 9000 --installments 3
  clubdues plans create --player p_1 --type monthly --start 2024-01-15 --end 2024-06-15 --amount 5000
  clubdues plans get plan_123`,
}

var plansCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a plan and its initial invoices",
	RunE:  runPlansCreate,
}

var plansGetCmd = &cobra.Command{
	Use:   "get <plan-id>",
	Short: "Show a plan and its invoices",
	Args:  cobra.ExactArgs(1),
	RunE:  runPlansGet,
}

var (
	planPlayer       string
	planType         string
	planStart        string
	planEnd          string
	planAmount       string
	planInstallments int
	planStatus       string
	planNotes        string
)

func init() {
	rootCmd.AddCommand(plansCmd)

	plansCmd.AddCommand(plansCreateCmd)
	plansCmd.AddCommand(plansGetCmd)

	plansCreateCmd.Flags().StringVar(&planPlayer, "player", "", "player ID (required)")
	plansCreateCmd.Flags().StringVar(&planType, "type", "monthly", "payment type: monthly or installment")
	plansCreateCmd.Flags().StringVar(&planStart, "start", "", "start date YYYY-MM-DD (required)")
	plansCreateCmd.Flags().StringVar(&planEnd, "end", "", "end date YYYY-MM-DD (required)")
	plansCreateCmd.Flags().StringVar(&planAmount, "amount", "", "total amount (required)")
	plansCreateCmd.Flags().IntVar(&planInstallments, "installments", 0, "number of installments")
	plansCreateCmd.Flags().StringVar(&planStatus, "status", "", "initial status: pending, paid or overdue")
	plansCreateCmd.Flags().StringVar(&planNotes, "notes", "", "notes copied to every invoice")
	plansCreateCmd.MarkFlagRequired("player")
	plansCreateCmd.MarkFlagRequired("start")
	plansCreateCmd.MarkFlagRequired("end")
	plansCreateCmd.MarkFlagRequired("amount")
}

func runPlansCreate(cmd *cobra.Command, args []string) error {
	start, err := time.Parse(time.DateOnly, planStart)
	if err != nil {
		return fmt.Errorf("invalid --start: %w", err)
	}
	end, err := time.Parse(time.DateOnly, planEnd)
	if err != nil {
		return fmt.Errorf("invalid --end: %w", err)
	}
	amount, err := decimal.NewFromString(planAmount)
	if err != nil {
		return fmt.Errorf("invalid --amount: %w", err)
	}

	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Shutdown()

	res, err := a.Plans.CreatePlan(cmd.Context(), app.CreatePlanRequest{
		PlayerID:     planPlayer,
		PaymentType:  billing.PaymentType(planType),
		StartDate:    &start,
		EndDate:      &end,
		TotalAmount:  &amount,
		Installments: planInstallments,
		Status:       billing.InvoiceStatus(planStatus),
		Notes:        planNotes,
	})
	if err != nil {
		return fmt.Errorf("failed to create plan: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Plan created: %s\n", res.PlanID)
	fmt.Fprintf(out, "  Invoices created: %d\n", res.CreatedCount)
	if res.TotalPlanned > 0 {
		fmt.Fprintf(out, "  Invoices planned: %d\n", res.TotalPlanned)
	}
	fmt.Fprintln(out)
	printInvoices(out, res.Invoices)
	return nil
}

func runPlansGet(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Shutdown()

	p, err := a.Plans.GetPlan(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("failed to get plan: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Plan:         %s\n", p.ID)
	fmt.Fprintf(out, "Player:       %s\n", p.PlayerID)
	fmt.Fprintf(out, "Type:         %s\n", p.PaymentType)
	if p.Start != nil && p.End != nil {
		fmt.Fprintf(out, "Period:       %s to %s\n", p.Start.Format(time.DateOnly), p.End.Format(time.DateOnly))
	}
	fmt.Fprintf(out, "Per invoice:  %s\n", billing.FormatAmount(p.Amount))
	fmt.Fprintf(out, "Billed:       %s\n", billing.FormatAmount(p.Total()))
	fmt.Fprintf(out, "Invoiced:     %d of %d (%d remaining)\n", len(p.Invoices), p.TotalInstallments, p.Remaining())
	fmt.Fprintln(out)
	printInvoices(out, p.Invoices)
	return nil
}
