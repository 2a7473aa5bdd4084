package main

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/artpar/clubdues/adapters/clock"
	"github.com/artpar/clubdues/app"
	"github.com/artpar/clubdues/domain/billing"
	"github.com/spf13/cobra"
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Create the monthly invoices that are due",
	Long: `Run one due-invoice sweep and exit.

Every monthly plan gets at most one new invoice per run: the earliest
month that is due and not yet invoiced. With --catch-up the earliest
missing month is created even when later months already exist.

Running the sweep twice on the same day creates nothing the second time.

Examples:
  clubdues sweep
  clubdues sweep --at 2024-03-05
  clubdues sweep --catch-up`,
	RunE: runSweep,
}

var (
	sweepAt      string
	sweepCatchUp bool
)

func init() {
	rootCmd.AddCommand(sweepCmd)

	sweepCmd.Flags().StringVar(&sweepAt, "at", "", "evaluate as of this date (YYYY-MM-DD), default today in the club timezone")
	sweepCmd.Flags().BoolVar(&sweepCatchUp, "catch-up", false, "also create missed earlier months")
}

func runSweep(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Shutdown()

	loc, err := a.Config.Billing.Location()
	if err != nil {
		return err
	}
	today := clock.Today(time.Now(), loc)
	if sweepAt != "" {
		at, err := time.Parse(time.DateOnly, sweepAt)
		if err != nil {
			return fmt.Errorf("invalid --at date %q: %w", sweepAt, err)
		}
		today = at
	}
	catchUp := sweepCatchUp || a.Config.Billing.SweepCatchUp

	ctx, cancel := context.WithTimeout(cmd.Context(), a.Config.Billing.SweepTimeout)
	defer cancel()

	res, err := a.Sweeper.SweepAt(ctx, today, catchUp)
	if err != nil {
		return fmt.Errorf("sweep failed: %w", err)
	}

	printSweepResult(cmd, today, res)
	return nil
}

func printSweepResult(cmd *cobra.Command, today time.Time, res app.SweepResult) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Sweep for %s: %s\n", today.Format(time.DateOnly), res.Message)
	if res.Conflicts > 0 {
		fmt.Fprintf(out, "  %d invoice(s) already existed\n", res.Conflicts)
	}
	if len(res.Invoices) == 0 {
		return
	}

	fmt.Fprintln(out)
	printInvoices(out, res.Invoices)
}

func printInvoices(out io.Writer, invoices []billing.Invoice) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tPLAYER\tPLAN\tPERIOD\tDUE\tAMOUNT\tSTATUS")
	fmt.Fprintln(w, "--\t------\t----\t------\t---\t------\t------")
	for _, inv := range invoices {
		due := "-"
		if inv.DueDate != nil {
			due = inv.DueDate.Format(time.DateOnly)
		}
		plan := inv.PlanID
		if plan == "" {
			plan = "-"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%04d-%02d\t%s\t%s\t%s\n",
			inv.ID, inv.PlayerID, plan, inv.Year, inv.Month, due, billing.FormatAmount(inv.Amount), inv.Status)
	}
	w.Flush()
}
