package billing

import "time"

// SkipReason explains why a plan produced no invoice in a sweep.
type SkipReason string

const (
	SkipNone         SkipReason = ""
	SkipNotMonthly   SkipReason = "not_monthly"
	SkipMissingDates SkipReason = "missing_dates"
	SkipNotYetDue    SkipReason = "not_yet_due"
	SkipOutOfRange   SkipReason = "out_of_range"
	SkipMaterialized SkipReason = "already_materialized"
	SkipCapReached   SkipReason = "cap_reached"
)

// DueOptions tunes the due-invoice evaluation.
type DueOptions struct {
	// CatchUp also materializes earlier periods of the plan that came due
	// while no sweep ran. Without it only the current period is considered.
	CatchUp bool
}

// Evaluation is the outcome of evaluating one plan against a date.
type Evaluation struct {
	PlanID string
	Due    []Invoice
	// Reason is the current period's skip reason when Due is empty.
	Reason SkipReason
}

// DueInvoices returns the invoices that are due on today across all plans.
// This is a PURE function.
func DueInvoices(plans []Plan, today time.Time, opts DueOptions) []Invoice {
	var due []Invoice
	for _, p := range plans {
		due = append(due, EvaluatePlan(p, today, opts).Due...)
	}
	return due
}

// EvaluatePlan decides which invoices of a monthly plan are due on today.
//
// The billing day is the plan start's day of month, clamped to the length of
// shorter months: a plan starting on the 31st bills on Feb 28 or 29 instead
// of skipping February. A period is due once its billing day has arrived, it lies
// within [start, end], it has not been materialized yet, and its installment
// number does not exceed the plan's total.
// Only the date part of today is used.
// This is a PURE function.
func EvaluatePlan(p Plan, today time.Time, opts DueOptions) Evaluation {
	ev := Evaluation{PlanID: p.ID}

	if p.PaymentType != PaymentTypeMonthly {
		ev.Reason = SkipNotMonthly
		return ev
	}
	if p.Start == nil || p.End == nil {
		ev.Reason = SkipMissingDates
		return ev
	}

	start := DateOf(*p.Start)
	end := DateOf(*p.End)
	loc := start.Location()
	ty, tm, td := today.Date()
	day := time.Date(ty, tm, td, 0, 0, 0, 0, loc)

	first := day
	if opts.CatchUp && start.Before(day) {
		first = start
	}

	for k := MonthsBetween(first, day); k >= 0; k-- {
		month := time.Date(ty, tm-time.Month(k), 1, 0, 0, 0, 0, loc)
		inv, reason := evaluatePeriod(p, start, end, month.Year(), month.Month(), day)
		if reason == SkipNone {
			ev.Due = append(ev.Due, inv)
		} else if k == 0 {
			ev.Reason = reason
		}
	}
	if len(ev.Due) > 0 {
		ev.Reason = SkipNone
	}
	return ev
}

func evaluatePeriod(p Plan, start, end time.Time, year int, month time.Month, today time.Time) (Invoice, SkipReason) {
	candidate := BillingDate(year, month, start.Day(), start.Location())
	if today.Before(candidate) {
		return Invoice{}, SkipNotYetDue
	}
	if candidate.Before(start) || candidate.After(end) {
		return Invoice{}, SkipOutOfRange
	}
	period := Period{Year: year, Month: int(month)}
	if p.Materialized(period) {
		return Invoice{}, SkipMaterialized
	}
	number := MonthsBetween(start, candidate) + 1
	if number > p.TotalInstallments {
		return Invoice{}, SkipCapReached
	}

	return Invoice{
		PlayerID:          p.PlayerID,
		PlanID:            p.ID,
		PaymentType:       PaymentTypeMonthly,
		Month:             period.Month,
		Year:              period.Year,
		Amount:            p.Amount,
		Status:            InvoiceStatusPending,
		Notes:             p.Notes,
		PlanStartDate:     copyTime(p.Start),
		PlanEndDate:       copyTime(p.End),
		DueDate:           &candidate,
		InstallmentNumber: number,
		TotalInstallments: p.TotalInstallments,
	}, SkipNone
}
