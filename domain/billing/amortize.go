package billing

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// PlanParams is the full parameter set of a plan, fixed at creation.
type PlanParams struct {
	PlanID          string
	PlayerID        string
	PaymentType     PaymentType
	Start           time.Time
	End             time.Time
	TotalAmount     decimal.Decimal
	NumInstallments int // installment plans only
	Status          InvoiceStatus
	PaidDate        *time.Time
	Notes           string
}

// Schedule is what a plan materializes at creation time.
type Schedule struct {
	Invoices []Invoice
	// TotalPlanned is the number of invoices the plan will eventually have.
	TotalPlanned int
}

// MaxInstallments bounds the number of invoices a single installment plan
// may create.
const MaxInstallments = 1200

// Validate checks the parameters common to both payment types.
func (p PlanParams) Validate() error {
	if p.PlayerID == "" {
		return invalid("player_id", "is required")
	}
	if !p.PaymentType.Valid() {
		return invalid("payment_type", "must be monthly or installment")
	}
	if p.Start.IsZero() {
		return invalid("start_date", "is required")
	}
	if p.End.IsZero() {
		return invalid("end_date", "is required")
	}
	if !p.TotalAmount.IsPositive() {
		return invalid("total_amount", "must be greater than zero")
	}
	if p.Status != "" && !p.Status.Valid() {
		return invalid("status", "must be one of pending, paid, overdue")
	}
	return nil
}

// Amortize computes the invoices a plan creates immediately.
// Installment plans produce all of their invoices; monthly plans only the first.
// This is a PURE function.
func Amortize(p PlanParams) (Schedule, error) {
	if err := p.Validate(); err != nil {
		return Schedule{}, err
	}

	if p.PaymentType == PaymentTypeInstallment {
		invoices, err := AmortizeInstallments(p)
		if err != nil {
			return Schedule{}, err
		}
		return Schedule{Invoices: invoices, TotalPlanned: len(invoices)}, nil
	}

	first, total, err := AmortizeMonthly(p)
	if err != nil {
		return Schedule{}, err
	}
	return Schedule{Invoices: []Invoice{first}, TotalPlanned: total}, nil
}

// AmortizeInstallments splits [Start, End] into NumInstallments equal
// sub-intervals. Each invoice falls due at the end of its sub-interval and is
// labelled with the month of the sub-interval's midpoint.
// This is a PURE function.
func AmortizeInstallments(p PlanParams) ([]Invoice, error) {
	n := p.NumInstallments
	if n < 1 {
		return nil, invalid("installments", "must be at least 1")
	}
	if n > MaxInstallments {
		return nil, invalid("installments", fmt.Sprintf("must be at most %d", MaxInstallments))
	}
	if !p.End.After(p.Start) {
		return nil, invalid("end_date", "must be after start_date")
	}
	if p.End.Sub(p.Start) < time.Duration(n) {
		return nil, invalid("installments", "too many for the plan period")
	}

	bounds := installmentBounds(p.Start, p.End, n)
	amount := SplitEven(p.TotalAmount, n)

	invoices := make([]Invoice, n)
	for i := 0; i < n; i++ {
		due := bounds[i+1]
		label := PeriodOf(midpoint(bounds[i], bounds[i+1]))
		invoices[i] = Invoice{
			PlayerID:          p.PlayerID,
			PlanID:            p.PlanID,
			PaymentType:       PaymentTypeInstallment,
			Month:             label.Month,
			Year:              label.Year,
			Amount:            amount,
			Status:            initialStatus(p.Status),
			PaidDate:          copyTime(p.PaidDate),
			Notes:             p.Notes,
			PlanStartDate:     copyTime(&p.Start),
			PlanEndDate:       copyTime(&p.End),
			DueDate:           &due,
			InstallmentNumber: i + 1,
			TotalInstallments: n,
		}
	}
	return invoices, nil
}

// AmortizeMonthly returns the first invoice of a monthly plan and the total
// number of months the plan spans. Later months are left to the sweeper.
// This is a PURE function.
func AmortizeMonthly(p PlanParams) (Invoice, int, error) {
	if p.End.Before(p.Start) {
		return Invoice{}, 0, invalid("end_date", "must not be before start_date")
	}
	total := MonthSpan(p.Start, p.End)
	if total < 1 {
		return Invoice{}, 0, invalid("end_date", "plan must span at least one month")
	}

	label := PeriodOf(p.Start)
	return Invoice{
		PlayerID:          p.PlayerID,
		PlanID:            p.PlanID,
		PaymentType:       PaymentTypeMonthly,
		Month:             label.Month,
		Year:              label.Year,
		Amount:            Round2(p.TotalAmount),
		Status:            initialStatus(p.Status),
		PaidDate:          copyTime(p.PaidDate),
		Notes:             p.Notes,
		PlanStartDate:     copyTime(&p.Start),
		PlanEndDate:       copyTime(&p.End),
		DueDate:           copyTime(&p.Start),
		InstallmentNumber: 1,
		TotalInstallments: total,
	}, total, nil
}

// installmentBounds returns the n+1 boundaries of the sub-intervals of [start, end].
// When both ends sit on the same day of month and the month count divides
// evenly, boundaries step by whole calendar months so due dates stay on the
// anniversary day. Otherwise the span is divided by wall-clock duration.
func installmentBounds(start, end time.Time, n int) []time.Time {
	bounds := make([]time.Time, n+1)
	bounds[0] = start

	months := MonthsBetween(start, end)
	if calendarAligned(start, end) && months > 0 && months%n == 0 {
		step := months / n
		for k := 1; k < n; k++ {
			bounds[k] = start.AddDate(0, k*step, 0)
		}
	} else {
		interval := end.Sub(start) / time.Duration(n)
		for k := 1; k < n; k++ {
			bounds[k] = start.Add(interval * time.Duration(k))
		}
	}
	bounds[n] = end
	return bounds
}

func calendarAligned(start, end time.Time) bool {
	if start.Day() != end.Day() || start.Day() > 28 {
		return false
	}
	sh, sm, ss := start.Clock()
	eh, em, es := end.Clock()
	return sh == eh && sm == em && ss == es && start.Nanosecond() == end.Nanosecond()
}

func initialStatus(s InvoiceStatus) InvoiceStatus {
	if s == "" {
		return InvoiceStatusPending
	}
	return s
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}
