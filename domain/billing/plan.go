package billing

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// Plan is the view of a billing plan reconstructed from its invoices.
// Plans are not stored on their own; every invoice carries the plan metadata.
type Plan struct {
	ID                string
	PlayerID          string
	PaymentType       PaymentType
	Start             *time.Time
	End               *time.Time
	Amount            decimal.Decimal // per invoice
	Notes             string
	TotalInstallments int
	Invoices          []Invoice // ordered by installment number
	materialized      map[Period]bool
}

// Materialized reports whether an invoice exists for the period.
func (p Plan) Materialized(period Period) bool {
	return p.materialized[period]
}

// Remaining returns how many invoices the plan has yet to materialize.
func (p Plan) Remaining() int {
	if r := p.TotalInstallments - len(p.Invoices); r > 0 {
		return r
	}
	return 0
}

// Total returns the sum of the materialized invoice amounts.
func (p Plan) Total() decimal.Decimal {
	sum := decimal.Zero
	for _, inv := range p.Invoices {
		sum = sum.Add(inv.Amount)
	}
	return sum
}

// PlanFromInvoices builds the plan view for invoices sharing one plan id.
// Metadata is taken from the lowest-numbered invoice.
// This is a PURE function.
func PlanFromInvoices(invoices []Invoice) (Plan, bool) {
	if len(invoices) == 0 {
		return Plan{}, false
	}

	sorted := make([]Invoice, len(invoices))
	copy(sorted, invoices)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].InstallmentNumber < sorted[j].InstallmentNumber
	})

	rep := sorted[0]
	p := Plan{
		ID:                rep.PlanID,
		PlayerID:          rep.PlayerID,
		PaymentType:       rep.PaymentType,
		Start:             rep.PlanStartDate,
		End:               rep.PlanEndDate,
		Amount:            rep.Amount,
		Notes:             rep.Notes,
		TotalInstallments: rep.TotalInstallments,
		Invoices:          sorted,
		materialized:      make(map[Period]bool, len(sorted)),
	}
	for _, inv := range sorted {
		p.materialized[inv.Period()] = true
	}
	return p, true
}

// GroupPlans groups plan invoices by plan id. Invoices without a plan are
// ignored. Plans are returned ordered by id.
// This is a PURE function.
func GroupPlans(invoices []Invoice) []Plan {
	byPlan := make(map[string][]Invoice)
	for _, inv := range invoices {
		if !inv.HasPlan() {
			continue
		}
		byPlan[inv.PlanID] = append(byPlan[inv.PlanID], inv)
	}

	ids := make([]string, 0, len(byPlan))
	for id := range byPlan {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	plans := make([]Plan, 0, len(ids))
	for _, id := range ids {
		p, _ := PlanFromInvoices(byPlan[id])
		plans = append(plans, p)
	}
	return plans
}
