package billing_test

import (
	"testing"

	"github.com/artpar/clubdues/domain/billing"
	"github.com/shopspring/decimal"
)

func TestGroupPlans(t *testing.T) {
	invoices := []billing.Invoice{
		{PlanID: "p2", InstallmentNumber: 2, Month: 2, Year: 2024, Amount: decimal.NewFromInt(10)},
		{PlanID: "", Month: 1, Year: 2024},
		{PlanID: "p1", InstallmentNumber: 1, Month: 1, Year: 2024, Amount: decimal.NewFromInt(5), Notes: "first"},
		{PlanID: "p2", InstallmentNumber: 1, Month: 1, Year: 2024, Amount: decimal.NewFromInt(10), Notes: "rep"},
	}

	plans := billing.GroupPlans(invoices)
	if len(plans) != 2 {
		t.Fatalf("len(plans) = %d, want 2", len(plans))
	}
	if plans[0].ID != "p1" || plans[1].ID != "p2" {
		t.Errorf("order = %s, %s, want p1, p2", plans[0].ID, plans[1].ID)
	}

	p2 := plans[1]
	if p2.Notes != "rep" {
		t.Errorf("representative Notes = %q, want lowest installment's", p2.Notes)
	}
	if p2.Invoices[0].InstallmentNumber != 1 || p2.Invoices[1].InstallmentNumber != 2 {
		t.Error("invoices not ordered by installment number")
	}
	if !p2.Materialized(billing.Period{Year: 2024, Month: 2}) {
		t.Error("expected 2024-02 materialized")
	}
	if p2.Materialized(billing.Period{Year: 2024, Month: 3}) {
		t.Error("2024-03 should not be materialized")
	}
	if !p2.Total().Equal(decimal.NewFromInt(20)) {
		t.Errorf("Total = %s, want 20", p2.Total())
	}
}

func TestPlanFromInvoices_Empty(t *testing.T) {
	if _, ok := billing.PlanFromInvoices(nil); ok {
		t.Error("expected ok = false for no invoices")
	}
}

func TestPlan_Remaining(t *testing.T) {
	p, _ := billing.PlanFromInvoices([]billing.Invoice{
		{PlanID: "p", InstallmentNumber: 1, TotalInstallments: 6},
		{PlanID: "p", InstallmentNumber: 2, TotalInstallments: 6},
	})
	if p.Remaining() != 4 {
		t.Errorf("Remaining = %d, want 4", p.Remaining())
	}
}
