package memory_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/artpar/clubdues/adapters/memory"
	"github.com/artpar/clubdues/domain/billing"
	"github.com/artpar/clubdues/ports"
	"github.com/shopspring/decimal"
)

func planInvoice(id, planID string, n, year, month int) billing.Invoice {
	return billing.Invoice{
		ID:                id,
		PlayerID:          "player-1",
		PlanID:            planID,
		PaymentType:       billing.PaymentTypeMonthly,
		Month:             month,
		Year:              year,
		Amount:            decimal.NewFromInt(5000),
		Status:            billing.InvoiceStatusPending,
		InstallmentNumber: n,
		TotalInstallments: 6,
	}
}

func TestInvoiceStore_CreateAndGet(t *testing.T) {
	store := memory.NewInvoiceStore()
	ctx := context.Background()

	created, err := store.Create(ctx, planInvoice("inv-1", "plan-a", 1, 2024, 1))
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if created.CreatedAt.IsZero() {
		t.Error("CreatedAt not set")
	}

	got, err := store.Get(ctx, "inv-1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.PlanID != "plan-a" || got.InstallmentNumber != 1 {
		t.Errorf("got %+v", got)
	}

	if _, err := store.Get(ctx, "missing"); !errors.Is(err, billing.ErrNotFound) {
		t.Errorf("Get(missing) error = %v, want ErrNotFound", err)
	}
}

func TestInvoiceStore_Uniqueness(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name   string
		first  billing.Invoice
		second billing.Invoice
	}{
		{
			name:   "same plan installment",
			first:  planInvoice("a", "plan-a", 1, 2024, 1),
			second: planInvoice("b", "plan-a", 1, 2024, 2),
		},
		{
			name:   "same monthly plan period",
			first:  planInvoice("a", "plan-a", 1, 2024, 1),
			second: planInvoice("b", "plan-a", 2, 2024, 1),
		},
		{
			name:   "same legacy player period",
			first:  billing.Invoice{ID: "a", PlayerID: "p", Month: 3, Year: 2024, PaymentType: billing.PaymentTypeSingle},
			second: billing.Invoice{ID: "b", PlayerID: "p", Month: 3, Year: 2024, PaymentType: billing.PaymentTypeSingle},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := memory.NewInvoiceStore()
			if _, err := store.Create(ctx, tt.first); err != nil {
				t.Fatalf("first Create failed: %v", err)
			}
			if _, err := store.Create(ctx, tt.second); !errors.Is(err, billing.ErrConflict) {
				t.Errorf("second Create error = %v, want ErrConflict", err)
			}
		})
	}
}

func TestInvoiceStore_InstallmentPeriodsMayRepeat(t *testing.T) {
	store := memory.NewInvoiceStore()
	ctx := context.Background()

	a := planInvoice("a", "plan-i", 1, 2024, 3)
	b := planInvoice("b", "plan-i", 2, 2024, 3)
	a.PaymentType = billing.PaymentTypeInstallment
	b.PaymentType = billing.PaymentTypeInstallment

	res, err := store.CreateBulk(ctx, []billing.Invoice{a, b})
	if err != nil {
		t.Fatalf("CreateBulk failed: %v", err)
	}
	if len(res.Created) != 2 || len(res.Conflicts) != 0 {
		t.Errorf("created %d conflicts %d, want 2/0", len(res.Created), len(res.Conflicts))
	}
}

func TestInvoiceStore_LegacyAndPlanInvoicesCoexist(t *testing.T) {
	store := memory.NewInvoiceStore()
	ctx := context.Background()

	store.Create(ctx, planInvoice("a", "plan-a", 1, 2024, 1))
	legacy := billing.Invoice{ID: "b", PlayerID: "player-1", Month: 1, Year: 2024, PaymentType: billing.PaymentTypeSingle}
	if _, err := store.Create(ctx, legacy); err != nil {
		t.Errorf("legacy Create failed: %v", err)
	}
}

func TestInvoiceStore_CreateBulk_ReportsConflicts(t *testing.T) {
	store := memory.NewInvoiceStore()
	ctx := context.Background()

	store.Create(ctx, planInvoice("existing", "plan-a", 2, 2024, 2))

	batch := []billing.Invoice{
		planInvoice("x", "plan-b", 2, 2024, 2),
		planInvoice("y", "plan-a", 2, 2024, 2),
		planInvoice("z", "plan-c", 2, 2024, 2),
		planInvoice("w", "plan-c", 2, 2024, 2), // duplicate within the batch
	}

	res, err := store.CreateBulk(ctx, batch)
	if err != nil {
		t.Fatalf("CreateBulk failed: %v", err)
	}
	if len(res.Created) != 2 {
		t.Errorf("Created = %d, want 2", len(res.Created))
	}
	if len(res.Conflicts) != 2 {
		t.Fatalf("Conflicts = %d, want 2", len(res.Conflicts))
	}
	if res.Conflicts[0].Index != 1 || res.Conflicts[1].Index != 3 {
		t.Errorf("conflict indexes = %d, %d, want 1, 3", res.Conflicts[0].Index, res.Conflicts[1].Index)
	}
	if !errors.Is(res.Conflicts[0].Err, billing.ErrConflict) {
		t.Errorf("conflict error = %v, want ErrConflict", res.Conflicts[0].Err)
	}
	if store.Len() != 3 {
		t.Errorf("Len = %d, want 3", store.Len())
	}
}

func TestInvoiceStore_CreateBulk_CancelledContext(t *testing.T) {
	store := memory.NewInvoiceStore()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := store.CreateBulk(ctx, []billing.Invoice{planInvoice("a", "p", 1, 2024, 1)}); err == nil {
		t.Error("expected error for cancelled context")
	}
	if store.Len() != 0 {
		t.Errorf("Len = %d, want 0", store.Len())
	}
}

func TestInvoiceStore_Find(t *testing.T) {
	store := memory.NewInvoiceStore()
	ctx := context.Background()

	store.Create(ctx, planInvoice("a", "plan-a", 1, 2024, 1))
	store.Create(ctx, planInvoice("b", "plan-a", 2, 2024, 2))
	store.Create(ctx, planInvoice("c", "plan-b", 1, 2023, 12))
	store.Create(ctx, billing.Invoice{ID: "d", PlayerID: "player-2", Month: 2, Year: 2024, PaymentType: billing.PaymentTypeSingle, Status: billing.InvoiceStatusPaid})

	tests := []struct {
		name    string
		filter  ports.InvoiceFilter
		wantIDs []string
	}{
		{"all newest first", ports.InvoiceFilter{}, []string{"d", "b", "a", "c"}},
		{"by plan", ports.InvoiceFilter{PlanID: "plan-a"}, []string{"b", "a"}},
		{"by period", ports.InvoiceFilter{Month: 2, Year: 2024}, []string{"d", "b"}},
		{"by status", ports.InvoiceFilter{Status: billing.InvoiceStatusPaid}, []string{"d"}},
		{"monthly with plan", ports.InvoiceFilter{PaymentType: billing.PaymentTypeMonthly, HasPlan: true}, []string{"b", "a", "c"}},
		{"by player", ports.InvoiceFilter{PlayerID: "player-2"}, []string{"d"}},
		{"paged", ports.InvoiceFilter{Limit: 2, Offset: 1}, []string{"b", "a"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := store.Find(ctx, tt.filter)
			if err != nil {
				t.Fatalf("Find failed: %v", err)
			}
			if len(got) != len(tt.wantIDs) {
				t.Fatalf("len = %d, want %d", len(got), len(tt.wantIDs))
			}
			for i, id := range tt.wantIDs {
				if got[i].ID != id {
					t.Errorf("[%d] = %s, want %s", i, got[i].ID, id)
				}
			}
		})
	}
}

func TestInvoiceStore_FindByPlan_Ordered(t *testing.T) {
	store := memory.NewInvoiceStore()
	ctx := context.Background()

	store.Create(ctx, planInvoice("c", "plan-a", 3, 2024, 3))
	store.Create(ctx, planInvoice("a", "plan-a", 1, 2024, 1))
	store.Create(ctx, planInvoice("b", "plan-a", 2, 2024, 2))

	got, _ := store.FindByPlan(ctx, "plan-a")
	for i, inv := range got {
		if inv.InstallmentNumber != i+1 {
			t.Errorf("[%d] installment = %d, want %d", i, inv.InstallmentNumber, i+1)
		}
	}
}

func TestInvoiceStore_UpdateFields(t *testing.T) {
	store := memory.NewInvoiceStore()
	ctx := context.Background()
	now := time.Date(2024, 2, 10, 12, 0, 0, 0, time.UTC)

	store.Create(ctx, planInvoice("a", "plan-a", 1, 2024, 1))

	paid := billing.InvoiceStatusPaid
	got, err := store.UpdateFields(ctx, "a", billing.InvoiceUpdate{Status: &paid}, now)
	if err != nil {
		t.Fatalf("UpdateFields failed: %v", err)
	}
	if got.Status != billing.InvoiceStatusPaid || got.PaidDate == nil || !got.PaidDate.Equal(now) {
		t.Errorf("got status %s paid %v", got.Status, got.PaidDate)
	}
	if got.InstallmentNumber != 1 || got.PlanID != "plan-a" {
		t.Error("immutable fields changed")
	}

	if _, err := store.UpdateFields(ctx, "missing", billing.InvoiceUpdate{Status: &paid}, now); !errors.Is(err, billing.ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

func TestInvoiceStore_DeleteFreesUniqueness(t *testing.T) {
	store := memory.NewInvoiceStore()
	ctx := context.Background()

	store.Create(ctx, planInvoice("a", "plan-a", 1, 2024, 1))
	if err := store.Delete(ctx, "a"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := store.Create(ctx, planInvoice("b", "plan-a", 1, 2024, 1)); err != nil {
		t.Errorf("Create after delete failed: %v", err)
	}
	if err := store.Delete(ctx, "a"); !errors.Is(err, billing.ErrNotFound) {
		t.Errorf("second Delete error = %v, want ErrNotFound", err)
	}
}
