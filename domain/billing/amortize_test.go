package billing_test

import (
	"errors"
	"testing"
	"time"

	"github.com/artpar/clubdues/domain/billing"
	"github.com/shopspring/decimal"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func installmentParams(start, end time.Time, total string, n int) billing.PlanParams {
	return billing.PlanParams{
		PlanID:          "plan-1",
		PlayerID:        "player-1",
		PaymentType:     billing.PaymentTypeInstallment,
		Start:           start,
		End:             end,
		TotalAmount:     decimal.RequireFromString(total),
		NumInstallments: n,
		Notes:           "season fee",
	}
}

func monthlyParams(start, end time.Time, amount string) billing.PlanParams {
	return billing.PlanParams{
		PlanID:      "plan-m",
		PlayerID:    "player-1",
		PaymentType: billing.PaymentTypeMonthly,
		Start:       start,
		End:         end,
		TotalAmount: decimal.RequireFromString(amount),
	}
}

func TestAmortize_InstallmentScenario(t *testing.T) {
	sched, err := billing.Amortize(installmentParams(date(2024, 1, 15), date(2024, 4, 15), "9000", 3))
	if err != nil {
		t.Fatalf("Amortize() error = %v", err)
	}

	if len(sched.Invoices) != 3 {
		t.Fatalf("len(Invoices) = %d, want 3", len(sched.Invoices))
	}
	if sched.TotalPlanned != 3 {
		t.Errorf("TotalPlanned = %d, want 3", sched.TotalPlanned)
	}

	wantDue := []time.Time{date(2024, 2, 15), date(2024, 3, 15), date(2024, 4, 15)}
	wantMonth := []int{1, 2, 3}
	for i, inv := range sched.Invoices {
		if !inv.Amount.Equal(decimal.NewFromInt(3000)) {
			t.Errorf("invoice %d Amount = %s, want 3000", i, inv.Amount)
		}
		if inv.DueDate == nil || !inv.DueDate.Equal(wantDue[i]) {
			t.Errorf("invoice %d DueDate = %v, want %v", i, inv.DueDate, wantDue[i])
		}
		if inv.Month != wantMonth[i] || inv.Year != 2024 {
			t.Errorf("invoice %d label = %d/%d, want %d/2024", i, inv.Month, inv.Year, wantMonth[i])
		}
		if inv.InstallmentNumber != i+1 {
			t.Errorf("invoice %d InstallmentNumber = %d, want %d", i, inv.InstallmentNumber, i+1)
		}
		if inv.TotalInstallments != 3 {
			t.Errorf("invoice %d TotalInstallments = %d, want 3", i, inv.TotalInstallments)
		}
		if inv.Status != billing.InvoiceStatusPending {
			t.Errorf("invoice %d Status = %s, want pending", i, inv.Status)
		}
		if inv.PlanID != "plan-1" || inv.PaymentType != billing.PaymentTypeInstallment {
			t.Errorf("invoice %d plan = %s/%s", i, inv.PlanID, inv.PaymentType)
		}
		if inv.Notes != "season fee" {
			t.Errorf("invoice %d Notes = %q", i, inv.Notes)
		}
	}
}

func TestAmortize_InstallmentProperties(t *testing.T) {
	tests := []struct {
		name  string
		start time.Time
		end   time.Time
		total string
		n     int
	}{
		{"single", date(2024, 1, 1), date(2024, 12, 31), "1200", 1},
		{"thirds of 100", date(2024, 1, 1), date(2024, 4, 1), "100", 3},
		{"uneven span", date(2024, 1, 10), date(2024, 7, 3), "999.99", 7},
		{"more installments than months", date(2024, 3, 1), date(2024, 5, 1), "500", 10},
		{"leap february", date(2024, 2, 29), date(2025, 2, 28), "1000", 12},
		{"calendar aligned", date(2023, 9, 1), date(2024, 6, 1), "4500", 9},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			total := decimal.RequireFromString(tt.total)
			invoices, err := billing.AmortizeInstallments(installmentParams(tt.start, tt.end, tt.total, tt.n))
			if err != nil {
				t.Fatalf("AmortizeInstallments() error = %v", err)
			}
			if len(invoices) != tt.n {
				t.Fatalf("len = %d, want %d", len(invoices), tt.n)
			}

			sum := decimal.Zero
			var prev time.Time
			for i, inv := range invoices {
				if inv.InstallmentNumber != i+1 {
					t.Errorf("InstallmentNumber[%d] = %d", i, inv.InstallmentNumber)
				}
				if i > 0 && !inv.DueDate.After(prev) {
					t.Errorf("DueDate[%d] = %v not after %v", i, inv.DueDate, prev)
				}
				prev = *inv.DueDate
				sum = sum.Add(inv.Amount)
			}

			if !invoices[tt.n-1].DueDate.Equal(tt.end) {
				t.Errorf("last DueDate = %v, want %v", invoices[tt.n-1].DueDate, tt.end)
			}

			drift := billing.MinorUnits(sum.Sub(total).Abs())
			if drift > int64(tt.n) {
				t.Errorf("sum = %s, total = %s, drift %d minor units > %d", sum, total, drift, tt.n)
			}
		})
	}
}

func TestAmortize_InstallmentLabelFromMidpoint(t *testing.T) {
	// Jan 20 -> Feb 20 is due in February but its midpoint (Feb 4) is also in
	// February; Feb 20 -> Mar 20 has its midpoint on Mar 5.
	invoices, err := billing.AmortizeInstallments(installmentParams(date(2024, 1, 20), date(2024, 3, 20), "200", 2))
	if err != nil {
		t.Fatalf("error = %v", err)
	}
	if invoices[0].Month != 2 {
		t.Errorf("first label month = %d, want 2", invoices[0].Month)
	}
	if invoices[1].Month != 3 {
		t.Errorf("second label month = %d, want 3", invoices[1].Month)
	}
	if !invoices[1].DueDate.Equal(date(2024, 3, 20)) {
		t.Errorf("second due = %v", invoices[1].DueDate)
	}
}

func TestAmortize_InstallmentWallClockSplit(t *testing.T) {
	// 10 days / 4 = 2.5 days each.
	invoices, err := billing.AmortizeInstallments(installmentParams(date(2024, 5, 1), date(2024, 5, 11), "100", 4))
	if err != nil {
		t.Fatalf("error = %v", err)
	}
	want := date(2024, 5, 3).Add(12 * time.Hour)
	if !invoices[0].DueDate.Equal(want) {
		t.Errorf("first due = %v, want %v", invoices[0].DueDate, want)
	}
	if !invoices[0].Amount.Equal(decimal.NewFromInt(25)) {
		t.Errorf("amount = %s, want 25", invoices[0].Amount)
	}
}

func TestAmortize_RoundingHalfUp(t *testing.T) {
	invoices, err := billing.AmortizeInstallments(installmentParams(date(2024, 1, 1), date(2024, 3, 1), "0.05", 2))
	if err != nil {
		t.Fatalf("error = %v", err)
	}
	// 0.025 rounds to 0.03
	if !invoices[0].Amount.Equal(decimal.RequireFromString("0.03")) {
		t.Errorf("amount = %s, want 0.03", invoices[0].Amount)
	}
}

func TestAmortize_InstallmentValidation(t *testing.T) {
	tests := []struct {
		name   string
		params billing.PlanParams
		field  string
	}{
		{"zero installments", installmentParams(date(2024, 1, 1), date(2024, 2, 1), "100", 0), "installments"},
		{"negative installments", installmentParams(date(2024, 1, 1), date(2024, 2, 1), "100", -2), "installments"},
		{"too many installments", installmentParams(date(2024, 1, 1), date(2124, 1, 1), "100", billing.MaxInstallments+1), "installments"},
		{"huge installment count", installmentParams(date(2024, 1, 1), date(2124, 1, 1), "100", 1<<50), "installments"},
		{"end equals start", installmentParams(date(2024, 1, 1), date(2024, 1, 1), "100", 1), "end_date"},
		{"end before start", installmentParams(date(2024, 2, 1), date(2024, 1, 1), "100", 1), "end_date"},
		{"zero amount", installmentParams(date(2024, 1, 1), date(2024, 2, 1), "0", 1), "total_amount"},
		{"missing player", func() billing.PlanParams {
			p := installmentParams(date(2024, 1, 1), date(2024, 2, 1), "100", 1)
			p.PlayerID = ""
			return p
		}(), "player_id"},
		{"missing end", func() billing.PlanParams {
			p := installmentParams(date(2024, 1, 1), time.Time{}, "100", 1)
			return p
		}(), "end_date"},
		{"bad status", func() billing.PlanParams {
			p := installmentParams(date(2024, 1, 1), date(2024, 2, 1), "100", 1)
			p.Status = "refunded"
			return p
		}(), "status"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sched, err := billing.Amortize(tt.params)
			if !errors.Is(err, billing.ErrValidation) {
				t.Fatalf("error = %v, want validation error", err)
			}
			var verr *billing.ValidationError
			if !errors.As(err, &verr) || verr.Field != tt.field {
				t.Errorf("field = %v, want %s", verr, tt.field)
			}
			if len(sched.Invoices) != 0 {
				t.Errorf("expected no invoices on rejection, got %d", len(sched.Invoices))
			}
		})
	}
}

func TestAmortize_InstallmentCarriesStatus(t *testing.T) {
	paid := date(2024, 1, 2)
	p := installmentParams(date(2024, 1, 1), date(2024, 7, 1), "600", 2)
	p.Status = billing.InvoiceStatusPaid
	p.PaidDate = &paid

	invoices, err := billing.AmortizeInstallments(p)
	if err != nil {
		t.Fatalf("error = %v", err)
	}
	for _, inv := range invoices {
		if inv.Status != billing.InvoiceStatusPaid {
			t.Errorf("Status = %s, want paid", inv.Status)
		}
		if inv.PaidDate == nil || !inv.PaidDate.Equal(paid) {
			t.Errorf("PaidDate = %v, want %v", inv.PaidDate, paid)
		}
	}
	if invoices[0].PaidDate == invoices[1].PaidDate {
		t.Error("invoices share a PaidDate pointer")
	}
}

func TestAmortize_MonthlyScenario(t *testing.T) {
	sched, err := billing.Amortize(monthlyParams(date(2024, 1, 5), date(2024, 6, 5), "5000"))
	if err != nil {
		t.Fatalf("Amortize() error = %v", err)
	}
	if len(sched.Invoices) != 1 {
		t.Fatalf("len(Invoices) = %d, want 1", len(sched.Invoices))
	}
	if sched.TotalPlanned != 6 {
		t.Errorf("TotalPlanned = %d, want 6", sched.TotalPlanned)
	}

	inv := sched.Invoices[0]
	if inv.Month != 1 || inv.Year != 2024 {
		t.Errorf("label = %d/%d, want 1/2024", inv.Month, inv.Year)
	}
	if !inv.Amount.Equal(decimal.NewFromInt(5000)) {
		t.Errorf("Amount = %s, want 5000", inv.Amount)
	}
	if inv.InstallmentNumber != 1 || inv.TotalInstallments != 6 {
		t.Errorf("installment = %d/%d, want 1/6", inv.InstallmentNumber, inv.TotalInstallments)
	}
	if inv.DueDate == nil || !inv.DueDate.Equal(date(2024, 1, 5)) {
		t.Errorf("DueDate = %v, want 2024-01-05", inv.DueDate)
	}
	if inv.PaymentType != billing.PaymentTypeMonthly {
		t.Errorf("PaymentType = %s", inv.PaymentType)
	}
}

func TestAmortize_MonthlySpan(t *testing.T) {
	tests := []struct {
		name  string
		start time.Time
		end   time.Time
		want  int
	}{
		{"same day", date(2024, 3, 10), date(2024, 3, 10), 1},
		{"same month", date(2024, 3, 1), date(2024, 3, 31), 1},
		{"partial months", date(2024, 1, 31), date(2024, 2, 1), 2},
		{"across year", date(2023, 11, 15), date(2024, 2, 15), 4},
		{"full year", date(2024, 1, 1), date(2024, 12, 31), 12},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, total, err := billing.AmortizeMonthly(monthlyParams(tt.start, tt.end, "10"))
			if err != nil {
				t.Fatalf("error = %v", err)
			}
			if total != tt.want {
				t.Errorf("total = %d, want %d", total, tt.want)
			}
		})
	}
}

func TestAmortize_MonthlyRejectsEndBeforeStart(t *testing.T) {
	_, err := billing.Amortize(monthlyParams(date(2024, 6, 1), date(2024, 5, 31), "10"))
	if !errors.Is(err, billing.ErrValidation) {
		t.Fatalf("error = %v, want validation error", err)
	}
}

func TestAmortize_RejectsUnknownPaymentType(t *testing.T) {
	p := monthlyParams(date(2024, 1, 1), date(2024, 2, 1), "10")
	p.PaymentType = billing.PaymentTypeSingle
	if _, err := billing.Amortize(p); !errors.Is(err, billing.ErrValidation) {
		t.Fatalf("error = %v, want validation error", err)
	}
}
