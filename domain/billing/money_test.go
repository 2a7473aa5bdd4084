package billing_test

import (
	"testing"
	"time"

	"github.com/artpar/clubdues/domain/billing"
	"github.com/shopspring/decimal"
)

func TestSplitEven(t *testing.T) {
	tests := []struct {
		total string
		n     int
		want  string
	}{
		{"9000", 3, "3000"},
		{"100", 3, "33.33"},
		{"200", 3, "66.67"},
		{"0.05", 2, "0.03"},
		{"10", 0, "0"},
	}

	for _, tt := range tests {
		t.Run(tt.total, func(t *testing.T) {
			got := billing.SplitEven(decimal.RequireFromString(tt.total), tt.n)
			if !got.Equal(decimal.RequireFromString(tt.want)) {
				t.Errorf("SplitEven(%s, %d) = %s, want %s", tt.total, tt.n, got, tt.want)
			}
		})
	}
}

func TestMinorUnitsAndFormat(t *testing.T) {
	d := decimal.RequireFromString("33.33")
	if got := billing.MinorUnits(d); got != 3333 {
		t.Errorf("MinorUnits = %d, want 3333", got)
	}
	if got := billing.FormatAmount(decimal.NewFromInt(5)); got != "5.00" {
		t.Errorf("FormatAmount = %q, want 5.00", got)
	}
}

func TestBillingDate_Clamps(t *testing.T) {
	tests := []struct {
		year  int
		month int
		day   int
		want  string
	}{
		{2024, 2, 31, "2024-02-29"},
		{2023, 2, 30, "2023-02-28"},
		{2024, 4, 31, "2024-04-30"},
		{2024, 5, 15, "2024-05-15"},
	}

	for _, tt := range tests {
		got := billing.BillingDate(tt.year, time.Month(tt.month), tt.day, time.UTC)
		if got.Format("2006-01-02") != tt.want {
			t.Errorf("BillingDate(%d, %d, %d) = %s, want %s", tt.year, tt.month, tt.day, got.Format("2006-01-02"), tt.want)
		}
	}
}

func TestMonthSpan(t *testing.T) {
	if got := billing.MonthSpan(date(2024, 11, 30), date(2025, 2, 1)); got != 4 {
		t.Errorf("MonthSpan = %d, want 4", got)
	}
	if got := billing.MonthsBetween(date(2024, 1, 31), date(2024, 2, 1)); got != 1 {
		t.Errorf("MonthsBetween = %d, want 1", got)
	}
}
