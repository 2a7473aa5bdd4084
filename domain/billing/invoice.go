// Package billing provides invoice and plan value types and the pure
// functions that amortize plans into invoices and decide which invoices are due.
package billing

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentType determines how a plan bills.
type PaymentType string

const (
	// PaymentTypeMonthly bills the full amount every calendar month, lazily.
	PaymentTypeMonthly PaymentType = "monthly"
	// PaymentTypeInstallment splits a lump sum across N due dates up front.
	PaymentTypeInstallment PaymentType = "installment"
	// PaymentTypeSingle marks legacy ad-hoc invoices that belong to no plan.
	PaymentTypeSingle PaymentType = "single"
)

// Valid reports whether t is a plan payment type.
func (t PaymentType) Valid() bool {
	return t == PaymentTypeMonthly || t == PaymentTypeInstallment
}

// InvoiceStatus represents the state of an invoice.
type InvoiceStatus string

const (
	InvoiceStatusPending InvoiceStatus = "pending"
	InvoiceStatusPaid    InvoiceStatus = "paid"
	InvoiceStatusOverdue InvoiceStatus = "overdue"
)

// Valid reports whether s is a known status.
func (s InvoiceStatus) Valid() bool {
	switch s {
	case InvoiceStatusPending, InvoiceStatusPaid, InvoiceStatusOverdue:
		return true
	}
	return false
}

// Invoice is one billing obligation (value type).
// Plan metadata (dates, totals) is copied onto every invoice of a plan.
type Invoice struct {
	ID                string
	PlayerID          string
	PlanID            string // empty for legacy invoices
	PaymentType       PaymentType
	Month             int // 1-12
	Year              int
	Amount            decimal.Decimal
	Status            InvoiceStatus
	PaidDate          *time.Time
	Notes             string
	PlanStartDate     *time.Time
	PlanEndDate       *time.Time
	DueDate           *time.Time
	InstallmentNumber int // 1-based, 0 for legacy
	TotalInstallments int // 0 for legacy
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// HasPlan reports whether the invoice belongs to a plan.
func (i Invoice) HasPlan() bool {
	return i.PlanID != ""
}

// Period returns the invoice's (year, month) label.
func (i Invoice) Period() Period {
	return Period{Year: i.Year, Month: i.Month}
}

// Period is a calendar month label.
type Period struct {
	Year  int
	Month int
}

// PeriodOf returns the calendar month that t falls in.
func PeriodOf(t time.Time) Period {
	return Period{Year: t.Year(), Month: int(t.Month())}
}

// InvoiceUpdate carries the fields that may change after creation.
// Nil fields are left untouched.
type InvoiceUpdate struct {
	Amount   *decimal.Decimal
	Status   *InvoiceStatus
	PaidDate *time.Time
	Notes    *string
}

// IsEmpty reports whether the update changes nothing.
func (u InvoiceUpdate) IsEmpty() bool {
	return u.Amount == nil && u.Status == nil && u.PaidDate == nil && u.Notes == nil
}

// Apply returns inv with the update applied.
// When the status moves to paid without a paid date, now is used. Any other
// status clears the paid date unless one is given explicitly.
// This is a PURE function.
func (u InvoiceUpdate) Apply(inv Invoice, now time.Time) Invoice {
	if u.Amount != nil {
		inv.Amount = Round2(*u.Amount)
	}
	if u.Status != nil {
		inv.Status = *u.Status
	}
	if u.Notes != nil {
		inv.Notes = *u.Notes
	}
	switch {
	case u.PaidDate != nil:
		pd := *u.PaidDate
		inv.PaidDate = &pd
	case u.Status != nil && *u.Status == InvoiceStatusPaid && inv.PaidDate == nil:
		pd := now
		inv.PaidDate = &pd
	case u.Status != nil && *u.Status != InvoiceStatusPaid:
		inv.PaidDate = nil
	}
	return inv
}

// Validate checks the mutable field values.
func (u InvoiceUpdate) Validate() error {
	if u.Amount != nil && u.Amount.IsNegative() {
		return &ValidationError{Field: "amount", Reason: "must not be negative"}
	}
	if u.Status != nil && !u.Status.Valid() {
		return &ValidationError{Field: "status", Reason: "must be one of pending, paid, overdue"}
	}
	return nil
}
