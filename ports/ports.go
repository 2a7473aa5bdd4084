// Package ports defines interfaces (contracts) between layers.
// These interfaces enable dependency injection and testability.
// Implementations live in adapters/.
package ports

import (
	"context"
	"time"

	"github.com/artpar/clubdues/domain/billing"
	"github.com/artpar/clubdues/domain/player"
)

// -----------------------------------------------------------------------------
// Infrastructure Ports
// -----------------------------------------------------------------------------

// Clock abstracts time for testability.
type Clock interface {
	Now() time.Time
}

// IDGenerator generates unique identifiers.
type IDGenerator interface {
	New() string
}

// -----------------------------------------------------------------------------
// Data Store Ports
// -----------------------------------------------------------------------------

// InvoiceFilter narrows an invoice query. Zero values match everything.
type InvoiceFilter struct {
	PaymentType billing.PaymentType
	PlanID      string
	PlayerID    string
	Month       int
	Year        int
	Status      billing.InvoiceStatus
	// HasPlan restricts to invoices that belong to some plan.
	HasPlan bool
	Limit   int
	Offset  int
}

// BulkConflict is one invoice of a batch rejected by a uniqueness rule.
type BulkConflict struct {
	Index   int // position in the submitted batch
	Invoice billing.Invoice
	Err     error
}

// BulkResult reports the outcome of a batch insert.
type BulkResult struct {
	Created   []billing.Invoice
	Conflicts []BulkConflict
}

// InvoiceStore persists invoices and enforces their uniqueness rules:
// (plan, installment number) among plan invoices, (plan, year, month) among
// monthly plan invoices, and (player, month, year) among invoices without a plan.
type InvoiceStore interface {
	// Find returns invoices matching the filter, newest period first.
	Find(ctx context.Context, f InvoiceFilter) ([]billing.Invoice, error)

	// FindByPlan returns a plan's invoices ordered by installment number.
	FindByPlan(ctx context.Context, planID string) ([]billing.Invoice, error)

	// Get retrieves an invoice by ID. Returns billing.ErrNotFound when absent.
	Get(ctx context.Context, id string) (billing.Invoice, error)

	// Create stores one invoice. Returns billing.ErrConflict on a uniqueness violation.
	Create(ctx context.Context, inv billing.Invoice) (billing.Invoice, error)

	// CreateBulk stores a batch. Uniqueness violations are reported per item;
	// any other failure is returned as the error.
	CreateBulk(ctx context.Context, invs []billing.Invoice) (BulkResult, error)

	// UpdateFields changes the mutable fields of an invoice.
	UpdateFields(ctx context.Context, id string, u billing.InvoiceUpdate, now time.Time) (billing.Invoice, error)

	// Delete removes an invoice. Returns billing.ErrNotFound when absent.
	Delete(ctx context.Context, id string) error
}

// PlayerStore persists club players.
type PlayerStore interface {
	// Get retrieves a player by ID. Returns billing.ErrNotFound when absent.
	Get(ctx context.Context, id string) (player.Player, error)

	// Create stores a new player.
	Create(ctx context.Context, p player.Player) error

	// List returns players ordered by name.
	List(ctx context.Context, limit, offset int) ([]player.Player, error)
}
