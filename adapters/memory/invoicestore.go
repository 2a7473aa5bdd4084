// Package memory provides in-memory store implementations for tests and
// throwaway deployments.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/artpar/clubdues/domain/billing"
	"github.com/artpar/clubdues/ports"
	"github.com/google/uuid"
)

// InvoiceStore is an in-memory implementation of ports.InvoiceStore.
// It enforces the same uniqueness rules as the database stores.
type InvoiceStore struct {
	mu       sync.RWMutex
	invoices map[string]billing.Invoice // by ID
	keys     map[string]string          // uniqueness key -> ID
	now      func() time.Time
}

// NewInvoiceStore creates a new in-memory invoice store.
func NewInvoiceStore() *InvoiceStore {
	return &InvoiceStore{
		invoices: make(map[string]billing.Invoice),
		keys:     make(map[string]string),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// uniqueKeys returns the uniqueness keys an invoice occupies.
func uniqueKeys(inv billing.Invoice) []string {
	if !inv.HasPlan() {
		return []string{fmt.Sprintf("player:%s:%d:%d", inv.PlayerID, inv.Year, inv.Month)}
	}
	keys := []string{fmt.Sprintf("plan:%s:n%d", inv.PlanID, inv.InstallmentNumber)}
	if inv.PaymentType == billing.PaymentTypeMonthly {
		keys = append(keys, fmt.Sprintf("plan:%s:%d-%d", inv.PlanID, inv.Year, inv.Month))
	}
	return keys
}

// Find returns invoices matching the filter, newest period first.
func (s *InvoiceStore) Find(ctx context.Context, f ports.InvoiceFilter) ([]billing.Invoice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []billing.Invoice
	for _, inv := range s.invoices {
		if matches(inv, f) {
			result = append(result, inv)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		a, b := result[i], result[j]
		if a.Year != b.Year {
			return a.Year > b.Year
		}
		if a.Month != b.Month {
			return a.Month > b.Month
		}
		if a.InstallmentNumber != b.InstallmentNumber {
			return a.InstallmentNumber < b.InstallmentNumber
		}
		return a.ID < b.ID
	})

	return paginate(result, f.Limit, f.Offset), nil
}

func matches(inv billing.Invoice, f ports.InvoiceFilter) bool {
	switch {
	case f.PaymentType != "" && inv.PaymentType != f.PaymentType:
		return false
	case f.PlanID != "" && inv.PlanID != f.PlanID:
		return false
	case f.PlayerID != "" && inv.PlayerID != f.PlayerID:
		return false
	case f.Month != 0 && inv.Month != f.Month:
		return false
	case f.Year != 0 && inv.Year != f.Year:
		return false
	case f.Status != "" && inv.Status != f.Status:
		return false
	case f.HasPlan && !inv.HasPlan():
		return false
	}
	return true
}

func paginate[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return nil
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}

// FindByPlan returns a plan's invoices ordered by installment number.
func (s *InvoiceStore) FindByPlan(ctx context.Context, planID string) ([]billing.Invoice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []billing.Invoice
	for _, inv := range s.invoices {
		if inv.PlanID == planID {
			result = append(result, inv)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].InstallmentNumber < result[j].InstallmentNumber
	})
	return result, nil
}

// Get retrieves an invoice by ID.
func (s *InvoiceStore) Get(ctx context.Context, id string) (billing.Invoice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	inv, ok := s.invoices[id]
	if !ok {
		return billing.Invoice{}, billing.ErrNotFound
	}
	return inv, nil
}

// Create stores one invoice.
func (s *InvoiceStore) Create(ctx context.Context, inv billing.Invoice) (billing.Invoice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	inv = s.prepare(inv)
	if err := s.checkUnique(inv, nil); err != nil {
		return billing.Invoice{}, err
	}
	s.insert(inv)
	return inv, nil
}

// CreateBulk stores a batch. Conflicting invoices are reported and skipped;
// the rest are inserted together.
func (s *InvoiceStore) CreateBulk(ctx context.Context, invs []billing.Invoice) (ports.BulkResult, error) {
	if err := ctx.Err(); err != nil {
		return ports.BulkResult{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var result ports.BulkResult
	pending := make(map[string]bool)
	for i, inv := range invs {
		inv = s.prepare(inv)
		if err := s.checkUnique(inv, pending); err != nil {
			result.Conflicts = append(result.Conflicts, ports.BulkConflict{Index: i, Invoice: inv, Err: err})
			continue
		}
		for _, k := range uniqueKeys(inv) {
			pending[k] = true
		}
		result.Created = append(result.Created, inv)
	}
	for _, inv := range result.Created {
		s.insert(inv)
	}
	return result, nil
}

func (s *InvoiceStore) prepare(inv billing.Invoice) billing.Invoice {
	if inv.ID == "" {
		inv.ID = uuid.NewString()
	}
	now := s.now()
	if inv.CreatedAt.IsZero() {
		inv.CreatedAt = now
	}
	inv.UpdatedAt = now
	return inv
}

func (s *InvoiceStore) checkUnique(inv billing.Invoice, pending map[string]bool) error {
	if _, exists := s.invoices[inv.ID]; exists {
		return fmt.Errorf("invoice %s: %w", inv.ID, billing.ErrConflict)
	}
	for _, k := range uniqueKeys(inv) {
		if _, exists := s.keys[k]; exists || pending[k] {
			return fmt.Errorf("invoice %s: duplicate %s: %w", inv.ID, k, billing.ErrConflict)
		}
	}
	return nil
}

func (s *InvoiceStore) insert(inv billing.Invoice) {
	s.invoices[inv.ID] = inv
	for _, k := range uniqueKeys(inv) {
		s.keys[k] = inv.ID
	}
}

// UpdateFields changes the mutable fields of an invoice.
func (s *InvoiceStore) UpdateFields(ctx context.Context, id string, u billing.InvoiceUpdate, now time.Time) (billing.Invoice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	inv, ok := s.invoices[id]
	if !ok {
		return billing.Invoice{}, billing.ErrNotFound
	}
	inv = u.Apply(inv, now)
	inv.UpdatedAt = now
	s.invoices[id] = inv
	return inv, nil
}

// Delete removes an invoice.
func (s *InvoiceStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	inv, ok := s.invoices[id]
	if !ok {
		return billing.ErrNotFound
	}
	for _, k := range uniqueKeys(inv) {
		delete(s.keys, k)
	}
	delete(s.invoices, id)
	return nil
}

// Len returns the number of stored invoices (for testing).
func (s *InvoiceStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.invoices)
}

// Ensure interface compliance.
var _ ports.InvoiceStore = (*InvoiceStore)(nil)
