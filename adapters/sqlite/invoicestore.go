package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/artpar/clubdues/domain/billing"
	"github.com/artpar/clubdues/ports"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const invoiceColumns = `id, player_id, plan_id, payment_type, month, year, amount,
	status, paid_date, notes, plan_start_date, plan_end_date, due_date,
	installment_number, total_installments, created_at, updated_at`

const insertInvoice = `INSERT INTO invoices (` + invoiceColumns + `)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

// InvoiceStore implements ports.InvoiceStore using SQLite.
type InvoiceStore struct {
	db *DB
}

// NewInvoiceStore creates a new SQLite invoice store.
func NewInvoiceStore(db *DB) *InvoiceStore {
	return &InvoiceStore{db: db}
}

// execer is the subset shared by *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func prepareInvoice(inv billing.Invoice) billing.Invoice {
	if inv.ID == "" {
		inv.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if inv.CreatedAt.IsZero() {
		inv.CreatedAt = now
	}
	inv.UpdatedAt = now
	inv.Amount = billing.Round2(inv.Amount)
	return inv
}

func insertOne(ctx context.Context, ex execer, inv billing.Invoice) error {
	_, err := ex.ExecContext(ctx, insertInvoice,
		inv.ID, inv.PlayerID, nullString(inv.PlanID), string(inv.PaymentType),
		inv.Month, inv.Year, billing.FormatAmount(inv.Amount),
		string(inv.Status), nullTime(inv.PaidDate), inv.Notes,
		nullTime(inv.PlanStartDate), nullTime(inv.PlanEndDate), nullTime(inv.DueDate),
		nullInt(inv.InstallmentNumber), nullInt(inv.TotalInstallments),
		inv.CreatedAt, inv.UpdatedAt,
	)
	if err != nil && isUniqueConstraintError(err) {
		return fmt.Errorf("invoice %s: %w", inv.ID, billing.ErrConflict)
	}
	return err
}

// Create stores one invoice.
func (s *InvoiceStore) Create(ctx context.Context, inv billing.Invoice) (billing.Invoice, error) {
	inv = prepareInvoice(inv)
	if err := insertOne(ctx, s.db, inv); err != nil {
		return billing.Invoice{}, err
	}
	return inv, nil
}

// CreateBulk inserts the batch in one transaction. Rows rejected by a unique
// index are reported as conflicts and the rest commit; any other error rolls
// the whole batch back.
func (s *InvoiceStore) CreateBulk(ctx context.Context, invs []billing.Invoice) (ports.BulkResult, error) {
	var result ports.BulkResult
	if len(invs) == 0 {
		return result, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return result, fmt.Errorf("begin bulk insert: %w", err)
	}

	for i, inv := range invs {
		inv = prepareInvoice(inv)
		err := insertOne(ctx, tx, inv)
		switch {
		case err == nil:
			result.Created = append(result.Created, inv)
		case errors.Is(err, billing.ErrConflict):
			result.Conflicts = append(result.Conflicts, ports.BulkConflict{Index: i, Invoice: inv, Err: err})
		default:
			tx.Rollback()
			return ports.BulkResult{}, fmt.Errorf("bulk insert invoice %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return ports.BulkResult{}, fmt.Errorf("commit bulk insert: %w", err)
	}
	return result, nil
}

// Find returns invoices matching the filter, newest period first.
func (s *InvoiceStore) Find(ctx context.Context, f ports.InvoiceFilter) ([]billing.Invoice, error) {
	var (
		where []string
		args  []any
	)
	add := func(clause string, arg any) {
		where = append(where, clause)
		args = append(args, arg)
	}
	if f.PaymentType != "" {
		add("payment_type = ?", string(f.PaymentType))
	}
	if f.PlanID != "" {
		add("plan_id = ?", f.PlanID)
	}
	if f.PlayerID != "" {
		add("player_id = ?", f.PlayerID)
	}
	if f.Month != 0 {
		add("month = ?", f.Month)
	}
	if f.Year != 0 {
		add("year = ?", f.Year)
	}
	if f.Status != "" {
		add("status = ?", string(f.Status))
	}
	if f.HasPlan {
		where = append(where, "plan_id IS NOT NULL")
	}

	query := "SELECT " + invoiceColumns + " FROM invoices"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY year DESC, month DESC, COALESCE(installment_number, 0) ASC, id ASC"
	if f.Limit > 0 {
		query += " LIMIT ? OFFSET ?"
		args = append(args, f.Limit, f.Offset)
	} else if f.Offset > 0 {
		query += " LIMIT -1 OFFSET ?"
		args = append(args, f.Offset)
	}

	return s.query(ctx, query, args...)
}

// FindByPlan returns a plan's invoices ordered by installment number.
func (s *InvoiceStore) FindByPlan(ctx context.Context, planID string) ([]billing.Invoice, error) {
	return s.query(ctx, "SELECT "+invoiceColumns+` FROM invoices
		WHERE plan_id = ?
		ORDER BY installment_number ASC`, planID)
}

func (s *InvoiceStore) query(ctx context.Context, query string, args ...any) ([]billing.Invoice, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var invoices []billing.Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, err
		}
		invoices = append(invoices, inv)
	}
	return invoices, rows.Err()
}

// Get retrieves an invoice by ID.
func (s *InvoiceStore) Get(ctx context.Context, id string) (billing.Invoice, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+invoiceColumns+" FROM invoices WHERE id = ?", id)
	inv, err := scanInvoice(row)
	if errors.Is(err, sql.ErrNoRows) {
		return billing.Invoice{}, billing.ErrNotFound
	}
	return inv, err
}

// UpdateFields changes the mutable fields of an invoice inside a transaction.
func (s *InvoiceStore) UpdateFields(ctx context.Context, id string, u billing.InvoiceUpdate, now time.Time) (billing.Invoice, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return billing.Invoice{}, err
	}
	defer tx.Rollback()

	row := tx.QueryRowContext(ctx, "SELECT "+invoiceColumns+" FROM invoices WHERE id = ?", id)
	inv, err := scanInvoice(row)
	if errors.Is(err, sql.ErrNoRows) {
		return billing.Invoice{}, billing.ErrNotFound
	}
	if err != nil {
		return billing.Invoice{}, err
	}

	inv = u.Apply(inv, now)
	inv.UpdatedAt = now.UTC()

	if _, err := tx.ExecContext(ctx, `
		UPDATE invoices
		SET amount = ?, status = ?, paid_date = ?, notes = ?, updated_at = ?
		WHERE id = ?
	`, billing.FormatAmount(inv.Amount), string(inv.Status), nullTime(inv.PaidDate),
		inv.Notes, inv.UpdatedAt, id); err != nil {
		return billing.Invoice{}, err
	}

	if err := tx.Commit(); err != nil {
		return billing.Invoice{}, err
	}
	return inv, nil
}

// Delete removes an invoice.
func (s *InvoiceStore) Delete(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM invoices WHERE id = ?", id)
	if err != nil {
		return err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return billing.ErrNotFound
	}
	return nil
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanInvoice(sc scanner) (billing.Invoice, error) {
	var (
		inv                               billing.Invoice
		planID                            sql.NullString
		paymentType, status, amount       string
		paidDate, start, end, due         sql.NullTime
		installmentNumber, totalInstalled sql.NullInt64
	)

	err := sc.Scan(
		&inv.ID, &inv.PlayerID, &planID, &paymentType, &inv.Month, &inv.Year, &amount,
		&status, &paidDate, &inv.Notes, &start, &end, &due,
		&installmentNumber, &totalInstalled, &inv.CreatedAt, &inv.UpdatedAt,
	)
	if err != nil {
		return billing.Invoice{}, err
	}

	inv.Amount, err = decimal.NewFromString(amount)
	if err != nil {
		return billing.Invoice{}, fmt.Errorf("invoice %s amount %q: %w", inv.ID, amount, err)
	}
	inv.PlanID = planID.String
	inv.PaymentType = billing.PaymentType(paymentType)
	inv.Status = billing.InvoiceStatus(status)
	inv.PaidDate = timePtr(paidDate)
	inv.PlanStartDate = timePtr(start)
	inv.PlanEndDate = timePtr(end)
	inv.DueDate = timePtr(due)
	inv.InstallmentNumber = int(installmentNumber.Int64)
	inv.TotalInstallments = int(totalInstalled.Int64)
	return inv, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

func timePtr(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time.UTC()
	return &t
}

// Ensure interface compliance.
var _ ports.InvoiceStore = (*InvoiceStore)(nil)
