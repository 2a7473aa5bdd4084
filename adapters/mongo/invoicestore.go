package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/artpar/clubdues/domain/billing"
	"github.com/artpar/clubdues/ports"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// invoiceModel is the stored document shape of an invoice.
type invoiceModel struct {
	ID                string          `bson:"_id"`
	PlayerID          string          `bson:"player_id"`
	PlanID            string          `bson:"plan_id,omitempty"`
	HasPlan           bool            `bson:"has_plan"`
	PaymentType       string          `bson:"payment_type"`
	Month             int             `bson:"month"`
	Year              int             `bson:"year"`
	Amount            bson.Decimal128 `bson:"amount"`
	Status            string          `bson:"status"`
	PaidDate          *time.Time      `bson:"paid_date,omitempty"`
	Notes             string          `bson:"notes"`
	PlanStartDate     *time.Time      `bson:"plan_start_date,omitempty"`
	PlanEndDate       *time.Time      `bson:"plan_end_date,omitempty"`
	DueDate           *time.Time      `bson:"due_date,omitempty"`
	InstallmentNumber int             `bson:"installment_number,omitempty"`
	TotalInstallments int             `bson:"total_installments,omitempty"`
	CreatedAt         time.Time       `bson:"created_at"`
	UpdatedAt         time.Time       `bson:"updated_at"`
}

func toInvoiceModel(inv billing.Invoice) (invoiceModel, error) {
	amount, err := bson.ParseDecimal128(billing.FormatAmount(inv.Amount))
	if err != nil {
		return invoiceModel{}, fmt.Errorf("invoice %s amount: %w", inv.ID, err)
	}
	return invoiceModel{
		ID:                inv.ID,
		PlayerID:          inv.PlayerID,
		PlanID:            inv.PlanID,
		HasPlan:           inv.HasPlan(),
		PaymentType:       string(inv.PaymentType),
		Month:             inv.Month,
		Year:              inv.Year,
		Amount:            amount,
		Status:            string(inv.Status),
		PaidDate:          inv.PaidDate,
		Notes:             inv.Notes,
		PlanStartDate:     inv.PlanStartDate,
		PlanEndDate:       inv.PlanEndDate,
		DueDate:           inv.DueDate,
		InstallmentNumber: inv.InstallmentNumber,
		TotalInstallments: inv.TotalInstallments,
		CreatedAt:         inv.CreatedAt,
		UpdatedAt:         inv.UpdatedAt,
	}, nil
}

func fromInvoiceModel(m invoiceModel) (billing.Invoice, error) {
	amount, err := decimal.NewFromString(m.Amount.String())
	if err != nil {
		return billing.Invoice{}, fmt.Errorf("invoice %s amount %q: %w", m.ID, m.Amount.String(), err)
	}
	return billing.Invoice{
		ID:                m.ID,
		PlayerID:          m.PlayerID,
		PlanID:            m.PlanID,
		PaymentType:       billing.PaymentType(m.PaymentType),
		Month:             m.Month,
		Year:              m.Year,
		Amount:            amount,
		Status:            billing.InvoiceStatus(m.Status),
		PaidDate:          utc(m.PaidDate),
		Notes:             m.Notes,
		PlanStartDate:     utc(m.PlanStartDate),
		PlanEndDate:       utc(m.PlanEndDate),
		DueDate:           utc(m.DueDate),
		InstallmentNumber: m.InstallmentNumber,
		TotalInstallments: m.TotalInstallments,
		CreatedAt:         m.CreatedAt.UTC(),
		UpdatedAt:         m.UpdatedAt.UTC(),
	}, nil
}

func utc(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}

// InvoiceStore implements ports.InvoiceStore using MongoDB.
type InvoiceStore struct {
	col *mongo.Collection
}

// NewInvoiceStore creates a new MongoDB invoice store.
func NewInvoiceStore(db *DB) *InvoiceStore {
	return &InvoiceStore{col: db.db.Collection(colInvoices)}
}

func prepare(inv billing.Invoice) billing.Invoice {
	if inv.ID == "" {
		inv.ID = uuid.NewString()
	}
	// BSON dates carry millisecond precision.
	now := time.Now().UTC().Truncate(time.Millisecond)
	if inv.CreatedAt.IsZero() {
		inv.CreatedAt = now
	}
	inv.UpdatedAt = now
	inv.Amount = billing.Round2(inv.Amount)
	return inv
}

// Create stores one invoice.
func (s *InvoiceStore) Create(ctx context.Context, inv billing.Invoice) (billing.Invoice, error) {
	inv = prepare(inv)
	m, err := toInvoiceModel(inv)
	if err != nil {
		return billing.Invoice{}, err
	}
	if _, err := s.col.InsertOne(ctx, m); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return billing.Invoice{}, fmt.Errorf("invoice %s: %w", inv.ID, billing.ErrConflict)
		}
		return billing.Invoice{}, fmt.Errorf("clubdues/mongo: create invoice: %w", err)
	}
	return inv, nil
}

// CreateBulk inserts the batch unordered. Duplicate-key failures are
// reported per item; any other write error fails the call.
func (s *InvoiceStore) CreateBulk(ctx context.Context, invs []billing.Invoice) (ports.BulkResult, error) {
	var result ports.BulkResult
	if len(invs) == 0 {
		return result, nil
	}

	prepared := make([]billing.Invoice, len(invs))
	docs := make([]invoiceModel, len(invs))
	for i, inv := range invs {
		prepared[i] = prepare(inv)
		m, err := toInvoiceModel(prepared[i])
		if err != nil {
			return result, err
		}
		docs[i] = m
	}

	_, err := s.col.InsertMany(ctx, docs, options.InsertMany().SetOrdered(false))
	failed, err := duplicateIndexes(err)
	if err != nil {
		return ports.BulkResult{}, fmt.Errorf("clubdues/mongo: bulk insert: %w", err)
	}

	for i, inv := range prepared {
		if cause, dup := failed[i]; dup {
			result.Conflicts = append(result.Conflicts, ports.BulkConflict{
				Index:   i,
				Invoice: inv,
				Err:     fmt.Errorf("invoice %s: %s: %w", inv.ID, cause, billing.ErrConflict),
			})
			continue
		}
		result.Created = append(result.Created, inv)
	}
	return result, nil
}

// duplicateIndexes splits an InsertMany error into the batch positions that
// hit a unique index. It returns a non-nil error when anything else failed.
func duplicateIndexes(err error) (map[int]string, error) {
	if err == nil {
		return nil, nil
	}
	var bwe mongo.BulkWriteException
	if !errors.As(err, &bwe) || bwe.WriteConcernError != nil {
		return nil, err
	}
	failed := make(map[int]string, len(bwe.WriteErrors))
	for _, we := range bwe.WriteErrors {
		if !mongo.IsDuplicateKeyError(we.WriteError) {
			return nil, err
		}
		failed[we.Index] = we.Message
	}
	return failed, nil
}

func invoiceFilter(f ports.InvoiceFilter) bson.M {
	filter := bson.M{}
	if f.PaymentType != "" {
		filter["payment_type"] = string(f.PaymentType)
	}
	if f.PlanID != "" {
		filter["plan_id"] = f.PlanID
	}
	if f.PlayerID != "" {
		filter["player_id"] = f.PlayerID
	}
	if f.Month != 0 {
		filter["month"] = f.Month
	}
	if f.Year != 0 {
		filter["year"] = f.Year
	}
	if f.Status != "" {
		filter["status"] = string(f.Status)
	}
	if f.HasPlan {
		filter["has_plan"] = true
	}
	return filter
}

// Find returns invoices matching the filter, newest period first.
func (s *InvoiceStore) Find(ctx context.Context, f ports.InvoiceFilter) ([]billing.Invoice, error) {
	opts := options.Find().SetSort(bson.D{
		{Key: "year", Value: -1},
		{Key: "month", Value: -1},
		{Key: "installment_number", Value: 1},
		{Key: "_id", Value: 1},
	})
	if f.Limit > 0 {
		opts.SetLimit(int64(f.Limit))
	}
	if f.Offset > 0 {
		opts.SetSkip(int64(f.Offset))
	}
	return s.find(ctx, invoiceFilter(f), opts)
}

// FindByPlan returns a plan's invoices ordered by installment number.
func (s *InvoiceStore) FindByPlan(ctx context.Context, planID string) ([]billing.Invoice, error) {
	opts := options.Find().SetSort(bson.D{{Key: "installment_number", Value: 1}})
	return s.find(ctx, bson.M{"plan_id": planID}, opts)
}

func (s *InvoiceStore) find(ctx context.Context, filter bson.M, opts *options.FindOptionsBuilder) ([]billing.Invoice, error) {
	cur, err := s.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("clubdues/mongo: find invoices: %w", err)
	}
	var models []invoiceModel
	if err := cur.All(ctx, &models); err != nil {
		return nil, fmt.Errorf("clubdues/mongo: decode invoices: %w", err)
	}

	invoices := make([]billing.Invoice, 0, len(models))
	for _, m := range models {
		inv, err := fromInvoiceModel(m)
		if err != nil {
			return nil, err
		}
		invoices = append(invoices, inv)
	}
	return invoices, nil
}

// Get retrieves an invoice by ID.
func (s *InvoiceStore) Get(ctx context.Context, id string) (billing.Invoice, error) {
	var m invoiceModel
	if err := s.col.FindOne(ctx, bson.M{"_id": id}).Decode(&m); err != nil {
		if isNoDocuments(err) {
			return billing.Invoice{}, billing.ErrNotFound
		}
		return billing.Invoice{}, fmt.Errorf("clubdues/mongo: get invoice: %w", err)
	}
	return fromInvoiceModel(m)
}

// UpdateFields changes the mutable fields of an invoice.
func (s *InvoiceStore) UpdateFields(ctx context.Context, id string, u billing.InvoiceUpdate, now time.Time) (billing.Invoice, error) {
	inv, err := s.Get(ctx, id)
	if err != nil {
		return billing.Invoice{}, err
	}
	inv = u.Apply(inv, now)
	inv.UpdatedAt = now.UTC().Truncate(time.Millisecond)

	amount, err := bson.ParseDecimal128(billing.FormatAmount(inv.Amount))
	if err != nil {
		return billing.Invoice{}, err
	}
	set := bson.M{
		"amount":     amount,
		"status":     string(inv.Status),
		"notes":      inv.Notes,
		"updated_at": inv.UpdatedAt,
	}
	update := bson.M{"$set": set}
	if inv.PaidDate != nil {
		set["paid_date"] = inv.PaidDate.UTC()
	} else {
		update["$unset"] = bson.M{"paid_date": ""}
	}

	res, err := s.col.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return billing.Invoice{}, fmt.Errorf("clubdues/mongo: update invoice: %w", err)
	}
	if res.MatchedCount == 0 {
		return billing.Invoice{}, billing.ErrNotFound
	}
	return inv, nil
}

// Delete removes an invoice.
func (s *InvoiceStore) Delete(ctx context.Context, id string) error {
	res, err := s.col.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("clubdues/mongo: delete invoice: %w", err)
	}
	if res.DeletedCount == 0 {
		return billing.ErrNotFound
	}
	return nil
}

// Ensure interface compliance.
var _ ports.InvoiceStore = (*InvoiceStore)(nil)
