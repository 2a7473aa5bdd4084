// Package app provides application services that orchestrate domain logic.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/artpar/clubdues/adapters/metrics"
	"github.com/artpar/clubdues/domain/billing"
	"github.com/artpar/clubdues/ports"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// PlanService creates billing plans and manages their invoices.
type PlanService struct {
	invoices ports.InvoiceStore
	players  ports.PlayerStore
	ids      ports.IDGenerator
	planIDs  ports.IDGenerator
	clock    ports.Clock
	metrics  *metrics.Collector
	logger   zerolog.Logger
}

// PlanServiceConfig contains configuration for PlanService.
type PlanServiceConfig struct {
	PlanIDs ports.IDGenerator  // plan id generator, defaults to "plan_" + UUID
	Metrics *metrics.Collector // optional
}

// NewPlanService creates a new plan service.
// ids generates invoice ids.
func NewPlanService(
	invoices ports.InvoiceStore,
	players ports.PlayerStore,
	ids ports.IDGenerator,
	clock ports.Clock,
	logger zerolog.Logger,
	cfg PlanServiceConfig,
) *PlanService {
	planIDs := cfg.PlanIDs
	if planIDs == nil {
		planIDs = planIDGenerator{}
	}
	return &PlanService{
		invoices: invoices,
		players:  players,
		ids:      ids,
		planIDs:  planIDs,
		clock:    clock,
		metrics:  cfg.Metrics,
		logger:   logger.With().Str("service", "plan").Logger(),
	}
}

// CreatePlanRequest is the input of CreatePlan. Pointer fields are optional
// at the transport level and checked here.
type CreatePlanRequest struct {
	PlayerID     string
	PaymentType  billing.PaymentType
	StartDate    *time.Time
	EndDate      *time.Time
	TotalAmount  *decimal.Decimal
	Installments int
	Status       billing.InvoiceStatus
	PaidDate     *time.Time
	Notes        string
}

// CreatePlanResult reports what CreatePlan wrote.
type CreatePlanResult struct {
	PlanID       string
	CreatedCount int
	// TotalPlanned is the number of invoices a monthly plan will produce
	// over its lifetime. Zero for installment plans.
	TotalPlanned int
	Invoices     []billing.Invoice
}

// validate checks presence of the request fields before amortization.
func (r CreatePlanRequest) validate() error {
	if r.PlayerID == "" {
		return &billing.ValidationError{Field: "player_id", Reason: "is required"}
	}
	if r.PaymentType == "" {
		return &billing.ValidationError{Field: "payment_type", Reason: "is required"}
	}
	if !r.PaymentType.Valid() {
		return &billing.ValidationError{Field: "payment_type", Reason: "must be monthly or installment"}
	}
	if r.StartDate == nil {
		return &billing.ValidationError{Field: "start_date", Reason: "is required"}
	}
	if r.EndDate == nil {
		return &billing.ValidationError{Field: "end_date", Reason: "is required"}
	}
	if r.TotalAmount == nil {
		return &billing.ValidationError{Field: "total_amount", Reason: "is required"}
	}
	if r.PaymentType == billing.PaymentTypeInstallment && r.Installments == 0 {
		return &billing.ValidationError{Field: "installments", Reason: "is required for installment plans"}
	}
	if r.Status != "" && !r.Status.Valid() {
		return &billing.ValidationError{Field: "status", Reason: "must be one of pending, paid, overdue"}
	}
	return nil
}

// CreatePlan validates the request, amortizes the plan and persists the
// invoices it produces. Installment plans write all of their invoices,
// monthly plans only the first.
func (s *PlanService) CreatePlan(ctx context.Context, req CreatePlanRequest) (CreatePlanResult, error) {
	if err := req.validate(); err != nil {
		return CreatePlanResult{}, err
	}

	if _, err := s.players.Get(ctx, req.PlayerID); err != nil {
		if errors.Is(err, billing.ErrNotFound) {
			return CreatePlanResult{}, fmt.Errorf("player %s: %w", req.PlayerID, billing.ErrNotFound)
		}
		return CreatePlanResult{}, err
	}

	params := billing.PlanParams{
		PlanID:          s.planIDs.New(),
		PlayerID:        req.PlayerID,
		PaymentType:     req.PaymentType,
		Start:           AsDate(*req.StartDate),
		End:             AsDate(*req.EndDate),
		TotalAmount:     *req.TotalAmount,
		NumInstallments: req.Installments,
		Status:          req.Status,
		PaidDate:        s.paidDate(req.Status, req.PaidDate),
		Notes:           req.Notes,
	}

	schedule, err := billing.Amortize(params)
	if err != nil {
		return CreatePlanResult{}, err
	}
	for i := range schedule.Invoices {
		schedule.Invoices[i].ID = s.ids.New()
	}

	res, err := s.invoices.CreateBulk(ctx, schedule.Invoices)
	if err != nil {
		return CreatePlanResult{}, fmt.Errorf("create plan %s: %w", params.PlanID, err)
	}
	if len(res.Conflicts) > 0 {
		s.logger.Warn().
			Str("plan_id", params.PlanID).
			Int("conflicts", len(res.Conflicts)).
			Err(res.Conflicts[0].Err).
			Msg("plan invoices rejected")
		for _, inv := range res.Created {
			if err := s.invoices.Delete(ctx, inv.ID); err != nil && !errors.Is(err, billing.ErrNotFound) {
				s.logger.Error().Err(err).Str("invoice_id", inv.ID).Msg("remove partial plan invoice")
			}
		}
		return CreatePlanResult{}, fmt.Errorf("plan %s: %w", params.PlanID, billing.ErrConflict)
	}

	result := CreatePlanResult{
		PlanID:       params.PlanID,
		CreatedCount: len(res.Created),
		Invoices:     res.Created,
	}
	if req.PaymentType == billing.PaymentTypeMonthly {
		result.TotalPlanned = schedule.TotalPlanned
	}

	s.metrics.PlanCreated(string(req.PaymentType), result.CreatedCount)
	s.logger.Info().
		Str("plan_id", result.PlanID).
		Str("player_id", req.PlayerID).
		Str("payment_type", string(req.PaymentType)).
		Int("created", result.CreatedCount).
		Int("total_planned", schedule.TotalPlanned).
		Msg("plan created")

	return result, nil
}

// GetPlan returns the plan view built from its stored invoices.
func (s *PlanService) GetPlan(ctx context.Context, planID string) (billing.Plan, error) {
	invoices, err := s.invoices.FindByPlan(ctx, planID)
	if err != nil {
		return billing.Plan{}, err
	}
	plan, ok := billing.PlanFromInvoices(invoices)
	if !ok {
		return billing.Plan{}, fmt.Errorf("plan %s: %w", planID, billing.ErrNotFound)
	}
	return plan, nil
}

// ListInvoices returns invoices matching the filter, newest period first.
func (s *PlanService) ListInvoices(ctx context.Context, f ports.InvoiceFilter) ([]billing.Invoice, error) {
	if f.Status != "" && !f.Status.Valid() {
		return nil, &billing.ValidationError{Field: "status", Reason: "must be one of pending, paid, overdue"}
	}
	if f.Month < 0 || f.Month > 12 {
		return nil, &billing.ValidationError{Field: "month", Reason: "must be between 1 and 12"}
	}
	if f.Limit < 0 || f.Offset < 0 {
		return nil, &billing.ValidationError{Field: "limit", Reason: "must not be negative"}
	}
	return s.invoices.Find(ctx, f)
}

// GetInvoice retrieves one invoice.
func (s *PlanService) GetInvoice(ctx context.Context, id string) (billing.Invoice, error) {
	return s.invoices.Get(ctx, id)
}

// UpdateInvoice changes the mutable fields of an invoice. Moving to paid
// without a paid date stamps the current time.
func (s *PlanService) UpdateInvoice(ctx context.Context, id string, u billing.InvoiceUpdate) (billing.Invoice, error) {
	if err := u.Validate(); err != nil {
		return billing.Invoice{}, err
	}
	inv, err := s.invoices.UpdateFields(ctx, id, u, s.clock.Now().UTC())
	if err != nil {
		return billing.Invoice{}, err
	}
	s.logger.Debug().Str("invoice_id", id).Str("status", string(inv.Status)).Msg("invoice updated")
	return inv, nil
}

// DeleteInvoice removes an invoice.
func (s *PlanService) DeleteInvoice(ctx context.Context, id string) error {
	if err := s.invoices.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info().Str("invoice_id", id).Msg("invoice deleted")
	return nil
}

// LegacyInvoiceRequest is the input of CreateLegacyInvoice.
type LegacyInvoiceRequest struct {
	PlayerID string
	Month    int
	Year     int
	Amount   *decimal.Decimal
	Status   billing.InvoiceStatus
	PaidDate *time.Time
	Notes    string
}

// CreateLegacyInvoice records a single invoice that belongs to no plan.
// A player has at most one such invoice per month.
func (s *PlanService) CreateLegacyInvoice(ctx context.Context, req LegacyInvoiceRequest) (billing.Invoice, error) {
	switch {
	case req.PlayerID == "":
		return billing.Invoice{}, &billing.ValidationError{Field: "player_id", Reason: "is required"}
	case req.Month < 1 || req.Month > 12:
		return billing.Invoice{}, &billing.ValidationError{Field: "month", Reason: "must be between 1 and 12"}
	case req.Year < 1:
		return billing.Invoice{}, &billing.ValidationError{Field: "year", Reason: "is required"}
	case req.Amount == nil:
		return billing.Invoice{}, &billing.ValidationError{Field: "amount", Reason: "is required"}
	case req.Amount.IsNegative():
		return billing.Invoice{}, &billing.ValidationError{Field: "amount", Reason: "must not be negative"}
	case req.Status != "" && !req.Status.Valid():
		return billing.Invoice{}, &billing.ValidationError{Field: "status", Reason: "must be one of pending, paid, overdue"}
	}

	if _, err := s.players.Get(ctx, req.PlayerID); err != nil {
		if errors.Is(err, billing.ErrNotFound) {
			return billing.Invoice{}, fmt.Errorf("player %s: %w", req.PlayerID, billing.ErrNotFound)
		}
		return billing.Invoice{}, err
	}

	status := req.Status
	if status == "" {
		status = billing.InvoiceStatusPending
	}
	inv, err := s.invoices.Create(ctx, billing.Invoice{
		ID:          s.ids.New(),
		PlayerID:    req.PlayerID,
		PaymentType: billing.PaymentTypeSingle,
		Month:       req.Month,
		Year:        req.Year,
		Amount:      billing.Round2(*req.Amount),
		Status:      status,
		PaidDate:    s.paidDate(status, req.PaidDate),
		Notes:       req.Notes,
	})
	if err != nil {
		return billing.Invoice{}, err
	}

	s.metrics.LegacyInvoiceCreated()
	s.logger.Info().
		Str("invoice_id", inv.ID).
		Str("player_id", inv.PlayerID).
		Int("month", inv.Month).
		Int("year", inv.Year).
		Msg("legacy invoice created")
	return inv, nil
}

// paidDate returns the explicit paid date, or now when the status is paid.
func (s *PlanService) paidDate(status billing.InvoiceStatus, explicit *time.Time) *time.Time {
	if explicit != nil {
		pd := explicit.UTC()
		return &pd
	}
	if status == billing.InvoiceStatusPaid {
		now := s.clock.Now().UTC()
		return &now
	}
	return nil
}

// AsDate returns the calendar date of t as UTC midnight.
func AsDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

type planIDGenerator struct{}

func (planIDGenerator) New() string {
	return "plan_" + uuid.NewString()
}
