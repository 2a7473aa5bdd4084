package api

import (
	"net/http"

	"github.com/artpar/clubdues/app"
	"github.com/artpar/clubdues/domain/billing"
	"github.com/artpar/clubdues/ports"
	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

// InvoiceResponse represents an invoice in API responses.
type InvoiceResponse struct {
	ID                string `json:"id"`
	PlayerID          string `json:"player_id"`
	PlanID            string `json:"plan_id,omitempty"`
	PaymentType       string `json:"payment_type"`
	Month             int    `json:"month"`
	Year              int    `json:"year"`
	Amount            string `json:"amount"`
	Status            string `json:"status"`
	PaidDate          string `json:"paid_date,omitempty"`
	Notes             string `json:"notes,omitempty"`
	PlanStartDate     string `json:"plan_start_date,omitempty"`
	PlanEndDate       string `json:"plan_end_date,omitempty"`
	DueDate           string `json:"due_date,omitempty"`
	InstallmentNumber int    `json:"installment_number,omitempty"`
	TotalInstallments int    `json:"total_installments,omitempty"`
	CreatedAt         string `json:"created_at,omitempty"`
	UpdatedAt         string `json:"updated_at,omitempty"`
}

func invoiceToResponse(inv billing.Invoice) InvoiceResponse {
	return InvoiceResponse{
		ID:                inv.ID,
		PlayerID:          inv.PlayerID,
		PlanID:            inv.PlanID,
		PaymentType:       string(inv.PaymentType),
		Month:             inv.Month,
		Year:              inv.Year,
		Amount:            billing.FormatAmount(inv.Amount),
		Status:            string(inv.Status),
		PaidDate:          formatTime(inv.PaidDate),
		Notes:             inv.Notes,
		PlanStartDate:     formatDate(inv.PlanStartDate),
		PlanEndDate:       formatDate(inv.PlanEndDate),
		DueDate:           formatDate(inv.DueDate),
		InstallmentNumber: inv.InstallmentNumber,
		TotalInstallments: inv.TotalInstallments,
		CreatedAt:         formatTime(&inv.CreatedAt),
		UpdatedAt:         formatTime(&inv.UpdatedAt),
	}
}

func invoicesToResponse(invs []billing.Invoice) []InvoiceResponse {
	out := make([]InvoiceResponse, 0, len(invs))
	for _, inv := range invs {
		out = append(out, invoiceToResponse(inv))
	}
	return out
}

// CreatePlanRequest represents a request to create a billing plan.
type CreatePlanRequest struct {
	PlayerID     string           `json:"player_id"`
	PaymentType  string           `json:"payment_type"`
	StartDate    string           `json:"start_date"`
	EndDate      string           `json:"end_date"`
	TotalAmount  *decimal.Decimal `json:"total_amount"`
	Installments int              `json:"installments,omitempty"`
	Status       string           `json:"status,omitempty"`
	PaidDate     string           `json:"paid_date,omitempty"`
	Notes        string           `json:"notes,omitempty"`
}

// CreatePlanResponse represents the invoices a plan created.
type CreatePlanResponse struct {
	PlanID       string            `json:"plan_id"`
	Count        int               `json:"count"`
	TotalPlanned int               `json:"total_planned,omitempty"`
	Invoices     []InvoiceResponse `json:"invoices"`
}

// CreatePlan creates a monthly or installment plan.
func (h *Handler) CreatePlan(w http.ResponseWriter, r *http.Request) {
	var req CreatePlanRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body")
		return
	}

	start, err := parseDate("start_date", req.StartDate)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	end, err := parseDate("end_date", req.EndDate)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	paid, err := parseDate("paid_date", req.PaidDate)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	res, err := h.plans.CreatePlan(r.Context(), app.CreatePlanRequest{
		PlayerID:     req.PlayerID,
		PaymentType:  billing.PaymentType(req.PaymentType),
		StartDate:    start,
		EndDate:      end,
		TotalAmount:  req.TotalAmount,
		Installments: req.Installments,
		Status:       billing.InvoiceStatus(req.Status),
		PaidDate:     paid,
		Notes:        req.Notes,
	})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, CreatePlanResponse{
		PlanID:       res.PlanID,
		Count:        res.CreatedCount,
		TotalPlanned: res.TotalPlanned,
		Invoices:     invoicesToResponse(res.Invoices),
	})
}

// PlanResponse represents a plan and its invoices.
type PlanResponse struct {
	PlanID            string            `json:"plan_id"`
	PlayerID          string            `json:"player_id"`
	PaymentType       string            `json:"payment_type"`
	StartDate         string            `json:"start_date,omitempty"`
	EndDate           string            `json:"end_date,omitempty"`
	Amount            string            `json:"amount"`
	TotalInstallments int               `json:"total_installments"`
	Remaining         int               `json:"remaining"`
	Total             string            `json:"total"`
	Invoices          []InvoiceResponse `json:"invoices"`
}

// GetPlan returns a plan with its invoices.
func (h *Handler) GetPlan(w http.ResponseWriter, r *http.Request) {
	plan, err := h.plans.GetPlan(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, PlanResponse{
		PlanID:            plan.ID,
		PlayerID:          plan.PlayerID,
		PaymentType:       string(plan.PaymentType),
		StartDate:         formatDate(plan.Start),
		EndDate:           formatDate(plan.End),
		Amount:            billing.FormatAmount(plan.Amount),
		TotalInstallments: plan.TotalInstallments,
		Remaining:         plan.Remaining(),
		Total:             billing.FormatAmount(plan.Total()),
		Invoices:          invoicesToResponse(plan.Invoices),
	})
}

// ListInvoices lists invoices, newest period first.
func (h *Handler) ListInvoices(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := ports.InvoiceFilter{
		PaymentType: billing.PaymentType(q.Get("payment_type")),
		PlanID:      q.Get("plan_id"),
		PlayerID:    q.Get("player_id"),
		Status:      billing.InvoiceStatus(q.Get("status")),
	}

	var err error
	for name, dst := range map[string]*int{"month": &f.Month, "year": &f.Year, "limit": &f.Limit, "offset": &f.Offset} {
		if *dst, err = parseIntQuery(r, name); err != nil {
			h.writeServiceError(w, r, err)
			return
		}
	}

	invoices, err := h.plans.ListInvoices(r.Context(), f)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"invoices": invoicesToResponse(invoices),
		"total":    len(invoices),
	})
}

// GetInvoice returns one invoice.
func (h *Handler) GetInvoice(w http.ResponseWriter, r *http.Request) {
	inv, err := h.plans.GetInvoice(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, invoiceToResponse(inv))
}

// UpdateInvoiceRequest represents a request to update an invoice.
// Only these fields may change after creation.
type UpdateInvoiceRequest struct {
	Amount   *decimal.Decimal `json:"amount,omitempty"`
	Status   *string          `json:"status,omitempty"`
	PaidDate *string          `json:"paid_date,omitempty"`
	Notes    *string          `json:"notes,omitempty"`
}

// UpdateInvoice changes the amount, status, paid date or notes of an invoice.
func (h *Handler) UpdateInvoice(w http.ResponseWriter, r *http.Request) {
	var req UpdateInvoiceRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body")
		return
	}

	u := billing.InvoiceUpdate{Amount: req.Amount, Notes: req.Notes}
	if req.Status != nil {
		status := billing.InvoiceStatus(*req.Status)
		u.Status = &status
	}
	if req.PaidDate != nil {
		pd, err := parseDate("paid_date", *req.PaidDate)
		if err != nil {
			h.writeServiceError(w, r, err)
			return
		}
		u.PaidDate = pd
	}

	inv, err := h.plans.UpdateInvoice(r.Context(), chi.URLParam(r, "id"), u)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, invoiceToResponse(inv))
}

// DeleteInvoice removes an invoice.
func (h *Handler) DeleteInvoice(w http.ResponseWriter, r *http.Request) {
	if err := h.plans.DeleteInvoice(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// LegacyInvoiceRequest represents a request for a single invoice outside any plan.
type LegacyInvoiceRequest struct {
	PlayerID string           `json:"player_id"`
	Month    int              `json:"month"`
	Year     int              `json:"year"`
	Amount   *decimal.Decimal `json:"amount"`
	Status   string           `json:"status,omitempty"`
	PaidDate string           `json:"paid_date,omitempty"`
	Notes    string           `json:"notes,omitempty"`
}

// CreateLegacyInvoice records a single invoice for a player and month.
func (h *Handler) CreateLegacyInvoice(w http.ResponseWriter, r *http.Request) {
	var req LegacyInvoiceRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body")
		return
	}
	paid, err := parseDate("paid_date", req.PaidDate)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	inv, err := h.plans.CreateLegacyInvoice(r.Context(), app.LegacyInvoiceRequest{
		PlayerID: req.PlayerID,
		Month:    req.Month,
		Year:     req.Year,
		Amount:   req.Amount,
		Status:   billing.InvoiceStatus(req.Status),
		PaidDate: paid,
		Notes:    req.Notes,
	})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, invoiceToResponse(inv))
}

// SweepResponse reports a sweep.
type SweepResponse struct {
	Created   int               `json:"created"`
	Conflicts int               `json:"conflicts"`
	Message   string            `json:"message"`
	Outcome   string            `json:"outcome"`
	Invoices  []InvoiceResponse `json:"invoices"`
}

// SweepInvoices creates the monthly plan invoices that are due today.
func (h *Handler) SweepInvoices(w http.ResponseWriter, r *http.Request) {
	res, err := h.sweeper.Sweep(r.Context())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, SweepResponse{
		Created:   res.Created,
		Conflicts: res.Conflicts,
		Message:   res.Message,
		Outcome:   res.Outcome,
		Invoices:  invoicesToResponse(res.Invoices),
	})
}
