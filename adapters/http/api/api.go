// Package api provides HTTP handlers for the dues API.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/artpar/clubdues/app"
	"github.com/artpar/clubdues/domain/billing"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// Handler provides dues API endpoints.
type Handler struct {
	plans   *app.PlanService
	sweeper *app.Sweeper
	players *app.PlayerService
	summary *app.SummaryService
	logger  zerolog.Logger
}

// Deps contains dependencies for the API handler.
type Deps struct {
	Plans   *app.PlanService
	Sweeper *app.Sweeper
	Players *app.PlayerService
	Summary *app.SummaryService // optional
	Logger  zerolog.Logger
}

// NewHandler creates a new API handler.
func NewHandler(deps Deps) *Handler {
	return &Handler{
		plans:   deps.Plans,
		sweeper: deps.Sweeper,
		players: deps.Players,
		summary: deps.Summary,
		logger:  deps.Logger.With().Str("component", "api").Logger(),
	}
}

// Router returns the API router.
func (h *Handler) Router() chi.Router {
	r := chi.NewRouter()

	// Plans
	r.Post("/plans", h.CreatePlan)
	r.Get("/plans/{id}", h.GetPlan)

	// Invoices
	r.Get("/invoices", h.ListInvoices)
	r.Post("/invoices", h.CreateLegacyInvoice)
	r.Post("/invoices/sweep", h.SweepInvoices)
	r.Get("/invoices/{id}", h.GetInvoice)
	r.Put("/invoices/{id}", h.UpdateInvoice)
	r.Delete("/invoices/{id}", h.DeleteInvoice)

	// Players
	r.Get("/players", h.ListPlayers)
	r.Post("/players", h.CreatePlayer)
	r.Get("/players/{id}", h.GetPlayer)

	// Stats
	if h.summary != nil {
		r.Get("/stats", h.GetStats)
	}

	return r
}

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
		Field   string `json:"field,omitempty"`
	} `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	var resp ErrorResponse
	resp.Error.Code = code
	resp.Error.Message = message
	writeJSON(w, status, resp)
}

// writeServiceError maps a service error to its HTTP status.
func (h *Handler) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var ve *billing.ValidationError
	switch {
	case errors.As(err, &ve):
		var resp ErrorResponse
		resp.Error.Code = "validation_error"
		resp.Error.Message = ve.Error()
		resp.Error.Field = ve.Field
		writeJSON(w, http.StatusBadRequest, resp)
	case errors.Is(err, billing.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, billing.ErrConflict):
		writeError(w, http.StatusConflict, "conflict", err.Error())
	default:
		h.logger.Error().Err(err).Str("method", r.Method).Str("path", r.URL.Path).Msg("request failed")
		writeError(w, http.StatusInternalServerError, "internal_error", "Internal server error")
	}
}

func decodeJSON(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// parseIntQuery reads an optional integer query parameter.
func parseIntQuery(r *http.Request, name string) (int, error) {
	s := r.URL.Query().Get(name)
	if s == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, &billing.ValidationError{Field: name, Reason: "must be an integer"}
	}
	return n, nil
}

// parseDate accepts YYYY-MM-DD or an RFC 3339 timestamp.
func parseDate(field, s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	for _, layout := range []string{time.DateOnly, time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			return &t, nil
		}
	}
	return nil, &billing.ValidationError{Field: field, Reason: "must be a date (YYYY-MM-DD)"}
}

func formatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(time.DateOnly)
}

func formatTime(t *time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
