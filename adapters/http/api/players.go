package api

import (
	"net/http"

	"github.com/artpar/clubdues/app"
	"github.com/artpar/clubdues/domain/billing"
	"github.com/artpar/clubdues/domain/player"
	"github.com/go-chi/chi/v5"
)

// PlayerResponse represents a player in API responses.
type PlayerResponse struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Email        string `json:"email,omitempty"`
	Phone        string `json:"phone,omitempty"`
	Position     string `json:"position,omitempty"`
	JerseyNumber int    `json:"jersey_number,omitempty"`
	JoinDate     string `json:"join_date,omitempty"`
	Active       bool   `json:"active"`
	CreatedAt    string `json:"created_at,omitempty"`
}

func playerToResponse(p player.Player) PlayerResponse {
	resp := PlayerResponse{
		ID:           p.ID,
		Name:         p.Name,
		Email:        p.Email,
		Phone:        p.Phone,
		Position:     p.Position,
		JerseyNumber: p.JerseyNumber,
		Active:       p.Active,
		CreatedAt:    formatTime(&p.CreatedAt),
	}
	if !p.JoinDate.IsZero() {
		resp.JoinDate = formatDate(&p.JoinDate)
	}
	return resp
}

func playersToResponse(players []player.Player) []PlayerResponse {
	out := make([]PlayerResponse, 0, len(players))
	for _, p := range players {
		out = append(out, playerToResponse(p))
	}
	return out
}

// CreatePlayerRequest represents a request to register a player.
type CreatePlayerRequest struct {
	Name         string `json:"name"`
	Email        string `json:"email,omitempty"`
	Phone        string `json:"phone,omitempty"`
	Position     string `json:"position,omitempty"`
	JerseyNumber int    `json:"jersey_number,omitempty"`
	JoinDate     string `json:"join_date,omitempty"`
	Active       *bool  `json:"active,omitempty"`
}

// CreatePlayer registers a player.
func (h *Handler) CreatePlayer(w http.ResponseWriter, r *http.Request) {
	var req CreatePlayerRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body")
		return
	}
	joined, err := parseDate("join_date", req.JoinDate)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	p, err := h.players.CreatePlayer(r.Context(), app.CreatePlayerRequest{
		Name:         req.Name,
		Email:        req.Email,
		Phone:        req.Phone,
		Position:     req.Position,
		JerseyNumber: req.JerseyNumber,
		JoinDate:     joined,
		Active:       req.Active,
	})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, playerToResponse(p))
}

// GetPlayer returns one player.
func (h *Handler) GetPlayer(w http.ResponseWriter, r *http.Request) {
	p, err := h.players.GetPlayer(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, playerToResponse(p))
}

// ListPlayers lists players by name.
func (h *Handler) ListPlayers(w http.ResponseWriter, r *http.Request) {
	limit, err := parseIntQuery(r, "limit")
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	offset, err := parseIntQuery(r, "offset")
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	if limit < 0 || offset < 0 {
		h.writeServiceError(w, r, &billing.ValidationError{Field: "limit", Reason: "must not be negative"})
		return
	}

	players, err := h.players.ListPlayers(r.Context(), limit, offset)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"players": playersToResponse(players),
		"total":   len(players),
	})
}

// StatsResponse represents the dues collection summary.
type StatsResponse struct {
	ActivePlayers int `json:"active_players"`
	CurrentMonth  struct {
		Month           int     `json:"month"`
		Year            int     `json:"year"`
		Paid            int     `json:"paid"`
		Pending         int     `json:"pending"`
		Overdue         int     `json:"overdue"`
		AmountCollected string  `json:"amount_collected"`
		AmountExpected  string  `json:"amount_expected"`
		CollectionRate  float64 `json:"collection_rate"`
	} `json:"current_month"`
	Overall struct {
		Paid    int `json:"paid"`
		Pending int `json:"pending"`
		Overdue int `json:"overdue"`
	} `json:"overall"`
	RecentPayments []InvoiceResponse `json:"recent_payments"`
	Unpaid         []PlayerResponse  `json:"unpaid_players"`
}

// GetStats returns the current month's collection summary.
func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	sum, err := h.summary.Current(r.Context())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	var resp StatsResponse
	resp.ActivePlayers = sum.ActivePlayers
	resp.CurrentMonth.Month = sum.Period.Month
	resp.CurrentMonth.Year = sum.Period.Year
	resp.CurrentMonth.Paid = sum.Paid
	resp.CurrentMonth.Pending = sum.Pending
	resp.CurrentMonth.Overdue = sum.Overdue
	resp.CurrentMonth.AmountCollected = billing.FormatAmount(sum.AmountCollected)
	resp.CurrentMonth.AmountExpected = billing.FormatAmount(sum.AmountExpected)
	resp.CurrentMonth.CollectionRate = sum.CollectionRate
	resp.Overall.Paid = sum.TotalPaid
	resp.Overall.Pending = sum.TotalPending
	resp.Overall.Overdue = sum.TotalOverdue
	resp.RecentPayments = invoicesToResponse(sum.RecentPayments)
	resp.Unpaid = playersToResponse(sum.Unpaid)

	writeJSON(w, http.StatusOK, resp)
}
