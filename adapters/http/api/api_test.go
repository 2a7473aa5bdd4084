package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/artpar/clubdues/adapters/clock"
	"github.com/artpar/clubdues/adapters/http/api"
	"github.com/artpar/clubdues/adapters/idgen"
	"github.com/artpar/clubdues/adapters/memory"
	"github.com/artpar/clubdues/app"
	"github.com/artpar/clubdues/domain/player"
	"github.com/rs/zerolog"
)

type testAPI struct {
	handler  *api.Handler
	clock    *clock.Fake
	invoices *memory.InvoiceStore
}

func setupHandler(t *testing.T) *testAPI {
	t.Helper()

	invoices := memory.NewInvoiceStore()
	players := memory.NewPlayerStore()
	clk := clock.NewFake(time.Date(2024, 1, 5, 10, 0, 0, 0, time.UTC))
	logger := zerolog.Nop()

	players.Create(context.Background(), player.Player{ID: "player-1", Name: "Ana", Active: true})

	h := api.NewHandler(api.Deps{
		Plans: app.NewPlanService(invoices, players, idgen.NewSequential("inv-"), clk, logger,
			app.PlanServiceConfig{PlanIDs: idgen.NewSequential("plan-")}),
		Sweeper: app.NewSweeper(invoices, idgen.NewSequential("sweep-"), clk, logger, app.SweeperConfig{}),
		Players: app.NewPlayerService(players, idgen.NewSequential("player-new-"), clk, logger),
		Summary: app.NewSummaryService(invoices, players, clk, time.UTC),
		Logger:  logger,
	})
	return &testAPI{handler: h, clock: clk, invoices: invoices}
}

func doRequest(t *testing.T, h *api.Handler, method, path string, body interface{}) *http.Response {
	t.Helper()

	var bodyReader *bytes.Buffer
	switch b := body.(type) {
	case nil:
		bodyReader = bytes.NewBuffer(nil)
	case string:
		bodyReader = bytes.NewBufferString(b)
	default:
		raw, _ := json.Marshal(b)
		bodyReader = bytes.NewBuffer(raw)
	}

	req := httptest.NewRequest(method, path, bodyReader)
	req.Header.Set("Content-Type", "application/json")

	rec := httptest.NewRecorder()
	h.Router().ServeHTTP(rec, req)
	return rec.Result()
}

func decode(t *testing.T, resp *http.Response, v interface{}) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func TestCreatePlan_Installment(t *testing.T) {
	ta := setupHandler(t)

	resp := doRequest(t, ta.handler, "POST", "/plans", map[string]interface{}{
		"player_id":    "player-1",
		"payment_type": "installment",
		"start_date":   "2024-01-15",
		"end_date":     "2024-04-15",
		"total_amount": 9000,
		"installments": 3,
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d, want 201", resp.StatusCode)
	}

	var result api.CreatePlanResponse
	decode(t, resp, &result)

	if result.PlanID != "plan-1" || result.Count != 3 || result.TotalPlanned != 0 {
		t.Errorf("result = %+v", result)
	}
	wantDue := []string{"2024-02-15", "2024-03-15", "2024-04-15"}
	for i, inv := range result.Invoices {
		if inv.DueDate != wantDue[i] || inv.Amount != "3000.00" || inv.InstallmentNumber != i+1 {
			t.Errorf("invoice %d = due %s amount %s #%d", i, inv.DueDate, inv.Amount, inv.InstallmentNumber)
		}
	}
}

func TestCreatePlan_Monthly(t *testing.T) {
	ta := setupHandler(t)

	resp := doRequest(t, ta.handler, "POST", "/plans", map[string]interface{}{
		"player_id":    "player-1",
		"payment_type": "monthly",
		"start_date":   "2024-01-05",
		"end_date":     "2024-06-05",
		"total_amount": "5000",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d, want 201", resp.StatusCode)
	}

	var result api.CreatePlanResponse
	decode(t, resp, &result)
	if result.Count != 1 || result.TotalPlanned != 6 {
		t.Errorf("count = %d, total_planned = %d, want 1 and 6", result.Count, result.TotalPlanned)
	}
}

func TestCreatePlan_Errors(t *testing.T) {
	tests := []struct {
		name   string
		body   interface{}
		status int
		code   string
	}{
		{"malformed json", "{", http.StatusBadRequest, "invalid_request"},
		{"unknown field", map[string]interface{}{"player": "x"}, http.StatusBadRequest, "invalid_request"},
		{"missing payment type", map[string]interface{}{"player_id": "player-1", "start_date": "2024-01-01", "end_date": "2024-02-01", "total_amount": 10}, http.StatusBadRequest, "validation_error"},
		{"bad date", map[string]interface{}{"player_id": "player-1", "payment_type": "monthly", "start_date": "01/01/2024", "end_date": "2024-02-01", "total_amount": 10}, http.StatusBadRequest, "validation_error"},
		{"zero installments", map[string]interface{}{"player_id": "player-1", "payment_type": "installment", "start_date": "2024-01-01", "end_date": "2024-02-01", "total_amount": 10}, http.StatusBadRequest, "validation_error"},
		{"too many installments", map[string]interface{}{"player_id": "player-1", "payment_type": "installment", "start_date": "2024-01-01", "end_date": "2124-01-01", "total_amount": 10, "installments": 100000000}, http.StatusBadRequest, "validation_error"},
		{"unknown player", map[string]interface{}{"player_id": "ghost", "payment_type": "monthly", "start_date": "2024-01-01", "end_date": "2024-02-01", "total_amount": 10}, http.StatusNotFound, "not_found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ta := setupHandler(t)
			resp := doRequest(t, ta.handler, "POST", "/plans", tt.body)

			if resp.StatusCode != tt.status {
				t.Fatalf("status = %d, want %d", resp.StatusCode, tt.status)
			}
			var e api.ErrorResponse
			decode(t, resp, &e)
			if e.Error.Code != tt.code {
				t.Errorf("code = %s, want %s", e.Error.Code, tt.code)
			}
			if ta.invoices.Len() != 0 {
				t.Errorf("stored = %d, want 0", ta.invoices.Len())
			}
		})
	}
}

func TestGetPlan(t *testing.T) {
	ta := setupHandler(t)
	doRequest(t, ta.handler, "POST", "/plans", map[string]interface{}{
		"player_id": "player-1", "payment_type": "installment",
		"start_date": "2024-01-01", "end_date": "2024-04-01", "total_amount": 100, "installments": 3,
	})

	resp := doRequest(t, ta.handler, "GET", "/plans/plan-1", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	var plan api.PlanResponse
	decode(t, resp, &plan)
	if len(plan.Invoices) != 3 || plan.Total != "99.99" || plan.Remaining != 0 {
		t.Errorf("plan = %+v", plan)
	}

	if resp := doRequest(t, ta.handler, "GET", "/plans/nope", nil); resp.StatusCode != http.StatusNotFound {
		t.Errorf("missing plan status = %d, want 404", resp.StatusCode)
	}
}

func TestSweepInvoices(t *testing.T) {
	ta := setupHandler(t)

	resp := doRequest(t, ta.handler, "POST", "/invoices/sweep", nil)
	var empty api.SweepResponse
	decode(t, resp, &empty)
	if empty.Outcome != app.OutcomeNoPlans || empty.Message != app.MessageNoPlans {
		t.Errorf("empty sweep = %+v", empty)
	}

	doRequest(t, ta.handler, "POST", "/plans", map[string]interface{}{
		"player_id": "player-1", "payment_type": "monthly",
		"start_date": "2024-01-05", "end_date": "2024-06-05", "total_amount": 5000,
	})
	ta.clock.Set(time.Date(2024, 2, 5, 12, 0, 0, 0, time.UTC))

	resp = doRequest(t, ta.handler, "POST", "/invoices/sweep", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	var res api.SweepResponse
	decode(t, resp, &res)
	if res.Created != 1 || res.Invoices[0].Month != 2 || res.Invoices[0].InstallmentNumber != 2 {
		t.Errorf("sweep = %+v", res)
	}

	resp = doRequest(t, ta.handler, "POST", "/invoices/sweep", nil)
	decode(t, resp, &res)
	if res.Created != 0 || res.Message != app.MessageNoneDue {
		t.Errorf("second sweep = %+v", res)
	}
}

func TestInvoiceLifecycle(t *testing.T) {
	ta := setupHandler(t)

	resp := doRequest(t, ta.handler, "POST", "/invoices", map[string]interface{}{
		"player_id": "player-1", "month": 1, "year": 2024, "amount": "20",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create status = %d, want 201", resp.StatusCode)
	}
	var inv api.InvoiceResponse
	decode(t, resp, &inv)
	if inv.PaymentType != "single" || inv.PlanID != "" || inv.Status != "pending" {
		t.Errorf("invoice = %+v", inv)
	}

	resp = doRequest(t, ta.handler, "POST", "/invoices", map[string]interface{}{
		"player_id": "player-1", "month": 1, "year": 2024, "amount": "20",
	})
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("duplicate status = %d, want 409", resp.StatusCode)
	}

	resp = doRequest(t, ta.handler, "PUT", "/invoices/"+inv.ID, map[string]interface{}{"status": "paid"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("update status = %d, want 200", resp.StatusCode)
	}
	decode(t, resp, &inv)
	if inv.Status != "paid" || inv.PaidDate != "2024-01-05T10:00:00Z" {
		t.Errorf("updated = status %s paid %s", inv.Status, inv.PaidDate)
	}

	resp = doRequest(t, ta.handler, "PUT", "/invoices/"+inv.ID, map[string]interface{}{"month": 2})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("immutable field status = %d, want 400", resp.StatusCode)
	}

	resp = doRequest(t, ta.handler, "GET", "/invoices?player_id=player-1&status=paid", nil)
	var list struct {
		Invoices []api.InvoiceResponse `json:"invoices"`
		Total    int                   `json:"total"`
	}
	decode(t, resp, &list)
	if list.Total != 1 {
		t.Errorf("list total = %d, want 1", list.Total)
	}

	if resp := doRequest(t, ta.handler, "GET", "/invoices?month=abc", nil); resp.StatusCode != http.StatusBadRequest {
		t.Errorf("bad month status = %d, want 400", resp.StatusCode)
	}

	if resp := doRequest(t, ta.handler, "DELETE", "/invoices/"+inv.ID, nil); resp.StatusCode != http.StatusNoContent {
		t.Errorf("delete status = %d, want 204", resp.StatusCode)
	}
	if resp := doRequest(t, ta.handler, "GET", "/invoices/"+inv.ID, nil); resp.StatusCode != http.StatusNotFound {
		t.Errorf("get after delete status = %d, want 404", resp.StatusCode)
	}
}

func TestPlayers(t *testing.T) {
	ta := setupHandler(t)

	resp := doRequest(t, ta.handler, "POST", "/players", map[string]interface{}{"name": "Bledi", "jersey_number": 7})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create status = %d, want 201", resp.StatusCode)
	}
	var p api.PlayerResponse
	decode(t, resp, &p)
	if p.ID != "player-new-1" || !p.Active || p.JoinDate != "2024-01-05" {
		t.Errorf("player = %+v", p)
	}

	if resp := doRequest(t, ta.handler, "POST", "/players", map[string]interface{}{"name": ""}); resp.StatusCode != http.StatusBadRequest {
		t.Errorf("blank name status = %d, want 400", resp.StatusCode)
	}

	resp = doRequest(t, ta.handler, "GET", "/players", nil)
	var list struct {
		Players []api.PlayerResponse `json:"players"`
	}
	decode(t, resp, &list)
	if len(list.Players) != 2 || list.Players[0].Name != "Ana" {
		t.Errorf("players = %+v", list.Players)
	}

	if resp := doRequest(t, ta.handler, "GET", "/players/player-1", nil); resp.StatusCode != http.StatusOK {
		t.Errorf("get status = %d, want 200", resp.StatusCode)
	}
	if resp := doRequest(t, ta.handler, "GET", "/players/ghost", nil); resp.StatusCode != http.StatusNotFound {
		t.Errorf("missing status = %d, want 404", resp.StatusCode)
	}
}

func TestGetStats(t *testing.T) {
	ta := setupHandler(t)
	doRequest(t, ta.handler, "POST", "/invoices", map[string]interface{}{
		"player_id": "player-1", "month": 1, "year": 2024, "amount": 40, "status": "paid",
	})

	resp := doRequest(t, ta.handler, "GET", "/stats", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	var stats api.StatsResponse
	decode(t, resp, &stats)
	if stats.ActivePlayers != 1 || stats.CurrentMonth.Paid != 1 || stats.CurrentMonth.AmountCollected != "40.00" {
		t.Errorf("stats = %+v", stats)
	}
	if stats.CurrentMonth.CollectionRate != 100 || len(stats.Unpaid) != 0 {
		t.Errorf("rate = %v, unpaid = %d", stats.CurrentMonth.CollectionRate, len(stats.Unpaid))
	}
}
