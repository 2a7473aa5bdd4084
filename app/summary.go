package app

import (
	"context"
	"sort"
	"time"

	"github.com/artpar/clubdues/adapters/clock"
	"github.com/artpar/clubdues/domain/billing"
	"github.com/artpar/clubdues/domain/player"
	"github.com/artpar/clubdues/ports"
	"github.com/shopspring/decimal"
)

// DuesSummary is the collection overview for one calendar month.
type DuesSummary struct {
	Period        billing.Period
	ActivePlayers int

	// Invoices labelled with Period.
	Paid            int
	Pending         int
	Overdue         int
	AmountCollected decimal.Decimal
	AmountExpected  decimal.Decimal
	// CollectionRate is the percentage of active players with a paid invoice
	// for Period.
	CollectionRate float64

	// Counts over all invoices.
	TotalPaid    int
	TotalPending int
	TotalOverdue int

	RecentPayments []billing.Invoice // latest paid invoices by paid date
	Unpaid         []player.Player   // active players with nothing paid for Period
}

// SummaryService reports dues collection figures.
type SummaryService struct {
	invoices ports.InvoiceStore
	players  ports.PlayerStore
	clock    ports.Clock
	location *time.Location
	recent   int
}

// NewSummaryService creates a summary service. loc selects the club's
// current month.
func NewSummaryService(invoices ports.InvoiceStore, players ports.PlayerStore, clock ports.Clock, loc *time.Location) *SummaryService {
	if loc == nil {
		loc = time.UTC
	}
	return &SummaryService{invoices: invoices, players: players, clock: clock, location: loc, recent: 5}
}

// Current summarizes the club's current month.
func (s *SummaryService) Current(ctx context.Context) (DuesSummary, error) {
	return s.For(ctx, billing.PeriodOf(clock.Today(s.clock.Now(), s.location)))
}

// For summarizes the given month.
func (s *SummaryService) For(ctx context.Context, period billing.Period) (DuesSummary, error) {
	all, err := s.invoices.Find(ctx, ports.InvoiceFilter{})
	if err != nil {
		return DuesSummary{}, err
	}
	players, err := s.players.List(ctx, 0, 0)
	if err != nil {
		return DuesSummary{}, err
	}

	sum := DuesSummary{
		Period:          period,
		AmountCollected: decimal.Zero,
		AmountExpected:  decimal.Zero,
	}

	paidBy := make(map[string]bool)
	var paid []billing.Invoice
	for _, inv := range all {
		switch inv.Status {
		case billing.InvoiceStatusPaid:
			sum.TotalPaid++
			if inv.PaidDate != nil {
				paid = append(paid, inv)
			}
		case billing.InvoiceStatusPending:
			sum.TotalPending++
		case billing.InvoiceStatusOverdue:
			sum.TotalOverdue++
		}

		if inv.Period() != period {
			continue
		}
		sum.AmountExpected = sum.AmountExpected.Add(inv.Amount)
		switch inv.Status {
		case billing.InvoiceStatusPaid:
			sum.Paid++
			sum.AmountCollected = sum.AmountCollected.Add(inv.Amount)
			paidBy[inv.PlayerID] = true
		case billing.InvoiceStatusPending:
			sum.Pending++
		case billing.InvoiceStatusOverdue:
			sum.Overdue++
		}
	}

	paidActive := 0
	for _, p := range players {
		if !p.Active {
			continue
		}
		sum.ActivePlayers++
		if paidBy[p.ID] {
			paidActive++
		} else {
			sum.Unpaid = append(sum.Unpaid, p)
		}
	}
	if sum.ActivePlayers > 0 {
		sum.CollectionRate = float64(paidActive) / float64(sum.ActivePlayers) * 100
	}

	sort.SliceStable(paid, func(i, j int) bool {
		return paid[i].PaidDate.After(*paid[j].PaidDate)
	})
	if len(paid) > s.recent {
		paid = paid[:s.recent]
	}
	sum.RecentPayments = paid

	return sum, nil
}
