package app

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/artpar/clubdues/adapters/clock"
	"github.com/artpar/clubdues/adapters/metrics"
	"github.com/artpar/clubdues/domain/billing"
	"github.com/artpar/clubdues/ports"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Sweep outcomes.
const (
	OutcomeNoPlans = "no_plans"
	OutcomeNoneDue = "none_due"
	OutcomeCreated = "created"
	OutcomeFailed  = "failed"
)

// Sweep messages.
const (
	MessageNoPlans = "no monthly plans"
	MessageNoneDue = "no invoices currently due"
)

// SweepResult reports one sweep.
type SweepResult struct {
	Created int
	// Conflicts counts due invoices another writer stored first.
	Conflicts int
	Message   string
	Outcome   string
	Invoices  []billing.Invoice
}

// Sweeper materializes the monthly plan invoices that have come due.
// Sweeps within one process are serialized; across processes the store's
// uniqueness rules reject the loser.
type Sweeper struct {
	invoices ports.InvoiceStore
	ids      ports.IDGenerator
	clock    ports.Clock
	metrics  *metrics.Collector
	logger   zerolog.Logger
	location *time.Location
	timeout  time.Duration
	onStart  bool

	mu      sync.Mutex // held for the duration of a sweep
	catchUp atomic.Bool

	schedMu  sync.Mutex
	schedule string
	cron     *cron.Cron
	entry    cron.EntryID
	running  bool
	wg       sync.WaitGroup
}

// SweeperConfig contains configuration for Sweeper.
type SweeperConfig struct {
	Location     *time.Location // club timezone, decides "today"
	Schedule     string         // cron spec, default "@daily"
	SweepOnStart bool
	CatchUp      bool
	Timeout      time.Duration // per scheduled run, default 1m
	Metrics      *metrics.Collector
}

// NewSweeper creates a new sweeper.
func NewSweeper(
	invoices ports.InvoiceStore,
	ids ports.IDGenerator,
	clock ports.Clock,
	logger zerolog.Logger,
	cfg SweeperConfig,
) *Sweeper {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.Schedule == "" {
		cfg.Schedule = "@daily"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = time.Minute
	}

	s := &Sweeper{
		invoices: invoices,
		ids:      ids,
		clock:    clock,
		metrics:  cfg.Metrics,
		logger:   logger.With().Str("service", "sweeper").Logger(),
		location: cfg.Location,
		timeout:  cfg.Timeout,
		onStart:  cfg.SweepOnStart,
		schedule: cfg.Schedule,
	}
	s.catchUp.Store(cfg.CatchUp)
	return s
}

// Sweep materializes the invoices due today in the club's timezone.
func (s *Sweeper) Sweep(ctx context.Context) (SweepResult, error) {
	return s.SweepAt(ctx, clock.Today(s.clock.Now(), s.location), s.catchUp.Load())
}

// SweepAt materializes the invoices due on the given date.
func (s *Sweeper) SweepAt(ctx context.Context, today time.Time, catchUp bool) (SweepResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	started := time.Now()
	res, err := s.sweep(ctx, AsDate(today), catchUp)
	took := time.Since(started)

	if err != nil {
		s.metrics.SweepCompleted(OutcomeFailed, 0, 0, took, s.clock.Now())
		s.logger.Error().Err(err).Time("today", today).Msg("sweep failed")
		return SweepResult{}, err
	}

	s.metrics.SweepCompleted(res.Outcome, res.Created, res.Conflicts, took, s.clock.Now())
	s.logger.Info().
		Str("outcome", res.Outcome).
		Int("created", res.Created).
		Int("conflicts", res.Conflicts).
		Str("today", today.Format(time.DateOnly)).
		Dur("took", took).
		Msg("sweep completed")
	return res, nil
}

func (s *Sweeper) sweep(ctx context.Context, today time.Time, catchUp bool) (SweepResult, error) {
	existing, err := s.invoices.Find(ctx, ports.InvoiceFilter{
		PaymentType: billing.PaymentTypeMonthly,
		HasPlan:     true,
	})
	if err != nil {
		return SweepResult{}, fmt.Errorf("load monthly plans: %w", err)
	}

	plans := billing.GroupPlans(existing)
	if len(plans) == 0 {
		return SweepResult{Outcome: OutcomeNoPlans, Message: MessageNoPlans}, nil
	}

	opts := billing.DueOptions{CatchUp: catchUp}
	var due []billing.Invoice
	for _, p := range plans {
		ev := billing.EvaluatePlan(p, today, opts)
		if len(ev.Due) == 0 {
			s.logger.Debug().Str("plan_id", p.ID).Str("reason", string(ev.Reason)).Msg("plan skipped")
			continue
		}
		due = append(due, ev.Due...)
	}
	if len(due) == 0 {
		return SweepResult{Outcome: OutcomeNoneDue, Message: MessageNoneDue}, nil
	}

	for i := range due {
		due[i].ID = s.ids.New()
	}
	bulk, err := s.invoices.CreateBulk(ctx, due)
	if err != nil {
		return SweepResult{}, fmt.Errorf("store due invoices: %w", err)
	}
	for _, c := range bulk.Conflicts {
		s.logger.Warn().
			Str("plan_id", c.Invoice.PlanID).
			Int("installment", c.Invoice.InstallmentNumber).
			Err(c.Err).
			Msg("due invoice already exists")
	}

	res := SweepResult{
		Created:   len(bulk.Created),
		Conflicts: len(bulk.Conflicts),
		Outcome:   OutcomeCreated,
		Invoices:  bulk.Created,
		Message:   fmt.Sprintf("created %d invoices", len(bulk.Created)),
	}
	if res.Created == 0 {
		res.Outcome = OutcomeNoneDue
		res.Message = MessageNoneDue
	}
	return res, nil
}

// SetCatchUp toggles materialization of missed earlier periods.
func (s *Sweeper) SetCatchUp(on bool) {
	s.catchUp.Store(on)
}

// Schedule returns the current cron spec.
func (s *Sweeper) Schedule() string {
	s.schedMu.Lock()
	defer s.schedMu.Unlock()
	return s.schedule
}

// Start schedules the sweep. With SweepOnStart a sweep runs immediately.
func (s *Sweeper) Start() error {
	s.schedMu.Lock()
	defer s.schedMu.Unlock()

	if s.running {
		return nil
	}

	s.cron = cron.New(cron.WithLocation(s.location))
	id, err := s.cron.AddFunc(s.schedule, s.runScheduled)
	if err != nil {
		return fmt.Errorf("sweep schedule %q: %w", s.schedule, err)
	}
	s.entry = id
	s.cron.Start()
	s.running = true

	s.logger.Info().Str("schedule", s.schedule).Msg("sweeper started")

	if s.onStart {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.runScheduled()
		}()
	}
	return nil
}

// Stop stops the schedule and waits for a running sweep to finish.
func (s *Sweeper) Stop() {
	s.schedMu.Lock()
	if !s.running {
		s.schedMu.Unlock()
		return
	}
	c := s.cron
	s.running = false
	s.schedMu.Unlock()

	<-c.Stop().Done()
	s.wg.Wait()
	s.logger.Info().Msg("sweeper stopped")
}

// SetSchedule replaces the cron spec, rescheduling when running.
func (s *Sweeper) SetSchedule(spec string) error {
	if _, err := cron.ParseStandard(spec); err != nil {
		return fmt.Errorf("sweep schedule %q: %w", spec, err)
	}

	s.schedMu.Lock()
	defer s.schedMu.Unlock()

	if spec == s.schedule {
		return nil
	}
	if s.running {
		id, err := s.cron.AddFunc(spec, s.runScheduled)
		if err != nil {
			return fmt.Errorf("sweep schedule %q: %w", spec, err)
		}
		s.cron.Remove(s.entry)
		s.entry = id
	}

	s.logger.Info().Str("from", s.schedule).Str("to", spec).Msg("sweep schedule changed")
	s.schedule = spec
	return nil
}

// runScheduled runs one sweep with its own timeout.
func (s *Sweeper) runScheduled() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	// Errors are logged by SweepAt.
	s.Sweep(ctx)
}
