// Package metrics provides Prometheus metrics collection for clubdues.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "clubdues"

// Collector holds all Prometheus metrics for clubdues.
// A nil *Collector is valid and records nothing.
type Collector struct {
	// Request metrics
	RequestsTotal    *prometheus.CounterVec
	RequestDuration  *prometheus.HistogramVec
	RequestsInFlight prometheus.Gauge

	// Billing metrics
	PlansCreated    *prometheus.CounterVec
	InvoicesCreated *prometheus.CounterVec

	// Sweep metrics
	SweepRuns      *prometheus.CounterVec
	SweepDuration  prometheus.Histogram
	SweepConflicts prometheus.Counter
	SweepLastRun   prometheus.Gauge

	// Config metrics
	ConfigReloads      prometheus.Counter
	ConfigReloadErrors prometheus.Counter
}

// New creates a collector registered with the default Prometheus registry.
func New() *Collector {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry creates a new metrics collector with a custom registry.
// Useful for testing to avoid global state.
func NewWithRegistry(reg prometheus.Registerer) *Collector {
	factory := promauto.With(reg)

	return &Collector{
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "requests_total",
				Help:      "Total number of API requests processed",
			},
			[]string{"method", "route", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "request_duration_seconds",
				Help:      "API request duration in seconds",
				Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
			},
			[]string{"method", "route", "status"},
		),
		RequestsInFlight: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "requests_in_flight",
				Help:      "Number of API requests currently being processed",
			},
		),
		PlansCreated: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "plans_created_total",
				Help:      "Total number of billing plans created",
			},
			[]string{"payment_type"},
		),
		InvoicesCreated: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "invoices_created_total",
				Help:      "Total number of invoices written, by origin",
			},
			[]string{"source"},
		),
		SweepRuns: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "sweep_runs_total",
				Help:      "Total number of due-invoice sweeps, by outcome",
			},
			[]string{"outcome"},
		),
		SweepDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "sweep_duration_seconds",
				Help:      "Due-invoice sweep duration in seconds",
				Buckets:   []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
			},
		),
		SweepConflicts: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "sweep_conflicts_total",
				Help:      "Invoices skipped by a sweep because they already existed",
			},
		),
		SweepLastRun: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "sweep_last_run_timestamp",
				Help:      "Unix timestamp of the last completed sweep",
			},
		),
		ConfigReloads: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "config_reloads_total",
				Help:      "Total number of successful config reloads",
			},
		),
		ConfigReloadErrors: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "config_reload_errors_total",
				Help:      "Total number of config reload errors",
			},
		),
	}
}

// Invoice sources.
const (
	SourcePlan   = "plan"
	SourceSweep  = "sweep"
	SourceLegacy = "legacy"
)

// PlanCreated records a created plan and the invoices it materialized.
func (c *Collector) PlanCreated(paymentType string, invoices int) {
	if c == nil {
		return
	}
	c.PlansCreated.WithLabelValues(paymentType).Inc()
	c.InvoicesCreated.WithLabelValues(SourcePlan).Add(float64(invoices))
}

// LegacyInvoiceCreated records an ad-hoc invoice.
func (c *Collector) LegacyInvoiceCreated() {
	if c == nil {
		return
	}
	c.InvoicesCreated.WithLabelValues(SourceLegacy).Inc()
}

// SweepCompleted records one sweep run.
func (c *Collector) SweepCompleted(outcome string, created, conflicts int, took time.Duration, at time.Time) {
	if c == nil {
		return
	}
	c.SweepRuns.WithLabelValues(outcome).Inc()
	c.SweepDuration.Observe(took.Seconds())
	c.SweepConflicts.Add(float64(conflicts))
	c.InvoicesCreated.WithLabelValues(SourceSweep).Add(float64(created))
	c.SweepLastRun.Set(float64(at.Unix()))
}

// ConfigReloaded records a config reload attempt.
func (c *Collector) ConfigReloaded(err error) {
	if c == nil {
		return
	}
	if err != nil {
		c.ConfigReloadErrors.Inc()
		return
	}
	c.ConfigReloads.Inc()
}

// StatusLabel buckets an HTTP status code.
func StatusLabel(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	case status >= 200:
		return "2xx"
	default:
		return "other"
	}
}
