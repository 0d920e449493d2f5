// Package metrics exposes Prometheus collectors for simulation activity.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics provides observability for simulation runs. A nil *Metrics is a
// valid no-op recorder.
type Metrics struct {
	registry *prometheus.Registry

	// Finished runs by scenario and outcome ("ok", "error")
	RunOutcome *prometheus.CounterVec

	// Wall-clock duration of a full run
	RunLatency prometheus.Histogram

	// Simulation steps taken across all runs
	Steps prometheus.Counter

	// Crosslinks formed across all runs
	CrosslinksFormed prometheus.Counter

	// Final whole-bone strength of the latest run per scenario
	FinalStrength *prometheus.GaugeVec

	// Report exports by driver and outcome
	Exports *prometheus.CounterVec
}

// New creates a Metrics instance registered on its own registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Metrics{
		registry: reg,
		RunOutcome: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "osteon_simulation_runs_total",
			Help: "Total simulation runs by scenario and outcome",
		}, []string{"scenario", "outcome"}),

		RunLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "osteon_simulation_run_duration_seconds",
			Help:    "Duration of a full simulation run",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 10},
		}),

		Steps: factory.NewCounter(prometheus.CounterOpts{
			Name: "osteon_simulation_steps_total",
			Help: "Total simulation steps across all runs",
		}),

		CrosslinksFormed: factory.NewCounter(prometheus.CounterOpts{
			Name: "osteon_crosslinks_formed_total",
			Help: "Total collagen crosslinks formed across all runs",
		}),

		FinalStrength: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "osteon_bone_strength",
			Help: "Final relative bone strength of the latest run per scenario",
		}, []string{"scenario"}),

		Exports: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "osteon_report_exports_total",
			Help: "Total report exports by driver and outcome",
		}, []string{"driver", "outcome"}),
	}
}

// Registry returns the registry the collectors live on.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.HandlerFor(prometheus.NewRegistry(), promhttp.HandlerOpts{})
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveRun records a finished run.
func (m *Metrics) ObserveRun(scenario string, d time.Duration, strength float64, err error) {
	if m == nil {
		return
	}
	m.RunLatency.Observe(d.Seconds())
	if err != nil {
		m.RunOutcome.WithLabelValues(scenario, "error").Inc()
		return
	}
	m.RunOutcome.WithLabelValues(scenario, "ok").Inc()
	m.FinalStrength.WithLabelValues(scenario).Set(strength)
}

// ObserveStep records one simulation step.
func (m *Metrics) ObserveStep(crosslinkFormed bool) {
	if m == nil {
		return
	}
	m.Steps.Inc()
	if crosslinkFormed {
		m.CrosslinksFormed.Inc()
	}
}

// IncrementExport records a report export attempt.
func (m *Metrics) IncrementExport(driver string, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.Exports.WithLabelValues(driver, outcome).Inc()
}
