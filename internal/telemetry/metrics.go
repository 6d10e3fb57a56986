// Package telemetry exposes an optional Prometheus metrics endpoint and
// a websocket progress feed for long-running `run-all` batch mode
// (§6's CLI surface, informative).
//
// Grounded on the teacher's internal/interfaces/http/metrics.go
// MetricsRegistry: a struct of prometheus.*Vec fields built in one
// constructor and registered once via prometheus.MustRegister.
package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Registry holds every Prometheus metric this pipeline exposes.
type Registry struct {
	CandidatesTotal     *prometheus.CounterVec
	BacktestDuration    *prometheus.HistogramVec
	CorrectionAttempts  *prometheus.CounterVec
	WindowOutcomes      *prometheus.CounterVec
	GateEvaluations     *prometheus.CounterVec
}

// NewRegistry builds and registers the metrics this module exposes.
// reg is typically prometheus.DefaultRegisterer; a caller-supplied
// registry keeps tests free of global registration side effects.
func NewRegistry(reg prometheus.Registerer) *Registry {
	r := &Registry{
		CandidatesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quantvalid_candidates_total",
				Help: "Total number of candidates processed, by final determination.",
			},
			[]string{"determination"},
		),
		BacktestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "quantvalid_backtest_duration_seconds",
				Help:    "Wall-clock duration of a single backtest window run.",
				Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
			},
			[]string{"mode"},
		),
		CorrectionAttempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quantvalid_correction_attempts_total",
				Help: "Total number of C5 correction attempts, by outcome.",
			},
			[]string{"outcome"},
		),
		WindowOutcomes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quantvalid_window_outcomes_total",
				Help: "Total walk-forward window outcomes, by classification.",
			},
			[]string{"classification"},
		),
		GateEvaluations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quantvalid_gate_evaluations_total",
				Help: "Total per-gate evaluations, by gate name and pass/fail.",
			},
			[]string{"gate", "passed"},
		),
	}

	reg.MustRegister(
		r.CandidatesTotal,
		r.BacktestDuration,
		r.CorrectionAttempts,
		r.WindowOutcomes,
		r.GateEvaluations,
	)
	return r
}

// BacktestTimer times a single backtest window run.
type BacktestTimer struct {
	reg   *Registry
	mode  string
	start time.Time
}

// StartBacktestTimer begins timing a backtest run in the given mode
// ("local" or "cloud").
func (r *Registry) StartBacktestTimer(mode string) *BacktestTimer {
	return &BacktestTimer{reg: r, mode: mode, start: time.Now()}
}

// Stop records the elapsed duration against the histogram.
func (t *BacktestTimer) Stop() {
	t.reg.BacktestDuration.WithLabelValues(t.mode).Observe(time.Since(t.start).Seconds())
}

// RecordDetermination increments the candidates-total counter for one
// final determination.
func (r *Registry) RecordDetermination(determination string) {
	r.CandidatesTotal.WithLabelValues(determination).Inc()
}

// RecordCorrectionAttempt increments the correction-attempts counter.
func (r *Registry) RecordCorrectionAttempt(outcome string) {
	r.CorrectionAttempts.WithLabelValues(outcome).Inc()
}

// RecordWindowOutcome increments the window-outcomes counter.
func (r *Registry) RecordWindowOutcome(classification string) {
	r.WindowOutcomes.WithLabelValues(classification).Inc()
}

// RecordGateEvaluation increments the gate-evaluations counter.
func (r *Registry) RecordGateEvaluation(gate string, passed bool) {
	r.GateEvaluations.WithLabelValues(gate, boolLabel(passed)).Inc()
}

func boolLabel(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
