// Package metrics exposes Prometheus instrumentation for the evaluation
// engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Evaluation outcomes recorded on the evaluations counter.
const (
	OutcomeOK          = "ok"
	OutcomeMissingData = "missing_data"
)

// Registry holds the engine's Prometheus collectors on a private registry.
// A nil *Registry is valid and turns every observation into a no-op, so the
// engine runs unchanged without instrumentation.
type Registry struct {
	registry *prometheus.Registry

	EvaluationsTotal   *prometheus.CounterVec
	EvaluationDuration prometheus.Histogram
	RulesEvaluated     prometheus.Counter
	PayoutPct          prometheus.Histogram
	MissingDataTotal   *prometheus.CounterVec
}

// NewRegistry creates and registers all engine collectors.
func NewRegistry() *Registry {
	r := &Registry{
		registry: prometheus.NewRegistry(),

		EvaluationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "payoff_evaluations_total",
				Help: "Completed evaluations by outcome",
			},
			[]string{"outcome"},
		),
		EvaluationDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "payoff_evaluation_duration_seconds",
				Help:    "End-to-end duration of one evaluation",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0, 5.0},
			},
		),
		RulesEvaluated: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "payoff_rules_evaluated_total",
				Help: "Rules walked across all evaluations",
			},
		),
		PayoutPct: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "payoff_total_payout_pct",
				Help:    "Total payout per evaluation, in percent of notional",
				Buckets: []float64{0, 25, 50, 75, 100, 125, 150, 200},
			},
		),
		MissingDataTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "payoff_missing_market_data_total",
				Help: "Fatal missing-market-data errors by symbol",
			},
			[]string{"symbol"},
		),
	}

	r.registry.MustRegister(
		r.EvaluationsTotal,
		r.EvaluationDuration,
		r.RulesEvaluated,
		r.PayoutPct,
		r.MissingDataTotal,
	)
	return r
}

// Gatherer exposes the private registry for scraping or test inspection.
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.registry
}

// ObserveEvaluation records one completed evaluation.
func (r *Registry) ObserveEvaluation(outcome string, seconds float64) {
	if r == nil {
		return
	}
	r.EvaluationsTotal.WithLabelValues(outcome).Inc()
	r.EvaluationDuration.Observe(seconds)
}

// ObserveRules adds to the evaluated-rules counter.
func (r *Registry) ObserveRules(n int) {
	if r == nil {
		return
	}
	r.RulesEvaluated.Add(float64(n))
}

// ObservePayout records the total payout of a completed evaluation.
func (r *Registry) ObservePayout(pct float64) {
	if r == nil {
		return
	}
	r.PayoutPct.Observe(pct)
}

// IncMissingData records a fatal missing-data error for a symbol.
func (r *Registry) IncMissingData(symbol string) {
	if r == nil {
		return
	}
	r.MissingDataTotal.WithLabelValues(symbol).Inc()
}
