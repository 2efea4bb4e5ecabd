package service

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics collects service-level Prometheus instruments. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	LedgerMutations   *prometheus.CounterVec
	CASConflicts      prometheus.Counter
	StoreFallbacks    *prometheus.CounterVec
	SyncRuns          *prometheus.CounterVec
	SyncDuration      *prometheus.HistogramVec
	SagaCompensations *prometheus.CounterVec
}

func NewMetrics(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		LedgerMutations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "edu_ledger_mutations_total",
				Help: "Total balance mutations by transaction type and outcome.",
			},
			[]string{"type", "outcome"},
		),
		CASConflicts: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "edu_ledger_cas_conflicts_total",
				Help: "Total conditional balance writes that lost a race.",
			},
		),
		StoreFallbacks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "edu_ledger_store_fallbacks_total",
				Help: "Total remote or local store failures absorbed by a fallback.",
			},
			[]string{"store", "op"},
		),
		SyncRuns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "edu_ledger_sync_runs_total",
				Help: "Total reconciliation runs by record kind and action.",
			},
			[]string{"kind", "action"},
		),
		SyncDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "edu_ledger_sync_duration_seconds",
				Help:    "Reconciliation duration in seconds.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"trigger"},
		),
		SagaCompensations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "edu_ledger_saga_compensations_total",
				Help: "Total compensating steps run by flow.",
			},
			[]string{"flow", "outcome"},
		),
	}

	registry.MustRegister(
		m.LedgerMutations,
		m.CASConflicts,
		m.StoreFallbacks,
		m.SyncRuns,
		m.SyncDuration,
		m.SagaCompensations,
	)
	return m
}

func (m *Metrics) IncMutation(txType, outcome string) {
	if m == nil {
		return
	}
	m.LedgerMutations.WithLabelValues(txType, outcome).Inc()
}

func (m *Metrics) IncCASConflict() {
	if m == nil {
		return
	}
	m.CASConflicts.Inc()
}

func (m *Metrics) IncFallback(store, op string) {
	if m == nil {
		return
	}
	m.StoreFallbacks.WithLabelValues(store, op).Inc()
}

func (m *Metrics) IncSync(kind, action string) {
	if m == nil {
		return
	}
	m.SyncRuns.WithLabelValues(kind, action).Inc()
}

func (m *Metrics) ObserveSync(trigger string, duration time.Duration) {
	if m == nil {
		return
	}
	m.SyncDuration.WithLabelValues(trigger).Observe(duration.Seconds())
}

func (m *Metrics) IncCompensation(flow, outcome string) {
	if m == nil {
		return
	}
	m.SagaCompensations.WithLabelValues(flow, outcome).Inc()
}
