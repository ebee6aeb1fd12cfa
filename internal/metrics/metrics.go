// Package metrics defines the portal's Prometheus collectors. A nil
// *Metrics is valid and records nothing.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "dapp_portal"

type Metrics struct {
	submissions       *prometheus.CounterVec
	signingLatency    *prometheus.HistogramVec
	connectedWallets  prometheus.Gauge
	recordTransitions *prometheus.CounterVec
	balanceRefreshes  *prometheus.CounterVec
	reconcileRuns     prometheus.Counter
}

// New registers the collectors with reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		submissions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "submissions_total",
				Help:      "Transactions handed to a wallet, by operation and outcome kind",
			},
			[]string{"operation", "outcome"},
		),
		signingLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Name:      "signing_latency_seconds",
				Help:      "Time from sending a transaction to the wallet until it answers",
				Buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120},
			},
			[]string{"operation"},
		),
		connectedWallets: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Name:      "connected_wallets",
				Help:      "Open wallet bridge connections",
			},
		),
		recordTransitions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "record_transitions_total",
				Help:      "Transaction record status changes, by target status",
			},
			[]string{"status"},
		),
		balanceRefreshes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "balance_refreshes_total",
				Help:      "Balance reads against the fullnode, by result",
			},
			[]string{"result"},
		),
		reconcileRuns: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "reconcile_runs_total",
				Help:      "Confirmation tracker passes",
			},
		),
	}
}

// ObserveSubmission records one wallet round trip. outcome is "success" or
// a classified failure kind.
func (m *Metrics) ObserveSubmission(operation, outcome string, took time.Duration) {
	if m == nil {
		return
	}
	m.submissions.WithLabelValues(operation, outcome).Inc()
	m.signingLatency.WithLabelValues(operation).Observe(took.Seconds())
}

func (m *Metrics) WalletConnected() {
	if m == nil {
		return
	}
	m.connectedWallets.Inc()
}

func (m *Metrics) WalletDisconnected() {
	if m == nil {
		return
	}
	m.connectedWallets.Dec()
}

func (m *Metrics) RecordTransition(status string) {
	if m == nil {
		return
	}
	m.recordTransitions.WithLabelValues(status).Inc()
}

func (m *Metrics) BalanceRefresh(ok bool) {
	if m == nil {
		return
	}
	result := "ok"
	if !ok {
		result = "error"
	}
	m.balanceRefreshes.WithLabelValues(result).Inc()
}

func (m *Metrics) ReconcileRun() {
	if m == nil {
		return
	}
	m.reconcileRuns.Inc()
}
