// Package metrics exposes Prometheus collectors for synchronization, alert
// generation and scheduled jobs. All recording methods are safe on a nil
// *Metrics so engines can run without instrumentation.
package metrics

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

// Sync outcomes.
const (
	OutcomeCreated = "created"
	OutcomeUpdated = "updated"
	OutcomeSkipped = "skipped"
	OutcomeError   = "error"
)

// Metrics holds the application collectors and the registry they live in.
type Metrics struct {
	registry *prometheus.Registry

	syncRecordsTotal    *prometheus.CounterVec
	alertsTotal         *prometheus.CounterVec
	alertPairsEvaluated prometheus.Counter
	jobDuration         *prometheus.HistogramVec
}

// New creates the collectors and registers them on a fresh registry.
func New() (*Metrics, error) {
	return NewWithRegistry(prometheus.NewRegistry())
}

// NewWithRegistry registers the collectors on registry.
func NewWithRegistry(registry *prometheus.Registry) (*Metrics, error) {
	m := &Metrics{registry: registry}

	m.syncRecordsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "machinehub_sync_records_total",
			Help: "Inbound records reconciled, by entity kind and outcome",
		},
		[]string{"kind", "outcome"},
	)
	m.alertsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "machinehub_alerts_total",
			Help: "Alert insert attempts by outcome",
		},
		[]string{"outcome"},
	)
	m.alertPairsEvaluated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "machinehub_alert_pairs_evaluated_total",
			Help: "Rule and machine pairs considered by the alert sweep",
		},
	)
	m.jobDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "machinehub_job_duration_seconds",
			Help:    "Duration of scheduled job runs",
			Buckets: []float64{0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60, 300},
		},
		[]string{"job"},
	)

	for _, c := range []prometheus.Collector{m.syncRecordsTotal, m.alertsTotal, m.alertPairsEvaluated, m.jobDuration} {
		if err := registry.Register(c); err != nil {
			return nil, fmt.Errorf("failed to register metrics: %w", err)
		}
	}
	return m, nil
}

// RecordSync counts one reconciled record.
func (m *Metrics) RecordSync(kind, outcome string) {
	if m == nil {
		return
	}
	m.syncRecordsTotal.WithLabelValues(kind, outcome).Inc()
}

// RecordAlerts adds the result of one sweep.
func (m *Metrics) RecordAlerts(created, skipped, evaluated int) {
	if m == nil {
		return
	}
	m.alertsTotal.WithLabelValues(OutcomeCreated).Add(float64(created))
	m.alertsTotal.WithLabelValues(OutcomeSkipped).Add(float64(skipped))
	m.alertPairsEvaluated.Add(float64(evaluated))
}

// ObserveJob records how long a job run took.
func (m *Metrics) ObserveJob(job string, d time.Duration) {
	if m == nil {
		return
	}
	m.jobDuration.WithLabelValues(job).Observe(d.Seconds())
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		ErrorLog:      logrus.StandardLogger(),
		ErrorHandling: promhttp.HTTPErrorOnError,
	})
}
