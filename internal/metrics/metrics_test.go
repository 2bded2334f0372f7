package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordSync(t *testing.T) {
	m, err := NewWithRegistry(prometheus.NewRegistry())
	require.NoError(t, err)

	m.RecordSync("machines", OutcomeCreated)
	m.RecordSync("machines", OutcomeSkipped)
	m.RecordSync("machines", OutcomeSkipped)

	assert.Equal(t, float64(1), testutil.ToFloat64(m.syncRecordsTotal.WithLabelValues("machines", OutcomeCreated)))
	assert.Equal(t, float64(2), testutil.ToFloat64(m.syncRecordsTotal.WithLabelValues("machines", OutcomeSkipped)))
}

func TestRecordAlerts(t *testing.T) {
	m, err := NewWithRegistry(prometheus.NewRegistry())
	require.NoError(t, err)

	m.RecordAlerts(3, 1, 10)
	m.RecordAlerts(0, 4, 10)

	assert.Equal(t, float64(3), testutil.ToFloat64(m.alertsTotal.WithLabelValues(OutcomeCreated)))
	assert.Equal(t, float64(5), testutil.ToFloat64(m.alertsTotal.WithLabelValues(OutcomeSkipped)))
	assert.Equal(t, float64(20), testutil.ToFloat64(m.alertPairsEvaluated))
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordSync("accounts", OutcomeUpdated)
		m.RecordAlerts(1, 1, 1)
		m.ObserveJob("alert_generation", time.Second)
	})

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDuplicateRegistrationFails(t *testing.T) {
	registry := prometheus.NewRegistry()
	_, err := NewWithRegistry(registry)
	require.NoError(t, err)

	_, err = NewWithRegistry(registry)
	assert.Error(t, err)
}

func TestHandlerExposesMetrics(t *testing.T) {
	m, err := New()
	require.NoError(t, err)
	m.RecordSync("accounts", OutcomeCreated)
	m.ObserveJob("alert_generation", 250*time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `machinehub_sync_records_total{kind="accounts",outcome="created"} 1`)
	assert.Contains(t, body, `machinehub_job_duration_seconds_count{job="alert_generation"} 1`)
}
