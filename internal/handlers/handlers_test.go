package handlers

import (
	"net/http"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/machinehub/machinehub/internal/alerting"
	"github.com/machinehub/machinehub/internal/jobs"
	"github.com/machinehub/machinehub/internal/lock"
	"github.com/machinehub/machinehub/internal/logging"
	"github.com/machinehub/machinehub/internal/metrics"
	"github.com/machinehub/machinehub/internal/reconcile"
	"github.com/machinehub/machinehub/internal/services"
	"github.com/machinehub/machinehub/internal/testhelpers"
)

type testServer struct {
	handler http.Handler
	db      *gorm.DB
	metrics *metrics.Metrics
}

func newTestServer(t *testing.T, locker lock.Locker) *testServer {
	t.Helper()
	db := testhelpers.NewTestDB(t)
	logger := logging.Discard()

	m, err := metrics.NewWithRegistry(prometheus.NewRegistry())
	require.NoError(t, err)

	engine := reconcile.NewEngine(db,
		reconcile.WithLogger(logger),
		reconcile.WithMetrics(m),
		reconcile.WithClock(func() time.Time { return time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC) }),
	)
	evaluator := alerting.NewEvaluator(db, logger, m)
	job := jobs.NewAlertGenerationJob(evaluator, locker, time.UTC, logger, m)

	router := Router{
		HTTP:        NewHTTPHandler(m),
		Integration: NewIntegrationHandler(engine),
		Jobs:        NewJobHandler(job),
		API: NewAPIHandler(
			services.NewEntityService(db),
			services.NewAlertRuleService(db),
			services.NewAlertService(db),
		),
		Logger:         logger,
		AllowedOrigins: []string{"http://localhost:5173"},
	}
	return &testServer{handler: router.Handler(), db: db, metrics: m}
}

func (s *testServer) do(t *testing.T, method, path, body string) *testhelpers.HTTPTestContext {
	t.Helper()
	ctx := testhelpers.NewHTTPTestContext(t, method, path, nil)
	if body != "" {
		ctx.WithRawBody(body)
	}
	return ctx.Execute(s.handler)
}
