package jobs

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"gorm.io/gorm"

	"github.com/machinehub/machinehub/internal/alerting"
	"github.com/machinehub/machinehub/internal/database"
	"github.com/machinehub/machinehub/internal/lock"
	"github.com/machinehub/machinehub/internal/logging"
	"github.com/machinehub/machinehub/internal/metrics"
	"github.com/machinehub/machinehub/internal/testhelpers"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var warrantyEnd = database.NewDate(2025, time.March, 31)

type recordingLocker struct {
	mu       sync.Mutex
	keys     []string
	released int
}

type recordingLock struct{ l *recordingLocker }

func (r recordingLock) Release(context.Context) error {
	r.l.mu.Lock()
	defer r.l.mu.Unlock()
	r.l.released++
	return nil
}

func (l *recordingLocker) Obtain(_ context.Context, key string, _ time.Duration) (lock.Lock, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.keys = append(l.keys, key)
	return recordingLock{l: l}, nil
}

type busyLocker struct{}

func (busyLocker) Obtain(context.Context, string, time.Duration) (lock.Lock, error) {
	return nil, lock.ErrNotObtained
}

func setupJob(t *testing.T, locker lock.Locker, m *metrics.Metrics) (*AlertGenerationJob, *gorm.DB) {
	t.Helper()
	db := testhelpers.NewTestDB(t)

	machine := testhelpers.NewMachineBuilder().WithWarrantyEnd(warrantyEnd).Build()
	rule := testhelpers.NewAlertRuleBuilder().WithOffset(-30).Build()
	testhelpers.MustCreate(t, db, &machine, &rule)

	evaluator := alerting.NewEvaluator(db, logging.Discard(), m)
	job := NewAlertGenerationJob(evaluator, locker, time.UTC, logging.Discard(), m)
	job.now = func() time.Time {
		return time.Date(2025, time.March, 1, 9, 0, 0, 0, time.UTC)
	}
	return job, db
}

func TestAlertGenerationJob_RunOnce(t *testing.T) {
	locker := &recordingLocker{}
	job, db := setupJob(t, locker, nil)

	summary, err := job.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, alerting.Summary{Created: 1, Skipped: 0, Evaluated: 1}, summary)

	var alert database.Alert
	require.NoError(t, db.First(&alert).Error)
	assert.Equal(t, "2025-03-01", alert.AlertDate.String())
	assert.Equal(t, database.AlertTypeWarrantyExpiring, alert.AlertType)

	assert.Equal(t, []string{alertGenerationLockKey}, locker.keys)
	assert.Equal(t, 1, locker.released)
}

func TestAlertGenerationJob_RunOnceTwiceIsIdempotent(t *testing.T) {
	job, db := setupJob(t, nil, nil)

	_, err := job.RunOnce(context.Background())
	require.NoError(t, err)
	summary, err := job.RunOnce(context.Background())
	require.NoError(t, err)

	assert.Equal(t, alerting.Summary{Created: 0, Skipped: 1, Evaluated: 1}, summary)
	assert.Equal(t, int64(1), testhelpers.CountRows(t, db, &database.Alert{}))
}

func TestAlertGenerationJob_LockHeldElsewhere(t *testing.T) {
	job, db := setupJob(t, busyLocker{}, nil)

	_, err := job.RunOnce(context.Background())
	assert.ErrorIs(t, err, lock.ErrNotObtained)
	assert.Equal(t, int64(0), testhelpers.CountRows(t, db, &database.Alert{}))
}

func TestAlertGenerationJob_TodayUsesTimeZone(t *testing.T) {
	tokyo, err := time.LoadLocation("Asia/Tokyo")
	require.NoError(t, err)

	job := NewAlertGenerationJob(nil, nil, tokyo, logging.Discard(), nil)
	job.now = func() time.Time {
		return time.Date(2025, time.March, 1, 20, 0, 0, 0, time.UTC)
	}
	assert.Equal(t, "2025-03-02", job.Today().String())

	utc := NewAlertGenerationJob(nil, nil, nil, logging.Discard(), nil)
	utc.now = job.now
	assert.Equal(t, "2025-03-01", utc.Today().String())
}

func TestAlertGenerationJob_RecordsDuration(t *testing.T) {
	registry := prometheus.NewRegistry()
	m, err := metrics.NewWithRegistry(registry)
	require.NoError(t, err)
	job, _ := setupJob(t, nil, m)

	_, err = job.RunOnce(context.Background())
	require.NoError(t, err)

	families, err := registry.Gather()
	require.NoError(t, err)
	var found bool
	for _, f := range families {
		if f.GetName() == "machinehub_job_duration_seconds" {
			found = true
			require.Len(t, f.GetMetric(), 1)
			assert.Equal(t, uint64(1), f.GetMetric()[0].GetHistogram().GetSampleCount())
		}
	}
	assert.True(t, found, "job duration histogram not exported")
}

func TestAlertGenerationJob_StartStops(t *testing.T) {
	job, db := setupJob(t, nil, nil)

	stop := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		job.Start(10*time.Millisecond, stop)
	}()

	assert.Eventually(t, func() bool {
		return testhelpers.CountRows(t, db, &database.Alert{}) == 1
	}, 2*time.Second, 10*time.Millisecond)

	close(stop)
	testhelpers.MustCompleteWithin(t, 2*time.Second, func() { <-done })
}

func TestAlertGenerationJob_StartSkipsBusyTicks(t *testing.T) {
	job, db := setupJob(t, busyLocker{}, nil)

	stop := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		job.Start(5*time.Millisecond, stop)
	}()

	time.Sleep(30 * time.Millisecond)
	close(stop)
	testhelpers.MustCompleteWithin(t, 2*time.Second, func() { <-done })

	assert.Equal(t, int64(0), testhelpers.CountRows(t, db, &database.Alert{}))
}
