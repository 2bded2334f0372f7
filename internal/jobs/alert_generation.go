package jobs

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/machinehub/machinehub/internal/alerting"
	"github.com/machinehub/machinehub/internal/database"
	"github.com/machinehub/machinehub/internal/lock"
	"github.com/machinehub/machinehub/internal/logging"
	"github.com/machinehub/machinehub/internal/metrics"
)

// AlertGenerationJobName labels the job in logs and metrics.
const AlertGenerationJobName = "generate_alerts"

const (
	alertGenerationLockKey = "machinehub:jobs:generate-alerts"
	defaultLockTTL         = 10 * time.Minute
)

// AlertGenerationJob runs the alert sweep for the current day. Replicas share
// the work through locker so only one sweeps at a time.
type AlertGenerationJob struct {
	evaluator *alerting.Evaluator
	locker    lock.Locker
	loc       *time.Location
	lockTTL   time.Duration
	now       func() time.Time
	logger    logrus.FieldLogger
	metrics   *metrics.Metrics
}

// NewAlertGenerationJob creates the job. A nil locker disables locking and a
// nil loc means UTC.
func NewAlertGenerationJob(evaluator *alerting.Evaluator, locker lock.Locker, loc *time.Location, logger logrus.FieldLogger, m *metrics.Metrics) *AlertGenerationJob {
	if locker == nil {
		locker = lock.NoopLocker{}
	}
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &AlertGenerationJob{
		evaluator: evaluator,
		locker:    locker,
		loc:       loc,
		lockTTL:   defaultLockTTL,
		now:       time.Now,
		logger:    logger.WithField("job", AlertGenerationJobName),
		metrics:   m,
	}
}

// Today returns the current calendar day in the job's time zone.
func (j *AlertGenerationJob) Today() database.Date {
	return database.DateOf(j.now().In(j.loc))
}

// RunOnce sweeps for today.
func (j *AlertGenerationJob) RunOnce(ctx context.Context) (alerting.Summary, error) {
	return j.RunFor(ctx, j.Today())
}

// RunFor sweeps for asOf while holding the job lock. It returns
// lock.ErrNotObtained when another run holds it.
func (j *AlertGenerationJob) RunFor(ctx context.Context, asOf database.Date) (alerting.Summary, error) {
	held, err := j.locker.Obtain(ctx, alertGenerationLockKey, j.lockTTL)
	if err != nil {
		return alerting.Summary{}, err
	}
	defer func() {
		if err := held.Release(context.Background()); err != nil {
			j.logger.WithError(err).Warn("Failed to release job lock")
		}
	}()

	start := time.Now()
	summary, err := j.evaluator.Evaluate(ctx, asOf)
	j.metrics.ObserveJob(AlertGenerationJobName, time.Since(start))
	return summary, err
}

// Start runs the job immediately and then on every tick until stop is closed.
func (j *AlertGenerationJob) Start(interval time.Duration, stop <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		select {
		case <-stop:
			cancel()
		case <-ctx.Done():
		}
	}()

	j.tick(ctx)
	for {
		select {
		case <-ticker.C:
			j.tick(ctx)
		case <-stop:
			j.logger.Info("Alert generation job stopped")
			return
		}
	}
}

func (j *AlertGenerationJob) tick(ctx context.Context) {
	summary, err := j.RunOnce(ctx)
	switch {
	case errors.Is(err, lock.ErrNotObtained):
		j.logger.Debug("Alert generation already running elsewhere, skipping tick")
	case err != nil:
		if ctx.Err() != nil {
			return
		}
		logging.LogError(j.logger, "jobs", "AlertGenerationJob.tick", j.Today().String(), nil, err)
	case summary.Created > 0:
		j.logger.WithField("created", summary.Created).Info("Alert generation job created alerts")
	}
}
