// Package reconcile merges records pushed by the external system-of-record
// into local entities. Each inbound record is matched by external_id, skipped
// when unchanged, and otherwise applied without touching fields the local
// users have claimed through manual_override_fields.
package reconcile

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/machinehub/machinehub/internal/apperr"
	"github.com/machinehub/machinehub/internal/database"
	"github.com/machinehub/machinehub/internal/logging"
	"github.com/machinehub/machinehub/internal/metrics"
)

// Result is the outcome of one Reconcile call.
type Result struct {
	Entity  database.Syncable
	Skipped bool
	Created bool
}

// Outcome names the result for logs and metrics.
func (r *Result) Outcome() string {
	switch {
	case r.Skipped:
		return metrics.OutcomeSkipped
	case r.Created:
		return metrics.OutcomeCreated
	default:
		return metrics.OutcomeUpdated
	}
}

// Engine applies inbound records to storage.
type Engine struct {
	db      *gorm.DB
	source  string
	now     func() time.Time
	logger  logrus.FieldLogger
	metrics *metrics.Metrics
}

// Option configures an Engine.
type Option func(*Engine)

// WithSource sets the origin tag stamped on synced rows.
func WithSource(source string) Option {
	return func(e *Engine) {
		if source != "" {
			e.source = source
		}
	}
}

// WithClock replaces time.Now for last_synced_at.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithLogger sets the logger.
func WithLogger(logger logrus.FieldLogger) Option {
	return func(e *Engine) { e.logger = logger }
}

// WithMetrics enables instrumentation.
func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// NewEngine creates an engine writing through db.
func NewEngine(db *gorm.DB, opts ...Option) *Engine {
	e := &Engine{
		db:     db,
		source: database.DefaultSyncSource,
		now:    time.Now,
		logger: logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Reconcile creates or updates the entity of kind identified by the payload's
// external_id. A payload carrying last_modified whose fingerprint matches the
// stored one is skipped without a write. Each call is one transaction.
func (e *Engine) Reconcile(ctx context.Context, kind Kind, payload Payload) (*Result, error) {
	p := payload.Filter(kind.Fields)

	externalID := p.ExternalID()
	if externalID == "" {
		e.metrics.RecordSync(kind.Name, metrics.OutcomeError)
		return nil, apperr.MissingExternalID()
	}
	p[KeyExternalID] = externalID

	log := e.logger.WithFields(logrus.Fields{"kind": kind.Name, "external_id": externalID})

	if kind.Prepare != nil {
		if err := kind.Prepare(p); err != nil {
			e.metrics.RecordSync(kind.Name, metrics.OutcomeError)
			return nil, err
		}
	}
	if err := normalizeOverrideFields(p); err != nil {
		e.metrics.RecordSync(kind.Name, metrics.OutcomeError)
		return nil, err
	}

	hash, err := Fingerprint(p)
	if err != nil {
		e.metrics.RecordSync(kind.Name, metrics.OutcomeError)
		return nil, apperr.Validation("", apperr.ErrInvalidField, "%v", err)
	}
	versioned := p.Present(KeyLastModified)

	var result *Result
	err = e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row := kind.New()
		found := tx.Where("external_id = ?", externalID).Limit(1).Find(row)
		if found.Error != nil {
			return apperr.FromDB(found.Error, "find "+kind.Name)
		}

		var txErr error
		if found.RowsAffected == 0 {
			result, txErr = e.create(tx, kind, p, hash)
			return txErr
		}

		if versioned && storedHash(row) == hash {
			result = &Result{Entity: row, Skipped: true}
			return nil
		}
		result, txErr = e.update(tx, kind, row, p, hash)
		return txErr
	})
	if err != nil {
		e.metrics.RecordSync(kind.Name, metrics.OutcomeError)
		if apperr.IsValidation(err) || apperr.IsConflict(err) {
			log.WithError(err).Warn("Inbound record rejected")
		} else {
			logging.LogError(e.logger, "reconcile", "Reconcile", kind.Name, externalID, err)
		}
		return nil, apperr.FromDB(err, "reconcile "+kind.Name)
	}

	e.metrics.RecordSync(kind.Name, result.Outcome())
	log.WithFields(logrus.Fields{"id": result.Entity.GetID(), "outcome": result.Outcome()}).Debug("Inbound record reconciled")
	return result, nil
}

func (e *Engine) create(tx *gorm.DB, kind Kind, p Payload, hash string) (*Result, error) {
	fields := p.Clone()
	delete(fields, KeyLastModified)

	row := kind.New()
	if err := Assign(row, fields); err != nil {
		return nil, err
	}
	e.stamp(row, hash)
	if err := Validate(row); err != nil {
		return nil, err
	}
	if err := tx.Create(row).Error; err != nil {
		return nil, apperr.FromDB(err, "create "+kind.Name)
	}
	return &Result{Entity: row, Created: true}, nil
}

func (e *Engine) update(tx *gorm.DB, kind Kind, row database.Syncable, p Payload, hash string) (*Result, error) {
	fields := ApplyOverrides(ParseOverrides(row.Sync().ManualOverrideFields), p)
	delete(fields, KeyLastModified)

	if err := Assign(row, fields); err != nil {
		return nil, err
	}
	e.stamp(row, hash)
	row.SetDeleted(false)
	if err := Validate(row); err != nil {
		return nil, err
	}
	if err := tx.Save(row).Error; err != nil {
		return nil, apperr.FromDB(err, "update "+kind.Name)
	}
	return &Result{Entity: row}, nil
}

func (e *Engine) stamp(row database.Syncable, hash string) {
	s := row.Sync()
	source := e.source
	syncedAt := e.now().UTC()
	s.ExternalSource = &source
	s.SyncHash = &hash
	s.LastSyncedAt = &syncedAt
}

func storedHash(row database.Syncable) string {
	if h := row.Sync().SyncHash; h != nil {
		return *h
	}
	return ""
}
