// Package alerting runs the daily sweep that turns alert rules into alerts.
// A rule fires for a machine on the day its trigger date plus the rule's
// offset equals the sweep date. (machine, alert type, alert date) is unique,
// so a repeated sweep on the same day creates nothing new.
package alerting

import (
	"context"
	"sort"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/machinehub/machinehub/internal/apperr"
	"github.com/machinehub/machinehub/internal/database"
	"github.com/machinehub/machinehub/internal/metrics"
)

// Summary counts the outcome of one sweep.
type Summary struct {
	Created   int `json:"created"`
	Skipped   int `json:"skipped"`
	Evaluated int `json:"evaluated"`
}

// TriggerFunc returns the date a rule's offset is measured from, or false
// when the machine has none.
type TriggerFunc func(m *database.Machine) (database.Date, bool)

var triggers = map[string]TriggerFunc{
	database.TriggerWarrantyEndDate: func(m *database.Machine) (database.Date, bool) {
		if m.WarrantyEndDate == nil {
			return database.Date{}, false
		}
		return *m.WarrantyEndDate, true
	},
}

// IsKnownTrigger reports whether rules may use trigger.
func IsKnownTrigger(trigger string) bool {
	_, ok := triggers[trigger]
	return ok
}

// KnownTriggers lists the registered trigger names.
func KnownTriggers() []string {
	names := make([]string, 0, len(triggers))
	for name := range triggers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ClassifyOffset maps a rule offset to the alert type it produces.
func ClassifyOffset(offsetDays int) string {
	switch {
	case offsetDays < 0:
		return database.AlertTypeWarrantyExpiring
	case offsetDays == 0:
		return database.AlertTypeWarrantyDue
	default:
		return database.AlertTypeWarrantyExpired
	}
}

// Evaluator generates alerts from the enabled rules.
type Evaluator struct {
	db      *gorm.DB
	logger  logrus.FieldLogger
	metrics *metrics.Metrics
}

// NewEvaluator creates an evaluator. logger and m may be nil.
func NewEvaluator(db *gorm.DB, logger logrus.FieldLogger, m *metrics.Metrics) *Evaluator {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Evaluator{db: db, logger: logger, metrics: m}
}

// Evaluate checks every enabled rule against every live machine that has a
// warranty end date and inserts one OPEN alert per match dated asOf. Each
// insert commits on its own; a duplicate is counted as skipped. Any other
// storage failure stops the sweep and is returned with the counts so far.
func (e *Evaluator) Evaluate(ctx context.Context, asOf database.Date) (Summary, error) {
	var summary Summary
	db := e.db.WithContext(ctx)

	var rules []database.AlertRule
	if err := db.Where("enabled = ?", true).Order("offset_days, name").Find(&rules).Error; err != nil {
		return summary, apperr.FromDB(err, "load alert rules")
	}

	var machines []database.Machine
	err := db.Where("warranty_end_date IS NOT NULL AND is_deleted = ?", false).
		Order("id").Find(&machines).Error
	if err != nil {
		return summary, apperr.FromDB(err, "load machines")
	}

	log := e.logger.WithField("as_of", asOf.String())

	defer func() {
		e.metrics.RecordAlerts(summary.Created, summary.Skipped, summary.Evaluated)
	}()

	for _, rule := range rules {
		trigger, ok := triggers[rule.Trigger]
		if !ok {
			log.WithFields(logrus.Fields{"rule_id": rule.ID, "trigger": rule.Trigger}).
				Warn("Skipping alert rule with unknown trigger")
			continue
		}
		alertType := ClassifyOffset(rule.OffsetDays)

		for i := range machines {
			machine := &machines[i]
			summary.Evaluated++

			due, ok := trigger(machine)
			if !ok || !due.AddDays(rule.OffsetDays).Equal(asOf) {
				continue
			}

			dueDate := due
			alert := database.Alert{
				MachineID: machine.ID,
				AlertType: alertType,
				AlertDate: asOf,
				DueDate:   &dueDate,
				Status:    database.AlertStatusOpen,
			}
			err := db.Transaction(func(tx *gorm.DB) error {
				return tx.Create(&alert).Error
			})
			switch {
			case err == nil:
				summary.Created++
				log.WithFields(logrus.Fields{
					"rule_id":    rule.ID,
					"machine_id": machine.ID,
					"alert_type": alertType,
				}).Info("Alert created")
			case apperr.IsUniqueViolation(err):
				summary.Skipped++
			default:
				log.WithError(err).WithFields(logrus.Fields{"rule_id": rule.ID, "machine_id": machine.ID}).
					Error("Alert sweep aborted")
				return summary, apperr.FromDB(err, "create alert")
			}
		}
	}

	log.WithFields(logrus.Fields{
		"created":   summary.Created,
		"skipped":   summary.Skipped,
		"evaluated": summary.Evaluated,
	}).Info("Alert sweep finished")
	return summary, nil
}
