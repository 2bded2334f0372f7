package services

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/machinehub/machinehub/internal/apperr"
	"github.com/machinehub/machinehub/internal/database"
)

// AlertFilter narrows and pages the alert inbox.
type AlertFilter struct {
	Status    database.AlertStatus
	MachineID string
	Offset    int
	Limit     int
}

// AlertPatch holds the user-editable alert fields. Nil means keep.
type AlertPatch struct {
	Status      *database.AlertStatus
	SnoozeUntil *database.Date
	AssignedTo  *string
	Notes       *string
}

// AlertService serves the alert inbox and alert lifecycle edits.
type AlertService struct {
	db *gorm.DB
}

// NewAlertService creates a new AlertService
func NewAlertService(db *gorm.DB) *AlertService {
	return &AlertService{db: db}
}

// Inbox lists alerts newest alert_date first, with their machines.
func (s *AlertService) Inbox(ctx context.Context, filter AlertFilter) ([]database.Alert, int64, error) {
	query := s.db.WithContext(ctx).Model(&database.Alert{})
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.MachineID != "" {
		query = query.Where("machine_id = ?", filter.MachineID)
	}
	query = query.Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, apperr.FromDB(err, "count alerts")
	}

	var alerts []database.Alert
	page := query.Preload("Machine").Order("alert_date DESC").Order("created_at DESC").Offset(filter.Offset)
	if filter.Limit > 0 {
		page = page.Limit(filter.Limit)
	}
	if err := page.Find(&alerts).Error; err != nil {
		return nil, 0, apperr.FromDB(err, "list alerts")
	}
	return alerts, total, nil
}

// Get returns an alert with its machine.
func (s *AlertService) Get(ctx context.Context, id string) (*database.Alert, error) {
	var alert database.Alert
	res := s.db.WithContext(ctx).Preload("Machine").Where("id = ?", id).Limit(1).Find(&alert)
	if res.Error != nil {
		return nil, apperr.FromDB(res.Error, "get alert")
	}
	if res.RowsAffected == 0 {
		return nil, fmt.Errorf("alert %s: %w", id, apperr.ErrNotFound)
	}
	return &alert, nil
}

// Update applies a lifecycle edit. Snoozing requires a snooze_until date,
// and leaving SNOOZED clears it.
func (s *AlertService) Update(ctx context.Context, id string, patch AlertPatch) (*database.Alert, error) {
	alert, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if patch.Status != nil {
		alert.Status = *patch.Status
	}
	if patch.SnoozeUntil != nil {
		alert.SnoozeUntil = patch.SnoozeUntil
	}
	if patch.AssignedTo != nil {
		alert.AssignedTo = patch.AssignedTo
	}
	if patch.Notes != nil {
		alert.Notes = patch.Notes
	}

	switch alert.Status {
	case database.AlertStatusOpen, database.AlertStatusClosed:
		if patch.Status != nil {
			alert.SnoozeUntil = nil
		}
	case database.AlertStatusSnoozed:
		if alert.SnoozeUntil == nil {
			return nil, apperr.Validation("snooze_until", apperr.ErrRequiredField, "is required when snoozing")
		}
	default:
		return nil, apperr.Validation("status", apperr.ErrInvalidField, "unknown status %q", alert.Status)
	}

	err = s.db.WithContext(ctx).Model(alert).Select("status", "snooze_until", "assigned_to", "notes").
		Updates(alert).Error
	if err != nil {
		return nil, apperr.FromDB(err, "update alert")
	}
	return alert, nil
}
