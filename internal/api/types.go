package api

import (
	"time"

	"github.com/machinehub/machinehub/internal/database"
)

// ========== Integration Types ==========

// UpsertResponse is the response body for POST /integrations/boomi/{kind}:upsert.
type UpsertResponse struct {
	Status  string `json:"status"`
	ID      string `json:"id"`
	Skipped bool   `json:"skipped"`
}

// UpsertStatus is the only status an accepted upsert reports.
const UpsertStatus = "upserted"

// ========== Alert Rule Types ==========

// CreateAlertRuleRequest is the request body for POST /api/alert-rules.
type CreateAlertRuleRequest struct {
	Name       string  `json:"name" validate:"required,max=100"`
	Trigger    string  `json:"trigger" validate:"required,max=50"`
	OffsetDays *int    `json:"offset_days" validate:"required"`
	Enabled    *bool   `json:"enabled"`
	Channels   *string `json:"channels" validate:"omitempty,max=50"`
}

// UpdateAlertRuleRequest is the request body for PATCH /api/alert-rules/{id}.
type UpdateAlertRuleRequest struct {
	Name       *string `json:"name" validate:"omitempty,min=1,max=100"`
	Trigger    *string `json:"trigger" validate:"omitempty,max=50"`
	OffsetDays *int    `json:"offset_days"`
	Enabled    *bool   `json:"enabled"`
	Channels   *string `json:"channels" validate:"omitempty,max=50"`
}

// ========== Alert Types ==========

// UpdateAlertRequest is the request body for PATCH /api/alerts/{id}.
type UpdateAlertRequest struct {
	Status      *database.AlertStatus `json:"status" validate:"omitempty,oneof=OPEN SNOOZED CLOSED"`
	SnoozeUntil *database.Date        `json:"snooze_until"`
	AssignedTo  *string               `json:"assigned_to" validate:"omitempty,max=100"`
	Notes       *string               `json:"notes"`
}

// AlertItem is an alert with the machine it concerns flattened in.
type AlertItem struct {
	ID          string               `json:"id"`
	MachineID   string               `json:"machine_id"`
	MachineName string               `json:"machine_name,omitempty"`
	AccountID   string               `json:"account_id,omitempty"`
	AlertType   string               `json:"alert_type"`
	AlertDate   database.Date        `json:"alert_date"`
	DueDate     *database.Date       `json:"due_date"`
	Status      database.AlertStatus `json:"status"`
	SnoozeUntil *database.Date       `json:"snooze_until"`
	AssignedTo  *string              `json:"assigned_to"`
	Notes       *string              `json:"notes"`
	CreatedAt   time.Time            `json:"created_at"`
	UpdatedAt   time.Time            `json:"updated_at"`
}

// ========== Common Types ==========

// ListResponse is one page of a list endpoint.
type ListResponse struct {
	Items      interface{} `json:"items"`
	Total      int64       `json:"total"`
	Page       int         `json:"page"`
	PerPage    int         `json:"per_page"`
	TotalPages int         `json:"total_pages"`
}

// HealthResponse is the response body for GET /health.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}
