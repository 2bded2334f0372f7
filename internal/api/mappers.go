package api

import (
	"github.com/machinehub/machinehub/internal/database"
	"github.com/machinehub/machinehub/internal/reconcile"
)

// UpsertToResponse converts an engine result to the integration response.
func UpsertToResponse(r *reconcile.Result) UpsertResponse {
	return UpsertResponse{
		Status:  UpsertStatus,
		ID:      r.Entity.GetID(),
		Skipped: r.Skipped,
	}
}

// AlertToItem converts an alert. Machine fields are filled when the
// association was preloaded.
func AlertToItem(a database.Alert) AlertItem {
	item := AlertItem{
		ID:          a.ID,
		MachineID:   a.MachineID,
		AlertType:   a.AlertType,
		AlertDate:   a.AlertDate,
		DueDate:     a.DueDate,
		Status:      a.Status,
		SnoozeUntil: a.SnoozeUntil,
		AssignedTo:  a.AssignedTo,
		Notes:       a.Notes,
		CreatedAt:   a.CreatedAt,
		UpdatedAt:   a.UpdatedAt,
	}
	if a.Machine != nil {
		item.MachineName = a.Machine.MachineName
		item.AccountID = a.Machine.AccountID
	}
	return item
}

// AlertsToItems converts a slice of alerts.
func AlertsToItems(alerts []database.Alert) []AlertItem {
	items := make([]AlertItem, len(alerts))
	for i, a := range alerts {
		items[i] = AlertToItem(a)
	}
	return items
}
