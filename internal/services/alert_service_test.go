package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/machinehub/machinehub/internal/apperr"
	"github.com/machinehub/machinehub/internal/database"
	"github.com/machinehub/machinehub/internal/testhelpers"
)

func seedAlerts(t *testing.T, db *gorm.DB) database.Machine {
	t.Helper()
	machine := testhelpers.NewMachineBuilder().WithName("Press 7").WithAccountID("acc-1").Build()
	testhelpers.MustCreate(t, db, &machine)

	day := database.NewDate(2025, time.June, 1)
	for i, status := range []database.AlertStatus{
		database.AlertStatusOpen, database.AlertStatusClosed, database.AlertStatusOpen,
	} {
		a := testhelpers.NewAlertBuilder().WithMachineID(machine.ID).WithDate(day.AddDays(i)).WithStatus(status).Build()
		testhelpers.MustCreate(t, db, &a)
	}
	return machine
}

func TestAlertService_Inbox(t *testing.T) {
	db := testhelpers.NewTestDB(t)
	svc := NewAlertService(db)
	seedAlerts(t, db)

	alerts, total, err := svc.Inbox(context.Background(), AlertFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	require.Len(t, alerts, 3)
	assert.Equal(t, "2025-06-03", alerts[0].AlertDate.String())
	assert.Equal(t, "2025-06-01", alerts[2].AlertDate.String())
	require.NotNil(t, alerts[0].Machine)
	assert.Equal(t, "Press 7", alerts[0].Machine.MachineName)
}

func TestAlertService_InboxFilterAndPage(t *testing.T) {
	db := testhelpers.NewTestDB(t)
	svc := NewAlertService(db)
	seedAlerts(t, db)

	alerts, total, err := svc.Inbox(context.Background(), AlertFilter{Status: database.AlertStatusOpen, Limit: 1})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	require.Len(t, alerts, 1)
	assert.Equal(t, "2025-06-03", alerts[0].AlertDate.String())

	alerts, _, err = svc.Inbox(context.Background(), AlertFilter{Status: database.AlertStatusOpen, Offset: 1, Limit: 1})
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	assert.Equal(t, "2025-06-01", alerts[0].AlertDate.String())
}

func TestAlertService_SnoozeAndClose(t *testing.T) {
	db := testhelpers.NewTestDB(t)
	svc := NewAlertService(db)
	ctx := context.Background()
	seedAlerts(t, db)

	open, _, err := svc.Inbox(ctx, AlertFilter{Status: database.AlertStatusOpen, Limit: 1})
	require.NoError(t, err)
	id := open[0].ID

	snoozed := database.AlertStatusSnoozed
	_, err = svc.Update(ctx, id, AlertPatch{Status: &snoozed})
	assert.ErrorIs(t, err, apperr.ErrRequiredField, "snoozing needs a date")

	until := database.NewDate(2025, time.July, 1)
	owner := "field-service"
	alert, err := svc.Update(ctx, id, AlertPatch{Status: &snoozed, SnoozeUntil: &until, AssignedTo: &owner})
	require.NoError(t, err)
	assert.Equal(t, database.AlertStatusSnoozed, alert.Status)

	stored, err := svc.Get(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, stored.SnoozeUntil)
	assert.Equal(t, "2025-07-01", stored.SnoozeUntil.String())
	assert.Equal(t, "field-service", *stored.AssignedTo)

	closed := database.AlertStatusClosed
	_, err = svc.Update(ctx, id, AlertPatch{Status: &closed})
	require.NoError(t, err)

	stored, err = svc.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, database.AlertStatusClosed, stored.Status)
	assert.Nil(t, stored.SnoozeUntil)
	assert.Equal(t, "field-service", *stored.AssignedTo)
}

func TestAlertService_NotFound(t *testing.T) {
	svc := NewAlertService(testhelpers.NewTestDB(t))

	_, err := svc.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	notes := "x"
	_, err = svc.Update(context.Background(), "missing", AlertPatch{Notes: &notes})
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}
