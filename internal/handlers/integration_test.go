package handlers

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/machinehub/machinehub/internal/api"
	"github.com/machinehub/machinehub/internal/database"
	"github.com/machinehub/machinehub/internal/testhelpers"
)

const machinePayload = `{
	"external_id": "M-100",
	"account_id": "acc-1",
	"machine_name": "Press 7",
	"installation_date": "2023-06-30",
	"warranty_months": 24,
	"last_modified": "2025-01-01T08:00:00Z"
}`

func TestUpsert_CreateThenReplay(t *testing.T) {
	srv := newTestServer(t, nil)

	var first api.UpsertResponse
	srv.do(t, http.MethodPost, "/integrations/boomi/machines:upsert", machinePayload).
		AssertStatus(http.StatusOK).
		DecodeJSON(&first)
	assert.Equal(t, "upserted", first.Status)
	assert.False(t, first.Skipped)
	require.NotEmpty(t, first.ID)

	var replay api.UpsertResponse
	srv.do(t, http.MethodPost, "/integrations/boomi/machines:upsert", machinePayload).
		AssertStatus(http.StatusOK).
		DecodeJSON(&replay)
	assert.True(t, replay.Skipped)
	assert.Equal(t, first.ID, replay.ID)

	var machine database.Machine
	require.NoError(t, srv.db.First(&machine, "id = ?", first.ID).Error)
	require.NotNil(t, machine.WarrantyEndDate)
	assert.Equal(t, "2025-06-30", machine.WarrantyEndDate.String())
}

func TestUpsert_Errors(t *testing.T) {
	srv := newTestServer(t, nil)

	tests := []struct {
		name       string
		path       string
		body       string
		wantStatus int
		wantCode   string
	}{
		{"missing external id", "/integrations/boomi/accounts:upsert", `{"name":"Acme"}`, http.StatusBadRequest, api.CodeMissingExternalID},
		{"blank external id", "/integrations/boomi/accounts:upsert", `{"external_id":"  ","name":"Acme"}`, http.StatusBadRequest, api.CodeMissingExternalID},
		{"required field", "/integrations/boomi/accounts:upsert", `{"external_id":"A-1","name":"Acme"}`, http.StatusBadRequest, api.CodeRequiredField},
		{"bad date", "/integrations/boomi/machines:upsert", `{"external_id":"M-1","account_id":"a","machine_name":"x","warranty_end_date":"soon"}`, http.StatusBadRequest, api.CodeInvalidField},
		{"unknown kind", "/integrations/boomi/alerts:upsert", `{"external_id":"X"}`, http.StatusNotFound, api.CodeNotFound},
		{"unknown action", "/integrations/boomi/accounts:delete", `{"external_id":"X"}`, http.StatusNotFound, api.CodeNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var resp api.ErrorResponse
			srv.do(t, http.MethodPost, tt.path, tt.body).AssertStatus(tt.wantStatus).DecodeJSON(&resp)
			assert.Equal(t, tt.wantCode, resp.Code)
		})
	}

	assert.Equal(t, int64(0), testhelpers.CountRows(t, srv.db, &database.Account{}))
	assert.Equal(t, int64(0), testhelpers.CountRows(t, srv.db, &database.Machine{}))
}

func TestUpsert_MalformedBody(t *testing.T) {
	srv := newTestServer(t, nil)

	srv.do(t, http.MethodPost, "/integrations/boomi/contacts:upsert", `[{"external_id":"C-1"}]`).
		AssertStatus(http.StatusBadRequest).
		AssertBodyContains("must be a JSON object")
	srv.do(t, http.MethodPost, "/integrations/boomi/contacts:upsert", `{"external_id":`).
		AssertStatus(http.StatusBadRequest)
}

func TestUpsert_MethodNotAllowed(t *testing.T) {
	srv := newTestServer(t, nil)
	srv.do(t, http.MethodGet, "/integrations/boomi/accounts:upsert", "").AssertStatus(http.StatusMethodNotAllowed)
}

func TestUpsert_ConflictIsRetryable(t *testing.T) {
	srv := newTestServer(t, nil)

	existing := testhelpers.NewAccountBuilder().WithAccountNumber("1001").Build()
	testhelpers.MustCreate(t, srv.db, &existing)

	var resp api.ErrorResponse
	srv.do(t, http.MethodPost, "/integrations/boomi/accounts:upsert",
		`{"external_id":"A-2","account_number":"1001","name":"Duplicate number"}`).
		AssertStatus(http.StatusConflict).
		DecodeJSON(&resp)
	assert.Equal(t, api.CodeConflict, resp.Code)
	assert.True(t, resp.Retryable)
}

func TestUpsert_OverridesSurviveSync(t *testing.T) {
	srv := newTestServer(t, nil)

	var created api.UpsertResponse
	srv.do(t, http.MethodPost, "/integrations/boomi/accounts:upsert",
		`{"external_id":"A-1","account_number":"1001","name":"Acme","phone":"111"}`).
		AssertStatus(http.StatusOK).
		DecodeJSON(&created)

	srv.do(t, http.MethodPatch, "/api/accounts/"+created.ID,
		`{"phone":"999","manual_override_fields":["phone"]}`).
		AssertStatus(http.StatusOK)

	srv.do(t, http.MethodPost, "/integrations/boomi/accounts:upsert",
		`{"external_id":"A-1","account_number":"1001","name":"Acme Corp","phone":"222"}`).
		AssertStatus(http.StatusOK)

	var account database.Account
	require.NoError(t, srv.db.First(&account, "id = ?", created.ID).Error)
	assert.Equal(t, "Acme Corp", account.Name)
	require.NotNil(t, account.Phone)
	assert.Equal(t, "999", *account.Phone)
}
