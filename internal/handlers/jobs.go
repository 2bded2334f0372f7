package handlers

import (
	"errors"
	"net/http"

	"github.com/machinehub/machinehub/internal/api"
	"github.com/machinehub/machinehub/internal/jobs"
	"github.com/machinehub/machinehub/internal/lock"
)

// CodeJobRunning reports that another run holds the job lock.
const CodeJobRunning = "job_running"

// JobHandler triggers scheduled jobs on demand.
type JobHandler struct {
	alerts *jobs.AlertGenerationJob
}

// NewJobHandler creates a new job handler
func NewJobHandler(alerts *jobs.AlertGenerationJob) *JobHandler {
	return &JobHandler{alerts: alerts}
}

// SetupRoutes registers the job routes.
func (h *JobHandler) SetupRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/jobs/generate-alerts", h.handleGenerateAlerts)
}

// handleGenerateAlerts handles POST /jobs/generate-alerts[?date=YYYY-MM-DD].
// Without a date the sweep runs for today in the configured zone.
func (h *JobHandler) handleGenerateAlerts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		api.RespondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	asOf, ok, err := api.ParseDateParam(r, "date")
	if err != nil {
		api.RespondErrorWithCode(w, http.StatusBadRequest, api.CodeInvalidField, err.Error())
		return
	}
	if !ok {
		asOf = h.alerts.Today()
	}

	summary, err := h.alerts.RunFor(r.Context(), asOf)
	if errors.Is(err, lock.ErrNotObtained) {
		api.RespondJSON(w, http.StatusConflict, api.ErrorResponse{
			Error:     "alert generation is already running",
			Code:      CodeJobRunning,
			Retryable: true,
		})
		return
	}
	if err != nil {
		api.RespondAppError(w, err)
		return
	}
	api.RespondJSON(w, http.StatusOK, summary)
}
