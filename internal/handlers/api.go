package handlers

import (
	"net/http"

	"github.com/machinehub/machinehub/internal/api"
	"github.com/machinehub/machinehub/internal/database"
	"github.com/machinehub/machinehub/internal/reconcile"
	"github.com/machinehub/machinehub/internal/services"
)

// APIHandler serves the direct-entry API used by the frontend.
type APIHandler struct {
	entities *services.EntityService
	rules    *services.AlertRuleService
	alerts   *services.AlertService
}

// NewAPIHandler creates a new API handler
func NewAPIHandler(entities *services.EntityService, rules *services.AlertRuleService, alerts *services.AlertService) *APIHandler {
	return &APIHandler{entities: entities, rules: rules, alerts: alerts}
}

// SetupRoutes sets up all API routes
func (h *APIHandler) SetupRoutes(mux *http.ServeMux) {
	// Fleet records
	for _, kind := range reconcile.Kinds() {
		mux.HandleFunc("/api/"+kind.Name, h.handleEntities(kind))
		mux.HandleFunc("/api/"+kind.Name+"/{id}", h.handleEntityByID(kind))
	}

	// Alert rules
	mux.HandleFunc("/api/alert-rules", h.handleAlertRules)
	mux.HandleFunc("/api/alert-rules/{id}", h.handleAlertRuleByID)

	// Alert inbox
	mux.HandleFunc("/api/alerts", h.handleAlerts)
	mux.HandleFunc("/api/alerts/{id}", h.handleAlertByID)
}

// handleEntities handles GET and POST /api/{kind}
func (h *APIHandler) handleEntities(kind reconcile.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			params := api.ParsePagination(r)
			q := r.URL.Query()
			items, total, err := h.entities.List(r.Context(), kind, services.ListOptions{
				Search:    q.Get("search"),
				AccountID: q.Get("account_id"),
				Offset:    params.Offset(),
				Limit:     params.PerPage,
			})
			if err != nil {
				api.RespondAppError(w, err)
				return
			}
			api.RespondJSON(w, http.StatusOK, api.NewListResponse(items, total, params))

		case http.MethodPost:
			payload, err := api.DecodePayload(r)
			if err != nil {
				api.RespondError(w, http.StatusBadRequest, err.Error())
				return
			}
			row, err := h.entities.Create(r.Context(), kind, payload)
			if err != nil {
				api.RespondAppError(w, err)
				return
			}
			api.RespondJSON(w, http.StatusCreated, row)

		default:
			api.RespondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	}
}

// handleEntityByID handles GET, PATCH and DELETE /api/{kind}/{id}
func (h *APIHandler) handleEntityByID(kind reconcile.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")

		switch r.Method {
		case http.MethodGet:
			row, err := h.entities.Get(r.Context(), kind, id)
			if err != nil {
				api.RespondAppError(w, err)
				return
			}
			api.RespondJSON(w, http.StatusOK, row)

		case http.MethodPatch:
			payload, err := api.DecodePayload(r)
			if err != nil {
				api.RespondError(w, http.StatusBadRequest, err.Error())
				return
			}
			row, err := h.entities.Update(r.Context(), kind, id, payload)
			if err != nil {
				api.RespondAppError(w, err)
				return
			}
			api.RespondJSON(w, http.StatusOK, row)

		case http.MethodDelete:
			if err := h.entities.Delete(r.Context(), kind, id); err != nil {
				api.RespondAppError(w, err)
				return
			}
			api.RespondNoContent(w)

		default:
			api.RespondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	}
}

// handleAlertRules handles GET and POST /api/alert-rules
func (h *APIHandler) handleAlertRules(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		rules, err := h.rules.List(r.Context())
		if err != nil {
			api.RespondAppError(w, err)
			return
		}
		api.RespondJSON(w, http.StatusOK, rules)

	case http.MethodPost:
		var req api.CreateAlertRuleRequest
		if err := api.DecodeJSON(r, &req); err != nil {
			api.RespondError(w, http.StatusBadRequest, err.Error())
			return
		}
		if errs := api.Validate(req); errs != nil {
			api.RespondValidationError(w, errs)
			return
		}

		rule := &database.AlertRule{
			Name:       req.Name,
			Trigger:    req.Trigger,
			OffsetDays: *req.OffsetDays,
			Enabled:    req.Enabled == nil || *req.Enabled,
			Channels:   req.Channels,
		}
		if err := h.rules.Create(r.Context(), rule); err != nil {
			api.RespondAppError(w, err)
			return
		}
		api.RespondJSON(w, http.StatusCreated, rule)

	default:
		api.RespondError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

// handleAlertRuleByID handles GET and PATCH /api/alert-rules/{id}
func (h *APIHandler) handleAlertRuleByID(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	switch r.Method {
	case http.MethodGet:
		rule, err := h.rules.Get(r.Context(), id)
		if err != nil {
			api.RespondAppError(w, err)
			return
		}
		api.RespondJSON(w, http.StatusOK, rule)

	case http.MethodPatch:
		var req api.UpdateAlertRuleRequest
		if err := api.DecodeJSON(r, &req); err != nil {
			api.RespondError(w, http.StatusBadRequest, err.Error())
			return
		}
		if errs := api.Validate(req); errs != nil {
			api.RespondValidationError(w, errs)
			return
		}
		rule, err := h.rules.Update(r.Context(), id, services.AlertRulePatch{
			Name:       req.Name,
			Trigger:    req.Trigger,
			OffsetDays: req.OffsetDays,
			Enabled:    req.Enabled,
			Channels:   req.Channels,
		})
		if err != nil {
			api.RespondAppError(w, err)
			return
		}
		api.RespondJSON(w, http.StatusOK, rule)

	default:
		api.RespondError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

// handleAlerts handles GET /api/alerts?status=&machine_id=&page=&per_page=
func (h *APIHandler) handleAlerts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		api.RespondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	params := api.ParsePagination(r)
	q := r.URL.Query()
	alerts, total, err := h.alerts.Inbox(r.Context(), services.AlertFilter{
		Status:    database.AlertStatus(q.Get("status")),
		MachineID: q.Get("machine_id"),
		Offset:    params.Offset(),
		Limit:     params.PerPage,
	})
	if err != nil {
		api.RespondAppError(w, err)
		return
	}
	api.RespondJSON(w, http.StatusOK, api.NewListResponse(api.AlertsToItems(alerts), total, params))
}

// handleAlertByID handles GET and PATCH /api/alerts/{id}
func (h *APIHandler) handleAlertByID(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	switch r.Method {
	case http.MethodGet:
		alert, err := h.alerts.Get(r.Context(), id)
		if err != nil {
			api.RespondAppError(w, err)
			return
		}
		api.RespondJSON(w, http.StatusOK, api.AlertToItem(*alert))

	case http.MethodPatch:
		var req api.UpdateAlertRequest
		if err := api.DecodeJSON(r, &req); err != nil {
			api.RespondError(w, http.StatusBadRequest, err.Error())
			return
		}
		if errs := api.Validate(req); errs != nil {
			api.RespondValidationError(w, errs)
			return
		}
		alert, err := h.alerts.Update(r.Context(), id, services.AlertPatch{
			Status:      req.Status,
			SnoozeUntil: req.SnoozeUntil,
			AssignedTo:  req.AssignedTo,
			Notes:       req.Notes,
		})
		if err != nil {
			api.RespondAppError(w, err)
			return
		}
		api.RespondJSON(w, http.StatusOK, api.AlertToItem(*alert))

	default:
		api.RespondError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}
