package handlers

import (
	"net/http"
	"strings"

	"github.com/machinehub/machinehub/internal/api"
	"github.com/machinehub/machinehub/internal/reconcile"
)

const upsertSuffix = ":upsert"

// IntegrationHandler receives records pushed by the integration platform.
type IntegrationHandler struct {
	engine *reconcile.Engine
}

// NewIntegrationHandler creates a handler writing through engine.
func NewIntegrationHandler(engine *reconcile.Engine) *IntegrationHandler {
	return &IntegrationHandler{engine: engine}
}

// SetupRoutes registers POST /integrations/boomi/{kind}:upsert.
func (h *IntegrationHandler) SetupRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/integrations/boomi/{action}", h.handleUpsert)
}

func (h *IntegrationHandler) handleUpsert(w http.ResponseWriter, r *http.Request) {
	action := r.PathValue("action")
	name, ok := strings.CutSuffix(action, upsertSuffix)
	if !ok {
		api.RespondErrorWithCode(w, http.StatusNotFound, api.CodeNotFound, "unknown action "+action)
		return
	}
	kind, ok := reconcile.KindByName(name)
	if !ok {
		api.RespondErrorWithCode(w, http.StatusNotFound, api.CodeNotFound, "unknown kind "+name)
		return
	}
	if r.Method != http.MethodPost {
		api.RespondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	payload, err := api.DecodePayload(r)
	if err != nil {
		api.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.engine.Reconcile(r.Context(), kind, payload)
	if err != nil {
		api.RespondAppError(w, err)
		return
	}
	api.RespondJSON(w, http.StatusOK, api.UpsertToResponse(result))
}
