// Package handlers exposes the sync, job and direct-entry endpoints over
// net/http.
package handlers

import (
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/machinehub/machinehub/internal/api"
	"github.com/machinehub/machinehub/internal/metrics"
	"github.com/machinehub/machinehub/internal/middleware"
)

// Version is reported by the health endpoint. Overridden at build time.
var Version = "dev"

// HTTPHandler serves health and metrics.
type HTTPHandler struct {
	metrics *metrics.Metrics
}

// NewHTTPHandler creates a new HTTP handler. m may be nil.
func NewHTTPHandler(m *metrics.Metrics) *HTTPHandler {
	return &HTTPHandler{metrics: m}
}

// SetupRoutes configures the operational routes.
func (h *HTTPHandler) SetupRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/health", h.handleHealth)
	mux.Handle("GET /metrics", h.metrics.Handler())
}

func (h *HTTPHandler) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		api.RespondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	api.RespondJSON(w, http.StatusOK, api.HealthResponse{Status: "ok", Version: Version})
}

// Router bundles every handler behind the middleware chain.
type Router struct {
	HTTP        *HTTPHandler
	Integration *IntegrationHandler
	Jobs        *JobHandler
	API         *APIHandler

	Logger         logrus.FieldLogger
	AllowedOrigins []string
}

// Handler builds the mux and wraps it as request id, request logging, CORS.
func (rt Router) Handler() http.Handler {
	mux := http.NewServeMux()
	if rt.HTTP != nil {
		rt.HTTP.SetupRoutes(mux)
	}
	if rt.Integration != nil {
		rt.Integration.SetupRoutes(mux)
	}
	if rt.Jobs != nil {
		rt.Jobs.SetupRoutes(mux)
	}
	if rt.API != nil {
		rt.API.SetupRoutes(mux)
	}

	logger := rt.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return middleware.Chain(mux,
		middleware.RequestIDMiddleware,
		middleware.RequestLogger(logger),
		middleware.NewCORSMiddleware(rt.AllowedOrigins...).Wrap,
	)
}
