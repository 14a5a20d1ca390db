package handlers

import (
	"net/http"

	"github.com/formbricks/embedproxy/internal/api/response"
	"github.com/formbricks/embedproxy/internal/service"
)

// ServiceName identifies this service in health and info payloads.
const ServiceName = "embedding-service"

// StatusReporter reports provider status without calling upstream.
type StatusReporter interface {
	Status() service.Status
}

// HealthResponse is the response for GET /health.
type HealthResponse struct {
	Status                string `json:"status"`
	Service               string `json:"service"`
	Provider              string `json:"provider"`
	Model                 string `json:"model,omitempty"`
	CredentialsConfigured bool   `json:"credentials_configured"`
}

// HealthHandler handles health check requests.
type HealthHandler struct {
	status StatusReporter
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(status StatusReporter) *HealthHandler {
	return &HealthHandler{status: status}
}

// Check handles GET /health. It always answers 200 and never calls the upstream provider.
func (h *HealthHandler) Check(w http.ResponseWriter, _ *http.Request) {
	st := h.status.Status()

	response.RespondJSON(w, http.StatusOK, HealthResponse{
		Status:                "healthy",
		Service:               ServiceName,
		Provider:              st.Provider,
		Model:                 st.Model,
		CredentialsConfigured: st.CredentialsConfigured,
	})
}
