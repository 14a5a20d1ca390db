package handlers

import (
	"net/http"

	"github.com/formbricks/embedproxy/internal/api/response"
)

// InfoResponse is the static service metadata returned by GET /.
type InfoResponse struct {
	Service   string            `json:"service"`
	Version   string            `json:"version"`
	Endpoints map[string]string `json:"endpoints"`
	Status    string            `json:"status"`
}

// InfoHandler serves GET /.
type InfoHandler struct {
	info InfoResponse
}

// NewInfoHandler builds the info payload once. testEnabled and metricsEnabled add their routes.
func NewInfoHandler(version string, testEnabled, metricsEnabled bool) *InfoHandler {
	endpoints := map[string]string{
		"health":      "/health",
		"embed":       "/embed",
		"embed_batch": "/embed/batch",
	}
	if testEnabled {
		endpoints["test"] = "/test"
	}

	if metricsEnabled {
		endpoints["metrics"] = "/metrics"
	}

	return &InfoHandler{info: InfoResponse{
		Service:   "Embedding Service",
		Version:   version,
		Endpoints: endpoints,
		Status:    "running",
	}}
}

// Info handles GET /.
func (h *InfoHandler) Info(w http.ResponseWriter, r *http.Request) {
	// "GET /" also matches every unregistered path.
	if r.URL.Path != "/" {
		response.RespondError(w, http.StatusNotFound, "Not Found", "no route for "+r.URL.Path)

		return
	}

	response.RespondJSON(w, http.StatusOK, h.info)
}
