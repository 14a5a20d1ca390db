package client

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// EmbedRequest is the body of POST /embed and one item of POST /embed/batch.
type EmbedRequest struct {
	Text string `json:"text"`
}

// EmbedResponse is returned by POST /embed.
type EmbedResponse struct {
	Embedding []float64 `json:"embedding"`
	Model     string    `json:"model,omitempty"`
}

// BatchResponse is returned by POST /embed/batch.
type BatchResponse struct {
	Embeddings [][]float64 `json:"embeddings"`
	Model      string      `json:"model,omitempty"`
}

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	Status                string `json:"status"`
	Service               string `json:"service"`
	Provider              string `json:"provider"`
	Model                 string `json:"model"`
	CredentialsConfigured bool   `json:"credentials_configured"`
}

// APIError is a non-200 answer from the service, decoded from its problem details when present.
type APIError struct {
	StatusCode int    `json:"status"`
	Title      string `json:"title"`
	Detail     string `json:"detail"`
}

func (e *APIError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("embedding service returned %d: %s", e.StatusCode, e.Detail)
	}

	return fmt.Sprintf("embedding service returned %d", e.StatusCode)
}

// IsValidation reports whether the service rejected the input.
func (e *APIError) IsValidation() bool { return e.StatusCode == http.StatusBadRequest }

// IsTimeout reports whether the upstream provider timed out.
func (e *APIError) IsTimeout() bool { return e.StatusCode == http.StatusRequestTimeout }

func newAPIError(resp *http.Response) *APIError {
	apiErr := &APIError{}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
	if err == nil && len(body) > 0 {
		if jsonErr := json.Unmarshal(body, apiErr); jsonErr != nil {
			apiErr.Detail = string(body)
		}
	}

	apiErr.StatusCode = resp.StatusCode
	if apiErr.Title == "" {
		apiErr.Title = http.StatusText(resp.StatusCode)
	}

	return apiErr
}
