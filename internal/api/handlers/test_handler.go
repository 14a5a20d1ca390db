package handlers

import (
	"net/http"

	"github.com/formbricks/embedproxy/internal/api/response"
	"github.com/formbricks/embedproxy/internal/embeddings"
)

// MockEmbeddingResponse is the response for GET /test.
type MockEmbeddingResponse struct {
	Message             string `json:"message"`
	MockEmbeddingLength int    `json:"mock_embedding_length"`
}

// TestHandler serves a random vector for smoke tests without calling upstream.
type TestHandler struct {
	dimensions int
}

// NewTestHandler creates a test handler producing vectors of the given length.
func NewTestHandler(dimensions int) *TestHandler {
	if dimensions <= 0 {
		dimensions = embeddings.DefaultMockDimensions
	}

	return &TestHandler{dimensions: dimensions}
}

// Test handles GET /test.
func (h *TestHandler) Test(w http.ResponseWriter, _ *http.Request) {
	vec := embeddings.RandomVector(h.dimensions)

	response.RespondJSON(w, http.StatusOK, MockEmbeddingResponse{
		Message:             "Embedding service is working (mock response)",
		MockEmbeddingLength: len(vec),
	})
}
