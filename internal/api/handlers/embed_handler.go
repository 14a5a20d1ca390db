package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/formbricks/embedproxy/internal/api/response"
	"github.com/formbricks/embedproxy/internal/api/validation"
	"github.com/formbricks/embedproxy/internal/proxyerrors"
	"github.com/formbricks/embedproxy/internal/service"
)

// EmbeddingService defines the interface the embedding handlers depend on.
type EmbeddingService interface {
	Embed(ctx context.Context, text string) (*service.EmbeddingResult, error)
	EmbedBatch(ctx context.Context, texts []string) (*service.BatchResult, error)
	Status() service.Status
}

// EmbedRequest is the body for POST /embed and one item of POST /embed/batch.
type EmbedRequest struct {
	Text string `json:"text" validate:"not_blank"`
}

// BatchRequest wraps the JSON array body of POST /embed/batch for validation.
type BatchRequest struct {
	Items []EmbedRequest `json:"items" validate:"min=1,dive"`
}

// EmbedResponse is the response for POST /embed. Model is set only when model echo is enabled.
type EmbedResponse struct {
	Embedding []float64 `json:"embedding"`
	Model     string    `json:"model,omitempty"`
}

// BatchResponse is the response for POST /embed/batch; Embeddings[i] belongs to request item i.
type BatchResponse struct {
	Embeddings [][]float64 `json:"embeddings"`
	Model      string      `json:"model,omitempty"`
}

// EmbedHandler handles the embedding endpoints.
type EmbedHandler struct {
	service      EmbeddingService
	includeModel bool
}

// NewEmbedHandler creates an embed handler. includeModel controls whether responses echo the model.
func NewEmbedHandler(service EmbeddingService, includeModel bool) *EmbedHandler {
	return &EmbedHandler{service: service, includeModel: includeModel}
}

// Embed handles POST /embed.
func (h *EmbedHandler) Embed(w http.ResponseWriter, r *http.Request) {
	var req EmbedRequest
	if err := validation.DecodeJSON(r, &req); err != nil {
		respondDecodeError(w, err, "Invalid request body")

		return
	}

	if err := validation.ValidateStruct(&req); err != nil {
		validation.RespondValidationError(w, err)

		return
	}

	res, err := h.service.Embed(r.Context(), req.Text)
	if err != nil {
		respondEmbeddingError(r.Context(), w, "Failed to generate embedding", err)

		return
	}

	out := EmbedResponse{Embedding: res.Embedding}
	if h.includeModel {
		out.Model = res.Model
	}

	response.RespondJSON(w, http.StatusOK, out)
}

// EmbedBatch handles POST /embed/batch. The body is a JSON array of EmbedRequest.
func (h *EmbedHandler) EmbedBatch(w http.ResponseWriter, r *http.Request) {
	var req BatchRequest
	if err := validation.DecodeJSON(r, &req.Items); err != nil {
		respondDecodeError(w, err, "Invalid request body: expected a JSON array of {\"text\": string}")

		return
	}

	if err := validation.ValidateStruct(&req); err != nil {
		validation.RespondValidationError(w, err)

		return
	}

	texts := make([]string, len(req.Items))
	for i, item := range req.Items {
		texts[i] = item.Text
	}

	res, err := h.service.EmbedBatch(r.Context(), texts)
	if err != nil {
		respondEmbeddingError(r.Context(), w, "Failed to generate batch embeddings", err)

		return
	}

	out := BatchResponse{Embeddings: res.Embeddings}
	if h.includeModel {
		out.Model = res.Model
	}

	response.RespondJSON(w, http.StatusOK, out)
}

// respondDecodeError answers 413 when the body hit the size cap and 400 for anything else.
func respondDecodeError(w http.ResponseWriter, err error, detail string) {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		response.RespondBodyTooLarge(w, maxErr.Limit)

		return
	}

	response.RespondBadRequest(w, detail)
}

// respondEmbeddingError maps an embedding outcome error to its HTTP status.
// prefix is prepended to upstream application errors.
func respondEmbeddingError(ctx context.Context, w http.ResponseWriter, prefix string, err error) {
	switch {
	case errors.Is(err, proxyerrors.ErrValidation):
		response.RespondBadRequest(w, err.Error())
	case errors.Is(err, proxyerrors.ErrConfig):
		response.RespondInternalServerError(w, err.Error())
	case errors.Is(err, proxyerrors.ErrUpstreamTimeout):
		response.RespondRequestTimeout(w, err.Error())
	case errors.Is(err, proxyerrors.ErrUpstreamNetwork):
		response.RespondError(w, http.StatusInternalServerError, "Upstream Network Error", err.Error())
	case errors.Is(err, proxyerrors.ErrUpstream):
		response.RespondError(w, http.StatusInternalServerError, "Upstream Error", prefix+": "+err.Error())
	default:
		slog.ErrorContext(ctx, "unexpected embedding error", "error", err)
		response.RespondInternalServerError(w, prefix)
	}
}
