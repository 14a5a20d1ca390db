// Package gateway calls a generic OpenAI-compatible AI gateway over HTTP for embeddings.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/formbricks/embedproxy/internal/observability"
)

var (
	// ErrEmptyInput is returned when CreateEmbedding is called with empty input.
	ErrEmptyInput = errors.New("gateway: input text is empty")
	// ErrMissingURL is returned by NewClient when no gateway URL is given.
	ErrMissingURL = errors.New("gateway: url is required")
	// ErrNoEmbeddingInResponse is returned when the response body has no data[0].embedding.
	ErrNoEmbeddingInResponse = errors.New("gateway: no embedding in response")
)

// DefaultModel is the embedding model used when none is configured.
const DefaultModel = "text-embedding-ada-002"

// maxErrorBodyBytes bounds how much of an error response is kept for the error message.
const maxErrorBodyBytes = 4096

// StatusError is returned when the gateway answers with a non-2xx status.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("gateway request failed with status %d: %s", e.StatusCode, e.Body)
}

// ClientOptions configures the gateway client.
type ClientOptions struct {
	// URL is the full embeddings endpoint, e.g. https://gateway.example.com/v1/embeddings.
	URL    string
	APIKey string
	// Model is sent as "model" in every request (default: text-embedding-ada-002).
	Model string
	// HTTPClient overrides the underlying transport client (tests).
	HTTPClient *http.Client
}

// Client is the gateway embeddings client.
type Client struct {
	url        string
	apiKey     string
	model      string
	httpClient *retryablehttp.Client
}

type embeddingRequest struct {
	Model string `json:"model"`
	Input string `json:"input"`
}

type embeddingResponse struct {
	Data []struct {
		Embedding []float64 `json:"embedding"`
	} `json:"data"`
	Model string `json:"model"`
}

// NewClient creates a gateway client. Retries are disabled and the caller's context bounds each call.
func NewClient(opts ClientOptions) (*Client, error) {
	if strings.TrimSpace(opts.URL) == "" {
		return nil, ErrMissingURL
	}

	if opts.Model == "" {
		opts.Model = DefaultModel
	}

	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = 0
	retryClient.Logger = nil // we log at the service layer
	// Hand the last response back untouched so the status and body reach the caller.
	retryClient.ErrorHandler = retryablehttp.PassthroughErrorHandler

	if opts.HTTPClient != nil {
		retryClient.HTTPClient = opts.HTTPClient
	}

	return &Client{
		url:        opts.URL,
		apiKey:     opts.APIKey,
		model:      opts.Model,
		httpClient: retryClient,
	}, nil
}

// Model returns the embedding model sent with every request.
func (c *Client) Model() string {
	return c.model
}

// CreateEmbedding posts {model, input} to the gateway and returns data[0].embedding.
func (c *Client) CreateEmbedding(ctx context.Context, input string) ([]float64, error) {
	if strings.TrimSpace(input) == "" {
		return nil, ErrEmptyInput
	}

	payload, err := json.Marshal(embeddingRequest{Model: c.model, Input: input})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	if id := observability.RequestIDFromContext(ctx); id != "" {
		req.Header.Set(observability.RequestIDHeader, id)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if resp != nil {
			_ = resp.Body.Close()
		}

		return nil, fmt.Errorf("gateway request: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			slog.Error("Failed to close response body", "error", err)
		}
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		if err != nil {
			slog.Error("Failed to read error response body", "error", err)
		}

		return nil, &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	var out embeddingResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	if len(out.Data) == 0 || len(out.Data[0].Embedding) == 0 {
		return nil, ErrNoEmbeddingInResponse
	}

	return out.Data[0].Embedding, nil
}
