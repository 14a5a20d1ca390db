// Package ollama provides embeddings from a local Ollama server.
package ollama

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	ollamaapi "github.com/ollama/ollama/api"
)

var (
	// ErrEmptyInput is returned when CreateEmbedding is called with empty input.
	ErrEmptyInput = errors.New("ollama: input text is empty")
	// ErrNoEmbeddingInResponse is returned when the server returns an empty embedding.
	ErrNoEmbeddingInResponse = errors.New("ollama: no embedding in response")
)

const (
	// DefaultModel is the embedding model used when none is configured.
	DefaultModel = "nomic-embed-text"
	// DefaultHost is where a local Ollama listens by default.
	DefaultHost = "http://localhost:11434"
)

// Client calls the Ollama embeddings endpoint.
type Client struct {
	client *ollamaapi.Client
	model  string
}

// NewClient creates an Ollama client for host (DefaultHost when empty).
// httpClient may be nil to use http.DefaultClient.
func NewClient(host, model string, httpClient *http.Client) (*Client, error) {
	if host == "" {
		host = DefaultHost
	}

	base, err := url.Parse(host)
	if err != nil {
		return nil, fmt.Errorf("parse ollama host: %w", err)
	}

	if model == "" {
		model = DefaultModel
	}

	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	return &Client{
		client: ollamaapi.NewClient(base, httpClient),
		model:  model,
	}, nil
}

// Model returns the embedding model sent with every request.
func (c *Client) Model() string {
	return c.model
}

// CreateEmbedding returns the embedding vector for the given text.
func (c *Client) CreateEmbedding(ctx context.Context, input string) ([]float64, error) {
	if strings.TrimSpace(input) == "" {
		return nil, ErrEmptyInput
	}

	resp, err := c.client.Embeddings(ctx, &ollamaapi.EmbeddingRequest{
		Model:  c.model,
		Prompt: input,
	})
	if err != nil {
		return nil, fmt.Errorf("ollama embedding: %w", err)
	}

	if len(resp.Embedding) == 0 {
		return nil, ErrNoEmbeddingInResponse
	}

	out := make([]float64, len(resp.Embedding))
	copy(out, resp.Embedding)

	return out, nil
}
