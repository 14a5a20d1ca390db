// Package embeddings defines the upstream provider boundary and the providers that need no vendor package of their own.
package embeddings

import "context"

// Provider generates embedding vectors for text.
// Implemented once per upstream (Gemini, OpenAI, Azure OpenAI, gateway, Ollama, mock).
type Provider interface {
	// CreateEmbedding returns the vector the upstream produced for input, unmodified.
	CreateEmbedding(ctx context.Context, input string) ([]float64, error)

	// Model returns the fixed model identifier sent upstream.
	Model() string
}
