package embeddings

import (
	"context"
	"crypto/sha256"
	"errors"
	"math/rand/v2"
	"strings"

	vectors "github.com/formbricks/embedproxy/pkg/embeddings"
)

// MockModel is the model name reported by MockProvider.
const MockModel = "mock"

// DefaultMockDimensions matches OpenAI's text-embedding-ada-002 / text-embedding-3-small.
const DefaultMockDimensions = 1536

// errEmptyText is returned by MockProvider for blank input.
var errEmptyText = errors.New("mock: text cannot be empty")

// MockProvider implements Provider without any network call.
// It generates deterministic embeddings based on the input text hash.
type MockProvider struct {
	dimensions int
}

// NewMockProvider creates a mock provider. Non-positive dimensions use DefaultMockDimensions.
func NewMockProvider(dimensions int) *MockProvider {
	if dimensions <= 0 {
		dimensions = DefaultMockDimensions
	}

	return &MockProvider{dimensions: dimensions}
}

// Model returns MockModel.
func (p *MockProvider) Model() string {
	return MockModel
}

// CreateEmbedding generates a deterministic, unit-length embedding based on the text hash.
func (p *MockProvider) CreateEmbedding(_ context.Context, input string) ([]float64, error) {
	if strings.TrimSpace(input) == "" {
		return nil, errEmptyText
	}

	return p.generateDeterministicEmbedding(input), nil
}

// generateDeterministicEmbedding creates a normalized embedding vector from text hash.
func (p *MockProvider) generateDeterministicEmbedding(text string) []float64 {
	hash := sha256.Sum256([]byte(text))
	embedding := make([]float64, p.dimensions)

	// Use hash bytes cyclically, mapped to [-1, 1]
	for i := range embedding {
		embedding[i] = (float64(hash[i%len(hash)]) / 127.5) - 1.0
	}

	vectors.NormalizeL2(embedding)

	return embedding
}

// RandomVector returns n pseudo-random values in [-1, 1). It backs the smoke-test endpoint.
func RandomVector(n int) []float64 {
	if n <= 0 {
		return []float64{}
	}

	out := make([]float64, n)
	for i := range out {
		//nolint:gosec // G404: not security sensitive
		out[i] = rand.Float64()*2 - 1
	}

	return out
}

var _ Provider = (*MockProvider)(nil)
