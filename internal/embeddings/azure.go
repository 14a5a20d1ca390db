package embeddings

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/sashabaranov/go-openai"
)

// DefaultAzureModel is the deployment model used when none is configured.
const DefaultAzureModel = "text-embedding-ada-002"

var (
	errAzureEmptyText   = errors.New("azure: text cannot be empty")
	errAzureMissingURL  = errors.New("azure: endpoint is required")
	errAzureNoEmbedding = errors.New("azure: no embedding returned from API")
)

// AzureOpenAIClient implements Provider against an Azure OpenAI deployment.
type AzureOpenAIClient struct {
	client     *openai.Client
	model      openai.EmbeddingModel
	dimensions int
}

var _ Provider = (*AzureOpenAIClient)(nil)

// AzureOptions configures NewAzureOpenAIClient.
type AzureOptions struct {
	APIKey string
	// Endpoint is the resource URL, e.g. https://my-resource.openai.azure.com/.
	Endpoint string
	// Model is mapped to the deployment name (dots removed, as Azure requires).
	Model      string
	Dimensions int
	HTTPClient *http.Client
}

// NewAzureOpenAIClient creates an Azure OpenAI embedding client.
func NewAzureOpenAIClient(opts AzureOptions) (*AzureOpenAIClient, error) {
	if opts.Endpoint == "" {
		return nil, errAzureMissingURL
	}

	if opts.Model == "" {
		opts.Model = DefaultAzureModel
	}

	config := openai.DefaultAzureConfig(opts.APIKey, opts.Endpoint)
	if opts.HTTPClient != nil {
		config.HTTPClient = opts.HTTPClient
	}

	return &AzureOpenAIClient{
		client:     openai.NewClientWithConfig(config),
		model:      openai.EmbeddingModel(opts.Model),
		dimensions: opts.Dimensions,
	}, nil
}

// Model returns the embedding model sent with every request.
func (c *AzureOpenAIClient) Model() string {
	return string(c.model)
}

// CreateEmbedding generates an embedding vector for the given text.
func (c *AzureOpenAIClient) CreateEmbedding(ctx context.Context, text string) ([]float64, error) {
	if strings.TrimSpace(text) == "" {
		return nil, errAzureEmptyText
	}

	resp, err := c.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input:      []string{text},
		Model:      c.model,
		Dimensions: c.dimensions,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create embedding: %w", err)
	}

	if len(resp.Data) == 0 {
		return nil, errAzureNoEmbedding
	}

	emb := resp.Data[0].Embedding
	out := make([]float64, len(emb))
	for i, v := range emb {
		out[i] = float64(v)
	}

	return out, nil
}
