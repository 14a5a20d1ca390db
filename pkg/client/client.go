// Package client is a Go client for the embedding proxy HTTP API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/formbricks/embedproxy/pkg/cache"
	"github.com/formbricks/embedproxy/pkg/embeddings"
)

// DefaultBaseURL is where the service listens by default.
const DefaultBaseURL = "http://localhost:8001"

const (
	defaultTimeout      = 60 * time.Second
	defaultRetryMax     = 2
	defaultRetryWaitMin = 200 * time.Millisecond
	defaultRetryWaitMax = 2 * time.Second
	maxErrorBodyBytes   = 64 << 10
)

// ErrEmptyText is returned before any request when a text is blank.
var ErrEmptyText = errors.New("text cannot be empty")

// ErrEmptyBatch is returned before any request when a batch has no items.
var ErrEmptyBatch = errors.New("batch cannot be empty")

// ErrCountMismatch is returned when the service answers a batch with the wrong number of vectors.
var ErrCountMismatch = errors.New("embedding count does not match input count")

// ClientOptions configures the embedding service client
type ClientOptions struct {
	// BaseURL of the service (default: DefaultBaseURL)
	BaseURL string
	// RetryMax is the maximum number of retries on 5xx and connection errors (default: 2, negative disables)
	RetryMax int
	// RetryWaitMin is the minimum backoff between retries (default: 200ms)
	RetryWaitMin time.Duration
	// Timeout is the HTTP client timeout per attempt (default: 60 seconds, batches can be slow)
	Timeout time.Duration
	// CacheSize enables an in-memory LRU of embeddings when > 0
	CacheSize int
	// Logger receives retry logs; nil disables them
	Logger *slog.Logger
}

// Client calls the embedding service. Safe for concurrent use.
type Client struct {
	baseURL    string
	httpClient *retryablehttp.Client
	cache      *cache.EmbeddingCache
}

// NewClient creates a client for baseURL with default settings
func NewClient(baseURL string) (*Client, error) {
	return NewClientWithOptions(ClientOptions{BaseURL: baseURL})
}

// NewClientWithOptions creates a client with custom options
func NewClientWithOptions(opts ClientOptions) (*Client, error) {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}

	if opts.Timeout == 0 {
		opts.Timeout = defaultTimeout
	}

	switch {
	case opts.RetryMax == 0:
		opts.RetryMax = defaultRetryMax
	case opts.RetryMax < 0:
		opts.RetryMax = 0
	}

	if opts.RetryWaitMin == 0 {
		opts.RetryWaitMin = defaultRetryWaitMin
	}

	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = opts.RetryMax
	retryClient.RetryWaitMin = opts.RetryWaitMin
	retryClient.RetryWaitMax = max(defaultRetryWaitMax, opts.RetryWaitMin)
	retryClient.HTTPClient.Timeout = opts.Timeout
	// Hand the final response back so problem details can be decoded.
	retryClient.ErrorHandler = retryablehttp.PassthroughErrorHandler
	retryClient.Logger = nil // Disable logging by default

	if opts.Logger != nil {
		retryClient.Logger = opts.Logger
	}

	c := &Client{
		baseURL:    strings.TrimSuffix(opts.BaseURL, "/"),
		httpClient: retryClient,
	}

	if opts.CacheSize > 0 {
		embeddingCache, err := cache.New(opts.CacheSize)
		if err != nil {
			return nil, fmt.Errorf("create embedding cache: %w", err)
		}

		c.cache = embeddingCache
	}

	return c, nil
}

// Embed returns the embedding for text.
func (c *Client) Embed(ctx context.Context, text string) ([]float64, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyText
	}

	if c.cache == nil {
		return c.embed(ctx, text)
	}

	vec, _, err := c.cache.Get(ctx, c.baseURL, text, c.embed)

	return vec, err
}

func (c *Client) embed(ctx context.Context, text string) ([]float64, error) {
	var out EmbedResponse
	if err := c.post(ctx, "/embed", EmbedRequest{Text: text}, &out); err != nil {
		return nil, err
	}

	return out.Embedding, nil
}

// EmbedBatch returns one embedding per text, in input order.
// With a cache, only uncached texts are sent, in a single batch request.
func (c *Client) EmbedBatch(ctx context.Context, texts []string) ([][]float64, error) {
	if len(texts) == 0 {
		return nil, ErrEmptyBatch
	}

	for i, text := range texts {
		if strings.TrimSpace(text) == "" {
			return nil, fmt.Errorf("item %d: %w", i, ErrEmptyText)
		}
	}

	out := make([][]float64, len(texts))
	missing := make([]int, 0, len(texts))

	for i, text := range texts {
		if c.cache != nil {
			if vec, ok := c.cache.Peek(c.baseURL, text); ok {
				out[i] = vec

				continue
			}
		}

		missing = append(missing, i)
	}

	if len(missing) == 0 {
		return out, nil
	}

	req := make([]EmbedRequest, len(missing))
	for j, i := range missing {
		req[j] = EmbedRequest{Text: texts[i]}
	}

	var resp BatchResponse
	if err := c.post(ctx, "/embed/batch", req, &resp); err != nil {
		return nil, err
	}

	if len(resp.Embeddings) != len(missing) {
		return nil, fmt.Errorf("%w: sent %d, got %d", ErrCountMismatch, len(missing), len(resp.Embeddings))
	}

	for j, i := range missing {
		out[i] = resp.Embeddings[j]
		if c.cache != nil {
			c.cache.Put(c.baseURL, texts[i], resp.Embeddings[j])
		}
	}

	return out, nil
}

// Health returns the service health report.
func (c *Client) Health(ctx context.Context) (*HealthResponse, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	var out HealthResponse
	if err := c.do(req, &out); err != nil {
		return nil, err
	}

	return &out, nil
}

// Match is a candidate ranked against a query.
type Match struct {
	Index int
	Text  string
	Score float64
}

// FindMostSimilar embeds query and candidates in one batch and returns the
// candidate with the highest cosine similarity to the query.
func (c *Client) FindMostSimilar(ctx context.Context, query string, candidates []string) (*Match, error) {
	if len(candidates) == 0 {
		return nil, embeddings.ErrNoCandidates
	}

	vectors, err := c.EmbedBatch(ctx, append([]string{query}, candidates...))
	if err != nil {
		return nil, err
	}

	idx, score, err := embeddings.MostSimilar(vectors[0], vectors[1:])
	if err != nil {
		return nil, fmt.Errorf("rank candidates: %w", err)
	}

	return &Match{Index: idx, Text: candidates[idx], Score: score}, nil
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	return c.do(req, out)
}

func (c *Client) do(req *retryablehttp.Request, out any) error {
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			slog.Error("Failed to close response body", "error", err)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return newAPIError(resp)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}

	return nil
}
