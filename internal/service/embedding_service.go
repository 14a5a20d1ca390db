package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"github.com/formbricks/embedproxy/internal/embeddings"
	"github.com/formbricks/embedproxy/internal/observability"
	"github.com/formbricks/embedproxy/internal/proxyerrors"
)

// DefaultUpstreamTimeout bounds a single upstream embedding call.
const DefaultUpstreamTimeout = 30 * time.Second

// logPreviewRunes is how much of the input text is logged.
const logPreviewRunes = 50

var errEmptyEmbedding = errors.New("no embedding data in provider response")

// EmbeddingResult is the outcome of a single embedding request.
type EmbeddingResult struct {
	Embedding []float64
	Model     string
}

// BatchResult is the outcome of a batch request; Embeddings[i] belongs to input i.
type BatchResult struct {
	Embeddings [][]float64
	Model      string
}

// Status describes the configured upstream without calling it.
type Status struct {
	Provider              string
	Model                 string
	CredentialsConfigured bool
}

// EmbeddingServiceParams configures EmbeddingService.
// Provider is nil when credentials are missing; every call then fails with a ConfigError
// carrying MissingConfig. RateLimiter and Metrics may be nil.
type EmbeddingServiceParams struct {
	Provider      embeddings.Provider
	ProviderName  string
	Model         string
	MissingConfig string
	Timeout       time.Duration
	RateLimiter   *rate.Limiter
	Metrics       observability.EmbeddingMetrics
	Logger        *slog.Logger
}

// EmbeddingService forwards text to the configured upstream provider and classifies failures.
// It holds no mutable state and is safe for concurrent use.
type EmbeddingService struct {
	provider      embeddings.Provider
	providerName  string
	model         string
	missingConfig string
	timeout       time.Duration
	limiter       *rate.Limiter
	metrics       observability.EmbeddingMetrics
	logger        *slog.Logger
	tracer        trace.Tracer
}

// NewEmbeddingService creates an EmbeddingService.
func NewEmbeddingService(p EmbeddingServiceParams) *EmbeddingService {
	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}

	timeout := p.Timeout
	if timeout <= 0 {
		timeout = DefaultUpstreamTimeout
	}

	model := p.Model
	if model == "" && p.Provider != nil {
		model = p.Provider.Model()
	}

	missing := p.MissingConfig
	if missing == "" {
		missing = "embedding provider not configured"
	}

	return &EmbeddingService{
		provider:      p.Provider,
		providerName:  p.ProviderName,
		model:         model,
		missingConfig: missing,
		timeout:       timeout,
		limiter:       p.RateLimiter,
		metrics:       p.Metrics,
		logger:        logger,
		tracer:        observability.Tracer(),
	}
}

// Status reports the provider, model and whether credentials are configured.
func (s *EmbeddingService) Status() Status {
	return Status{
		Provider:              s.providerName,
		Model:                 s.model,
		CredentialsConfigured: s.provider != nil,
	}
}

// Embed returns the embedding for text. The vector is passed through unchanged.
func (s *EmbeddingService) Embed(ctx context.Context, text string) (*EmbeddingResult, error) {
	start := time.Now()

	ctx, span := s.tracer.Start(ctx, "embedding.embed", trace.WithAttributes(
		attribute.String("embedding.provider", s.providerName),
		attribute.String("embedding.model", s.model),
		attribute.Int("embedding.text_length", len(text)),
	))
	defer span.End()

	emb, err := s.embed(ctx, text)
	s.recordOutcome(ctx, span, observability.ModeSingle, start, err)

	if err != nil {
		return nil, err
	}

	return &EmbeddingResult{Embedding: emb, Model: s.model}, nil
}

func (s *EmbeddingService) embed(ctx context.Context, text string) ([]float64, error) {
	if err := ValidateText(text); err != nil {
		return nil, err
	}

	if s.provider == nil {
		s.logger.ErrorContext(ctx, "embedding: provider not configured",
			"provider", s.providerName, "reason", s.missingConfig)

		return nil, proxyerrors.NewConfigError(s.missingConfig)
	}

	return s.callProvider(ctx, text)
}

// EmbedBatch embeds each text in input order, one upstream call at a time.
// All texts are validated before any upstream call; the first failure aborts the whole batch.
func (s *EmbeddingService) EmbedBatch(ctx context.Context, texts []string) (*BatchResult, error) {
	start := time.Now()

	ctx, span := s.tracer.Start(ctx, "embedding.embed_batch", trace.WithAttributes(
		attribute.String("embedding.provider", s.providerName),
		attribute.String("embedding.model", s.model),
		attribute.Int("embedding.batch_size", len(texts)),
	))
	defer span.End()

	out, err := s.embedBatch(ctx, texts)
	s.recordOutcome(ctx, span, observability.ModeBatch, start, err)

	if err != nil {
		return nil, err
	}

	return &BatchResult{Embeddings: out, Model: s.model}, nil
}

func (s *EmbeddingService) embedBatch(ctx context.Context, texts []string) ([][]float64, error) {
	if err := ValidateBatch(texts); err != nil {
		return nil, err
	}

	if s.provider == nil {
		s.logger.ErrorContext(ctx, "embedding: provider not configured",
			"provider", s.providerName, "reason", s.missingConfig)

		return nil, proxyerrors.NewConfigError(s.missingConfig)
	}

	if s.metrics != nil {
		s.metrics.RecordBatchSize(ctx, len(texts))
	}

	s.logger.InfoContext(ctx, "embedding: batch started", "provider", s.providerName, "count", len(texts))

	out := make([][]float64, 0, len(texts))

	for i, text := range texts {
		emb, err := s.callProvider(ctx, text)
		if err != nil {
			s.logger.WarnContext(ctx, "embedding: batch aborted", "index", i, "count", len(texts), "error", err)

			return nil, err
		}

		out = append(out, emb)
	}

	return out, nil
}

// callProvider runs one upstream call under the upstream timeout and classifies its error.
func (s *EmbeddingService) callProvider(ctx context.Context, text string) ([]float64, error) {
	s.logger.DebugContext(ctx, "embedding: calling provider",
		"provider", s.providerName,
		"model", s.model,
		"text_length", len(text),
		"text_preview", preview(text, logPreviewRunes),
	)

	// The limiter wait counts toward the upstream timeout.
	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if err := s.wait(callCtx); err != nil {
		s.logger.WarnContext(ctx, "embedding: rate limiter wait failed",
			"provider", s.providerName, "error", err)

		return nil, s.classify(err)
	}

	emb, err := s.provider.CreateEmbedding(callCtx, text)
	if err != nil {
		classified := s.classify(err)
		s.logger.ErrorContext(ctx, "embedding: provider call failed",
			"provider", s.providerName, "model", s.model, "error", err)

		return nil, classified
	}

	if len(emb) == 0 {
		return nil, proxyerrors.NewUpstreamError(s.providerName, errEmptyEmbedding)
	}

	if s.metrics != nil {
		s.metrics.RecordDimensions(ctx, s.providerName, len(emb))
	}

	s.logger.DebugContext(ctx, "embedding: generated", "provider", s.providerName, "dimensions", len(emb))

	return emb, nil
}

func (s *EmbeddingService) wait(ctx context.Context) error {
	if s.limiter == nil {
		return nil
	}

	start := time.Now()
	err := s.limiter.Wait(ctx)

	if s.metrics != nil {
		s.metrics.RecordRateLimiterWait(ctx, time.Since(start))
	}

	if err != nil {
		// Wait fails early, with a plain error, when the next token lies past the deadline.
		if _, ok := ctx.Deadline(); ok && ctx.Err() == nil {
			return fmt.Errorf("rate limiter wait: %w: %w", context.DeadlineExceeded, err)
		}

		return fmt.Errorf("rate limiter wait: %w", err)
	}

	return nil
}

// classify maps a raw provider error to one of the upstream outcome types.
func (s *EmbeddingService) classify(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return proxyerrors.NewUpstreamTimeoutError(s.providerName, err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return proxyerrors.NewUpstreamTimeoutError(s.providerName, err)
		}

		return proxyerrors.NewUpstreamNetworkError(s.providerName, err)
	}

	var (
		urlErr *url.Error
		opErr  *net.OpError
	)
	if errors.As(err, &urlErr) || errors.As(err, &opErr) {
		return proxyerrors.NewUpstreamNetworkError(s.providerName, err)
	}

	return proxyerrors.NewUpstreamError(s.providerName, err)
}

func (s *EmbeddingService) recordOutcome(ctx context.Context, span trace.Span, mode string, start time.Time, err error) {
	status := outcomeStatus(err)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, status)
	}

	if s.metrics == nil {
		return
	}

	s.metrics.RecordEmbeddingOutcome(ctx, s.providerName, mode, status)
	s.metrics.RecordEmbeddingDuration(ctx, s.providerName, mode, status, time.Since(start))
}

func outcomeStatus(err error) string {
	switch {
	case err == nil:
		return observability.StatusSuccess
	case errors.Is(err, proxyerrors.ErrValidation):
		return observability.StatusValidationError
	case errors.Is(err, proxyerrors.ErrConfig):
		return observability.StatusConfigError
	case errors.Is(err, proxyerrors.ErrUpstreamTimeout):
		return observability.StatusTimeout
	case errors.Is(err, proxyerrors.ErrUpstreamNetwork):
		return observability.StatusNetworkError
	default:
		return observability.StatusUpstreamError
	}
}

// ValidateText rejects text that is empty after trimming whitespace.
func ValidateText(text string) error {
	if strings.TrimSpace(text) == "" {
		return proxyerrors.NewValidationError("text", "Text cannot be empty")
	}

	return nil
}

// ValidateBatch rejects an empty batch or any blank item.
func ValidateBatch(texts []string) error {
	if len(texts) == 0 {
		return proxyerrors.NewValidationError("texts", "Batch cannot be empty")
	}

	for i, text := range texts {
		if strings.TrimSpace(text) == "" {
			return proxyerrors.NewValidationError(
				fmt.Sprintf("[%d].text", i),
				fmt.Sprintf("Text at index %d cannot be empty", i),
			)
		}
	}

	return nil
}

func preview(text string, n int) string {
	r := []rune(text)
	if len(r) <= n {
		return text
	}

	return string(r[:n]) + "..."
}
