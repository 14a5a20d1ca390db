package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// EmbeddingMetrics records embedding request metrics.
type EmbeddingMetrics interface {
	RecordEmbeddingOutcome(ctx context.Context, provider, mode, status string)
	RecordEmbeddingDuration(ctx context.Context, provider, mode, status string, duration time.Duration)
	RecordBatchSize(ctx context.Context, size int)
	RecordDimensions(ctx context.Context, provider string, dimensions int)
	RecordRateLimiterWait(ctx context.Context, duration time.Duration)
}

// embeddingMetrics implements EmbeddingMetrics.
type embeddingMetrics struct {
	requests   metric.Int64Counter
	duration   metric.Float64Histogram
	batchSize  metric.Int64Histogram
	dimensions metric.Int64Gauge
	limiter    metric.Float64Histogram
}

// NewEmbeddingMetrics creates EmbeddingMetrics. Returns (nil, nil) when meter is nil (metrics disabled).
func NewEmbeddingMetrics(meter metric.Meter) (EmbeddingMetrics, error) {
	if meter == nil {
		//nolint:nilnil // intentional: callers use "if metrics != nil" when metrics disabled
		return nil, nil
	}

	requests, err := meter.Int64Counter(
		MetricNameEmbeddingRequests,
		metric.WithDescription("Total embedding requests by provider, mode and outcome"),
	)
	if err != nil {
		return nil, fmt.Errorf("create embedding requests counter: %w", err)
	}

	duration, err := meter.Float64Histogram(
		MetricNameEmbeddingDuration,
		metric.WithDescription("Embedding request duration including upstream calls (seconds)"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("create embedding duration histogram: %w", err)
	}

	batchSize, err := meter.Int64Histogram(
		MetricNameEmbeddingBatchSize,
		metric.WithDescription("Number of texts per batch request"),
		metric.WithExplicitBucketBoundaries(1, 2, 5, 10, 25, 50, 100, 250),
	)
	if err != nil {
		return nil, fmt.Errorf("create embedding batch size histogram: %w", err)
	}

	dimensions, err := meter.Int64Gauge(
		MetricNameEmbeddingDimensions,
		metric.WithDescription("Length of the last embedding returned by the provider"),
	)
	if err != nil {
		return nil, fmt.Errorf("create embedding dimensions gauge: %w", err)
	}

	limiter, err := meter.Float64Histogram(
		MetricNameRateLimiterWait,
		metric.WithDescription("Time spent waiting on the upstream rate limiter (seconds)"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("create rate limiter wait histogram: %w", err)
	}

	return &embeddingMetrics{
		requests:   requests,
		duration:   duration,
		batchSize:  batchSize,
		dimensions: dimensions,
		limiter:    limiter,
	}, nil
}

func (e *embeddingMetrics) RecordEmbeddingOutcome(ctx context.Context, provider, mode, status string) {
	e.requests.Add(ctx, 1, metric.WithAttributeSet(outcomeAttrs(provider, mode, status)))
}

func (e *embeddingMetrics) RecordEmbeddingDuration(ctx context.Context, provider, mode, status string, duration time.Duration) {
	e.duration.Record(ctx, duration.Seconds(), metric.WithAttributeSet(outcomeAttrs(provider, mode, status)))
}

func (e *embeddingMetrics) RecordBatchSize(ctx context.Context, size int) {
	e.batchSize.Record(ctx, int64(size))
}

func (e *embeddingMetrics) RecordDimensions(ctx context.Context, provider string, dimensions int) {
	e.dimensions.Record(ctx, int64(dimensions),
		metric.WithAttributes(attribute.String(AttrProvider, NormalizeProvider(provider))))
}

func (e *embeddingMetrics) RecordRateLimiterWait(ctx context.Context, duration time.Duration) {
	e.limiter.Record(ctx, duration.Seconds())
}

func outcomeAttrs(provider, mode, status string) attribute.Set {
	return attribute.NewSet(
		attribute.String(AttrProvider, NormalizeProvider(provider)),
		attribute.String(AttrMode, normalizeMode(mode)),
		attribute.String(AttrStatus, NormalizeStatus(status)),
	)
}
