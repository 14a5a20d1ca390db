package observability

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// bodySizeBounds (bytes) spans a short sentence up to the default 1 MiB body limit.
var bodySizeBounds = []float64{64, 256, 1024, 4096, 16384, 65536, 262144, 1048576}

// APIMetrics records request-body metrics for the embedding routes.
type APIMetrics interface {
	// RecordRequestBodyTooLarge counts a request rejected with 413 on route.
	RecordRequestBodyTooLarge(ctx context.Context, route string)
	// RecordRequestBodySize records the bytes read from an accepted body on route.
	RecordRequestBodySize(ctx context.Context, route string, size int64)
}

type apiMetrics struct {
	bodyTooLarge metric.Int64Counter
	bodySize     metric.Int64Histogram
}

// NewAPIMetrics creates APIMetrics. Returns (nil, nil) when meter is nil (metrics disabled).
func NewAPIMetrics(meter metric.Meter) (APIMetrics, error) {
	if meter == nil {
		//nolint:nilnil // intentional: callers use "if metrics != nil" when metrics disabled
		return nil, nil
	}

	tooLarge, err := meter.Int64Counter(
		MetricNameRequestBodyTooLarge,
		metric.WithDescription("Embedding requests rejected because the body exceeded MAX_REQUEST_BODY_BYTES (413), by route."),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, fmt.Errorf("create request body too large counter: %w", err)
	}

	size, err := meter.Int64Histogram(
		MetricNameRequestBodySize,
		metric.WithDescription("Size of accepted embedding request bodies, by route."),
		metric.WithUnit("By"),
		metric.WithExplicitBucketBoundaries(bodySizeBounds...),
	)
	if err != nil {
		return nil, fmt.Errorf("create request body size histogram: %w", err)
	}

	return &apiMetrics{bodyTooLarge: tooLarge, bodySize: size}, nil
}

func (a *apiMetrics) RecordRequestBodyTooLarge(ctx context.Context, route string) {
	a.bodyTooLarge.Add(ctx, 1, metric.WithAttributes(attribute.String(AttrRoute, normalizeRoute(route))))
}

func (a *apiMetrics) RecordRequestBodySize(ctx context.Context, route string, size int64) {
	a.bodySize.Record(ctx, size, metric.WithAttributes(attribute.String(AttrRoute, normalizeRoute(route))))
}
