package observability

import (
	"fmt"

	"go.opentelemetry.io/otel/metric"
)

// Metrics holds all proxy metric collectors. When metrics are disabled, all fields are nil.
// Components that accept an interface (EmbeddingMetrics, APIMetrics) can receive the
// corresponding field; they already handle nil.
type Metrics struct {
	Embeddings EmbeddingMetrics
	API        APIMetrics
}

// NewMetrics creates EmbeddingMetrics and APIMetrics from the given meter.
// Returns (nil, nil) when meter is nil (metrics disabled).
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	if meter == nil {
		//nolint:nilnil // intentional: callers use "if metrics != nil" when metrics disabled
		return nil, nil
	}

	embeddings, err := NewEmbeddingMetrics(meter)
	if err != nil {
		return nil, fmt.Errorf("embedding metrics: %w", err)
	}

	api, err := NewAPIMetrics(meter)
	if err != nil {
		return nil, fmt.Errorf("api metrics: %w", err)
	}

	return &Metrics{
		Embeddings: embeddings,
		API:        api,
	}, nil
}
