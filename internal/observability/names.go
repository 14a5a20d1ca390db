// Package observability provides OpenTelemetry metrics and tracing for the embedding proxy.
package observability

// Metric names (Prometheus / OpenTelemetry).
const (
	MetricNameEmbeddingRequests    = "embedproxy_embedding_requests_total"
	MetricNameEmbeddingDuration    = "embedproxy_embedding_duration_seconds"
	MetricNameEmbeddingBatchSize   = "embedproxy_embedding_batch_size"
	MetricNameEmbeddingDimensions  = "embedproxy_embedding_dimensions"
	MetricNameRequestBodyTooLarge  = "embedproxy_request_body_too_large_total"
	MetricNameRequestBodySize      = "embedproxy_request_body_bytes"
	MetricNameRateLimiterWait      = "embedproxy_rate_limiter_wait_seconds"
	durationInstrumentNameWildcard = "embedproxy_*_seconds"
)

// Attribute keys.
const (
	AttrProvider = "provider"
	AttrStatus   = "status"
	AttrMode     = "mode"
	AttrRoute    = "route"
)

// Routes that read a request body.
const (
	RouteEmbed      = "/embed"
	RouteEmbedBatch = "/embed/batch"
)

// Embedding outcome statuses.
const (
	StatusSuccess         = "success"
	StatusValidationError = "validation_error"
	StatusConfigError     = "config_error"
	StatusTimeout         = "timeout"
	StatusNetworkError    = "network_error"
	StatusUpstreamError   = "upstream_error"
)

// Request modes.
const (
	ModeSingle = "single"
	ModeBatch  = "batch"
)

// AllowedEmbeddingStatuses for embedproxy_embedding_requests_total and embedproxy_embedding_duration_seconds.
var AllowedEmbeddingStatuses = map[string]bool{
	StatusSuccess:         true,
	StatusValidationError: true,
	StatusConfigError:     true,
	StatusTimeout:         true,
	StatusNetworkError:    true,
	StatusUpstreamError:   true,
}

// AllowedProviders bounds the provider attribute.
var AllowedProviders = map[string]bool{
	"google":  true,
	"openai":  true,
	"gateway": true,
	"azure":   true,
	"ollama":  true,
	"mock":    true,
}

// NormalizeStatus returns status if in AllowedEmbeddingStatuses, otherwise "other".
func NormalizeStatus(status string) string {
	return normalize(status, AllowedEmbeddingStatuses)
}

// NormalizeProvider returns provider if known, otherwise "other".
func NormalizeProvider(provider string) string {
	return normalize(provider, AllowedProviders)
}

func normalizeRoute(route string) string {
	switch route {
	case RouteEmbed, RouteEmbedBatch:
		return route
	default:
		return "other"
	}
}

func normalizeMode(mode string) string {
	switch mode {
	case ModeSingle, ModeBatch:
		return mode
	default:
		return "other"
	}
}

func normalize(value string, allowed map[string]bool) string {
	if allowed[value] {
		return value
	}

	return "other"
}
