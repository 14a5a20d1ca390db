package observability

import (
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/formbricks/embedproxy/internal/config"
)

// newSampler maps the configured sampler name to an SDK sampler. ratio is used by the
// traceidratio variants only. An empty name (config built by hand, e.g. in tests) means
// parent-based always-on, the SDK default.
func newSampler(name string, ratio float64) sdktrace.Sampler {
	switch name {
	case config.SamplerAlwaysOn:
		return sdktrace.AlwaysSample()
	case config.SamplerAlwaysOff:
		return sdktrace.NeverSample()
	case config.SamplerTraceIDRatio:
		return sdktrace.TraceIDRatioBased(ratio)
	case config.SamplerParentBasedTraceIDRatio:
		return sdktrace.ParentBased(sdktrace.TraceIDRatioBased(ratio))
	case config.SamplerParentBasedAlwaysOff:
		return sdktrace.ParentBased(sdktrace.NeverSample())
	default:
		return sdktrace.ParentBased(sdktrace.AlwaysSample())
	}
}
