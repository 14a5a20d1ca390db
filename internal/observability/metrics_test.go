package observability

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/formbricks/embedproxy/internal/config"
)

func TestNormalizeStatus(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{StatusSuccess, StatusSuccess},
		{StatusTimeout, StatusTimeout},
		{StatusNetworkError, StatusNetworkError},
		{StatusUpstreamError, StatusUpstreamError},
		{"", "other"},
		{"exploded", "other"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeStatus(tt.input))
		})
	}
}

func TestNormalizeProvider(t *testing.T) {
	assert.Equal(t, "google", NormalizeProvider("google"))
	assert.Equal(t, "ollama", NormalizeProvider("ollama"))
	assert.Equal(t, "other", NormalizeProvider("cohere"))
	assert.Equal(t, "other", normalizeMode("stream"))
	assert.Equal(t, RouteEmbedBatch, normalizeRoute(RouteEmbedBatch))
	assert.Equal(t, "other", normalizeRoute("/health"))
	assert.Equal(t, ModeBatch, normalizeMode(ModeBatch))
}

func TestNewMetrics_NilMeter(t *testing.T) {
	m, err := NewMetrics(nil)
	require.NoError(t, err)
	assert.Nil(t, m)
}

func TestEmbeddingMetrics_Record(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	metrics, err := NewMetrics(mp.Meter("test"))
	require.NoError(t, err)
	require.NotNil(t, metrics)

	ctx := context.Background()
	metrics.Embeddings.RecordEmbeddingOutcome(ctx, "google", ModeSingle, StatusSuccess)
	metrics.Embeddings.RecordEmbeddingOutcome(ctx, "google", ModeSingle, "weird")
	metrics.Embeddings.RecordEmbeddingDuration(ctx, "google", ModeSingle, StatusSuccess, 120*time.Millisecond)
	metrics.Embeddings.RecordBatchSize(ctx, 3)
	metrics.Embeddings.RecordDimensions(ctx, "google", 768)
	metrics.API.RecordRequestBodyTooLarge(ctx, RouteEmbedBatch)
	metrics.API.RecordRequestBodyTooLarge(ctx, "/admin")
	metrics.API.RecordRequestBodySize(ctx, RouteEmbed, 42)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))
	require.Len(t, rm.ScopeMetrics, 1)

	names := map[string]metricdata.Aggregation{}
	for _, m := range rm.ScopeMetrics[0].Metrics {
		names[m.Name] = m.Data
	}

	require.Contains(t, names, MetricNameEmbeddingRequests)
	require.Contains(t, names, MetricNameEmbeddingDuration)
	require.Contains(t, names, MetricNameEmbeddingBatchSize)
	require.Contains(t, names, MetricNameEmbeddingDimensions)
	require.Contains(t, names, MetricNameRequestBodyTooLarge)
	require.Contains(t, names, MetricNameRequestBodySize)

	tooLarge, ok := names[MetricNameRequestBodyTooLarge].(metricdata.Sum[int64])
	require.True(t, ok)

	routes := map[string]int64{}
	for _, dp := range tooLarge.DataPoints {
		route, _ := dp.Attributes.Value(AttrRoute)
		routes[route.AsString()] = dp.Value
	}

	assert.Equal(t, map[string]int64{RouteEmbedBatch: 1, "other": 1}, routes)

	bodySize, ok := names[MetricNameRequestBodySize].(metricdata.Histogram[int64])
	require.True(t, ok)
	require.Len(t, bodySize.DataPoints, 1)
	assert.Equal(t, int64(42), bodySize.DataPoints[0].Sum)

	sum, ok := names[MetricNameEmbeddingRequests].(metricdata.Sum[int64])
	require.True(t, ok)
	// success and "other" land in separate series
	assert.Len(t, sum.DataPoints, 2)
}

func TestNewMeterProvider_Disabled(t *testing.T) {
	mp, handler, err := NewMeterProvider(&config.Config{})
	require.NoError(t, err)
	assert.Nil(t, mp)
	assert.Nil(t, handler)
}

func TestNewMeterProvider_Prometheus(t *testing.T) {
	mp, handler, err := NewMeterProvider(&config.Config{OtelMetricsExporter: ExporterPrometheus})
	require.NoError(t, err)
	require.NotNil(t, mp)
	require.NotNil(t, handler)

	t.Cleanup(func() { _ = ShutdownMeterProvider(context.Background(), mp) })

	metrics, err := NewMetrics(mp.Meter("test"))
	require.NoError(t, err)
	metrics.Embeddings.RecordEmbeddingOutcome(context.Background(), "mock", ModeSingle, StatusSuccess)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "embedproxy_embedding_requests_total")
	assert.Contains(t, string(body), "go_goroutines")
}

func TestShutdownProviders_Nil(t *testing.T) {
	require.NoError(t, ShutdownMeterProvider(context.Background(), nil))
	require.NoError(t, ShutdownTracerProvider(context.Background(), nil))
}

func TestNewTracerProvider(t *testing.T) {
	tp, err := NewTracerProvider(&config.Config{})
	require.NoError(t, err)
	assert.Nil(t, tp)

	tp, err = NewTracerProvider(&config.Config{OtelTracesExporter: "zipkin"})
	require.NoError(t, err)
	assert.Nil(t, tp)

	tp, err = NewTracerProvider(&config.Config{OtelTracesExporter: ExporterStdout})
	require.NoError(t, err)
	require.NotNil(t, tp)
	require.NoError(t, ShutdownTracerProvider(context.Background(), tp))
}
