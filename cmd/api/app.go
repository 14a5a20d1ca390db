package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"golang.org/x/time/rate"

	"github.com/formbricks/embedproxy/internal/api/handlers"
	"github.com/formbricks/embedproxy/internal/api/middleware"
	"github.com/formbricks/embedproxy/internal/config"
	"github.com/formbricks/embedproxy/internal/embeddings"
	"github.com/formbricks/embedproxy/internal/gateway"
	"github.com/formbricks/embedproxy/internal/googleai"
	"github.com/formbricks/embedproxy/internal/observability"
	"github.com/formbricks/embedproxy/internal/ollama"
	"github.com/formbricks/embedproxy/internal/openai"
	"github.com/formbricks/embedproxy/internal/service"
)

// version is reported by GET /. Overridden at build time with -ldflags "-X main.version=...".
var version = "1.0.0"

var errUnsupportedEmbeddingProvider = errors.New("unsupported embedding provider")

// App holds all server dependencies and coordinates startup and shutdown.
type App struct {
	cfg            *config.Config
	server         *http.Server
	meterProvider  *sdkmetric.MeterProvider
	tracerProvider *sdktrace.TracerProvider
}

// setupMetrics creates the meter provider and proxy metrics when metrics are enabled.
// The returned handler is non-nil only for the Prometheus exporter.
func setupMetrics(cfg *config.Config) (*sdkmetric.MeterProvider, http.Handler, *observability.Metrics, error) {
	mp, handler, err := observability.NewMeterProvider(cfg)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("create meter provider: %w", err)
	}

	if mp == nil {
		slog.Warn("metrics not enabled: unsupported OTEL_METRICS_EXPORTER", "exporter", cfg.OtelMetricsExporter)

		return nil, nil, nil, nil
	}

	metrics, err := observability.NewMetrics(mp.Meter("embedproxy"))
	if err != nil {
		if err2 := observability.ShutdownMeterProvider(context.Background(), mp); err2 != nil {
			slog.Error("shutdown meter provider after metrics error", "error", err2)
		}

		return nil, nil, nil, fmt.Errorf("create metrics: %w", err)
	}

	return mp, handler, metrics, nil
}

// newEmbeddingProvider builds the upstream client selected by EMBEDDING_PROVIDER.
// It returns (nil, nil) when credentials are missing: startup continues and requests fail with a config error.
func newEmbeddingProvider(ctx context.Context, cfg *config.Config, httpClient *http.Client) (embeddings.Provider, error) {
	if missing := cfg.MissingCredentials(); missing != "" {
		slog.Warn("embedding provider not configured; embedding requests will fail",
			"provider", cfg.EmbeddingProvider, "reason", missing)

		//nolint:nilnil // intentional: service reports a config error per request
		return nil, nil
	}

	switch cfg.EmbeddingProvider {
	case config.ProviderGoogle:
		client, err := googleai.NewClient(ctx, cfg.EmbeddingProviderAPIKey,
			googleai.WithModel(cfg.EmbeddingModel),
			googleai.WithDimensions(cfg.EmbeddingDimensions),
			googleai.WithBaseURL(cfg.EmbeddingBaseURL),
			googleai.WithHTTPClient(httpClient),
		)
		if err != nil {
			return nil, fmt.Errorf("create google embedding client: %w", err)
		}

		return client, nil
	case config.ProviderOpenAI:
		return openai.NewClient(cfg.EmbeddingProviderAPIKey,
			openai.WithModel(cfg.EmbeddingModel),
			openai.WithDimensions(cfg.EmbeddingDimensions),
			openai.WithBaseURL(cfg.EmbeddingBaseURL),
			openai.WithHTTPClient(httpClient),
		), nil
	case config.ProviderGateway:
		client, err := gateway.NewClient(gateway.ClientOptions{
			URL:        cfg.EmbeddingGatewayURL,
			APIKey:     cfg.EmbeddingProviderAPIKey,
			Model:      cfg.EmbeddingModel,
			HTTPClient: httpClient,
		})
		if err != nil {
			return nil, fmt.Errorf("create gateway embedding client: %w", err)
		}

		return client, nil
	case config.ProviderAzure:
		client, err := embeddings.NewAzureOpenAIClient(embeddings.AzureOptions{
			APIKey:     cfg.EmbeddingProviderAPIKey,
			Endpoint:   cfg.EmbeddingBaseURL,
			Model:      cfg.EmbeddingModel,
			Dimensions: cfg.EmbeddingDimensions,
			HTTPClient: httpClient,
		})
		if err != nil {
			return nil, fmt.Errorf("create azure embedding client: %w", err)
		}

		return client, nil
	case config.ProviderOllama:
		client, err := ollama.NewClient(cfg.EmbeddingBaseURL, cfg.EmbeddingModel, httpClient)
		if err != nil {
			return nil, fmt.Errorf("create ollama embedding client: %w", err)
		}

		return client, nil
	case config.ProviderMock:
		return embeddings.NewMockProvider(cfg.MockEmbeddingDimensions), nil
	default:
		return nil, fmt.Errorf("%w: %s", errUnsupportedEmbeddingProvider, cfg.EmbeddingProvider)
	}
}

// newRateLimiter returns nil when EMBEDDING_RATE_LIMIT is 0 (no pacing).
func newRateLimiter(cfg *config.Config) *rate.Limiter {
	if cfg.EmbeddingRateLimit <= 0 {
		return nil
	}

	burst := max(int(cfg.EmbeddingRateLimit), 1)

	return rate.NewLimiter(rate.Limit(cfg.EmbeddingRateLimit), burst)
}

// NewApp builds and wires all components. It does not start the HTTP server;
// call Run to start and block until shutdown or failure.
func NewApp(cfg *config.Config) (*App, error) {
	var (
		err            error
		meterProvider  *sdkmetric.MeterProvider
		metricsHandler http.Handler
		metrics        *observability.Metrics
	)

	if cfg.OtelMetricsExporter == "" {
		slog.Warn("metrics not enabled (OTEL_METRICS_EXPORTER empty or unset)")
	} else {
		meterProvider, metricsHandler, metrics, err = setupMetrics(cfg)
		if err != nil {
			return nil, err
		}
	}

	var tracerProvider *sdktrace.TracerProvider

	if cfg.OtelTracesExporter == "" {
		slog.Warn("tracing not enabled (OTEL_TRACES_EXPORTER empty or unset)")
	} else {
		tracerProvider, err = observability.NewTracerProvider(cfg)
		if err != nil {
			if err2 := observability.ShutdownMeterProvider(context.Background(), meterProvider); err2 != nil {
				slog.Error("shutdown meter provider after tracer provider error", "error", err2)
			}

			return nil, fmt.Errorf("create tracer provider: %w", err)
		}
	}

	// Install TraceContextHandler unconditionally so request_id (and trace_id/span_id when tracing is on) appear in logs.
	defaultHandler := slog.Default().Handler()
	slog.SetDefault(slog.New(observability.NewTraceContextHandler(defaultHandler)))

	if tracerProvider != nil {
		otel.SetTracerProvider(tracerProvider)
	}

	if meterProvider != nil {
		otel.SetMeterProvider(meterProvider)
	}

	// Outbound calls get client spans; the per-call timeout comes from the service context, not the client.
	upstreamHTTP := &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)}

	provider, err := newEmbeddingProvider(context.Background(), cfg, upstreamHTTP)
	if err != nil {
		if err2 := shutdownObservability(context.Background(), tracerProvider, meterProvider); err2 != nil {
			slog.Error("shutdown observability after provider error", "error", err2)
		}

		return nil, err
	}

	var (
		embeddingMetrics observability.EmbeddingMetrics
		apiMetrics       observability.APIMetrics
	)
	if metrics != nil {
		embeddingMetrics = metrics.Embeddings
		apiMetrics = metrics.API
	}

	embeddingService := service.NewEmbeddingService(service.EmbeddingServiceParams{
		Provider:      provider,
		ProviderName:  cfg.EmbeddingProvider,
		MissingConfig: cfg.MissingCredentials(),
		Timeout:       cfg.UpstreamTimeout,
		RateLimiter:   newRateLimiter(cfg),
		Metrics:       embeddingMetrics,
		Logger:        slog.Default(),
	})

	status := embeddingService.Status()
	slog.Info("embedding provider ready",
		"provider", status.Provider,
		"model", status.Model,
		"credentials_configured", status.CredentialsConfigured,
		"upstream_timeout", cfg.UpstreamTimeout,
	)

	server := newHTTPServer(cfg, routes{
		info:    handlers.NewInfoHandler(version, cfg.TestEndpointEnabled, metricsHandler != nil),
		health:  handlers.NewHealthHandler(embeddingService),
		embed:   handlers.NewEmbedHandler(embeddingService, cfg.EmbeddingIncludeModel),
		test:    newTestHandler(cfg),
		metrics: metricsHandler,
	}, apiMetrics, meterProvider, tracerProvider)

	return &App{
		cfg:            cfg,
		server:         server,
		meterProvider:  meterProvider,
		tracerProvider: tracerProvider,
	}, nil
}

func newTestHandler(cfg *config.Config) *handlers.TestHandler {
	if !cfg.TestEndpointEnabled {
		return nil
	}

	return handlers.NewTestHandler(cfg.MockEmbeddingDimensions)
}

// routes groups the handlers registered on the mux. test and metrics may be nil (disabled).
type routes struct {
	info    *handlers.InfoHandler
	health  *handlers.HealthHandler
	embed   *handlers.EmbedHandler
	test    *handlers.TestHandler
	metrics http.Handler
}

// newMux registers every route. Unknown methods on known paths get 405 from ServeMux;
// unknown GET paths fall through to the info handler, which answers 404.
func newMux(r routes, maxBodyBytes int64, apiMetrics observability.APIMetrics) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /", r.info.Info)
	mux.HandleFunc("GET /health", r.health.Check)

	// Body limit only on routes that read a body; nil APIMetrics is passed as a nil recorder.
	var recorder middleware.BodyRecorder
	if apiMetrics != nil {
		recorder = apiMetrics
	}

	mux.Handle("POST "+observability.RouteEmbed,
		middleware.MaxBody(maxBodyBytes, observability.RouteEmbed, recorder)(http.HandlerFunc(r.embed.Embed)))
	mux.Handle("POST "+observability.RouteEmbedBatch,
		middleware.MaxBody(maxBodyBytes, observability.RouteEmbedBatch, recorder)(http.HandlerFunc(r.embed.EmbedBatch)))

	if r.test != nil {
		mux.HandleFunc("GET /test", r.test.Test)
	}

	if r.metrics != nil {
		mux.Handle("GET /metrics", r.metrics)
	}

	return mux
}

// newHTTPServer builds the HTTP server.
// Handler chain: RequestID -> otelhttp(Logging(mux)) so access logs get trace_id/span_id from context.
func newHTTPServer(
	cfg *config.Config,
	r routes,
	apiMetrics observability.APIMetrics,
	meterProvider *sdkmetric.MeterProvider,
	tracerProvider *sdktrace.TracerProvider,
) *http.Server {
	mux := newMux(r, cfg.MaxRequestBodyBytes, apiMetrics)

	otelOpts := []otelhttp.Option{
		// Skip tracing and HTTP metrics for health checks and scrapes to reduce noise.
		otelhttp.WithFilter(func(r *http.Request) bool {
			return r.URL.Path != "/health" && r.URL.Path != "/metrics"
		}),
	}
	if meterProvider != nil {
		otelOpts = append(otelOpts, otelhttp.WithMeterProvider(meterProvider))
	}

	if tracerProvider != nil {
		otelOpts = append(otelOpts, otelhttp.WithTracerProvider(tracerProvider))
	}

	// Logging runs inside otelhttp so r.Context() has the span when we log (trace_id/span_id in access logs).
	inner := middleware.Logging(mux)
	handler := otelhttp.NewHandler(inner, "embedding-proxy", otelOpts...)
	handler = middleware.RequestID(handler)

	const (
		readTimeout = 15 * time.Second
		idleTimeout = 60 * time.Second
	)

	// Write timeout must outlast a full batch of upstream calls, so it is left unset;
	// each upstream call is bounded by UPSTREAM_TIMEOUT instead.
	return &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadTimeout:       readTimeout,
		ReadHeaderTimeout: readTimeout,
		IdleTimeout:       idleTimeout,
	}
}

// Run starts the HTTP server, then blocks until ctx is cancelled (e.g. signal) or the server fails.
// Caller should then call Shutdown.
func (a *App) Run(ctx context.Context) error {
	runErr := make(chan error, 1)

	go func() {
		slog.Info("Starting server", "port", a.cfg.Port, "provider", a.cfg.EmbeddingProvider)

		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			runErr <- fmt.Errorf("server: %w", err)
		}
	}()

	select {
	case err := <-runErr:
		return err
	case <-ctx.Done():
		return nil
	}
}

// shutdownObservability shuts down tracer and meter providers. Logs secondary errors, returns the first.
func shutdownObservability(ctx context.Context, tracer *sdktrace.TracerProvider, meter *sdkmetric.MeterProvider) error {
	var first error

	if err := observability.ShutdownTracerProvider(ctx, tracer); err != nil {
		first = err
	}

	if err := observability.ShutdownMeterProvider(ctx, meter); err != nil {
		if first == nil {
			first = err
		} else {
			slog.Error("shutdown meter provider", "error", err)
		}
	}

	return first
}

// Shutdown stops the server, waiting for in-flight requests, then flushes observability.
// The observability error is returned only when the server shut down cleanly.
func (a *App) Shutdown(ctx context.Context) (err error) {
	defer func() {
		obsErr := shutdownObservability(ctx, a.tracerProvider, a.meterProvider)
		if err == nil {
			err = obsErr
		} else if obsErr != nil {
			slog.Error("shutdown observability", "error", obsErr)
		}
	}()

	if err = a.server.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server shutdown: %w", err)
	}

	return nil
}
