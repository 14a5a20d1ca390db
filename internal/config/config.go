// Package config provides application configuration loaded from environment variables.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Supported embedding providers (EMBEDDING_PROVIDER).
const (
	ProviderGoogle  = "google"
	ProviderOpenAI  = "openai"
	ProviderGateway = "gateway"
	ProviderAzure   = "azure"
	ProviderOllama  = "ollama"
	ProviderMock    = "mock"
)

// Trace samplers accepted in OTEL_TRACES_SAMPLER (OpenTelemetry SDK names).
const (
	SamplerAlwaysOn                = "always_on"
	SamplerAlwaysOff               = "always_off"
	SamplerTraceIDRatio            = "traceidratio"
	SamplerParentBasedAlwaysOn     = "parentbased_always_on"
	SamplerParentBasedAlwaysOff    = "parentbased_always_off"
	SamplerParentBasedTraceIDRatio = "parentbased_traceidratio"
)

var supportedSamplers = map[string]struct{}{
	SamplerAlwaysOn:                {},
	SamplerAlwaysOff:               {},
	SamplerTraceIDRatio:            {},
	SamplerParentBasedAlwaysOn:     {},
	SamplerParentBasedAlwaysOff:    {},
	SamplerParentBasedTraceIDRatio: {},
}

var supportedProviders = map[string]struct{}{
	ProviderGoogle:  {},
	ProviderOpenAI:  {},
	ProviderGateway: {},
	ProviderAzure:   {},
	ProviderOllama:  {},
	ProviderMock:    {},
}

// vendorAPIKeyEnv maps a provider to the vendor-specific key variable accepted
// when EMBEDDING_PROVIDER_API_KEY is unset.
var vendorAPIKeyEnv = map[string]string{
	ProviderGoogle:  "GOOGLE_GENERATIVE_AI_API_KEY",
	ProviderOpenAI:  "OPENAI_API_KEY",
	ProviderGateway: "AI_GATEWAY_API_KEY",
	ProviderAzure:   "AZURE_OPENAI_API_KEY",
}

// Config holds all application configuration. It is built once at startup and never mutated.
type Config struct {
	Port     string
	LogLevel string

	EmbeddingProvider       string
	EmbeddingModel          string
	EmbeddingProviderAPIKey string
	EmbeddingGatewayURL     string
	EmbeddingBaseURL        string
	EmbeddingDimensions     int
	EmbeddingIncludeModel   bool

	// Requests per second allowed towards the upstream provider; 0 disables pacing.
	EmbeddingRateLimit float64

	// Applies to each outbound upstream call.
	UpstreamTimeout time.Duration

	TestEndpointEnabled     bool
	MockEmbeddingDimensions int

	// Request body limit in bytes; 0 disables the limit.
	MaxRequestBodyBytes int64

	OtelMetricsExporter string
	OtelTracesExporter  string

	// Sampler name and its ratio argument; the ratio only matters for the traceidratio samplers.
	OtelTracesSampler    string
	OtelTracesSamplerArg float64

	ShutdownTimeout time.Duration
}

// getEnv retrieves an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value.
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsFloat retrieves an environment variable as a float64 or returns a default value.
func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsBool retrieves an environment variable as a bool or returns a default value.
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsDuration retrieves an environment variable as a time.Duration or returns a default value.
// Bare integers are read as seconds.
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	if secs, err := strconv.Atoi(valueStr); err == nil {
		return time.Duration(secs) * time.Second
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// resolveAPIKey prefers EMBEDDING_PROVIDER_API_KEY and falls back to the vendor variable.
func resolveAPIKey(provider string) string {
	if key := os.Getenv("EMBEDDING_PROVIDER_API_KEY"); key != "" {
		return key
	}
	if env, ok := vendorAPIKeyEnv[provider]; ok {
		return os.Getenv(env)
	}
	return ""
}

// resolveBaseURL returns EMBEDDING_BASE_URL; the openai provider also accepts OPENAI_BASE_URL.
func resolveBaseURL(provider string) string {
	if v := os.Getenv("EMBEDDING_BASE_URL"); v != "" {
		return v
	}

	if provider == ProviderOpenAI {
		return os.Getenv("OPENAI_BASE_URL")
	}

	return ""
}

// Load reads configuration from environment variables and returns a Config struct.
// It automatically loads .env file if it exists.
// A missing provider API key is not an error: it is reported by CredentialsConfigured
// and surfaces as a configuration error on each embedding request.
func Load() (*Config, error) {
	// Load .env file if it exists. Skip logging when absent (e.g. env from secrets/parameter store).
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("Failed to load .env file", "error", err)
	}

	provider := strings.ToLower(strings.TrimSpace(getEnv("EMBEDDING_PROVIDER", ProviderGoogle)))
	if _, ok := supportedProviders[provider]; !ok {
		return nil, fmt.Errorf("unsupported EMBEDDING_PROVIDER %q", provider)
	}

	upstreamTimeout := getEnvAsDuration("UPSTREAM_TIMEOUT", 30*time.Second)
	if upstreamTimeout <= 0 {
		return nil, errors.New("UPSTREAM_TIMEOUT must be positive")
	}

	dimensions := getEnvAsInt("EMBEDDING_DIMENSIONS", 0)
	if dimensions < 0 {
		return nil, errors.New("EMBEDDING_DIMENSIONS must not be negative")
	}

	mockDimensions := getEnvAsInt("MOCK_EMBEDDING_DIMENSIONS", 1536)
	if mockDimensions <= 0 {
		return nil, errors.New("MOCK_EMBEDDING_DIMENSIONS must be a positive integer")
	}

	rateLimit := getEnvAsFloat("EMBEDDING_RATE_LIMIT", 0)
	if rateLimit < 0 {
		return nil, errors.New("EMBEDDING_RATE_LIMIT must not be negative")
	}

	maxBody := getEnvAsInt("MAX_REQUEST_BODY_BYTES", 1<<20)
	if maxBody < 0 {
		return nil, errors.New("MAX_REQUEST_BODY_BYTES must not be negative")
	}

	sampler := strings.ToLower(strings.TrimSpace(getEnv("OTEL_TRACES_SAMPLER", SamplerParentBasedAlwaysOn)))
	if _, ok := supportedSamplers[sampler]; !ok {
		return nil, fmt.Errorf("unsupported OTEL_TRACES_SAMPLER %q", sampler)
	}

	samplerArg, err := parseSamplerRatio(os.Getenv("OTEL_TRACES_SAMPLER_ARG"))
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Port:     getEnv("PORT", "8001"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		EmbeddingProvider:       provider,
		EmbeddingModel:          os.Getenv("EMBEDDING_MODEL"),
		EmbeddingProviderAPIKey: resolveAPIKey(provider),
		EmbeddingGatewayURL:     os.Getenv("EMBEDDING_GATEWAY_URL"),
		EmbeddingBaseURL:        resolveBaseURL(provider),
		EmbeddingDimensions:     dimensions,
		EmbeddingIncludeModel:   getEnvAsBool("EMBEDDING_INCLUDE_MODEL", false),
		EmbeddingRateLimit:      rateLimit,

		UpstreamTimeout: upstreamTimeout,

		TestEndpointEnabled:     getEnvAsBool("TEST_ENDPOINT_ENABLED", true),
		MockEmbeddingDimensions: mockDimensions,

		MaxRequestBodyBytes: int64(maxBody),

		OtelMetricsExporter: strings.ToLower(os.Getenv("OTEL_METRICS_EXPORTER")),
		OtelTracesExporter:  strings.ToLower(os.Getenv("OTEL_TRACES_EXPORTER")),

		OtelTracesSampler:    sampler,
		OtelTracesSamplerArg: samplerArg,

		ShutdownTimeout: getEnvAsDuration("SHUTDOWN_TIMEOUT", 30*time.Second),
	}

	return cfg, nil
}

// parseSamplerRatio reads OTEL_TRACES_SAMPLER_ARG; unset means sample everything.
func parseSamplerRatio(value string) (float64, error) {
	if value == "" {
		return 1, nil
	}

	ratio, err := strconv.ParseFloat(value, 64)
	if err != nil || ratio < 0 || ratio > 1 {
		return 0, fmt.Errorf("OTEL_TRACES_SAMPLER_ARG must be a number between 0 and 1, got %q", value)
	}

	return ratio, nil
}

// RequiresAPIKey reports whether the configured provider authenticates with an API key.
func (c *Config) RequiresAPIKey() bool {
	switch c.EmbeddingProvider {
	case ProviderOllama, ProviderMock:
		return false
	default:
		return true
	}
}

// MissingCredentials returns a human-readable description of the configuration the
// provider still needs, or "" when it is fully configured.
func (c *Config) MissingCredentials() string {
	if c.RequiresAPIKey() && c.EmbeddingProviderAPIKey == "" {
		switch c.EmbeddingProvider {
		case ProviderGoogle:
			return "Google Generative AI API key not configured"
		case ProviderOpenAI:
			return "OpenAI API key not configured"
		case ProviderAzure:
			return "Azure OpenAI API key not configured"
		default:
			return "AI gateway API key not configured"
		}
	}

	switch c.EmbeddingProvider {
	case ProviderGateway:
		if c.EmbeddingGatewayURL == "" {
			return "AI gateway URL not configured"
		}
	case ProviderAzure:
		if c.EmbeddingBaseURL == "" {
			return "Azure OpenAI endpoint not configured"
		}
	}

	return ""
}

// CredentialsConfigured reports whether every credential the provider needs is present.
func (c *Config) CredentialsConfigured() bool {
	return c.MissingCredentials() == ""
}
