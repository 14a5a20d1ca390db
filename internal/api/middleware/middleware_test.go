package middleware

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/formbricks/embedproxy/internal/api/response"
	"github.com/formbricks/embedproxy/internal/observability"
)

type bodyRecorder struct {
	tooLarge map[string]int
	sizes    map[string][]int64
}

func newBodyRecorder() *bodyRecorder {
	return &bodyRecorder{tooLarge: map[string]int{}, sizes: map[string][]int64{}}
}

func (b *bodyRecorder) RecordRequestBodyTooLarge(_ context.Context, route string) {
	b.tooLarge[route]++
}

func (b *bodyRecorder) RecordRequestBodySize(_ context.Context, route string, size int64) {
	b.sizes[route] = append(b.sizes[route], size)
}

func TestRequestID_Generated(t *testing.T) {
	var seen string

	h := RequestID(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		seen = observability.RequestIDFromContext(r.Context())
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	id := rec.Header().Get(observability.RequestIDHeader)
	require.NotEmpty(t, id)
	assert.Equal(t, id, seen)

	parsed, err := uuid.Parse(id)
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(7), parsed.Version())
}

func TestRequestID_Propagated(t *testing.T) {
	h := RequestID(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))

	for _, id := range []string{"client-id-1", "trace:abc.DEF_42", strings.Repeat("a", maxRequestIDLen)} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(observability.RequestIDHeader, id)

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, id, rec.Header().Get(observability.RequestIDHeader))
	}
}

func TestRequestID_MalformedReplaced(t *testing.T) {
	h := RequestID(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))

	tests := []struct {
		name string
		id   string
	}{
		{"too long", strings.Repeat("a", maxRequestIDLen+1)},
		{"spaces", "id with spaces"},
		{"log injection", "abc\nlevel=ERROR"},
		{"non-ascii", "idé"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.Header.Set(observability.RequestIDHeader, tt.id)

			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			got := rec.Header().Get(observability.RequestIDHeader)
			assert.NotEqual(t, tt.id, got)

			_, err := uuid.Parse(got)
			require.NoError(t, err)
		})
	}
}

// decodeHandler mimics the embedding handlers: a capped body read answers 413, other read errors 400.
var decodeHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	if _, err := io.ReadAll(r.Body); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			response.RespondBodyTooLarge(w, maxErr.Limit)

			return
		}

		http.Error(w, "bad body", http.StatusBadRequest)

		return
	}

	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
})

func TestMaxBody(t *testing.T) {
	tests := []struct {
		name          string
		limit         int64
		body          string
		unknownLength bool
		wantStatus    int
		wantTooLarge  int
		wantSizes     []int64
	}{
		{"under limit", 16, `{"text":"hi"}`, false, http.StatusOK, 0, []int64{13}},
		{"declared length over limit", 8, `{"text":"this is far too long"}`, false, http.StatusRequestEntityTooLarge, 1, nil},
		{"streamed body over limit", 8, `{"text":"this is far too long"}`, true, http.StatusRequestEntityTooLarge, 1, nil},
		{"streamed body under limit", 64, `{"text":"hi"}`, true, http.StatusOK, 0, []int64{13}},
		{"disabled", 0, strings.Repeat("x", 1024), false, http.StatusOK, 0, []int64{1024}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recorder := newBodyRecorder()
			h := MaxBody(tt.limit, observability.RouteEmbedBatch, recorder)(decodeHandler)

			req := httptest.NewRequest(http.MethodPost, "/embed/batch", strings.NewReader(tt.body))
			if tt.unknownLength {
				req.ContentLength = -1
			}

			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantTooLarge, recorder.tooLarge[observability.RouteEmbedBatch])
			assert.Equal(t, tt.wantSizes, recorder.sizes[observability.RouteEmbedBatch])
			assert.Empty(t, recorder.tooLarge[observability.RouteEmbed])
		})
	}
}

func TestMaxBody_DeclaredLengthSkipsHandler(t *testing.T) {
	called := false

	h := MaxBody(4, observability.RouteEmbed, nil)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		called = true
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/embed", strings.NewReader(`{"text":"hello"}`)))

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Contains(t, rec.Body.String(), "maximum allowed size of 4 bytes")
	assert.False(t, called)
}

func TestMaxBody_NilBody(t *testing.T) {
	recorder := newBodyRecorder()

	h := MaxBody(4, observability.RouteEmbed, recorder)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	req := httptest.NewRequest(http.MethodPost, "/embed", nil)
	req.Body = nil

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.Equal(t, []int64{0}, recorder.sizes[observability.RouteEmbed])
}

func TestLogging(t *testing.T) {
	var buf bytes.Buffer

	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, nil)))

	t.Cleanup(func() { slog.SetDefault(prev) })

	h := Logging(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusRequestTimeout)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/embed", nil))

	out := buf.String()
	assert.Contains(t, out, "level=WARN")
	assert.Contains(t, out, "path=/embed")
	assert.Contains(t, out, "status=408")
}

func TestLogging_DefaultStatus(t *testing.T) {
	var buf bytes.Buffer

	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, nil)))

	t.Cleanup(func() { slog.SetDefault(prev) })

	h := Logging(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("hi"))
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Contains(t, buf.String(), "status=200")
	assert.Contains(t, buf.String(), "level=INFO")
}
