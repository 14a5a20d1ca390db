package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/formbricks/embedproxy/internal/observability"
)

func TestNewClient_RequiresURL(t *testing.T) {
	_, err := NewClient(ClientOptions{APIKey: "k"})
	require.ErrorIs(t, err, ErrMissingURL)
}

func TestNewClient_DefaultModel(t *testing.T) {
	client, err := NewClient(ClientOptions{URL: "http://gateway.local/v1/embeddings", APIKey: "k"})
	require.NoError(t, err)
	assert.Equal(t, DefaultModel, client.Model())
}

func TestClient_CreateEmbedding(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/embeddings", r.URL.Path)
		assert.Equal(t, "Bearer gw-key", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req embeddingRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "text-embedding-3-small", req.Model)
		assert.Equal(t, "Artificial intelligence", req.Input)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":[{"embedding":[0.5,0.25,-1]}],"model":"text-embedding-3-small"}`))
	}))
	defer server.Close()

	client, err := NewClient(ClientOptions{
		URL:    server.URL + "/v1/embeddings",
		APIKey: "gw-key",
		Model:  "text-embedding-3-small",
	})
	require.NoError(t, err)

	emb, err := client.CreateEmbedding(context.Background(), "Artificial intelligence")
	require.NoError(t, err)
	assert.Equal(t, []float64{0.5, 0.25, -1}, emb)
}

func TestClient_CreateEmbedding_EmptyInput(t *testing.T) {
	client, err := NewClient(ClientOptions{URL: "http://unused", APIKey: "k"})
	require.NoError(t, err)

	_, err = client.CreateEmbedding(context.Background(), "  ")
	require.ErrorIs(t, err, ErrEmptyInput)
}

func TestClient_CreateEmbedding_StatusErrorIsNotRetried(t *testing.T) {
	var calls int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"error":"model overloaded"}`))
	}))
	defer server.Close()

	client, err := NewClient(ClientOptions{URL: server.URL, APIKey: "k"})
	require.NoError(t, err)

	_, err = client.CreateEmbedding(context.Background(), "hello")
	require.Error(t, err)

	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusServiceUnavailable, statusErr.StatusCode)
	assert.Contains(t, statusErr.Body, "model overloaded")
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestClient_CreateEmbedding_MissingData(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"empty data list", `{"data":[]}`},
		{"empty embedding", `{"data":[{"embedding":[]}]}`},
		{"no data key", `{"object":"list"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			client, err := NewClient(ClientOptions{URL: server.URL, APIKey: "k"})
			require.NoError(t, err)

			_, err = client.CreateEmbedding(context.Background(), "hello")
			require.ErrorIs(t, err, ErrNoEmbeddingInResponse)
		})
	}
}

func TestClient_CreateEmbedding_ContextDeadline(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
		_, _ = w.Write([]byte(`{"data":[{"embedding":[1]}]}`))
	}))
	defer server.Close()

	client, err := NewClient(ClientOptions{URL: server.URL, APIKey: "k"})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err = client.CreateEmbedding(ctx, "hello")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestClient_CreateEmbedding_ForwardsRequestID(t *testing.T) {
	var got []string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = append(got, r.Header.Get(observability.RequestIDHeader))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":[{"embedding":[1]}]}`))
	}))
	defer server.Close()

	client, err := NewClient(ClientOptions{URL: server.URL, APIKey: "gw-key"})
	require.NoError(t, err)

	ctx := context.WithValue(context.Background(), observability.RequestIDKey, "req-42")
	_, err = client.CreateEmbedding(ctx, "hello")
	require.NoError(t, err)

	_, err = client.CreateEmbedding(context.Background(), "hello")
	require.NoError(t, err)

	assert.Equal(t, []string{"req-42", ""}, got)
}
