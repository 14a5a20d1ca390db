package ollama

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClient_Defaults(t *testing.T) {
	client, err := NewClient("", "", nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultModel, client.Model())
}

func TestNewClient_InvalidHost(t *testing.T) {
	_, err := NewClient("://bad", "", nil)
	require.Error(t, err)
}

func TestCreateEmbedding(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/embeddings", r.URL.Path)

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "all-minilm", body["model"])
		assert.Equal(t, "local text", body["prompt"])

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"embedding":[0.3,0.4]}`))
	}))
	defer server.Close()

	client, err := NewClient(server.URL, "all-minilm", server.Client())
	require.NoError(t, err)

	emb, err := client.CreateEmbedding(context.Background(), "local text")
	require.NoError(t, err)
	assert.Equal(t, []float64{0.3, 0.4}, emb)
}

func TestCreateEmbedding_EmptyResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"embedding":[]}`))
	}))
	defer server.Close()

	client, err := NewClient(server.URL, "", server.Client())
	require.NoError(t, err)

	_, err = client.CreateEmbedding(context.Background(), "text")
	require.ErrorIs(t, err, ErrNoEmbeddingInResponse)
}

func TestCreateEmbedding_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"model \"missing\" not found"}`))
	}))
	defer server.Close()

	client, err := NewClient(server.URL, "missing", server.Client())
	require.NoError(t, err)

	_, err = client.CreateEmbedding(context.Background(), "text")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestCreateEmbedding_EmptyInput(t *testing.T) {
	client, err := NewClient("", "", nil)
	require.NoError(t, err)

	_, err = client.CreateEmbedding(context.Background(), "")
	require.ErrorIs(t, err, ErrEmptyInput)
}
