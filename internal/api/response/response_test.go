package response

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRespondError(t *testing.T) {
	tests := []struct {
		name    string
		respond func(http.ResponseWriter)
		status  int
		title   string
	}{
		{"bad request", func(w http.ResponseWriter) { RespondBadRequest(w, "Text cannot be empty") }, http.StatusBadRequest, "Bad Request"},
		{"timeout", func(w http.ResponseWriter) { RespondRequestTimeout(w, "timed out") }, http.StatusRequestTimeout, "Request Timeout"},
		{"too large", func(w http.ResponseWriter) { RespondRequestEntityTooLarge(w, "too big") }, http.StatusRequestEntityTooLarge, "Request Entity Too Large"},
		{"internal", func(w http.ResponseWriter) { RespondInternalServerError(w, "boom") }, http.StatusInternalServerError, "Internal Server Error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			tt.respond(rec)

			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))

			var problem ProblemDetails
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&problem))
			assert.Equal(t, "about:blank", problem.Type)
			assert.Equal(t, tt.title, problem.Title)
			assert.Equal(t, tt.status, problem.Status)
			assert.NotEmpty(t, problem.Detail)
		})
	}
}

func TestRespondJSON(t *testing.T) {
	rec := httptest.NewRecorder()
	RespondJSON(rec, http.StatusOK, map[string]any{"embedding": []float64{0.1, 0.2}})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"embedding":[0.1,0.2]}`, rec.Body.String())
}

func TestRespondBodyTooLarge(t *testing.T) {
	rec := httptest.NewRecorder()
	RespondBodyTooLarge(rec, 1024)

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)

	var problem ProblemDetails
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&problem))
	assert.Equal(t, "request body exceeds maximum allowed size of 1024 bytes", problem.Detail)
}
