package middleware

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/formbricks/embedproxy/internal/api/response"
)

// BodyRecorder receives request-body metrics for an embedding route. May be nil.
type BodyRecorder interface {
	RecordRequestBodyTooLarge(ctx context.Context, route string)
	RecordRequestBodySize(ctx context.Context, route string, size int64)
}

// MaxBody caps the request body of one embedding route at maxBytes (0 or negative: no cap).
//
// A declared Content-Length above the cap is answered with 413 before the handler runs.
// Bodies of unknown length are wrapped in http.MaxBytesReader; the handler's JSON decoder
// then fails with *http.MaxBytesError and the handler answers 413 itself.
// The route label is fixed at registration so metrics never carry raw request paths.
func MaxBody(maxBytes int64, route string, recorder BodyRecorder) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if maxBytes > 0 && r.ContentLength > maxBytes {
				if recorder != nil {
					recorder.RecordRequestBodyTooLarge(r.Context(), route)
				}

				response.RespondBodyTooLarge(w, maxBytes)

				return
			}

			body := r.Body
			if body == nil {
				body = http.NoBody
			}

			if maxBytes > 0 {
				body = http.MaxBytesReader(w, body, maxBytes)
			}

			counted := &countingBody{ReadCloser: body}
			r.Body = counted

			next.ServeHTTP(w, r)

			if recorder == nil {
				return
			}

			if counted.tooLarge {
				recorder.RecordRequestBodyTooLarge(r.Context(), route)

				return
			}

			recorder.RecordRequestBodySize(r.Context(), route, counted.n)
		})
	}
}

// countingBody counts bytes handed to the handler and notes when the cap was hit.
type countingBody struct {
	io.ReadCloser

	n        int64
	tooLarge bool
}

func (b *countingBody) Read(p []byte) (int, error) {
	n, err := b.ReadCloser.Read(p)
	b.n += int64(n)

	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		b.tooLarge = true
	}

	return n, err //nolint:wrapcheck // io.EOF and *http.MaxBytesError must reach the decoder as-is
}
