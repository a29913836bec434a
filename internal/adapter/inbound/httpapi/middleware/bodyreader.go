package middleware

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/medme/secwatch/pkg/apierror"
)

// DefaultMaxBodyBytes bounds buffered request bodies.
const DefaultMaxBodyBytes = 1 << 20

// rawBodyKey is used to store the raw request body in context.
type rawBodyKey struct{}

// BodyReader reads and buffers the request body so it can be accessed multiple
// times (HMAC validation and then JSON parsing). The raw bytes are stored in the
// request context. Bodies over maxBytes are rejected with 413.
func BodyReader(maxBytes int64) func(http.Handler) http.Handler {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBodyBytes
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBytes))
			if err != nil {
				var tooLarge *http.MaxBytesError
				if errors.As(err, &tooLarge) {
					apierror.Write(w, apierror.New(http.StatusRequestEntityTooLarge, "request body too large"))
					return
				}
				apierror.Write(w, apierror.BadRequest("failed to read request body"))
				return
			}
			r.Body.Close()

			r.Body = io.NopCloser(bytes.NewReader(body))
			ctx := context.WithValue(r.Context(), rawBodyKey{}, body)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RawBody returns the body buffered by BodyReader.
func RawBody(ctx context.Context) ([]byte, bool) {
	body, ok := ctx.Value(rawBodyKey{}).([]byte)
	return body, ok
}
