package middleware

import (
	"net/http"
)

// DefaultMaxBodySize caps JSON request bodies. Every request this API
// accepts is a handful of short strings.
const DefaultMaxBodySize int64 = 64 << 10

// RequestSize wraps the body with http.MaxBytesReader; decoding a larger body
// fails with *http.MaxBytesError, which handlers answer with 413.
func RequestSize(maxBytes int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Body != nil {
				r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			}
			next.ServeHTTP(w, r)
		})
	}
}
