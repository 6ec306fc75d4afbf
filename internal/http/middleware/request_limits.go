package middleware

import (
	"net/http"
)

// RequestSizeLimit creates middleware that limits the maximum request body size.
// Handlers decoding with httputil.Bind answer 413 when the limit is hit.
func RequestSizeLimit(maxBytes int64) func(http.Handler) http.Handler {
	if maxBytes <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			next.ServeHTTP(w, r)
		})
	}
}
