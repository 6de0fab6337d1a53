package middleware

import "net/http"

// DefaultMaxBody caps request bodies; chat messages are short.
const DefaultMaxBody = 1 << 20

// BodyLimit caps the request body at maxBytes. Reads past the limit fail and
// the JSON decoder reports the error.
func BodyLimit(maxBytes int64) func(http.Handler) http.Handler {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBody
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			next.ServeHTTP(w, r)
		})
	}
}
