package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/cpsu-health/clinicai/pkg/apierror"
)

// BearerAuth rejects requests whose Authorization header does not carry the
// portal's shared API key. An empty key disables the check.
func BearerAuth(apiKey string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if apiKey == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				apierror.Write(w, apierror.Unauthorized("missing authorization header"))
				return
			}

			scheme, token, ok := strings.Cut(authHeader, " ")
			if !ok || !strings.EqualFold(scheme, "Bearer") {
				apierror.Write(w, apierror.Unauthorized("invalid authorization header format"))
				return
			}

			if subtle.ConstantTimeCompare([]byte(strings.TrimSpace(token)), []byte(apiKey)) != 1 {
				apierror.Write(w, apierror.Unauthorized("invalid bearer token"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
