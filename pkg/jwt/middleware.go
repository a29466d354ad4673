package jwt

import (
	"net/http"

	"github.com/picvault/picvault/pkg/httpx"
)

// Middleware rejects requests whose bearer token fails verification.
// Requests without a token pass through: anonymous access is decided per
// route, not here. Mounted ahead of tenant resolution so the resolution
// path only ever decodes tokens this middleware has already verified.
func Middleware(s *Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := BearerToken(r)
			if ok {
				var claims map[string]any
				if err := s.Parse(token, &claims); err != nil {
					httpx.Error(w, httpx.ErrUnauthorized)
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}
