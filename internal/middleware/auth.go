package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/relaydesk/relaydesk/pkg/utils"
)

// SharedSecret gates requests behind a static token. The token may arrive in
// the X-Auth-Token header, an Authorization bearer header, or a ?token= query
// parameter. When no token is configured, every request passes.
func SharedSecret(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if token == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !matchToken(r, token) {
				utils.RespondError(w, http.StatusUnauthorized, "invalid or missing access token")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func matchToken(r *http.Request, token string) bool {
	candidates := []string{
		r.Header.Get("X-Auth-Token"),
		strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer "),
		r.URL.Query().Get("token"),
	}
	for _, candidate := range candidates {
		candidate = strings.TrimSpace(candidate)
		if candidate == "" {
			continue
		}
		if subtle.ConstantTimeCompare([]byte(candidate), []byte(token)) == 1 {
			return true
		}
	}
	return false
}
