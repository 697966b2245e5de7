package middleware

import (
	"net/http"
	"strings"

	"studytrack-agent/internal/identity"
)

// SessionCapture siphons the platform bearer token off incoming UI requests
// into the session store, so the sync engine can authenticate against the
// remote API later without its own login flow. Requests without a token pass
// through untouched; only syncing needs an identity, and it fails with a
// descriptive error when none has been captured yet.
func SessionCapture(sessions *identity.SessionStore) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader != "" {
				parts := strings.SplitN(authHeader, " ", 2)
				if len(parts) == 2 && parts[0] == "Bearer" && parts[1] != "" {
					sessions.SetToken(r.Context(), parts[1])
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}
