package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"studytrack-agent/internal/identity"
)

func TestSessionCapture(t *testing.T) {
	tests := []struct {
		name       string
		authHeader string
		captured   bool
	}{
		{"bearer token captured", "Bearer some.jwt.token", true},
		{"missing header passes through", "", false},
		{"non-bearer scheme ignored", "Basic dXNlcjpwdw==", false},
		{"empty bearer ignored", "Bearer ", false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			sessions := identity.NewSessionStore(filepath.Join(t.TempDir(), "session.token"))

			handler := SessionCapture(sessions)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
			}))

			req := httptest.NewRequest(http.MethodGet, "/api/v1/activities", nil)
			if tc.authHeader != "" {
				req.Header.Set("Authorization", tc.authHeader)
			}
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)

			if rr.Code != http.StatusOK {
				t.Fatalf("Expected 200, got %d", rr.Code)
			}

			_, err := sessions.Token(context.Background())
			if tc.captured && err != nil {
				t.Errorf("Expected token captured, got %v", err)
			}
			if !tc.captured && err == nil {
				t.Error("Expected no token captured")
			}
		})
	}
}
