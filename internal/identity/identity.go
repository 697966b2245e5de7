package identity

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/golang-jwt/jwt/v5"
)

// ErrMissingIdentity means no resolvable user identity is available. A sync
// pass hitting this aborts entirely; it is a precondition failure, not a
// per-record one.
var ErrMissingIdentity = errors.New("no user identity available")

// Provider supplies the platform bearer token and the user id it belongs to.
type Provider interface {
	Token(ctx context.Context) (string, error)
	UserID(ctx context.Context) (string, error)
}

// SessionStore holds the bearer token the UI hands over on its API calls,
// persisted to disk so a restarted agent can keep syncing. The agent does
// not know the platform's signing secret, so claims are read with an
// unverified parse; the remote API verifies the same token on every push.
type SessionStore struct {
	path string

	mu    sync.Mutex
	token string
}

func NewSessionStore(path string) *SessionStore {
	s := &SessionStore{path: path}

	blob, err := os.ReadFile(path)
	if err == nil {
		s.token = strings.TrimSpace(string(blob))
	} else if !os.IsNotExist(err) {
		log.Printf("identity: failed to read session file: %v", err)
	}
	return s
}

// SetToken stores the token and persists it. A write failure keeps the
// in-memory token so the current process can still sync.
func (s *SessionStore) SetToken(_ context.Context, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return fmt.Errorf("empty session token")
	}

	s.mu.Lock()
	changed := s.token != token
	s.token = token
	s.mu.Unlock()

	if !changed {
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		log.Printf("identity: failed to create session directory: %v", err)
		return nil
	}
	if err := os.WriteFile(s.path, []byte(token+"\n"), 0o600); err != nil {
		log.Printf("identity: failed to persist session token: %v", err)
	}
	return nil
}

func (s *SessionStore) Token(_ context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.token == "" {
		return "", ErrMissingIdentity
	}
	return s.token, nil
}

func (s *SessionStore) UserID(ctx context.Context) (string, error) {
	token, err := s.Token(ctx)
	if err != nil {
		return "", err
	}
	return UserIDFromToken(token)
}

// UserIDFromToken extracts the user id claim ("user_id", falling back to
// "sub") without verifying the signature.
func UserIDFromToken(token string) (string, error) {
	parsed, _, err := jwt.NewParser().ParseUnverified(token, jwt.MapClaims{})
	if err != nil {
		return "", fmt.Errorf("%w: unparseable session token: %v", ErrMissingIdentity, err)
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return "", fmt.Errorf("%w: unexpected token claims", ErrMissingIdentity)
	}

	if id, ok := claims["user_id"].(string); ok && id != "" {
		return id, nil
	}
	if sub, ok := claims["sub"].(string); ok && sub != "" {
		return sub, nil
	}
	return "", fmt.Errorf("%w: token carries no user id claim", ErrMissingIdentity)
}
