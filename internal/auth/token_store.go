package auth

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenStore persists the session's bearer token in a single file, the only
// client-side state that survives a restart. The token is cached in memory
// after the first load.
type TokenStore struct {
	path string

	mu     sync.Mutex
	token  string
	loaded bool
}

func NewTokenStore(path string) *TokenStore {
	return &TokenStore{path: path}
}

// Save stores the token in memory and on disk.
func (s *TokenStore) Save(token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("creating token directory: %w", err)
	}
	if err := os.WriteFile(s.path, []byte(token), 0o600); err != nil {
		return fmt.Errorf("writing token file: %w", err)
	}
	s.token = token
	s.loaded = true
	return nil
}

// Token returns the stored token, or "" when the user has never logged in.
func (s *TokenStore) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.loaded {
		data, err := os.ReadFile(s.path)
		if err == nil {
			s.token = strings.TrimSpace(string(data))
		}
		s.loaded = true
	}
	return s.token
}

// Clear removes the token from memory and disk. Used on logout.
func (s *TokenStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.token = ""
	s.loaded = true
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing token file: %w", err)
	}
	return nil
}

// Valid reports whether a token is present and, when it carries an exp claim,
// not yet expired. The signature is not checked; only the server can do that.
func (s *TokenStore) Valid() bool {
	token := s.Token()
	if token == "" {
		return false
	}

	parser := jwt.NewParser()
	claims := jwt.MapClaims{}
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		// Opaque tokens are left for the server to judge.
		return true
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return true
	}
	return exp.After(time.Now())
}
