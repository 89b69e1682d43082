// Package tokenstore persists the session token under a single fixed key.
//
// The token lives in a file named after the key inside the client's state
// directory. Writes replace the file atomically; concurrent writers are
// last-writer-wins.
package tokenstore

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Key is the storage key the token is persisted under.
const Key = "hiremind_token"

// Store holds the token in memory and mirrors it to disk.
type Store struct {
	path string

	mu     sync.RWMutex
	token  string
	loaded bool
}

// New returns a store backed by path. Nothing is read until Load.
func New(path string) *Store {
	return &Store{path: path}
}

// NewInDir stores the token as <dir>/hiremind_token.
func NewInDir(dir string) *Store {
	return New(filepath.Join(dir, Key))
}

// Path returns the backing file.
func (s *Store) Path() string {
	return s.path
}

// Load reads the persisted token. A missing file yields "".
func (s *Store) Load() (string, error) {
	data, err := os.ReadFile(s.path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("tokenstore: read %s: %w", s.path, err)
	}
	token := strings.TrimSpace(string(data))
	s.mu.Lock()
	s.token = token
	s.loaded = true
	s.mu.Unlock()
	return token, nil
}

// Save persists token, replacing any previous value.
func (s *Store) Save(token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return s.Clear()
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("tokenstore: create dir: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, []byte(token+"\n"), 0o600); err != nil {
		return fmt.Errorf("tokenstore: write: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("tokenstore: replace: %w", err)
	}
	s.mu.Lock()
	s.token = token
	s.loaded = true
	s.mu.Unlock()
	return nil
}

// Clear removes the persisted token.
func (s *Store) Clear() error {
	s.mu.Lock()
	s.token = ""
	s.loaded = true
	s.mu.Unlock()
	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("tokenstore: remove: %w", err)
	}
	return nil
}

// Token returns the current token, loading it lazily on first use. It
// satisfies api.TokenSource so the client reads storage on every request.
func (s *Store) Token() string {
	s.mu.RLock()
	token, loaded := s.token, s.loaded
	s.mu.RUnlock()
	if loaded {
		return token
	}
	token, _ = s.Load()
	return token
}

// Expired reports whether token is a JWT whose exp claim is before now. The
// signature is not verified; the server stays the authority. Tokens that are
// not JWTs or carry no exp are never considered expired.
func Expired(token string, now time.Time) bool {
	token = strings.TrimSpace(token)
	if token == "" {
		return true
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return !now.Before(exp.Time)
}
