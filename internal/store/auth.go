package store

import "github.com/kingrea/hiremind/internal/api"

// AuthState is the auth slice. Loading doubles as "token validation pending"
// during startup.
type AuthState struct {
	User            *api.User
	Token           string
	IsAuthenticated bool
	Loading         bool
	Error           string
}

func (a AuthState) clone() AuthState {
	a.User = cloneUser(a.User)
	return a
}

// AuthPending marks an auth action as in flight and clears the last error.
func (s *Store) AuthPending() {
	s.update(func() bool {
		s.auth.Loading = true
		s.auth.Error = ""
		return true
	})
}

// AuthSucceeded stores the user and token and marks the session authenticated.
func (s *Store) AuthSucceeded(user api.User, token string) {
	s.update(func() bool {
		s.auth.User = &user
		s.auth.Token = token
		s.auth.IsAuthenticated = true
		s.auth.Loading = false
		s.auth.Error = ""
		return true
	})
}

// AuthFailed ends an auth action that did not produce a session. The token
// field is left alone; callers clear it explicitly when the server rejected it.
func (s *Store) AuthFailed(message string) {
	s.update(func() bool {
		s.auth.Loading = false
		s.auth.IsAuthenticated = false
		s.auth.Error = message
		return true
	})
}

// AuthRejected drops the whole session and records why.
func (s *Store) AuthRejected(message string) {
	s.update(func() bool {
		s.auth = AuthState{Error: message}
		return true
	})
}

// SetUser replaces the user after a profile read or update.
func (s *Store) SetUser(user api.User) {
	s.update(func() bool {
		s.auth.User = &user
		s.auth.Loading = false
		s.auth.Error = ""
		return true
	})
}

// AuthSettled clears the loading flag and records message, which may be empty.
func (s *Store) AuthSettled(message string) {
	s.update(func() bool {
		s.auth.Loading = false
		s.auth.Error = message
		return true
	})
}

// ClearAuthError drops the last auth error.
func (s *Store) ClearAuthError() {
	s.update(func() bool {
		if s.auth.Error == "" {
			return false
		}
		s.auth.Error = ""
		return true
	})
}

// ClearAuth resets the slice to anonymous.
func (s *Store) ClearAuth() {
	s.update(func() bool {
		s.auth = AuthState{}
		return true
	})
}
