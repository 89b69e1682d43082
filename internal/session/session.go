// Package session implements the authentication actions. Each action calls
// the API, persists or clears the token and records the outcome in the auth
// slice of the store. Actions never navigate; the view layer reacts to the
// auth slice.
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kingrea/hiremind/internal/api"
	"github.com/kingrea/hiremind/internal/logbook"
	"github.com/kingrea/hiremind/internal/store"
	"github.com/kingrea/hiremind/internal/tokenstore"
)

// Default messages used when the server supplies no detail.
const (
	MsgLoginFailed        = "Login failed"
	MsgRegisterFailed     = "Registration failed"
	MsgValidationFailed   = "Token validation failed"
	MsgNoToken            = "No token found"
	MsgTokenExpired       = "Session expired"
	MsgUserFetchFailed    = "Failed to get user info"
	MsgProfileFailed      = "Profile update failed"
	MsgPasswordFailed     = "Password change failed"
	MsgSessionInvalidated = "Your session has expired. Please sign in again."
)

// ErrNoToken is returned by Validate when nothing is persisted.
var ErrNoToken = errors.New("session: no token found")

// TokenStore persists the session token.
type TokenStore interface {
	Token() string
	Save(token string) error
	Clear() error
}

// Service runs auth actions against one store.
type Service struct {
	client *api.Client
	tokens TokenStore
	store  *store.Store
	log    *logbook.Logbook
	clock  func() time.Time
	onExit []func()
}

// Option customizes a Service.
type Option func(*Service)

// WithLogbook records auth events in the journey log.
func WithLogbook(lb *logbook.Logbook) Option {
	return func(s *Service) {
		s.log = lb
	}
}

// WithClock overrides the clock used for token expiry checks.
func WithClock(clock func() time.Time) Option {
	return func(s *Service) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// OnSessionEnd registers fn to run whenever the session is dropped, for
// example to clear cached queries.
func OnSessionEnd(fn func()) Option {
	return func(s *Service) {
		if fn != nil {
			s.onExit = append(s.onExit, fn)
		}
	}
}

// New wires a Service.
func New(client *api.Client, tokens TokenStore, st *store.Store, opts ...Option) *Service {
	s := &Service{
		client: client,
		tokens: tokens,
		store:  st,
		clock:  time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Login exchanges credentials for a session. On failure the token storage
// is left exactly as it was.
func (s *Service) Login(ctx context.Context, req api.LoginRequest) error {
	s.store.AuthPending()
	resp, err := s.client.Login(ctx, req)
	if err != nil {
		msg := api.DetailOr(err, MsgLoginFailed)
		s.store.AuthFailed(msg)
		s.log.Warn("Login rejected for %s: %s", req.EmailOrUsername, msg)
		return fmt.Errorf("session: login: %w", err)
	}
	return s.establish(resp, "Signed in as %s")
}

// Register creates an account and signs it in.
func (s *Service) Register(ctx context.Context, req api.RegisterRequest) error {
	s.store.AuthPending()
	resp, err := s.client.Register(ctx, req)
	if err != nil {
		msg := api.DetailOr(err, MsgRegisterFailed)
		s.store.AuthFailed(msg)
		s.log.Warn("Registration rejected for %s: %s", req.Username, msg)
		return fmt.Errorf("session: register: %w", err)
	}
	return s.establish(resp, "Registered and signed in as %s")
}

func (s *Service) establish(resp api.AuthResponse, logFormat string) error {
	if err := s.tokens.Save(resp.Token); err != nil {
		s.store.AuthFailed("Could not store session token")
		return fmt.Errorf("session: persist token: %w", err)
	}
	s.store.AuthSucceeded(resp.User, resp.Token)
	s.log.Info(logFormat, resp.User.Username)
	return nil
}

// Logout tells the server and then clears local state whatever it answered.
func (s *Service) Logout(ctx context.Context) error {
	_, apiErr := s.client.Logout(ctx)
	s.drop("")
	s.log.Info("Signed out")
	if apiErr != nil {
		return fmt.Errorf("session: logout: %w", apiErr)
	}
	return nil
}

// Validate restores a persisted session on startup. Any failure clears the
// token and leaves the user anonymous.
func (s *Service) Validate(ctx context.Context) error {
	token := s.tokens.Token()
	s.store.AuthPending()
	if token == "" {
		s.store.AuthRejected(MsgNoToken)
		return ErrNoToken
	}
	if tokenstore.Expired(token, s.clock()) {
		s.drop(MsgTokenExpired)
		s.log.Info("Stored session token expired")
		return fmt.Errorf("session: validate: token expired")
	}
	if _, err := s.client.ValidateToken(ctx); err != nil {
		s.drop(api.DetailOr(err, MsgValidationFailed))
		return fmt.Errorf("session: validate: %w", err)
	}
	user, err := s.client.Me(ctx)
	if err != nil {
		s.drop(api.DetailOr(err, MsgValidationFailed))
		return fmt.Errorf("session: validate: %w", err)
	}
	s.store.AuthSucceeded(user, token)
	s.log.Info("Session restored for %s", user.Username)
	return nil
}

// RefreshUser reloads the current user.
func (s *Service) RefreshUser(ctx context.Context) error {
	s.store.AuthPending()
	user, err := s.client.Me(ctx)
	if err != nil {
		s.store.AuthSettled(api.DetailOr(err, MsgUserFetchFailed))
		return fmt.Errorf("session: refresh user: %w", err)
	}
	s.store.SetUser(user)
	return nil
}

// UpdateProfile saves the account's descriptive fields.
func (s *Service) UpdateProfile(ctx context.Context, req api.ProfileUpdateRequest) error {
	s.store.AuthPending()
	user, err := s.client.UpdateProfile(ctx, req)
	if err != nil {
		s.store.AuthSettled(api.DetailOr(err, MsgProfileFailed))
		return fmt.Errorf("session: update profile: %w", err)
	}
	s.store.SetUser(user)
	s.log.Info("Profile updated")
	return nil
}

// ChangePassword rotates the password. The session stays valid.
func (s *Service) ChangePassword(ctx context.Context, req api.PasswordChangeRequest) error {
	s.store.AuthPending()
	if _, err := s.client.ChangePassword(ctx, req); err != nil {
		s.store.AuthSettled(api.DetailOr(err, MsgPasswordFailed))
		return fmt.Errorf("session: change password: %w", err)
	}
	s.store.AuthSettled("")
	s.log.Info("Password changed")
	return nil
}

// ClearError drops the last auth error.
func (s *Service) ClearError() {
	s.store.ClearAuthError()
}

// ClearAuth drops the session without calling the server.
func (s *Service) ClearAuth() {
	s.drop("")
}

// HandleUnauthorized is the api client's 401 hook. A rejected session is
// dropped; rejected credentials on login or register are not.
func (s *Service) HandleUnauthorized(err *api.Error) {
	if err.CredentialsRejected() {
		return
	}
	if !s.store.Auth().IsAuthenticated && s.tokens.Token() == "" {
		return
	}
	s.log.Warn("Server rejected the session on %s %s", err.Method, err.Path)
	s.drop(MsgSessionInvalidated)
}

func (s *Service) drop(message string) {
	if err := s.tokens.Clear(); err != nil {
		s.log.Error("Clearing session token failed: %v", err)
	}
	if message == "" {
		s.store.ClearAuth()
	} else {
		s.store.AuthRejected(message)
	}
	for _, fn := range s.onExit {
		fn()
	}
}
