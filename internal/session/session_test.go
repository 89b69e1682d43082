package session

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kingrea/hiremind/internal/api"
	"github.com/kingrea/hiremind/internal/fakeapi"
	"github.com/kingrea/hiremind/internal/store"
	"github.com/kingrea/hiremind/internal/tokenstore"
)

type harness struct {
	srv    *fakeapi.Server
	tokens *tokenstore.Store
	store  *store.Store
	svc    *Service
	ended  int
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	srv := fakeapi.New()
	require.NoError(t, srv.Start(context.Background()))
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	srv.AddUser("alice", "alice@example.com", "Secret123")

	h := &harness{srv: srv, tokens: tokenstore.NewInDir(filepath.Join(t.TempDir(), "state")), store: store.New()}
	var svc *Service
	client := api.New(srv.BaseURL(),
		api.WithTokenSource(h.tokens),
		api.OnUnauthorized(func(err *api.Error) { svc.HandleUnauthorized(err) }),
	)
	svc = New(client, h.tokens, h.store, OnSessionEnd(func() { h.ended++ }))
	h.svc = svc
	return h
}

func TestInvalidLoginLeavesTokenUntouched(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.tokens.Save("previous-token"))

	err := h.svc.Login(context.Background(), api.LoginRequest{EmailOrUsername: "alice", Password: "wrong"})
	require.ErrorIs(t, err, api.ErrUnauthorized)

	auth := h.store.Auth()
	assert.False(t, auth.IsAuthenticated)
	assert.False(t, auth.Loading)
	assert.Equal(t, "Invalid credentials", auth.Error)
	assert.Equal(t, "previous-token", h.tokens.Token())
	assert.Equal(t, 0, h.ended)
}

func TestLoginPersistsTokenAndAttachesIt(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.svc.Login(context.Background(), api.LoginRequest{EmailOrUsername: "alice", Password: "Secret123"}))

	auth := h.store.Auth()
	require.True(t, auth.IsAuthenticated)
	token := h.tokens.Token()
	require.NotEmpty(t, token)
	assert.Equal(t, token, auth.Token)

	fresh, err := tokenstore.NewInDir(filepath.Dir(h.tokens.Path())).Load()
	require.NoError(t, err)
	assert.Equal(t, token, fresh)

	require.NoError(t, h.svc.RefreshUser(context.Background()))
	reqs := h.srv.Requests()
	assert.Equal(t, "Bearer "+token, reqs[len(reqs)-1].Authorization)

	require.NoError(t, h.svc.Logout(context.Background()))
	assert.Empty(t, h.tokens.Token())
	assert.False(t, h.store.Auth().IsAuthenticated)
	assert.Equal(t, 1, h.ended)
}

func TestRegisterSignsIn(t *testing.T) {
	h := newHarness(t)
	err := h.svc.Register(context.Background(), api.RegisterRequest{
		Email: "bob@example.com", Username: "bob", Password: "Secret123", FirstName: "Bob", LastName: "B",
	})
	require.NoError(t, err)
	assert.True(t, h.store.Auth().IsAuthenticated)
	assert.NotEmpty(t, h.tokens.Token())

	err = h.svc.Register(context.Background(), api.RegisterRequest{Email: "bob@example.com", Username: "bob2", Password: "Secret123"})
	require.Error(t, err)
	assert.Equal(t, "Email already registered", h.store.Auth().Error)
}

func TestLogoutClearsEvenWhenServerFails(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.svc.Login(context.Background(), api.LoginRequest{EmailOrUsername: "alice", Password: "Secret123"}))
	h.srv.FailNext(1, 500)

	err := h.svc.Logout(context.Background())
	require.Error(t, err)
	assert.Empty(t, h.tokens.Token())
	assert.Equal(t, store.AuthState{}, h.store.Auth())
}

func TestValidate(t *testing.T) {
	t.Run("no token", func(t *testing.T) {
		h := newHarness(t)
		err := h.svc.Validate(context.Background())
		require.ErrorIs(t, err, ErrNoToken)
		assert.Equal(t, MsgNoToken, h.store.Auth().Error)
		assert.Empty(t, h.srv.Requests())
	})

	t.Run("valid token restores session", func(t *testing.T) {
		h := newHarness(t)
		require.NoError(t, h.tokens.Save(h.srv.IssueToken("alice")))
		require.NoError(t, h.svc.Validate(context.Background()))
		auth := h.store.Auth()
		assert.True(t, auth.IsAuthenticated)
		require.NotNil(t, auth.User)
		assert.Equal(t, "alice", auth.User.Username)
		paths := []string{}
		for _, r := range h.srv.Requests() {
			paths = append(paths, r.Path)
		}
		assert.Equal(t, []string{"/auth/validate-token", "/auth/me"}, paths)
	})

	t.Run("revoked token is cleared", func(t *testing.T) {
		h := newHarness(t)
		token := h.srv.IssueToken("alice")
		h.srv.RevokeToken(token)
		require.NoError(t, h.tokens.Save(token))
		require.Error(t, h.svc.Validate(context.Background()))
		assert.Empty(t, h.tokens.Token())
		assert.False(t, h.store.Auth().IsAuthenticated)
		assert.Equal(t, "Could not validate credentials", h.store.Auth().Error)
	})

	t.Run("expired jwt skips the request", func(t *testing.T) {
		h := newHarness(t)
		expired := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
		})
		signed, err := expired.SignedString([]byte("k"))
		require.NoError(t, err)
		require.NoError(t, h.tokens.Save(signed))
		require.Error(t, h.svc.Validate(context.Background()))
		assert.Empty(t, h.srv.Requests())
		assert.Empty(t, h.tokens.Token())
		assert.Equal(t, MsgTokenExpired, h.store.Auth().Error)
	})
}

func TestUnauthorizedAnywhereDropsSession(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.svc.Login(context.Background(), api.LoginRequest{EmailOrUsername: "alice", Password: "Secret123"}))
	h.srv.RevokeToken(h.tokens.Token())

	err := h.svc.UpdateProfile(context.Background(), api.ProfileUpdateRequest{})
	require.ErrorIs(t, err, api.ErrUnauthorized)
	assert.Empty(t, h.tokens.Token())
	auth := h.store.Auth()
	assert.False(t, auth.IsAuthenticated)
	assert.Equal(t, 1, h.ended)
}

func TestChangePasswordKeepsSession(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.svc.Login(context.Background(), api.LoginRequest{EmailOrUsername: "alice", Password: "Secret123"}))

	err := h.svc.ChangePassword(context.Background(), api.PasswordChangeRequest{CurrentPassword: "nope", NewPassword: "Secret456"})
	require.Error(t, err)
	assert.Equal(t, "Current password is incorrect", h.store.Auth().Error)
	assert.True(t, h.store.Auth().IsAuthenticated)

	h.svc.ClearError()
	require.NoError(t, h.svc.ChangePassword(context.Background(), api.PasswordChangeRequest{CurrentPassword: "Secret123", NewPassword: "Secret456"}))
	assert.Empty(t, h.store.Auth().Error)
	assert.False(t, h.store.Auth().Loading)
}

func TestUpdateProfileReplacesUser(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.svc.Login(context.Background(), api.LoginRequest{EmailOrUsername: "alice", Password: "Secret123"}))
	title := "Head of Talent"
	require.NoError(t, h.svc.UpdateProfile(context.Background(), api.ProfileUpdateRequest{JobTitle: &title}))
	assert.Equal(t, title, h.store.Auth().User.JobTitle)
}
