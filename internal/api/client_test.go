package api_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/kingrea/hiremind/internal/api"
	"github.com/kingrea/hiremind/internal/fakeapi"
)

func startFake(t *testing.T, opts ...fakeapi.Option) *fakeapi.Server {
	t.Helper()
	srv := fakeapi.New(opts...)
	require.NoError(t, srv.Start(context.Background()))
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	return srv
}

func TestLoginAttachesBearerToLaterRequests(t *testing.T) {
	srv := startFake(t)
	srv.AddUser("alice", "alice@example.com", "Secret123")

	var token string
	client := api.New(srv.BaseURL(), api.WithTokenSource(api.TokenSourceFunc(func() string { return token })))

	resp, err := client.Login(context.Background(), api.LoginRequest{EmailOrUsername: "alice@example.com", Password: "Secret123"})
	require.NoError(t, err)
	require.NotEmpty(t, resp.Token)
	assert.Equal(t, "alice", resp.User.Username)
	token = resp.Token

	me, err := client.Me(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", me.Email)

	_, err = client.ListProfiles(context.Background(), 5)
	require.NoError(t, err)

	reqs := srv.Requests()
	require.Len(t, reqs, 3)
	assert.Empty(t, reqs[0].Authorization, "login is sent before a token exists")
	for _, r := range reqs[1:] {
		assert.Equal(t, "Bearer "+token, r.Authorization, r.Path)
		assert.NotEmpty(t, r.RequestID)
	}
	assert.Equal(t, "limit=5", reqs[2].Query)
}

func TestLoginFailureCarriesDetail(t *testing.T) {
	srv := startFake(t)
	srv.AddUser("alice", "alice@example.com", "Secret123")
	var hooked int32
	client := api.New(srv.BaseURL(), api.OnUnauthorized(func(*api.Error) { atomic.AddInt32(&hooked, 1) }))

	_, err := client.Login(context.Background(), api.LoginRequest{EmailOrUsername: "alice", Password: "nope"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, api.ErrUnauthorized))
	assert.Equal(t, "Invalid credentials", api.DetailOr(err, "Login failed"))
	assert.Equal(t, int32(1), atomic.LoadInt32(&hooked))
}

func TestUnauthorizedFromAnyEndpointFiresHook(t *testing.T) {
	srv := startFake(t)
	srv.AddUser("bob", "bob@example.com", "Secret123")
	token := srv.IssueToken("bob")
	srv.RevokeToken(token)

	var hooked int32
	client := api.New(srv.BaseURL(),
		api.WithTokenSource(api.TokenSourceFunc(func() string { return token })),
		api.OnUnauthorized(func(*api.Error) { atomic.AddInt32(&hooked, 1) }),
	)

	_, err := client.ListProfiles(context.Background(), 0)
	require.ErrorIs(t, err, api.ErrUnauthorized)
	_, err = client.WorkflowStatus(context.Background(), "abc")
	require.ErrorIs(t, err, api.ErrUnauthorized)
	assert.Equal(t, int32(2), atomic.LoadInt32(&hooked))
}

func TestValidationDetailListIsJoined(t *testing.T) {
	srv := startFake(t)
	client := api.New(srv.BaseURL())

	_, err := client.StartWorkflow(context.Background(), api.WorkflowStartRequest{CompanyName: "Acme"})
	var apiErr *api.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnprocessableEntity, apiErr.StatusCode)
	assert.Equal(t, "field required", apiErr.Detail)
}

func TestStartWorkflowAndPollStatus(t *testing.T) {
	srv := startFake(t, fakeapi.WithSessionIDs("sess-1"))
	client := api.New(srv.BaseURL())
	ctx := context.Background()

	started, err := client.StartWorkflow(ctx, api.WorkflowStartRequest{Description: "Need a backend engineer", CompanyName: "Acme"})
	require.NoError(t, err)
	assert.Equal(t, "sess-1", started.SessionID)
	assert.Equal(t, "processing", started.Status)
	assert.Empty(t, started.CompletedStages)

	status, err := client.WorkflowStatus(ctx, "sess-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"role_definition"}, status.CompletedStages)
	assert.Contains(t, status.Results.Text("role_definition"), "Need a backend engineer")
	assert.Equal(t, 1, srv.StatusCalls("sess-1"))
}

func TestWorkflowStatusRejectsEmptySession(t *testing.T) {
	client := api.New("http://127.0.0.1:1")
	_, err := client.WorkflowStatus(context.Background(), "  ")
	require.Error(t, err)
}

func TestListProfilesNeverReturnsNilSlice(t *testing.T) {
	srv := startFake(t)
	client := api.New(srv.BaseURL())
	list, err := client.ListProfiles(context.Background(), 20)
	require.NoError(t, err)
	assert.NotNil(t, list.Profiles)
	assert.Empty(t, list.Profiles)
}

func TestGetProfileAcceptsFlatResults(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"session_id":"s-9","role_definition":{"output":"## Role"},"offer_letter":"Dear candidate"}`))
	}))
	defer ts.Close()

	client := api.New(ts.URL)
	profile, err := client.GetProfile(context.Background(), "s-9")
	require.NoError(t, err)
	assert.Equal(t, "s-9", profile.SessionID)
	assert.Equal(t, "## Role", profile.Results.Text("role_definition"))
	assert.Equal(t, "Dear candidate", profile.Results.Text("offer_letter"))
}

func TestDeleteProfileNotFound(t *testing.T) {
	srv := startFake(t)
	client := api.New(srv.BaseURL())
	err := client.DeleteProfile(context.Background(), "missing")
	require.ErrorIs(t, err, api.ErrNotFound)
	assert.Equal(t, "Profile not found", api.DetailOr(err, ""))
}

func TestHealth(t *testing.T) {
	srv := startFake(t)
	health, err := api.New(srv.BaseURL() + "/").Health(context.Background())
	require.NoError(t, err)
	assert.True(t, health.Healthy())
	assert.Equal(t, "connected", health.Services["redis"])
}

func TestDetailOrFallsBackOnTransportErrors(t *testing.T) {
	client := api.New("http://127.0.0.1:1")
	_, err := client.Health(context.Background())
	require.Error(t, err)
	assert.Equal(t, "fallback", api.DetailOr(err, "fallback"))
}

func TestResultsText(t *testing.T) {
	results := api.Results{
		"plain":   []byte(`"hello"`),
		"wrapped": []byte(`{"output":"inside"}`),
		"object":  []byte(`{"k":1}`),
		"null":    []byte(`null`),
	}
	assert.Equal(t, "hello", results.Text("plain"))
	assert.Equal(t, "inside", results.Text("wrapped"))
	assert.Equal(t, "{\n  \"k\": 1\n}", results.Text("object"))
	assert.False(t, results.Has("null"))
	assert.False(t, results.Has("absent"))
}

func TestCallsAreTracedByRouteTemplate(t *testing.T) {
	srv := startFake(t)
	srv.SeedProfile("sess-7", "Platform Engineer", "Infra")
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	client := api.New(srv.BaseURL(), api.WithTracerProvider(tp))
	_, err := client.GetProfile(context.Background(), "sess-7")
	require.NoError(t, err)
	_, err = client.GetProfile(context.Background(), "gone")
	require.Error(t, err)

	spans := rec.Ended()
	require.Len(t, spans, 2)
	assert.Equal(t, "GET /api/profiles/{session_id}", spans[0].Name())
	assert.Equal(t, codes.Unset, spans[0].Status().Code)
	assert.Equal(t, codes.Error, spans[1].Status().Code)
}
