package hiring

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kingrea/hiremind/internal/api"
	"github.com/kingrea/hiremind/internal/fakeapi"
	"github.com/kingrea/hiremind/internal/poller"
	"github.com/kingrea/hiremind/internal/querycache"
	"github.com/kingrea/hiremind/internal/store"
)

func newService(t *testing.T, opts ...fakeapi.Option) (*Service, *fakeapi.Server, *store.Store) {
	t.Helper()
	srv := fakeapi.New(opts...)
	require.NoError(t, srv.Start(context.Background()))
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	st := store.New()
	svc := New(api.New(srv.BaseURL()), st, querycache.New(querycache.WithRetryDelay(0)))
	return svc, srv, st
}

func track(t *testing.T, svc *Service, sessionID string, maxAttempts int) (poller.Reason, []poller.Reason) {
	t.Helper()
	ctl := poller.NewController(poller.Config{Interval: time.Millisecond, MaxAttempts: maxAttempts})
	stops := make(chan poller.Reason, 4)
	svc.Track(context.Background(), ctl, sessionID, func(r poller.Reason) { stops <- r })
	var got []poller.Reason
	select {
	case r := <-stops:
		got = append(got, r)
	case <-time.After(5 * time.Second):
		t.Fatalf("tracking did not stop")
	}
	time.Sleep(10 * time.Millisecond)
	for len(stops) > 0 {
		got = append(got, <-stops)
	}
	return got[0], got
}

func TestStartAndPollToCompletion(t *testing.T) {
	svc, srv, st := newService(t, fakeapi.WithSessionIDs("sess-42"))
	resp, err := svc.StartWorkflow(context.Background(), api.WorkflowStartRequest{Description: "Need a backend engineer", CompanyName: "Acme"})
	require.NoError(t, err)
	require.Equal(t, "sess-42", resp.SessionID)
	assert.Equal(t, store.RunLoading, st.Workflow().Status)

	reason, all := track(t, svc, resp.SessionID, 90)
	assert.Equal(t, poller.ReasonCompleted, reason)
	assert.Len(t, all, 1, "stop callback fires exactly once")

	wf := st.Workflow()
	assert.Equal(t, store.RunSucceeded, wf.Status)
	assert.Len(t, wf.CompletedStages, 6)
	assert.Equal(t, 6, srv.StatusCalls("sess-42"), "no poll after completion")
}

func TestPollingStopsOnFailure(t *testing.T) {
	svc, srv, st := newService(t, fakeapi.WithSessionIDs("s"), fakeapi.WithFailureAfter(2))
	_, err := svc.StartWorkflow(context.Background(), api.WorkflowStartRequest{Description: "d", CompanyName: "c"})
	require.NoError(t, err)

	reason, _ := track(t, svc, "s", 90)
	assert.Equal(t, poller.ReasonFailed, reason)
	wf := st.Workflow()
	assert.Equal(t, store.RunFailed, wf.Status)
	assert.Equal(t, "stage interview_plan failed", wf.Error)
	assert.Equal(t, 3, srv.StatusCalls("s"))
}

func TestPollingTimesOutAfterCeiling(t *testing.T) {
	svc, srv, st := newService(t, fakeapi.WithSessionIDs("s"), fakeapi.WithStalledWorkflows())
	_, err := svc.StartWorkflow(context.Background(), api.WorkflowStartRequest{Description: "d", CompanyName: "c"})
	require.NoError(t, err)

	reason, _ := track(t, svc, "s", 90)
	assert.Equal(t, poller.ReasonExhausted, reason)
	assert.Equal(t, 90, srv.StatusCalls("s"))
	assert.Equal(t, store.RunTimedOut, st.Workflow().Status)
}

func TestRepeatedFetchIsStable(t *testing.T) {
	svc, _, st := newService(t, fakeapi.WithStalledWorkflows(), fakeapi.WithSessionIDs("s"))
	_, err := svc.StartWorkflow(context.Background(), api.WorkflowStartRequest{Description: "d", CompanyName: "c"})
	require.NoError(t, err)

	first, err := svc.FetchStatus(context.Background(), "s")
	require.NoError(t, err)
	snapshot := st.Workflow()
	for i := 0; i < 3; i++ {
		status, err := svc.FetchStatus(context.Background(), "s")
		require.NoError(t, err)
		assert.Equal(t, first, status)
		assert.Equal(t, snapshot.CompletedStages, st.Workflow().CompletedStages)
		assert.Equal(t, snapshot.Status, st.Workflow().Status)
	}
}

func TestFailedPollKeepsLastGoodState(t *testing.T) {
	svc, srv, st := newService(t, fakeapi.WithSessionIDs("s"))
	_, err := svc.StartWorkflow(context.Background(), api.WorkflowStartRequest{Description: "d", CompanyName: "c"})
	require.NoError(t, err)

	_, err = svc.FetchStatus(context.Background(), "s")
	require.NoError(t, err)
	good := st.Workflow()
	require.Len(t, good.CompletedStages, 1)

	srv.FailNext(1, http.StatusServiceUnavailable)
	_, err = svc.FetchStatus(context.Background(), "s")
	require.Error(t, err)
	assert.False(t, poller.IsPermanent(err))
	wf := st.Workflow()
	assert.Equal(t, good.CompletedStages, wf.CompletedStages)
	assert.Equal(t, store.RunLoading, wf.Status)
	assert.Empty(t, wf.Error)

	srv.FailNext(1, http.StatusBadGateway)
	reason, _ := track(t, svc, "s", 90)
	assert.Equal(t, poller.ReasonCompleted, reason)
	assert.Equal(t, store.RunSucceeded, st.Workflow().Status)
	assert.Len(t, st.Workflow().CompletedStages, 6)
	assert.Equal(t, 6, srv.StatusCalls("s"))
}

func TestUnauthorizedPollStopsTracking(t *testing.T) {
	svc, srv, st := newService(t, fakeapi.WithSessionIDs("s"))
	_, err := svc.StartWorkflow(context.Background(), api.WorkflowStartRequest{Description: "d", CompanyName: "c"})
	require.NoError(t, err)

	srv.FailNext(1, http.StatusUnauthorized)
	reason, _ := track(t, svc, "s", 90)
	assert.Equal(t, poller.ReasonError, reason)
	assert.Zero(t, srv.StatusCalls("s"))
	assert.Equal(t, store.RunLoading, st.Workflow().Status)
}

func TestStartFailureRecordsError(t *testing.T) {
	svc, _, st := newService(t)
	_, err := svc.StartWorkflow(context.Background(), api.WorkflowStartRequest{CompanyName: "Acme"})
	require.Error(t, err)
	wf := st.Workflow()
	assert.Equal(t, store.RunFailed, wf.Status)
	assert.Equal(t, "field required", wf.Error)
}

func TestDeleteProfile(t *testing.T) {
	svc, srv, st := newService(t)
	srv.SeedProfile("a", "Senior Backend Engineer role", "Engineering")
	srv.SeedProfile("b", "Product Manager", "Product")
	ctx := context.Background()

	list, err := svc.Profiles(ctx)
	require.NoError(t, err)
	require.Len(t, list.Profiles, 2)

	srv.FailDeletes(true)
	require.Error(t, svc.DeleteProfile(ctx, "a"))
	list, err = svc.Profiles(ctx)
	require.NoError(t, err)
	assert.Len(t, list.Profiles, 2, "list unchanged on failure")
	notes := st.UI().Notifications
	require.Len(t, notes, 1)
	assert.Equal(t, MsgDeleteFailed, notes[0].Message)
	assert.Equal(t, store.NotifyError, notes[0].Type)

	srv.FailDeletes(false)
	require.NoError(t, svc.DeleteProfile(ctx, "a"))
	list, err = svc.Profiles(ctx)
	require.NoError(t, err)
	require.Len(t, list.Profiles, 1)
	assert.Equal(t, "b", list.Profiles[0].SessionID)
	recent, err := svc.RecentProfiles(ctx)
	require.NoError(t, err)
	assert.Len(t, recent.Profiles, 1)
	assert.Equal(t, MsgDeleted, st.UI().Notifications[1].Message)
}

func TestProfileAndAgent(t *testing.T) {
	svc, srv, st := newService(t)
	srv.SeedProfile("a", "Data Scientist", "AI")
	profile, err := svc.Profile(context.Background(), "a")
	require.NoError(t, err)
	assert.Equal(t, "Data Scientist", profile.RoleTitle)
	assert.Contains(t, profile.Results.Text("offer_letter"), "Data Scientist")

	_, err = svc.Profile(context.Background(), "missing")
	require.ErrorIs(t, err, api.ErrNotFound)

	resp, err := svc.RunAgent(context.Background(), api.AgentRunRequest{AgentType: "jd_generator", InputText: "hello"})
	require.NoError(t, err)
	assert.Equal(t, "jd_generator says: hello", resp.Output)
	assert.Equal(t, store.RunSucceeded, st.Workflow().Status)
	assert.Equal(t, resp.SessionID, st.Workflow().SessionID)

	_, err = svc.RunAgent(context.Background(), api.AgentRunRequest{AgentType: "nope", InputText: "x"})
	require.Error(t, err)
	assert.Contains(t, st.Workflow().Error, "Invalid agent type")
}

func TestHealth(t *testing.T) {
	svc, _, _ := newService(t)
	health, err := svc.Health(context.Background())
	require.NoError(t, err)
	assert.True(t, health.Healthy())
}
