package fakeapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"testing"
)

func startServer(t *testing.T, opts ...Option) *Server {
	t.Helper()
	srv := New(opts...)
	if err := srv.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	t.Cleanup(func() {
		_ = srv.Shutdown(context.Background())
	})
	return srv
}

func call(t *testing.T, srv *Server, method, path, token string, body any) (int, map[string]any) {
	t.Helper()
	var payload bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&payload).Encode(body); err != nil {
			t.Fatalf("encode: %v", err)
		}
	}
	req, err := http.NewRequest(method, srv.BaseURL()+path, &payload)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	out := map[string]any{}
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp.StatusCode, out
}

func TestStartTwiceFails(t *testing.T) {
	srv := startServer(t)
	if err := srv.Start(context.Background()); err == nil {
		t.Fatalf("expected second start to fail")
	}
	if srv.BaseURL() == "" {
		t.Fatalf("expected base url while running")
	}
	if err := srv.Shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
	if srv.BaseURL() != "" {
		t.Fatalf("base url should clear after shutdown")
	}
}

func TestWorkflowAdvancesOneStagePerPoll(t *testing.T) {
	srv := startServer(t, WithSessionIDs("s1"))
	status, body := call(t, srv, http.MethodPost, "/api/workflow/start", "", map[string]string{
		"description": "Need a backend engineer", "company_name": "Acme",
	})
	if status != http.StatusOK || body["session_id"] != "s1" || body["status"] != "processing" {
		t.Fatalf("unexpected start response %d %v", status, body)
	}
	for i := 1; i <= len(stageNames); i++ {
		_, body = call(t, srv, http.MethodGet, "/api/workflow/s1", "", nil)
		if got := len(body["completed_stages"].([]any)); got != i {
			t.Fatalf("poll %d: expected %d stages, got %d", i, i, got)
		}
	}
	if body["status"] != "completed" {
		t.Fatalf("expected completed after all stages, got %v", body["status"])
	}
	if srv.StatusCalls("s1") != len(stageNames) {
		t.Fatalf("status calls = %d", srv.StatusCalls("s1"))
	}
}

func TestFailureAfterStages(t *testing.T) {
	srv := startServer(t, WithSessionIDs("s1"), WithFailureAfter(2))
	call(t, srv, http.MethodPost, "/api/workflow/start", "", map[string]string{"description": "x", "company_name": "Acme"})
	var body map[string]any
	for i := 0; i < 3; i++ {
		_, body = call(t, srv, http.MethodGet, "/api/workflow/s1", "", nil)
	}
	if body["status"] != "failed" || body["error"] != "stage interview_plan failed" {
		t.Fatalf("unexpected failure payload %v", body)
	}
}

func TestRevokedTokenIsRejected(t *testing.T) {
	srv := startServer(t)
	srv.AddUser("ada", "ada@example.com", "Secret123")
	token := srv.IssueToken("ada")
	if status, _ := call(t, srv, http.MethodGet, "/auth/me", token, nil); status != http.StatusOK {
		t.Fatalf("expected me to succeed, got %d", status)
	}
	srv.RevokeToken(token)
	status, body := call(t, srv, http.MethodGet, "/api/profiles", token, nil)
	if status != http.StatusUnauthorized || body["detail"] != "Invalid or expired token" {
		t.Fatalf("expected 401, got %d %v", status, body)
	}
	reqs := srv.Requests()
	if len(reqs) != 2 || reqs[1].Authorization != "Bearer "+token {
		t.Fatalf("requests not recorded: %+v", reqs)
	}
}

func TestFailNextForcesStatus(t *testing.T) {
	srv := startServer(t)
	srv.FailNext(1, http.StatusServiceUnavailable)
	if status, _ := call(t, srv, http.MethodGet, "/health", "", nil); status != http.StatusServiceUnavailable {
		t.Fatalf("expected forced 503, got %d", status)
	}
	if status, _ := call(t, srv, http.MethodGet, "/health", "", nil); status != http.StatusOK {
		t.Fatalf("expected recovery, got %d", status)
	}
}
