// Package fakeapi serves a scripted, in-memory stand-in for the hiring API
// REST contract. Tests drive the real client, actions and TUI against it;
// it implements just enough behaviour (accounts, tokens, stage-by-stage
// workflow progress, profiles) to exercise every client path.
package fakeapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ServerStatus reports runtime lifecycle states for the HTTP server.
type ServerStatus string

const (
	StatusStarting ServerStatus = "starting"
	StatusReady    ServerStatus = "ready"
	StatusDraining ServerStatus = "draining"
)

// DefaultMaxBodyBytes limits request payloads to 1 MB.
const DefaultMaxBodyBytes int64 = 1 << 20

var stageNames = []string{
	"role_definition",
	"job_description",
	"interview_plan",
	"timeline",
	"salary_benchmark",
	"offer_letter",
}

// RecordedRequest captures what the client sent.
type RecordedRequest struct {
	Method        string
	Path          string
	Query         string
	Authorization string
	RequestID     string
}

type account struct {
	user     map[string]any
	password string
}

type run struct {
	sessionID   string
	description string
	company     string
	department  string
	completed   []string
	failed      bool
	polls       int
	created     time.Time
}

// Server wraps the HTTP listener and handlers backing the fake API.
type Server struct {
	clock func() time.Time

	mu            sync.Mutex
	server        *http.Server
	listener      net.Listener
	status        ServerStatus
	accounts      map[string]*account
	tokens        map[string]string
	nextUserID    int
	runs          map[string]*run
	order         []string
	requests      []RecordedRequest
	stagesPerPoll int
	failAfter     int
	stall         bool
	failDeletes   bool
	failStatus    map[int]int
	sessionIDs    []string
}

// Option customizes server construction.
type Option func(*Server)

// WithClock allows tests to control timestamps.
func WithClock(clock func() time.Time) Option {
	return func(s *Server) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithStagesPerPoll controls how many stages complete per status request.
func WithStagesPerPoll(n int) Option {
	return func(s *Server) {
		if n > 0 {
			s.stagesPerPoll = n
		}
	}
}

// WithFailureAfter makes workflows fail once n stages have completed.
func WithFailureAfter(n int) Option {
	return func(s *Server) {
		s.failAfter = n
	}
}

// WithStalledWorkflows keeps every workflow processing forever.
func WithStalledWorkflows() Option {
	return func(s *Server) {
		s.stall = true
	}
}

// WithSessionIDs pins the ids handed out by /api/workflow/start, in order.
func WithSessionIDs(ids ...string) Option {
	return func(s *Server) {
		s.sessionIDs = append(s.sessionIDs, ids...)
	}
}

// New prepares a fake server. Call Start to bind it.
func New(opts ...Option) *Server {
	s := &Server{
		clock:         func() time.Time { return time.Now().UTC() },
		status:        StatusStarting,
		accounts:      map[string]*account{},
		tokens:        map[string]string{},
		runs:          map[string]*run{},
		stagesPerPoll: 1,
		failAfter:     -1,
		failStatus:    map[int]int{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Start binds a loopback listener on an ephemeral port and serves requests.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return fmt.Errorf("fakeapi: server already started")
	}
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return fmt.Errorf("fakeapi: listen: %w", err)
	}
	s.listener = listener
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.record(s.handleHealth))
	mux.HandleFunc("/auth/", s.record(s.handleAuth))
	mux.HandleFunc("/api/workflow/", s.record(s.authorized(s.handleWorkflow)))
	mux.HandleFunc("/api/agent/run", s.record(s.authorized(s.handleAgent)))
	mux.HandleFunc("/api/profiles", s.record(s.authorized(s.handleProfiles)))
	mux.HandleFunc("/api/profiles/", s.record(s.authorized(s.handleProfile)))
	server := &http.Server{
		Handler:     mux,
		ReadTimeout: 5 * time.Second,
	}
	if ctx != nil {
		server.BaseContext = func(net.Listener) context.Context { return ctx }
	}
	s.server = server
	s.status = StatusReady
	go func() {
		_ = server.Serve(listener)
	}()
	return nil
}

// Shutdown stops accepting new connections and waits for in-flight requests to exit.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil || s.server == nil {
		return nil
	}
	s.status = StatusDraining
	if ctx == nil {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
	}
	if err := s.server.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	s.listener = nil
	s.server = nil
	return nil
}

// BaseURL returns the HTTP base URL (scheme + host:port) for the running server.
func (s *Server) BaseURL() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return "http://" + s.listener.Addr().String()
}

// AddUser seeds an account and returns its id.
func (s *Server) AddUser(username, email, password string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addUserLocked(map[string]any{
		"username":   username,
		"email":      email,
		"first_name": strings.ToUpper(username[:1]) + username[1:],
		"last_name":  "Tester",
	}, password)
}

// IssueToken logs username in directly and returns the bearer token.
func (s *Server) IssueToken(username string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	token := "tok-" + uuid.NewString()
	s.tokens[token] = username
	return token
}

// RevokeToken makes every later request carrying token fail with 401.
func (s *Server) RevokeToken(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tokens, token)
}

// FailDeletes makes DELETE /api/profiles/{id} answer 500.
func (s *Server) FailDeletes(fail bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failDeletes = fail
}

// FailNext makes the next n requests answer with the given status code.
func (s *Server) FailNext(n, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failStatus[status] += n
}

// SeedProfile stores a finished profile as if a workflow had completed.
func (s *Server) SeedProfile(sessionID, description, department string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := &run{
		sessionID:   sessionID,
		description: description,
		department:  department,
		company:     "Seeded",
		completed:   append([]string(nil), stageNames...),
		created:     s.clock(),
	}
	s.runs[sessionID] = r
	s.order = append(s.order, sessionID)
}

// StatusCalls returns how many status requests a session received.
func (s *Server) StatusCalls(sessionID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok := s.runs[sessionID]; ok {
		return r.polls
	}
	return 0
}

// Requests returns a copy of every request seen so far.
func (s *Server) Requests() []RecordedRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]RecordedRequest, len(s.requests))
	copy(out, s.requests)
	return out
}

// ProfileCount returns the number of stored profiles.
func (s *Server) ProfileCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.runs)
}

func (s *Server) addUserLocked(fields map[string]any, password string) int {
	s.nextUserID++
	user := map[string]any{
		"id":          s.nextUserID,
		"is_active":   true,
		"is_verified": false,
		"created_at":  s.clock().Format(time.RFC3339),
	}
	for k, v := range fields {
		user[k] = v
	}
	acct := &account{user: user, password: password}
	s.accounts[strings.ToLower(fmt.Sprint(user["username"]))] = acct
	return s.nextUserID
}

func (s *Server) record(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.requests = append(s.requests, RecordedRequest{
			Method:        r.Method,
			Path:          r.URL.Path,
			Query:         r.URL.RawQuery,
			Authorization: r.Header.Get("Authorization"),
			RequestID:     r.Header.Get("X-Request-ID"),
		})
		var forced int
		for status, remaining := range s.failStatus {
			if remaining > 0 {
				s.failStatus[status] = remaining - 1
				forced = status
				break
			}
		}
		s.mu.Unlock()
		if forced != 0 {
			writeJSON(w, forced, map[string]string{"detail": http.StatusText(forced)})
			return
		}
		next(w, r)
	}
}

// authorized rejects requests whose bearer token is unknown. Requests with no
// token at all pass, mirroring the public workflow endpoints.
func (s *Server) authorized(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, present := bearer(r)
		if present {
			if _, ok := s.userForToken(token); !ok {
				writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Invalid or expired token"})
				return
			}
		}
		next(w, r)
	}
}

func (s *Server) userForToken(token string) (*account, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	username, ok := s.tokens[token]
	if !ok {
		return nil, false
	}
	acct, ok := s.accounts[strings.ToLower(username)]
	return acct, ok
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"detail": "method not allowed"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "healthy",
		"timestamp": s.clock().Format(time.RFC3339),
		"services":  map[string]string{"api": "running", "redis": "connected"},
	})
}

func (s *Server) handleAuth(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.Method == http.MethodPost && r.URL.Path == "/auth/register":
		s.handleRegister(w, r)
	case r.Method == http.MethodPost && r.URL.Path == "/auth/login":
		s.handleLogin(w, r)
	case r.Method == http.MethodGet && r.URL.Path == "/auth/me":
		s.withAccount(w, r, func(acct *account, _ string) {
			writeJSON(w, http.StatusOK, acct.user)
		})
	case r.Method == http.MethodGet && r.URL.Path == "/auth/validate-token":
		s.withAccount(w, r, func(acct *account, _ string) {
			writeJSON(w, http.StatusOK, map[string]any{
				"success":  true,
				"message":  "Token is valid",
				"user_id":  acct.user["id"],
				"username": acct.user["username"],
			})
		})
	case r.Method == http.MethodPut && r.URL.Path == "/auth/profile":
		s.withAccount(w, r, func(acct *account, _ string) {
			var fields map[string]any
			if !decodeBody(w, r, &fields) {
				return
			}
			s.mu.Lock()
			for _, key := range []string{"first_name", "last_name", "company_name", "job_title", "bio"} {
				if v, ok := fields[key]; ok {
					acct.user[key] = v
				}
			}
			s.mu.Unlock()
			writeJSON(w, http.StatusOK, acct.user)
		})
	case r.Method == http.MethodPost && r.URL.Path == "/auth/change-password":
		s.withAccount(w, r, func(acct *account, _ string) {
			var body struct {
				Current string `json:"current_password"`
				New     string `json:"new_password"`
			}
			if !decodeBody(w, r, &body) {
				return
			}
			s.mu.Lock()
			defer s.mu.Unlock()
			if body.Current != acct.password {
				writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "Current password is incorrect"})
				return
			}
			acct.password = body.New
			writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Password changed successfully"})
		})
	case r.Method == http.MethodPost && r.URL.Path == "/auth/logout":
		s.withAccount(w, r, func(_ *account, token string) {
			s.RevokeToken(token)
			writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Logged out successfully"})
		})
	default:
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Not Found"})
	}
}

func (s *Server) withAccount(w http.ResponseWriter, r *http.Request, fn func(*account, string)) {
	token, _ := bearer(r)
	acct, ok := s.userForToken(token)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Could not validate credentials"})
		return
	}
	fn(acct, token)
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var body map[string]any
	if !decodeBody(w, r, &body) {
		return
	}
	username := strings.TrimSpace(fmt.Sprint(body["username"]))
	email := strings.TrimSpace(fmt.Sprint(body["email"]))
	password := fmt.Sprint(body["password"])
	s.mu.Lock()
	for _, acct := range s.accounts {
		if strings.EqualFold(fmt.Sprint(acct.user["email"]), email) {
			s.mu.Unlock()
			writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "Email already registered"})
			return
		}
	}
	if _, taken := s.accounts[strings.ToLower(username)]; taken {
		s.mu.Unlock()
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "Username already taken"})
		return
	}
	fields := map[string]any{}
	for _, key := range []string{"username", "email", "first_name", "last_name", "company_name", "job_title"} {
		if v, ok := body[key]; ok {
			fields[key] = v
		}
	}
	s.addUserLocked(fields, password)
	acct := s.accounts[strings.ToLower(username)]
	token := "tok-" + uuid.NewString()
	s.tokens[token] = username
	s.mu.Unlock()
	writeJSON(w, http.StatusCreated, map[string]any{
		"success": true,
		"message": "User registered successfully",
		"user":    acct.user,
		"token":   token,
	})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Identifier string `json:"email_or_username"`
		Password   string `json:"password"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	s.mu.Lock()
	var match *account
	for key, acct := range s.accounts {
		if strings.EqualFold(key, body.Identifier) || strings.EqualFold(fmt.Sprint(acct.user["email"]), body.Identifier) {
			match = acct
			break
		}
	}
	if match == nil || match.password != body.Password {
		s.mu.Unlock()
		writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Invalid credentials"})
		return
	}
	token := "tok-" + uuid.NewString()
	s.tokens[token] = fmt.Sprint(match.user["username"])
	user := match.user
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Login successful",
		"user":    user,
		"token":   token,
	})
}

func (s *Server) handleWorkflow(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path == "/api/workflow/start" {
		if r.Method != http.MethodPost {
			writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"detail": "method not allowed"})
			return
		}
		s.handleStart(w, r)
		return
	}
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"detail": "method not allowed"})
		return
	}
	sessionID := strings.TrimPrefix(r.URL.Path, "/api/workflow/")
	s.mu.Lock()
	defer s.mu.Unlock()
	rn, ok := s.runs[sessionID]
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Session not found"})
		return
	}
	rn.polls++
	s.advanceLocked(rn)
	writeJSON(w, http.StatusOK, s.workflowPayloadLocked(rn))
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Description string `json:"description"`
		CompanyName string `json:"company_name"`
		Department  string `json:"department"`
		SessionID   string `json:"session_id"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	if strings.TrimSpace(body.Description) == "" {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"detail": []map[string]any{{"loc": []string{"body", "description"}, "msg": "field required"}},
		})
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	id := strings.TrimSpace(body.SessionID)
	if id == "" {
		if len(s.sessionIDs) > 0 {
			id = s.sessionIDs[0]
			s.sessionIDs = s.sessionIDs[1:]
		} else {
			id = uuid.NewString()
		}
	}
	rn, ok := s.runs[id]
	if !ok {
		rn = &run{sessionID: id, created: s.clock()}
		s.runs[id] = rn
		s.order = append(s.order, id)
	}
	rn.description = body.Description
	rn.company = body.CompanyName
	rn.department = body.Department
	writeJSON(w, http.StatusOK, s.workflowPayloadLocked(rn))
}

func (s *Server) advanceLocked(rn *run) {
	if s.stall || rn.failed || len(rn.completed) >= len(stageNames) {
		return
	}
	for i := 0; i < s.stagesPerPoll && len(rn.completed) < len(stageNames); i++ {
		if s.failAfter >= 0 && len(rn.completed) >= s.failAfter {
			rn.failed = true
			return
		}
		rn.completed = append(rn.completed, stageNames[len(rn.completed)])
	}
}

func (s *Server) workflowPayloadLocked(rn *run) map[string]any {
	status := "processing"
	errMsg := any(nil)
	switch {
	case rn.failed:
		status = "failed"
		errMsg = fmt.Sprintf("stage %s failed", stageNames[len(rn.completed)])
	case len(rn.completed) >= len(stageNames):
		status = "completed"
	}
	current := stageNames[0]
	if len(rn.completed) > 0 {
		current = rn.completed[len(rn.completed)-1]
	}
	return map[string]any{
		"session_id":       rn.sessionID,
		"status":           status,
		"current_stage":    current,
		"completed_stages": append([]string{}, rn.completed...),
		"results":          resultsFor(rn),
		"error":            errMsg,
	}
}

func resultsFor(rn *run) map[string]any {
	results := map[string]any{
		"session_id":       rn.sessionID,
		"completed_stages": append([]string{}, rn.completed...),
	}
	for _, stage := range rn.completed {
		switch stage {
		case "role_definition", "interview_plan", "timeline", "salary_benchmark":
			results[stage] = map[string]any{"output": fmt.Sprintf("## %s\n**%s** for %s", stage, rn.description, rn.company)}
		default:
			results[stage] = fmt.Sprintf("# %s\n- %s", stage, rn.description)
		}
	}
	return results
}

func (s *Server) handleAgent(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"detail": "method not allowed"})
		return
	}
	var body struct {
		AgentType string `json:"agent_type"`
		InputText string `json:"input_text"`
		SessionID string `json:"session_id"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	switch body.AgentType {
	case "role_definition", "jd_generator", "interview_planner":
	default:
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"detail": "Invalid agent type. Must be one of: ['role_definition', 'jd_generator', 'interview_planner']",
		})
		return
	}
	sessionID := body.SessionID
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":    true,
		"output":     fmt.Sprintf("%s says: %s", body.AgentType, body.InputText),
		"agent":      body.AgentType,
		"session_id": sessionID,
	})
}

func (s *Server) handleProfiles(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"detail": "method not allowed"})
		return
	}
	limit := 10
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	profiles := []map[string]any{}
	for i := len(s.order) - 1; i >= 0 && len(profiles) < limit; i-- {
		profiles = append(profiles, s.profilePayloadLocked(s.runs[s.order[i]], false))
	}
	writeJSON(w, http.StatusOK, map[string]any{"profiles": profiles, "total": len(profiles)})
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	sessionID := strings.TrimPrefix(r.URL.Path, "/api/profiles/")
	s.mu.Lock()
	defer s.mu.Unlock()
	rn, ok := s.runs[sessionID]
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Profile not found"})
		return
	}
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, s.profilePayloadLocked(rn, true))
	case http.MethodDelete:
		if s.failDeletes {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"detail": "Failed to delete profile"})
			return
		}
		delete(s.runs, sessionID)
		for i, id := range s.order {
			if id == sessionID {
				s.order = append(s.order[:i], s.order[i+1:]...)
				break
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"message": "Profile deleted successfully"})
	default:
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"detail": "method not allowed"})
	}
}

func (s *Server) profilePayloadLocked(rn *run, withResults bool) map[string]any {
	status := "active"
	if len(rn.completed) >= len(stageNames) {
		status = "completed"
	}
	department := rn.department
	if department == "" {
		department = "Unknown"
	}
	payload := map[string]any{
		"session_id": rn.sessionID,
		"role_title": roleTitle(rn.description),
		"department": department,
		"status":     status,
		"created_at": rn.created.Format("2006-01-02T15:04:05"),
	}
	if withResults {
		payload["results"] = resultsFor(rn)
	}
	return payload
}

func roleTitle(description string) string {
	words := strings.Fields(description)
	if len(words) > 4 {
		words = words[:4]
	}
	if len(words) == 0 {
		return "Untitled Role"
	}
	return strings.Join(words, " ")
}

func bearer(r *http.Request) (string, bool) {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if header == "" {
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	return token, true
}

func decodeBody(w http.ResponseWriter, r *http.Request, out any) bool {
	reader := http.MaxBytesReader(w, r.Body, DefaultMaxBodyBytes)
	defer reader.Close()
	body, err := io.ReadAll(reader)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "unable to read body"})
		return false
	}
	if len(strings.TrimSpace(string(body))) == 0 {
		return true
	}
	if err := json.Unmarshal(body, out); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "invalid JSON"})
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
