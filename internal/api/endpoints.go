package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// DefaultProfileLimit matches the server's default page size.
const DefaultProfileLimit = 10

// Register creates an account and returns the issued token.
func (c *Client) Register(ctx context.Context, in RegisterRequest) (AuthResponse, error) {
	var out AuthResponse
	err := c.do(ctx, request{method: http.MethodPost, route: "/auth/register", path: "/auth/register", body: in}, &out)
	return out, err
}

// Login exchanges credentials for a token.
func (c *Client) Login(ctx context.Context, in LoginRequest) (AuthResponse, error) {
	var out AuthResponse
	err := c.do(ctx, request{method: http.MethodPost, route: "/auth/login", path: "/auth/login", body: in}, &out)
	return out, err
}

// Me returns the user owning the current token.
func (c *Client) Me(ctx context.Context) (User, error) {
	var out User
	err := c.do(ctx, request{method: http.MethodGet, route: "/auth/me", path: "/auth/me"}, &out)
	return out, err
}

// UpdateProfile changes the account's descriptive fields.
func (c *Client) UpdateProfile(ctx context.Context, in ProfileUpdateRequest) (User, error) {
	var out User
	err := c.do(ctx, request{method: http.MethodPut, route: "/auth/profile", path: "/auth/profile", body: in}, &out)
	return out, err
}

// ChangePassword rotates the account password.
func (c *Client) ChangePassword(ctx context.Context, in PasswordChangeRequest) (MessageResponse, error) {
	var out MessageResponse
	err := c.do(ctx, request{method: http.MethodPost, route: "/auth/change-password", path: "/auth/change-password", body: in}, &out)
	return out, err
}

// Logout invalidates the session server side.
func (c *Client) Logout(ctx context.Context) (MessageResponse, error) {
	var out MessageResponse
	err := c.do(ctx, request{method: http.MethodPost, route: "/auth/logout", path: "/auth/logout"}, &out)
	return out, err
}

// ValidateToken checks that the current token is still accepted.
func (c *Client) ValidateToken(ctx context.Context) (TokenValidation, error) {
	var out TokenValidation
	err := c.do(ctx, request{method: http.MethodGet, route: "/auth/validate-token", path: "/auth/validate-token"}, &out)
	return out, err
}

// StartWorkflow launches the hiring pipeline for a role description.
func (c *Client) StartWorkflow(ctx context.Context, in WorkflowStartRequest) (WorkflowResponse, error) {
	var out WorkflowResponse
	err := c.do(ctx, request{method: http.MethodPost, route: "/api/workflow/start", path: "/api/workflow/start", body: in}, &out)
	return out, err
}

// WorkflowStatus returns the server's view of a workflow run.
func (c *Client) WorkflowStatus(ctx context.Context, sessionID string) (WorkflowResponse, error) {
	path, err := sessionPath("/api/workflow/", sessionID)
	if err != nil {
		return WorkflowResponse{}, err
	}
	var out WorkflowResponse
	err = c.do(ctx, request{method: http.MethodGet, route: "/api/workflow/{session_id}", path: path}, &out)
	return out, err
}

// RunAgent runs a single agent outside the pipeline.
func (c *Client) RunAgent(ctx context.Context, in AgentRunRequest) (AgentRunResponse, error) {
	var out AgentRunResponse
	err := c.do(ctx, request{method: http.MethodPost, route: "/api/agent/run", path: "/api/agent/run", body: in}, &out)
	return out, err
}

// ListProfiles returns the most recent hiring profiles.
func (c *Client) ListProfiles(ctx context.Context, limit int) (ProfileList, error) {
	if limit <= 0 {
		limit = DefaultProfileLimit
	}
	var out ProfileList
	query := url.Values{"limit": []string{strconv.Itoa(limit)}}
	err := c.do(ctx, request{method: http.MethodGet, route: "/api/profiles", path: "/api/profiles", query: query}, &out)
	if out.Profiles == nil {
		out.Profiles = []Profile{}
	}
	return out, err
}

// GetProfile fetches one profile. Older servers return the results bag at the
// top level instead of under "results"; both shapes are accepted.
func (c *Client) GetProfile(ctx context.Context, sessionID string) (Profile, error) {
	path, err := sessionPath("/api/profiles/", sessionID)
	if err != nil {
		return Profile{}, err
	}
	var raw json.RawMessage
	if err := c.do(ctx, request{method: http.MethodGet, route: "/api/profiles/{session_id}", path: path}, &raw); err != nil {
		return Profile{}, err
	}
	var out Profile
	if len(raw) == 0 {
		return out, nil
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return Profile{}, fmt.Errorf("api: decode profile %s: %w", sessionID, err)
	}
	if len(out.Results) == 0 {
		var flat Results
		if err := json.Unmarshal(raw, &flat); err == nil {
			out.Results = flat
		}
	}
	if out.SessionID == "" {
		out.SessionID = sessionID
	}
	return out, nil
}

// DeleteProfile removes a profile.
func (c *Client) DeleteProfile(ctx context.Context, sessionID string) error {
	path, err := sessionPath("/api/profiles/", sessionID)
	if err != nil {
		return err
	}
	return c.do(ctx, request{method: http.MethodDelete, route: "/api/profiles/{session_id}", path: path}, nil)
}

// Health checks the service.
func (c *Client) Health(ctx context.Context) (Health, error) {
	var out Health
	err := c.do(ctx, request{method: http.MethodGet, route: "/health", path: "/health"}, &out)
	return out, err
}

func sessionPath(prefix, sessionID string) (string, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return "", fmt.Errorf("api: session id is required")
	}
	return prefix + url.PathEscape(sessionID), nil
}
