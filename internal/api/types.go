package api

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"
)

// User is the account record returned by the auth endpoints.
type User struct {
	ID          int    `json:"id"`
	Email       string `json:"email"`
	Username    string `json:"username"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	IsActive    bool   `json:"is_active"`
	IsVerified  bool   `json:"is_verified"`
	CreatedAt   string `json:"created_at,omitempty"`
	CompanyName string `json:"company_name,omitempty"`
	JobTitle    string `json:"job_title,omitempty"`
	Bio         string `json:"bio,omitempty"`
}

// DisplayName prefers the full name and falls back to the username.
func (u User) DisplayName() string {
	full := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if full != "" {
		return full
	}
	return u.Username
}

// AuthResponse is returned by login and register.
type AuthResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	User    User   `json:"user"`
	Token   string `json:"token"`
}

type LoginRequest struct {
	EmailOrUsername string `json:"email_or_username"`
	Password        string `json:"password"`
}

type RegisterRequest struct {
	Email       string `json:"email"`
	Username    string `json:"username"`
	Password    string `json:"password"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	CompanyName string `json:"company_name,omitempty"`
	JobTitle    string `json:"job_title,omitempty"`
}

// ProfileUpdateRequest carries only the fields the user changed.
type ProfileUpdateRequest struct {
	FirstName   *string `json:"first_name,omitempty"`
	LastName    *string `json:"last_name,omitempty"`
	CompanyName *string `json:"company_name,omitempty"`
	JobTitle    *string `json:"job_title,omitempty"`
	Bio         *string `json:"bio,omitempty"`
}

type PasswordChangeRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// MessageResponse is the generic {success, message} acknowledgement.
type MessageResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// TokenValidation is returned by GET /auth/validate-token.
type TokenValidation struct {
	Success  bool   `json:"success"`
	Message  string `json:"message"`
	UserID   int    `json:"user_id"`
	Username string `json:"username"`
}

// WorkflowStartRequest starts (or resumes, with SessionID) a hiring workflow.
type WorkflowStartRequest struct {
	Description string `json:"description"`
	CompanyName string `json:"company_name"`
	Department  string `json:"department,omitempty"`
	SessionID   string `json:"session_id,omitempty"`
}

// WorkflowResponse is shared by the start and status endpoints.
type WorkflowResponse struct {
	SessionID       string   `json:"session_id"`
	Status          string   `json:"status"`
	CurrentStage    string   `json:"current_stage"`
	CompletedStages []string `json:"completed_stages"`
	Results         Results  `json:"results"`
	Error           string   `json:"error,omitempty"`
}

type AgentRunRequest struct {
	AgentType string `json:"agent_type"`
	InputText string `json:"input_text"`
	SessionID string `json:"session_id,omitempty"`
}

type AgentRunResponse struct {
	Success   bool   `json:"success"`
	Output    string `json:"output"`
	Agent     string `json:"agent,omitempty"`
	SessionID string `json:"session_id,omitempty"`
	Error     string `json:"error,omitempty"`
}

// Profile is a persisted hiring workflow.
type Profile struct {
	SessionID  string  `json:"session_id"`
	RoleTitle  string  `json:"role_title"`
	Department string  `json:"department"`
	Status     string  `json:"status"`
	CreatedAt  string  `json:"created_at"`
	Results    Results `json:"results,omitempty"`
}

// Created parses CreatedAt, accepting RFC 3339 and the server's naive ISO format.
func (p Profile) Created() (time.Time, bool) {
	value := strings.TrimSpace(p.CreatedAt)
	if value == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05.999999", "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, value); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

type ProfileList struct {
	Profiles []Profile `json:"profiles"`
	Total    int       `json:"total"`
}

// Health is the GET /health payload.
type Health struct {
	Status    string            `json:"status"`
	Timestamp string            `json:"timestamp,omitempty"`
	Services  map[string]string `json:"services,omitempty"`
	Error     string            `json:"error,omitempty"`
}

// Healthy reports whether the service declared itself healthy.
func (h Health) Healthy() bool {
	return strings.EqualFold(strings.TrimSpace(h.Status), "healthy")
}

// Results is the per-stage output bag. Stage outputs arrive either as plain
// strings or as objects with an "output" field, so values stay raw until read.
type Results map[string]json.RawMessage

// Text returns the readable output for key, or "" when absent.
func (r Results) Text(key string) string {
	raw, ok := r[key]
	if !ok {
		return ""
	}
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var wrapped struct {
		Output json.RawMessage `json:"output"`
	}
	if err := json.Unmarshal(raw, &wrapped); err == nil && len(wrapped.Output) > 0 {
		if err := json.Unmarshal(wrapped.Output, &s); err == nil {
			return s
		}
		return compactJSON(wrapped.Output)
	}
	var pretty bytes.Buffer
	if err := json.Indent(&pretty, raw, "", "  "); err == nil {
		return pretty.String()
	}
	return string(raw)
}

// Has reports whether the bag holds a non-null value for key.
func (r Results) Has(key string) bool {
	return r.Text(key) != ""
}

// Strings decodes a list-valued entry such as completed_stages.
func (r Results) Strings(key string) []string {
	raw, ok := r[key]
	if !ok {
		return nil
	}
	var out []string
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil
	}
	return out
}

func compactJSON(raw json.RawMessage) string {
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return string(raw)
	}
	return buf.String()
}
