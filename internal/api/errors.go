package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	// ErrUnauthorized marks HTTP 401 responses. The caller decides how to
	// react; the client itself never navigates.
	ErrUnauthorized = errors.New("api: unauthorized")
	// ErrNotFound marks HTTP 404 responses.
	ErrNotFound = errors.New("api: not found")
)

// Error describes a non-2xx response.
type Error struct {
	StatusCode int
	Method     string
	Path       string
	Detail     string
}

func (e *Error) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("api: %s %s: %d %s", e.Method, e.Path, e.StatusCode, e.Detail)
	}
	return fmt.Sprintf("api: %s %s: %d %s", e.Method, e.Path, e.StatusCode, http.StatusText(e.StatusCode))
}

// Unwrap exposes the sentinel for well-known status codes.
func (e *Error) Unwrap() error {
	switch e.StatusCode {
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusNotFound:
		return ErrNotFound
	default:
		return nil
	}
}

// CredentialsRejected reports a 401 from the login or register endpoints,
// which rejects what the user typed rather than the stored session.
func (e *Error) CredentialsRejected() bool {
	if e == nil || e.StatusCode != http.StatusUnauthorized {
		return false
	}
	return e.Path == "/auth/login" || e.Path == "/auth/register"
}

// DetailOr returns the server supplied detail message carried by err, or
// fallback when the error has none (network failures, empty bodies).
func DetailOr(err error, fallback string) string {
	var apiErr *Error
	if errors.As(err, &apiErr) && strings.TrimSpace(apiErr.Detail) != "" {
		return apiErr.Detail
	}
	return fallback
}

// parseDetail pulls a message out of FastAPI-style error bodies. detail is
// either a string or a list of {loc, msg} validation entries.
func parseDetail(body []byte) string {
	var envelope struct {
		Detail json.RawMessage `json:"detail"`
		Error  string          `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return strings.TrimSpace(string(body))
	}
	if len(envelope.Detail) > 0 {
		var s string
		if err := json.Unmarshal(envelope.Detail, &s); err == nil {
			return s
		}
		var items []struct {
			Msg string `json:"msg"`
		}
		if err := json.Unmarshal(envelope.Detail, &items); err == nil {
			msgs := make([]string, 0, len(items))
			for _, item := range items {
				if m := strings.TrimSpace(item.Msg); m != "" {
					msgs = append(msgs, m)
				}
			}
			return strings.Join(msgs, "; ")
		}
	}
	return strings.TrimSpace(envelope.Error)
}
