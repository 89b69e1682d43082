// Package api is the HTTP client for the hiring service REST contract.
//
// Every call goes through Client.do, which injects the bearer token read
// from the configured TokenSource, stamps a request id, traces the call and
// converts non-2xx responses into *Error values. A 401 additionally fires
// the OnUnauthorized hook so the application can drop the session; the
// client never decides where the user goes next.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/kingrea/hiremind/internal/api"

// TokenSource supplies the bearer token for each request. An empty token
// sends the request unauthenticated.
type TokenSource interface {
	Token() string
}

// TokenSourceFunc adapts a function into a TokenSource.
type TokenSourceFunc func() string

// Token returns f().
func (f TokenSourceFunc) Token() string {
	if f == nil {
		return ""
	}
	return f()
}

// Logger records one line per request. It matches logging.Logger's signature.
type Logger interface {
	Printf(format string, args ...any)
}

// Client calls the hiring API.
type Client struct {
	baseURL        string
	http           *http.Client
	tokens         TokenSource
	logger         Logger
	tracer         trace.Tracer
	onUnauthorized func(*Error)
	requestID      func() string
}

// Option customizes client construction.
type Option func(*Client)

// WithHTTPClient overrides http.DefaultClient.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithTokenSource sets where the bearer token is read from on every request.
func WithTokenSource(ts TokenSource) Option {
	return func(c *Client) {
		if ts != nil {
			c.tokens = ts
		}
	}
}

// WithLogger records a trace line per request.
func WithLogger(l Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithTracerProvider overrides the global OpenTelemetry tracer provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(c *Client) {
		if tp != nil {
			c.tracer = tp.Tracer(tracerName)
		}
	}
}

// OnUnauthorized registers a hook fired after any 401 response, before the
// error is returned to the caller. The hook receives the error so it can
// tell a rejected session from rejected credentials.
func OnUnauthorized(fn func(*Error)) Option {
	return func(c *Client) {
		c.onUnauthorized = fn
	}
}

// WithRequestIDs lets tests pin the X-Request-ID values.
func WithRequestIDs(fn func() string) Option {
	return func(c *Client) {
		if fn != nil {
			c.requestID = fn
		}
	}
}

// New builds a client for the given base URL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:   strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		http:      http.DefaultClient,
		tokens:    TokenSourceFunc(func() string { return "" }),
		logger:    nopLogger{},
		tracer:    otel.Tracer(tracerName),
		requestID: func() string { return uuid.NewString() },
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// BaseURL returns the configured API root.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// request describes one call. route is the path template used for span
// names so high-cardinality session ids stay out of them.
type request struct {
	method string
	route  string
	path   string
	query  url.Values
	body   any
}

func (c *Client) do(ctx context.Context, req request, out any) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, span := c.tracer.Start(ctx, req.method+" "+req.route,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.request.method", req.method),
			attribute.String("url.path", req.path),
		))
	defer span.End()

	err := c.send(ctx, span, req, out)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

func (c *Client) send(ctx context.Context, span trace.Span, req request, out any) error {
	target := c.baseURL + req.path
	if len(req.query) > 0 {
		target += "?" + req.query.Encode()
	}
	var body io.Reader
	if req.body != nil {
		encoded, err := json.Marshal(req.body)
		if err != nil {
			return fmt.Errorf("api: encode %s %s: %w", req.method, req.path, err)
		}
		body = bytes.NewReader(encoded)
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.method, target, body)
	if err != nil {
		return fmt.Errorf("api: build %s %s: %w", req.method, req.path, err)
	}
	requestID := c.requestID()
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("X-Request-ID", requestID)
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(httpReq.Header))
	if token := strings.TrimSpace(c.tokens.Token()); token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}

	started := time.Now()
	resp, err := c.http.Do(httpReq)
	if err != nil {
		c.logger.Printf("%s %s id=%s error=%v", req.method, req.path, requestID, err)
		return fmt.Errorf("api: %s %s: %w", req.method, req.path, err)
	}
	defer resp.Body.Close()
	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("api: read %s %s: %w", req.method, req.path, err)
	}
	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))
	c.logger.Printf("%s %s id=%s status=%d duration=%s", req.method, req.path, requestID, resp.StatusCode, time.Since(started).Round(time.Millisecond))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &Error{
			StatusCode: resp.StatusCode,
			Method:     req.method,
			Path:       req.path,
			Detail:     parseDetail(payload),
		}
		if resp.StatusCode == http.StatusUnauthorized && c.onUnauthorized != nil {
			c.onUnauthorized(apiErr)
		}
		return apiErr
	}
	if out == nil || len(bytes.TrimSpace(payload)) == 0 {
		return nil
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return fmt.Errorf("api: decode %s %s: %w", req.method, req.path, err)
	}
	return nil
}

type nopLogger struct{}

func (nopLogger) Printf(string, ...any) {}
