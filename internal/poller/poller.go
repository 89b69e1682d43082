// Package poller runs the fixed-period workflow status poll.
//
// A poll task requests status once per interval until the run reaches a
// terminal status, the attempt ceiling is hit, a request fails permanently or
// the task is cancelled. Other request failures count as an attempt and the
// task keeps going. There is no backoff and no jitter. Requests never overlap: the
// next tick is only considered after the previous fetch returned.
package poller

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/kingrea/hiremind/internal/workflow"
)

const (
	// DefaultInterval is the period between status requests.
	DefaultInterval = 2 * time.Second
	// DefaultMaxAttempts is the hard cap on status requests per run.
	DefaultMaxAttempts = 90
)

// Reason explains why a poll task stopped.
type Reason string

const (
	ReasonRunning   Reason = ""
	ReasonCompleted Reason = "completed"
	ReasonFailed    Reason = "failed"
	ReasonExhausted Reason = "exhausted"
	ReasonError     Reason = "error"
	ReasonCancelled Reason = "cancelled"
)

// Config controls cadence and ceiling. Zero values use the defaults.
type Config struct {
	Interval    time.Duration
	MaxAttempts int
}

func (c Config) withDefaults() Config {
	if c.Interval <= 0 {
		c.Interval = DefaultInterval
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = DefaultMaxAttempts
	}
	return c
}

// Fetch performs one status request. attempt starts at 1. It returns the
// server-reported status; the poller only inspects whether it is terminal.
type Fetch func(ctx context.Context, attempt int) (workflow.Status, error)

type permanentError struct{ err error }

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks a fetch error that must end the task, for example a
// rejected session. Unmarked errors are retried on the next tick.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsPermanent reports whether err was marked with Permanent.
func IsPermanent(err error) bool {
	var p *permanentError
	return errors.As(err, &p)
}

// Handle controls one running poll task.
type Handle struct {
	cancel context.CancelFunc
	done   chan struct{}

	mu       sync.Mutex
	reason   Reason
	attempts int
	err      error
}

// Start launches a poll task. The task stops when ctx is cancelled too.
func Start(ctx context.Context, cfg Config, fetch Fetch) *Handle {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg = cfg.withDefaults()
	ctx, cancel := context.WithCancel(ctx)
	h := &Handle{cancel: cancel, done: make(chan struct{})}
	go h.run(ctx, cfg, fetch)
	return h
}

func (h *Handle) run(ctx context.Context, cfg Config, fetch Fetch) {
	defer close(h.done)
	defer h.cancel()
	ticker := time.NewTicker(cfg.Interval)
	defer ticker.Stop()
	var lastErr error
	for attempt := 1; ; attempt++ {
		select {
		case <-ctx.Done():
			h.finish(ReasonCancelled, nil)
			return
		case <-ticker.C:
		}
		status, err := fetch(ctx, attempt)
		h.mu.Lock()
		h.attempts = attempt
		h.mu.Unlock()
		if err != nil {
			lastErr = err
		}
		switch {
		case ctx.Err() != nil:
			h.finish(ReasonCancelled, nil)
			return
		case IsPermanent(err):
			h.finish(ReasonError, err)
			return
		case err != nil:
			// retried on the next tick
		case status == workflow.StatusCompleted:
			h.finish(ReasonCompleted, nil)
			return
		case status == workflow.StatusFailed:
			h.finish(ReasonFailed, nil)
			return
		}
		if attempt >= cfg.MaxAttempts {
			h.finish(ReasonExhausted, lastErr)
			return
		}
	}
}

func (h *Handle) finish(reason Reason, err error) {
	h.mu.Lock()
	h.reason = reason
	h.err = err
	h.mu.Unlock()
}

// Cancel stops the task. It is safe to call more than once and after the
// task already finished.
func (h *Handle) Cancel() {
	if h == nil {
		return
	}
	h.cancel()
}

// Done is closed once the task has stopped.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// Wait blocks until the task stops and returns why.
func (h *Handle) Wait() Reason {
	<-h.done
	return h.Reason()
}

// Reason returns why the task stopped, or ReasonRunning.
func (h *Handle) Reason() Reason {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.reason
}

// Attempts returns how many fetches completed.
func (h *Handle) Attempts() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.attempts
}

// Err returns the permanent error that stopped the task. After the ceiling
// it holds the last transient error, if any.
func (h *Handle) Err() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.err
}

// ErrNotRunning is returned by Controller.Wait when nothing is polling.
var ErrNotRunning = errors.New("poller: no active task")

// Controller owns at most one live poll task.
type Controller struct {
	cfg Config

	mu      sync.Mutex
	current *Handle
}

// NewController returns a controller using cfg for every task.
func NewController(cfg Config) *Controller {
	return &Controller{cfg: cfg.withDefaults()}
}

// Config returns the effective cadence.
func (c *Controller) Config() Config {
	return c.cfg
}

// Start cancels any previous task before launching a new one.
func (c *Controller) Start(ctx context.Context, fetch Fetch) *Handle {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current != nil {
		c.current.Cancel()
	}
	c.current = Start(ctx, c.cfg, fetch)
	return c.current
}

// Stop cancels the live task, if any, and waits for it to exit.
func (c *Controller) Stop() {
	c.mu.Lock()
	h := c.current
	c.current = nil
	c.mu.Unlock()
	if h != nil {
		h.Cancel()
		<-h.Done()
	}
}

// Active reports whether a task is still running.
func (c *Controller) Active() bool {
	c.mu.Lock()
	h := c.current
	c.mu.Unlock()
	if h == nil {
		return false
	}
	select {
	case <-h.Done():
		return false
	default:
		return true
	}
}

// Wait blocks until the live task stops.
func (c *Controller) Wait() (Reason, error) {
	c.mu.Lock()
	h := c.current
	c.mu.Unlock()
	if h == nil {
		return ReasonRunning, ErrNotRunning
	}
	reason := h.Wait()
	return reason, h.Err()
}
