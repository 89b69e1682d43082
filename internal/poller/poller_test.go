package poller

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kingrea/hiremind/internal/workflow"
)

var fast = Config{Interval: time.Millisecond, MaxAttempts: 90}

func waitDone(t *testing.T, h *Handle) Reason {
	t.Helper()
	select {
	case <-h.Done():
		return h.Reason()
	case <-time.After(5 * time.Second):
		t.Fatalf("poll task did not stop")
		return ReasonRunning
	}
}

func TestStopsExactlyAtMaxAttempts(t *testing.T) {
	var calls int32
	h := Start(context.Background(), fast, func(ctx context.Context, attempt int) (workflow.Status, error) {
		atomic.AddInt32(&calls, 1)
		return workflow.StatusProcessing, nil
	})
	assert.Equal(t, ReasonExhausted, waitDone(t, h))
	assert.Equal(t, int32(90), atomic.LoadInt32(&calls))
	assert.Equal(t, 90, h.Attempts())
}

func TestStopsAfterTerminalStatus(t *testing.T) {
	for _, tc := range []struct {
		status workflow.Status
		want   Reason
	}{
		{workflow.StatusCompleted, ReasonCompleted},
		{workflow.StatusFailed, ReasonFailed},
	} {
		var calls int32
		h := Start(context.Background(), fast, func(ctx context.Context, attempt int) (workflow.Status, error) {
			atomic.AddInt32(&calls, 1)
			if attempt == 3 {
				return tc.status, nil
			}
			return workflow.StatusProcessing, nil
		})
		assert.Equal(t, tc.want, waitDone(t, h))
		time.Sleep(10 * time.Millisecond)
		assert.Equal(t, int32(3), atomic.LoadInt32(&calls), "no request after a terminal status")
	}
}

func TestTransientErrorKeepsPolling(t *testing.T) {
	h := Start(context.Background(), fast, func(ctx context.Context, attempt int) (workflow.Status, error) {
		switch attempt {
		case 1:
			return "", errors.New("connection reset")
		case 3:
			return workflow.StatusCompleted, nil
		}
		return workflow.StatusProcessing, nil
	})
	assert.Equal(t, ReasonCompleted, waitDone(t, h))
	assert.Equal(t, 3, h.Attempts())
	assert.NoError(t, h.Err())
}

func TestTransientErrorsCountTowardCeiling(t *testing.T) {
	var calls int32
	boom := errors.New("network down")
	h := Start(context.Background(), Config{Interval: time.Millisecond, MaxAttempts: 5}, func(ctx context.Context, attempt int) (workflow.Status, error) {
		atomic.AddInt32(&calls, 1)
		return "", boom
	})
	assert.Equal(t, ReasonExhausted, waitDone(t, h))
	assert.Equal(t, int32(5), atomic.LoadInt32(&calls))
	assert.ErrorIs(t, h.Err(), boom)
}

func TestPermanentErrorStopsPolling(t *testing.T) {
	denied := errors.New("unauthorized")
	h := Start(context.Background(), fast, func(ctx context.Context, attempt int) (workflow.Status, error) {
		if attempt == 2 {
			return "", Permanent(denied)
		}
		return "", errors.New("timeout")
	})
	assert.Equal(t, ReasonError, waitDone(t, h))
	assert.Equal(t, 2, h.Attempts())
	assert.ErrorIs(t, h.Err(), denied)
	assert.True(t, IsPermanent(h.Err()))
	assert.False(t, IsPermanent(denied))
	assert.Nil(t, Permanent(nil))
}

func TestCancelStopsTask(t *testing.T) {
	h := Start(context.Background(), Config{Interval: time.Hour}, func(ctx context.Context, attempt int) (workflow.Status, error) {
		t.Fatalf("fetch must not run")
		return "", nil
	})
	h.Cancel()
	h.Cancel()
	assert.Equal(t, ReasonCancelled, waitDone(t, h))
}

func TestControllerReplacesPreviousTask(t *testing.T) {
	c := NewController(Config{Interval: time.Millisecond})
	first := c.Start(context.Background(), func(ctx context.Context, attempt int) (workflow.Status, error) {
		return workflow.StatusProcessing, nil
	})
	second := c.Start(context.Background(), func(ctx context.Context, attempt int) (workflow.Status, error) {
		return workflow.StatusCompleted, nil
	})
	assert.Equal(t, ReasonCancelled, waitDone(t, first))
	assert.Equal(t, ReasonCompleted, waitDone(t, second))
	assert.False(t, c.Active())

	reason, err := c.Wait()
	require.NoError(t, err)
	assert.Equal(t, ReasonCompleted, reason)
}

func TestControllerStop(t *testing.T) {
	c := NewController(Config{Interval: time.Hour})
	h := c.Start(context.Background(), func(ctx context.Context, attempt int) (workflow.Status, error) {
		return workflow.StatusProcessing, nil
	})
	assert.True(t, c.Active())
	c.Stop()
	assert.Equal(t, ReasonCancelled, h.Reason())
	_, err := c.Wait()
	assert.ErrorIs(t, err, ErrNotRunning)
	c.Stop()
}

func TestDefaults(t *testing.T) {
	c := NewController(Config{})
	assert.Equal(t, 2*time.Second, c.Config().Interval)
	assert.Equal(t, 90, c.Config().MaxAttempts)
}
