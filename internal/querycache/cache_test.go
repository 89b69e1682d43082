package querycache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kingrea/hiremind/internal/api"
)

func TestGetCachesUntilInvalidated(t *testing.T) {
	c := New(WithRetryDelay(0), WithStaleTime(time.Hour))
	var calls int32
	fetch := func(context.Context) (int, error) {
		return int(atomic.AddInt32(&calls, 1)), nil
	}
	v, err := Get(context.Background(), c, KeyProfiles, fetch)
	require.NoError(t, err)
	assert.Equal(t, 1, v)
	v, err = Get(context.Background(), c, KeyProfiles, fetch)
	require.NoError(t, err)
	assert.Equal(t, 1, v)

	c.Invalidate(KeyProfiles)
	stale, ok := Peek[int](c, KeyProfiles)
	assert.True(t, ok, "stale values stay readable")
	assert.Equal(t, 1, stale)

	v, err = Get(context.Background(), c, KeyProfiles, fetch)
	require.NoError(t, err)
	assert.Equal(t, 2, v)
}

func TestDefaultRefetchesEveryRead(t *testing.T) {
	c := New()
	var calls int32
	fetch := func(context.Context) (int, error) {
		return int(atomic.AddInt32(&calls, 1)), nil
	}
	for want := 1; want <= 3; want++ {
		v, err := Get(context.Background(), c, KeyProfiles, fetch)
		require.NoError(t, err)
		assert.Equal(t, want, v)
	}
	last, ok := Peek[int](c, KeyProfiles)
	assert.True(t, ok)
	assert.Equal(t, 3, last)
}

func TestGetRetriesOnce(t *testing.T) {
	c := New(WithRetryDelay(0))
	var calls int32
	_, err := Get(context.Background(), c, "k", func(context.Context) (string, error) {
		atomic.AddInt32(&calls, 1)
		return "", errors.New("flaky")
	})
	require.Error(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))

	calls = 0
	v, err := Get(context.Background(), c, "k2", func(context.Context) (string, error) {
		if atomic.AddInt32(&calls, 1) == 1 {
			return "", errors.New("flaky")
		}
		return "ok", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", v)
}

func TestUnauthorizedIsNotRetried(t *testing.T) {
	c := New(WithRetryDelay(0))
	var calls int32
	_, err := Get(context.Background(), c, "k", func(context.Context) (string, error) {
		atomic.AddInt32(&calls, 1)
		return "", &api.Error{StatusCode: 401}
	})
	require.ErrorIs(t, err, api.ErrUnauthorized)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestConcurrentReadsShareOneRequest(t *testing.T) {
	c := New()
	release := make(chan struct{})
	var calls int32
	var wg sync.WaitGroup
	results := make([]string, 5)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, err := Get(context.Background(), c, "shared", func(context.Context) (string, error) {
				atomic.AddInt32(&calls, 1)
				<-release
				return "value", nil
			})
			assert.NoError(t, err)
			results[i] = v
		}(i)
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	for _, v := range results {
		assert.Equal(t, "value", v)
	}
}

func TestStaleTimeAndInvalidationDuringFetch(t *testing.T) {
	now := time.Unix(0, 0)
	c := New(WithClock(func() time.Time { return now }), WithStaleTime(time.Minute))
	var calls int32
	fetch := func(context.Context) (int, error) {
		n := int(atomic.AddInt32(&calls, 1))
		if n == 1 {
			c.Invalidate("k")
		}
		return n, nil
	}
	_, err := Get(context.Background(), c, "k", fetch)
	require.NoError(t, err)
	_, ok := Peek[int](c, "k")
	assert.False(t, ok, "a result fetched across an invalidation is not stored")

	_, err = Get(context.Background(), c, "k", fetch)
	require.NoError(t, err)
	now = now.Add(2 * time.Minute)
	v, err := Get(context.Background(), c, "k", fetch)
	require.NoError(t, err)
	assert.Equal(t, 3, v)
}

func TestInvalidatePrefixAndClear(t *testing.T) {
	c := New(WithStaleTime(time.Hour))
	for _, key := range []string{ProfileKey("a"), ProfileKey("b"), KeyHealth} {
		_, err := Get(context.Background(), c, key, func(context.Context) (string, error) { return key, nil })
		require.NoError(t, err)
	}
	c.InvalidatePrefix("profile/")
	_, fresh := c.fresh(ProfileKey("a"))
	assert.False(t, fresh)
	_, fresh = c.fresh(KeyHealth)
	assert.True(t, fresh)

	c.Remove(KeyHealth)
	_, ok := Peek[string](c, KeyHealth)
	assert.False(t, ok)
	c.Clear()
	_, ok = Peek[string](c, ProfileKey("b"))
	assert.False(t, ok)
}
