// Package querycache caches read queries by key.
//
// Reads that fail are retried once before the error is returned. Concurrent
// reads of the same key share one request. By default every read refetches
// and the last value stays available through Peek; with a stale time set,
// entries are served until they are invalidated or older than that. Errors
// are never cached. Mutations do not go through the cache.
package querycache

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/kingrea/hiremind/internal/api"
)

const (
	KeyProfiles       = "profiles"
	KeyRecentProfiles = "recent-profiles"
	KeyHealth         = "health"
)

// ProfileKey is the cache key of one profile.
func ProfileKey(sessionID string) string {
	return "profile/" + sessionID
}

// DefaultStaleTime of zero makes every Get go to the network, so each screen
// revalidates what it shows when it opens.
const DefaultStaleTime time.Duration = 0

type entry struct {
	value     any
	fetchedAt time.Time
	stale     bool
}

// Cache stores query results keyed by string.
type Cache struct {
	mu      sync.Mutex
	entries map[string]*entry
	gen     map[string]uint64
	group   singleflight.Group

	clock     func() time.Time
	staleTime time.Duration
	retries   int
	retryWait time.Duration
}

// Option customizes a cache.
type Option func(*Cache)

// WithClock overrides time.Now for staleness checks.
func WithClock(clock func() time.Time) Option {
	return func(c *Cache) {
		if clock != nil {
			c.clock = clock
		}
	}
}

// WithStaleTime sets how long an entry is served without refetching. Zero
// refetches on every Get.
func WithStaleTime(d time.Duration) Option {
	return func(c *Cache) {
		if d >= 0 {
			c.staleTime = d
		}
	}
}

// WithRetryDelay sets the pause before the single retry.
func WithRetryDelay(d time.Duration) Option {
	return func(c *Cache) {
		if d >= 0 {
			c.retryWait = d
		}
	}
}

// New returns an empty cache with one retry per read.
func New(opts ...Option) *Cache {
	c := &Cache{
		entries:   map[string]*entry{},
		gen:       map[string]uint64{},
		clock:     time.Now,
		staleTime: DefaultStaleTime,
		retries:   1,
		retryWait: 250 * time.Millisecond,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// Get returns the cached value for key or runs fetch. Fetch results are
// stored unless key was invalidated while the fetch was in flight.
func Get[T any](ctx context.Context, c *Cache, key string, fetch func(context.Context) (T, error)) (T, error) {
	var zero T
	if v, ok := c.fresh(key); ok {
		if typed, ok := v.(T); ok {
			return typed, nil
		}
	}
	gen := c.generation(key)
	v, err, _ := c.group.Do(key, func() (any, error) {
		value, err := c.fetchWithRetry(ctx, func(ctx context.Context) (any, error) {
			return fetch(ctx)
		})
		if err != nil {
			return nil, err
		}
		c.store(key, gen, value)
		return value, nil
	})
	if err != nil {
		return zero, err
	}
	typed, ok := v.(T)
	if !ok {
		return zero, errors.New("querycache: type mismatch for key " + key)
	}
	return typed, nil
}

// Refetch forces a network read for key, bypassing any fresh entry.
func Refetch[T any](ctx context.Context, c *Cache, key string, fetch func(context.Context) (T, error)) (T, error) {
	c.Invalidate(key)
	return Get(ctx, c, key, fetch)
}

func (c *Cache) fetchWithRetry(ctx context.Context, fetch func(context.Context) (any, error)) (any, error) {
	var lastErr error
	for attempt := 0; attempt <= c.retries; attempt++ {
		if attempt > 0 {
			if !retryable(lastErr) {
				break
			}
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(c.retryWait):
			}
		}
		value, err := fetch(ctx)
		if err == nil {
			return value, nil
		}
		lastErr = err
	}
	return nil, lastErr
}

// retryable leaves out errors a second identical request cannot fix.
func retryable(err error) bool {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return false
	case errors.Is(err, api.ErrUnauthorized), errors.Is(err, api.ErrNotFound):
		return false
	default:
		return true
	}
}

func (c *Cache) fresh(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok || e.stale || c.staleTime <= 0 {
		return nil, false
	}
	if c.clock().Sub(e.fetchedAt) >= c.staleTime {
		return nil, false
	}
	return e.value, true
}

func (c *Cache) generation(key string) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gen[key]
}

func (c *Cache) store(key string, gen uint64, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gen[key] != gen {
		return
	}
	c.entries[key] = &entry{value: value, fetchedAt: c.clock()}
}

// Peek returns the cached value for key, fresh or stale, without fetching.
func Peek[T any](c *Cache, key string) (T, bool) {
	var zero T
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return zero, false
	}
	typed, ok := e.value.(T)
	return typed, ok
}

// Invalidate marks keys stale so the next Get refetches.
func (c *Cache) Invalidate(keys ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, key := range keys {
		c.gen[key]++
		if e, ok := c.entries[key]; ok {
			e.stale = true
		}
	}
}

// InvalidatePrefix marks every key starting with prefix stale.
func (c *Cache) InvalidatePrefix(prefix string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key, e := range c.entries {
		if strings.HasPrefix(key, prefix) {
			c.gen[key]++
			e.stale = true
		}
	}
}

// Remove drops keys entirely.
func (c *Cache) Remove(keys ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, key := range keys {
		c.gen[key]++
		delete(c.entries, key)
	}
}

// Clear drops every entry, for example on logout.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key := range c.entries {
		c.gen[key]++
	}
	c.entries = map[string]*entry{}
}
