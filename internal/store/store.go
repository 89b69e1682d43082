// Package store holds the client's single source of truth: the auth,
// workflow and UI slices. State only changes through the named update
// functions below; every change notifies subscribers with a fresh snapshot.
//
// The TUI runs one Update loop, but the poller and the headless runner touch
// the store from goroutines, so all access is mutex protected.
package store

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kingrea/hiremind/internal/api"
)

// Snapshot is a copy of all three slices at one instant.
type Snapshot struct {
	Auth     AuthState
	Workflow WorkflowState
	UI       UIState
}

// Listener receives a snapshot after every change.
type Listener func(Snapshot)

// Option customizes store construction.
type Option func(*Store)

// WithClock overrides the notification timestamp source.
func WithClock(clock func() time.Time) Option {
	return func(s *Store) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithIDs overrides notification id generation.
func WithIDs(fn func() string) Option {
	return func(s *Store) {
		if fn != nil {
			s.newID = fn
		}
	}
}

// WithUI seeds the UI slice from persisted preferences.
func WithUI(sidebarOpen bool, theme string) Option {
	return func(s *Store) {
		s.ui.SidebarOpen = sidebarOpen
		s.ui.Theme = normalizeTheme(theme)
	}
}

// Store is the mutex-guarded application state.
type Store struct {
	mu       sync.RWMutex
	auth     AuthState
	workflow WorkflowState
	ui       UIState

	clock func() time.Time
	newID func() string

	listenerMu sync.Mutex
	listeners  map[int]Listener
	nextID     int
}

// New returns a store in its initial state.
func New(opts ...Option) *Store {
	s := &Store{
		workflow:  WorkflowState{Status: RunIdle},
		ui:        UIState{SidebarOpen: true, Theme: ThemeLight},
		clock:     func() time.Time { return time.Now().UTC() },
		newID:     uuid.NewString,
		listeners: map[int]Listener{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Snapshot returns copies of all slices.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

// Auth returns a copy of the auth slice.
func (s *Store) Auth() AuthState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.auth.clone()
}

// Workflow returns a copy of the workflow slice.
func (s *Store) Workflow() WorkflowState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.workflow.clone()
}

// UI returns a copy of the UI slice.
func (s *Store) UI() UIState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ui.clone()
}

// Subscribe registers fn and returns a function that removes it. Listeners
// run synchronously after the lock is released, in registration order.
func (s *Store) Subscribe(fn Listener) func() {
	if fn == nil {
		return func() {}
	}
	s.listenerMu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.listenerMu.Unlock()
	return func() {
		s.listenerMu.Lock()
		delete(s.listeners, id)
		s.listenerMu.Unlock()
	}
}

// update applies fn under the write lock and notifies listeners when fn
// reports a change.
func (s *Store) update(fn func() bool) bool {
	s.mu.Lock()
	changed := fn()
	var snap Snapshot
	if changed {
		snap = s.snapshotLocked()
	}
	s.mu.Unlock()
	if changed {
		s.notify(snap)
	}
	return changed
}

func (s *Store) notify(snap Snapshot) {
	s.listenerMu.Lock()
	ids := make([]int, 0, len(s.listeners))
	for id := range s.listeners {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	fns := make([]Listener, 0, len(ids))
	for _, id := range ids {
		fns = append(fns, s.listeners[id])
	}
	s.listenerMu.Unlock()
	for _, fn := range fns {
		fn(snap)
	}
}

func (s *Store) snapshotLocked() Snapshot {
	return Snapshot{
		Auth:     s.auth.clone(),
		Workflow: s.workflow.clone(),
		UI:       s.ui.clone(),
	}
}

func cloneUser(u *api.User) *api.User {
	if u == nil {
		return nil
	}
	cp := *u
	return &cp
}

func normalizeTheme(theme string) string {
	if strings.EqualFold(strings.TrimSpace(theme), ThemeDark) {
		return ThemeDark
	}
	return ThemeLight
}
