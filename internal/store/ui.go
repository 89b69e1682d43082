package store

import "time"

const (
	ThemeLight = "light"
	ThemeDark  = "dark"
)

// NotificationType classifies a notification for styling.
type NotificationType string

const (
	NotifySuccess NotificationType = "success"
	NotifyError   NotificationType = "error"
	NotifyWarning NotificationType = "warning"
	NotifyInfo    NotificationType = "info"
)

// Notification is a transient message shown to the user.
type Notification struct {
	ID        string
	Message   string
	Type      NotificationType
	Timestamp time.Time
}

// UIState is the presentation slice.
type UIState struct {
	SidebarOpen   bool
	Theme         string
	Notifications []Notification
}

func (u UIState) clone() UIState {
	if u.Notifications != nil {
		u.Notifications = append([]Notification(nil), u.Notifications...)
	}
	return u
}

// ToggleSidebar flips the sidebar.
func (s *Store) ToggleSidebar() {
	s.update(func() bool {
		s.ui.SidebarOpen = !s.ui.SidebarOpen
		return true
	})
}

// SetSidebarOpen sets the sidebar explicitly.
func (s *Store) SetSidebarOpen(open bool) {
	s.update(func() bool {
		if s.ui.SidebarOpen == open {
			return false
		}
		s.ui.SidebarOpen = open
		return true
	})
}

// ToggleTheme switches between light and dark and returns the new theme.
func (s *Store) ToggleTheme() string {
	var theme string
	s.update(func() bool {
		if s.ui.Theme == ThemeDark {
			s.ui.Theme = ThemeLight
		} else {
			s.ui.Theme = ThemeDark
		}
		theme = s.ui.Theme
		return true
	})
	return theme
}

// Notify appends a notification and returns its id. An empty type is info.
func (s *Store) Notify(kind NotificationType, message string) string {
	if kind == "" {
		kind = NotifyInfo
	}
	n := Notification{
		ID:        s.newID(),
		Message:   message,
		Type:      kind,
		Timestamp: s.clock(),
	}
	s.update(func() bool {
		s.ui.Notifications = append(s.ui.Notifications, n)
		return true
	})
	return n.ID
}

// RemoveNotification drops one notification by id.
func (s *Store) RemoveNotification(id string) {
	s.update(func() bool {
		kept := s.ui.Notifications[:0:0]
		for _, n := range s.ui.Notifications {
			if n.ID != id {
				kept = append(kept, n)
			}
		}
		if len(kept) == len(s.ui.Notifications) {
			return false
		}
		s.ui.Notifications = kept
		return true
	})
}

// ExpireNotifications drops notifications older than ttl at now.
func (s *Store) ExpireNotifications(now time.Time, ttl time.Duration) {
	s.update(func() bool {
		kept := s.ui.Notifications[:0:0]
		for _, n := range s.ui.Notifications {
			if now.Sub(n.Timestamp) < ttl {
				kept = append(kept, n)
			}
		}
		if len(kept) == len(s.ui.Notifications) {
			return false
		}
		s.ui.Notifications = kept
		return true
	})
}

// ClearNotifications drops every notification.
func (s *Store) ClearNotifications() {
	s.update(func() bool {
		if len(s.ui.Notifications) == 0 {
			return false
		}
		s.ui.Notifications = nil
		return true
	})
}
