package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/kingrea/hiremind/internal/store"
)

type palette struct {
	accent  lipgloss.Color
	title   lipgloss.Color
	border  lipgloss.Color
	muted   lipgloss.Color
	subtle  lipgloss.Color
	text    lipgloss.Color
	success lipgloss.Color
	danger  lipgloss.Color
	warning lipgloss.Color
}

var (
	darkPalette = palette{
		accent:  "#FF6B6B",
		title:   "#5B8DEF",
		border:  "#444444",
		muted:   "#888888",
		subtle:  "#AAAAAA",
		text:    "#EEEEEE",
		success: "#4CAF50",
		danger:  "#FF6B6B",
		warning: "#F7B801",
	}
	lightPalette = palette{
		accent:  "#D9480F",
		title:   "#1C5FD4",
		border:  "#BBBBBB",
		muted:   "#666666",
		subtle:  "#555555",
		text:    "#1A1A1A",
		success: "#2F855A",
		danger:  "#C53030",
		warning: "#B7791F",
	}
)

// theme holds the styles every screen renders with.
type theme struct {
	name     string
	colors   palette
	header   lipgloss.Style
	title    lipgloss.Style
	text     lipgloss.Style
	muted    lipgloss.Style
	hint     lipgloss.Style
	err      lipgloss.Style
	ok       lipgloss.Style
	warn     lipgloss.Style
	selected lipgloss.Style
	label    lipgloss.Style
	focused  lipgloss.Style
}

func themeFor(name string) theme {
	p := lightPalette
	if name == store.ThemeDark {
		p = darkPalette
	} else {
		name = store.ThemeLight
	}
	return theme{
		name:     name,
		colors:   p,
		header:   lipgloss.NewStyle().Bold(true).Foreground(p.accent),
		title:    lipgloss.NewStyle().Bold(true).Foreground(p.title),
		text:     lipgloss.NewStyle().Foreground(p.text),
		muted:    lipgloss.NewStyle().Foreground(p.muted),
		hint:     lipgloss.NewStyle().Foreground(p.subtle).MarginTop(1),
		err:      lipgloss.NewStyle().Foreground(p.danger).Bold(true),
		ok:       lipgloss.NewStyle().Foreground(p.success).Bold(true),
		warn:     lipgloss.NewStyle().Foreground(p.warning).Bold(true),
		selected: lipgloss.NewStyle().Bold(true).Border(lipgloss.NormalBorder()).BorderForeground(p.title).Padding(0, 1),
		label:    lipgloss.NewStyle().Foreground(p.subtle),
		focused:  lipgloss.NewStyle().Foreground(p.title).Bold(true),
	}
}

func (t theme) box(width int) lipgloss.Style {
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(t.colors.border).
		Padding(0, 1).
		Width(max(20, width))
}

func (t theme) notification(kind store.NotificationType) lipgloss.Style {
	switch kind {
	case store.NotifySuccess:
		return t.ok
	case store.NotifyError:
		return t.err
	case store.NotifyWarning:
		return t.warn
	default:
		return t.title
	}
}

// statusStyle colors a profile or run status.
func (t theme) statusStyle(status string) lipgloss.Style {
	switch status {
	case "completed", string(store.RunSucceeded):
		return t.ok
	case "failed":
		return t.err
	case "active", "processing", "in_progress", string(store.RunLoading):
		return t.title
	case "draft", string(store.RunTimedOut):
		return t.warn
	default:
		return t.muted
	}
}
