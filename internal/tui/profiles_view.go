package tui

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/kingrea/hiremind/internal/api"
	"github.com/kingrea/hiremind/internal/hiring"
	"github.com/kingrea/hiremind/internal/querycache"
	"github.com/kingrea/hiremind/internal/router"
)

type profilesLoadedMsg struct {
	list api.ProfileList
	err  error
}

type profileDeletedMsg struct {
	sessionID string
	err       error
}

type profilesView struct {
	app       *App
	all       []api.Profile
	total     int
	visible   []api.Profile
	search    textinput.Model
	searching bool
	selection int
	// confirming holds the session id awaiting delete confirmation.
	confirming string
	deleting   bool
	loaded     bool
	err        error
}

func newProfilesView(app *App) *profilesView {
	search := newTextInput("Search by role or department", 100)
	search.Prompt = "/ "
	return &profilesView{app: app, search: search}
}

func (v *profilesView) Init() tea.Cmd {
	return v.load()
}

func (v *profilesView) Leave() {}

// CapturesEsc keeps esc for closing the search box or the confirmation.
func (v *profilesView) CapturesEsc() bool {
	return v.searching || v.confirming != ""
}

func (v *profilesView) load() tea.Cmd {
	app := v.app
	return func() tea.Msg {
		list, err := app.hiring.Profiles(app.ctx)
		return profilesLoadedMsg{list: list, err: err}
	}
}

func (v *profilesView) applyFilter() {
	v.visible = hiring.FilterProfiles(v.all, v.search.Value())
	if v.selection >= len(v.visible) {
		v.selection = max(0, len(v.visible)-1)
	}
}

func (v *profilesView) selected() (api.Profile, bool) {
	if len(v.visible) == 0 {
		return api.Profile{}, false
	}
	return v.visible[v.selection], true
}

func (v *profilesView) Update(msg tea.Msg) tea.Cmd {
	switch m := msg.(type) {
	case profilesLoadedMsg:
		v.loaded = true
		v.err = m.err
		if m.err == nil {
			v.all = m.list.Profiles
			v.total = m.list.Total
		}
		v.applyFilter()
		return nil

	case profileDeletedMsg:
		v.deleting = false
		if m.err != nil {
			return nil
		}
		return v.load()

	case tea.KeyMsg:
		if v.confirming != "" {
			return v.handleConfirm(m)
		}
		if v.searching {
			return v.handleSearch(m)
		}
		return v.handleKeyMsg(m)
	}
	return nil
}

func (v *profilesView) handleConfirm(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "y", "Y", "enter":
		id := v.confirming
		v.confirming = ""
		v.deleting = true
		app := v.app
		return func() tea.Msg {
			return profileDeletedMsg{sessionID: id, err: app.hiring.DeleteProfile(app.ctx, id)}
		}
	case "n", "N", "esc":
		v.confirming = ""
	}
	return nil
}

func (v *profilesView) handleSearch(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "esc":
		v.searching = false
		v.search.Blur()
		v.search.SetValue("")
		v.applyFilter()
		return nil
	case "enter":
		v.searching = false
		v.search.Blur()
		return nil
	}
	var cmd tea.Cmd
	v.search, cmd = v.search.Update(msg)
	v.applyFilter()
	return cmd
}

func (v *profilesView) handleKeyMsg(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "/":
		v.searching = true
		return v.search.Focus()
	case "up", "k":
		if v.selection > 0 {
			v.selection--
		}
	case "down", "j":
		if v.selection < len(v.visible)-1 {
			v.selection++
		}
	case "enter":
		if p, ok := v.selected(); ok {
			return navigateTo(router.Hiring(p.SessionID))
		}
	case "d", "delete":
		if p, ok := v.selected(); ok && !v.deleting {
			v.confirming = p.SessionID
		}
	case "n":
		return navigateTo(router.To(router.NewHiring))
	case "ctrl+r":
		v.app.hiring.Cache().Invalidate(querycache.KeyProfiles)
		v.app.statusMsg = "Refreshing profiles..."
		return v.load()
	}
	return nil
}

func (v *profilesView) View(width, height int) string {
	th := v.app.theme
	sections := []string{th.title.Render(fmt.Sprintf("Hiring Profiles (%d)", v.total))}
	if v.searching || v.search.Value() != "" {
		v.search.Width = max(10, width-6)
		sections = append(sections, v.search.View())
	}
	sections = append(sections, "")
	switch {
	case !v.loaded:
		sections = append(sections, th.muted.Render("Loading profiles..."))
	case v.err != nil:
		sections = append(sections, th.err.Render("⚠ "+api.DetailOr(v.err, "Failed to load profiles")))
	case len(v.all) == 0:
		sections = append(sections, th.muted.Render("No hiring profiles yet. Press n to create your first one."))
	case len(v.visible) == 0:
		sections = append(sections, th.muted.Render(fmt.Sprintf("No profiles match %q.", v.search.Value())))
	default:
		now := time.Now()
		// Keep the selection on screen; each row takes two lines.
		perPage := max(1, (height-6)/2)
		start := 0
		if v.selection >= perPage {
			start = v.selection - perPage + 1
		}
		end := start + perPage
		if end > len(v.visible) {
			end = len(v.visible)
		}
		for i := start; i < end; i++ {
			sections = append(sections, renderProfileRow(th, v.visible[i], i == v.selection, width, now))
		}
	}
	if v.confirming != "" {
		title := v.confirming
		for _, p := range v.all {
			if p.SessionID == v.confirming && p.RoleTitle != "" {
				title = p.RoleTitle
			}
		}
		sections = append(sections, "", th.warn.Render(fmt.Sprintf("Delete %q? This cannot be undone. (y/n)", title)))
	}
	if v.deleting {
		sections = append(sections, "", th.muted.Render("Deleting..."))
	}
	sections = append(sections, th.hint.Render("Enter → open    / → search    d → delete    n → new hiring    Ctrl+R → refresh"))
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}
