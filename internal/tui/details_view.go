package tui

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/kingrea/hiremind/internal/api"
	"github.com/kingrea/hiremind/internal/hiring"
	"github.com/kingrea/hiremind/internal/querycache"
	"github.com/kingrea/hiremind/internal/workflow"
)

type profileLoadedMsg struct {
	sessionID string
	profile   api.Profile
	err       error
}

// detailsView shows one profile's stage outputs in a scrollable pane.
type detailsView struct {
	app       *App
	sessionID string
	profile   api.Profile
	loaded    bool
	err       error
	viewport  viewport.Model
	// contentWidth is the wrap width the viewport content was built for.
	contentWidth int
}

func newDetailsView(app *App, sessionID string) *detailsView {
	return &detailsView{
		app:       app,
		sessionID: sessionID,
		viewport:  viewport.New(80, 20),
	}
}

func (v *detailsView) Init() tea.Cmd {
	return v.load()
}

func (v *detailsView) Leave() {}

func (v *detailsView) load() tea.Cmd {
	app := v.app
	id := v.sessionID
	return func() tea.Msg {
		profile, err := app.hiring.Profile(app.ctx, id)
		return profileLoadedMsg{sessionID: id, profile: profile, err: err}
	}
}

func (v *detailsView) Update(msg tea.Msg) tea.Cmd {
	switch m := msg.(type) {
	case profileLoadedMsg:
		if m.sessionID != v.sessionID {
			return nil
		}
		v.loaded = true
		v.err = m.err
		v.profile = m.profile
		v.contentWidth = 0
		if m.err != nil {
			v.app.logWarn("Loading profile %s failed: %v", m.sessionID, m.err)
		}
		return nil
	case tea.KeyMsg:
		if m.String() == "ctrl+r" {
			v.app.hiring.Cache().Invalidate(querycache.ProfileKey(v.sessionID))
			v.loaded = false
			return v.load()
		}
	}
	var cmd tea.Cmd
	v.viewport, cmd = v.viewport.Update(msg)
	return cmd
}

func (v *detailsView) View(width, height int) string {
	th := v.app.theme
	if !v.loaded {
		return th.muted.Render("Loading hiring plan...")
	}
	if v.err != nil {
		msg := api.DetailOr(v.err, "Failed to load profile")
		if errors.Is(v.err, api.ErrNotFound) {
			msg = "Profile not found"
		}
		return lipgloss.JoinVertical(lipgloss.Left,
			th.err.Render("⚠ "+msg),
			th.hint.Render("Esc → back    Ctrl+R → retry"),
		)
	}

	title := v.profile.RoleTitle
	if strings.TrimSpace(title) == "" {
		title = "Untitled Role"
	}
	meta := []string{th.statusStyle(v.profile.Status).Render(titleCase(v.profile.Status))}
	if v.profile.Department != "" {
		meta = append(meta, v.profile.Department)
	}
	if created, ok := v.profile.Created(); ok {
		meta = append(meta, "created "+created.Format("Jan 2, 2006 15:04"))
	}
	header := lipgloss.JoinVertical(lipgloss.Left,
		th.title.Render(title),
		th.muted.Render(strings.Join(meta, " · ")),
		th.muted.Render("Session "+v.sessionID),
	)

	if v.contentWidth != width {
		v.viewport.SetContent(v.renderResults(width))
		v.contentWidth = width
	}
	v.viewport.Width = max(20, width)
	v.viewport.Height = max(4, height-5)

	footer := th.hint.Render(fmt.Sprintf("↑/↓ scroll · %3.0f%%    Ctrl+R → reload    Esc → back", v.viewport.ScrollPercent()*100))
	return lipgloss.JoinVertical(lipgloss.Left, header, "", v.viewport.View(), footer)
}

func (v *detailsView) renderResults(width int) string {
	th := v.app.theme
	body := lipgloss.NewStyle().Width(max(20, width-2))
	var sections []string
	for _, stage := range workflow.Stages() {
		text := v.profile.Results.Text(stage.String())
		if strings.TrimSpace(text) == "" {
			sections = append(sections, labelStylePending.Render("○ "+stage.Label()+" · not available"))
			continue
		}
		sections = append(sections,
			labelStyleDone.Render("✓ "+stage.Label()),
			body.Render(hiring.CleanMarkdown(text)),
			"",
		)
	}
	if len(v.profile.Results) == 0 {
		return th.muted.Render("This profile has no results yet.")
	}
	return strings.Join(sections, "\n")
}
