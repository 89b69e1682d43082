package tui

import (
	"fmt"
	"sort"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/sync/errgroup"

	"github.com/kingrea/hiremind/internal/api"
	"github.com/kingrea/hiremind/internal/hiring"
	"github.com/kingrea/hiremind/internal/querycache"
	"github.com/kingrea/hiremind/internal/router"
)

type dashboardLoadedMsg struct {
	recent []api.Profile
	stats  hiring.Stats
	health api.Health
	err    error
}

type dashboardView struct {
	app       *App
	recent    []api.Profile
	stats     hiring.Stats
	health    api.Health
	err       error
	loaded    bool
	selection int
}

func newDashboardView(app *App) *dashboardView {
	return &dashboardView{app: app}
}

func (v *dashboardView) Init() tea.Cmd {
	return v.load()
}

func (v *dashboardView) Leave() {}

// load fetches the recent list, which also feeds the stats, and health side
// by side.
// Health failures are shown inline and never fail the screen.
func (v *dashboardView) load() tea.Cmd {
	svc := v.app.hiring
	ctx := v.app.ctx
	return func() tea.Msg {
		var (
			msg dashboardLoadedMsg
			g   errgroup.Group
		)
		g.Go(func() error {
			list, err := svc.RecentProfiles(ctx)
			msg.recent = list.Profiles
			msg.stats = hiring.ComputeStats(list.Profiles)
			return err
		})
		g.Go(func() error {
			msg.health, _ = svc.Health(ctx)
			return nil
		})
		msg.err = g.Wait()
		return msg
	}
}

func (v *dashboardView) Update(msg tea.Msg) tea.Cmd {
	switch m := msg.(type) {
	case dashboardLoadedMsg:
		v.loaded = true
		v.err = m.err
		v.recent = m.recent
		v.stats = m.stats
		v.health = m.health
		if v.selection >= len(v.recent) {
			v.selection = max(0, len(v.recent)-1)
		}
		if m.err != nil {
			v.app.logWarn("Dashboard load failed: %v", m.err)
		}
		return nil
	case tea.KeyMsg:
		switch m.String() {
		case "up", "k":
			if v.selection > 0 {
				v.selection--
			}
		case "down", "j":
			if v.selection < len(v.recent)-1 {
				v.selection++
			}
		case "enter":
			if len(v.recent) > 0 {
				return navigateTo(router.Hiring(v.recent[v.selection].SessionID))
			}
		case "n":
			return navigateTo(router.To(router.NewHiring))
		case "p":
			return navigateTo(router.To(router.Profiles))
		case "ctrl+r":
			v.app.statusMsg = "Refreshing dashboard..."
			v.app.hiring.Cache().Invalidate(querycache.KeyRecentProfiles)
			return v.load()
		}
	}
	return nil
}

func (v *dashboardView) View(width, height int) string {
	th := v.app.theme
	name := "there"
	if user := v.app.store.Auth().User; user != nil {
		name = user.DisplayName()
	}
	sections := []string{
		th.title.Render(fmt.Sprintf("Welcome back, %s", name)),
		th.muted.Render("Here is where your hiring stands."),
		"",
	}
	if !v.loaded {
		return lipgloss.JoinVertical(lipgloss.Left, append(sections, th.muted.Render("Loading dashboard..."))...)
	}
	if v.err != nil {
		sections = append(sections, th.err.Render("⚠ "+api.DetailOr(v.err, "Failed to load profiles")), "")
	}
	sections = append(sections, v.renderStats(width), "", v.renderHealth(), "", v.renderRecent(width))
	sections = append(sections, th.hint.Render("Enter → open    n → new hiring    p → all profiles    Ctrl+R → refresh"))
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (v *dashboardView) renderStats(width int) string {
	th := v.app.theme
	cards := []struct {
		label string
		value string
	}{
		{"Total Profiles", fmt.Sprintf("%d", v.stats.Total)},
		{"Active", fmt.Sprintf("%d", v.stats.Active)},
		{"Completed", fmt.Sprintf("%d", v.stats.Completed)},
		{"In Progress", fmt.Sprintf("%d", v.stats.InProgress)},
		{"Completion", fmt.Sprintf("%d%%", v.stats.CompletionRate)},
	}
	cardWidth := max(14, width/len(cards)-4)
	rendered := make([]string, 0, len(cards))
	for _, c := range cards {
		body := th.header.Render(c.value) + "\n" + th.muted.Render(c.label)
		rendered = append(rendered, th.box(cardWidth).Render(body))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, rendered...)
}

func (v *dashboardView) renderHealth() string {
	th := v.app.theme
	if v.health.Healthy() {
		var parts []string
		for name, state := range v.health.Services {
			parts = append(parts, fmt.Sprintf("%s %s", name, state))
		}
		sort.Strings(parts)
		line := "API healthy"
		if len(parts) > 0 {
			line += " · " + strings.Join(parts, " · ")
		}
		return th.ok.Render("● ") + th.text.Render(line)
	}
	status := v.health.Status
	if status == "" {
		status = "unknown"
	}
	return th.warn.Render("● ") + th.text.Render("API "+status)
}

func (v *dashboardView) renderRecent(width int) string {
	th := v.app.theme
	title := th.title.Render(fmt.Sprintf("Recent Profiles (%d)", len(v.recent)))
	if len(v.recent) == 0 {
		return lipgloss.JoinVertical(lipgloss.Left, title, th.muted.Render("No hiring profiles yet. Press n to start one."))
	}
	rows := []string{title}
	for i, p := range v.recent {
		rows = append(rows, renderProfileRow(th, p, i == v.selection, width, time.Now()))
	}
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

// renderProfileRow is shared by the dashboard and the profiles screen.
func renderProfileRow(th theme, p api.Profile, selected bool, width int, now time.Time) string {
	title := p.RoleTitle
	if strings.TrimSpace(title) == "" {
		title = "Untitled Role"
	}
	meta := []string{th.statusStyle(p.Status).Render(titleCase(p.Status))}
	if p.Department != "" {
		meta = append(meta, p.Department)
	}
	if created, ok := p.Created(); ok {
		meta = append(meta, fmt.Sprintf("created %s ago", humanizeDuration(now.Sub(created))))
	}
	content := title + "\n" + th.muted.Render(strings.Join(meta, " · "))
	style := lipgloss.NewStyle().Width(max(20, width-4)).Padding(0, 0, 0, 2)
	if selected {
		style = th.selected.Width(max(20, width-4))
	}
	return style.Render(content)
}
