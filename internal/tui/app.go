// internal/tui/app.go
//
// This is the main TUI (Terminal User Interface) for HireMind.
// It uses bubbletea, which follows The Elm Architecture:
//
// 1. Model: Your application state
// 2. Update: A function that updates state based on messages
// 3. View: A function that renders state to a string
//
// The flow is: User Input -> Message -> Update -> New Model -> View -> Screen
//
// Screens are chosen by the router. Network work runs inside tea.Cmds and
// lands in the store; every Update ends by reconciling the route with the
// auth slice so a rejected session always ends on /login.

package tui

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/kingrea/hiremind/internal/api"
	"github.com/kingrea/hiremind/internal/config"
	"github.com/kingrea/hiremind/internal/hiring"
	"github.com/kingrea/hiremind/internal/logbook"
	"github.com/kingrea/hiremind/internal/logging"
	"github.com/kingrea/hiremind/internal/poller"
	"github.com/kingrea/hiremind/internal/querycache"
	"github.com/kingrea/hiremind/internal/router"
	"github.com/kingrea/hiremind/internal/session"
	"github.com/kingrea/hiremind/internal/store"
	"github.com/kingrea/hiremind/internal/tokenstore"
)

const (
	notificationTTL   = 5 * time.Second
	sweepInterval     = time.Second
	liveRefreshPeriod = 250 * time.Millisecond
	maxNotifications  = 3
)

// screen is one routed page.
type screen interface {
	Init() tea.Cmd
	Update(msg tea.Msg) tea.Cmd
	View(width, height int) string
	// Leave runs when the router moves away from the screen.
	Leave()
}

// escCapturer is implemented by screens that use esc themselves, for
// example to cancel a search or a confirmation.
type escCapturer interface {
	CapturesEsc() bool
}

// AppOption customizes App construction for tests and alternate runtimes.
type AppOption func(*App)

// WithInitialPath opens the app on path instead of the dashboard.
func WithInitialPath(path string) AppOption {
	return func(a *App) {
		if strings.TrimSpace(path) != "" {
			a.initialPath = path
		}
	}
}

// WithAPIOptions passes extra options to the API client, e.g. a tracer provider.
func WithAPIOptions(opts ...api.Option) AppOption {
	return func(a *App) {
		a.apiOptions = append(a.apiOptions, opts...)
	}
}

type navigateMsg struct {
	location router.Location
}

type sessionValidatedMsg struct {
	err error
}

type loggedOutMsg struct {
	err error
}

type notificationSweepMsg struct{}

// App is the main application model. In bubbletea, this holds ALL your state.
type App struct {
	config  *config.Config
	logbook *logbook.Logbook
	httpLog *logging.Logger
	tokens  *tokenstore.Store
	client  *api.Client
	store   *store.Store
	session *session.Service
	hiring  *hiring.Service
	poller  *poller.Controller
	router  *router.Router

	ctx    context.Context
	cancel context.CancelFunc

	initialPath string
	apiOptions  []api.Option

	screen    screen
	screenLoc router.Location
	startCmd  tea.Cmd
	// validating is true until the stored token has been checked.
	validating bool
	loading    bool
	signedIn   bool

	// timers drive notification expiry and live redraws.
	timers bool

	spinner   spinner.Model
	goTo      textinput.Model
	goToOpen  bool
	showLog   bool
	statusMsg string
	theme     theme

	// Window size (we get this from bubbletea)
	width  int
	height int
}

// NewApp creates a new App instance
func NewApp(projectDir string, opts ...AppOption) (*App, error) {
	cfg, err := config.NewConfig(projectDir)
	if err != nil {
		return nil, err
	}
	lb, err := logbook.New(filepath.Join(cfg.LogsDir(), "journey.log"))
	if err != nil {
		lb = nil
	}
	httpLog, err := logging.New(projectDir)
	if err != nil {
		httpLog = nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	app := &App{
		config:      cfg,
		logbook:     lb,
		httpLog:     httpLog,
		tokens:      tokenstore.New(cfg.TokenPath()),
		store:       store.New(store.WithUI(cfg.SidebarOpen(), cfg.Theme())),
		poller:      poller.NewController(poller.Config{Interval: cfg.PollInterval(), MaxAttempts: cfg.MaxPollAttempts()}),
		ctx:         ctx,
		cancel:      cancel,
		initialPath: "/dashboard",
		timers:      true,
		validating:  true,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(app)
		}
	}

	cache := querycache.New()
	clientOpts := []api.Option{
		api.WithTokenSource(app.tokens),
		api.OnUnauthorized(func(e *api.Error) {
			app.session.HandleUnauthorized(e)
		}),
	}
	if httpLog != nil {
		clientOpts = append(clientOpts, api.WithLogger(httpLog))
	}
	app.client = api.New(cfg.BaseURL(), append(clientOpts, app.apiOptions...)...)
	app.session = session.New(app.client, app.tokens, app.store,
		session.WithLogbook(lb.WithScope("auth")),
		session.OnSessionEnd(func() {
			cache.Clear()
			app.store.ClearWorkflow()
		}),
	)
	app.hiring = hiring.New(app.client, app.store, cache, hiring.WithLogbook(lb.WithScope("workflow")))

	app.theme = themeFor(app.store.UI().Theme)
	app.spinner = spinner.New(spinner.WithSpinner(spinner.Dot))
	app.goTo = newTextInput("/profiles", 200)
	app.goTo.Prompt = "Go to › "

	start := router.Parse(app.initialPath)
	app.router = router.New(start)
	app.startCmd = app.show(app.router.Replace(start, app.authView()))
	return app, nil
}

// Close stops background work and releases log files.
func (a *App) Close() {
	a.poller.Stop()
	a.cancel()
	if err := a.httpLog.Close(); err != nil {
		a.logWarn("Closing HTTP log failed: %v", err)
	}
}

// Store exposes application state, mainly for the CLI entry points.
func (a *App) Store() *store.Store {
	return a.store
}

func (a *App) logInfo(format string, args ...any) {
	if a.logbook == nil {
		return
	}
	a.logbook.Info(format, args...)
}

func (a *App) logWarn(format string, args ...any) {
	if a.logbook == nil {
		return
	}
	a.logbook.Warn(format, args...)
}

func (a *App) logError(format string, args ...any) {
	if a.logbook == nil {
		return
	}
	a.logbook.Error(format, args...)
}

func (a *App) authView() router.AuthView {
	return router.AuthView{
		Authenticated: a.store.Auth().IsAuthenticated,
		Validating:    a.validating,
	}
}

// show swaps in the screen for a guard decision.
func (a *App) show(d router.Decision) tea.Cmd {
	a.loading = d.Loading
	if d.Loading {
		return a.spinner.Tick
	}
	if a.screen != nil && a.screenLoc == d.Location {
		return nil
	}
	if a.screen != nil {
		a.screen.Leave()
	}
	a.screenLoc = d.Location
	a.screen = a.newScreen(d.Location)
	a.logInfo("Route · %s", d.Location.Path())
	return a.screen.Init()
}

func (a *App) navigate(target router.Location) tea.Cmd {
	return a.show(a.router.Navigate(target, a.authView()))
}

func (a *App) redirect(target router.Location) tea.Cmd {
	return a.show(a.router.Replace(target, a.authView()))
}

func (a *App) newScreen(loc router.Location) screen {
	switch loc.Name {
	case router.Login:
		return newLoginView(a, loc)
	case router.Register:
		return newRegisterView(a)
	case router.NewHiring:
		return newNewHiringView(a)
	case router.HiringDetails:
		return newDetailsView(a, loc.SessionID)
	case router.Profiles:
		return newProfilesView(a)
	case router.Playground:
		return newPlaygroundView(a)
	case router.Account:
		return newAccountView(a)
	default:
		return newDashboardView(a)
	}
}

// navigateTo asks the app to move to loc on the next update.
func navigateTo(loc router.Location) tea.Cmd {
	return func() tea.Msg {
		return navigateMsg{location: loc}
	}
}

// Init is called once when the program starts.
func (a *App) Init() tea.Cmd {
	a.logInfo("Client started · API %s", a.config.BaseURL())
	return tea.Batch(a.startCmd, a.validateSession(), a.scheduleSweep())
}

func (a *App) validateSession() tea.Cmd {
	return func() tea.Msg {
		return sessionValidatedMsg{err: a.session.Validate(a.ctx)}
	}
}

func (a *App) scheduleSweep() tea.Cmd {
	if !a.timers {
		return nil
	}
	return tea.Tick(sweepInterval, func(time.Time) tea.Msg {
		return notificationSweepMsg{}
	})
}

// liveRefresh schedules msg while timers are enabled.
func (a *App) liveRefresh(msg tea.Msg) tea.Cmd {
	if !a.timers {
		return nil
	}
	return tea.Tick(liveRefreshPeriod, func(time.Time) tea.Msg {
		return msg
	})
}

// Update is called when a message is received.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	cmd := a.update(msg)
	return a, tea.Batch(cmd, a.syncAuth())
}

func (a *App) update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		return a.forward(msg)

	case sessionValidatedMsg:
		a.validating = false
		a.signedIn = a.store.Auth().IsAuthenticated
		if msg.err != nil {
			a.logInfo("No saved session: %v", msg.err)
		}
		return a.redirect(a.router.Current())

	case navigateMsg:
		return a.navigate(msg.location)

	case loggedOutMsg:
		if msg.err != nil {
			a.logWarn("Logout request failed: %v", msg.err)
		}
		a.signedIn = false
		a.store.Notify(store.NotifyInfo, "Signed out")
		return a.redirect(router.To(router.Login))

	case notificationSweepMsg:
		a.store.ExpireNotifications(time.Now(), notificationTTL)
		return a.scheduleSweep()

	case spinner.TickMsg:
		var cmds []tea.Cmd
		if a.loading {
			var spin tea.Cmd
			a.spinner, spin = a.spinner.Update(msg)
			cmds = append(cmds, spin)
		}
		cmds = append(cmds, a.forward(msg))
		return tea.Batch(cmds...)

	case tea.KeyMsg:
		if a.goToOpen {
			return a.updateGoTo(msg)
		}
		key := msg.String()
		switch key {
		case "ctrl+c":
			a.logInfo("Client closed")
			return tea.Quit
		case "ctrl+g":
			a.goToOpen = true
			a.goTo.SetValue("")
			return a.goTo.Focus()
		case "ctrl+b":
			a.store.ToggleSidebar()
			return nil
		case "ctrl+t":
			return a.toggleTheme()
		case "ctrl+l":
			a.showLog = !a.showLog
			return nil
		case "ctrl+o":
			if a.signedIn {
				a.statusMsg = "Signing out..."
				return a.logout()
			}
		case "esc":
			if c, ok := a.screen.(escCapturer); ok && c.CapturesEsc() {
				break
			}
			if d, ok := a.router.Back(a.authView()); ok {
				return a.show(d)
			}
			return nil
		}
		if idx, ok := navigationHotkey(key); ok && a.signedIn {
			return a.navigate(router.To(router.Navigation[idx]))
		}
	}
	return a.forward(msg)
}

func (a *App) forward(msg tea.Msg) tea.Cmd {
	if a.loading || a.screen == nil {
		return nil
	}
	return a.screen.Update(msg)
}

// syncAuth sends the user to /login once the session disappears, whichever
// request noticed it.
func (a *App) syncAuth() tea.Cmd {
	if a.validating {
		return nil
	}
	now := a.store.Auth().IsAuthenticated
	was := a.signedIn
	a.signedIn = now
	if !was || now {
		return nil
	}
	a.poller.Stop()
	a.statusMsg = "Session ended"
	a.logWarn("Session ended on %s", a.router.Current().Path())
	if a.router.Current().Name.Public() {
		return nil
	}
	return a.redirect(a.router.Current())
}

func (a *App) updateGoTo(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "esc":
		a.goToOpen = false
		a.goTo.Blur()
		return nil
	case "enter":
		a.goToOpen = false
		a.goTo.Blur()
		target := router.Parse(a.goTo.Value())
		return a.navigate(target)
	}
	var cmd tea.Cmd
	a.goTo, cmd = a.goTo.Update(msg)
	return cmd
}

func (a *App) toggleTheme() tea.Cmd {
	name := a.store.ToggleTheme()
	a.theme = themeFor(name)
	if err := a.config.SetTheme(name); err != nil {
		a.statusMsg = fmt.Sprintf("Theme not saved: %v", err)
		a.logError("Saving theme failed: %v", err)
		return nil
	}
	a.statusMsg = fmt.Sprintf("Theme · %s", name)
	return nil
}

func (a *App) logout() tea.Cmd {
	a.poller.Stop()
	return func() tea.Msg {
		return loggedOutMsg{err: a.session.Logout(a.ctx)}
	}
}

// navigationHotkey maps alt+1..alt+N to sidebar entries.
func navigationHotkey(key string) (int, bool) {
	if !strings.HasPrefix(key, "alt+") || len(key) != len("alt+1") {
		return 0, false
	}
	idx := int(key[len(key)-1] - '1')
	if idx < 0 || idx >= len(router.Navigation) {
		return 0, false
	}
	return idx, true
}

// View renders the current state to a string.
func (a *App) View() string {
	width := a.width
	if width <= 0 {
		width = 100
	}
	height := a.height
	if height <= 0 {
		height = 32
	}
	sidebarWidth := 0
	if a.signedIn && a.store.UI().SidebarOpen && width >= 70 {
		sidebarWidth = 24
	}
	mainWidth := width - sidebarWidth - 4
	if sidebarWidth > 0 {
		mainWidth -= 4
	}

	var content string
	switch {
	case a.loading:
		content = fmt.Sprintf("%s Authenticating...", a.spinner.View())
	case a.screen != nil:
		content = a.screen.View(mainWidth-4, max(8, height-14))
	}
	mainBox := a.theme.box(mainWidth).Render(content)

	body := mainBox
	if sidebarWidth > 0 {
		body = lipgloss.JoinHorizontal(lipgloss.Top, a.theme.box(sidebarWidth).Render(a.renderSidebar()), mainBox)
	}

	sections := []string{a.renderHeader(width), body}
	if notes := a.renderNotifications(width); notes != "" {
		sections = append(sections, notes)
	}
	if a.goToOpen {
		sections = append(sections, a.goTo.View())
	}
	if a.showLog {
		if logPanel := a.renderLogPanel(); logPanel != "" {
			sections = append(sections, logPanel)
		}
	}
	footer := a.theme.muted.MarginTop(1).Render(a.footerText())
	sections = append(sections, footer)
	return strings.Join(sections, "\n")
}

func (a *App) renderHeader(width int) string {
	title := a.theme.header.Render("⬡ HIREMIND")
	var who string
	if auth := a.store.Auth(); auth.IsAuthenticated && auth.User != nil {
		who = a.theme.muted.Render(fmt.Sprintf("%s · %s", auth.User.DisplayName(), a.screenLoc.Name.Title()))
	}
	gap := max(1, width-lipgloss.Width(title)-lipgloss.Width(who)-2)
	return title + strings.Repeat(" ", gap) + who
}

func (a *App) renderSidebar() string {
	lines := []string{a.theme.title.Render("Navigate")}
	for i, name := range router.Navigation {
		label := fmt.Sprintf("%d %s", i+1, name.Title())
		if a.screenLoc.Name == name {
			lines = append(lines, a.theme.focused.Render("▸ "+label))
			continue
		}
		lines = append(lines, a.theme.text.Render("  "+label))
	}
	lines = append(lines, "", a.theme.muted.Render("alt+N to jump"))
	return strings.Join(lines, "\n")
}

func (a *App) renderNotifications(width int) string {
	notes := a.store.UI().Notifications
	if len(notes) == 0 {
		return ""
	}
	if len(notes) > maxNotifications {
		notes = notes[len(notes)-maxNotifications:]
	}
	var rows []string
	for _, n := range notes {
		rows = append(rows, a.theme.notification(n.Type).Render("● "+n.Message))
	}
	return a.theme.box(width - 4).Render(strings.Join(rows, "\n"))
}

func (a *App) renderLogPanel() string {
	if a.logbook == nil {
		return ""
	}
	entries := a.logbook.Recent(8)
	if len(entries) == 0 {
		return ""
	}
	fileName := filepath.Base(a.logbook.Path())
	if fileName == "." || fileName == "" {
		fileName = "log"
	}
	head := a.theme.title.Render(fmt.Sprintf("LOG · %s", fileName))
	lines := make([]string, 0, len(entries))
	for _, e := range entries {
		style := a.theme.label
		switch e.Level {
		case logbook.LevelWarn:
			style = a.theme.warn
		case logbook.LevelError:
			style = a.theme.err
		}
		text := e.Message
		if e.Scope != "" {
			text = e.Scope + " · " + text
		}
		if !e.Time.IsZero() {
			text = e.Time.Local().Format("15:04:05") + "  " + text
		}
		lines = append(lines, style.Render(text))
	}
	body := strings.Join(lines, "\n")
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(a.theme.colors.border).
		Padding(0, 1).
		Render(fmt.Sprintf("%s\n%s", head, body))
}

func (a *App) footerText() string {
	keys := "ctrl+g go to · ctrl+t theme · ctrl+l log · ctrl+c quit"
	if a.signedIn {
		keys = "esc back · ctrl+b sidebar · ctrl+o sign out · " + keys
	}
	if a.statusMsg == "" {
		return keys
	}
	return a.statusMsg + "    " + keys
}

func titleCase(value string) string {
	value = strings.TrimSpace(strings.ReplaceAll(value, "_", " "))
	if value == "" {
		return ""
	}
	lower := strings.ToLower(value)
	return strings.ToUpper(lower[:1]) + lower[1:]
}

func humanizeDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm", int(d.Minutes()))
	}
	if d < 48*time.Hour {
		return fmt.Sprintf("%dh", int(d.Hours()))
	}
	return fmt.Sprintf("%dd", int(d.Hours()/24))
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
