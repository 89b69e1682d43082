package tui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/kingrea/hiremind/internal/forms"
	"github.com/kingrea/hiremind/internal/router"
	"github.com/kingrea/hiremind/internal/session"
)

type authResultMsg struct {
	err error
}

type loginView struct {
	app     *App
	loc     router.Location
	form    *formModel
	pending bool
}

func newLoginView(app *App, loc router.Location) *loginView {
	return &loginView{
		app: app,
		loc: loc,
		form: newForm(
			fieldSpec{key: "email_or_username", label: "Email or username", placeholder: "you@company.com"},
			fieldSpec{key: "password", label: "Password", secret: true},
		),
	}
}

func (v *loginView) Init() tea.Cmd {
	return v.form.Focus()
}

func (v *loginView) Leave() {}

func (v *loginView) Update(msg tea.Msg) tea.Cmd {
	switch m := msg.(type) {
	case authResultMsg:
		v.pending = false
		if m.err != nil {
			v.form.SetValue("password", "")
			return nil
		}
		return navigateTo(router.AfterLogin(v.loc))
	case tea.KeyMsg:
		if m.String() == "ctrl+r" {
			return navigateTo(router.To(router.Register))
		}
	}
	if v.pending {
		return nil
	}
	submit, cmd := v.form.Update(msg)
	if submit {
		return v.submit()
	}
	return cmd
}

func (v *loginView) submit() tea.Cmd {
	form := forms.Login{
		EmailOrUsername: v.form.Value("email_or_username"),
		Password:        v.form.Value("password"),
	}
	if errs := forms.Validate(form); errs != nil {
		v.form.SetErrors(errs)
		return nil
	}
	v.form.SetErrors(nil)
	v.pending = true
	app := v.app
	return func() tea.Msg {
		return authResultMsg{err: app.session.Login(app.ctx, form.Request())}
	}
}

func (v *loginView) View(width, height int) string {
	th := v.app.theme
	lines := []string{
		th.title.Render("Sign in to HireMind"),
		th.muted.Render("AI-powered hiring plans for your team"),
		"",
	}
	if v.loc.From != "" {
		lines = append(lines, th.muted.Render("Sign in to continue to "+v.loc.From), "")
	}
	if msg := v.app.store.Auth().Error; msg != "" && msg != session.MsgNoToken {
		lines = append(lines, th.err.Render("⚠ "+msg), "")
	}
	lines = append(lines, v.form.View(th, "", min(width, 60)))
	if v.pending {
		lines = append(lines, "", th.muted.Render("Signing in..."))
	}
	lines = append(lines, th.hint.Render("Enter → sign in    Tab → next field    Ctrl+R → create an account"))
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

type registerView struct {
	app     *App
	form    *formModel
	pending bool
}

func newRegisterView(app *App) *registerView {
	return &registerView{
		app: app,
		form: newForm(
			fieldSpec{key: "first_name", label: "First name"},
			fieldSpec{key: "last_name", label: "Last name"},
			fieldSpec{key: "email", label: "Email", placeholder: "you@company.com"},
			fieldSpec{key: "username", label: "Username", charLimit: 50},
			fieldSpec{key: "password", label: "Password", secret: true},
			fieldSpec{key: "confirm_password", label: "Confirm password", secret: true},
			fieldSpec{key: "company_name", label: "Company (optional)"},
			fieldSpec{key: "job_title", label: "Job title (optional)"},
		),
	}
}

func (v *registerView) Init() tea.Cmd {
	v.app.session.ClearError()
	return v.form.Focus()
}

func (v *registerView) Leave() {}

func (v *registerView) Update(msg tea.Msg) tea.Cmd {
	switch m := msg.(type) {
	case authResultMsg:
		v.pending = false
		if m.err != nil {
			return nil
		}
		return navigateTo(router.To(router.Dashboard))
	case tea.KeyMsg:
		if m.String() == "ctrl+r" {
			return navigateTo(router.To(router.Login))
		}
	}
	if v.pending {
		return nil
	}
	submit, cmd := v.form.Update(msg)
	if submit {
		return v.submit()
	}
	return cmd
}

func (v *registerView) submit() tea.Cmd {
	form := forms.Register{
		FirstName:       v.form.Value("first_name"),
		LastName:        v.form.Value("last_name"),
		Email:           v.form.Value("email"),
		Username:        v.form.Value("username"),
		Password:        v.form.Value("password"),
		ConfirmPassword: v.form.Value("confirm_password"),
		CompanyName:     v.form.Value("company_name"),
		JobTitle:        v.form.Value("job_title"),
	}
	if errs := forms.Validate(form); errs != nil {
		v.form.SetErrors(errs)
		return nil
	}
	v.form.SetErrors(nil)
	v.pending = true
	app := v.app
	return func() tea.Msg {
		return authResultMsg{err: app.session.Register(app.ctx, form.Request())}
	}
}

func (v *registerView) View(width, height int) string {
	th := v.app.theme
	lines := []string{
		th.title.Render("Create your HireMind account"),
		"",
	}
	if msg := v.app.store.Auth().Error; msg != "" {
		lines = append(lines, th.err.Render("⚠ "+msg), "")
	}
	lines = append(lines, v.form.View(th, "", min(width, 60)))
	if v.pending {
		lines = append(lines, "", th.muted.Render("Creating account..."))
	}
	lines = append(lines, th.hint.Render("Ctrl+S → create account    Tab → next field    Ctrl+R → back to sign in"))
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
