package tui

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/kingrea/hiremind/internal/forms"
	"github.com/kingrea/hiremind/internal/store"
)

const (
	groupProfile  = "profile"
	groupPassword = "password"
)

type accountSavedMsg struct {
	group string
	err   error
}

// accountView edits the profile and rotates the password.
type accountView struct {
	app     *App
	form    *formModel
	pending string
}

func newAccountView(app *App) *accountView {
	form := newForm(
		fieldSpec{key: "first_name", label: "First name", group: groupProfile},
		fieldSpec{key: "last_name", label: "Last name", group: groupProfile},
		fieldSpec{key: "company_name", label: "Company", group: groupProfile, charLimit: 120},
		fieldSpec{key: "job_title", label: "Job title", group: groupProfile, charLimit: 120},
		fieldSpec{key: "bio", label: "Bio", group: groupProfile, charLimit: 1000},
		fieldSpec{key: "current_password", label: "Current password", group: groupPassword, secret: true},
		fieldSpec{key: "new_password", label: "New password", group: groupPassword, secret: true},
		fieldSpec{key: "confirm_password", label: "Confirm new password", group: groupPassword, secret: true},
	)
	v := &accountView{app: app, form: form}
	v.fillProfile()
	return v
}

func (v *accountView) fillProfile() {
	user := v.app.store.Auth().User
	if user == nil {
		return
	}
	v.form.SetValue("first_name", user.FirstName)
	v.form.SetValue("last_name", user.LastName)
	v.form.SetValue("company_name", user.CompanyName)
	v.form.SetValue("job_title", user.JobTitle)
	v.form.SetValue("bio", user.Bio)
}

func (v *accountView) Init() tea.Cmd {
	v.app.session.ClearError()
	return v.form.Focus()
}

func (v *accountView) Leave() {}

func (v *accountView) Update(msg tea.Msg) tea.Cmd {
	switch m := msg.(type) {
	case accountSavedMsg:
		v.pending = ""
		if m.err != nil {
			return nil
		}
		switch m.group {
		case groupProfile:
			v.fillProfile()
			v.app.store.Notify(store.NotifySuccess, "Profile updated")
		case groupPassword:
			v.form.ResetGroup(groupPassword)
			v.app.store.Notify(store.NotifySuccess, "Password changed")
		}
		return nil
	case tea.KeyMsg:
		if v.pending != "" {
			return nil
		}
		if m.String() == "ctrl+p" {
			if v.form.FocusedGroup() == groupProfile {
				return v.form.FocusGroup(groupPassword)
			}
			return v.form.FocusGroup(groupProfile)
		}
	}
	submit, cmd := v.form.Update(msg)
	if submit {
		return v.submit(v.form.FocusedGroup())
	}
	return cmd
}

func (v *accountView) submit(group string) tea.Cmd {
	app := v.app
	switch group {
	case groupProfile:
		form := forms.Profile{
			FirstName:   v.form.Value("first_name"),
			LastName:    v.form.Value("last_name"),
			CompanyName: v.form.Value("company_name"),
			JobTitle:    v.form.Value("job_title"),
			Bio:         v.form.Value("bio"),
		}
		if errs := forms.Validate(form); errs != nil {
			v.form.SetErrors(errs)
			return nil
		}
		v.form.SetErrors(nil)
		v.pending = group
		return func() tea.Msg {
			return accountSavedMsg{group: group, err: app.session.UpdateProfile(app.ctx, form.Request())}
		}
	case groupPassword:
		form := forms.ChangePassword{
			CurrentPassword: v.form.Value("current_password"),
			NewPassword:     v.form.Value("new_password"),
			ConfirmPassword: v.form.Value("confirm_password"),
		}
		if errs := forms.Validate(form); errs != nil {
			v.form.SetErrors(errs)
			return nil
		}
		v.form.SetErrors(nil)
		v.pending = group
		return func() tea.Msg {
			return accountSavedMsg{group: group, err: app.session.ChangePassword(app.ctx, form.Request())}
		}
	}
	return nil
}

func (v *accountView) View(width, height int) string {
	th := v.app.theme
	auth := v.app.store.Auth()
	sections := []string{th.title.Render("Account Settings")}
	if auth.User != nil {
		u := auth.User
		sections = append(sections, th.muted.Render(fmt.Sprintf("%s · @%s · %s", u.DisplayName(), u.Username, u.Email)))
	}
	sections = append(sections, "")
	if auth.Error != "" {
		sections = append(sections, th.err.Render("⚠ "+auth.Error), "")
	}
	colWidth := width
	if width >= 90 {
		colWidth = width/2 - 2
	}
	profile := lipgloss.JoinVertical(lipgloss.Left,
		th.title.Render("Profile"),
		v.form.View(th, groupProfile, colWidth),
	)
	password := lipgloss.JoinVertical(lipgloss.Left,
		th.title.Render("Change Password"),
		v.form.View(th, groupPassword, colWidth),
	)
	if width >= 90 {
		sections = append(sections, lipgloss.JoinHorizontal(lipgloss.Top,
			lipgloss.NewStyle().Width(colWidth).MarginRight(2).Render(profile),
			lipgloss.NewStyle().Width(colWidth).Render(password),
		))
	} else {
		sections = append(sections, profile, "", password)
	}
	switch v.pending {
	case groupProfile:
		sections = append(sections, "", th.muted.Render("Saving profile..."))
	case groupPassword:
		sections = append(sections, "", th.muted.Render("Changing password..."))
	}
	sections = append(sections, th.hint.Render("Ctrl+S → save the focused section    Tab → next field    Ctrl+P → switch section"))
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}
