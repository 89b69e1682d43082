package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/kingrea/hiremind/internal/api"
	"github.com/kingrea/hiremind/internal/forms"
	"github.com/kingrea/hiremind/internal/hiring"
	"github.com/kingrea/hiremind/internal/poller"
	"github.com/kingrea/hiremind/internal/router"
	"github.com/kingrea/hiremind/internal/store"
	"github.com/kingrea/hiremind/internal/workflow"
)

var (
	labelStyleDone    = lipgloss.NewStyle().Foreground(lipgloss.Color("#4CAF50")).Bold(true)
	labelStyleRunning = lipgloss.NewStyle().Foreground(lipgloss.Color("#5B8DEF")).Bold(true)
	labelStyleFailed  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B")).Bold(true)
	labelStylePending = lipgloss.NewStyle().Foreground(lipgloss.Color("#999999"))
)

const (
	focusDescription = iota
	focusCompany
	focusDepartment
	focusFieldCount
)

type workflowStartedMsg struct {
	resp api.WorkflowResponse
	err  error
}

type pollStoppedMsg struct {
	sessionID string
	reason    poller.Reason
}

type pollRefreshMsg struct {
	sessionID string
}

// workflowView is the new hiring screen: a start form, then the live
// progress of the run it launched.
type workflowView struct {
	app         *App
	description textarea.Model
	company     textinput.Model
	department  textinput.Model
	focus       int
	example     int
	errors      forms.FieldErrors
	spinner     spinner.Model

	starting  bool
	polling   bool
	sessionID string
	notice    string
	err       string
	// navigated guards the single move to the details screen.
	navigated bool
}

func newNewHiringView(app *App) *workflowView {
	ta := textarea.New()
	ta.Placeholder = "Describe the role: seniority, skills, team and anything the plan should account for."
	ta.ShowLineNumbers = false
	ta.CharLimit = 4000
	ta.SetHeight(6)
	ta.Cursor.SetMode(cursor.CursorStatic)

	company := newTextInput("Acme Inc.", 120)
	if user := app.store.Auth().User; user != nil {
		company.SetValue(user.CompanyName)
	}
	return &workflowView{
		app:         app,
		description: ta,
		company:     company,
		department:  newTextInput("Engineering", 120),
		example:     -1,
		spinner:     spinner.New(spinner.WithSpinner(spinner.MiniDot)),
	}
}

func (v *workflowView) Init() tea.Cmd {
	return v.description.Focus()
}

// Leave cancels polling; the run continues on the server.
func (v *workflowView) Leave() {
	if v.polling {
		v.app.logInfo("Stopped watching workflow %s", v.sessionID)
	}
	v.polling = false
	v.app.poller.Stop()
}

func (v *workflowView) Update(msg tea.Msg) tea.Cmd {
	switch m := msg.(type) {
	case workflowStartedMsg:
		v.starting = false
		if m.err != nil {
			v.err = v.app.store.Workflow().Error
			if v.err == "" {
				v.err = hiring.MsgStartFailed
			}
			v.app.store.Notify(store.NotifyError, v.err)
			return nil
		}
		v.sessionID = m.resp.SessionID
		v.polling = true
		v.app.statusMsg = fmt.Sprintf("Workflow %s started", v.sessionID)
		return v.track()

	case pollStoppedMsg:
		if m.sessionID != v.sessionID {
			return nil
		}
		v.polling = false
		return v.handleStop(m.reason)

	case pollRefreshMsg:
		if m.sessionID != v.sessionID || !v.polling {
			return nil
		}
		return v.app.liveRefresh(pollRefreshMsg{sessionID: v.sessionID})

	case spinner.TickMsg:
		if !v.polling && !v.starting {
			return nil
		}
		var cmd tea.Cmd
		v.spinner, cmd = v.spinner.Update(m)
		return cmd

	case tea.KeyMsg:
		if v.polling || v.starting {
			return nil
		}
		return v.handleKeyMsg(m)
	}
	return nil
}

func (v *workflowView) handleKeyMsg(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "tab":
		return v.setFocus((v.focus + 1) % focusFieldCount)
	case "shift+tab":
		return v.setFocus((v.focus + focusFieldCount - 1) % focusFieldCount)
	case "ctrl+e":
		v.example = (v.example + 1) % len(workflow.ExamplePrompts)
		v.description.SetValue(workflow.ExamplePrompts[v.example])
		delete(v.errors, "description")
		return nil
	case "ctrl+s":
		return v.submit()
	case "enter":
		if v.focus != focusDescription {
			return v.submit()
		}
	}
	var cmd tea.Cmd
	switch v.focus {
	case focusDescription:
		v.description, cmd = v.description.Update(msg)
		delete(v.errors, "description")
	case focusCompany:
		v.company, cmd = v.company.Update(msg)
		delete(v.errors, "company_name")
	case focusDepartment:
		v.department, cmd = v.department.Update(msg)
	}
	return cmd
}

func (v *workflowView) setFocus(focus int) tea.Cmd {
	v.focus = focus
	v.description.Blur()
	v.company.Blur()
	v.department.Blur()
	switch focus {
	case focusCompany:
		return v.company.Focus()
	case focusDepartment:
		return v.department.Focus()
	default:
		return v.description.Focus()
	}
}

func (v *workflowView) submit() tea.Cmd {
	form := forms.NewHiring{
		Description: v.description.Value(),
		CompanyName: v.company.Value(),
		Department:  v.department.Value(),
	}
	if errs := forms.Validate(form); errs != nil {
		v.errors = errs
		return nil
	}
	v.errors = nil
	v.err = ""
	v.notice = ""
	v.starting = true
	v.navigated = false
	app := v.app
	start := func() tea.Msg {
		resp, err := app.hiring.StartWorkflow(app.ctx, form.Request())
		return workflowStartedMsg{resp: resp, err: err}
	}
	return tea.Batch(start, v.spinner.Tick)
}

// track starts polling and bridges the poller's stop callback into a message.
func (v *workflowView) track() tea.Cmd {
	id := v.sessionID
	stopped := make(chan poller.Reason, 1)
	v.app.hiring.Track(v.app.ctx, v.app.poller, id, func(reason poller.Reason) {
		stopped <- reason
	})
	wait := func() tea.Msg {
		return pollStoppedMsg{sessionID: id, reason: <-stopped}
	}
	return tea.Batch(wait, v.app.liveRefresh(pollRefreshMsg{sessionID: id}), v.spinner.Tick)
}

func (v *workflowView) handleStop(reason poller.Reason) tea.Cmd {
	wf := v.app.store.Workflow()
	switch reason {
	case poller.ReasonCompleted:
		if v.navigated {
			return nil
		}
		v.navigated = true
		v.app.store.Notify(store.NotifySuccess, hiring.MsgWorkflowReady)
		return navigateTo(router.Hiring(v.sessionID))
	case poller.ReasonFailed:
		v.err = wf.Error
		v.app.store.Notify(store.NotifyError, wf.Error)
	case poller.ReasonExhausted:
		v.notice = hiring.MsgStillRunning
		v.app.store.Notify(store.NotifyWarning, hiring.MsgStillRunning)
	case poller.ReasonError:
		v.err = wf.Error
		if v.err == "" {
			v.err = hiring.MsgStatusFailed
		}
	}
	return nil
}

func (v *workflowView) View(width, height int) string {
	th := v.app.theme
	sections := []string{
		th.title.Render("Create New Hiring Plan"),
		th.muted.Render("Describe the role and the agents will define it, write the JD, plan interviews, estimate the timeline, benchmark salary and draft the offer."),
		"",
	}
	if v.sessionID != "" {
		sections = append(sections, v.renderProgress(width), "")
	}
	if v.err != "" {
		sections = append(sections, th.err.Render("⚠ "+v.err), "")
	}
	if v.notice != "" {
		sections = append(sections, th.warn.Render(v.notice), "")
		if v.sessionID != "" {
			sections = append(sections, th.muted.Render("Profile: "+router.Hiring(v.sessionID).Path()), "")
		}
	}
	if v.polling || v.starting {
		return lipgloss.JoinVertical(lipgloss.Left, sections...)
	}
	sections = append(sections, v.renderForm(width))
	sections = append(sections, th.hint.Render("Ctrl+S → generate plan    Tab → next field    Ctrl+E → example prompt"))
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (v *workflowView) renderForm(width int) string {
	th := v.app.theme
	v.description.SetWidth(max(20, width-2))
	v.company.Width = max(10, width-6)
	v.department.Width = max(10, width-6)

	label := func(text string, focused bool) string {
		if focused {
			return th.focused.Render(text)
		}
		return th.label.Render(text)
	}
	rows := []string{label("Role description", v.focus == focusDescription), v.description.View()}
	if msg := v.errors.Get("description"); msg != "" {
		rows = append(rows, th.err.Render("  "+msg))
	}
	if v.example >= 0 {
		rows = append(rows, th.muted.Render(fmt.Sprintf("Example %d of %d", v.example+1, len(workflow.ExamplePrompts))))
	}
	rows = append(rows, "", label("Company name", v.focus == focusCompany), v.company.View())
	if msg := v.errors.Get("company_name"); msg != "" {
		rows = append(rows, th.err.Render("  "+msg))
	}
	rows = append(rows, "", label("Department (optional)", v.focus == focusDepartment), v.department.View())
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

func (v *workflowView) renderProgress(width int) string {
	th := v.app.theme
	wf := v.app.store.Workflow()
	stages := workflow.Stages()
	step := workflow.StepIndex(len(wf.CompletedStages))
	lines := []string{th.title.Render(fmt.Sprintf("Progress · %d/%d stages", step, len(stages)))}
	for i, stage := range stages {
		lines = append(lines, v.renderStageLine(i, step, stage, wf))
	}
	current := workflow.ParseStage(wf.CurrentStage)
	if v.polling && current != workflow.StageNone {
		lines = append(lines, "", th.muted.Render(current.Description()+"..."))
	}
	if v.polling {
		lines = append(lines, th.muted.Render(fmt.Sprintf("Session %s · checking every %s", v.sessionID, v.app.poller.Config().Interval)))
	}
	return lipgloss.NewStyle().Width(max(20, width)).Render(strings.Join(lines, "\n"))
}

func (v *workflowView) renderStageLine(idx, step int, stage workflow.Stage, wf store.WorkflowState) string {
	label := fmt.Sprintf("%d. %s", idx+1, stage.Label())
	switch {
	case idx < step:
		return labelStyleDone.Render("✓ " + label)
	case idx == step && v.polling:
		return labelStyleRunning.Render(v.spinner.View() + " " + label)
	case idx == step && wf.Status == store.RunFailed:
		return labelStyleFailed.Render("✗ " + label)
	default:
		return labelStylePending.Render("○ " + label)
	}
}
