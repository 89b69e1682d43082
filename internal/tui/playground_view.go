package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/kingrea/hiremind/internal/api"
	"github.com/kingrea/hiremind/internal/forms"
	"github.com/kingrea/hiremind/internal/hiring"
	"github.com/kingrea/hiremind/internal/workflow"
)

const playgroundHistory = 10

type agentRunMsg struct {
	agent string
	input string
	resp  api.AgentRunResponse
	err   error
}

type agentExchange struct {
	agent  workflow.Agent
	input  string
	output string
	err    string
	at     time.Time
}

// playgroundView runs single agents outside a workflow.
type playgroundView struct {
	app         *App
	agents      []workflow.Agent
	selected    int
	pickerFocus bool
	input       textarea.Model
	example     int
	errors      forms.FieldErrors
	running     bool
	spinner     spinner.Model
	history     []agentExchange
}

func newPlaygroundView(app *App) *playgroundView {
	ta := textarea.New()
	ta.Placeholder = "Ask the selected agent..."
	ta.ShowLineNumbers = false
	ta.CharLimit = 4000
	ta.SetHeight(4)
	ta.Cursor.SetMode(cursor.CursorStatic)
	return &playgroundView{
		app:     app,
		agents:  workflow.Agents(),
		input:   ta,
		example: -1,
		spinner: spinner.New(spinner.WithSpinner(spinner.MiniDot)),
	}
}

func (v *playgroundView) Init() tea.Cmd {
	return v.input.Focus()
}

func (v *playgroundView) Leave() {}

func (v *playgroundView) agent() workflow.Agent {
	return v.agents[v.selected]
}

func (v *playgroundView) Update(msg tea.Msg) tea.Cmd {
	switch m := msg.(type) {
	case agentRunMsg:
		v.running = false
		agent, _ := workflow.LookupAgent(m.agent)
		entry := agentExchange{agent: agent, input: m.input, at: time.Now()}
		if m.err != nil {
			entry.err = api.DetailOr(m.err, hiring.MsgAgentFailed)
		} else {
			entry.output = m.resp.Output
			v.input.Reset()
		}
		v.history = append([]agentExchange{entry}, v.history...)
		if len(v.history) > playgroundHistory {
			v.history = v.history[:playgroundHistory]
		}
		return nil

	case spinner.TickMsg:
		if !v.running {
			return nil
		}
		var cmd tea.Cmd
		v.spinner, cmd = v.spinner.Update(m)
		return cmd

	case tea.KeyMsg:
		if v.running {
			return nil
		}
		return v.handleKeyMsg(m)
	}
	return nil
}

func (v *playgroundView) handleKeyMsg(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "tab", "shift+tab":
		v.pickerFocus = !v.pickerFocus
		if v.pickerFocus {
			v.input.Blur()
			return nil
		}
		return v.input.Focus()
	case "ctrl+s":
		return v.run()
	case "ctrl+e":
		examples := v.agent().Examples
		if len(examples) == 0 {
			return nil
		}
		v.example = (v.example + 1) % len(examples)
		v.input.SetValue(examples[v.example])
		return nil
	}
	if v.pickerFocus {
		switch msg.String() {
		case "up", "k":
			if v.selected > 0 {
				v.selected--
				v.example = -1
			}
		case "down", "j":
			if v.selected < len(v.agents)-1 {
				v.selected++
				v.example = -1
			}
		case "enter":
			v.pickerFocus = false
			return v.input.Focus()
		}
		return nil
	}
	var cmd tea.Cmd
	v.input, cmd = v.input.Update(msg)
	delete(v.errors, "input_text")
	return cmd
}

func (v *playgroundView) run() tea.Cmd {
	form := forms.AgentRun{AgentType: v.agent().Type, InputText: v.input.Value()}
	if errs := forms.Validate(form); errs != nil {
		v.errors = errs
		return nil
	}
	v.errors = nil
	v.running = true
	app := v.app
	input := strings.TrimSpace(form.InputText)
	run := func() tea.Msg {
		resp, err := app.hiring.RunAgent(app.ctx, api.AgentRunRequest{AgentType: form.AgentType, InputText: input})
		return agentRunMsg{agent: form.AgentType, input: input, resp: resp, err: err}
	}
	return tea.Batch(run, v.spinner.Tick)
}

func (v *playgroundView) View(width, height int) string {
	th := v.app.theme
	sections := []string{
		th.title.Render("Agent Playground"),
		th.muted.Render("Try a single agent without starting a full workflow."),
		"",
		v.renderPicker(),
		"",
	}
	label := th.label.Render("Prompt for " + v.agent().Label)
	if !v.pickerFocus {
		label = th.focused.Render("Prompt for " + v.agent().Label)
	}
	v.input.SetWidth(max(20, width-2))
	sections = append(sections, label, v.input.View())
	if msg := v.errors.Get("input_text"); msg != "" {
		sections = append(sections, th.err.Render("  "+msg))
	}
	if v.running {
		sections = append(sections, "", th.muted.Render(v.spinner.View()+" "+v.agent().Label+" is thinking..."))
	}
	if len(v.history) > 0 {
		sections = append(sections, "", v.renderHistory(width))
	}
	sections = append(sections, th.hint.Render("Ctrl+S → run    Tab → switch agent/prompt    Ctrl+E → example"))
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (v *playgroundView) renderPicker() string {
	th := v.app.theme
	rows := []string{th.label.Render("Agents")}
	if v.pickerFocus {
		rows[0] = th.focused.Render("Agents")
	}
	for i, a := range v.agents {
		line := fmt.Sprintf("%s · %s", a.Label, a.Description)
		if i == v.selected {
			rows = append(rows, th.focused.Render("▸ "+line))
			continue
		}
		rows = append(rows, th.text.Render("  "+line))
	}
	return strings.Join(rows, "\n")
}

func (v *playgroundView) renderHistory(width int) string {
	th := v.app.theme
	body := lipgloss.NewStyle().Width(max(20, width-4))
	rows := []string{th.title.Render("History")}
	for i, entry := range v.history {
		if i >= 3 {
			rows = append(rows, th.muted.Render(fmt.Sprintf("… %d older", len(v.history)-3)))
			break
		}
		head := fmt.Sprintf("%s · %s ago", entry.agent.Label, humanizeDuration(time.Since(entry.at)))
		rows = append(rows, th.label.Render(head), th.muted.Render("› "+entry.input))
		if entry.err != "" {
			rows = append(rows, th.err.Render("⚠ "+entry.err), "")
			continue
		}
		rows = append(rows, body.Render(hiring.CleanMarkdown(entry.output)), "")
	}
	return strings.Join(rows, "\n")
}
