package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/kingrea/hiremind/internal/forms"
)

type fieldSpec struct {
	key         string
	label       string
	placeholder string
	// group lets one form hold independently submitted sections.
	group     string
	secret    bool
	charLimit int
}

type formField struct {
	fieldSpec
	input textinput.Model
}

// formModel is a column of text inputs with tab navigation and
// per-field error messages keyed like forms.FieldErrors.
type formModel struct {
	fields []formField
	focus  int
	errors forms.FieldErrors
}

func newTextInput(placeholder string, limit int) textinput.Model {
	ti := textinput.New()
	ti.Placeholder = placeholder
	ti.Prompt = "› "
	if limit > 0 {
		ti.CharLimit = limit
	}
	ti.Cursor.SetMode(cursor.CursorStatic)
	return ti
}

func newForm(specs ...fieldSpec) *formModel {
	f := &formModel{}
	for _, spec := range specs {
		limit := spec.charLimit
		if limit == 0 {
			limit = 200
		}
		ti := newTextInput(spec.placeholder, limit)
		if spec.secret {
			ti.EchoMode = textinput.EchoPassword
			ti.EchoCharacter = '•'
		}
		f.fields = append(f.fields, formField{fieldSpec: spec, input: ti})
	}
	return f
}

// Focus focuses the current field.
func (f *formModel) Focus() tea.Cmd {
	if len(f.fields) == 0 {
		return nil
	}
	return f.fields[f.focus].input.Focus()
}

func (f *formModel) move(delta int) tea.Cmd {
	if len(f.fields) == 0 {
		return nil
	}
	f.fields[f.focus].input.Blur()
	f.focus = (f.focus + delta + len(f.fields)) % len(f.fields)
	return f.fields[f.focus].input.Focus()
}

// FocusGroup jumps to the first field of group.
func (f *formModel) FocusGroup(group string) tea.Cmd {
	for i := range f.fields {
		if f.fields[i].group == group {
			return f.move(i - f.focus)
		}
	}
	return nil
}

// FocusedGroup is the group of the focused field.
func (f *formModel) FocusedGroup() string {
	if len(f.fields) == 0 {
		return ""
	}
	return f.fields[f.focus].group
}

func (f *formModel) lastInGroup() bool {
	group := f.fields[f.focus].group
	for i := f.focus + 1; i < len(f.fields); i++ {
		if f.fields[i].group == group {
			return false
		}
	}
	return true
}

// Update handles navigation and typing. submit is true when the user asked
// to send the focused field's group.
func (f *formModel) Update(msg tea.Msg) (submit bool, cmd tea.Cmd) {
	if len(f.fields) == 0 {
		return false, nil
	}
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.String() {
		case "tab", "down":
			return false, f.move(1)
		case "shift+tab", "up":
			return false, f.move(-1)
		case "ctrl+s":
			return true, nil
		case "enter":
			if f.lastInGroup() {
				return true, nil
			}
			return false, f.move(1)
		}
	}
	field := &f.fields[f.focus]
	field.input, cmd = field.input.Update(msg)
	if f.errors != nil {
		delete(f.errors, field.key)
	}
	return false, cmd
}

func (f *formModel) field(key string) *formField {
	for i := range f.fields {
		if f.fields[i].key == key {
			return &f.fields[i]
		}
	}
	return nil
}

// Value returns the raw text of a field.
func (f *formModel) Value(key string) string {
	if field := f.field(key); field != nil {
		return field.input.Value()
	}
	return ""
}

// SetValue replaces the text of a field.
func (f *formModel) SetValue(key, value string) {
	if field := f.field(key); field != nil {
		field.input.SetValue(value)
	}
}

// ResetGroup clears every field in group along with its errors.
func (f *formModel) ResetGroup(group string) {
	for i := range f.fields {
		if f.fields[i].group != group {
			continue
		}
		f.fields[i].input.Reset()
		if f.errors != nil {
			delete(f.errors, f.fields[i].key)
		}
	}
}

// SetErrors replaces the field errors; nil clears them.
func (f *formModel) SetErrors(errs forms.FieldErrors) {
	f.errors = errs
}

// View renders the fields of group.
func (f *formModel) View(th theme, group string, width int) string {
	var rows []string
	for i, field := range f.fields {
		if field.group != group {
			continue
		}
		label := th.label.Render(field.label)
		if i == f.focus && field.input.Focused() {
			label = th.focused.Render(field.label)
		}
		field.input.Width = max(10, width-4)
		rows = append(rows, label, field.input.View())
		if msg := f.errors.Get(field.key); msg != "" {
			rows = append(rows, th.err.Render("  "+msg))
		}
		rows = append(rows, "")
	}
	return strings.TrimRight(lipgloss.JoinVertical(lipgloss.Left, rows...), "\n")
}
