// Package tui is a terminal front-end for a form session. Every keystroke is
// pushed through the session so phone and PIN are reformatted as you type.
package tui

import (
	"context"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/spidr/estimate-form/pkg/models"
	"github.com/spidr/estimate-form/pkg/services"
)

const refreshInterval = 200 * time.Millisecond

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).MarginBottom(1)
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("250"))
	activeStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("51"))
	noticeStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
	helpStyle   = lipgloss.NewStyle().Faint(true).MarginTop(1)
	cardStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(1, 2)
)

type refreshMsg time.Time

// Model is the bubbletea model for the estimate form
type Model struct {
	session *services.Session
	inputs  []textinput.Model
	focus   int
	err     error
}

// New builds a form model over session
func New(session *services.Session) Model {
	m := Model{session: session}
	for _, spec := range models.FormFields {
		in := textinput.New()
		in.Placeholder = spec.Placeholder
		in.Prompt = ""
		if spec.ID == models.FieldSpidrPin {
			in.EchoMode = textinput.EchoPassword
			in.EchoCharacter = '•'
		}
		m.inputs = append(m.inputs, in)
	}
	m.inputs[0].Focus()
	return m
}

// Run starts the terminal form and blocks until it exits
func Run(ctx context.Context, session *services.Session) error {
	_, err := tea.NewProgram(New(session), tea.WithContext(ctx)).Run()
	return err
}

func refresh() tea.Cmd {
	return tea.Tick(refreshInterval, func(t time.Time) tea.Msg {
		return refreshMsg(t)
	})
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, refresh())
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case refreshMsg:
		return m, refresh()

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			return m, tea.Quit
		case "tab", "down":
			cmd = m.setFocus(m.focus + 1)
		case "shift+tab", "up":
			cmd = m.setFocus(m.focus - 1)
		case "ctrl+p":
			m.togglePIN()
		case "ctrl+s":
			cmd = m.submit()
		case "enter":
			if m.focus == len(m.inputs)-1 {
				cmd = m.submit()
			} else {
				cmd = m.setFocus(m.focus + 1)
			}
		default:
			cmd = m.updateFocused(msg)
		}
		return m, cmd
	}

	cmd = m.updateFocused(msg)
	return m, cmd
}

func (m *Model) updateFocused(msg tea.Msg) tea.Cmd {
	in := &m.inputs[m.focus]
	before := in.Value()

	var cmd tea.Cmd
	*in, cmd = in.Update(msg)
	if in.Value() == before {
		return cmd
	}

	field := models.FormFields[m.focus].ID
	if err := m.session.Change(field, in.Value()); err != nil {
		m.err = err
		return cmd
	}
	m.err = nil

	record := m.session.Snapshot().Record
	switch field {
	case models.FieldContact:
		in.SetValue(record.Contact)
		in.CursorEnd()
	case models.FieldSpidrPin:
		in.SetValue(record.SpidrPin)
		in.CursorEnd()
	}
	return cmd
}

func (m *Model) setFocus(i int) tea.Cmd {
	n := len(m.inputs)
	i = ((i % n) + n) % n

	m.inputs[m.focus].Blur()
	m.focus = i
	return m.inputs[m.focus].Focus()
}

func (m *Model) togglePIN() {
	pin := &m.inputs[len(m.inputs)-1]
	if m.session.TogglePIN() {
		pin.EchoMode = textinput.EchoNormal
	} else {
		pin.EchoMode = textinput.EchoPassword
	}
}

func (m *Model) submit() tea.Cmd {
	if _, err := m.session.Submit(context.Background()); err != nil {
		m.err = err
		return nil
	}
	m.err = nil
	for i := range m.inputs {
		m.inputs[i].SetValue("")
	}
	return m.setFocus(0)
}

func (m Model) View() string {
	view := m.session.Snapshot()

	var b strings.Builder
	if view.Submitted {
		b.WriteString(noticeStyle.Render(models.SuccessMessage))
		b.WriteString("\n\n")
	}
	b.WriteString(titleStyle.Render("Air Fryer Estimate Form"))
	b.WriteString("\n")

	for i, spec := range models.FormFields {
		label := labelStyle
		if i == m.focus {
			label = activeStyle
		}
		b.WriteString(label.Render(spec.Label))
		if spec.ID == models.FieldSpidrPin {
			b.WriteString(labelStyle.Render(" [" + view.PinToggle + ": ctrl+p]"))
		}
		b.WriteString("\n")
		b.WriteString(m.inputs[i].View())
		b.WriteString("\n\n")
	}

	if m.err != nil {
		b.WriteString(errorStyle.Render(m.err.Error()))
		b.WriteString("\n")
	}
	b.WriteString(helpStyle.Render("tab/shift+tab move • enter next/submit • ctrl+s submit • esc quit"))

	return cardStyle.Render(b.String())
}
