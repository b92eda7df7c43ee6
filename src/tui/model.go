// Package tui is a terminal chat over one session.
package tui

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"docqa/src/core/docqa"
)

// ChatService is the TUI-facing subset of docqa.Service.
type ChatService interface {
	Upload(ctx context.Context, id string, doc docqa.Upload) (docqa.View, error)
	Ask(ctx context.Context, id, question string) (*docqa.TurnResult, docqa.View, error)
	SelectSuggestion(ctx context.Context, id string, i int) (docqa.View, error)
	Reset(ctx context.Context, id string) (docqa.View, error)
}

// Fetcher loads a document named by the /upload command.
type Fetcher interface {
	Fetch(ctx context.Context, ref string) (docqa.Upload, error)
}

const help = "/upload <path> · /1../5 ask a suggestion · /reset · /quit"

type sessionMsg struct {
	view docqa.View
	err  error
}

type turnMsg struct {
	turn *docqa.TurnResult
	view docqa.View
	err  error
}

// Model is the Bubble Tea model for the chat.
type Model struct {
	ctx      context.Context
	service  ChatService
	fetcher  Fetcher
	session  docqa.View
	last     *docqa.TurnResult
	input    textinput.Model
	viewport viewport.Model
	status   string
	busy     bool
	ready    bool
}

// New creates a chat model over an existing session.
func New(ctx context.Context, service ChatService, fetcher Fetcher, session docqa.View) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Ask a question, or /upload <path>"
	ti.Focus()
	ti.CharLimit = 0
	return Model{
		ctx:      ctx,
		service:  service,
		fetcher:  fetcher,
		session:  session,
		input:    ti,
		viewport: viewport.New(0, 0),
		status:   session.Status,
	}
}

func (m Model) Init() tea.Cmd { return textinput.Blink }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, bh := boxStyle.GetFrameSize()
		reserved := 2 + len(m.session.Suggestions) + 1 + bh*2 + 1
		m.viewport.Width = max(20, msg.Width)
		m.viewport.Height = max(3, msg.Height-reserved)
		m.refresh()
		return m, nil
	case sessionMsg:
		m.busy = false
		m.apply(msg.view, msg.err)
		return m, nil
	case turnMsg:
		m.busy = false
		if msg.err == nil {
			m.last = msg.turn
		}
		m.apply(msg.view, msg.err)
		if msg.err == nil {
			m.status = fmt.Sprintf("%s (%s, %d sources)", m.session.Status, msg.turn.Verdict, len(msg.turn.Sources))
		}
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD {
			return m, tea.Quit
		}
		if msg.Type == tea.KeyEnter {
			if m.busy {
				return m, nil
			}
			line := strings.TrimSpace(m.input.Value())
			if line == "" {
				return m, nil
			}
			m.input.Reset()
			return m.run(line)
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// run dispatches one input line.
func (m Model) run(line string) (tea.Model, tea.Cmd) {
	id := m.session.ID
	switch {
	case line == "/quit":
		return m, tea.Quit
	case line == "/reset":
		m.busy, m.status = true, "Resetting..."
		return m, func() tea.Msg {
			view, err := m.service.Reset(m.ctx, id)
			return sessionMsg{view: view, err: err}
		}
	case strings.HasPrefix(line, "/upload"):
		ref := strings.TrimSpace(strings.TrimPrefix(line, "/upload"))
		if ref == "" {
			m.status = "Usage: /upload <path>"
			return m, nil
		}
		m.busy, m.status = true, fmt.Sprintf("Indexing %s...", ref)
		return m, func() tea.Msg {
			doc, err := m.fetcher.Fetch(m.ctx, ref)
			if err != nil {
				return sessionMsg{view: m.session, err: err}
			}
			view, err := m.service.Upload(m.ctx, id, doc)
			return sessionMsg{view: view, err: err}
		}
	case strings.HasPrefix(line, "/"):
		n, err := strconv.Atoi(line[1:])
		if err != nil {
			m.status = help
			return m, nil
		}
		m.busy, m.status = true, "Thinking..."
		return m, func() tea.Msg {
			if view, err := m.service.SelectSuggestion(m.ctx, id, n-1); err != nil {
				return turnMsg{view: view, err: err}
			}
			turn, view, err := m.service.Ask(m.ctx, id, "")
			return turnMsg{turn: turn, view: view, err: err}
		}
	default:
		m.busy, m.status = true, "Thinking..."
		return m, func() tea.Msg {
			turn, view, err := m.service.Ask(m.ctx, id, line)
			return turnMsg{turn: turn, view: view, err: err}
		}
	}
}

func (m *Model) apply(view docqa.View, err error) {
	if view.ID != "" {
		m.session = view
	}
	m.status = m.session.Status
	if err != nil {
		m.status = "Error: " + docqa.UserMessage(err)
	}
	m.refresh()
}

func (m *Model) refresh() {
	m.viewport.SetContent(m.renderHistory())
	m.viewport.GotoBottom()
}

func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	title := "PDF Chat"
	if m.session.DocumentName != "" {
		title += " · " + m.session.DocumentName
	}
	header := titleStyle.Render(title)
	hint := dimStyle.Render(help)
	conversation := boxStyle.Render(m.viewport.View())
	input := boxStyle.Render(m.input.View())
	status := statusStyle.Render(m.status)
	return header + "\n" + hint + "\n" + conversation + "\n" + m.renderSuggestions() + input + "\n" + status
}

// renderHistory lists turns oldest first. Session history is newest first.
func (m Model) renderHistory() string {
	if len(m.session.History) == 0 {
		return dimStyle.Render("No messages yet.")
	}
	var b strings.Builder
	for i := len(m.session.History) - 1; i >= 0; i-- {
		t := m.session.History[i]
		switch t.Role {
		case docqa.RoleUser:
			b.WriteString(userStyle.Render("You: "))
		default:
			b.WriteString(assistantStyle.Render("Assistant: "))
		}
		b.WriteString(t.Text)
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func (m Model) renderSuggestions() string {
	var b strings.Builder
	for i, s := range m.session.Suggestions {
		fmt.Fprintf(&b, "%s %s\n", suggestionStyle.Render(fmt.Sprintf("/%d", i+1)), s)
	}
	return b.String()
}

var (
	boxStyle        = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	titleStyle      = lipgloss.NewStyle().Bold(true)
	dimStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	statusStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	userStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	assistantStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
	suggestionStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("13"))
)
