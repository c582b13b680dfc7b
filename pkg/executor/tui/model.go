package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/entrhq/moodjournal/pkg/executor"
	"github.com/entrhq/moodjournal/pkg/types"
)

// entryMsg carries a transport entry into the program.
type entryMsg struct {
	entry  executor.Entry
	copied bool // document path placed on the clipboard
}

// inputErrMsg reports a line the console could not turn into an event.
type inputErrMsg struct{ err error }

// line is one block of the transcript.
type line struct {
	id      types.MessageID // zero for user input and notices
	text    string
	removed bool
}

// model is the Bubble Tea state: the transcript viewport above a one-line
// input box.
type model struct {
	viewport viewport.Model
	textarea textarea.Model

	// submitted lines go to the worker
	submit func(string) bool

	transcript []line
	status     string

	width  int
	height int
	ready  bool
}

func newModel(submit func(string) bool) *model {
	ta := textarea.New()
	ta.Placeholder = "Type a message, a /command or #N for a button..."
	ta.Prompt = ""
	ta.ShowLineNumbers = false
	ta.SetHeight(1)
	ta.CharLimit = types.MaxTextLength
	ta.KeyMap.InsertNewline.SetEnabled(false)
	ta.Focus()

	return &model{
		textarea: ta,
		submit:   submit,
		status:   "ctrl+c to quit",
	}
}

func (m *model) Init() tea.Cmd {
	return textarea.Blink
}

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.layout()

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyEnter:
			value := strings.TrimSpace(m.textarea.Value())
			m.textarea.Reset()
			if value == "exit" || value == "quit" {
				return m, tea.Quit
			}
			if value != "" {
				m.append(line{text: userStyle.Render("> " + value)})
				if !m.submit(value) {
					m.status = "still working on the previous message"
				}
			}
			return m, nil
		}

	case entryMsg:
		m.apply(msg)

	case inputErrMsg:
		m.append(line{text: errorStyle.Render("❌ " + msg.err.Error())})
	}

	var cmd tea.Cmd
	m.textarea, cmd = m.textarea.Update(msg)
	cmds = append(cmds, cmd)
	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

func (m *model) apply(msg entryMsg) {
	e := msg.entry
	switch e.Kind {
	case executor.EntryMessage:
		m.append(line{id: e.ID, text: renderMessage(e.Text, e.Keyboard)})
	case executor.EntryEdit:
		for i := range m.transcript {
			if m.transcript[i].id == e.ID {
				m.transcript[i].text = renderMessage(e.Text, e.Keyboard)
			}
		}
		m.refresh()
	case executor.EntryDelete:
		for i := range m.transcript {
			if m.transcript[i].id == e.ID {
				m.transcript[i].removed = true
			}
		}
		m.refresh()
	case executor.EntryPhoto:
		m.append(line{text: fileStyle.Render(fmt.Sprintf("🖼  %s: %s", executor.Plain(e.Text), e.Path))})
	case executor.EntryDocument:
		text := "📎 " + e.Path
		if msg.copied {
			text += " (path copied to clipboard)"
		}
		m.append(line{text: fileStyle.Render(text)})
	}
}

// renderMessage styles the HTML subset and lists the keyboard below it.
func renderMessage(text string, kb types.Keyboard) string {
	var b strings.Builder
	for _, s := range executor.Spans(text) {
		style := botStyle
		if s.Bold {
			style = style.Bold(true)
		}
		if s.Italic {
			style = style.Italic(true)
		}
		b.WriteString(style.Render(s.Text))
	}
	for _, row := range executor.KeyboardLines(kb) {
		b.WriteString("\n  " + buttonStyle.Render(row))
	}
	return b.String()
}

func (m *model) append(l line) {
	m.transcript = append(m.transcript, l)
	m.refresh()
}

func (m *model) refresh() {
	if !m.ready {
		return
	}
	blocks := make([]string, 0, len(m.transcript))
	width := max(m.viewport.Width, 1)
	for _, l := range m.transcript {
		text := l.text
		if l.removed {
			text = removedStyle.Render("(message removed)")
		}
		blocks = append(blocks, lipgloss.NewStyle().Width(width).Render(text))
	}
	m.viewport.SetContent(strings.Join(blocks, "\n"))
	m.viewport.GotoBottom()
}

func (m *model) layout() {
	inputHeight := m.textarea.Height() + 2 // border
	headerHeight := 2
	statusHeight := 1
	vpHeight := max(m.height-inputHeight-headerHeight-statusHeight, 1)
	if !m.ready {
		m.viewport = viewport.New(m.width-4, vpHeight)
		m.ready = true
	} else {
		m.viewport.Width = m.width - 4
		m.viewport.Height = vpHeight
	}
	m.textarea.SetWidth(m.width - 8)
	m.refresh()
}

func (m *model) View() string {
	if !m.ready {
		return "Initializing..."
	}
	header := headerStyle.Render("Mood journal") + "  " + tipsStyle.Render("#N presses button N")
	return lipgloss.JoinVertical(lipgloss.Left,
		header,
		"",
		m.viewport.View(),
		inputBoxStyle.Width(m.width-4).Render(m.textarea.View()),
		statusBarStyle.Render(m.status),
	)
}
