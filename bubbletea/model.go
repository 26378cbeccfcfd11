package bubbletea

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/fwojciec/drip"
	"github.com/mattn/go-runewidth"
)

var _ tea.Model = Model{}

const defaultTitle = "New chat"

// Config wires a Model to the rest of the application.
type Config struct {
	Submit  SubmitFunc
	Threads Threads
	// Updates carries SnapshotMsg and AlertMsg values, usually from
	// Observer.Messages.
	Updates <-chan tea.Msg
	// Changes fires when the thread catalog changes, usually a
	// notify.Hub subscription.
	Changes <-chan struct{}
	Theme   drip.Theme
}

// Model is the Bubble Tea model for the drip TUI. It shows one thread.
type Model struct {
	// Input is the text input component. Exported for test access.
	Input textinput.Model
	// Viewport is the scrollable output area. Exported for test access.
	Viewport viewport.Model

	submit  SubmitFunc
	threads Threads
	updates <-chan tea.Msg
	changes <-chan struct{}
	theme   drip.Theme
	styles  Styles

	threadID string
	title    string
	count    int
	messages []drip.Message

	blocks    []MessageBlock
	assistant *AssistantBlock // block of the current turn, nil before its first text
	state     drip.SessionState

	running bool
	cancel  context.CancelFunc
	err     error
	ready   bool
}

// New creates a TUI Model showing thread.
func New(cfg Config, thread drip.Thread) Model {
	ti := textinput.New()
	ti.Placeholder = "Type a message..."
	ti.Prompt = ""
	ti.Focus()
	ti.CharLimit = 0

	return Model{
		Input:    ti,
		submit:   cfg.Submit,
		threads:  cfg.Threads,
		updates:  cfg.Updates,
		changes:  cfg.Changes,
		theme:    cfg.Theme,
		styles:   NewStyles(cfg.Theme),
		threadID: thread.ID,
		title:    thread.Title,
		messages: thread.Messages,
	}
}

// Running returns whether a turn is in progress.
func (m Model) Running() bool { return m.running }

// Err returns the last error, if any.
func (m Model) Err() error { return m.err }

// ThreadID returns the displayed thread.
func (m Model) ThreadID() string { return m.threadID }

// Title returns the displayed thread's title.
func (m Model) Title() string { return m.title }

// Messages returns the displayed thread's messages as last published.
func (m Model) Messages() []drip.Message { return m.messages }

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.listen(), m.watch(), m.loadThreads())
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		return m.handleWindowSize(msg), nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case SnapshotMsg:
		m = m.applySnapshot(msg.Snapshot)
		return m, m.listen()

	case AlertMsg:
		if msg.Alert.ThreadID == m.threadID {
			m.blocks = append(m.blocks, NewErrorBlock(msg.Alert.Message, m.styles))
			m.refresh()
		}
		return m, m.listen()

	case TurnDoneMsg:
		if m.cancel != nil {
			m.cancel()
		}
		m.running = false
		m.cancel = nil
		if msg.Err != nil && !errors.Is(msg.Err, context.Canceled) {
			m.err = msg.Err
		}
		return m, m.Input.Focus()

	case ThreadsChangedMsg:
		return m, tea.Batch(m.loadThreads(), m.watch())

	case ThreadsLoadedMsg:
		if msg.Err != nil {
			m.err = msg.Err
			return m, nil
		}
		m.count = len(msg.Registry)
		if e, ok := msg.Registry.Lookup(m.threadID); ok {
			m.title = e.Title
		}
		return m, nil

	case ThreadCreatedMsg:
		if msg.Err != nil {
			m.err = msg.Err
			return m, nil
		}
		m = m.switchThread(msg.Thread)
		return m, m.loadThreads()
	}

	var cmds []tea.Cmd
	var cmd tea.Cmd
	m.Viewport, cmd = m.Viewport.Update(msg)
	cmds = append(cmds, cmd)
	if !m.running {
		m.Input, cmd = m.Input.Update(msg)
		cmds = append(cmds, cmd)
	}
	return m, tea.Batch(cmds...)
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Initializing..."
	}
	var b strings.Builder
	b.WriteString(m.Viewport.View())
	b.WriteString("\n")
	b.WriteString(m.statusLine())
	b.WriteString("\n")
	b.WriteString(m.Input.View())
	return b.String()
}

func (m Model) handleWindowSize(msg tea.WindowSizeMsg) Model {
	inputH := 1
	statusHeight := 1
	borderHeight := 2 // newlines between sections
	vpHeight := max(msg.Height-inputH-statusHeight-borderHeight, 1)

	if !m.ready {
		m.Viewport = viewport.New(msg.Width, vpHeight)
		m.ready = true
		m = m.renderThread()
	} else {
		m.Viewport.Width = msg.Width
		m.Viewport.Height = vpHeight
	}
	m.refresh()
	m.Input.Width = msg.Width
	return m
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC:
		if m.running {
			if m.cancel != nil {
				m.cancel()
			}
			return m, nil
		}
		return m, tea.Quit

	case tea.KeyEnter:
		if m.running {
			return m, nil
		}
		text := strings.TrimSpace(m.Input.Value())
		if text == "" {
			return m, nil
		}
		return m.submitInput(text)

	case tea.KeyCtrlN:
		if m.running || m.threads == nil {
			return m, nil
		}
		return m, createThread(m.threads)
	}

	if m.running {
		return m, nil
	}
	// Only forward non-character keys to the viewport so 'j'/'k' still type.
	var cmds []tea.Cmd
	var cmd tea.Cmd
	if msg.Type != tea.KeyRunes {
		m.Viewport, cmd = m.Viewport.Update(msg)
		cmds = append(cmds, cmd)
	}
	m.Input, cmd = m.Input.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

func (m Model) submitInput(text string) (tea.Model, tea.Cmd) {
	m.Input.SetValue("")
	m.Input.Blur()
	m.err = nil

	m.blocks = append(m.blocks, NewUserMessageBlock(text, m.styles))
	m.assistant = nil
	m.refresh()

	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	m.running = true
	m.state = drip.SessionRequesting

	return m, startTurn(ctx, m.submit, m.threadID, m.messages, text)
}

// applySnapshot re-renders the current turn from a snapshot of the
// displayed thread. Snapshots of other threads are ignored.
func (m Model) applySnapshot(s drip.Snapshot) Model {
	if s.ThreadID != m.threadID {
		return m
	}
	m.messages = s.Messages
	m.state = s.State
	annotation := s.Annotation
	if s.Final {
		annotation = ""
	}
	if m.assistant == nil {
		if s.Text == "" && annotation == "" {
			return m
		}
		m.assistant = NewAssistantBlock(m.theme, m.styles)
		m.blocks = append(m.blocks, m.assistant)
	}
	m.assistant.Set(s.Text, annotation)
	m.refresh()
	return m
}

func (m Model) switchThread(t drip.Thread) Model {
	m.threadID = t.ID
	m.title = t.Title
	m.messages = t.Messages
	m.blocks = nil
	m.assistant = nil
	m.state = drip.SessionIdle
	m.err = nil
	m = m.renderThread()
	m.refresh()
	return m
}

// renderThread creates blocks from the thread's stored messages.
func (m Model) renderThread() Model {
	for _, msg := range m.messages {
		switch msg.Role {
		case drip.RoleUser:
			m.blocks = append(m.blocks, NewUserMessageBlock(msg.Content, m.styles))
		case drip.RoleAssistant:
			b := NewAssistantBlock(m.theme, m.styles)
			b.Set(msg.Content, "")
			m.blocks = append(m.blocks, b)
		}
	}
	return m
}

func (m *Model) refresh() {
	if !m.ready {
		return
	}
	m.Viewport.SetContent(m.renderContent())
	m.Viewport.GotoBottom()
}

func (m Model) renderContent() string {
	views := make([]string, 0, len(m.blocks))
	for _, block := range m.blocks {
		views = append(views, block.View(m.Viewport.Width))
	}
	return strings.Join(views, "\n\n")
}

func (m Model) statusLine() string {
	var right string
	switch {
	case m.err != nil:
		right = m.styles.Error.Render(fmt.Sprintf("Error: %v", m.err))
	case m.running && m.state == drip.SessionStreaming:
		right = m.styles.Muted.Render("Streaming... Ctrl+C to cancel")
	case m.running:
		right = m.styles.Muted.Render("Waiting... Ctrl+C to cancel")
	default:
		right = m.styles.Muted.Render("Enter to send, Ctrl+N new chat, Ctrl+C to quit")
	}

	title := m.title
	if title == "" {
		title = defaultTitle
	}
	count := fmt.Sprintf(" (%d)", max(m.count, 1))
	room := m.Viewport.Width - lipgloss.Width(right) - runewidth.StringWidth(count) - 1
	if room < 1 {
		return right
	}
	left := m.styles.Accent.Render(runewidth.Truncate(title, room, "…")) + m.styles.Muted.Render(count)
	gap := max(m.Viewport.Width-lipgloss.Width(left)-lipgloss.Width(right), 1)
	return left + strings.Repeat(" ", gap) + right
}

func (m Model) listen() tea.Cmd {
	if m.updates == nil {
		return nil
	}
	ch := m.updates
	return func() tea.Msg {
		msg, ok := <-ch
		if !ok {
			return nil
		}
		return msg
	}
}

func (m Model) watch() tea.Cmd {
	if m.changes == nil {
		return nil
	}
	ch := m.changes
	return func() tea.Msg {
		if _, ok := <-ch; !ok {
			return nil
		}
		return ThreadsChangedMsg{}
	}
}

func (m Model) loadThreads() tea.Cmd {
	if m.threads == nil {
		return nil
	}
	threads := m.threads
	return func() tea.Msg {
		reg, err := threads.List(context.Background())
		return ThreadsLoadedMsg{Registry: reg, Err: err}
	}
}

func createThread(threads Threads) tea.Cmd {
	return func() tea.Msg {
		t, err := threads.Create(context.Background())
		return ThreadCreatedMsg{Thread: t, Err: err}
	}
}

// startTurn runs the submission and reports when it ends. Snapshots flow
// separately through the observer.
func startTurn(ctx context.Context, submit SubmitFunc, threadID string, history []drip.Message, text string) tea.Cmd {
	return func() tea.Msg {
		if submit == nil {
			return TurnDoneMsg{}
		}
		return TurnDoneMsg{Err: submit(ctx, threadID, history, text)}
	}
}
