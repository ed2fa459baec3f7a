package ui

import (
	"context"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/go-go-golems/chatwidget/pkg/analytics"
	"github.com/go-go-golems/chatwidget/pkg/api"
	"github.com/go-go-golems/chatwidget/pkg/events"
	"github.com/go-go-golems/chatwidget/pkg/render"
	"github.com/go-go-golems/chatwidget/pkg/session"
)

const (
	sidebarWidth    = 36
	minSidebarTotal = 90
	placeholder     = "Ask me anything... (Enter to send, /help for commands)"
)

type role int

const (
	roleUser role = iota
	roleBot
	roleError
	roleNotice
)

type chatLine struct {
	role       role
	text       string
	category   string
	confidence *float64
}

type (
	eventMsg    events.Event
	sendDoneMsg struct{ err error }
	noticeMsg   struct {
		text string
		err  error
	}
	themeMsg struct {
		theme session.Theme
		err   error
	}
	clearDoneMsg struct {
		cleared bool
		err     error
	}
)

type Options struct {
	// Profile selects the glamour style; Ascii forces notty rendering.
	Profile termenv.Profile
	// Clipboard defaults to the system clipboard.
	Clipboard func(string) error
}

// Model is the bubbletea chat screen. Events published by the manager arrive
// on the channel passed to New.
type Model struct {
	ctx    context.Context
	mgr    *session.Manager
	events <-chan events.Event
	opts   Options

	textinput textinput.Model
	viewport  viewport.Model
	spinner   spinner.Model

	md     *render.Markdown
	styles render.Styles
	theme  session.Theme

	lines        []chatLine
	quickActions []api.QuickAction
	quickOffline bool
	suggestions  []string
	suggestLabel string
	suggestOff   bool
	metrics      *analytics.Metrics
	statsOffline bool

	typing       bool
	confirmClear bool
	status       string

	width, height int
	ready         bool
}

func New(ctx context.Context, mgr *session.Manager, evs <-chan events.Event, opts Options) (Model, error) {
	if opts.Clipboard == nil {
		opts.Clipboard = clipboard.WriteAll
	}
	ti := textinput.New()
	ti.Placeholder = placeholder
	ti.Prompt = "› "
	ti.CharLimit = 1000
	ti.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("63")).Bold(true)

	m := Model{
		ctx:          ctx,
		mgr:          mgr,
		events:       evs,
		opts:         opts,
		textinput:    ti,
		spinner:      sp,
		theme:        mgr.State().Theme(),
		quickActions: mgr.QuickActions(),
		suggestions:  mgr.Suggestions(),
		metrics:      mgr.Metrics(),
	}
	if err := m.applyTheme(m.theme, render.DefaultWidth); err != nil {
		return Model{}, err
	}
	return m, nil
}

func waitForEvent(ch <-chan events.Event) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-ch
		if !ok {
			return nil
		}
		return eventMsg(ev)
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spinner.Tick, waitForEvent(m.events))
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.confirmClear {
			return m.updateConfirm(msg)
		}
		switch msg.Type {
		case tea.KeyCtrlC:
			return m, tea.Quit
		case tea.KeyEnter:
			return m.submit()
		}

	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil

	case eventMsg:
		m.applyEvent(events.Event(msg))
		return m, waitForEvent(m.events)

	case sendDoneMsg:
		if msg.err != nil && !errors.Is(msg.err, session.ErrEmptyMessage) {
			log.Debug().Err(msg.err).Msg("send failed")
		}
		return m, nil

	case noticeMsg:
		if msg.err != nil {
			m.addLine(chatLine{role: roleError, text: msg.err.Error()})
		} else if msg.text != "" {
			m.addLine(chatLine{role: roleNotice, text: msg.text})
		}
		return m, nil

	case themeMsg:
		if msg.err != nil {
			m.addLine(chatLine{role: roleError, text: msg.err.Error()})
			return m, nil
		}
		if err := m.applyTheme(msg.theme, m.md.Width()); err != nil {
			m.addLine(chatLine{role: roleError, text: err.Error()})
		}
		m.refreshViewport()
		return m, nil

	case clearDoneMsg:
		if msg.err != nil {
			m.addLine(chatLine{role: roleError, text: msg.err.Error()})
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.textinput, cmd = m.textinput.Update(msg)
	cmds = append(cmds, cmd)
	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

func (m Model) updateConfirm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch strings.ToLower(msg.String()) {
	case "y":
		m.confirmClear = false
		mgr, ctx := m.mgr, m.ctx
		return m, func() tea.Msg {
			cleared, err := mgr.ClearHistory(ctx, session.ConfirmFunc(func(context.Context, string) (bool, error) {
				return true, nil
			}))
			return clearDoneMsg{cleared: cleared, err: err}
		}
	case "n", "esc", "ctrl+c":
		m.confirmClear = false
		m.status = "Clear cancelled"
	}
	return m, nil
}

func (m Model) submit() (tea.Model, tea.Cmd) {
	line := strings.TrimSpace(m.textinput.Value())
	m.textinput.Reset()
	if line == "" {
		return m, nil
	}
	if c, ok := ParseCommand(line); ok {
		return m.runCommand(c)
	}
	return m, m.sendCmd(line)
}

func (m Model) sendCmd(text string) tea.Cmd {
	mgr, ctx := m.mgr, m.ctx
	return func() tea.Msg {
		_, err := mgr.Send(ctx, text)
		return sendDoneMsg{err: err}
	}
}

func (m Model) runCommand(c Command) (tea.Model, tea.Cmd) {
	mgr, ctx := m.mgr, m.ctx
	switch c.Name {
	case "quit", "exit", "q":
		return m, tea.Quit

	case "help":
		m.addLine(chatLine{role: roleNotice, text: HelpText})

	case "quick":
		i, err := c.Pick(len(m.quickActions))
		if err != nil {
			m.addLine(chatLine{role: roleError, text: err.Error()})
			return m, nil
		}
		return m, m.sendCmd(m.quickActions[i].Text)

	case "suggest":
		i, err := c.Pick(len(m.suggestions))
		if err != nil {
			m.addLine(chatLine{role: roleError, text: err.Error()})
			return m, nil
		}
		return m, m.sendCmd(m.suggestions[i])

	case "history":
		m.addLine(chatLine{role: roleNotice, text: strings.Join(HistoryLines(mgr.RecentHistory(session.DefaultRecentCount)), "\n")})

	case "export":
		path := ExportPath(c.Arg, mgr.State().SessionID())
		return m, func() tea.Msg {
			if err := session.SaveExport(path, mgr.Export(), session.FormatFromPath(path)); err != nil {
				return noticeMsg{err: err}
			}
			mgr.Notify(ctx, "💾 Chat exported successfully!")
			return noticeMsg{text: "Exported to " + path}
		}

	case "clear":
		if mgr.State().Len() == 0 {
			m.addLine(chatLine{role: roleNotice, text: "No conversation history yet."})
			return m, nil
		}
		m.confirmClear = true

	case "theme":
		return m, func() tea.Msg {
			t, err := mgr.ToggleTheme(ctx)
			return themeMsg{theme: t, err: err}
		}

	case "stats":
		return m, func() tea.Msg {
			mgr.RefreshStatistics(ctx, true)
			return nil
		}

	case "copy":
		last := m.lastReply()
		if last == "" {
			m.addLine(chatLine{role: roleError, text: "no reply to copy yet"})
			return m, nil
		}
		write := m.opts.Clipboard
		return m, func() tea.Msg {
			if err := write(last); err != nil {
				return noticeMsg{err: errors.Wrap(err, "copy to clipboard")}
			}
			return noticeMsg{text: "📋 Copied last reply to clipboard"}
		}

	default:
		m.addLine(chatLine{role: roleError, text: "unknown command /" + c.Name + ", try /help"})
	}
	return m, nil
}

func (m *Model) applyEvent(ev events.Event) {
	switch ev.Kind {
	case events.KindUserMessage:
		m.addLine(chatLine{role: roleUser, text: ev.Text})
	case events.KindBotMessage:
		m.addLine(chatLine{role: roleBot, text: ev.Text, category: ev.Category, confidence: ev.Confidence})
	case events.KindError:
		m.addLine(chatLine{role: roleError, text: ev.Text})
	case events.KindTyping:
		m.typing = ev.Typing
	case events.KindQuickActions:
		m.quickActions = ev.QuickActions
		m.quickOffline = ev.Fallback
	case events.KindSuggestions:
		m.suggestions = ev.Suggestions
		m.suggestLabel = ev.Category
		m.suggestOff = ev.Fallback
	case events.KindStatistics:
		m.metrics = ev.Metrics
		m.statsOffline = ev.Fallback
	case events.KindNotification:
		m.status = ev.Text
	case events.KindHistoryCleared:
		m.addLine(chatLine{role: roleNotice, text: "History cleared. The conversation above is no longer saved."})
	}
}

func (m *Model) applyTheme(t session.Theme, width int) error {
	md, err := render.NewMarkdown(render.StyleFor(string(t), m.opts.Profile), width)
	if err != nil {
		return err
	}
	m.md = md
	m.theme = t
	m.styles = render.NewStyles(string(t))
	return nil
}

func (m *Model) resize(width, height int) {
	m.width, m.height = width, height

	chatWidth := width
	if width >= minSidebarTotal {
		chatWidth = width - sidebarWidth - 3
	}
	vpHeight := height - 6
	if vpHeight < 3 {
		vpHeight = 3
	}
	if !m.ready {
		m.viewport = viewport.New(chatWidth, vpHeight)
		m.ready = true
	} else {
		m.viewport.Width = chatWidth
		m.viewport.Height = vpHeight
	}
	m.textinput.Width = width - 4

	wrap := chatWidth - 4
	if wrap < 20 {
		wrap = 20
	}
	if wrap != m.md.Width() {
		if md, err := render.NewMarkdown(m.md.Style(), wrap); err == nil {
			m.md = md
		}
	}
	m.refreshViewport()
}

func (m *Model) addLine(l chatLine) {
	m.lines = append(m.lines, l)
	m.refreshViewport()
}

func (m *Model) refreshViewport() {
	if !m.ready {
		return
	}
	m.viewport.SetContent(m.renderLines())
	m.viewport.GotoBottom()
}

func (m Model) lastReply() string {
	for i := len(m.lines) - 1; i >= 0; i-- {
		if m.lines[i].role == roleBot {
			return m.lines[i].text
		}
	}
	return ""
}
