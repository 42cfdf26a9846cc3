// Package ui is the interactive console: a prompt that issues flight-system
// commands and a scrolling log of the events they produce.
package ui

import (
	"context"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/muesli/termenv"
	"go.uber.org/zap"

	"github.com/unkn0wn-root/flightdesk/internal/api"
	"github.com/unkn0wn-root/flightdesk/internal/command"
	"github.com/unkn0wn-root/flightdesk/internal/settings"
	"github.com/unkn0wn-root/flightdesk/internal/theme"
)

var _ tea.Model = (*Model)(nil)

const (
	maxLogLines        = 2000
	payloadMaxLines    = 24
	promptHistoryLimit = 100
	chromeHeight       = 5
)

var builtins = []string{"help", "clear", "set", "copy", "quit"}

type Config struct {
	Client   *api.Client
	Settings settings.Applier
	Logger   *zap.Logger
	Theme    *theme.Theme
	// Profile picks the highlight palette; termenv.Ascii disables colour.
	Profile   termenv.Profile
	Context   context.Context
	Now       func() time.Time
	Clipboard func(string) error
}

type Model struct {
	client  *api.Client
	applier settings.Applier
	log     *zap.Logger
	theme   theme.Theme
	profile termenv.Profile
	ctx     context.Context
	now     func() time.Time
	copy    func(string) error

	input  textinput.Model
	events viewport.Model

	lines       []string
	history     []string
	histIdx     int
	lastPayload string
	pending     int
	status      statusMsg

	width  int
	height int
	ready  bool
}

func New(cfg Config) Model {
	th := theme.DefaultTheme()
	if cfg.Theme != nil {
		th = *cfg.Theme
	}
	m := Model{
		client:  cfg.Client,
		applier: cfg.Settings,
		log:     cfg.Logger,
		theme:   th,
		profile: cfg.Profile,
		ctx:     cfg.Context,
		now:     cfg.Now,
		copy:    cfg.Clipboard,
	}
	if m.log == nil {
		m.log = zap.NewNop()
	}
	if m.ctx == nil {
		m.ctx = context.Background()
	}
	if m.now == nil {
		m.now = time.Now
	}
	if m.copy == nil {
		m.copy = clipboard.WriteAll
	}

	in := textinput.New()
	in.Prompt = "› "
	in.Placeholder = "type a command, e.g. login alice secret or help"
	in.PromptStyle = th.Prompt
	in.TextStyle = th.PromptText
	in.CompletionStyle = th.Suggestion
	in.ShowSuggestions = true
	in.SetSuggestions(append(command.Names(), builtins...))
	in.CharLimit = 512
	in.Focus()
	m.input = in

	m.events = viewport.New(80, 20)
	m.status = statusMsg{text: "Ready", level: statusInfo}
	return m
}

func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch typed := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = typed.Width
		m.height = typed.Height
		m.ready = true
		m.applyLayout()
		return m, nil
	case eventMsg:
		m.pending = maxInt(m.pending-1, 0)
		m.appendEvent(typed)
		return m, nil
	case statusMsg:
		m.status = typed
		return m, nil
	case tea.KeyMsg:
		switch typed.String() {
		case "ctrl+c", "ctrl+d":
			return m, tea.Quit
		case "ctrl+y":
			m.status = m.copyLastPayload()
			return m, nil
		case "ctrl+l":
			m.clearLog()
			return m, nil
		case "enter":
			line := m.input.Value()
			m.input.SetValue("")
			return m.submit(line)
		case "up":
			m.recall(-1)
			return m, nil
		case "down":
			m.recall(1)
			return m, nil
		case "pgup", "pgdown", "ctrl+u", "ctrl+f":
			var cmd tea.Cmd
			m.events, cmd = m.events.Update(msg)
			return m, cmd
		}
	case tea.MouseMsg:
		var cmd tea.Cmd
		m.events, cmd = m.events.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	if cmd != nil {
		cmds = append(cmds, cmd)
	}
	return m, tea.Batch(cmds...)
}

func (m *Model) applyLayout() {
	inner := maxInt(m.width-2, 10)
	m.events.Width = inner
	m.events.Height = maxInt(m.height-chromeHeight, 3)
	m.input.Width = maxInt(inner-4, 10)
	m.refreshLog()
}

func (m *Model) recall(step int) {
	if len(m.history) == 0 {
		return
	}
	m.histIdx += step
	if m.histIdx < 0 {
		m.histIdx = 0
	}
	if m.histIdx >= len(m.history) {
		m.histIdx = len(m.history)
		m.input.SetValue("")
		return
	}
	m.input.SetValue(m.history[m.histIdx])
	m.input.CursorEnd()
}

func (m *Model) remember(line string) {
	if n := len(m.history); n == 0 || m.history[n-1] != line {
		m.history = append(m.history, line)
	}
	if len(m.history) > promptHistoryLimit {
		m.history = m.history[len(m.history)-promptHistoryLimit:]
	}
	m.histIdx = len(m.history)
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
