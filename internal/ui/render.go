package ui

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/alecthomas/chroma/quick"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/muesli/termenv"

	"github.com/unkn0wn-root/flightdesk/internal/api"
)

func (m Model) View() string {
	if !m.ready {
		return "loading…"
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		m.renderHeader(),
		m.theme.LogBorder.Render(m.events.View()),
		m.input.View(),
		m.renderStatusBar(),
	)
}

func (m Model) renderHeader() string {
	segments := []string{m.theme.HeaderBrand.Render("flightdesk")}
	if m.client != nil {
		sess := m.client.Session()
		user := "signed out"
		if sess.Authenticated() {
			user = "user " + sess.UserID()
			if sess.UserID() == "" {
				user = "signed in"
			}
		}
		segments = append(segments,
			m.theme.SegmentStyle(0).Render(sess.BaseURL()),
			m.theme.SegmentStyle(1).Render(user),
		)
	}
	line := strings.Join(segments, " ")
	return ansi.Truncate(line, maxInt(m.width, 1), "…")
}

func (m Model) renderStatusBar() string {
	inflight := m.pending
	if m.client != nil {
		inflight = m.client.InFlight()
	}
	left := m.theme.StatusBarKey.Render("in flight") + " " +
		m.theme.StatusBarValue.Render(fmt.Sprintf("%d", inflight))
	msg := m.statusStyle(m.status.level).Render(m.status.text)
	hint := m.theme.Muted.Render("ctrl+y copy · help")
	line := m.theme.StatusBar.Render(left + "  " + msg + "  " + hint)
	return ansi.Truncate(line, maxInt(m.width, 1), "…")
}

func (m Model) statusStyle(level statusLevel) lipgloss.Style {
	switch level {
	case statusWarn:
		return m.theme.Warn
	case statusError:
		return m.theme.Error
	case statusSuccess:
		return m.theme.Success
	}
	return m.theme.StatusBarValue
}

func (m *Model) echo(line string) {
	m.appendLines(m.theme.Prompt.Render("› ") + line)
}

func (m *Model) appendEvent(msg eventMsg) {
	ev := msg.event
	if ev == nil {
		return
	}
	m.appendLines(m.eventLines(ev)...)
	if api.Failed(ev) {
		m.lastPayload = api.ErrOf(ev).Error()
		m.status = statusMsg{text: api.Name(ev) + " for " + ev.Info().Path, level: statusError}
		return
	}
	m.lastPayload = payloadJSON(api.Payload(ev))
	m.status = statusMsg{text: api.Name(ev), level: statusSuccess}
}

func (m Model) eventLines(ev api.Event) []string {
	meta := ev.Info()
	mark := m.theme.Success.Render("✓")
	if api.Failed(ev) {
		mark = m.theme.Error.Render("✗")
	}
	head := fmt.Sprintf("%s %s %s %s",
		m.theme.Timestamp.Render(m.now().Format("15:04:05")),
		mark,
		m.theme.EventName.Render(api.Name(ev)),
		m.theme.EventMeta.Render(describeMeta(meta)),
	)
	lines := []string{head}

	if err := api.ErrOf(ev); err != nil {
		return append(lines, "  "+m.theme.Error.Render(err.Error()))
	}
	body := payloadJSON(api.Payload(ev))
	rendered := strings.Split(m.highlightJSON(body), "\n")
	if len(rendered) > payloadMaxLines {
		more := len(rendered) - payloadMaxLines
		rendered = append(rendered[:payloadMaxLines], m.theme.Muted.Render(fmt.Sprintf("… %d more lines (ctrl+y copies all)", more)))
	}
	for _, l := range rendered {
		lines = append(lines, "  "+l)
	}
	return lines
}

func describeMeta(meta api.Meta) string {
	parts := []string{meta.Op.String(), meta.Method, meta.Path}
	if meta.StatusCode > 0 {
		parts = append(parts, fmt.Sprintf("%d", meta.StatusCode))
	}
	if meta.Duration > 0 {
		parts = append(parts, meta.Duration.Round(time.Millisecond).String())
	}
	return strings.Join(parts, " ")
}

func payloadJSON(v any) string {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(data)
}

func (m Model) highlightJSON(body string) string {
	formatter := chromaFormatter(m.profile)
	if formatter == "" {
		return body
	}
	if out, ok := highlight(body, "json", formatter); ok {
		return strings.TrimRight(out, "\n")
	}
	return body
}

func chromaFormatter(profile termenv.Profile) string {
	switch profile {
	case termenv.TrueColor:
		return "terminal16m"
	case termenv.ANSI256:
		return "terminal256"
	case termenv.ANSI:
		return "terminal16"
	}
	return ""
}

func highlight(content, lexer, formatter string) (string, bool) {
	var buf bytes.Buffer
	if err := quick.Highlight(&buf, content, lexer, formatter, "monokai"); err != nil {
		return "", false
	}
	return buf.String(), true
}

func (m *Model) appendLines(lines ...string) {
	m.lines = append(m.lines, lines...)
	if over := len(m.lines) - maxLogLines; over > 0 {
		m.lines = append([]string(nil), m.lines[over:]...)
	}
	m.refreshLog()
}

func (m *Model) clearLog() {
	m.lines = nil
	m.lastPayload = ""
	m.refreshLog()
}

// refreshLog re-truncates every line to the current width.
func (m *Model) refreshLog() {
	width := maxInt(m.events.Width, 1)
	out := make([]string, len(m.lines))
	for i, l := range m.lines {
		out[i] = ansi.Truncate(l, width, "…")
	}
	m.events.SetContent(strings.Join(out, "\n"))
	m.events.GotoBottom()
}
