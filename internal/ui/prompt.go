package ui

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/unkn0wn-root/flightdesk/internal/api"
	"github.com/unkn0wn-root/flightdesk/internal/command"
	"github.com/unkn0wn-root/flightdesk/internal/errdef"
)

func (m Model) submit(line string) (tea.Model, tea.Cmd) {
	line = strings.TrimSpace(line)
	if line == "" {
		return m, nil
	}
	m.remember(line)

	name, args, err := command.Parse(line)
	if err != nil {
		m.status = statusMsg{text: errdef.Message(err), level: statusError}
		return m, nil
	}

	switch name {
	case "quit", "exit":
		return m, tea.Quit
	case "clear":
		m.clearLog()
		return m, nil
	case "help":
		m.echo(line)
		m.appendLines(m.helpLines(args)...)
		return m, nil
	case "copy":
		m.status = m.copyLastPayload()
		return m, nil
	case "set":
		m.echo(line)
		m.status = m.applySetting(args)
		return m, nil
	}

	if m.client == nil {
		m.status = statusMsg{text: "No client configured", level: statusError}
		return m, nil
	}
	env := command.Env{Client: m.client, Now: m.now}
	call, err := command.Run(m.ctx, env, name, args)
	if err != nil {
		m.status = statusMsg{text: errdef.Message(err), level: statusError}
		return m, nil
	}
	m.log.Debug("console command issued",
		zap.String("command", name),
		zap.String("op", call.Op.String()),
		zap.Uint64("handle", uint64(call.Handle)),
	)
	m.echo(line)
	m.pending++
	m.status = statusMsg{text: fmt.Sprintf("Sent %s %s", call.Method, call.Path), level: statusInfo}
	return m, waitFor(line, call)
}

// waitFor blocks on the call's future off the update loop. The client
// deadline guarantees it resolves.
func waitFor(line string, call *api.Call) tea.Cmd {
	return func() tea.Msg {
		ev, _ := call.Wait(context.Background())
		return eventMsg{line: line, call: call, event: ev}
	}
}

func (m *Model) applySetting(args []string) statusMsg {
	if len(args) < 1 {
		return statusMsg{text: "usage: set KEY VALUE", level: statusError}
	}
	key, val := args[0], strings.Join(args[1:], " ")
	if k, v, ok := strings.Cut(key, "="); ok && len(args) == 1 {
		key, val = k, v
	}
	if err := m.applier.Apply(key, val); err != nil {
		return statusMsg{text: errdef.Message(err), level: statusError}
	}
	return statusMsg{text: "Updated " + key, level: statusSuccess}
}

func (m Model) helpLines(args []string) []string {
	if len(args) > 0 {
		spec, ok := command.Lookup(args[0])
		if !ok {
			return []string{m.theme.Error.Render("unknown command " + args[0])}
		}
		return []string{
			m.theme.CommandBarHint.Render(spec.Usage),
			"  " + spec.Summary + m.theme.Muted.Render(" ("+spec.Op.String()+")"),
		}
	}
	specs := command.Specs()
	width := 0
	for _, s := range specs {
		width = maxInt(width, len(s.Usage))
	}
	out := make([]string, 0, len(specs)+6)
	for _, s := range specs {
		pad := strings.Repeat(" ", width-len(s.Usage)+2)
		out = append(out, "  "+m.theme.CommandBarHint.Render(s.Usage)+pad+s.Summary)
	}
	out = append(out,
		"  "+m.theme.CommandBarHint.Render("set KEY VALUE")+"  base-url, token or user-id",
		"  "+m.theme.CommandBarHint.Render("copy")+"  copy the last payload (ctrl+y)",
		"  "+m.theme.CommandBarHint.Render("clear")+"  clear the log (ctrl+l)",
		"  "+m.theme.CommandBarHint.Render("quit")+"  leave (ctrl+c)",
	)
	return out
}
