package ui

import (
	"strings"

	"go.uber.org/zap"
)

func (m *Model) copyLastPayload() statusMsg {
	text := normalizeClipboardText(m.lastPayload)
	if text == "" {
		return statusMsg{text: "Nothing to copy yet", level: statusWarn}
	}
	if err := m.copy(text); err != nil {
		m.log.Debug("clipboard write failed", zap.Error(err))
		return statusMsg{text: "Clipboard unavailable", level: statusWarn}
	}
	return statusMsg{text: "Copied last payload", level: statusSuccess}
}

func normalizeClipboardText(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	return strings.TrimRight(text, "\n")
}
