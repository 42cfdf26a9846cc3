package ui

import "github.com/unkn0wn-root/flightdesk/internal/api"

type statusLevel int

const (
	statusInfo statusLevel = iota
	statusWarn
	statusError
	statusSuccess
)

type statusMsg struct {
	text  string
	level statusLevel
}

// eventMsg carries the resolved outcome of a call issued from the prompt.
type eventMsg struct {
	line  string
	call  *api.Call
	event api.Event
}
