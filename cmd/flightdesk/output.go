package main

import (
	"encoding/json"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/unkn0wn-root/flightdesk/internal/api"
	"github.com/unkn0wn-root/flightdesk/internal/errdef"
)

const (
	formatJSON  = "json"
	formatYAML  = "yaml"
	formatTable = "table"
)

type eventDoc struct {
	Event      string  `json:"event" yaml:"event"`
	Operation  string  `json:"operation" yaml:"operation"`
	Method     string  `json:"method" yaml:"method"`
	Path       string  `json:"path" yaml:"path"`
	RequestID  string  `json:"request_id" yaml:"request_id"`
	Status     int     `json:"status,omitempty" yaml:"status,omitempty"`
	DurationMS float64 `json:"duration_ms" yaml:"duration_ms"`
	Payload    any     `json:"payload,omitempty" yaml:"payload,omitempty"`
	Error      string  `json:"error,omitempty" yaml:"error,omitempty"`
}

func newEventDoc(ev api.Event) eventDoc {
	meta := ev.Info()
	doc := eventDoc{
		Event:      api.Name(ev),
		Operation:  meta.Op.String(),
		Method:     meta.Method,
		Path:       meta.Path,
		RequestID:  meta.RequestID,
		Status:     meta.StatusCode,
		DurationMS: float64(meta.Duration.Microseconds()) / 1000,
	}
	if err := api.ErrOf(ev); err != nil {
		doc.Error = err.Error()
	} else {
		doc.Payload = plain(api.Payload(ev))
	}
	return doc
}

func checkFormat(format string, allowed ...string) error {
	if len(allowed) == 0 {
		allowed = []string{formatJSON, formatYAML}
	}
	for _, f := range allowed {
		if format == f {
			return nil
		}
	}
	return errdef.New(errdef.CodeConfig, "unknown output format %q (want %s)", format, strings.Join(allowed, ", "))
}

func writeEvent(w io.Writer, ev api.Event, format string) error {
	return encode(w, newEventDoc(ev), format)
}

func encode(w io.Writer, v any, format string) error {
	switch format {
	case formatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return errdef.Wrap(errdef.CodeUI, err, "encode yaml")
		}
		return enc.Close()
	default:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(v); err != nil {
			return errdef.Wrap(errdef.CodeUI, err, "encode json")
		}
		return nil
	}
}

// plain swaps json.Number for int64 or float64 so YAML prints numbers rather
// than quoted strings.
func plain(v any) any {
	switch t := v.(type) {
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return i
		}
		if f, err := t.Float64(); err == nil {
			return f
		}
		return t.String()
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = plain(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = plain(val)
		}
		return out
	}
	return v
}
