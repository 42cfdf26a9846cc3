package history

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/mattn/go-runewidth"
	"go.uber.org/zap"

	"github.com/unkn0wn-root/flightdesk/internal/api"
)

const snippetWidth = 160

type Recorder struct {
	store *Store
	log   *zap.Logger
	now   func() time.Time
}

func NewRecorder(store *Store, log *zap.Logger, now func() time.Time) *Recorder {
	if log == nil {
		log = zap.NewNop()
	}
	if now == nil {
		now = time.Now
	}
	return &Recorder{store: store, log: log, now: now}
}

// Handle is an api.Handler that appends one entry per terminal event. A
// failed write is logged and otherwise ignored.
func (r *Recorder) Handle(ev api.Event) {
	entry := NewEntry(ev, r.now())
	if err := r.store.Append(entry); err != nil {
		r.log.Warn("history append failed", zap.String("path", entry.Path), zap.Error(err))
	}
}

// NewEntry summarises a terminal event.
func NewEntry(ev api.Event, at time.Time) Entry {
	meta := ev.Info()
	entry := Entry{
		ID:         uuid.NewString(),
		ExecutedAt: at,
		RequestID:  meta.RequestID,
		Operation:  meta.Op.String(),
		Method:     meta.Method,
		Path:       meta.Path,
		Outcome:    OutcomeOK,
		StatusCode: meta.StatusCode,
		Duration:   meta.Duration,
	}
	switch e := ev.(type) {
	case api.TimedOut:
		entry.Outcome = OutcomeTimeout
		entry.Error = e.Err().Error()
	case api.ErrorOccurred:
		entry.Outcome = OutcomeError
		entry.Error = e.Err.Error()
	default:
		entry.BodySnippet = Snippet(api.Payload(ev))
	}
	return entry
}

// Snippet renders v as compact JSON cut to a fixed display width.
func Snippet(v any) string {
	if v == nil {
		return ""
	}
	data, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return runewidth.Truncate(string(data), snippetWidth, "…")
}
