package history

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/unkn0wn-root/flightdesk/internal/errdef"
)

const (
	OutcomeOK      = "ok"
	OutcomeError   = "error"
	OutcomeTimeout = "timeout"
)

type Entry struct {
	ID          string        `json:"id"`
	ExecutedAt  time.Time     `json:"executedAt"`
	RequestID   string        `json:"requestId,omitempty"`
	Operation   string        `json:"operation"`
	Method      string        `json:"method"`
	Path        string        `json:"path"`
	Outcome     string        `json:"outcome"`
	StatusCode  int           `json:"statusCode,omitempty"`
	Duration    time.Duration `json:"duration"`
	BodySnippet string        `json:"bodySnippet,omitempty"`
	Error       string        `json:"error,omitempty"`
}

type Store struct {
	path       string
	maxEntries int
	entries    []Entry
	mu         sync.RWMutex
	loaded     bool
}

// NewStore creates a file backed history store with a bounded entry list.
func NewStore(path string, maxEntries int) *Store {
	if maxEntries <= 0 {
		maxEntries = 200
	}
	return &Store{path: path, maxEntries: maxEntries}
}

func (s *Store) Path() string { return s.path }

// Load reads the persisted history file, tolerating missing files and ensuring
// the entries are sorted newest first.
func (s *Store) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadLocked()
}

func (s *Store) loadLocked() error {
	if s.loaded {
		return nil
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			s.entries = []Entry{}
			s.loaded = true
			return nil
		}
		return errdef.Wrap(errdef.CodeHistory, err, "read history")
	}

	if len(data) == 0 {
		s.entries = []Entry{}
		s.loaded = true
		return nil
	}

	if err := json.Unmarshal(data, &s.entries); err != nil {
		return errdef.Wrap(errdef.CodeHistory, err, "parse history")
	}

	s.sortEntriesLocked()
	s.trimLocked()
	s.loaded = true
	return nil
}

// Append records a new entry, enforcing the limit and persisting to disk.
func (s *Store) Append(entry Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.loadLocked(); err != nil {
		return err
	}

	s.entries = append([]Entry{entry}, s.entries...)
	s.sortEntriesLocked()
	s.trimLocked()
	return s.persist()
}

// Entries returns a copy so callers cannot mutate internal slices.
func (s *Store) Entries() []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	copies := make([]Entry, len(s.entries))
	copy(copies, s.entries)
	return copies
}

// Delete removes an entry by id and reports whether a record was removed.
func (s *Store) Delete(id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.loadLocked(); err != nil {
		return false, err
	}

	idx := -1
	for i, entry := range s.entries {
		if entry.ID == id {
			idx = i
			break
		}
	}
	if idx == -1 {
		return false, nil
	}

	copy(s.entries[idx:], s.entries[idx+1:])
	s.entries = s.entries[:len(s.entries)-1]

	if err := s.persist(); err != nil {
		return false, err
	}
	return true, nil
}

// Clear drops every entry and truncates the file.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = []Entry{}
	s.loaded = true
	return s.persist()
}

// ByOperation returns entries for one operation name, newest first. An empty
// name matches everything.
func (s *Store) ByOperation(op string) []Entry {
	op = strings.TrimSpace(op)
	if op == "" {
		return s.Entries()
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	var matched []Entry
	for _, entry := range s.entries {
		if strings.EqualFold(entry.Operation, op) {
			matched = append(matched, entry)
		}
	}
	return matched
}

// persist atomically writes the history file by first writing to a temp file
// and renaming it into place.
func (s *Store) persist() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return errdef.Wrap(errdef.CodeFilesystem, err, "create history dir")
	}

	data, err := json.MarshalIndent(s.entries, "", "  ")
	if err != nil {
		return errdef.Wrap(errdef.CodeHistory, err, "encode history")
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return errdef.Wrap(errdef.CodeFilesystem, err, "write history tmp")
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return errdef.Wrap(errdef.CodeFilesystem, err, "replace history file")
	}
	return nil
}

func (s *Store) trimLocked() {
	if len(s.entries) > s.maxEntries {
		s.entries = s.entries[:s.maxEntries]
	}
}

// sortEntriesLocked orders entries newest first. Caller must hold the lock.
func (s *Store) sortEntriesLocked() {
	if len(s.entries) < 2 {
		return
	}
	sort.SliceStable(s.entries, func(i, j int) bool {
		return newerFirst(s.entries[i], s.entries[j])
	})
}

// newerFirst orders by execution time; undated entries sink to the end and
// ties fall back to id order.
func newerFirst(a, b Entry) bool {
	ai := a.ExecutedAt
	bi := b.ExecutedAt
	switch {
	case ai.IsZero() && bi.IsZero():
		return a.ID > b.ID
	case ai.IsZero():
		return false
	case bi.IsZero():
		return true
	case ai.Equal(bi):
		return a.ID > b.ID
	default:
		return ai.After(bi)
	}
}
