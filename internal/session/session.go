// Package session holds client authentication state: the bearer token and the
// API base URL. A Session is owned by the caller and handed to the API client;
// there is no package level instance.
package session

import (
	"strings"
	"sync"
)

const DefaultBaseURL = "https://api.flightsystem.com/v1"

type Session struct {
	mu      sync.RWMutex
	baseURL string
	token   string
	userID  string
}

// New returns an unauthenticated session. An empty baseURL selects
// DefaultBaseURL.
func New(baseURL string) *Session {
	s := &Session{}
	s.SetBaseURL(baseURL)
	return s
}

func (s *Session) BaseURL() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.baseURL
}

// SetBaseURL swaps the API root. A trailing slash is dropped because paths
// always begin with one.
func (s *Session) SetBaseURL(baseURL string) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	s.mu.Lock()
	s.baseURL = baseURL
	s.mu.Unlock()
}

func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

func (s *Session) SetToken(token string) {
	s.mu.Lock()
	s.token = token
	s.mu.Unlock()
}

func (s *Session) UserID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.userID
}

func (s *Session) SetUserID(id string) {
	s.mu.Lock()
	s.userID = id
	s.mu.Unlock()
}

// Authenticated reports whether a token is currently held.
func (s *Session) Authenticated() bool {
	return s.Token() != ""
}

// Clear drops the token and user id, keeping the base URL.
func (s *Session) Clear() {
	s.mu.Lock()
	s.token = ""
	s.userID = ""
	s.mu.Unlock()
}
