// Package mockapi serves an in-memory flight-system backend. It answers every
// route the client knows with canned data, issues bearer tokens on login and
// can add artificial latency to exercise client deadlines.
package mockapi

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const DefaultPrefix = "/v1"

type Option func(*Server)

func WithLogger(l *zap.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.log = l
		}
	}
}

// WithLatency delays every response by d unless the request is cancelled
// first.
func WithLatency(d time.Duration) Option {
	return func(s *Server) { s.latency = d }
}

func WithPrefix(prefix string) Option {
	return func(s *Server) { s.prefix = "/" + strings.Trim(prefix, "/") }
}

// WithUser seeds an account so login works without registering first.
func WithUser(username, password string) Option {
	return func(s *Server) { s.addUserLocked(username, password, "") }
}

type user struct {
	ID       string `json:"user_id"`
	Username string `json:"username"`
	Password string `json:"-"`
	Email    string `json:"email,omitempty"`
	Phone    string `json:"phone,omitempty"`
	First    string `json:"first_name,omitempty"`
	Last     string `json:"last_name,omitempty"`
}

type booking struct {
	ID       string `json:"booking_id"`
	UserID   string `json:"user_id"`
	Flight   string `json:"flight_number"`
	Seat     string `json:"seat,omitempty"`
	Status   string `json:"status"`
	Price    int    `json:"price"`
	Created  string `json:"created_at"`
	Reviewed bool   `json:"reviewed"`
}

type notification struct {
	ID      string `json:"notification_id"`
	Message string `json:"message"`
	Read    bool   `json:"read"`
}

type Server struct {
	log     *zap.Logger
	latency time.Duration
	prefix  string
	started time.Time
	mux     *http.ServeMux

	mu            sync.Mutex
	users         map[string]*user // by id
	tokens        map[string]string
	bookings      map[string]*booking
	bookingSeq    int
	taken         map[string]map[string]bool
	reviews       map[string][]review
	favorites     map[string][]string
	notifications map[string][]*notification
	notifySeq     int
	paymentSeq    int
}

func New(opts ...Option) *Server {
	s := &Server{
		log:           zap.NewNop(),
		prefix:        DefaultPrefix,
		started:       time.Now(),
		users:         make(map[string]*user),
		tokens:        make(map[string]string),
		bookings:      make(map[string]*booking),
		taken:         make(map[string]map[string]bool),
		reviews:       make(map[string][]review),
		favorites:     make(map[string][]string),
		notifications: make(map[string][]*notification),
	}
	for number, list := range seedReviews {
		s.reviews[number] = append([]review(nil), list...)
	}
	for _, opt := range opts {
		opt(s)
	}
	s.mux = s.routes()
	return s
}

func (s *Server) Prefix() string { return s.prefix }

func (s *Server) routes() *http.ServeMux {
	mux := http.NewServeMux()
	p := s.prefix
	open := func(pattern string, h http.HandlerFunc) {
		method, path, _ := strings.Cut(pattern, " ")
		mux.HandleFunc(method+" "+p+path, h)
	}
	authed := func(pattern string, h func(http.ResponseWriter, *http.Request, *user)) {
		open(pattern, s.requireAuth(h))
	}

	open("POST /auth/login", s.handleLogin)
	open("POST /auth/register", s.handleRegister)
	authed("POST /auth/logout", s.handleLogout)
	authed("POST /auth/refresh", s.handleRefresh)

	authed("POST /flights/search", s.handleSearch)
	authed("GET /flights/schedule", s.handleSchedule)
	authed("GET /flights/{id}", s.handleFlight)
	authed("GET /flights/{id}/seats", s.handleSeats)
	authed("GET /flights/{id}/reviews", s.handleReviews)

	authed("POST /bookings", s.handleCreateBooking)
	authed("GET /bookings/{id}", s.handleBooking)
	authed("POST /bookings/{id}/cancel", s.handleCancelBooking)
	authed("POST /bookings/{id}/review", s.handleReviewBooking)

	authed("GET /users/{id}", s.handleProfile)
	authed("PUT /users/{id}", s.handleUpdateProfile)
	authed("GET /users/{id}/bookings", s.handleUserBookings)
	authed("GET /users/{id}/favorites", s.handleFavorites)
	authed("POST /users/{id}/favorites/{flight}", s.handleAddFavorite)
	authed("DELETE /users/{id}/favorites/{flight}", s.handleRemoveFavorite)
	authed("GET /users/{id}/notifications", s.handleNotifications)
	authed("PUT /notifications/{id}/read", s.handleMarkRead)

	authed("POST /payments/process", s.handleProcessPayment)
	authed("POST /payments/validate", s.handleValidatePayment)

	open("GET /system/status", s.handleStatus)
	authed("GET /statistics/flights", s.handleStatistics)
	return mux
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	if s.latency > 0 {
		select {
		case <-time.After(s.latency):
		case <-r.Context().Done():
			s.log.Debug("mock request abandoned", zap.String("path", r.URL.Path))
			return
		}
	}
	rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
	s.mux.ServeHTTP(rec, r)
	s.log.Info("mock request",
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.String("request_id", r.Header.Get("X-Request-ID")),
		zap.Int("status", rec.status),
		zap.Duration("duration", time.Since(start)),
	)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) requireAuth(h func(http.ResponseWriter, *http.Request, *user)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || token == "" {
			writeError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}
		s.mu.Lock()
		uid, found := s.tokens[token]
		u := s.users[uid]
		s.mu.Unlock()
		if !found || u == nil {
			writeError(w, http.StatusUnauthorized, "invalid token")
			return
		}
		h(w, r, u)
	}
}

func (s *Server) addUserLocked(username, password, email string) *user {
	u := &user{ID: "u-" + uuid.NewString()[:8], Username: username, Password: password, Email: email}
	s.users[u.ID] = u
	s.notifySeq++
	s.notifications[u.ID] = []*notification{{
		ID:      notificationID(s.notifySeq),
		Message: "Welcome to FlightSystem, " + username,
	}}
	return u
}

func (s *Server) userByName(username string) *user {
	for _, u := range s.users {
		if strings.EqualFold(u.Username, username) {
			return u
		}
	}
	return nil
}

func (s *Server) issueTokenLocked(uid string) string {
	token := uuid.NewString()
	s.tokens[token] = uid
	return token
}

func decodeBody(r *http.Request, dst any) error {
	data, err := io.ReadAll(r.Body)
	if err != nil {
		return err
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil
	}
	return json.Unmarshal(data, dst)
}

func writeJSON(w http.ResponseWriter, status int, body map[string]any) {
	if _, ok := body["code"]; !ok {
		body["code"] = 0
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeOK(w http.ResponseWriter, body map[string]any) {
	writeJSON(w, http.StatusOK, body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"code": status, "message": message})
}
