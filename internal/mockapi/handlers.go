package mockapi

import (
	"fmt"
	"net/http"
	"strings"
	"time"
	"unicode"
)

func bookingID(n int) string      { return fmt.Sprintf("BK%06d", n) }
func notificationID(n int) string { return fmt.Sprintf("N%04d", n) }

func findFlight(number string) (flight, bool) {
	for _, f := range seedFlights {
		if strings.EqualFold(f.Number, number) {
			return f, true
		}
	}
	return flight{}, false
}

func matchesPlace(code, city, query string) bool {
	q := strings.TrimSpace(query)
	return q == "" || strings.EqualFold(code, q) || strings.EqualFold(city, q) ||
		// Shanghai has two airports; SHA also names the city.
		(strings.EqualFold(q, "SHA") && city == "Shanghai")
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed login payload")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.userByName(req.Username)
	if u == nil || u.Password != req.Password {
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}
	token := s.issueTokenLocked(u.ID)
	writeOK(w, map[string]any{
		"message": "login successful",
		"data":    map[string]any{"token": token, "user_id": u.ID, "username": u.Username},
	})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
		Email    string `json:"email"`
	}
	if err := decodeBody(r, &req); err != nil || strings.TrimSpace(req.Username) == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "username and password are required")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.userByName(req.Username) != nil {
		writeError(w, http.StatusConflict, "username already taken")
		return
	}
	u := s.addUserLocked(strings.TrimSpace(req.Username), req.Password, req.Email)
	writeOK(w, map[string]any{
		"message": "registration successful",
		"data":    map[string]any{"user_id": u.ID, "username": u.Username},
	})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request, u *user) {
	token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	s.mu.Lock()
	delete(s.tokens, token)
	s.mu.Unlock()
	writeOK(w, map[string]any{"message": "logged out"})
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request, u *user) {
	old := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	s.mu.Lock()
	delete(s.tokens, old)
	token := s.issueTokenLocked(u.ID)
	s.mu.Unlock()
	writeOK(w, map[string]any{"data": map[string]any{"token": token}})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request, _ *user) {
	var req struct {
		Departure   string `json:"departure"`
		Destination string `json:"destination"`
		Date        string `json:"date"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed search payload")
		return
	}
	if req.Date != "" {
		if _, err := time.Parse("2006-01-02", req.Date); err != nil {
			writeError(w, http.StatusBadRequest, "date must be yyyy-mm-dd")
			return
		}
	}
	out := []any{}
	for _, f := range seedFlights {
		if matchesPlace(f.From, f.FromCity, req.Departure) && matchesPlace(f.To, f.ToCity, req.Destination) {
			out = append(out, f)
		}
	}
	writeOK(w, map[string]any{"date": req.Date, "flights": out})
}

func (s *Server) handleSchedule(w http.ResponseWriter, r *http.Request, _ *user) {
	q := r.URL.Query()
	out := []any{}
	for _, f := range seedFlights {
		if matchesPlace(f.From, f.FromCity, q.Get("from")) && matchesPlace(f.To, f.ToCity, q.Get("to")) {
			out = append(out, map[string]any{
				"flight_number":  f.Number,
				"departure_time": f.Departs,
				"arrival_time":   f.Arrives,
				"status":         f.Status,
			})
		}
	}
	writeOK(w, map[string]any{"schedule": out})
}

func (s *Server) handleFlight(w http.ResponseWriter, r *http.Request, _ *user) {
	f, ok := findFlight(r.PathValue("id"))
	if !ok {
		writeError(w, http.StatusNotFound, "flight not found")
		return
	}
	writeOK(w, map[string]any{"flight": f, "flight_number": f.Number, "status": f.Status, "gate": f.Gate})
}

func (s *Server) handleSeats(w http.ResponseWriter, r *http.Request, _ *user) {
	f, ok := findFlight(r.PathValue("id"))
	if !ok {
		writeError(w, http.StatusNotFound, "flight not found")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	seats := []any{}
	for _, row := range seatRows {
		for _, letter := range seatLetters {
			seat := fmt.Sprintf("%d%s", row, letter)
			seats = append(seats, map[string]any{
				"seat":      seat,
				"class":     seatClass(row),
				"available": !s.seatTakenLocked(f.Number, seat),
			})
		}
	}
	writeOK(w, map[string]any{"flight_number": f.Number, "seats": seats})
}

func (s *Server) seatTakenLocked(number, seat string) bool {
	if seedTaken[seat] {
		return true
	}
	return s.taken[number][seat]
}

func (s *Server) handleReviews(w http.ResponseWriter, r *http.Request, _ *user) {
	f, ok := findFlight(r.PathValue("id"))
	if !ok {
		writeError(w, http.StatusNotFound, "flight not found")
		return
	}
	s.mu.Lock()
	list := append([]review{}, s.reviews[f.Number]...)
	s.mu.Unlock()
	writeOK(w, map[string]any{"flight_number": f.Number, "reviews": list})
}

func (s *Server) handleCreateBooking(w http.ResponseWriter, r *http.Request, u *user) {
	var req struct {
		Flight string `json:"flight_number"`
		Seat   string `json:"seat"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed booking payload")
		return
	}
	f, ok := findFlight(req.Flight)
	if !ok {
		writeError(w, http.StatusNotFound, "flight not found")
		return
	}
	seat := strings.ToUpper(strings.TrimSpace(req.Seat))

	s.mu.Lock()
	defer s.mu.Unlock()
	if seat != "" {
		if s.seatTakenLocked(f.Number, seat) {
			writeError(w, http.StatusConflict, "seat "+seat+" is not available")
			return
		}
		if s.taken[f.Number] == nil {
			s.taken[f.Number] = make(map[string]bool)
		}
		s.taken[f.Number][seat] = true
	}
	s.bookingSeq++
	b := &booking{
		ID:      bookingID(s.bookingSeq),
		UserID:  u.ID,
		Flight:  f.Number,
		Seat:    seat,
		Status:  "confirmed",
		Price:   f.Price,
		Created: time.Now().UTC().Format(time.RFC3339),
	}
	s.bookings[b.ID] = b
	s.notifyLocked(u.ID, "Booking "+b.ID+" confirmed for "+f.Number)
	writeOK(w, map[string]any{"message": "booking confirmed", "booking_id": b.ID, "booking": b})
}

func (s *Server) ownBookingLocked(w http.ResponseWriter, id string, u *user) *booking {
	b := s.bookings[id]
	if b == nil {
		writeError(w, http.StatusNotFound, "booking not found")
		return nil
	}
	if b.UserID != u.ID {
		writeError(w, http.StatusForbidden, "booking belongs to another user")
		return nil
	}
	return b
}

func (s *Server) handleBooking(w http.ResponseWriter, r *http.Request, u *user) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b := s.ownBookingLocked(w, r.PathValue("id"), u)
	if b == nil {
		return
	}
	writeOK(w, map[string]any{"booking": *b})
}

func (s *Server) handleCancelBooking(w http.ResponseWriter, r *http.Request, u *user) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b := s.ownBookingLocked(w, r.PathValue("id"), u)
	if b == nil {
		return
	}
	if b.Status == "cancelled" {
		writeError(w, http.StatusConflict, "booking already cancelled")
		return
	}
	b.Status = "cancelled"
	if b.Seat != "" {
		delete(s.taken[b.Flight], b.Seat)
	}
	s.notifyLocked(u.ID, "Booking "+b.ID+" cancelled")
	writeOK(w, map[string]any{"message": "booking cancelled", "booking": *b})
}

func (s *Server) handleReviewBooking(w http.ResponseWriter, r *http.Request, u *user) {
	var req struct {
		Rating  int    `json:"rating"`
		Comment string `json:"comment"`
	}
	if err := decodeBody(r, &req); err != nil || req.Rating < 1 || req.Rating > 5 {
		writeError(w, http.StatusBadRequest, "rating must be between 1 and 5")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	b := s.ownBookingLocked(w, r.PathValue("id"), u)
	if b == nil {
		return
	}
	if b.Reviewed {
		writeError(w, http.StatusConflict, "booking already reviewed")
		return
	}
	b.Reviewed = true
	s.reviews[b.Flight] = append(s.reviews[b.Flight], review{User: u.Username, Rating: req.Rating, Comment: req.Comment})
	writeOK(w, map[string]any{"message": "review submitted", "booking_id": b.ID})
}

// self rejects access to another user's resources.
func self(w http.ResponseWriter, r *http.Request, u *user) bool {
	if r.PathValue("id") != u.ID {
		writeError(w, http.StatusForbidden, "access to another user is not allowed")
		return false
	}
	return true
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request, u *user) {
	if !self(w, r, u) {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	writeOK(w, map[string]any{"user": *u, "user_id": u.ID, "username": u.Username})
}

func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request, u *user) {
	if !self(w, r, u) {
		return
	}
	var req map[string]string
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed profile payload")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, v := range req {
		switch k {
		case "email":
			u.Email = v
		case "phone":
			u.Phone = v
		case "first_name":
			u.First = v
		case "last_name":
			u.Last = v
		}
	}
	writeOK(w, map[string]any{"message": "profile updated", "user": *u})
}

func (s *Server) handleUserBookings(w http.ResponseWriter, r *http.Request, u *user) {
	if !self(w, r, u) {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []any{}
	for i := 1; i <= s.bookingSeq; i++ {
		if b := s.bookings[bookingID(i)]; b != nil && b.UserID == u.ID {
			out = append(out, *b)
		}
	}
	writeOK(w, map[string]any{"bookings": out})
}

func (s *Server) handleFavorites(w http.ResponseWriter, r *http.Request, u *user) {
	if !self(w, r, u) {
		return
	}
	s.mu.Lock()
	list := append([]string{}, s.favorites[u.ID]...)
	s.mu.Unlock()
	writeOK(w, map[string]any{"favorites": list})
}

func (s *Server) handleAddFavorite(w http.ResponseWriter, r *http.Request, u *user) {
	if !self(w, r, u) {
		return
	}
	f, ok := findFlight(r.PathValue("flight"))
	if !ok {
		writeError(w, http.StatusNotFound, "flight not found")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, n := range s.favorites[u.ID] {
		if n == f.Number {
			writeOK(w, map[string]any{"message": "already a favorite", "flight_number": f.Number})
			return
		}
	}
	s.favorites[u.ID] = append(s.favorites[u.ID], f.Number)
	writeOK(w, map[string]any{"message": "favorite added", "flight_number": f.Number})
}

func (s *Server) handleRemoveFavorite(w http.ResponseWriter, r *http.Request, u *user) {
	if !self(w, r, u) {
		return
	}
	number := strings.ToUpper(r.PathValue("flight"))
	s.mu.Lock()
	defer s.mu.Unlock()
	list := s.favorites[u.ID]
	for i, n := range list {
		if n == number {
			s.favorites[u.ID] = append(list[:i:i], list[i+1:]...)
			writeOK(w, map[string]any{"message": "favorite removed", "flight_number": number})
			return
		}
	}
	writeError(w, http.StatusNotFound, "flight is not a favorite")
}

func (s *Server) notifyLocked(uid, msg string) {
	s.notifySeq++
	s.notifications[uid] = append(s.notifications[uid], &notification{ID: notificationID(s.notifySeq), Message: msg})
}

func (s *Server) handleNotifications(w http.ResponseWriter, r *http.Request, u *user) {
	if !self(w, r, u) {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []any{}
	for _, n := range s.notifications[u.ID] {
		out = append(out, *n)
	}
	writeOK(w, map[string]any{"notifications": out})
}

func (s *Server) handleMarkRead(w http.ResponseWriter, r *http.Request, u *user) {
	id := r.PathValue("id")
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, n := range s.notifications[u.ID] {
		if n.ID == id {
			n.Read = true
			writeOK(w, map[string]any{"message": "notification marked read", "notification_id": id})
			return
		}
	}
	writeError(w, http.StatusNotFound, "notification not found")
}

func (s *Server) handleProcessPayment(w http.ResponseWriter, r *http.Request, u *user) {
	var req struct {
		BookingID string  `json:"booking_id"`
		Amount    float64 `json:"amount"`
		Method    string  `json:"method"`
	}
	if err := decodeBody(r, &req); err != nil || req.BookingID == "" {
		writeError(w, http.StatusBadRequest, "booking_id is required")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	b := s.ownBookingLocked(w, req.BookingID, u)
	if b == nil {
		return
	}
	if req.Amount > 0 && int(req.Amount) != b.Price {
		writeError(w, http.StatusUnprocessableEntity, fmt.Sprintf("amount must be %d", b.Price))
		return
	}
	s.paymentSeq++
	b.Status = "paid"
	writeOK(w, map[string]any{
		"message":    "payment processed",
		"payment_id": fmt.Sprintf("PAY%06d", s.paymentSeq),
		"booking_id": b.ID,
		"amount":     b.Price,
		"status":     "paid",
	})
}

func (s *Server) handleValidatePayment(w http.ResponseWriter, r *http.Request, _ *user) {
	var req struct {
		CardNumber string `json:"card_number"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed payment payload")
		return
	}
	valid := luhn(req.CardNumber)
	payload := map[string]any{"valid": valid}
	if !valid {
		payload["message"] = "card number failed checksum"
	}
	writeOK(w, payload)
}

// luhn reports whether a card number passes the mod-10 checksum. Spaces and
// dashes are ignored.
func luhn(number string) bool {
	var digits []int
	for _, r := range number {
		switch {
		case unicode.IsDigit(r):
			digits = append(digits, int(r-'0'))
		case r == ' ' || r == '-':
		default:
			return false
		}
	}
	if len(digits) < 12 {
		return false
	}
	sum := 0
	for i := len(digits) - 1; i >= 0; i-- {
		d := digits[i]
		if (len(digits)-1-i)%2 == 1 {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
	}
	return sum%10 == 0
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeOK(w, map[string]any{
		"status":         "ok",
		"version":        "1.0",
		"uptime_seconds": int(time.Since(s.started).Seconds()),
	})
}

func (s *Server) handleStatistics(w http.ResponseWriter, r *http.Request, _ *user) {
	s.mu.Lock()
	defer s.mu.Unlock()
	onTime := 0
	for _, f := range seedFlights {
		if f.Status == "on-time" {
			onTime++
		}
	}
	active := 0
	for _, b := range s.bookings {
		if b.Status != "cancelled" {
			active++
		}
	}
	writeOK(w, map[string]any{
		"total_flights":    len(seedFlights),
		"on_time_flights":  onTime,
		"on_time_rate":     float64(onTime) / float64(len(seedFlights)),
		"total_bookings":   len(s.bookings),
		"active_bookings":  active,
		"registered_users": len(s.users),
	})
}
